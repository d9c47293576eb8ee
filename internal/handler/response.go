package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"homelet/internal/repository"
	"homelet/internal/service"
)

// ErrorResponse represents an error response.
type ErrorResponse struct {
	Error string `json:"error"`
}

// respondError sends an error response with the appropriate HTTP status code.
// Gateway failures get a generic message; the detail is already logged.
func respondError(c *gin.Context, err error) {
	code := mapErrorToHTTPStatus(err)
	if code == http.StatusInternalServerError {
		c.JSON(code, ErrorResponse{Error: "internal server error"})
		return
	}
	c.JSON(code, ErrorResponse{Error: err.Error()})
}

// respondJSON sends a JSON response with the given status code.
func respondJSON(c *gin.Context, code int, data any) {
	c.JSON(code, data)
}

// mapErrorToHTTPStatus maps service/repository errors to HTTP status codes.
func mapErrorToHTTPStatus(err error) int {
	switch {
	// Not found errors
	case errors.Is(err, repository.ErrNotFound):
		return http.StatusNotFound

	// Validation errors - Bad Request
	case errors.Is(err, service.ErrInvalidUserID),
		errors.Is(err, service.ErrInvalidAmount),
		errors.Is(err, service.ErrInvalidReference),
		errors.Is(err, service.ErrInvalidProperty),
		errors.Is(err, service.ErrInvalidRoom),
		errors.Is(err, service.ErrRoomPropertyMismatch),
		errors.Is(err, service.ErrMalformedPayload):
		return http.StatusBadRequest

	// Webhook authenticity failures - no detail to the caller
	case errors.Is(err, service.ErrInvalidSignature):
		return http.StatusForbidden

	// Provider failures - generic 500, full detail logged at the service
	case errors.Is(err, service.ErrGatewayUnavailable):
		return http.StatusInternalServerError

	// Default to internal server error
	default:
		return http.StatusInternalServerError
	}
}
