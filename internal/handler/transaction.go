package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"homelet/internal/domain"
	"homelet/internal/middleware"
	"homelet/internal/service"
)

// TransactionHandler handles read-only HTTP requests for the ledger.
type TransactionHandler struct {
	paymentService *service.PaymentService
}

// NewTransactionHandler creates a new TransactionHandler.
func NewTransactionHandler(paymentService *service.PaymentService) *TransactionHandler {
	return &TransactionHandler{paymentService: paymentService}
}

// TransactionResponse is the HTTP representation of a ledger entry.
type TransactionResponse struct {
	ID            string         `json:"id"`
	Reference     string         `json:"reference"`
	Amount        string         `json:"amount"`
	Currency      string         `json:"currency"`
	Status        string         `json:"status"`
	PaymentMethod string         `json:"payment_method"`
	Metadata      map[string]any `json:"metadata,omitempty"`
	PropertyID    string         `json:"property_id,omitempty"`
	RoomID        string         `json:"room_id,omitempty"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
	CompletedAt   *time.Time     `json:"completed_at,omitempty"`
}

func toTransactionResponse(tx *domain.Transaction) TransactionResponse {
	return TransactionResponse{
		ID:            tx.ID,
		Reference:     tx.Reference,
		Amount:        tx.Amount.StringFixed(2),
		Currency:      tx.Currency,
		Status:        string(tx.Status),
		PaymentMethod: string(tx.PaymentMethod),
		Metadata:      tx.Metadata,
		PropertyID:    tx.PropertyID,
		RoomID:        tx.RoomID,
		CreatedAt:     tx.CreatedAt,
		UpdatedAt:     tx.UpdatedAt,
		CompletedAt:   tx.CompletedAt,
	}
}

// List handles GET /v1/transactions
func (h *TransactionHandler) List(c *gin.Context) {
	transactions, err := h.paymentService.ListForUser(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		respondError(c, err)
		return
	}

	response := make([]TransactionResponse, 0, len(transactions))
	for _, tx := range transactions {
		response = append(response, toTransactionResponse(tx))
	}

	respondJSON(c, http.StatusOK, response)
}

// Get handles GET /v1/transactions/:reference
func (h *TransactionHandler) Get(c *gin.Context) {
	tx, err := h.paymentService.GetByReference(c.Request.Context(), c.Param("reference"), middleware.UserID(c))
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, toTransactionResponse(tx))
}
