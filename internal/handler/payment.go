package handler

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"homelet/internal/middleware"
	"homelet/internal/service"
)

// signatureHeader carries the provider's webhook HMAC.
const signatureHeader = "X-Paystack-Signature"

// PaymentHandler handles HTTP requests for payments.
type PaymentHandler struct {
	paymentService *service.PaymentService
}

// NewPaymentHandler creates a new PaymentHandler.
func NewPaymentHandler(paymentService *service.PaymentService) *PaymentHandler {
	return &PaymentHandler{paymentService: paymentService}
}

// InitializePaymentRequest is the HTTP request body for initializing a payment.
type InitializePaymentRequest struct {
	Amount      decimal.Decimal `json:"amount"`
	Email       string          `json:"email"`
	PropertyID  string          `json:"property_id"`
	RoomID      string          `json:"room_id"`
	CallbackURL string          `json:"callback_url"`
}

// InitializePaymentResponse is the HTTP response for a payment initialization.
type InitializePaymentResponse struct {
	AuthorizationURL string `json:"authorization_url"`
	AccessCode       string `json:"access_code"`
	Reference        string `json:"reference"`
}

// Initialize handles POST /v1/payments/initialize
func (h *PaymentHandler) Initialize(c *gin.Context) {
	var req InitializePaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	if !req.Amount.IsPositive() {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "amount must be greater than zero"})
		return
	}

	resp, err := h.paymentService.Initialize(c.Request.Context(), service.InitializePaymentRequest{
		UserID:      middleware.UserID(c),
		Email:       req.Email,
		Amount:      req.Amount,
		PropertyID:  req.PropertyID,
		RoomID:      req.RoomID,
		CallbackURL: req.CallbackURL,
		UserAgent:   c.Request.UserAgent(),
		ClientIP:    c.ClientIP(),
	})
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, InitializePaymentResponse{
		AuthorizationURL: resp.AuthorizationURL,
		AccessCode:       resp.AccessCode,
		Reference:        resp.Reference,
	})
}

// Webhook handles POST /v1/payments/webhook/paystack
//
// The reconciler drives the response: 403 bad signature, 400 malformed body,
// 404 unknown reference (the provider retries), 200 processed or ignored.
func (h *PaymentHandler) Webhook(c *gin.Context) {
	// Signature is computed over the raw body; read it before any binding.
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.Status(http.StatusBadRequest)
		return
	}

	err = h.paymentService.HandleWebhook(c.Request.Context(), body, c.GetHeader(signatureHeader))
	if err != nil {
		c.Status(mapErrorToHTTPStatus(err))
		return
	}

	c.Status(http.StatusOK)
}

// Verify handles POST /v1/payments/verify/:reference
//
// Manual reconciliation-by-verify for the payer returning from checkout
// before the webhook lands.
func (h *PaymentHandler) Verify(c *gin.Context) {
	reference := c.Param("reference")
	userID := middleware.UserID(c)

	// Scope to the caller before touching the provider.
	if _, err := h.paymentService.GetByReference(c.Request.Context(), reference, userID); err != nil {
		respondError(c, err)
		return
	}

	tx, err := h.paymentService.ReconcileByVerify(c.Request.Context(), reference)
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, toTransactionResponse(tx))
}
