package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"homelet/internal/domain"
	"homelet/internal/gateway"
	"homelet/internal/repository"
)

// referenceRetries bounds retries on the astronomically unlikely event of a
// generated reference colliding with an existing row.
const referenceRetries = 3

// PaymentService owns the transaction ledger lifecycle: initialization,
// webhook reconciliation and verify-fallback reconciliation.
type PaymentService struct {
	txRepo       repository.TransactionRepository
	listingRepo  repository.ListingRepository
	userRepo     repository.UserRepository
	gateway      gateway.Client
	notification *NotificationService
	callbackURL  string
}

// NewPaymentService creates a new PaymentService.
func NewPaymentService(
	txRepo repository.TransactionRepository,
	listingRepo repository.ListingRepository,
	userRepo repository.UserRepository,
	gatewayClient gateway.Client,
	notification *NotificationService,
	callbackURL string,
) *PaymentService {
	return &PaymentService{
		txRepo:       txRepo,
		listingRepo:  listingRepo,
		userRepo:     userRepo,
		gateway:      gatewayClient,
		notification: notification,
		callbackURL:  callbackURL,
	}
}

// InitializePaymentRequest contains the parameters for starting a payment.
type InitializePaymentRequest struct {
	UserID      string
	Email       string
	Amount      decimal.Decimal
	Currency    string
	PropertyID  string
	RoomID      string
	CallbackURL string
	UserAgent   string
	ClientIP    string
}

// InitializePaymentResponse is returned to the client so it can redirect the
// payer to the provider's checkout page.
type InitializePaymentResponse struct {
	AuthorizationURL string
	AccessCode       string
	Reference        string
	Transaction      *domain.Transaction
}

// Initialize validates the request, creates a pending ledger entry and asks
// the provider for a checkout session. A gateway failure marks the
// transaction failed rather than leaving it pending indefinitely.
func (s *PaymentService) Initialize(ctx context.Context, req InitializePaymentRequest) (*InitializePaymentResponse, error) {
	if req.UserID == "" {
		return nil, ErrInvalidUserID
	}
	if !req.Amount.IsPositive() {
		return nil, ErrInvalidAmount
	}

	if err := s.validateListing(ctx, req.PropertyID, req.RoomID); err != nil {
		return nil, err
	}

	email := req.Email
	if email == "" {
		user, err := s.userRepo.GetByID(ctx, req.UserID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return nil, ErrInvalidUserID
			}
			return nil, err
		}
		email = user.Email
	}

	currency := req.Currency
	if currency == "" {
		currency = "NGN"
	}

	tx := &domain.Transaction{
		ID:            uuid.New().String(),
		UserID:        req.UserID,
		Amount:        req.Amount,
		Currency:      currency,
		Status:        domain.TransactionPending,
		PaymentMethod: domain.MethodPaystack,
		PropertyID:    req.PropertyID,
		RoomID:        req.RoomID,
		Metadata: map[string]any{
			"property_id":  req.PropertyID,
			"room_id":      req.RoomID,
			"callback_url": req.CallbackURL,
			"user_agent":   req.UserAgent,
			"ip_address":   req.ClientIP,
		},
	}

	if err := s.createWithFreshReference(ctx, tx); err != nil {
		return nil, err
	}

	callbackURL := req.CallbackURL
	if callbackURL == "" {
		callbackURL = s.callbackURL
	}

	gwResp, err := s.gateway.Initialize(ctx, gateway.InitializeRequest{
		Email:       email,
		Amount:      tx.AmountMinorUnits(),
		Reference:   tx.Reference,
		CallbackURL: callbackURL,
		Metadata: map[string]any{
			"transaction_id": tx.ID,
			"user_id":        tx.UserID,
			"property_id":    req.PropertyID,
			"room_id":        req.RoomID,
		},
	})
	if err != nil {
		log.Printf("payment initialize: gateway error for %s: %v", tx.Reference, err)
		s.finalize(ctx, tx, domain.TransactionFailed, nil)
		return nil, fmt.Errorf("%w: initialization rejected", ErrGatewayUnavailable)
	}

	if err := s.txRepo.UpdateProviderData(ctx, tx.ID, gwResp.Raw); err != nil {
		log.Printf("payment initialize: storing provider data for %s: %v", tx.Reference, err)
	}
	tx.ProviderData = gwResp.Raw

	return &InitializePaymentResponse{
		AuthorizationURL: gwResp.AuthorizationURL,
		AccessCode:       gwResp.AccessCode,
		Reference:        tx.Reference,
		Transaction:      tx,
	}, nil
}

// webhookEvent is the provider's webhook envelope.
type webhookEvent struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// chargePayload is the subset of the charge event body the reconciler
// cross-verifies. Amount is in minor units.
type chargePayload struct {
	Reference string `json:"reference"`
	Status    string `json:"status"`
	Amount    int64  `json:"amount"`
}

// HandleWebhook reconciles an inbound payment event against the ledger.
// Returned errors map onto the webhook endpoint's status codes:
// ErrInvalidSignature (403), ErrMalformedPayload (400),
// repository.ErrNotFound (404); nil means processed or deliberately ignored.
func (s *PaymentService) HandleWebhook(ctx context.Context, rawBody []byte, signature string) error {
	// Step 1: authenticity. A forged success notification must not be able
	// to move the ledger.
	if !s.gateway.VerifySignature(rawBody, signature) {
		return ErrInvalidSignature
	}

	// Step 2: parse, and ignore unrelated event types so provider retries
	// with other events stay idempotent.
	var event webhookEvent
	if err := json.Unmarshal(rawBody, &event); err != nil {
		return ErrMalformedPayload
	}
	if event.Event != "charge.success" {
		return nil
	}

	var payload chargePayload
	if err := json.Unmarshal(event.Data, &payload); err != nil || payload.Reference == "" {
		return ErrMalformedPayload
	}

	// Step 3: the ledger row must exist; the provider retries on 404.
	tx, err := s.txRepo.GetByReference(ctx, payload.Reference)
	if err != nil {
		return err
	}

	// Replays of an already-settled event are no-ops.
	if tx.Status.IsTerminal() {
		return nil
	}

	// Step 4: cross-verify the payload rather than trusting the event type.
	// The signature proves origin, not that the contents match our ledger.
	target := domain.TransactionFailed
	if payload.Status == "success" &&
		payload.Reference == tx.Reference &&
		payload.Amount == tx.AmountMinorUnits() {
		target = domain.TransactionSuccessful
	}

	// Step 5: exactly one terminal transition, then fan-out.
	s.finalize(ctx, tx, target, event.Data)
	return nil
}

// ReconcileByVerify resolves a non-terminal transaction by asking the
// provider directly. Used when no webhook arrived within the expected window
// and by the manual verification endpoint.
func (s *PaymentService) ReconcileByVerify(ctx context.Context, reference string) (*domain.Transaction, error) {
	if reference == "" {
		return nil, ErrInvalidReference
	}

	tx, err := s.txRepo.GetByReference(ctx, reference)
	if err != nil {
		return nil, err
	}
	if tx.Status.IsTerminal() {
		return tx, nil
	}

	result, err := s.gateway.Verify(ctx, reference)
	if err != nil {
		log.Printf("payment verify: gateway error for %s: %v", reference, err)
		return nil, fmt.Errorf("%w: verification failed", ErrGatewayUnavailable)
	}

	if result.Success {
		s.finalize(ctx, tx, domain.TransactionSuccessful, result.Raw)
		return s.txRepo.GetByReference(ctx, reference)
	}

	// Not successful at the provider. A checkout still in progress is left
	// alone for the sweeper's abandon window; anything else is definitive.
	if providerStatusInFlight(result.Raw) {
		return tx, nil
	}

	s.finalize(ctx, tx, domain.TransactionFailed, result.Raw)
	return s.txRepo.GetByReference(ctx, reference)
}

// Abandon moves a stale pending transaction to abandoned. Not a terminal
// transition; a late webhook can still settle the row.
func (s *PaymentService) Abandon(ctx context.Context, reference string) (bool, error) {
	return s.txRepo.MarkAbandoned(ctx, reference)
}

// GetByReference retrieves a transaction scoped to its owner.
func (s *PaymentService) GetByReference(ctx context.Context, reference, userID string) (*domain.Transaction, error) {
	if reference == "" {
		return nil, ErrInvalidReference
	}
	if userID == "" {
		return nil, ErrInvalidUserID
	}
	return s.txRepo.GetByReferenceForUser(ctx, reference, userID)
}

// ListForUser retrieves a user's transactions, newest first.
func (s *PaymentService) ListForUser(ctx context.Context, userID string) ([]*domain.Transaction, error) {
	if userID == "" {
		return nil, ErrInvalidUserID
	}
	return s.txRepo.ListByUser(ctx, userID)
}

// finalize applies the terminal transition through the repository's
// conditional update and fires fan-out only when this call actually moved
// the row. Concurrent deliveries race on the update; exactly one wins.
func (s *PaymentService) finalize(ctx context.Context, tx *domain.Transaction, status domain.TransactionStatus, providerData json.RawMessage) {
	transitioned, err := s.txRepo.MarkCompleted(ctx, tx.Reference, status, providerData)
	if err != nil {
		log.Printf("payment finalize: transition %s -> %s: %v", tx.Reference, status, err)
		return
	}
	if !transitioned {
		return
	}

	if s.notification == nil {
		return
	}
	switch status {
	case domain.TransactionSuccessful:
		s.notification.PaymentSucceeded(ctx, tx)
	case domain.TransactionFailed:
		s.notification.PaymentFailed(ctx, tx)
	}
}

func (s *PaymentService) validateListing(ctx context.Context, propertyID, roomID string) error {
	var property *domain.Property

	if propertyID != "" {
		p, err := s.listingRepo.GetPropertyByID(ctx, propertyID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return ErrInvalidProperty
			}
			return err
		}
		property = p
	}

	if roomID != "" {
		room, err := s.listingRepo.GetRoomByID(ctx, roomID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return ErrInvalidRoom
			}
			return err
		}
		if property != nil && room.PropertyID != property.ID {
			return ErrRoomPropertyMismatch
		}
	}

	return nil
}

func (s *PaymentService) createWithFreshReference(ctx context.Context, tx *domain.Transaction) error {
	var err error
	for i := 0; i < referenceRetries; i++ {
		tx.Reference = domain.NewReference()
		err = s.txRepo.Create(ctx, tx)
		if !errors.Is(err, repository.ErrDuplicateReference) {
			return err
		}
	}
	return err
}

// providerStatusInFlight reports whether the provider's verify payload says
// the checkout has not finished yet.
func providerStatusInFlight(raw json.RawMessage) bool {
	var env struct {
		Data struct {
			Status string `json:"status"`
		} `json:"data"`
	}
	if err := json.Unmarshal(raw, &env); err != nil {
		return false
	}
	switch env.Data.Status {
	case "ongoing", "pending", "processing", "queued":
		return true
	}
	return false
}
