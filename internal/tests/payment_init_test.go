package tests

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"homelet/internal/domain"
	"homelet/internal/service"
)

func newPaymentService(txRepo *MockTransactionRepository, listingRepo *MockListingRepository, userRepo *MockUserRepository, gw *MockGateway, notification *service.NotificationService) *service.PaymentService {
	return service.NewPaymentService(txRepo, listingRepo, userRepo, gw, notification, "https://app.example/payment/callback")
}

func seedUser(userRepo *MockUserRepository) *domain.User {
	user := &domain.User{ID: "user-1", Name: "Ada", Email: "ada@example.com"}
	userRepo.AddUser(user)
	return user
}

// ──────────────────────────────────────────────
// 1. PAYMENT INITIALIZATION
// ──────────────────────────────────────────────

func TestInitialize_ValidAmount_CreatesPendingTransaction(t *testing.T) {
	t.Parallel()

	txRepo := NewMockTransactionRepository()
	userRepo := NewMockUserRepository()
	seedUser(userRepo)
	gw := NewMockGateway()

	svc := newPaymentService(txRepo, NewMockListingRepository(), userRepo, gw, nil)

	resp, err := svc.Initialize(context.Background(), service.InitializePaymentRequest{
		UserID: "user-1",
		Amount: decimal.RequireFromString("1000.00"),
	})
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}

	if txRepo.Count() != 1 {
		t.Fatalf("expected exactly one transaction, got %d", txRepo.Count())
	}
	if resp.Reference == "" {
		t.Error("expected a reference to be assigned")
	}
	if resp.AuthorizationURL == "" {
		t.Error("expected an authorization URL")
	}

	tx := txRepo.GetTransaction(resp.Reference)
	if tx == nil {
		t.Fatal("expected transaction to be persisted")
	}
	if tx.Status != domain.TransactionPending {
		t.Errorf("expected status pending, got %s", tx.Status)
	}
	if !tx.Amount.Equal(decimal.RequireFromString("1000.00")) {
		t.Errorf("expected amount 1000.00, got %s", tx.Amount)
	}
	if tx.Currency != "NGN" {
		t.Errorf("expected default currency NGN, got %s", tx.Currency)
	}
	if tx.CompletedAt != nil {
		t.Error("pending transaction must not have completed_at set")
	}
}

func TestInitialize_GatewayPayloadUsesMinorUnits(t *testing.T) {
	t.Parallel()

	txRepo := NewMockTransactionRepository()
	userRepo := NewMockUserRepository()
	seedUser(userRepo)
	gw := NewMockGateway()

	svc := newPaymentService(txRepo, NewMockListingRepository(), userRepo, gw, nil)

	_, err := svc.Initialize(context.Background(), service.InitializePaymentRequest{
		UserID:   "user-1",
		Amount:   decimal.RequireFromString("1000.00"),
		Currency: "NGN",
	})
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}

	req := gw.LastRequest()
	if req.Amount != 100000 {
		t.Errorf("expected gateway amount 100000 kobo, got %d", req.Amount)
	}
	if req.Email != "ada@example.com" {
		t.Errorf("expected user email to be used, got %q", req.Email)
	}
}

func TestInitialize_NonPositiveAmount_Rejected(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name   string
		amount string
	}{
		{name: "zero", amount: "0"},
		{name: "negative", amount: "-25.00"},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			txRepo := NewMockTransactionRepository()
			userRepo := NewMockUserRepository()
			seedUser(userRepo)
			gw := NewMockGateway()

			svc := newPaymentService(txRepo, NewMockListingRepository(), userRepo, gw, nil)

			_, err := svc.Initialize(context.Background(), service.InitializePaymentRequest{
				UserID: "user-1",
				Amount: decimal.RequireFromString(tc.amount),
			})
			if !errors.Is(err, service.ErrInvalidAmount) {
				t.Fatalf("expected ErrInvalidAmount, got: %v", err)
			}

			if txRepo.Count() != 0 {
				t.Errorf("expected no transaction to be created, got %d", txRepo.Count())
			}
			if gw.InitializeCallCount != 0 {
				t.Error("gateway must not be called for an invalid amount")
			}
		})
	}
}

func TestInitialize_UnknownProperty_Rejected(t *testing.T) {
	t.Parallel()

	txRepo := NewMockTransactionRepository()
	userRepo := NewMockUserRepository()
	seedUser(userRepo)

	svc := newPaymentService(txRepo, NewMockListingRepository(), userRepo, NewMockGateway(), nil)

	_, err := svc.Initialize(context.Background(), service.InitializePaymentRequest{
		UserID:     "user-1",
		Amount:     decimal.RequireFromString("500.00"),
		PropertyID: "does-not-exist",
	})
	if !errors.Is(err, service.ErrInvalidProperty) {
		t.Fatalf("expected ErrInvalidProperty, got: %v", err)
	}
	if txRepo.Count() != 0 {
		t.Error("expected no transaction for invalid property")
	}
}

func TestInitialize_RoomFromDifferentProperty_Rejected(t *testing.T) {
	t.Parallel()

	txRepo := NewMockTransactionRepository()
	userRepo := NewMockUserRepository()
	seedUser(userRepo)

	listingRepo := NewMockListingRepository()
	listingRepo.AddProperty(&domain.Property{ID: "prop-1", Title: "Sunrise Court"})
	listingRepo.AddProperty(&domain.Property{ID: "prop-2", Title: "Palm Villas"})
	listingRepo.AddRoom(&domain.Room{ID: "room-9", PropertyID: "prop-2", RoomNumber: "9"})

	svc := newPaymentService(txRepo, listingRepo, userRepo, NewMockGateway(), nil)

	_, err := svc.Initialize(context.Background(), service.InitializePaymentRequest{
		UserID:     "user-1",
		Amount:     decimal.RequireFromString("500.00"),
		PropertyID: "prop-1",
		RoomID:     "room-9",
	})
	if !errors.Is(err, service.ErrRoomPropertyMismatch) {
		t.Fatalf("expected ErrRoomPropertyMismatch, got: %v", err)
	}
	if txRepo.Count() != 0 {
		t.Error("expected no transaction for mismatched room/property")
	}
}

func TestInitialize_GatewayFailure_MarksTransactionFailed(t *testing.T) {
	t.Parallel()

	txRepo := NewMockTransactionRepository()
	userRepo := NewMockUserRepository()
	seedUser(userRepo)

	gw := NewMockGateway()
	gw.InitializeError = errors.New("connection refused")

	svc := newPaymentService(txRepo, NewMockListingRepository(), userRepo, gw, nil)

	_, err := svc.Initialize(context.Background(), service.InitializePaymentRequest{
		UserID: "user-1",
		Amount: decimal.RequireFromString("750.00"),
	})
	if !errors.Is(err, service.ErrGatewayUnavailable) {
		t.Fatalf("expected ErrGatewayUnavailable, got: %v", err)
	}

	// The ledger entry must not be left pending indefinitely.
	if txRepo.Count() != 1 {
		t.Fatalf("expected the failed transaction to remain, got %d", txRepo.Count())
	}
	var failed int
	for _, tx := range allTransactions(txRepo) {
		if tx.Status == domain.TransactionFailed {
			failed++
			if tx.CompletedAt == nil {
				t.Error("failed transaction must have completed_at set")
			}
		}
	}
	if failed != 1 {
		t.Errorf("expected one failed transaction, got %d", failed)
	}
}

func TestInitialize_UniqueReferencesAcrossCalls(t *testing.T) {
	t.Parallel()

	txRepo := NewMockTransactionRepository()
	userRepo := NewMockUserRepository()
	seedUser(userRepo)

	svc := newPaymentService(txRepo, NewMockListingRepository(), userRepo, NewMockGateway(), nil)

	seen := make(map[string]bool)
	for i := 0; i < 20; i++ {
		resp, err := svc.Initialize(context.Background(), service.InitializePaymentRequest{
			UserID: "user-1",
			Amount: decimal.RequireFromString("10.00"),
		})
		if err != nil {
			t.Fatalf("expected no error, got: %v", err)
		}
		if seen[resp.Reference] {
			t.Fatalf("duplicate reference generated: %s", resp.Reference)
		}
		seen[resp.Reference] = true
	}
}

func allTransactions(repo *MockTransactionRepository) []*domain.Transaction {
	list, _ := repo.ListByUser(context.Background(), "user-1")
	return list
}
