package tests

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"homelet/internal/domain"
	"homelet/internal/gateway"
	"homelet/internal/service"
)

func newSweeper(payments *service.PaymentService, txRepo *MockTransactionRepository, locks *MockLockStore) *service.ReconcileSweeper {
	return service.NewReconcileSweeper(
		payments, txRepo, locks,
		5*time.Minute,  // interval
		15*time.Minute, // window
		24*time.Hour,   // abandonAge
		100,            // batchSize
	)
}

func seedStalePending(txRepo *MockTransactionRepository, reference string, age time.Duration) *domain.Transaction {
	tx := seedPendingTransaction(txRepo, reference, "1000.00")
	tx.CreatedAt = time.Now().Add(-age)
	return tx
}

// ──────────────────────────────────────────────
// 4. VERIFY-FALLBACK SWEEPER
// ──────────────────────────────────────────────

func TestSweep_StalePendingVerifiedSuccessful(t *testing.T) {
	t.Parallel()

	txRepo := NewMockTransactionRepository()
	userRepo := NewMockUserRepository()
	seedUser(userRepo)
	seedStalePending(txRepo, "HLT-STALE", time.Hour)

	gw := NewMockGateway()
	gw.VerifyResult = &gateway.VerifyResult{
		Success: true,
		Raw:     json.RawMessage(`{"data":{"status":"success"}}`),
	}

	publisher := NewMockPublisher()
	notification := service.NewNotificationService(publisher, NewMockEmailQueue(), userRepo)
	payments := newPaymentService(txRepo, NewMockListingRepository(), userRepo, gw, notification)

	sweeper := newSweeper(payments, txRepo, NewMockLockStore())
	sweeper.Sweep(context.Background())

	if got := txRepo.GetTransaction("HLT-STALE").Status; got != domain.TransactionSuccessful {
		t.Fatalf("expected sweep to settle as successful, got %s", got)
	}
	events := publisher.Events()
	if len(events) != 1 || events[0].Event != service.EventPaymentSuccessful {
		t.Fatalf("expected one payment_successful event, got %+v", events)
	}
}

func TestSweep_ProviderStillInFlight_LeavesPending(t *testing.T) {
	t.Parallel()

	txRepo := NewMockTransactionRepository()
	userRepo := NewMockUserRepository()
	seedUser(userRepo)
	seedStalePending(txRepo, "HLT-INFLIGHT", time.Hour)

	// The default mock verify result reports an ongoing checkout.
	gw := NewMockGateway()
	payments := newPaymentService(txRepo, NewMockListingRepository(), userRepo, gw, nil)

	sweeper := newSweeper(payments, txRepo, NewMockLockStore())
	sweeper.Sweep(context.Background())

	if gw.VerifyCallCount != 1 {
		t.Fatalf("expected one verify call, got %d", gw.VerifyCallCount)
	}
	if got := txRepo.GetTransaction("HLT-INFLIGHT").Status; got != domain.TransactionPending {
		t.Fatalf("in-flight checkout must stay pending, got %s", got)
	}
}

func TestSweep_DefinitiveFailure_MarksFailed(t *testing.T) {
	t.Parallel()

	txRepo := NewMockTransactionRepository()
	userRepo := NewMockUserRepository()
	seedUser(userRepo)
	seedStalePending(txRepo, "HLT-DEAD", time.Hour)

	gw := NewMockGateway()
	gw.VerifyResult = &gateway.VerifyResult{
		Success: false,
		Raw:     json.RawMessage(`{"data":{"status":"failed"}}`),
	}

	publisher := NewMockPublisher()
	notification := service.NewNotificationService(publisher, NewMockEmailQueue(), userRepo)
	payments := newPaymentService(txRepo, NewMockListingRepository(), userRepo, gw, notification)

	sweeper := newSweeper(payments, txRepo, NewMockLockStore())
	sweeper.Sweep(context.Background())

	if got := txRepo.GetTransaction("HLT-DEAD").Status; got != domain.TransactionFailed {
		t.Fatalf("expected failed, got %s", got)
	}
	events := publisher.Events()
	if len(events) != 1 || events[0].Event != service.EventPaymentFailed {
		t.Fatalf("expected one payment_failed event, got %+v", events)
	}
}

func TestSweep_PastAbandonAge_MarksAbandonedWithoutVerify(t *testing.T) {
	t.Parallel()

	txRepo := NewMockTransactionRepository()
	userRepo := NewMockUserRepository()
	seedUser(userRepo)
	seedStalePending(txRepo, "HLT-OLD", 48*time.Hour)

	gw := NewMockGateway()
	payments := newPaymentService(txRepo, NewMockListingRepository(), userRepo, gw, nil)

	sweeper := newSweeper(payments, txRepo, NewMockLockStore())
	sweeper.Sweep(context.Background())

	tx := txRepo.GetTransaction("HLT-OLD")
	if tx.Status != domain.TransactionAbandoned {
		t.Fatalf("expected abandoned, got %s", tx.Status)
	}
	if tx.CompletedAt != nil {
		t.Error("abandoned is not terminal; completed_at must stay unset")
	}
	if gw.VerifyCallCount != 0 {
		t.Errorf("abandoning must not call the provider, got %d verify calls", gw.VerifyCallCount)
	}
}

func TestSweep_TransportError_RetriedNextSweep(t *testing.T) {
	t.Parallel()

	txRepo := NewMockTransactionRepository()
	userRepo := NewMockUserRepository()
	seedUser(userRepo)
	seedStalePending(txRepo, "HLT-NET", time.Hour)

	gw := NewMockGateway()
	gw.VerifyError = errors.New("connection reset")
	payments := newPaymentService(txRepo, NewMockListingRepository(), userRepo, gw, nil)

	sweeper := newSweeper(payments, txRepo, NewMockLockStore())
	sweeper.Sweep(context.Background())

	if got := txRepo.GetTransaction("HLT-NET").Status; got != domain.TransactionPending {
		t.Fatalf("transport failure must leave the row pending, got %s", got)
	}
}

func TestSweep_LockHeldElsewhere_SkipsPass(t *testing.T) {
	t.Parallel()

	txRepo := NewMockTransactionRepository()
	userRepo := NewMockUserRepository()
	seedUser(userRepo)
	seedStalePending(txRepo, "HLT-LOCKED", time.Hour)

	gw := NewMockGateway()
	gw.VerifyResult = &gateway.VerifyResult{
		Success: true,
		Raw:     json.RawMessage(`{"data":{"status":"success"}}`),
	}
	payments := newPaymentService(txRepo, NewMockListingRepository(), userRepo, gw, nil)

	locks := NewMockLockStore()
	locks.SweepLockDenied = true

	sweeper := newSweeper(payments, txRepo, locks)
	sweeper.Sweep(context.Background())

	if gw.VerifyCallCount != 0 {
		t.Errorf("a denied sweep lock must skip the pass, got %d verify calls", gw.VerifyCallCount)
	}
	if got := txRepo.GetTransaction("HLT-LOCKED").Status; got != domain.TransactionPending {
		t.Errorf("skipped pass must not change status, got %s", got)
	}
}

func TestSweep_FreshPendingOutsideWindow_Untouched(t *testing.T) {
	t.Parallel()

	txRepo := NewMockTransactionRepository()
	userRepo := NewMockUserRepository()
	seedUser(userRepo)
	seedStalePending(txRepo, "HLT-FRESH", time.Minute) // well inside the webhook window

	gw := NewMockGateway()
	payments := newPaymentService(txRepo, NewMockListingRepository(), userRepo, gw, nil)

	sweeper := newSweeper(payments, txRepo, NewMockLockStore())
	sweeper.Sweep(context.Background())

	if gw.VerifyCallCount != 0 {
		t.Errorf("fresh transactions must not be verified, got %d calls", gw.VerifyCallCount)
	}
}
