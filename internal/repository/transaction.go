package repository

import (
	"context"
	"encoding/json"
	"time"

	"homelet/internal/domain"
)

// TransactionRepository defines the persistence operations for the payment
// ledger. Transactions are never deleted.
type TransactionRepository interface {
	// Create persists a new transaction in pending state.
	Create(ctx context.Context, tx *domain.Transaction) error

	// GetByReference retrieves a transaction by its unique reference.
	GetByReference(ctx context.Context, reference string) (*domain.Transaction, error)

	// GetByReferenceForUser retrieves a transaction scoped to its owner.
	GetByReferenceForUser(ctx context.Context, reference, userID string) (*domain.Transaction, error)

	// ListByUser retrieves a user's transactions, newest first.
	ListByUser(ctx context.Context, userID string) ([]*domain.Transaction, error)

	// UpdateProviderData stores the latest provider response snapshot.
	UpdateProviderData(ctx context.Context, id string, data json.RawMessage) error

	// MarkCompleted performs the single terminal transition as an atomic
	// conditional update. It returns false when the row was already in a
	// terminal state, which makes duplicate webhook deliveries no-ops.
	MarkCompleted(ctx context.Context, reference string, status domain.TransactionStatus, providerData json.RawMessage) (bool, error)

	// MarkAbandoned moves a still-pending transaction to abandoned.
	// Abandoned rows remain resolvable by a late webhook or verify call.
	MarkAbandoned(ctx context.Context, reference string) (bool, error)

	// ListStalePending retrieves pending transactions created before the
	// cutoff, oldest first, for verify-fallback reconciliation.
	ListStalePending(ctx context.Context, cutoff time.Time, limit int) ([]*domain.Transaction, error)
}
