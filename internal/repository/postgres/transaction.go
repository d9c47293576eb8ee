package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/lib/pq"

	"homelet/internal/domain"
	"homelet/internal/repository"
)

// TransactionRepository is a PostgreSQL implementation of
// repository.TransactionRepository.
type TransactionRepository struct {
	q Querier
}

// NewTransactionRepository creates a new PostgreSQL transaction repository.
func NewTransactionRepository(db *sql.DB) *TransactionRepository {
	return &TransactionRepository{q: db}
}

// NewTransactionRepositoryWithTx creates a transaction repository using a
// database transaction.
func NewTransactionRepositoryWithTx(tx *sql.Tx) *TransactionRepository {
	return &TransactionRepository{q: tx}
}

const txColumns = `
	id, user_id, reference, amount, currency, status, payment_method,
	metadata, provider_data, property_id, room_id,
	created_at, updated_at, completed_at
`

// Create persists a new transaction. The reference column carries a unique
// constraint; a collision surfaces as ErrDuplicateReference.
func (r *TransactionRepository) Create(ctx context.Context, tx *domain.Transaction) error {
	metadata, err := json.Marshal(tx.Metadata)
	if err != nil {
		return err
	}

	providerData := tx.ProviderData
	if providerData == nil {
		providerData = json.RawMessage("{}")
	}

	query := `
		INSERT INTO transactions (
			id, user_id, reference, amount, currency, status, payment_method,
			metadata, provider_data, property_id, room_id
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`

	_, err = r.q.ExecContext(ctx, query,
		tx.ID,
		tx.UserID,
		tx.Reference,
		tx.Amount,
		tx.Currency,
		tx.Status,
		tx.PaymentMethod,
		metadata,
		[]byte(providerData),
		nullString(tx.PropertyID),
		nullString(tx.RoomID),
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return repository.ErrDuplicateReference
		}
		return err
	}

	return nil
}

// GetByReference retrieves a transaction by its unique reference.
func (r *TransactionRepository) GetByReference(ctx context.Context, reference string) (*domain.Transaction, error) {
	query := `SELECT ` + txColumns + ` FROM transactions WHERE reference = $1`
	return r.scanOne(r.q.QueryRowContext(ctx, query, reference))
}

// GetByReferenceForUser retrieves a transaction scoped to its owner.
func (r *TransactionRepository) GetByReferenceForUser(ctx context.Context, reference, userID string) (*domain.Transaction, error) {
	query := `SELECT ` + txColumns + ` FROM transactions WHERE reference = $1 AND user_id = $2`
	return r.scanOne(r.q.QueryRowContext(ctx, query, reference, userID))
}

// ListByUser retrieves a user's transactions, newest first.
func (r *TransactionRepository) ListByUser(ctx context.Context, userID string) ([]*domain.Transaction, error) {
	query := `SELECT ` + txColumns + ` FROM transactions WHERE user_id = $1 ORDER BY created_at DESC`

	rows, err := r.q.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var transactions []*domain.Transaction
	for rows.Next() {
		tx, err := r.scanRow(rows)
		if err != nil {
			return nil, err
		}
		transactions = append(transactions, tx)
	}
	return transactions, rows.Err()
}

// UpdateProviderData stores the latest provider response snapshot.
func (r *TransactionRepository) UpdateProviderData(ctx context.Context, id string, data json.RawMessage) error {
	query := `UPDATE transactions SET provider_data = $1, updated_at = now() WHERE id = $2`

	result, err := r.q.ExecContext(ctx, query, []byte(data), id)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// MarkCompleted performs the terminal transition as a single conditional
// update. Only pending or abandoned rows can move; a row already in a
// terminal state matches zero rows, so concurrent or replayed webhook
// deliveries cannot transition the same transaction twice.
func (r *TransactionRepository) MarkCompleted(ctx context.Context, reference string, status domain.TransactionStatus, providerData json.RawMessage) (bool, error) {
	if !status.IsTerminal() {
		return false, errors.New("mark completed requires a terminal status")
	}

	query := `
		UPDATE transactions
		SET status = $1,
		    provider_data = COALESCE($2, provider_data),
		    completed_at = now(),
		    updated_at = now()
		WHERE reference = $3 AND status IN ('pending', 'abandoned')
	`

	var data []byte
	if providerData != nil {
		data = []byte(providerData)
	}

	result, err := r.q.ExecContext(ctx, query, status, data, reference)
	if err != nil {
		return false, err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return rowsAffected > 0, nil
}

// MarkAbandoned moves a still-pending transaction to abandoned. No
// completed_at is set; abandoned is not a terminal state.
func (r *TransactionRepository) MarkAbandoned(ctx context.Context, reference string) (bool, error) {
	query := `
		UPDATE transactions
		SET status = 'abandoned', updated_at = now()
		WHERE reference = $1 AND status = 'pending'
	`

	result, err := r.q.ExecContext(ctx, query, reference)
	if err != nil {
		return false, err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return rowsAffected > 0, nil
}

// ListStalePending retrieves pending transactions created before the cutoff,
// oldest first.
func (r *TransactionRepository) ListStalePending(ctx context.Context, cutoff time.Time, limit int) ([]*domain.Transaction, error) {
	query := `
		SELECT ` + txColumns + `
		FROM transactions
		WHERE status = 'pending' AND created_at < $1
		ORDER BY created_at ASC
		LIMIT $2
	`

	rows, err := r.q.QueryContext(ctx, query, cutoff, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var transactions []*domain.Transaction
	for rows.Next() {
		tx, err := r.scanRow(rows)
		if err != nil {
			return nil, err
		}
		transactions = append(transactions, tx)
	}
	return transactions, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (r *TransactionRepository) scanOne(row *sql.Row) (*domain.Transaction, error) {
	tx, err := r.scanRow(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return tx, nil
}

func (r *TransactionRepository) scanRow(row rowScanner) (*domain.Transaction, error) {
	var (
		tx           domain.Transaction
		metadata     []byte
		providerData []byte
		propertyID   sql.NullString
		roomID       sql.NullString
		completedAt  sql.NullTime
	)

	err := row.Scan(
		&tx.ID,
		&tx.UserID,
		&tx.Reference,
		&tx.Amount,
		&tx.Currency,
		&tx.Status,
		&tx.PaymentMethod,
		&metadata,
		&providerData,
		&propertyID,
		&roomID,
		&tx.CreatedAt,
		&tx.UpdatedAt,
		&completedAt,
	)
	if err != nil {
		return nil, err
	}

	if len(metadata) > 0 {
		if err := json.Unmarshal(metadata, &tx.Metadata); err != nil {
			return nil, err
		}
	}
	tx.ProviderData = providerData
	tx.PropertyID = propertyID.String
	tx.RoomID = roomID.String
	if completedAt.Valid {
		t := completedAt.Time
		tx.CompletedAt = &t
	}

	return &tx, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
