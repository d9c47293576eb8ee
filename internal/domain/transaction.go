package domain

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// TransactionStatus represents the lifecycle state of a payment transaction.
type TransactionStatus string

const (
	TransactionPending    TransactionStatus = "pending"
	TransactionSuccessful TransactionStatus = "successful"
	TransactionFailed     TransactionStatus = "failed"
	TransactionAbandoned  TransactionStatus = "abandoned"
)

// PaymentMethod identifies how a transaction is paid.
type PaymentMethod string

const (
	MethodPaystack     PaymentMethod = "paystack"
	MethodBankTransfer PaymentMethod = "bank_transfer"
	MethodCash         PaymentMethod = "cash"
)

// Transaction is the ledger record of a single payment attempt.
// Rows are never deleted; they form the financial audit trail.
type Transaction struct {
	ID            string
	UserID        string
	Reference     string
	Amount        decimal.Decimal
	Currency      string
	Status        TransactionStatus
	PaymentMethod PaymentMethod
	Metadata      map[string]any
	ProviderData  json.RawMessage
	PropertyID    string
	RoomID        string
	CreatedAt     time.Time
	UpdatedAt     time.Time
	CompletedAt   *time.Time
}

// IsTerminal reports whether no further status transition is permitted.
func (s TransactionStatus) IsTerminal() bool {
	return s == TransactionSuccessful || s == TransactionFailed
}

// validTransitions holds the allowed status moves. Terminal states have no
// exits. Abandoned transactions may still be resolved by a late webhook.
var validTransitions = map[TransactionStatus][]TransactionStatus{
	TransactionPending:    {TransactionSuccessful, TransactionFailed, TransactionAbandoned},
	TransactionAbandoned:  {TransactionSuccessful, TransactionFailed},
	TransactionSuccessful: {},
	TransactionFailed:     {},
}

// CanTransition reports whether a status move from -> to is allowed.
func CanTransition(from, to TransactionStatus) bool {
	for _, allowed := range validTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// AmountMinorUnits returns the amount in the provider's smallest currency
// unit (e.g. kobo for NGN).
func (t *Transaction) AmountMinorUnits() int64 {
	return t.Amount.Mul(decimal.NewFromInt(100)).IntPart()
}

// NewReference generates a unique human-readable transaction reference.
// Assigned once at creation, never reassigned.
func NewReference() string {
	buf := make([]byte, 12)
	if _, err := rand.Read(buf); err != nil {
		// crypto/rand never fails on supported platforms; fall back to a
		// timestamp so reference generation cannot panic the request path.
		return "HLT-" + strings.ToUpper(hex.EncodeToString([]byte(time.Now().Format("20060102150405.000"))))
	}
	return "HLT-" + strings.ToUpper(hex.EncodeToString(buf))
}
