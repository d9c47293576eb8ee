package domain

import (
	"strings"
	"testing"

	"github.com/shopspring/decimal"
)

func TestCanTransition(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		from TransactionStatus
		to   TransactionStatus
		want bool
	}{
		{TransactionPending, TransactionSuccessful, true},
		{TransactionPending, TransactionFailed, true},
		{TransactionPending, TransactionAbandoned, true},
		{TransactionAbandoned, TransactionSuccessful, true},
		{TransactionAbandoned, TransactionFailed, true},
		{TransactionAbandoned, TransactionPending, false},
		{TransactionSuccessful, TransactionFailed, false},
		{TransactionSuccessful, TransactionPending, false},
		{TransactionFailed, TransactionSuccessful, false},
		{TransactionFailed, TransactionAbandoned, false},
	}

	for _, tc := range testCases {
		if got := CanTransition(tc.from, tc.to); got != tc.want {
			t.Errorf("CanTransition(%s, %s) = %v, want %v", tc.from, tc.to, got, tc.want)
		}
	}
}

func TestIsTerminal(t *testing.T) {
	t.Parallel()

	if !TransactionSuccessful.IsTerminal() || !TransactionFailed.IsTerminal() {
		t.Error("successful and failed must be terminal")
	}
	if TransactionPending.IsTerminal() || TransactionAbandoned.IsTerminal() {
		t.Error("pending and abandoned must not be terminal")
	}
}

func TestAmountMinorUnits(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		amount string
		want   int64
	}{
		{amount: "1000.00", want: 100000},
		{amount: "0.50", want: 50},
		{amount: "12500", want: 1250000},
		{amount: "99.99", want: 9999},
	}

	for _, tc := range testCases {
		tx := &Transaction{Amount: decimal.RequireFromString(tc.amount)}
		if got := tx.AmountMinorUnits(); got != tc.want {
			t.Errorf("AmountMinorUnits(%s) = %d, want %d", tc.amount, got, tc.want)
		}
	}
}

func TestNewReference(t *testing.T) {
	t.Parallel()

	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		ref := NewReference()
		if !strings.HasPrefix(ref, "HLT-") {
			t.Fatalf("reference %q missing prefix", ref)
		}
		if seen[ref] {
			t.Fatalf("duplicate reference %q", ref)
		}
		seen[ref] = true
	}
}
