package storage

import (
	"testing"
	"time"

	"fintrack/internal/core"
)

func TestTransactionFilter_Matches(t *testing.T) {
	cat := int64(3)
	other := int64(4)
	day := func(d int) time.Time { return time.Date(2025, 3, d, 12, 0, 0, 0, time.UTC) }
	from := day(10)
	to := day(20)

	tx := core.Transaction{
		ID:         1,
		UserID:     7,
		Type:       core.Expense,
		CategoryID: &cat,
		Note:       "Weekly Groceries",
		Date:       day(15),
	}

	tests := []struct {
		name   string
		filter TransactionFilter
		want   bool
	}{
		{"empty filter", TransactionFilter{}, true},
		{"same user", TransactionFilter{UserID: 7}, true},
		{"other user", TransactionFilter{UserID: 8}, false},
		{"type match", TransactionFilter{Type: core.Expense}, true},
		{"type mismatch", TransactionFilter{Type: core.Income}, false},
		{"category match", TransactionFilter{CategoryID: &cat}, true},
		{"category mismatch", TransactionFilter{CategoryID: &other}, false},
		{"inside range", TransactionFilter{From: &from, To: &to}, true},
		{"from only", TransactionFilter{From: &to}, false},
		{"to only", TransactionFilter{To: &from}, false},
		{"search case-insensitive", TransactionFilter{Search: "groceries"}, true},
		{"search miss", TransactionFilter{Search: "rent"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.filter.Matches(tx); got != tt.want {
				t.Errorf("Matches() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestTransactionFilter_BoundsInclusive(t *testing.T) {
	at := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)
	tx := core.Transaction{Date: at}
	f := TransactionFilter{From: &at, To: &at}
	if !f.Matches(tx) {
		t.Error("a transaction exactly on both bounds should match")
	}

	uncategorized := core.Transaction{Date: at}
	cat := int64(1)
	if (TransactionFilter{CategoryID: &cat}).Matches(uncategorized) {
		t.Error("category filter should exclude uncategorized transactions")
	}
}
