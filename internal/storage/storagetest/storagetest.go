// Package storagetest holds the behavior every storage.Store backend must share.
package storagetest

import (
	"context"
	"errors"
	"testing"
	"time"

	"fintrack/internal/core"
	"fintrack/internal/storage"
)

// Run exercises a fresh store produced by newStore for each subtest
func Run(t *testing.T, newStore func(t *testing.T) storage.Store) {
	t.Helper()

	t.Run("categories", func(t *testing.T) { testCategories(t, newStore(t)) })
	t.Run("transactions", func(t *testing.T) { testTransactions(t, newStore(t)) })
	t.Run("filters", func(t *testing.T) { testFilters(t, newStore(t)) })
	t.Run("category guard", func(t *testing.T) { testCategoryGuard(t, newStore(t)) })
	t.Run("category usage", func(t *testing.T) { testCategoryUsage(t, newStore(t)) })
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 12, 0, 0, 0, time.UTC)
}

func mustCategory(t *testing.T, s storage.Store, name string, budget int64) core.Category {
	t.Helper()
	c, err := s.CreateCategory(context.Background(), core.Category{Name: name, Budget: core.Money{Cents: budget}})
	if err != nil {
		t.Fatalf("CreateCategory(%q) error = %v", name, err)
	}
	return c
}

func mustTransaction(t *testing.T, s storage.Store, tx core.Transaction) core.Transaction {
	t.Helper()
	created, err := s.CreateTransaction(context.Background(), tx)
	if err != nil {
		t.Fatalf("CreateTransaction() error = %v", err)
	}
	return created
}

func testCategories(t *testing.T, s storage.Store) {
	ctx := context.Background()

	food := mustCategory(t, s, "Food", 50000)
	if food.ID == 0 || food.CreatedAt.IsZero() {
		t.Fatalf("CreateCategory() = %+v, want id and timestamps", food)
	}
	if food.Budget.Cents != 50000 {
		t.Errorf("Budget = %d, want 50000", food.Budget.Cents)
	}

	if _, err := s.CreateCategory(ctx, core.Category{Name: "  FOOD "}); !errors.Is(err, core.ErrConflict) {
		t.Errorf("duplicate name error = %v, want ErrConflict", err)
	}

	found, err := s.FindCategoryByName(ctx, "fOoD")
	if err != nil || found.ID != food.ID {
		t.Errorf("FindCategoryByName() = %+v, %v; want %d", found, err, food.ID)
	}
	if _, err := s.FindCategoryByName(ctx, "Travel"); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("FindCategoryByName(missing) error = %v, want ErrNotFound", err)
	}

	rent := mustCategory(t, s, "Rent", 0)
	if _, err := s.UpdateCategory(ctx, core.Category{ID: rent.ID, Name: "food"}); !errors.Is(err, core.ErrConflict) {
		t.Errorf("rename onto existing name error = %v, want ErrConflict", err)
	}
	updated, err := s.UpdateCategory(ctx, core.Category{ID: rent.ID, Name: "Housing", Budget: core.Money{Cents: 120000}})
	if err != nil {
		t.Fatalf("UpdateCategory() error = %v", err)
	}
	if updated.Name != "Housing" || updated.Budget.Cents != 120000 {
		t.Errorf("UpdateCategory() = %+v", updated)
	}
	if _, err := s.UpdateCategory(ctx, core.Category{ID: 9999, Name: "Ghost"}); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("UpdateCategory(missing) error = %v, want ErrNotFound", err)
	}

	all, err := s.ListCategories(ctx)
	if err != nil {
		t.Fatalf("ListCategories() error = %v", err)
	}
	if len(all) != 2 || all[0].Name != "Food" || all[1].Name != "Housing" {
		t.Errorf("ListCategories() = %+v, want Food, Housing", all)
	}

	byIDs, err := s.CategoriesByIDs(ctx, []int64{updated.ID, 9999, food.ID})
	if err != nil {
		t.Fatalf("CategoriesByIDs() error = %v", err)
	}
	if len(byIDs) != 2 {
		t.Errorf("CategoriesByIDs() returned %d categories, want 2", len(byIDs))
	}
	if empty, err := s.CategoriesByIDs(ctx, nil); err != nil || len(empty) != 0 {
		t.Errorf("CategoriesByIDs(nil) = %v, %v", empty, err)
	}

	if _, err := s.GetCategory(ctx, 9999); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("GetCategory(missing) error = %v, want ErrNotFound", err)
	}
	if err := s.DeleteCategory(ctx, food.ID); err != nil {
		t.Errorf("DeleteCategory() error = %v", err)
	}
	if err := s.DeleteCategory(ctx, food.ID); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("second DeleteCategory() error = %v, want ErrNotFound", err)
	}
}

func testTransactions(t *testing.T, s storage.Store) {
	ctx := context.Background()
	food := mustCategory(t, s, "Food", 0)

	if _, err := s.CreateTransaction(ctx, core.Transaction{
		Amount: core.Money{Cents: 100}, Type: core.Expense, Date: day(2025, 1, 1), UserID: 1,
		CategoryID: ptr(9999),
	}); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("CreateTransaction(unknown category) error = %v, want ErrNotFound", err)
	}

	created := mustTransaction(t, s, core.Transaction{
		Amount:     core.Money{Cents: 15050},
		Type:       core.Expense,
		CategoryID: &food.ID,
		Note:       "groceries",
		Date:       day(2025, 1, 10),
		UserID:     1,
	})
	if created.ID == 0 {
		t.Fatal("CreateTransaction() returned no id")
	}
	if created.Category == nil || created.Category.Name != "Food" {
		t.Errorf("created.Category = %+v, want embedded Food", created.Category)
	}

	got, err := s.GetTransaction(ctx, created.ID)
	if err != nil {
		t.Fatalf("GetTransaction() error = %v", err)
	}
	if got.Amount.Cents != 15050 || !got.Date.Equal(day(2025, 1, 10)) || got.Note != "groceries" {
		t.Errorf("GetTransaction() = %+v", got)
	}

	got.Amount = core.Money{Cents: 20000}
	got.Type = core.Income
	got.CategoryID = nil
	got.Note = "refund"
	updated, err := s.UpdateTransaction(ctx, got)
	if err != nil {
		t.Fatalf("UpdateTransaction() error = %v", err)
	}
	if updated.Amount.Cents != 20000 || updated.Type != core.Income || updated.CategoryID != nil || updated.Category != nil {
		t.Errorf("UpdateTransaction() = %+v", updated)
	}

	if _, err := s.UpdateTransaction(ctx, core.Transaction{ID: 9999, Amount: core.Money{Cents: 1}, Type: core.Income, Date: day(2025, 1, 1)}); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("UpdateTransaction(missing) error = %v, want ErrNotFound", err)
	}

	if err := s.DeleteTransaction(ctx, created.ID); err != nil {
		t.Fatalf("DeleteTransaction() error = %v", err)
	}
	if _, err := s.GetTransaction(ctx, created.ID); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("GetTransaction(deleted) error = %v, want ErrNotFound", err)
	}
	if err := s.DeleteTransaction(ctx, created.ID); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("DeleteTransaction(deleted) error = %v, want ErrNotFound", err)
	}
}

func testFilters(t *testing.T, s storage.Store) {
	ctx := context.Background()
	food := mustCategory(t, s, "Food", 0)

	jan1 := mustTransaction(t, s, core.Transaction{Amount: core.Money{Cents: 200000}, Type: core.Income, Date: day(2025, 1, 1), UserID: 1, Note: "Salary"})
	jan15 := mustTransaction(t, s, core.Transaction{Amount: core.Money{Cents: 1000}, Type: core.Expense, CategoryID: &food.ID, Date: day(2025, 1, 15), UserID: 1, Note: "Lunch"})
	jan31 := mustTransaction(t, s, core.Transaction{Amount: core.Money{Cents: 2000}, Type: core.Expense, CategoryID: &food.ID, Date: day(2025, 1, 31), UserID: 1, Note: "dinner"})
	mustTransaction(t, s, core.Transaction{Amount: core.Money{Cents: 999}, Type: core.Expense, Date: day(2025, 1, 20), UserID: 2, Note: "other user"})

	ids := func(txs []core.Transaction) []int64 {
		out := make([]int64, len(txs))
		for i, tx := range txs {
			out[i] = tx.ID
		}
		return out
	}

	from := day(2025, 1, 1)
	to := day(2025, 1, 31)
	tests := []struct {
		name   string
		filter storage.TransactionFilter
		want   []int64
	}{
		{"user scope, newest first", storage.TransactionFilter{UserID: 1}, []int64{jan31.ID, jan15.ID, jan1.ID}},
		{"type", storage.TransactionFilter{UserID: 1, Type: core.Expense}, []int64{jan31.ID, jan15.ID}},
		{"category", storage.TransactionFilter{UserID: 1, CategoryID: &food.ID}, []int64{jan31.ID, jan15.ID}},
		{"inclusive bounds", storage.TransactionFilter{UserID: 1, From: &from, To: &to}, []int64{jan31.ID, jan15.ID, jan1.ID}},
		{"from only", storage.TransactionFilter{UserID: 1, From: ptrTime(day(2025, 1, 15))}, []int64{jan31.ID, jan15.ID}},
		{"to only", storage.TransactionFilter{UserID: 1, To: ptrTime(day(2025, 1, 15))}, []int64{jan15.ID, jan1.ID}},
		{"search", storage.TransactionFilter{UserID: 1, Search: "DIN"}, []int64{jan31.ID}},
		{"limit offset", storage.TransactionFilter{UserID: 1, Limit: 1, Offset: 1}, []int64{jan15.ID}},
		{"offset past end", storage.TransactionFilter{UserID: 1, Limit: 5, Offset: 10}, []int64{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			txs, err := s.ListTransactions(ctx, tt.filter)
			if err != nil {
				t.Fatalf("ListTransactions() error = %v", err)
			}
			got := ids(txs)
			if len(got) != len(tt.want) {
				t.Fatalf("ListTransactions() = %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Fatalf("ListTransactions() = %v, want %v", got, tt.want)
				}
			}
		})
	}

	n, err := s.CountTransactions(ctx, storage.TransactionFilter{UserID: 1, Type: core.Expense, Limit: 1})
	if err != nil || n != 2 {
		t.Errorf("CountTransactions() = %d, %v; want 2 ignoring pagination", n, err)
	}
}

func testCategoryGuard(t *testing.T, s storage.Store) {
	ctx := context.Background()
	food := mustCategory(t, s, "Food", 0)
	tx := mustTransaction(t, s, core.Transaction{Amount: core.Money{Cents: 100}, Type: core.Expense, CategoryID: &food.ID, Date: day(2025, 2, 1), UserID: 1})

	n, err := s.CountCategoryUsage(ctx, food.ID)
	if err != nil || n != 1 {
		t.Fatalf("CountCategoryUsage() = %d, %v; want 1", n, err)
	}
	if err := s.DeleteCategory(ctx, food.ID); !errors.Is(err, core.ErrConflict) {
		t.Errorf("DeleteCategory(in use) error = %v, want ErrConflict", err)
	}
	if err := s.DeleteTransaction(ctx, tx.ID); err != nil {
		t.Fatalf("DeleteTransaction() error = %v", err)
	}
	if err := s.DeleteCategory(ctx, food.ID); err != nil {
		t.Errorf("DeleteCategory(unused) error = %v", err)
	}
}

func testCategoryUsage(t *testing.T, s storage.Store) {
	ctx := context.Background()
	food := mustCategory(t, s, "Food", 0)
	rent := mustCategory(t, s, "Rent", 0)

	for _, cents := range []int64{10, 20} {
		mustTransaction(t, s, core.Transaction{Amount: core.Money{Cents: cents}, Type: core.Expense, CategoryID: &food.ID, Date: day(2025, 2, 1), UserID: 1})
	}
	mustTransaction(t, s, core.Transaction{Amount: core.Money{Cents: 5000}, Type: core.Income, CategoryID: &food.ID, Date: day(2025, 2, 1), UserID: 1})
	mustTransaction(t, s, core.Transaction{Amount: core.Money{Cents: 7000}, Type: core.Expense, CategoryID: &food.ID, Date: day(2025, 2, 1), UserID: 2})

	usage, err := s.CategoryUsage(ctx, 1)
	if err != nil {
		t.Fatalf("CategoryUsage() error = %v", err)
	}
	if len(usage) != 2 {
		t.Fatalf("CategoryUsage() returned %d rows, want 2", len(usage))
	}
	if usage[0].ID != food.ID || usage[0].TotalAmount.Cents != 30 || usage[0].TransactionCount != 2 {
		t.Errorf("food usage = %+v, want 0.30 over 2 expenses", usage[0])
	}
	if usage[1].ID != rent.ID || !usage[1].TotalAmount.IsZero() || usage[1].TransactionCount != 0 {
		t.Errorf("rent usage = %+v, want zero", usage[1])
	}
}

func ptr(v int64) *int64 { return &v }

func ptrTime(t time.Time) *time.Time { return &t }
