// Package storage defines the persistence ports for transactions and
// categories. Backends live in the postgres, sqlite and memory subpackages.
package storage

import (
	"context"
	"strings"
	"time"

	"fintrack/internal/core"
)

// TransactionFilter selects transactions. Zero values mean "no constraint".
// From and To are inclusive.
type TransactionFilter struct {
	UserID     int64
	Type       core.TransactionType
	CategoryID *int64
	From       *time.Time
	To         *time.Time
	Search     string

	// Limit of 0 means unbounded
	Limit  int
	Offset int
}

// Matches reports whether tx satisfies every constraint except pagination
func (f TransactionFilter) Matches(tx core.Transaction) bool {
	if f.UserID != 0 && tx.UserID != f.UserID {
		return false
	}
	if f.Type != "" && tx.Type != f.Type {
		return false
	}
	if f.CategoryID != nil && (tx.CategoryID == nil || *tx.CategoryID != *f.CategoryID) {
		return false
	}
	if f.From != nil && tx.Date.Before(*f.From) {
		return false
	}
	if f.To != nil && tx.Date.After(*f.To) {
		return false
	}
	if f.Search != "" && !strings.Contains(strings.ToLower(tx.Note), strings.ToLower(f.Search)) {
		return false
	}
	return true
}

type TransactionStore interface {
	// ListTransactions returns matching transactions ordered by date desc,
	// then id desc, with the category reference embedded when present.
	ListTransactions(ctx context.Context, f TransactionFilter) ([]core.Transaction, error)
	CountTransactions(ctx context.Context, f TransactionFilter) (int, error)
	GetTransaction(ctx context.Context, id int64) (core.Transaction, error)
	CreateTransaction(ctx context.Context, tx core.Transaction) (core.Transaction, error)
	UpdateTransaction(ctx context.Context, tx core.Transaction) (core.Transaction, error)
	DeleteTransaction(ctx context.Context, id int64) error
}

type CategoryStore interface {
	ListCategories(ctx context.Context) ([]core.Category, error)
	// CategoriesByIDs returns the categories that exist among ids; missing ids are skipped
	CategoriesByIDs(ctx context.Context, ids []int64) ([]core.Category, error)
	GetCategory(ctx context.Context, id int64) (core.Category, error)
	// FindCategoryByName matches case-insensitively
	FindCategoryByName(ctx context.Context, name string) (core.Category, error)
	CreateCategory(ctx context.Context, c core.Category) (core.Category, error)
	UpdateCategory(ctx context.Context, c core.Category) (core.Category, error)
	DeleteCategory(ctx context.Context, id int64) error
	// CountCategoryUsage counts transactions of any user referencing the category
	CountCategoryUsage(ctx context.Context, id int64) (int, error)
	// CategoryUsage lists every category with userID's expense totals
	CategoryUsage(ctx context.Context, userID int64) ([]core.CategoryUsage, error)
}

// Store is a complete backend
type Store interface {
	TransactionStore
	CategoryStore
	Ping(ctx context.Context) error
	Close() error
}
