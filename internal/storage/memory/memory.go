// Package memory is an in-process storage.Store used by tests and demos.
// It enforces the same constraints as the SQL schema.
package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"fintrack/internal/core"
	"fintrack/internal/storage"
)

type Store struct {
	mu           sync.RWMutex
	transactions map[int64]core.Transaction
	categories   map[int64]core.Category
	nextTxID     int64
	nextCatID    int64
	now          func() time.Time
}

func New() *Store {
	return &Store{
		transactions: make(map[int64]core.Transaction),
		categories:   make(map[int64]core.Category),
		now:          time.Now,
	}
}

var _ storage.Store = (*Store)(nil)

func (s *Store) Ping(ctx context.Context) error { return ctx.Err() }

func (s *Store) Close() error { return nil }

func (s *Store) withCategory(tx core.Transaction) core.Transaction {
	tx.Category = nil
	if tx.CategoryID != nil {
		if c, ok := s.categories[*tx.CategoryID]; ok {
			ref := c.Ref()
			tx.Category = &ref
		}
	}
	return tx
}

func (s *Store) filtered(f storage.TransactionFilter) []core.Transaction {
	out := make([]core.Transaction, 0)
	for _, tx := range s.transactions {
		if f.Matches(tx) {
			out = append(out, s.withCategory(tx))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.After(out[j].Date)
		}
		return out[i].ID > out[j].ID
	})
	return out
}

func (s *Store) ListTransactions(ctx context.Context, f storage.TransactionFilter) ([]core.Transaction, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := s.filtered(f)
	if f.Offset > 0 {
		if f.Offset >= len(out) {
			return []core.Transaction{}, nil
		}
		out = out[f.Offset:]
	}
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}

func (s *Store) CountTransactions(ctx context.Context, f storage.TransactionFilter) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := 0
	for _, tx := range s.transactions {
		if f.Matches(tx) {
			n++
		}
	}
	return n, nil
}

func (s *Store) GetTransaction(ctx context.Context, id int64) (core.Transaction, error) {
	if err := ctx.Err(); err != nil {
		return core.Transaction{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	tx, ok := s.transactions[id]
	if !ok {
		return core.Transaction{}, fmt.Errorf("transaction %d: %w", id, core.ErrNotFound)
	}
	return s.withCategory(tx), nil
}

func (s *Store) checkCategory(id *int64) error {
	if id == nil {
		return nil
	}
	if _, ok := s.categories[*id]; !ok {
		return core.ErrCategoryNotFound
	}
	return nil
}

func (s *Store) CreateTransaction(ctx context.Context, tx core.Transaction) (core.Transaction, error) {
	if err := ctx.Err(); err != nil {
		return core.Transaction{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkCategory(tx.CategoryID); err != nil {
		return core.Transaction{}, err
	}
	s.nextTxID++
	now := s.now().UTC()
	tx.ID = s.nextTxID
	tx.Date = tx.Date.UTC()
	tx.CreatedAt = now
	tx.UpdatedAt = now
	tx.Category = nil
	s.transactions[tx.ID] = tx
	return s.withCategory(tx), nil
}

func (s *Store) UpdateTransaction(ctx context.Context, tx core.Transaction) (core.Transaction, error) {
	if err := ctx.Err(); err != nil {
		return core.Transaction{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.transactions[tx.ID]
	if !ok {
		return core.Transaction{}, fmt.Errorf("transaction %d: %w", tx.ID, core.ErrNotFound)
	}
	if err := s.checkCategory(tx.CategoryID); err != nil {
		return core.Transaction{}, err
	}
	existing.Amount = tx.Amount
	existing.Type = tx.Type
	existing.CategoryID = tx.CategoryID
	existing.Note = tx.Note
	existing.Date = tx.Date.UTC()
	existing.UpdatedAt = s.now().UTC()
	s.transactions[tx.ID] = existing
	return s.withCategory(existing), nil
}

func (s *Store) DeleteTransaction(ctx context.Context, id int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.transactions[id]; !ok {
		return fmt.Errorf("transaction %d: %w", id, core.ErrNotFound)
	}
	delete(s.transactions, id)
	return nil
}

func (s *Store) sortedCategories() []core.Category {
	out := make([]core.Category, 0, len(s.categories))
	for _, c := range s.categories {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func (s *Store) ListCategories(ctx context.Context) ([]core.Category, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sortedCategories(), nil
}

func (s *Store) CategoriesByIDs(ctx context.Context, ids []int64) ([]core.Category, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]core.Category, 0, len(ids))
	seen := make(map[int64]bool, len(ids))
	for _, id := range ids {
		if c, ok := s.categories[id]; ok && !seen[id] {
			seen[id] = true
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) GetCategory(ctx context.Context, id int64) (core.Category, error) {
	if err := ctx.Err(); err != nil {
		return core.Category{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.categories[id]
	if !ok {
		return core.Category{}, core.ErrCategoryNotFound
	}
	return c, nil
}

func (s *Store) findByName(name string) (core.Category, bool) {
	name = strings.TrimSpace(name)
	for _, c := range s.categories {
		if strings.EqualFold(c.Name, name) {
			return c, true
		}
	}
	return core.Category{}, false
}

func (s *Store) FindCategoryByName(ctx context.Context, name string) (core.Category, error) {
	if err := ctx.Err(); err != nil {
		return core.Category{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.findByName(name)
	if !ok {
		return core.Category{}, core.ErrCategoryNotFound
	}
	return c, nil
}

func (s *Store) CreateCategory(ctx context.Context, c core.Category) (core.Category, error) {
	if err := ctx.Err(); err != nil {
		return core.Category{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.findByName(c.Name); exists {
		return core.Category{}, core.ErrCategoryExists
	}
	s.nextCatID++
	now := s.now().UTC()
	c.ID = s.nextCatID
	c.Name = strings.TrimSpace(c.Name)
	c.CreatedAt = now
	c.UpdatedAt = now
	s.categories[c.ID] = c
	return c, nil
}

func (s *Store) UpdateCategory(ctx context.Context, c core.Category) (core.Category, error) {
	if err := ctx.Err(); err != nil {
		return core.Category{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.categories[c.ID]
	if !ok {
		return core.Category{}, core.ErrCategoryNotFound
	}
	if other, exists := s.findByName(c.Name); exists && other.ID != c.ID {
		return core.Category{}, core.ErrCategoryExists
	}
	existing.Name = strings.TrimSpace(c.Name)
	existing.Budget = c.Budget
	existing.UpdatedAt = s.now().UTC()
	s.categories[c.ID] = existing
	return existing, nil
}

func (s *Store) DeleteCategory(ctx context.Context, id int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.categories[id]; !ok {
		return core.ErrCategoryNotFound
	}
	for _, tx := range s.transactions {
		if tx.CategoryID != nil && *tx.CategoryID == id {
			return fmt.Errorf("%w: category %d is referenced by transactions", core.ErrConflict, id)
		}
	}
	delete(s.categories, id)
	return nil
}

func (s *Store) CountCategoryUsage(ctx context.Context, id int64) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := 0
	for _, tx := range s.transactions {
		if tx.CategoryID != nil && *tx.CategoryID == id {
			n++
		}
	}
	return n, nil
}

func (s *Store) CategoryUsage(ctx context.Context, userID int64) ([]core.CategoryUsage, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	categories := s.sortedCategories()
	usage := make([]core.CategoryUsage, len(categories))
	pos := make(map[int64]int, len(categories))
	for i, c := range categories {
		usage[i] = core.CategoryUsage{Category: c}
		pos[c.ID] = i
	}
	for _, tx := range s.transactions {
		if tx.UserID != userID || tx.Type != core.Expense || tx.CategoryID == nil {
			continue
		}
		if i, ok := pos[*tx.CategoryID]; ok {
			usage[i].TotalAmount = usage[i].TotalAmount.Add(tx.Amount)
			usage[i].TransactionCount++
		}
	}
	return usage, nil
}
