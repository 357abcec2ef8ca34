package services

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"fintrack/internal/amqp"
	"fintrack/internal/cache"
	"fintrack/internal/core"
	"fintrack/internal/storage"
	"fintrack/internal/storage/memory"
)

var (
	alice = core.Identity{ID: 1, Role: core.RoleUser, Email: "alice@example.com"}
	bob   = core.Identity{ID: 2, Role: core.RoleUser, Email: "bob@example.com"}
	admin = core.Identity{ID: 99, Role: core.RoleAdmin, Email: "admin@example.com"}

	// fixedNow is mid-June so the trailing six months are 2025-01..2025-06
	fixedNow = time.Date(2025, 6, 15, 10, 0, 0, 0, time.UTC)
)

func money(t *testing.T, s string) core.Money {
	t.Helper()
	m, err := core.ParseMoney(s)
	if err != nil {
		t.Fatalf("ParseMoney(%q) error = %v", s, err)
	}
	return m
}

func newCache() *cache.Cache {
	return cache.New(cache.NewMemoryStore(1000), cache.Options{OpTimeout: time.Second}, nil)
}

// countingStore counts transaction reads so tests can tell hits from computes
type countingStore struct {
	storage.Store
	reads atomic.Int64
}

func (s *countingStore) ListTransactions(ctx context.Context, f storage.TransactionFilter) ([]core.Transaction, error) {
	s.reads.Add(1)
	return s.Store.ListTransactions(ctx, f)
}

// brokenCategories fails category lookups
type brokenCategories struct {
	storage.Store
}

func (brokenCategories) CategoriesByIDs(context.Context, []int64) ([]core.Category, error) {
	return nil, errors.New("categories table unavailable")
}

// brokenCacheStore fails every cache operation
type brokenCacheStore struct{}

var errCacheDown = errors.New("dial tcp: connection refused")

func (brokenCacheStore) Get(context.Context, string) ([]byte, error) { return nil, errCacheDown }
func (brokenCacheStore) Set(context.Context, string, []byte, time.Duration) error {
	return errCacheDown
}
func (brokenCacheStore) Delete(context.Context, ...string) error { return errCacheDown }
func (brokenCacheStore) AddToIndex(context.Context, string, string, time.Duration) error {
	return errCacheDown
}
func (brokenCacheStore) IndexMembers(context.Context, string) ([]string, error) {
	return nil, errCacheDown
}
func (brokenCacheStore) RemoveFromIndex(context.Context, string, ...string) error {
	return errCacheDown
}
func (brokenCacheStore) Ping(context.Context) error { return errCacheDown }

// recordingPublisher captures published events
type recordingPublisher struct {
	mu   sync.Mutex
	msgs []amqp.TransactionChanged
	err  error
}

func (p *recordingPublisher) PublishTransactionChanged(_ context.Context, msg *amqp.TransactionChanged) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.msgs = append(p.msgs, *msg)
	return p.err
}

func (p *recordingPublisher) actions() []amqp.Action {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]amqp.Action, len(p.msgs))
	for i, m := range p.msgs {
		out[i] = m.Action
	}
	return out
}

type fixture struct {
	store        *countingStore
	cache        *cache.Cache
	publisher    *recordingPublisher
	analytics    *AnalyticsService
	transactions *TransactionService
	categories   *CategoryService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := &countingStore{Store: memory.New()}
	c := newCache()
	pub := &recordingPublisher{}
	return &fixture{
		store:     store,
		cache:     c,
		publisher: pub,
		analytics: NewAnalyticsService(store, c, AnalyticsConfig{
			Now: func() time.Time { return fixedNow },
		}, nil),
		transactions: NewTransactionService(store, c, pub, time.Minute, nil),
		categories:   NewCategoryService(store, nil),
	}
}

func ptr[T any](v T) *T { return &v }

func (f *fixture) category(t *testing.T, name string) core.Category {
	t.Helper()
	c, err := f.categories.Create(context.Background(), admin, CategoryInput{Name: name})
	if err != nil {
		t.Fatalf("Create category %q error = %v", name, err)
	}
	return c
}

func (f *fixture) tx(t *testing.T, who core.Identity, amount string, typ core.TransactionType, date time.Time, category *core.Category) core.Transaction {
	t.Helper()
	in := TransactionInput{Amount: money(t, amount), Type: typ, Date: date, Note: "test"}
	if category != nil {
		id := category.ID
		in.CategoryID = &id
	}
	created, err := f.transactions.Create(context.Background(), who, in)
	if err != nil {
		t.Fatalf("Create transaction error = %v", err)
	}
	return created
}
