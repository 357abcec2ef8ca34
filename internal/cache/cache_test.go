package cache

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"fintrack/internal/log"
)

var errStoreDown = errors.New("connection refused")

// failingStore fails every call and counts them
type failingStore struct {
	calls atomic.Int64
}

func (s *failingStore) fail() error { s.calls.Add(1); return errStoreDown }

func (s *failingStore) Get(context.Context, string) ([]byte, error) { return nil, s.fail() }
func (s *failingStore) Set(context.Context, string, []byte, time.Duration) error {
	return s.fail()
}
func (s *failingStore) Delete(context.Context, ...string) error { return s.fail() }
func (s *failingStore) AddToIndex(context.Context, string, string, time.Duration) error {
	return s.fail()
}
func (s *failingStore) IndexMembers(context.Context, string) ([]string, error) {
	return nil, s.fail()
}
func (s *failingStore) RemoveFromIndex(context.Context, string, ...string) error { return s.fail() }
func (s *failingStore) Ping(context.Context) error                               { return s.fail() }

// slowStore blocks until the operation context expires
type slowStore struct{ *MemoryStore }

func (s *slowStore) Get(ctx context.Context, _ string) ([]byte, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

type result struct {
	Total int    `json:"total"`
	Label string `json:"label"`
}

func counting(calls *int, value result) func(context.Context) (result, error) {
	return func(context.Context) (result, error) {
		*calls++
		return value, nil
	}
}

func newTestCache(store Store) *Cache {
	return New(store, Options{
		OpTimeout:        50 * time.Millisecond,
		FailureThreshold: 2,
		Cooldown:         time.Minute,
	}, nil)
}

func TestGetOrCompute_HitSkipsCompute(t *testing.T) {
	ctx := context.Background()
	c := newTestCache(NewMemoryStore(100))
	key := NewKey(NamespaceAnalytics, 1, "dashboard").With("period", "30")

	calls := 0
	first, err := GetOrCompute(ctx, c, key, time.Minute, counting(&calls, result{Total: 42, Label: "a"}))
	if err != nil {
		t.Fatalf("GetOrCompute() error = %v", err)
	}
	second, err := GetOrCompute(ctx, c, key, time.Minute, counting(&calls, result{Total: 99, Label: "b"}))
	if err != nil {
		t.Fatalf("GetOrCompute() error = %v", err)
	}

	if calls != 1 {
		t.Errorf("compute called %d times, want 1", calls)
	}
	if first != second {
		t.Errorf("second result = %+v, want cached %+v", second, first)
	}
	if stats := c.Stats(); stats.Hits != 1 || stats.Misses != 1 {
		t.Errorf("Stats() = %+v, want 1 hit and 1 miss", stats)
	}
}

func TestGetOrCompute_FailingStoreFallsBack(t *testing.T) {
	ctx := context.Background()
	store := &failingStore{}
	c := newTestCache(store)
	key := NewKey(NamespaceAnalytics, 1, "trends")

	for i := 0; i < 5; i++ {
		calls := 0
		got, err := GetOrCompute(ctx, c, key, time.Minute, counting(&calls, result{Total: i}))
		if err != nil {
			t.Fatalf("GetOrCompute() error = %v, want transparent fallback", err)
		}
		if got.Total != i || calls != 1 {
			t.Fatalf("GetOrCompute() = %+v with %d computes, want fresh value", got, calls)
		}
	}

	// threshold 2: the breaker stops calling the store after two failed reads
	if n := store.calls.Load(); n != 2 {
		t.Errorf("store called %d times, want 2 before the circuit opens", n)
	}
	if state := c.Stats().State; state != "open" {
		t.Errorf("breaker state = %s, want open", state)
	}
}

func TestGetOrCompute_TimeoutFallsBack(t *testing.T) {
	c := newTestCache(&slowStore{MemoryStore: NewMemoryStore(10)})
	key := NewKey(NamespaceAnalytics, 1, "categories")

	start := time.Now()
	calls := 0
	got, err := GetOrCompute(context.Background(), c, key, time.Minute, counting(&calls, result{Total: 7}))
	if err != nil {
		t.Fatalf("GetOrCompute() error = %v", err)
	}
	if got.Total != 7 || calls != 1 {
		t.Errorf("GetOrCompute() = %+v, want computed value", got)
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("GetOrCompute() took %v, want bounded by op timeout", elapsed)
	}
}

func TestGetOrCompute_MalformedEntryOverwritten(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(10)
	c := newTestCache(store)
	key := NewKey(NamespaceAnalytics, 3, "dashboard")

	if err := store.Set(ctx, key.String(), []byte("{not json"), time.Minute); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	calls := 0
	got, err := GetOrCompute(ctx, c, key, time.Minute, counting(&calls, result{Total: 5}))
	if err != nil || got.Total != 5 || calls != 1 {
		t.Fatalf("GetOrCompute() = %+v, %v; want recomputed value", got, err)
	}

	got, _ = GetOrCompute(ctx, c, key, time.Minute, counting(&calls, result{Total: 6}))
	if got.Total != 5 || calls != 1 {
		t.Errorf("malformed entry was not replaced: got %+v after %d computes", got, calls)
	}
}

func TestGetOrCompute_ComputeErrorNotCached(t *testing.T) {
	ctx := context.Background()
	c := newTestCache(NewMemoryStore(10))
	key := NewKey(NamespaceAnalytics, 1, "dashboard")
	boom := errors.New("database unavailable")

	_, err := GetOrCompute(ctx, c, key, time.Minute, func(context.Context) (result, error) {
		return result{}, boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("GetOrCompute() error = %v, want %v", err, boom)
	}

	calls := 0
	if _, err := GetOrCompute(ctx, c, key, time.Minute, counting(&calls, result{Total: 1})); err != nil || calls != 1 {
		t.Errorf("failed compute must not be cached: calls = %d, err = %v", calls, err)
	}
}

func TestGetOrCompute_NilCacheComputes(t *testing.T) {
	var c *Cache
	calls := 0
	for i := 0; i < 2; i++ {
		if _, err := GetOrCompute(context.Background(), c, NewKey("x", 1, "y"), time.Minute, counting(&calls, result{})); err != nil {
			t.Fatalf("GetOrCompute() error = %v", err)
		}
	}
	if calls != 2 {
		t.Errorf("compute called %d times, want 2", calls)
	}
	if c.Invalidate(context.Background(), 1) != 0 {
		t.Error("Invalidate() on nil cache should be a no-op")
	}
	if c.Stats().State != "disabled" {
		t.Errorf("Stats().State = %s, want disabled", c.Stats().State)
	}
}

func TestInvalidate(t *testing.T) {
	ctx := context.Background()
	c := newTestCache(NewMemoryStore(100))

	dashboard := NewKey(NamespaceAnalytics, 1, "dashboard").With("period", "30")
	list := NewKey(NamespaceTransactions, 1, "list").With("page", "1")
	other := NewKey(NamespaceAnalytics, 2, "dashboard").With("period", "30")

	calls := map[string]*int{}
	warm := func(k Key) {
		n, ok := calls[k.String()]
		if !ok {
			n = new(int)
			calls[k.String()] = n
		}
		if _, err := GetOrCompute(ctx, c, k, time.Minute, counting(n, result{})); err != nil {
			t.Fatalf("GetOrCompute(%s) error = %v", k, err)
		}
	}
	for _, k := range []Key{dashboard, list, other} {
		warm(k)
	}

	if removed := c.Invalidate(ctx, 1, NamespaceAnalytics); removed != 1 {
		t.Errorf("Invalidate(analytics) removed %d keys, want 1", removed)
	}
	for _, k := range []Key{dashboard, list, other} {
		warm(k)
	}

	if got := *calls[dashboard.String()]; got != 2 {
		t.Errorf("dashboard computed %d times, want 2 after invalidation", got)
	}
	if got := *calls[list.String()]; got != 1 {
		t.Errorf("transactions list computed %d times, want 1 (other namespace)", got)
	}
	if got := *calls[other.String()]; got != 1 {
		t.Errorf("other user's dashboard computed %d times, want 1", got)
	}

	if removed := c.Invalidate(ctx, 1); removed != 2 {
		t.Errorf("Invalidate(all) removed %d keys, want 2", removed)
	}
}

func TestInvalidate_FailingStoreIsSilent(t *testing.T) {
	c := newTestCache(&failingStore{})
	if removed := c.Invalidate(context.Background(), 1, NamespaceAnalytics); removed != 0 {
		t.Errorf("Invalidate() = %d, want 0", removed)
	}
}

func TestCache_Ping(t *testing.T) {
	if err := newTestCache(NewMemoryStore(1)).Ping(context.Background()); err != nil {
		t.Errorf("Ping() error = %v", err)
	}
	if err := newTestCache(&failingStore{}).Ping(context.Background()); !errors.Is(err, errStoreDown) {
		t.Errorf("Ping() error = %v, want %v", err, errStoreDown)
	}
}

func TestCache_PingBypassesBreaker(t *testing.T) {
	tests := []struct {
		name      string
		store     Store
		wantErr   error
		wantState string
	}{
		{name: "healthy store closes the circuit", store: NewMemoryStore(1), wantState: "closed"},
		{name: "failed ping leaves the circuit open", store: &failingStore{}, wantErr: errStoreDown, wantState: "open"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestCache(tt.store)
			c.breaker.recordFailure()
			c.breaker.recordFailure()
			if got := c.Stats().State; got != "open" {
				t.Fatalf("state before Ping = %q, want open", got)
			}

			err := c.Ping(context.Background())
			if tt.wantErr == nil && err != nil {
				t.Errorf("Ping() error = %v", err)
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Errorf("Ping() error = %v, want %v", err, tt.wantErr)
			}
			if got := c.Stats().State; got != tt.wantState {
				t.Errorf("state after Ping = %q, want %q", got, tt.wantState)
			}
			if got := c.Stats().Failures; got != 0 {
				t.Errorf("Failures = %d, want 0", got)
			}
		})
	}
}

func TestGetOrCompute_LogsCacheFields(t *testing.T) {
	var buf bytes.Buffer
	logger := log.New(log.Config{Level: "debug", Format: "json", Output: &buf})
	key := NewKey(NamespaceAnalytics, 1, "dashboard")
	calls := 0

	healthy := New(NewMemoryStore(16), Options{OpTimeout: 50 * time.Millisecond}, logger)
	for i := 0; i < 2; i++ {
		if _, err := GetOrCompute(context.Background(), healthy, key, time.Minute, counting(&calls, result{Total: 1})); err != nil {
			t.Fatalf("GetOrCompute() error = %v", err)
		}
	}
	failing := New(&failingStore{}, Options{OpTimeout: 50 * time.Millisecond, FailureThreshold: 5}, logger)
	if _, err := GetOrCompute(context.Background(), failing, key, time.Minute, counting(&calls, result{Total: 1})); err != nil {
		t.Fatalf("GetOrCompute() error = %v", err)
	}

	byMsg := map[string]map[string]any{}
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		var entry map[string]any
		if err := json.Unmarshal([]byte(line), &entry); err != nil {
			t.Fatalf("unmarshal %q: %v", line, err)
		}
		msg, _ := entry["msg"].(string)
		if _, seen := byMsg[msg]; !seen {
			byMsg[msg] = entry
		}
	}

	tests := []struct {
		msg       string
		wantHit   bool
		wantError string
	}{
		{msg: "Cache miss", wantHit: false},
		{msg: "Cache hit", wantHit: true},
		{msg: "Cache read failed, computing", wantHit: false, wantError: log.ErrorTypeCache},
	}
	for _, tt := range tests {
		t.Run(tt.msg, func(t *testing.T) {
			entry, ok := byMsg[tt.msg]
			if !ok {
				t.Fatalf("no %q entry in %s", tt.msg, buf.String())
			}
			if entry[log.FieldCacheKey] != key.String() {
				t.Errorf("%s = %v, want %s", log.FieldCacheKey, entry[log.FieldCacheKey], key)
			}
			if entry[log.FieldCacheHit] != tt.wantHit {
				t.Errorf("%s = %v, want %v", log.FieldCacheHit, entry[log.FieldCacheHit], tt.wantHit)
			}
			if tt.wantError != "" && entry[log.FieldErrorType] != tt.wantError {
				t.Errorf("%s = %v, want %s", log.FieldErrorType, entry[log.FieldErrorType], tt.wantError)
			}
		})
	}
}
