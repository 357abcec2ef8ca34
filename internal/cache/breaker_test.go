package cache

import (
	"context"
	"sync/atomic"
	"testing"
	"time"
)

func TestBreaker(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	b := newBreaker(3, 30*time.Second)
	b.now = func() time.Time { return now }

	t.Run("initial state is closed", func(t *testing.T) {
		if b.isOpen() {
			t.Error("breaker should be closed initially")
		}
	})

	t.Run("failures below threshold keep it closed", func(t *testing.T) {
		b.recordFailure()
		b.recordFailure()
		if b.isOpen() {
			t.Error("breaker should stay closed below threshold")
		}
	})

	t.Run("success resets the count", func(t *testing.T) {
		b.recordSuccess()
		if atomic.LoadInt64(&b.failureCount) != 0 {
			t.Error("failure count should be reset to 0 after success")
		}
		b.recordFailure()
		b.recordFailure()
		if b.isOpen() {
			t.Error("breaker should stay closed after reset")
		}
	})

	t.Run("threshold opens the circuit", func(t *testing.T) {
		if opened := b.recordFailure(); !opened {
			t.Error("third failure should report the circuit opening")
		}
		if !b.isOpen() {
			t.Error("breaker should be open after threshold")
		}
		if opened := b.recordFailure(); opened {
			t.Error("further failures should not report opening again")
		}
	})

	t.Run("remains open within cooldown", func(t *testing.T) {
		now = now.Add(29 * time.Second)
		if !b.isOpen() {
			t.Error("breaker should remain open within cooldown")
		}
	})

	t.Run("half-open after cooldown", func(t *testing.T) {
		now = now.Add(2 * time.Second)
		if b.isOpen() {
			t.Error("breaker should let a trial call through after cooldown")
		}
		if atomic.LoadInt32(&b.state) != StateHalfOpen {
			t.Errorf("state = %s, want half-open", b.stateName())
		}
	})

	t.Run("failed trial call reopens", func(t *testing.T) {
		if opened := b.recordFailure(); !opened {
			t.Error("failure in half-open should reopen the circuit")
		}
		if !b.isOpen() {
			t.Error("breaker should be open again")
		}
	})

	t.Run("successful trial call closes", func(t *testing.T) {
		now = now.Add(31 * time.Second)
		if b.isOpen() {
			t.Fatal("breaker should be half-open")
		}
		b.recordSuccess()
		if b.stateName() != "closed" {
			t.Errorf("state = %s, want closed", b.stateName())
		}
	})
}

func TestCache_BreakerRecovers(t *testing.T) {
	now := time.Now()
	store := &failingStore{}
	c := newTestCache(store)
	c.breaker.now = func() time.Time { return now }

	ctx := context.Background()
	for i := 0; i < 2; i++ {
		_, _ = c.get(ctx, "k")
	}
	if c.Stats().State != "open" {
		t.Fatalf("state = %s, want open", c.Stats().State)
	}

	// swap in a healthy store and wait out the cooldown
	c.store = NewMemoryStore(10)
	now = now.Add(2 * time.Minute)

	if _, err := c.get(ctx, "k"); err != ErrMiss {
		t.Fatalf("get() error = %v, want ErrMiss", err)
	}
	if c.Stats().State != "closed" {
		t.Errorf("state = %s, want closed after a successful trial call", c.Stats().State)
	}
}
