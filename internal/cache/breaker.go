package cache

import (
	"sync/atomic"
	"time"
)

// Circuit breaker states
const (
	StateClosed int32 = iota
	StateOpen
	StateHalfOpen
)

// breaker opens after threshold consecutive failures and lets calls
// through again once cooldown has elapsed since the last failure.
type breaker struct {
	state        int32
	failureCount int64
	lastFailure  int64 // unix nanos
	threshold    int64
	cooldown     time.Duration
	now          func() time.Time
}

func newBreaker(threshold int, cooldown time.Duration) *breaker {
	if threshold < 1 {
		threshold = 1
	}
	return &breaker{
		threshold: int64(threshold),
		cooldown:  cooldown,
		now:       time.Now,
	}
}

func (b *breaker) isOpen() bool {
	if atomic.LoadInt32(&b.state) != StateOpen {
		return false
	}
	last := time.Unix(0, atomic.LoadInt64(&b.lastFailure))
	if b.now().Sub(last) >= b.cooldown {
		atomic.CompareAndSwapInt32(&b.state, StateOpen, StateHalfOpen)
		return false
	}
	return true
}

func (b *breaker) recordSuccess() {
	atomic.StoreInt64(&b.failureCount, 0)
	atomic.StoreInt32(&b.state, StateClosed)
}

// recordFailure reports whether this failure opened the circuit
func (b *breaker) recordFailure() bool {
	atomic.StoreInt64(&b.lastFailure, b.now().UnixNano())
	failures := atomic.AddInt64(&b.failureCount, 1)

	if atomic.CompareAndSwapInt32(&b.state, StateHalfOpen, StateOpen) {
		return true
	}
	if failures >= b.threshold {
		return atomic.SwapInt32(&b.state, StateOpen) != StateOpen
	}
	return false
}

func (b *breaker) stateName() string {
	switch atomic.LoadInt32(&b.state) {
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "closed"
	}
}
