package cache

import (
	"context"
	"sync"
	"time"
)

// MemoryStore is an in-process Store backed by an LRUCache.
// It serves single-instance deployments and tests.
type MemoryStore struct {
	entries *LRUCache[[]byte]

	mu      sync.Mutex
	indexes map[string]*memoryIndex
	now     func() time.Time
}

type memoryIndex struct {
	members   map[string]struct{}
	expiresAt time.Time
}

func NewMemoryStore(maxEntries int) *MemoryStore {
	return &MemoryStore{
		entries: NewLRUCache[[]byte](maxEntries),
		indexes: make(map[string]*memoryIndex),
		now:     time.Now,
	}
}

func (s *MemoryStore) Get(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	value, ok := s.entries.Get(key)
	if !ok {
		return nil, ErrMiss
	}
	return value, nil
}

func (s *MemoryStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	buf := make([]byte, len(value))
	copy(buf, value)
	s.entries.Set(key, buf, ttl)
	return nil
}

func (s *MemoryStore) Delete(ctx context.Context, keys ...string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	for _, key := range keys {
		s.entries.Delete(key)
	}
	return nil
}

func (s *MemoryStore) AddToIndex(ctx context.Context, index, member string, ttl time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	idx, ok := s.indexes[index]
	if !ok || !s.now().Before(idx.expiresAt) {
		idx = &memoryIndex{members: make(map[string]struct{})}
		s.indexes[index] = idx
	}
	idx.members[member] = struct{}{}
	idx.expiresAt = s.now().Add(ttl)
	return nil
}

func (s *MemoryStore) IndexMembers(ctx context.Context, index string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	idx, ok := s.indexes[index]
	if !ok || !s.now().Before(idx.expiresAt) {
		return nil, nil
	}
	members := make([]string, 0, len(idx.members))
	for m := range idx.members {
		members = append(members, m)
	}
	return members, nil
}

func (s *MemoryStore) RemoveFromIndex(ctx context.Context, index string, members ...string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	idx, ok := s.indexes[index]
	if !ok {
		return nil
	}
	for _, m := range members {
		delete(idx.members, m)
	}
	if len(idx.members) == 0 {
		delete(s.indexes, index)
	}
	return nil
}

func (s *MemoryStore) Ping(ctx context.Context) error {
	return ctx.Err()
}

// CleanExpired drops expired entries and index sets
func (s *MemoryStore) CleanExpired() int {
	removed := s.entries.CleanExpired()

	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	for name, idx := range s.indexes {
		if !now.Before(idx.expiresAt) {
			delete(s.indexes, name)
			removed++
		}
	}
	return removed
}

// Size returns the number of live value entries
func (s *MemoryStore) Size() int {
	return s.entries.Size()
}
