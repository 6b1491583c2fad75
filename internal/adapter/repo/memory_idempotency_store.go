package repo

import (
	"context"
	"sync"

	"github.com/nodesandbox/event-bus-sample/internal/order"
)

// MemoryIdempotencyStore implements order.IdempotencyStore for runs without
// Redis. Entries never expire; the volatile ledger makes that acceptable.
type MemoryIdempotencyStore struct {
	mu     sync.Mutex
	locks  map[string]struct{}
	values map[string]string
}

func NewMemoryIdempotencyStore() *MemoryIdempotencyStore {
	return &MemoryIdempotencyStore{
		locks:  make(map[string]struct{}),
		values: make(map[string]string),
	}
}

func (s *MemoryIdempotencyStore) TryLock(_ context.Context, scope, key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := scope + ":" + key
	if _, ok := s.locks[k]; ok {
		return false, nil
	}
	s.locks[k] = struct{}{}
	return true, nil
}

func (s *MemoryIdempotencyStore) Remember(_ context.Context, scope, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[scope+":"+key] = value
	return nil
}

func (s *MemoryIdempotencyStore) Recall(_ context.Context, scope, key string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.values[scope+":"+key]
	return v, ok, nil
}

var _ order.IdempotencyStore = (*MemoryIdempotencyStore)(nil)
