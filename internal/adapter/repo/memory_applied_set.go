package repo

import (
	"context"
	"sync"

	"github.com/nodesandbox/event-bus-sample/internal/inventory"
)

// MemoryAppliedSet implements inventory.AppliedSet in process memory.
type MemoryAppliedSet struct {
	mu      sync.Mutex
	applied map[string]struct{}
}

func NewMemoryAppliedSet() *MemoryAppliedSet {
	return &MemoryAppliedSet{applied: make(map[string]struct{})}
}

func (s *MemoryAppliedSet) Apply(_ context.Context, scope, orderID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := scope + ":" + orderID
	if _, ok := s.applied[key]; ok {
		return false, nil
	}
	s.applied[key] = struct{}{}
	return true, nil
}

func (s *MemoryAppliedSet) Has(_ context.Context, scope, orderID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.applied[scope+":"+orderID]
	return ok, nil
}

var _ inventory.AppliedSet = (*MemoryAppliedSet)(nil)
