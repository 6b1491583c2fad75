package repo

import (
	"context"
	"sort"
	"sync"

	"github.com/nodesandbox/event-bus-sample/internal/inventory"
)

// MemoryInventoryStore implements inventory.Store. The RWMutex keeps HTTP
// snapshot reads consistent with event-side mutations; mutation ordering
// itself is serialized by the inventory service.
type MemoryInventoryStore struct {
	mu       sync.RWMutex
	products map[string]inventory.Product
}

func NewMemoryInventoryStore(seed []inventory.Product) *MemoryInventoryStore {
	products := make(map[string]inventory.Product, len(seed))
	for _, p := range seed {
		products[p.ID] = p
	}
	return &MemoryInventoryStore{products: products}
}

func (s *MemoryInventoryStore) List(_ context.Context) ([]inventory.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]inventory.Product, 0, len(s.products))
	for _, p := range s.products {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *MemoryInventoryStore) Get(_ context.Context, productID string) (*inventory.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.products[productID]
	if !ok {
		return nil, inventory.ErrNotFound
	}
	return &p, nil
}

func (s *MemoryInventoryStore) Put(_ context.Context, p inventory.Product) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.products[p.ID] = p
	return nil
}

var _ inventory.Store = (*MemoryInventoryStore)(nil)
