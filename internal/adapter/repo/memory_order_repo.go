// Package repo holds the in-memory repositories backing each ledger. The
// reference behavior keeps all state in volatile memory; the ports these
// types implement are what a persistent adapter would satisfy instead.
package repo

import (
	"context"
	"sync"
	"time"

	"github.com/nodesandbox/event-bus-sample/internal/order"
)

// MemoryOrderRepo implements order.Repo over a mutex-guarded map.
type MemoryOrderRepo struct {
	mu     sync.RWMutex
	orders map[string]*order.Order
}

func NewMemoryOrderRepo() *MemoryOrderRepo {
	return &MemoryOrderRepo{orders: make(map[string]*order.Order)}
}

func (r *MemoryOrderRepo) Create(_ context.Context, o *order.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *o
	r.orders[o.OrderID] = &cp
	return nil
}

func (r *MemoryOrderRepo) Get(_ context.Context, orderID string) (*order.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	o, ok := r.orders[orderID]
	if !ok {
		return nil, order.ErrNotFound
	}
	cp := *o
	return &cp, nil
}

func (r *MemoryOrderRepo) UpdateStatusIf(_ context.Context, orderID string, from, to order.Status) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.orders[orderID]
	if !ok || o.Status != from {
		return false, nil
	}
	o.Status = to
	return true, nil
}

func (r *MemoryOrderRepo) SetPaymentID(_ context.Context, orderID, paymentID string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.orders[orderID]
	if !ok {
		return "", order.ErrNotFound
	}
	if o.PaymentID == "" {
		o.PaymentID = paymentID
	}
	return o.PaymentID, nil
}

func (r *MemoryOrderRepo) PendingBefore(_ context.Context, cutoff time.Time) ([]*order.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*order.Order
	for _, o := range r.orders {
		if o.Status == order.StatusPending && o.CreatedAt.Before(cutoff) {
			cp := *o
			out = append(out, &cp)
		}
	}
	return out, nil
}

var _ order.Repo = (*MemoryOrderRepo)(nil)
