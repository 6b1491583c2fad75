package repo

import (
	"context"
	"sync"

	"github.com/nodesandbox/event-bus-sample/internal/payment"
)

// MemoryPaymentRepo implements payment.Repo over a mutex-guarded map.
type MemoryPaymentRepo struct {
	mu       sync.RWMutex
	payments map[string]*payment.Payment
}

func NewMemoryPaymentRepo() *MemoryPaymentRepo {
	return &MemoryPaymentRepo{payments: make(map[string]*payment.Payment)}
}

func (r *MemoryPaymentRepo) CreateIfAbsent(_ context.Context, p *payment.Payment) (*payment.Payment, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.payments[p.PaymentID]; ok {
		cp := *existing
		return &cp, false, nil
	}
	cp := *p
	r.payments[p.PaymentID] = &cp
	out := cp
	return &out, true, nil
}

func (r *MemoryPaymentRepo) Get(_ context.Context, paymentID string) (*payment.Payment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.payments[paymentID]
	if !ok {
		return nil, payment.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

var _ payment.Repo = (*MemoryPaymentRepo)(nil)
