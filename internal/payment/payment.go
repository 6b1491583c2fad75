package payment

import (
	"context"
	"errors"
)

var ErrNotFound = errors.New("payment not found")

type Status string

const (
	StatusSuccess Status = "SUCCESS"
	StatusFailed  Status = "FAILED"
)

// Payment records one attempt. Created exactly once per PaymentID and
// immutable afterwards.
type Payment struct {
	PaymentID string  `json:"paymentId"`
	OrderID   string  `json:"orderId"`
	Amount    float64 `json:"amount"`
	Status    Status  `json:"status"`
}

// Repo owns the payment ledger.
type Repo interface {
	// CreateIfAbsent stores p unless a record with the same PaymentID exists.
	// It returns the stored record and whether this call created it.
	CreateIfAbsent(ctx context.Context, p *Payment) (*Payment, bool, error)
	Get(ctx context.Context, paymentID string) (*Payment, error)
}
