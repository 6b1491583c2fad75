package order

import (
	"context"
	"time"
)

// Repo owns the order ledger. Implementations must copy on read: callers
// never see a pointer into live storage.
type Repo interface {
	Create(ctx context.Context, o *Order) error
	Get(ctx context.Context, orderID string) (*Order, error)

	// UpdateStatusIf transitions orderID from `from` to `to` and reports
	// whether the transition applied. A false return means the order is
	// missing or no longer in `from` — the caller's staleness guard.
	UpdateStatusIf(ctx context.Context, orderID string, from, to Status) (bool, error)

	// SetPaymentID records the payment attempt id for orderID if none is set
	// yet, and returns the effective id either way. Keeps redelivered
	// stock.reserved events from minting a second payment attempt.
	SetPaymentID(ctx context.Context, orderID, paymentID string) (string, error)

	// PendingBefore lists PENDING orders created before the cutoff.
	PendingBefore(ctx context.Context, cutoff time.Time) ([]*Order, error)
}

// IdempotencyStore dedupes order submissions by client-supplied key.
type IdempotencyStore interface {
	TryLock(ctx context.Context, scope, key string) (bool, error)
	Remember(ctx context.Context, scope, key, value string) error
	Recall(ctx context.Context, scope, key string) (string, bool, error)
}
