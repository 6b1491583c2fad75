package inventory

import (
	"context"
	"errors"
)

var ErrNotFound = errors.New("product not found")

// Product is one inventory record. Stock never goes negative: it is
// decremented only by a successful reservation and incremented only by a
// release, both at most once per order.
type Product struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Stock int    `json:"stock"`
}

// Store owns the product records. Implementations must be safe for
// concurrent readers; mutation ordering is the Service's job.
type Store interface {
	List(ctx context.Context) ([]Product, error)
	Get(ctx context.Context, productID string) (*Product, error)
	Put(ctx context.Context, p Product) error
}

// AppliedSet tracks which orders already had an effect applied, per
// direction ("reserved", "released"). It is the guard that keeps
// at-least-once delivery from decrementing or crediting twice.
type AppliedSet interface {
	// Apply marks (scope, orderID) applied and reports whether this was the
	// first application.
	Apply(ctx context.Context, scope, orderID string) (bool, error)
	// Has reports whether (scope, orderID) was already applied.
	Has(ctx context.Context, scope, orderID string) (bool, error)
}
