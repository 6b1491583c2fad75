package order

import (
	"errors"
	"time"

	"github.com/nodesandbox/event-bus-sample/internal/event"
)

type Status string

const (
	StatusPending   Status = "PENDING"
	StatusCompleted Status = "COMPLETED"
	StatusFailed    Status = "FAILED"
)

var (
	ErrInvalidRequest = errors.New("invalid order request")
	ErrNotFound       = errors.New("order not found")
	ErrDuplicate      = errors.New("duplicate idempotency key")
)

// Order is the saga controller's record. Status only ever moves
// PENDING -> COMPLETED or PENDING -> FAILED; terminal states are immutable.
type Order struct {
	OrderID     string            `json:"orderId"`
	UserID      string            `json:"userId"`
	Items       []event.OrderItem `json:"items"`
	TotalAmount float64           `json:"totalAmount"`
	Status      Status            `json:"status"`
	PaymentID   string            `json:"-"`
	CreatedAt   time.Time         `json:"-"`
}

// Data converts the record to its wire shape for order.created/completed.
func (o *Order) Data() event.OrderData {
	return event.OrderData{
		OrderID:     o.OrderID,
		UserID:      o.UserID,
		Items:       o.Items,
		TotalAmount: o.TotalAmount,
		Status:      string(o.Status),
	}
}

// StockItems projects the order lines to product/quantity pairs for the
// stock.check and stock.released payloads.
func (o *Order) StockItems() []event.StockItem {
	items := make([]event.StockItem, len(o.Items))
	for i, it := range o.Items {
		items[i] = event.StockItem{ProductID: it.ProductID, Quantity: it.Quantity}
	}
	return items
}

func validateItems(items []event.OrderItem) error {
	if len(items) == 0 {
		return ErrInvalidRequest
	}
	for _, it := range items {
		if it.ProductID == "" || it.Quantity <= 0 || it.Price < 0 {
			return ErrInvalidRequest
		}
	}
	return nil
}

func totalAmount(items []event.OrderItem) float64 {
	var sum float64
	for _, it := range items {
		sum += float64(it.Quantity) * it.Price
	}
	return sum
}
