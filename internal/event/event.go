// Package event defines the shared contracts of the choreography: the event
// type tags, the envelope that travels over the bus, and the typed payload
// for each event. Payloads are decoded exactly once at the bus boundary;
// handlers work with concrete types, never raw maps.
package event

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Type tags every envelope and doubles as the routing key on the bus.
type Type string

const (
	TypeOrderCreated   Type = "order.created"
	TypeOrderCompleted Type = "order.completed"
	TypeOrderFailed    Type = "order.failed"

	TypeStockCheck         Type = "stock.check"
	TypeStockCheckResponse Type = "stock.check.response"
	TypeStockReserved      Type = "stock.reserved"
	TypeStockReleased      Type = "stock.released"

	TypePaymentInitiated Type = "payment.initiated"
	TypePaymentSucceeded Type = "payment.succeeded"
	TypePaymentFailed    Type = "payment.failed"
)

// Envelope is the wire shape of every event.
type Envelope struct {
	ID        string          `json:"id"`
	Type      Type            `json:"type"`
	Source    string          `json:"source"`
	Timestamp time.Time       `json:"timestamp"`
	Data      json.RawMessage `json:"data"`
}

// New wraps a payload in an envelope, stamping id, source and timestamp.
func New(t Type, source string, payload any) (Envelope, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return Envelope{}, fmt.Errorf("marshal %s payload: %w", t, err)
	}
	return Envelope{
		ID:        uuid.NewString(),
		Type:      t,
		Source:    source,
		Timestamp: time.Now().UTC(),
		Data:      data,
	}, nil
}

// Decode returns the typed payload for the envelope's type tag.
func (e Envelope) Decode() (any, error) {
	switch e.Type {
	case TypeOrderCreated, TypeOrderCompleted:
		return decodeAs[OrderData](e)
	case TypeOrderFailed:
		return decodeAs[OrderFailed](e)
	case TypeStockCheck, TypeStockReserved, TypeStockReleased:
		return decodeAs[StockRequest](e)
	case TypeStockCheckResponse:
		return decodeAs[StockCheckResponse](e)
	case TypePaymentInitiated:
		return decodeAs[PaymentRequest](e)
	case TypePaymentSucceeded, TypePaymentFailed:
		return decodeAs[PaymentResult](e)
	default:
		return nil, fmt.Errorf("unknown event type %q", e.Type)
	}
}

func decodeAs[T any](e Envelope) (T, error) {
	var v T
	if err := json.Unmarshal(e.Data, &v); err != nil {
		return v, fmt.Errorf("decode %s payload: %w", e.Type, err)
	}
	return v, nil
}

// Publisher is the port every service uses to put events on the bus.
// Publish returns once the bus accepted the event, not once subscribers
// processed it.
type Publisher interface {
	Publish(ctx context.Context, ev Envelope) error
}

// OrderItem is one line of an order.
type OrderItem struct {
	ProductID string  `json:"productId"`
	Quantity  int     `json:"quantity"`
	Price     float64 `json:"price"`
}

// OrderData is the full order record, carried by order.created and
// order.completed.
type OrderData struct {
	OrderID     string      `json:"orderId"`
	UserID      string      `json:"userId"`
	Items       []OrderItem `json:"items"`
	TotalAmount float64     `json:"totalAmount"`
	Status      string      `json:"status"`
}

// OrderFailed carries only the order identifier.
type OrderFailed struct {
	OrderID string `json:"orderId"`
}

// StockItem is a product/quantity pair without pricing.
type StockItem struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
}

// StockRequest is shared by stock.check, stock.reserved and stock.released.
type StockRequest struct {
	OrderID string      `json:"orderId"`
	Items   []StockItem `json:"items"`
}

// StockStatus reports one item's availability at check time.
type StockStatus struct {
	ProductID    string `json:"productId"`
	Available    bool   `json:"available"`
	CurrentStock int    `json:"currentStock"`
}

// StockCheckResponse is the inventory ledger's answer to stock.check.
// Available is the conjunction over all requested items.
type StockCheckResponse struct {
	OrderID   string        `json:"orderId"`
	Available bool          `json:"available"`
	Items     []StockStatus `json:"items"`
}

// PaymentRequest asks the payment authorizer for one attempt.
type PaymentRequest struct {
	OrderID   string  `json:"orderId"`
	Amount    float64 `json:"amount"`
	PaymentID string  `json:"paymentId"`
}

// PaymentResult announces the outcome of an attempt; the outcome itself is
// the event type (payment.succeeded / payment.failed).
type PaymentResult struct {
	OrderID   string `json:"orderId"`
	PaymentID string `json:"paymentId"`
}
