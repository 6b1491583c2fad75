package order_test

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nodesandbox/event-bus-sample/internal/adapter/repo"
	"github.com/nodesandbox/event-bus-sample/internal/event"
	"github.com/nodesandbox/event-bus-sample/internal/order"
)

// --- Test doubles ---

// busRecorder captures published envelopes instead of delivering them.
type busRecorder struct {
	mu     sync.Mutex
	events []event.Envelope
}

func (b *busRecorder) Publish(_ context.Context, ev event.Envelope) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, ev)
	return nil
}

func (b *busRecorder) byType(t event.Type) []event.Envelope {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []event.Envelope
	for _, ev := range b.events {
		if ev.Type == t {
			out = append(out, ev)
		}
	}
	return out
}

func (b *busRecorder) reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = nil
}

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newService(t *testing.T) (*order.Service, *busRecorder) {
	t.Helper()
	bus := &busRecorder{}
	svc := order.NewService(repo.NewMemoryOrderRepo(), repo.NewMemoryIdempotencyStore(), bus, discard())
	return svc, bus
}

func decode[T any](t *testing.T, ev event.Envelope) T {
	t.Helper()
	p, err := ev.Decode()
	require.NoError(t, err)
	v, ok := p.(T)
	require.True(t, ok, "payload type %T", p)
	return v
}

func twoLaptops() []event.OrderItem {
	return []event.OrderItem{{ProductID: "PROD1", Quantity: 2, Price: 500}}
}

// --- Tests ---

func TestCreateOrder(t *testing.T) {
	svc, bus := newService(t)

	o, err := svc.CreateOrder(context.Background(), "user1", twoLaptops(), "")
	require.NoError(t, err)
	require.NotEmpty(t, o.OrderID)
	assert.Equal(t, order.StatusPending, o.Status)
	assert.Equal(t, 1000.0, o.TotalAmount)

	created := bus.byType(event.TypeOrderCreated)
	require.Len(t, created, 1)
	data := decode[event.OrderData](t, created[0])
	assert.Equal(t, o.OrderID, data.OrderID)
	assert.Equal(t, "PENDING", data.Status)

	checks := bus.byType(event.TypeStockCheck)
	require.Len(t, checks, 1)
	check := decode[event.StockRequest](t, checks[0])
	assert.Equal(t, o.OrderID, check.OrderID)
	require.Len(t, check.Items, 1)
	assert.Equal(t, "PROD1", check.Items[0].ProductID)
	assert.Equal(t, 2, check.Items[0].Quantity)
}

func TestCreateOrder_Invalid(t *testing.T) {
	svc, bus := newService(t)

	cases := []struct {
		name   string
		userID string
		items  []event.OrderItem
	}{
		{"no items", "user1", nil},
		{"zero quantity", "user1", []event.OrderItem{{ProductID: "PROD1", Quantity: 0, Price: 10}}},
		{"negative quantity", "user1", []event.OrderItem{{ProductID: "PROD1", Quantity: -1, Price: 10}}},
		{"missing product", "user1", []event.OrderItem{{Quantity: 1, Price: 10}}},
		{"missing user", "", twoLaptops()},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.CreateOrder(context.Background(), tc.userID, tc.items, "")
			require.ErrorIs(t, err, order.ErrInvalidRequest)
		})
	}
	// Validation failures never reach the bus.
	assert.Empty(t, bus.events)
}

func TestCreateOrder_IdempotencyKey(t *testing.T) {
	svc, bus := newService(t)

	first, err := svc.CreateOrder(context.Background(), "user1", twoLaptops(), "key-1")
	require.NoError(t, err)

	again, err := svc.CreateOrder(context.Background(), "user1", twoLaptops(), "key-1")
	require.NoError(t, err)
	assert.Equal(t, first.OrderID, again.OrderID)

	// The retry created nothing new on the bus.
	assert.Len(t, bus.byType(event.TypeOrderCreated), 1)
}

func TestStockCheckResponse_Unavailable(t *testing.T) {
	svc, bus := newService(t)
	o, err := svc.CreateOrder(context.Background(), "user1", twoLaptops(), "")
	require.NoError(t, err)
	bus.reset()

	err = svc.HandleStockCheckResponse(context.Background(), event.StockCheckResponse{
		OrderID:   o.OrderID,
		Available: false,
		Items:     []event.StockStatus{{ProductID: "PROD1", Available: false, CurrentStock: 1}},
	})
	require.NoError(t, err)

	got, err := svc.GetOrder(context.Background(), o.OrderID)
	require.NoError(t, err)
	assert.Equal(t, order.StatusFailed, got.Status)
	assert.Len(t, bus.byType(event.TypeOrderFailed), 1)
	// No compensation: nothing was reserved for an unavailable order.
	assert.Empty(t, bus.byType(event.TypeStockReleased))
}

func TestStockCheckResponse_AvailableIsNoOp(t *testing.T) {
	svc, bus := newService(t)
	o, err := svc.CreateOrder(context.Background(), "user1", twoLaptops(), "")
	require.NoError(t, err)
	bus.reset()

	err = svc.HandleStockCheckResponse(context.Background(), event.StockCheckResponse{
		OrderID:   o.OrderID,
		Available: true,
	})
	require.NoError(t, err)

	got, err := svc.GetOrder(context.Background(), o.OrderID)
	require.NoError(t, err)
	assert.Equal(t, order.StatusPending, got.Status)
	assert.Empty(t, bus.events)
}

func TestStockReserved_InitiatesPaymentOnce(t *testing.T) {
	svc, bus := newService(t)
	o, err := svc.CreateOrder(context.Background(), "user1", twoLaptops(), "")
	require.NoError(t, err)
	bus.reset()

	reserved := event.StockRequest{OrderID: o.OrderID, Items: o.StockItems()}
	require.NoError(t, svc.HandleStockReserved(context.Background(), reserved))
	// Redelivery of the same reservation.
	require.NoError(t, svc.HandleStockReserved(context.Background(), reserved))

	initiated := bus.byType(event.TypePaymentInitiated)
	require.Len(t, initiated, 2)
	first := decode[event.PaymentRequest](t, initiated[0])
	second := decode[event.PaymentRequest](t, initiated[1])
	assert.Equal(t, o.TotalAmount, first.Amount)
	require.NotEmpty(t, first.PaymentID)
	// Same payment id on both requests: the authorizer dedupes on it.
	assert.Equal(t, first.PaymentID, second.PaymentID)

	got, err := svc.GetOrder(context.Background(), o.OrderID)
	require.NoError(t, err)
	assert.Equal(t, order.StatusPending, got.Status)
}

func TestPaymentSucceeded_CompletesOrder(t *testing.T) {
	svc, bus := newService(t)
	o, err := svc.CreateOrder(context.Background(), "user1", twoLaptops(), "")
	require.NoError(t, err)
	bus.reset()

	err = svc.HandlePaymentSucceeded(context.Background(), event.PaymentResult{OrderID: o.OrderID, PaymentID: "pay-1"})
	require.NoError(t, err)

	got, err := svc.GetOrder(context.Background(), o.OrderID)
	require.NoError(t, err)
	assert.Equal(t, order.StatusCompleted, got.Status)

	completed := bus.byType(event.TypeOrderCompleted)
	require.Len(t, completed, 1)
	data := decode[event.OrderData](t, completed[0])
	assert.Equal(t, "COMPLETED", data.Status)
}

func TestPaymentFailed_FailsAndReleasesStock(t *testing.T) {
	svc, bus := newService(t)
	o, err := svc.CreateOrder(context.Background(), "user1", twoLaptops(), "")
	require.NoError(t, err)
	bus.reset()

	err = svc.HandlePaymentFailed(context.Background(), event.PaymentResult{OrderID: o.OrderID, PaymentID: "pay-1"})
	require.NoError(t, err)

	got, err := svc.GetOrder(context.Background(), o.OrderID)
	require.NoError(t, err)
	assert.Equal(t, order.StatusFailed, got.Status)
	assert.Len(t, bus.byType(event.TypeOrderFailed), 1)

	released := bus.byType(event.TypeStockReleased)
	require.Len(t, released, 1)
	rel := decode[event.StockRequest](t, released[0])
	assert.Equal(t, o.OrderID, rel.OrderID)
	require.Len(t, rel.Items, 1)
	assert.Equal(t, 2, rel.Items[0].Quantity)
}

func TestTerminalOrderIgnoresLateEvents(t *testing.T) {
	svc, bus := newService(t)
	o, err := svc.CreateOrder(context.Background(), "user1", twoLaptops(), "")
	require.NoError(t, err)
	require.NoError(t, svc.HandlePaymentSucceeded(context.Background(), event.PaymentResult{OrderID: o.OrderID}))
	bus.reset()

	// A late failure must not flip a completed order, and a duplicate
	// success must not announce completion twice.
	require.NoError(t, svc.HandlePaymentFailed(context.Background(), event.PaymentResult{OrderID: o.OrderID}))
	require.NoError(t, svc.HandlePaymentSucceeded(context.Background(), event.PaymentResult{OrderID: o.OrderID}))
	require.NoError(t, svc.HandleStockCheckResponse(context.Background(), event.StockCheckResponse{OrderID: o.OrderID}))

	got, err := svc.GetOrder(context.Background(), o.OrderID)
	require.NoError(t, err)
	assert.Equal(t, order.StatusCompleted, got.Status)
	assert.Empty(t, bus.events)
}

func TestEventsForUnknownOrderAreDropped(t *testing.T) {
	svc, bus := newService(t)

	require.NoError(t, svc.HandleStockReserved(context.Background(), event.StockRequest{OrderID: "nope"}))
	require.NoError(t, svc.HandlePaymentSucceeded(context.Background(), event.PaymentResult{OrderID: "nope"}))
	require.NoError(t, svc.HandlePaymentFailed(context.Background(), event.PaymentResult{OrderID: "nope"}))
	require.NoError(t, svc.HandleStockCheckResponse(context.Background(), event.StockCheckResponse{OrderID: "nope"}))

	assert.Empty(t, bus.events)
}

func TestExpireStale(t *testing.T) {
	svc, bus := newService(t)
	stale, err := svc.CreateOrder(context.Background(), "user1", twoLaptops(), "")
	require.NoError(t, err)
	done, err := svc.CreateOrder(context.Background(), "user2", twoLaptops(), "")
	require.NoError(t, err)
	require.NoError(t, svc.HandlePaymentSucceeded(context.Background(), event.PaymentResult{OrderID: done.OrderID}))
	bus.reset()

	// A zero max age makes every still-pending order stale.
	n, err := svc.ExpireStale(context.Background(), 0)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	got, err := svc.GetOrder(context.Background(), stale.OrderID)
	require.NoError(t, err)
	assert.Equal(t, order.StatusFailed, got.Status)

	require.Len(t, bus.byType(event.TypeOrderFailed), 1)
	released := bus.byType(event.TypeStockReleased)
	require.Len(t, released, 1)
	assert.Equal(t, stale.OrderID, decode[event.StockRequest](t, released[0]).OrderID)

	// Completed orders are untouched and a second sweep finds nothing.
	n, err = svc.ExpireStale(context.Background(), 0)
	require.NoError(t, err)
	assert.Zero(t, n)
}
