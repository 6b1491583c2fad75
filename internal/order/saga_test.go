package order_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nodesandbox/event-bus-sample/internal/adapter/queue"
	"github.com/nodesandbox/event-bus-sample/internal/adapter/repo"
	"github.com/nodesandbox/event-bus-sample/internal/event"
	"github.com/nodesandbox/event-bus-sample/internal/inventory"
	"github.com/nodesandbox/event-bus-sample/internal/notification"
	"github.com/nodesandbox/event-bus-sample/internal/order"
	"github.com/nodesandbox/event-bus-sample/internal/payment"
)

// saga wires all four services to one in-process bus, mirroring the per-service
// wiring in cmd/. MemoryBus delivers synchronously, so a CreateOrder call runs
// the whole choreography before it returns.
type saga struct {
	orders        *order.Service
	inventory     *inventory.Service
	payments      *payment.Service
	notifications *notification.Service
	stock         *repo.MemoryInventoryStore
	bus           *queue.MemoryBus
}

func newSaga(t *testing.T, approve payment.OutcomePolicy) *saga {
	t.Helper()
	bus := queue.NewMemoryBus()
	log := discard()

	stock := repo.NewMemoryInventoryStore([]inventory.Product{
		{ID: "PROD1", Name: "Laptop", Stock: 10},
		{ID: "PROD2", Name: "Phone", Stock: 20},
	})

	s := &saga{
		orders:        order.NewService(repo.NewMemoryOrderRepo(), repo.NewMemoryIdempotencyStore(), bus, log),
		inventory:     inventory.NewService(stock, repo.NewMemoryAppliedSet(), bus, log),
		payments:      payment.NewService(repo.NewMemoryPaymentRepo(), approve, bus, log),
		notifications: notification.NewService(repo.NewMemoryNotificationLog(), log),
		stock:         stock,
		bus:           bus,
	}

	od := queue.NewDispatcher(log)
	od.Register(event.TypeStockCheckResponse, queue.On(s.orders.HandleStockCheckResponse))
	od.Register(event.TypeStockReserved, queue.On(s.orders.HandleStockReserved))
	od.Register(event.TypePaymentSucceeded, queue.On(s.orders.HandlePaymentSucceeded))
	od.Register(event.TypePaymentFailed, queue.On(s.orders.HandlePaymentFailed))
	require.NoError(t, bus.Subscribe("order-service.events.q", od))

	id := queue.NewDispatcher(log)
	id.Register(event.TypeStockCheck, queue.On(s.inventory.HandleStockCheck))
	id.Register(event.TypeStockReleased, queue.On(s.inventory.HandleStockReleased))
	require.NoError(t, bus.Subscribe("inventory-service.events.q", id))

	pd := queue.NewDispatcher(log)
	pd.Register(event.TypePaymentInitiated, queue.On(s.payments.HandlePaymentInitiated))
	require.NoError(t, bus.Subscribe("payment-service.events.q", pd))

	nd := queue.NewDispatcher(log)
	nd.Register(event.TypeOrderCreated, queue.On(s.notifications.HandleOrderCreated))
	nd.Register(event.TypeOrderCompleted, queue.On(s.notifications.HandleOrderCompleted))
	nd.Register(event.TypeOrderFailed, queue.On(s.notifications.HandleOrderFailed))
	nd.Register(event.TypePaymentSucceeded, queue.On(s.notifications.HandlePaymentSucceeded))
	nd.Register(event.TypePaymentFailed, queue.On(s.notifications.HandlePaymentFailed))
	require.NoError(t, bus.Subscribe("notification-service.events.q", nd))

	return s
}

func (s *saga) stockOf(t *testing.T, productID string) int {
	t.Helper()
	prod, err := s.stock.Get(context.Background(), productID)
	require.NoError(t, err)
	return prod.Stock
}

func (s *saga) messages(t *testing.T) []string {
	t.Helper()
	ns, err := s.notifications.ListNotifications(context.Background())
	require.NoError(t, err)
	out := make([]string, len(ns))
	for i, n := range ns {
		out[i] = n.Message
	}
	return out
}

func TestSaga_HappyPath(t *testing.T) {
	s := newSaga(t, payment.FixedPolicy(true))

	o, err := s.orders.CreateOrder(context.Background(), "user1",
		[]event.OrderItem{{ProductID: "PROD1", Quantity: 2, Price: 500}}, "")
	require.NoError(t, err)
	assert.Equal(t, 1000.0, o.TotalAmount)

	got, err := s.orders.GetOrder(context.Background(), o.OrderID)
	require.NoError(t, err)
	assert.Equal(t, order.StatusCompleted, got.Status)
	assert.Equal(t, 8, s.stockOf(t, "PROD1"))
	assert.Equal(t, 20, s.stockOf(t, "PROD2"))

	msgs := s.messages(t)
	assert.Contains(t, msgs, "new order created: "+o.OrderID)
	assert.Contains(t, msgs, "payment succeeded for order: "+o.OrderID)
	assert.Contains(t, msgs, "order completed: "+o.OrderID)
}

func TestSaga_StockUnavailable(t *testing.T) {
	s := newSaga(t, payment.FixedPolicy(true))

	o, err := s.orders.CreateOrder(context.Background(), "user1",
		[]event.OrderItem{{ProductID: "PROD1", Quantity: 50, Price: 500}}, "")
	require.NoError(t, err)

	got, err := s.orders.GetOrder(context.Background(), o.OrderID)
	require.NoError(t, err)
	assert.Equal(t, order.StatusFailed, got.Status)
	// Nothing was reserved, nothing moved.
	assert.Equal(t, 10, s.stockOf(t, "PROD1"))

	// No payment was ever initiated for an unavailable order.
	msgs := s.messages(t)
	assert.Contains(t, msgs, "order failed: "+o.OrderID)
	assert.NotContains(t, msgs, "payment succeeded for order: "+o.OrderID)
	assert.NotContains(t, msgs, "payment failed for order: "+o.OrderID)
}

func TestSaga_PaymentFailureReleasesStock(t *testing.T) {
	s := newSaga(t, payment.FixedPolicy(false))

	o, err := s.orders.CreateOrder(context.Background(), "user1",
		[]event.OrderItem{{ProductID: "PROD1", Quantity: 1, Price: 999.99}}, "")
	require.NoError(t, err)

	got, err := s.orders.GetOrder(context.Background(), o.OrderID)
	require.NoError(t, err)
	assert.Equal(t, order.StatusFailed, got.Status)
	// Reserved then compensated: back to the seeded level.
	assert.Equal(t, 10, s.stockOf(t, "PROD1"))

	msgs := s.messages(t)
	assert.Contains(t, msgs, "payment failed for order: "+o.OrderID)
	assert.Contains(t, msgs, "order failed: "+o.OrderID)
}

func TestSaga_DuplicateStockCheckReservesOnce(t *testing.T) {
	s := newSaga(t, payment.FixedPolicy(true))

	o, err := s.orders.CreateOrder(context.Background(), "user1",
		[]event.OrderItem{{ProductID: "PROD2", Quantity: 3, Price: 100}}, "")
	require.NoError(t, err)
	assert.Equal(t, 17, s.stockOf(t, "PROD2"))

	// Redeliver the stock.check for the now-completed order. The ledger must
	// not decrement again, and the replayed stock.reserved must not complete
	// or charge anything twice.
	ev, err := event.New(event.TypeStockCheck, "order-service", event.StockRequest{
		OrderID: o.OrderID,
		Items:   []event.StockItem{{ProductID: "PROD2", Quantity: 3}},
	})
	require.NoError(t, err)
	require.NoError(t, s.bus.Publish(context.Background(), ev))

	assert.Equal(t, 17, s.stockOf(t, "PROD2"))
	got, err := s.orders.GetOrder(context.Background(), o.OrderID)
	require.NoError(t, err)
	assert.Equal(t, order.StatusCompleted, got.Status)

	var completions int
	for _, m := range s.messages(t) {
		if m == "order completed: "+o.OrderID {
			completions++
		}
	}
	assert.Equal(t, 1, completions)
}

func TestSaga_ExpiryCompensatesReservedOrders(t *testing.T) {
	// Payment service is not wired here, so orders stall PENDING after the
	// reservation, like a crashed authorizer.
	bus := queue.NewMemoryBus()
	log := discard()
	stock := repo.NewMemoryInventoryStore([]inventory.Product{{ID: "PROD1", Name: "Laptop", Stock: 10}})
	orders := order.NewService(repo.NewMemoryOrderRepo(), repo.NewMemoryIdempotencyStore(), bus, log)
	inv := inventory.NewService(stock, repo.NewMemoryAppliedSet(), bus, log)

	id := queue.NewDispatcher(log)
	id.Register(event.TypeStockCheck, queue.On(inv.HandleStockCheck))
	id.Register(event.TypeStockReleased, queue.On(inv.HandleStockReleased))
	require.NoError(t, bus.Subscribe("inventory-service.events.q", id))

	o, err := orders.CreateOrder(context.Background(), "user1",
		[]event.OrderItem{{ProductID: "PROD1", Quantity: 4, Price: 100}}, "")
	require.NoError(t, err)

	prod, err := stock.Get(context.Background(), "PROD1")
	require.NoError(t, err)
	require.Equal(t, 6, prod.Stock)

	n, err := orders.ExpireStale(context.Background(), 0)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	got, err := orders.GetOrder(context.Background(), o.OrderID)
	require.NoError(t, err)
	assert.Equal(t, order.StatusFailed, got.Status)

	prod, err = stock.Get(context.Background(), "PROD1")
	require.NoError(t, err)
	assert.Equal(t, 10, prod.Stock)
}
