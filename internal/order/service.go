package order

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/nodesandbox/event-bus-sample/internal/event"
)

const source = "order-service"

// Service is the order saga controller. It owns the order state machine and
// is the only component that decides when an order is PENDING, COMPLETED or
// FAILED. Every event handler re-checks the PENDING status before mutating:
// the bus is at-least-once and unordered, so only the first winning event for
// an order causes a transition and every later or duplicate event is a no-op.
type Service struct {
	repo Repo
	idem IdempotencyStore
	bus  event.Publisher
	log  *slog.Logger

	now   func() time.Time
	newID func() string
}

func NewService(repo Repo, idem IdempotencyStore, bus event.Publisher, log *slog.Logger) *Service {
	return &Service{
		repo:  repo,
		idem:  idem,
		bus:   bus,
		log:   log,
		now:   time.Now,
		newID: uuid.NewString,
	}
}

// CreateOrder validates the submission, records the order as PENDING and
// kicks off the saga by emitting order.created and stock.check. The optional
// idemKey dedupes client retries of the same submission.
func (s *Service) CreateOrder(ctx context.Context, userID string, items []event.OrderItem, idemKey string) (*Order, error) {
	if userID == "" {
		return nil, ErrInvalidRequest
	}
	if err := validateItems(items); err != nil {
		return nil, err
	}

	if idemKey != "" {
		if id, ok, _ := s.idem.Recall(ctx, userID, idemKey); ok {
			return s.repo.Get(ctx, id)
		}
		ok, err := s.idem.TryLock(ctx, userID, idemKey)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, ErrDuplicate
		}
	}

	o := &Order{
		OrderID:     s.newID(),
		UserID:      userID,
		Items:       items,
		TotalAmount: totalAmount(items),
		Status:      StatusPending,
		CreatedAt:   s.now(),
	}
	if err := s.repo.Create(ctx, o); err != nil {
		return nil, err
	}
	s.log.Info("order created", "order_id", o.OrderID, "user_id", userID, "total", o.TotalAmount)

	if err := s.publish(ctx, event.TypeOrderCreated, o.Data()); err != nil {
		return nil, err
	}
	if err := s.publish(ctx, event.TypeStockCheck, event.StockRequest{
		OrderID: o.OrderID,
		Items:   o.StockItems(),
	}); err != nil {
		return nil, err
	}

	if idemKey != "" {
		_ = s.idem.Remember(ctx, userID, idemKey, o.OrderID)
	}
	return o, nil
}

// GetOrder is the read-side lookup for the HTTP surface.
func (s *Service) GetOrder(ctx context.Context, orderID string) (*Order, error) {
	return s.repo.Get(ctx, orderID)
}

// HandleStockCheckResponse fails the order when stock is unavailable.
// When stock is available it does nothing: the inventory ledger confirms
// availability through the separate stock.reserved event.
func (s *Service) HandleStockCheckResponse(ctx context.Context, p event.StockCheckResponse) error {
	if p.Available {
		s.log.Info("stock available, awaiting reservation", "order_id", p.OrderID)
		return nil
	}

	if _, err := s.repo.Get(ctx, p.OrderID); err != nil {
		s.logUnknown(ctx, event.TypeStockCheckResponse, p.OrderID)
		return nil
	}
	ok, err := s.repo.UpdateStatusIf(ctx, p.OrderID, StatusPending, StatusFailed)
	if err != nil {
		return err
	}
	if !ok {
		s.logStale(ctx, event.TypeStockCheckResponse, p.OrderID)
		return nil
	}

	s.log.Warn("stock unavailable, order failed", "order_id", p.OrderID)
	return s.publish(ctx, event.TypeOrderFailed, event.OrderFailed{OrderID: p.OrderID})
}

// HandleStockReserved initiates payment for a still-PENDING order. The order
// stays PENDING until the payment outcome arrives. The payment id is minted
// once and pinned on the record, so a redelivered reservation re-requests the
// same attempt instead of charging twice.
func (s *Service) HandleStockReserved(ctx context.Context, p event.StockRequest) error {
	o, err := s.repo.Get(ctx, p.OrderID)
	if err != nil {
		s.logUnknown(ctx, event.TypeStockReserved, p.OrderID)
		return nil
	}
	if o.Status != StatusPending {
		s.logStale(ctx, event.TypeStockReserved, p.OrderID)
		return nil
	}

	paymentID, err := s.repo.SetPaymentID(ctx, p.OrderID, s.newID())
	if err != nil {
		return err
	}

	return s.publish(ctx, event.TypePaymentInitiated, event.PaymentRequest{
		OrderID:   p.OrderID,
		Amount:    o.TotalAmount,
		PaymentID: paymentID,
	})
}

// HandlePaymentSucceeded completes the order.
func (s *Service) HandlePaymentSucceeded(ctx context.Context, p event.PaymentResult) error {
	if _, err := s.repo.Get(ctx, p.OrderID); err != nil {
		s.logUnknown(ctx, event.TypePaymentSucceeded, p.OrderID)
		return nil
	}
	ok, err := s.repo.UpdateStatusIf(ctx, p.OrderID, StatusPending, StatusCompleted)
	if err != nil {
		return err
	}
	if !ok {
		s.logStale(ctx, event.TypePaymentSucceeded, p.OrderID)
		return nil
	}

	o, err := s.repo.Get(ctx, p.OrderID)
	if err != nil {
		return err
	}
	s.log.Info("order completed", "order_id", p.OrderID, "payment_id", p.PaymentID)
	return s.publish(ctx, event.TypeOrderCompleted, o.Data())
}

// HandlePaymentFailed fails the order and compensates the earlier
// reservation by emitting stock.released with the order's items.
func (s *Service) HandlePaymentFailed(ctx context.Context, p event.PaymentResult) error {
	if _, err := s.repo.Get(ctx, p.OrderID); err != nil {
		s.logUnknown(ctx, event.TypePaymentFailed, p.OrderID)
		return nil
	}
	ok, err := s.repo.UpdateStatusIf(ctx, p.OrderID, StatusPending, StatusFailed)
	if err != nil {
		return err
	}
	if !ok {
		s.logStale(ctx, event.TypePaymentFailed, p.OrderID)
		return nil
	}

	o, err := s.repo.Get(ctx, p.OrderID)
	if err != nil {
		return err
	}
	s.log.Warn("payment failed, order failed", "order_id", p.OrderID, "payment_id", p.PaymentID)

	if err := s.publish(ctx, event.TypeOrderFailed, event.OrderFailed{OrderID: p.OrderID}); err != nil {
		return err
	}
	return s.publish(ctx, event.TypeStockReleased, event.StockRequest{
		OrderID: p.OrderID,
		Items:   o.StockItems(),
	})
}

// ExpireStale fails every PENDING order older than maxAge and releases any
// stock reserved for it. The inventory ledger ignores releases for orders it
// never reserved, so this is safe even when the saga stalled before the
// reservation. Returns the number of orders expired.
func (s *Service) ExpireStale(ctx context.Context, maxAge time.Duration) (int, error) {
	stale, err := s.repo.PendingBefore(ctx, s.now().Add(-maxAge))
	if err != nil {
		return 0, err
	}

	expired := 0
	for _, o := range stale {
		ok, err := s.repo.UpdateStatusIf(ctx, o.OrderID, StatusPending, StatusFailed)
		if err != nil {
			return expired, err
		}
		if !ok {
			continue // resolved between the scan and the transition
		}
		expired++
		s.log.Warn("order expired", "order_id", o.OrderID, "age", s.now().Sub(o.CreatedAt).String())

		if err := s.publish(ctx, event.TypeOrderFailed, event.OrderFailed{OrderID: o.OrderID}); err != nil {
			return expired, err
		}
		if err := s.publish(ctx, event.TypeStockReleased, event.StockRequest{
			OrderID: o.OrderID,
			Items:   o.StockItems(),
		}); err != nil {
			return expired, err
		}
	}
	return expired, nil
}

// StartSweeper runs ExpireStale on a ticker until ctx is done.
func (s *Service) StartSweeper(ctx context.Context, interval, maxAge time.Duration) {
	go func() {
		t := time.NewTicker(interval)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				if _, err := s.ExpireStale(ctx, maxAge); err != nil {
					s.log.Error("expiry sweep failed", "err", err)
				}
			}
		}
	}()
}

func (s *Service) publish(ctx context.Context, t event.Type, payload any) error {
	ev, err := event.New(t, source, payload)
	if err != nil {
		return err
	}
	if err := s.bus.Publish(ctx, ev); err != nil {
		return fmt.Errorf("publish %s: %w", t, err)
	}
	return nil
}

func (s *Service) logStale(_ context.Context, t event.Type, orderID string) {
	s.log.Info("ignoring event for non-pending order", "type", t, "order_id", orderID)
}

func (s *Service) logUnknown(_ context.Context, t event.Type, orderID string) {
	s.log.Warn("event for unknown order", "type", t, "order_id", orderID)
}
