package inventory

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/nodesandbox/event-bus-sample/internal/event"
)

const source = "inventory-service"

// Applied-set scopes: one per effect direction.
const (
	scopeReserved = "reserved"
	scopeReleased = "released"
)

// Service is the inventory ledger. Check-then-reserve runs as one atomic
// unit under the ledger mutex, so two concurrently-processed orders can
// never both observe enough stock before either decrements. The applied-set
// makes both the reservation and the release at-most-once per order.
type Service struct {
	mu      sync.Mutex
	store   Store
	applied AppliedSet
	bus     event.Publisher
	log     *slog.Logger
}

func NewService(store Store, applied AppliedSet, bus event.Publisher, log *slog.Logger) *Service {
	return &Service{store: store, applied: applied, bus: bus, log: log}
}

// ListInventory returns a snapshot for the HTTP surface.
func (s *Service) ListInventory(ctx context.Context) ([]Product, error) {
	return s.store.List(ctx)
}

// HandleStockCheck answers a stock.check request. It always emits
// stock.check.response; iff every item is available it reserves the stock in
// the same step and emits stock.reserved. A redelivered check for an order
// that already reserved re-emits both events without touching stock.
func (s *Service) HandleStockCheck(ctx context.Context, p event.StockRequest) error {
	s.mu.Lock()

	already, err := s.applied.Has(ctx, scopeReserved, p.OrderID)
	if err != nil {
		s.mu.Unlock()
		return err
	}
	if already {
		resp := s.currentStatus(ctx, p)
		s.mu.Unlock()
		s.log.Info("duplicate stock check, reservation already applied", "order_id", p.OrderID)
		if err := s.publish(ctx, event.TypeStockCheckResponse, resp); err != nil {
			return err
		}
		return s.publish(ctx, event.TypeStockReserved, p)
	}

	resp := s.evaluate(ctx, p)
	if resp.Available {
		if _, err := s.applied.Apply(ctx, scopeReserved, p.OrderID); err != nil {
			s.mu.Unlock()
			return err
		}
		if err := s.reserve(ctx, p); err != nil {
			s.mu.Unlock()
			return err
		}
	}
	s.mu.Unlock()

	if err := s.publish(ctx, event.TypeStockCheckResponse, resp); err != nil {
		return err
	}
	if !resp.Available {
		s.log.Warn("stock unavailable", "order_id", p.OrderID)
		return nil
	}
	s.log.Info("stock reserved", "order_id", p.OrderID)
	return s.publish(ctx, event.TypeStockReserved, p)
}

// HandleStockReleased credits reserved quantities back. It applies only when
// the order actually reserved and has not been released yet, so redelivery
// and never-reserved orders cannot inflate stock.
func (s *Service) HandleStockReleased(ctx context.Context, p event.StockRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	reserved, err := s.applied.Has(ctx, scopeReserved, p.OrderID)
	if err != nil {
		return err
	}
	if !reserved {
		s.log.Warn("release for order with no reservation", "order_id", p.OrderID)
		return nil
	}

	first, err := s.applied.Apply(ctx, scopeReleased, p.OrderID)
	if err != nil {
		return err
	}
	if !first {
		s.log.Info("duplicate release ignored", "order_id", p.OrderID)
		return nil
	}

	for _, it := range p.Items {
		prod, err := s.store.Get(ctx, it.ProductID)
		if err != nil {
			s.log.Warn("release for unknown product", "order_id", p.OrderID, "product_id", it.ProductID)
			continue
		}
		prod.Stock += it.Quantity
		if err := s.store.Put(ctx, *prod); err != nil {
			return err
		}
	}
	s.log.Info("stock released", "order_id", p.OrderID)
	return nil
}

// evaluate computes availability without mutating. For a fully available
// order the response details every item with its current stock; otherwise it
// details only the failing items.
func (s *Service) evaluate(ctx context.Context, p event.StockRequest) event.StockCheckResponse {
	var failing []event.StockStatus
	for _, it := range p.Items {
		prod, err := s.store.Get(ctx, it.ProductID)
		switch {
		case err != nil:
			failing = append(failing, event.StockStatus{ProductID: it.ProductID, Available: false, CurrentStock: 0})
		case prod.Stock < it.Quantity:
			failing = append(failing, event.StockStatus{ProductID: it.ProductID, Available: false, CurrentStock: prod.Stock})
		}
	}
	if len(failing) > 0 {
		return event.StockCheckResponse{OrderID: p.OrderID, Available: false, Items: failing}
	}
	return s.currentStatus(ctx, p)
}

// currentStatus reports every requested item as available with its current
// stock. Callers hold the ledger mutex.
func (s *Service) currentStatus(ctx context.Context, p event.StockRequest) event.StockCheckResponse {
	items := make([]event.StockStatus, 0, len(p.Items))
	for _, it := range p.Items {
		stock := 0
		if prod, err := s.store.Get(ctx, it.ProductID); err == nil {
			stock = prod.Stock
		}
		items = append(items, event.StockStatus{ProductID: it.ProductID, Available: true, CurrentStock: stock})
	}
	return event.StockCheckResponse{OrderID: p.OrderID, Available: true, Items: items}
}

// reserve decrements each item's stock. Callers hold the ledger mutex and
// have already verified availability, so a would-be negative stock here is a
// programming defect, not a runtime condition.
func (s *Service) reserve(ctx context.Context, p event.StockRequest) error {
	for _, it := range p.Items {
		prod, err := s.store.Get(ctx, it.ProductID)
		if err != nil {
			return fmt.Errorf("reserve %s: %w", it.ProductID, err)
		}
		if prod.Stock < it.Quantity {
			return fmt.Errorf("oversell on %s: stock %d, requested %d", it.ProductID, prod.Stock, it.Quantity)
		}
		prod.Stock -= it.Quantity
		if err := s.store.Put(ctx, *prod); err != nil {
			return err
		}
	}
	return nil
}

func (s *Service) publish(ctx context.Context, t event.Type, payload any) error {
	ev, err := event.New(t, source, payload)
	if err != nil {
		return err
	}
	return s.bus.Publish(ctx, ev)
}
