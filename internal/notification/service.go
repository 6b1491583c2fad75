package notification

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/nodesandbox/event-bus-sample/internal/event"
)

// Notification is one human-readable record of a lifecycle event.
type Notification struct {
	ID        int        `json:"id"`
	Timestamp time.Time  `json:"timestamp"`
	Type      event.Type `json:"type"`
	Message   string     `json:"message"`
}

// Log is the append-only store behind the sink.
type Log interface {
	Append(ctx context.Context, t event.Type, message string) (Notification, error)
	List(ctx context.Context) ([]Notification, error)
}

// Service is the notification sink: a stateless fan-in consumer of lifecycle
// events. It records a message per event and knows nothing about orders, so
// events for unknown orders are fine by construction.
type Service struct {
	store Log
	log   *slog.Logger
}

func NewService(store Log, log *slog.Logger) *Service {
	return &Service{store: store, log: log}
}

func (s *Service) HandleOrderCreated(ctx context.Context, p event.OrderData) error {
	return s.append(ctx, event.TypeOrderCreated, fmt.Sprintf("new order created: %s", p.OrderID))
}

func (s *Service) HandleOrderCompleted(ctx context.Context, p event.OrderData) error {
	return s.append(ctx, event.TypeOrderCompleted, fmt.Sprintf("order completed: %s", p.OrderID))
}

func (s *Service) HandleOrderFailed(ctx context.Context, p event.OrderFailed) error {
	return s.append(ctx, event.TypeOrderFailed, fmt.Sprintf("order failed: %s", p.OrderID))
}

func (s *Service) HandlePaymentSucceeded(ctx context.Context, p event.PaymentResult) error {
	return s.append(ctx, event.TypePaymentSucceeded, fmt.Sprintf("payment succeeded for order: %s", p.OrderID))
}

func (s *Service) HandlePaymentFailed(ctx context.Context, p event.PaymentResult) error {
	return s.append(ctx, event.TypePaymentFailed, fmt.Sprintf("payment failed for order: %s", p.OrderID))
}

// ListNotifications is the read-side for the HTTP surface.
func (s *Service) ListNotifications(ctx context.Context) ([]Notification, error) {
	return s.store.List(ctx)
}

func (s *Service) append(ctx context.Context, t event.Type, message string) error {
	n, err := s.store.Append(ctx, t, message)
	if err != nil {
		return err
	}
	s.log.Info("notification", "id", n.ID, "type", t, "message", message)
	return nil
}
