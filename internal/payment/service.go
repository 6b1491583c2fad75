package payment

import (
	"context"
	"log/slog"

	"github.com/nodesandbox/event-bus-sample/internal/event"
)

const source = "payment-service"

// Service is the payment authorizer. One attempt is decided and recorded per
// paymentId; a redelivered payment.initiated re-announces the recorded
// outcome instead of deciding again, so an order can never be charged twice
// for the same attempt.
type Service struct {
	repo   Repo
	policy OutcomePolicy
	bus    event.Publisher
	log    *slog.Logger
}

func NewService(repo Repo, policy OutcomePolicy, bus event.Publisher, log *slog.Logger) *Service {
	return &Service{repo: repo, policy: policy, bus: bus, log: log}
}

// HandlePaymentInitiated decides the outcome, records it, and announces
// payment.succeeded or payment.failed.
func (s *Service) HandlePaymentInitiated(ctx context.Context, p event.PaymentRequest) error {
	status := StatusFailed
	if s.policy.Approve(p.OrderID, p.Amount) {
		status = StatusSuccess
	}

	rec, created, err := s.repo.CreateIfAbsent(ctx, &Payment{
		PaymentID: p.PaymentID,
		OrderID:   p.OrderID,
		Amount:    p.Amount,
		Status:    status,
	})
	if err != nil {
		return err
	}
	if !created {
		s.log.Info("duplicate payment attempt, re-announcing recorded outcome",
			"payment_id", p.PaymentID, "order_id", p.OrderID, "status", rec.Status)
	} else {
		s.log.Info("payment processed",
			"payment_id", p.PaymentID, "order_id", p.OrderID, "amount", p.Amount, "status", rec.Status)
	}

	t := event.TypePaymentFailed
	if rec.Status == StatusSuccess {
		t = event.TypePaymentSucceeded
	}
	ev, err := event.New(t, source, event.PaymentResult{OrderID: p.OrderID, PaymentID: p.PaymentID})
	if err != nil {
		return err
	}
	return s.bus.Publish(ctx, ev)
}

// GetPayment is the read-side lookup for the HTTP surface.
func (s *Service) GetPayment(ctx context.Context, paymentID string) (*Payment, error) {
	return s.repo.Get(ctx, paymentID)
}
