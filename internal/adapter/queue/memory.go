package queue

import (
	"context"
	"sync"

	"github.com/nodesandbox/event-bus-sample/internal/event"
)

// MemoryBus is an in-process bus with the same contract as RabbitBus:
// subscribers get every event whose type they registered, in publish order.
// Used by the choreography tests and by bus-less local runs. Handler errors
// are not redelivered; tests exercise duplicates by publishing twice.
type MemoryBus struct {
	mu   sync.Mutex
	subs []*Dispatcher
}

func NewMemoryBus() *MemoryBus {
	return &MemoryBus{}
}

// Subscribe registers a dispatcher. queueName is accepted for interface
// symmetry with RabbitBus and otherwise ignored.
func (b *MemoryBus) Subscribe(queueName string, d *Dispatcher) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subs = append(b.subs, d)
	return nil
}

// Publish delivers the envelope synchronously to every matching subscriber.
// Services must not hold internal locks across Publish, which also holds for
// the real bus.
func (b *MemoryBus) Publish(ctx context.Context, ev event.Envelope) error {
	b.mu.Lock()
	subs := make([]*Dispatcher, len(b.subs))
	copy(subs, b.subs)
	b.mu.Unlock()

	for _, d := range subs {
		if _, ok := d.handlers[ev.Type]; !ok {
			continue
		}
		if err := d.Dispatch(ctx, ev); err != nil {
			d.log.Error("handler error", "type", ev.Type, "event_id", ev.ID, "err", err)
		}
	}
	return nil
}

var _ event.Publisher = (*MemoryBus)(nil)
