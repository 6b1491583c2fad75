package queue

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/nodesandbox/event-bus-sample/internal/event"
)

// HandlerFunc processes a single delivered envelope. It should be idempotent:
// the bus is at-least-once and may redeliver.
// Return nil => ACK; return error => NACK (requeue behavior controlled by the bus).
type HandlerFunc func(ctx context.Context, ev event.Envelope) error

// On adapts a typed function into a HandlerFunc. It decodes the envelope's
// data into T and calls fn.
func On[T any](fn func(ctx context.Context, payload T) error) HandlerFunc {
	return func(ctx context.Context, ev event.Envelope) error {
		p, err := ev.Decode()
		if err != nil {
			return err
		}
		v, ok := p.(T)
		if !ok {
			return fmt.Errorf("event %s decoded to %T, handler wants %T", ev.Type, p, v)
		}
		return fn(ctx, v)
	}
}

// Dispatcher maps event types to handlers for one subscriber.
type Dispatcher struct {
	handlers map[event.Type]HandlerFunc
	log      *slog.Logger
}

func NewDispatcher(log *slog.Logger) *Dispatcher {
	return &Dispatcher{
		handlers: make(map[event.Type]HandlerFunc),
		log:      log,
	}
}

// Register associates an event type with a handler. Call once per type.
func (d *Dispatcher) Register(t event.Type, h HandlerFunc) {
	d.handlers[t] = h
}

// Types lists the registered event types, i.e. the subscription set.
func (d *Dispatcher) Types() []event.Type {
	types := make([]event.Type, 0, len(d.handlers))
	for t := range d.handlers {
		types = append(types, t)
	}
	return types
}

// Dispatch routes an envelope to its handler. Envelopes with no registered
// handler are dropped with a warning: queue bindings should make this rare,
// but a stale binding must not wedge the consumer.
func (d *Dispatcher) Dispatch(ctx context.Context, ev event.Envelope) error {
	h, ok := d.handlers[ev.Type]
	if !ok {
		d.log.Warn("no handler for event", "type", ev.Type, "event_id", ev.ID)
		return nil
	}
	return h(ctx, ev)
}
