package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/nodesandbox/event-bus-sample/internal/event"
)

// RabbitBus is the RabbitMQ implementation of the event bus contract: a
// topic exchange where the routing key is the event type, and one durable
// queue per subscribing service. Delivery is at-least-once; handlers must
// tolerate duplicates.
type RabbitBus struct {
	ch          *amqp.Channel
	exchange    string
	callTimeout time.Duration
	log         *slog.Logger
}

// --- Options ---

type BusOption func(*RabbitBus)

func WithCallTimeout(d time.Duration) BusOption {
	return func(b *RabbitBus) { b.callTimeout = d }
}

// NewRabbitBus declares the topic exchange and enables publisher confirms so
// Publish does not return before the broker accepted the event.
func NewRabbitBus(ch *amqp.Channel, exchange string, log *slog.Logger, opts ...BusOption) (*RabbitBus, error) {
	if err := ch.ExchangeDeclare(
		exchange,
		"topic",
		true,  // durable
		false, // auto-delete
		false, // internal
		false, // no-wait
		nil,
	); err != nil {
		return nil, fmt.Errorf("declare exchange: %w", err)
	}

	if err := ch.Confirm(false); err != nil {
		return nil, fmt.Errorf("enable confirm mode: %w", err)
	}

	b := &RabbitBus{
		ch:          ch,
		exchange:    exchange,
		callTimeout: 10 * time.Second,
		log:         log,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b, nil
}

// Publish sends the envelope to the exchange with its type as routing key.
func (b *RabbitBus) Publish(ctx context.Context, ev event.Envelope) error {
	body, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal envelope: %w", err)
	}

	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent, // survive broker restarts
		MessageId:    ev.ID,
		Timestamp:    ev.Timestamp,
		Type:         string(ev.Type),
		Body:         body,
	}

	if err := b.ch.PublishWithContext(
		ctx,
		b.exchange,
		string(ev.Type), // routing key
		false,           // mandatory
		false,           // immediate
		pub,
	); err != nil {
		return fmt.Errorf("publish %s: %w", ev.Type, err)
	}

	eventsPublished.WithLabelValues(string(ev.Type)).Inc()
	return nil
}

// Subscribe declares the subscriber's durable queue, binds it to every event
// type the dispatcher handles, and starts one consumer goroutine.
func (b *RabbitBus) Subscribe(queueName string, d *Dispatcher) error {
	q, err := b.ch.QueueDeclare(
		queueName,
		true,  // durable
		false, // auto-delete
		false, // exclusive
		false, // no-wait
		nil,
	)
	if err != nil {
		return fmt.Errorf("declare queue: %w", err)
	}

	for _, t := range d.Types() {
		if err := b.ch.QueueBind(q.Name, string(t), b.exchange, false, nil); err != nil {
			return fmt.Errorf("bind %s: %w", t, err)
		}
	}

	if err := b.ch.Qos(50, 0, false); err != nil {
		return fmt.Errorf("set qos: %w", err)
	}

	deliveries, err := b.ch.Consume(
		q.Name,
		"c_"+queueName,
		false, // manual ack
		false, // exclusive
		false, // no-local
		false, // no-wait
		nil,
	)
	if err != nil {
		return fmt.Errorf("consume: %w", err)
	}

	go b.consume(queueName, d, deliveries)
	return nil
}

func (b *RabbitBus) consume(queueName string, d *Dispatcher, msgs <-chan amqp.Delivery) {
	for m := range msgs {
		var ev event.Envelope
		if err := json.Unmarshal(m.Body, &ev); err != nil {
			b.log.Error("drop undecodable delivery", "queue", queueName, "rk", m.RoutingKey, "err", err)
			_ = m.Ack(false) // poison; requeueing cannot fix it
			continue
		}

		ctx, cancel := context.WithTimeout(context.Background(), b.callTimeout)
		err := d.Dispatch(ctx, ev)
		cancel()

		eventsConsumed.WithLabelValues(string(ev.Type)).Inc()
		if err != nil {
			handlerErrors.WithLabelValues(string(ev.Type)).Inc()
			b.log.Error("handler error", "queue", queueName, "type", ev.Type, "event_id", ev.ID, "err", err)
			_ = m.Nack(false, true) // redeliver; handlers are idempotent
			continue
		}
		_ = m.Ack(false)
	}
	b.log.Info("consumer stopped", "queue", queueName)
}
