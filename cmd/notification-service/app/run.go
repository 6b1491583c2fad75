package app

import (
	"fmt"
	"path/filepath"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/nodesandbox/event-bus-sample/configs"
	"github.com/nodesandbox/event-bus-sample/internal/adapter/http"
	"github.com/nodesandbox/event-bus-sample/internal/adapter/queue"
	"github.com/nodesandbox/event-bus-sample/internal/adapter/repo"
	"github.com/nodesandbox/event-bus-sample/internal/bootstrap"
	"github.com/nodesandbox/event-bus-sample/internal/event"
	"github.com/nodesandbox/event-bus-sample/internal/logging"
	"github.com/nodesandbox/event-bus-sample/internal/notification"
)

const serviceName = "notification-service"

func Run(cfg configs.Config) error {
	logging.Init(serviceName, filepath.Join(cfg.App.LogDir, serviceName+".log"))

	conn, err := amqp.Dial(cfg.Rabbit.URL)
	if err != nil {
		return fmt.Errorf("connect rabbitmq: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("open channel: %w", err)
	}
	bus, err := queue.NewRabbitBus(ch, cfg.Rabbit.Exchange, logging.New("bus"))
	if err != nil {
		return fmt.Errorf("init bus: %w", err)
	}

	svc := notification.NewService(repo.NewMemoryNotificationLog(), logging.New("sink"))

	d := queue.NewDispatcher(logging.New("dispatch"))
	d.Register(event.TypeOrderCreated, queue.On(svc.HandleOrderCreated))
	d.Register(event.TypeOrderCompleted, queue.On(svc.HandleOrderCompleted))
	d.Register(event.TypeOrderFailed, queue.On(svc.HandleOrderFailed))
	d.Register(event.TypePaymentSucceeded, queue.On(svc.HandlePaymentSucceeded))
	d.Register(event.TypePaymentFailed, queue.On(svc.HandlePaymentFailed))
	if err := bus.Subscribe(serviceName+".events.q", d); err != nil {
		return fmt.Errorf("subscribe: %w", err)
	}

	router := http.NewNotificationRouter(http.NewNotificationHandler(svc))

	cleanup := func() {
		_ = ch.Close()
		_ = conn.Close()
	}
	return bootstrap.Serve(serviceName, cfg.Services.Notification.HTTPAddr, router, cleanup)
}
