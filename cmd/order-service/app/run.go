package app

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"

	"github.com/nodesandbox/event-bus-sample/configs"
	"github.com/nodesandbox/event-bus-sample/internal/adapter/cache"
	"github.com/nodesandbox/event-bus-sample/internal/adapter/http"
	"github.com/nodesandbox/event-bus-sample/internal/adapter/queue"
	"github.com/nodesandbox/event-bus-sample/internal/adapter/repo"
	"github.com/nodesandbox/event-bus-sample/internal/bootstrap"
	"github.com/nodesandbox/event-bus-sample/internal/event"
	"github.com/nodesandbox/event-bus-sample/internal/logging"
	"github.com/nodesandbox/event-bus-sample/internal/order"
)

const serviceName = "order-service"

func Run(cfg configs.Config) error {
	logging.Init(serviceName, filepath.Join(cfg.App.LogDir, serviceName+".log"))

	// Bus unavailable at startup is fatal: the saga cannot run without it.
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

	orderRepo := repo.NewMemoryOrderRepo()

	var idem order.IdempotencyStore = repo.NewMemoryIdempotencyStore()
	var rdb *redis.Client
	if cfg.Redis.Addr != "" {
		rdb = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       0,
		})
		if err := rdb.Ping(context.Background()).Err(); err != nil {
			return fmt.Errorf("ping redis: %w", err)
		}
		idem = cache.NewRedisIdempotencyStore(rdb, cfg.Idempotency.TTL)
	}

	svc := order.NewService(orderRepo, idem, bus, logging.New("saga"))

	d := queue.NewDispatcher(logging.New("dispatch"))
	d.Register(event.TypeStockCheckResponse, queue.On(svc.HandleStockCheckResponse))
	d.Register(event.TypeStockReserved, queue.On(svc.HandleStockReserved))
	d.Register(event.TypePaymentSucceeded, queue.On(svc.HandlePaymentSucceeded))
	d.Register(event.TypePaymentFailed, queue.On(svc.HandlePaymentFailed))
	if err := bus.Subscribe(serviceName+".events.q", d); err != nil {
		return fmt.Errorf("subscribe: %w", err)
	}

	sweepCtx, stopSweep := context.WithCancel(context.Background())
	interval := cfg.Order.SweepInterval
	if interval <= 0 {
		interval = 30 * time.Second
	}
	svc.StartSweeper(sweepCtx, interval, cfg.Order.PendingTimeout)

	router := http.NewOrderRouter(http.NewOrderHandler(svc))

	cleanup := func() {
		stopSweep()
		_ = ch.Close()
		_ = conn.Close()
		if rdb != nil {
			_ = rdb.Close()
		}
	}
	return bootstrap.Serve(serviceName, cfg.Services.Order.HTTPAddr, router, cleanup)
}
