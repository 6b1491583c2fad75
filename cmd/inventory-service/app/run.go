package app

import (
	"context"
	"fmt"
	"path/filepath"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"

	"github.com/nodesandbox/event-bus-sample/configs"
	"github.com/nodesandbox/event-bus-sample/internal/adapter/cache"
	"github.com/nodesandbox/event-bus-sample/internal/adapter/http"
	"github.com/nodesandbox/event-bus-sample/internal/adapter/queue"
	"github.com/nodesandbox/event-bus-sample/internal/adapter/repo"
	"github.com/nodesandbox/event-bus-sample/internal/bootstrap"
	"github.com/nodesandbox/event-bus-sample/internal/event"
	"github.com/nodesandbox/event-bus-sample/internal/inventory"
	"github.com/nodesandbox/event-bus-sample/internal/logging"
)

const serviceName = "inventory-service"

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

	seed := make([]inventory.Product, len(cfg.Inventory.Seed))
	for i, p := range cfg.Inventory.Seed {
		seed[i] = inventory.Product{ID: p.ID, Name: p.Name, Stock: p.Stock}
	}
	store := repo.NewMemoryInventoryStore(seed)

	// The applied-set is the reserve/release at-most-once guard. Redis keeps
	// it across restarts when configured; otherwise it lives with the ledger.
	var applied inventory.AppliedSet = repo.NewMemoryAppliedSet()
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
		applied = cache.NewRedisAppliedSet(rdb)
	}

	svc := inventory.NewService(store, applied, bus, logging.New("ledger"))

	d := queue.NewDispatcher(logging.New("dispatch"))
	d.Register(event.TypeStockCheck, queue.On(svc.HandleStockCheck))
	d.Register(event.TypeStockReleased, queue.On(svc.HandleStockReleased))
	if err := bus.Subscribe(serviceName+".events.q", d); err != nil {
		return fmt.Errorf("subscribe: %w", err)
	}

	router := http.NewInventoryRouter(http.NewInventoryHandler(svc))

	cleanup := func() {
		_ = ch.Close()
		_ = conn.Close()
		if rdb != nil {
			_ = rdb.Close()
		}
	}
	return bootstrap.Serve(serviceName, cfg.Services.Inventory.HTTPAddr, router, cleanup)
}
