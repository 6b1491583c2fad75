package configs

import (
	"fmt"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

type SeedProduct struct {
	ID    string `koanf:"id"`
	Name  string `koanf:"name"`
	Stock int    `koanf:"stock"`
}

type ServiceConfig struct {
	HTTPAddr string `koanf:"http_addr"`
}

type Config struct {
	App struct {
		Name   string `koanf:"name"`
		LogDir string `koanf:"log_dir"`
	} `koanf:"app"`

	Services struct {
		Order        ServiceConfig `koanf:"order"`
		Inventory    ServiceConfig `koanf:"inventory"`
		Payment      ServiceConfig `koanf:"payment"`
		Notification ServiceConfig `koanf:"notification"`
	} `koanf:"services"`

	Rabbit struct {
		URL      string `koanf:"url"`
		Exchange string `koanf:"exchange"`
	} `koanf:"rabbitmq"`

	Redis struct {
		Addr     string `koanf:"addr"`
		Password string `koanf:"password"`
	} `koanf:"redis"`

	Idempotency struct {
		TTL time.Duration `koanf:"ttl"`
	} `koanf:"idempotency"`

	Order struct {
		PendingTimeout time.Duration `koanf:"pending_timeout"`
		SweepInterval  time.Duration `koanf:"sweep_interval"`
	} `koanf:"order"`

	Payment struct {
		SuccessRate float64 `koanf:"success_rate"`
	} `koanf:"payment"`

	Inventory struct {
		Seed []SeedProduct `koanf:"seed"`
	} `koanf:"inventory"`
}

func Load(pathDir, envName string) (Config, error) {
	k := koanf.New(".")
	// 1) base
	if err := k.Load(file.Provider(fmt.Sprintf("%s/base.yaml", pathDir)), yaml.Parser()); err != nil {
		return Config{}, fmt.Errorf("load base: %w", err)
	}

	// 2) env override (dev/staging/prod). Optional: allow missing for local runs.
	_ = k.Load(file.Provider(fmt.Sprintf("%s/%s.yaml", pathDir, envName)), yaml.Parser())

	// 3) environment variables override (prefix EVENTBUS_, nested with __)
	// e.g. EVENTBUS_RABBITMQ__URL, EVENTBUS_REDIS__ADDR
	if err := k.Load(env.Provider("EVENTBUS_", ".", func(s string) string {
		s = strings.TrimPrefix(s, "EVENTBUS_")
		s = strings.ReplaceAll(s, "__", ".")
		return strings.ToLower(s)
	}), nil); err != nil {
		return Config{}, fmt.Errorf("env overlay: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if c.Rabbit.URL == "" {
		return fmt.Errorf("rabbitmq.url required")
	}
	if c.Rabbit.Exchange == "" {
		return fmt.Errorf("rabbitmq.exchange required")
	}
	if c.Payment.SuccessRate < 0 || c.Payment.SuccessRate > 1 {
		return fmt.Errorf("payment.success_rate must be within [0,1]")
	}
	if c.Order.PendingTimeout <= 0 {
		return fmt.Errorf("order.pending_timeout required")
	}
	return nil
}
