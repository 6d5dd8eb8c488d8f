package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

type Config struct {
	Version     string `koanf:"version"`
	Environment string `koanf:"environment"`
	LogLevel    string `koanf:"log_level"`

	Database  DatabaseConfig  `koanf:"database"`
	Billing   BillingConfig   `koanf:"billing"`
	Lifecycle LifecycleConfig `koanf:"lifecycle"`
}

type DatabaseConfig struct {
	URL             string        `koanf:"url"`
	MaxOpenConns    int           `koanf:"max_open_conns"`
	MaxIdleConns    int           `koanf:"max_idle_conns"`
	ConnMaxLifetime time.Duration `koanf:"conn_max_lifetime"`
}

type BillingConfig struct {
	// RoundOff is the grand-total round-off policy applied to resolved
	// prices: never, nearest_1, nearest_5 or nearest_10.
	RoundOff            string `koanf:"round_off"`
	DefaultPaymentTerms string `koanf:"default_payment_terms"`
}

type LifecycleConfig struct {
	// Schedule is a cron expression for the estimate-expiry sweep.
	Schedule string `koanf:"schedule"`
}

func Load() (*Config, error) {
	k := koanf.New(".")

	// Load defaults
	defaults := &Config{
		Version:     "dev",
		Environment: "development",
		LogLevel:    "info",
		Database: DatabaseConfig{
			MaxOpenConns:    25,
			MaxIdleConns:    5,
			ConnMaxLifetime: 5 * time.Minute,
		},
		Billing: BillingConfig{
			RoundOff:            "never",
			DefaultPaymentTerms: "due_on_receipt",
		},
		Lifecycle: LifecycleConfig{
			Schedule: "0 1 * * *",
		},
	}

	if err := k.Load(structs.Provider(defaults, "koanf"), nil); err != nil {
		return nil, fmt.Errorf("loading defaults: %w", err)
	}

	// Load from config file if exists
	if err := k.Load(file.Provider("configs/config.yaml"), yaml.Parser()); err != nil {
		// Config file is optional, only log if it's not a "file not found" error
	}

	// Override with environment variables
	if err := k.Load(env.Provider("BIZBOOKS_", ".", func(s string) string {
		return strings.Replace(strings.ToLower(
			strings.TrimPrefix(s, "BIZBOOKS_")), "_", ".", -1)
	}), nil); err != nil {
		return nil, fmt.Errorf("loading environment variables: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	return &cfg, nil
}
