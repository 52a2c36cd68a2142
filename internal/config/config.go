package config

import (
	"errors"
	"finance_planner/internal/integrations/keyrate"
	"finance_planner/internal/rates"
	"finance_planner/internal/recurrence"
	"finance_planner/internal/scenario"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/BurntSushi/toml"
)

// Config holds engine tuning read from config.toml.
type Config struct {
	Rates      rates.Config              `toml:"rates"`
	Scenarios  scenario.Config           `toml:"scenarios"`
	Comparison scenario.ComparatorConfig `toml:"comparison"`
	Recurrence RecurrenceConfig          `toml:"recurrence"`
	KeyRate    keyrate.Config            `toml:"keyrate"`
	Cache      CacheConfig               `toml:"cache"`
}

type RecurrenceConfig struct {
	recurrence.Config
	Workers int `toml:"workers"`
}

type CacheConfig struct {
	OfferTTLSeconds int `toml:"offer_ttl_seconds"`
}

func (c CacheConfig) OfferTTL() time.Duration {
	return time.Duration(c.OfferTTLSeconds) * time.Second
}

func DefaultConfig() Config {
	return Config{
		Rates:      rates.DefaultConfig(),
		Scenarios:  scenario.DefaultConfig(),
		Comparison: scenario.DefaultComparatorConfig(),
		Recurrence: RecurrenceConfig{
			Config:  recurrence.DefaultConfig(),
			Workers: 4,
		},
		KeyRate: keyrate.DefaultConfig(),
		Cache:   CacheConfig{OfferTTLSeconds: 300},
	}
}

// Load reads the config file at path over the defaults. An empty path or a missing file yields the defaults.
func Load(path string) (Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("reading config: %w", err)
	}

	if err := toml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("validating config: %w", err)
	}
	return cfg, nil
}

// Write encodes cfg as TOML.
func Write(w io.Writer, cfg Config) error {
	return toml.NewEncoder(w).Encode(cfg)
}

func (c Config) Validate() error {
	if err := c.Rates.Validate(); err != nil {
		return fmt.Errorf("rates: %w", err)
	}
	if err := c.Scenarios.Validate(); err != nil {
		return fmt.Errorf("scenarios: %w", err)
	}
	if _, err := scenario.NewComparator(c.Comparison); err != nil {
		return fmt.Errorf("comparison: %w", err)
	}
	if _, err := recurrence.NewScheduler(c.Recurrence.Config); err != nil {
		return fmt.Errorf("recurrence: %w", err)
	}
	if c.Recurrence.Workers < 1 {
		return fmt.Errorf("recurrence: workers must be at least 1, got %d", c.Recurrence.Workers)
	}
	if c.Cache.OfferTTLSeconds < 0 {
		return fmt.Errorf("cache: offer ttl must be non-negative, got %d", c.Cache.OfferTTLSeconds)
	}
	return nil
}
