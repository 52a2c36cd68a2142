package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

const (
	DriverMemory   = "memory"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Env holds runtime settings taken from the process environment.
type Env struct {
	HTTPAddr        string `env:"HTTP_ADDR"        envDefault:":8080"`
	MetricsAddr     string `env:"METRICS_ADDR"     envDefault:":9090"`
	StoreDriver     string `env:"STORE_DRIVER"     envDefault:"memory"`
	SQLitePath      string `env:"SQLITE_PATH"      envDefault:"data/planner.sqlite"`
	PostgresDSN     string `env:"POSTGRES_DSN"`
	RedisAddr       string `env:"REDIS_ADDR"`
	ConfigPath      string `env:"CONFIG_PATH"      envDefault:"config.toml"`
	ProcessSchedule string `env:"PROCESS_SCHEDULE" envDefault:"@daily"`
	LogLevel        string `env:"LOG_LEVEL"        envDefault:"info"`
	KeyRateEnabled  bool   `env:"KEYRATE_ENABLED"  envDefault:"false"`
}

// ParseEnv loads configuration from environment variables.
func ParseEnv(target any) error {
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

func LoadEnv() (Env, error) {
	var e Env
	if err := ParseEnv(&e); err != nil {
		return e, err
	}
	switch e.StoreDriver {
	case DriverMemory, DriverSQLite:
	case DriverPostgres:
		if e.PostgresDSN == "" {
			return e, fmt.Errorf("POSTGRES_DSN is required for the postgres store")
		}
	default:
		return e, fmt.Errorf("unknown STORE_DRIVER %q", e.StoreDriver)
	}
	return e, nil
}
