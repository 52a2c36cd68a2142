package main

import (
	"context"
	"finance_planner/internal/api"
	"finance_planner/internal/config"
	"finance_planner/internal/integrations/keyrate"
	"finance_planner/internal/processor"
	"finance_planner/internal/recurrence"
	"finance_planner/internal/repository"
	"finance_planner/internal/repository/cache"
	"finance_planner/internal/repository/memory"
	"finance_planner/internal/repository/postgres"
	"finance_planner/internal/repository/sqlite"
	"finance_planner/internal/scenario"
	"finance_planner/internal/service"
	"finance_planner/pkg/metrics"
	"fmt"
	"log/slog"
)

// app wires repositories, engines and services for one process.
type app struct {
	logger      *slog.Logger
	metrics     *metrics.MetricsCollector
	definitions repository.DefinitionStore
	ledger      repository.LedgerRepository
	offers      repository.OfferRepository
	plans       repository.PlanRepository
	processor   *processor.RecurrenceProcessor
	planning    *service.PlanningService
	rates       *service.RateService
	recurring   *service.RecurringService
	closers     []func() error
}

func buildApp(ctx context.Context, env config.Env, cfg config.Config, logger *slog.Logger) (*app, error) {
	a := &app{
		logger:  logger,
		metrics: metrics.NewMetricsCollector(logger),
	}
	if err := a.openStores(ctx, env); err != nil {
		a.Close()
		return nil, err
	}

	if env.RedisAddr != "" {
		offerCache := cache.NewOfferCache(a.offers, cache.NewRedisClient(env.RedisAddr), cfg.Cache.OfferTTL(), logger)
		a.offers = offerCache
		a.closers = append(a.closers, offerCache.Close)
	}

	scheduler, err := recurrence.NewScheduler(cfg.Recurrence.Config)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.processor = processor.NewRecurrenceProcessor(a.definitions, a.ledger, scheduler,
		processor.WithWorkers(cfg.Recurrence.Workers),
		processor.WithMetrics(a.metrics),
		processor.WithLogger(logger),
	)

	comparator, err := scenario.NewComparator(cfg.Comparison)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.planning = service.NewPlanningService(a.plans, cfg.Scenarios, comparator, a.metrics, logger)

	var keyRates service.KeyRateSource
	if env.KeyRateEnabled {
		keyRates = keyrate.NewClient(cfg.KeyRate, logger)
	}
	a.rates, err = service.NewRateService(a.offers, cfg.Rates, keyRates, cfg.KeyRate.Margins, a.metrics, logger)
	if err != nil {
		a.Close()
		return nil, err
	}
	if err := a.rates.RefreshDefaults(ctx); err != nil {
		logger.WarnContext(ctx, "Using configured default rates", slog.String("error", err.Error()))
	}

	a.recurring = service.NewRecurringService(a.definitions, a.ledger, a.processor, logger)
	return a, nil
}

func (a *app) openStores(ctx context.Context, env config.Env) error {
	switch env.StoreDriver {
	case config.DriverSQLite:
		store, err := sqlite.Open(env.SQLitePath)
		if err != nil {
			return err
		}
		a.closers = append(a.closers, store.Close)
		a.definitions, a.ledger, a.offers, a.plans = store, store, store, store

	case config.DriverPostgres:
		pg, err := postgres.Open(ctx, env.PostgresDSN)
		if err != nil {
			return err
		}
		a.closers = append(a.closers, pg.Close)
		if err := pg.Migrate(ctx); err != nil {
			return err
		}
		// Offers and plans stay in the local SQLite file next to the Postgres ledger.
		local, err := sqlite.Open(env.SQLitePath)
		if err != nil {
			return err
		}
		a.closers = append(a.closers, local.Close)
		a.definitions, a.ledger, a.offers, a.plans = pg, pg, local, local

	case config.DriverMemory:
		a.definitions = memory.NewDefinitionRepository()
		a.ledger = memory.NewLedgerRepository()
		a.offers = memory.NewOfferRepository()
		a.plans = memory.NewPlanRepository()

	default:
		return fmt.Errorf("unknown store driver %q", env.StoreDriver)
	}
	a.logger.InfoContext(ctx, "Stores opened", slog.String("driver", env.StoreDriver))
	return nil
}

func (a *app) handler() *api.APIHandler {
	return api.NewAPIHandler(a.planning, a.rates, a.recurring, a.logger)
}

func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.logger.Error("Close failed", slog.String("error", err.Error()))
		}
	}
	a.closers = nil
}
