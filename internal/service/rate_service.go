package service

import (
	"context"
	"finance_planner/internal/amortization"
	"finance_planner/internal/domain"
	"finance_planner/internal/integrations/keyrate"
	"finance_planner/internal/rates"
	"finance_planner/internal/repository"
	"finance_planner/pkg/metrics"
	"fmt"
	"log/slog"
	"sync"
)

// KeyRateSource supplies the current central bank key rate in percent.
type KeyRateSource interface {
	KeyRate(ctx context.Context) (float64, error)
}

// RateService answers rate recommendations from the offer catalog. When a key-rate source is
// configured, RefreshDefaults rebuilds the fallback table from it.
type RateService struct {
	catalog   repository.OfferCatalog
	cfg       rates.Config
	keyRates  KeyRateSource
	margins   map[domain.LoanPurpose]float64
	metrics   *metrics.MetricsCollector
	logger    *slog.Logger
	mu        sync.RWMutex
	optimizer *rates.Optimizer
}

func NewRateService(
	catalog repository.OfferCatalog,
	cfg rates.Config,
	keyRates KeyRateSource,
	margins map[domain.LoanPurpose]float64,
	m *metrics.MetricsCollector,
	logger *slog.Logger,
) (*RateService, error) {
	if logger == nil {
		logger = slog.Default()
	}
	optimizer, err := rates.NewOptimizer(cfg)
	if err != nil {
		return nil, err
	}
	return &RateService{
		catalog:   catalog,
		cfg:       cfg,
		keyRates:  keyRates,
		margins:   margins,
		metrics:   m,
		logger:    logger,
		optimizer: optimizer,
	}, nil
}

func (s *RateService) current() *rates.Optimizer {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.optimizer
}

func (s *RateService) Recommend(ctx context.Context, req rates.RecommendRequest) (rates.Recommendation, error) {
	if err := req.Validate(); err != nil {
		return rates.Recommendation{}, err
	}
	offers, err := s.catalog.ListByPurpose(ctx, req.Purpose)
	if err != nil {
		return rates.Recommendation{}, fmt.Errorf("failed to load offers: %w", err)
	}

	rec, err := s.current().Recommend(req, offers)
	if err != nil {
		s.logger.WarnContext(ctx, "Rate recommendation failed",
			slog.String("purpose", string(req.Purpose)),
			slog.String("error", err.Error()))
		return rates.Recommendation{}, err
	}
	if s.metrics != nil {
		s.metrics.RecordRecommendation(string(rec.Best.Tier), rec.UsedDefaultRate)
	}

	s.logger.InfoContext(ctx, "Rate recommended",
		slog.String("purpose", string(req.Purpose)),
		slog.String("offer_id", rec.Best.Offer.ID),
		slog.Float64("rate_percent", rec.Best.Offer.InterestRatePercent),
		slog.Int("candidates", rec.CandidateCount),
		slog.Bool("default_rate", rec.UsedDefaultRate))
	return rec, nil
}

func (s *RateService) DefaultRate(purpose domain.LoanPurpose) (rates.DefaultRate, error) {
	return s.current().ResolveDefaultRate(purpose)
}

// RefreshDefaults pulls the key rate and swaps in an optimizer whose fallback table follows it.
// Without a key-rate source it is a no-op.
func (s *RateService) RefreshDefaults(ctx context.Context) error {
	if s.keyRates == nil {
		return nil
	}
	keyRate, err := s.keyRates.KeyRate(ctx)
	if err != nil {
		return fmt.Errorf("failed to fetch key rate: %w", err)
	}

	table := keyrate.DefaultRates(keyRate, s.margins, s.cfg.Defaults)
	optimizer, err := rates.NewOptimizer(s.cfg.WithDefaults(table))
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.optimizer = optimizer
	s.mu.Unlock()

	s.logger.InfoContext(ctx, "Default rates refreshed", slog.Float64("key_rate_percent", keyRate))
	return nil
}

// Amortize computes the payment schedule for a loan, promotional or not.
func (s *RateService) Amortize(loan domain.LoanParameters) (domain.AmortizationResult, error) {
	return amortization.Compute(loan)
}
