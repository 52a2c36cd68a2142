package service

import (
	"context"
	"finance_planner/internal/domain"
	"finance_planner/internal/repository"
	"finance_planner/internal/scenario"
	"finance_planner/pkg/metrics"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// PlanningService loads stored plans and runs the scenario engine and comparator over them.
type PlanningService struct {
	plans      repository.PlanRepository
	cfg        scenario.Config
	comparator *scenario.Comparator
	metrics    *metrics.MetricsCollector
	logger     *slog.Logger
}

func NewPlanningService(
	plans repository.PlanRepository,
	cfg scenario.Config,
	comparator *scenario.Comparator,
	m *metrics.MetricsCollector,
	logger *slog.Logger,
) *PlanningService {
	if logger == nil {
		logger = slog.Default()
	}
	return &PlanningService{
		plans:      plans,
		cfg:        cfg,
		comparator: comparator,
		metrics:    m,
		logger:     logger,
	}
}

// CreatePlan stores a plan after checking it converts into engine input. A missing ID is generated.
func (s *PlanningService) CreatePlan(ctx context.Context, plan *domain.PlanRecord) error {
	if plan.ID == "" {
		plan.ID = uuid.NewString()
	}
	if _, err := plan.ToEngineInput(); err != nil {
		return err
	}
	if err := s.plans.SavePlan(ctx, plan); err != nil {
		return err
	}
	s.logger.InfoContext(ctx, "Plan saved",
		slog.String("plan_id", plan.ID),
		slog.String("owner_id", plan.OwnerID))
	return nil
}

func (s *PlanningService) GetPlan(ctx context.Context, id string) (*domain.PlanRecord, error) {
	return s.plans.GetPlan(ctx, id)
}

func (s *PlanningService) engine(ctx context.Context, planID string) (*scenario.Engine, error) {
	plan, err := s.plans.GetPlan(ctx, planID)
	if err != nil {
		return nil, err
	}
	in, err := plan.ToEngineInput()
	if err != nil {
		return nil, err
	}
	return scenario.NewEngine(in, s.cfg)
}

// GenerateScenarios projects the baseline, optimistic, pessimistic and stress variants of a plan.
func (s *PlanningService) GenerateScenarios(ctx context.Context, planID string) ([]domain.ScenarioResult, error) {
	engine, err := s.engine(ctx, planID)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	results, err := engine.GeneratePredefinedScenarios(ctx)
	if err != nil {
		return nil, err
	}
	s.record(results, time.Since(start))

	s.logger.InfoContext(ctx, "Scenarios generated",
		slog.String("plan_id", planID),
		slog.Int("count", len(results)),
		slog.Int("horizon_months", engine.Horizon()))
	return results, nil
}

// GenerateCustom projects a single caller-defined scenario on top of the plan's baseline.
func (s *PlanningService) GenerateCustom(ctx context.Context, planID string, name string, overrides domain.ScenarioOverrides, assumptions *domain.EconomicAssumptions) (domain.ScenarioResult, error) {
	engine, err := s.engine(ctx, planID)
	if err != nil {
		return domain.ScenarioResult{}, err
	}
	if name == "" {
		name = "Custom"
	}
	def := engine.Baseline().
		WithIdentity(uuid.NewString(), name, domain.ScenarioCustom).
		WithOverrides(overrides)
	if assumptions != nil {
		def = def.WithAssumptions(*assumptions)
	}

	start := time.Now()
	result, err := engine.GenerateScenario(def)
	if err != nil {
		return domain.ScenarioResult{}, err
	}
	s.record([]domain.ScenarioResult{result}, time.Since(start))
	return result, nil
}

func (s *PlanningService) Compare(ctx context.Context, planID string) (scenario.Comparison, error) {
	results, err := s.GenerateScenarios(ctx, planID)
	if err != nil {
		return scenario.Comparison{}, err
	}
	return s.comparator.Compare(results)
}

func (s *PlanningService) Analyze(ctx context.Context, planID string) ([]scenario.Analysis, error) {
	results, err := s.GenerateScenarios(ctx, planID)
	if err != nil {
		return nil, err
	}
	out := make([]scenario.Analysis, 0, len(results))
	for _, r := range results {
		out = append(out, s.comparator.Analyze(r))
	}
	return out, nil
}

func (s *PlanningService) record(results []domain.ScenarioResult, d time.Duration) {
	if s.metrics == nil {
		return
	}
	types := make([]string, 0, len(results))
	for _, r := range results {
		types = append(types, string(r.Type))
	}
	s.metrics.RecordScenarios(types, d)
}
