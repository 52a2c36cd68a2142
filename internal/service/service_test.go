package service

import (
	"context"
	"errors"
	"finance_planner/internal/domain"
	"finance_planner/internal/processor"
	"finance_planner/internal/rates"
	"finance_planner/internal/recurrence"
	"finance_planner/internal/repository"
	"finance_planner/internal/repository/memory"
	"finance_planner/internal/scenario"
	"finance_planner/pkg/metrics"
	"testing"
	"time"
)

func ptr[T any](v T) *T {
	return &v
}

func testPlan() *domain.PlanRecord {
	return &domain.PlanRecord{
		OwnerID:             "owner-1",
		Name:                "Apartment",
		LoanAmount:          ptr(3_000_000.0),
		InterestRatePercent: ptr(7.5),
		TermMonths:          ptr(240),
		MonthlyIncome:       ptr(90_000.0),
		MonthlyExpenses:     ptr(30_000.0),
		EmergencyFundMonths: ptr(6.0),
	}
}

func newPlanningService(t *testing.T) *PlanningService {
	t.Helper()
	comparator, err := scenario.NewComparator(scenario.DefaultComparatorConfig())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return NewPlanningService(memory.NewPlanRepository(), scenario.DefaultConfig(), comparator,
		metrics.NewMetricsCollector(nil), nil)
}

func TestPlanningService_CreatePlan_AssignsID(t *testing.T) {
	svc := newPlanningService(t)
	plan := testPlan()

	err := svc.CreatePlan(context.Background(), plan)

	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if plan.ID == "" {
		t.Fatal("expected generated plan id")
	}
	if _, err := svc.GetPlan(context.Background(), plan.ID); err != nil {
		t.Errorf("expected stored plan, got %v", err)
	}
}

func TestPlanningService_CreatePlan_RejectsMissingLoan(t *testing.T) {
	svc := newPlanningService(t)
	plan := testPlan()
	plan.LoanAmount = nil

	err := svc.CreatePlan(context.Background(), plan)

	if !errors.Is(err, domain.ErrInvalidParameter) {
		t.Fatalf("expected ErrInvalidParameter, got %v", err)
	}
}

func TestPlanningService_GenerateScenarios(t *testing.T) {
	ctx := context.Background()
	svc := newPlanningService(t)
	plan := testPlan()
	_ = svc.CreatePlan(ctx, plan)

	results, err := svc.GenerateScenarios(ctx, plan.ID)

	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []domain.ScenarioType{domain.ScenarioBaseline, domain.ScenarioOptimistic, domain.ScenarioPessimistic, domain.ScenarioStress}
	if len(results) != len(want) {
		t.Fatalf("expected %d results, got %d", len(want), len(results))
	}
	for i, r := range results {
		if r.Type != want[i] || r.Horizon != 240 || len(r.Series) != 240 {
			t.Errorf("result %d: expected %s over 240 months, got %s/%d/%d", i, want[i], r.Type, r.Horizon, len(r.Series))
		}
	}
	if results[0].ScenarioID != plan.ID {
		t.Errorf("expected baseline id %s, got %s", plan.ID, results[0].ScenarioID)
	}
}

func TestPlanningService_CompareAndAnalyze(t *testing.T) {
	ctx := context.Background()
	svc := newPlanningService(t)
	plan := testPlan()
	_ = svc.CreatePlan(ctx, plan)

	cmp, err := svc.Compare(ctx, plan.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	analyses, err := svc.Analyze(ctx, plan.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cmp.BaselineID != plan.ID || len(cmp.Ranking) != 4 {
		t.Errorf("expected 4 ranked scenarios against %s, got %+v", plan.ID, cmp)
	}
	if len(analyses) != 4 {
		t.Errorf("expected 4 analyses, got %d", len(analyses))
	}
}

func TestPlanningService_GenerateCustom(t *testing.T) {
	ctx := context.Background()
	svc := newPlanningService(t)
	plan := testPlan()
	_ = svc.CreatePlan(ctx, plan)
	baseline, _ := svc.GenerateScenarios(ctx, plan.ID)

	result, err := svc.GenerateCustom(ctx, plan.ID, "Cheaper loan",
		domain.ScenarioOverrides{AnnualRatePercent: ptr(5.0)}, nil)

	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Type != domain.ScenarioCustom || result.Name != "Cheaper loan" {
		t.Errorf("expected custom scenario, got %s/%s", result.Type, result.Name)
	}
	if result.Summary.TotalInterest >= baseline[0].Summary.TotalInterest {
		t.Errorf("expected lower interest than baseline, got %v vs %v",
			result.Summary.TotalInterest, baseline[0].Summary.TotalInterest)
	}
}

func TestPlanningService_UnknownPlan(t *testing.T) {
	svc := newPlanningService(t)

	_, err := svc.GenerateScenarios(context.Background(), "missing")

	if !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

type stubKeyRate struct {
	rate float64
	err  error
}

func (s stubKeyRate) KeyRate(ctx context.Context) (float64, error) {
	return s.rate, s.err
}

func testOffers() []domain.LenderOffer {
	offer := func(id string, rate float64) domain.LenderOffer {
		return domain.LenderOffer{
			ID: id, BankID: "bank-" + id, BankName: "Bank " + id, Purpose: domain.PurposeHomePurchase,
			InterestRatePercent: rate, MinAmount: 1e6, MaxAmount: 1e10, MinTermMonths: 12, MaxTermMonths: 360,
		}
	}
	return []domain.LenderOffer{offer("a", 9), offer("b", 7), offer("c", 13)}
}

func TestRateService_Recommend(t *testing.T) {
	svc, err := NewRateService(memory.NewOfferRepository(testOffers()...), rates.DefaultConfig(), nil, nil,
		metrics.NewMetricsCollector(nil), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	rec, err := svc.Recommend(context.Background(), rates.RecommendRequest{
		Purpose: domain.PurposeHomePurchase, Amount: 2e9, TermMonths: 240,
	})

	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Best.Offer.ID != "b" || rec.Best.Tier != domain.TierExcellent || rec.UsedDefaultRate {
		t.Errorf("expected offer b from the catalog, got %+v", rec.Best)
	}
}

func TestRateService_Recommend_InvalidRequest(t *testing.T) {
	svc, _ := NewRateService(memory.NewOfferRepository(), rates.DefaultConfig(), nil, nil, nil, nil)

	_, err := svc.Recommend(context.Background(), rates.RecommendRequest{Purpose: "yacht", Amount: 1, TermMonths: 1})

	if !errors.Is(err, domain.ErrInvalidParameter) {
		t.Fatalf("expected ErrInvalidParameter, got %v", err)
	}
}

func TestRateService_RefreshDefaults(t *testing.T) {
	margins := map[domain.LoanPurpose]float64{domain.PurposeRefinance: 3}
	svc, _ := NewRateService(memory.NewOfferRepository(), rates.DefaultConfig(), stubKeyRate{rate: 16}, margins, nil, nil)

	if err := svc.RefreshDefaults(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	d, err := svc.DefaultRate(domain.PurposeRefinance)

	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if d.RatePercent != 19 {
		t.Errorf("expected refinance default 19, got %v", d.RatePercent)
	}
	rec, err := svc.Recommend(context.Background(), rates.RecommendRequest{
		Purpose: domain.PurposeRefinance, Amount: 1e6, TermMonths: 120,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !rec.UsedDefaultRate || rec.Best.Offer.InterestRatePercent != 19 {
		t.Errorf("expected key-rate default offer, got %+v", rec.Best.Offer)
	}
}

func TestRateService_RefreshDefaults_KeepsTableOnError(t *testing.T) {
	margins := map[domain.LoanPurpose]float64{domain.PurposeRefinance: 3}
	svc, _ := NewRateService(memory.NewOfferRepository(), rates.DefaultConfig(),
		stubKeyRate{err: errors.New("timeout")}, margins, nil, nil)

	if err := svc.RefreshDefaults(context.Background()); err == nil {
		t.Fatal("expected error from key rate source")
	}
	d, _ := svc.DefaultRate(domain.PurposeRefinance)
	if d.RatePercent != 10 {
		t.Errorf("expected configured default 10, got %v", d.RatePercent)
	}
}

func newRecurringService(t *testing.T) (*RecurringService, *memory.LedgerRepository) {
	t.Helper()
	store := memory.NewDefinitionRepository()
	ledger := memory.NewLedgerRepository()
	scheduler, err := recurrence.NewScheduler(recurrence.DefaultConfig())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	proc := processor.NewRecurrenceProcessor(store, ledger, scheduler)
	return NewRecurringService(store, ledger, proc, nil), ledger
}

func TestRecurringService_CreateAndProcess(t *testing.T) {
	ctx := context.Background()
	svc, ledger := newRecurringService(t)

	def, err := svc.CreateDefinition(ctx, CreateDefinitionRequest{
		OwnerID: "owner-1",
		Template: domain.TransactionTemplate{
			Type: domain.TypeIncome, Amount: 5000, Currency: "USD", AccountID: "acc-1",
		},
		Frequency:      domain.FrequencyWeekly,
		StartDate:      time.Date(2024, 1, 1, 9, 30, 0, 0, time.UTC),
		MaxOccurrences: ptr(2),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if def.Interval != 1 || !def.NextDueDate.Equal(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("expected defaulted interval and truncated start, got %+v", def)
	}

	report, err := svc.ProcessDue(ctx, time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC))

	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if report.Materialized != 2 || report.Completed != 1 || ledger.Count() != 2 {
		t.Errorf("expected 2 occurrences then completion, got %+v", report)
	}
	entries, err := svc.Entries(ctx, def.ID)
	if err != nil || len(entries) != 2 {
		t.Errorf("expected 2 entries, got %d (%v)", len(entries), err)
	}
}

func TestRecurringService_CreateDefinition_Invalid(t *testing.T) {
	svc, _ := newRecurringService(t)

	_, err := svc.CreateDefinition(context.Background(), CreateDefinitionRequest{
		OwnerID:   "owner-1",
		Template:  domain.TransactionTemplate{Type: domain.TypeExpense, Amount: -5, Currency: "usd"},
		Frequency: "hourly",
		StartDate: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	})

	if !errors.Is(err, domain.ErrInvalidParameter) {
		t.Fatalf("expected ErrInvalidParameter, got %v", err)
	}
}

func TestRecurringService_Entries_UnknownDefinition(t *testing.T) {
	svc, _ := newRecurringService(t)

	_, err := svc.Entries(context.Background(), "missing")

	if !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
