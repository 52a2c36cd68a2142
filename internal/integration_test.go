package internal_test

import (
	"bytes"
	"context"
	"encoding/json"
	"finance_planner/internal/api"
	"finance_planner/internal/domain"
	"finance_planner/internal/processor"
	"finance_planner/internal/rates"
	"finance_planner/internal/recurrence"
	"finance_planner/internal/repository/sqlite"
	"finance_planner/internal/scenario"
	"finance_planner/internal/service"
	"finance_planner/pkg/metrics"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/gorilla/mux"
)

type testEnv struct {
	store   *sqlite.Store
	metrics *metrics.MetricsCollector
	server  *httptest.Server
	logger  *slog.Logger
}

func setup(t *testing.T) *testEnv {
	t.Helper()
	store, err := sqlite.Open(filepath.Join(t.TempDir(), "planner.sqlite"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))
	collector := metrics.NewMetricsCollector(logger)

	comparator, err := scenario.NewComparator(scenario.DefaultComparatorConfig())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	planning := service.NewPlanningService(store, scenario.DefaultConfig(), comparator, collector, logger)

	rateService, err := service.NewRateService(store, rates.DefaultConfig(), nil, nil, collector, logger)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	scheduler, err := recurrence.NewScheduler(recurrence.DefaultConfig())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	proc := processor.NewRecurrenceProcessor(store, store, scheduler,
		processor.WithWorkers(2),
		processor.WithMetrics(collector),
		processor.WithLogger(logger),
	)
	recurring := service.NewRecurringService(store, store, proc, logger)

	r := mux.NewRouter()
	api.NewAPIHandler(planning, rateService, recurring, logger).RegisterRoutes(r)
	r.Handle("/metrics", collector.GetHandler())

	server := httptest.NewServer(r)
	t.Cleanup(server.Close)

	return &testEnv{store: store, metrics: collector, server: server, logger: logger}
}

func (e *testEnv) call(t *testing.T, method, path string, body any) (*http.Response, []byte) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Errorf("encode body: %v", err)
			return nil, nil
		}
	}
	req, err := http.NewRequest(method, e.server.URL+path, &buf)
	if err != nil {
		t.Errorf("build request: %v", err)
		return nil, nil
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := e.server.Client().Do(req)
	if err != nil {
		t.Errorf("%s %s failed: %v", method, path, err)
		return nil, nil
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Errorf("read body: %v", err)
	}
	return resp, data
}

func mustStatus(t *testing.T, resp *http.Response, data []byte, want int) {
	t.Helper()
	if resp == nil {
		t.FailNow()
	}
	if resp.StatusCode != want {
		t.Fatalf("expected status %d, got %d: %s", want, resp.StatusCode, data)
	}
}

func createMonthEndRent(t *testing.T, env *testEnv) string {
	t.Helper()
	resp, data := env.call(t, "POST", "/api/v1/recurring", map[string]any{
		"id":       "rent",
		"owner_id": "owner-1",
		"template": map[string]any{
			"type": "expense", "amount": 1200, "currency": "EUR", "account_id": "acc-1",
			"description": "rent",
		},
		"frequency":  "monthly",
		"interval":   1,
		"start_date": "2024-01-31T00:00:00Z",
	})
	mustStatus(t, resp, data, http.StatusCreated)
	return "rent"
}

func TestIntegration_RecurringCatchUpIsIdempotent(t *testing.T) {
	env := setup(t)
	id := createMonthEndRent(t, env)

	resp, data := env.call(t, "POST", "/api/v1/recurring/process", map[string]string{"as_of": "2024-04-30"})
	mustStatus(t, resp, data, http.StatusOK)
	var report processor.RunReport
	if err := json.Unmarshal(data, &report); err != nil {
		t.Fatalf("decode report: %v", err)
	}
	if report.Materialized != 4 {
		t.Errorf("expected 4 materialized occurrences, got %d", report.Materialized)
	}

	resp, data = env.call(t, "POST", "/api/v1/recurring/process", map[string]string{"as_of": "2024-04-30"})
	mustStatus(t, resp, data, http.StatusOK)
	report = processor.RunReport{}
	if err := json.Unmarshal(data, &report); err != nil {
		t.Fatalf("decode report: %v", err)
	}
	if report.Due != 0 || report.Materialized != 0 {
		t.Errorf("expected nothing due on rerun, got %+v", report)
	}

	entries, err := env.store.GetByDefinition(context.Background(), id)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []string{"2024-01-31", "2024-02-29", "2024-03-31", "2024-04-30"}
	if len(entries) != len(want) {
		t.Fatalf("expected %d entries, got %d", len(want), len(entries))
	}
	for i, e := range entries {
		if got := e.Date.Format("2006-01-02"); got != want[i] {
			t.Errorf("entry %d: expected %s, got %s", i, want[i], got)
		}
	}

	def, err := env.store.GetByID(context.Background(), id)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := def.NextDueDate.Format("2006-01-02"); got != "2024-05-31" {
		t.Errorf("expected next due 2024-05-31, got %s", got)
	}

	resp, data = env.call(t, "GET", "/metrics", nil)
	mustStatus(t, resp, data, http.StatusOK)
	if !strings.Contains(string(data), "recurrence_occurrences_materialized_total 4") {
		t.Errorf("expected materialized counter of 4 in metrics output")
	}
}

func TestIntegration_ConcurrentRunsDoNotDuplicate(t *testing.T) {
	env := setup(t)
	id := createMonthEndRent(t, env)

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			env.call(t, "POST", "/api/v1/recurring/process", map[string]string{"as_of": "2024-06-30"})
		}()
	}
	wg.Wait()

	entries, err := env.store.GetByDefinition(context.Background(), id)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(entries) != 6 {
		t.Fatalf("expected 6 unique entries after concurrent runs, got %d", len(entries))
	}
	seen := make(map[string]bool)
	for _, e := range entries {
		if seen[e.IdempotencyKey] {
			t.Errorf("duplicate entry %s", e.IdempotencyKey)
		}
		seen[e.IdempotencyKey] = true
	}
}

func TestIntegration_PlanScenarioComparison(t *testing.T) {
	env := setup(t)

	resp, data := env.call(t, "POST", "/api/v1/plans", map[string]any{
		"id":                    "plan-1",
		"owner_id":              "owner-1",
		"loan_amount":           2000000,
		"interest_rate_percent": 9,
		"term_months":           240,
		"monthly_income":        150000,
		"monthly_expenses":      50000,
		"property_value":        3000000,
	})
	mustStatus(t, resp, data, http.StatusCreated)

	resp, data = env.call(t, "POST", "/api/v1/plans/plan-1/scenarios", nil)
	mustStatus(t, resp, data, http.StatusOK)
	var results []domain.ScenarioResult
	if err := json.Unmarshal(data, &results); err != nil {
		t.Fatalf("decode scenarios: %v", err)
	}
	if len(results) != 4 {
		t.Fatalf("expected 4 scenarios, got %d", len(results))
	}
	for _, r := range results {
		if len(r.Series) != 240 {
			t.Errorf("scenario %s: expected 240 months, got %d", r.Type, len(r.Series))
		}
	}

	resp, data = env.call(t, "GET", "/api/v1/plans/plan-1/comparison", nil)
	mustStatus(t, resp, data, http.StatusOK)
	var comparison scenario.Comparison
	if err := json.Unmarshal(data, &comparison); err != nil {
		t.Fatalf("decode comparison: %v", err)
	}
	if comparison.BaselineID == "" {
		t.Errorf("expected baseline id in comparison, got %+v", comparison)
	}
	if len(comparison.Ranking) != 4 {
		t.Errorf("expected 4 ranked scenarios, got %v", comparison.Ranking)
	}

	resp, data = env.call(t, "GET", "/api/v1/plans/missing/comparison", nil)
	mustStatus(t, resp, data, http.StatusNotFound)
}

func TestIntegration_RecommendUsesStoredOffers(t *testing.T) {
	env := setup(t)
	ctx := context.Background()
	for _, o := range []domain.LenderOffer{
		{ID: "o-1", BankID: "b-1", BankName: "First", Purpose: domain.PurposeHomePurchase,
			InterestRatePercent: 9, MinAmount: 1e5, MaxAmount: 1e10, MinTermMonths: 12, MaxTermMonths: 360},
		{ID: "o-2", BankID: "b-2", BankName: "Second", Purpose: domain.PurposeHomePurchase,
			InterestRatePercent: 7, MinAmount: 1e5, MaxAmount: 1e10, MinTermMonths: 12, MaxTermMonths: 360},
	} {
		if err := env.store.SaveOffer(ctx, o); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	resp, data := env.call(t, "POST", "/api/v1/rates/recommend", map[string]any{
		"purpose": "home_purchase", "amount": 2000000, "term_months": 240,
	})
	mustStatus(t, resp, data, http.StatusOK)
	var rec rates.Recommendation
	if err := json.Unmarshal(data, &rec); err != nil {
		t.Fatalf("decode recommendation: %v", err)
	}
	if rec.CandidateCount != 2 || rec.Best.Offer.ID != "o-2" {
		t.Errorf("expected o-2 best of 2 candidates, got %+v", rec)
	}
	if rec.UsedDefaultRate {
		t.Error("expected catalog offers, not the default rate")
	}
}
