package metrics

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func scrape(t *testing.T, m *MetricsCollector) string {
	t.Helper()
	rec := httptest.NewRecorder()
	m.GetHandler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, err := io.ReadAll(rec.Body)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return string(body)
}

func TestMetricsCollector_RecordRecurrenceRun(t *testing.T) {
	m := NewMetricsCollector(nil)

	m.RecordRecurrenceRun(RunStats{Duration: time.Second, Materialized: 3, Duplicates: 1, Failures: 1})
	m.RecordRecurrenceRun(RunStats{Duration: time.Second, Materialized: 2})

	body := scrape(t, m)

	for _, want := range []string{
		"recurrence_occurrences_materialized_total 5",
		"recurrence_occurrences_duplicate_total 1",
		`recurrence_runs_total{outcome="partial"} 1`,
		`recurrence_runs_total{outcome="ok"} 1`,
		"recurrence_run_duration_seconds_count 2",
	} {
		if !strings.Contains(body, want) {
			t.Errorf("expected metrics output to contain %q", want)
		}
	}
}

func TestMetricsCollector_GetHandler(t *testing.T) {
	m := NewMetricsCollector(nil)
	m.RecordRecommendation("excellent", false)
	m.RecordScenarios([]string{"baseline", "stress"}, 10*time.Millisecond)

	body := scrape(t, m)

	for _, want := range []string{
		`rate_recommendations_total{source="catalog",tier="excellent"} 1`,
		`scenarios_generated_total{type="stress"} 1`,
	} {
		if !strings.Contains(body, want) {
			t.Errorf("expected metrics output to contain %q", want)
		}
	}
}
