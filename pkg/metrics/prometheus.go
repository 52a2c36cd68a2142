package metrics

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type MetricsCollector struct {
	registry              *prometheus.Registry
	recurrenceRuns        *prometheus.CounterVec
	occurrencesCreated    prometheus.Counter
	occurrencesDuplicated prometheus.Counter
	definitionsFailed     prometheus.Counter
	definitionsCompleted  prometheus.Counter
	runDuration           prometheus.Histogram
	scenariosGenerated    *prometheus.CounterVec
	scenarioDuration      prometheus.Histogram
	recommendations       *prometheus.CounterVec
	logger                *slog.Logger
}

func NewMetricsCollector(logger *slog.Logger) *MetricsCollector {
	if logger == nil {
		logger = slog.Default()
	}

	registry := prometheus.NewRegistry()

	return &MetricsCollector{
		registry: registry,
		recurrenceRuns: promauto.With(registry).NewCounterVec(prometheus.CounterOpts{
			Name: "recurrence_runs_total",
			Help: "Total number of recurrence processing runs by outcome",
		}, []string{"outcome"}),
		occurrencesCreated: promauto.With(registry).NewCounter(prometheus.CounterOpts{
			Name: "recurrence_occurrences_materialized_total",
			Help: "Total number of ledger entries materialized from recurring definitions",
		}),
		occurrencesDuplicated: promauto.With(registry).NewCounter(prometheus.CounterOpts{
			Name: "recurrence_occurrences_duplicate_total",
			Help: "Total number of occurrences the ledger already held",
		}),
		definitionsFailed: promauto.With(registry).NewCounter(prometheus.CounterOpts{
			Name: "recurrence_definitions_failed_total",
			Help: "Total number of recurring definitions that failed during a run",
		}),
		definitionsCompleted: promauto.With(registry).NewCounter(prometheus.CounterOpts{
			Name: "recurrence_definitions_completed_total",
			Help: "Total number of recurring definitions deactivated on reaching a terminal condition",
		}),
		runDuration: promauto.With(registry).NewHistogram(prometheus.HistogramOpts{
			Name:    "recurrence_run_duration_seconds",
			Help:    "Time taken by one recurrence processing run",
			Buckets: prometheus.DefBuckets,
		}),
		scenariosGenerated: promauto.With(registry).NewCounterVec(prometheus.CounterOpts{
			Name: "scenarios_generated_total",
			Help: "Total number of generated scenarios by type",
		}, []string{"type"}),
		scenarioDuration: promauto.With(registry).NewHistogram(prometheus.HistogramOpts{
			Name:    "scenario_generation_duration_seconds",
			Help:    "Time taken to generate a scenario set",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
		}),
		recommendations: promauto.With(registry).NewCounterVec(prometheus.CounterOpts{
			Name: "rate_recommendations_total",
			Help: "Total number of rate recommendations by tier of the best offer",
		}, []string{"tier", "source"}),
		logger: logger,
	}
}

// RunStats summarizes one recurrence run for recording.
type RunStats struct {
	Duration     time.Duration
	Materialized int
	Duplicates   int
	Failures     int
	Completed    int
	Canceled     bool
}

func (m *MetricsCollector) RecordRecurrenceRun(s RunStats) {
	outcome := "ok"
	switch {
	case s.Canceled:
		outcome = "canceled"
	case s.Failures > 0:
		outcome = "partial"
	}
	m.recurrenceRuns.WithLabelValues(outcome).Inc()
	m.occurrencesCreated.Add(float64(s.Materialized))
	m.occurrencesDuplicated.Add(float64(s.Duplicates))
	m.definitionsFailed.Add(float64(s.Failures))
	m.definitionsCompleted.Add(float64(s.Completed))
	m.runDuration.Observe(s.Duration.Seconds())
}

func (m *MetricsCollector) RecordScenarios(types []string, duration time.Duration) {
	for _, t := range types {
		m.scenariosGenerated.WithLabelValues(t).Inc()
	}
	m.scenarioDuration.Observe(duration.Seconds())
}

func (m *MetricsCollector) RecordRecommendation(tier string, usedDefault bool) {
	source := "catalog"
	if usedDefault {
		source = "default"
	}
	m.recommendations.WithLabelValues(tier, source).Inc()
}

func (m *MetricsCollector) Registry() *prometheus.Registry {
	return m.registry
}

func (m *MetricsCollector) GetHandler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *MetricsCollector) StartMetricsServer(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.GetHandler())

	server := &http.Server{
		Addr:    addr,
		Handler: mux,
	}

	go func() {
		m.logger.Info("Starting metrics server", slog.String("addr", addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			m.logger.Error("Metrics server failed", slog.String("error", err.Error()))
		}
	}()

	return server
}

func (m *MetricsCollector) Shutdown(ctx context.Context) error {
	m.logger.Info("Metrics collector shutdown complete")
	return nil
}
