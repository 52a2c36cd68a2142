package processor

import (
	"context"
	"errors"
	"finance_planner/internal/domain"
	"finance_planner/internal/recurrence"
	"finance_planner/internal/repository"
	"finance_planner/pkg/metrics"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "finance_planner/internal/processor"

// RecurrenceProcessor drives the scheduler against the definition store and the ledger.
type RecurrenceProcessor struct {
	store      repository.DefinitionStore
	ledger     repository.LedgerSink
	scheduler  *recurrence.Scheduler
	workerPool chan struct{}
	metrics    *metrics.MetricsCollector
	tracer     trace.Tracer
	logger     *slog.Logger
}

type Option func(*RecurrenceProcessor)

func WithWorkers(n int) Option {
	return func(p *RecurrenceProcessor) {
		if n > 0 {
			p.workerPool = make(chan struct{}, n)
		}
	}
}

func WithMetrics(m *metrics.MetricsCollector) Option {
	return func(p *RecurrenceProcessor) {
		p.metrics = m
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(p *RecurrenceProcessor) {
		if l != nil {
			p.logger = l
		}
	}
}

func WithTracer(t trace.Tracer) Option {
	return func(p *RecurrenceProcessor) {
		if t != nil {
			p.tracer = t
		}
	}
}

func NewRecurrenceProcessor(
	store repository.DefinitionStore,
	ledger repository.LedgerSink,
	scheduler *recurrence.Scheduler,
	opts ...Option,
) *RecurrenceProcessor {
	p := &RecurrenceProcessor{
		store:      store,
		ledger:     ledger,
		scheduler:  scheduler,
		workerPool: make(chan struct{}, 4),
		tracer:     otel.Tracer(tracerName),
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

type RunReport struct {
	AsOf         time.Time             `json:"as_of"`
	Due          int                   `json:"due"`
	Saved        []string              `json:"saved"`
	Materialized int                   `json:"materialized"`
	Duplicates   int                   `json:"duplicates"`
	Completed    int                   `json:"completed"`
	Errors       []domain.PerItemError `json:"errors,omitempty"`
	Duration     time.Duration         `json:"duration"`
	// Partial is set when the run stopped early on context cancellation.
	Partial bool `json:"partial,omitempty"`
}

type itemResult struct {
	started      bool
	materialized int
	duplicates   int
	err          error
}

// Run materializes every occurrence due on or before asOf. Failures are isolated per definition:
// a failed definition is not saved, so the next run retries it and the ledger's idempotency keys
// absorb whatever it had already appended. Cancellation stops new work; finished items are reported
// and the context error is returned.
func (p *RecurrenceProcessor) Run(ctx context.Context, asOf time.Time) (RunReport, error) {
	start := time.Now()
	asOf = domain.TruncateDay(asOf)
	ctx, span := p.tracer.Start(ctx, "recurrence.run",
		trace.WithAttributes(attribute.String("as_of", asOf.Format(time.DateOnly))))
	defer span.End()

	report := RunReport{AsOf: asOf}

	defs, err := p.store.ListDue(ctx, asOf)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "list due definitions")
		report.Partial = ctx.Err() != nil
		return report, fmt.Errorf("failed to list due definitions: %w", err)
	}
	report.Due = len(defs)

	planned := p.scheduler.ProcessDue(defs, asOf)
	report.Errors = append(report.Errors, planned.Errors...)

	results := make([]itemResult, len(planned.Outcomes))
	var wg sync.WaitGroup

dispatch:
	for i, outcome := range planned.Outcomes {
		if ctx.Err() != nil {
			break
		}
		select {
		case <-ctx.Done():
			break dispatch
		case p.workerPool <- struct{}{}:
		}

		results[i].started = true
		wg.Add(1)
		go func(i int, outcome recurrence.Outcome) {
			defer wg.Done()
			defer func() { <-p.workerPool }()
			results[i].materialized, results[i].duplicates, results[i].err = p.apply(ctx, outcome)
		}(i, outcome)
	}
	wg.Wait()

	for i, r := range results {
		if !r.started {
			continue
		}
		outcome := planned.Outcomes[i]
		// Entries appended before a failure are in the ledger even though the definition is not saved.
		report.Materialized += r.materialized
		report.Duplicates += r.duplicates
		if r.err != nil {
			report.Errors = append(report.Errors, domain.PerItemError{DefinitionID: outcome.Definition.ID, Err: r.err})
			p.logger.ErrorContext(ctx, "Recurring definition failed",
				slog.String("definition_id", outcome.Definition.ID),
				slog.String("error", r.err.Error()))
			continue
		}
		report.Saved = append(report.Saved, outcome.Definition.ID)
		if outcome.Completed {
			report.Completed++
		}
	}
	report.Duration = time.Since(start)
	report.Partial = ctx.Err() != nil

	span.SetAttributes(
		attribute.Int("due", report.Due),
		attribute.Int("materialized", report.Materialized),
		attribute.Int("failures", len(report.Errors)),
	)
	if p.metrics != nil {
		p.metrics.RecordRecurrenceRun(metrics.RunStats{
			Duration:     report.Duration,
			Materialized: report.Materialized,
			Duplicates:   report.Duplicates,
			Failures:     len(report.Errors),
			Completed:    report.Completed,
			Canceled:     ctx.Err() != nil,
		})
	}

	p.logger.InfoContext(ctx, "Recurrence run finished",
		slog.String("as_of", asOf.Format(time.DateOnly)),
		slog.Int("due", report.Due),
		slog.Int("saved", len(report.Saved)),
		slog.Int("materialized", report.Materialized),
		slog.Int("duplicates", report.Duplicates),
		slog.Int("failures", len(report.Errors)))

	if err := ctx.Err(); err != nil {
		span.SetStatus(codes.Error, "canceled")
		return report, err
	}
	return report, nil
}

func (p *RecurrenceProcessor) apply(ctx context.Context, outcome recurrence.Outcome) (materialized, duplicates int, err error) {
	for _, entry := range outcome.Entries {
		err := p.ledger.Append(ctx, entry)
		if errors.Is(err, repository.ErrDuplicate) {
			duplicates++
			continue
		}
		if err != nil {
			return materialized, duplicates, fmt.Errorf("failed to append %s: %w", entry.IdempotencyKey, err)
		}
		materialized++
	}

	if err := p.store.Save(ctx, outcome.Definition); err != nil {
		return materialized, duplicates, fmt.Errorf("failed to save definition: %w", err)
	}
	return materialized, duplicates, nil
}
