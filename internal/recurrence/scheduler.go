package recurrence

import (
	"finance_planner/internal/domain"
	"fmt"
	"time"
)

type Config struct {
	// MaxCatchUp bounds how many missed occurrences of one definition a single run materializes.
	MaxCatchUp int `toml:"max_catch_up"`
}

func DefaultConfig() Config {
	return Config{MaxCatchUp: 366}
}

type Scheduler struct {
	cfg Config
}

func NewScheduler(cfg Config) (*Scheduler, error) {
	if cfg.MaxCatchUp < 1 {
		return nil, fmt.Errorf("%w: max catch-up must be at least 1, got %d", domain.ErrInvalidParameter, cfg.MaxCatchUp)
	}
	return &Scheduler{cfg: cfg}, nil
}

// Outcome is the next state of one definition together with the entries it produced.
type Outcome struct {
	Definition domain.RecurringDefinition  `json:"definition"`
	Entries    []domain.LedgerEntryRequest `json:"entries"`
	Completed  bool                        `json:"completed"`
}

type Result struct {
	Outcomes []Outcome             `json:"outcomes"`
	Errors   []domain.PerItemError `json:"errors,omitempty"`
}

func (r Result) Materialized() []domain.LedgerEntryRequest {
	var out []domain.LedgerEntryRequest
	for _, o := range r.Outcomes {
		out = append(out, o.Entries...)
	}
	return out
}

func (r Result) Updated() []domain.RecurringDefinition {
	out := make([]domain.RecurringDefinition, 0, len(r.Outcomes))
	for _, o := range r.Outcomes {
		out = append(out, o.Definition)
	}
	return out
}

func IsDue(def domain.RecurringDefinition, asOf time.Time) bool {
	return def.IsActive && !domain.TruncateDay(def.NextDueDate).After(domain.TruncateDay(asOf))
}

// ShouldTerminate reports whether def has reached a terminal condition as of today.
func ShouldTerminate(def domain.RecurringDefinition, today time.Time) bool {
	if def.MaxOccurrences != nil && def.OccurrencesCreated >= *def.MaxOccurrences {
		return true
	}
	if def.EndDate == nil {
		return false
	}
	end := domain.TruncateDay(*def.EndDate)
	return domain.TruncateDay(today).After(end) || domain.TruncateDay(def.NextDueDate).After(end)
}

// ProcessDue computes the next state of every due definition. Definitions that are not due are skipped.
// A definition that fails yields a PerItemError and does not affect the others.
func (s *Scheduler) ProcessDue(defs []domain.RecurringDefinition, asOf time.Time) Result {
	var res Result
	for _, def := range defs {
		if !IsDue(def, asOf) {
			continue
		}
		out, err := s.Process(def, asOf)
		if err != nil {
			res.Errors = append(res.Errors, domain.PerItemError{DefinitionID: def.ID, Err: err})
			continue
		}
		res.Outcomes = append(res.Outcomes, out)
	}
	return res
}

// Process materializes every occurrence of def due on or before asOf, up to the catch-up limit.
// The input is not modified.
func (s *Scheduler) Process(def domain.RecurringDefinition, asOf time.Time) (Outcome, error) {
	if err := def.Validate(); err != nil {
		return Outcome{}, err
	}
	today := domain.TruncateDay(asOf)
	next := def.Clone()
	next.NextDueDate = domain.TruncateDay(next.NextDueDate)
	anchor := next.NextDueDate.Day()
	if !next.StartDate.IsZero() {
		anchor = domain.TruncateDay(next.StartDate).Day()
	}

	out := Outcome{}
	for i := 0; i < s.cfg.MaxCatchUp && IsDue(next, today); i++ {
		due := next.NextDueDate
		if next.EndDate != nil && due.After(domain.TruncateDay(*next.EndDate)) {
			next.IsActive = false
			break
		}
		if next.MaxOccurrences != nil && next.OccurrencesCreated >= *next.MaxOccurrences {
			next.IsActive = false
			break
		}

		next.OccurrencesCreated++
		out.Entries = append(out.Entries, domain.NewLedgerEntryRequest(next, due, next.OccurrencesCreated))

		advanced, err := AdvanceAnchored(due, next.Frequency, next.Interval, anchor)
		if err != nil {
			return Outcome{}, err
		}
		next.NextDueDate = advanced

		// Each occurrence is judged on its own due date so a late run still catches up to the end date.
		if ShouldTerminate(next, due) {
			next.IsActive = false
		}
	}

	out.Definition = next
	out.Completed = def.IsActive && !next.IsActive
	return out, nil
}
