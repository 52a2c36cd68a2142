package recurrence

import (
	"errors"
	"finance_planner/internal/domain"
	"testing"
	"time"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func newScheduler(t *testing.T) *Scheduler {
	t.Helper()
	s, err := NewScheduler(DefaultConfig())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return s
}

func monthlyDefinition(id string, start time.Time) domain.RecurringDefinition {
	return *domain.NewRecurringDefinition(id, "owner-1", domain.TransactionTemplate{
		Type:      domain.TypeExpense,
		Amount:    1200,
		Currency:  "USD",
		AccountID: "acc-1",
	}, domain.FrequencyMonthly, 1, start)
}

func TestAdvanceDueDate(t *testing.T) {
	cases := []struct {
		name     string
		from     time.Time
		freq     domain.Frequency
		interval int
		want     time.Time
	}{
		{"monthly leap clamp", date(2024, 1, 31), domain.FrequencyMonthly, 1, date(2024, 2, 29)},
		{"monthly non-leap clamp", date(2023, 1, 31), domain.FrequencyMonthly, 1, date(2023, 2, 28)},
		{"monthly across year", date(2024, 11, 15), domain.FrequencyMonthly, 3, date(2025, 2, 15)},
		{"monthly thirty day clamp", date(2024, 3, 31), domain.FrequencyMonthly, 1, date(2024, 4, 30)},
		{"daily", date(2024, 2, 28), domain.FrequencyDaily, 2, date(2024, 3, 1)},
		{"weekly", date(2024, 12, 30), domain.FrequencyWeekly, 2, date(2025, 1, 13)},
		{"yearly leap day", date(2024, 2, 29), domain.FrequencyYearly, 1, date(2025, 2, 28)},
		{"yearly four years", date(2024, 2, 29), domain.FrequencyYearly, 4, date(2028, 2, 29)},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := AdvanceDueDate(tc.from, tc.freq, tc.interval)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !got.Equal(tc.want) {
				t.Errorf("expected %s, got %s", tc.want.Format(time.DateOnly), got.Format(time.DateOnly))
			}
		})
	}
}

func TestAdvanceDueDate_Invalid(t *testing.T) {
	if _, err := AdvanceDueDate(date(2024, 1, 1), domain.FrequencyMonthly, 0); !errors.Is(err, domain.ErrInvalidParameter) {
		t.Errorf("expected ErrInvalidParameter for zero interval, got %v", err)
	}
	if _, err := AdvanceDueDate(date(2024, 1, 1), "hourly", 1); !errors.Is(err, domain.ErrInvalidParameter) {
		t.Errorf("expected ErrInvalidParameter for unknown frequency, got %v", err)
	}
}

func TestAdvanceAnchored_RestoresDayAfterShortMonth(t *testing.T) {
	feb, err := AdvanceAnchored(date(2024, 1, 31), domain.FrequencyMonthly, 1, 31)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	mar, err := AdvanceAnchored(feb, domain.FrequencyMonthly, 1, 31)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !feb.Equal(date(2024, 2, 29)) || !mar.Equal(date(2024, 3, 31)) {
		t.Errorf("expected 2024-02-29 then 2024-03-31, got %s then %s",
			feb.Format(time.DateOnly), mar.Format(time.DateOnly))
	}
}

func TestIsDue(t *testing.T) {
	def := monthlyDefinition("rd", date(2024, 5, 10))

	if IsDue(def, date(2024, 5, 9)) {
		t.Error("expected not due the day before")
	}
	if !IsDue(def, time.Date(2024, 5, 10, 23, 59, 0, 0, time.UTC)) {
		t.Error("expected due on the due date regardless of time of day")
	}
	def.IsActive = false
	if IsDue(def, date(2024, 6, 1)) {
		t.Error("expected inactive definition never due")
	}
}

func TestShouldTerminate(t *testing.T) {
	def := monthlyDefinition("rd", date(2024, 1, 1))
	if ShouldTerminate(def, date(2030, 1, 1)) {
		t.Error("expected open-ended definition to continue")
	}

	withMax := def.Clone()
	limit := 2
	withMax.MaxOccurrences = &limit
	withMax.OccurrencesCreated = 2
	if !ShouldTerminate(withMax, date(2024, 1, 1)) {
		t.Error("expected termination once max occurrences reached")
	}

	withEnd := def.Clone()
	end := date(2024, 6, 30)
	withEnd.EndDate = &end
	withEnd.NextDueDate = date(2024, 6, 1)
	if ShouldTerminate(withEnd, date(2024, 6, 15)) {
		t.Error("expected definition to continue before the end date")
	}
	if !ShouldTerminate(withEnd, date(2024, 7, 1)) {
		t.Error("expected termination after the end date")
	}
	withEnd.NextDueDate = date(2024, 7, 1)
	if !ShouldTerminate(withEnd, date(2024, 6, 1)) {
		t.Error("expected termination when the next due date is past the end date")
	}
}

func TestScheduler_ProcessDue_MaxOccurrences(t *testing.T) {
	s := newScheduler(t)
	def := *domain.NewRecurringDefinition("rd", "owner-1", domain.TransactionTemplate{
		Type: domain.TypeIncome, Amount: 500, Currency: "USD", AccountID: "acc-1",
	}, domain.FrequencyWeekly, 1, date(2024, 1, 1)).WithMaxOccurrences(3)

	asOf := date(2024, 1, 1)
	for i := 1; i <= 3; i++ {
		res := s.ProcessDue([]domain.RecurringDefinition{def}, asOf)
		if len(res.Errors) != 0 {
			t.Fatalf("run %d: unexpected errors %v", i, res.Errors)
		}
		if len(res.Outcomes) != 1 || len(res.Outcomes[0].Entries) != 1 {
			t.Fatalf("run %d: expected one entry, got %+v", i, res.Outcomes)
		}
		if res.Outcomes[0].Entries[0].OccurrenceNumber != i {
			t.Errorf("run %d: expected occurrence %d, got %d", i, i, res.Outcomes[0].Entries[0].OccurrenceNumber)
		}
		def = res.Outcomes[0].Definition
		asOf = def.NextDueDate
	}

	if def.IsActive {
		t.Fatal("expected definition inactive after the third occurrence")
	}
	if def.OccurrencesCreated != 3 {
		t.Errorf("expected 3 occurrences, got %d", def.OccurrencesCreated)
	}
	if IsDue(def, asOf) {
		t.Error("expected fourth check not due")
	}
	if res := s.ProcessDue([]domain.RecurringDefinition{def}, asOf.AddDate(1, 0, 0)); len(res.Outcomes) != 0 {
		t.Errorf("expected nothing processed after completion, got %+v", res.Outcomes)
	}
}

func TestScheduler_ProcessDue_MaxOccurrencesSingleRun(t *testing.T) {
	s := newScheduler(t)
	def := *domain.NewRecurringDefinition("rd", "owner-1", domain.TransactionTemplate{
		Type: domain.TypeIncome, Amount: 500, Currency: "USD", AccountID: "acc-1",
	}, domain.FrequencyDaily, 1, date(2024, 1, 1)).WithMaxOccurrences(3)

	res := s.ProcessDue([]domain.RecurringDefinition{def}, date(2024, 1, 10))

	if len(res.Outcomes) != 1 {
		t.Fatalf("expected one outcome, got %d", len(res.Outcomes))
	}
	out := res.Outcomes[0]
	if len(out.Entries) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(out.Entries))
	}
	if out.Definition.IsActive || !out.Completed {
		t.Error("expected definition completed in a single run")
	}
	if !out.Entries[2].Date.Equal(date(2024, 1, 3)) {
		t.Errorf("expected last entry on 2024-01-03, got %s", out.Entries[2].Date.Format(time.DateOnly))
	}
	if def.OccurrencesCreated != 0 || !def.IsActive {
		t.Error("expected input definition untouched")
	}
}

func TestScheduler_ProcessDue_FailureDoesNotAbortBatch(t *testing.T) {
	s := newScheduler(t)
	first := monthlyDefinition("rd-1", date(2024, 3, 1))
	second := monthlyDefinition("rd-2", date(2024, 3, 1))
	second.Frequency = "fortnightly"
	third := monthlyDefinition("rd-3", date(2024, 3, 1))

	res := s.ProcessDue([]domain.RecurringDefinition{first, second, third}, date(2024, 3, 1))

	if len(res.Errors) != 1 || res.Errors[0].DefinitionID != "rd-2" {
		t.Fatalf("expected one error for rd-2, got %+v", res.Errors)
	}
	if !errors.Is(res.Errors[0], domain.ErrInvalidParameter) {
		t.Errorf("expected wrapped ErrInvalidParameter, got %v", res.Errors[0])
	}
	entries := res.Materialized()
	if len(entries) != 2 || entries[0].SourceDefinitionID != "rd-1" || entries[1].SourceDefinitionID != "rd-3" {
		t.Fatalf("expected entries for rd-1 and rd-3, got %+v", entries)
	}
	for _, d := range res.Updated() {
		if !d.NextDueDate.Equal(date(2024, 4, 1)) {
			t.Errorf("%s: expected next due 2024-04-01, got %s", d.ID, d.NextDueDate.Format(time.DateOnly))
		}
	}
}

func TestScheduler_ProcessDue_CatchUpUntilEndDate(t *testing.T) {
	s := newScheduler(t)
	def := monthlyDefinition("rd", date(2024, 1, 31))
	def.WithEndDate(date(2024, 4, 15))

	res := s.ProcessDue([]domain.RecurringDefinition{def}, date(2024, 6, 1))

	out := res.Outcomes[0]
	want := []time.Time{date(2024, 1, 31), date(2024, 2, 29), date(2024, 3, 31)}
	if len(out.Entries) != len(want) {
		t.Fatalf("expected %d entries, got %d", len(want), len(out.Entries))
	}
	for i, w := range want {
		if !out.Entries[i].Date.Equal(w) {
			t.Errorf("entry %d: expected %s, got %s", i, w.Format(time.DateOnly), out.Entries[i].Date.Format(time.DateOnly))
		}
	}
	if out.Definition.IsActive {
		t.Error("expected definition completed once past the end date")
	}
}

func TestScheduler_ProcessDue_PastEndDateCompletesWithoutEntry(t *testing.T) {
	s := newScheduler(t)
	def := monthlyDefinition("rd", date(2024, 1, 1))
	end := date(2024, 1, 20)
	def.EndDate = &end
	def.NextDueDate = date(2024, 2, 1)

	res := s.ProcessDue([]domain.RecurringDefinition{def}, date(2024, 2, 5))

	out := res.Outcomes[0]
	if len(out.Entries) != 0 {
		t.Errorf("expected no entries, got %d", len(out.Entries))
	}
	if out.Definition.IsActive || !out.Completed {
		t.Error("expected definition completed")
	}
}

func TestScheduler_ProcessDue_CatchUpBounded(t *testing.T) {
	s, err := NewScheduler(Config{MaxCatchUp: 2})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	def := *domain.NewRecurringDefinition("rd", "owner-1", domain.TransactionTemplate{
		Type: domain.TypeExpense, Amount: 5, Currency: "USD", AccountID: "acc-1",
	}, domain.FrequencyDaily, 1, date(2024, 1, 1))

	res := s.ProcessDue([]domain.RecurringDefinition{def}, date(2024, 1, 10))

	out := res.Outcomes[0]
	if len(out.Entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(out.Entries))
	}
	if !out.Definition.IsActive || !out.Definition.NextDueDate.Equal(date(2024, 1, 3)) {
		t.Errorf("expected active definition due 2024-01-03, got %+v", out.Definition)
	}
}

func TestScheduler_ProcessDue_SkipsNotDue(t *testing.T) {
	s := newScheduler(t)
	def := monthlyDefinition("rd", date(2024, 8, 1))

	res := s.ProcessDue([]domain.RecurringDefinition{def}, date(2024, 7, 31))

	if len(res.Outcomes) != 0 || len(res.Errors) != 0 {
		t.Errorf("expected nothing processed, got %+v", res)
	}
}
