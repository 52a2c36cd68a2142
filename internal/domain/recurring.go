package domain

import (
	"time"
)

type Frequency string

const (
	FrequencyDaily   Frequency = "daily"
	FrequencyWeekly  Frequency = "weekly"
	FrequencyMonthly Frequency = "monthly"
	FrequencyYearly  Frequency = "yearly"
)

func (f Frequency) Valid() bool {
	switch f {
	case FrequencyDaily, FrequencyWeekly, FrequencyMonthly, FrequencyYearly:
		return true
	}
	return false
}

type TransactionTemplate struct {
	Type        TransactionType `json:"type"`
	Amount      float64         `json:"amount"`
	Currency    string          `json:"currency"`
	AccountID   string          `json:"account_id"`
	ToAccountID string          `json:"to_account_id,omitempty"`
	CategoryID  string          `json:"category_id,omitempty"`
	Description string          `json:"description,omitempty"`
}

type RecurringDefinition struct {
	ID                 string              `json:"id"`
	OwnerID            string              `json:"owner_id"`
	Template           TransactionTemplate `json:"template"`
	Frequency          Frequency           `json:"frequency"`
	Interval           int                 `json:"interval"`
	StartDate          time.Time           `json:"start_date"`
	EndDate            *time.Time          `json:"end_date,omitempty"`
	MaxOccurrences     *int                `json:"max_occurrences,omitempty"`
	OccurrencesCreated int                 `json:"occurrences_created"`
	NextDueDate        time.Time           `json:"next_due_date"`
	IsActive           bool                `json:"is_active"`
	CreatedAt          time.Time           `json:"created_at"`
	UpdatedAt          time.Time           `json:"updated_at"`
}

// NewRecurringDefinition returns an active definition whose first occurrence is due on startDate.
func NewRecurringDefinition(id, ownerID string, tmpl TransactionTemplate, freq Frequency, interval int, startDate time.Time) *RecurringDefinition {
	start := TruncateDay(startDate)
	return &RecurringDefinition{
		ID:          id,
		OwnerID:     ownerID,
		Template:    tmpl,
		Frequency:   freq,
		Interval:    interval,
		StartDate:   start,
		NextDueDate: start,
		IsActive:    true,
	}
}

func (d *RecurringDefinition) WithEndDate(end time.Time) *RecurringDefinition {
	e := TruncateDay(end)
	d.EndDate = &e
	return d
}

func (d *RecurringDefinition) WithMaxOccurrences(n int) *RecurringDefinition {
	d.MaxOccurrences = &n
	return d
}

// Clone returns a deep copy; optional fields do not alias the receiver's.
func (d RecurringDefinition) Clone() RecurringDefinition {
	if d.EndDate != nil {
		end := *d.EndDate
		d.EndDate = &end
	}
	if d.MaxOccurrences != nil {
		n := *d.MaxOccurrences
		d.MaxOccurrences = &n
	}
	return d
}

func (d RecurringDefinition) Validate() error {
	if d.ID == "" {
		return invalidParameter("recurring definition id is required")
	}
	if !d.Frequency.Valid() {
		return invalidParameter("unknown frequency %q", d.Frequency)
	}
	if d.Interval < 1 {
		return invalidParameter("interval must be at least 1, got %d", d.Interval)
	}
	if d.OccurrencesCreated < 0 {
		return invalidParameter("occurrences created must be non-negative, got %d", d.OccurrencesCreated)
	}
	if d.MaxOccurrences != nil && *d.MaxOccurrences < 1 {
		return invalidParameter("max occurrences must be at least 1, got %d", *d.MaxOccurrences)
	}
	if d.NextDueDate.IsZero() {
		return invalidParameter("next due date is required")
	}
	if d.EndDate != nil && !d.StartDate.IsZero() && d.EndDate.Before(TruncateDay(d.StartDate)) {
		return invalidParameter("end date %s precedes start date %s",
			d.EndDate.Format(time.DateOnly), d.StartDate.Format(time.DateOnly))
	}
	return d.Template.Validate()
}

func (t TransactionTemplate) Validate() error {
	if !t.Type.Valid() {
		return invalidParameter("unknown transaction type %q", t.Type)
	}
	if !isFinite(t.Amount) || t.Amount <= 0 {
		return invalidParameter("template amount must be positive, got %v", t.Amount)
	}
	if t.AccountID == "" {
		return invalidParameter("template account is required")
	}
	if t.Type == TypeTransfer && t.ToAccountID == "" {
		return invalidParameter("transfer template requires a destination account")
	}
	return nil
}

// TruncateDay drops the clock part and normalizes to UTC.
func TruncateDay(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
