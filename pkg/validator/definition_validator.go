package validator

import (
	"errors"
	"finance_planner/internal/domain"
	"fmt"
	"regexp"
	"time"
)

var (
	ErrInvalidAmount   = errors.New("invalid template amount")
	ErrInvalidCurrency = errors.New("invalid currency")
	ErrInvalidAccount  = errors.New("invalid account")
	ErrInvalidSchedule = errors.New("invalid schedule")
)

// maxHorizon bounds how far in the future a definition may start.
const maxHorizon = 50 * 365 * 24 * time.Hour

type DefinitionValidator struct {
	currencyRegex *regexp.Regexp
	limits        map[string]float64
	now           func() time.Time
}

func NewDefinitionValidator() *DefinitionValidator {
	return &DefinitionValidator{
		currencyRegex: regexp.MustCompile(`^[A-Z]{3}$`),
		limits: map[string]float64{
			"USD": 10_000_000,
			"EUR": 9_000_000,
			"GBP": 8_000_000,
		},
		now: time.Now,
	}
}

// ValidateDefinition checks a definition submitted by a client. All problems are reported
// together, wrapped in domain.ErrInvalidParameter.
func (v *DefinitionValidator) ValidateDefinition(def *domain.RecurringDefinition) error {
	var errs []error

	tmpl := def.Template
	if err := v.ValidateAmount(tmpl.Amount, tmpl.Currency); err != nil {
		errs = append(errs, err)
	}

	if !v.currencyRegex.MatchString(tmpl.Currency) {
		errs = append(errs, ErrInvalidCurrency)
	}

	if tmpl.AccountID == "" {
		errs = append(errs, ErrInvalidAccount)
	}
	if tmpl.Type == domain.TypeTransfer {
		if tmpl.ToAccountID == "" {
			errs = append(errs, ErrInvalidAccount)
		} else if tmpl.AccountID == tmpl.ToAccountID {
			errs = append(errs, errors.New("cannot transfer to same account"))
		}
	}

	if def.StartDate.IsZero() {
		errs = append(errs, fmt.Errorf("%w: start date is required", ErrInvalidSchedule))
	} else if def.StartDate.After(v.now().Add(maxHorizon)) {
		errs = append(errs, fmt.Errorf("%w: start date too far in the future", ErrInvalidSchedule))
	}

	if err := def.Validate(); err != nil {
		errs = append(errs, err)
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: validation errors: %w", domain.ErrInvalidParameter, errors.Join(errs...))
	}
	return nil
}

func (v *DefinitionValidator) ValidateAmount(amount float64, currency string) error {
	if amount <= 0 {
		return ErrInvalidAmount
	}

	if limit, exists := v.limits[currency]; exists && amount > limit {
		return fmt.Errorf("%w: exceeds maximum limit for %s: %.2f", ErrInvalidAmount, currency, limit)
	}

	return nil
}
