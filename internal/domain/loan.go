package domain

import (
	"math"
)

type LoanParameters struct {
	Principal               float64  `json:"principal"`
	AnnualRatePercent       float64  `json:"annual_rate_percent"`
	TermMonths              int      `json:"term_months"`
	PromotionalRatePercent  *float64 `json:"promotional_rate_percent,omitempty"`
	PromotionalPeriodMonths int      `json:"promotional_period_months,omitempty"`
}

// NewLoanParameters builds validated loan parameters without a promotional segment.
func NewLoanParameters(principal, annualRatePercent float64, termMonths int) (LoanParameters, error) {
	p := LoanParameters{
		Principal:         principal,
		AnnualRatePercent: annualRatePercent,
		TermMonths:        termMonths,
	}
	if err := p.Validate(); err != nil {
		return LoanParameters{}, err
	}
	return p, nil
}

// WithPromotion returns a copy carrying a promotional rate for the first periodMonths.
func (p LoanParameters) WithPromotion(ratePercent float64, periodMonths int) (LoanParameters, error) {
	rate := ratePercent
	p.PromotionalRatePercent = &rate
	p.PromotionalPeriodMonths = periodMonths
	if err := p.Validate(); err != nil {
		return LoanParameters{}, err
	}
	return p, nil
}

func (p LoanParameters) HasPromotion() bool {
	return p.PromotionalRatePercent != nil
}

func (p LoanParameters) Validate() error {
	if !isFinite(p.Principal) || p.Principal <= 0 {
		return invalidParameter("principal must be positive, got %v", p.Principal)
	}
	if !isFinite(p.AnnualRatePercent) || p.AnnualRatePercent < 0 {
		return invalidParameter("annual rate must be non-negative, got %v", p.AnnualRatePercent)
	}
	if p.TermMonths < 1 {
		return invalidParameter("term must be at least one month, got %d", p.TermMonths)
	}
	if p.PromotionalRatePercent == nil {
		if p.PromotionalPeriodMonths != 0 {
			return invalidParameter("promotional period set without a promotional rate")
		}
		return nil
	}
	promo := *p.PromotionalRatePercent
	if !isFinite(promo) || promo < 0 {
		return invalidParameter("promotional rate must be non-negative, got %v", promo)
	}
	if p.PromotionalPeriodMonths <= 0 || p.PromotionalPeriodMonths >= p.TermMonths {
		return invalidParameter("promotional period must be within (0, %d), got %d",
			p.TermMonths, p.PromotionalPeriodMonths)
	}
	return nil
}

type ScheduleEntry struct {
	Month            int     `json:"month"`
	Payment          float64 `json:"payment"`
	Principal        float64 `json:"principal"`
	Interest         float64 `json:"interest"`
	RemainingBalance float64 `json:"remaining_balance"`
}

type AmortizationResult struct {
	MonthlyPayment            float64         `json:"monthly_payment"`
	PromotionalMonthlyPayment float64         `json:"promotional_monthly_payment,omitempty"`
	BalanceAtPromotionEnd     float64         `json:"balance_at_promotion_end,omitempty"`
	TotalInterest             float64         `json:"total_interest"`
	TotalCost                 float64         `json:"total_cost"`
	Schedule                  []ScheduleEntry `json:"schedule,omitempty"`
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
