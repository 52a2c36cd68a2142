package amortization

import (
	"finance_planner/internal/domain"
	"finance_planner/pkg/money"
	"math"
)

func MonthlyRate(annualRatePercent float64) float64 {
	return annualRatePercent / 100 / 12
}

// AnnuityPayment is the level payment that retires principal over months at the given annual rate.
// Inputs are not validated; use MonthlyPayment for checked parameters.
func AnnuityPayment(principal, annualRatePercent float64, months int) float64 {
	r := MonthlyRate(annualRatePercent)
	n := float64(months)
	if r == 0 {
		return principal / n
	}
	factor := math.Pow(1+r, n)
	return principal * r * factor / (factor - 1)
}

// RemainingBalance is the closed-form outstanding balance after paymentsMade level payments.
func RemainingBalance(principal, annualRatePercent float64, termMonths, paymentsMade int) float64 {
	if paymentsMade <= 0 {
		return principal
	}
	if paymentsMade >= termMonths {
		return 0
	}
	r := MonthlyRate(annualRatePercent)
	if r == 0 {
		return principal * (1 - float64(paymentsMade)/float64(termMonths))
	}
	payment := AnnuityPayment(principal, annualRatePercent, termMonths)
	growth := math.Pow(1+r, float64(paymentsMade))
	return principal*growth - payment*(growth-1)/r
}

// MonthlyPayment returns the unrounded level payment at the regular rate over the full term.
func MonthlyPayment(p domain.LoanParameters) (float64, error) {
	if err := p.Validate(); err != nil {
		return 0, err
	}
	return AnnuityPayment(p.Principal, p.AnnualRatePercent, p.TermMonths), nil
}

func TotalCost(p domain.LoanParameters) (float64, error) {
	if err := p.Validate(); err != nil {
		return 0, err
	}
	if !p.HasPromotion() {
		return money.Round(AnnuityPayment(p.Principal, p.AnnualRatePercent, p.TermMonths) * float64(p.TermMonths)), nil
	}
	seg := promotionalSegments(p)
	return money.Round(seg.promoPayment*float64(seg.promoMonths) + seg.regularPayment*float64(seg.regularMonths)), nil
}

func TotalInterest(p domain.LoanParameters) (float64, error) {
	cost, err := TotalCost(p)
	if err != nil {
		return 0, err
	}
	return money.Round(cost - p.Principal), nil
}

// Compute builds the full schedule, switching to the promotional path when the loan carries a promotion.
func Compute(p domain.LoanParameters) (domain.AmortizationResult, error) {
	if err := p.Validate(); err != nil {
		return domain.AmortizationResult{}, err
	}
	if p.HasPromotion() {
		return computePromotional(p), nil
	}
	payment := AnnuityPayment(p.Principal, p.AnnualRatePercent, p.TermMonths)
	entries, total := buildSchedule(p.Principal, []segment{{
		months:  p.TermMonths,
		rate:    MonthlyRate(p.AnnualRatePercent),
		payment: payment,
	}})
	return domain.AmortizationResult{
		MonthlyPayment: money.Round(payment),
		TotalCost:      money.Round(total),
		TotalInterest:  money.Round(total - p.Principal),
		Schedule:       entries,
	}, nil
}

// ComputeWithPromotionalRate amortizes the promotional segment first and re-amortizes the
// balance left at the transition over the remaining months at the regular rate.
// Loans without a promotion get the plain schedule.
func ComputeWithPromotionalRate(p domain.LoanParameters) (domain.AmortizationResult, error) {
	return Compute(p)
}

type segments struct {
	promoMonths      int
	regularMonths    int
	promoPayment     float64
	regularPayment   float64
	balanceAtSwitch  float64
	promoMonthlyRate float64
}

func promotionalSegments(p domain.LoanParameters) segments {
	promoRate := *p.PromotionalRatePercent
	k := p.PromotionalPeriodMonths
	balance := RemainingBalance(p.Principal, promoRate, p.TermMonths, k)
	return segments{
		promoMonths:      k,
		regularMonths:    p.TermMonths - k,
		promoPayment:     AnnuityPayment(p.Principal, promoRate, p.TermMonths),
		regularPayment:   AnnuityPayment(balance, p.AnnualRatePercent, p.TermMonths-k),
		balanceAtSwitch:  balance,
		promoMonthlyRate: MonthlyRate(promoRate),
	}
}

func computePromotional(p domain.LoanParameters) domain.AmortizationResult {
	seg := promotionalSegments(p)
	entries, total := buildSchedule(p.Principal, []segment{
		{months: seg.promoMonths, rate: seg.promoMonthlyRate, payment: seg.promoPayment},
		{months: seg.regularMonths, rate: MonthlyRate(p.AnnualRatePercent), payment: seg.regularPayment},
	})
	return domain.AmortizationResult{
		MonthlyPayment:            money.Round(seg.regularPayment),
		PromotionalMonthlyPayment: money.Round(seg.promoPayment),
		BalanceAtPromotionEnd:     money.Round(seg.balanceAtSwitch),
		TotalCost:                 money.Round(total),
		TotalInterest:             money.Round(total - p.Principal),
		Schedule:                  entries,
	}
}
