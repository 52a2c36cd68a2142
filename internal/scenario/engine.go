package scenario

import (
	"context"
	"finance_planner/internal/amortization"
	"finance_planner/internal/domain"
	"finance_planner/pkg/money"
	"fmt"
	"math"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

var scenarioNamespace = uuid.MustParse("0b8e7c2a-4f51-5d3e-8a6b-2c9d1e7f4a35")

// Engine projects cash flow for one plan. It holds only its inputs and is safe for concurrent use.
type Engine struct {
	in  domain.EngineInput
	cfg Config
}

func NewEngine(in domain.EngineInput, cfg Config) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if in.Loan.TermMonths <= 0 {
		return nil, fmt.Errorf("%w: horizon must be at least one month, got %d", domain.ErrInvalidScenarioInput, in.Loan.TermMonths)
	}
	if err := in.Validate(); err != nil {
		return nil, err
	}
	if in.Investment != nil {
		inv := *in.Investment
		in.Investment = &inv
	}
	return &Engine{in: in, cfg: cfg}, nil
}

func (e *Engine) Baseline() domain.ScenarioDefinition {
	return e.in.Baseline
}

func (e *Engine) Horizon() int {
	return e.in.Loan.TermMonths
}

// PredefinedDefinitions derives the optimistic, pessimistic and stress variants from the baseline.
// IDs are stable for a given baseline ID.
func (e *Engine) PredefinedDefinitions() []domain.ScenarioDefinition {
	base := e.in.Baseline
	stress := e.cfg.Stress
	return []domain.ScenarioDefinition{
		base,
		base.WithIdentity(e.variantID(domain.ScenarioOptimistic), "Optimistic", domain.ScenarioOptimistic).
			WithAssumptions(e.cfg.Optimistic.Apply(base.Assumptions)),
		base.WithIdentity(e.variantID(domain.ScenarioPessimistic), "Pessimistic", domain.ScenarioPessimistic).
			WithAssumptions(e.cfg.Pessimistic.Apply(base.Assumptions)),
		base.WithIdentity(e.variantID(domain.ScenarioStress), "Stress test", domain.ScenarioStress).
			WithAssumptions(stress.Apply(base.Assumptions)).
			WithOverrides(withShock(base.Overrides, domain.Shock{
				Month:                  stress.ShockMonth,
				IncomeDropPercent:      stress.IncomeDropPercent,
				RateResetPercentagePts: stress.RateResetPercentPts,
			})),
	}
}

func (e *Engine) variantID(t domain.ScenarioType) string {
	return uuid.NewSHA1(scenarioNamespace, []byte(e.in.Baseline.ID+"/"+string(t))).String()
}

func withShock(o domain.ScenarioOverrides, s domain.Shock) domain.ScenarioOverrides {
	o.Shock = &s
	return o
}

// GeneratePredefinedScenarios projects the baseline and its variants concurrently.
// Results come back in fixed order: baseline, optimistic, pessimistic, stress.
func (e *Engine) GeneratePredefinedScenarios(ctx context.Context) ([]domain.ScenarioResult, error) {
	defs := e.PredefinedDefinitions()
	results := make([]domain.ScenarioResult, len(defs))

	g, ctx := errgroup.WithContext(ctx)
	for i, def := range defs {
		i, def := i, def
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			res, err := e.GenerateScenario(def)
			if err != nil {
				return err
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

type projection struct {
	income       float64
	expenses     float64
	rent         float64
	propertyExp  float64
	propertyVal  float64
	loan         domain.LoanParameters
	appreciation float64
	growth       float64
	inflation    float64
	career       float64
	shock        *domain.Shock
}

func (e *Engine) prepare(def domain.ScenarioDefinition) (projection, error) {
	if err := def.Validate(); err != nil {
		return projection{}, err
	}
	a := def.Assumptions
	p := projection{
		income:    e.in.Finances.MonthlyIncome,
		expenses:  e.in.Finances.MonthlyExpenses,
		loan:      e.in.Loan,
		growth:    a.EconomicGrowthPercent / 100,
		inflation: a.InflationRatePercent / 100,
		career:    a.PersonalCareerGrowthPercent / 100,
		shock:     def.Overrides.Shock,
	}
	if o := def.Overrides; o.MonthlyIncome != nil {
		p.income = *o.MonthlyIncome
	}
	if o := def.Overrides; o.MonthlyExpenses != nil {
		p.expenses = *o.MonthlyExpenses
	}
	if o := def.Overrides; o.AnnualRatePercent != nil {
		p.loan.AnnualRatePercent = *o.AnnualRatePercent
	}
	if err := p.loan.Validate(); err != nil {
		return projection{}, err
	}
	if p.income <= 0 {
		return projection{}, fmt.Errorf("%w: scenario %s: monthly income must be positive", domain.ErrInvalidScenarioInput, def.ID)
	}
	if s := p.shock; s != nil && p.loan.AnnualRatePercent+s.RateResetPercentagePts < 0 {
		return projection{}, fmt.Errorf("%w: scenario %s: rate reset drives the rate below zero", domain.ErrInvalidScenarioInput, def.ID)
	}
	if inv := e.in.Investment; inv != nil {
		p.rent = inv.ExpectedRentalIncome
		p.propertyExp = inv.PropertyExpenses
		p.propertyVal = inv.InitialPropertyValue
		p.appreciation = (inv.AppreciationRatePercent + e.cfg.Trend.For(a.PropertyMarketTrend)) / 100
	}
	for _, r := range []struct {
		name string
		rate float64
	}{
		{"economic growth", p.growth},
		{"inflation", p.inflation},
		{"career growth", p.career},
		{"property appreciation", p.appreciation},
	} {
		if r.rate <= -1 {
			return projection{}, fmt.Errorf("%w: scenario %s: effective %s rate %v%% is at or below -100%%",
				domain.ErrInvalidScenarioInput, def.ID, r.name, r.rate*100)
		}
	}
	return p, nil
}

// GenerateScenario runs the month-by-month projection for def over the loan term.
// Identical inputs produce identical output.
func (e *Engine) GenerateScenario(def domain.ScenarioDefinition) (domain.ScenarioResult, error) {
	p, err := e.prepare(def)
	if err != nil {
		return domain.ScenarioResult{}, err
	}

	n := p.loan.TermMonths
	sched := newPaymentPlan(p.loan, p.shock)
	series := make([]domain.MonthPoint, 0, n)

	var cumulative, netRent, totalInterest float64
	var firstPayment float64
	for t := 1; t <= n; t++ {
		payment, interest, balance := sched.next(t)
		if t == 1 {
			firstPayment = payment
		}
		totalInterest += interest

		income := p.income * e.growthFactor(p.career, t)
		if p.shock != nil && t >= p.shock.Month {
			income *= 1 - p.shock.IncomeDropPercent/100
		}
		expenses := p.expenses * e.growthFactor(p.inflation, t)
		rent := p.rent * e.growthFactor(p.growth, t)
		propertyExp := p.propertyExp * e.growthFactor(p.inflation, t)
		value := p.propertyVal * math.Pow(1+p.appreciation, float64(t)/12)

		cashFlow := income + rent - expenses - payment - propertyExp
		cumulative += cashFlow
		netRent += rent - propertyExp
		equity := value - balance
		if !finite(income, rent, expenses, propertyExp, value, cumulative) {
			return domain.ScenarioResult{}, fmt.Errorf("%w: scenario %s: projection overflows at month %d",
				domain.ErrInvalidScenarioInput, def.ID, t)
		}

		series = append(series, domain.MonthPoint{
			Month:              t,
			Income:             money.Round(income),
			RentalIncome:       money.Round(rent),
			Expenses:           money.Round(expenses),
			PropertyExpenses:   money.Round(propertyExp),
			LoanPayment:        money.Round(payment),
			CashFlow:           money.Round(cashFlow),
			CumulativeCashFlow: money.Round(cumulative),
			PropertyValue:      money.Round(value),
			LoanBalance:        money.Round(balance),
			Equity:             money.Round(equity),
			NetWorth:           money.Round(cumulative + equity),
			DebtToIncome:       ratio(payment, income+rent),
		})
	}

	summary := domain.ScenarioSummary{
		AffordabilityScore: e.affordability(p, def.Assumptions.EmergencyFundMonths, firstPayment),
		DebtToIncome:       ratio(firstPayment, p.income+p.rent),
		NetWorthAtHorizon:  series[n-1].NetWorth,
		TotalInterest:      money.Round(totalInterest),
	}
	if e.in.Investment != nil {
		finalValue := p.propertyVal * math.Pow(1+p.appreciation, float64(n)/12)
		if !finite(finalValue) {
			return domain.ScenarioResult{}, fmt.Errorf("%w: scenario %s: property value overflows",
				domain.ErrInvalidScenarioInput, def.ID)
		}
		roi := money.RoundTo((finalValue-p.propertyVal+netRent)/p.propertyVal*100, 2)
		summary.ROIPercent = &roi
	}

	return domain.ScenarioResult{
		ScenarioID: def.ID,
		Name:       def.Name,
		Type:       def.Type,
		Horizon:    n,
		Series:     series,
		Summary:    summary,
	}, nil
}

func finite(values ...float64) bool {
	for _, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// growthFactor compounds an annual rate up to month t. Month 1 is the unadjusted starting value.
func (e *Engine) growthFactor(annual float64, t int) float64 {
	if annual == 0 {
		return 1
	}
	if e.cfg.Compounding == CompoundMonthly {
		return math.Pow(1+annual, float64(t-1)/12)
	}
	return math.Pow(1+annual, float64((t-1)/12))
}

// affordability scores the starting position on a 0-10 scale.
func (e *Engine) affordability(p projection, emergencyMonths, payment float64) float64 {
	w := e.cfg.Affordability
	gross := p.income + p.rent
	dti := payment / gross
	surplus := (gross - p.expenses - payment - p.propertyExp) / gross

	dtiScore := clamp(10*(1-dti/w.MaxDebtToIncome), 0, 10)
	surplusScore := clamp(10*surplus/w.TargetSurplusRatio, 0, 10)
	fundScore := clamp(10*emergencyMonths/w.TargetEmergencyMonths, 0, 10)

	total := w.DebtToIncome + w.Surplus + w.EmergencyFund
	score := (dtiScore*w.DebtToIncome + surplusScore*w.Surplus + fundScore*w.EmergencyFund) / total
	return money.RoundTo(score, 1)
}

func ratio(num, den float64) float64 {
	if den <= 0 {
		return 0
	}
	return money.RoundTo(num/den, 4)
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

// paymentPlan yields the loan payment month by month, switching rate at the promotion end and at a rate-reset shock.
type paymentPlan struct {
	loan    domain.LoanParameters
	shock   *domain.Shock
	balance float64
	rate    float64
	payment float64
}

func newPaymentPlan(loan domain.LoanParameters, shock *domain.Shock) *paymentPlan {
	pp := &paymentPlan{loan: loan, shock: shock, balance: loan.Principal, rate: loan.AnnualRatePercent}
	if loan.HasPromotion() {
		pp.rate = *loan.PromotionalRatePercent
	}
	pp.payment = amortization.AnnuityPayment(loan.Principal, pp.rate, loan.TermMonths)
	return pp
}

func (pp *paymentPlan) next(t int) (payment, interest, balance float64) {
	n := pp.loan.TermMonths
	remaining := n - t + 1
	switch {
	case pp.shock != nil && pp.shock.RateResetPercentagePts != 0 && t == pp.shock.Month:
		pp.rate = pp.loan.AnnualRatePercent + pp.shock.RateResetPercentagePts
		pp.payment = amortization.AnnuityPayment(pp.balance, pp.rate, remaining)
	case pp.loan.HasPromotion() && t == pp.loan.PromotionalPeriodMonths+1 && !pp.shocked(t):
		pp.rate = pp.loan.AnnualRatePercent
		pp.payment = amortization.AnnuityPayment(pp.balance, pp.rate, remaining)
	}

	if pp.balance <= 0 {
		return 0, 0, 0
	}
	interest = pp.balance * amortization.MonthlyRate(pp.rate)
	payment = pp.payment
	principal := payment - interest
	if t == n {
		principal = pp.balance
		payment = principal + interest
	}
	pp.balance -= principal
	return payment, interest, pp.balance
}

func (pp *paymentPlan) shocked(t int) bool {
	return pp.shock != nil && pp.shock.RateResetPercentagePts != 0 && t > pp.shock.Month
}
