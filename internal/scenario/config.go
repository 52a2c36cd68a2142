package scenario

import (
	"finance_planner/internal/domain"
	"fmt"
)

type Compounding string

const (
	CompoundAnnually Compounding = "annual"
	CompoundMonthly  Compounding = "monthly"
)

// Perturbation shifts the baseline assumptions by percentage points.
type Perturbation struct {
	EconomicGrowthDeltaPts float64            `toml:"economic_growth_delta_pts"`
	InflationDeltaPts      float64            `toml:"inflation_delta_pts"`
	CareerGrowthDeltaPts   float64            `toml:"career_growth_delta_pts"`
	MarketTrend            domain.MarketTrend `toml:"market_trend"`
}

func (p Perturbation) Apply(a domain.EconomicAssumptions) domain.EconomicAssumptions {
	a.EconomicGrowthPercent += p.EconomicGrowthDeltaPts
	a.InflationRatePercent += p.InflationDeltaPts
	a.PersonalCareerGrowthPercent += p.CareerGrowthDeltaPts
	if p.MarketTrend != "" {
		a.PropertyMarketTrend = p.MarketTrend
	}
	return a
}

type StressTest struct {
	Perturbation
	ShockMonth          int     `toml:"shock_month"`
	IncomeDropPercent   float64 `toml:"income_drop_percent"`
	RateResetPercentPts float64 `toml:"rate_reset_percentage_pts"`
}

type AffordabilityWeights struct {
	DebtToIncome  float64 `toml:"debt_to_income"`
	Surplus       float64 `toml:"surplus"`
	EmergencyFund float64 `toml:"emergency_fund"`
	// MaxDebtToIncome is the ratio at which the DTI component scores zero.
	MaxDebtToIncome       float64 `toml:"max_debt_to_income"`
	TargetSurplusRatio    float64 `toml:"target_surplus_ratio"`
	TargetEmergencyMonths float64 `toml:"target_emergency_months"`
}

type TrendAdjustments struct {
	DecliningPts float64 `toml:"declining_pts"`
	StablePts    float64 `toml:"stable_pts"`
	GrowingPts   float64 `toml:"growing_pts"`
}

func (t TrendAdjustments) For(trend domain.MarketTrend) float64 {
	switch trend {
	case domain.TrendDeclining:
		return t.DecliningPts
	case domain.TrendGrowing:
		return t.GrowingPts
	default:
		return t.StablePts
	}
}

type Config struct {
	Optimistic    Perturbation         `toml:"optimistic"`
	Pessimistic   Perturbation         `toml:"pessimistic"`
	Stress        StressTest           `toml:"stress"`
	Compounding   Compounding          `toml:"compounding"`
	Trend         TrendAdjustments     `toml:"trend_adjustments"`
	Affordability AffordabilityWeights `toml:"affordability"`
}

// DefaultConfig carries placeholder perturbation magnitudes; deployments are expected to tune them.
func DefaultConfig() Config {
	return Config{
		Optimistic: Perturbation{
			EconomicGrowthDeltaPts: 1,
			InflationDeltaPts:      -1,
			CareerGrowthDeltaPts:   1,
			MarketTrend:            domain.TrendGrowing,
		},
		Pessimistic: Perturbation{
			EconomicGrowthDeltaPts: -1,
			InflationDeltaPts:      1.5,
			CareerGrowthDeltaPts:   -1,
			MarketTrend:            domain.TrendDeclining,
		},
		Stress: StressTest{
			Perturbation: Perturbation{
				EconomicGrowthDeltaPts: -2,
				InflationDeltaPts:      2,
				CareerGrowthDeltaPts:   -2,
				MarketTrend:            domain.TrendDeclining,
			},
			ShockMonth:          24,
			IncomeDropPercent:   30,
			RateResetPercentPts: 3,
		},
		Compounding: CompoundAnnually,
		Trend: TrendAdjustments{
			DecliningPts: -2,
			StablePts:    0,
			GrowingPts:   1.5,
		},
		Affordability: AffordabilityWeights{
			DebtToIncome:          0.5,
			Surplus:               0.3,
			EmergencyFund:         0.2,
			MaxDebtToIncome:       0.6,
			TargetSurplusRatio:    0.3,
			TargetEmergencyMonths: 6,
		},
	}
}

func (c Config) Validate() error {
	if c.Compounding != CompoundAnnually && c.Compounding != CompoundMonthly {
		return fmt.Errorf("%w: unknown compounding %q", domain.ErrInvalidScenarioInput, c.Compounding)
	}
	for name, trend := range map[string]domain.MarketTrend{
		"optimistic":  c.Optimistic.MarketTrend,
		"pessimistic": c.Pessimistic.MarketTrend,
		"stress":      c.Stress.MarketTrend,
	} {
		if trend != "" && !trend.Valid() {
			return fmt.Errorf("%w: %s perturbation has unknown trend %q", domain.ErrInvalidScenarioInput, name, trend)
		}
	}
	if c.Stress.ShockMonth < 1 {
		return fmt.Errorf("%w: stress shock month must be at least 1", domain.ErrInvalidScenarioInput)
	}
	if c.Stress.IncomeDropPercent < 0 || c.Stress.IncomeDropPercent > 100 {
		return fmt.Errorf("%w: stress income drop must be within [0, 100]", domain.ErrInvalidScenarioInput)
	}
	w := c.Affordability
	if w.DebtToIncome < 0 || w.Surplus < 0 || w.EmergencyFund < 0 || w.DebtToIncome+w.Surplus+w.EmergencyFund == 0 {
		return fmt.Errorf("%w: affordability weights must be non-negative and not all zero", domain.ErrInvalidScenarioInput)
	}
	if w.MaxDebtToIncome <= 0 || w.TargetSurplusRatio <= 0 || w.TargetEmergencyMonths <= 0 {
		return fmt.Errorf("%w: affordability targets must be positive", domain.ErrInvalidScenarioInput)
	}
	return nil
}
