package domain

// PlanRecord mirrors a stored plan row; every column is nullable.
type PlanRecord struct {
	ID      string `json:"id"`
	OwnerID string `json:"owner_id"`
	Name    string `json:"name"`

	LoanAmount              *float64 `json:"loan_amount"`
	InterestRatePercent     *float64 `json:"interest_rate_percent"`
	TermMonths              *int     `json:"term_months"`
	PromotionalRatePercent  *float64 `json:"promotional_rate_percent"`
	PromotionalPeriodMonths *int     `json:"promotional_period_months"`

	MonthlyIncome   *float64 `json:"monthly_income"`
	MonthlyExpenses *float64 `json:"monthly_expenses"`

	ExpectedRentalIncome    *float64 `json:"expected_rental_income"`
	PropertyExpenses        *float64 `json:"property_expenses"`
	AppreciationRatePercent *float64 `json:"appreciation_rate_percent"`
	PropertyValue           *float64 `json:"property_value"`

	EconomicGrowthPercent       *float64 `json:"economic_growth_percent"`
	InflationRatePercent        *float64 `json:"inflation_rate_percent"`
	PropertyMarketTrend         *string  `json:"property_market_trend"`
	PersonalCareerGrowthPercent *float64 `json:"personal_career_growth_percent"`
	EmergencyFundMonths         *float64 `json:"emergency_fund_months"`
}

type EngineInput struct {
	Baseline   ScenarioDefinition    `json:"baseline"`
	Loan       LoanParameters        `json:"loan"`
	Finances   PersonalFinances      `json:"finances"`
	Investment *InvestmentParameters `json:"investment,omitempty"`
}

// ToEngineInput maps the row onto validated engine values.
// Loan and income columns are required; the investment block is present only when a property value is stored.
func (r PlanRecord) ToEngineInput() (EngineInput, error) {
	if r.LoanAmount == nil || r.InterestRatePercent == nil || r.TermMonths == nil {
		return EngineInput{}, invalidParameter("plan %s: loan amount, rate and term are required", r.ID)
	}
	loan, err := NewLoanParameters(*r.LoanAmount, *r.InterestRatePercent, *r.TermMonths)
	if err != nil {
		return EngineInput{}, err
	}
	if r.PromotionalRatePercent != nil {
		if r.PromotionalPeriodMonths == nil {
			return EngineInput{}, invalidParameter("plan %s: promotional rate without a period", r.ID)
		}
		if loan, err = loan.WithPromotion(*r.PromotionalRatePercent, *r.PromotionalPeriodMonths); err != nil {
			return EngineInput{}, err
		}
	}

	if r.MonthlyIncome == nil {
		return EngineInput{}, invalidScenarioInput("plan %s: monthly income is required", r.ID)
	}
	finances := PersonalFinances{
		MonthlyIncome:   *r.MonthlyIncome,
		MonthlyExpenses: valueOr(r.MonthlyExpenses, 0),
	}

	var investment *InvestmentParameters
	if r.PropertyValue != nil {
		investment = &InvestmentParameters{
			ExpectedRentalIncome:    valueOr(r.ExpectedRentalIncome, 0),
			PropertyExpenses:        valueOr(r.PropertyExpenses, 0),
			AppreciationRatePercent: valueOr(r.AppreciationRatePercent, 0),
			InitialPropertyValue:    *r.PropertyValue,
		}
	}

	name := r.Name
	if name == "" {
		name = "Baseline"
	}
	baseline, err := NewScenarioDefinition(r.ID, name, ScenarioBaseline, r.resolveAssumptions())
	if err != nil {
		return EngineInput{}, err
	}

	in := EngineInput{
		Baseline:   baseline,
		Loan:       loan,
		Finances:   finances,
		Investment: investment,
	}
	if err := in.Validate(); err != nil {
		return EngineInput{}, err
	}
	return in, nil
}

// resolveAssumptions fills absent columns with a flat economy: no growth, no inflation, stable market.
func (r PlanRecord) resolveAssumptions() EconomicAssumptions {
	trend := TrendStable
	if r.PropertyMarketTrend != nil {
		trend = MarketTrend(*r.PropertyMarketTrend)
	}
	return EconomicAssumptions{
		EconomicGrowthPercent:       valueOr(r.EconomicGrowthPercent, 0),
		InflationRatePercent:        valueOr(r.InflationRatePercent, 0),
		PropertyMarketTrend:         trend,
		PersonalCareerGrowthPercent: valueOr(r.PersonalCareerGrowthPercent, 0),
		EmergencyFundMonths:         valueOr(r.EmergencyFundMonths, 0),
	}
}

func (in EngineInput) Validate() error {
	if err := in.Loan.Validate(); err != nil {
		return err
	}
	if err := in.Baseline.Validate(); err != nil {
		return err
	}
	if err := in.Finances.Validate(); err != nil {
		return err
	}
	if in.Investment != nil {
		return in.Investment.Validate()
	}
	return nil
}

func valueOr[T any](p *T, fallback T) T {
	if p == nil {
		return fallback
	}
	return *p
}
