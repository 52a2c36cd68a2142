package domain

type MarketTrend string

const (
	TrendDeclining MarketTrend = "declining"
	TrendStable    MarketTrend = "stable"
	TrendGrowing   MarketTrend = "growing"
)

func (t MarketTrend) Valid() bool {
	switch t {
	case TrendDeclining, TrendStable, TrendGrowing:
		return true
	}
	return false
}

type ScenarioType string

const (
	ScenarioBaseline    ScenarioType = "baseline"
	ScenarioOptimistic  ScenarioType = "optimistic"
	ScenarioPessimistic ScenarioType = "pessimistic"
	ScenarioStress      ScenarioType = "stress"
	ScenarioCustom      ScenarioType = "custom"
)

func (t ScenarioType) Valid() bool {
	switch t {
	case ScenarioBaseline, ScenarioOptimistic, ScenarioPessimistic, ScenarioStress, ScenarioCustom:
		return true
	}
	return false
}

type EconomicAssumptions struct {
	EconomicGrowthPercent       float64     `json:"economic_growth_percent"`
	InflationRatePercent        float64     `json:"inflation_rate_percent"`
	PropertyMarketTrend         MarketTrend `json:"property_market_trend"`
	PersonalCareerGrowthPercent float64     `json:"personal_career_growth_percent"`
	EmergencyFundMonths         float64     `json:"emergency_fund_months"`
}

func (a EconomicAssumptions) Validate() error {
	fields := map[string]float64{
		"economic_growth_percent":        a.EconomicGrowthPercent,
		"inflation_rate_percent":         a.InflationRatePercent,
		"personal_career_growth_percent": a.PersonalCareerGrowthPercent,
		"emergency_fund_months":          a.EmergencyFundMonths,
	}
	for name, v := range fields {
		if !isFinite(v) {
			return invalidScenarioInput("%s is not finite", name)
		}
	}
	if a.EmergencyFundMonths < 0 {
		return invalidScenarioInput("emergency fund months must be non-negative, got %v", a.EmergencyFundMonths)
	}
	if !a.PropertyMarketTrend.Valid() {
		return invalidScenarioInput("unknown property market trend %q", a.PropertyMarketTrend)
	}
	return nil
}

// Shock is a simultaneous income drop and rate reset starting at Month.
type Shock struct {
	Month                  int     `json:"month"`
	IncomeDropPercent      float64 `json:"income_drop_percent"`
	RateResetPercentagePts float64 `json:"rate_reset_percentage_points"`
}

type ScenarioOverrides struct {
	AnnualRatePercent *float64 `json:"annual_rate_percent,omitempty"`
	MonthlyIncome     *float64 `json:"monthly_income,omitempty"`
	MonthlyExpenses   *float64 `json:"monthly_expenses,omitempty"`
	Shock             *Shock   `json:"shock,omitempty"`
}

func (o ScenarioOverrides) Validate() error {
	if o.AnnualRatePercent != nil && (!isFinite(*o.AnnualRatePercent) || *o.AnnualRatePercent < 0) {
		return invalidScenarioInput("annual rate override must be non-negative and finite")
	}
	if o.MonthlyIncome != nil && (!isFinite(*o.MonthlyIncome) || *o.MonthlyIncome < 0) {
		return invalidScenarioInput("monthly income override must be non-negative and finite")
	}
	if o.MonthlyExpenses != nil && (!isFinite(*o.MonthlyExpenses) || *o.MonthlyExpenses < 0) {
		return invalidScenarioInput("monthly expenses override must be non-negative and finite")
	}
	if s := o.Shock; s != nil {
		if s.Month < 1 {
			return invalidScenarioInput("shock month must be at least 1, got %d", s.Month)
		}
		if !isFinite(s.IncomeDropPercent) || s.IncomeDropPercent < 0 || s.IncomeDropPercent > 100 {
			return invalidScenarioInput("income drop must be within [0, 100], got %v", s.IncomeDropPercent)
		}
		if !isFinite(s.RateResetPercentagePts) {
			return invalidScenarioInput("rate reset is not finite")
		}
	}
	return nil
}

type ScenarioDefinition struct {
	ID          string              `json:"id"`
	Name        string              `json:"name"`
	Type        ScenarioType        `json:"type"`
	Overrides   ScenarioOverrides   `json:"overrides"`
	Assumptions EconomicAssumptions `json:"assumptions"`
}

func NewScenarioDefinition(id, name string, t ScenarioType, assumptions EconomicAssumptions) (ScenarioDefinition, error) {
	def := ScenarioDefinition{
		ID:          id,
		Name:        name,
		Type:        t,
		Assumptions: assumptions,
	}
	if err := def.Validate(); err != nil {
		return ScenarioDefinition{}, err
	}
	return def, nil
}

func (d ScenarioDefinition) Validate() error {
	if d.ID == "" {
		return invalidScenarioInput("scenario id is required")
	}
	if !d.Type.Valid() {
		return invalidScenarioInput("unknown scenario type %q", d.Type)
	}
	if err := d.Assumptions.Validate(); err != nil {
		return err
	}
	return d.Overrides.Validate()
}

// WithAssumptions returns a copy of the definition; the receiver is left untouched.
func (d ScenarioDefinition) WithAssumptions(a EconomicAssumptions) ScenarioDefinition {
	d.Assumptions = a
	return d
}

func (d ScenarioDefinition) WithOverrides(o ScenarioOverrides) ScenarioDefinition {
	if o.Shock != nil {
		shock := *o.Shock
		o.Shock = &shock
	}
	d.Overrides = o
	return d
}

func (d ScenarioDefinition) WithIdentity(id, name string, t ScenarioType) ScenarioDefinition {
	d.ID = id
	d.Name = name
	d.Type = t
	return d
}

type PersonalFinances struct {
	MonthlyIncome   float64 `json:"monthly_income"`
	MonthlyExpenses float64 `json:"monthly_expenses"`
}

func (f PersonalFinances) Validate() error {
	if !isFinite(f.MonthlyIncome) || f.MonthlyIncome <= 0 {
		return invalidScenarioInput("monthly income must be positive, got %v", f.MonthlyIncome)
	}
	if !isFinite(f.MonthlyExpenses) || f.MonthlyExpenses < 0 {
		return invalidScenarioInput("monthly expenses must be non-negative, got %v", f.MonthlyExpenses)
	}
	return nil
}

type InvestmentParameters struct {
	ExpectedRentalIncome    float64 `json:"expected_rental_income"`
	PropertyExpenses        float64 `json:"property_expenses"`
	AppreciationRatePercent float64 `json:"appreciation_rate_percent"`
	InitialPropertyValue    float64 `json:"initial_property_value"`
}

func (p InvestmentParameters) Validate() error {
	for name, v := range map[string]float64{
		"expected_rental_income":    p.ExpectedRentalIncome,
		"property_expenses":         p.PropertyExpenses,
		"appreciation_rate_percent": p.AppreciationRatePercent,
		"initial_property_value":    p.InitialPropertyValue,
	} {
		if !isFinite(v) {
			return invalidScenarioInput("%s is not finite", name)
		}
	}
	if p.ExpectedRentalIncome < 0 || p.PropertyExpenses < 0 {
		return invalidScenarioInput("rental income and property expenses must be non-negative")
	}
	if p.InitialPropertyValue <= 0 {
		return invalidScenarioInput("initial property value must be positive, got %v", p.InitialPropertyValue)
	}
	return nil
}

type MonthPoint struct {
	Month              int     `json:"month"`
	Income             float64 `json:"income"`
	RentalIncome       float64 `json:"rental_income"`
	Expenses           float64 `json:"expenses"`
	PropertyExpenses   float64 `json:"property_expenses"`
	LoanPayment        float64 `json:"loan_payment"`
	CashFlow           float64 `json:"cash_flow"`
	CumulativeCashFlow float64 `json:"cumulative_cash_flow"`
	PropertyValue      float64 `json:"property_value"`
	LoanBalance        float64 `json:"loan_balance"`
	Equity             float64 `json:"equity"`
	NetWorth           float64 `json:"net_worth"`
	DebtToIncome       float64 `json:"debt_to_income"`
}

type ScenarioSummary struct {
	AffordabilityScore float64  `json:"affordability_score"`
	DebtToIncome       float64  `json:"debt_to_income"`
	ROIPercent         *float64 `json:"roi_percent,omitempty"`
	NetWorthAtHorizon  float64  `json:"net_worth_at_horizon"`
	TotalInterest      float64  `json:"total_interest"`
}

type ScenarioResult struct {
	ScenarioID string          `json:"scenario_id"`
	Name       string          `json:"name"`
	Type       ScenarioType    `json:"type"`
	Horizon    int             `json:"horizon"`
	Series     []MonthPoint    `json:"series"`
	Summary    ScenarioSummary `json:"summary"`
}
