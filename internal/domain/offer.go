package domain

type LoanPurpose string

const (
	PurposeHomePurchase LoanPurpose = "home_purchase"
	PurposeInvestment   LoanPurpose = "investment"
	PurposeUpgrade      LoanPurpose = "upgrade"
	PurposeRefinance    LoanPurpose = "refinance"
)

func (p LoanPurpose) Valid() bool {
	switch p {
	case PurposeHomePurchase, PurposeInvestment, PurposeUpgrade, PurposeRefinance:
		return true
	}
	return false
}

type RateTier string

const (
	TierExcellent RateTier = "excellent"
	TierGood      RateTier = "good"
	TierAverage   RateTier = "average"
	TierPoor      RateTier = "poor"
)

type LenderOffer struct {
	ID                      string      `json:"id"`
	BankID                  string      `json:"bank_id"`
	BankName                string      `json:"bank_name"`
	Purpose                 LoanPurpose `json:"purpose"`
	InterestRatePercent     float64     `json:"interest_rate_percent"`
	PromotionalRatePercent  *float64    `json:"promotional_rate_percent,omitempty"`
	PromotionalPeriodMonths int         `json:"promotional_period_months,omitempty"`
	MinAmount               float64     `json:"min_amount"`
	MaxAmount               float64     `json:"max_amount"`
	MinTermMonths           int         `json:"min_term_months"`
	MaxTermMonths           int         `json:"max_term_months"`
	MaxLTVPercent           float64     `json:"max_ltv_percent"`
	ProcessingFeePercent    float64     `json:"processing_fee_percent"`
}

func (o LenderOffer) Validate() error {
	if o.ID == "" {
		return invalidParameter("offer id is required")
	}
	if !o.Purpose.Valid() {
		return invalidParameter("unknown loan purpose %q", o.Purpose)
	}
	if !isFinite(o.InterestRatePercent) || o.InterestRatePercent < 0 {
		return invalidParameter("offer rate must be non-negative, got %v", o.InterestRatePercent)
	}
	if o.MinAmount < 0 || o.MaxAmount < o.MinAmount {
		return invalidParameter("offer amount range %v..%v is invalid", o.MinAmount, o.MaxAmount)
	}
	if o.MinTermMonths < 1 || o.MaxTermMonths < o.MinTermMonths {
		return invalidParameter("offer term range %d..%d is invalid", o.MinTermMonths, o.MaxTermMonths)
	}
	if o.PromotionalRatePercent != nil && (*o.PromotionalRatePercent < 0 || o.PromotionalPeriodMonths < 1) {
		return invalidParameter("offer promotion needs a non-negative rate and a positive period")
	}
	return nil
}

func (o LenderOffer) Covers(amount float64, termMonths int) bool {
	return amount >= o.MinAmount && amount <= o.MaxAmount &&
		termMonths >= o.MinTermMonths && termMonths <= o.MaxTermMonths
}

// LoanFor builds loan parameters for this offer, carrying the promotion when one applies to the term.
func (o LenderOffer) LoanFor(amount float64, termMonths int) (LoanParameters, error) {
	loan, err := NewLoanParameters(amount, o.InterestRatePercent, termMonths)
	if err != nil {
		return LoanParameters{}, err
	}
	if o.PromotionalRatePercent == nil || o.PromotionalPeriodMonths <= 0 || o.PromotionalPeriodMonths >= termMonths {
		return loan, nil
	}
	return loan.WithPromotion(*o.PromotionalRatePercent, o.PromotionalPeriodMonths)
}

type RateRecommendation struct {
	Offer                     LenderOffer `json:"offer"`
	MonthlyPayment            float64     `json:"monthly_payment"`
	PromotionalMonthlyPayment float64     `json:"promotional_monthly_payment,omitempty"`
	TotalInterest             float64     `json:"total_interest"`
	TotalCost                 float64     `json:"total_cost"`
	ProcessingFeeAmount       float64     `json:"processing_fee_amount"`
	Tier                      RateTier    `json:"tier"`
	SavingsVsWorst            float64     `json:"savings_vs_worst"`
	PromotionalSavings        float64     `json:"promotional_savings,omitempty"`
	Rationale                 []string    `json:"rationale,omitempty"`
}
