package rates

import (
	"finance_planner/internal/amortization"
	"finance_planner/internal/domain"
	"finance_planner/pkg/money"
	"fmt"
	"sort"
)

type Optimizer struct {
	cfg Config
}

func NewOptimizer(cfg Config) (*Optimizer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Optimizer{cfg: cfg.WithDefaults(cfg.Defaults)}, nil
}

type RecommendRequest struct {
	Purpose       domain.LoanPurpose `json:"purpose"`
	Amount        float64            `json:"amount"`
	TermMonths    int                `json:"term_months"`
	PropertyValue float64            `json:"property_value,omitempty"`
}

func (r RecommendRequest) Validate() error {
	if !r.Purpose.Valid() {
		return fmt.Errorf("%w: unknown loan purpose %q", domain.ErrInvalidParameter, r.Purpose)
	}
	if r.Amount <= 0 {
		return fmt.Errorf("%w: amount must be positive, got %v", domain.ErrInvalidParameter, r.Amount)
	}
	if r.TermMonths < 1 {
		return fmt.Errorf("%w: term must be at least one month, got %d", domain.ErrInvalidParameter, r.TermMonths)
	}
	if r.PropertyValue < 0 {
		return fmt.Errorf("%w: property value must be non-negative", domain.ErrInvalidParameter)
	}
	return nil
}

func (r RecommendRequest) LTVPercent() float64 {
	if r.PropertyValue <= 0 {
		return 0
	}
	return r.Amount / r.PropertyValue * 100
}

type Recommendation struct {
	Best                     domain.RateRecommendation   `json:"best"`
	Alternatives             []domain.RateRecommendation `json:"alternatives"`
	MarketAverageRatePercent float64                     `json:"market_average_rate_percent"`
	MarketAverageFeePercent  float64                     `json:"market_average_fee_percent"`
	LifetimeSavings          float64                     `json:"lifetime_savings"`
	PromotionalSavings       float64                     `json:"promotional_savings"`
	CandidateCount           int                         `json:"candidate_count"`
	LTVPercent               float64                     `json:"ltv_percent,omitempty"`
	UsedDefaultRate          bool                        `json:"used_default_rate"`
}

// SelectCandidates keeps offers whose amount and term windows contain the request, bounds inclusive.
func (o *Optimizer) SelectCandidates(catalog []domain.LenderOffer, amount float64, termMonths int) []domain.LenderOffer {
	var out []domain.LenderOffer
	for _, offer := range catalog {
		if offer.Covers(amount, termMonths) {
			out = append(out, offer)
		}
	}
	return out
}

func (o *Optimizer) ResolveDefaultRate(purpose domain.LoanPurpose) (DefaultRate, error) {
	d, ok := o.cfg.Defaults[purpose]
	if !ok {
		return DefaultRate{}, fmt.Errorf("%w: no default rate for purpose %q", domain.ErrNoRateAvailable, purpose)
	}
	return d, nil
}

func (o *Optimizer) Tier(ratePercent float64) domain.RateTier {
	t := o.cfg.Tiers
	switch {
	case ratePercent < t.ExcellentBelowPercent:
		return domain.TierExcellent
	case ratePercent < t.GoodBelowPercent:
		return domain.TierGood
	case ratePercent <= t.AverageUpToPercent:
		return domain.TierAverage
	default:
		return domain.TierPoor
	}
}

// Rank amortizes every candidate and orders them by total cost, then processing fee, then bank.
func (o *Optimizer) Rank(candidates []domain.LenderOffer, amount float64, termMonths int) ([]domain.RateRecommendation, error) {
	recs := make([]domain.RateRecommendation, 0, len(candidates))
	for _, offer := range candidates {
		rec, err := o.evaluate(offer, amount, termMonths)
		if err != nil {
			return nil, fmt.Errorf("offer %s: %w", offer.ID, err)
		}
		recs = append(recs, rec)
	}

	sort.SliceStable(recs, func(i, j int) bool {
		a, b := recs[i], recs[j]
		if a.TotalCost != b.TotalCost {
			return a.TotalCost < b.TotalCost
		}
		if a.Offer.ProcessingFeePercent != b.Offer.ProcessingFeePercent {
			return a.Offer.ProcessingFeePercent < b.Offer.ProcessingFeePercent
		}
		if a.Offer.BankID != b.Offer.BankID {
			return a.Offer.BankID < b.Offer.BankID
		}
		return a.Offer.ID < b.Offer.ID
	})

	if len(recs) > 0 {
		worst := recs[len(recs)-1].TotalCost
		for i := range recs {
			recs[i].SavingsVsWorst = money.Round(worst - recs[i].TotalCost)
		}
	}
	return recs, nil
}

func (o *Optimizer) Recommend(req RecommendRequest, catalog []domain.LenderOffer) (Recommendation, error) {
	if err := req.Validate(); err != nil {
		return Recommendation{}, err
	}

	candidates := o.SelectCandidates(o.forPurpose(catalog, req.Purpose), req.Amount, req.TermMonths)
	candidates = o.withinLTV(candidates, req.LTVPercent())

	usedDefault := false
	if len(candidates) == 0 {
		d, err := o.ResolveDefaultRate(req.Purpose)
		if err != nil {
			return Recommendation{}, err
		}
		candidates = []domain.LenderOffer{defaultOffer(req, d)}
		usedDefault = true
	}

	ranked, err := o.Rank(candidates, req.Amount, req.TermMonths)
	if err != nil {
		return Recommendation{}, err
	}

	best := ranked[0]
	limit := o.cfg.MaxAlternatives
	alternatives := ranked[1:]
	if len(alternatives) > limit {
		alternatives = alternatives[:limit]
	}

	var rateSum, feeSum float64
	for _, c := range candidates {
		rateSum += c.InterestRatePercent
		feeSum += c.ProcessingFeePercent
	}
	n := float64(len(candidates))

	return Recommendation{
		Best:                     best,
		Alternatives:             append([]domain.RateRecommendation{}, alternatives...),
		MarketAverageRatePercent: money.RoundTo(rateSum/n, 4),
		MarketAverageFeePercent:  money.RoundTo(feeSum/n, 4),
		LifetimeSavings:          best.SavingsVsWorst,
		PromotionalSavings:       best.PromotionalSavings,
		CandidateCount:           len(candidates),
		LTVPercent:               money.RoundTo(req.LTVPercent(), 2),
		UsedDefaultRate:          usedDefault,
	}, nil
}

func (o *Optimizer) evaluate(offer domain.LenderOffer, amount float64, termMonths int) (domain.RateRecommendation, error) {
	loan, err := offer.LoanFor(amount, termMonths)
	if err != nil {
		return domain.RateRecommendation{}, err
	}
	res, err := amortization.Compute(loan)
	if err != nil {
		return domain.RateRecommendation{}, err
	}

	rec := domain.RateRecommendation{
		Offer:                     offer,
		MonthlyPayment:            res.MonthlyPayment,
		PromotionalMonthlyPayment: res.PromotionalMonthlyPayment,
		TotalInterest:             res.TotalInterest,
		TotalCost:                 res.TotalCost,
		ProcessingFeeAmount:       money.Percent(amount, offer.ProcessingFeePercent),
		Tier:                      o.Tier(offer.InterestRatePercent),
	}
	rec.Rationale = append(rec.Rationale, fmt.Sprintf("%s rate at %.2f%%", rec.Tier, offer.InterestRatePercent))

	if loan.HasPromotion() {
		regular := amortization.AnnuityPayment(amount, offer.InterestRatePercent, termMonths)
		promo := amortization.AnnuityPayment(amount, *loan.PromotionalRatePercent, termMonths)
		rec.PromotionalSavings = money.Round((regular - promo) * float64(loan.PromotionalPeriodMonths))
		rec.Rationale = append(rec.Rationale, fmt.Sprintf("promotional %.2f%% for %d months saves %.2f",
			*loan.PromotionalRatePercent, loan.PromotionalPeriodMonths, rec.PromotionalSavings))
	}

	switch {
	case offer.ProcessingFeePercent < o.cfg.LowFeePercent:
		rec.Rationale = append(rec.Rationale, fmt.Sprintf("low processing fee %.2f%%", offer.ProcessingFeePercent))
	case offer.ProcessingFeePercent > o.cfg.HighFeePercent:
		rec.Rationale = append(rec.Rationale, fmt.Sprintf("high processing fee %.2f%%", offer.ProcessingFeePercent))
	}
	if offer.MaxLTVPercent >= o.cfg.FavorableLTVPercent {
		rec.Rationale = append(rec.Rationale, fmt.Sprintf("favorable LTV up to %.0f%%", offer.MaxLTVPercent))
	}
	return rec, nil
}

func (o *Optimizer) forPurpose(catalog []domain.LenderOffer, purpose domain.LoanPurpose) []domain.LenderOffer {
	var out []domain.LenderOffer
	for _, offer := range catalog {
		if offer.Purpose == "" || offer.Purpose == purpose {
			out = append(out, offer)
		}
	}
	return out
}

// withinLTV drops offers that cap LTV below the requested ratio. Offers without a cap are kept.
func (o *Optimizer) withinLTV(candidates []domain.LenderOffer, ltv float64) []domain.LenderOffer {
	if ltv <= 0 {
		return candidates
	}
	var out []domain.LenderOffer
	for _, offer := range candidates {
		if offer.MaxLTVPercent > 0 && offer.MaxLTVPercent < ltv {
			continue
		}
		out = append(out, offer)
	}
	return out
}

func defaultOffer(req RecommendRequest, d DefaultRate) domain.LenderOffer {
	return domain.LenderOffer{
		ID:                      "default-" + string(req.Purpose),
		BankID:                  "default",
		BankName:                "Market default",
		Purpose:                 req.Purpose,
		InterestRatePercent:     d.RatePercent,
		PromotionalRatePercent:  d.PromotionalRatePercent,
		PromotionalPeriodMonths: d.PromotionalPeriodMonths,
		MinAmount:               req.Amount,
		MaxAmount:               req.Amount,
		MinTermMonths:           req.TermMonths,
		MaxTermMonths:           req.TermMonths,
		ProcessingFeePercent:    d.ProcessingFeePercent,
	}
}
