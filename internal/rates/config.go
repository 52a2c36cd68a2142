package rates

import (
	"finance_planner/internal/domain"
	"fmt"
)

type TierThresholds struct {
	ExcellentBelowPercent float64 `toml:"excellent_below_percent"`
	GoodBelowPercent      float64 `toml:"good_below_percent"`
	AverageUpToPercent    float64 `toml:"average_up_to_percent"`
}

// DefaultRate is the fallback used when no catalog offer matches a request.
type DefaultRate struct {
	RatePercent             float64  `toml:"rate_percent" json:"rate_percent"`
	PromotionalRatePercent  *float64 `toml:"promotional_rate_percent" json:"promotional_rate_percent,omitempty"`
	PromotionalPeriodMonths int      `toml:"promotional_period_months" json:"promotional_period_months,omitempty"`
	ProcessingFeePercent    float64  `toml:"processing_fee_percent" json:"processing_fee_percent"`
}

type Config struct {
	Tiers               TierThresholds                     `toml:"tiers"`
	LowFeePercent       float64                            `toml:"low_fee_percent"`
	HighFeePercent      float64                            `toml:"high_fee_percent"`
	FavorableLTVPercent float64                            `toml:"favorable_ltv_percent"`
	MaxAlternatives     int                                `toml:"max_alternatives"`
	Defaults            map[domain.LoanPurpose]DefaultRate `toml:"defaults"`
}

func DefaultConfig() Config {
	homePromo := 7.5
	return Config{
		Tiers: TierThresholds{
			ExcellentBelowPercent: 8,
			GoodBelowPercent:      10,
			AverageUpToPercent:    12,
		},
		LowFeePercent:       0.5,
		HighFeePercent:      1.5,
		FavorableLTVPercent: 85,
		MaxAlternatives:     3,
		Defaults: map[domain.LoanPurpose]DefaultRate{
			domain.PurposeHomePurchase: {RatePercent: 9.5, PromotionalRatePercent: &homePromo, PromotionalPeriodMonths: 12, ProcessingFeePercent: 1},
			domain.PurposeInvestment:   {RatePercent: 11, ProcessingFeePercent: 1.5},
			domain.PurposeUpgrade:      {RatePercent: 12.5, ProcessingFeePercent: 1},
			domain.PurposeRefinance:    {RatePercent: 10, ProcessingFeePercent: 0.5},
		},
	}
}

func (c Config) Validate() error {
	t := c.Tiers
	if !(t.ExcellentBelowPercent <= t.GoodBelowPercent && t.GoodBelowPercent <= t.AverageUpToPercent) {
		return fmt.Errorf("%w: tier thresholds must be ascending, got %v/%v/%v", domain.ErrInvalidParameter,
			t.ExcellentBelowPercent, t.GoodBelowPercent, t.AverageUpToPercent)
	}
	if c.LowFeePercent > c.HighFeePercent {
		return fmt.Errorf("%w: low fee threshold %v above high fee threshold %v", domain.ErrInvalidParameter,
			c.LowFeePercent, c.HighFeePercent)
	}
	if c.MaxAlternatives < 0 {
		return fmt.Errorf("%w: max alternatives must be non-negative", domain.ErrInvalidParameter)
	}
	for purpose, d := range c.Defaults {
		if !purpose.Valid() {
			return fmt.Errorf("%w: default rate for unknown purpose %q", domain.ErrInvalidParameter, purpose)
		}
		if d.RatePercent <= 0 {
			return fmt.Errorf("%w: default rate for %s must be positive", domain.ErrInvalidParameter, purpose)
		}
	}
	return nil
}

// WithDefaults returns a copy whose fallback table is replaced by defaults.
func (c Config) WithDefaults(defaults map[domain.LoanPurpose]DefaultRate) Config {
	table := make(map[domain.LoanPurpose]DefaultRate, len(defaults))
	for k, v := range defaults {
		table[k] = v
	}
	c.Defaults = table
	return c
}
