package scenario

import (
	"finance_planner/internal/domain"
	"finance_planner/pkg/money"
	"fmt"
	"sort"
)

type Metric string

const (
	MetricNetWorth           Metric = "net_worth"
	MetricAffordability      Metric = "affordability"
	MetricWorstCashFlow      Metric = "worst_cash_flow"
	MetricCumulativeCashFlow Metric = "cumulative_cash_flow"
)

func (m Metric) Valid() bool {
	switch m {
	case MetricNetWorth, MetricAffordability, MetricWorstCashFlow, MetricCumulativeCashFlow:
		return true
	}
	return false
}

type ComparatorConfig struct {
	PrimaryMetric      Metric  `toml:"primary_metric"`
	DTIDangerThreshold float64 `toml:"dti_danger_threshold"`
}

func DefaultComparatorConfig() ComparatorConfig {
	return ComparatorConfig{
		PrimaryMetric:      MetricNetWorth,
		DTIDangerThreshold: 0.43,
	}
}

type Comparator struct {
	cfg ComparatorConfig
}

func NewComparator(cfg ComparatorConfig) (*Comparator, error) {
	if !cfg.PrimaryMetric.Valid() {
		return nil, fmt.Errorf("%w: unknown primary metric %q", domain.ErrInvalidScenarioInput, cfg.PrimaryMetric)
	}
	if cfg.DTIDangerThreshold <= 0 {
		return nil, fmt.Errorf("%w: DTI danger threshold must be positive", domain.ErrInvalidScenarioInput)
	}
	return &Comparator{cfg: cfg}, nil
}

type ScenarioDelta struct {
	ScenarioID         string              `json:"scenario_id"`
	Name               string              `json:"name"`
	Type               domain.ScenarioType `json:"type"`
	Rank               int                 `json:"rank"`
	AffordabilityScore float64             `json:"affordability_score"`
	AffordabilityDiff  float64             `json:"affordability_diff"`
	NetWorthAtHorizon  float64             `json:"net_worth_at_horizon"`
	NetWorthDiff       float64             `json:"net_worth_diff"`
	WorstCashFlow      float64             `json:"worst_cash_flow"`
	WorstCashFlowMonth int                 `json:"worst_cash_flow_month"`
	CumulativeCashFlow float64             `json:"cumulative_cash_flow"`
}

type Comparison struct {
	BaselineID    string          `json:"baseline_id"`
	Horizon       int             `json:"horizon"`
	PrimaryMetric Metric          `json:"primary_metric"`
	Scenarios     []ScenarioDelta `json:"scenarios"`
	Ranking       []string        `json:"ranking"`
}

// Compare lines the results up against the baseline and ranks them by the primary metric.
// Ties fall back to affordability, then scenario id.
func (c *Comparator) Compare(results []domain.ScenarioResult) (Comparison, error) {
	if len(results) == 0 {
		return Comparison{}, fmt.Errorf("%w: no scenarios to compare", domain.ErrInvalidScenarioInput)
	}

	baseline := results[0]
	for _, r := range results {
		if r.Type == domain.ScenarioBaseline {
			baseline = r
			break
		}
	}

	seen := make(map[string]struct{}, len(results))
	deltas := make([]ScenarioDelta, 0, len(results))
	for _, r := range results {
		if r.Horizon != baseline.Horizon || len(r.Series) != baseline.Horizon {
			return Comparison{}, fmt.Errorf("%w: scenario %s has horizon %d, baseline has %d",
				domain.ErrInvalidScenarioInput, r.ScenarioID, r.Horizon, baseline.Horizon)
		}
		if _, dup := seen[r.ScenarioID]; dup {
			return Comparison{}, fmt.Errorf("%w: duplicate scenario id %s", domain.ErrInvalidScenarioInput, r.ScenarioID)
		}
		seen[r.ScenarioID] = struct{}{}

		worst, worstMonth := minCashFlow(r.Series)
		d := ScenarioDelta{
			ScenarioID:         r.ScenarioID,
			Name:               r.Name,
			Type:               r.Type,
			AffordabilityScore: r.Summary.AffordabilityScore,
			AffordabilityDiff:  money.RoundTo(r.Summary.AffordabilityScore-baseline.Summary.AffordabilityScore, 1),
			NetWorthAtHorizon:  r.Summary.NetWorthAtHorizon,
			NetWorthDiff:       money.Round(r.Summary.NetWorthAtHorizon - baseline.Summary.NetWorthAtHorizon),
			WorstCashFlow:      worst,
			WorstCashFlowMonth: worstMonth,
		}
		if len(r.Series) > 0 {
			d.CumulativeCashFlow = r.Series[len(r.Series)-1].CumulativeCashFlow
		}
		deltas = append(deltas, d)
	}

	order := make([]int, len(deltas))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(i, j int) bool {
		a, b := deltas[order[i]], deltas[order[j]]
		if va, vb := c.metric(a), c.metric(b); va != vb {
			return va > vb
		}
		if a.AffordabilityScore != b.AffordabilityScore {
			return a.AffordabilityScore > b.AffordabilityScore
		}
		return a.ScenarioID < b.ScenarioID
	})

	ranking := make([]string, len(order))
	for rank, idx := range order {
		deltas[idx].Rank = rank + 1
		ranking[rank] = deltas[idx].ScenarioID
	}

	return Comparison{
		BaselineID:    baseline.ScenarioID,
		Horizon:       baseline.Horizon,
		PrimaryMetric: c.cfg.PrimaryMetric,
		Scenarios:     deltas,
		Ranking:       ranking,
	}, nil
}

func (c *Comparator) metric(d ScenarioDelta) float64 {
	switch c.cfg.PrimaryMetric {
	case MetricAffordability:
		return d.AffordabilityScore
	case MetricWorstCashFlow:
		return d.WorstCashFlow
	case MetricCumulativeCashFlow:
		return d.CumulativeCashFlow
	default:
		return d.NetWorthAtHorizon
	}
}

type Analysis struct {
	ScenarioID        string  `json:"scenario_id"`
	MinCashFlow       float64 `json:"min_cash_flow"`
	MinCashFlowMonth  int     `json:"min_cash_flow_month"`
	PositiveFromMonth *int    `json:"positive_from_month,omitempty"`
	NegativeMonths    int     `json:"negative_months"`
	DTIDanger         bool    `json:"dti_danger"`
	PeakDTI           float64 `json:"peak_dti"`
	PeakDTIMonth      int     `json:"peak_dti_month"`
}

func (c *Comparator) Analyze(r domain.ScenarioResult) Analysis {
	a := Analysis{ScenarioID: r.ScenarioID}
	if len(r.Series) == 0 {
		return a
	}
	a.MinCashFlow, a.MinCashFlowMonth = minCashFlow(r.Series)

	lastNonPositive := -1
	for i, p := range r.Series {
		if p.CashFlow < 0 {
			a.NegativeMonths++
		}
		if p.CashFlow <= 0 {
			lastNonPositive = i
		}
		if p.DebtToIncome > a.PeakDTI {
			a.PeakDTI = p.DebtToIncome
			a.PeakDTIMonth = p.Month
		}
	}
	if lastNonPositive < len(r.Series)-1 {
		month := r.Series[lastNonPositive+1].Month
		a.PositiveFromMonth = &month
	}
	a.DTIDanger = a.PeakDTI > c.cfg.DTIDangerThreshold
	return a
}

func minCashFlow(series []domain.MonthPoint) (float64, int) {
	if len(series) == 0 {
		return 0, 0
	}
	worst, month := series[0].CashFlow, series[0].Month
	for _, p := range series[1:] {
		if p.CashFlow < worst {
			worst, month = p.CashFlow, p.Month
		}
	}
	return worst, month
}
