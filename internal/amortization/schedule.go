package amortization

import (
	"finance_planner/internal/domain"
	"finance_planner/pkg/money"
)

type segment struct {
	months  int
	rate    float64
	payment float64
}

// buildSchedule walks the segments in order carrying the unrounded balance across them.
// Entries are rounded individually; the returned total is the unrounded sum of payments.
// The last payment absorbs the floating-point residual so the schedule closes at zero.
func buildSchedule(principal float64, segs []segment) ([]domain.ScheduleEntry, float64) {
	months := 0
	for _, s := range segs {
		months += s.months
	}

	entries := make([]domain.ScheduleEntry, 0, months)
	balance := principal
	total := 0.0
	month := 0
	for _, s := range segs {
		for i := 0; i < s.months; i++ {
			month++
			interest := balance * s.rate
			principalPart := s.payment - interest
			paid := s.payment
			if month == months {
				principalPart = balance
				paid = principalPart + interest
			}
			balance -= principalPart
			total += paid
			entries = append(entries, domain.ScheduleEntry{
				Month:            month,
				Payment:          money.Round(paid),
				Principal:        money.Round(principalPart),
				Interest:         money.Round(interest),
				RemainingBalance: money.Round(balance),
			})
		}
	}
	return entries, total
}
