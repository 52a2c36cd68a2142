package recurrence

import (
	"finance_planner/internal/domain"
	"fmt"
	"time"
)

// AdvanceDueDate moves date forward by interval units of frequency.
// Monthly and yearly steps clamp the day to the end of a shorter target month.
func AdvanceDueDate(date time.Time, frequency domain.Frequency, interval int) (time.Time, error) {
	return AdvanceAnchored(date, frequency, interval, date.Day())
}

// AdvanceAnchored is AdvanceDueDate with monthly and yearly steps aimed at anchorDay instead of
// date's own day, so a clamp in one short month is not carried into later months.
func AdvanceAnchored(date time.Time, frequency domain.Frequency, interval, anchorDay int) (time.Time, error) {
	if interval < 1 {
		return time.Time{}, fmt.Errorf("%w: interval must be at least 1, got %d", domain.ErrInvalidParameter, interval)
	}
	if anchorDay < 1 || anchorDay > 31 {
		return time.Time{}, fmt.Errorf("%w: anchor day must be within [1, 31], got %d", domain.ErrInvalidParameter, anchorDay)
	}
	switch frequency {
	case domain.FrequencyDaily:
		return date.AddDate(0, 0, interval), nil
	case domain.FrequencyWeekly:
		return date.AddDate(0, 0, 7*interval), nil
	case domain.FrequencyMonthly:
		return addMonthsClamped(date, interval, anchorDay), nil
	case domain.FrequencyYearly:
		return addMonthsClamped(date, 12*interval, anchorDay), nil
	default:
		return time.Time{}, fmt.Errorf("%w: unknown frequency %q", domain.ErrInvalidParameter, frequency)
	}
}

func addMonthsClamped(date time.Time, months, day int) time.Time {
	total := int(date.Month()) - 1 + months
	year := date.Year() + total/12
	month := time.Month(total%12 + 1)
	if last := daysIn(year, month); day > last {
		day = last
	}
	return time.Date(year, month, day, date.Hour(), date.Minute(), date.Second(), date.Nanosecond(), date.Location())
}

func daysIn(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}
