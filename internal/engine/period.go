package engine

import (
	"time"

	"github.com/hyperengineering/cadence/internal/types"
)

const day = 24 * time.Hour

// PeriodEnd returns the instant at which the period that began at start
// expires. Ongoing periods, and custom periods without a positive day
// count, have zero length and return start.
func PeriodEnd(start time.Time, period types.Period, customDays *int) time.Time {
	switch period {
	case types.PeriodDaily:
		y, m, d := start.Date()
		return time.Date(y, m, d, 23, 59, 59, int(999*time.Millisecond), start.Location())
	case types.PeriodWeekly:
		return start.Add(7 * day)
	case types.PeriodMonthly:
		return addMonthsClamped(start, 1)
	case types.PeriodYearly:
		return addMonthsClamped(start, 12)
	case types.PeriodCustom:
		if customDays == nil || *customDays <= 0 {
			return start
		}
		return start.Add(time.Duration(*customDays) * day)
	default:
		return start
	}
}

// addMonthsClamped moves t forward by months keeping the day of month, but
// clamps to the last day of the target month instead of overflowing into
// the next one (Jan 31 + 1 month = Feb 28/29).
func addMonthsClamped(t time.Time, months int) time.Time {
	y, m, d := t.Date()
	first := time.Date(y, m+time.Month(months), 1, 0, 0, 0, 0, t.Location())
	if last := daysIn(first.Year(), first.Month()); d > last {
		d = last
	}
	return time.Date(first.Year(), first.Month(), d,
		t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
}

func daysIn(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// StreakPeriodLength returns the nominal period length used for streak
// tolerance. Monthly and yearly periods use fixed 30 and 365 day
// approximations, unlike PeriodEnd. Zero means the period has no length.
func StreakPeriodLength(period types.Period, customDays *int) time.Duration {
	switch period {
	case types.PeriodDaily:
		return day
	case types.PeriodWeekly:
		return 7 * day
	case types.PeriodMonthly:
		return 30 * day
	case types.PeriodYearly:
		return 365 * day
	case types.PeriodCustom:
		if customDays == nil || *customDays <= 0 {
			return 0
		}
		return time.Duration(*customDays) * day
	default:
		return 0
	}
}
