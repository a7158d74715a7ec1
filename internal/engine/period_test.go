package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/hyperengineering/cadence/internal/types"
)

func intPtr(v int) *int { return &v }

func TestPeriodEnd(t *testing.T) {
	start := time.Date(2026, 1, 15, 10, 30, 0, 0, time.UTC)

	tests := []struct {
		name       string
		start      time.Time
		period     types.Period
		customDays *int
		want       time.Time
	}{
		{"daily ends at last millisecond of day", start, types.PeriodDaily, nil,
			time.Date(2026, 1, 15, 23, 59, 59, 999_000_000, time.UTC)},
		{"weekly adds seven days", start, types.PeriodWeekly, nil,
			time.Date(2026, 1, 22, 10, 30, 0, 0, time.UTC)},
		{"monthly keeps day of month", start, types.PeriodMonthly, nil,
			time.Date(2026, 2, 15, 10, 30, 0, 0, time.UTC)},
		{"monthly clamps Jan 31 to Feb 28", time.Date(2026, 1, 31, 8, 0, 0, 0, time.UTC), types.PeriodMonthly, nil,
			time.Date(2026, 2, 28, 8, 0, 0, 0, time.UTC)},
		{"monthly clamps Jan 31 to Feb 29 in leap year", time.Date(2028, 1, 31, 8, 0, 0, 0, time.UTC), types.PeriodMonthly, nil,
			time.Date(2028, 2, 29, 8, 0, 0, 0, time.UTC)},
		{"monthly crosses year", time.Date(2026, 12, 10, 0, 0, 0, 0, time.UTC), types.PeriodMonthly, nil,
			time.Date(2027, 1, 10, 0, 0, 0, 0, time.UTC)},
		{"yearly keeps date", start, types.PeriodYearly, nil,
			time.Date(2027, 1, 15, 10, 30, 0, 0, time.UTC)},
		{"yearly clamps leap day", time.Date(2028, 2, 29, 0, 0, 0, 0, time.UTC), types.PeriodYearly, nil,
			time.Date(2029, 2, 28, 0, 0, 0, 0, time.UTC)},
		{"custom adds days", start, types.PeriodCustom, intPtr(3),
			time.Date(2026, 1, 18, 10, 30, 0, 0, time.UTC)},
		{"custom without days is zero length", start, types.PeriodCustom, nil, start},
		{"custom with zero days is zero length", start, types.PeriodCustom, intPtr(0), start},
		{"ongoing never ends", start, types.PeriodOngoing, nil, start},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := PeriodEnd(tt.start, tt.period, tt.customDays)
			assert.True(t, got.Equal(tt.want), "PeriodEnd() = %v, want %v", got, tt.want)
		})
	}
}

func TestPeriodEnd_DailyUsesStartLocation(t *testing.T) {
	loc := time.FixedZone("UTC+10", 10*60*60)
	start := time.Date(2026, 5, 1, 1, 0, 0, 0, loc)

	got := PeriodEnd(start, types.PeriodDaily, nil)

	assert.Equal(t, 1, got.Day())
	assert.Equal(t, 23, got.Hour())
	assert.Equal(t, loc, got.Location())
}

func TestStreakPeriodLength(t *testing.T) {
	assert.Equal(t, 24*time.Hour, StreakPeriodLength(types.PeriodDaily, nil))
	assert.Equal(t, 7*24*time.Hour, StreakPeriodLength(types.PeriodWeekly, nil))
	assert.Equal(t, 30*24*time.Hour, StreakPeriodLength(types.PeriodMonthly, nil))
	assert.Equal(t, 365*24*time.Hour, StreakPeriodLength(types.PeriodYearly, nil))
	assert.Equal(t, 5*24*time.Hour, StreakPeriodLength(types.PeriodCustom, intPtr(5)))
	assert.Zero(t, StreakPeriodLength(types.PeriodCustom, nil))
	assert.Zero(t, StreakPeriodLength(types.PeriodOngoing, nil))
}
