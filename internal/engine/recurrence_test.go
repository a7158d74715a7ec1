package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hyperengineering/cadence/internal/types"
)

var baseTime = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

func timePtr(t time.Time) *time.Time { return &t }

func recurringDaily(id int64, start time.Time) types.Goal {
	return types.Goal{
		ID:              id,
		Target:          10,
		InitialValue:    0,
		Direction:       types.DirectionIncrease,
		Period:          types.PeriodDaily,
		PeriodStartDate: timePtr(start),
		IsRecurring:     true,
	}
}

func TestShouldReset(t *testing.T) {
	g := recurringDaily(1, baseTime)

	assert.False(t, ShouldReset(g, baseTime.Add(time.Hour)), "same day")
	assert.True(t, ShouldReset(g, time.Date(2026, 3, 10, 23, 59, 59, 999_000_000, time.UTC)), "exactly at end")
	assert.True(t, ShouldReset(g, baseTime.Add(25*time.Hour)), "next day")

	notRecurring := g
	notRecurring.IsRecurring = false
	assert.False(t, ShouldReset(notRecurring, baseTime.Add(48*time.Hour)))

	noStart := g
	noStart.PeriodStartDate = nil
	assert.False(t, ShouldReset(noStart, baseTime.Add(48*time.Hour)))
}

func TestShouldReset_ZeroLengthPeriodsNeverReset(t *testing.T) {
	ongoing := recurringDaily(1, baseTime)
	ongoing.Period = types.PeriodOngoing
	assert.False(t, ShouldReset(ongoing, baseTime.Add(1000*time.Hour)))

	custom := recurringDaily(2, baseTime)
	custom.Period = types.PeriodCustom
	assert.False(t, ShouldReset(custom, baseTime.Add(1000*time.Hour)))
}

func TestRecordCompletion(t *testing.T) {
	g := recurringDaily(1, baseTime)
	assert.Empty(t, RecordCompletion(g).CompletionHistory, "incomplete goal is a no-op")

	g.IsComplete = true
	g.CompletedAt = timePtr(baseTime.Add(2 * time.Hour))
	recorded := RecordCompletion(g)
	require.Len(t, recorded.CompletionHistory, 1)
	assert.True(t, recorded.CompletionHistory[0].Equal(*g.CompletedAt))
	assert.Empty(t, g.CompletionHistory, "input must not be mutated")
}

func TestReset_PreservesHistoryAndStreaks(t *testing.T) {
	g := recurringDaily(1, baseTime)
	g.InitialValue = 2
	g.Current = 10
	g.Progress = 100
	g.IsComplete = true
	g.CompletedAt = timePtr(baseTime)
	g.PointsAwarded = true
	g.CompletionHistory = []time.Time{baseTime.Add(-24 * time.Hour)}
	g.CurrentStreak = 2
	g.LongestStreak = 5

	now := baseTime.Add(30 * time.Hour)
	r := Reset(g, now)

	assert.Equal(t, 2.0, r.Current)
	assert.Equal(t, 0.0, r.Progress)
	assert.False(t, r.IsComplete)
	assert.Nil(t, r.CompletedAt)
	assert.False(t, r.PointsAwarded)
	assert.True(t, r.PeriodStartDate.Equal(now))
	assert.Len(t, r.CompletionHistory, len(g.CompletionHistory))
	assert.Equal(t, 2, r.CurrentStreak)
	assert.Equal(t, 5, r.LongestStreak)
}

func TestProcessAll_DailyGoalRollsOverAfter25Hours(t *testing.T) {
	now := baseTime
	start := now.Add(-25 * time.Hour)
	completedAt := start.Add(3 * time.Hour)

	g := recurringDaily(1, start)
	g.InitialValue = 0
	g.Current = 10
	g.Progress = 100
	g.IsComplete = true
	g.CompletedAt = &completedAt

	res := ProcessAll(NewCollection([]types.Goal{g}), now)

	assert.Equal(t, []int64{1}, res.Reset)
	out, ok := res.Goals.Get(1)
	require.True(t, ok)
	assert.Equal(t, g.InitialValue, out.Current)
	assert.False(t, out.IsComplete)
	require.Len(t, out.CompletionHistory, 1)
	assert.True(t, out.CompletionHistory[0].Equal(completedAt))
	assert.True(t, out.PeriodStartDate.Equal(now))
}

func TestProcessAll_MissedPeriodResetsWithoutHistory(t *testing.T) {
	g := recurringDaily(1, baseTime.Add(-10*24*time.Hour))
	g.Current = 4

	res := ProcessAll(NewCollection([]types.Goal{g}), baseTime)

	out, _ := res.Goals.Get(1)
	assert.Empty(t, out.CompletionHistory, "missed periods are not replayed")
	assert.Equal(t, 0.0, out.Current)
}

func TestProcessAll_InitializesMissingPeriodStart(t *testing.T) {
	g := recurringDaily(1, baseTime)
	g.PeriodStartDate = nil
	oneTime := types.Goal{ID: 2, Period: types.PeriodDaily}

	input := NewCollection([]types.Goal{g, oneTime})
	res := ProcessAll(input, baseTime)

	assert.Equal(t, []int64{1}, res.Initialized)
	assert.Empty(t, res.Reset)
	out, _ := res.Goals.Get(1)
	require.NotNil(t, out.PeriodStartDate)
	assert.True(t, out.PeriodStartDate.Equal(baseTime))

	orig, _ := input.Get(1)
	assert.Nil(t, orig.PeriodStartDate, "input collection must be untouched")
	untouched, _ := res.Goals.Get(2)
	assert.Nil(t, untouched.PeriodStartDate)
}

func TestProcessAll_NoChanges(t *testing.T) {
	g := recurringDaily(1, baseTime)
	res := ProcessAll(NewCollection([]types.Goal{g}), baseTime.Add(time.Hour))
	assert.False(t, res.Changed())
}
