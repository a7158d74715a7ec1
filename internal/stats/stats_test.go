package stats

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/hyperengineering/cadence/internal/types"
)

var now = time.Date(2026, 6, 14, 18, 0, 0, 0, time.UTC)

func ptrTime(t time.Time) *time.Time { return &t }
func ptrID(v int64) *int64          { return &v }

func daysAgo(n int) time.Time {
	return now.AddDate(0, 0, -n).Add(-2 * time.Hour)
}

func TestCompute_RootCountsExcludePausedAndArchived(t *testing.T) {
	goals := []types.Goal{
		{ID: 1, IsComplete: true, CompletedAt: ptrTime(daysAgo(0))},
		{ID: 2},
		{ID: 3, IsPaused: true, IsComplete: true},
		{ID: 4, IsArchived: true},
		{ID: 5, ParentID: ptrID(1), IsComplete: true},
	}

	s := Compute(goals, nil, types.LedgerState{}, now)

	assert.Equal(t, 2, s.TotalGoals)
	assert.Equal(t, 1, s.CompletedGoals)
	assert.InDelta(t, 50, s.CompletionRate, 1e-9)
	assert.Equal(t, 1, s.PausedGoals)
	assert.Equal(t, 1, s.ArchivedGoals)
}

func TestCompute_EmptyInputIsZero(t *testing.T) {
	s := Compute(nil, nil, types.LedgerState{}, now)
	assert.Zero(t, s.TotalGoals)
	assert.Zero(t, s.CompletionRate)
	assert.Zero(t, s.CurrentDayStreak)
	assert.False(t, s.PerfectWeek)
}

func TestCompute_DayStreakAcrossGoals(t *testing.T) {
	goals := []types.Goal{
		{ID: 1, CompletionHistory: []time.Time{daysAgo(1), daysAgo(3)}},
		{ID: 2, CompletionHistory: []time.Time{daysAgo(2), daysAgo(2).Add(-time.Hour)}},
		{ID: 3, CompletionHistory: []time.Time{daysAgo(10), daysAgo(11), daysAgo(12), daysAgo(13)}},
	}

	s := Compute(goals, nil, types.LedgerState{}, now)

	assert.Equal(t, 3, s.CurrentDayStreak, "today not active yet keeps yesterday's run alive")
	assert.Equal(t, 4, s.LongestDayStreak)
	assert.Equal(t, 8, s.TotalCompletions)
	assert.False(t, s.PerfectWeek)
}

func TestCompute_CurrentStreakBrokenByMissedDay(t *testing.T) {
	goals := []types.Goal{{ID: 1, CompletionHistory: []time.Time{daysAgo(2), daysAgo(3)}}}
	s := Compute(goals, nil, types.LedgerState{}, now)
	assert.Equal(t, 0, s.CurrentDayStreak)
	assert.Equal(t, 2, s.LongestDayStreak)
}

func TestCompute_PerfectWeek(t *testing.T) {
	var history []time.Time
	for i := 1; i < 7; i++ {
		history = append(history, daysAgo(i))
	}
	g := types.Goal{ID: 1, IsRecurring: true, CompletionHistory: history}

	s := Compute([]types.Goal{g}, nil, types.LedgerState{}, now)
	assert.False(t, s.PerfectWeek, "today has no completion yet")

	g.IsComplete = true
	g.CompletedAt = ptrTime(now.Add(-time.Hour))
	s = Compute([]types.Goal{g}, nil, types.LedgerState{}, now)
	assert.True(t, s.PerfectWeek)
	assert.Equal(t, 7, s.CurrentDayStreak)
}

func TestCompute_DaysFollowLocation(t *testing.T) {
	loc := time.FixedZone("UTC-8", -8*60*60)
	local := time.Date(2026, 6, 14, 9, 0, 0, 0, loc)
	// 06:00 UTC on the 14th is the evening of the 13th in UTC-8.
	g := types.Goal{ID: 1, CompletionHistory: []time.Time{time.Date(2026, 6, 14, 6, 0, 0, 0, time.UTC)}}

	s := Compute([]types.Goal{g}, nil, types.LedgerState{}, local)
	assert.Equal(t, 1, s.CurrentDayStreak)

	next := local.AddDate(0, 0, 1)
	s = Compute([]types.Goal{g}, nil, types.LedgerState{}, next)
	assert.Equal(t, 0, s.CurrentDayStreak, "the 13th is two local days before the 15th")
}

func TestCompute_PointsAndRewards(t *testing.T) {
	rewards := []types.Reward{{ID: "a", IsRedeemed: true}, {ID: "b"}}
	ledger := types.LedgerState{LifetimePointsEarned: 120, PointsSpent: 20}

	s := Compute(nil, rewards, ledger, now)
	assert.Equal(t, int64(120), s.LifetimePoints)
	assert.Equal(t, int64(100), s.AvailablePoints)
	assert.Equal(t, 2, s.RewardsTotal)
	assert.Equal(t, 1, s.RewardsRedeemed)
}

func TestCompute_MalformedInputDegrades(t *testing.T) {
	goals := []types.Goal{
		{ID: 1, IsComplete: true},
		{ID: 2, CompletionHistory: []time.Time{{}}},
	}
	s := Compute(goals, nil, types.LedgerState{LifetimePointsEarned: -5}, now)
	assert.Zero(t, s.TotalCompletions)
	assert.Zero(t, s.LifetimePoints)
}
