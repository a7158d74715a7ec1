package engine

import (
	"sort"
	"time"

	"github.com/hyperengineering/cadence/internal/types"
)

// Tolerances applied to the nominal period length when deciding whether
// two completions belong to consecutive periods, and when a streak counts
// as broken.
const (
	consecutiveMinFactor = 0.9
	consecutiveMaxFactor = 2.1
	brokenAfterFactor    = 1.5
)

// StreakResult holds the current and longest consecutive-period runs.
type StreakResult struct {
	Current int `json:"current"`
	Longest int `json:"longest"`
}

// Streak derives a recurring goal's streaks from its completion history
// plus the in-progress completion, if any.
func Streak(g types.Goal, now time.Time) StreakResult {
	if !g.IsRecurring {
		return StreakResult{}
	}
	if len(g.CompletionHistory) == 0 {
		if g.IsComplete {
			return StreakResult{Current: 1, Longest: 1}
		}
		return StreakResult{}
	}

	length := StreakPeriodLength(g.Period, g.CustomPeriodDays)
	if length <= 0 {
		return StreakResult{}
	}

	completions := completionInstants(g)
	minGap := time.Duration(float64(length) * consecutiveMinFactor)
	maxGap := time.Duration(float64(length) * consecutiveMaxFactor)

	run, longest := 1, 1
	for i := 1; i < len(completions); i++ {
		gap := completions[i].Sub(completions[i-1])
		if gap >= minGap && gap <= maxGap {
			run++
		} else {
			run = 1
		}
		if run > longest {
			longest = run
		}
	}

	current := run
	last := completions[len(completions)-1]
	if !g.IsComplete && now.Sub(last) > time.Duration(float64(length)*brokenAfterFactor) {
		current = 0
	}
	return StreakResult{Current: current, Longest: longest}
}

// completionInstants merges history with the open completion, sorted and
// without exact duplicates.
func completionInstants(g types.Goal) []time.Time {
	all := make([]time.Time, 0, len(g.CompletionHistory)+1)
	all = append(all, g.CompletionHistory...)
	if g.IsComplete && g.CompletedAt != nil {
		all = append(all, *g.CompletedAt)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].Before(all[j]) })

	out := all[:0]
	for i, t := range all {
		if i > 0 && t.Equal(out[len(out)-1]) {
			continue
		}
		out = append(out, t)
	}
	return out
}

// UpdateGoalStreaks stores freshly computed streaks on g. longestStreak
// never decreases.
func UpdateGoalStreaks(g types.Goal, now time.Time) types.Goal {
	s := Streak(g, now)
	g.CurrentStreak = s.Current
	if s.Longest > g.LongestStreak {
		g.LongestStreak = s.Longest
	}
	return g
}

// UpdateAllStreaks recomputes streaks for every recurring goal and returns
// the IDs whose stored values changed.
func UpdateAllStreaks(c Collection, now time.Time) (Collection, []int64) {
	next := c.clone()
	var changed []int64
	for _, id := range c.order {
		g := c.byID[id]
		if !g.IsRecurring {
			continue
		}
		updated := UpdateGoalStreaks(g, now)
		if updated.CurrentStreak == g.CurrentStreak && updated.LongestStreak == g.LongestStreak {
			continue
		}
		next.set(updated)
		changed = append(changed, id)
	}
	return next, changed
}
