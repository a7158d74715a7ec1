package engine

import (
	"time"

	"github.com/hyperengineering/cadence/internal/types"
)

// ShouldReset reports whether a recurring goal's current period has
// elapsed. Completion does not matter: an incomplete goal whose period
// lapses is a missed period. Zero-length periods never reset.
func ShouldReset(g types.Goal, now time.Time) bool {
	if !g.IsRecurring || g.PeriodStartDate == nil {
		return false
	}
	start := *g.PeriodStartDate
	end := PeriodEnd(start, g.Period, g.CustomPeriodDays)
	if !end.After(start) {
		return false
	}
	return !now.Before(end)
}

// RecordCompletion appends the goal's completion instant to its history.
// Goals that are not complete are returned unchanged.
func RecordCompletion(g types.Goal) types.Goal {
	if !g.IsComplete || g.CompletedAt == nil {
		return g
	}
	g = g.Clone()
	g.CompletionHistory = append(g.CompletionHistory, *g.CompletedAt)
	return g
}

// Reset opens a fresh period starting at now. History and streaks are
// preserved; streaks are recomputed separately.
func Reset(g types.Goal, now time.Time) types.Goal {
	g = g.Clone()
	g.Current = g.InitialValue
	g.Progress = 0
	g.IsComplete = false
	g.CompletedAt = nil
	g.PointsAwarded = false
	start := now
	g.PeriodStartDate = &start
	return g
}

// ProcessResult describes a rollover pass.
type ProcessResult struct {
	Goals       Collection
	Reset       []int64
	Initialized []int64
}

// Changed reports whether the pass modified any goal.
func (r ProcessResult) Changed() bool {
	return len(r.Reset) > 0 || len(r.Initialized) > 0
}

// ProcessAll rolls every recurring goal whose period has elapsed. Goals
// without a period start (created before recurrence existed) are stamped
// with now instead. However many periods were missed, a goal resets once.
func ProcessAll(c Collection, now time.Time) ProcessResult {
	next := c.clone()
	res := ProcessResult{}

	for _, id := range c.order {
		g := c.byID[id]
		if !g.IsRecurring {
			continue
		}
		switch {
		case g.PeriodStartDate == nil:
			g = g.Clone()
			start := now
			g.PeriodStartDate = &start
			next.set(g)
			res.Initialized = append(res.Initialized, id)
		case ShouldReset(g, now):
			next.set(Reset(RecordCompletion(g), now))
			res.Reset = append(res.Reset, id)
		}
	}

	res.Goals = next
	return res
}
