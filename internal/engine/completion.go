package engine

import (
	"log/slog"
	"time"

	"github.com/hyperengineering/cadence/internal/types"
)

// AwardsPoints reports whether completing g may pay into the ledger.
// Subgoals pay only when their parent opts in with subgoalsAwardPoints.
// A parent that cannot be found is treated as absent.
func AwardsPoints(g types.Goal, c Collection) bool {
	if g.ParentID == nil {
		return true
	}
	parent, ok := c.byID[*g.ParentID]
	if !ok {
		slog.Warn("dangling parent reference",
			"component", "engine",
			"goal_id", g.ID,
			"parent_id", *g.ParentID,
		)
		return true
	}
	return parent.SubgoalsAwardPoints
}

// Complete marks g complete at now. The first completion in a period (or
// ever, for one-time goals) produces an award when the hierarchy policy
// allows it. Completing an already complete goal changes nothing.
func Complete(g types.Goal, c Collection, now time.Time) (types.Goal, *types.Award) {
	if g.IsComplete {
		return g, nil
	}
	g.IsComplete = true
	at := now
	g.CompletedAt = &at

	if g.PointsAwarded || !AwardsPoints(g, c) {
		return g, nil
	}
	g.PointsAwarded = true
	if g.Points <= 0 {
		return g, nil
	}
	return g, &types.Award{GoalID: g.ID, Points: g.Points}
}

// Uncomplete clears completion. Points already awarded stay awarded.
func Uncomplete(g types.Goal) types.Goal {
	g.IsComplete = false
	g.CompletedAt = nil
	return g
}

// SyncCompletion aligns isComplete with progress: reaching 100 completes,
// dropping below it un-completes.
func SyncCompletion(g types.Goal, c Collection, now time.Time) (types.Goal, *types.Award) {
	reached := g.Progress >= 100
	switch {
	case reached && !g.IsComplete:
		return Complete(g, c, now)
	case !reached && g.IsComplete:
		return Uncomplete(g), nil
	}
	return g, nil
}

// ApplyCurrent sets a goal's measured value, recomputes progress and
// completion, then propagates the change up the hierarchy.
func ApplyCurrent(id int64, current float64, c Collection, now time.Time) (Collection, []types.Award, error) {
	g, ok := c.Get(id)
	if !ok {
		return c, nil, ErrUnknownGoal
	}
	g.Current = current
	g = RecomputeProgress(g)
	return Commit(g, c, now)
}

// Commit stores an edited goal, syncs its completion state and streaks and
// recalculates its ancestors.
func Commit(g types.Goal, c Collection, now time.Time) (Collection, []types.Award, error) {
	var awards []types.Award
	g, award := SyncCompletion(g, c, now)
	if award != nil {
		awards = append(awards, *award)
	}
	g = refreshStreaks(g, now)
	next, more := Recalculate(g.ID, c.With(g), now)
	return next, append(awards, more...), nil
}

// Finish drives a goal to its target and completes it.
func Finish(id int64, c Collection, now time.Time) (Collection, []types.Award, error) {
	g, ok := c.Get(id)
	if !ok {
		return c, nil, ErrUnknownGoal
	}
	if g.IsUltimate {
		g.Progress = 100
	} else {
		g.Current = g.Target
		g = RecomputeProgress(g)
	}
	var awards []types.Award
	g, award := Complete(g, c, now)
	if award != nil {
		awards = append(awards, *award)
	}
	g = refreshStreaks(g, now)
	next, more := Recalculate(g.ID, c.With(g), now)
	return next, append(awards, more...), nil
}

// refreshStreaks counts an in-period completion straight away instead of
// waiting for the next rollover pass.
func refreshStreaks(g types.Goal, now time.Time) types.Goal {
	if !g.IsRecurring {
		return g
	}
	return UpdateGoalStreaks(g, now)
}
