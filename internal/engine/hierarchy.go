package engine

import (
	"log/slog"
	"slices"
	"time"

	"github.com/hyperengineering/cadence/internal/types"
)

// maxHierarchyDepth bounds upward propagation. The data model only nests
// one level in practice; the bound stops a corrupted parent chain from
// looping.
const maxHierarchyDepth = 32

// AggregateProgress returns the mean progress of a parent's non-archived
// subgoals. Subgoal IDs that do not resolve are skipped. No subgoals means
// no progress.
func AggregateProgress(parent types.Goal, c Collection) float64 {
	var sum float64
	var n int
	for _, id := range parent.SubGoals {
		child, ok := c.byID[id]
		if !ok || child.IsArchived {
			continue
		}
		sum += child.Progress
		n++
	}
	if n == 0 {
		return 0
	}
	return clampPercent(sum / float64(n))
}

// Recalculate propagates a change to goal id upwards: the parent is
// recomputed, then its parent, until a root is reached. Ultimate parents
// take the aggregate of their subgoals; completion follows the recomputed
// progress. Awards earned by parents crossing 100 are returned.
func Recalculate(id int64, c Collection, now time.Time) (Collection, []types.Award) {
	next := c.clone()
	var awards []types.Award

	visited := map[int64]bool{id: true}
	cur := id
	for depth := 0; depth < maxHierarchyDepth; depth++ {
		g, ok := next.byID[cur]
		if !ok || g.ParentID == nil {
			break
		}
		pid := *g.ParentID
		if visited[pid] {
			slog.Warn("hierarchy cycle detected",
				"component", "engine",
				"goal_id", cur,
				"parent_id", pid,
			)
			break
		}
		visited[pid] = true

		parent, ok := next.byID[pid]
		if !ok {
			slog.Warn("dangling parent reference",
				"component", "engine",
				"goal_id", cur,
				"parent_id", pid,
			)
			break
		}

		var award *types.Award
		parent, award = refresh(parent.Clone(), next, now)
		if award != nil {
			awards = append(awards, *award)
		}
		next.set(parent)
		cur = pid
	}

	return next, awards
}

// Reaggregate recomputes goal id itself (when it is ultimate) and then its
// ancestors. Use it after the set of subgoals under id has changed.
func Reaggregate(id int64, c Collection, now time.Time) (Collection, []types.Award) {
	g, ok := c.byID[id]
	if !ok {
		return c, nil
	}
	var awards []types.Award
	g, award := refresh(g.Clone(), c, now)
	if award != nil {
		awards = append(awards, *award)
	}
	next, more := Recalculate(id, c.With(g), now)
	return next, append(awards, more...)
}

func refresh(g types.Goal, c Collection, now time.Time) (types.Goal, *types.Award) {
	if g.IsUltimate {
		g.Progress = AggregateProgress(g, c)
	} else {
		g = RecomputeProgress(g)
	}
	return SyncCompletion(g, c, now)
}

// Attach links child under parent, keeping parentId and subGoals in step.
// The child is detached from any previous parent first.
func Attach(childID, parentID int64, c Collection) (Collection, error) {
	child, ok := c.Get(childID)
	if !ok {
		return c, ErrUnknownGoal
	}
	parent, ok := c.Get(parentID)
	if !ok {
		return c, ErrUnknownGoal
	}

	next := Detach(childID, c)
	child, _ = next.Get(childID)
	parent, _ = next.Get(parentID)

	pid := parentID
	child.ParentID = &pid
	if !slices.Contains(parent.SubGoals, childID) {
		parent.SubGoals = append(parent.SubGoals, childID)
	}
	return next.With(child, parent), nil
}

// Detach removes child from its parent's subGoals and clears its parentId.
func Detach(childID int64, c Collection) Collection {
	child, ok := c.Get(childID)
	if !ok || child.ParentID == nil {
		return c
	}
	var updates []types.Goal
	if parent, ok := c.Get(*child.ParentID); ok {
		parent.SubGoals = slices.DeleteFunc(parent.SubGoals, func(id int64) bool { return id == childID })
		updates = append(updates, parent)
	}
	child.ParentID = nil
	return c.With(append(updates, child)...)
}

// Descendants returns every goal below id, depth first. Cycles in subGoals
// are cut at the first repeat.
func Descendants(id int64, c Collection) []int64 {
	var out []int64
	seen := map[int64]bool{id: true}
	var walk func(int64, int)
	walk = func(cur int64, depth int) {
		if depth >= maxHierarchyDepth {
			return
		}
		g, ok := c.byID[cur]
		if !ok {
			return
		}
		for _, child := range g.SubGoals {
			if seen[child] {
				continue
			}
			seen[child] = true
			out = append(out, child)
			walk(child, depth+1)
		}
	}
	walk(id, 0)
	return out
}

// DeleteCascade permanently removes id and its descendants and strips id
// from the surviving parent's subGoals. dependsOn lists are left alone: a
// dependent of a removed goal stays blocked until the edge is removed. The
// returned slice lists what was removed.
func DeleteCascade(id int64, c Collection) (Collection, []int64) {
	if !c.Has(id) {
		return c, nil
	}
	next := Detach(id, c)
	removed := append([]int64{id}, Descendants(id, next)...)
	return next.Without(removed...), removed
}
