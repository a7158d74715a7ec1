package service

import (
	"context"
	"fmt"
	"log/slog"
	"slices"

	"github.com/hyperengineering/cadence/internal/engine"
	"github.com/hyperengineering/cadence/internal/types"
)

// AddDependency makes id wait on depID. A goal may not depend on itself,
// its parent or one of its own subgoals. Cycles through other goals are
// allowed and logged; every goal on the cycle stays blocked until a member
// is completed another way (finish, or removing the edge).
func (t *Tracker) AddDependency(ctx context.Context, id, depID int64) (types.GoalStatus, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	g, err := t.get(id)
	if err != nil {
		return types.GoalStatus{}, err
	}
	if !t.goals.Has(depID) {
		return types.GoalStatus{}, fmt.Errorf("%w: goal %d does not exist", ErrInvalidDependency, depID)
	}
	switch {
	case depID == id:
		return types.GoalStatus{}, fmt.Errorf("%w: a goal cannot depend on itself", ErrInvalidDependency)
	case g.ParentID != nil && *g.ParentID == depID:
		return types.GoalStatus{}, fmt.Errorf("%w: a goal cannot depend on its parent", ErrInvalidDependency)
	case slices.Contains(engine.Descendants(id, t.goals), depID):
		return types.GoalStatus{}, fmt.Errorf("%w: a goal cannot depend on its own subgoal", ErrInvalidDependency)
	}

	if !slices.Contains(g.DependsOn, depID) {
		g.DependsOn = append(g.DependsOn, depID)
		g.UpdatedAt = t.now()
		if err := t.commit(ctx, t.goals.With(g), nil); err != nil {
			return t.status(id), err
		}
	}

	st := t.status(id)
	if len(st.Cycle) > 0 {
		slog.Warn("dependency cycle",
			"component", "service",
			"goal_id", id,
			"cycle", st.Cycle,
		)
	}
	slog.Info("dependency added",
		"component", "service",
		"action", "add_dependency",
		"goal_id", id,
		"depends_on", depID,
	)
	return st, nil
}

// RemoveDependency drops depID from id's prerequisites. Removing an edge
// that does not exist is a no-op.
func (t *Tracker) RemoveDependency(ctx context.Context, id, depID int64) (types.GoalStatus, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	g, err := t.get(id)
	if err != nil {
		return types.GoalStatus{}, err
	}
	if !slices.Contains(g.DependsOn, depID) {
		return t.status(id), nil
	}
	g.DependsOn = slices.DeleteFunc(g.DependsOn, func(d int64) bool { return d == depID })
	g.UpdatedAt = t.now()

	err = t.commit(ctx, t.goals.With(g), nil)
	slog.Info("dependency removed",
		"component", "service",
		"action", "remove_dependency",
		"goal_id", id,
		"depends_on", depID,
	)
	return t.status(id), err
}

func (t *Tracker) status(id int64) types.GoalStatus {
	g, _ := t.goals.Get(id)
	return types.GoalStatus{
		Goal:      g,
		Blocked:   !engine.IsUnblocked(id, t.goals),
		BlockedBy: nonNil(engine.BlockedBy(id, t.goals)),
		Cycle:     engine.DependencyCycle(id, t.goals),
	}
}
