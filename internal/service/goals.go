package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/hyperengineering/cadence/internal/engine"
	"github.com/hyperengineering/cadence/internal/types"
	"github.com/hyperengineering/cadence/internal/validation"
)

// GoalFilter narrows Goals. The zero value lists every non-archived goal.
type GoalFilter struct {
	IncludeArchived bool
	RootOnly        bool
	Category        string
	ParentID        *int64
}

func (f GoalFilter) match(g types.Goal) bool {
	if g.IsArchived && !f.IncludeArchived {
		return false
	}
	if f.RootOnly && g.HasParent() {
		return false
	}
	if f.Category != "" && g.Category != f.Category {
		return false
	}
	if f.ParentID != nil && (g.ParentID == nil || *g.ParentID != *f.ParentID) {
		return false
	}
	return true
}

// Goals returns matching goals in display order.
func (t *Tracker) Goals(f GoalFilter) []types.Goal {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := []types.Goal{}
	for _, g := range t.goals.Sorted() {
		if f.match(g) {
			out = append(out, g)
		}
	}
	return out
}

// Goal returns one goal.
func (t *Tracker) Goal(id int64) (types.Goal, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.get(id)
}

func (t *Tracker) get(id int64) (types.Goal, error) {
	g, ok := t.goals.Get(id)
	if !ok {
		return types.Goal{}, fmt.Errorf("%w: %d", ErrGoalNotFound, id)
	}
	return g, nil
}

// GoalStatus returns a goal together with its dependency state.
func (t *Tracker) GoalStatus(id int64) (types.GoalStatus, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, err := t.get(id); err != nil {
		return types.GoalStatus{}, err
	}
	return t.status(id), nil
}

// GoalCount returns the number of goals, archived included.
func (t *Tracker) GoalCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.goals.Len()
}

// AddGoal creates a goal. The baseline is the starting current value and
// the first period starts now.
func (t *Tracker) AddGoal(ctx context.Context, in types.NewGoal) (types.Goal, error) {
	if err := validationErr(validation.ValidateNewGoal(in)); err != nil {
		return types.Goal{}, err
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if in.ParentID != nil {
		parent, ok := t.goals.Get(*in.ParentID)
		if !ok {
			return types.Goal{}, fmt.Errorf("%w: parent %d does not exist", ErrInvalidParent, *in.ParentID)
		}
		if !parent.IsUltimate {
			return types.Goal{}, fmt.Errorf("%w: parent %d is not an ultimate goal", ErrInvalidParent, *in.ParentID)
		}
	}
	for _, dep := range in.DependsOn {
		if !t.goals.Has(dep) {
			return types.Goal{}, fmt.Errorf("%w: goal %d does not exist", ErrInvalidDependency, dep)
		}
		if in.ParentID != nil && dep == *in.ParentID {
			return types.Goal{}, fmt.Errorf("%w: a goal cannot depend on its parent", ErrInvalidDependency)
		}
	}

	now := t.now()
	start := now
	g := types.Goal{
		ID:                  t.nextID(now),
		Title:               in.Title,
		Description:         in.Description,
		Category:            in.Category,
		Target:              in.Target,
		Current:             in.Current,
		InitialValue:        in.Current,
		Unit:                in.Unit,
		Direction:           in.Direction,
		Period:              in.Period,
		CustomPeriodDays:    in.CustomPeriodDays,
		PeriodStartDate:     &start,
		IsRecurring:         in.IsRecurring,
		CompletionHistory:   []time.Time{},
		SubGoals:            []int64{},
		IsUltimate:          in.IsUltimate,
		SubgoalsAwardPoints: in.SubgoalsAwardPoints,
		DependsOn:           append([]int64{}, in.DependsOn...),
		Points:              in.Points,
		SortOrder:           in.SortOrder,
		CreatedAt:           now,
		UpdatedAt:           now,
		Notification:        in.Notification,
	}
	if g.Direction == "" {
		g.Direction = types.DirectionIncrease
	}
	if g.Period == "" {
		g.Period = types.PeriodOngoing
	}
	g = engine.RecomputeProgress(g)
	g = t.schedule(ctx, g)

	next := t.goals.With(g)
	if in.ParentID != nil {
		var err error
		if next, err = engine.Attach(g.ID, *in.ParentID, next); err != nil {
			return types.Goal{}, err
		}
		g, _ = next.Get(g.ID)
	}
	next, awards, err := engine.Commit(g, next, now)
	if err != nil {
		return types.Goal{}, err
	}

	err = t.commit(ctx, next, awards)
	slog.Info("goal added",
		"component", "service",
		"action", "add_goal",
		"goal_id", g.ID,
	)
	out, _ := t.goals.Get(g.ID)
	return out, err
}

// EditGoal applies the non-nil fields of p, then recomputes progress and
// completion and propagates to ancestors.
func (t *Tracker) EditGoal(ctx context.Context, id int64, p types.GoalPatch) (types.Goal, error) {
	if err := validationErr(validation.ValidateGoalPatch(p)); err != nil {
		return types.Goal{}, err
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	g, err := t.get(id)
	if err != nil {
		return types.Goal{}, err
	}
	now := t.now()

	periodChanged := (p.Period != nil && *p.Period != g.Period) ||
		(p.CustomPeriodDays != nil && !ptrEqual(p.CustomPeriodDays, g.CustomPeriodDays))

	setIf(&g.Title, p.Title)
	setIf(&g.Description, p.Description)
	setIf(&g.Category, p.Category)
	setIf(&g.Target, p.Target)
	setIf(&g.Current, p.Current)
	setIf(&g.InitialValue, p.InitialValue)
	setIf(&g.Unit, p.Unit)
	setIf(&g.Direction, p.Direction)
	setIf(&g.Period, p.Period)
	setIf(&g.IsRecurring, p.IsRecurring)
	setIf(&g.SubgoalsAwardPoints, p.SubgoalsAwardPoints)
	setIf(&g.Points, p.Points)
	if p.CustomPeriodDays != nil {
		days := *p.CustomPeriodDays
		g.CustomPeriodDays = &days
	}
	if p.SortOrder != nil {
		order := *p.SortOrder
		g.SortOrder = &order
	}

	if g.Period == types.PeriodCustom && g.CustomPeriodDays == nil {
		return types.Goal{}, &ValidationError{Errors: []validation.ValidationError{
			{Field: "customPeriodDays", Message: "is required for custom periods"},
		}}
	}
	if periodChanged || (g.IsRecurring && g.PeriodStartDate == nil) {
		start := now
		g.PeriodStartDate = &start
	}

	if p.Notification != nil {
		n := *p.Notification
		g.Notification = &n
		g = t.schedule(ctx, g)
	}

	g.UpdatedAt = now
	next := t.goals.With(engine.RecomputeProgress(g))
	var awards []types.Award
	if g.IsUltimate {
		next, awards = engine.Reaggregate(id, next, now)
	} else {
		g, _ = next.Get(id)
		if next, awards, err = engine.Commit(g, next, now); err != nil {
			return types.Goal{}, err
		}
	}

	err = t.commit(ctx, next, awards)
	slog.Info("goal edited",
		"component", "service",
		"action", "edit_goal",
		"goal_id", id,
	)
	out, _ := t.goals.Get(id)
	return out, err
}

// checkProgressAllowed rejects updates on goals whose progress cannot be
// set directly right now.
func (t *Tracker) checkProgressAllowed(g types.Goal) error {
	switch {
	case g.IsArchived:
		return fmt.Errorf("%w: %d", ErrGoalArchived, g.ID)
	case g.IsPaused:
		return fmt.Errorf("%w: %d", ErrGoalPaused, g.ID)
	case !engine.IsUnblocked(g.ID, t.goals):
		return fmt.Errorf("%w: %d waits on %v", ErrGoalBlocked, g.ID, engine.BlockedBy(g.ID, t.goals))
	}
	return nil
}

// UpdateProgress sets a goal's current value.
func (t *Tracker) UpdateProgress(ctx context.Context, id int64, current float64) (types.Goal, error) {
	return t.setProgress(ctx, id, func(types.Goal) float64 { return current })
}

// IncrementProgress adds delta (which may be negative) to a goal's current
// value.
func (t *Tracker) IncrementProgress(ctx context.Context, id int64, delta float64) (types.Goal, error) {
	return t.setProgress(ctx, id, func(g types.Goal) float64 { return g.Current + delta })
}

func (t *Tracker) setProgress(ctx context.Context, id int64, value func(types.Goal) float64) (types.Goal, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	g, err := t.get(id)
	if err != nil {
		return types.Goal{}, err
	}
	if g.IsUltimate {
		return types.Goal{}, fmt.Errorf("%w: %d", ErrUltimateProgress, id)
	}
	if err := t.checkProgressAllowed(g); err != nil {
		return types.Goal{}, err
	}

	now := t.now()
	g.UpdatedAt = now
	next, awards, err := engine.ApplyCurrent(id, value(g), t.goals.With(g), now)
	if err != nil {
		return types.Goal{}, err
	}

	err = t.commit(ctx, next, awards)
	out, _ := t.goals.Get(id)
	slog.Debug("progress updated",
		"component", "service",
		"action", "update_progress",
		"goal_id", id,
		"current", out.Current,
		"progress", out.Progress,
	)
	return out, err
}

// FinishGoal drives a goal to its target and completes it.
func (t *Tracker) FinishGoal(ctx context.Context, id int64) (types.Goal, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	g, err := t.get(id)
	if err != nil {
		return types.Goal{}, err
	}
	if err := t.checkProgressAllowed(g); err != nil {
		return types.Goal{}, err
	}

	now := t.now()
	g.UpdatedAt = now
	next, awards, err := engine.Finish(id, t.goals.With(g), now)
	if err != nil {
		return types.Goal{}, err
	}

	err = t.commit(ctx, next, awards)
	slog.Info("goal finished",
		"component", "service",
		"action", "finish_goal",
		"goal_id", id,
	)
	out, _ := t.goals.Get(id)
	return out, err
}

// PauseGoal stops progress updates and reminders for a goal.
func (t *Tracker) PauseGoal(ctx context.Context, id int64) (types.Goal, error) {
	return t.setFlags(ctx, id, "pause_goal", func(g *types.Goal) { g.IsPaused = true })
}

// ResumeGoal undoes PauseGoal.
func (t *Tracker) ResumeGoal(ctx context.Context, id int64) (types.Goal, error) {
	return t.setFlags(ctx, id, "resume_goal", func(g *types.Goal) { g.IsPaused = false })
}

// ArchiveGoal soft-deletes a goal. Archived subgoals drop out of their
// parent's aggregate.
func (t *Tracker) ArchiveGoal(ctx context.Context, id int64) (types.Goal, error) {
	return t.setFlags(ctx, id, "archive_goal", func(g *types.Goal) { g.IsArchived = true })
}

// UnarchiveGoal restores an archived goal.
func (t *Tracker) UnarchiveGoal(ctx context.Context, id int64) (types.Goal, error) {
	return t.setFlags(ctx, id, "unarchive_goal", func(g *types.Goal) { g.IsArchived = false })
}

func (t *Tracker) setFlags(ctx context.Context, id int64, action string, fn func(*types.Goal)) (types.Goal, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	g, err := t.get(id)
	if err != nil {
		return types.Goal{}, err
	}
	before := g
	fn(&g)
	if g.IsPaused == before.IsPaused && g.IsArchived == before.IsArchived {
		return g, nil
	}

	now := t.now()
	g.UpdatedAt = now
	g = t.schedule(ctx, g)

	next := t.goals.With(g)
	var awards []types.Award
	if g.IsArchived != before.IsArchived && g.ParentID != nil {
		next, awards = engine.Reaggregate(*g.ParentID, next, now)
	}

	err = t.commit(ctx, next, awards)
	slog.Info("goal updated",
		"component", "service",
		"action", action,
		"goal_id", id,
	)
	out, _ := t.goals.Get(id)
	return out, err
}

// DeleteGoal permanently removes a goal and all of its subgoals. Points
// already earned are kept. Returns the removed IDs.
func (t *Tracker) DeleteGoal(ctx context.Context, id int64) ([]int64, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	g, err := t.get(id)
	if err != nil {
		return nil, err
	}
	now := t.now()

	next, removed := engine.DeleteCascade(id, t.goals)
	for _, rid := range removed {
		if old, ok := t.goals.Get(rid); ok {
			t.unschedule(ctx, old)
		}
	}
	var awards []types.Award
	if g.ParentID != nil {
		next, awards = engine.Reaggregate(*g.ParentID, next, now)
	}

	rewardsChanged := false
	for i, r := range t.rewards {
		if r.GoalID != nil && slices.Contains(removed, *r.GoalID) {
			t.rewards[i].GoalID = nil
			rewardsChanged = true
		}
	}

	err = t.commit(ctx, next, awards)
	if rewardsChanged {
		if perr := t.persistRewards(ctx); perr != nil {
			err = errors.Join(err, perr)
		}
	}
	slog.Info("goal deleted",
		"component", "service",
		"action", "delete_goal",
		"goal_id", id,
		"removed", len(removed),
	)
	return removed, err
}

func setIf[T any](dst *T, src *T) {
	if src != nil {
		*dst = *src
	}
}

func ptrEqual[T comparable](a, b *T) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
