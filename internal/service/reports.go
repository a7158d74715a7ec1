package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"

	"github.com/oklog/ulid/v2"

	"github.com/hyperengineering/cadence/internal/engine"
	"github.com/hyperengineering/cadence/internal/exchange"
	"github.com/hyperengineering/cadence/internal/stats"
	"github.com/hyperengineering/cadence/internal/types"
	"github.com/hyperengineering/cadence/internal/validation"
)

// Points reports the ledger.
func (t *Tracker) Points() types.PointsResponse {
	s := t.ledger.State()
	return types.PointsResponse{
		LifetimePointsEarned: s.LifetimePointsEarned,
		PointsSpent:          s.PointsSpent,
		Available:            s.Available(),
	}
}

// Stats summarises the current state.
func (t *Tracker) Stats() stats.Summary {
	t.mu.Lock()
	defer t.mu.Unlock()
	return stats.Compute(t.goals.Goals(), t.rewards, t.ledger.State(), t.now())
}

// Achievements evaluates the achievement table against Stats.
func (t *Tracker) Achievements() []stats.Achievement {
	return stats.Evaluate(t.Stats())
}

// Export snapshots goals, rewards and the ledger totals.
func (t *Tracker) Export() exchange.Document {
	t.mu.Lock()
	defer t.mu.Unlock()
	return exchange.New(t.goals.Goals(), cloneRewards(t.rewards), t.ledger.State(), t.now())
}

// ImportResult reports what Import replaced.
type ImportResult struct {
	Goals   int `json:"goals"`
	Rewards int `json:"rewards"`
	// PointsAdded is how far the ledger moved up to match the document.
	PointsAdded int64 `json:"pointsAdded"`
}

// Import replaces all goals and rewards with those in doc. Parent links
// are repaired, reminders rescheduled, rewards without a ULID get a fresh
// one and a rollover pass runs. Lifetime
// points and points spent only ever move up to the document's totals.
func (t *Tracker) Import(ctx context.Context, doc exchange.Document) (ImportResult, error) {
	if err := exchange.Validate(doc); err != nil {
		return ImportResult{}, err
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	for _, g := range t.goals.Goals() {
		t.unschedule(ctx, g)
	}

	goals := make([]types.Goal, 0, len(doc.Goals))
	for _, g := range doc.Goals {
		g = g.Clone()
		g.NotificationIDs = nil
		if g.Direction == "" {
			g.Direction = types.DirectionIncrease
		}
		if g.Period == "" {
			g.Period = types.PeriodOngoing
		}
		g = t.schedule(ctx, g)
		goals = append(goals, g)
	}
	next := repairHierarchy(engine.NewCollection(goals))

	// Installed directly rather than through commit: goals that arrive
	// complete must not auto-redeem the rewards imported with them.
	t.goals = next
	t.rewards = cloneRewards(doc.Rewards)
	for i, r := range t.rewards {
		if validation.ValidateULID("id", r.ID) == nil {
			continue
		}
		t.rewards[i].ID = ulid.Make().String()
		slog.Warn("imported reward given a new id",
			"component", "service",
			"old_id", r.ID,
			"reward_id", t.rewards[i].ID,
		)
	}
	t.lastID = maxID(next)

	res := ImportResult{Goals: next.Len(), Rewards: len(t.rewards)}

	var errs []error
	if err := t.persistGoals(ctx); err != nil {
		errs = append(errs, err)
	}
	if err := t.persistRewards(ctx); err != nil {
		errs = append(errs, err)
	}
	added, err := t.ledger.Raise(ctx, doc.LifetimePoints, doc.PointsSpent)
	if err != nil {
		errs = append(errs, fmt.Errorf("%w: ledger: %w", ErrPersist, err))
	}
	res.PointsAdded = added
	if _, err := t.rollover(ctx); err != nil {
		errs = append(errs, err)
	}

	slog.Info("import complete",
		"component", "service",
		"action", "import",
		"goals", res.Goals,
		"rewards", res.Rewards,
		"points_added", res.PointsAdded,
	)
	return res, errors.Join(errs...)
}

// repairHierarchy makes parentId and subGoals agree: a child claiming a
// parent is listed by it, and a parent only lists children that exist and
// point back. Dangling parent references are logged and cleared.
func repairHierarchy(c engine.Collection) engine.Collection {
	var updates []types.Goal
	for _, g := range c.Goals() {
		changed := false
		kept := g.SubGoals[:0:0]
		for _, child := range g.SubGoals {
			cg, ok := c.Get(child)
			if ok && cg.ParentID != nil && *cg.ParentID == g.ID {
				kept = append(kept, child)
			} else {
				changed = true
			}
		}
		for _, other := range c.Goals() {
			if other.ParentID != nil && *other.ParentID == g.ID && !slices.Contains(kept, other.ID) {
				kept = append(kept, other.ID)
				changed = true
			}
		}
		if g.ParentID != nil && !c.Has(*g.ParentID) {
			slog.Warn("dangling parent reference cleared",
				"component", "service",
				"goal_id", g.ID,
				"parent_id", *g.ParentID,
			)
			g.ParentID = nil
			changed = true
		}
		if changed {
			g.SubGoals = kept
			updates = append(updates, g)
		}
	}
	return c.With(updates...)
}
