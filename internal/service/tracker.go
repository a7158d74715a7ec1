// Package service holds the Tracker, the single owner of the in-memory goal
// collection, the rewards list and the points ledger. Every operation runs
// the engine over the collection, persists the result and applies the
// awards it produced.
package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/hyperengineering/cadence/internal/docstore"
	"github.com/hyperengineering/cadence/internal/engine"
	"github.com/hyperengineering/cadence/internal/ledger"
	"github.com/hyperengineering/cadence/internal/notify"
	"github.com/hyperengineering/cadence/internal/types"
)

// Options configures a Tracker.
type Options struct {
	Store docstore.Store
	// Scheduler receives reminder settings. Nil disables reminders.
	Scheduler notify.Scheduler
	// Location is the time zone calendar periods are evaluated in.
	// Defaults to time.Local.
	Location *time.Location
	// Clock defaults to time.Now.
	Clock func() time.Time
}

// Tracker is safe for concurrent use. Mutations are serialised, and each
// one is persisted before the next starts.
type Tracker struct {
	store     docstore.Store
	ledger    *ledger.Ledger
	scheduler notify.Scheduler
	loc       *time.Location
	clock     func() time.Time

	mu      sync.Mutex
	goals   engine.Collection
	rewards []types.Reward
	lastID  int64
}

// New returns an empty tracker. Call Load before use.
func New(opts Options) *Tracker {
	t := &Tracker{
		store:     opts.Store,
		ledger:    ledger.New(opts.Store),
		scheduler: opts.Scheduler,
		loc:       opts.Location,
		clock:     opts.Clock,
	}
	if t.loc == nil {
		t.loc = time.Local
	}
	if t.clock == nil {
		t.clock = time.Now
	}
	return t
}

func (t *Tracker) now() time.Time {
	return t.clock().In(t.loc)
}

// Load reads goals, rewards and the ledger from the store and runs a
// rollover pass. A document that cannot be read keeps the state already in
// memory, which is empty on first load. Read failures are logged; only the
// rollover's own persistence error is returned.
func (t *Tracker) Load(ctx context.Context) (types.RefreshResult, error) {
	res, _, err := t.load(ctx)
	return res, err
}

// Reload re-reads everything from the store. The file backend's watcher
// calls it after external edits. Documents that fail to read keep their
// in-memory state and the read errors are returned.
func (t *Tracker) Reload(ctx context.Context) error {
	_, readErr, err := t.load(ctx)
	return errors.Join(readErr, err)
}

func (t *Tracker) load(ctx context.Context) (res types.RefreshResult, readErr, err error) {
	start := time.Now()
	t.mu.Lock()
	defer t.mu.Unlock()

	var readErrs []error
	var goals []types.Goal
	if err := t.readDocument(ctx, docstore.KeyGoals, &goals); err != nil {
		readErrs = append(readErrs, err)
	} else {
		t.goals = engine.NewCollection(goals)
	}
	var rewards []types.Reward
	if err := t.readDocument(ctx, docstore.KeyRewards, &rewards); err != nil {
		readErrs = append(readErrs, err)
	} else {
		t.rewards = rewards
	}
	if err := t.ledger.Load(ctx); err != nil {
		readErrs = append(readErrs, err)
	}
	t.lastID = max(t.lastID, maxID(t.goals))

	res, err = t.rollover(ctx)

	slog.Info("tracker loaded",
		"component", "service",
		"action", "load",
		"goals", t.goals.Len(),
		"rewards", len(t.rewards),
		"lifetime_points", t.ledger.Total(),
		"ledger_detached", t.ledger.Detached(),
		"read_errors", len(readErrs),
		"reset", len(res.Reset),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return res, errors.Join(readErrs...), err
}

// Refresh runs the rollover pass on the in-memory collection: expired
// recurring periods reset and streaks are recomputed.
func (t *Tracker) Refresh(ctx context.Context) (types.RefreshResult, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.rollover(ctx)
}

func (t *Tracker) rollover(ctx context.Context) (types.RefreshResult, error) {
	now := t.now()
	res := engine.ProcessAll(t.goals, now)
	next := res.Goals

	var awards []types.Award
	for _, id := range res.Reset {
		var more []types.Award
		next, more = engine.Recalculate(id, next, now)
		awards = append(awards, more...)
	}
	next, streaks := engine.UpdateAllStreaks(next, now)

	out := types.RefreshResult{
		Reset:       nonNil(res.Reset),
		Initialized: nonNil(res.Initialized),
		AsOf:        now,
	}
	if !res.Changed() && len(streaks) == 0 {
		return out, nil
	}
	if len(res.Reset) > 0 {
		slog.Info("recurring goals reset",
			"component", "service",
			"action", "rollover",
			"goal_ids", res.Reset,
		)
	}
	return out, t.commit(ctx, next, awards)
}

// commit installs next as the current collection, persists it, pays out
// awards and auto-redeems rewards linked to newly completed goals. Memory
// is not rolled back when persisting fails.
func (t *Tracker) commit(ctx context.Context, next engine.Collection, awards []types.Award) error {
	prev := t.goals
	t.goals = next

	var errs []error
	if err := t.persistGoals(ctx); err != nil {
		errs = append(errs, err)
	}
	for _, a := range awards {
		total, err := t.ledger.Award(ctx, a.Points)
		if err != nil {
			errs = append(errs, fmt.Errorf("%w: ledger: %w", ErrPersist, err))
		}
		slog.Info("points awarded",
			"component", "service",
			"action", "award",
			"goal_id", a.GoalID,
			"points", a.Points,
			"lifetime_points", total,
		)
	}
	if t.autoRedeem(completedIDs(prev, next)) {
		if err := t.persistRewards(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// completedIDs lists goals that are complete in next but were not in prev.
func completedIDs(prev, next engine.Collection) []int64 {
	var out []int64
	for _, g := range next.Goals() {
		if !g.IsComplete {
			continue
		}
		if before, ok := prev.Get(g.ID); ok && before.IsComplete {
			continue
		}
		out = append(out, g.ID)
	}
	return out
}

// autoRedeem marks unredeemed rewards linked to the given goals as
// redeemed. Redeemed rewards are left alone. Reports whether anything
// changed.
func (t *Tracker) autoRedeem(goalIDs []int64) bool {
	if len(goalIDs) == 0 {
		return false
	}
	now := t.now()
	changed := false
	for i, r := range t.rewards {
		if r.IsRedeemed || r.GoalID == nil || !slices.Contains(goalIDs, *r.GoalID) {
			continue
		}
		at := now
		t.rewards[i].IsRedeemed = true
		t.rewards[i].RedeemedAt = &at
		changed = true
		slog.Info("reward auto-redeemed",
			"component", "service",
			"action", "auto_redeem",
			"reward_id", r.ID,
			"goal_id", *r.GoalID,
		)
	}
	return changed
}

// readDocument decodes key into v. A missing document leaves v untouched
// and is not an error.
func (t *Tracker) readDocument(ctx context.Context, key string, v any) error {
	raw, err := t.store.Get(ctx, key)
	if errors.Is(err, docstore.ErrNotFound) {
		return nil
	}
	if err != nil {
		slog.Error("document load failed, keeping memory state",
			"component", "service",
			"key", key,
			"error", err,
		)
		return fmt.Errorf("read %s: %w", key, err)
	}
	if err := json.Unmarshal(raw, v); err != nil {
		slog.Error("document unreadable, keeping memory state",
			"component", "service",
			"key", key,
			"error", err,
		)
		return fmt.Errorf("decode %s: %w", key, err)
	}
	return nil
}

func (t *Tracker) persistGoals(ctx context.Context) error {
	return t.writeDocument(ctx, docstore.KeyGoals, t.goals.Goals())
}

func (t *Tracker) persistRewards(ctx context.Context) error {
	rewards := t.rewards
	if rewards == nil {
		rewards = []types.Reward{}
	}
	return t.writeDocument(ctx, docstore.KeyRewards, rewards)
}

func (t *Tracker) writeDocument(ctx context.Context, key string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("%w: encode %s: %w", ErrPersist, key, err)
	}
	if err := t.store.Set(ctx, key, raw); err != nil {
		slog.Error("persist failed",
			"component", "service",
			"key", key,
			"error", err,
		)
		return fmt.Errorf("%w: %s: %w", ErrPersist, key, err)
	}
	return nil
}

// nextID derives an ID from the creation time, bumping by one on collision.
func (t *Tracker) nextID(now time.Time) int64 {
	id := now.UnixMilli()
	if id <= t.lastID {
		id = t.lastID + 1
	}
	for t.goals.Has(id) {
		id++
	}
	t.lastID = id
	return id
}

func maxID(c engine.Collection) int64 {
	var out int64
	for _, id := range c.IDs() {
		out = max(out, id)
	}
	return out
}

func nonNil(ids []int64) []int64 {
	if ids == nil {
		return []int64{}
	}
	return ids
}
