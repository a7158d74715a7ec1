// Package ledger owns the points economy: lifetime points earned from goal
// completions and points spent on rewards.
//
// Earned points never decrease. Editing, archiving or deleting goals does
// not touch the ledger; only Award adds and only Spend subtracts from the
// available balance.
package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/hyperengineering/cadence/internal/docstore"
	"github.com/hyperengineering/cadence/internal/types"
)

var (
	ErrInsufficientPoints = errors.New("insufficient points")
	ErrInvalidAmount      = errors.New("amount must be positive")
	// ErrDetached means the persisted ledger could not be read, so nothing
	// is written until a read succeeds.
	ErrDetached = errors.New("ledger detached from store")
)

// Ledger is safe for concurrent use. Every change is persisted under
// docstore.KeyLifetimePoints before the call returns.
//
// After a failed read the ledger is detached: it keeps its previous
// in-memory state, holds new awards as pending and never overwrites the
// stored document. The next successful read folds the pending awards into
// the stored totals.
type Ledger struct {
	store docstore.Store
	now   func() time.Time

	mu       sync.Mutex
	state    types.LedgerState
	detached bool
	pending  int64
}

// New returns an empty ledger backed by store. Call Load to read the
// persisted state.
func New(store docstore.Store) *Ledger {
	return &Ledger{store: store, now: time.Now}
}

// Load replaces the in-memory state with the persisted one. A missing
// document is an empty ledger. Any other failure keeps the current state,
// detaches the ledger and is returned after being logged.
func (l *Ledger) Load(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.load(ctx)
}

func (l *Ledger) load(ctx context.Context) error {
	raw, err := l.store.Get(ctx, docstore.KeyLifetimePoints)
	if errors.Is(err, docstore.ErrNotFound) {
		return l.attach(ctx, types.LedgerState{})
	}
	if err != nil {
		l.detached = true
		slog.Error("ledger load failed, detached",
			"component", "ledger",
			"pending_points", l.pending,
			"error", err,
		)
		return fmt.Errorf("%w: load ledger: %w", ErrDetached, err)
	}

	state, err := decodeState(raw)
	if err != nil {
		l.detached = true
		slog.Error("ledger document unreadable, detached",
			"component", "ledger",
			"pending_points", l.pending,
			"error", err,
		)
		return fmt.Errorf("%w: decode ledger: %w", ErrDetached, err)
	}
	return l.attach(ctx, state)
}

// attach installs state read from the store and writes back any points
// awarded while detached.
func (l *Ledger) attach(ctx context.Context, state types.LedgerState) error {
	l.detached = false
	l.state = state
	if l.pending == 0 {
		return nil
	}
	l.state.LifetimePointsEarned += l.pending
	l.state.UpdatedAt = l.now().UTC()
	slog.Info("pending points restored",
		"component", "ledger",
		"points", l.pending,
		"lifetime_points", l.state.LifetimePointsEarned,
	)
	l.pending = 0
	return l.persist(ctx)
}

// Detached reports whether the last read from the store failed.
func (l *Ledger) Detached() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.detached
}

// decodeState accepts the ledger object or a bare integer total.
func decodeState(raw json.RawMessage) (types.LedgerState, error) {
	var state types.LedgerState
	if err := json.Unmarshal(raw, &state); err == nil {
		return clampState(state), nil
	}
	n, err := strconv.ParseInt(string(raw), 10, 64)
	if err != nil {
		return types.LedgerState{}, err
	}
	return clampState(types.LedgerState{LifetimePointsEarned: n}), nil
}

func clampState(s types.LedgerState) types.LedgerState {
	if s.LifetimePointsEarned < 0 {
		s.LifetimePointsEarned = 0
	}
	if s.PointsSpent < 0 {
		s.PointsSpent = 0
	}
	return s
}

// Award adds amount to lifetime points and returns the new total.
// Non-positive amounts are ignored. When persisting fails the in-memory
// total keeps the award and the error is returned. A detached ledger
// retries the read first and, if that still fails, holds the award as
// pending.
func (l *Ledger) Award(ctx context.Context, amount int64) (int64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if amount <= 0 {
		return l.state.LifetimePointsEarned, nil
	}
	if l.detached {
		if err := l.load(ctx); err != nil {
			l.pending += amount
			l.state.LifetimePointsEarned += amount
			return l.state.LifetimePointsEarned, err
		}
	}

	l.state.LifetimePointsEarned += amount
	l.state.UpdatedAt = l.now().UTC()

	if err := l.persist(ctx); err != nil {
		return l.state.LifetimePointsEarned, err
	}
	return l.state.LifetimePointsEarned, nil
}

// Spend deducts amount from the available balance and returns what is left.
func (l *Ledger) Spend(ctx context.Context, amount int64) (int64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if amount < 0 {
		return l.state.Available(), ErrInvalidAmount
	}
	if l.detached {
		if err := l.load(ctx); err != nil {
			return l.state.Available(), err
		}
	}
	if amount > l.state.Available() {
		return l.state.Available(), fmt.Errorf("%w: need %d, have %d", ErrInsufficientPoints, amount, l.state.Available())
	}
	if amount == 0 {
		return l.state.Available(), nil
	}

	l.state.PointsSpent += amount
	l.state.UpdatedAt = l.now().UTC()

	if err := l.persist(ctx); err != nil {
		return l.state.Available(), err
	}
	return l.state.Available(), nil
}

// Raise moves lifetime points and points spent up to at least the given
// totals. Neither ever moves down, and spent never exceeds earned. Returns
// how far lifetime points moved.
func (l *Ledger) Raise(ctx context.Context, earned, spent int64) (int64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.detached {
		if err := l.load(ctx); err != nil {
			return 0, err
		}
	}

	next := l.state
	next.LifetimePointsEarned = max(next.LifetimePointsEarned, earned)
	next.PointsSpent = min(max(next.PointsSpent, spent), next.LifetimePointsEarned)
	if next.PointsSpent < l.state.PointsSpent {
		next.PointsSpent = l.state.PointsSpent
	}
	if next == l.state {
		return 0, nil
	}
	added := next.LifetimePointsEarned - l.state.LifetimePointsEarned
	next.UpdatedAt = l.now().UTC()
	l.state = next
	return added, l.persist(ctx)
}

// Total returns lifetime points earned.
func (l *Ledger) Total() int64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state.LifetimePointsEarned
}

// State returns a copy of the ledger.
func (l *Ledger) State() types.LedgerState {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state
}

func (l *Ledger) persist(ctx context.Context) error {
	raw, err := json.Marshal(l.state)
	if err != nil {
		return fmt.Errorf("encode ledger: %w", err)
	}
	if err := l.store.Set(ctx, docstore.KeyLifetimePoints, raw); err != nil {
		slog.Error("ledger persist failed",
			"component", "ledger",
			"lifetime_points", l.state.LifetimePointsEarned,
			"error", err,
		)
		return fmt.Errorf("persist ledger: %w", err)
	}
	return nil
}
