// Package engine implements the goal lifecycle rules: progress, period
// rollover, streaks, hierarchy aggregation and dependency resolution.
//
// Every function is pure over a Collection. Mutating operations return a new
// Collection and never modify the one they were given, so callers can diff
// before and after to decide what to persist.
package engine

import (
	"sort"

	"github.com/hyperengineering/cadence/internal/types"
)

// Collection is an indexed, copy-on-write set of goals.
// The zero value is an empty collection.
type Collection struct {
	byID  map[int64]types.Goal
	order []int64
}

// NewCollection indexes goals by ID. A repeated ID keeps its first position
// and the last record.
func NewCollection(goals []types.Goal) Collection {
	c := Collection{
		byID:  make(map[int64]types.Goal, len(goals)),
		order: make([]int64, 0, len(goals)),
	}
	for _, g := range goals {
		c.set(g.Clone())
	}
	return c
}

// Len returns the number of goals.
func (c Collection) Len() int {
	return len(c.order)
}

// Has reports whether a goal with id exists.
func (c Collection) Has(id int64) bool {
	_, ok := c.byID[id]
	return ok
}

// Get returns a copy of the goal with id.
func (c Collection) Get(id int64) (types.Goal, bool) {
	g, ok := c.byID[id]
	if !ok {
		return types.Goal{}, false
	}
	return g.Clone(), true
}

// IDs returns goal IDs in insertion order.
func (c Collection) IDs() []int64 {
	return append([]int64(nil), c.order...)
}

// Goals returns copies of all goals in insertion order.
func (c Collection) Goals() []types.Goal {
	out := make([]types.Goal, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, c.byID[id].Clone())
	}
	return out
}

// Sorted returns goals ordered for display: explicit sortOrder first
// (ascending), then the rest by ID.
func (c Collection) Sorted() []types.Goal {
	out := c.Goals()
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i].SortOrder, out[j].SortOrder
		switch {
		case a != nil && b != nil && *a != *b:
			return *a < *b
		case a != nil && b == nil:
			return true
		case a == nil && b != nil:
			return false
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// With returns a new collection with goals added or replaced.
func (c Collection) With(goals ...types.Goal) Collection {
	next := c.clone()
	for _, g := range goals {
		next.set(g.Clone())
	}
	return next
}

// Without returns a new collection with the given IDs removed.
func (c Collection) Without(ids ...int64) Collection {
	drop := make(map[int64]bool, len(ids))
	for _, id := range ids {
		drop[id] = true
	}
	next := Collection{
		byID:  make(map[int64]types.Goal, len(c.byID)),
		order: make([]int64, 0, len(c.order)),
	}
	for _, id := range c.order {
		if drop[id] {
			continue
		}
		next.byID[id] = c.byID[id]
		next.order = append(next.order, id)
	}
	return next
}

// clone copies the index. Goals are shared until replaced through set.
func (c Collection) clone() Collection {
	next := Collection{
		byID:  make(map[int64]types.Goal, len(c.byID)),
		order: append(make([]int64, 0, len(c.order)), c.order...),
	}
	for id, g := range c.byID {
		next.byID[id] = g
	}
	return next
}

// set adds or replaces a goal in place. Only valid on a collection the
// caller owns (fresh from clone or NewCollection).
func (c *Collection) set(g types.Goal) {
	if c.byID == nil {
		c.byID = make(map[int64]types.Goal)
	}
	if _, exists := c.byID[g.ID]; !exists {
		c.order = append(c.order, g.ID)
	}
	c.byID[g.ID] = g
}
