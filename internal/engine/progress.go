package engine

import (
	"math"

	"github.com/hyperengineering/cadence/internal/types"
)

// Progress returns the completion percentage in [0,100].
//
// Increasing goals measure how far current has moved from initial towards
// target; decreasing goals measure the same distance downwards. When target
// equals initial there is no distance to cover, so the goal is either
// reached (100) or not (0).
func Progress(current, target float64, direction types.Direction, initial float64) float64 {
	if math.IsNaN(current) || math.IsNaN(target) || math.IsNaN(initial) {
		return 0
	}

	if target == initial {
		if Reached(current, target, direction) {
			return 100
		}
		return 0
	}

	var pct float64
	if direction == types.DirectionDecrease {
		pct = (initial - current) / (initial - target) * 100
	} else {
		pct = (current - initial) / (target - initial) * 100
	}
	return clampPercent(pct)
}

// Reached reports whether current has met target in the given direction.
func Reached(current, target float64, direction types.Direction) bool {
	if direction == types.DirectionDecrease {
		return current <= target
	}
	return current >= target
}

func clampPercent(v float64) float64 {
	switch {
	case math.IsNaN(v):
		return 0
	case v < 0:
		return 0
	case v > 100:
		return 100
	}
	return v
}

// RecomputeProgress refreshes g.Progress from its measurement fields.
// Ultimate goals derive progress from subgoals and are returned unchanged.
func RecomputeProgress(g types.Goal) types.Goal {
	if g.IsUltimate {
		return g
	}
	g.Progress = Progress(g.Current, g.Target, g.Direction, g.InitialValue)
	return g
}
