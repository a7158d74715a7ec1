package engine

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/hyperengineering/cadence/internal/types"
)

func TestProgress(t *testing.T) {
	inc, dec := types.DirectionIncrease, types.DirectionDecrease

	tests := []struct {
		name                     string
		current, target, initial float64
		direction                types.Direction
		want                     float64
	}{
		{"increase halfway", 50, 100, 0, inc, 50},
		{"increase from nonzero baseline", 15, 20, 10, inc, 50},
		{"increase overshoot clamps to 100", 150, 100, 0, inc, 100},
		{"increase below baseline clamps to 0", -5, 100, 0, inc, 0},
		{"decrease halfway", 75, 50, 100, dec, 50},
		{"decrease reached", 50, 50, 100, dec, 100},
		{"decrease overshoot clamps", 40, 50, 100, dec, 100},
		{"decrease moving wrong way clamps to 0", 110, 50, 100, dec, 0},
		{"degenerate increase reached", 10, 10, 10, inc, 100},
		{"degenerate increase exceeded", 12, 10, 10, inc, 100},
		{"degenerate increase not reached", 9, 10, 10, inc, 0},
		{"degenerate decrease reached", 8, 10, 10, dec, 100},
		{"degenerate decrease not reached", 11, 10, 10, dec, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Progress(tt.current, tt.target, tt.direction, tt.initial)
			assert.InDelta(t, tt.want, got, 1e-9)
		})
	}
}

func TestProgress_AlwaysWithinBounds(t *testing.T) {
	values := []float64{-1e9, -100, -1, 0, 0.5, 1, 50, 99.999, 100, 150, 1e9, math.Inf(1), math.Inf(-1), math.NaN()}
	for _, dir := range []types.Direction{types.DirectionIncrease, types.DirectionDecrease} {
		for _, current := range values {
			for _, target := range values {
				for _, initial := range values {
					p := Progress(current, target, dir, initial)
					if p < 0 || p > 100 || math.IsNaN(p) {
						t.Fatalf("Progress(%v, %v, %s, %v) = %v, out of [0,100]", current, target, dir, initial, p)
					}
				}
			}
		}
	}
}

func TestRecomputeProgress_SkipsUltimate(t *testing.T) {
	g := types.Goal{IsUltimate: true, Progress: 40, Current: 100, Target: 100, Direction: types.DirectionIncrease}
	assert.Equal(t, 40.0, RecomputeProgress(g).Progress)

	g.IsUltimate = false
	assert.Equal(t, 100.0, RecomputeProgress(g).Progress)
}
