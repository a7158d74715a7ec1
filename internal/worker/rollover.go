package worker

import (
	"context"
	"log/slog"
	"time"

	"github.com/hyperengineering/cadence/internal/types"
)

// Refresher runs a rollover pass over the goal collection.
type Refresher interface {
	Refresh(ctx context.Context) (types.RefreshResult, error)
}

// RolloverWorker periodically resets recurring goals whose period has
// ended and recomputes streaks.
type RolloverWorker struct {
	tracker  Refresher
	interval time.Duration
}

// NewRolloverWorker creates a worker that refreshes tracker every interval.
func NewRolloverWorker(tracker Refresher, interval time.Duration) *RolloverWorker {
	return &RolloverWorker{
		tracker:  tracker,
		interval: interval,
	}
}

// Run starts the worker loop. Blocks until ctx is cancelled.
// Does not run immediately on start: loading the tracker already rolled over.
func (w *RolloverWorker) Run(ctx context.Context) {
	slog.Info("worker started",
		"component", "worker",
		"worker", "rollover",
		"interval", w.interval.String(),
	)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("worker stopped",
				"component", "worker",
				"worker", "rollover",
				"reason", "context_cancelled",
			)
			return
		case <-ticker.C:
			w.runRollover(ctx)
		}
	}
}

// runRollover executes a single rollover cycle.
func (w *RolloverWorker) runRollover(ctx context.Context) {
	start := time.Now()

	res, err := w.tracker.Refresh(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		slog.Error("rollover failed",
			"component", "worker",
			"action", "rollover_failed",
			"error", err,
		)
		return
	}

	if len(res.Reset) == 0 && len(res.Initialized) == 0 {
		return
	}
	slog.Info("rollover cycle completed",
		"component", "worker",
		"action", "rollover_complete",
		"reset", len(res.Reset),
		"initialized", len(res.Initialized),
		"duration_ms", time.Since(start).Milliseconds(),
	)
}
