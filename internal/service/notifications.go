package service

import (
	"context"
	"log/slog"

	"github.com/hyperengineering/cadence/internal/notify"
	"github.com/hyperengineering/cadence/internal/types"
)

// wantsReminders reports whether g should currently have reminders.
func wantsReminders(g types.Goal) bool {
	if g.Notification == nil || !g.Notification.Enabled {
		return false
	}
	if g.IsPaused || g.IsArchived {
		return false
	}
	return g.IsRecurring || !g.IsComplete
}

// schedule replaces g's reminders to match its current settings. Scheduler
// failures are logged; the goal keeps no handles in that case.
func (t *Tracker) schedule(ctx context.Context, g types.Goal) types.Goal {
	g = t.unschedule(ctx, g)
	if t.scheduler == nil || !wantsReminders(g) {
		return g
	}
	handles, err := t.scheduler.Schedule(ctx, notify.Reminder{
		GoalID:   g.ID,
		Title:    g.Title,
		Settings: *g.Notification,
	})
	if err != nil {
		slog.Warn("reminder scheduling failed",
			"component", "service",
			"goal_id", g.ID,
			"error", err,
		)
		return g
	}
	g.NotificationIDs = handles
	return g
}

// unschedule cancels and clears g's reminder handles.
func (t *Tracker) unschedule(ctx context.Context, g types.Goal) types.Goal {
	if len(g.NotificationIDs) == 0 {
		return g
	}
	if t.scheduler != nil {
		if err := t.scheduler.Cancel(ctx, g.NotificationIDs); err != nil {
			slog.Warn("reminder cancel failed",
				"component", "service",
				"goal_id", g.ID,
				"error", err,
			)
		}
	}
	g.NotificationIDs = nil
	return g
}
