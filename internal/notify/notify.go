// Package notify schedules goal reminders. The tracker only hands over a
// goal's notification settings and stores the handles it gets back so the
// reminders can be cancelled later.
package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/hyperengineering/cadence/internal/types"
)

var ErrInvalidSettings = errors.New("invalid notification settings")

// Reminder is what a scheduler needs to know about a goal.
type Reminder struct {
	GoalID   int64
	Title    string
	Settings types.NotificationSettings
}

// Scheduler schedules and cancels reminders.
type Scheduler interface {
	// Schedule returns one opaque handle per scheduled reminder. Disabled
	// settings schedule nothing.
	Schedule(ctx context.Context, r Reminder) ([]string, error)
	// Cancel forgets the given handles. Unknown handles are ignored.
	Cancel(ctx context.Context, handles []string) error
}

// ParseTimeOfDay parses an "HH:MM" string.
func ParseTimeOfDay(s string) (hour, minute int, err error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return 0, 0, fmt.Errorf("%w: time of day %q", ErrInvalidSettings, s)
	}
	return t.Hour(), t.Minute(), nil
}

// Weekdays returns the days a reminder fires on. No days means every day.
func Weekdays(settings types.NotificationSettings) ([]time.Weekday, error) {
	if len(settings.Days) == 0 {
		return []time.Weekday{
			time.Sunday, time.Monday, time.Tuesday, time.Wednesday,
			time.Thursday, time.Friday, time.Saturday,
		}, nil
	}
	seen := make(map[int]bool, len(settings.Days))
	out := make([]time.Weekday, 0, len(settings.Days))
	for _, d := range settings.Days {
		if d < 0 || d > 6 {
			return nil, fmt.Errorf("%w: day %d", ErrInvalidSettings, d)
		}
		if seen[d] {
			continue
		}
		seen[d] = true
		out = append(out, time.Weekday(d))
	}
	return out, nil
}

type entry struct {
	reminder Reminder
	weekday  time.Weekday
	hour     int
	minute   int
}

// LogScheduler records reminders in memory and logs them. It stands in for
// a device push service, which a server has no access to.
type LogScheduler struct {
	mu      sync.Mutex
	entries map[string]entry
}

func NewLogScheduler() *LogScheduler {
	return &LogScheduler{entries: make(map[string]entry)}
}

func (s *LogScheduler) Schedule(_ context.Context, r Reminder) ([]string, error) {
	if !r.Settings.Enabled {
		return nil, nil
	}
	hour, minute, err := ParseTimeOfDay(r.Settings.TimeOfDay)
	if err != nil {
		return nil, err
	}
	days, err := Weekdays(r.Settings)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	handles := make([]string, 0, len(days))
	for _, d := range days {
		h := uuid.NewString()
		s.entries[h] = entry{reminder: r, weekday: d, hour: hour, minute: minute}
		handles = append(handles, h)
	}

	slog.Info("reminders scheduled",
		"component", "notify",
		"goal_id", r.GoalID,
		"time_of_day", r.Settings.TimeOfDay,
		"count", len(handles),
	)
	return handles, nil
}

func (s *LogScheduler) Cancel(_ context.Context, handles []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cancelled := 0
	for _, h := range handles {
		if _, ok := s.entries[h]; ok {
			delete(s.entries, h)
			cancelled++
		}
	}
	if cancelled > 0 {
		slog.Info("reminders cancelled",
			"component", "notify",
			"count", cancelled,
		)
	}
	return nil
}

// Pending returns the number of scheduled reminders.
func (s *LogScheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Next returns the next instant after now at which a reminder for goalID
// fires, or false when none is scheduled.
func (s *LogScheduler) Next(goalID int64, now time.Time) (time.Time, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var best time.Time
	found := false
	for _, e := range s.entries {
		if e.reminder.GoalID != goalID {
			continue
		}
		at := nextOccurrence(e.weekday, e.hour, e.minute, now)
		if !found || at.Before(best) {
			best, found = at, true
		}
	}
	return best, found
}

func nextOccurrence(day time.Weekday, hour, minute int, now time.Time) time.Time {
	y, m, d := now.Date()
	at := time.Date(y, m, d, hour, minute, 0, 0, now.Location())
	offset := (int(day) - int(now.Weekday()) + 7) % 7
	at = at.AddDate(0, 0, offset)
	if !at.After(now) {
		at = at.AddDate(0, 0, 7)
	}
	return at
}
