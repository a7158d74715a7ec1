// Package stats aggregates the goal collection into display statistics and
// evaluates achievements. Nothing here fails: missing or malformed input
// degrades to zero values.
package stats

import (
	"math"
	"time"

	"github.com/hyperengineering/cadence/internal/types"
)

// perfectWeekDays is the window checked by the perfect week flag.
const perfectWeekDays = 7

// Summary is the statistics snapshot shown on the dashboard.
type Summary struct {
	// Root goal counts exclude paused and archived goals.
	TotalGoals     int     `json:"totalGoals"`
	CompletedGoals int     `json:"completedGoals"`
	CompletionRate float64 `json:"completionRate"`

	PausedGoals   int `json:"pausedGoals"`
	ArchivedGoals int `json:"archivedGoals"`

	TotalCompletions  int  `json:"totalCompletions"`
	UltimateCompleted int  `json:"ultimateCompleted"`
	BestGoalStreak    int  `json:"bestGoalStreak"`
	CurrentDayStreak  int  `json:"currentDayStreak"`
	LongestDayStreak  int  `json:"longestDayStreak"`
	PerfectWeek       bool `json:"perfectWeek"`

	LifetimePoints  int64 `json:"lifetimePoints"`
	AvailablePoints int64 `json:"availablePoints"`
	RewardsTotal    int   `json:"rewardsTotal"`
	RewardsRedeemed int   `json:"rewardsRedeemed"`

	AsOf time.Time `json:"asOf"`
}

// Compute builds a Summary. Calendar days are taken in now's location.
func Compute(goals []types.Goal, rewards []types.Reward, ledger types.LedgerState, now time.Time) Summary {
	s := Summary{AsOf: now}

	var instants []time.Time
	for _, g := range goals {
		if g.IsArchived {
			s.ArchivedGoals++
		} else if g.IsPaused {
			s.PausedGoals++
		}
		if !g.HasParent() && !g.IsPaused && !g.IsArchived {
			s.TotalGoals++
			if g.IsComplete {
				s.CompletedGoals++
			}
		}
		if g.IsUltimate && g.IsComplete {
			s.UltimateCompleted++
		}
		if g.LongestStreak > s.BestGoalStreak {
			s.BestGoalStreak = g.LongestStreak
		}
		instants = append(instants, completionInstants(g)...)
	}
	s.TotalCompletions = len(instants)

	if s.TotalGoals > 0 {
		s.CompletionRate = float64(s.CompletedGoals) / float64(s.TotalGoals) * 100
	}
	if math.IsNaN(s.CompletionRate) {
		s.CompletionRate = 0
	}

	days := activeDays(instants, now.Location())
	s.CurrentDayStreak, s.LongestDayStreak = dayStreaks(days, now)
	s.PerfectWeek = perfectWeek(days, now)

	s.LifetimePoints = max(ledger.LifetimePointsEarned, 0)
	s.AvailablePoints = ledger.Available()
	s.RewardsTotal = len(rewards)
	for _, r := range rewards {
		if r.IsRedeemed {
			s.RewardsRedeemed++
		}
	}
	return s
}

// completionInstants returns the goal's closed completions plus the open
// one, if any. Zero timestamps are skipped.
func completionInstants(g types.Goal) []time.Time {
	out := make([]time.Time, 0, len(g.CompletionHistory)+1)
	for _, t := range g.CompletionHistory {
		if !t.IsZero() {
			out = append(out, t)
		}
	}
	if g.IsComplete && g.CompletedAt != nil && !g.CompletedAt.IsZero() {
		out = append(out, *g.CompletedAt)
	}
	return out
}

type day struct {
	y int
	m time.Month
	d int
}

func dayOf(t time.Time) day {
	y, m, d := t.Date()
	return day{y, m, d}
}

func (d day) prev() day {
	return dayOf(time.Date(d.y, d.m, d.d, 12, 0, 0, 0, time.UTC).AddDate(0, 0, -1))
}

func (d day) next() day {
	return dayOf(time.Date(d.y, d.m, d.d, 12, 0, 0, 0, time.UTC).AddDate(0, 0, 1))
}

func activeDays(instants []time.Time, loc *time.Location) map[day]bool {
	out := make(map[day]bool, len(instants))
	for _, t := range instants {
		out[dayOf(t.In(loc))] = true
	}
	return out
}

// dayStreaks returns the current and longest runs of consecutive active
// days. Today not being active yet does not break the current run.
func dayStreaks(days map[day]bool, now time.Time) (current, longest int) {
	for d := range days {
		if days[d.prev()] {
			continue
		}
		run := 0
		for cur := d; days[cur]; cur = cur.next() {
			run++
		}
		longest = max(longest, run)
	}

	cur := dayOf(now)
	if !days[cur] {
		cur = cur.prev()
	}
	for days[cur] {
		current++
		cur = cur.prev()
	}
	return current, longest
}

func perfectWeek(days map[day]bool, now time.Time) bool {
	cur := dayOf(now)
	for i := 0; i < perfectWeekDays; i++ {
		if !days[cur] {
			return false
		}
		cur = cur.prev()
	}
	return true
}
