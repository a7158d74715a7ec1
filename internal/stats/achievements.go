package stats

// Type is the statistic an achievement is measured against.
type Type string

const (
	TypeCompletions       Type = "completions"
	TypeDayStreak         Type = "day_streak"
	TypeLifetimePoints    Type = "lifetime_points"
	TypePerfectWeek       Type = "perfect_week"
	TypeRewardsRedeemed   Type = "rewards_redeemed"
	TypeGoalStreak        Type = "goal_streak"
	TypeUltimateCompleted Type = "ultimate_completed"
)

// Definition is one row of the fixed achievement table.
type Definition struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Type        Type   `json:"type"`
	Threshold   int64  `json:"threshold"`
}

// Achievement is a definition evaluated against a Summary.
type Achievement struct {
	Definition
	Value    int64 `json:"value"`
	Unlocked bool  `json:"unlocked"`
}

// Definitions is the achievement table, in display order.
var Definitions = []Definition{
	{ID: "first-step", Name: "First Step", Description: "Complete a goal", Type: TypeCompletions, Threshold: 1},
	{ID: "getting-going", Name: "Getting Going", Description: "Complete 10 goals", Type: TypeCompletions, Threshold: 10},
	{ID: "centurion", Name: "Centurion", Description: "Complete 100 goals", Type: TypeCompletions, Threshold: 100},
	{ID: "three-day-streak", Name: "Warming Up", Description: "Complete something 3 days in a row", Type: TypeDayStreak, Threshold: 3},
	{ID: "month-streak", Name: "Unstoppable", Description: "Complete something 30 days in a row", Type: TypeDayStreak, Threshold: 30},
	{ID: "perfect-week", Name: "Perfect Week", Description: "Complete something every day for a week", Type: TypePerfectWeek, Threshold: 1},
	{ID: "points-100", Name: "Collector", Description: "Earn 100 points", Type: TypeLifetimePoints, Threshold: 100},
	{ID: "points-1000", Name: "Hoarder", Description: "Earn 1000 points", Type: TypeLifetimePoints, Threshold: 1000},
	{ID: "treat-yourself", Name: "Treat Yourself", Description: "Redeem a reward", Type: TypeRewardsRedeemed, Threshold: 1},
	{ID: "habit-former", Name: "Habit Former", Description: "Reach a streak of 7 on a recurring goal", Type: TypeGoalStreak, Threshold: 7},
	{ID: "summit", Name: "Summit", Description: "Complete an ultimate goal", Type: TypeUltimateCompleted, Threshold: 1},
}

// Evaluate checks every definition against s. Unlock state is not stored,
// so evaluating twice gives the same answer.
func Evaluate(s Summary) []Achievement {
	out := make([]Achievement, 0, len(Definitions))
	for _, def := range Definitions {
		v := value(def.Type, s)
		out = append(out, Achievement{
			Definition: def,
			Value:      v,
			Unlocked:   def.Threshold > 0 && v >= def.Threshold,
		})
	}
	return out
}

// Unlocked filters Evaluate down to unlocked achievements.
func Unlocked(s Summary) []Achievement {
	var out []Achievement
	for _, a := range Evaluate(s) {
		if a.Unlocked {
			out = append(out, a)
		}
	}
	return out
}

func value(t Type, s Summary) int64 {
	switch t {
	case TypeCompletions:
		return int64(s.TotalCompletions)
	case TypeDayStreak:
		return int64(max(s.CurrentDayStreak, s.LongestDayStreak))
	case TypeLifetimePoints:
		return s.LifetimePoints
	case TypePerfectWeek:
		if s.PerfectWeek {
			return 1
		}
		return 0
	case TypeRewardsRedeemed:
		return int64(s.RewardsRedeemed)
	case TypeGoalStreak:
		return int64(s.BestGoalStreak)
	case TypeUltimateCompleted:
		return int64(s.UltimateCompleted)
	}
	return 0
}
