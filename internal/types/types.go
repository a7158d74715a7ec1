package types

import (
	"slices"
	"time"
)

// Direction describes which way a goal's measured value must move.
type Direction string

const (
	DirectionIncrease Direction = "increase"
	DirectionDecrease Direction = "decrease"
)

// Valid reports whether d is a known direction.
func (d Direction) Valid() bool {
	return d == DirectionIncrease || d == DirectionDecrease
}

// Period is the time window over which a goal accumulates progress.
type Period string

const (
	PeriodDaily   Period = "daily"
	PeriodWeekly  Period = "weekly"
	PeriodMonthly Period = "monthly"
	PeriodYearly  Period = "yearly"
	PeriodCustom  Period = "custom"
	PeriodOngoing Period = "ongoing"
)

// Periods lists every valid period in display order.
var Periods = []Period{PeriodDaily, PeriodWeekly, PeriodMonthly, PeriodYearly, PeriodCustom, PeriodOngoing}

// Valid reports whether p is a known period.
func (p Period) Valid() bool {
	return slices.Contains(Periods, p)
}

// NotificationSettings configures goal reminders.
type NotificationSettings struct {
	Enabled   bool   `json:"enabled"`
	TimeOfDay string `json:"timeOfDay"` // "HH:MM", local time
	Days      []int  `json:"days"`      // 0 = Sunday
}

// Goal is the central tracked entity. Field names in JSON are the
// import/export record format and must round-trip unchanged.
type Goal struct {
	// Identity
	ID          int64  `json:"id"`
	ParentID    *int64 `json:"parentId,omitempty"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Category    string `json:"category,omitempty"`

	// Measurement
	Target       float64   `json:"target"`
	Current      float64   `json:"current"`
	InitialValue float64   `json:"initialValue"`
	Unit         string    `json:"unit"`
	Direction    Direction `json:"direction"`

	// Progress is derived. Callers recompute it after changing any
	// measurement field.
	Progress float64 `json:"progress"`

	// Temporal
	Period           Period     `json:"period"`
	CustomPeriodDays *int       `json:"customPeriodDays,omitempty"`
	PeriodStartDate  *time.Time `json:"periodStartDate,omitempty"`

	// Recurrence
	IsRecurring       bool        `json:"isRecurring"`
	CompletionHistory []time.Time `json:"completionHistory"`
	CurrentStreak     int         `json:"currentStreak"`
	LongestStreak     int         `json:"longestStreak"`

	// Completion
	IsComplete  bool       `json:"isComplete"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`

	// Hierarchy
	SubGoals            []int64 `json:"subGoals"`
	IsUltimate          bool    `json:"isUltimate"`
	SubgoalsAwardPoints bool    `json:"subgoalsAwardPoints"`

	// Dependency (weak references, resolved by ID lookup)
	DependsOn []int64 `json:"dependsOn"`

	// Economy
	Points        int64 `json:"points"`
	PointsAwarded bool  `json:"pointsAwarded"`

	// Lifecycle
	IsPaused   bool      `json:"isPaused"`
	IsArchived bool      `json:"isArchived"`
	SortOrder  *int      `json:"sortOrder,omitempty"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`

	// Reminders
	Notification    *NotificationSettings `json:"notification,omitempty"`
	NotificationIDs []string              `json:"notificationIds,omitempty"`
}

// HasParent reports whether the goal claims a hierarchy parent.
func (g Goal) HasParent() bool {
	return g.ParentID != nil
}

// Clone returns a deep copy so that callers can mutate the result without
// affecting a collection that shares the original.
func (g Goal) Clone() Goal {
	c := g
	c.ParentID = clonePtr(g.ParentID)
	c.CustomPeriodDays = clonePtr(g.CustomPeriodDays)
	c.PeriodStartDate = clonePtr(g.PeriodStartDate)
	c.CompletedAt = clonePtr(g.CompletedAt)
	c.SortOrder = clonePtr(g.SortOrder)
	c.CompletionHistory = slices.Clone(g.CompletionHistory)
	c.SubGoals = slices.Clone(g.SubGoals)
	c.DependsOn = slices.Clone(g.DependsOn)
	c.NotificationIDs = slices.Clone(g.NotificationIDs)
	if g.Notification != nil {
		n := *g.Notification
		n.Days = slices.Clone(g.Notification.Days)
		c.Notification = &n
	}
	return c
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

// Reward is a user-defined prize bought with points, or redeemed
// automatically when its linked goal completes.
type Reward struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	Cost        int64      `json:"cost"`
	GoalID      *int64     `json:"goalId,omitempty"`
	IsRedeemed  bool       `json:"isRedeemed"`
	RedeemedAt  *time.Time `json:"redeemedAt,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
}

// LedgerState is the persisted points ledger.
type LedgerState struct {
	LifetimePointsEarned int64     `json:"lifetimePointsEarned"`
	PointsSpent          int64     `json:"pointsSpent"`
	UpdatedAt            time.Time `json:"updatedAt"`
}

// Available returns the spendable balance.
func (s LedgerState) Available() int64 {
	if s.PointsSpent >= s.LifetimePointsEarned {
		return 0
	}
	return s.LifetimePointsEarned - s.PointsSpent
}

// Award records a payout owed for a completion event.
type Award struct {
	GoalID int64 `json:"goalId"`
	Points int64 `json:"points"`
}

// --- API request/response types ---

// NewGoal is the input for creating a goal (without generated fields).
type NewGoal struct {
	Title               string                `json:"title"`
	Description         string                `json:"description,omitempty"`
	Category            string                `json:"category,omitempty"`
	ParentID            *int64                `json:"parentId,omitempty"`
	Target              float64               `json:"target"`
	Current             float64               `json:"current"`
	Unit                string                `json:"unit"`
	Direction           Direction             `json:"direction"`
	Period              Period                `json:"period"`
	CustomPeriodDays    *int                  `json:"customPeriodDays,omitempty"`
	IsRecurring         bool                  `json:"isRecurring"`
	IsUltimate          bool                  `json:"isUltimate"`
	SubgoalsAwardPoints bool                  `json:"subgoalsAwardPoints"`
	DependsOn           []int64               `json:"dependsOn,omitempty"`
	Points              int64                 `json:"points"`
	SortOrder           *int                  `json:"sortOrder,omitempty"`
	Notification        *NotificationSettings `json:"notification,omitempty"`
}

// GoalPatch carries the editable fields of a goal. Nil fields are left
// unchanged.
type GoalPatch struct {
	Title               *string               `json:"title,omitempty"`
	Description         *string               `json:"description,omitempty"`
	Category            *string               `json:"category,omitempty"`
	Target              *float64              `json:"target,omitempty"`
	Current             *float64              `json:"current,omitempty"`
	InitialValue        *float64              `json:"initialValue,omitempty"`
	Unit                *string               `json:"unit,omitempty"`
	Direction           *Direction            `json:"direction,omitempty"`
	Period              *Period               `json:"period,omitempty"`
	CustomPeriodDays    *int                  `json:"customPeriodDays,omitempty"`
	IsRecurring         *bool                 `json:"isRecurring,omitempty"`
	SubgoalsAwardPoints *bool                 `json:"subgoalsAwardPoints,omitempty"`
	Points              *int64                `json:"points,omitempty"`
	SortOrder           *int                  `json:"sortOrder,omitempty"`
	Notification        *NotificationSettings `json:"notification,omitempty"`
}

// ProgressRequest sets or increments a goal's current value.
// Exactly one of Current and Delta must be set.
type ProgressRequest struct {
	Current *float64 `json:"current,omitempty"`
	Delta   *float64 `json:"delta,omitempty"`
}

// NewReward is the input for creating a reward.
type NewReward struct {
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Cost        int64  `json:"cost"`
	GoalID      *int64 `json:"goalId,omitempty"`
}

// GoalStatus is a goal together with its dependency resolution.
type GoalStatus struct {
	Goal      Goal    `json:"goal"`
	Blocked   bool    `json:"blocked"`
	BlockedBy []int64 `json:"blockedBy"`
	Cycle     []int64 `json:"cycle,omitempty"`
}

// PointsResponse reports the ledger.
type PointsResponse struct {
	LifetimePointsEarned int64 `json:"lifetimePointsEarned"`
	PointsSpent          int64 `json:"pointsSpent"`
	Available            int64 `json:"available"`
}

// RefreshResult reports what a rollover pass changed.
type RefreshResult struct {
	Reset       []int64   `json:"reset"`
	Initialized []int64   `json:"initialized"`
	AsOf        time.Time `json:"asOf"`
}

// HealthResponse represents the health check response.
type HealthResponse struct {
	Status    string `json:"status"`
	Version   string `json:"version"`
	Backend   string `json:"backend"`
	GoalCount int    `json:"goal_count"`
}
