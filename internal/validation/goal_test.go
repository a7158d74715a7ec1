package validation

import (
	"math"
	"strings"
	"testing"

	"github.com/hyperengineering/cadence/internal/types"
)

func hasField(errs []ValidationError, field string) bool {
	for _, e := range errs {
		if e.Field == field {
			return true
		}
	}
	return false
}

func validNewGoal() types.NewGoal {
	return types.NewGoal{
		Title:     "Read 20 pages",
		Target:    20,
		Unit:      "pages",
		Direction: types.DirectionIncrease,
		Period:    types.PeriodDaily,
		Points:    5,
	}
}

func intPtr(v int) *int { return &v }

func TestValidateNewGoal_Valid(t *testing.T) {
	if errs := ValidateNewGoal(validNewGoal()); len(errs) != 0 {
		t.Errorf("ValidateNewGoal(valid) = %v, want no errors", errs)
	}
}

func TestValidateNewGoal_DefaultsAllowed(t *testing.T) {
	g := types.NewGoal{Title: "Anything"}
	if errs := ValidateNewGoal(g); len(errs) != 0 {
		t.Errorf("empty direction and period should be accepted, got %v", errs)
	}
}

func TestValidateNewGoal_Fields(t *testing.T) {
	parent := int64(1)
	tests := []struct {
		name   string
		mutate func(*types.NewGoal)
		field  string
	}{
		{"title required", func(g *types.NewGoal) { g.Title = "  " }, "title"},
		{"title too long", func(g *types.NewGoal) { g.Title = strings.Repeat("x", MaxTitleLength+1) }, "title"},
		{"title null byte", func(g *types.NewGoal) { g.Title = "a\x00b" }, "title"},
		{"unit too long", func(g *types.NewGoal) { g.Unit = strings.Repeat("u", MaxUnitLength+1) }, "unit"},
		{"bad direction", func(g *types.NewGoal) { g.Direction = "up" }, "direction"},
		{"bad period", func(g *types.NewGoal) { g.Period = "hourly" }, "period"},
		{"custom needs days", func(g *types.NewGoal) { g.Period = types.PeriodCustom }, "customPeriodDays"},
		{"custom days positive", func(g *types.NewGoal) {
			g.Period = types.PeriodCustom
			g.CustomPeriodDays = intPtr(0)
		}, "customPeriodDays"},
		{"target finite", func(g *types.NewGoal) { g.Target = math.NaN() }, "target"},
		{"current finite", func(g *types.NewGoal) { g.Current = math.Inf(1) }, "current"},
		{"points non-negative", func(g *types.NewGoal) { g.Points = -1 }, "points"},
		{"ultimate with parent", func(g *types.NewGoal) {
			g.IsUltimate = true
			g.ParentID = &parent
		}, "parentId"},
		{"duplicate dependencies", func(g *types.NewGoal) { g.DependsOn = []int64{3, 3} }, "dependsOn"},
		{"notification time", func(g *types.NewGoal) {
			g.Notification = &types.NotificationSettings{Enabled: true, TimeOfDay: "7am"}
		}, "notification.timeOfDay"},
		{"notification day", func(g *types.NewGoal) {
			g.Notification = &types.NotificationSettings{Enabled: true, TimeOfDay: "07:00", Days: []int{9}}
		}, "notification.days[0]"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := validNewGoal()
			tt.mutate(&g)
			errs := ValidateNewGoal(g)
			if !hasField(errs, tt.field) {
				t.Errorf("expected error on %s, got %v", tt.field, errs)
			}
		})
	}
}

func TestValidateNotification_DisabledSkipsChecks(t *testing.T) {
	n := &types.NotificationSettings{Enabled: false, TimeOfDay: "garbage"}
	if errs := ValidateNotification("notification", n); len(errs) != 0 {
		t.Errorf("disabled notification should not be validated, got %v", errs)
	}
}

func TestValidateGoalPatch(t *testing.T) {
	empty := ""
	nan := math.NaN()
	bad := types.Period("fortnightly")
	negative := int64(-4)

	errs := ValidateGoalPatch(types.GoalPatch{Title: &empty, InitialValue: &nan, Period: &bad, Points: &negative})
	for _, field := range []string{"title", "initialValue", "period", "points"} {
		if !hasField(errs, field) {
			t.Errorf("expected error on %s, got %v", field, errs)
		}
	}

	if errs := ValidateGoalPatch(types.GoalPatch{}); len(errs) != 0 {
		t.Errorf("empty patch should be valid, got %v", errs)
	}
}

func TestValidateProgressRequest(t *testing.T) {
	one := 1.0
	inf := math.Inf(1)

	tests := []struct {
		name  string
		req   types.ProgressRequest
		field string
	}{
		{"neither", types.ProgressRequest{}, "current"},
		{"both", types.ProgressRequest{Current: &one, Delta: &one}, "delta"},
		{"current infinite", types.ProgressRequest{Current: &inf}, "current"},
		{"delta infinite", types.ProgressRequest{Delta: &inf}, "delta"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if !hasField(ValidateProgressRequest(tt.req), tt.field) {
				t.Errorf("expected error on %s", tt.field)
			}
		})
	}

	if errs := ValidateProgressRequest(types.ProgressRequest{Delta: &one}); len(errs) != 0 {
		t.Errorf("delta only should be valid, got %v", errs)
	}
}

func TestValidateNewReward(t *testing.T) {
	if errs := ValidateNewReward(types.NewReward{Title: "Coffee", Cost: 10}); len(errs) != 0 {
		t.Errorf("valid reward rejected: %v", errs)
	}
	errs := ValidateNewReward(types.NewReward{Title: "", Cost: -1})
	if !hasField(errs, "title") || !hasField(errs, "cost") {
		t.Errorf("expected title and cost errors, got %v", errs)
	}
}
