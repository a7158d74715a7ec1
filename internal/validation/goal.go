package validation

import (
	"fmt"
	"slices"
	"time"

	"github.com/hyperengineering/cadence/internal/types"
)

// validateText runs the shared string checks for a free-text field.
func validateText(c *Collector, field, value string, max int) {
	c.Add(ValidateUTF8(field, value))
	c.Add(ValidateNoNullBytes(field, value))
	c.Add(ValidateMaxLength(field, value, max))
}

func periodNames() []string {
	out := make([]string, len(types.Periods))
	for i, p := range types.Periods {
		out[i] = string(p)
	}
	return out
}

var directionNames = []string{string(types.DirectionIncrease), string(types.DirectionDecrease)}

// validatePeriod checks that custom periods carry a positive day count.
func validatePeriod(c *Collector, period types.Period, customDays *int) {
	if period != "" {
		c.Add(ValidateEnum("period", string(period), periodNames()))
	}
	if period == types.PeriodCustom {
		if customDays == nil {
			c.Add(&ValidationError{Field: "customPeriodDays", Message: "is required for custom periods"})
			return
		}
	}
	if customDays != nil {
		c.Add(ValidateRange("customPeriodDays", float64(*customDays), 1, MaxCustomPeriodDays))
	}
}

// ValidateNotification checks reminder settings. Disabled settings are not
// inspected further.
func ValidateNotification(field string, n *types.NotificationSettings) []ValidationError {
	var c Collector
	if n == nil || !n.Enabled {
		return nil
	}
	if _, err := time.Parse("15:04", n.TimeOfDay); err != nil {
		c.Add(&ValidationError{Field: field + ".timeOfDay", Message: "must be HH:MM"})
	}
	for i, d := range n.Days {
		c.Add(ValidateRange(fmt.Sprintf("%s.days[%d]", field, i), float64(d), 0, 6))
	}
	return c.Errors()
}

// ValidateNewGoal checks a goal creation request.
func ValidateNewGoal(g types.NewGoal) []ValidationError {
	var c Collector

	c.Add(ValidateRequired("title", g.Title))
	validateText(&c, "title", g.Title, MaxTitleLength)
	validateText(&c, "description", g.Description, MaxDescriptionLength)
	validateText(&c, "category", g.Category, MaxCategoryLength)
	validateText(&c, "unit", g.Unit, MaxUnitLength)

	if g.Direction != "" {
		c.Add(ValidateEnum("direction", string(g.Direction), directionNames))
	}
	validatePeriod(&c, g.Period, g.CustomPeriodDays)

	c.Add(ValidateFinite("target", g.Target))
	c.Add(ValidateFinite("current", g.Current))
	c.Add(ValidateNonNegative("points", g.Points))

	if g.IsUltimate && g.ParentID != nil {
		c.Add(&ValidationError{Field: "parentId", Message: "ultimate goals cannot have a parent"})
	}
	if hasDuplicates(g.DependsOn) {
		c.Add(&ValidationError{Field: "dependsOn", Message: "must not contain duplicates"})
	}

	for _, e := range ValidateNotification("notification", g.Notification) {
		c.Add(&e)
	}
	return c.Errors()
}

// ValidateGoalPatch checks the fields present in an edit request.
func ValidateGoalPatch(p types.GoalPatch) []ValidationError {
	var c Collector

	if p.Title != nil {
		c.Add(ValidateRequired("title", *p.Title))
		validateText(&c, "title", *p.Title, MaxTitleLength)
	}
	if p.Description != nil {
		validateText(&c, "description", *p.Description, MaxDescriptionLength)
	}
	if p.Category != nil {
		validateText(&c, "category", *p.Category, MaxCategoryLength)
	}
	if p.Unit != nil {
		validateText(&c, "unit", *p.Unit, MaxUnitLength)
	}
	if p.Direction != nil {
		c.Add(ValidateEnum("direction", string(*p.Direction), directionNames))
	}
	if p.Period != nil {
		c.Add(ValidateEnum("period", string(*p.Period), periodNames()))
	}
	if p.CustomPeriodDays != nil {
		c.Add(ValidateRange("customPeriodDays", float64(*p.CustomPeriodDays), 1, MaxCustomPeriodDays))
	}
	numbers := []struct {
		field string
		value *float64
	}{
		{"target", p.Target},
		{"current", p.Current},
		{"initialValue", p.InitialValue},
	}
	for _, n := range numbers {
		if n.value != nil {
			c.Add(ValidateFinite(n.field, *n.value))
		}
	}
	if p.Points != nil {
		c.Add(ValidateNonNegative("points", *p.Points))
	}

	for _, e := range ValidateNotification("notification", p.Notification) {
		c.Add(&e)
	}
	return c.Errors()
}

// ValidateProgressRequest requires exactly one finite value.
func ValidateProgressRequest(r types.ProgressRequest) []ValidationError {
	var c Collector
	switch {
	case r.Current == nil && r.Delta == nil:
		c.Add(&ValidationError{Field: "current", Message: "one of current or delta is required"})
	case r.Current != nil && r.Delta != nil:
		c.Add(&ValidationError{Field: "delta", Message: "must not be combined with current"})
	case r.Current != nil:
		c.Add(ValidateFinite("current", *r.Current))
	default:
		c.Add(ValidateFinite("delta", *r.Delta))
	}
	return c.Errors()
}

// ValidateNewReward checks a reward creation request.
func ValidateNewReward(r types.NewReward) []ValidationError {
	var c Collector
	c.Add(ValidateRequired("title", r.Title))
	validateText(&c, "title", r.Title, MaxTitleLength)
	validateText(&c, "description", r.Description, MaxDescriptionLength)
	c.Add(ValidateNonNegative("cost", r.Cost))
	return c.Errors()
}

func hasDuplicates(ids []int64) bool {
	sorted := slices.Clone(ids)
	slices.Sort(sorted)
	return len(slices.Compact(sorted)) != len(ids)
}
