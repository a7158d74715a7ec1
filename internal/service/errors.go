package service

import (
	"errors"
	"fmt"
	"strings"

	"github.com/hyperengineering/cadence/internal/validation"
)

var (
	ErrGoalNotFound      = errors.New("goal not found")
	ErrRewardNotFound    = errors.New("reward not found")
	ErrGoalPaused        = errors.New("goal is paused")
	ErrGoalArchived      = errors.New("goal is archived")
	ErrGoalBlocked       = errors.New("goal is blocked by incomplete dependencies")
	ErrUltimateProgress  = errors.New("ultimate goal progress is derived from its subgoals")
	ErrInvalidParent     = errors.New("invalid parent")
	ErrInvalidDependency = errors.New("invalid dependency")
	ErrAlreadyRedeemed   = errors.New("reward already redeemed")
	ErrPersist           = errors.New("persist failed")
)

// ValidationError reports field-level problems with a request.
type ValidationError struct {
	Errors []validation.ValidationError
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Errors))
	for _, fe := range e.Errors {
		parts = append(parts, fe.Field+" "+fe.Message)
	}
	return fmt.Sprintf("validation failed: %s", strings.Join(parts, "; "))
}

func validationErr(errs []validation.ValidationError) error {
	if len(errs) == 0 {
		return nil
	}
	return &ValidationError{Errors: errs}
}
