package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/hyperengineering/cadence/internal/validation"
)

// goalIDContextKey is the context key for the goal ID taken from the path.
type goalIDContextKey struct{}

// ErrNoGoalIDInContext indicates no goal ID was found in the context.
var ErrNoGoalIDInContext = errors.New("no goal id in context")

// WithGoalID returns a new context with the goal ID attached.
func WithGoalID(ctx context.Context, id int64) context.Context {
	return context.WithValue(ctx, goalIDContextKey{}, id)
}

// GoalIDFromContext extracts the goal ID from the context.
func GoalIDFromContext(ctx context.Context) (int64, error) {
	id, ok := ctx.Value(goalIDContextKey{}).(int64)
	if !ok {
		return 0, ErrNoGoalIDInContext
	}
	return id, nil
}

// MustGoalIDFromContext extracts the goal ID or panics.
// Use only when GoalIDMiddleware guarantees presence.
func MustGoalIDFromContext(ctx context.Context) int64 {
	id, err := GoalIDFromContext(ctx)
	if err != nil {
		panic("goal id not in context: middleware misconfiguration")
	}
	return id
}

// GoalIDMiddleware parses the {id} path parameter and stores it in the
// request context. Malformed IDs get a 400 before reaching the handler.
func GoalIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, err := parseID(chi.URLParam(r, "id"))
		if err != nil {
			WriteProblem(w, r, http.StatusBadRequest, "Invalid goal id")
			return
		}
		next.ServeHTTP(w, r.WithContext(WithGoalID(r.Context(), id)))
	})
}

// RewardIDMiddleware rejects a {rewardID} path parameter that is not a ULID.
func RewardIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if verr := validation.ValidateULID("rewardID", chi.URLParam(r, "rewardID")); verr != nil {
			WriteProblem(w, r, http.StatusBadRequest, "Invalid reward id: "+verr.Message)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, errors.New("invalid id")
	}
	return id, nil
}
