package engine

import "errors"

// ErrUnknownGoal is returned when an operation names a goal that is not in
// the collection.
var ErrUnknownGoal = errors.New("goal not in collection")
