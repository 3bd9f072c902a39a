package subscription

import (
	"fmt"
	"slices"
)

// transitions lists the statuses reachable from each status.
var transitions = map[Status][]Status{
	StatusPending:       {StatusActive, StatusOnHold, StatusCancelled},
	StatusActive:        {StatusOnHold, StatusPendingCancel, StatusCancelled, StatusExpired},
	StatusOnHold:        {StatusActive, StatusPendingCancel, StatusCancelled, StatusExpired},
	StatusPendingCancel: {StatusActive, StatusCancelled, StatusExpired},
}

// CanTransition reports whether a subscription may move from one status to another.
// Staying in the same status is always allowed.
func CanTransition(from, to Status) bool {
	if from == to {
		return true
	}
	return slices.Contains(transitions[from], to)
}

func checkTransition(from, to Status) error {
	if !CanTransition(from, to) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, to)
	}
	return nil
}
