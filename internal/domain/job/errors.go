package job

import (
	"errors"
	"fmt"
)

var (
	// ErrJobNotFound indicates no job matched the lookup.
	ErrJobNotFound = errors.New("job not found")

	// ErrAlreadyTerminal indicates a mutation was attempted on a job that
	// already reached completed or failed. Callers treat this as a benign
	// duplicate signal, not a failure.
	ErrAlreadyTerminal = errors.New("job is already in a terminal state")

	// ErrStaleTransition indicates a conditional status update matched zero
	// rows because another writer moved the job first.
	ErrStaleTransition = errors.New("job status changed concurrently")
)

// InvalidTransitionError reports a lifecycle transition the state machine
// does not permit.
type InvalidTransitionError struct {
	From Status
	To   Status
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid job transition from %s to %s", e.From, e.To)
}
