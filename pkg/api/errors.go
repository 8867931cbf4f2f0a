package api

import (
	"errors"
	"fmt"
)

var (
	// ErrUnknownWorkflow is returned when starting a workflow that was never registered.
	ErrUnknownWorkflow = errors.New("unknown workflow")

	// ErrUnknownActivity is returned when a workflow invokes an unregistered activity.
	ErrUnknownActivity = errors.New("unknown activity")

	// ErrUnknownQuery is returned when querying a name the instance has no handler for.
	ErrUnknownQuery = errors.New("unknown query")

	// ErrInstanceNotFound is returned when no instance has the given ID.
	ErrInstanceNotFound = errors.New("instance not found")

	// ErrInstanceClosed is returned when signalling an instance that has already
	// completed or failed.
	ErrInstanceClosed = errors.New("instance closed")

	// ErrInstanceAlreadyRunning is returned when starting an instance whose ID
	// belongs to a running instance.
	ErrInstanceAlreadyRunning = errors.New("instance already running")

	// ErrActivityTimeout is the attempt error when an activity exceeds its
	// StartToCloseTimeout.
	ErrActivityTimeout = errors.New("activity timed out")

	// ErrEngineStopped is returned by engine operations after Shutdown.
	ErrEngineStopped = errors.New("engine stopped")
)

// ActivityError is returned by Context.ExecuteActivity once the attempt
// budget is exhausted.
type ActivityError struct {
	Activity string
	Attempts int
	Err      error
}

func (e *ActivityError) Error() string {
	return fmt.Sprintf("activity %s failed after %d attempt(s): %v", e.Activity, e.Attempts, e.Err)
}

func (e *ActivityError) Unwrap() error {
	return e.Err
}

// IsActivityError returns the ActivityError in err's chain, if any.
func IsActivityError(err error) (*ActivityError, bool) {
	var ae *ActivityError
	if errors.As(err, &ae) {
		return ae, true
	}
	return nil, false
}

// PanicError wraps a value recovered from a panicking workflow or activity.
type PanicError struct {
	Value any
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("panic: %v", e.Value)
}
