package api

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// SignalHandler mutates workflow state in response to a signal. It runs on
// the instance goroutine, between workflow steps, so it needs no locking.
// A non-nil error drops the signal (it is logged and recorded as an event).
type SignalHandler func(payload any) error

// QueryHandler returns a read-only view of workflow state. It must not
// mutate anything.
type QueryHandler func() (any, error)

// SignalHandlerFor adapts a typed function into a SignalHandler. Payloads of
// another type are rejected.
func SignalHandlerFor[T any](fn func(T)) SignalHandler {
	return func(payload any) error {
		v, ok := payload.(T)
		if !ok {
			var zero T
			return fmt.Errorf("signal payload: expected %T, got %T", zero, payload)
		}
		fn(v)
		return nil
	}
}

// RaceOutcome reports which side of Context.Race completed first.
type RaceOutcome int

const (
	RaceSignalled RaceOutcome = iota + 1
	RaceDeadlineExceeded
)

func (o RaceOutcome) String() string {
	switch o {
	case RaceSignalled:
		return "signalled"
	case RaceDeadlineExceeded:
		return "deadline"
	default:
		return "unknown"
	}
}

// InstanceInfo identifies the running instance.
type InstanceInfo struct {
	InstanceID string
	Workflow   string
	ParentID   string
}

// Context is the workflow-side view of the engine.
//
// Every blocking method keeps handling queued signals and queries while it
// waits, one at a time and in delivery order. They all return the context
// error if the engine shuts down underneath the workflow.
type Context interface {
	context.Context

	Info() InstanceInfo

	// Now returns the engine clock's current time.
	Now() time.Time

	// Logger returns a logger annotated with the workflow and instance ID.
	Logger() *slog.Logger

	// SetPhase records the workflow-defined state name on the instance.
	SetPhase(phase string)

	SetSignalHandler(name string, h SignalHandler)
	SetQueryHandler(name string, h QueryHandler)

	// WaitUntil suspends until cond holds. cond is evaluated once up front and
	// then once after every handled signal. There is no timeout.
	WaitUntil(cond func() bool) error

	// Race suspends until l fires or d elapses, whichever comes first. When
	// both are ready the signal wins. The losing side is released: the timer
	// is stopped, or the latch is cancelled.
	Race(l *Latch, d time.Duration) (RaceOutcome, error)

	// Sleep suspends for d on the engine clock.
	Sleep(d time.Duration) error

	// ExecuteActivity invokes a registered activity under opts and returns
	// its output. After the retry budget is exhausted it returns an
	// *ActivityError.
	ExecuteActivity(name string, input any, opts ActivityOptions) (any, error)

	// StartChild starts another workflow and returns without waiting for it.
	StartChild(workflow string, input any, opts ChildOptions) (ChildRef, error)
}
