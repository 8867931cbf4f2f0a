package api

import "time"

// EventType identifies a workflow history event.
type EventType string

const (
	EventWorkflowStarted   EventType = "workflow.started"
	EventWorkflowCompleted EventType = "workflow.completed"
	EventWorkflowFailed    EventType = "workflow.failed"
	EventPhaseChanged      EventType = "workflow.phase"

	EventSignalReceived EventType = "signal.received"
	EventSignalHandled  EventType = "signal.handled"
	EventSignalDropped  EventType = "signal.dropped"

	EventActivityStarted   EventType = "activity.started"
	EventActivityCompleted EventType = "activity.completed"
	EventActivityFailed    EventType = "activity.failed"

	EventTimerStarted   EventType = "timer.started"
	EventTimerFired     EventType = "timer.fired"
	EventTimerCancelled EventType = "timer.cancelled"

	EventChildStarted EventType = "child.started"
)

// WorkflowEvent is a minimal append-only history record for audit/debugging.
// It is intentionally small and stable; richer history can be layered later.
type WorkflowEvent struct {
	InstanceID string
	At         time.Time
	Type       EventType

	// Optional context.
	WorkflowName string
	Phase        string

	// Small, human-oriented details (e.g. signal name, error string).
	// Keep this low-volume: do NOT dump large payloads here.
	Detail string
}
