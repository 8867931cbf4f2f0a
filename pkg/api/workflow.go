package api

import (
	"encoding/gob"
	"time"
)

func init() {
	gob.Register(ChildRef{})
}

// Status represents the lifecycle state of a workflow instance.
type Status string

const (
	StatusPending   Status = "PENDING"
	StatusRunning   Status = "RUNNING"
	StatusWaiting   Status = "WAITING"
	StatusCompleted Status = "COMPLETED"
	StatusFailed    Status = "FAILED"
)

// Closed reports whether the status is terminal.
func (s Status) Closed() bool {
	return s == StatusCompleted || s == StatusFailed
}

// WorkflowFunc is the body of a workflow. It runs on the instance's own
// goroutine and may only block through the primitives offered by ctx.
type WorkflowFunc func(ctx Context, input any) (any, error)

// WorkflowDefinition describes a workflow by name.
type WorkflowDefinition struct {
	Name string
	Fn   WorkflowFunc
}

// WorkflowInstance is a snapshot of one workflow run.
//
// Engines hand out copies; mutating a returned instance has no effect on the
// running workflow.
type WorkflowInstance struct {
	ID     string
	Name   string
	Status Status

	// Phase is the workflow-defined state name (e.g. "AwaitingTrigger").
	Phase string

	Input  any
	Output any
	Err    error

	// ParentID is set when the instance was started as a child.
	ParentID string

	StartedAt time.Time
	ClosedAt  time.Time
}

// Clone returns a shallow copy of the instance.
func (i *WorkflowInstance) Clone() *WorkflowInstance {
	if i == nil {
		return nil
	}
	c := *i
	return &c
}

// InstanceListOptions controls how instances are listed.
// Zero values mean "no filter" for that field.
type InstanceListOptions struct {
	// WorkflowName, if non-empty, limits results to instances of the given workflow.
	WorkflowName string

	// Status, if non-empty, limits results to instances with the given status.
	Status Status
}

// StartOptions configures Engine.Start.
type StartOptions struct {
	// ID is the instance identity. If empty the engine generates
	// "<workflow>-<uuid>".
	ID string
}

// ChildOptions configures Context.StartChild.
type ChildOptions struct {
	// ID is the child identity. If empty the engine generates one.
	ID string
}

// ChildRef addresses a child instance. It carries no ownership: the child
// runs independently once started and can only be reached through signals.
type ChildRef struct {
	ID       string
	Workflow string
}
