package taskqueue

import (
	"context"
	"time"
)

// TaskType identifies what the worker should do.
type TaskType string

const (
	TaskTypeStartWorkflow TaskType = "start-workflow"
	TaskTypeSignal        TaskType = "signal"
)

// Task represents a unit of work for the worker.
type Task struct {
	ID   string
	Type TaskType

	// For start-workflow tasks
	WorkflowName string

	// InstanceID is the signal target, or the requested ID of a workflow
	// start (empty lets the engine generate one).
	InstanceID string
	SignalName string

	// Payload is task-type specific:
	//   - start-workflow: the workflow input
	//   - signal: arbitrary payload to pass to engine.Signal
	Payload any

	EnqueuedAt time.Time
}

// Queue is a FIFO task queue. Tasks are handed out in enqueue order, which
// is what keeps signals to one instance in the order they were sent.
type Queue interface {
	// Enqueue adds a task to the queue. It should respect ctx for cancellation.
	Enqueue(ctx context.Context, t Task) error

	// Dequeue removes and returns the next task, blocking until one is available
	// or the context is cancelled.
	Dequeue(ctx context.Context) (*Task, error)

	// Len returns the approximate number of tasks queued.
	Len() int
}
