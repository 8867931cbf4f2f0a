package worker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/petrijr/tempalert/internal/taskqueue"
	"github.com/petrijr/tempalert/pkg/api"
)

// Config controls worker behavior.
type Config struct {
	// Logger receives task failures from Run. Defaults to slog.Default().
	Logger *slog.Logger
}

// Worker pulls tasks from a Queue and executes them using an Engine.
type Worker struct {
	engine api.Engine
	queue  taskqueue.Queue
	logger *slog.Logger
}

// New creates a new Worker with default configuration.
func New(engine api.Engine, queue taskqueue.Queue) *Worker {
	return NewWithConfig(engine, queue, Config{})
}

// NewWithConfig creates a new Worker.
func NewWithConfig(engine api.Engine, queue taskqueue.Queue, cfg Config) *Worker {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Worker{
		engine: engine,
		queue:  queue,
		logger: logger,
	}
}

// EnqueueStartWorkflow enqueues a task to start a workflow asynchronously and
// returns the instance ID it will run under. An empty id is replaced by
// "<workflow>-<uuid>" so callers can address the instance before it exists.
func (w *Worker) EnqueueStartWorkflow(ctx context.Context, workflowName, id string, input any) (string, error) {
	if id == "" {
		id = workflowName + "-" + uuid.NewString()
	}
	t := taskqueue.Task{
		ID:           uuid.NewString(),
		Type:         taskqueue.TaskTypeStartWorkflow,
		WorkflowName: workflowName,
		InstanceID:   id,
		Payload:      input,
		EnqueuedAt:   time.Now(),
	}
	if err := w.queue.Enqueue(ctx, t); err != nil {
		return "", err
	}
	return id, nil
}

// EnqueueSignal enqueues a task to deliver a signal to a workflow instance.
// The signal will be processed asynchronously by ProcessOne.
func (w *Worker) EnqueueSignal(ctx context.Context, instanceID string, name string, payload any) error {
	t := taskqueue.Task{
		ID:         uuid.NewString(),
		Type:       taskqueue.TaskTypeSignal,
		InstanceID: instanceID,
		SignalName: name,
		Payload:    payload,
		EnqueuedAt: time.Now(),
	}
	return w.queue.Enqueue(ctx, t)
}

// ProcessOne pulls a single task from the queue and processes it.
// Returns (processed, error):
//   - processed == false: no task was obtained (ctx cancelled or dequeue failed).
//   - processed == true: a task was processed; err indicates whether the handler succeeded.
//
// Starting a workflow only creates the instance; the workflow itself runs on
// the engine's goroutine.
func (w *Worker) ProcessOne(ctx context.Context) (bool, error) {
	task, err := w.queue.Dequeue(ctx)
	if err != nil {
		return false, err
	}
	if task == nil {
		return false, nil
	}

	switch task.Type {
	case taskqueue.TaskTypeStartWorkflow:
		_, err := w.engine.Start(ctx, task.WorkflowName, api.StartOptions{ID: task.InstanceID}, task.Payload)
		return true, err

	case taskqueue.TaskTypeSignal:
		return true, w.engine.Signal(ctx, task.InstanceID, task.SignalName, task.Payload)

	default:
		// Unknown task type; mark as processed but return an error so this isn't silently ignored.
		return true, fmt.Errorf("unknown task type: %s", task.Type)
	}
}

// Run processes tasks until ctx is done. Task failures are logged and do not
// stop the loop.
func (w *Worker) Run(ctx context.Context) error {
	for {
		processed, err := w.ProcessOne(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if processed {
				w.logger.Warn("task failed", slog.Any("error", err))
				continue
			}
			w.logger.Error("dequeue failed", slog.Any("error", err))
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(100 * time.Millisecond):
			}
		}
	}
}
