package tempalert

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/petrijr/tempalert/internal/taskqueue"
	"github.com/petrijr/tempalert/pkg/worker"
)

// LocalRunner bundles an Engine, a task queue, and a Worker so workflows can
// be started and signalled asynchronously from a single process.
//
// Typical usage:
//
//	runner := tempalert.NewLocalRunner()
//	_ = tempalert.RegisterMonitoring(runner.Engine, nil)
//	_ = runner.StartWorkers(ctx, 1)
//	id, _ := runner.StartWorkflowAsync(ctx, monitor.TemperatureEscalationWorkflow, "", input)
//	_ = runner.SignalAsync(ctx, id, monitor.SignalTemperatureReading, 21.5)
//	...
//	runner.Stop()
//
// Tasks for one instance are delivered in enqueue order only when a single
// worker goroutine drains the queue.
type LocalRunner struct {
	// Engine hosts the workflow instances.
	Engine Engine

	// Queue holds start and signal tasks until the Worker picks them up.
	Queue taskqueue.Queue

	// Worker processes tasks from Queue using Engine.
	Worker *worker.Worker

	mu      sync.Mutex
	cancel  context.CancelFunc
	group   *errgroup.Group
	running bool
}

// NewLocalRunner constructs a LocalRunner backed by an in-memory engine,
// in-memory queue, and a Worker with default config.
func NewLocalRunner() *LocalRunner {
	return NewLocalRunnerWith(NewInMemoryEngine(), taskqueue.NewInMemoryQueue(0), worker.Config{})
}

// NewLocalRunnerWith constructs a LocalRunner around an existing engine and
// queue.
func NewLocalRunnerWith(eng Engine, q taskqueue.Queue, cfg worker.Config) *LocalRunner {
	return &LocalRunner{
		Engine: eng,
		Queue:  q,
		Worker: worker.NewWithConfig(eng, q, cfg),
	}
}

// StartWorkers starts 'concurrency' goroutines running Worker.Run until Stop.
//
// If StartWorkers is called more than once without Stop, it returns an error.
func (r *LocalRunner) StartWorkers(ctx context.Context, concurrency int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.running {
		return errors.New("tempalert: LocalRunner already started")
	}

	if concurrency <= 0 {
		concurrency = 1
	}

	ctx, cancel := context.WithCancel(ctx)
	g, gctx := errgroup.WithContext(ctx)
	r.cancel = cancel
	r.group = g
	r.running = true

	for i := 0; i < concurrency; i++ {
		g.Go(func() error {
			return r.Worker.Run(gctx)
		})
	}

	return nil
}

// Stop cancels all worker goroutines started by StartWorkers and waits
// for them to exit. It does not shut down the Engine.
func (r *LocalRunner) Stop() {
	r.mu.Lock()
	if !r.running {
		r.mu.Unlock()
		return
	}
	cancel, g := r.cancel, r.group
	r.running = false
	r.cancel = nil
	r.group = nil
	r.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		slog.Warn("tempalert: worker exited", slog.Any("error", err))
	}
}

// StartWorkflowAsync enqueues a task to start the given workflow and returns
// the instance ID. An empty id is generated. The workflow must already be
// registered on LocalRunner.Engine.
func (r *LocalRunner) StartWorkflowAsync(ctx context.Context, workflowName, id string, input any) (string, error) {
	return r.Worker.EnqueueStartWorkflow(ctx, workflowName, id, input)
}

// SignalAsync enqueues a task to deliver a signal to a workflow instance.
// The instance will process the signal when a worker picks up the task.
func (r *LocalRunner) SignalAsync(ctx context.Context, instanceID, name string, payload any) error {
	return r.Worker.EnqueueSignal(ctx, instanceID, name, payload)
}

// Signal is SignalAsync under the name console sessions expect.
func (r *LocalRunner) Signal(ctx context.Context, instanceID, name string, payload any) error {
	return r.SignalAsync(ctx, instanceID, name, payload)
}

// Query runs a query directly against the Engine.
func (r *LocalRunner) Query(ctx context.Context, instanceID, name string) (any, error) {
	return r.Engine.Query(ctx, instanceID, name)
}
