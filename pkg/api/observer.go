package api

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"
)

// Observer receives callbacks from the workflow engine for logging and metrics.
//
// Implementations should be fast and non-blocking; they are called from
// instance goroutines and delay workflow execution while they run.
type Observer interface {
	// OnWorkflowStart is called once when a workflow instance is started,
	// before the workflow function runs.
	OnWorkflowStart(ctx context.Context, inst *WorkflowInstance)

	// OnWorkflowCompleted is called when a workflow instance successfully
	// reaches StatusCompleted.
	OnWorkflowCompleted(ctx context.Context, inst *WorkflowInstance)

	// OnWorkflowFailed is called when a workflow instance transitions to
	// StatusFailed.
	OnWorkflowFailed(ctx context.Context, inst *WorkflowInstance, err error)

	// OnSignal is called when a signal has been handled (err == nil) or
	// dropped (err != nil) by the instance.
	OnSignal(ctx context.Context, inst *WorkflowInstance, name string, err error)

	// OnActivityStart is called before each activity attempt (1-indexed).
	OnActivityStart(ctx context.Context, inst *WorkflowInstance, activity string, attempt int)

	// OnActivityCompleted is called after each attempt, for both successes
	// and failures (err != nil).
	OnActivityCompleted(ctx context.Context, inst *WorkflowInstance, activity string, attempt int, err error, duration time.Duration)
}

// NoopObserver is an Observer that does nothing.
// It is used as the default when no observer is configured.
type NoopObserver struct{}

func (NoopObserver) OnWorkflowStart(ctx context.Context, inst *WorkflowInstance)             {}
func (NoopObserver) OnWorkflowCompleted(ctx context.Context, inst *WorkflowInstance)         {}
func (NoopObserver) OnWorkflowFailed(ctx context.Context, inst *WorkflowInstance, err error) {}
func (NoopObserver) OnSignal(ctx context.Context, inst *WorkflowInstance, name string, err error) {
}
func (NoopObserver) OnActivityStart(ctx context.Context, inst *WorkflowInstance, activity string, attempt int) {
}
func (NoopObserver) OnActivityCompleted(ctx context.Context, inst *WorkflowInstance, activity string, attempt int, err error, d time.Duration) {
}

// CompositeObserver fans out events to multiple observers.
type CompositeObserver struct {
	observers []Observer
}

// NewCompositeObserver creates an Observer that forwards events to each
// non-nil observer in obs.
func NewCompositeObserver(obs ...Observer) Observer {
	filtered := make([]Observer, 0, len(obs))
	for _, o := range obs {
		if o != nil {
			filtered = append(filtered, o)
		}
	}
	if len(filtered) == 0 {
		return NoopObserver{}
	}
	if len(filtered) == 1 {
		return filtered[0]
	}
	return &CompositeObserver{observers: filtered}
}

func (c *CompositeObserver) OnWorkflowStart(ctx context.Context, inst *WorkflowInstance) {
	for _, o := range c.observers {
		o.OnWorkflowStart(ctx, inst)
	}
}

func (c *CompositeObserver) OnWorkflowCompleted(ctx context.Context, inst *WorkflowInstance) {
	for _, o := range c.observers {
		o.OnWorkflowCompleted(ctx, inst)
	}
}

func (c *CompositeObserver) OnWorkflowFailed(ctx context.Context, inst *WorkflowInstance, err error) {
	for _, o := range c.observers {
		o.OnWorkflowFailed(ctx, inst, err)
	}
}

func (c *CompositeObserver) OnSignal(ctx context.Context, inst *WorkflowInstance, name string, err error) {
	for _, o := range c.observers {
		o.OnSignal(ctx, inst, name, err)
	}
}

func (c *CompositeObserver) OnActivityStart(ctx context.Context, inst *WorkflowInstance, activity string, attempt int) {
	for _, o := range c.observers {
		o.OnActivityStart(ctx, inst, activity, attempt)
	}
}

func (c *CompositeObserver) OnActivityCompleted(ctx context.Context, inst *WorkflowInstance, activity string, attempt int, err error, d time.Duration) {
	for _, o := range c.observers {
		o.OnActivityCompleted(ctx, inst, activity, attempt, err, d)
	}
}

// LoggingObserver writes structured logs using log/slog.
type LoggingObserver struct {
	Logger *slog.Logger
}

// NewLoggingObserver creates an Observer that logs workflow / activity
// lifecycle events using the provided slog.Logger. If logger is nil,
// slog.Default() is used.
func NewLoggingObserver(logger *slog.Logger) Observer {
	if logger == nil {
		logger = slog.Default()
	}
	return &LoggingObserver{Logger: logger}
}

func (o *LoggingObserver) OnWorkflowStart(ctx context.Context, inst *WorkflowInstance) {
	o.Logger.InfoContext(ctx, "workflow_start",
		slog.String("workflow", inst.Name),
		slog.String("instance_id", inst.ID),
		slog.String("parent_id", inst.ParentID),
	)
}

func (o *LoggingObserver) OnWorkflowCompleted(ctx context.Context, inst *WorkflowInstance) {
	o.Logger.InfoContext(ctx, "workflow_completed",
		slog.String("workflow", inst.Name),
		slog.String("instance_id", inst.ID),
		slog.Any("output", inst.Output),
	)
}

func (o *LoggingObserver) OnWorkflowFailed(ctx context.Context, inst *WorkflowInstance, err error) {
	o.Logger.ErrorContext(ctx, "workflow_failed",
		slog.String("workflow", inst.Name),
		slog.String("instance_id", inst.ID),
		slog.String("phase", inst.Phase),
		slog.Any("error", err),
	)
}

func (o *LoggingObserver) OnSignal(ctx context.Context, inst *WorkflowInstance, name string, err error) {
	level := slog.LevelDebug
	if err != nil {
		level = slog.LevelWarn
	}
	o.Logger.Log(ctx, level, "signal",
		slog.String("workflow", inst.Name),
		slog.String("instance_id", inst.ID),
		slog.String("signal", name),
		slog.Any("error", err),
	)
}

func (o *LoggingObserver) OnActivityStart(ctx context.Context, inst *WorkflowInstance, activity string, attempt int) {
	o.Logger.DebugContext(ctx, "activity_start",
		slog.String("workflow", inst.Name),
		slog.String("instance_id", inst.ID),
		slog.String("activity", activity),
		slog.Int("attempt", attempt),
	)
}

func (o *LoggingObserver) OnActivityCompleted(ctx context.Context, inst *WorkflowInstance, activity string, attempt int, err error, d time.Duration) {
	level := slog.LevelDebug
	if err != nil {
		level = slog.LevelWarn
	}
	o.Logger.Log(ctx, level, "activity_completed",
		slog.String("workflow", inst.Name),
		slog.String("instance_id", inst.ID),
		slog.String("activity", activity),
		slog.Int("attempt", attempt),
		slog.Duration("duration", d),
		slog.Any("error", err),
	)
}

// BasicMetrics collects simple counters and aggregate activity durations.
// It implements Observer, and can be combined with LoggingObserver via
// NewCompositeObserver.
type BasicMetrics struct {
	NoopObserver

	workflowsStarted      atomic.Int64
	workflowsCompleted    atomic.Int64
	workflowsFailed       atomic.Int64
	signalsHandled        atomic.Int64
	signalsDropped        atomic.Int64
	activityAttempts      atomic.Int64
	activityFailures      atomic.Int64
	totalActivityDuration atomic.Int64 // nanoseconds
}

// BasicMetricsSnapshot is an immutable snapshot of BasicMetrics.
type BasicMetricsSnapshot struct {
	WorkflowsStarted   int64
	WorkflowsCompleted int64
	WorkflowsFailed    int64
	PendingWorkflows   int64

	SignalsHandled int64
	SignalsDropped int64

	ActivityAttempts    int64
	ActivityFailures    int64
	AvgActivityDuration time.Duration
}

func (m *BasicMetrics) OnWorkflowStart(ctx context.Context, inst *WorkflowInstance) {
	m.workflowsStarted.Add(1)
}

func (m *BasicMetrics) OnWorkflowCompleted(ctx context.Context, inst *WorkflowInstance) {
	m.workflowsCompleted.Add(1)
}

func (m *BasicMetrics) OnWorkflowFailed(ctx context.Context, inst *WorkflowInstance, err error) {
	m.workflowsFailed.Add(1)
}

func (m *BasicMetrics) OnSignal(ctx context.Context, inst *WorkflowInstance, name string, err error) {
	if err != nil {
		m.signalsDropped.Add(1)
		return
	}
	m.signalsHandled.Add(1)
}

func (m *BasicMetrics) OnActivityCompleted(ctx context.Context, inst *WorkflowInstance, activity string, attempt int, err error, d time.Duration) {
	m.activityAttempts.Add(1)
	m.totalActivityDuration.Add(d.Nanoseconds())
	if err != nil {
		m.activityFailures.Add(1)
	}
}

// Snapshot returns a snapshot of the current metrics.
func (m *BasicMetrics) Snapshot() BasicMetricsSnapshot {
	started := m.workflowsStarted.Load()
	completed := m.workflowsCompleted.Load()
	failed := m.workflowsFailed.Load()
	attempts := m.activityAttempts.Load()
	totalNs := m.totalActivityDuration.Load()

	var avg time.Duration
	if attempts > 0 {
		avg = time.Duration(totalNs / attempts)
	}

	return BasicMetricsSnapshot{
		WorkflowsStarted:    started,
		WorkflowsCompleted:  completed,
		WorkflowsFailed:     failed,
		PendingWorkflows:    started - completed - failed,
		SignalsHandled:      m.signalsHandled.Load(),
		SignalsDropped:      m.signalsDropped.Load(),
		ActivityAttempts:    attempts,
		ActivityFailures:    m.activityFailures.Load(),
		AvgActivityDuration: avg,
	}
}
