package metrics

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/petrijr/tempalert/pkg/api"
)

const (
	workflowName = "workflow_name"
	activityName = "activity_name"
	signalName   = "signal_name"
	outcome      = "outcome"
)

// PrometheusObserver is an api.Observer that exports engine activity as
// Prometheus metrics.
type PrometheusObserver struct {
	WorkflowsStarted  *prometheus.CounterVec
	WorkflowsFinished *prometheus.CounterVec
	WorkflowsRunning  *prometheus.GaugeVec
	Signals           *prometheus.CounterVec
	ActivityAttempts  *prometheus.CounterVec
	ActivityLatency   *prometheus.HistogramVec
}

var _ api.Observer = (*PrometheusObserver)(nil)

// NewPrometheusObserver creates the collectors and registers them with reg.
// A nil reg skips registration.
func NewPrometheusObserver(reg prometheus.Registerer) (*PrometheusObserver, error) {
	o := &PrometheusObserver{
		WorkflowsStarted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tempalert_workflows_started_total",
			Help: "Number of workflow instances started",
		}, []string{workflowName}),
		WorkflowsFinished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tempalert_workflows_finished_total",
			Help: "Number of workflow instances that completed or failed",
		}, []string{workflowName, outcome}),
		WorkflowsRunning: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "tempalert_workflows_running",
			Help: "Number of workflow instances currently running",
		}, []string{workflowName}),
		Signals: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tempalert_signals_total",
			Help: "Number of signals handled or dropped",
		}, []string{workflowName, signalName, outcome}),
		ActivityAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tempalert_activity_attempts_total",
			Help: "Number of activity attempts by outcome",
		}, []string{workflowName, activityName, outcome}),
		ActivityLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "tempalert_activity_latency_seconds",
			Help:    "Activity attempt latency in seconds",
			Buckets: []float64{0.01, 0.1, 1, 5, 10, 30, 60},
		}, []string{workflowName, activityName}),
	}

	if reg == nil {
		return o, nil
	}
	for _, c := range o.collectors() {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return o, nil
}

func (o *PrometheusObserver) collectors() []prometheus.Collector {
	return []prometheus.Collector{
		o.WorkflowsStarted,
		o.WorkflowsFinished,
		o.WorkflowsRunning,
		o.Signals,
		o.ActivityAttempts,
		o.ActivityLatency,
	}
}

func (o *PrometheusObserver) OnWorkflowStart(ctx context.Context, inst *api.WorkflowInstance) {
	o.WorkflowsStarted.WithLabelValues(inst.Name).Inc()
	o.WorkflowsRunning.WithLabelValues(inst.Name).Inc()
}

func (o *PrometheusObserver) OnWorkflowCompleted(ctx context.Context, inst *api.WorkflowInstance) {
	o.WorkflowsFinished.WithLabelValues(inst.Name, "completed").Inc()
	o.WorkflowsRunning.WithLabelValues(inst.Name).Dec()
}

func (o *PrometheusObserver) OnWorkflowFailed(ctx context.Context, inst *api.WorkflowInstance, err error) {
	o.WorkflowsFinished.WithLabelValues(inst.Name, "failed").Inc()
	o.WorkflowsRunning.WithLabelValues(inst.Name).Dec()
}

func (o *PrometheusObserver) OnSignal(ctx context.Context, inst *api.WorkflowInstance, name string, err error) {
	res := "handled"
	if err != nil {
		res = "dropped"
	}
	o.Signals.WithLabelValues(inst.Name, name, res).Inc()
}

func (o *PrometheusObserver) OnActivityStart(ctx context.Context, inst *api.WorkflowInstance, activity string, attempt int) {
}

func (o *PrometheusObserver) OnActivityCompleted(ctx context.Context, inst *api.WorkflowInstance, activity string, attempt int, err error, d time.Duration) {
	o.ActivityAttempts.WithLabelValues(inst.Name, activity, result(err)).Inc()
	o.ActivityLatency.WithLabelValues(inst.Name, activity).Observe(d.Seconds())
}

func result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
