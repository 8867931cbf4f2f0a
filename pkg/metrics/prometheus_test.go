package metrics_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"github.com/petrijr/tempalert/internal/engine"
	"github.com/petrijr/tempalert/pkg/api"
	"github.com/petrijr/tempalert/pkg/metrics"
)

func TestPrometheusObserver_Callbacks(t *testing.T) {
	reg := prometheus.NewRegistry()
	o, err := metrics.NewPrometheusObserver(reg)
	require.NoError(t, err)

	ctx := context.Background()
	inst := &api.WorkflowInstance{ID: "temp-alert-1", Name: "temperature-escalation"}

	o.OnWorkflowStart(ctx, inst)
	o.OnSignal(ctx, inst, "submit-temperature-reading", nil)
	o.OnSignal(ctx, inst, "bogus", errors.New("no handler"))
	o.OnActivityStart(ctx, inst, "notify-escalation-group", 1)
	o.OnActivityCompleted(ctx, inst, "notify-escalation-group", 1, errors.New("down"), 50*time.Millisecond)
	o.OnActivityCompleted(ctx, inst, "notify-escalation-group", 2, nil, 20*time.Millisecond)

	require.Equal(t, 1.0, testutil.ToFloat64(o.WorkflowsRunning.WithLabelValues(inst.Name)))
	o.OnWorkflowCompleted(ctx, inst)

	require.Equal(t, 1.0, testutil.ToFloat64(o.WorkflowsStarted.WithLabelValues(inst.Name)))
	require.Equal(t, 0.0, testutil.ToFloat64(o.WorkflowsRunning.WithLabelValues(inst.Name)))
	require.Equal(t, 1.0, testutil.ToFloat64(o.WorkflowsFinished.WithLabelValues(inst.Name, "completed")))
	require.Equal(t, 1.0, testutil.ToFloat64(o.Signals.WithLabelValues(inst.Name, "submit-temperature-reading", "handled")))
	require.Equal(t, 1.0, testutil.ToFloat64(o.Signals.WithLabelValues(inst.Name, "bogus", "dropped")))
	require.Equal(t, 1.0, testutil.ToFloat64(o.ActivityAttempts.WithLabelValues(inst.Name, "notify-escalation-group", "error")))
	require.Equal(t, 1.0, testutil.ToFloat64(o.ActivityAttempts.WithLabelValues(inst.Name, "notify-escalation-group", "ok")))
	require.Equal(t, 1, testutil.CollectAndCount(o.ActivityLatency))
}

func TestNewPrometheusObserver_DuplicateRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	_, err := metrics.NewPrometheusObserver(reg)
	require.NoError(t, err)

	_, err = metrics.NewPrometheusObserver(reg)
	require.Error(t, err)

	_, err = metrics.NewPrometheusObserver(nil)
	require.NoError(t, err)
}

func TestPrometheusObserver_WithEngine(t *testing.T) {
	o, err := metrics.NewPrometheusObserver(prometheus.NewRegistry())
	require.NoError(t, err)

	eng := engine.NewEngineWithConfig(engine.Config{Observer: o})
	t.Cleanup(func() { _ = eng.Shutdown(context.Background()) })

	require.NoError(t, eng.RegisterActivity("ping", func(ctx context.Context, input any) (any, error) {
		return "pong", nil
	}))
	require.NoError(t, eng.RegisterWorkflow(api.WorkflowDefinition{
		Name: "pinger",
		Fn: func(ctx api.Context, input any) (any, error) {
			return ctx.ExecuteActivity("ping", nil, api.ActivityOptions{})
		},
	}))

	inst, err := eng.Start(context.Background(), "pinger", api.StartOptions{}, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_, err = eng.Await(ctx, inst.ID)
	require.NoError(t, err)

	require.Equal(t, 1.0, testutil.ToFloat64(o.ActivityAttempts.WithLabelValues("pinger", "ping", "ok")))
	require.Eventually(t, func() bool {
		return testutil.ToFloat64(o.WorkflowsFinished.WithLabelValues("pinger", "completed")) == 1
	}, 5*time.Second, time.Millisecond)
}
