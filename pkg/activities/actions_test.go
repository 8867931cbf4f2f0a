package activities_test

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	clock_testing "k8s.io/utils/clock/testing"

	"github.com/petrijr/tempalert/internal/engine"
	"github.com/petrijr/tempalert/internal/persistence"
	"github.com/petrijr/tempalert/pkg/activities"
	"github.com/petrijr/tempalert/pkg/api"
	"github.com/petrijr/tempalert/pkg/monitor"
)

func TestNotifyEscalationGroup_FailsFirstCalls(t *testing.T) {
	ctx := context.Background()
	a := activities.New()

	for i := 1; i <= activities.DefaultEscalationFailures; i++ {
		_, err := a.NotifyEscalationGroup(ctx, []string{"a@example.com"})
		require.Error(t, err)
		require.Contains(t, err.Error(), "simulated failure")
	}
	_, err := a.NotifyEscalationGroup(ctx, []string{"a@example.com"})
	require.NoError(t, err)
	_, err = a.NotifyEscalationGroup(ctx, []string{"a@example.com"})
	require.NoError(t, err)
}

func TestNotifyEscalationGroup_FailuresDisabled(t *testing.T) {
	a := activities.NewWithConfig(activities.Config{EscalationFailures: -1})
	_, err := a.NotifyEscalationGroup(context.Background(), nil)
	require.NoError(t, err)
}

func TestActionsLogWithActivityInfo(t *testing.T) {
	var buf bytes.Buffer
	a := activities.NewWithConfig(activities.Config{
		Logger: slog.New(slog.NewJSONHandler(&buf, nil)),
	})

	ctx := api.WithActivityInfo(context.Background(), api.ActivityInfo{
		InstanceID: "temp-alert-1",
		Activity:   monitor.ActivityEmailTransporter,
		Attempt:    1,
	})
	_, err := a.EmailTransporter(ctx, "transporter@tive.com")
	require.NoError(t, err)

	out := buf.String()
	require.Contains(t, out, `"msg":"email sent to transporter"`)
	require.Contains(t, out, `"email":"transporter@tive.com"`)
	require.Contains(t, out, `"instance_id":"temp-alert-1"`)
}

func TestUpdateTransmissionInterval_RejectsNonPositive(t *testing.T) {
	a := activities.New()
	_, err := a.UpdateTransmissionInterval(context.Background(), 0)
	require.Error(t, err)
	_, err = a.UpdateTransmissionInterval(context.Background(), monitor.ShortenedIntervalMinutes)
	require.NoError(t, err)
}

func TestGetBatteryLevelThroughEngine(t *testing.T) {
	eng, _ := newEngine(t, activities.New())
	require.NoError(t, eng.RegisterWorkflow(api.WorkflowDefinition{
		Name: "check-battery",
		Fn: func(ctx api.Context, input any) (any, error) {
			return ctx.ExecuteActivity(monitor.ActivityGetBatteryLevel, nil, api.ActivityOptions{
				StartToCloseTimeout: time.Second,
			})
		},
	}))

	inst, err := eng.Start(context.Background(), "check-battery", api.StartOptions{}, nil)
	require.NoError(t, err)
	done := await(t, eng, inst.ID)
	require.Equal(t, api.StatusCompleted, done.Status)
	require.Equal(t, activities.BatteryLevel, done.Output)
}

func TestRegisterRejectsDuplicates(t *testing.T) {
	eng, _ := newEngine(t, activities.New())
	require.Error(t, activities.New().Register(eng))
}

// The temperature escalation succeeds against the flaky mailer because its
// default policy allows three attempts.
func TestTemperatureEscalationAgainstFlakyMailer(t *testing.T) {
	eng, fc := newEngine(t, activities.New())
	require.NoError(t, monitor.Register(eng))
	ctx := context.Background()

	inst, err := eng.Start(ctx, monitor.TemperatureEscalationWorkflow, api.StartOptions{ID: "temp-alert-flaky"}, monitor.TemperatureInput{
		ThresholdDelta:      5,
		ThresholdTimeWindow: 15 * time.Second,
		ResponseWaitWindow:  20 * time.Second,
	})
	require.NoError(t, err)

	require.NoError(t, eng.Signal(ctx, inst.ID, monitor.SignalTemperatureReading, 10.0))
	require.NoError(t, eng.Signal(ctx, inst.ID, monitor.SignalTemperatureReading, 16.0))

	// Response deadline, then backoffs of 5s and 10s.
	for _, d := range []time.Duration{20 * time.Second, 5 * time.Second, 10 * time.Second} {
		require.Eventually(t, fc.HasWaiters, 5*time.Second, time.Millisecond)
		fc.Step(d)
	}

	done := await(t, eng, inst.ID)
	require.Equal(t, api.StatusCompleted, done.Status)
	require.Equal(t, monitor.PhaseEscalated, done.Phase)
}

func newEngine(t *testing.T, a *activities.Actions) (api.Engine, *clock_testing.FakeClock) {
	t.Helper()
	fc := clock_testing.NewFakeClock(time.Date(2024, 7, 1, 12, 0, 0, 0, time.UTC))
	eng := engine.NewEngineWithConfig(engine.Config{
		Persistence: persistence.NewInMemory(),
		Clock:       fc,
		Logger:      slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = eng.Shutdown(ctx)
	})
	require.NoError(t, a.Register(eng))
	return eng, fc
}

func await(t *testing.T, eng api.Engine, id string) *api.WorkflowInstance {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	inst, err := eng.Await(ctx, id)
	require.NoError(t, err)
	return inst
}
