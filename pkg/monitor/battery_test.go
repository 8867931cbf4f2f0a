package monitor_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/petrijr/tempalert/pkg/api"
	"github.com/petrijr/tempalert/pkg/monitor"
)

func TestBatteryControl_ActsOnceBelowThreshold(t *testing.T) {
	e := newEnv(t)
	id := e.start(t, monitor.BatteryControlWorkflow, "battery-1", monitor.BatteryInput{ThresholdPercentage: 20})
	e.waitForPhase(t, id, monitor.PhaseIdle)

	e.signal(t, id, monitor.SignalBatteryReading, 85.0)
	e.signal(t, id, monitor.SignalBatteryReading, 20.0)
	e.waitForHandled(t, id, 2)
	require.Equal(t, monitor.PhaseWatching, e.phase(t, id))
	require.Empty(t, e.rec.activities(id))

	e.signal(t, id, monitor.SignalBatteryReading, 19.5)
	done := e.await(t, id)
	require.Equal(t, api.StatusCompleted, done.Status)
	require.Equal(t, monitor.PhaseDone, done.Phase)

	calls := e.rec.find(id, monitor.ActivityUpdateTransmissionInterval)
	require.Len(t, calls, 1)
	require.Equal(t, monitor.ExtendedIntervalMinutes, calls[0].Input)

	err := e.eng.Signal(context.Background(), id, monitor.SignalBatteryReading, 5.0)
	require.ErrorIs(t, err, api.ErrInstanceClosed)
	require.Len(t, e.rec.find(id, monitor.ActivityUpdateTransmissionInterval), 1)
}

func TestBatteryControl_ReadingsDuringActionDoNotReact(t *testing.T) {
	e := newEnv(t)
	release := make(chan struct{})
	e.rec.hook(monitor.ActivityUpdateTransmissionInterval, func(ctx context.Context, attempt int) error {
		<-release
		return nil
	})

	id := e.start(t, monitor.BatteryControlWorkflow, "", &monitor.BatteryInput{ThresholdPercentage: 50})
	e.signal(t, id, monitor.SignalBatteryReading, 10.0)
	e.waitForPhase(t, id, monitor.PhaseActed)

	e.signal(t, id, monitor.SignalBatteryReading, 5.0)
	e.signal(t, id, monitor.SignalBatteryReading, 1.0)
	e.waitForHandled(t, id, 3)
	close(release)

	require.Equal(t, api.StatusCompleted, e.await(t, id).Status)
	require.Len(t, e.rec.find(id, monitor.ActivityUpdateTransmissionInterval), 1)
}

func TestBatteryControl_ActionFailureFailsInstance(t *testing.T) {
	e := newEnv(t)
	boom := errors.New("device unreachable")
	e.rec.hook(monitor.ActivityUpdateTransmissionInterval, func(ctx context.Context, attempt int) error {
		return boom
	})

	id := e.start(t, monitor.BatteryControlWorkflow, "", monitor.BatteryInput{ThresholdPercentage: 20})
	e.signal(t, id, monitor.SignalBatteryReading, 3.0)

	done := e.await(t, id)
	require.Equal(t, api.StatusFailed, done.Status)
	require.ErrorIs(t, done.Err, boom)

	ae, ok := api.IsActivityError(done.Err)
	require.True(t, ok)
	require.Equal(t, 1, ae.Attempts)
}

func TestBatteryControl_RejectsBadInput(t *testing.T) {
	e := newEnv(t)
	id := e.start(t, monitor.BatteryControlWorkflow, "", "twenty")
	done := e.await(t, id)
	require.Equal(t, api.StatusFailed, done.Status)
	require.ErrorContains(t, done.Err, "workflow input")
}
