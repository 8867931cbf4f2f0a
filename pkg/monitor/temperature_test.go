package monitor_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/petrijr/tempalert/pkg/api"
	"github.com/petrijr/tempalert/pkg/monitor"
)

var temperatureInput = monitor.TemperatureInput{
	ThresholdDelta:      5,
	ThresholdTimeWindow: 15 * time.Second,
	ResponseWaitWindow:  20 * time.Second,
}

func (e *env) readings(t *testing.T, id string) []monitor.Reading {
	t.Helper()
	v, err := e.eng.Query(context.Background(), id, monitor.QueryCurrentReadings)
	require.NoError(t, err)
	return v.([]monitor.Reading)
}

// submit delivers a temperature reading and waits until it is in the log.
func (e *env) submit(t *testing.T, id string, v float64) {
	t.Helper()
	n := len(e.readings(t, id))
	e.signal(t, id, monitor.SignalTemperatureReading, v)
	require.Eventually(t, func() bool { return len(e.readings(t, id)) == n+1 }, 5*time.Second, time.Millisecond)
}

// failFirst makes activity fail on its first n attempts across all calls.
func (e *env) failFirst(activity string, n int) {
	calls := 0
	e.rec.hook(activity, func(ctx context.Context, attempt int) error {
		calls++
		if calls <= n {
			return errors.New("escalation mailer unavailable")
		}
		return nil
	})
}

func TestTemperature_DetectsRiseWithinWindow(t *testing.T) {
	e := newEnv(t)
	id := e.start(t, monitor.TemperatureEscalationWorkflow, "temp-1", temperatureInput)

	e.submit(t, id, 10)
	require.Equal(t, monitor.PhaseAccumulating, e.phase(t, id))

	e.clock.Step(5 * time.Second)
	e.submit(t, id, 16)
	e.waitForPhase(t, id, monitor.PhaseAwaitingResponse)

	calls := e.rec.find(id, monitor.ActivityEmailTransporter)
	require.Len(t, calls, 1)
	require.Equal(t, monitor.DefaultTransporterEmail, calls[0].Input)

	got := e.readings(t, id)
	require.Equal(t, []monitor.Reading{
		{Value: 10, At: testEpoch},
		{Value: 16, At: testEpoch.Add(5 * time.Second)},
	}, got)
}

func TestTemperature_RiseOutsideWindowDoesNotFire(t *testing.T) {
	e := newEnv(t)
	id := e.start(t, monitor.TemperatureEscalationWorkflow, "", temperatureInput)

	e.submit(t, id, 10)
	e.clock.Step(20 * time.Second)
	e.submit(t, id, 14)

	require.Equal(t, monitor.PhaseAccumulating, e.phase(t, id))
	require.Empty(t, e.rec.activities(id))

	// A later reading measured against 14 inside the window fires.
	e.clock.Step(10 * time.Second)
	e.submit(t, id, 19)
	e.waitForPhase(t, id, monitor.PhaseAwaitingResponse)
}

func TestTemperature_RepeatedReadingsDoNotTrigger(t *testing.T) {
	e := newEnv(t)
	id := e.start(t, monitor.TemperatureEscalationWorkflow, "", temperatureInput)

	for i := 0; i < 5; i++ {
		e.submit(t, id, 21.5)
		e.clock.Step(time.Second)
	}
	require.Equal(t, monitor.PhaseAccumulating, e.phase(t, id))
	require.Empty(t, e.rec.activities(id))
	require.Len(t, e.readings(t, id), 5)
}

func TestTemperature_QueryHasNoSideEffects(t *testing.T) {
	e := newEnv(t)
	id := e.start(t, monitor.TemperatureEscalationWorkflow, "", temperatureInput)

	e.submit(t, id, 10)
	for i := 0; i < 10; i++ {
		require.Len(t, e.readings(t, id), 1)
	}
	require.Equal(t, monitor.PhaseAccumulating, e.phase(t, id))

	// Mutating a query result does not touch the log.
	e.readings(t, id)[0].Value = 1000
	e.clock.Step(5 * time.Second)
	e.submit(t, id, 15)
	e.waitForPhase(t, id, monitor.PhaseAwaitingResponse)
	require.Equal(t, 10.0, e.readings(t, id)[0].Value)
}

func TestTemperature_AckClosesIssue(t *testing.T) {
	e := newEnv(t)
	id := e.start(t, monitor.TemperatureEscalationWorkflow, "", temperatureInput)

	e.submit(t, id, 10)
	e.submit(t, id, 30)
	e.waitForPhase(t, id, monitor.PhaseAwaitingResponse)
	e.waitForTimer(t)

	e.clock.Step(19 * time.Second)
	e.signal(t, id, monitor.SignalAcknowledge, nil)

	done := e.await(t, id)
	require.Equal(t, api.StatusCompleted, done.Status)
	require.Equal(t, monitor.PhaseClosed, done.Phase)
	require.Equal(t, []string{monitor.ActivityEmailTransporter, monitor.ActivityCloseIssue}, e.rec.activities(id))
	require.False(t, e.clock.HasWaiters())

	// The log is still readable after the instance closed.
	require.Len(t, e.readings(t, id), 2)
}

func TestTemperature_AckBeforeDetectionClosesIssue(t *testing.T) {
	e := newEnv(t)
	id := e.start(t, monitor.TemperatureEscalationWorkflow, "", temperatureInput)

	e.signal(t, id, monitor.SignalAcknowledge, nil)
	e.submit(t, id, 10)
	e.submit(t, id, 30)

	done := e.await(t, id)
	require.Equal(t, api.StatusCompleted, done.Status)
	require.Equal(t, monitor.PhaseClosed, done.Phase)
	require.Equal(t, []string{monitor.ActivityEmailTransporter, monitor.ActivityCloseIssue}, e.rec.activities(id))
	require.False(t, e.clock.HasWaiters(), "no response timer is armed")
}

func TestTemperature_AckDuringTransporterEmailClosesIssue(t *testing.T) {
	e := newEnv(t)
	emailing := make(chan struct{})
	release := make(chan struct{})
	e.rec.hook(monitor.ActivityEmailTransporter, func(ctx context.Context, attempt int) error {
		close(emailing)
		<-release
		return nil
	})
	id := e.start(t, monitor.TemperatureEscalationWorkflow, "", temperatureInput)

	e.submit(t, id, 10)
	e.submit(t, id, 30)
	<-emailing
	e.signal(t, id, monitor.SignalAcknowledge, nil)
	e.waitForHandled(t, id, 3)
	close(release)

	done := e.await(t, id)
	require.Equal(t, monitor.PhaseClosed, done.Phase)
	require.Empty(t, e.rec.find(id, monitor.ActivityNotifyEscalationGroup))
}

func TestTemperature_EscalatesWithFlakyGroupNotification(t *testing.T) {
	e := newEnv(t)
	e.failFirst(monitor.ActivityNotifyEscalationGroup, 2)
	id := e.start(t, monitor.TemperatureEscalationWorkflow, "", temperatureInput)

	e.submit(t, id, 10)
	e.submit(t, id, 16)
	e.waitForPhase(t, id, monitor.PhaseAwaitingResponse)
	e.waitForTimer(t)
	e.clock.Step(temperatureInput.ResponseWaitWindow)

	// Attempt 1 fails; backoff 5s.
	e.waitForPhase(t, id, monitor.PhaseEscalated)
	e.waitForTimer(t)
	e.clock.Step(5 * time.Second)

	// Attempt 2 fails; backoff doubles to 10s.
	require.Eventually(t, func() bool {
		events, err := e.eng.(api.HistoryReader).ListEvents(context.Background(), id)
		if err != nil {
			return false
		}
		failed := 0
		for _, ev := range events {
			if ev.Type == api.EventActivityFailed {
				failed++
			}
		}
		return failed == 2 && e.clock.HasWaiters()
	}, 5*time.Second, time.Millisecond)
	e.clock.Step(10 * time.Second)

	done := e.await(t, id)
	require.Equal(t, api.StatusCompleted, done.Status)
	require.Equal(t, []string{
		monitor.ActivityEmailTransporter,
		monitor.ActivityNotifyEscalationGroup,
		monitor.ActivityTextEscalationGroup,
		monitor.ActivityCallTransporter,
	}, e.rec.activities(id))

	notify := e.rec.find(id, monitor.ActivityNotifyEscalationGroup)
	require.Equal(t, 3, notify[0].Attempt)
	require.Equal(t, monitor.DefaultEscalationEmails, notify[0].Input)
	require.Equal(t, monitor.DefaultEscalationPhones, e.rec.find(id, monitor.ActivityTextEscalationGroup)[0].Input)
	require.Equal(t, monitor.DefaultTransporterPhone, e.rec.find(id, monitor.ActivityCallTransporter)[0].Input)
}

func TestTemperature_EscalationAbortsWhenRetriesExhausted(t *testing.T) {
	e := newEnv(t)
	e.failFirst(monitor.ActivityNotifyEscalationGroup, 2)

	in := temperatureInput
	in.EscalationRetry = api.Retry(2).WithExponentialBackoff(5*time.Second, 2, 30*time.Second).Policy()
	id := e.start(t, monitor.TemperatureEscalationWorkflow, "", in)

	e.submit(t, id, 10)
	e.submit(t, id, 16)
	e.waitForPhase(t, id, monitor.PhaseAwaitingResponse)
	e.waitForTimer(t)
	e.clock.Step(in.ResponseWaitWindow)

	e.waitForPhase(t, id, monitor.PhaseEscalated)
	e.waitForTimer(t)
	e.clock.Step(5 * time.Second)

	done := e.await(t, id)
	require.Equal(t, api.StatusFailed, done.Status)
	ae, ok := api.IsActivityError(done.Err)
	require.True(t, ok)
	require.Equal(t, monitor.ActivityNotifyEscalationGroup, ae.Activity)
	require.Equal(t, 2, ae.Attempts)

	require.Empty(t, e.rec.find(id, monitor.ActivityTextEscalationGroup))
	require.Empty(t, e.rec.find(id, monitor.ActivityCallTransporter))
}

func TestTemperature_CustomContacts(t *testing.T) {
	e := newEnv(t)
	in := temperatureInput
	in.TransporterEmail = "ops@example.org"
	in.TransporterPhone = "+15559990000"
	in.EscalationEmails = []string{"lead@example.org"}
	in.EscalationPhones = []string{"+15559990001"}
	id := e.start(t, monitor.TemperatureEscalationWorkflow, "", &in)

	e.submit(t, id, 0)
	e.submit(t, id, 50)
	e.waitForPhase(t, id, monitor.PhaseAwaitingResponse)
	e.waitForTimer(t)
	e.clock.Step(in.ResponseWaitWindow)

	require.Equal(t, api.StatusCompleted, e.await(t, id).Status)
	require.Equal(t, "ops@example.org", e.rec.find(id, monitor.ActivityEmailTransporter)[0].Input)
	require.Equal(t, []string{"lead@example.org"}, e.rec.find(id, monitor.ActivityNotifyEscalationGroup)[0].Input)
	require.Equal(t, "+15559990000", e.rec.find(id, monitor.ActivityCallTransporter)[0].Input)
}
