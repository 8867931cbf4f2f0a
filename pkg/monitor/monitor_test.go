package monitor_test

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	clock_testing "k8s.io/utils/clock/testing"

	"github.com/petrijr/tempalert/internal/engine"
	"github.com/petrijr/tempalert/internal/persistence"
	"github.com/petrijr/tempalert/pkg/api"
	"github.com/petrijr/tempalert/pkg/monitor"
)

var testEpoch = time.Date(2024, 7, 1, 12, 0, 0, 0, time.UTC)

var allActivities = []string{
	monitor.ActivityUpdateTransmissionInterval,
	monitor.ActivityRevertTransmission,
	monitor.ActivityActivateGPS,
	monitor.ActivityDeactivateGPS,
	monitor.ActivitySendEmail,
	monitor.ActivityGetBatteryLevel,
	monitor.ActivityCallEscalationContact,
	monitor.ActivityCloseStatus,
	monitor.ActivityEmailTransporter,
	monitor.ActivityCloseIssue,
	monitor.ActivityNotifyEscalationGroup,
	monitor.ActivityTextEscalationGroup,
	monitor.ActivityCallTransporter,
}

type call struct {
	InstanceID string
	Activity   string
	Input      any
	Attempt    int
}

// recorder stands in for the action interface. Hooks run before a call is
// recorded as successful and may fail it.
type recorder struct {
	mu    sync.Mutex
	calls []call
	hooks map[string]func(ctx context.Context, attempt int) error
}

func (r *recorder) hook(activity string, fn func(ctx context.Context, attempt int) error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.hooks == nil {
		r.hooks = make(map[string]func(context.Context, int) error)
	}
	r.hooks[activity] = fn
}

func (r *recorder) register(t *testing.T, eng api.Engine) {
	t.Helper()
	for _, name := range allActivities {
		name := name
		require.NoError(t, eng.RegisterActivity(name, func(ctx context.Context, input any) (any, error) {
			info, _ := api.ActivityInfoFromContext(ctx)

			r.mu.Lock()
			h := r.hooks[name]
			r.mu.Unlock()
			if h != nil {
				if err := h(ctx, info.Attempt); err != nil {
					return nil, err
				}
			}

			r.mu.Lock()
			r.calls = append(r.calls, call{InstanceID: info.InstanceID, Activity: name, Input: input, Attempt: info.Attempt})
			r.mu.Unlock()
			return nil, nil
		}))
	}
}

// activities returns the successful activity names for instance id, in order.
func (r *recorder) activities(id string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []string
	for _, c := range r.calls {
		if c.InstanceID == id {
			out = append(out, c.Activity)
		}
	}
	return out
}

func (r *recorder) find(id, activity string) []call {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []call
	for _, c := range r.calls {
		if c.InstanceID == id && c.Activity == activity {
			out = append(out, c)
		}
	}
	return out
}

type env struct {
	eng   api.Engine
	clock *clock_testing.FakeClock
	rec   *recorder
}

func newEnv(t *testing.T) *env {
	t.Helper()

	fc := clock_testing.NewFakeClock(testEpoch)
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

	require.NoError(t, monitor.Register(eng))
	rec := &recorder{}
	rec.register(t, eng)
	return &env{eng: eng, clock: fc, rec: rec}
}

func (e *env) start(t *testing.T, workflow, id string, input any) string {
	t.Helper()
	inst, err := e.eng.Start(context.Background(), workflow, api.StartOptions{ID: id}, input)
	require.NoError(t, err)
	return inst.ID
}

func (e *env) signal(t *testing.T, id, name string, payload any) {
	t.Helper()
	require.NoError(t, e.eng.Signal(context.Background(), id, name, payload))
}

func (e *env) await(t *testing.T, id string) *api.WorkflowInstance {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	inst, err := e.eng.Await(ctx, id)
	require.NoError(t, err)
	return inst
}

func (e *env) waitForTimer(t *testing.T) {
	t.Helper()
	require.Eventually(t, e.clock.HasWaiters, 5*time.Second, time.Millisecond, "no timer armed")
}

// waitForHandled waits until id has handled n signals.
func (e *env) waitForHandled(t *testing.T, id string, n int) {
	t.Helper()
	require.Eventually(t, func() bool {
		events, err := e.eng.(api.HistoryReader).ListEvents(context.Background(), id)
		if err != nil {
			return false
		}
		handled := 0
		for _, ev := range events {
			if ev.Type == api.EventSignalHandled {
				handled++
			}
		}
		return handled >= n
	}, 5*time.Second, time.Millisecond, "instance %s never handled %d signals", id, n)
}

func (e *env) phase(t *testing.T, id string) string {
	t.Helper()
	inst, err := e.eng.GetInstance(context.Background(), id)
	require.NoError(t, err)
	return inst.Phase
}

func (e *env) waitForPhase(t *testing.T, id, phase string) {
	t.Helper()
	require.Eventually(t, func() bool {
		inst, err := e.eng.GetInstance(context.Background(), id)
		return err == nil && inst.Phase == phase
	}, 5*time.Second, time.Millisecond, "instance %s never reached phase %s", id, phase)
}
