package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/petrijr/tempalert/pkg/api"
)

// ExecuteActivity runs the named activity until it succeeds or the policy's
// attempt budget is spent. Each attempt is bounded by StartToCloseTimeout on
// the wall clock; backoff between attempts uses the engine clock. Signals and
// queries keep being handled while an attempt is in flight.
func (c *workflowContext) ExecuteActivity(name string, input any, opts api.ActivityOptions) (any, error) {
	fn, err := c.eng.registry.activity(name)
	if err != nil {
		return nil, err
	}

	policy := opts.RetryPolicy
	attempts := policy.Attempts()

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		out, err := c.runAttempt(name, fn, input, opts.StartToCloseTimeout, attempt)
		if err == nil {
			return out, nil
		}
		if ctxErr := c.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		lastErr = err

		if attempt < attempts {
			delay := policy.Delay(attempt)
			c.logger.Info("activity retry",
				slog.String("activity", name),
				slog.Int("attempt", attempt),
				slog.Duration("backoff", delay),
				slog.Any("error", err),
			)
			if err := c.Sleep(delay); err != nil {
				return nil, err
			}
		}
	}

	return nil, &api.ActivityError{Activity: name, Attempts: attempts, Err: lastErr}
}

type attemptResult struct {
	out any
	err error
}

func (c *workflowContext) runAttempt(name string, fn api.ActivityFunc, input any, timeout time.Duration, attempt int) (any, error) {
	actx := api.WithActivityInfo(c.Context, api.ActivityInfo{
		InstanceID: c.info.InstanceID,
		Workflow:   c.info.Workflow,
		Activity:   name,
		Attempt:    attempt,
	})
	var cancel context.CancelFunc
	if timeout > 0 {
		actx, cancel = context.WithTimeout(actx, timeout)
	} else {
		actx, cancel = context.WithCancel(actx)
	}
	defer cancel()

	snap := c.inst.snapshot()
	c.eng.observer.OnActivityStart(c, snap, name, attempt)
	c.eng.record(c.inst, api.EventActivityStarted, fmt.Sprintf("%s attempt=%d", name, attempt))
	started := time.Now()

	var res attemptResult
	done := make(chan struct{})
	go func() {
		defer close(done)
		defer func() {
			if r := recover(); r != nil {
				res.err = &api.PanicError{Value: r}
			}
		}()
		res.out, res.err = fn(actx, input)
	}()

	wake := make(chan struct{})
	go func() {
		defer close(wake)
		select {
		case <-done:
		case <-actx.Done():
		}
	}()

	for {
		r, err := c.step(wake)
		if err != nil {
			return nil, err
		}
		if r == stepWake {
			break
		}
	}

	var out any
	var err error
	select {
	case <-done:
		out, err = res.out, res.err
	default:
		err = fmt.Errorf("%s attempt %d: %w", name, attempt, api.ErrActivityTimeout)
	}

	d := time.Since(started)
	c.eng.observer.OnActivityCompleted(c, snap, name, attempt, err, d)
	if err != nil {
		c.eng.record(c.inst, api.EventActivityFailed, fmt.Sprintf("%s attempt=%d: %v", name, attempt, err))
		return nil, err
	}
	c.eng.record(c.inst, api.EventActivityCompleted, fmt.Sprintf("%s attempt=%d", name, attempt))
	return out, nil
}
