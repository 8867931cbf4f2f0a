package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/petrijr/tempalert/pkg/api"
)

type stepResult int

const (
	stepIdle stepResult = iota
	stepSignal
	stepQuery
	stepWake
)

// workflowContext implements api.Context for one instance. All methods run
// on the instance goroutine.
type workflowContext struct {
	context.Context

	eng    *engineImpl
	inst   *instance
	info   api.InstanceInfo
	logger *slog.Logger
}

var _ api.Context = (*workflowContext)(nil)

func newWorkflowContext(e *engineImpl, inst *instance) *workflowContext {
	snap := inst.snapshot()
	return &workflowContext{
		Context: e.baseCtx,
		eng:     e,
		inst:    inst,
		info: api.InstanceInfo{
			InstanceID: snap.ID,
			Workflow:   snap.Name,
			ParentID:   snap.ParentID,
		},
		logger: e.logger.With(
			slog.String("workflow", snap.Name),
			slog.String("instance_id", snap.ID),
		),
	}
}

func (c *workflowContext) Info() api.InstanceInfo { return c.info }

func (c *workflowContext) Now() time.Time { return c.eng.clock.Now() }

func (c *workflowContext) Logger() *slog.Logger { return c.logger }

func (c *workflowContext) SetPhase(phase string) {
	snap, changed := c.inst.update(func(s *api.WorkflowInstance) bool {
		if s.Phase == phase {
			return false
		}
		s.Phase = phase
		return true
	})
	if !changed {
		return
	}
	c.eng.persist(snap)
	c.eng.record(c.inst, api.EventPhaseChanged, phase)
	c.logger.Debug("phase", slog.String("phase", phase))
}

func (c *workflowContext) SetSignalHandler(name string, h api.SignalHandler) {
	if h == nil {
		delete(c.inst.signalHandlers, name)
		return
	}
	c.inst.signalHandlers[name] = h
}

func (c *workflowContext) SetQueryHandler(name string, h api.QueryHandler) {
	if h == nil {
		delete(c.inst.queryHandlers, name)
		return
	}
	c.inst.queryHandlers[name] = h
}

func (c *workflowContext) WaitUntil(cond func() bool) error {
	if cond() {
		return nil
	}

	c.setStatus(api.StatusWaiting)
	defer c.setStatus(api.StatusRunning)

	for {
		res, err := c.step(nil)
		if err != nil {
			return err
		}
		if res == stepSignal && cond() {
			return nil
		}
	}
}

func (c *workflowContext) Race(l *api.Latch, d time.Duration) (api.RaceOutcome, error) {
	if l.Fired() {
		return api.RaceSignalled, nil
	}

	c.setStatus(api.StatusWaiting)
	defer c.setStatus(api.StatusRunning)

	if d <= 0 {
		c.drainSignals()
		if l.Fired() {
			return api.RaceSignalled, nil
		}
		l.Cancel()
		return api.RaceDeadlineExceeded, nil
	}

	fired, stop := c.startTimer(d)
	for {
		if l.Fired() {
			stop()
			c.eng.record(c.inst, api.EventTimerCancelled, d.String())
			return api.RaceSignalled, nil
		}

		res, err := c.step(fired)
		if err != nil {
			stop()
			l.Cancel()
			return 0, err
		}
		if res != stepWake {
			continue
		}

		// Signals queued before the deadline still win.
		c.drainSignals()
		if l.Fired() {
			return api.RaceSignalled, nil
		}
		l.Cancel()
		c.eng.record(c.inst, api.EventTimerFired, d.String())
		return api.RaceDeadlineExceeded, nil
	}
}

func (c *workflowContext) Sleep(d time.Duration) error {
	if d <= 0 {
		return nil
	}

	fired, stop := c.startTimer(d)
	for {
		res, err := c.step(fired)
		if err != nil {
			stop()
			return err
		}
		if res == stepWake {
			c.eng.record(c.inst, api.EventTimerFired, d.String())
			return nil
		}
	}
}

func (c *workflowContext) StartChild(workflow string, input any, opts api.ChildOptions) (api.ChildRef, error) {
	if err := c.Err(); err != nil {
		return api.ChildRef{}, err
	}
	child, err := c.eng.start(workflow, opts.ID, input, c.info.InstanceID)
	if err != nil {
		return api.ChildRef{}, fmt.Errorf("start child %s: %w", workflow, err)
	}
	c.eng.record(c.inst, api.EventChildStarted, child.id)
	return api.ChildRef{ID: child.id, Workflow: workflow}, nil
}

// startTimer arms a timer on the engine clock. The returned channel is closed
// when it fires; stop releases it early.
func (c *workflowContext) startTimer(d time.Duration) (<-chan struct{}, func()) {
	t := c.eng.clock.NewTimer(d)
	c.eng.record(c.inst, api.EventTimerStarted, d.String())

	fired := make(chan struct{})
	quit := make(chan struct{})
	go func() {
		select {
		case <-t.C():
			close(fired)
		case <-quit:
		}
	}()

	var stopped bool
	return fired, func() {
		if stopped {
			return
		}
		stopped = true
		t.Stop()
		close(quit)
	}
}

// step handles at most one pending signal or query, or observes wake.
// Queued signals take priority over everything else.
func (c *workflowContext) step(wake <-chan struct{}) (stepResult, error) {
	if env, ok := c.inst.mailbox.pop(); ok {
		c.dispatch(env)
		return stepSignal, nil
	}

	select {
	case <-c.Done():
		return stepIdle, c.Err()
	case <-c.inst.mailbox.notify:
		if env, ok := c.inst.mailbox.pop(); ok {
			c.dispatch(env)
			return stepSignal, nil
		}
		return stepIdle, nil
	case req := <-c.inst.queries:
		v, err := c.inst.answer(req.name)
		req.reply <- queryResult{value: v, err: err}
		return stepQuery, nil
	case <-wake:
		return stepWake, nil
	}
}

func (c *workflowContext) drainSignals() {
	for {
		env, ok := c.inst.mailbox.pop()
		if !ok {
			return
		}
		c.dispatch(env)
	}
}

func (c *workflowContext) dispatch(env envelope) {
	err := c.handleSignal(env)
	snap := c.inst.snapshot()
	c.eng.observer.OnSignal(c, snap, env.name, err)

	if err != nil {
		c.eng.record(c.inst, api.EventSignalDropped, env.name+": "+err.Error())
		c.logger.Warn("signal dropped", slog.String("signal", env.name), slog.Any("error", err))
		return
	}
	c.eng.record(c.inst, api.EventSignalHandled, env.name)
}

func (c *workflowContext) handleSignal(env envelope) (err error) {
	h, ok := c.inst.signalHandlers[env.name]
	if !ok {
		return fmt.Errorf("no handler for signal %q", env.name)
	}
	defer func() {
		if r := recover(); r != nil {
			err = &api.PanicError{Value: r}
		}
	}()
	return h(env.payload)
}

func (c *workflowContext) setStatus(status api.Status) {
	snap, changed := c.inst.update(func(s *api.WorkflowInstance) bool {
		if s.Status == status {
			return false
		}
		s.Status = status
		return true
	})
	if changed {
		c.eng.persist(snap)
	}
}
