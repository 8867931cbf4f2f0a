package monitor

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/petrijr/tempalert/pkg/api"
)

// LightZoneInput configures a Light & Safe-Zone instance.
type LightZoneInput struct {
	// LightMaxThreshold is the light level that must be strictly exceeded.
	LightMaxThreshold float64
	// BatteryMinThreshold is passed to the Battery Control child.
	BatteryMinThreshold float64

	// BatteryChildID addresses the Battery Control child. Defaults to
	// DefaultBatteryChildID.
	BatteryChildID string
	// ResponseTimeout is how long to wait for an acknowledgement. Defaults
	// to 5m.
	ResponseTimeout time.Duration
	// ActivityTimeout bounds each action. Defaults to 20s.
	ActivityTimeout time.Duration

	NotificationEmail    string
	NotificationTemplate string
}

// Light & Safe-Zone defaults.
const (
	DefaultBatteryChildID       = "battery-control-child"
	DefaultResponseTimeout      = 5 * time.Minute
	DefaultNotificationEmail    = "example@tive.com"
	DefaultNotificationTemplate = "TemplateX"

	// ShortenedIntervalMinutes is the reporting interval while tracking.
	ShortenedIntervalMinutes = 5
)

func (in LightZoneInput) withDefaults() LightZoneInput {
	if in.BatteryChildID == "" {
		in.BatteryChildID = DefaultBatteryChildID
	}
	if in.ResponseTimeout <= 0 {
		in.ResponseTimeout = DefaultResponseTimeout
	}
	if in.ActivityTimeout <= 0 {
		in.ActivityTimeout = DefaultActivityTimeout
	}
	if in.NotificationEmail == "" {
		in.NotificationEmail = DefaultNotificationEmail
	}
	if in.NotificationTemplate == "" {
		in.NotificationTemplate = DefaultNotificationTemplate
	}
	return in
}

type lightZoneState struct {
	light  *float64
	isSafe *bool
	ack    *api.Latch
}

func (s *lightZoneState) triggered(threshold float64) bool {
	return s.light != nil && s.isSafe != nil && *s.light > threshold && !*s.isSafe
}

// LightAndSafeZone waits until the light level exceeds its threshold while
// the device is outside the safe zone, starts tracking, spawns a Battery
// Control child and then waits for an acknowledgement.
//
// The result is a *bool carrying the acknowledged seal state, or nil when
// nobody answered before ResponseTimeout.
func LightAndSafeZone(ctx api.Context, input any) (any, error) {
	in, err := inputAs[LightZoneInput](input)
	if err != nil {
		return nil, err
	}
	in = in.withDefaults()

	st := &lightZoneState{}
	ctx.SetSignalHandler(SignalLightReading, api.SignalHandlerFor(func(v float64) {
		st.light = &v
	}))
	ctx.SetSignalHandler(SignalSafeZoneStatus, api.SignalHandlerFor(func(safe bool) {
		st.isSafe = &safe
	}))
	ctx.SetSignalHandler(SignalAcknowledge, api.SignalHandlerFor(func(sealBroken bool) {
		if st.ack != nil {
			st.ack.Fire(sealBroken)
		}
	}))

	ctx.SetPhase(PhaseAwaitingTrigger)
	if err := ctx.WaitUntil(func() bool { return st.triggered(in.LightMaxThreshold) }); err != nil {
		return nil, err
	}

	ctx.SetPhase(PhasePreparing)
	ctx.Logger().Info("light and zone trigger",
		slog.Float64("light", *st.light),
		slog.Float64("threshold", in.LightMaxThreshold),
	)

	opts := api.ActivityOptions{StartToCloseTimeout: in.ActivityTimeout}
	steps := []struct {
		activity string
		input    any
	}{
		{ActivityUpdateTransmissionInterval, ShortenedIntervalMinutes},
		{ActivityActivateGPS, nil},
		{ActivitySendEmail, EmailRequest{Recipient: in.NotificationEmail, TemplateID: in.NotificationTemplate}},
	}
	for _, s := range steps {
		if _, err := ctx.ExecuteActivity(s.activity, s.input, opts); err != nil {
			return nil, fmt.Errorf("prepare: %w", err)
		}
	}

	child, err := ctx.StartChild(BatteryControlWorkflow, BatteryInput{
		ThresholdPercentage: in.BatteryMinThreshold,
		ActivityTimeout:     in.ActivityTimeout,
	}, api.ChildOptions{ID: in.BatteryChildID})
	if err != nil {
		return nil, err
	}
	ctx.Logger().Info("battery control started", slog.String("child_id", child.ID))

	ctx.SetPhase(PhaseAwaitingResponse)
	st.ack = api.NewLatch()
	outcome, err := ctx.Race(st.ack, in.ResponseTimeout)
	if err != nil {
		return nil, err
	}

	if outcome == api.RaceDeadlineExceeded {
		ctx.SetPhase(PhaseEscalating)
		ctx.Logger().Warn("no response before deadline", slog.Duration("timeout", in.ResponseTimeout))
		if _, err := ctx.ExecuteActivity(ActivityCallEscalationContact, nil, opts); err != nil {
			return nil, fmt.Errorf("escalate: %w", err)
		}
		ctx.SetPhase(PhaseDone)
		return nil, nil
	}

	sealBroken := st.ack.Value().(bool)
	if sealBroken {
		ctx.SetPhase(PhaseEscalating)
		if _, err := ctx.ExecuteActivity(ActivityCallEscalationContact, nil, opts); err != nil {
			return nil, fmt.Errorf("escalate: %w", err)
		}
	} else {
		ctx.SetPhase(PhaseResolving)
		for _, activity := range []string{ActivityCloseStatus, ActivityRevertTransmission, ActivityDeactivateGPS} {
			if _, err := ctx.ExecuteActivity(activity, nil, opts); err != nil {
				return nil, fmt.Errorf("resolve: %w", err)
			}
		}
	}

	ctx.SetPhase(PhaseDone)
	return &sealBroken, nil
}
