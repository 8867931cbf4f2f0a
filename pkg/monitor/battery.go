package monitor

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/petrijr/tempalert/pkg/api"
)

// BatteryInput configures a Battery Control instance.
type BatteryInput struct {
	// ThresholdPercentage is the level the battery must drop strictly below.
	ThresholdPercentage float64
	// ActivityTimeout bounds the interval update. Defaults to 20s.
	ActivityTimeout time.Duration
}

// ExtendedIntervalMinutes is the reporting interval set on low battery.
const ExtendedIntervalMinutes = 20

func (in BatteryInput) withDefaults() BatteryInput {
	if in.ActivityTimeout <= 0 {
		in.ActivityTimeout = DefaultActivityTimeout
	}
	return in
}

// BatteryControl waits for a battery reading below the threshold, extends
// the reporting interval once and finishes. It stays in PhaseIdle until the
// first reading and in PhaseWatching until one drops below the threshold.
func BatteryControl(ctx api.Context, input any) (any, error) {
	in, err := inputAs[BatteryInput](input)
	if err != nil {
		return nil, err
	}
	in = in.withDefaults()

	// Idle until the first reading arrives.
	ctx.SetPhase(PhaseIdle)

	var level *float64
	ctx.SetSignalHandler(SignalBatteryReading, api.SignalHandlerFor(func(v float64) {
		if level == nil {
			ctx.SetPhase(PhaseWatching)
		}
		level = &v
	}))

	if err := ctx.WaitUntil(func() bool {
		return level != nil && *level < in.ThresholdPercentage
	}); err != nil {
		return nil, err
	}

	ctx.SetPhase(PhaseActed)
	ctx.Logger().Info("battery below threshold",
		slog.Float64("level", *level),
		slog.Float64("threshold", in.ThresholdPercentage),
	)
	if _, err := ctx.ExecuteActivity(ActivityUpdateTransmissionInterval, ExtendedIntervalMinutes, api.ActivityOptions{
		StartToCloseTimeout: in.ActivityTimeout,
	}); err != nil {
		return nil, fmt.Errorf("extend reporting interval: %w", err)
	}

	ctx.SetPhase(PhaseDone)
	return nil, nil
}

// inputAs accepts T or *T.
func inputAs[T any](input any) (T, error) {
	switch v := input.(type) {
	case T:
		return v, nil
	case *T:
		if v != nil {
			return *v, nil
		}
	}
	var zero T
	return zero, fmt.Errorf("workflow input: expected %T, got %T", zero, input)
}
