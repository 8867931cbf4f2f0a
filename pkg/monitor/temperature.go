package monitor

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/petrijr/tempalert/pkg/api"
)

// TemperatureInput configures a Temperature Escalation instance.
type TemperatureInput struct {
	// ThresholdDelta is the minimum rise that counts as an excursion.
	ThresholdDelta float64
	// ThresholdTimeWindow is how far back from the latest reading the rise
	// is measured.
	ThresholdTimeWindow time.Duration
	// ResponseWaitWindow is how long the transporter has to acknowledge.
	ResponseWaitWindow time.Duration

	TransporterEmail string
	TransporterPhone string
	EscalationEmails []string
	EscalationPhones []string

	// EscalationRetry applies to the escalation group email. Defaults to
	// DefaultEscalationRetry.
	EscalationRetry *api.RetryPolicy
	// ActivityTimeout bounds the transporter email. Defaults to 20s.
	ActivityTimeout time.Duration
}

// Temperature Escalation defaults.
const (
	DefaultTransporterEmail = "transporter@tive.com"
	DefaultTransporterPhone = "+15551234567"
)

var (
	DefaultEscalationEmails = []string{"emma@example.com", "dawn@example.com", "bo@example.com"}
	DefaultEscalationPhones = []string{"+15550001111", "+15550002222", "+15550003333"}
)

// DefaultEscalationRetry returns 3 attempts backing off from 5s, capped at
// 30s.
func DefaultEscalationRetry() *api.RetryPolicy {
	return api.Retry(3).WithExponentialBackoff(5*time.Second, 2, 30*time.Second).Policy()
}

func (in TemperatureInput) withDefaults() TemperatureInput {
	if in.TransporterEmail == "" {
		in.TransporterEmail = DefaultTransporterEmail
	}
	if in.TransporterPhone == "" {
		in.TransporterPhone = DefaultTransporterPhone
	}
	if len(in.EscalationEmails) == 0 {
		in.EscalationEmails = append([]string(nil), DefaultEscalationEmails...)
	}
	if len(in.EscalationPhones) == 0 {
		in.EscalationPhones = append([]string(nil), DefaultEscalationPhones...)
	}
	if in.EscalationRetry == nil {
		in.EscalationRetry = DefaultEscalationRetry()
	}
	if in.ActivityTimeout <= 0 {
		in.ActivityTimeout = DefaultActivityTimeout
	}
	return in
}

// TemperatureEscalation accumulates temperature readings until one rises
// ThresholdDelta above the oldest reading within ThresholdTimeWindow, emails
// the transporter and waits ResponseWaitWindow for an acknowledgement. Without
// one it escalates: email the escalation group (retried), text it, then call
// the transporter. An acknowledgement received at any point before the
// deadline closes the issue.
func TemperatureEscalation(ctx api.Context, input any) (any, error) {
	in, err := inputAs[TemperatureInput](input)
	if err != nil {
		return nil, err
	}
	in = in.withDefaults()

	// Armed for the whole run: an acknowledgement sent before detection
	// still closes the issue.
	var (
		log ReadingLog
		ack = api.NewLatch()
	)
	ctx.SetSignalHandler(SignalTemperatureReading, api.SignalHandlerFor(func(v float64) {
		log.Append(Reading{Value: v, At: ctx.Now()})
	}))
	ctx.SetSignalHandler(SignalAcknowledge, func(any) error {
		ack.Fire(struct{}{})
		return nil
	})
	ctx.SetQueryHandler(QueryCurrentReadings, func() (any, error) {
		return log.Snapshot(), nil
	})

	ctx.SetPhase(PhaseAccumulating)
	seen := 0
	for {
		if err := ctx.WaitUntil(func() bool { return log.Len() > seen }); err != nil {
			return nil, err
		}
		seen = log.Len()

		d, fired := log.Detect(in.ThresholdDelta, in.ThresholdTimeWindow)
		if fired {
			ctx.Logger().Info("temperature excursion",
				slog.Float64("delta", d.Delta),
				slog.Float64("from", d.Candidate.Value),
				slog.Float64("to", d.Latest.Value),
				slog.Duration("window", in.ThresholdTimeWindow),
			)
			break
		}
		latest, _ := log.Latest()
		ctx.Logger().Debug("no significant increase", slog.Float64("latest", latest.Value))
	}

	ctx.SetPhase(PhaseDetected)
	if _, err := ctx.ExecuteActivity(ActivityEmailTransporter, in.TransporterEmail, api.ActivityOptions{
		StartToCloseTimeout: in.ActivityTimeout,
	}); err != nil {
		return nil, fmt.Errorf("notify transporter: %w", err)
	}

	ctx.SetPhase(PhaseAwaitingResponse)
	outcome, err := ctx.Race(ack, in.ResponseWaitWindow)
	if err != nil {
		return nil, err
	}

	if outcome == api.RaceSignalled {
		if _, err := ctx.ExecuteActivity(ActivityCloseIssue, nil, api.ActivityOptions{
			StartToCloseTimeout: DefaultCloseIssueTimeout,
		}); err != nil {
			return nil, fmt.Errorf("close issue: %w", err)
		}
		ctx.SetPhase(PhaseClosed)
		return nil, nil
	}

	ctx.SetPhase(PhaseEscalated)
	ctx.Logger().Warn("no response from transporter, escalating",
		slog.Duration("waited", in.ResponseWaitWindow))

	if _, err := ctx.ExecuteActivity(ActivityNotifyEscalationGroup, in.EscalationEmails, api.ActivityOptions{
		StartToCloseTimeout: DefaultEscalationTimeout,
		RetryPolicy:         in.EscalationRetry,
	}); err != nil {
		return nil, fmt.Errorf("escalate: %w", err)
	}
	if _, err := ctx.ExecuteActivity(ActivityTextEscalationGroup, in.EscalationPhones, api.ActivityOptions{
		StartToCloseTimeout: DefaultEscalationTimeout,
	}); err != nil {
		return nil, fmt.Errorf("escalate: %w", err)
	}
	if _, err := ctx.ExecuteActivity(ActivityCallTransporter, in.TransporterPhone, api.ActivityOptions{
		StartToCloseTimeout: DefaultEscalationTimeout,
	}); err != nil {
		return nil, fmt.Errorf("escalate: %w", err)
	}
	return nil, nil
}
