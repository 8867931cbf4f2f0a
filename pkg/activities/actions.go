package activities

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/petrijr/tempalert/pkg/api"
	"github.com/petrijr/tempalert/pkg/monitor"
)

// DefaultEscalationFailures is how many escalation group emails fail before
// the mailer recovers.
const DefaultEscalationFailures = 2

// BatteryLevel is what get-battery-level reports.
const BatteryLevel = 85.0

// Actions implements the device and notification actions the monitoring
// workflows call. Every action only logs what it would do.
//
// The escalation group mailer is simulated as flaky: the first
// EscalationFailures calls fail, later calls succeed. The counter is shared
// by all workflows using the same Actions.
type Actions struct {
	logger *slog.Logger

	mu                 sync.Mutex
	escalationFailures int
	escalationCalls    int
}

// Config configures Actions.
type Config struct {
	Logger *slog.Logger

	// EscalationFailures defaults to DefaultEscalationFailures. Negative
	// disables the simulated failures.
	EscalationFailures int
}

// New returns Actions with the default configuration.
func New() *Actions {
	return NewWithConfig(Config{})
}

// NewWithConfig returns Actions configured by cfg.
func NewWithConfig(cfg Config) *Actions {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	failures := cfg.EscalationFailures
	switch {
	case failures == 0:
		failures = DefaultEscalationFailures
	case failures < 0:
		failures = 0
	}
	return &Actions{logger: logger, escalationFailures: failures}
}

// Register registers every action under its monitor activity name.
func (a *Actions) Register(eng api.Engine) error {
	acts := map[string]api.ActivityFunc{
		monitor.ActivityUpdateTransmissionInterval: api.TypedActivity(a.UpdateTransmissionInterval),
		monitor.ActivityRevertTransmission:         noInput(a.RevertTransmissionSettings),
		monitor.ActivityActivateGPS:                noInput(a.ActivateGPS),
		monitor.ActivityDeactivateGPS:              noInput(a.DeactivateGPS),
		monitor.ActivitySendEmail:                  api.TypedActivity(a.SendEmail),
		monitor.ActivityGetBatteryLevel:            api.TypedActivity(a.GetBatteryLevel),
		monitor.ActivityCallEscalationContact:      noInput(a.CallEscalationContact),
		monitor.ActivityCloseStatus:                noInput(a.CloseStatus),
		monitor.ActivityEmailTransporter:           api.TypedActivity(a.EmailTransporter),
		monitor.ActivityCloseIssue:                 noInput(a.CloseIssue),
		monitor.ActivityNotifyEscalationGroup:      api.TypedActivity(a.NotifyEscalationGroup),
		monitor.ActivityTextEscalationGroup:        api.TypedActivity(a.TextEscalationGroup),
		monitor.ActivityCallTransporter:            api.TypedActivity(a.CallTransporter),
	}
	for name, fn := range acts {
		if err := eng.RegisterActivity(name, fn); err != nil {
			return fmt.Errorf("register %s: %w", name, err)
		}
	}
	return nil
}

func noInput(fn func(context.Context) (any, error)) api.ActivityFunc {
	return func(ctx context.Context, _ any) (any, error) {
		return fn(ctx)
	}
}

func (a *Actions) log(ctx context.Context, msg string, attrs ...any) {
	if info, ok := api.ActivityInfoFromContext(ctx); ok {
		attrs = append(attrs,
			slog.String("instance_id", info.InstanceID),
			slog.Int("attempt", info.Attempt),
		)
	}
	a.logger.InfoContext(ctx, msg, attrs...)
}

func (a *Actions) UpdateTransmissionInterval(ctx context.Context, minutes int) (any, error) {
	if minutes <= 0 {
		return nil, fmt.Errorf("transmission interval must be positive, got %d", minutes)
	}
	a.log(ctx, "updating transmission interval", slog.Int("minutes", minutes))
	return nil, nil
}

func (a *Actions) RevertTransmissionSettings(ctx context.Context) (any, error) {
	a.log(ctx, "reverting transmission interval to default")
	return nil, nil
}

func (a *Actions) ActivateGPS(ctx context.Context) (any, error) {
	a.log(ctx, "activating gps")
	return nil, nil
}

func (a *Actions) DeactivateGPS(ctx context.Context) (any, error) {
	a.log(ctx, "deactivating gps")
	return nil, nil
}

func (a *Actions) SendEmail(ctx context.Context, req monitor.EmailRequest) (any, error) {
	a.log(ctx, "sending email",
		slog.String("recipient", req.Recipient),
		slog.String("template", req.TemplateID),
	)
	return nil, nil
}

// GetBatteryLevel reports a fixed BatteryLevel. None of the monitor
// workflows call it; it is registered for callers outside them, such as
// tools polling a device through the engine.
func (a *Actions) GetBatteryLevel(ctx context.Context, _ struct{}) (float64, error) {
	a.log(ctx, "checking battery level")
	return BatteryLevel, nil
}

func (a *Actions) CallEscalationContact(ctx context.Context) (any, error) {
	a.log(ctx, "calling escalation contact")
	return nil, nil
}

func (a *Actions) CloseStatus(ctx context.Context) (any, error) {
	a.log(ctx, "closing alert status")
	return nil, nil
}

func (a *Actions) EmailTransporter(ctx context.Context, email string) (any, error) {
	a.log(ctx, "email sent to transporter", slog.String("email", email))
	return nil, nil
}

func (a *Actions) CloseIssue(ctx context.Context) (any, error) {
	a.log(ctx, "issue closed")
	return nil, nil
}

// NotifyEscalationGroup emails every address, failing while the simulated
// mailer is still down.
func (a *Actions) NotifyEscalationGroup(ctx context.Context, emails []string) (any, error) {
	a.mu.Lock()
	a.escalationCalls++
	call := a.escalationCalls
	a.mu.Unlock()

	if call <= a.escalationFailures {
		return nil, fmt.Errorf("simulated failure #%d notifying escalation group", call)
	}
	for _, email := range emails {
		a.log(ctx, "escalation email sent", slog.String("email", email))
	}
	return nil, nil
}

func (a *Actions) TextEscalationGroup(ctx context.Context, phones []string) (any, error) {
	for _, phone := range phones {
		a.log(ctx, "escalation sms sent", slog.String("phone", phone))
	}
	return nil, nil
}

func (a *Actions) CallTransporter(ctx context.Context, phone string) (any, error) {
	a.log(ctx, "calling transporter", slog.String("phone", phone))
	return nil, nil
}
