package monitor

import (
	"encoding/gob"
	"time"
)

// Workflow names.
const (
	BatteryControlWorkflow        = "battery-control"
	LightAndSafeZoneWorkflow      = "light-and-safe-zone"
	TemperatureEscalationWorkflow = "temperature-escalation"
)

// Signal names.
const (
	SignalBatteryReading     = "submit-battery-reading"
	SignalLightReading       = "submit-light-reading"
	SignalSafeZoneStatus     = "submit-safe-zone-status"
	SignalAcknowledge        = "acknowledge-response"
	SignalTemperatureReading = "submit-temperature-reading"
)

// QueryCurrentReadings returns the temperature reading log.
const QueryCurrentReadings = "current-readings"

// Activity names. Implementations live in pkg/activities.
const (
	ActivityUpdateTransmissionInterval = "update-transmission-interval"
	ActivityRevertTransmission         = "revert-transmission-settings"
	ActivityActivateGPS                = "activate-gps"
	ActivityDeactivateGPS              = "deactivate-gps"
	ActivitySendEmail                  = "send-email"
	ActivityGetBatteryLevel            = "get-battery-level"
	ActivityCallEscalationContact      = "call-escalation-contact"
	ActivityCloseStatus                = "close-status"
	ActivityEmailTransporter           = "email-transporter"
	ActivityCloseIssue                 = "close-issue"
	ActivityNotifyEscalationGroup      = "notify-escalation-group"
	ActivityTextEscalationGroup        = "text-escalation-group"
	ActivityCallTransporter            = "call-transporter"
)

// Phases.
const (
	PhaseIdle     = "Idle"
	PhaseWatching = "Watching"
	PhaseActed    = "Acted"
	PhaseDone     = "Done"

	PhaseAwaitingTrigger  = "AwaitingTrigger"
	PhasePreparing        = "Preparing"
	PhaseAwaitingResponse = "AwaitingResponse"
	PhaseEscalating       = "Escalating"
	PhaseResolving        = "Resolving"

	PhaseAccumulating = "Accumulating"
	PhaseDetected     = "Detected"
	PhaseClosed       = "Closed"
	PhaseEscalated    = "Escalated"
)

// EmailRequest is the input of the send-email activity.
type EmailRequest struct {
	Recipient  string
	TemplateID string
}

// Default activity timeouts.
const (
	DefaultActivityTimeout   = 20 * time.Second
	DefaultCloseIssueTimeout = 10 * time.Second
	DefaultEscalationTimeout = 30 * time.Second
)

func init() {
	// Inputs and outputs travel through gob when instances and tasks are
	// persisted.
	gob.Register(BatteryInput{})
	gob.Register(LightZoneInput{})
	gob.Register(TemperatureInput{})
	gob.Register(EmailRequest{})
	gob.Register([]Reading{})
	gob.Register(new(bool))
}
