// Package monitor contains the reactive monitoring workflows.
//
// Each workflow is a plain api.WorkflowFunc that sits in a phase until a
// signal changes its state, then drives a fixed sequence of activities:
//
//   - BatteryControl extends the reporting interval once the battery drops
//     below a threshold.
//   - LightAndSafeZone starts tracking when the light level is too high
//     outside the safe zone, spawns a BatteryControl child and waits for an
//     acknowledgement.
//   - TemperatureEscalation watches the rate of temperature change over a
//     sliding window and escalates when the transporter does not respond.
//
// Activity implementations are registered separately (see pkg/activities).
package monitor
