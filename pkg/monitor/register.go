package monitor

import "github.com/petrijr/tempalert/pkg/api"

// Definitions returns the monitoring workflow definitions.
func Definitions() []api.WorkflowDefinition {
	return []api.WorkflowDefinition{
		{Name: BatteryControlWorkflow, Fn: BatteryControl},
		{Name: LightAndSafeZoneWorkflow, Fn: LightAndSafeZone},
		{Name: TemperatureEscalationWorkflow, Fn: TemperatureEscalation},
	}
}

// Register registers every monitoring workflow with eng.
func Register(eng api.Engine) error {
	for _, def := range Definitions() {
		if err := eng.RegisterWorkflow(def); err != nil {
			return err
		}
	}
	return nil
}
