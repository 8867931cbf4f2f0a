// Package activities provides the actions invoked by the monitoring
// workflows in pkg/monitor. They log instead of talking to devices or
// messaging providers.
package activities
