// Package metrics exports engine activity to Prometheus.
package metrics
