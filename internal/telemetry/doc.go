// Package telemetry instruments stores with OpenTelemetry and Prometheus.
//
// Tracing wraps every dispatch in a span named "dispatch: <label>" and
// records OpenTelemetry counters and a duration histogram. Metrics keeps a
// per-instance Prometheus registry with dispatch counters, devtools bridge
// gauges, and history length, ready to be served on /metrics.
package telemetry
