// Package otel binds goSession engine metrics to an OpenTelemetry Meter.
//
// [NewOTelExporter] registers an Int64ObservableCounter per engine counter.
// Each latency histogram becomes a <name>_bucket gauge with one point per
// "le" attribute value, plus <name>_count and <name>_sum. A single callback
// reads [goSession.Engine.MetricsSnapshot] on each collection cycle.
//
// # What this package must NOT do
//
//   - Own the MeterProvider. Callers supply the Meter.
//   - Mutate engine state.
package otel
