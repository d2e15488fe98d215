// Package otel publishes goOTP engine counters as OpenTelemetry
// observable instruments.
//
// [NewExporter] registers an Int64ObservableCounter per engine counter,
// an Int64ObservableGauge per latency bucket, and one callback that reads
// a fresh engine snapshot on each collection cycle.
//
// # What this package must NOT do
//
//   - Own the MeterProvider. Callers supply the Meter.
//   - Mutate engine state.
package otel
