// Package prometheus exposes goOTP engine counters through
// github.com/prometheus/client_golang.
//
// [NewCollector] wraps an engine as a prometheus.Collector that reads a
// fresh snapshot on every scrape. Counter names are gootp_*_total; the
// verification latency histogram is gootp_verify_latency_seconds.
//
// # What this package must NOT do
//
//   - Register in the global Prometheus registry. Callers register the
//     Collector, or mount [Collector.Handler] which uses a private registry.
//   - Mutate engine state.
package prometheus
