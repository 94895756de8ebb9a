// Package prometheus exposes goSession engine metrics as a
// [github.com/prometheus/client_golang/prometheus.Collector].
//
// Counter names are gosession_*_total. GetSession and RefreshSession
// latencies are published as the histograms
// gosession_get_session_latency_seconds and
// gosession_refresh_latency_seconds when latency histograms are enabled.
//
// # What this package must NOT do
//
//   - Register metrics in the global Prometheus registry. Callers register
//     the exporter or mount Handler.
//   - Mutate engine state.
package prometheus
