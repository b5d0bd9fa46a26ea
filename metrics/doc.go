// Package metrics defines the two non-blocking, exception-isolated
// observation surfaces the core reports through (spec §4.11, component
// C12): Sink for counters/gauges/histograms, and MergeObserver for the
// fan-out/merge lifecycle. Both default to no-ops (grounded on
// IvanBrykalov-shardcache/cache/metrics.go's NoopMetrics) so instrumenting
// a shardcore instance is opt-in. A Prometheus-backed Sink lives in the
// metrics/prom sub-package, grounded on
// IvanBrykalov-shardcache/metrics/prom/prom.go; that package has no
// MergeObserver implementation.
package metrics
