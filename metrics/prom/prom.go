package prom

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/dreamware/shardcore/metrics"
)

// Sink implements metrics.Sink and exports every spec §4.11 counter, gauge,
// and histogram as a Prometheus collector.
type Sink struct {
	routeHit  prometheus.Counter
	routeMiss prometheus.Counter
	planned   prometheus.Counter
	copied    prometheus.Counter
	verified  prometheus.Counter
	swapped   prometheus.Counter
	failed    prometheus.Counter
	retries   prometheus.Counter
	forcedSwaps prometheus.Counter

	activeCopy          prometheus.Gauge
	activeVerify        prometheus.Gauge
	unhealthyShardCount prometheus.Gauge

	routeLatency       prometheus.Histogram
	copyDuration       prometheus.Histogram
	verifyDuration     prometheus.Histogram
	swapBatchDuration  prometheus.Histogram
	healthProbeLatency prometheus.Histogram
	totalElapsed       prometheus.Histogram
}

// New constructs a Prometheus-backed Sink.
//   - reg: registry to register with (nil => prometheus.DefaultRegisterer)
//   - ns, sub: Prometheus namespace/subsystem applied to every metric
func New(reg prometheus.Registerer, ns, sub string) *Sink {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	counter := func(name, help string) prometheus.Counter {
		return prometheus.NewCounter(prometheus.CounterOpts{Namespace: ns, Subsystem: sub, Name: name, Help: help})
	}
	gauge := func(name, help string) prometheus.Gauge {
		return prometheus.NewGauge(prometheus.GaugeOpts{Namespace: ns, Subsystem: sub, Name: name, Help: help})
	}
	hist := func(name, help string, buckets []float64) prometheus.Histogram {
		return prometheus.NewHistogram(prometheus.HistogramOpts{Namespace: ns, Subsystem: sub, Name: name, Help: help, Buckets: buckets})
	}

	s := &Sink{
		routeHit:  counter("route_hit_total", "Routes resolved against an existing assignment"),
		routeMiss: counter("route_miss_total", "Routes that created a new assignment"),
		planned:   counter("migration_planned_total", "Keys that entered the Planned state"),
		copied:    counter("migration_copied_total", "Keys that reached the Copied state"),
		verified:  counter("migration_verified_total", "Keys that reached the Verified state"),
		swapped:   counter("migration_swapped_total", "Keys that reached the Done state via swap"),
		failed:    counter("migration_failed_total", "Keys that reached the Failed state"),
		retries:   counter("migration_retries_total", "Backed-off retries across all phases"),
		forcedSwaps: counter("migration_forced_swaps_total", "Keys swapped despite failed verification"),

		activeCopy:          gauge("migration_active_copy", "In-flight copy operations"),
		activeVerify:        gauge("migration_active_verify", "In-flight verify operations"),
		unhealthyShardCount: gauge("unhealthy_shard_count", "Shards currently classified Unhealthy"),

		routeLatency:       hist("route_latency_seconds", "Router.Resolve latency", prometheus.DefBuckets),
		copyDuration:       hist("migration_copy_duration_seconds", "DataMover.Copy duration", prometheus.DefBuckets),
		verifyDuration:     hist("migration_verify_duration_seconds", "VerificationStrategy.Verify duration", prometheus.DefBuckets),
		swapBatchDuration:  hist("migration_swap_batch_duration_seconds", "MapSwapper.Swap batch duration", prometheus.DefBuckets),
		healthProbeLatency: hist("health_probe_latency_seconds", "HealthProbe.Execute latency", prometheus.DefBuckets),
		totalElapsed:       hist("migration_total_elapsed_seconds", "End-to-end migration run duration", prometheus.DefBuckets),
	}
	reg.MustRegister(
		s.routeHit, s.routeMiss, s.planned, s.copied, s.verified, s.swapped, s.failed, s.retries, s.forcedSwaps,
		s.activeCopy, s.activeVerify, s.unhealthyShardCount,
		s.routeLatency, s.copyDuration, s.verifyDuration, s.swapBatchDuration, s.healthProbeLatency, s.totalElapsed,
	)
	return s
}

func (s *Sink) RouteHit()  { s.routeHit.Inc() }
func (s *Sink) RouteMiss() { s.routeMiss.Inc() }
func (s *Sink) Planned(n int) {
	s.planned.Add(float64(n))
}
func (s *Sink) Copied()   { s.copied.Inc() }
func (s *Sink) Verified() { s.verified.Inc() }
func (s *Sink) Swapped()  { s.swapped.Inc() }
func (s *Sink) Failed()   { s.failed.Inc() }
func (s *Sink) Retries(n int) {
	s.retries.Add(float64(n))
}
func (s *Sink) ForcedSwaps() { s.forcedSwaps.Inc() }

func (s *Sink) ActiveCopy(delta int)   { s.activeCopy.Add(float64(delta)) }
func (s *Sink) ActiveVerify(delta int) { s.activeVerify.Add(float64(delta)) }
func (s *Sink) UnhealthyShardCount(n int) {
	s.unhealthyShardCount.Set(float64(n))
}

func (s *Sink) RouteLatencySeconds(v float64)       { s.routeLatency.Observe(v) }
func (s *Sink) CopyDurationSeconds(v float64)       { s.copyDuration.Observe(v) }
func (s *Sink) VerifyDurationSeconds(v float64)     { s.verifyDuration.Observe(v) }
func (s *Sink) SwapBatchDurationSeconds(v float64)  { s.swapBatchDuration.Observe(v) }
func (s *Sink) HealthProbeLatencySeconds(v float64) { s.healthProbeLatency.Observe(v) }
func (s *Sink) TotalElapsedSeconds(v float64)       { s.totalElapsed.Observe(v) }

var _ metrics.Sink = (*Sink)(nil)
