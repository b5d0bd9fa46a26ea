package metrics

// Sink is the non-blocking counters/gauges/histograms surface described by
// spec §4.11. Implementations MUST be internally thread-safe: every method
// may be called concurrently from many goroutines across many shards.
// Implementations MUST NOT block the calling goroutine for any meaningful
// duration and MUST NOT panic; the core never checks for Sink errors.
type Sink interface {
	// Counters.
	RouteHit()
	RouteMiss()
	Planned(n int)
	Copied()
	Verified()
	Swapped()
	Failed()
	Retries(n int)

	// ForcedSwaps counts keys swapped under
	// ExecutorOptions.ForceSwapOnVerificationFailure despite a failed
	// verification. It is additive: it does not change what Failed or
	// Swapped mean, it exists so operators can audit the unsafe path.
	ForcedSwaps()

	// Gauges.
	ActiveCopy(delta int)
	ActiveVerify(delta int)
	UnhealthyShardCount(n int)

	// Histograms. Durations are observed in seconds, matching the
	// Prometheus client's conventional unit.
	RouteLatencySeconds(v float64)
	CopyDurationSeconds(v float64)
	VerifyDurationSeconds(v float64)
	SwapBatchDurationSeconds(v float64)
	HealthProbeLatencySeconds(v float64)
	TotalElapsedSeconds(v float64)
}

// NoopSink implements Sink by discarding every observation. It is the
// library's default, grounded on
// IvanBrykalov-shardcache/cache/metrics.go's NoopMetrics.
type NoopSink struct{}

func (NoopSink) RouteHit()                          {}
func (NoopSink) RouteMiss()                         {}
func (NoopSink) Planned(int)                        {}
func (NoopSink) Copied()                            {}
func (NoopSink) Verified()                          {}
func (NoopSink) Swapped()                           {}
func (NoopSink) Failed()                            {}
func (NoopSink) Retries(int)                        {}
func (NoopSink) ForcedSwaps()                        {}
func (NoopSink) ActiveCopy(int)                      {}
func (NoopSink) ActiveVerify(int)                    {}
func (NoopSink) UnhealthyShardCount(int)             {}
func (NoopSink) RouteLatencySeconds(float64)         {}
func (NoopSink) CopyDurationSeconds(float64)         {}
func (NoopSink) VerifyDurationSeconds(float64)       {}
func (NoopSink) SwapBatchDurationSeconds(float64)    {}
func (NoopSink) HealthProbeLatencySeconds(float64)   {}
func (NoopSink) TotalElapsedSeconds(float64)         {}

var _ Sink = NoopSink{}
