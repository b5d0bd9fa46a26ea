package metrics

import "github.com/dreamware/shardcore"

// StopReason explains why a shard's producer stopped participating in a
// merge (spec §4.11).
type StopReason int

const (
	StopCompleted StopReason = iota
	StopCanceled
	StopFaulted
)

func (r StopReason) String() string {
	switch r {
	case StopCompleted:
		return "completed"
	case StopCanceled:
		return "canceled"
	case StopFaulted:
		return "faulted"
	default:
		return "unknown"
	}
}

// MergeObserver receives lifecycle callbacks from the merge package's
// unordered broadcaster and ordered enumerator (spec §4.6–§4.7, §4.11).
// For each shard exactly one ShardStopped fires in total, after at most one
// ShardCompleted (only on success). BackpressureWaitStart/Stop calls are
// paired. Implementations MUST be thread-safe and MUST NOT panic: the
// broadcaster swallows observer exceptions and they must never affect
// producer progress or consumer correctness.
type MergeObserver interface {
	ItemYielded(shard shardcore.ShardId)
	ShardCompleted(shard shardcore.ShardId)
	ShardStopped(shard shardcore.ShardId, reason StopReason)
	BackpressureWaitStart()
	BackpressureWaitStop()
	HeapSizeSample(size int)
}

// NoopObserver discards every callback.
type NoopObserver struct{}

func (NoopObserver) ItemYielded(shardcore.ShardId)            {}
func (NoopObserver) ShardCompleted(shardcore.ShardId)         {}
func (NoopObserver) ShardStopped(shardcore.ShardId, StopReason) {}
func (NoopObserver) BackpressureWaitStart()                   {}
func (NoopObserver) BackpressureWaitStop()                    {}
func (NoopObserver) HeapSizeSample(int)                       {}

var _ MergeObserver = NoopObserver{}

// SafeObserver wraps a MergeObserver and recovers from panics in its
// callbacks, isolating observer exceptions from producer/consumer
// correctness as spec §4.11 requires. The broadcaster and ordered
// enumerator should call through SafeObserver rather than a caller-supplied
// MergeObserver directly.
type SafeObserver struct {
	Inner MergeObserver
}

func (s SafeObserver) call(fn func()) {
	defer func() { _ = recover() }()
	fn()
}

func (s SafeObserver) ItemYielded(shard shardcore.ShardId) {
	s.call(func() { s.Inner.ItemYielded(shard) })
}

func (s SafeObserver) ShardCompleted(shard shardcore.ShardId) {
	s.call(func() { s.Inner.ShardCompleted(shard) })
}

func (s SafeObserver) ShardStopped(shard shardcore.ShardId, reason StopReason) {
	s.call(func() { s.Inner.ShardStopped(shard, reason) })
}

func (s SafeObserver) BackpressureWaitStart() {
	s.call(func() { s.Inner.BackpressureWaitStart() })
}

func (s SafeObserver) BackpressureWaitStop() {
	s.call(func() { s.Inner.BackpressureWaitStop() })
}

func (s SafeObserver) HeapSizeSample(size int) {
	s.call(func() { s.Inner.HeapSizeSample(size) })
}

var _ MergeObserver = SafeObserver{}
