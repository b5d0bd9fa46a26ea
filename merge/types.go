package merge

import (
	"context"
	"iter"

	"github.com/dreamware/shardcore"
	"github.com/dreamware/shardcore/metrics"
)

// Item pairs a value pulled from a shard's query with the shard it came
// from, so callers can attribute results after they have been merged.
type Item[T any] struct {
	ShardId shardcore.ShardId
	Value   T
}

// QueryFn executes a query against a single shard and returns a lazy
// sequence of results. Implementations should stop producing as soon as
// the supplied context is done; both merge cores cancel it promptly on
// cancellation or a sibling fault.
type QueryFn[S any, T any] func(ctx context.Context, shard shardcore.Shard[S]) (iter.Seq[T], error)

// StopReason and MergeObserver are defined in package metrics so both the
// core Sink and the merge cores share one observer surface (spec §4.11).
type (
	StopReason    = metrics.StopReason
	MergeObserver = metrics.MergeObserver
)

const (
	Completed = metrics.StopCompleted
	Canceled  = metrics.StopCanceled
	Faulted   = metrics.StopFaulted
)

// Options configures FanOut (spec §4.6).
type Options struct {
	// BackpressureCapacity bounds the shared buffer producers write into.
	// 0 means unbounded (internally represented as a large fixed buffer;
	// see unordered.go).
	BackpressureCapacity int
	Observer              MergeObserver
}

// OrderedOptions configures OrderedMerge (spec §4.7).
type OrderedOptions struct {
	// PrefetchPerShard bounds how many items may be buffered ahead of the
	// heap for any one shard. Default 1.
	PrefetchPerShard int
	// HeapSampleEvery throttles HeapSizeSample emission to once every N
	// pop/refill cycles. Default 1 (every cycle).
	HeapSampleEvery int
	Observer        MergeObserver
}
