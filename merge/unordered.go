package merge

import (
	"context"
	"iter"

	"golang.org/x/sync/errgroup"

	"github.com/dreamware/shardcore"
	"github.com/dreamware/shardcore/errs"
	"github.com/dreamware/shardcore/metrics"
)

// unboundedCapacity is the buffer size used when Options.BackpressureCapacity
// is 0. Go channels need a fixed allocation; this is large enough that a
// caller who asked for "unbounded" never observes a producer block on it in
// practice, which is the property spec §4.6 asks for.
const unboundedCapacity = 1 << 20

// FanOut spawns one producer goroutine per shard, each writing into a
// shared bounded queue, and returns a lazy sequence of (ShardId, T) pairs
// in arrival order plus a function reporting the first producer error
// (spec §4.6). errFn must be called after the sequence is fully consumed
// or abandoned.
func FanOut[S any, T any](ctx context.Context, shards []shardcore.Shard[S], queryFn QueryFn[S, T], opts Options) (iter.Seq[Item[T]], func() error) {
	capacity := opts.BackpressureCapacity
	if capacity <= 0 {
		capacity = unboundedCapacity
	}
	obs := metrics.SafeObserver{Inner: opts.Observer}
	if opts.Observer == nil {
		obs.Inner = metrics.NoopObserver{}
	}

	ownCtx, cancel := context.WithCancel(ctx)
	eg, egCtx := errgroup.WithContext(ownCtx)
	queue := make(chan Item[T], capacity)

	for _, shard := range shards {
		shard := shard
		eg.Go(func() error {
			reason := metrics.StopCompleted
			defer func() { obs.ShardStopped(shard.ID, reason) }()

			seq, err := queryFn(egCtx, shard)
			if err != nil {
				reason = metrics.StopFaulted
				return errs.ShardQueryError("fanout.query", string(shard.ID), len(shards), err)
			}

			for v := range seq {
				item := Item[T]{ShardId: shard.ID, Value: v}
				select {
				case queue <- item:
				default:
					obs.BackpressureWaitStart()
					select {
					case queue <- item:
						obs.BackpressureWaitStop()
					case <-egCtx.Done():
						obs.BackpressureWaitStop()
						reason = metrics.StopCanceled
						return nil
					}
				}
				select {
				case <-egCtx.Done():
					reason = metrics.StopCanceled
					return nil
				default:
				}
			}
			obs.ShardCompleted(shard.ID)
			return nil
		})
	}

	closer := make(chan struct{})
	go func() {
		_ = eg.Wait()
		close(queue)
		close(closer)
	}()

	seq := func(yield func(Item[T]) bool) {
		defer cancel()
		for item := range queue {
			obs.ItemYielded(item.ShardId)
			if !yield(item) {
				return
			}
		}
	}

	errFn := func() error {
		<-closer
		cancel()
		return eg.Wait()
	}

	return seq, errFn
}
