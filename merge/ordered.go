package merge

import (
	"container/heap"
	"context"
	"iter"

	"golang.org/x/exp/constraints"
	"golang.org/x/sync/errgroup"

	"github.com/dreamware/shardcore"
	"github.com/dreamware/shardcore/errs"
	"github.com/dreamware/shardcore/metrics"
)

// heapEntry is one slot in the k-way merge heap: the current minimum item
// buffered for a shard, plus enough bookkeeping to break ties
// deterministically by (key, shard arrival order) per spec §4.7.
type heapEntry[T any, K constraints.Ordered] struct {
	key        K
	value      T
	shardIdx   int
	shardID    shardcore.ShardId
	insertSeq  int64
}

type entryHeap[T any, K constraints.Ordered] []heapEntry[T, K]

func (h entryHeap[T, K]) Len() int { return len(h) }
func (h entryHeap[T, K]) Less(i, j int) bool {
	if h[i].key != h[j].key {
		return h[i].key < h[j].key
	}
	if h[i].shardIdx != h[j].shardIdx {
		return h[i].shardIdx < h[j].shardIdx
	}
	return h[i].insertSeq < h[j].insertSeq
}
func (h entryHeap[T, K]) Swap(i, j int) { h[i], h[j] = h[j], h[i] }
func (h *entryHeap[T, K]) Push(x any)   { *h = append(*h, x.(heapEntry[T, K])) }
func (h *entryHeap[T, K]) Pop() any {
	old := *h
	n := len(old)
	e := old[n-1]
	*h = old[:n-1]
	return e
}

// shardFeed is the consumer-side handle onto one shard's prefetch buffer.
type shardFeed[T any] struct {
	id      shardcore.ShardId
	idx     int
	ch      chan T
	nextSeq int64
}

// OrderedMerge performs a k-way priority merge across shards, yielding
// items in globally non-decreasing order of keyFn(value), ties broken by
// (key, shard insertion order) (spec §4.7). Each shard is prefetched up to
// PrefetchPerShard items ahead of the heap; memory resident is bounded by
// shardCount × PrefetchPerShard plus heap overhead.
func OrderedMerge[S any, T any, K constraints.Ordered](ctx context.Context, shards []shardcore.Shard[S], queryFn QueryFn[S, T], keyFn func(T) K, opts OrderedOptions) (iter.Seq[Item[T]], func() error) {
	prefetch := opts.PrefetchPerShard
	if prefetch <= 0 {
		prefetch = 1
	}
	sampleEvery := opts.HeapSampleEvery
	if sampleEvery <= 0 {
		sampleEvery = 1
	}
	obs := metrics.SafeObserver{Inner: opts.Observer}
	if opts.Observer == nil {
		obs.Inner = metrics.NoopObserver{}
	}

	ownCtx, cancel := context.WithCancel(ctx)
	eg, egCtx := errgroup.WithContext(ownCtx)

	feeds := make([]*shardFeed[T], len(shards))
	for i, shard := range shards {
		i, shard := i, shard
		feed := &shardFeed[T]{id: shard.ID, idx: i, ch: make(chan T, prefetch)}
		feeds[i] = feed

		eg.Go(func() error {
			reason := metrics.StopCompleted
			defer func() {
				close(feed.ch)
				obs.ShardStopped(shard.ID, reason)
			}()

			seq, err := queryFn(egCtx, shard)
			if err != nil {
				reason = metrics.StopFaulted
				return errs.ShardQueryError("orderedmerge.query", string(shard.ID), len(shards), err)
			}
			for v := range seq {
				select {
				case feed.ch <- v:
				case <-egCtx.Done():
					reason = metrics.StopCanceled
					return nil
				}
			}
			obs.ShardCompleted(shard.ID)
			return nil
		})
	}

	closer := make(chan struct{})
	go func() {
		_ = eg.Wait()
		close(closer)
	}()

	refill := func(h *entryHeap[T, K], f *shardFeed[T]) {
		v, ok := <-f.ch
		if !ok {
			return
		}
		heap.Push(h, heapEntry[T, K]{key: keyFn(v), value: v, shardIdx: f.idx, shardID: f.id, insertSeq: f.nextSeq})
		f.nextSeq++
	}

	seq := func(yield func(Item[T]) bool) {
		defer cancel()

		h := &entryHeap[T, K]{}
		heap.Init(h)
		for _, f := range feeds {
			refill(h, f)
		}

		ops := 0
		for h.Len() > 0 {
			entry := heap.Pop(h).(heapEntry[T, K])
			obs.ItemYielded(entry.shardID)
			ops++
			if ops%sampleEvery == 0 {
				obs.HeapSizeSample(h.Len())
			}
			if !yield(Item[T]{ShardId: entry.shardID, Value: entry.value}) {
				return
			}
			refill(h, feeds[entry.shardIdx])
		}
	}

	errFn := func() error {
		<-closer
		cancel()
		return eg.Wait()
	}

	return seq, errFn
}
