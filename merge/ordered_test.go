package merge

import (
	"context"
	"errors"
	"iter"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dreamware/shardcore"
)

func runOrderedMerge(t *testing.T, data map[shardcore.ShardId][]int, prefetch int) []Item[int] {
	t.Helper()
	shards := rangeShards(len(data))
	queryFn := func(ctx context.Context, shard shardcore.Shard[int]) (iter.Seq[int], error) {
		return intSeq(data[shard.ID], 0), nil
	}
	seq, errFn := OrderedMerge[int, int, int](context.Background(), shards, queryFn, func(v int) int { return v }, OrderedOptions{PrefetchPerShard: prefetch})
	var out []Item[int]
	for item := range seq {
		out = append(out, item)
	}
	require.NoError(t, errFn())
	return out
}

// TestOrderedMergeIsGloballyNonDecreasingAndDeterministic matches spec §8
// scenario 4: shards A=[1,1,2], B=[1,2,2], C=[1,3,3] with PrefetchPerShard
// 1 must yield a globally non-decreasing sequence, identical across two
// independent runs.
func TestOrderedMergeIsGloballyNonDecreasingAndDeterministic(t *testing.T) {
	data := map[shardcore.ShardId][]int{
		"s0": {1, 1, 2},
		"s1": {1, 2, 2},
		"s2": {1, 3, 3},
	}

	run1 := runOrderedMerge(t, data, 1)
	run2 := runOrderedMerge(t, data, 1)

	require.Len(t, run1, 9)
	for i := 1; i < len(run1); i++ {
		assert.LessOrEqual(t, run1[i-1].Value, run1[i].Value, "sequence must be globally non-decreasing")
	}

	require.Equal(t, len(run1), len(run2))
	for i := range run1 {
		assert.Equal(t, run1[i], run2[i], "identical inputs must yield identical sequences")
	}
}

func TestOrderedMergeRespectsMemoryBound(t *testing.T) {
	// With PrefetchPerShard=1, no shard should ever have more than one
	// item resident ahead of the heap; verified indirectly by checking the
	// HeapSizeSample never exceeds shardCount.
	data := map[shardcore.ShardId][]int{
		"s0": {1, 4, 7},
		"s1": {2, 5, 8},
		"s2": {3, 6, 9},
	}
	shards := rangeShards(3)
	queryFn := func(ctx context.Context, shard shardcore.Shard[int]) (iter.Seq[int], error) {
		return intSeq(data[shard.ID], 0), nil
	}

	var maxSample int
	obs := &recordingHeapObserver{onSample: func(n int) {
		if n > maxSample {
			maxSample = n
		}
	}}

	seq, errFn := OrderedMerge[int, int, int](context.Background(), shards, queryFn, func(v int) int { return v }, OrderedOptions{PrefetchPerShard: 1, HeapSampleEvery: 1, Observer: obs})
	for range seq {
	}
	require.NoError(t, errFn())
	assert.LessOrEqual(t, maxSample, 3)
}

func TestOrderedMergePropagatesFault(t *testing.T) {
	boom := errors.New("boom")
	data := map[shardcore.ShardId][]int{"s1": {1, 2, 3}}
	shards := rangeShards(2)
	queryFn := func(ctx context.Context, shard shardcore.Shard[int]) (iter.Seq[int], error) {
		if shard.ID == "s0" {
			return nil, boom
		}
		return intSeq(data[shard.ID], time.Millisecond), nil
	}

	seq, errFn := OrderedMerge[int, int, int](context.Background(), shards, queryFn, func(v int) int { return v }, OrderedOptions{})
	for range seq {
	}
	err := errFn()
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
}

func TestOrderedMergeCancellationStopsProducers(t *testing.T) {
	shards := rangeShards(3)
	queryFn := func(ctx context.Context, shard shardcore.Shard[int]) (iter.Seq[int], error) {
		return func(yield func(int) bool) {
			for i := 0; ; i++ {
				select {
				case <-ctx.Done():
					return
				default:
				}
				if !yield(i) {
					return
				}
			}
		}, nil
	}

	seq, errFn := OrderedMerge[int, int, int](context.Background(), shards, queryFn, func(v int) int { return v }, OrderedOptions{PrefetchPerShard: 2})

	count := 0
	for range seq {
		count++
		if count >= 15 {
			break
		}
	}

	done := make(chan struct{})
	go func() {
		_ = errFn()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("producers did not stop after consumer cancellation")
	}
}

type recordingHeapObserver struct {
	onSample func(int)
}

func (o *recordingHeapObserver) ItemYielded(shardcore.ShardId)    {}
func (o *recordingHeapObserver) ShardCompleted(shardcore.ShardId) {}
func (o *recordingHeapObserver) ShardStopped(shardcore.ShardId, StopReason) {
}
func (o *recordingHeapObserver) BackpressureWaitStart() {}
func (o *recordingHeapObserver) BackpressureWaitStop()  {}
func (o *recordingHeapObserver) HeapSizeSample(n int) {
	if o.onSample != nil {
		o.onSample(n)
	}
}
