package merge

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dreamware/shardcore"
)

func intSeq(vals []int, delay time.Duration) iter.Seq[int] {
	return func(yield func(int) bool) {
		for _, v := range vals {
			if delay > 0 {
				time.Sleep(delay)
			}
			if !yield(v) {
				return
			}
		}
	}
}

func rangeShards(n int) []shardcore.Shard[int] {
	out := make([]shardcore.Shard[int], n)
	for i := range out {
		out[i] = shardcore.Shard[int]{ID: shardcore.ShardId(fmt.Sprintf("s%d", i))}
	}
	return out
}

func TestFanOutYieldsEveryItemExactlyOnce(t *testing.T) {
	shards := rangeShards(3)
	perShard := map[shardcore.ShardId][]int{
		"s0": {1, 2, 3},
		"s1": {4, 5},
		"s2": {6, 7, 8, 9},
	}
	queryFn := func(ctx context.Context, shard shardcore.Shard[int]) (iter.Seq[int], error) {
		return intSeq(perShard[shard.ID], 0), nil
	}

	seq, errFn := FanOut[int, int](context.Background(), shards, queryFn, Options{BackpressureCapacity: 4})

	seen := map[shardcore.ShardId]int{}
	total := 0
	for item := range seq {
		seen[item.ShardId]++
		total++
	}
	require.NoError(t, errFn())
	assert.Equal(t, 9, total)
	assert.Equal(t, 3, seen["s0"])
	assert.Equal(t, 2, seen["s1"])
	assert.Equal(t, 4, seen["s2"])
}

func TestFanOutPropagatesProducerFault(t *testing.T) {
	shards := rangeShards(2)
	boom := errors.New("boom")
	queryFn := func(ctx context.Context, shard shardcore.Shard[int]) (iter.Seq[int], error) {
		if shard.ID == "s0" {
			return nil, boom
		}
		return intSeq([]int{1, 2, 3}, 2*time.Millisecond), nil
	}

	seq, errFn := FanOut[int, int](context.Background(), shards, queryFn, Options{BackpressureCapacity: 2})
	for range seq {
	}
	err := errFn()
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
}

func TestFanOutCancellationStopsProducersPromptly(t *testing.T) {
	shards := rangeShards(4)
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

	seq, errFn := FanOut[int, int](context.Background(), shards, queryFn, Options{BackpressureCapacity: 8})

	count := 0
	for range seq {
		count++
		if count >= 20 {
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

func TestFanOutObserverReceivesLifecycleEvents(t *testing.T) {
	shards := rangeShards(2)
	queryFn := func(ctx context.Context, shard shardcore.Shard[int]) (iter.Seq[int], error) {
		return intSeq([]int{1, 2}, 0), nil
	}

	var mu sync.Mutex
	completed := map[shardcore.ShardId]bool{}
	stopped := map[shardcore.ShardId]int{}
	obs := &recordingObserver{
		onCompleted: func(id shardcore.ShardId) {
			mu.Lock()
			defer mu.Unlock()
			completed[id] = true
		},
		onStopped: func(id shardcore.ShardId, reason StopReason) {
			mu.Lock()
			defer mu.Unlock()
			stopped[id]++
		},
	}

	seq, errFn := FanOut[int, int](context.Background(), shards, queryFn, Options{BackpressureCapacity: 4, Observer: obs})
	for range seq {
	}
	require.NoError(t, errFn())

	mu.Lock()
	defer mu.Unlock()
	assert.True(t, completed["s0"])
	assert.True(t, completed["s1"])
	assert.Equal(t, 1, stopped["s0"])
	assert.Equal(t, 1, stopped["s1"])
}

// TestFanOutFairnessUnderSkew matches spec §8 scenario 3: 4 shards each
// producing 800 items, buffer capacity 128, one fast producer and three
// artificially slowed producers. The longest gap between consecutive
// yields from any one shard must stay under 8x capacity.
func TestFanOutFairnessUnderSkew(t *testing.T) {
	const perShard = 800
	const capacity = 128
	shards := rangeShards(4)

	vals := make([]int, perShard)
	for i := range vals {
		vals[i] = i
	}

	queryFn := func(ctx context.Context, shard shardcore.Shard[int]) (iter.Seq[int], error) {
		delay := time.Duration(0)
		if shard.ID != "s0" {
			delay = 30 * time.Microsecond
		}
		return intSeq(vals, delay), nil
	}

	seq, errFn := FanOut[int, int](context.Background(), shards, queryFn, Options{BackpressureCapacity: capacity})

	ordinal := 0
	lastOrdinal := map[shardcore.ShardId]int{}
	maxGap := map[shardcore.ShardId]int{}
	total := 0
	for item := range seq {
		if last, ok := lastOrdinal[item.ShardId]; ok {
			gap := ordinal - last
			if gap > maxGap[item.ShardId] {
				maxGap[item.ShardId] = gap
			}
		}
		lastOrdinal[item.ShardId] = ordinal
		ordinal++
		total++
	}
	require.NoError(t, errFn())

	assert.Equal(t, perShard*4, total)
	for id, gap := range maxGap {
		assert.Less(t, gap, 8*capacity, "shard %s had gap %d exceeding 8x capacity", id, gap)
	}
}

type recordingObserver struct {
	onYielded   func(shardcore.ShardId)
	onCompleted func(shardcore.ShardId)
	onStopped   func(shardcore.ShardId, StopReason)
}

func (o *recordingObserver) ItemYielded(id shardcore.ShardId) {
	if o.onYielded != nil {
		o.onYielded(id)
	}
}
func (o *recordingObserver) ShardCompleted(id shardcore.ShardId) {
	if o.onCompleted != nil {
		o.onCompleted(id)
	}
}
func (o *recordingObserver) ShardStopped(id shardcore.ShardId, reason StopReason) {
	if o.onStopped != nil {
		o.onStopped(id, reason)
	}
}
func (o *recordingObserver) BackpressureWaitStart() {}
func (o *recordingObserver) BackpressureWaitStop()  {}
func (o *recordingObserver) HeapSizeSample(int)     {}
