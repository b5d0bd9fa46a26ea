package shardmap

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dreamware/shardcore"
)

func key(k string) shardcore.ShardKey[string] { return shardcore.ShardKey[string]{Key: k} }

func TestTryAssignCASUniqueness(t *testing.T) {
	const contenders = 10000
	s := NewMemStore[string]()
	k := key("hot-key")

	var createdCount atomic.Int64
	winners := make([]shardcore.ShardId, contenders)
	var wg sync.WaitGroup
	wg.Add(contenders)
	for i := 0; i < contenders; i++ {
		i := i
		go func() {
			defer wg.Done()
			created, id := s.TryAssign(k, shardcore.ShardId("shard-candidate"))
			winners[i] = id
			if created {
				createdCount.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(1), createdCount.Load())
	first := winners[0]
	for _, w := range winners {
		assert.Equal(t, first, w)
	}
}

func TestTryGetOrAddFactoryInvokedOnce(t *testing.T) {
	const contenders = 5000
	s := NewMemStore[string]()
	k := key("hot-key")

	var invocations atomic.Int64
	var createdCount atomic.Int64
	var wg sync.WaitGroup
	wg.Add(contenders)
	for i := 0; i < contenders; i++ {
		go func() {
			defer wg.Done()
			created, _, err := s.TryGetOrAdd(context.Background(), k, func() (shardcore.ShardId, error) {
				invocations.Add(1)
				return shardcore.ShardId("computed"), nil
			})
			require.NoError(t, err)
			if created {
				createdCount.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(1), invocations.Load())
	assert.Equal(t, int64(1), createdCount.Load())
}

func TestTryGetOrAddFactoryErrorIsAssignmentFailed(t *testing.T) {
	s := NewMemStore[string]()
	boom := errors.New("boom")
	_, _, err := s.TryGetOrAdd(context.Background(), key("k"), func() (shardcore.ShardId, error) {
		return "", boom
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
}

func TestEnumerateOverflow(t *testing.T) {
	s := NewMemStore[string]()
	for i := 0; i < 10; i++ {
		s.TryAssign(key(string(rune('a'+i))), shardcore.ShardId("s1"))
	}
	seq, errFn := s.Enumerate(context.Background(), 3)
	n := 0
	for range seq {
		n++
	}
	require.Error(t, errFn())
}

func TestEnumerateIsPointInTime(t *testing.T) {
	s := NewMemStore[string]()
	s.TryAssign(key("a"), shardcore.ShardId("s1"))
	seq, errFn := s.Enumerate(context.Background(), 0)
	s.TryAssign(key("b"), shardcore.ShardId("s2"))

	count := 0
	for range seq {
		count++
	}
	require.NoError(t, errFn())
	assert.Equal(t, 1, count)
}

func TestSwapAppliesAllOrReportsPartial(t *testing.T) {
	s := NewMemStore[string]()
	s.TryAssign(key("a"), shardcore.ShardId("s1"))
	s.TryAssign(key("b"), shardcore.ShardId("s1"))

	moves := []shardcore.KeyMove[string]{
		{Key: key("a"), Source: "s1", Target: "s2"},
		{Key: key("b"), Source: "s1", Target: "s2"},
	}
	err := s.Swap(context.Background(), moves)
	require.NoError(t, err)
	id, _ := s.TryGet(key("a"))
	assert.Equal(t, shardcore.ShardId("s2"), id)

	// Now one move has a stale source; it must fail without undoing the
	// successfully-applied earlier moves in this same batch.
	badMoves := []shardcore.KeyMove[string]{
		{Key: key("a"), Source: "s2", Target: "s3"},
		{Key: key("b"), Source: "s1", Target: "s3"}, // stale: b is already s2
	}
	err = s.Swap(context.Background(), badMoves)
	require.Error(t, err)
	var partial *PartialSwapError[string]
	require.ErrorAs(t, err, &partial)
	assert.Len(t, partial.Failed, 1)

	idA, _ := s.TryGet(key("a"))
	assert.Equal(t, shardcore.ShardId("s3"), idA, "the valid move in the batch must still apply")
}
