package migration

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dreamware/shardcore"
)

type countingSink struct {
	mu sync.Mutex

	planned int
	copied  int
	verfied int
	swapped int
	failed  int
	retries int
}

func (s *countingSink) RouteHit()  {}
func (s *countingSink) RouteMiss() {}
func (s *countingSink) Planned(n int) {
	s.mu.Lock()
	s.planned += n
	s.mu.Unlock()
}
func (s *countingSink) Copied() {
	s.mu.Lock()
	s.copied++
	s.mu.Unlock()
}
func (s *countingSink) Verified() {
	s.mu.Lock()
	s.verfied++
	s.mu.Unlock()
}
func (s *countingSink) Swapped() {
	s.mu.Lock()
	s.swapped++
	s.mu.Unlock()
}
func (s *countingSink) Failed() {
	s.mu.Lock()
	s.failed++
	s.mu.Unlock()
}
func (s *countingSink) Retries(n int) {
	s.mu.Lock()
	s.retries += n
	s.mu.Unlock()
}
func (s *countingSink) ForcedSwaps() {}
func (s *countingSink) ActiveCopy(int)                      {}
func (s *countingSink) ActiveVerify(int)                    {}
func (s *countingSink) UnhealthyShardCount(int)              {}
func (s *countingSink) RouteLatencySeconds(float64)          {}
func (s *countingSink) CopyDurationSeconds(float64)          {}
func (s *countingSink) VerifyDurationSeconds(float64)        {}
func (s *countingSink) SwapBatchDurationSeconds(float64)     {}
func (s *countingSink) HealthProbeLatencySeconds(float64)    {}
func (s *countingSink) TotalElapsedSeconds(float64)          {}

func (s *countingSink) snapshot() (planned, copied, verified, swapped, failed, retries int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.planned, s.copied, s.verfied, s.swapped, s.failed, s.retries
}

// fakeMover copies instantly, failing transiently a configured number of
// times and permanently for configured keys.
type fakeMover struct {
	mu            sync.Mutex
	failuresLeft  map[string]int
	permanentFail map[string]bool
	calls         map[string]int
}

func newFakeMover() *fakeMover {
	return &fakeMover{
		failuresLeft:  map[string]int{},
		permanentFail: map[string]bool{},
		calls:         map[string]int{},
	}
}

func (m *fakeMover) Copy(ctx context.Context, move shardcore.KeyMove[string]) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls[move.Key.Key]++
	if m.permanentFail[move.Key.Key] {
		return errors.New("permanent copy failure")
	}
	if n := m.failuresLeft[move.Key.Key]; n > 0 {
		m.failuresLeft[move.Key.Key] = n - 1
		return MarkTransient(errors.New("transient copy failure"))
	}
	return nil
}

type fakeVerifier struct{}

func (fakeVerifier) Verify(ctx context.Context, move shardcore.KeyMove[string]) error { return nil }

// fakeSwapper applies every move in the batch it is given.
type fakeSwapper struct {
	mu    sync.Mutex
	calls int
}

func (s *fakeSwapper) Swap(ctx context.Context, moves []shardcore.KeyMove[string]) ([]shardcore.KeyMove[string], error) {
	s.mu.Lock()
	s.calls++
	s.mu.Unlock()
	return moves, nil
}

func planOf(n int) Plan[string] {
	moves := make([]shardcore.KeyMove[string], n)
	for i := 0; i < n; i++ {
		key := fmt.Sprintf("k%d", i)
		moves[i] = shardcore.KeyMove[string]{
			Key:    shardcore.ShardKey[string]{Key: key},
			Source: "s0",
			Target: "s1",
		}
	}
	return BuildPlan(
		snapshotOf(keysOnShard(moves, "s0")),
		snapshotOf(keysOnShard(moves, "s1")),
	)
}

func keysOnShard(moves []shardcore.KeyMove[string], shard shardcore.ShardId) map[string]shardcore.ShardId {
	out := map[string]shardcore.ShardId{}
	for _, m := range moves {
		if shard == m.Source {
			out[m.Key.Key] = m.Source
		} else {
			out[m.Key.Key] = m.Target
		}
	}
	return out
}

func TestExecutorRunCompletesHappyPathAndIsIdempotentOnResume(t *testing.T) {
	const n = 50
	plan := planOf(n)
	require.Len(t, plan.Moves, n)

	mover := newFakeMover()
	verifier := fakeVerifier{}
	swapper := &fakeSwapper{}
	store := NewMemCheckpointStore[string]()
	sink := &countingSink{}

	exec := NewExecutor[string](mover, verifier, swapper, store)
	opts := ExecutorOptions{
		CopyConcurrency:   16,
		VerifyConcurrency: 8,
		SwapBatchSize:     10,
		MaxRetries:        5,
		Sink:              sink,
	}

	cp, err := exec.Run(context.Background(), plan, opts)
	require.NoError(t, err)

	var done, failed int
	for _, s := range cp.States {
		switch s {
		case Done:
			done++
		case Failed:
			failed++
		}
	}
	assert.Equal(t, n, done)
	assert.Equal(t, 0, failed)

	_, copied1, verified1, swapped1, failed1, _ := sink.snapshot()
	assert.Equal(t, n, copied1)
	assert.Equal(t, n, verified1)
	assert.Equal(t, n, swapped1)
	assert.Equal(t, 0, failed1)

	// Resuming an already-completed plan must be a no-op: every key is
	// already terminal, so no collaborator method fires again and no
	// counter increments (spec §4.9's idempotent-resume guarantee).
	cp2, err := exec.Run(context.Background(), plan, opts)
	require.NoError(t, err)
	assert.Equal(t, cp.States, cp2.States)

	_, copied2, verified2, swapped2, failed2, _ := sink.snapshot()
	assert.Equal(t, copied1, copied2)
	assert.Equal(t, verified1, verified2)
	assert.Equal(t, swapped1, swapped2)
	assert.Equal(t, failed1, failed2)
}

func TestExecutorRunHandlesMixedTransientAndPermanentFaults(t *testing.T) {
	moves := []shardcore.KeyMove[string]{
		{Key: shardcore.ShardKey[string]{Key: "k0"}, Source: "s0", Target: "s1"},
		{Key: shardcore.ShardKey[string]{Key: "k1"}, Source: "s0", Target: "s1"},
		{Key: shardcore.ShardKey[string]{Key: "k2"}, Source: "s0", Target: "s1"},
	}
	plan := BuildPlan(
		snapshotOf(keysOnShard(moves, "s0")),
		snapshotOf(keysOnShard(moves, "s1")),
	)
	require.Len(t, plan.Moves, 3)

	mover := newFakeMover()
	mover.failuresLeft["k0"] = 2
	mover.permanentFail["k1"] = true

	verifier := fakeVerifier{}
	swapper := &fakeSwapper{}
	store := NewMemCheckpointStore[string]()
	sink := &countingSink{}

	exec := NewExecutor[string](mover, verifier, swapper, store)
	opts := ExecutorOptions{
		CopyConcurrency:   4,
		VerifyConcurrency: 4,
		SwapBatchSize:     4,
		MaxRetries:        5,
		RetryBaseDelay:    time.Millisecond,
		Sink:              sink,
	}

	cp, err := exec.Run(context.Background(), plan, opts)
	require.NoError(t, err)

	assert.Equal(t, Done, cp.States[shardcore.ShardKey[string]{Key: "k0"}])
	assert.Equal(t, Failed, cp.States[shardcore.ShardKey[string]{Key: "k1"}])
	assert.Equal(t, Done, cp.States[shardcore.ShardKey[string]{Key: "k2"}])

	_, _, _, _, failed, retries := sink.snapshot()
	assert.Equal(t, 1, failed)
	assert.GreaterOrEqual(t, retries, 2)
}
