package shardmap

import (
	"context"
	"fmt"
	"iter"
	"maps"
	"sync"

	"github.com/dreamware/shardcore"
	"github.com/dreamware/shardcore/errs"
)

// inflightCall tracks a single in-progress TryGetOrAdd factory invocation,
// grounded on IvanBrykalov-shardcache/internal/singleflight.Group: the first
// caller for a key becomes the leader and runs factory; followers wait on
// done. Unlike that Group, only the leader is ever allowed to report
// created=true — followers always observe created=false, even when they
// joined the same flight, because the spec's single-miss invariant is about
// the store's own assignment event, not about which caller happened to
// trigger it.
type inflightCall struct {
	done chan struct{}
	id   shardcore.ShardId
	err  error
}

// MemStore is a point-in-time, in-memory Store[K] reference implementation.
// It defensively copies nothing on read/write beyond what is structurally
// necessary (ShardId and ShardKey are already value types), matching
// torua/internal/storage.MemoryStore's "never leak internal references"
// discipline.
type MemStore[K comparable] struct {
	mu       sync.RWMutex
	m        map[shardcore.ShardKey[K]]shardcore.ShardId
	inflight map[shardcore.ShardKey[K]]*inflightCall
}

// NewMemStore constructs an empty MemStore.
func NewMemStore[K comparable]() *MemStore[K] {
	return &MemStore[K]{
		m:        make(map[shardcore.ShardKey[K]]shardcore.ShardId),
		inflight: make(map[shardcore.ShardKey[K]]*inflightCall),
	}
}

func (s *MemStore[K]) TryGet(key shardcore.ShardKey[K]) (shardcore.ShardId, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.m[key]
	return id, ok
}

func (s *MemStore[K]) TryAssign(key shardcore.ShardKey[K], id shardcore.ShardId) (bool, shardcore.ShardId) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.m[key]; ok {
		return false, existing
	}
	s.m[key] = id
	return true, id
}

func (s *MemStore[K]) TryGetOrAdd(ctx context.Context, key shardcore.ShardKey[K], factory func() (shardcore.ShardId, error)) (bool, shardcore.ShardId, error) {
	s.mu.Lock()
	if id, ok := s.m[key]; ok {
		s.mu.Unlock()
		return false, id, nil
	}
	if call, ok := s.inflight[key]; ok {
		s.mu.Unlock()
		select {
		case <-call.done:
			return false, call.id, call.err
		case <-ctx.Done():
			return false, "", errs.Cancelled(ctx.Err())
		}
	}

	call := &inflightCall{done: make(chan struct{})}
	s.inflight[key] = call
	s.mu.Unlock()

	// Run the factory outside the lock; it may be arbitrarily slow.
	id, ferr := factory()

	s.mu.Lock()
	delete(s.inflight, key)
	if ferr != nil {
		call.err = errs.AssignmentFailed(ferr)
		close(call.done)
		s.mu.Unlock()
		return false, "", call.err
	}
	// Someone may have inserted the key directly via TryAssign while the
	// factory ran; the first writer still wins.
	if existing, ok := s.m[key]; ok {
		call.id = existing
		close(call.done)
		s.mu.Unlock()
		return false, existing, nil
	}
	s.m[key] = id
	call.id = id
	close(call.done)
	s.mu.Unlock()
	return true, id, nil
}

func (s *MemStore[K]) Enumerate(ctx context.Context, maxKeys int) (iter.Seq2[shardcore.ShardKey[K], shardcore.ShardId], func() error) {
	s.mu.RLock()
	snapshot := maps.Clone(s.m)
	total := len(snapshot)
	s.mu.RUnlock()

	var enumErr error
	seq := func(yield func(shardcore.ShardKey[K], shardcore.ShardId) bool) {
		count := 0
		for k, v := range snapshot {
			select {
			case <-ctx.Done():
				enumErr = errs.Cancelled(ctx.Err())
				return
			default:
			}
			count++
			if maxKeys > 0 && count > maxKeys {
				enumErr = errs.TopologyOverflow(total, maxKeys)
				return
			}
			if !yield(k, v) {
				return
			}
		}
	}
	return seq, func() error { return enumErr }
}

// PartialSwapError reports that a Swap call applied a strict subset of the
// requested moves before failing. Failed carries the moves that could not be
// applied (source mismatch or missing entry); those keys are safe to retry.
type PartialSwapError[K comparable] struct {
	Failed []shardcore.KeyMove[K]
	Causes []error
}

func (e *PartialSwapError[K]) Error() string {
	return fmt.Sprintf("shardmap: swap batch partially failed: %d of the batch's moves were rejected", len(e.Failed))
}

func (s *MemStore[K]) Swap(ctx context.Context, moves []shardcore.KeyMove[K]) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var failed []shardcore.KeyMove[K]
	var causes []error
	for _, mv := range moves {
		select {
		case <-ctx.Done():
			return errs.Cancelled(ctx.Err())
		default:
		}
		current, ok := s.m[mv.Key]
		if !ok || current != mv.Source {
			failed = append(failed, mv)
			causes = append(causes, fmt.Errorf("key %+v: expected source %q, found %q (present=%v)", mv.Key, mv.Source, current, ok))
			continue
		}
		s.m[mv.Key] = mv.Target
	}
	if len(failed) > 0 {
		return &PartialSwapError[K]{Failed: failed, Causes: causes}
	}
	return nil
}
