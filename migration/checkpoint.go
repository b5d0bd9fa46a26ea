package migration

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/dreamware/shardcore/errs"
)

// CheckpointStore is the durable progress record behind a migration run
// (spec §4.10). Persist MUST be all-or-nothing; implementations overwrite
// by PlanID, and the executor is the sole writer for a given PlanID during
// a run.
type CheckpointStore[K comparable] interface {
	Load(ctx context.Context, planID uuid.UUID) (Checkpoint[K], bool, error)
	Persist(ctx context.Context, cp Checkpoint[K]) error
}

// MemCheckpointStore is an in-memory CheckpointStore reference
// implementation, grounded on torua/internal/storage.MemoryStore's
// Get/Put-with-defensive-copy shape, specialized to Checkpoint values keyed
// by PlanID instead of arbitrary byte blobs.
type MemCheckpointStore[K comparable] struct {
	mu sync.Mutex
	m  map[uuid.UUID]Checkpoint[K]
}

// NewMemCheckpointStore constructs an empty MemCheckpointStore.
func NewMemCheckpointStore[K comparable]() *MemCheckpointStore[K] {
	return &MemCheckpointStore[K]{m: make(map[uuid.UUID]Checkpoint[K])}
}

func (s *MemCheckpointStore[K]) Load(ctx context.Context, planID uuid.UUID) (Checkpoint[K], bool, error) {
	if ctx.Err() != nil {
		return Checkpoint[K]{}, false, errs.Cancelled(ctx.Err())
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	cp, ok := s.m[planID]
	if !ok {
		return Checkpoint[K]{}, false, nil
	}
	return cp.Clone(), true, nil
}

func (s *MemCheckpointStore[K]) Persist(ctx context.Context, cp Checkpoint[K]) error {
	if ctx.Err() != nil {
		return errs.Cancelled(ctx.Err())
	}
	snapshot := cp.Clone()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.m[cp.PlanID] = snapshot
	return nil
}

var _ CheckpointStore[string] = (*MemCheckpointStore[string])(nil)
