package migration

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/dreamware/shardcore"
	"github.com/dreamware/shardcore/metrics"
)

// KeyMoveState is a single key's position in the migration state machine
// (spec §4.9). Progression is monotonic within a run except for transient
// retries, which re-enter the same non-terminal state, and for keys whose
// swap batch did not apply them, which return from Swapping to Verified.
type KeyMoveState int

const (
	Planned KeyMoveState = iota
	Copying
	Copied
	Verifying
	Verified
	Swapping
	Done
	Failed
)

func (s KeyMoveState) String() string {
	switch s {
	case Planned:
		return "planned"
	case Copying:
		return "copying"
	case Copied:
		return "copied"
	case Verifying:
		return "verifying"
	case Verified:
		return "verified"
	case Swapping:
		return "swapping"
	case Done:
		return "done"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// Terminal reports whether s is a terminal state (Done or Failed); the
// executor never re-invokes copy/verify for a key already in a terminal
// state (spec §4.9's idempotency guarantee).
func (s KeyMoveState) Terminal() bool { return s == Done || s == Failed }

// Plan is the immutable output of the planner (spec §3, §4.8): an ordered,
// deterministic sequence of key moves identified by a random PlanID.
type Plan[K comparable] struct {
	PlanID    uuid.UUID
	CreatedAt time.Time
	Moves     []shardcore.KeyMove[K]
}

// Checkpoint is the executor's durable progress record, keyed by PlanID
// (spec §4.10). Version increments on every state transition the executor
// records, so a later snapshot carries a higher Version; last writer wins when concurrent writers exist,
// though the executor is documented as the sole writer for a given PlanID
// during a run.
type Checkpoint[K comparable] struct {
	PlanID             uuid.UUID
	Version            int64
	UpdatedAt          time.Time
	States             map[shardcore.ShardKey[K]]KeyMoveState
	LastProcessedIndex int
}

// Clone returns a deep copy, so neither the executor nor a CheckpointStore
// can observe the other's in-progress mutations through aliased maps (spec
// §4.10's "defensive copies at both boundaries").
func (c Checkpoint[K]) Clone() Checkpoint[K] {
	states := make(map[shardcore.ShardKey[K]]KeyMoveState, len(c.States))
	for k, v := range c.States {
		states[k] = v
	}
	return Checkpoint[K]{
		PlanID:             c.PlanID,
		Version:            c.Version,
		UpdatedAt:          c.UpdatedAt,
		States:             states,
		LastProcessedIndex: c.LastProcessedIndex,
	}
}

// DataMover copies one key's data from KeyMove.Source to KeyMove.Target.
// Implementations classify failures as transient by returning an error
// satisfying the Transient() bool interface (see MarkTransient); anything
// else is treated as permanent.
type DataMover[K comparable] interface {
	Copy(ctx context.Context, move shardcore.KeyMove[K]) error
}

// VerificationStrategy confirms a completed copy is correct.
type VerificationStrategy[K comparable] interface {
	Verify(ctx context.Context, move shardcore.KeyMove[K]) error
}

// MapSwapper atomically (or per-key-CAS, per shardmap.Store.Swap) applies a
// batch of verified moves to the live assignment map. applied reports
// exactly which moves took effect, even when err is non-nil: spec §4.9
// allows partial batch application "iff each applied key is Done", so the
// executor needs to know which subset succeeded to mark only those Done
// and leave the rest at Verified for a later retry.
type MapSwapper[K comparable] interface {
	Swap(ctx context.Context, moves []shardcore.KeyMove[K]) (applied []shardcore.KeyMove[K], err error)
}

// Progress is emitted no more often than ExecutorOptions.ProgressInterval,
// with one guaranteed final event at run completion regardless of the
// throttle (spec §4.9 step 5).
type Progress struct {
	PlanID  uuid.UUID
	Counts  map[KeyMoveState]int
	Retries int
	Elapsed time.Duration
	Final   bool
}

// ProgressFunc receives Progress events. A nil ProgressFunc is valid.
type ProgressFunc func(Progress)

// ExecutorOptions configures Executor.Run (spec §4.9's option table).
type ExecutorOptions struct {
	CopyConcurrency    int
	VerifyConcurrency  int
	SwapBatchSize      int
	MaxRetries         int
	RetryBaseDelay     time.Duration

	// InterleaveCopyAndVerify defaults to true, the spec's documented
	// default; a *bool (rather than bool) lets the zero value mean
	// "unset" instead of silently meaning "disable interleaving". Use
	// Bool(false) to opt out.
	InterleaveCopyAndVerify         *bool
	ForceSwapOnVerificationFailure  bool
	CheckpointFlushInterval         time.Duration
	CheckpointFlushEveryTransitions int
	ProgressInterval                time.Duration

	Sink     metrics.Sink
	Progress ProgressFunc
}

// Bool returns a pointer to v, for setting ExecutorOptions.InterleaveCopyAndVerify.
func Bool(v bool) *bool { return &v }

func (o ExecutorOptions) interleaved() bool {
	return o.InterleaveCopyAndVerify == nil || *o.InterleaveCopyAndVerify
}

func (o ExecutorOptions) withDefaults() ExecutorOptions {
	if o.CopyConcurrency <= 0 {
		o.CopyConcurrency = 32
	}
	if o.VerifyConcurrency <= 0 {
		o.VerifyConcurrency = 32
	}
	if o.SwapBatchSize <= 0 {
		o.SwapBatchSize = 500
	}
	if o.MaxRetries <= 0 {
		o.MaxRetries = 5
	}
	if o.RetryBaseDelay <= 0 {
		o.RetryBaseDelay = 100 * time.Millisecond
	}
	if o.CheckpointFlushInterval <= 0 {
		o.CheckpointFlushInterval = 2 * time.Second
	}
	if o.CheckpointFlushEveryTransitions <= 0 {
		o.CheckpointFlushEveryTransitions = 1000
	}
	if o.ProgressInterval <= 0 {
		o.ProgressInterval = time.Second
	}
	if o.Sink == nil {
		o.Sink = metrics.NoopSink{}
	}
	return o
}
