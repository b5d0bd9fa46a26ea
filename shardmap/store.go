package shardmap

import (
	"context"
	"iter"

	"github.com/dreamware/shardcore"
)

// Store is the shard assignment store every router and the migration
// executor depend on (spec §4.2). Implementations need not be in-memory;
// the only requirement is that every method below honors the documented
// atomicity.
type Store[K comparable] interface {
	// TryGet is a read-only lookup. It never creates an entry.
	TryGet(key shardcore.ShardKey[K]) (shardcore.ShardId, bool)

	// TryAssign atomically creates an entry if absent. If an entry already
	// exists, it is left untouched and its ShardId is returned with
	// created=false.
	TryAssign(key shardcore.ShardKey[K], id shardcore.ShardId) (created bool, current shardcore.ShardId)

	// TryGetOrAdd is a single-lookup variant of TryAssign: factory is
	// invoked at most once even under contention, and only when no entry
	// exists yet. If factory returns an error, TryGetOrAdd fails with
	// errs.AssignmentFailed.
	TryGetOrAdd(ctx context.Context, key shardcore.ShardKey[K], factory func() (shardcore.ShardId, error)) (created bool, id shardcore.ShardId, err error)

	// Enumerate returns a lazy, point-in-time sequence of (key, shard)
	// pairs. The returned errFn must be called after the sequence is fully
	// (or partially) consumed; it reports context cancellation or a
	// errs.TopologyOverflow if maxKeys (0 = unlimited) was exceeded.
	Enumerate(ctx context.Context, maxKeys int) (seq iter.Seq2[shardcore.ShardKey[K], shardcore.ShardId], errFn func() error)

	// Swap atomically reassigns each move's key from Source to Target.
	// Callers must treat swap as all-or-nothing per key, not per batch:
	// a non-nil error may still mean a strict subset of moves were
	// applied. Use PartialSwapError to discover exactly which.
	Swap(ctx context.Context, moves []shardcore.KeyMove[K]) error
}
