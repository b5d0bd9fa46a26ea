package router

import (
	"context"
	"time"

	"github.com/dreamware/shardcore"
	"github.com/dreamware/shardcore/errs"
	"github.com/dreamware/shardcore/metrics"
	"github.com/dreamware/shardcore/shardmap"
)

// Router resolves an application key to the shard that owns it (spec §4.3).
type Router[K comparable, S any] interface {
	Resolve(ctx context.Context, key shardcore.ShardKey[K]) (shardcore.Shard[S], error)

	// Shards returns every currently live shard, in no particular order.
	// Merge fan-out (package merge) uses this to discover participants.
	Shards() []shardcore.Shard[S]
}

// RouterObserver receives the routing events spec §4.3 names, in addition
// to (not instead of) the plain counters on metrics.Sink. A nil observer is
// valid and simply receives no calls.
type RouterObserver interface {
	// OnRouteHit fires exactly once per Resolve call. existing is true when
	// the key already had an assignment before this call (including the
	// "lost the creation race" case), false when this call created it.
	OnRouteHit(shard shardcore.ShardId, existing bool)
	// OnRouteMiss fires at most once per Resolve call, only when this call
	// was the one that created the assignment.
	OnRouteMiss(shard shardcore.ShardId)
}

// strategy computes a target shard for a key that has no assignment yet.
type strategy[K comparable] interface {
	target(key shardcore.ShardKey[K]) (shardcore.ShardId, error)
}

// resolve implements the shared algorithm spec §4.3 describes for both
// router strategies: a store lookup, and only on a confirmed miss, a
// single-flight-coalesced assignment.
func resolve[K comparable, S any](
	ctx context.Context,
	store shardmap.Store[K],
	shards map[shardcore.ShardId]shardcore.Shard[S],
	sink metrics.Sink,
	obs RouterObserver,
	strat strategy[K],
	key shardcore.ShardKey[K],
) (shardcore.Shard[S], error) {
	start := time.Now()
	defer func() { sink.RouteLatencySeconds(time.Since(start).Seconds()) }()

	if id, ok := store.TryGet(key); ok {
		if _, live := shards[id]; live {
			sink.RouteHit()
			if obs != nil {
				obs.OnRouteHit(id, true)
			}
			return lookupShard(shards, id)
		}
		// id was retired from the topology (ConsistentRouter.RemoveShard
		// leaves the store's old assignments untouched, spec §4.4): fall
		// through to a fresh reassignment instead of failing the call.
		return reassignStale[K, S](ctx, store, shards, sink, obs, strat, key, id)
	}

	created, id, err := store.TryGetOrAdd(ctx, key, func() (shardcore.ShardId, error) {
		return strat.target(key)
	})
	if err != nil {
		var zero shardcore.Shard[S]
		return zero, err
	}

	sink.RouteHit()
	if created {
		sink.RouteMiss()
		if obs != nil {
			obs.OnRouteMiss(id)
			obs.OnRouteHit(id, false)
		}
	} else if obs != nil {
		obs.OnRouteHit(id, true)
	}
	return lookupShard(shards, id)
}

// reassignStale recomputes a target for key via strat and CAS-swaps the
// store's stale entry (still pointing at staleID, a shard no longer in
// shards) onto it, the same per-key CAS primitive migration.MapSwapper
// uses. If the swap loses a race — another Resolve call already moved the
// key, possibly to a different target — it re-reads the now-current
// assignment rather than failing the call (spec §4.4's "falls through to
// the fallback-reassignment path on their next route").
func reassignStale[K comparable, S any](
	ctx context.Context,
	store shardmap.Store[K],
	shards map[shardcore.ShardId]shardcore.Shard[S],
	sink metrics.Sink,
	obs RouterObserver,
	strat strategy[K],
	key shardcore.ShardKey[K],
	staleID shardcore.ShardId,
) (shardcore.Shard[S], error) {
	target, err := strat.target(key)
	if err != nil {
		var zero shardcore.Shard[S]
		return zero, err
	}

	id := target
	move := shardcore.KeyMove[K]{Key: key, Source: staleID, Target: target}
	if err := store.Swap(ctx, []shardcore.KeyMove[K]{move}); err != nil {
		if current, ok := store.TryGet(key); ok {
			id = current
		}
	}

	sink.RouteHit()
	if obs != nil {
		obs.OnRouteHit(id, true)
	}
	return lookupShard(shards, id)
}

func lookupShard[S any](shards map[shardcore.ShardId]shardcore.Shard[S], id shardcore.ShardId) (shardcore.Shard[S], error) {
	sh, ok := shards[id]
	if !ok {
		var zero shardcore.Shard[S]
		return zero, errs.NoAvailableShard(0, len(shards))
	}
	return sh, nil
}

func validateShards[S any](shards []shardcore.Shard[S]) (map[shardcore.ShardId]shardcore.Shard[S], error) {
	if len(shards) == 0 {
		return nil, errs.EmptyTopology()
	}
	m := make(map[shardcore.ShardId]shardcore.Shard[S], len(shards))
	for _, s := range shards {
		if _, dup := m[s.ID]; dup {
			return nil, errs.DuplicateShardID(string(s.ID))
		}
		m[s.ID] = s
	}
	return m, nil
}
