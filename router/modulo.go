package router

import (
	"context"

	"github.com/dreamware/shardcore"
	"github.com/dreamware/shardcore/hashring"
	"github.com/dreamware/shardcore/metrics"
	"github.com/dreamware/shardcore/shardmap"
)

// ModuloRouter is the default router: shardIndex = hashKey(key) mod
// shardCount. It is valid only when the shard set is static for the
// router's lifetime; it exposes no topology mutator (spec §4.3).
type ModuloRouter[K comparable, S any] struct {
	shards  map[shardcore.ShardId]shardcore.Shard[S]
	ordered []shardcore.ShardId // stable iteration order for the modulo index
	hash    hashring.KeyHasher[K]
	store   shardmap.Store[K]
	sink    metrics.Sink
	obs     RouterObserver
}

// ModuloOptions configures NewModuloRouter.
type ModuloOptions[K comparable] struct {
	KeyHasher hashring.KeyHasher[K] // default hashring.DefaultKeyHasher[K]()
	Sink      metrics.Sink          // default metrics.NoopSink{}
	Observer  RouterObserver        // optional
}

// NewModuloRouter constructs a ModuloRouter over a fixed, non-empty,
// duplicate-free set of shards backed by store.
func NewModuloRouter[K comparable, S any](shards []shardcore.Shard[S], store shardmap.Store[K], opt ModuloOptions[K]) (*ModuloRouter[K, S], error) {
	m, err := validateShards(shards)
	if err != nil {
		return nil, err
	}
	ordered := make([]shardcore.ShardId, 0, len(shards))
	for _, s := range shards {
		ordered = append(ordered, s.ID)
	}
	if opt.KeyHasher == nil {
		opt.KeyHasher = hashring.DefaultKeyHasher[K]()
	}
	if opt.Sink == nil {
		opt.Sink = metrics.NoopSink{}
	}
	return &ModuloRouter[K, S]{shards: m, ordered: ordered, hash: opt.KeyHasher, store: store, sink: opt.Sink, obs: opt.Observer}, nil
}

type moduloStrategy[K comparable] struct {
	hash    hashring.KeyHasher[K]
	ordered []shardcore.ShardId
}

func (s moduloStrategy[K]) target(key shardcore.ShardKey[K]) (shardcore.ShardId, error) {
	idx := int(s.hash(key.Key)) % len(s.ordered)
	if idx < 0 {
		idx += len(s.ordered)
	}
	return s.ordered[idx], nil
}

func (r *ModuloRouter[K, S]) Resolve(ctx context.Context, key shardcore.ShardKey[K]) (shardcore.Shard[S], error) {
	return resolve[K, S](ctx, r.store, r.shards, r.sink, r.obs, moduloStrategy[K]{hash: r.hash, ordered: r.ordered}, key)
}

func (r *ModuloRouter[K, S]) Shards() []shardcore.Shard[S] {
	out := make([]shardcore.Shard[S], 0, len(r.shards))
	for _, s := range r.shards {
		out = append(out, s)
	}
	return out
}

var _ Router[string, int] = (*ModuloRouter[string, int])(nil)
