package router

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/dreamware/shardcore"
	"github.com/dreamware/shardcore/errs"
	"github.com/dreamware/shardcore/hashring"
	"github.com/dreamware/shardcore/metrics"
	"github.com/dreamware/shardcore/shardmap"
)

const (
	defaultReplicationFactor = 100
	maxReplicationFactor     = 10_000
	// fallbackSeed perturbs a key's hash for the one-shot retry spec §4.3
	// describes when the first lookup lands on a shard that has since been
	// removed from the ring.
	fallbackSeed uint32 = 0x9E3779B9
)

type ringEntry struct {
	hash    uint32
	shardID shardcore.ShardId
}

// ringSnapshot is the immutable ring data structure spec §3 describes:
// a sorted array of (hash, shardID) pairs plus the backing shard set.
// It is replaced wholesale, never mutated in place (spec §4.4, §9).
type ringSnapshot[S any] struct {
	entries []ringEntry
	shards  map[shardcore.ShardId]shardcore.Shard[S]
}

func (r *ringSnapshot[S]) lookup(h uint32) (shardcore.ShardId, bool) {
	if len(r.entries) == 0 {
		return "", false
	}
	idx := sort.Search(len(r.entries), func(i int) bool { return r.entries[i].hash >= h })
	if idx == len(r.entries) {
		idx = 0
	}
	return r.entries[idx].shardID, true
}

func buildRing[S any](shards map[shardcore.ShardId]shardcore.Shard[S], replicationFactor int, ringHasher hashring.RingHasher) *ringSnapshot[S] {
	entries := make([]ringEntry, 0, len(shards)*replicationFactor)
	for id := range shards {
		for replica := 0; replica < replicationFactor; replica++ {
			label := fmt.Sprintf("%s#%05d", id, replica)
			entries = append(entries, ringEntry{hash: ringHasher(label), shardID: id})
		}
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].hash < entries[j].hash })
	return &ringSnapshot[S]{entries: entries, shards: shards}
}

// ConsistentRouter is the consistent-hash router with online topology
// mutation (spec §4.3–§4.4). Reads (Resolve, Shards) are lock-free: they
// load one atomic pointer to a ringSnapshot and never observe a half-built
// ring. Writes (AddShard, RemoveShard) serialize through mu and publish a
// freshly built snapshot.
type ConsistentRouter[K comparable, S any] struct {
	ring atomic.Pointer[ringSnapshot[S]]
	mu   sync.Mutex

	replicationFactor int
	keyHasher         hashring.KeyHasher[K]
	ringHasher        hashring.RingHasher
	store             shardmap.Store[K]
	sink              metrics.Sink
	obs               RouterObserver
}

// ConsistentOptions configures NewConsistentRouter.
type ConsistentOptions[K comparable] struct {
	ReplicationFactor int // default 100, max 10000
	KeyHasher         hashring.KeyHasher[K]
	RingHasher        hashring.RingHasher
	Sink              metrics.Sink
	Observer          RouterObserver
}

// NewConsistentRouter constructs a ConsistentRouter seeded with shards.
func NewConsistentRouter[K comparable, S any](shards []shardcore.Shard[S], store shardmap.Store[K], opt ConsistentOptions[K]) (*ConsistentRouter[K, S], error) {
	m, err := validateShards(shards)
	if err != nil {
		return nil, err
	}
	if opt.ReplicationFactor == 0 {
		opt.ReplicationFactor = defaultReplicationFactor
	}
	if opt.ReplicationFactor < 1 || opt.ReplicationFactor > maxReplicationFactor {
		return nil, errs.RoutingConfigError("ReplicationFactor must be in [1, 10000]", opt.ReplicationFactor)
	}
	if opt.KeyHasher == nil {
		opt.KeyHasher = hashring.DefaultKeyHasher[K]()
	}
	if opt.RingHasher == nil {
		opt.RingHasher = hashring.DefaultRingHasher()
	}
	if opt.Sink == nil {
		opt.Sink = metrics.NoopSink{}
	}

	r := &ConsistentRouter[K, S]{
		replicationFactor: opt.ReplicationFactor,
		keyHasher:         opt.KeyHasher,
		ringHasher:        opt.RingHasher,
		store:             store,
		sink:              opt.Sink,
		obs:               opt.Observer,
	}
	r.ring.Store(buildRing(m, opt.ReplicationFactor, opt.RingHasher))
	return r, nil
}

type consistentStrategy[K comparable, S any] struct {
	r *ConsistentRouter[K, S]
}

func (s consistentStrategy[K, S]) target(key shardcore.ShardKey[K]) (shardcore.ShardId, error) {
	snap := s.r.ring.Load()
	h := s.r.keyHasher(key.Key)

	if id, ok := snap.lookup(h); ok {
		if _, live := snap.shards[id]; live {
			return id, nil
		}
	}
	// Fallback: the first lookup landed on a shard no longer present in
	// this snapshot. Retry once with a perturbed hash before giving up.
	if id, ok := snap.lookup(h ^ fallbackSeed); ok {
		if _, live := snap.shards[id]; live {
			return id, nil
		}
	}
	return "", errs.NoAvailableShard(h, len(snap.shards))
}

func (r *ConsistentRouter[K, S]) Resolve(ctx context.Context, key shardcore.ShardKey[K]) (shardcore.Shard[S], error) {
	snap := r.ring.Load()
	return resolve[K, S](ctx, r.store, snap.shards, r.sink, r.obs, consistentStrategy[K, S]{r: r}, key)
}

func (r *ConsistentRouter[K, S]) Shards() []shardcore.Shard[S] {
	snap := r.ring.Load()
	out := make([]shardcore.Shard[S], 0, len(snap.shards))
	for _, s := range snap.shards {
		out = append(out, s)
	}
	return out
}

// AddShard inserts ReplicationFactor new ring entries for shard and
// publishes a new sorted snapshot via a single atomic pointer swap. Readers
// mid-flight on the old snapshot are unaffected; they simply re-read on
// their next call.
func (r *ConsistentRouter[K, S]) AddShard(shard shardcore.Shard[S]) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	old := r.ring.Load()
	if _, exists := old.shards[shard.ID]; exists {
		return errs.DuplicateShardID(string(shard.ID))
	}
	newShards := make(map[shardcore.ShardId]shardcore.Shard[S], len(old.shards)+1)
	for id, s := range old.shards {
		newShards[id] = s
	}
	newShards[shard.ID] = shard

	r.ring.Store(buildRing(newShards, r.replicationFactor, r.ringHasher))
	return nil
}

// RemoveShard removes shard's ring entries and publishes a new snapshot.
// Keys currently mapped to the removed shard fall through to the
// fallback-reassignment path on their next route (spec §4.4). It returns
// false if id was not a live shard.
func (r *ConsistentRouter[K, S]) RemoveShard(id shardcore.ShardId) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	old := r.ring.Load()
	if _, exists := old.shards[id]; !exists {
		return false
	}
	newShards := make(map[shardcore.ShardId]shardcore.Shard[S], len(old.shards)-1)
	for sid, s := range old.shards {
		if sid == id {
			continue
		}
		newShards[sid] = s
	}
	r.ring.Store(buildRing(newShards, r.replicationFactor, r.ringHasher))
	return true
}

var _ Router[string, int] = (*ConsistentRouter[string, int])(nil)
