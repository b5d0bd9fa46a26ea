package shardcore

// ShardId is an opaque, non-empty string identifier for a shard. Equality is
// by string value; ShardId carries no other semantics.
type ShardId string

// ShardKey wraps an application key of comparable type K. Equality and
// hashing delegate entirely to K, so ShardKey[K] is itself comparable and
// safe to use as a map key.
type ShardKey[K comparable] struct {
	Key K
}

// Shard pairs a ShardId with a session factory. The session type S is
// opaque to the core: it is a capability handed to caller-supplied query
// functions (merge.QueryFn) and is never interpreted by this library.
type Shard[S any] struct {
	ID         ShardId
	NewSession func() S
}

// TopologySnapshot is an immutable view of key assignments plus the set of
// currently live shard ids, as consumed by migration.BuildPlan and
// migration.PlanDryRun.
type TopologySnapshot[K comparable] struct {
	Assignments map[ShardKey[K]]ShardId
	LiveShards  map[ShardId]struct{}
}

// NewTopologySnapshot builds an empty, ready-to-populate snapshot.
func NewTopologySnapshot[K comparable]() TopologySnapshot[K] {
	return TopologySnapshot[K]{
		Assignments: make(map[ShardKey[K]]ShardId),
		LiveShards:  make(map[ShardId]struct{}),
	}
}

// KeyMove is a single unit of migration: move Key from Source to Target.
// Source must never equal Target; constructing callers (migration.BuildPlan) are
// responsible for upholding that invariant.
type KeyMove[K comparable] struct {
	Key    ShardKey[K]
	Source ShardId
	Target ShardId
}

