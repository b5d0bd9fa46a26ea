// Package shardmap persists the key→shard assignment the router and
// migration executor both depend on (spec §4.2, component C3). It performs
// no I/O of its own opinions about durability: Store is an interface, and
// this package ships only a point-in-time, in-memory reference
// implementation (MemStore) grounded on torua/internal/storage.MemoryStore's
// copy-on-read/copy-on-write discipline, generalized from raw bytes to
// generic shard assignments, plus single-flight factory coalescing grounded
// on IvanBrykalov-shardcache/internal/singleflight.
//
// Invariants enforced by every conforming implementation:
//
//  1. Concurrent TryAssign calls for the same key: exactly one caller
//     observes created=true; every other caller observes the same winner's
//     ShardId.
//  2. Enumerate is a point-in-time snapshot; the migration planner only
//     consumes point-in-time enumerations.
package shardmap
