// Package shardcore is a sharding runtime for data-plane systems. It
// deterministically routes opaque logical keys to backend shards, fans out
// queries across all shards and merges their results with bounded memory
// and optional global ordering, and safely rebalances keys between shards
// when the topology changes. It never persists data itself; application
// code owns the actual shard backends (databases, caches, document stores)
// and supplies them to this package through narrow interfaces.
//
// The package is organized so each of the spec's components lives in its
// own sub-package:
//
//   - hashring: pluggable key/ring hashers (C1, C2)
//   - shardmap: the shard assignment store (C3)
//   - router: modulo and consistent-hash routers, topology mutation (C4, C5)
//   - health: per-shard health policy and probing (C6)
//   - merge: unordered fan-out and ordered k-way merge (C7, C8)
//   - migration: planner, executor, and checkpoint store (C9, C10, C11)
//   - metrics: counters/gauges/histograms and the merge observer (C12)
//   - errs: the structured failure taxonomy (C13)
//   - testutil: seeded determinism helpers for tests (C14)
//
// This root package holds the data model shared across all of them:
// ShardId, ShardKey, Shard, and topology snapshots (spec §3).
package shardcore
