// Package hashring provides the two pluggable hash functions the routing
// core builds on (spec §4.1, components C1 and C2):
//
//   - KeyHasher[K]: a deterministic 32-bit hash of a logical key to a point
//     on the unit interval, used by both the modulo and consistent-hash
//     routers.
//   - RingHasher: a deterministic 32-bit hash of a ring-node label
//     (shard id + replica index), used only by the consistent-hash router
//     to place virtual nodes.
//
// Both defaults are non-cryptographic, process-independent, and free of
// locale or endianness dependence. Collisions are acceptable: routing uses
// the hash modulo shard count or a ring lookup, not hash uniqueness.
package hashring
