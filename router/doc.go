// Package router maps application keys to shards, using either a static
// modulo strategy or a consistent-hash ring with online topology mutation
// (spec §4.3–§4.4, components C4 and C5). Both strategies share one
// resolution algorithm (resolve, in router.go): consult the shardmap.Store
// first, and only compute a new assignment on a confirmed miss.
//
// The consistent-hash ring is grounded on
// torua/internal/coordinator.ShardRegistry's "assignments are immutable,
// replace don't mutate" discipline, generalized from a single
// shard-per-key assignment map into a sorted array of virtual nodes
// replaced atomically on every AddShard/RemoveShard (spec §4.4): readers
// hold a single atomic pointer load and never observe a half-built ring.
package router
