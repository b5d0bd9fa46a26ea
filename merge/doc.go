// Package merge implements the streaming fan-out cores spec §4.6–§4.7
// describe: an unordered broadcaster with bounded-channel backpressure
// (components C7) and a k-way ordered merge with per-shard prefetch
// (component C8).
//
// Neither core has a direct precedent in the teacher repo; both are
// grounded on golang.org/x/sync/errgroup's supervised-goroutine idiom (the
// same pattern Voskan-arena-cache and AKJUS-bsc-erigon use for concurrent
// fan-out) combined with the teacher's cancellation-context discipline from
// torua/internal/coordinator.HealthMonitor (a derived context, a single
// cancel func, and a WaitGroup-equivalent join point before returning
// control to the caller).
//
// Per-shard producers are modeled as iter.Seq[T] values, the same
// range-over-func idiom shardmap.Store.Enumerate uses for lazy sequences:
// a QueryFn receives a shard and hands back a sequence it can stop pulling
// from at any time, which is exactly the shape fan-out cancellation needs.
package merge
