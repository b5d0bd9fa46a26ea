// Package migration plans and executes key rebalancing between shards
// (spec §4.8–§4.10, components C9, C10, C11): a deterministic planner that
// diffs two topology snapshots, a checkpointed executor that drives each
// key through an eight-state machine (Planned…Done|Failed), and a
// checkpoint store abstraction for crash-safe resume.
//
// The per-key state machine is grounded directly on
// torua/internal/shard.ShardState's Active/Migrating/Deleted lifecycle,
// extended here to the full Planned→Copying→Copied→Verifying→Verified→
// Swapping→Done|Failed progression spec §4.9 requires. Retry/backoff is
// grounded on github.com/cenkalti/backoff/v4's ExponentialBackOff, the kind
// of helper AKJUS-bsc-erigon reaches for throughout its sync layer instead
// of hand-rolled time.Sleep(base << n) loops. Checkpointing follows the
// teacher's storage.Store interface shape: Get/Put with defensive copies at
// both boundaries.
package migration
