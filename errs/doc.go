// Package errs defines the failure taxonomy shared by every shardcore
// component. All library errors derive from a single base type carrying a
// diagnostic context map copied at construction, so callers can branch on error kind with
// errors.As while still getting structured fields for logging.
//
// Kinds map directly onto the phases described by spec §7:
//
//   - Configuration errors (RoutingConfigError, DuplicateShardId, EmptyTopology)
//     are raised from constructors and are not recoverable by the core.
//   - Routing errors (NoAvailableShard) surface from Router.Resolve.
//   - Topology errors (TopologyOverflow) surface from shardmap.Store.Enumerate.
//   - Query errors: ShardQueryError surfaces from the merge package;
//     InsufficientHealthyShards is returned by health.Policy.FilterShards.
//     The merge functions do not apply health filtering themselves.
//   - Migration errors (ShardMigrationError) are classified transient or
//     permanent by pluggable collaborators and surfaced by the executor.
//   - Cancellation is its own kind and is never counted as a failure.
package errs
