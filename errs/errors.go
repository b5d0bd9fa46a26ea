package errs

import (
	"fmt"
	"maps"
)

// Kind identifies the category of failure. Callers should branch on Kind
// (via errors.As to *Error, then a switch on Kind) rather than parsing
// Error() strings.
type Kind string

const (
	KindRoutingConfig            Kind = "routing_config"
	KindDuplicateShardID         Kind = "duplicate_shard_id"
	KindEmptyTopology            Kind = "empty_topology"
	KindNoAvailableShard         Kind = "no_available_shard"
	KindAssignmentFailed         Kind = "assignment_failed"
	KindTopologyOverflow         Kind = "topology_overflow"
	KindShardStore               Kind = "shard_store"
	KindShardQuery                Kind = "shard_query"
	KindShardTopology             Kind = "shard_topology"
	KindShardMigration            Kind = "shard_migration"
	KindInsufficientHealthyShards Kind = "insufficient_healthy_shards"
	KindCancelled                 Kind = "cancelled"
)

// Error is the single base type for every failure the core can raise. Context
// is copied at construction, so later changes to the map the caller passed in
// do not reach it. Context itself is an exported, ordinary map: code holding
// the *Error can still modify it.
type Error struct {
	Kind    Kind
	Message string
	Context map[string]any
	cause   error
}

func newError(kind Kind, msg string, ctx map[string]any, cause error) *Error {
	var snapshot map[string]any
	if len(ctx) > 0 {
		snapshot = maps.Clone(ctx)
	}
	return &Error{Kind: kind, Message: msg, Context: snapshot, cause: cause}
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("shardcore: %s: %s: %v", e.Kind, e.Message, e.cause)
	}
	return fmt.Sprintf("shardcore: %s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.cause }

// Is allows errors.Is(err, &Error{Kind: KindX}) to match on Kind alone.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// --- configuration errors ---

func RoutingConfigError(msg string, replicationFactor int) *Error {
	return newError(KindRoutingConfig, msg, map[string]any{"replicationFactor": replicationFactor}, nil)
}

func DuplicateShardID(id string) *Error {
	return newError(KindDuplicateShardID, "duplicate shard id", map[string]any{"shardId": id}, nil)
}

func EmptyTopology() *Error {
	return newError(KindEmptyTopology, "shard set must not be empty", nil, nil)
}

// --- routing errors ---

func NoAvailableShard(keyHash uint32, shardCount int) *Error {
	return newError(KindNoAvailableShard, "no available shard for key", map[string]any{
		"keyHash": keyHash, "shardCount": shardCount,
	}, nil)
}

func AssignmentFailed(cause error) *Error {
	return newError(KindAssignmentFailed, "factory invocation failed during tryGetOrAdd", nil, cause)
}

// --- topology errors ---

func TopologyOverflow(keyCount, maxKeyCount int) *Error {
	return newError(KindTopologyOverflow, "enumeration exceeded max key count", map[string]any{
		"keyCount": keyCount, "maxKeyCount": maxKeyCount,
	}, nil)
}

func ShardTopologyError(topologyVersion int64, keyCount, maxKeyCount int) *Error {
	return newError(KindShardTopology, "topology error", map[string]any{
		"topologyVersion": topologyVersion, "keyCount": keyCount, "maxKeyCount": maxKeyCount,
	}, nil)
}

// --- store errors ---

func ShardStoreError(op, shardID string, attemptCount int, cause error) *Error {
	return newError(KindShardStore, "shard map store operation failed", map[string]any{
		"operation": op, "shardId": shardID, "attemptCount": attemptCount,
	}, cause)
}

// --- query errors ---

func ShardQueryError(phase, shardID string, targetedShardCount int, cause error) *Error {
	return newError(KindShardQuery, "shard query failed", map[string]any{
		"phase": phase, "shardId": shardID, "targetedShardCount": targetedShardCount,
	}, cause)
}

func InsufficientHealthyShards(total, healthy int, unhealthy []string) *Error {
	ids := make([]string, len(unhealthy))
	copy(ids, unhealthy)
	return newError(KindInsufficientHealthyShards, "insufficient healthy shards for query", map[string]any{
		"totalShards": total, "healthyShards": healthy, "unhealthyShardIds": ids,
	}, nil)
}

// --- migration errors ---

func ShardMigrationError(phase, sourceShardID, targetShardID string, attemptCount int, planID string, cause error) *Error {
	return newError(KindShardMigration, "migration operation failed", map[string]any{
		"phase": phase, "sourceShardId": sourceShardID, "targetShardId": targetShardID,
		"attemptCount": attemptCount, "planId": planID,
	}, cause)
}

// --- cancellation ---

// Cancelled wraps a cancellation signal as its own failure kind, distinct
// from transient I/O errors, so callers never mistake a deliberate stop for
// a retryable fault.
func Cancelled(cause error) *Error {
	return newError(KindCancelled, "operation cancelled", nil, cause)
}

// IsCancelled reports whether err is (or wraps) a Cancelled error.
func IsCancelled(err error) bool {
	var e *Error
	return As(err, &e) && e.Kind == KindCancelled
}

// As is a tiny local re-export of errors.As specialized for *Error, kept
// here so callers don't need a second import for the common case.
func As(err error, target **Error) bool {
	for err != nil {
		if e, ok := err.(*Error); ok {
			*target = e
			return true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}
