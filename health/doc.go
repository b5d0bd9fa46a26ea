// Package health tracks per-shard health state and feeds the routing and
// query-filtering paths (spec §4.5, component C6). It generalizes
// torua/internal/coordinator.HealthMonitor — which only supported proactive
// HTTP polling of a fixed "/health" endpoint — into a transport-agnostic
// HealthProbe interface, adding reactive tracking (RecordSuccess /
// RecordFailure fed straight from query paths) on top of the teacher's
// proactive polling loop.
//
// State machine (per shard):
//
//	Unknown -> Healthy         after one successful probe
//	Any     -> Unhealthy       after UnhealthyThreshold consecutive failures
//	Unhealthy -> Healthy       after HealthyThreshold consecutive successes
//	Unhealthy -> probed again  only after CooldownPeriod since the last recorded outcome
//
// Unknown is treated as Healthy for routing and query-filtering purposes
// (an optimistic default, matching the teacher's "unknown" status not
// blocking registration).
package health
