package migration

import (
	"context"
	"iter"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/dreamware/shardcore"
	"github.com/dreamware/shardcore/hashring"
)

// PlannerOptions configures PlanSegmented.
type PlannerOptions struct {
	// SegmentSize, when > 0, makes PlanSegmented consume From in chunks
	// of this many keys instead of requiring it materialized up front.
	SegmentSize int
}

// DryRunResult reports planner counters without allocating the move list
// (spec §4.8 "a dry-run mode returns only counters").
type DryRunResult struct {
	Examined int
	Moves    int
}

type moveCandidate[K comparable] struct {
	key    shardcore.ShardKey[K]
	source shardcore.ShardId
	target shardcore.ShardId
}

func diff[K comparable](from, to shardcore.TopologySnapshot[K]) []moveCandidate[K] {
	candidates := make([]moveCandidate[K], 0)
	for key, source := range from.Assignments {
		target, present := to.Assignments[key]
		if !present || target == source {
			continue
		}
		candidates = append(candidates, moveCandidate[K]{key: key, source: source, target: target})
	}
	return candidates
}

func sortCandidates[K comparable](candidates []moveCandidate[K]) {
	sort.Slice(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]
		if a.source != b.source {
			return a.source < b.source
		}
		if a.target != b.target {
			return a.target < b.target
		}
		return hashring.StableKeyDigest(a.key.Key) < hashring.StableKeyDigest(b.key.Key)
	})
}

func toMoves[K comparable](candidates []moveCandidate[K]) []shardcore.KeyMove[K] {
	moves := make([]shardcore.KeyMove[K], len(candidates))
	for i, c := range candidates {
		moves[i] = shardcore.KeyMove[K]{Key: c.key, Source: c.source, Target: c.target}
	}
	return moves
}

// BuildPlan diffs two topology snapshots into a deterministic, ordered
// migration plan (spec §4.8). Keys present only in from or only in to are
// ignored: the planner rebalances existing keys, it does not provision new
// ones or clean up removed ones.
func BuildPlan[K comparable](from, to shardcore.TopologySnapshot[K]) Plan[K] {
	candidates := diff(from, to)
	sortCandidates(candidates)
	return newPlan(toMoves(candidates))
}

// PlanDryRun computes the same diff as BuildPlan but returns only counters,
// avoiding the move-list allocation (spec §4.8).
func PlanDryRun[K comparable](from, to shardcore.TopologySnapshot[K]) DryRunResult {
	candidates := diff(from, to)
	return DryRunResult{Examined: len(from.Assignments), Moves: len(candidates)}
}

// PlanSegmented consumes from as a lazy sequence in chunks of
// opts.SegmentSize (default 1<<20) instead of requiring a materialized
// snapshot, producing the identical deterministic move ordering BuildPlan
// would for the same logical inputs (spec §4.8).
func PlanSegmented[K comparable](ctx context.Context, from iter.Seq2[shardcore.ShardKey[K], shardcore.ShardId], to shardcore.TopologySnapshot[K], opts PlannerOptions) (Plan[K], error) {
	segmentSize := opts.SegmentSize
	if segmentSize <= 0 {
		segmentSize = 1 << 20
	}

	var all []moveCandidate[K]
	segment := make([]moveCandidate[K], 0, segmentSize)
	for key, source := range from {
		if ctx.Err() != nil {
			return Plan[K]{}, ctx.Err()
		}
		target, present := to.Assignments[key]
		if present && target != source {
			segment = append(segment, moveCandidate[K]{key: key, source: source, target: target})
		}
		if len(segment) >= segmentSize {
			all = append(all, segment...)
			segment = make([]moveCandidate[K], 0, segmentSize)
		}
	}
	all = append(all, segment...)

	sortCandidates(all)
	return newPlan(toMoves(all)), nil
}

func newPlan[K comparable](moves []shardcore.KeyMove[K]) Plan[K] {
	return Plan[K]{
		PlanID:    uuid.New(),
		CreatedAt: time.Now(),
		Moves:     moves,
	}
}
