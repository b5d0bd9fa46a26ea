package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/dreamware/shardcore"
	"github.com/dreamware/shardcore/migration"
	"github.com/dreamware/shardcore/shardmap"
)

// noopMover/noopVerifier simulate a successful copy/verify for every move
// instantly; shardctl's migrate subcommand demonstrates the executor's
// state machine and checkpointing against the reference in-memory store,
// not a real data-copy backend.
type noopMover struct{}

func (noopMover) Copy(ctx context.Context, move shardcore.KeyMove[string]) error { return nil }

type noopVerifier struct{}

func (noopVerifier) Verify(ctx context.Context, move shardcore.KeyMove[string]) error { return nil }

// storeSwapper adapts a shardmap.Store's all-or-nothing-per-key Swap into
// migration.MapSwapper's applied/err shape, recovering the applied subset
// from shardmap.PartialSwapError when the batch only partially lands.
type storeSwapper struct {
	store shardmap.Store[string]
}

func (s storeSwapper) Swap(ctx context.Context, moves []shardcore.KeyMove[string]) ([]shardcore.KeyMove[string], error) {
	err := s.store.Swap(ctx, moves)
	if err == nil {
		return moves, nil
	}
	var partial *shardmap.PartialSwapError[string]
	if errors.As(err, &partial) {
		failed := make(map[shardcore.ShardKey[string]]struct{}, len(partial.Failed))
		for _, m := range partial.Failed {
			failed[m.Key] = struct{}{}
		}
		applied := make([]shardcore.KeyMove[string], 0, len(moves))
		for _, m := range moves {
			if _, rejected := failed[m.Key]; !rejected {
				applied = append(applied, m)
			}
		}
		return applied, err
	}
	return nil, err
}

func newMigrateCmd(logger *zap.Logger) *cobra.Command {
	var fromPath, toPath string
	var dryRun bool
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Plan and execute a migration between two topology snapshots",
		RunE: func(cmd *cobra.Command, args []string) error {
			from, err := loadAssignmentFile(fromPath)
			if err != nil {
				return err
			}
			to, err := loadAssignmentFile(toPath)
			if err != nil {
				return err
			}

			fromSnap := snapshotFrom(from)
			toSnap := snapshotFrom(to)

			if dryRun {
				result := migration.PlanDryRun(fromSnap, toSnap)
				logger.Info("dry run", zap.Int("examined", result.Examined), zap.Int("moves", result.Moves))
				return nil
			}

			plan := migration.BuildPlan(fromSnap, toSnap)
			logger.Info("plan built", zap.String("plan_id", plan.PlanID.String()), zap.Int("moves", len(plan.Moves)))

			store := shardmap.NewMemStore[string]()
			for key, id := range fromSnap.Assignments {
				store.TryAssign(key, id)
			}

			exec := migration.NewExecutor[string](noopMover{}, noopVerifier{}, storeSwapper{store: store}, migration.NewMemCheckpointStore[string]())
			cp, err := exec.Run(context.Background(), plan, migration.ExecutorOptions{
				Progress: func(p migration.Progress) {
					logger.Info("progress",
						zap.String("plan_id", p.PlanID.String()),
						zap.Int("done", p.Counts[migration.Done]),
						zap.Int("failed", p.Counts[migration.Failed]),
						zap.Int("retries", p.Retries),
						zap.Bool("final", p.Final),
					)
				},
			})
			if err != nil {
				return fmt.Errorf("migration run: %w", err)
			}

			var done, failed int
			for _, s := range cp.States {
				switch s {
				case migration.Done:
					done++
				case migration.Failed:
					failed++
				}
			}
			logger.Info("migration complete", zap.Int("done", done), zap.Int("failed", failed))
			return nil
		},
	}
	cmd.Flags().StringVar(&fromPath, "from", "", "YAML assignment file describing the current topology")
	cmd.Flags().StringVar(&toPath, "to", "", "YAML assignment file describing the target topology")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "only report counters, do not execute the plan")
	cmd.MarkFlagRequired("from")
	cmd.MarkFlagRequired("to")
	return cmd
}

func snapshotFrom(af assignmentFile) shardcore.TopologySnapshot[string] {
	snap := shardcore.NewTopologySnapshot[string]()
	for k, v := range af.Assignments {
		key := shardcore.ShardKey[string]{Key: k}
		id := shardcore.ShardId(v)
		snap.Assignments[key] = id
		snap.LiveShards[id] = struct{}{}
	}
	return snap
}
