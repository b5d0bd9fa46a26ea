package main

import (
	"context"
	"fmt"
	"sort"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/dreamware/shardcore"
)

func newInspectCmd(logger *zap.Logger) *cobra.Command {
	var configPath string
	var sampleKeys int
	cmd := &cobra.Command{
		Use:   "inspect",
		Short: "Print shard membership and a sampled key distribution",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadTopologyConfig(configPath)
			if err != nil {
				return err
			}
			r, _, err := buildRouter(cfg)
			if err != nil {
				return err
			}

			shards := r.Shards()
			ids := make([]string, 0, len(shards))
			for _, s := range shards {
				ids = append(ids, string(s.ID))
			}
			sort.Strings(ids)
			logger.Info("topology", zap.Strings("shards", ids), zap.String("strategy", cfg.Router))

			counts := make(map[string]int, len(shards))
			for i := 0; i < sampleKeys; i++ {
				key := shardcore.ShardKey[string]{Key: fmt.Sprintf("inspect-sample-%d", i)}
				sh, err := r.Resolve(context.Background(), key)
				if err != nil {
					return err
				}
				counts[string(sh.ID)]++
			}
			for _, id := range ids {
				logger.Info("shard sample share",
					zap.String("shard", id),
					zap.Int("keys", counts[id]),
					zap.Int("of", sampleKeys),
				)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&configPath, "config", "c", "topology.yaml", "topology config file")
	cmd.Flags().IntVarP(&sampleKeys, "samples", "n", 1000, "number of synthetic keys to sample for the distribution report")
	return cmd
}
