package main

import (
	"context"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/dreamware/shardcore"
)

func newRouteCmd(logger *zap.Logger) *cobra.Command {
	var configPath string
	cmd := &cobra.Command{
		Use:   "route <key>",
		Short: "Resolve a key to its owning shard",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadTopologyConfig(configPath)
			if err != nil {
				return err
			}
			r, _, err := buildRouter(cfg)
			if err != nil {
				return err
			}
			shard, err := r.Resolve(context.Background(), shardcore.ShardKey[string]{Key: args[0]})
			if err != nil {
				return err
			}
			logger.Info("resolved key",
				zap.String("key", args[0]),
				zap.String("shard", string(shard.ID)),
				zap.String("strategy", cfg.Router),
			)
			return nil
		},
	}
	cmd.Flags().StringVarP(&configPath, "config", "c", "topology.yaml", "topology config file")
	return cmd
}
