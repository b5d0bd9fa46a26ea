// Command shardctl is a thin demonstration CLI over this module's public
// API: route resolves a key against a topology config, migrate plans and
// runs a migration between two assignment snapshots, and inspect reports
// shard membership and a sampled key distribution. It exercises router,
// migration, and shardmap against the reference in-memory implementations,
// grounded on the teacher's cmd/coordinator and cmd/node mains (flag
// parsing, graceful lifecycle) but rebuilt around cobra and zap instead of
// flag and log.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func main() {
	logger, err := zap.NewProduction()
	if err != nil {
		fmt.Fprintf(os.Stderr, "shardctl: logger init: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	root := &cobra.Command{
		Use:   "shardctl",
		Short: "Inspect and operate a shardcore topology",
	}
	root.AddCommand(newRouteCmd(logger))
	root.AddCommand(newMigrateCmd(logger))
	root.AddCommand(newInspectCmd(logger))

	if err := root.Execute(); err != nil {
		logger.Error("command failed", zap.Error(err))
		os.Exit(1)
	}
}
