package main

import (
	"fmt"

	"github.com/dreamware/shardcore"
	"github.com/dreamware/shardcore/router"
	"github.com/dreamware/shardcore/shardmap"
)

// session is the demo CLI's opaque per-shard capability: just the shard's
// address, standing in for whatever connection a real caller would open
// (spec §3's Shard[S] is intentionally opaque to the core).
type session string

func shardsFor(cfg topologyConfig) []shardcore.Shard[session] {
	shards := make([]shardcore.Shard[session], 0, len(cfg.Shards))
	for _, id := range cfg.Shards {
		id := shardcore.ShardId(id)
		shards = append(shards, shardcore.Shard[session]{
			ID:         id,
			NewSession: func() session { return session(id) },
		})
	}
	return shards
}

// buildRouter wires a reference in-memory Store to either router strategy,
// the same "reference implementation over the public API" relationship
// the teacher's cmd/coordinator has to internal/coordinator.
func buildRouter(cfg topologyConfig) (router.Router[string, session], *shardmap.MemStore[string], error) {
	shards := shardsFor(cfg)
	store := shardmap.NewMemStore[string]()

	switch cfg.Router {
	case "", "modulo":
		r, err := router.NewModuloRouter[string, session](shards, store, router.ModuloOptions[string]{})
		return r, store, err
	case "consistent":
		r, err := router.NewConsistentRouter[string, session](shards, store, router.ConsistentOptions[string]{
			ReplicationFactor: cfg.ReplicationFactor,
		})
		return r, store, err
	default:
		return nil, nil, fmt.Errorf("unknown router strategy %q (want \"modulo\" or \"consistent\")", cfg.Router)
	}
}
