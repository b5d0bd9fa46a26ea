package main

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// topologyConfig is the YAML shape loaded by --config: a list of shard ids
// and the router strategy to resolve against them, grounded on
// orbas1-Synnergy's node-config yaml.v2/v3 loading shape.
type topologyConfig struct {
	Shards            []string `yaml:"shards"`
	Router            string   `yaml:"router"` // "modulo" (default) or "consistent"
	ReplicationFactor int      `yaml:"replication_factor"`
}

func loadTopologyConfig(path string) (topologyConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return topologyConfig{}, fmt.Errorf("read config %q: %w", path, err)
	}
	var cfg topologyConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return topologyConfig{}, fmt.Errorf("parse config %q: %w", path, err)
	}
	if len(cfg.Shards) == 0 {
		return topologyConfig{}, fmt.Errorf("config %q: shards must be non-empty", path)
	}
	if cfg.Router == "" {
		cfg.Router = "modulo"
	}
	return cfg, nil
}

// assignmentFile is the YAML shape for migrate's --from/--to snapshot
// files: a flat key -> shard id map.
type assignmentFile struct {
	Assignments map[string]string `yaml:"assignments"`
}

func loadAssignmentFile(path string) (assignmentFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return assignmentFile{}, fmt.Errorf("read assignment file %q: %w", path, err)
	}
	var af assignmentFile
	if err := yaml.Unmarshal(data, &af); err != nil {
		return assignmentFile{}, fmt.Errorf("parse assignment file %q: %w", path, err)
	}
	return af, nil
}
