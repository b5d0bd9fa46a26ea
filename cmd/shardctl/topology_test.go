package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadTopologyConfigDefaultsRouterToModulo(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "topology.yaml")
	require.NoError(t, os.WriteFile(path, []byte("shards: [s0, s1, s2]\n"), 0o644))

	cfg, err := loadTopologyConfig(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"s0", "s1", "s2"}, cfg.Shards)
	assert.Equal(t, "modulo", cfg.Router)
}

func TestLoadTopologyConfigRejectsEmptyShardList(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "topology.yaml")
	require.NoError(t, os.WriteFile(path, []byte("shards: []\n"), 0o644))

	_, err := loadTopologyConfig(path)
	assert.Error(t, err)
}

func TestLoadAssignmentFileParsesKeyToShardMap(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "snapshot.yaml")
	require.NoError(t, os.WriteFile(path, []byte("assignments:\n  k0: s0\n  k1: s1\n"), 0o644))

	af, err := loadAssignmentFile(path)
	require.NoError(t, err)
	assert.Equal(t, "s0", af.Assignments["k0"])
	assert.Equal(t, "s1", af.Assignments["k1"])
}
