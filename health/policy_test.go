package health

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dreamware/shardcore"
)

func TestUnknownIsOptimisticDefault(t *testing.T) {
	p := New(Options{})
	assert.Equal(t, Unknown, p.StatusOf("s1"))
	ids, err := p.FilterShards([]shardcore.ShardId{"s1"}, Filter{Mode: Quarantine})
	require.NoError(t, err)
	assert.Equal(t, []shardcore.ShardId{"s1"}, ids)
}

func TestUnknownToHealthyOnFirstSuccess(t *testing.T) {
	p := New(Options{})
	p.RecordSuccess("s1")
	assert.Equal(t, Healthy, p.StatusOf("s1"))
}

func TestUnhealthyAfterThreshold(t *testing.T) {
	p := New(Options{UnhealthyThreshold: 3})
	p.RecordSuccess("s1")
	for i := 0; i < 2; i++ {
		p.RecordFailure("s1", errors.New("boom"))
		assert.NotEqual(t, Unhealthy, p.StatusOf("s1"))
	}
	p.RecordFailure("s1", errors.New("boom"))
	assert.Equal(t, Unhealthy, p.StatusOf("s1"))
}

func TestRecoveryAfterHealthyThresholdFiresOnce(t *testing.T) {
	var recovered int
	p := New(Options{UnhealthyThreshold: 1, HealthyThreshold: 2, OnRecovered: func(shardcore.ShardId) { recovered++ }})
	p.RecordFailure("s1", errors.New("x"))
	assert.Equal(t, Unhealthy, p.StatusOf("s1"))

	p.RecordSuccess("s1")
	assert.Equal(t, Unhealthy, p.StatusOf("s1"), "one success is below HealthyThreshold=2")
	p.RecordSuccess("s1")
	assert.Equal(t, Healthy, p.StatusOf("s1"))
	assert.Equal(t, 1, recovered)

	// Further successes must not re-fire the recovery edge.
	p.RecordSuccess("s1")
	assert.Equal(t, 1, recovered)
}

func TestCooldownBlocksReprobeOfUnhealthyShard(t *testing.T) {
	p := New(Options{UnhealthyThreshold: 1, CooldownPeriod: time.Hour})
	p.RecordFailure("s1", errors.New("x"))
	assert.False(t, p.ShouldProbe("s1", time.Now()))
	assert.True(t, p.ShouldProbe("s1", time.Now().Add(2*time.Hour)))
}

func TestFilterModes(t *testing.T) {
	p := New(Options{UnhealthyThreshold: 1})
	p.RecordFailure("bad", errors.New("x"))
	ids := []shardcore.ShardId{"good", "bad"}

	t.Run("Include keeps everything", func(t *testing.T) {
		out, err := p.FilterShards(ids, Filter{Mode: Include})
		require.NoError(t, err)
		assert.Equal(t, ids, out)
	})

	t.Run("Skip drops unhealthy", func(t *testing.T) {
		out, err := p.FilterShards(ids, Filter{Mode: Skip})
		require.NoError(t, err)
		assert.Equal(t, []shardcore.ShardId{"good"}, out)
	})

	t.Run("Quarantine fails if any unhealthy", func(t *testing.T) {
		_, err := p.FilterShards(ids, Filter{Mode: Quarantine})
		require.Error(t, err)
	})

	t.Run("Require with Min satisfied", func(t *testing.T) {
		out, err := p.FilterShards(ids, Filter{Mode: Require, Min: 1})
		require.NoError(t, err)
		assert.Equal(t, []shardcore.ShardId{"good"}, out)
	})

	t.Run("Require with Min unsatisfied", func(t *testing.T) {
		_, err := p.FilterShards(ids, Filter{Mode: Require, Min: 2})
		require.Error(t, err)
	})

	t.Run("Require RequireAll", func(t *testing.T) {
		_, err := p.FilterShards(ids, Filter{Mode: Require, RequireAll: true})
		require.Error(t, err)
	})
}
