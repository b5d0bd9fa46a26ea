package health

import (
	"fmt"
	"sync"
	"time"

	"github.com/dreamware/shardcore"
	"github.com/dreamware/shardcore/errs"
	"github.com/dreamware/shardcore/metrics"
)

// Status is a shard's place in the health state machine.
type Status int

const (
	Unknown Status = iota
	Healthy
	Degraded
	Unhealthy
)

func (s Status) String() string {
	switch s {
	case Healthy:
		return "healthy"
	case Degraded:
		return "degraded"
	case Unhealthy:
		return "unhealthy"
	default:
		return "unknown"
	}
}

// State is a per-shard health record (spec §3 "Health state").
type State struct {
	Status               Status
	ConsecutiveSuccesses int
	ConsecutiveFailures  int
	LastProbeAt          time.Time
	LastError            error
	LastDurationMs       int64
}

// Options configures a Policy. Zero-valued fields take the documented
// defaults (spec §4.5).
type Options struct {
	UnhealthyThreshold int           // default 3
	HealthyThreshold   int           // default 2
	CooldownPeriod     time.Duration // default 30s
	Sink               metrics.Sink  // default metrics.NoopSink{}
	OnRecovered        func(shardcore.ShardId)
}

func (o *Options) setDefaults() {
	if o.UnhealthyThreshold <= 0 {
		o.UnhealthyThreshold = 3
	}
	if o.HealthyThreshold <= 0 {
		o.HealthyThreshold = 2
	}
	if o.CooldownPeriod <= 0 {
		o.CooldownPeriod = 30 * time.Second
	}
	if o.Sink == nil {
		o.Sink = metrics.NoopSink{}
	}
}

// Policy is the per-shard health state machine. It is safe for concurrent
// use; RecordSuccess/RecordFailure are typically called from the hot query
// path, so the lock is held only for the duration of a map lookup and a
// small struct mutation.
type Policy struct {
	mu     sync.RWMutex
	states map[shardcore.ShardId]*State
	opt    Options
}

// New constructs a Policy. Every shard starts Unknown (spec: treated as
// Healthy for filtering purposes) until its first probe result.
func New(opt Options) *Policy {
	opt.setDefaults()
	return &Policy{states: make(map[shardcore.ShardId]*State), opt: opt}
}

func (p *Policy) stateFor(id shardcore.ShardId) *State {
	if s, ok := p.states[id]; ok {
		return s
	}
	s := &State{Status: Unknown}
	p.states[id] = s
	return s
}

// RecordSuccess feeds one successful probe or query outcome for id.
func (p *Policy) RecordSuccess(id shardcore.ShardId) {
	p.recordSuccess(id, 0)
}

// RecordSuccessTimed is RecordSuccess plus a duration observation, used by
// Monitor's proactive probes.
func (p *Policy) RecordSuccessTimed(id shardcore.ShardId, durationMs int64) {
	p.recordSuccess(id, durationMs)
}

func (p *Policy) recordSuccess(id shardcore.ShardId, durationMs int64) {
	p.mu.Lock()
	s := p.stateFor(id)
	wasUnhealthy := s.Status == Unhealthy
	s.ConsecutiveSuccesses++
	s.ConsecutiveFailures = 0
	s.LastProbeAt = time.Now()
	s.LastError = nil
	s.LastDurationMs = durationMs

	switch s.Status {
	case Unknown:
		s.Status = Healthy
	case Unhealthy:
		if s.ConsecutiveSuccesses >= p.opt.HealthyThreshold {
			s.Status = Healthy
		}
	}
	recovered := wasUnhealthy && s.Status == Healthy
	p.mu.Unlock()

	if recovered && p.opt.OnRecovered != nil {
		p.opt.OnRecovered(id)
	}
}

// RecordFailure feeds one failed probe or query outcome for id.
func (p *Policy) RecordFailure(id shardcore.ShardId, err error) {
	p.recordFailure(id, err, 0)
}

// RecordFailureTimed is RecordFailure plus a duration observation.
func (p *Policy) RecordFailureTimed(id shardcore.ShardId, err error, durationMs int64) {
	p.recordFailure(id, err, durationMs)
}

func (p *Policy) recordFailure(id shardcore.ShardId, err error, durationMs int64) {
	p.mu.Lock()
	s := p.stateFor(id)
	s.ConsecutiveFailures++
	s.ConsecutiveSuccesses = 0
	s.LastProbeAt = time.Now()
	s.LastError = err
	s.LastDurationMs = durationMs
	if s.ConsecutiveFailures >= p.opt.UnhealthyThreshold {
		s.Status = Unhealthy
	}
	p.mu.Unlock()
}

// StatusOf returns the current status for id (Unknown if never observed).
func (p *Policy) StatusOf(id shardcore.ShardId) Status {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if s, ok := p.states[id]; ok {
		return s.Status
	}
	return Unknown
}

// Snapshot returns a defensive copy of every tracked shard's state.
func (p *Policy) Snapshot() map[shardcore.ShardId]State {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make(map[shardcore.ShardId]State, len(p.states))
	for id, s := range p.states {
		out[id] = *s
	}
	return out
}

// ShouldProbe reports whether id may be proactively probed now: always true
// unless it is Unhealthy and still within CooldownPeriod of LastProbeAt.
// LastProbeAt is set by every recorded success as well as every failure, so
// a success that leaves the shard Unhealthy restarts the cooldown too.
func (p *Policy) ShouldProbe(id shardcore.ShardId, now time.Time) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	s, ok := p.states[id]
	if !ok || s.Status != Unhealthy {
		return true
	}
	return now.Sub(s.LastProbeAt) >= p.opt.CooldownPeriod
}

// FilterMode selects how query fan-out treats unhealthy shards (spec §4.5).
type FilterMode int

const (
	Include FilterMode = iota
	Skip
	Quarantine
	Require
)

// Filter is the configuration for FilterShards.
type Filter struct {
	Mode          FilterMode
	Min           int     // used when Mode == Require
	MinFraction   float64 // used when Mode == Require
	RequireAll    bool    // used when Mode == Require
}

// FilterShards applies f to ids, treating Unknown/Healthy/Degraded as
// healthy and only Unhealthy as excluded. It never mutates ids.
func (p *Policy) FilterShards(ids []shardcore.ShardId, f Filter) ([]shardcore.ShardId, error) {
	p.mu.RLock()
	var healthy, unhealthy []shardcore.ShardId
	for _, id := range ids {
		if s, ok := p.states[id]; ok && s.Status == Unhealthy {
			unhealthy = append(unhealthy, id)
			continue
		}
		healthy = append(healthy, id)
	}
	p.mu.RUnlock()

	total := len(ids)
	switch f.Mode {
	case Include:
		return ids, nil
	case Skip:
		return healthy, nil
	case Quarantine:
		if len(unhealthy) > 0 {
			return nil, errs.InsufficientHealthyShards(total, len(healthy), shardIDStrings(unhealthy))
		}
		return healthy, nil
	case Require:
		ok := true
		switch {
		case f.RequireAll:
			ok = len(unhealthy) == 0
		case f.MinFraction > 0:
			ok = total > 0 && float64(len(healthy))/float64(total) >= f.MinFraction
		case f.Min > 0:
			ok = len(healthy) >= f.Min
		}
		if !ok {
			return nil, errs.InsufficientHealthyShards(total, len(healthy), shardIDStrings(unhealthy))
		}
		return healthy, nil
	default:
		return ids, nil
	}
}

func shardIDStrings(ids []shardcore.ShardId) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = fmt.Sprintf("%s", id)
	}
	return out
}
