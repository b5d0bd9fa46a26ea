package testutil

import (
	"math/rand"
	"time"
)

// SeededRand returns a rand.Rand seeded deterministically from seed, the
// same per-worker-stream idiom race_test.go uses
// (rand.New(rand.NewSource(time.Now().UnixNano()+int64(id)*9973))) but with
// the wall-clock term removed so callers get byte-identical sequences
// across runs.
func SeededRand(seed int64) *rand.Rand {
	return rand.New(rand.NewSource(seed))
}

// DelayProfile produces a reproducible stream of per-item delays of base
// plus a random extra in [0, jitter), for simulating
// shards with heterogeneous latency (spec §8 scenario 3, "fairness under
// skew").
type DelayProfile struct {
	rng    *rand.Rand
	base   time.Duration
	jitter time.Duration
}

// NewDelayProfile builds a DelayProfile seeded from seed.
func NewDelayProfile(seed int64, base, jitter time.Duration) *DelayProfile {
	return &DelayProfile{rng: SeededRand(seed), base: base, jitter: jitter}
}

// Next returns the next delay in the sequence.
func (p *DelayProfile) Next() time.Duration {
	if p.jitter <= 0 {
		return p.base
	}
	return p.base + time.Duration(p.rng.Int63n(int64(p.jitter)))
}

// Sleep blocks for Next(), honoring nothing else: callers that need
// cancellation should select on a context's Done channel alongside a timer
// built from this value instead of calling Sleep directly.
func (p *DelayProfile) Sleep() { time.Sleep(p.Next()) }
