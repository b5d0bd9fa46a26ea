package testutil

import "math/rand"

// SkewProfile draws indices in [0,N) from a reproducible Zipf-like
// distribution, for simulating hot-key workloads (a handful of keys receive
// most of the traffic) the way a production shard map would see in
// practice. Grounded on bench_test.go's "hot keyspace" comment
// (keyMask-restricted key range), generalized from a uniform hot range into
// a weighted distribution.
type SkewProfile struct {
	zipf *rand.Zipf
}

// NewSkewProfile builds a SkewProfile over n items. s > 1 controls skew
// strength (closer to 1 is closer to uniform; shardcache's benches use an
// unweighted hot range, this generalizes that into a continuously tunable
// skew). v controls the offset of the distribution's low end and is
// conventionally 1.
func NewSkewProfile(seed int64, n int, s, v float64) *SkewProfile {
	if n <= 0 {
		n = 1
	}
	rng := SeededRand(seed)
	return &SkewProfile{zipf: rand.NewZipf(rng, s, v, uint64(n-1))}
}

// Next returns the next drawn index in [0, n).
func (p *SkewProfile) Next() int { return int(p.zipf.Uint64()) }

// Keys generates count keys drawn from the skew profile, formatted with
// formatKey, for building a reproducible skewed workload of string keys.
func Keys(profile *SkewProfile, count int, formatKey func(i int) string) []string {
	out := make([]string, count)
	for i := range out {
		out[i] = formatKey(profile.Next())
	}
	return out
}
