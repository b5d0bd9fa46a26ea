package testutil

// StableShuffle returns a copy of items permuted by a Fisher-Yates shuffle
// driven by a rand.Rand seeded from seed, so two calls with the same seed
// and length produce byte-identical orderings — for tests that need a
// reproducible "random-looking" key order rather than map-iteration order,
// which Go intentionally randomizes.
func StableShuffle[T any](seed int64, items []T) []T {
	out := make([]T, len(items))
	copy(out, items)
	rng := SeededRand(seed)
	for i := len(out) - 1; i > 0; i-- {
		j := rng.Intn(i + 1)
		out[i], out[j] = out[j], out[i]
	}
	return out
}
