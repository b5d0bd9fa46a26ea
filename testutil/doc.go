// Package testutil collects deterministic load-generation and concurrency
// stress helpers for use in _test.go files: seeded delay
// profiles, skewed workload generators, and stable shuffles. It is grounded
// on IvanBrykalov-shardcache's race_test.go (mixed concurrent workload
// shape), bench_test.go (parallel load generation via testing.B.RunParallel),
// and fuzz_test.go (seeded rand.Source for reproducible runs).
package testutil
