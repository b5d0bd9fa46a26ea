// Package prom adapts metrics.Sink to the Prometheus client, grounded on
// IvanBrykalov-shardcache/metrics/prom/prom.go's collector-registration
// pattern: one Prometheus collector per spec-named counter/gauge/histogram,
// registered once at construction and mutated lock-free thereafter (the
// Prometheus client types are themselves goroutine-safe).
package prom
