// Package httpprobe provides an HTTP-based health.Probe, preserving the
// behavior of torua/internal/coordinator.HealthMonitor.defaultHealthCheck:
// GET a "/health" endpoint on the shard's address and treat any non-200
// response, or a request error, as unhealthy.
package httpprobe
