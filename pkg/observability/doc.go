// Package observability provides structured logging, Prometheus metrics
// and health checks for the warden service.
//
// The Logger wraps log/slog with a JSON handler and carries the request id
// pulled from context. Metrics cover the administration surface: request
// outcomes per route, permission check and cache behavior, outbound probe
// latency, and the session expiry sweep.
package observability
