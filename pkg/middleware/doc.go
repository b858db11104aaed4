// Package middleware provides HTTP middleware for tenant resolution and
// per-organization rate limiting.
//
// TenantMiddleware builds the tenant context for each request from the
// trusted headers set by the authenticating edge proxy and attaches it
// to the request context; handlers retrieve it with tenant.FromContext.
//
// DistributedRateLimiter enforces a fixed-window per-organization limit
// backed by Redis so the limit holds across instances. When Redis is
// unreachable the limiter fails open rather than blocking traffic.
package middleware
