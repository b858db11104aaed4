// Package api implements the HTTP surface of the tenant administration
// service.
//
// Every route under /api/v1 runs behind the tenant middleware: the acting
// principal is resolved from the trusted edge headers and attached to the
// request context, and each handler hands it to the corresponding domain
// service. Handlers hold no logic of their own beyond decoding input and
// mapping the service error taxonomy onto HTTP statuses (401 for a
// missing principal, 403 for a denied capability, 404 for a missing
// entity, 400 for invalid input, 502 for downstream failures).
//
// Health and readiness probes live on a separate listener wired in
// cmd/warden so they bypass the tenant middleware entirely.
package api
