// Package tenant carries the per-request tenant context and the shared
// error taxonomy for the administration core.
//
// Every public operation in the other packages takes a *tenant.Context as
// its first domain argument. The context resolves the acting organization,
// user and session, and evaluates named capabilities through a pluggable
// PermissionEvaluator. Gated operations call RequireCapability before
// touching any store, so a denied request can never cause a partial write.
package tenant
