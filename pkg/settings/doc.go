// Package settings persists organization settings, per-user settings,
// notification preferences and the organization security policy. All writes
// are keyed upserts; bulk operations report per-entry outcomes instead of
// failing the whole batch.
package settings
