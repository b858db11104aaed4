// Package audit provides append-only audit logging for the administration
// core.
//
// Every successful mutation writes exactly one audit entry, named
// settings.<area>.<action> (for example settings.api_key.revoked). Writes
// happen in a post-commit hook: an audit failure is logged locally and never
// rolls back the entity write that preceded it. The DBLogger persists
// entries to the audit_logs table; MultiLogger fans out to several sinks.
package audit
