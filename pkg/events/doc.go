// Package events publishes typed domain events (integration.created,
// organization.security.updated, ...) to other subsystems.
//
// Delivery is at-least-once: the redis-streams publisher appends each event
// to a stream that consumer groups read with their own acknowledgement
// cursor, so a consumer may observe an event more than once and must
// de-duplicate by event id. Publishing happens in a post-commit hook and
// never rolls back the entity write it follows.
package events
