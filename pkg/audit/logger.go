package audit

import (
	"context"
	"time"

	"github.com/platinummonkey/warden/pkg/tenant"
)

// Logger is the interface for audit sinks
type Logger interface {
	// Log appends an audit entry
	Log(ctx context.Context, entry *Entry) error

	// Close closes the logger and flushes any buffered entries
	Close() error
}

// NewEntry builds an audit entry attributed to the given tenant context.
func NewEntry(tc *tenant.Context, name EventName, status EventStatus) *Entry {
	entry := &Entry{
		Timestamp: time.Now().UTC(),
		EventName: name,
		Status:    status,
	}
	if tc != nil {
		entry.UserID = tc.UserID
		entry.OrganizationID = tc.OrganizationID
		entry.SessionID = tc.SessionID
	}
	return entry
}

// NopLogger discards all entries. Used when no sink is configured and in
// tests that do not assert on audit output.
type NopLogger struct{}

func (NopLogger) Log(ctx context.Context, entry *Entry) error { return nil }

func (NopLogger) Close() error { return nil }
