package integrations

import (
	"context"
	"time"
)

// Integration status values
const (
	StatusActive   = "active"
	StatusDisabled = "disabled"
	StatusError    = "error"
)

// Integration is one configured third-party integration
type Integration struct {
	ID             string            `json:"id"`
	OrganizationID int64             `json:"organization_id"`
	Provider       string            `json:"provider"`
	Config         map[string]string `json:"config"`
	Status         string            `json:"status"`
	LastSyncAt     *time.Time        `json:"last_sync_at,omitempty"`
	CreatedBy      int64             `json:"created_by"`
	CreatedAt      time.Time         `json:"created_at"`
	UpdatedAt      time.Time         `json:"updated_at"`
}

// TestResult is the outcome of a connectivity probe. Failures are data,
// not errors; a timed-out probe reports {success: false, message: "timeout"}.
type TestResult struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

// SyncResult reports a partial-tolerant sync: RecordsSynced counts what
// went through, Errors lists what did not.
type SyncResult struct {
	RecordsSynced int      `json:"records_synced"`
	Errors        []string `json:"errors,omitempty"`
}

// Connector is implemented per provider. TestConnection must not mutate
// any state on either side.
type Connector interface {
	Provider() string
	TestConnection(ctx context.Context, config map[string]string) *TestResult
	Sync(ctx context.Context, config map[string]string) *SyncResult
}
