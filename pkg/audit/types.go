package audit

import (
	"encoding/json"
	"time"
)

// EventName identifies the audited operation
type EventName string

const (
	// Settings events
	EventOrgSettingUpdated      EventName = "settings.organization.updated"
	EventOrgSettingsBulkUpdated EventName = "settings.organization.bulk_updated"
	EventUserSettingUpdated     EventName = "settings.user.updated"
	EventNotificationUpdated    EventName = "settings.notifications.updated"
	EventSecurityUpdated        EventName = "settings.security.updated"

	// API key events
	EventAPIKeyCreated EventName = "settings.api_key.created"
	EventAPIKeyRevoked EventName = "settings.api_key.revoked"
	EventAPIKeyRotated EventName = "settings.api_key.rotated"

	// Integration events
	EventIntegrationCreated EventName = "settings.integration.created"
	EventIntegrationUpdated EventName = "settings.integration.updated"
	EventIntegrationSynced  EventName = "settings.integration.synced"

	// Webhook events
	EventWebhookCreated EventName = "settings.webhook.created"
	EventWebhookUpdated EventName = "settings.webhook.updated"

	// Automation events
	EventAutomationCreated EventName = "settings.automation.created"
	EventAutomationUpdated EventName = "settings.automation.updated"

	// Role events
	EventRoleCreated  EventName = "settings.role.created"
	EventRoleUpdated  EventName = "settings.role.updated"
	EventRoleAssigned EventName = "settings.role.assigned"
	EventRoleRevoked  EventName = "settings.role.revoked"

	// Session events
	EventSessionRevoked      EventName = "settings.session.revoked"
	EventSessionsBulkRevoked EventName = "settings.session.bulk_revoked"
)

// EventStatus represents the outcome of an audited operation
type EventStatus string

const (
	StatusSuccess EventStatus = "success"
	StatusFailure EventStatus = "failure"
	StatusDenied  EventStatus = "denied"
)

// Entry represents a single audit log record
type Entry struct {
	ID        int64       `json:"id"`
	Timestamp time.Time   `json:"timestamp"`
	EventName EventName   `json:"event_name"`
	Status    EventStatus `json:"status"`

	// Actor
	UserID         int64  `json:"user_id"`
	OrganizationID int64  `json:"organization_id"`
	SessionID      string `json:"session_id,omitempty"`

	// Resource
	ResourceType string `json:"resource_type,omitempty"`
	ResourceID   string `json:"resource_id,omitempty"`

	Message      string                 `json:"message,omitempty"`
	ErrorMessage string                 `json:"error_message,omitempty"`
	Metadata     map[string]interface{} `json:"metadata,omitempty"`
}

// ToJSON converts the entry to JSON
func (e *Entry) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// SearchFilter narrows audit log queries
type SearchFilter struct {
	StartTime      *time.Time
	EndTime        *time.Time
	UserID         *int64
	OrganizationID *int64
	EventNames     []EventName
	Status         *EventStatus
	ResourceType   string
	ResourceID     string

	Limit  int
	Offset int
}
