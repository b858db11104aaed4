package events

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/platinummonkey/warden/pkg/observability"
)

// Domain event names emitted by the administration core.
const (
	SecurityUpdated    = "organization.security.updated"
	APIKeyCreated      = "api_key.created"
	APIKeyRevoked      = "api_key.revoked"
	IntegrationCreated = "integration.created"
	IntegrationSynced  = "integration.synced"
	WebhookCreated     = "webhook.created"
	AutomationCreated  = "automation.created"
	RoleCreated        = "role.created"
	RoleUpdated        = "role.updated"
	RoleAssigned       = "role.assigned"
	SessionRevoked     = "session.revoked"
)

// Event is a typed domain event. ID is unique per publish so consumers can
// de-duplicate under at-least-once delivery.
type Event struct {
	ID             string                 `json:"id"`
	Name           string                 `json:"name"`
	OrganizationID int64                  `json:"organization_id"`
	OccurredAt     time.Time              `json:"occurred_at"`
	Data           map[string]interface{} `json:"data,omitempty"`
}

// New creates an event with a fresh id and timestamp.
func New(name string, organizationID int64, data map[string]interface{}) *Event {
	return &Event{
		ID:             uuid.New().String(),
		Name:           name,
		OrganizationID: organizationID,
		OccurredAt:     time.Now().UTC(),
		Data:           data,
	}
}

// Publisher delivers domain events to other subsystems
type Publisher interface {
	Publish(ctx context.Context, event *Event) error
	Close() error
}

// LogPublisher writes events to the structured log. Used when redis is not
// configured; consumers then tail the log stream.
type LogPublisher struct {
	logger *observability.Logger
}

// NewLogPublisher creates a publisher that logs events
func NewLogPublisher(logger *observability.Logger) *LogPublisher {
	return &LogPublisher{logger: logger}
}

// Publish logs the event
func (p *LogPublisher) Publish(ctx context.Context, event *Event) error {
	p.logger.WithFields(map[string]interface{}{
		"event_id":        event.ID,
		"event_name":      event.Name,
		"organization_id": event.OrganizationID,
	}).Info("domain event")
	return nil
}

// Close is a no-op
func (p *LogPublisher) Close() error { return nil }

// NopPublisher discards events. Test use only.
type NopPublisher struct{}

func (NopPublisher) Publish(ctx context.Context, event *Event) error { return nil }

func (NopPublisher) Close() error { return nil }
