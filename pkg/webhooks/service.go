package webhooks

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/platinummonkey/warden/pkg/audit"
	"github.com/platinummonkey/warden/pkg/events"
	"github.com/platinummonkey/warden/pkg/observability"
	"github.com/platinummonkey/warden/pkg/tenant"
)

// Service exposes the permission-gated webhook operations
type Service struct {
	store     *Store
	sender    *Sender
	auditLog  audit.Logger
	publisher events.Publisher
	log       *observability.Logger
}

// NewService creates a webhook service
func NewService(store *Store, sender *Sender, auditLog audit.Logger, publisher events.Publisher, log *observability.Logger) *Service {
	return &Service{
		store:     store,
		sender:    sender,
		auditLog:  auditLog,
		publisher: publisher,
		log:       log,
	}
}

// CreateInput holds the caller-supplied fields for a new webhook
type CreateInput struct {
	URL    string   `json:"url"`
	Events []string `json:"events"`
}

// Create registers a webhook subscription. The signing secret is generated
// here and returned with the webhook.
func (s *Service) Create(ctx context.Context, tc *tenant.Context, input CreateInput) (*Webhook, error) {
	if err := tenant.RequireCapability(ctx, tc, tenant.CapabilityWebhooksCreate); err != nil {
		return nil, err
	}
	if err := validateWebhookInput(input.URL, input.Events); err != nil {
		return nil, err
	}

	secret, err := generateSigningSecret()
	if err != nil {
		return nil, err
	}

	webhook := &Webhook{
		OrganizationID: tc.OrganizationID,
		URL:            input.URL,
		Events:         input.Events,
		Secret:         secret,
		Status:         StatusActive,
		CreatedBy:      tc.UserID,
	}
	if err := s.store.Create(ctx, webhook); err != nil {
		s.audit(ctx, tc, audit.EventWebhookCreated, audit.StatusFailure, "", err)
		return nil, fmt.Errorf("failed to create webhook: %w", err)
	}

	entry := audit.NewEntry(tc, audit.EventWebhookCreated, audit.StatusSuccess)
	entry.ResourceType = "webhook"
	entry.ResourceID = webhook.ID
	entry.Metadata = map[string]interface{}{"url": webhook.URL, "events": webhook.Events}
	event := events.New(events.WebhookCreated, tc.OrganizationID, map[string]interface{}{
		"webhook_id": webhook.ID,
		"url":        webhook.URL,
	})
	tenant.RunPostCommit(ctx, s.log,
		func(ctx context.Context) error { return s.auditLog.Log(ctx, entry) },
		func(ctx context.Context) error { return s.publisher.Publish(ctx, event) },
	)

	return webhook, nil
}

// Get returns one webhook
func (s *Service) Get(ctx context.Context, tc *tenant.Context, webhookID string) (*Webhook, error) {
	if err := tenant.RequireCapability(ctx, tc, tenant.CapabilityWebhooksRead); err != nil {
		return nil, err
	}
	return s.store.Get(ctx, tc.OrganizationID, webhookID)
}

// List returns the organization's webhooks
func (s *Service) List(ctx context.Context, tc *tenant.Context) ([]Webhook, error) {
	if err := tenant.RequireCapability(ctx, tc, tenant.CapabilityWebhooksRead); err != nil {
		return nil, err
	}
	return s.store.List(ctx, tc.OrganizationID)
}

// UpdateInput holds the mutable webhook fields. Nil fields are unchanged.
type UpdateInput struct {
	URL    *string  `json:"url,omitempty"`
	Events []string `json:"events,omitempty"`
	Status *string  `json:"status,omitempty"`
}

// Update modifies a webhook subscription
func (s *Service) Update(ctx context.Context, tc *tenant.Context, webhookID string, input UpdateInput) (*Webhook, error) {
	if err := tenant.RequireCapability(ctx, tc, tenant.CapabilityWebhooksUpdate); err != nil {
		return nil, err
	}

	webhook, err := s.store.Get(ctx, tc.OrganizationID, webhookID)
	if err != nil {
		return nil, err
	}

	if input.URL != nil {
		webhook.URL = *input.URL
	}
	if input.Events != nil {
		webhook.Events = input.Events
	}
	if input.Status != nil {
		if *input.Status != StatusActive && *input.Status != StatusDisabled {
			return nil, &tenant.ValidationError{Problems: []string{fmt.Sprintf("unknown status %q", *input.Status)}}
		}
		webhook.Status = *input.Status
	}
	if err := validateWebhookInput(webhook.URL, webhook.Events); err != nil {
		return nil, err
	}

	if err := s.store.Update(ctx, webhook); err != nil {
		s.audit(ctx, tc, audit.EventWebhookUpdated, audit.StatusFailure, webhookID, err)
		return nil, fmt.Errorf("failed to update webhook: %w", err)
	}

	entry := audit.NewEntry(tc, audit.EventWebhookUpdated, audit.StatusSuccess)
	entry.ResourceType = "webhook"
	entry.ResourceID = webhookID
	entry.Metadata = map[string]interface{}{"url": webhook.URL, "status": webhook.Status}
	tenant.RunPostCommit(ctx, s.log, func(ctx context.Context) error {
		return s.auditLog.Log(ctx, entry)
	})

	return webhook, nil
}

// Test performs a real delivery attempt against the webhook endpoint. The
// attempt is never written to the delivery log; failures come back as
// structured data.
func (s *Service) Test(ctx context.Context, tc *tenant.Context, webhookID string, payload json.RawMessage) (*TestResult, error) {
	if err := tenant.RequireCapability(ctx, tc, tenant.CapabilityWebhooksTest); err != nil {
		return nil, err
	}

	webhook, err := s.store.Get(ctx, tc.OrganizationID, webhookID)
	if err != nil {
		return nil, err
	}

	if len(payload) == 0 {
		payload, err = json.Marshal(map[string]interface{}{
			"event":     "webhook.test",
			"timestamp": time.Now().UTC(),
			"data":      map[string]interface{}{"webhook_id": webhook.ID},
		})
		if err != nil {
			return nil, fmt.Errorf("failed to build test payload: %w", err)
		}
	}

	return s.sender.Send(ctx, webhook, payload), nil
}

// GetDeliveries returns a webhook's production delivery history, newest
// first, capped at limit.
func (s *Service) GetDeliveries(ctx context.Context, tc *tenant.Context, webhookID string, limit int) ([]Delivery, error) {
	if err := tenant.RequireCapability(ctx, tc, tenant.CapabilityWebhooksRead); err != nil {
		return nil, err
	}

	// scope check before touching the delivery log
	if _, err := s.store.Get(ctx, tc.OrganizationID, webhookID); err != nil {
		return nil, err
	}

	return s.store.GetDeliveries(ctx, webhookID, limit)
}

func (s *Service) audit(ctx context.Context, tc *tenant.Context, name audit.EventName, status audit.EventStatus, webhookID string, opErr error) {
	entry := audit.NewEntry(tc, name, status)
	entry.ResourceType = "webhook"
	entry.ResourceID = webhookID
	if opErr != nil {
		entry.ErrorMessage = opErr.Error()
	}
	tenant.RunPostCommit(ctx, s.log, func(ctx context.Context) error {
		return s.auditLog.Log(ctx, entry)
	})
}

func validateWebhookInput(rawURL string, eventNames []string) error {
	var problems []string

	parsed, err := url.Parse(rawURL)
	if err != nil || parsed.Host == "" || (parsed.Scheme != "http" && parsed.Scheme != "https") {
		problems = append(problems, "url must be a valid http or https URL")
	}
	if len(eventNames) == 0 {
		problems = append(problems, "at least one event subscription is required")
	}
	for _, e := range eventNames {
		if strings.TrimSpace(e) == "" {
			problems = append(problems, "event names must not be empty")
		}
	}

	if len(problems) > 0 {
		return &tenant.ValidationError{Problems: problems}
	}
	return nil
}

func generateSigningSecret() (string, error) {
	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		return "", fmt.Errorf("failed to generate signing secret: %w", err)
	}
	return "whsec_" + hex.EncodeToString(raw), nil
}
