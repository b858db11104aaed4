package webhooks

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/platinummonkey/warden/pkg/tenant"
)

// Store handles webhook and delivery persistence
type Store struct {
	db *sql.DB
}

// NewStore creates a webhook store
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// Create persists a new webhook
func (s *Store) Create(ctx context.Context, webhook *Webhook) error {
	eventsJSON, err := json.Marshal(webhook.Events)
	if err != nil {
		return fmt.Errorf("failed to marshal events: %w", err)
	}

	query := `
		INSERT INTO webhooks (id, organization_id, url, events, secret, status, created_by, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $8)
	`

	webhook.ID = uuid.New().String()
	if webhook.Status == "" {
		webhook.Status = StatusActive
	}
	now := time.Now()
	_, err = s.db.ExecContext(ctx, query,
		webhook.ID,
		webhook.OrganizationID,
		webhook.URL,
		string(eventsJSON),
		webhook.Secret,
		webhook.Status,
		webhook.CreatedBy,
		now,
	)
	if err != nil {
		return fmt.Errorf("failed to create webhook: %w", err)
	}

	webhook.CreatedAt = now
	webhook.UpdatedAt = now
	return nil
}

// Get retrieves a webhook by id within an organization
func (s *Store) Get(ctx context.Context, organizationID int64, webhookID string) (*Webhook, error) {
	query := `
		SELECT id, organization_id, url, events, secret, status, created_by, created_at, updated_at
		FROM webhooks
		WHERE id = $1 AND organization_id = $2
	`

	webhook, err := scanWebhook(s.db.QueryRowContext(ctx, query, webhookID, organizationID))
	if err == sql.ErrNoRows {
		return nil, &tenant.NotFoundError{Resource: "webhook", ID: webhookID}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get webhook: %w", err)
	}

	return webhook, nil
}

// List retrieves an organization's webhooks
func (s *Store) List(ctx context.Context, organizationID int64) ([]Webhook, error) {
	query := `
		SELECT id, organization_id, url, events, secret, status, created_by, created_at, updated_at
		FROM webhooks
		WHERE organization_id = $1
		ORDER BY created_at DESC
	`

	rows, err := s.db.QueryContext(ctx, query, organizationID)
	if err != nil {
		return nil, fmt.Errorf("failed to list webhooks: %w", err)
	}
	defer rows.Close()

	var webhooks []Webhook
	for rows.Next() {
		webhook, err := scanWebhook(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan webhook: %w", err)
		}
		webhooks = append(webhooks, *webhook)
	}

	return webhooks, rows.Err()
}

// ListSubscribed retrieves the active webhooks of an organization
// subscribed to an event name. Used by the dispatch path.
func (s *Store) ListSubscribed(ctx context.Context, organizationID int64, eventName string) ([]Webhook, error) {
	webhooks, err := s.List(ctx, organizationID)
	if err != nil {
		return nil, err
	}

	var subscribed []Webhook
	for _, w := range webhooks {
		if w.Status == StatusActive && w.SubscribedTo(eventName) {
			subscribed = append(subscribed, w)
		}
	}
	return subscribed, nil
}

// Update rewrites a webhook's mutable fields
func (s *Store) Update(ctx context.Context, webhook *Webhook) error {
	eventsJSON, err := json.Marshal(webhook.Events)
	if err != nil {
		return fmt.Errorf("failed to marshal events: %w", err)
	}

	query := `
		UPDATE webhooks
		SET url = $1, events = $2, status = $3, updated_at = $4
		WHERE id = $5 AND organization_id = $6
	`

	webhook.UpdatedAt = time.Now()
	result, err := s.db.ExecContext(ctx, query,
		webhook.URL,
		string(eventsJSON),
		webhook.Status,
		webhook.UpdatedAt,
		webhook.ID,
		webhook.OrganizationID,
	)
	if err != nil {
		return fmt.Errorf("failed to update webhook: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return &tenant.NotFoundError{Resource: "webhook", ID: webhook.ID}
	}

	return nil
}

// RecordDelivery appends one production delivery record
func (s *Store) RecordDelivery(ctx context.Context, delivery *Delivery) error {
	query := `
		INSERT INTO webhook_deliveries (id, webhook_id, request_payload, response_status, response_body, success, timestamp)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	delivery.ID = uuid.New().String()
	if delivery.Timestamp.IsZero() {
		delivery.Timestamp = time.Now()
	}
	_, err := s.db.ExecContext(ctx, query,
		delivery.ID,
		delivery.WebhookID,
		delivery.RequestPayload,
		delivery.ResponseStatus,
		delivery.ResponseBody,
		delivery.Success,
		delivery.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("failed to record delivery: %w", err)
	}
	return nil
}

// GetDeliveries retrieves a webhook's delivery history, newest first
func (s *Store) GetDeliveries(ctx context.Context, webhookID string, limit int) ([]Delivery, error) {
	if limit <= 0 {
		limit = 50
	}

	query := `
		SELECT id, webhook_id, request_payload, response_status, response_body, success, timestamp
		FROM webhook_deliveries
		WHERE webhook_id = $1
		ORDER BY timestamp DESC
		LIMIT $2
	`

	rows, err := s.db.QueryContext(ctx, query, webhookID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get deliveries: %w", err)
	}
	defer rows.Close()

	var deliveries []Delivery
	for rows.Next() {
		var d Delivery
		var responseBody sql.NullString
		err := rows.Scan(
			&d.ID,
			&d.WebhookID,
			&d.RequestPayload,
			&d.ResponseStatus,
			&responseBody,
			&d.Success,
			&d.Timestamp,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan delivery: %w", err)
		}
		d.ResponseBody = responseBody.String
		deliveries = append(deliveries, d)
	}

	return deliveries, rows.Err()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanWebhook(row rowScanner) (*Webhook, error) {
	webhook := &Webhook{}
	var eventsJSON []byte

	err := row.Scan(
		&webhook.ID,
		&webhook.OrganizationID,
		&webhook.URL,
		&eventsJSON,
		&webhook.Secret,
		&webhook.Status,
		&webhook.CreatedBy,
		&webhook.CreatedAt,
		&webhook.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if len(eventsJSON) > 0 {
		if err := json.Unmarshal(eventsJSON, &webhook.Events); err != nil {
			return nil, fmt.Errorf("failed to unmarshal events: %w", err)
		}
	}

	return webhook, nil
}
