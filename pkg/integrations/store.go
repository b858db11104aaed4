package integrations

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/platinummonkey/warden/pkg/tenant"
)

// Store handles integration persistence
type Store struct {
	db *sql.DB
}

// NewStore creates an integration store
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// Create persists a new integration
func (s *Store) Create(ctx context.Context, integration *Integration) error {
	configJSON, err := json.Marshal(integration.Config)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	query := `
		INSERT INTO integrations (id, organization_id, provider, config, status, created_by, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $7)
	`

	integration.ID = uuid.New().String()
	if integration.Status == "" {
		integration.Status = StatusActive
	}
	now := time.Now()
	_, err = s.db.ExecContext(ctx, query,
		integration.ID,
		integration.OrganizationID,
		integration.Provider,
		string(configJSON),
		integration.Status,
		integration.CreatedBy,
		now,
	)
	if err != nil {
		return fmt.Errorf("failed to create integration: %w", err)
	}

	integration.CreatedAt = now
	integration.UpdatedAt = now
	return nil
}

// Get retrieves an integration by id within an organization
func (s *Store) Get(ctx context.Context, organizationID int64, integrationID string) (*Integration, error) {
	query := `
		SELECT id, organization_id, provider, config, status, last_sync_at, created_by, created_at, updated_at
		FROM integrations
		WHERE id = $1 AND organization_id = $2
	`

	integration, err := scanIntegration(s.db.QueryRowContext(ctx, query, integrationID, organizationID))
	if err == sql.ErrNoRows {
		return nil, &tenant.NotFoundError{Resource: "integration", ID: integrationID}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get integration: %w", err)
	}

	return integration, nil
}

// List retrieves an organization's integrations
func (s *Store) List(ctx context.Context, organizationID int64) ([]Integration, error) {
	query := `
		SELECT id, organization_id, provider, config, status, last_sync_at, created_by, created_at, updated_at
		FROM integrations
		WHERE organization_id = $1
		ORDER BY created_at DESC
	`

	rows, err := s.db.QueryContext(ctx, query, organizationID)
	if err != nil {
		return nil, fmt.Errorf("failed to list integrations: %w", err)
	}
	defer rows.Close()

	var integrations []Integration
	for rows.Next() {
		integration, err := scanIntegration(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan integration: %w", err)
		}
		integrations = append(integrations, *integration)
	}

	return integrations, rows.Err()
}

// Update rewrites an integration's config and status
func (s *Store) Update(ctx context.Context, integration *Integration) error {
	configJSON, err := json.Marshal(integration.Config)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	query := `
		UPDATE integrations
		SET config = $1, status = $2, updated_at = $3
		WHERE id = $4 AND organization_id = $5
	`

	integration.UpdatedAt = time.Now()
	result, err := s.db.ExecContext(ctx, query,
		string(configJSON),
		integration.Status,
		integration.UpdatedAt,
		integration.ID,
		integration.OrganizationID,
	)
	if err != nil {
		return fmt.Errorf("failed to update integration: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return &tenant.NotFoundError{Resource: "integration", ID: integration.ID}
	}

	return nil
}

// MarkSynced records a completed sync
func (s *Store) MarkSynced(ctx context.Context, organizationID int64, integrationID string, syncedAt time.Time) error {
	query := `
		UPDATE integrations
		SET last_sync_at = $1, updated_at = $1
		WHERE id = $2 AND organization_id = $3
	`
	if _, err := s.db.ExecContext(ctx, query, syncedAt, integrationID, organizationID); err != nil {
		return fmt.Errorf("failed to mark integration synced: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanIntegration(row rowScanner) (*Integration, error) {
	integration := &Integration{}
	var configJSON []byte
	var lastSyncAt sql.NullTime

	err := row.Scan(
		&integration.ID,
		&integration.OrganizationID,
		&integration.Provider,
		&configJSON,
		&integration.Status,
		&lastSyncAt,
		&integration.CreatedBy,
		&integration.CreatedAt,
		&integration.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if len(configJSON) > 0 {
		if err := json.Unmarshal(configJSON, &integration.Config); err != nil {
			return nil, fmt.Errorf("failed to unmarshal config: %w", err)
		}
	}
	if lastSyncAt.Valid {
		integration.LastSyncAt = &lastSyncAt.Time
	}

	return integration, nil
}
