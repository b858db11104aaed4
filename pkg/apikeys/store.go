package apikeys

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/platinummonkey/warden/pkg/tenant"
)

// Store handles API key persistence
type Store struct {
	db *sql.DB
}

// NewStore creates an API key store
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// Create persists a new key record
func (s *Store) Create(ctx context.Context, key *APIKey) error {
	scopesJSON, err := json.Marshal(key.Scopes)
	if err != nil {
		return fmt.Errorf("failed to marshal scopes: %w", err)
	}

	query := `
		INSERT INTO api_keys (id, organization_id, user_id, name, display_prefix, scopes, status, hashed_secret, created_by, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $10)
	`

	key.ID = uuid.New().String()
	key.Status = StatusActive
	now := time.Now()
	_, err = s.db.ExecContext(ctx, query,
		key.ID,
		key.OrganizationID,
		key.UserID,
		key.Name,
		key.DisplayPrefix,
		string(scopesJSON),
		key.Status,
		key.HashedSecret,
		key.CreatedBy,
		now,
	)
	if err != nil {
		return fmt.Errorf("failed to create api key: %w", err)
	}

	key.CreatedAt = now
	key.UpdatedAt = now
	return nil
}

// Get retrieves a key by id within an organization
func (s *Store) Get(ctx context.Context, organizationID int64, keyID string) (*APIKey, error) {
	query := `
		SELECT id, organization_id, user_id, name, display_prefix, scopes, status, hashed_secret, created_by, created_at, updated_at, revoked_at, last_used_at
		FROM api_keys
		WHERE id = $1 AND organization_id = $2
	`

	key, err := scanKey(s.db.QueryRowContext(ctx, query, keyID, organizationID))
	if err == sql.ErrNoRows {
		return nil, &tenant.NotFoundError{Resource: "api key", ID: keyID}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get api key: %w", err)
	}

	return key, nil
}

// GetByHash retrieves an active key by its secret hash. Used by the
// authentication edge to verify presented keys.
func (s *Store) GetByHash(ctx context.Context, hashedSecret string) (*APIKey, error) {
	query := `
		SELECT id, organization_id, user_id, name, display_prefix, scopes, status, hashed_secret, created_by, created_at, updated_at, revoked_at, last_used_at
		FROM api_keys
		WHERE hashed_secret = $1 AND status = $2
	`

	key, err := scanKey(s.db.QueryRowContext(ctx, query, hashedSecret, StatusActive))
	if err == sql.ErrNoRows {
		return nil, &tenant.NotFoundError{Resource: "api key", ID: "by-hash"}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get api key by hash: %w", err)
	}

	return key, nil
}

// List retrieves an organization's keys, newest first
func (s *Store) List(ctx context.Context, organizationID int64, filter ListFilter) ([]APIKey, error) {
	query := `
		SELECT id, organization_id, user_id, name, display_prefix, scopes, status, hashed_secret, created_by, created_at, updated_at, revoked_at, last_used_at
		FROM api_keys
		WHERE organization_id = $1
	`
	args := []interface{}{organizationID}
	argPos := 2
	if filter.Status != "" {
		query += fmt.Sprintf(" AND status = $%d", argPos)
		args = append(args, filter.Status)
		argPos++
	}
	if filter.UserID > 0 {
		query += fmt.Sprintf(" AND user_id = $%d", argPos)
		args = append(args, filter.UserID)
	}
	query += ` ORDER BY created_at DESC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list api keys: %w", err)
	}
	defer rows.Close()

	var keys []APIKey
	for rows.Next() {
		key, err := scanKey(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan api key: %w", err)
		}
		keys = append(keys, *key)
	}

	return keys, rows.Err()
}

// Revoke marks a key revoked. Returns false if it was already revoked.
func (s *Store) Revoke(ctx context.Context, organizationID int64, keyID string) (bool, error) {
	query := `
		UPDATE api_keys
		SET status = $1, revoked_at = $2, updated_at = $2
		WHERE id = $3 AND organization_id = $4 AND status = $5
	`

	result, err := s.db.ExecContext(ctx, query, StatusRevoked, time.Now(), keyID, organizationID, StatusActive)
	if err != nil {
		return false, fmt.Errorf("failed to revoke api key: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to revoke api key: %w", err)
	}
	return affected > 0, nil
}

// ReplaceSecret swaps the stored hash and display prefix of an active key.
// The key identity is unchanged; the old secret stops verifying.
func (s *Store) ReplaceSecret(ctx context.Context, organizationID int64, keyID, hashedSecret, displayPrefix string) error {
	query := `
		UPDATE api_keys
		SET hashed_secret = $1, display_prefix = $2, updated_at = $3
		WHERE id = $4 AND organization_id = $5 AND status = $6
	`

	result, err := s.db.ExecContext(ctx, query, hashedSecret, displayPrefix, time.Now(), keyID, organizationID, StatusActive)
	if err != nil {
		return fmt.Errorf("failed to rotate api key: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to rotate api key: %w", err)
	}
	if affected == 0 {
		return &tenant.NotFoundError{Resource: "active api key", ID: keyID}
	}
	return nil
}

// TouchLastUsed records key usage. Called by the authentication edge.
func (s *Store) TouchLastUsed(ctx context.Context, keyID string) error {
	query := `UPDATE api_keys SET last_used_at = $1 WHERE id = $2`
	if _, err := s.db.ExecContext(ctx, query, time.Now(), keyID); err != nil {
		return fmt.Errorf("failed to touch api key: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanKey(row rowScanner) (*APIKey, error) {
	key := &APIKey{}
	var scopesJSON []byte
	var revokedAt, lastUsedAt sql.NullTime

	err := row.Scan(
		&key.ID,
		&key.OrganizationID,
		&key.UserID,
		&key.Name,
		&key.DisplayPrefix,
		&scopesJSON,
		&key.Status,
		&key.HashedSecret,
		&key.CreatedBy,
		&key.CreatedAt,
		&key.UpdatedAt,
		&revokedAt,
		&lastUsedAt,
	)
	if err != nil {
		return nil, err
	}

	if len(scopesJSON) > 0 {
		if err := json.Unmarshal(scopesJSON, &key.Scopes); err != nil {
			return nil, fmt.Errorf("failed to unmarshal scopes: %w", err)
		}
	}
	if revokedAt.Valid {
		key.RevokedAt = &revokedAt.Time
	}
	if lastUsedAt.Valid {
		key.LastUsedAt = &lastUsedAt.Time
	}

	return key, nil
}
