package settings

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/platinummonkey/warden/pkg/tenant"
)

// Store handles settings persistence
type Store struct {
	db *sql.DB
}

// NewStore creates a settings store
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// GetOrganizationSetting retrieves one organization setting by key
func (s *Store) GetOrganizationSetting(ctx context.Context, organizationID int64, key string) (*OrganizationSetting, error) {
	query := `
		SELECT id, organization_id, key, value, category, created_by, created_at, updated_at
		FROM organization_settings
		WHERE organization_id = $1 AND key = $2
	`

	setting := &OrganizationSetting{}
	var category sql.NullString
	err := s.db.QueryRowContext(ctx, query, organizationID, key).Scan(
		&setting.ID,
		&setting.OrganizationID,
		&setting.Key,
		&setting.Value,
		&category,
		&setting.CreatedBy,
		&setting.CreatedAt,
		&setting.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, &tenant.NotFoundError{Resource: "organization setting", ID: key}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get organization setting: %w", err)
	}

	setting.Category = category.String
	return setting, nil
}

// ListOrganizationSettings lists an organization's settings, optionally
// filtered by category
func (s *Store) ListOrganizationSettings(ctx context.Context, organizationID int64, category string) ([]OrganizationSetting, error) {
	query := `
		SELECT id, organization_id, key, value, category, created_by, created_at, updated_at
		FROM organization_settings
		WHERE organization_id = $1
	`
	args := []interface{}{organizationID}
	if category != "" {
		query += ` AND category = $2`
		args = append(args, category)
	}
	query += ` ORDER BY key ASC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list organization settings: %w", err)
	}
	defer rows.Close()

	var settings []OrganizationSetting
	for rows.Next() {
		var setting OrganizationSetting
		var cat sql.NullString
		err := rows.Scan(
			&setting.ID,
			&setting.OrganizationID,
			&setting.Key,
			&setting.Value,
			&cat,
			&setting.CreatedBy,
			&setting.CreatedAt,
			&setting.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan organization setting: %w", err)
		}
		setting.Category = cat.String
		settings = append(settings, setting)
	}

	return settings, rows.Err()
}

// UpsertOrganizationSetting creates or updates one organization setting
func (s *Store) UpsertOrganizationSetting(ctx context.Context, setting *OrganizationSetting) error {
	query := `
		INSERT INTO organization_settings (organization_id, key, value, category, created_by, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $6)
		ON CONFLICT (organization_id, key)
		DO UPDATE SET value = $3, category = $4, updated_at = $6
		RETURNING id, created_at
	`

	now := time.Now()
	err := s.db.QueryRowContext(ctx, query,
		setting.OrganizationID,
		setting.Key,
		setting.Value,
		setting.Category,
		setting.CreatedBy,
		now,
	).Scan(&setting.ID, &setting.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert organization setting: %w", err)
	}

	setting.UpdatedAt = now
	return nil
}

// GetUserSetting retrieves one user setting by key
func (s *Store) GetUserSetting(ctx context.Context, userID int64, key string) (*UserSetting, error) {
	query := `
		SELECT id, user_id, key, value, category, created_at, updated_at
		FROM user_settings
		WHERE user_id = $1 AND key = $2
	`

	setting := &UserSetting{}
	var category sql.NullString
	err := s.db.QueryRowContext(ctx, query, userID, key).Scan(
		&setting.ID,
		&setting.UserID,
		&setting.Key,
		&setting.Value,
		&category,
		&setting.CreatedAt,
		&setting.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, &tenant.NotFoundError{Resource: "user setting", ID: key}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user setting: %w", err)
	}

	setting.Category = category.String
	return setting, nil
}

// ListUserSettings lists a user's settings
func (s *Store) ListUserSettings(ctx context.Context, userID int64) ([]UserSetting, error) {
	query := `
		SELECT id, user_id, key, value, category, created_at, updated_at
		FROM user_settings
		WHERE user_id = $1
		ORDER BY key ASC
	`

	rows, err := s.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list user settings: %w", err)
	}
	defer rows.Close()

	var settings []UserSetting
	for rows.Next() {
		var setting UserSetting
		var category sql.NullString
		err := rows.Scan(
			&setting.ID,
			&setting.UserID,
			&setting.Key,
			&setting.Value,
			&category,
			&setting.CreatedAt,
			&setting.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user setting: %w", err)
		}
		setting.Category = category.String
		settings = append(settings, setting)
	}

	return settings, rows.Err()
}

// UpsertUserSetting creates or updates one user setting
func (s *Store) UpsertUserSetting(ctx context.Context, setting *UserSetting) error {
	query := `
		INSERT INTO user_settings (user_id, key, value, category, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $5)
		ON CONFLICT (user_id, key)
		DO UPDATE SET value = $3, category = $4, updated_at = $5
		RETURNING id, created_at
	`

	now := time.Now()
	err := s.db.QueryRowContext(ctx, query,
		setting.UserID,
		setting.Key,
		setting.Value,
		setting.Category,
		now,
	).Scan(&setting.ID, &setting.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert user setting: %w", err)
	}

	setting.UpdatedAt = now
	return nil
}

// GetUserPreferences lists a user's notification preferences. A zero
// organizationID returns preferences across all organizations.
func (s *Store) GetUserPreferences(ctx context.Context, userID, organizationID int64) ([]NotificationPreference, error) {
	query := `
		SELECT id, user_id, organization_id, channel, category, enabled, frequency, created_at, updated_at
		FROM notification_preferences
		WHERE user_id = $1
	`
	args := []interface{}{userID}
	if organizationID > 0 {
		query += ` AND organization_id = $2`
		args = append(args, organizationID)
	}
	query += ` ORDER BY channel ASC, category ASC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to get user preferences: %w", err)
	}
	defer rows.Close()

	var preferences []NotificationPreference
	for rows.Next() {
		var pref NotificationPreference
		var frequency sql.NullString
		err := rows.Scan(
			&pref.ID,
			&pref.UserID,
			&pref.OrganizationID,
			&pref.Channel,
			&pref.Category,
			&pref.Enabled,
			&frequency,
			&pref.CreatedAt,
			&pref.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan notification preference: %w", err)
		}
		if pref.Enabled {
			pref.Frequency = frequency.String
		}
		preferences = append(preferences, pref)
	}

	return preferences, rows.Err()
}

// UpsertPreference creates or updates one notification preference on its
// unique (user, organization, channel, category) tuple
func (s *Store) UpsertPreference(ctx context.Context, pref *NotificationPreference) error {
	query := `
		INSERT INTO notification_preferences (user_id, organization_id, channel, category, enabled, frequency, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $7)
		ON CONFLICT (user_id, organization_id, channel, category)
		DO UPDATE SET enabled = $5, frequency = $6, updated_at = $7
		RETURNING id, created_at
	`

	now := time.Now()
	err := s.db.QueryRowContext(ctx, query,
		pref.UserID,
		pref.OrganizationID,
		pref.Channel,
		pref.Category,
		pref.Enabled,
		pref.Frequency,
		now,
	).Scan(&pref.ID, &pref.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert notification preference: %w", err)
	}

	pref.UpdatedAt = now
	return nil
}

// GetSecurityPolicy retrieves an organization's security policy
func (s *Store) GetSecurityPolicy(ctx context.Context, organizationID int64) (*SecurityPolicy, error) {
	query := `
		SELECT id, organization_id, password_policy, session_policy, created_at, updated_at
		FROM security_policies
		WHERE organization_id = $1
	`

	policy := &SecurityPolicy{}
	var passwordJSON, sessionJSON []byte
	err := s.db.QueryRowContext(ctx, query, organizationID).Scan(
		&policy.ID,
		&policy.OrganizationID,
		&passwordJSON,
		&sessionJSON,
		&policy.CreatedAt,
		&policy.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, &tenant.NotFoundError{Resource: "security policy", ID: fmt.Sprintf("%d", organizationID)}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get security policy: %w", err)
	}

	if err := json.Unmarshal(passwordJSON, &policy.PasswordPolicy); err != nil {
		return nil, fmt.Errorf("failed to unmarshal password policy: %w", err)
	}
	if err := json.Unmarshal(sessionJSON, &policy.SessionPolicy); err != nil {
		return nil, fmt.Errorf("failed to unmarshal session policy: %w", err)
	}

	return policy, nil
}

// UpsertSecurityPolicy creates or updates the single security policy
// record for an organization
func (s *Store) UpsertSecurityPolicy(ctx context.Context, policy *SecurityPolicy) error {
	passwordJSON, err := json.Marshal(policy.PasswordPolicy)
	if err != nil {
		return fmt.Errorf("failed to marshal password policy: %w", err)
	}
	sessionJSON, err := json.Marshal(policy.SessionPolicy)
	if err != nil {
		return fmt.Errorf("failed to marshal session policy: %w", err)
	}

	query := `
		INSERT INTO security_policies (organization_id, password_policy, session_policy, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $4)
		ON CONFLICT (organization_id)
		DO UPDATE SET password_policy = $2, session_policy = $3, updated_at = $4
		RETURNING id, created_at
	`

	now := time.Now()
	err = s.db.QueryRowContext(ctx, query,
		policy.OrganizationID,
		string(passwordJSON),
		string(sessionJSON),
		now,
	).Scan(&policy.ID, &policy.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert security policy: %w", err)
	}

	policy.UpdatedAt = now
	return nil
}
