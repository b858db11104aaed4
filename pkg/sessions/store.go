package sessions

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/platinummonkey/warden/pkg/tenant"
)

// Store handles session persistence
type Store struct {
	db *sql.DB
}

// NewStore creates a session store
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// Create records a new session. Called by the authentication edge.
func (s *Store) Create(ctx context.Context, session *UserSession) error {
	query := `
		INSERT INTO user_sessions (id, user_id, organization_id, device_info, ip_address, created_at, last_active_at, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $6, $7)
	`

	if session.ID == "" {
		session.ID = uuid.New().String()
	}
	now := time.Now()
	_, err := s.db.ExecContext(ctx, query,
		session.ID,
		session.UserID,
		session.OrganizationID,
		session.DeviceInfo,
		session.IPAddress,
		now,
		session.ExpiresAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}

	session.CreatedAt = now
	session.LastActiveAt = now
	return nil
}

// Get retrieves a session by id
func (s *Store) Get(ctx context.Context, sessionID string) (*UserSession, error) {
	query := `
		SELECT id, user_id, organization_id, device_info, ip_address, created_at, last_active_at, expires_at, revoked_at
		FROM user_sessions
		WHERE id = $1
	`

	session, err := scanSession(s.db.QueryRowContext(ctx, query, sessionID))
	if err == sql.ErrNoRows {
		return nil, &tenant.NotFoundError{Resource: "session", ID: sessionID}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}

	return session, nil
}

// GetActiveSessions lists a user's non-revoked, non-expired sessions,
// most recently active first
func (s *Store) GetActiveSessions(ctx context.Context, userID int64) ([]UserSession, error) {
	query := `
		SELECT id, user_id, organization_id, device_info, ip_address, created_at, last_active_at, expires_at, revoked_at
		FROM user_sessions
		WHERE user_id = $1 AND revoked_at IS NULL AND expires_at > $2
		ORDER BY last_active_at DESC
	`

	rows, err := s.db.QueryContext(ctx, query, userID, time.Now())
	if err != nil {
		return nil, fmt.Errorf("failed to get active sessions: %w", err)
	}
	defer rows.Close()

	var sessions []UserSession
	for rows.Next() {
		session, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan session: %w", err)
		}
		sessions = append(sessions, *session)
	}

	return sessions, rows.Err()
}

// Touch refreshes a session's last-active timestamp
func (s *Store) Touch(ctx context.Context, sessionID string) error {
	query := `UPDATE user_sessions SET last_active_at = $1 WHERE id = $2 AND revoked_at IS NULL`
	if _, err := s.db.ExecContext(ctx, query, time.Now(), sessionID); err != nil {
		return fmt.Errorf("failed to touch session: %w", err)
	}
	return nil
}

// Revoke ends a session. Returns false if it was already revoked.
func (s *Store) Revoke(ctx context.Context, sessionID string) (bool, error) {
	query := `UPDATE user_sessions SET revoked_at = $1 WHERE id = $2 AND revoked_at IS NULL`
	result, err := s.db.ExecContext(ctx, query, time.Now(), sessionID)
	if err != nil {
		return false, fmt.Errorf("failed to revoke session: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to revoke session: %w", err)
	}
	return affected > 0, nil
}

// RevokeAllForUser revokes every active session of a user except the one
// given id, which may be empty. Returns the number revoked.
func (s *Store) RevokeAllForUser(ctx context.Context, userID int64, exceptSessionID string) (int64, error) {
	now := time.Now()
	query := `
		UPDATE user_sessions
		SET revoked_at = $1
		WHERE user_id = $2 AND revoked_at IS NULL AND expires_at > $1
	`
	args := []interface{}{now, userID}
	if exceptSessionID != "" {
		query += ` AND id != $3`
		args = append(args, exceptSessionID)
	}

	result, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("failed to revoke sessions: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to revoke sessions: %w", err)
	}
	return affected, nil
}

// RevokeExpired revokes every session past its expiry that has not been
// revoked yet. Returns the number swept.
func (s *Store) RevokeExpired(ctx context.Context) (int64, error) {
	now := time.Now()
	query := `UPDATE user_sessions SET revoked_at = $1 WHERE revoked_at IS NULL AND expires_at <= $1`
	result, err := s.db.ExecContext(ctx, query, now)
	if err != nil {
		return 0, fmt.Errorf("failed to sweep expired sessions: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to sweep expired sessions: %w", err)
	}
	return affected, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanSession(row rowScanner) (*UserSession, error) {
	session := &UserSession{}
	var deviceInfo, ipAddress sql.NullString
	var revokedAt sql.NullTime

	err := row.Scan(
		&session.ID,
		&session.UserID,
		&session.OrganizationID,
		&deviceInfo,
		&ipAddress,
		&session.CreatedAt,
		&session.LastActiveAt,
		&session.ExpiresAt,
		&revokedAt,
	)
	if err != nil {
		return nil, err
	}

	session.DeviceInfo = deviceInfo.String
	session.IPAddress = ipAddress.String
	if revokedAt.Valid {
		session.RevokedAt = &revokedAt.Time
	}

	return session, nil
}
