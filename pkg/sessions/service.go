package sessions

import (
	"context"
	"fmt"

	"github.com/platinummonkey/warden/pkg/audit"
	"github.com/platinummonkey/warden/pkg/events"
	"github.com/platinummonkey/warden/pkg/observability"
	"github.com/platinummonkey/warden/pkg/tenant"
)

// Service exposes the session registry operations
type Service struct {
	store     *Store
	auditLog  audit.Logger
	publisher events.Publisher
	log       *observability.Logger
}

// NewService creates a session service
func NewService(store *Store, auditLog audit.Logger, publisher events.Publisher, log *observability.Logger) *Service {
	return &Service{
		store:     store,
		auditLog:  auditLog,
		publisher: publisher,
		log:       log,
	}
}

// GetActiveSessions lists a user's active sessions. Users see their own;
// seeing another user's requires users:manage.
func (s *Service) GetActiveSessions(ctx context.Context, tc *tenant.Context, userID int64) ([]UserSession, error) {
	if !tc.Valid() {
		return nil, tenant.ErrContextMissing
	}
	if userID != tc.UserID {
		if err := tenant.RequireCapability(ctx, tc, tenant.CapabilityUsersManage); err != nil {
			return nil, err
		}
	}
	return s.store.GetActiveSessions(ctx, userID)
}

// RevokeSession ends one session. Owners revoke their own sessions;
// revoking someone else's requires users:manage. Revoking an
// already-revoked session is a no-op.
func (s *Service) RevokeSession(ctx context.Context, tc *tenant.Context, sessionID string) error {
	if !tc.Valid() {
		return tenant.ErrContextMissing
	}

	session, err := s.store.Get(ctx, sessionID)
	if err != nil {
		return err
	}
	if session.UserID != tc.UserID {
		if err := tenant.RequireCapability(ctx, tc, tenant.CapabilityUsersManage); err != nil {
			return err
		}
	}

	revoked, err := s.store.Revoke(ctx, sessionID)
	if err != nil {
		return fmt.Errorf("failed to revoke session: %w", err)
	}
	if !revoked {
		return nil
	}

	entry := audit.NewEntry(tc, audit.EventSessionRevoked, audit.StatusSuccess)
	entry.ResourceType = "session"
	entry.ResourceID = sessionID
	entry.Metadata = map[string]interface{}{"target_user_id": session.UserID}
	event := events.New(events.SessionRevoked, tc.OrganizationID, map[string]interface{}{
		"session_id": sessionID,
		"user_id":    session.UserID,
	})
	tenant.RunPostCommit(ctx, s.log,
		func(ctx context.Context) error { return s.auditLog.Log(ctx, entry) },
		func(ctx context.Context) error { return s.publisher.Publish(ctx, event) },
	)

	return nil
}

// RevokeAllSessions revokes every active session of a user except an
// optionally excluded one, typically the caller's current session.
// Returns the number revoked; calling again with nothing left to revoke
// returns zero.
func (s *Service) RevokeAllSessions(ctx context.Context, tc *tenant.Context, userID int64, exceptSessionID string) (int64, error) {
	if !tc.Valid() {
		return 0, tenant.ErrContextMissing
	}
	if userID != tc.UserID {
		if err := tenant.RequireCapability(ctx, tc, tenant.CapabilityUsersManage); err != nil {
			return 0, err
		}
	}

	count, err := s.store.RevokeAllForUser(ctx, userID, exceptSessionID)
	if err != nil {
		return 0, fmt.Errorf("failed to revoke sessions: %w", err)
	}
	if count == 0 {
		return 0, nil
	}

	entry := audit.NewEntry(tc, audit.EventSessionsBulkRevoked, audit.StatusSuccess)
	entry.ResourceType = "session"
	entry.Metadata = map[string]interface{}{
		"target_user_id": userID,
		"revoked":        count,
		"except":         exceptSessionID,
	}
	tenant.RunPostCommit(ctx, s.log, func(ctx context.Context) error {
		return s.auditLog.Log(ctx, entry)
	})

	return count, nil
}

// CleanupExpiredSessions revokes sessions past their expiry. Runs on an
// external schedule, not on behalf of a tenant, so it is not gated.
func (s *Service) CleanupExpiredSessions(ctx context.Context) (int64, error) {
	count, err := s.store.RevokeExpired(ctx)
	if err != nil {
		return 0, err
	}
	if count > 0 {
		s.log.WithField("swept", count).Info("expired sessions revoked")
	}
	return count, nil
}
