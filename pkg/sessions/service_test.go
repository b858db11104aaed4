package sessions

import (
	"context"
	"database/sql"
	"io"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/platinummonkey/warden/pkg/audit"
	"github.com/platinummonkey/warden/pkg/events"
	"github.com/platinummonkey/warden/pkg/observability"
	"github.com/platinummonkey/warden/pkg/tenant"
)

type staticEvaluator struct {
	granted map[string]bool
}

func (e *staticEvaluator) CheckCapability(ctx context.Context, userID, organizationID int64, capability string) (bool, error) {
	return e.granted[capability], nil
}

func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	schema := `
		CREATE TABLE user_sessions (
			id TEXT PRIMARY KEY,
			user_id INTEGER NOT NULL,
			organization_id INTEGER NOT NULL DEFAULT 0,
			device_info TEXT,
			ip_address TEXT,
			created_at TIMESTAMP NOT NULL,
			last_active_at TIMESTAMP NOT NULL,
			expires_at TIMESTAMP NOT NULL,
			revoked_at TIMESTAMP
		);
	`
	if _, err := db.Exec(schema); err != nil {
		t.Fatalf("failed to create test schema: %v", err)
	}

	return db
}

func setupService(t *testing.T, granted ...string) (*Service, *Store, func(userID int64, sessionID string) *tenant.Context) {
	t.Helper()

	store := NewStore(setupTestDB(t))
	log := observability.NewLogger(observability.ErrorLevel, io.Discard)
	service := NewService(store, audit.NopLogger{}, events.NopPublisher{}, log)

	grants := make(map[string]bool, len(granted))
	for _, g := range granted {
		grants[g] = true
	}
	tcFor := func(userID int64, sessionID string) *tenant.Context {
		return tenant.NewContext(1, userID, sessionID, &staticEvaluator{granted: grants})
	}

	return service, store, tcFor
}

func createSession(t *testing.T, store *Store, userID int64, expiresIn time.Duration) *UserSession {
	t.Helper()
	session := &UserSession{
		UserID:         userID,
		OrganizationID: 1,
		DeviceInfo:     "test-device",
		ExpiresAt:      time.Now().Add(expiresIn),
	}
	if err := store.Create(context.Background(), session); err != nil {
		t.Fatalf("failed to create session: %v", err)
	}
	return session
}

func TestService_GetActiveSessions_Self(t *testing.T) {
	service, store, tcFor := setupService(t)
	ctx := context.Background()

	createSession(t, store, 7, time.Hour)
	createSession(t, store, 7, time.Hour)
	createSession(t, store, 8, time.Hour)
	expired := createSession(t, store, 7, -time.Hour)

	sessions, err := service.GetActiveSessions(ctx, tcFor(7, "any"), 7)
	if err != nil {
		t.Fatalf("GetActiveSessions failed: %v", err)
	}
	if len(sessions) != 2 {
		t.Fatalf("expected 2 active sessions, got %d", len(sessions))
	}
	for _, s := range sessions {
		if s.ID == expired.ID {
			t.Error("expired session listed as active")
		}
		if s.UserID != 7 {
			t.Errorf("expected only user 7's sessions, got user %d", s.UserID)
		}
	}
}

func TestService_GetActiveSessions_OtherUserRequiresManage(t *testing.T) {
	service, store, tcFor := setupService(t)
	createSession(t, store, 8, time.Hour)

	_, err := service.GetActiveSessions(context.Background(), tcFor(7, "any"), 8)
	if !tenant.IsPermissionDenied(err) {
		t.Fatalf("expected permission denied, got %v", err)
	}
}

func TestService_GetActiveSessions_WithManageCapability(t *testing.T) {
	service, store, tcFor := setupService(t, tenant.CapabilityUsersManage)
	createSession(t, store, 8, time.Hour)

	sessions, err := service.GetActiveSessions(context.Background(), tcFor(7, "any"), 8)
	if err != nil {
		t.Fatalf("GetActiveSessions failed: %v", err)
	}
	if len(sessions) != 1 {
		t.Errorf("expected 1 session, got %d", len(sessions))
	}
}

func TestService_RevokeSession_SelfService(t *testing.T) {
	service, store, tcFor := setupService(t)
	ctx := context.Background()

	session := createSession(t, store, 7, time.Hour)
	tc := tcFor(7, session.ID)

	if err := service.RevokeSession(ctx, tc, session.ID); err != nil {
		t.Fatalf("RevokeSession failed: %v", err)
	}

	// idempotent on the already-revoked session
	if err := service.RevokeSession(ctx, tc, session.ID); err != nil {
		t.Fatalf("second RevokeSession failed: %v", err)
	}

	got, err := store.Get(ctx, session.ID)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.RevokedAt == nil {
		t.Error("expected session revoked")
	}
}

func TestService_RevokeSession_OtherOwnerDenied(t *testing.T) {
	service, store, tcFor := setupService(t)

	session := createSession(t, store, 8, time.Hour)
	err := service.RevokeSession(context.Background(), tcFor(7, "own"), session.ID)
	if !tenant.IsPermissionDenied(err) {
		t.Fatalf("expected permission denied revoking another user's session, got %v", err)
	}
}

func TestService_RevokeAllSessions_ExceptCurrent(t *testing.T) {
	service, store, tcFor := setupService(t)
	ctx := context.Background()

	current := createSession(t, store, 7, time.Hour)
	createSession(t, store, 7, time.Hour)
	createSession(t, store, 7, time.Hour)
	tc := tcFor(7, current.ID)

	count, err := service.RevokeAllSessions(ctx, tc, 7, current.ID)
	if err != nil {
		t.Fatalf("RevokeAllSessions failed: %v", err)
	}
	if count != 2 {
		t.Errorf("expected 2 sessions revoked, got %d", count)
	}

	active, err := service.GetActiveSessions(ctx, tc, 7)
	if err != nil {
		t.Fatalf("GetActiveSessions failed: %v", err)
	}
	if len(active) != 1 || active[0].ID != current.ID {
		t.Errorf("expected only the excluded session active, got %+v", active)
	}

	// nothing left to revoke
	count, err = service.RevokeAllSessions(ctx, tc, 7, current.ID)
	if err != nil {
		t.Fatalf("second RevokeAllSessions failed: %v", err)
	}
	if count != 0 {
		t.Errorf("expected count 0 on second call, got %d", count)
	}
}

func TestService_CleanupExpiredSessions(t *testing.T) {
	service, store, tcFor := setupService(t)
	ctx := context.Background()

	live := createSession(t, store, 7, time.Hour)
	createSession(t, store, 7, -time.Minute)
	createSession(t, store, 8, -time.Hour)

	count, err := service.CleanupExpiredSessions(ctx)
	if err != nil {
		t.Fatalf("CleanupExpiredSessions failed: %v", err)
	}
	if count != 2 {
		t.Errorf("expected 2 sessions swept, got %d", count)
	}

	// sweep is idempotent
	count, err = service.CleanupExpiredSessions(ctx)
	if err != nil {
		t.Fatalf("second sweep failed: %v", err)
	}
	if count != 0 {
		t.Errorf("expected 0 on second sweep, got %d", count)
	}

	active, err := service.GetActiveSessions(ctx, tcFor(7, live.ID), 7)
	if err != nil {
		t.Fatalf("GetActiveSessions failed: %v", err)
	}
	if len(active) != 1 || active[0].ID != live.ID {
		t.Errorf("expected the live session untouched, got %+v", active)
	}
}
