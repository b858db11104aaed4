package rbac

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/platinummonkey/warden/pkg/audit"
	"github.com/platinummonkey/warden/pkg/events"
	"github.com/platinummonkey/warden/pkg/observability"
	"github.com/platinummonkey/warden/pkg/tenant"
)

// recordingAuditLogger captures entries for assertions
type recordingAuditLogger struct {
	entries []*audit.Entry
}

func (r *recordingAuditLogger) Log(ctx context.Context, entry *audit.Entry) error {
	r.entries = append(r.entries, entry)
	return nil
}

func (r *recordingAuditLogger) Close() error { return nil }

// recordingPublisher captures domain events for assertions
type recordingPublisher struct {
	published []*events.Event
}

func (r *recordingPublisher) Publish(ctx context.Context, event *events.Event) error {
	r.published = append(r.published, event)
	return nil
}

func (r *recordingPublisher) Close() error { return nil }

type serviceFixture struct {
	service   *Service
	store     *Store
	checker   *PermissionChecker
	auditLog  *recordingAuditLogger
	publisher *recordingPublisher
}

func setupService(t *testing.T) (*serviceFixture, func(userID int64) *tenant.Context) {
	t.Helper()

	db := setupTestDB(t)
	store := NewStore(db)
	checker, err := NewPermissionChecker(store, 0, time.Minute)
	if err != nil {
		t.Fatalf("NewPermissionChecker failed: %v", err)
	}

	auditLog := &recordingAuditLogger{}
	publisher := &recordingPublisher{}
	log := observability.NewLogger(observability.ErrorLevel, io.Discard)
	service := NewService(store, checker, auditLog, publisher, log)

	// user 1 administers organization 1, user 2 is a plain member
	addMember(t, db, 1, 1, MemberRoleAdmin)
	addMember(t, db, 1, 2, MemberRoleMember)

	fixture := &serviceFixture{service: service, store: store, checker: checker, auditLog: auditLog, publisher: publisher}
	tcFor := func(userID int64) *tenant.Context {
		return tenant.NewContext(1, userID, "sess-1", checker)
	}
	return fixture, tcFor
}

func TestService_CreateRole(t *testing.T) {
	f, tcFor := setupService(t)
	ctx := context.Background()

	role, err := f.service.CreateRole(ctx, tcFor(1), CreateRoleInput{
		Name:        "deployer",
		Description: "Can manage webhooks",
		Permissions: []string{tenant.CapabilityWebhooksCreate},
	})
	if err != nil {
		t.Fatalf("CreateRole failed: %v", err)
	}
	if role.ID == 0 {
		t.Error("expected role ID to be set")
	}

	if len(f.auditLog.entries) != 1 {
		t.Fatalf("expected 1 audit entry, got %d", len(f.auditLog.entries))
	}
	entry := f.auditLog.entries[0]
	if entry.EventName != audit.EventRoleCreated {
		t.Errorf("expected %s, got %s", audit.EventRoleCreated, entry.EventName)
	}
	if entry.UserID != 1 || entry.OrganizationID != 1 {
		t.Errorf("expected actor attribution on audit entry, got user=%d org=%d", entry.UserID, entry.OrganizationID)
	}

	if len(f.publisher.published) != 1 || f.publisher.published[0].Name != events.RoleCreated {
		t.Errorf("expected role.created event, got %+v", f.publisher.published)
	}
}

func TestService_CreateRole_Denied(t *testing.T) {
	f, tcFor := setupService(t)

	_, err := f.service.CreateRole(context.Background(), tcFor(2), CreateRoleInput{
		Name:        "deployer",
		Permissions: []string{tenant.CapabilityWebhooksCreate},
	})
	if !tenant.IsPermissionDenied(err) {
		t.Fatalf("expected permission denied for org:member, got %v", err)
	}
	if len(f.auditLog.entries) != 0 {
		t.Errorf("expected no audit entries for denied call, got %d", len(f.auditLog.entries))
	}
}

func TestService_CreateRole_Validation(t *testing.T) {
	f, tcFor := setupService(t)

	_, err := f.service.CreateRole(context.Background(), tcFor(1), CreateRoleInput{
		Name:        "",
		Permissions: []string{"not-a-capability"},
	})
	if !tenant.IsValidation(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestService_AssignRole_VisibleImmediately(t *testing.T) {
	f, tcFor := setupService(t)
	ctx := context.Background()
	admin := tcFor(1)

	role, err := f.service.CreateRole(ctx, admin, CreateRoleInput{
		Name:        "deployer",
		Permissions: []string{tenant.CapabilityWebhooksCreate},
	})
	if err != nil {
		t.Fatalf("CreateRole failed: %v", err)
	}

	// member 2 starts without webhooks:create; prime the checker cache
	result, err := f.service.CheckPermission(ctx, admin, 2, tenant.CapabilityWebhooksCreate)
	if err != nil {
		t.Fatalf("CheckPermission failed: %v", err)
	}
	if result.Allowed {
		t.Fatal("expected denial before assignment")
	}

	if _, err := f.service.AssignRole(ctx, admin, 2, role.ID); err != nil {
		t.Fatalf("AssignRole failed: %v", err)
	}

	result, err = f.service.CheckPermission(ctx, admin, 2, tenant.CapabilityWebhooksCreate)
	if err != nil {
		t.Fatalf("CheckPermission after assign failed: %v", err)
	}
	if !result.Allowed {
		t.Fatal("expected grant visible to the immediately following check")
	}
}

func TestService_RevokeRole_Idempotent(t *testing.T) {
	f, tcFor := setupService(t)
	ctx := context.Background()
	admin := tcFor(1)

	role, err := f.service.CreateRole(ctx, admin, CreateRoleInput{
		Name:        "deployer",
		Permissions: []string{tenant.CapabilityWebhooksCreate},
	})
	if err != nil {
		t.Fatalf("CreateRole failed: %v", err)
	}
	if _, err := f.service.AssignRole(ctx, admin, 2, role.ID); err != nil {
		t.Fatalf("AssignRole failed: %v", err)
	}

	if err := f.service.RevokeRole(ctx, admin, 2, role.ID); err != nil {
		t.Fatalf("RevokeRole failed: %v", err)
	}
	audited := len(f.auditLog.entries)

	// second revoke succeeds and records nothing new
	if err := f.service.RevokeRole(ctx, admin, 2, role.ID); err != nil {
		t.Fatalf("second RevokeRole failed: %v", err)
	}
	if len(f.auditLog.entries) != audited {
		t.Errorf("expected no extra audit entry for no-op revoke, got %d new", len(f.auditLog.entries)-audited)
	}
}

func TestService_UpdateRole_BuiltInRejected(t *testing.T) {
	f, tcFor := setupService(t)

	// built-in roles are not in the store, so updates resolve to not-found
	name := "renamed"
	_, err := f.service.UpdateRole(context.Background(), tcFor(1), 12345, UpdateRoleInput{Name: &name})
	if !tenant.IsNotFound(err) {
		t.Fatalf("expected not-found for unknown role id, got %v", err)
	}
}

func TestService_ListRoles_IncludesBuiltIn(t *testing.T) {
	f, tcFor := setupService(t)
	ctx := context.Background()
	admin := tcFor(1)

	if _, err := f.service.CreateRole(ctx, admin, CreateRoleInput{
		Name:        "deployer",
		Permissions: []string{tenant.CapabilityWebhooksCreate},
	}); err != nil {
		t.Fatalf("CreateRole failed: %v", err)
	}

	roles, err := f.service.ListRoles(ctx, admin)
	if err != nil {
		t.Fatalf("ListRoles failed: %v", err)
	}
	if len(roles) != 4 {
		t.Fatalf("expected 3 built-in roles plus 1 custom, got %d", len(roles))
	}

	builtIn := 0
	for _, r := range roles {
		if r.IsBuiltIn {
			builtIn++
		}
	}
	if builtIn != 3 {
		t.Errorf("expected 3 built-in roles, got %d", builtIn)
	}
}
