package rbac

import (
	"context"
	"testing"
	"time"

	"github.com/platinummonkey/warden/pkg/tenant"
)

func TestChecker_NoRolesDeniesEverything(t *testing.T) {
	db := setupTestDB(t)
	checker, err := NewPermissionChecker(NewStore(db), 0, 0)
	if err != nil {
		t.Fatalf("NewPermissionChecker failed: %v", err)
	}

	capabilities := []string{
		tenant.CapabilitySettingsManage,
		tenant.CapabilityAPIKeysCreate,
		tenant.CapabilityWebhooksCreate,
		tenant.CapabilityRolesAssign,
		tenant.CapabilityUsersManage,
	}
	for _, capability := range capabilities {
		result, err := checker.CheckPermission(context.Background(), PermissionCheck{
			UserID:         7,
			OrganizationID: 1,
			Capability:     capability,
		})
		if err != nil {
			t.Fatalf("CheckPermission(%s) failed: %v", capability, err)
		}
		if result.Allowed {
			t.Errorf("expected %s denied for user with no roles", capability)
		}
	}
}

func TestChecker_CustomRoleGrantsCapability(t *testing.T) {
	db := setupTestDB(t)
	store := NewStore(db)
	checker, err := NewPermissionChecker(store, 0, 0)
	if err != nil {
		t.Fatalf("NewPermissionChecker failed: %v", err)
	}
	ctx := context.Background()

	role := &Role{OrganizationID: 1, Name: "deployer", Permissions: []string{tenant.CapabilityWebhooksCreate}, CreatedBy: 42}
	if err := store.CreateRole(ctx, role); err != nil {
		t.Fatalf("CreateRole failed: %v", err)
	}
	if err := store.AssignRoleToUser(ctx, &RoleAssignment{UserID: 7, RoleID: role.ID, OrganizationID: 1, GrantedBy: 42}); err != nil {
		t.Fatalf("AssignRoleToUser failed: %v", err)
	}

	result, err := checker.CheckPermission(ctx, PermissionCheck{UserID: 7, OrganizationID: 1, Capability: tenant.CapabilityWebhooksCreate})
	if err != nil {
		t.Fatalf("CheckPermission failed: %v", err)
	}
	if !result.Allowed {
		t.Fatal("expected webhooks:create allowed after assignment")
	}
	if len(result.MatchedRoles) != 1 || result.MatchedRoles[0] != "deployer" {
		t.Errorf("expected matched role deployer, got %v", result.MatchedRoles)
	}

	// a capability the role does not carry stays denied
	result, err = checker.CheckPermission(ctx, PermissionCheck{UserID: 7, OrganizationID: 1, Capability: tenant.CapabilityAPIKeysDelete})
	if err != nil {
		t.Fatalf("CheckPermission failed: %v", err)
	}
	if result.Allowed {
		t.Error("expected api_keys:delete denied")
	}
}

func TestChecker_BuiltInMemberRole(t *testing.T) {
	db := setupTestDB(t)
	checker, err := NewPermissionChecker(NewStore(db), 0, 0)
	if err != nil {
		t.Fatalf("NewPermissionChecker failed: %v", err)
	}
	ctx := context.Background()

	addMember(t, db, 1, 7, MemberRoleAdmin)
	addMember(t, db, 1, 8, MemberRoleViewer)

	result, err := checker.CheckPermission(ctx, PermissionCheck{UserID: 7, OrganizationID: 1, Capability: tenant.CapabilitySettingsManage})
	if err != nil {
		t.Fatalf("CheckPermission failed: %v", err)
	}
	if !result.Allowed {
		t.Error("expected org:admin member to hold settings:manage")
	}

	result, err = checker.CheckPermission(ctx, PermissionCheck{UserID: 8, OrganizationID: 1, Capability: tenant.CapabilitySettingsManage})
	if err != nil {
		t.Fatalf("CheckPermission failed: %v", err)
	}
	if result.Allowed {
		t.Error("expected org:viewer member to be denied settings:manage")
	}
}

func TestChecker_CacheInvalidation(t *testing.T) {
	db := setupTestDB(t)
	store := NewStore(db)
	checker, err := NewPermissionChecker(store, 0, time.Minute)
	if err != nil {
		t.Fatalf("NewPermissionChecker failed: %v", err)
	}
	ctx := context.Background()

	// prime the cache with a denial
	result, err := checker.CheckPermission(ctx, PermissionCheck{UserID: 7, OrganizationID: 1, Capability: tenant.CapabilityWebhooksCreate})
	if err != nil {
		t.Fatalf("CheckPermission failed: %v", err)
	}
	if result.Allowed {
		t.Fatal("expected denial before assignment")
	}

	role := &Role{OrganizationID: 1, Name: "deployer", Permissions: []string{tenant.CapabilityWebhooksCreate}, CreatedBy: 42}
	if err := store.CreateRole(ctx, role); err != nil {
		t.Fatalf("CreateRole failed: %v", err)
	}
	if err := store.AssignRoleToUser(ctx, &RoleAssignment{UserID: 7, RoleID: role.ID, OrganizationID: 1, GrantedBy: 42}); err != nil {
		t.Fatalf("AssignRoleToUser failed: %v", err)
	}
	checker.InvalidateOrganization(1)

	result, err = checker.CheckPermission(ctx, PermissionCheck{UserID: 7, OrganizationID: 1, Capability: tenant.CapabilityWebhooksCreate})
	if err != nil {
		t.Fatalf("CheckPermission after invalidation failed: %v", err)
	}
	if !result.Allowed {
		t.Error("expected grant visible immediately after invalidation")
	}
}

func TestChecker_GetEffectivePermissions(t *testing.T) {
	db := setupTestDB(t)
	store := NewStore(db)
	checker, err := NewPermissionChecker(store, 0, 0)
	if err != nil {
		t.Fatalf("NewPermissionChecker failed: %v", err)
	}
	ctx := context.Background()

	addMember(t, db, 1, 7, MemberRoleViewer)

	role := &Role{OrganizationID: 1, Name: "key-manager", Permissions: []string{tenant.CapabilityAPIKeysCreate, tenant.CapabilityAPIKeysRead}, CreatedBy: 42}
	if err := store.CreateRole(ctx, role); err != nil {
		t.Fatalf("CreateRole failed: %v", err)
	}
	if err := store.AssignRoleToUser(ctx, &RoleAssignment{UserID: 7, RoleID: role.ID, OrganizationID: 1, GrantedBy: 42}); err != nil {
		t.Fatalf("AssignRoleToUser failed: %v", err)
	}

	permissions, err := checker.GetEffectivePermissions(ctx, 1, 7)
	if err != nil {
		t.Fatalf("GetEffectivePermissions failed: %v", err)
	}

	set := make(map[string]bool, len(permissions))
	for _, p := range permissions {
		set[p] = true
	}
	if !set[tenant.CapabilityAPIKeysCreate] {
		t.Error("expected api_keys:create from custom role")
	}
	// api_keys:read is in both the custom role and the viewer role; the
	// union must not duplicate it
	count := 0
	for _, p := range permissions {
		if p == tenant.CapabilityAPIKeysRead {
			count++
		}
	}
	if count != 1 {
		t.Errorf("expected api_keys:read exactly once, got %d", count)
	}
}
