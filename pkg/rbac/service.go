package rbac

import (
	"context"
	"fmt"
	"strings"

	"github.com/platinummonkey/warden/pkg/audit"
	"github.com/platinummonkey/warden/pkg/events"
	"github.com/platinummonkey/warden/pkg/observability"
	"github.com/platinummonkey/warden/pkg/tenant"
)

// Service exposes the permission-gated role operations. Role mutations
// invalidate the checker cache before returning so a follow-up check
// observes the change.
type Service struct {
	store     *Store
	checker   *PermissionChecker
	auditLog  audit.Logger
	publisher events.Publisher
	log       *observability.Logger
}

// NewService creates a role service
func NewService(store *Store, checker *PermissionChecker, auditLog audit.Logger, publisher events.Publisher, log *observability.Logger) *Service {
	return &Service{
		store:     store,
		checker:   checker,
		auditLog:  auditLog,
		publisher: publisher,
		log:       log,
	}
}

// CreateRoleInput holds the caller-supplied fields for a new custom role
type CreateRoleInput struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Permissions []string `json:"permissions"`
}

// CreateRole creates a custom role within the caller's organization
func (s *Service) CreateRole(ctx context.Context, tc *tenant.Context, input CreateRoleInput) (*Role, error) {
	if err := tenant.RequireCapability(ctx, tc, tenant.CapabilityRolesCreate); err != nil {
		return nil, err
	}
	if err := validateRoleInput(input.Name, input.Permissions); err != nil {
		return nil, err
	}

	role := &Role{
		OrganizationID: tc.OrganizationID,
		Name:           strings.TrimSpace(input.Name),
		Description:    input.Description,
		Permissions:    input.Permissions,
		CreatedBy:      tc.UserID,
	}

	if err := s.store.CreateRole(ctx, role); err != nil {
		s.audit(ctx, tc, audit.EventRoleCreated, audit.StatusFailure, "role", "", err)
		return nil, fmt.Errorf("failed to create role: %w", err)
	}

	s.checker.InvalidateOrganization(tc.OrganizationID)
	s.recordRoleChange(ctx, tc, audit.EventRoleCreated, role, map[string]interface{}{
		"name":        role.Name,
		"permissions": role.Permissions,
	})
	return role, nil
}

// GetRole returns a single role by id, scoped to the caller's organization
func (s *Service) GetRole(ctx context.Context, tc *tenant.Context, roleID int64) (*Role, error) {
	if err := tenant.RequireCapability(ctx, tc, tenant.CapabilityRolesRead); err != nil {
		return nil, err
	}
	return s.store.GetRole(ctx, tc.OrganizationID, roleID)
}

// ListRoles returns the organization's custom roles plus the built-in
// roles every organization carries.
func (s *Service) ListRoles(ctx context.Context, tc *tenant.Context) ([]Role, error) {
	if err := tenant.RequireCapability(ctx, tc, tenant.CapabilityRolesRead); err != nil {
		return nil, err
	}

	custom, err := s.store.ListRoles(ctx, tc.OrganizationID)
	if err != nil {
		return nil, fmt.Errorf("failed to list roles: %w", err)
	}
	return append(BuiltInRoles(), custom...), nil
}

// UpdateRoleInput holds the mutable fields of a custom role. Nil fields
// are left unchanged.
type UpdateRoleInput struct {
	Name        *string  `json:"name,omitempty"`
	Description *string  `json:"description,omitempty"`
	Permissions []string `json:"permissions,omitempty"`
}

// UpdateRole updates a custom role. Built-in roles cannot be modified.
func (s *Service) UpdateRole(ctx context.Context, tc *tenant.Context, roleID int64, input UpdateRoleInput) (*Role, error) {
	if err := tenant.RequireCapability(ctx, tc, tenant.CapabilityRolesUpdate); err != nil {
		return nil, err
	}

	role, err := s.store.GetRole(ctx, tc.OrganizationID, roleID)
	if err != nil {
		return nil, err
	}
	if role.IsBuiltIn {
		return nil, &tenant.ValidationError{Problems: []string{"built-in roles cannot be modified"}}
	}

	if input.Name != nil {
		role.Name = strings.TrimSpace(*input.Name)
	}
	if input.Description != nil {
		role.Description = *input.Description
	}
	if input.Permissions != nil {
		role.Permissions = input.Permissions
	}
	if err := validateRoleInput(role.Name, role.Permissions); err != nil {
		return nil, err
	}

	if err := s.store.UpdateRole(ctx, role); err != nil {
		s.audit(ctx, tc, audit.EventRoleUpdated, audit.StatusFailure, "role", fmt.Sprintf("%d", roleID), err)
		return nil, fmt.Errorf("failed to update role: %w", err)
	}

	s.checker.InvalidateOrganization(tc.OrganizationID)
	s.recordRoleChange(ctx, tc, audit.EventRoleUpdated, role, map[string]interface{}{
		"name":        role.Name,
		"permissions": role.Permissions,
	})
	return role, nil
}

// AssignRole grants a custom role to a user within the caller's
// organization. The grant is visible to permission checks immediately.
func (s *Service) AssignRole(ctx context.Context, tc *tenant.Context, userID, roleID int64) (*RoleAssignment, error) {
	if err := tenant.RequireCapability(ctx, tc, tenant.CapabilityRolesAssign); err != nil {
		return nil, err
	}

	role, err := s.store.GetRole(ctx, tc.OrganizationID, roleID)
	if err != nil {
		return nil, err
	}

	assignment := &RoleAssignment{
		UserID:         userID,
		RoleID:         roleID,
		OrganizationID: tc.OrganizationID,
		GrantedBy:      tc.UserID,
	}
	if err := s.store.AssignRoleToUser(ctx, assignment); err != nil {
		s.audit(ctx, tc, audit.EventRoleAssigned, audit.StatusFailure, "role", fmt.Sprintf("%d", roleID), err)
		return nil, fmt.Errorf("failed to assign role: %w", err)
	}

	s.checker.InvalidateOrganization(tc.OrganizationID)

	entry := audit.NewEntry(tc, audit.EventRoleAssigned, audit.StatusSuccess)
	entry.ResourceType = "role"
	entry.ResourceID = fmt.Sprintf("%d", roleID)
	entry.Metadata = map[string]interface{}{"target_user_id": userID, "role_name": role.Name}
	event := events.New(events.RoleAssigned, tc.OrganizationID, map[string]interface{}{
		"role_id": roleID,
		"user_id": userID,
	})
	tenant.RunPostCommit(ctx, s.log,
		func(ctx context.Context) error { return s.auditLog.Log(ctx, entry) },
		func(ctx context.Context) error { return s.publisher.Publish(ctx, event) },
	)

	return assignment, nil
}

// RevokeRole removes a role grant from a user. Revoking a role the user
// does not hold is not an error.
func (s *Service) RevokeRole(ctx context.Context, tc *tenant.Context, userID, roleID int64) error {
	if err := tenant.RequireCapability(ctx, tc, tenant.CapabilityRolesAssign); err != nil {
		return err
	}

	removed, err := s.store.RevokeRoleFromUser(ctx, tc.OrganizationID, userID, roleID)
	if err != nil {
		s.audit(ctx, tc, audit.EventRoleRevoked, audit.StatusFailure, "role", fmt.Sprintf("%d", roleID), err)
		return fmt.Errorf("failed to revoke role: %w", err)
	}
	if !removed {
		return nil
	}

	s.checker.InvalidateOrganization(tc.OrganizationID)

	entry := audit.NewEntry(tc, audit.EventRoleRevoked, audit.StatusSuccess)
	entry.ResourceType = "role"
	entry.ResourceID = fmt.Sprintf("%d", roleID)
	entry.Metadata = map[string]interface{}{"target_user_id": userID}
	tenant.RunPostCommit(ctx, s.log, func(ctx context.Context) error {
		return s.auditLog.Log(ctx, entry)
	})

	return nil
}

// GetUserRoles returns all roles a user holds within the caller's
// organization, built-in membership role included.
func (s *Service) GetUserRoles(ctx context.Context, tc *tenant.Context, userID int64) ([]Role, error) {
	if err := tenant.RequireCapability(ctx, tc, tenant.CapabilityRolesRead); err != nil {
		return nil, err
	}
	return s.checker.resolveRoles(ctx, tc.OrganizationID, userID)
}

// GetEffectivePermissions returns the deduplicated union of capabilities
// a user holds across all assigned roles.
func (s *Service) GetEffectivePermissions(ctx context.Context, tc *tenant.Context, userID int64) ([]string, error) {
	if err := tenant.RequireCapability(ctx, tc, tenant.CapabilityRolesRead); err != nil {
		return nil, err
	}
	return s.checker.GetEffectivePermissions(ctx, tc.OrganizationID, userID)
}

// CheckPermission evaluates a capability check on behalf of the caller.
// Checks are side-effect-free and not themselves gated.
func (s *Service) CheckPermission(ctx context.Context, tc *tenant.Context, userID int64, capability string) (*PermissionCheckResult, error) {
	if tc == nil || !tc.Valid() {
		return nil, tenant.ErrContextMissing
	}
	return s.checker.CheckPermission(ctx, PermissionCheck{
		UserID:         userID,
		OrganizationID: tc.OrganizationID,
		Capability:     capability,
	})
}

func (s *Service) recordRoleChange(ctx context.Context, tc *tenant.Context, name audit.EventName, role *Role, metadata map[string]interface{}) {
	entry := audit.NewEntry(tc, name, audit.StatusSuccess)
	entry.ResourceType = "role"
	entry.ResourceID = fmt.Sprintf("%d", role.ID)
	entry.Metadata = metadata

	var eventName string
	switch name {
	case audit.EventRoleCreated:
		eventName = events.RoleCreated
	case audit.EventRoleUpdated:
		eventName = events.RoleUpdated
	}

	hooks := []tenant.PostCommitHook{
		func(ctx context.Context) error { return s.auditLog.Log(ctx, entry) },
	}
	if eventName != "" {
		event := events.New(eventName, tc.OrganizationID, map[string]interface{}{
			"role_id": role.ID,
			"name":    role.Name,
		})
		hooks = append(hooks, func(ctx context.Context) error { return s.publisher.Publish(ctx, event) })
	}
	tenant.RunPostCommit(ctx, s.log, hooks...)
}

func (s *Service) audit(ctx context.Context, tc *tenant.Context, name audit.EventName, status audit.EventStatus, resourceType, resourceID string, opErr error) {
	entry := audit.NewEntry(tc, name, status)
	entry.ResourceType = resourceType
	entry.ResourceID = resourceID
	if opErr != nil {
		entry.ErrorMessage = opErr.Error()
	}
	tenant.RunPostCommit(ctx, s.log, func(ctx context.Context) error {
		return s.auditLog.Log(ctx, entry)
	})
}

func validateRoleInput(name string, permissions []string) error {
	var problems []string
	if strings.TrimSpace(name) == "" {
		problems = append(problems, "role name is required")
	}
	if len(permissions) == 0 {
		problems = append(problems, "at least one permission is required")
	}
	for _, p := range permissions {
		if !strings.Contains(p, ":") {
			problems = append(problems, fmt.Sprintf("invalid permission format: %q", p))
		}
	}
	if len(problems) > 0 {
		return &tenant.ValidationError{Problems: problems}
	}
	return nil
}
