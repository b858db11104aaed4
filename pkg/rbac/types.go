package rbac

import (
	"time"

	"github.com/platinummonkey/warden/pkg/tenant"
)

// Role represents a named set of capabilities within an organization
type Role struct {
	ID             int64     `json:"id"`
	OrganizationID int64     `json:"organization_id"`
	Name           string    `json:"name"`
	Description    string    `json:"description,omitempty"`
	Permissions    []string  `json:"permissions"`
	IsBuiltIn      bool      `json:"is_built_in"`
	CreatedBy      int64     `json:"created_by,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// HasPermission reports whether the role grants the capability
func (r *Role) HasPermission(capability string) bool {
	for _, p := range r.Permissions {
		if p == capability {
			return true
		}
	}
	return false
}

// RoleAssignment represents a custom role granted to a user
type RoleAssignment struct {
	ID             int64     `json:"id"`
	UserID         int64     `json:"user_id"`
	RoleID         int64     `json:"role_id"`
	OrganizationID int64     `json:"organization_id"`
	GrantedBy      int64     `json:"granted_by,omitempty"`
	GrantedAt      time.Time `json:"granted_at"`
}

// PermissionCheck represents a permission check request
type PermissionCheck struct {
	UserID         int64  `json:"user_id"`
	OrganizationID int64  `json:"organization_id"`
	Capability     string `json:"capability"`
}

// PermissionCheckResult represents the result of a permission check
type PermissionCheckResult struct {
	Allowed      bool      `json:"allowed"`
	Reason       string    `json:"reason,omitempty"`
	MatchedRoles []string  `json:"matched_roles,omitempty"`
	CheckedAt    time.Time `json:"checked_at"`
}

// Built-in membership role names. A user holds at most one per
// organization, recorded on the membership row.
const (
	MemberRoleAdmin  = "org:admin"
	MemberRoleMember = "org:member"
	MemberRoleViewer = "org:viewer"
)

// BuiltInRoles returns the built-in role definitions unioned with custom
// roles at evaluation time.
func BuiltInRoles() []Role {
	return []Role{
		{
			Name:        MemberRoleAdmin,
			Description: "Full access to organization administration",
			IsBuiltIn:   true,
			Permissions: []string{
				tenant.CapabilitySettingsManage,
				tenant.CapabilitySettingsRead,
				tenant.CapabilityAPIKeysCreate,
				tenant.CapabilityAPIKeysRead,
				tenant.CapabilityAPIKeysUpdate,
				tenant.CapabilityAPIKeysDelete,
				tenant.CapabilityIntegrationsManage,
				tenant.CapabilityIntegrationsRead,
				tenant.CapabilityWebhooksCreate,
				tenant.CapabilityWebhooksRead,
				tenant.CapabilityWebhooksUpdate,
				tenant.CapabilityWebhooksTest,
				tenant.CapabilityAutomationCreate,
				tenant.CapabilityAutomationRead,
				tenant.CapabilityAutomationUpdate,
				tenant.CapabilityAutomationTest,
				tenant.CapabilityRolesCreate,
				tenant.CapabilityRolesRead,
				tenant.CapabilityRolesUpdate,
				tenant.CapabilityRolesAssign,
				tenant.CapabilityUsersManage,
			},
		},
		{
			Name:        MemberRoleMember,
			Description: "Read access plus webhook and automation testing",
			IsBuiltIn:   true,
			Permissions: []string{
				tenant.CapabilitySettingsRead,
				tenant.CapabilityAPIKeysRead,
				tenant.CapabilityIntegrationsRead,
				tenant.CapabilityWebhooksRead,
				tenant.CapabilityWebhooksTest,
				tenant.CapabilityAutomationRead,
				tenant.CapabilityAutomationTest,
				tenant.CapabilityRolesRead,
			},
		},
		{
			Name:        MemberRoleViewer,
			Description: "Read-only access to organization administration",
			IsBuiltIn:   true,
			Permissions: []string{
				tenant.CapabilitySettingsRead,
				tenant.CapabilityAPIKeysRead,
				tenant.CapabilityIntegrationsRead,
				tenant.CapabilityWebhooksRead,
				tenant.CapabilityAutomationRead,
				tenant.CapabilityRolesRead,
			},
		},
	}
}

// builtInRoleByName looks up a built-in role definition
func builtInRoleByName(name string) (Role, bool) {
	for _, role := range BuiltInRoles() {
		if role.Name == name {
			return role, true
		}
	}
	return Role{}, false
}
