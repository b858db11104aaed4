package tenant

// Capability strings gate the administration surface. The evaluator treats
// them as opaque names; the constants exist so callers and role definitions
// agree on spelling.
const (
	CapabilitySettingsManage = "settings:manage"
	CapabilitySettingsRead   = "settings:read"

	CapabilityAPIKeysCreate = "api_keys:create"
	CapabilityAPIKeysRead   = "api_keys:read"
	CapabilityAPIKeysUpdate = "api_keys:update"
	CapabilityAPIKeysDelete = "api_keys:delete"

	CapabilityIntegrationsManage = "integrations:manage"
	CapabilityIntegrationsRead   = "integrations:read"

	CapabilityWebhooksCreate = "webhooks:create"
	CapabilityWebhooksRead   = "webhooks:read"
	CapabilityWebhooksUpdate = "webhooks:update"
	CapabilityWebhooksTest   = "webhooks:test"

	CapabilityAutomationCreate = "automation:create"
	CapabilityAutomationRead   = "automation:read"
	CapabilityAutomationUpdate = "automation:update"
	CapabilityAutomationTest   = "automation:test"

	CapabilityRolesCreate = "roles:create"
	CapabilityRolesRead   = "roles:read"
	CapabilityRolesUpdate = "roles:update"
	CapabilityRolesAssign = "roles:assign"

	CapabilityUsersManage = "users:manage"
)
