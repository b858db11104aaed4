package settings

import (
	"context"
	"fmt"
	"strings"

	"github.com/platinummonkey/warden/pkg/audit"
	"github.com/platinummonkey/warden/pkg/events"
	"github.com/platinummonkey/warden/pkg/observability"
	"github.com/platinummonkey/warden/pkg/tenant"
)

// Service exposes the permission-gated settings operations
type Service struct {
	store     *Store
	auditLog  audit.Logger
	publisher events.Publisher
	log       *observability.Logger
}

// NewService creates a settings service
func NewService(store *Store, auditLog audit.Logger, publisher events.Publisher, log *observability.Logger) *Service {
	return &Service{
		store:     store,
		auditLog:  auditLog,
		publisher: publisher,
		log:       log,
	}
}

// GetOrganizationSetting returns one organization setting by key
func (s *Service) GetOrganizationSetting(ctx context.Context, tc *tenant.Context, key string) (*OrganizationSetting, error) {
	if err := tenant.RequireCapability(ctx, tc, tenant.CapabilitySettingsRead); err != nil {
		return nil, err
	}
	return s.store.GetOrganizationSetting(ctx, tc.OrganizationID, key)
}

// ListOrganizationSettings lists the organization's settings, optionally
// filtered by category
func (s *Service) ListOrganizationSettings(ctx context.Context, tc *tenant.Context, category string) ([]OrganizationSetting, error) {
	if err := tenant.RequireCapability(ctx, tc, tenant.CapabilitySettingsRead); err != nil {
		return nil, err
	}
	return s.store.ListOrganizationSettings(ctx, tc.OrganizationID, category)
}

// UpsertOrganizationSetting writes one organization setting. Writing the
// same value twice is a no-op beyond the updated timestamp.
func (s *Service) UpsertOrganizationSetting(ctx context.Context, tc *tenant.Context, entry SettingEntry) (*OrganizationSetting, error) {
	if err := tenant.RequireCapability(ctx, tc, tenant.CapabilitySettingsManage); err != nil {
		return nil, err
	}
	if strings.TrimSpace(entry.Key) == "" {
		return nil, &tenant.ValidationError{Problems: []string{"setting key is required"}}
	}

	setting := &OrganizationSetting{
		OrganizationID: tc.OrganizationID,
		Key:            entry.Key,
		Value:          entry.Value,
		Category:       entry.Category,
		CreatedBy:      tc.UserID,
	}
	if err := s.store.UpsertOrganizationSetting(ctx, setting); err != nil {
		return nil, fmt.Errorf("failed to upsert setting: %w", err)
	}

	auditEntry := audit.NewEntry(tc, audit.EventOrgSettingUpdated, audit.StatusSuccess)
	auditEntry.ResourceType = "organization_setting"
	auditEntry.ResourceID = entry.Key
	auditEntry.Metadata = map[string]interface{}{"keys": []string{entry.Key}}
	tenant.RunPostCommit(ctx, s.log, func(ctx context.Context) error {
		return s.auditLog.Log(ctx, auditEntry)
	})

	return setting, nil
}

// BulkUpsertOrganizationSettings writes a batch of organization settings
// in order. The batch is not atomic: entries that fail are reported in the
// result while the rest apply. Duplicate keys within one batch resolve to
// the last entry. One audit entry records the whole call.
func (s *Service) BulkUpsertOrganizationSettings(ctx context.Context, tc *tenant.Context, entries []SettingEntry) (*BulkResult, error) {
	if err := tenant.RequireCapability(ctx, tc, tenant.CapabilitySettingsManage); err != nil {
		return nil, err
	}

	result := &BulkResult{}
	var keys []string
	for _, entry := range entries {
		if strings.TrimSpace(entry.Key) == "" {
			result.Failed = append(result.Failed, BulkFailure{Key: entry.Key, Error: "setting key is required"})
			continue
		}

		setting := &OrganizationSetting{
			OrganizationID: tc.OrganizationID,
			Key:            entry.Key,
			Value:          entry.Value,
			Category:       entry.Category,
			CreatedBy:      tc.UserID,
		}
		if err := s.store.UpsertOrganizationSetting(ctx, setting); err != nil {
			result.Failed = append(result.Failed, BulkFailure{Key: entry.Key, Error: err.Error()})
			continue
		}
		result.Succeeded = append(result.Succeeded, *setting)
		keys = append(keys, entry.Key)
	}

	status := audit.StatusSuccess
	if len(result.Failed) > 0 {
		status = audit.StatusFailure
	}
	auditEntry := audit.NewEntry(tc, audit.EventOrgSettingsBulkUpdated, status)
	auditEntry.ResourceType = "organization_setting"
	auditEntry.Metadata = map[string]interface{}{
		"keys":      keys,
		"failed":    len(result.Failed),
		"succeeded": len(result.Succeeded),
	}
	tenant.RunPostCommit(ctx, s.log, func(ctx context.Context) error {
		return s.auditLog.Log(ctx, auditEntry)
	})

	return result, nil
}

// GetUserSetting returns one of the caller's own settings
func (s *Service) GetUserSetting(ctx context.Context, tc *tenant.Context, key string) (*UserSetting, error) {
	if !tc.Valid() {
		return nil, tenant.ErrContextMissing
	}
	return s.store.GetUserSetting(ctx, tc.UserID, key)
}

// ListUserSettings lists the caller's own settings
func (s *Service) ListUserSettings(ctx context.Context, tc *tenant.Context) ([]UserSetting, error) {
	if !tc.Valid() {
		return nil, tenant.ErrContextMissing
	}
	return s.store.ListUserSettings(ctx, tc.UserID)
}

// UpsertUserSetting writes one of the caller's own settings. Self-service:
// users always manage their own settings, no capability required.
func (s *Service) UpsertUserSetting(ctx context.Context, tc *tenant.Context, entry SettingEntry) (*UserSetting, error) {
	if !tc.Valid() {
		return nil, tenant.ErrContextMissing
	}
	if strings.TrimSpace(entry.Key) == "" {
		return nil, &tenant.ValidationError{Problems: []string{"setting key is required"}}
	}

	setting := &UserSetting{
		UserID:   tc.UserID,
		Key:      entry.Key,
		Value:    entry.Value,
		Category: entry.Category,
	}
	if err := s.store.UpsertUserSetting(ctx, setting); err != nil {
		return nil, fmt.Errorf("failed to upsert user setting: %w", err)
	}

	auditEntry := audit.NewEntry(tc, audit.EventUserSettingUpdated, audit.StatusSuccess)
	auditEntry.ResourceType = "user_setting"
	auditEntry.ResourceID = entry.Key
	tenant.RunPostCommit(ctx, s.log, func(ctx context.Context) error {
		return s.auditLog.Log(ctx, auditEntry)
	})

	return setting, nil
}

// PreferenceInput is one notification preference write
type PreferenceInput struct {
	Channel   string `json:"channel"`
	Category  string `json:"category"`
	Enabled   bool   `json:"enabled"`
	Frequency string `json:"frequency,omitempty"`
}

// GetUserPreferences lists the caller's notification preferences. A zero
// organizationID returns preferences across all organizations.
func (s *Service) GetUserPreferences(ctx context.Context, tc *tenant.Context, organizationID int64) ([]NotificationPreference, error) {
	if !tc.Valid() {
		return nil, tenant.ErrContextMissing
	}
	return s.store.GetUserPreferences(ctx, tc.UserID, organizationID)
}

// SetPreference upserts one of the caller's notification preferences.
// Disabling a preference clears its frequency.
func (s *Service) SetPreference(ctx context.Context, tc *tenant.Context, input PreferenceInput) (*NotificationPreference, error) {
	if !tc.Valid() {
		return nil, tenant.ErrContextMissing
	}
	if err := validatePreference(input); err != nil {
		return nil, err
	}

	pref := &NotificationPreference{
		UserID:         tc.UserID,
		OrganizationID: tc.OrganizationID,
		Channel:        input.Channel,
		Category:       input.Category,
		Enabled:        input.Enabled,
		Frequency:      input.Frequency,
	}
	if !pref.Enabled {
		pref.Frequency = ""
	}

	if err := s.store.UpsertPreference(ctx, pref); err != nil {
		return nil, fmt.Errorf("failed to set preference: %w", err)
	}

	auditEntry := audit.NewEntry(tc, audit.EventNotificationUpdated, audit.StatusSuccess)
	auditEntry.ResourceType = "notification_preference"
	auditEntry.ResourceID = fmt.Sprintf("%s/%s", input.Channel, input.Category)
	tenant.RunPostCommit(ctx, s.log, func(ctx context.Context) error {
		return s.auditLog.Log(ctx, auditEntry)
	})

	return pref, nil
}

// BulkUpdatePreferences applies a batch of preference writes for the
// caller. One audit entry records the whole call.
func (s *Service) BulkUpdatePreferences(ctx context.Context, tc *tenant.Context, inputs []PreferenceInput) ([]NotificationPreference, error) {
	if !tc.Valid() {
		return nil, tenant.ErrContextMissing
	}

	var updated []NotificationPreference
	var touched []string
	for _, input := range inputs {
		if err := validatePreference(input); err != nil {
			return updated, err
		}

		pref := &NotificationPreference{
			UserID:         tc.UserID,
			OrganizationID: tc.OrganizationID,
			Channel:        input.Channel,
			Category:       input.Category,
			Enabled:        input.Enabled,
			Frequency:      input.Frequency,
		}
		if !pref.Enabled {
			pref.Frequency = ""
		}
		if err := s.store.UpsertPreference(ctx, pref); err != nil {
			return updated, fmt.Errorf("failed to update preference %s/%s: %w", input.Channel, input.Category, err)
		}
		updated = append(updated, *pref)
		touched = append(touched, fmt.Sprintf("%s/%s", input.Channel, input.Category))
	}

	auditEntry := audit.NewEntry(tc, audit.EventNotificationUpdated, audit.StatusSuccess)
	auditEntry.ResourceType = "notification_preference"
	auditEntry.Metadata = map[string]interface{}{"preferences": touched}
	tenant.RunPostCommit(ctx, s.log, func(ctx context.Context) error {
		return s.auditLog.Log(ctx, auditEntry)
	})

	return updated, nil
}

// GetSecurityPolicy returns the organization's security policy, or the
// defaults if none has been configured.
func (s *Service) GetSecurityPolicy(ctx context.Context, tc *tenant.Context) (*SecurityPolicy, error) {
	if err := tenant.RequireCapability(ctx, tc, tenant.CapabilitySettingsRead); err != nil {
		return nil, err
	}

	policy, err := s.store.GetSecurityPolicy(ctx, tc.OrganizationID)
	if tenant.IsNotFound(err) {
		def := DefaultSecurityPolicy()
		def.OrganizationID = tc.OrganizationID
		return &def, nil
	}
	return policy, err
}

// UpdateSecurityPolicy applies a patch to the organization's security
// policy, creating the record on first use. Every successful write
// publishes an organization.security.updated event so dependent
// subsystems can react.
func (s *Service) UpdateSecurityPolicy(ctx context.Context, tc *tenant.Context, patch SecurityPolicyPatch) (*SecurityPolicy, error) {
	if err := tenant.RequireCapability(ctx, tc, tenant.CapabilitySettingsManage); err != nil {
		return nil, err
	}
	if err := validatePolicyPatch(patch); err != nil {
		return nil, err
	}

	policy, err := s.store.GetSecurityPolicy(ctx, tc.OrganizationID)
	if tenant.IsNotFound(err) {
		def := DefaultSecurityPolicy()
		def.OrganizationID = tc.OrganizationID
		policy = &def
	} else if err != nil {
		return nil, err
	}

	applyPolicyPatch(policy, patch)
	if err := s.store.UpsertSecurityPolicy(ctx, policy); err != nil {
		auditEntry := audit.NewEntry(tc, audit.EventSecurityUpdated, audit.StatusFailure)
		auditEntry.ErrorMessage = err.Error()
		tenant.RunPostCommit(ctx, s.log, func(ctx context.Context) error {
			return s.auditLog.Log(ctx, auditEntry)
		})
		return nil, fmt.Errorf("failed to update security policy: %w", err)
	}

	auditEntry := audit.NewEntry(tc, audit.EventSecurityUpdated, audit.StatusSuccess)
	auditEntry.ResourceType = "security_policy"
	auditEntry.ResourceID = fmt.Sprintf("%d", policy.ID)
	event := events.New(events.SecurityUpdated, tc.OrganizationID, map[string]interface{}{
		"min_password_length": policy.PasswordPolicy.MinLength,
		"require_mfa":         policy.SessionPolicy.RequireMFA,
	})
	tenant.RunPostCommit(ctx, s.log,
		func(ctx context.Context) error { return s.auditLog.Log(ctx, auditEntry) },
		func(ctx context.Context) error { return s.publisher.Publish(ctx, event) },
	)

	return policy, nil
}

// ValidatePassword checks a candidate password against the organization's
// current policy. It never persists anything.
func (s *Service) ValidatePassword(ctx context.Context, tc *tenant.Context, candidate string) (*PasswordValidation, error) {
	if !tc.Valid() {
		return nil, tenant.ErrContextMissing
	}

	policy, err := s.store.GetSecurityPolicy(ctx, tc.OrganizationID)
	if tenant.IsNotFound(err) {
		def := DefaultSecurityPolicy()
		policy = &def
	} else if err != nil {
		return nil, err
	}

	return validatePassword(policy.PasswordPolicy, candidate), nil
}

func validatePreference(input PreferenceInput) error {
	var problems []string
	if input.Channel == "" {
		problems = append(problems, "channel is required")
	}
	if input.Category == "" {
		problems = append(problems, "category is required")
	}
	if input.Enabled && input.Frequency != "" {
		switch input.Frequency {
		case FrequencyImmediate, FrequencyHourly, FrequencyDaily, FrequencyWeekly:
		default:
			problems = append(problems, fmt.Sprintf("unknown frequency %q", input.Frequency))
		}
	}
	if len(problems) > 0 {
		return &tenant.ValidationError{Problems: problems}
	}
	return nil
}

func validatePolicyPatch(patch SecurityPolicyPatch) error {
	var problems []string
	if patch.MinPasswordLength != nil && *patch.MinPasswordLength < 1 {
		problems = append(problems, "minimum password length must be at least 1")
	}
	if patch.IdleTimeoutMinutes != nil && *patch.IdleTimeoutMinutes < 1 {
		problems = append(problems, "idle timeout must be at least 1 minute")
	}
	if patch.AbsoluteTimeoutHours != nil && *patch.AbsoluteTimeoutHours < 1 {
		problems = append(problems, "absolute timeout must be at least 1 hour")
	}
	if len(problems) > 0 {
		return &tenant.ValidationError{Problems: problems}
	}
	return nil
}

func applyPolicyPatch(policy *SecurityPolicy, patch SecurityPolicyPatch) {
	if patch.MinPasswordLength != nil {
		policy.PasswordPolicy.MinLength = *patch.MinPasswordLength
	}
	if patch.RequireUppercase != nil {
		policy.PasswordPolicy.RequireUppercase = *patch.RequireUppercase
	}
	if patch.RequireLowercase != nil {
		policy.PasswordPolicy.RequireLowercase = *patch.RequireLowercase
	}
	if patch.RequireNumbers != nil {
		policy.PasswordPolicy.RequireNumbers = *patch.RequireNumbers
	}
	if patch.RequireSymbols != nil {
		policy.PasswordPolicy.RequireSymbols = *patch.RequireSymbols
	}
	if patch.MaxPasswordAgeDays != nil {
		policy.PasswordPolicy.MaxAgeDays = *patch.MaxPasswordAgeDays
	}
	if patch.IdleTimeoutMinutes != nil {
		policy.SessionPolicy.IdleTimeoutMinutes = *patch.IdleTimeoutMinutes
	}
	if patch.AbsoluteTimeoutHours != nil {
		policy.SessionPolicy.AbsoluteTimeoutHours = *patch.AbsoluteTimeoutHours
	}
	if patch.MaxConcurrentSessions != nil {
		policy.SessionPolicy.MaxConcurrentSessions = *patch.MaxConcurrentSessions
	}
	if patch.RequireMFA != nil {
		policy.SessionPolicy.RequireMFA = *patch.RequireMFA
	}
}
