package settings

import (
	"context"
	"io"
	"testing"

	"github.com/platinummonkey/warden/pkg/audit"
	"github.com/platinummonkey/warden/pkg/events"
	"github.com/platinummonkey/warden/pkg/observability"
	"github.com/platinummonkey/warden/pkg/tenant"
)

// staticEvaluator grants a fixed capability set
type staticEvaluator struct {
	granted map[string]bool
}

func (e *staticEvaluator) CheckCapability(ctx context.Context, userID, organizationID int64, capability string) (bool, error) {
	return e.granted[capability], nil
}

type recordingAuditLogger struct {
	entries []*audit.Entry
}

func (r *recordingAuditLogger) Log(ctx context.Context, entry *audit.Entry) error {
	r.entries = append(r.entries, entry)
	return nil
}

func (r *recordingAuditLogger) Close() error { return nil }

type recordingPublisher struct {
	published []*events.Event
}

func (r *recordingPublisher) Publish(ctx context.Context, event *events.Event) error {
	r.published = append(r.published, event)
	return nil
}

func (r *recordingPublisher) Close() error { return nil }

func setupService(t *testing.T, granted ...string) (*Service, *tenant.Context, *recordingAuditLogger, *recordingPublisher) {
	t.Helper()

	db := setupTestDB(t)
	auditLog := &recordingAuditLogger{}
	publisher := &recordingPublisher{}
	log := observability.NewLogger(observability.ErrorLevel, io.Discard)
	service := NewService(NewStore(db), auditLog, publisher, log)

	grants := make(map[string]bool, len(granted))
	for _, g := range granted {
		grants[g] = true
	}
	tc := tenant.NewContext(1, 42, "sess-1", &staticEvaluator{granted: grants})

	return service, tc, auditLog, publisher
}

func TestService_UpsertOrganizationSetting_Denied(t *testing.T) {
	service, tc, auditLog, _ := setupService(t)

	_, err := service.UpsertOrganizationSetting(context.Background(), tc, SettingEntry{Key: "theme", Value: "dark"})
	if !tenant.IsPermissionDenied(err) {
		t.Fatalf("expected permission denied, got %v", err)
	}
	if len(auditLog.entries) != 0 {
		t.Errorf("expected no audit entries for denied call, got %d", len(auditLog.entries))
	}
}

func TestService_BulkUpsert_LastEntryWins(t *testing.T) {
	service, tc, auditLog, _ := setupService(t, tenant.CapabilitySettingsManage, tenant.CapabilitySettingsRead)
	ctx := context.Background()

	result, err := service.BulkUpsertOrganizationSettings(ctx, tc, []SettingEntry{
		{Key: "a", Value: "1"},
		{Key: "a", Value: "2"},
	})
	if err != nil {
		t.Fatalf("BulkUpsertOrganizationSettings failed: %v", err)
	}
	if len(result.Failed) != 0 {
		t.Fatalf("expected no failures, got %+v", result.Failed)
	}

	got, err := service.GetOrganizationSetting(ctx, tc, "a")
	if err != nil {
		t.Fatalf("GetOrganizationSetting failed: %v", err)
	}
	if got.Value != "2" {
		t.Errorf("expected last entry to win with value 2, got %s", got.Value)
	}

	// one audit entry for the whole batch
	if len(auditLog.entries) != 1 {
		t.Fatalf("expected 1 audit entry for bulk call, got %d", len(auditLog.entries))
	}
	if auditLog.entries[0].EventName != audit.EventOrgSettingsBulkUpdated {
		t.Errorf("expected bulk audit event, got %s", auditLog.entries[0].EventName)
	}
	keys, _ := auditLog.entries[0].Metadata["keys"].([]string)
	if len(keys) != 2 {
		t.Errorf("expected audit metadata to name both writes, got %v", keys)
	}
}

func TestService_BulkUpsert_PartialFailure(t *testing.T) {
	service, tc, _, _ := setupService(t, tenant.CapabilitySettingsManage)

	result, err := service.BulkUpsertOrganizationSettings(context.Background(), tc, []SettingEntry{
		{Key: "ok", Value: "1"},
		{Key: "", Value: "2"},
	})
	if err != nil {
		t.Fatalf("expected partial failure in result, not error: %v", err)
	}
	if len(result.Succeeded) != 1 || result.Succeeded[0].Key != "ok" {
		t.Errorf("expected ok to succeed, got %+v", result.Succeeded)
	}
	if len(result.Failed) != 1 {
		t.Errorf("expected 1 failed entry, got %+v", result.Failed)
	}
}

func TestService_UserSettings_SelfService(t *testing.T) {
	// no capabilities granted: user settings are self-service
	service, tc, _, _ := setupService(t)
	ctx := context.Background()

	if _, err := service.UpsertUserSetting(ctx, tc, SettingEntry{Key: "editor", Value: "vim"}); err != nil {
		t.Fatalf("UpsertUserSetting failed: %v", err)
	}

	got, err := service.GetUserSetting(ctx, tc, "editor")
	if err != nil {
		t.Fatalf("GetUserSetting failed: %v", err)
	}
	if got.UserID != 42 {
		t.Errorf("expected setting owned by caller, got user %d", got.UserID)
	}
}

func TestService_SetPreference_DisableClearsFrequency(t *testing.T) {
	service, tc, _, _ := setupService(t)
	ctx := context.Background()

	pref, err := service.SetPreference(ctx, tc, PreferenceInput{
		Channel: ChannelEmail, Category: "digest",
		Enabled: false, Frequency: FrequencyDaily,
	})
	if err != nil {
		t.Fatalf("SetPreference failed: %v", err)
	}
	if pref.Frequency != "" {
		t.Errorf("expected frequency cleared on disabled preference, got %q", pref.Frequency)
	}
}

func TestService_UpdateSecurityPolicy_EventPerUpsert(t *testing.T) {
	service, tc, _, publisher := setupService(t, tenant.CapabilitySettingsManage, tenant.CapabilitySettingsRead)
	ctx := context.Background()

	twelve, sixteen := 12, 16
	first, err := service.UpdateSecurityPolicy(ctx, tc, SecurityPolicyPatch{MinPasswordLength: &twelve})
	if err != nil {
		t.Fatalf("first update failed: %v", err)
	}

	second, err := service.UpdateSecurityPolicy(ctx, tc, SecurityPolicyPatch{MinPasswordLength: &sixteen})
	if err != nil {
		t.Fatalf("second update failed: %v", err)
	}
	if second.ID != first.ID {
		t.Errorf("expected one policy record, got ids %d and %d", first.ID, second.ID)
	}
	if second.PasswordPolicy.MinLength != 16 {
		t.Errorf("expected min length 16, got %d", second.PasswordPolicy.MinLength)
	}

	count := 0
	for _, e := range publisher.published {
		if e.Name == events.SecurityUpdated {
			count++
		}
	}
	if count != 2 {
		t.Errorf("expected organization.security.updated exactly twice, got %d", count)
	}
}

func TestService_ValidatePassword(t *testing.T) {
	service, tc, auditLog, publisher := setupService(t, tenant.CapabilitySettingsManage)
	ctx := context.Background()

	twelve := 12
	symbols := true
	if _, err := service.UpdateSecurityPolicy(ctx, tc, SecurityPolicyPatch{
		MinPasswordLength: &twelve,
		RequireSymbols:    &symbols,
	}); err != nil {
		t.Fatalf("UpdateSecurityPolicy failed: %v", err)
	}
	audited := len(auditLog.entries)
	published := len(publisher.published)

	result, err := service.ValidatePassword(ctx, tc, "short")
	if err != nil {
		t.Fatalf("ValidatePassword failed: %v", err)
	}
	if result.Valid {
		t.Error("expected short password rejected")
	}
	if len(result.Errors) == 0 {
		t.Error("expected actionable validation errors")
	}

	result, err = service.ValidatePassword(ctx, tc, "long-enough-passw0rd!")
	if err != nil {
		t.Fatalf("ValidatePassword failed: %v", err)
	}
	if !result.Valid {
		t.Errorf("expected password accepted, got errors %v", result.Errors)
	}

	// validation persists nothing and emits nothing
	if len(auditLog.entries) != audited || len(publisher.published) != published {
		t.Error("expected ValidatePassword to be side-effect-free")
	}
}

func TestService_ValidatePassword_DefaultPolicy(t *testing.T) {
	service, tc, _, _ := setupService(t)

	result, err := service.ValidatePassword(context.Background(), tc, "abc")
	if err != nil {
		t.Fatalf("ValidatePassword failed: %v", err)
	}
	if result.Valid {
		t.Error("expected default policy to reject a 3-character password")
	}
}
