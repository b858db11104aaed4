package settings

import (
	"context"
	"database/sql"
	"testing"

	_ "github.com/mattn/go-sqlite3"

	"github.com/platinummonkey/warden/pkg/tenant"
)

// setupTestDB creates an in-memory SQLite database with the settings schema
func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	schema := `
		CREATE TABLE organization_settings (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			organization_id INTEGER NOT NULL,
			key TEXT NOT NULL,
			value TEXT NOT NULL,
			category TEXT,
			created_by INTEGER NOT NULL,
			created_at TIMESTAMP NOT NULL,
			updated_at TIMESTAMP NOT NULL,
			UNIQUE (organization_id, key)
		);

		CREATE TABLE user_settings (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			user_id INTEGER NOT NULL,
			key TEXT NOT NULL,
			value TEXT NOT NULL,
			category TEXT,
			created_at TIMESTAMP NOT NULL,
			updated_at TIMESTAMP NOT NULL,
			UNIQUE (user_id, key)
		);

		CREATE TABLE notification_preferences (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			user_id INTEGER NOT NULL,
			organization_id INTEGER NOT NULL,
			channel TEXT NOT NULL,
			category TEXT NOT NULL,
			enabled BOOLEAN NOT NULL,
			frequency TEXT,
			created_at TIMESTAMP NOT NULL,
			updated_at TIMESTAMP NOT NULL,
			UNIQUE (user_id, organization_id, channel, category)
		);

		CREATE TABLE security_policies (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			organization_id INTEGER NOT NULL UNIQUE,
			password_policy TEXT NOT NULL,
			session_policy TEXT NOT NULL,
			created_at TIMESTAMP NOT NULL,
			updated_at TIMESTAMP NOT NULL
		);
	`
	if _, err := db.Exec(schema); err != nil {
		t.Fatalf("failed to create test schema: %v", err)
	}

	return db
}

func TestStore_UpsertOrganizationSetting_Idempotent(t *testing.T) {
	db := setupTestDB(t)
	store := NewStore(db)
	ctx := context.Background()

	setting := &OrganizationSetting{OrganizationID: 1, Key: "theme", Value: "dark", CreatedBy: 42}
	if err := store.UpsertOrganizationSetting(ctx, setting); err != nil {
		t.Fatalf("first upsert failed: %v", err)
	}
	firstID := setting.ID

	again := &OrganizationSetting{OrganizationID: 1, Key: "theme", Value: "dark", CreatedBy: 42}
	if err := store.UpsertOrganizationSetting(ctx, again); err != nil {
		t.Fatalf("second upsert failed: %v", err)
	}
	if again.ID != firstID {
		t.Errorf("expected upsert to reuse row %d, got %d", firstID, again.ID)
	}

	var count int
	if err := db.QueryRow(`SELECT COUNT(*) FROM organization_settings WHERE organization_id = 1 AND key = 'theme'`).Scan(&count); err != nil {
		t.Fatalf("count failed: %v", err)
	}
	if count != 1 {
		t.Errorf("expected 1 row, got %d", count)
	}

	got, err := store.GetOrganizationSetting(ctx, 1, "theme")
	if err != nil {
		t.Fatalf("GetOrganizationSetting failed: %v", err)
	}
	if got.Value != "dark" {
		t.Errorf("expected value dark, got %s", got.Value)
	}
}

func TestStore_GetOrganizationSetting_NotFound(t *testing.T) {
	db := setupTestDB(t)
	store := NewStore(db)

	_, err := store.GetOrganizationSetting(context.Background(), 1, "missing")
	if !tenant.IsNotFound(err) {
		t.Errorf("expected not-found error, got %v", err)
	}
}

func TestStore_ListOrganizationSettings_CategoryFilter(t *testing.T) {
	db := setupTestDB(t)
	store := NewStore(db)
	ctx := context.Background()

	for _, s := range []OrganizationSetting{
		{OrganizationID: 1, Key: "theme", Value: "dark", Category: "appearance", CreatedBy: 1},
		{OrganizationID: 1, Key: "locale", Value: "en", Category: "general", CreatedBy: 1},
		{OrganizationID: 2, Key: "theme", Value: "light", Category: "appearance", CreatedBy: 1},
	} {
		setting := s
		if err := store.UpsertOrganizationSetting(ctx, &setting); err != nil {
			t.Fatalf("upsert failed: %v", err)
		}
	}

	all, err := store.ListOrganizationSettings(ctx, 1, "")
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(all) != 2 {
		t.Errorf("expected 2 settings for org 1, got %d", len(all))
	}

	appearance, err := store.ListOrganizationSettings(ctx, 1, "appearance")
	if err != nil {
		t.Fatalf("filtered list failed: %v", err)
	}
	if len(appearance) != 1 || appearance[0].Key != "theme" {
		t.Errorf("expected only theme in appearance, got %+v", appearance)
	}
}

func TestStore_UserSettingRoundTrip(t *testing.T) {
	db := setupTestDB(t)
	store := NewStore(db)
	ctx := context.Background()

	setting := &UserSetting{UserID: 7, Key: "editor", Value: "vim"}
	if err := store.UpsertUserSetting(ctx, setting); err != nil {
		t.Fatalf("upsert failed: %v", err)
	}

	setting.Value = "emacs"
	if err := store.UpsertUserSetting(ctx, setting); err != nil {
		t.Fatalf("update upsert failed: %v", err)
	}

	got, err := store.GetUserSetting(ctx, 7, "editor")
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if got.Value != "emacs" {
		t.Errorf("expected emacs, got %s", got.Value)
	}
}

func TestStore_UpsertPreference(t *testing.T) {
	db := setupTestDB(t)
	store := NewStore(db)
	ctx := context.Background()

	pref := &NotificationPreference{
		UserID: 7, OrganizationID: 1,
		Channel: ChannelEmail, Category: "security",
		Enabled: true, Frequency: FrequencyImmediate,
	}
	if err := store.UpsertPreference(ctx, pref); err != nil {
		t.Fatalf("upsert failed: %v", err)
	}

	// disable on the same tuple updates in place
	pref.Enabled = false
	pref.Frequency = ""
	if err := store.UpsertPreference(ctx, pref); err != nil {
		t.Fatalf("disable upsert failed: %v", err)
	}

	prefs, err := store.GetUserPreferences(ctx, 7, 1)
	if err != nil {
		t.Fatalf("GetUserPreferences failed: %v", err)
	}
	if len(prefs) != 1 {
		t.Fatalf("expected 1 preference, got %d", len(prefs))
	}
	if prefs[0].Enabled {
		t.Error("expected preference disabled")
	}
	if prefs[0].Frequency != "" {
		t.Errorf("expected frequency cleared on disabled preference, got %q", prefs[0].Frequency)
	}
}

func TestStore_SecurityPolicy_SingleRecord(t *testing.T) {
	db := setupTestDB(t)
	store := NewStore(db)
	ctx := context.Background()

	policy := &SecurityPolicy{
		OrganizationID: 1,
		PasswordPolicy: PasswordPolicy{MinLength: 12, RequireNumbers: true},
		SessionPolicy:  SessionPolicy{IdleTimeoutMinutes: 30, AbsoluteTimeoutHours: 12},
	}
	if err := store.UpsertSecurityPolicy(ctx, policy); err != nil {
		t.Fatalf("first upsert failed: %v", err)
	}

	policy.PasswordPolicy.MinLength = 16
	if err := store.UpsertSecurityPolicy(ctx, policy); err != nil {
		t.Fatalf("second upsert failed: %v", err)
	}

	var count int
	if err := db.QueryRow(`SELECT COUNT(*) FROM security_policies WHERE organization_id = 1`).Scan(&count); err != nil {
		t.Fatalf("count failed: %v", err)
	}
	if count != 1 {
		t.Errorf("expected a single policy row, got %d", count)
	}

	got, err := store.GetSecurityPolicy(ctx, 1)
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if got.PasswordPolicy.MinLength != 16 {
		t.Errorf("expected min length 16, got %d", got.PasswordPolicy.MinLength)
	}
	if got.SessionPolicy.IdleTimeoutMinutes != 30 {
		t.Errorf("expected idle timeout 30, got %d", got.SessionPolicy.IdleTimeoutMinutes)
	}
}
