package integrations

import (
	"context"
	"database/sql"
	"io"
	"net/http"
	"net/http/httptest"
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

// fakeConnector scripts sync outcomes for tests
type fakeConnector struct {
	provider   string
	testResult *TestResult
	syncResult *SyncResult
}

func (f *fakeConnector) Provider() string { return f.provider }

func (f *fakeConnector) TestConnection(ctx context.Context, config map[string]string) *TestResult {
	return f.testResult
}

func (f *fakeConnector) Sync(ctx context.Context, config map[string]string) *SyncResult {
	return f.syncResult
}

func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	schema := `
		CREATE TABLE integrations (
			id TEXT PRIMARY KEY,
			organization_id INTEGER NOT NULL,
			provider TEXT NOT NULL,
			config TEXT,
			status TEXT NOT NULL,
			last_sync_at TIMESTAMP,
			created_by INTEGER NOT NULL,
			created_at TIMESTAMP NOT NULL,
			updated_at TIMESTAMP NOT NULL
		);
	`
	if _, err := db.Exec(schema); err != nil {
		t.Fatalf("failed to create test schema: %v", err)
	}

	return db
}

func setupService(t *testing.T, connectors ...Connector) (*Service, *tenant.Context) {
	t.Helper()

	log := observability.NewLogger(observability.ErrorLevel, io.Discard)
	service := NewService(NewStore(setupTestDB(t)), audit.NopLogger{}, events.NopPublisher{}, log)
	for _, c := range connectors {
		service.RegisterConnector(c)
	}

	grants := map[string]bool{
		tenant.CapabilityIntegrationsManage: true,
		tenant.CapabilityIntegrationsRead:   true,
	}
	tc := tenant.NewContext(1, 42, "sess-1", &staticEvaluator{granted: grants})

	return service, tc
}

func TestService_Create_UnknownProvider(t *testing.T) {
	service, tc := setupService(t)

	_, err := service.Create(context.Background(), tc, "nonexistent", nil)
	if !tenant.IsValidation(err) {
		t.Fatalf("expected validation error for unknown provider, got %v", err)
	}
}

func TestService_TestConnection_HTTP(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			t.Errorf("expected GET probe, got %s", r.Method)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	service, tc := setupService(t, NewHTTPConnector("generic", 0, nil))
	ctx := context.Background()

	integration, err := service.Create(ctx, tc, "generic", map[string]string{"url": server.URL})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	result, err := service.TestConnection(ctx, tc, integration.ID)
	if err != nil {
		t.Fatalf("TestConnection failed: %v", err)
	}
	if !result.Success {
		t.Fatalf("expected reachable endpoint, got %+v", result)
	}

	// the probe must not mutate stored state
	got, err := service.Get(ctx, tc, integration.ID)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.LastSyncAt != nil {
		t.Error("expected testConnection to leave last_sync_at untouched")
	}
	if !got.UpdatedAt.Equal(integration.UpdatedAt) {
		t.Error("expected testConnection to leave the record unmodified")
	}
}

func TestService_TestConnection_Timeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(5 * time.Second)
	}))
	defer server.Close()

	service, tc := setupService(t, NewHTTPConnector("generic", 2*time.Second, nil))
	ctx := context.Background()

	integration, err := service.Create(ctx, tc, "generic", map[string]string{"url": server.URL})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	start := time.Now()
	result, err := service.TestConnection(ctx, tc, integration.ID)
	if err != nil {
		t.Fatalf("TestConnection returned error instead of structured failure: %v", err)
	}
	if result.Success {
		t.Error("expected failure on timeout")
	}
	if result.Message != "timeout" {
		t.Errorf("expected message %q, got %q", "timeout", result.Message)
	}
	if elapsed := time.Since(start); elapsed > 4*time.Second {
		t.Errorf("expected timeout near 2s, took %s", elapsed)
	}
}

func TestService_Sync_PartialFailure(t *testing.T) {
	connector := &fakeConnector{
		provider:   "crm",
		testResult: &TestResult{Success: true},
		syncResult: &SyncResult{RecordsSynced: 80, Errors: []string{"record 81: conflict", "record 82: conflict"}},
	}
	service, tc := setupService(t, connector)
	ctx := context.Background()

	integration, err := service.Create(ctx, tc, "crm", map[string]string{"url": "https://crm.example.com"})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	result, err := service.Sync(ctx, tc, integration.ID)
	if err != nil {
		t.Fatalf("Sync failed: %v", err)
	}
	if result.RecordsSynced != 80 {
		t.Errorf("expected 80 records synced, got %d", result.RecordsSynced)
	}
	if len(result.Errors) != 2 {
		t.Errorf("expected 2 errors alongside the partial result, got %v", result.Errors)
	}

	// partial success still advances last_sync_at
	got, err := service.Get(ctx, tc, integration.ID)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.LastSyncAt == nil {
		t.Error("expected last_sync_at set after a partial sync")
	}
}

func TestService_Sync_TotalFailureKeepsSyncTime(t *testing.T) {
	connector := &fakeConnector{
		provider:   "crm",
		syncResult: &SyncResult{RecordsSynced: 0, Errors: []string{"unreachable"}},
	}
	service, tc := setupService(t, connector)
	ctx := context.Background()

	integration, err := service.Create(ctx, tc, "crm", nil)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	if _, err := service.Sync(ctx, tc, integration.ID); err != nil {
		t.Fatalf("Sync failed: %v", err)
	}

	got, err := service.Get(ctx, tc, integration.ID)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.LastSyncAt != nil {
		t.Error("expected last_sync_at unset when nothing synced")
	}
}

func TestService_Sync_DisabledRejected(t *testing.T) {
	connector := &fakeConnector{provider: "crm", syncResult: &SyncResult{RecordsSynced: 1}}
	service, tc := setupService(t, connector)
	ctx := context.Background()

	integration, err := service.Create(ctx, tc, "crm", nil)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	disabled := StatusDisabled
	if _, err := service.Update(ctx, tc, integration.ID, UpdateInput{Status: &disabled}); err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	_, err = service.Sync(ctx, tc, integration.ID)
	if !tenant.IsValidation(err) {
		t.Fatalf("expected validation error syncing disabled integration, got %v", err)
	}
}
