package webhooks

import (
	"context"
	"database/sql"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
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
		CREATE TABLE webhooks (
			id TEXT PRIMARY KEY,
			organization_id INTEGER NOT NULL,
			url TEXT NOT NULL,
			events TEXT NOT NULL,
			secret TEXT NOT NULL,
			status TEXT NOT NULL,
			created_by INTEGER NOT NULL,
			created_at TIMESTAMP NOT NULL,
			updated_at TIMESTAMP NOT NULL
		);

		CREATE TABLE webhook_deliveries (
			id TEXT PRIMARY KEY,
			webhook_id TEXT NOT NULL,
			request_payload TEXT NOT NULL,
			response_status INTEGER NOT NULL,
			response_body TEXT,
			success BOOLEAN NOT NULL,
			timestamp TIMESTAMP NOT NULL
		);
	`
	if _, err := db.Exec(schema); err != nil {
		t.Fatalf("failed to create test schema: %v", err)
	}

	return db
}

func allWebhookCapabilities() []string {
	return []string{
		tenant.CapabilityWebhooksCreate,
		tenant.CapabilityWebhooksRead,
		tenant.CapabilityWebhooksUpdate,
		tenant.CapabilityWebhooksTest,
	}
}

func setupService(t *testing.T, timeout time.Duration) (*Service, *Store, *tenant.Context) {
	t.Helper()

	store := NewStore(setupTestDB(t))
	log := observability.NewLogger(observability.ErrorLevel, io.Discard)
	sender := NewSender(timeout, nil)
	service := NewService(store, sender, audit.NopLogger{}, events.NopPublisher{}, log)

	grants := make(map[string]bool)
	for _, g := range allWebhookCapabilities() {
		grants[g] = true
	}
	tc := tenant.NewContext(1, 42, "sess-1", &staticEvaluator{granted: grants})

	return service, store, tc
}

func TestService_Create(t *testing.T) {
	service, _, tc := setupService(t, 0)

	webhook, err := service.Create(context.Background(), tc, CreateInput{
		URL:    "https://example.com/hooks",
		Events: []string{"api_key.created"},
	})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if webhook.ID == "" {
		t.Error("expected webhook id set")
	}
	if !strings.HasPrefix(webhook.Secret, "whsec_") {
		t.Errorf("expected generated signing secret, got %q", webhook.Secret)
	}
	if webhook.Status != StatusActive {
		t.Errorf("expected active status, got %s", webhook.Status)
	}
}

func TestService_Create_InvalidURL(t *testing.T) {
	service, _, tc := setupService(t, 0)

	_, err := service.Create(context.Background(), tc, CreateInput{
		URL:    "not-a-url",
		Events: []string{"api_key.created"},
	})
	if !tenant.IsValidation(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestService_Test_DeliversSignedPayload(t *testing.T) {
	var gotSignature string
	var gotBody []byte
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotSignature = r.Header.Get(SignatureHeader)
		gotBody, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	service, _, tc := setupService(t, 0)
	ctx := context.Background()

	webhook, err := service.Create(ctx, tc, CreateInput{URL: server.URL, Events: []string{"*"}})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	result, err := service.Test(ctx, tc, webhook.ID, json.RawMessage(`{"hello":"world"}`))
	if err != nil {
		t.Fatalf("Test failed: %v", err)
	}
	if !result.Success {
		t.Fatalf("expected success, got %+v", result)
	}
	if result.ResponseStatus != http.StatusOK {
		t.Errorf("expected 200, got %d", result.ResponseStatus)
	}

	if gotSignature != Sign(webhook.Secret, gotBody) {
		t.Error("expected payload signed with the webhook secret")
	}

	// test deliveries never reach the delivery log
	deliveries, err := service.GetDeliveries(ctx, tc, webhook.ID, 10)
	if err != nil {
		t.Fatalf("GetDeliveries failed: %v", err)
	}
	if len(deliveries) != 0 {
		t.Errorf("expected empty delivery log after test, got %d records", len(deliveries))
	}
}

func TestService_Test_Timeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(5 * time.Second)
	}))
	defer server.Close()

	service, _, tc := setupService(t, 2*time.Second)
	ctx := context.Background()

	webhook, err := service.Create(ctx, tc, CreateInput{URL: server.URL, Events: []string{"*"}})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	start := time.Now()
	result, err := service.Test(ctx, tc, webhook.ID, nil)
	elapsed := time.Since(start)
	if err != nil {
		t.Fatalf("Test returned error instead of structured failure: %v", err)
	}
	if result.Success {
		t.Error("expected failure on timeout")
	}
	if result.Error != "timeout" {
		t.Errorf("expected error %q, got %q", "timeout", result.Error)
	}
	if elapsed > 4*time.Second {
		t.Errorf("expected timeout near 2s, took %s", elapsed)
	}

	deliveries, err := service.GetDeliveries(ctx, tc, webhook.ID, 10)
	if err != nil {
		t.Fatalf("GetDeliveries failed: %v", err)
	}
	if len(deliveries) != 0 {
		t.Errorf("expected no delivery records from a timed-out test, got %d", len(deliveries))
	}
}

func TestService_Test_Non2xx(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	service, _, tc := setupService(t, 0)
	ctx := context.Background()

	webhook, err := service.Create(ctx, tc, CreateInput{URL: server.URL, Events: []string{"*"}})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	result, err := service.Test(ctx, tc, webhook.ID, nil)
	if err != nil {
		t.Fatalf("Test failed: %v", err)
	}
	if result.Success {
		t.Error("expected failure on 502")
	}
	if result.ResponseStatus != http.StatusBadGateway {
		t.Errorf("expected 502, got %d", result.ResponseStatus)
	}
}

func TestSender_Send_TruncatedResponseBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Length", "100")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("partial"))
	}))
	defer server.Close()

	sender := NewSender(0, nil)
	webhook := &Webhook{URL: server.URL, Secret: "s3cret"}

	result := sender.Send(context.Background(), webhook, []byte(`{}`))
	if result.Success {
		t.Error("expected failure when the response body cannot be read")
	}
	if !strings.Contains(result.Error, "failed to read response body") {
		t.Errorf("expected read failure in result error, got %q", result.Error)
	}
}

func TestService_GetDeliveries_NewestFirst(t *testing.T) {
	service, store, tc := setupService(t, 0)
	ctx := context.Background()

	webhook, err := service.Create(ctx, tc, CreateInput{URL: "https://example.com/hooks", Events: []string{"*"}})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	base := time.Now().Add(-time.Hour)
	for i := 0; i < 5; i++ {
		delivery := &Delivery{
			WebhookID:      webhook.ID,
			RequestPayload: `{}`,
			ResponseStatus: 200,
			Success:        true,
			Timestamp:      base.Add(time.Duration(i) * time.Minute),
		}
		if err := store.RecordDelivery(ctx, delivery); err != nil {
			t.Fatalf("RecordDelivery failed: %v", err)
		}
	}

	deliveries, err := service.GetDeliveries(ctx, tc, webhook.ID, 3)
	if err != nil {
		t.Fatalf("GetDeliveries failed: %v", err)
	}
	if len(deliveries) != 3 {
		t.Fatalf("expected limit of 3, got %d", len(deliveries))
	}
	for i := 1; i < len(deliveries); i++ {
		if deliveries[i].Timestamp.After(deliveries[i-1].Timestamp) {
			t.Error("expected deliveries newest-first")
		}
	}
}

func TestService_Update(t *testing.T) {
	service, _, tc := setupService(t, 0)
	ctx := context.Background()

	webhook, err := service.Create(ctx, tc, CreateInput{URL: "https://example.com/hooks", Events: []string{"*"}})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	disabled := StatusDisabled
	updated, err := service.Update(ctx, tc, webhook.ID, UpdateInput{Status: &disabled, Events: []string{"api_key.created"}})
	if err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	if updated.Status != StatusDisabled {
		t.Errorf("expected disabled, got %s", updated.Status)
	}
	if !updated.SubscribedTo("api_key.created") || updated.SubscribedTo("session.revoked") {
		t.Errorf("expected narrowed subscriptions, got %v", updated.Events)
	}
}

func TestDispatcher_RecordsDeliveries(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	service, store, tc := setupService(t, 0)
	ctx := context.Background()

	subscribed, err := service.Create(ctx, tc, CreateInput{URL: server.URL, Events: []string{"api_key.created"}})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if _, err := service.Create(ctx, tc, CreateInput{URL: server.URL, Events: []string{"session.revoked"}}); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	log := observability.NewLogger(observability.ErrorLevel, io.Discard)
	dispatcher := NewDispatcher(store, NewSender(0, nil), log)
	if err := dispatcher.Dispatch(ctx, 1, "api_key.created", map[string]interface{}{"key_id": "k1"}); err != nil {
		t.Fatalf("Dispatch failed: %v", err)
	}

	deliveries, err := service.GetDeliveries(ctx, tc, subscribed.ID, 10)
	if err != nil {
		t.Fatalf("GetDeliveries failed: %v", err)
	}
	if len(deliveries) != 1 {
		t.Fatalf("expected 1 delivery for the subscribed webhook, got %d", len(deliveries))
	}
	if !deliveries[0].Success {
		t.Error("expected successful delivery recorded")
	}
	if !strings.Contains(deliveries[0].RequestPayload, "api_key.created") {
		t.Errorf("expected payload to carry the event name, got %s", deliveries[0].RequestPayload)
	}
}
