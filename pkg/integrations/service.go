package integrations

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/platinummonkey/warden/pkg/audit"
	"github.com/platinummonkey/warden/pkg/events"
	"github.com/platinummonkey/warden/pkg/observability"
	"github.com/platinummonkey/warden/pkg/tenant"
)

// Service exposes the permission-gated integration operations. Connectors
// register per provider; unknown providers are rejected at creation.
type Service struct {
	store      *Store
	connectors map[string]Connector
	auditLog   audit.Logger
	publisher  events.Publisher
	log        *observability.Logger
}

// NewService creates an integration service
func NewService(store *Store, auditLog audit.Logger, publisher events.Publisher, log *observability.Logger) *Service {
	return &Service{
		store:      store,
		connectors: make(map[string]Connector),
		auditLog:   auditLog,
		publisher:  publisher,
		log:        log,
	}
}

// RegisterConnector makes a provider available. Called at wiring time.
func (s *Service) RegisterConnector(connector Connector) {
	s.connectors[connector.Provider()] = connector
}

// Create registers a new integration for a known provider
func (s *Service) Create(ctx context.Context, tc *tenant.Context, provider string, config map[string]string) (*Integration, error) {
	if err := tenant.RequireCapability(ctx, tc, tenant.CapabilityIntegrationsManage); err != nil {
		return nil, err
	}
	if strings.TrimSpace(provider) == "" {
		return nil, &tenant.ValidationError{Problems: []string{"provider is required"}}
	}
	if _, ok := s.connectors[provider]; !ok {
		return nil, &tenant.ValidationError{Problems: []string{fmt.Sprintf("unknown provider %q", provider)}}
	}

	integration := &Integration{
		OrganizationID: tc.OrganizationID,
		Provider:       provider,
		Config:         config,
		Status:         StatusActive,
		CreatedBy:      tc.UserID,
	}
	if err := s.store.Create(ctx, integration); err != nil {
		s.audit(ctx, tc, audit.EventIntegrationCreated, audit.StatusFailure, "", err)
		return nil, fmt.Errorf("failed to create integration: %w", err)
	}

	entry := audit.NewEntry(tc, audit.EventIntegrationCreated, audit.StatusSuccess)
	entry.ResourceType = "integration"
	entry.ResourceID = integration.ID
	entry.Metadata = map[string]interface{}{"provider": provider}
	event := events.New(events.IntegrationCreated, tc.OrganizationID, map[string]interface{}{
		"integration_id": integration.ID,
		"provider":       provider,
	})
	tenant.RunPostCommit(ctx, s.log,
		func(ctx context.Context) error { return s.auditLog.Log(ctx, entry) },
		func(ctx context.Context) error { return s.publisher.Publish(ctx, event) },
	)

	return integration, nil
}

// Get returns one integration
func (s *Service) Get(ctx context.Context, tc *tenant.Context, integrationID string) (*Integration, error) {
	if err := tenant.RequireCapability(ctx, tc, tenant.CapabilityIntegrationsRead); err != nil {
		return nil, err
	}
	return s.store.Get(ctx, tc.OrganizationID, integrationID)
}

// List returns the organization's integrations
func (s *Service) List(ctx context.Context, tc *tenant.Context) ([]Integration, error) {
	if err := tenant.RequireCapability(ctx, tc, tenant.CapabilityIntegrationsRead); err != nil {
		return nil, err
	}
	return s.store.List(ctx, tc.OrganizationID)
}

// UpdateInput holds the mutable integration fields. Nil fields are
// unchanged.
type UpdateInput struct {
	Config map[string]string `json:"config,omitempty"`
	Status *string           `json:"status,omitempty"`
}

// Update modifies an integration's config or status
func (s *Service) Update(ctx context.Context, tc *tenant.Context, integrationID string, input UpdateInput) (*Integration, error) {
	if err := tenant.RequireCapability(ctx, tc, tenant.CapabilityIntegrationsManage); err != nil {
		return nil, err
	}

	integration, err := s.store.Get(ctx, tc.OrganizationID, integrationID)
	if err != nil {
		return nil, err
	}

	if input.Config != nil {
		integration.Config = input.Config
	}
	if input.Status != nil {
		switch *input.Status {
		case StatusActive, StatusDisabled:
			integration.Status = *input.Status
		default:
			return nil, &tenant.ValidationError{Problems: []string{fmt.Sprintf("unknown status %q", *input.Status)}}
		}
	}

	if err := s.store.Update(ctx, integration); err != nil {
		s.audit(ctx, tc, audit.EventIntegrationUpdated, audit.StatusFailure, integrationID, err)
		return nil, fmt.Errorf("failed to update integration: %w", err)
	}

	entry := audit.NewEntry(tc, audit.EventIntegrationUpdated, audit.StatusSuccess)
	entry.ResourceType = "integration"
	entry.ResourceID = integrationID
	entry.Metadata = map[string]interface{}{"status": integration.Status}
	tenant.RunPostCommit(ctx, s.log, func(ctx context.Context) error {
		return s.auditLog.Log(ctx, entry)
	})

	return integration, nil
}

// TestConnection probes the integration endpoint without mutating any
// stored state. Failures come back as structured data.
func (s *Service) TestConnection(ctx context.Context, tc *tenant.Context, integrationID string) (*TestResult, error) {
	if err := tenant.RequireCapability(ctx, tc, tenant.CapabilityIntegrationsRead); err != nil {
		return nil, err
	}

	integration, err := s.store.Get(ctx, tc.OrganizationID, integrationID)
	if err != nil {
		return nil, err
	}

	connector, ok := s.connectors[integration.Provider]
	if !ok {
		return &TestResult{Success: false, Message: fmt.Sprintf("no connector for provider %q", integration.Provider)}, nil
	}

	return connector.TestConnection(ctx, integration.Config), nil
}

// Sync pulls or pushes records through the provider connector. Partial
// failures are tolerated: the result reports how many records went
// through alongside the errors. A sync that moved any records updates
// last_sync_at.
func (s *Service) Sync(ctx context.Context, tc *tenant.Context, integrationID string) (*SyncResult, error) {
	if err := tenant.RequireCapability(ctx, tc, tenant.CapabilityIntegrationsManage); err != nil {
		return nil, err
	}

	integration, err := s.store.Get(ctx, tc.OrganizationID, integrationID)
	if err != nil {
		return nil, err
	}
	if integration.Status != StatusActive {
		return nil, &tenant.ValidationError{Problems: []string{"integration is not active"}}
	}

	connector, ok := s.connectors[integration.Provider]
	if !ok {
		return nil, &tenant.ValidationError{Problems: []string{fmt.Sprintf("no connector for provider %q", integration.Provider)}}
	}

	result := connector.Sync(ctx, integration.Config)

	status := audit.StatusSuccess
	if result.RecordsSynced > 0 {
		if err := s.store.MarkSynced(ctx, tc.OrganizationID, integrationID, time.Now()); err != nil {
			s.log.WithError(err).WithField("integration_id", integrationID).Error("failed to record sync time")
		}
	}
	if result.RecordsSynced == 0 && len(result.Errors) > 0 {
		status = audit.StatusFailure
	}

	entry := audit.NewEntry(tc, audit.EventIntegrationSynced, status)
	entry.ResourceType = "integration"
	entry.ResourceID = integrationID
	entry.Metadata = map[string]interface{}{
		"records_synced": result.RecordsSynced,
		"errors":         len(result.Errors),
	}
	event := events.New(events.IntegrationSynced, tc.OrganizationID, map[string]interface{}{
		"integration_id": integrationID,
		"records_synced": result.RecordsSynced,
	})
	tenant.RunPostCommit(ctx, s.log,
		func(ctx context.Context) error { return s.auditLog.Log(ctx, entry) },
		func(ctx context.Context) error { return s.publisher.Publish(ctx, event) },
	)

	return result, nil
}

func (s *Service) audit(ctx context.Context, tc *tenant.Context, name audit.EventName, status audit.EventStatus, integrationID string, opErr error) {
	entry := audit.NewEntry(tc, name, status)
	entry.ResourceType = "integration"
	entry.ResourceID = integrationID
	if opErr != nil {
		entry.ErrorMessage = opErr.Error()
	}
	tenant.RunPostCommit(ctx, s.log, func(ctx context.Context) error {
		return s.auditLog.Log(ctx, entry)
	})
}
