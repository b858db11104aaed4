package apikeys

import (
	"context"
	"fmt"
	"strings"

	"github.com/platinummonkey/warden/pkg/audit"
	"github.com/platinummonkey/warden/pkg/events"
	"github.com/platinummonkey/warden/pkg/observability"
	"github.com/platinummonkey/warden/pkg/tenant"
)

// Service exposes the permission-gated API key operations
type Service struct {
	store     *Store
	auditLog  audit.Logger
	publisher events.Publisher
	log       *observability.Logger
}

// NewService creates an API key service
func NewService(store *Store, auditLog audit.Logger, publisher events.Publisher, log *observability.Logger) *Service {
	return &Service{
		store:     store,
		auditLog:  auditLog,
		publisher: publisher,
		log:       log,
	}
}

// Create issues a new key and returns the plaintext secret exactly once.
// The secret is not recoverable afterwards.
func (s *Service) Create(ctx context.Context, tc *tenant.Context, name string, scopes []string) (*APIKey, Secret, error) {
	if err := tenant.RequireCapability(ctx, tc, tenant.CapabilityAPIKeysCreate); err != nil {
		return nil, Secret{}, err
	}
	if strings.TrimSpace(name) == "" {
		return nil, Secret{}, &tenant.ValidationError{Problems: []string{"key name is required"}}
	}

	secret, hash, displayPrefix, err := generateSecret()
	if err != nil {
		return nil, Secret{}, err
	}

	key := &APIKey{
		OrganizationID: tc.OrganizationID,
		UserID:         tc.UserID,
		Name:           strings.TrimSpace(name),
		DisplayPrefix:  displayPrefix,
		Scopes:         scopes,
		HashedSecret:   hash,
		CreatedBy:      tc.UserID,
	}
	if err := s.store.Create(ctx, key); err != nil {
		s.audit(ctx, tc, audit.EventAPIKeyCreated, audit.StatusFailure, "", err)
		return nil, Secret{}, fmt.Errorf("failed to create api key: %w", err)
	}

	entry := audit.NewEntry(tc, audit.EventAPIKeyCreated, audit.StatusSuccess)
	entry.ResourceType = "api_key"
	entry.ResourceID = key.ID
	entry.Metadata = map[string]interface{}{"name": key.Name, "display_prefix": key.DisplayPrefix}
	event := events.New(events.APIKeyCreated, tc.OrganizationID, map[string]interface{}{
		"key_id": key.ID,
		"name":   key.Name,
	})
	tenant.RunPostCommit(ctx, s.log,
		func(ctx context.Context) error { return s.auditLog.Log(ctx, entry) },
		func(ctx context.Context) error { return s.publisher.Publish(ctx, event) },
	)

	return key, secret, nil
}

// Get returns one key without secret material
func (s *Service) Get(ctx context.Context, tc *tenant.Context, keyID string) (*APIKey, error) {
	if err := tenant.RequireCapability(ctx, tc, tenant.CapabilityAPIKeysRead); err != nil {
		return nil, err
	}

	key, err := s.store.Get(ctx, tc.OrganizationID, keyID)
	if err != nil {
		return nil, err
	}
	key.HashedSecret = ""
	return key, nil
}

// List returns the organization's keys. No secret material is included.
func (s *Service) List(ctx context.Context, tc *tenant.Context, filter ListFilter) ([]APIKey, error) {
	if err := tenant.RequireCapability(ctx, tc, tenant.CapabilityAPIKeysRead); err != nil {
		return nil, err
	}

	keys, err := s.store.List(ctx, tc.OrganizationID, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list api keys: %w", err)
	}
	for i := range keys {
		keys[i].HashedSecret = ""
	}
	return keys, nil
}

// Revoke marks a key revoked. Revoking an already-revoked key is a no-op.
func (s *Service) Revoke(ctx context.Context, tc *tenant.Context, keyID string) error {
	if err := tenant.RequireCapability(ctx, tc, tenant.CapabilityAPIKeysDelete); err != nil {
		return err
	}

	// confirm the key exists in this organization before the no-op path
	if _, err := s.store.Get(ctx, tc.OrganizationID, keyID); err != nil {
		return err
	}

	revoked, err := s.store.Revoke(ctx, tc.OrganizationID, keyID)
	if err != nil {
		s.audit(ctx, tc, audit.EventAPIKeyRevoked, audit.StatusFailure, keyID, err)
		return fmt.Errorf("failed to revoke api key: %w", err)
	}
	if !revoked {
		return nil
	}

	entry := audit.NewEntry(tc, audit.EventAPIKeyRevoked, audit.StatusSuccess)
	entry.ResourceType = "api_key"
	entry.ResourceID = keyID
	event := events.New(events.APIKeyRevoked, tc.OrganizationID, map[string]interface{}{
		"key_id": keyID,
	})
	tenant.RunPostCommit(ctx, s.log,
		func(ctx context.Context) error { return s.auditLog.Log(ctx, entry) },
		func(ctx context.Context) error { return s.publisher.Publish(ctx, event) },
	)

	return nil
}

// Rotate replaces an active key's secret. The identity record is kept and
// the old secret stops verifying immediately. The new plaintext is
// returned exactly once.
func (s *Service) Rotate(ctx context.Context, tc *tenant.Context, keyID string) (*APIKey, Secret, error) {
	if err := tenant.RequireCapability(ctx, tc, tenant.CapabilityAPIKeysUpdate); err != nil {
		return nil, Secret{}, err
	}

	key, err := s.store.Get(ctx, tc.OrganizationID, keyID)
	if err != nil {
		return nil, Secret{}, err
	}
	if !key.Active() {
		return nil, Secret{}, &tenant.ValidationError{Problems: []string{"revoked keys cannot be rotated"}}
	}

	secret, hash, displayPrefix, err := generateSecret()
	if err != nil {
		return nil, Secret{}, err
	}

	if err := s.store.ReplaceSecret(ctx, tc.OrganizationID, keyID, hash, displayPrefix); err != nil {
		s.audit(ctx, tc, audit.EventAPIKeyRotated, audit.StatusFailure, keyID, err)
		return nil, Secret{}, err
	}

	key.DisplayPrefix = displayPrefix
	key.HashedSecret = ""

	entry := audit.NewEntry(tc, audit.EventAPIKeyRotated, audit.StatusSuccess)
	entry.ResourceType = "api_key"
	entry.ResourceID = keyID
	entry.Metadata = map[string]interface{}{"display_prefix": displayPrefix}
	tenant.RunPostCommit(ctx, s.log, func(ctx context.Context) error {
		return s.auditLog.Log(ctx, entry)
	})

	return key, secret, nil
}

// Authenticate verifies a presented plaintext secret and returns the
// matching active key. Not gated: this is the inbound edge that
// establishes identity in the first place.
func (s *Service) Authenticate(ctx context.Context, plaintext string) (*APIKey, error) {
	if !strings.HasPrefix(plaintext, SecretPrefix) {
		return nil, &tenant.NotFoundError{Resource: "api key", ID: "presented"}
	}

	key, err := s.store.GetByHash(ctx, hashSecret(plaintext))
	if err != nil {
		return nil, err
	}

	if err := s.store.TouchLastUsed(ctx, key.ID); err != nil {
		s.log.WithError(err).Warn("failed to record api key usage")
	}
	key.HashedSecret = ""
	return key, nil
}

func (s *Service) audit(ctx context.Context, tc *tenant.Context, name audit.EventName, status audit.EventStatus, keyID string, opErr error) {
	entry := audit.NewEntry(tc, name, status)
	entry.ResourceType = "api_key"
	entry.ResourceID = keyID
	if opErr != nil {
		entry.ErrorMessage = opErr.Error()
	}
	tenant.RunPostCommit(ctx, s.log, func(ctx context.Context) error {
		return s.auditLog.Log(ctx, entry)
	})
}
