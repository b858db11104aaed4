package tenant

import (
	"context"
)

// PermissionEvaluator answers capability checks for a user within an
// organization. The rbac package provides the production implementation;
// tests substitute fakes.
type PermissionEvaluator interface {
	CheckCapability(ctx context.Context, userID, organizationID int64, capability string) (bool, error)
}

// Context identifies the acting principal for one operation. It is built
// once at the request boundary and passed explicitly into every entry
// point; nothing in the core reads ambient global state.
type Context struct {
	OrganizationID int64
	UserID         int64
	SessionID      string

	evaluator PermissionEvaluator
}

// NewContext creates a tenant context for the given principal.
func NewContext(organizationID, userID int64, sessionID string, evaluator PermissionEvaluator) *Context {
	return &Context{
		OrganizationID: organizationID,
		UserID:         userID,
		SessionID:      sessionID,
		evaluator:      evaluator,
	}
}

// Valid reports whether the context resolves both an organization and a user.
func (c *Context) Valid() bool {
	return c != nil && c.OrganizationID > 0 && c.UserID > 0
}

// HasPermission evaluates a named capability for the context's principal.
func (c *Context) HasPermission(ctx context.Context, capability string) (bool, error) {
	if !c.Valid() {
		return false, ErrContextMissing
	}
	if c.evaluator == nil {
		return false, nil
	}
	return c.evaluator.CheckCapability(ctx, c.UserID, c.OrganizationID, capability)
}

// RequireCapability is the single permission guard used at the top of every
// gated operation. It short-circuits with ErrContextMissing or a
// PermissionDeniedError before any persistence access happens.
func RequireCapability(ctx context.Context, tc *Context, capability string) error {
	if !tc.Valid() {
		return ErrContextMissing
	}
	allowed, err := tc.HasPermission(ctx, capability)
	if err != nil {
		return err
	}
	if !allowed {
		return &PermissionDeniedError{Capability: capability}
	}
	return nil
}

type contextKey string

const tenantContextKey contextKey = "warden_tenant"

// WithContext attaches a tenant context to a request context.
func WithContext(ctx context.Context, tc *Context) context.Context {
	return context.WithValue(ctx, tenantContextKey, tc)
}

// FromContext retrieves the tenant context, or nil when absent.
func FromContext(ctx context.Context) *Context {
	if tc, ok := ctx.Value(tenantContextKey).(*Context); ok {
		return tc
	}
	return nil
}
