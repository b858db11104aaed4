package rbac

import (
	"context"
	"fmt"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/platinummonkey/warden/pkg/observability"
)

// Checker evaluates capability checks
type Checker interface {
	// CheckPermission checks whether a user holds a capability
	CheckPermission(ctx context.Context, check PermissionCheck) (*PermissionCheckResult, error)

	// CheckCapability is the tenant.PermissionEvaluator form of CheckPermission
	CheckCapability(ctx context.Context, userID, organizationID int64, capability string) (bool, error)
}

type cacheKey struct {
	userID         int64
	organizationID int64
	capability     string
}

type cacheEntry struct {
	allowed   bool
	expiresAt time.Time
}

// PermissionChecker implements Checker over the role store with an
// in-process LRU cache. Role mutations call InvalidateOrganization so the
// next check observes the change.
type PermissionChecker struct {
	store    *Store
	cache    *lru.Cache[cacheKey, cacheEntry]
	cacheTTL time.Duration
	metrics  *observability.Metrics
}

// NewPermissionChecker creates a permission checker. A cacheTTL of zero
// disables caching; a cacheSize of zero uses the default of 4096 entries.
func NewPermissionChecker(store *Store, cacheSize int, cacheTTL time.Duration) (*PermissionChecker, error) {
	pc := &PermissionChecker{
		store:    store,
		cacheTTL: cacheTTL,
	}

	if cacheSize <= 0 {
		cacheSize = 4096
	}
	if cacheTTL > 0 {
		cache, err := lru.New[cacheKey, cacheEntry](cacheSize)
		if err != nil {
			return nil, fmt.Errorf("failed to create permission cache: %w", err)
		}
		pc.cache = cache
	}

	return pc, nil
}

// SetMetrics enables check and cache instrumentation
func (pc *PermissionChecker) SetMetrics(m *observability.Metrics) {
	pc.metrics = m
}

func (pc *PermissionChecker) recordCheck(allowed bool) {
	if pc.metrics == nil {
		return
	}
	result := "denied"
	if allowed {
		result = "allowed"
	}
	pc.metrics.PermissionChecksTotal.WithLabelValues(result).Inc()
}

func (pc *PermissionChecker) recordCacheLookup(hit bool) {
	if pc.metrics == nil {
		return
	}
	if hit {
		pc.metrics.PermissionCacheHits.Inc()
	} else {
		pc.metrics.PermissionCacheMisses.Inc()
	}
}

// CheckPermission checks whether a user holds a capability within an
// organization. The evaluation is side-effect-free.
func (pc *PermissionChecker) CheckPermission(ctx context.Context, check PermissionCheck) (*PermissionCheckResult, error) {
	key := cacheKey{check.UserID, check.OrganizationID, check.Capability}

	if pc.cache != nil {
		entry, ok := pc.cache.Get(key)
		hit := ok && entry.expiresAt.After(time.Now())
		pc.recordCacheLookup(hit)
		if hit {
			pc.recordCheck(entry.allowed)
			return &PermissionCheckResult{
				Allowed:   entry.allowed,
				Reason:    "cached result",
				CheckedAt: time.Now(),
			}, nil
		}
	}

	roles, err := pc.resolveRoles(ctx, check.OrganizationID, check.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve user roles: %w", err)
	}

	var matchedRoles []string
	for _, role := range roles {
		if role.HasPermission(check.Capability) {
			matchedRoles = append(matchedRoles, role.Name)
		}
	}

	result := &PermissionCheckResult{
		Allowed:      len(matchedRoles) > 0,
		MatchedRoles: matchedRoles,
		CheckedAt:    time.Now(),
	}
	if result.Allowed {
		result.Reason = fmt.Sprintf("granted by roles: %v", matchedRoles)
	} else {
		result.Reason = "no matching role found"
	}

	if pc.cache != nil {
		pc.cache.Add(key, cacheEntry{
			allowed:   result.Allowed,
			expiresAt: time.Now().Add(pc.cacheTTL),
		})
	}
	pc.recordCheck(result.Allowed)

	return result, nil
}

// CheckCapability implements tenant.PermissionEvaluator
func (pc *PermissionChecker) CheckCapability(ctx context.Context, userID, organizationID int64, capability string) (bool, error) {
	result, err := pc.CheckPermission(ctx, PermissionCheck{
		UserID:         userID,
		OrganizationID: organizationID,
		Capability:     capability,
	})
	if err != nil {
		return false, err
	}
	return result.Allowed, nil
}

// GetEffectivePermissions returns the union of all capabilities the user
// holds within the organization.
func (pc *PermissionChecker) GetEffectivePermissions(ctx context.Context, organizationID, userID int64) ([]string, error) {
	roles, err := pc.resolveRoles(ctx, organizationID, userID)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool)
	var permissions []string
	for _, role := range roles {
		for _, p := range role.Permissions {
			if !seen[p] {
				seen[p] = true
				permissions = append(permissions, p)
			}
		}
	}

	return permissions, nil
}

// InvalidateOrganization drops cached results for an organization. Called
// after every role mutation within it.
func (pc *PermissionChecker) InvalidateOrganization(organizationID int64) {
	if pc.cache == nil {
		return
	}
	for _, key := range pc.cache.Keys() {
		if key.organizationID == organizationID {
			pc.cache.Remove(key)
		}
	}
}

// resolveRoles returns the user's assigned custom roles plus the built-in
// role their organization membership carries.
func (pc *PermissionChecker) resolveRoles(ctx context.Context, organizationID, userID int64) ([]Role, error) {
	roles, err := pc.store.GetUserRoles(ctx, organizationID, userID)
	if err != nil {
		return nil, err
	}

	memberRole, err := pc.store.GetMemberRole(ctx, organizationID, userID)
	if err != nil {
		return nil, err
	}
	if memberRole != "" {
		if builtIn, ok := builtInRoleByName(memberRole); ok {
			roles = append(roles, builtIn)
		}
	}

	return roles, nil
}
