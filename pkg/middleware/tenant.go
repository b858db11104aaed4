package middleware

import (
	"net/http"
	"strconv"

	"github.com/platinummonkey/warden/pkg/httputil"
	"github.com/platinummonkey/warden/pkg/tenant"
)

// Trusted headers set by the authenticating edge proxy. Authentication
// itself happens upstream; this service only resolves the principal.
const (
	HeaderOrganization = "X-Warden-Organization"
	HeaderUser         = "X-Warden-User"
	HeaderSession      = "X-Warden-Session"
)

// TenantMiddleware resolves the acting principal from the trusted
// headers and attaches a tenant context to the request. Requests
// without a resolvable principal are rejected with 401.
func TenantMiddleware(evaluator tenant.PermissionEvaluator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			orgID, err := strconv.ParseInt(r.Header.Get(HeaderOrganization), 10, 64)
			if err != nil || orgID <= 0 {
				httputil.WriteUnauthorized(w, "missing or invalid organization")
				return
			}
			userID, err := strconv.ParseInt(r.Header.Get(HeaderUser), 10, 64)
			if err != nil || userID <= 0 {
				httputil.WriteUnauthorized(w, "missing or invalid user")
				return
			}

			tc := tenant.NewContext(orgID, userID, r.Header.Get(HeaderSession), evaluator)
			next.ServeHTTP(w, r.WithContext(tenant.WithContext(r.Context(), tc)))
		})
	}
}
