package api

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/platinummonkey/warden/pkg/apikeys"
	"github.com/platinummonkey/warden/pkg/automation"
	"github.com/platinummonkey/warden/pkg/httputil"
	"github.com/platinummonkey/warden/pkg/integrations"
	"github.com/platinummonkey/warden/pkg/middleware"
	"github.com/platinummonkey/warden/pkg/observability"
	"github.com/platinummonkey/warden/pkg/rbac"
	"github.com/platinummonkey/warden/pkg/sessions"
	"github.com/platinummonkey/warden/pkg/settings"
	"github.com/platinummonkey/warden/pkg/tenant"
	"github.com/platinummonkey/warden/pkg/webhooks"
)

const maxRequestBody = 1 << 20 // 1 MiB

// Services bundles the domain services the API serves
type Services struct {
	Settings     *settings.Service
	APIKeys      *apikeys.Service
	Integrations *integrations.Service
	Webhooks     *webhooks.Service
	Automation   *automation.Service
	Roles        *rbac.Service
	Sessions     *sessions.Service
}

// Server is the HTTP API server
type Server struct {
	services Services
	router   *mux.Router
	log      *observability.Logger
}

// NewServer creates the API server. The access logger carries the request
// log; the rate limiter and metrics are optional, and passing nil disables
// per-organization limiting and request instrumentation respectively.
func NewServer(services Services, evaluator tenant.PermissionEvaluator, limiter *middleware.DistributedRateLimiter, metrics *observability.Metrics, accessLog *logrus.Logger, log *observability.Logger) *Server {
	s := &Server{
		services: services,
		router:   mux.NewRouter(),
		log:      log,
	}

	if accessLog == nil {
		accessLog = logrus.New()
		accessLog.SetFormatter(&logrus.JSONFormatter{})
	}

	chain := []mux.MiddlewareFunc{
		httputil.RequestIDMiddleware,
		httputil.LoggingMiddleware(accessLog),
		httputil.RecoveryMiddleware(log),
		httputil.MaxBytesMiddleware(maxRequestBody),
	}
	if metrics != nil {
		chain = append(chain, httputil.MetricsMiddleware(metrics))
	}
	chain = append(chain, middleware.TenantMiddleware(evaluator))
	if limiter != nil {
		chain = append(chain, limiter.Middleware)
	}
	s.router.Use(chain...)

	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	v1 := s.router.PathPrefix("/api/v1").Subrouter()

	// Organization settings
	v1.HandleFunc("/settings/org", s.listOrgSettings).Methods("GET")
	v1.HandleFunc("/settings/org/bulk", s.bulkUpsertOrgSettings).Methods("POST")
	v1.HandleFunc("/settings/org/{key}", s.getOrgSetting).Methods("GET")
	v1.HandleFunc("/settings/org/{key}", s.upsertOrgSetting).Methods("PUT")

	// User settings
	v1.HandleFunc("/settings/user", s.listUserSettings).Methods("GET")
	v1.HandleFunc("/settings/user/{key}", s.getUserSetting).Methods("GET")
	v1.HandleFunc("/settings/user/{key}", s.upsertUserSetting).Methods("PUT")

	// Notification preferences
	v1.HandleFunc("/notifications/preferences", s.getPreferences).Methods("GET")
	v1.HandleFunc("/notifications/preferences", s.setPreference).Methods("PUT")
	v1.HandleFunc("/notifications/preferences/bulk", s.bulkUpdatePreferences).Methods("POST")

	// Security policy
	v1.HandleFunc("/security/policy", s.getSecurityPolicy).Methods("GET")
	v1.HandleFunc("/security/policy", s.updateSecurityPolicy).Methods("PATCH")
	v1.HandleFunc("/security/validate-password", s.validatePassword).Methods("POST")

	// API keys
	v1.HandleFunc("/api-keys", s.createAPIKey).Methods("POST")
	v1.HandleFunc("/api-keys", s.listAPIKeys).Methods("GET")
	v1.HandleFunc("/api-keys/{id}", s.getAPIKey).Methods("GET")
	v1.HandleFunc("/api-keys/{id}", s.revokeAPIKey).Methods("DELETE")
	v1.HandleFunc("/api-keys/{id}/rotate", s.rotateAPIKey).Methods("POST")

	// Integrations
	v1.HandleFunc("/integrations", s.createIntegration).Methods("POST")
	v1.HandleFunc("/integrations", s.listIntegrations).Methods("GET")
	v1.HandleFunc("/integrations/{id}", s.getIntegration).Methods("GET")
	v1.HandleFunc("/integrations/{id}", s.updateIntegration).Methods("PATCH")
	v1.HandleFunc("/integrations/{id}/test", s.testIntegration).Methods("POST")
	v1.HandleFunc("/integrations/{id}/sync", s.syncIntegration).Methods("POST")

	// Webhooks
	v1.HandleFunc("/webhooks", s.createWebhook).Methods("POST")
	v1.HandleFunc("/webhooks", s.listWebhooks).Methods("GET")
	v1.HandleFunc("/webhooks/{id}", s.getWebhook).Methods("GET")
	v1.HandleFunc("/webhooks/{id}", s.updateWebhook).Methods("PATCH")
	v1.HandleFunc("/webhooks/{id}/test", s.testWebhook).Methods("POST")
	v1.HandleFunc("/webhooks/{id}/deliveries", s.getWebhookDeliveries).Methods("GET")

	// Automation rules
	v1.HandleFunc("/automation/rules", s.createAutomationRule).Methods("POST")
	v1.HandleFunc("/automation/rules", s.listAutomationRules).Methods("GET")
	v1.HandleFunc("/automation/rules/{id}", s.getAutomationRule).Methods("GET")
	v1.HandleFunc("/automation/rules/{id}", s.updateAutomationRule).Methods("PATCH")
	v1.HandleFunc("/automation/rules/{id}/test", s.testAutomationRule).Methods("POST")
	v1.HandleFunc("/automation/rules/{id}/executions", s.getAutomationExecutions).Methods("GET")

	// Roles and permissions
	v1.HandleFunc("/roles", s.createRole).Methods("POST")
	v1.HandleFunc("/roles", s.listRoles).Methods("GET")
	v1.HandleFunc("/roles/{id}", s.getRole).Methods("GET")
	v1.HandleFunc("/roles/{id}", s.updateRole).Methods("PATCH")
	v1.HandleFunc("/users/{userID}/roles", s.getUserRoles).Methods("GET")
	v1.HandleFunc("/users/{userID}/roles/{roleID}", s.assignRole).Methods("POST")
	v1.HandleFunc("/users/{userID}/roles/{roleID}", s.revokeRole).Methods("DELETE")
	v1.HandleFunc("/users/{userID}/permissions", s.getEffectivePermissions).Methods("GET")
	v1.HandleFunc("/permissions/check", s.checkPermission).Methods("POST")

	// Sessions
	v1.HandleFunc("/users/{userID}/sessions", s.getActiveSessions).Methods("GET")
	v1.HandleFunc("/users/{userID}/sessions/revoke-all", s.revokeAllSessions).Methods("POST")
	v1.HandleFunc("/sessions/{id}", s.revokeSession).Methods("DELETE")
}

// ServeHTTP implements http.Handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// principal extracts the tenant context attached by the middleware
func principal(w http.ResponseWriter, r *http.Request) (*tenant.Context, bool) {
	tc := tenant.FromContext(r.Context())
	if tc == nil {
		httputil.WriteUnauthorized(w, "missing tenant context")
		return nil, false
	}
	return tc, true
}
