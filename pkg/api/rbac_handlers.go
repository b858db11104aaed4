package api

import (
	"net/http"

	"github.com/platinummonkey/warden/pkg/httputil"
	"github.com/platinummonkey/warden/pkg/rbac"
)

func (s *Server) createRole(w http.ResponseWriter, r *http.Request) {
	tc, ok := principal(w, r)
	if !ok {
		return
	}

	var input rbac.CreateRoleInput
	if !httputil.ParseJSONOrError(w, r, &input) {
		return
	}

	role, err := s.services.Roles.CreateRole(r.Context(), tc, input)
	if err != nil {
		httputil.WriteDomainError(w, err)
		return
	}
	httputil.WriteCreated(w, role)
}

func (s *Server) listRoles(w http.ResponseWriter, r *http.Request) {
	tc, ok := principal(w, r)
	if !ok {
		return
	}

	roles, err := s.services.Roles.ListRoles(r.Context(), tc)
	if err != nil {
		httputil.WriteDomainError(w, err)
		return
	}
	httputil.WriteSuccess(w, roles)
}

func (s *Server) getRole(w http.ResponseWriter, r *http.Request) {
	tc, ok := principal(w, r)
	if !ok {
		return
	}
	roleID, ok := httputil.PathInt64(w, r, "id")
	if !ok {
		return
	}

	role, err := s.services.Roles.GetRole(r.Context(), tc, roleID)
	if err != nil {
		httputil.WriteDomainError(w, err)
		return
	}
	httputil.WriteSuccess(w, role)
}

func (s *Server) updateRole(w http.ResponseWriter, r *http.Request) {
	tc, ok := principal(w, r)
	if !ok {
		return
	}
	roleID, ok := httputil.PathInt64(w, r, "id")
	if !ok {
		return
	}

	var input rbac.UpdateRoleInput
	if !httputil.ParseJSONOrError(w, r, &input) {
		return
	}

	role, err := s.services.Roles.UpdateRole(r.Context(), tc, roleID, input)
	if err != nil {
		httputil.WriteDomainError(w, err)
		return
	}
	httputil.WriteSuccess(w, role)
}

func (s *Server) getUserRoles(w http.ResponseWriter, r *http.Request) {
	tc, ok := principal(w, r)
	if !ok {
		return
	}
	userID, ok := httputil.PathInt64(w, r, "userID")
	if !ok {
		return
	}

	roles, err := s.services.Roles.GetUserRoles(r.Context(), tc, userID)
	if err != nil {
		httputil.WriteDomainError(w, err)
		return
	}
	httputil.WriteSuccess(w, roles)
}

func (s *Server) assignRole(w http.ResponseWriter, r *http.Request) {
	tc, ok := principal(w, r)
	if !ok {
		return
	}
	userID, ok := httputil.PathInt64(w, r, "userID")
	if !ok {
		return
	}
	roleID, ok := httputil.PathInt64(w, r, "roleID")
	if !ok {
		return
	}

	assignment, err := s.services.Roles.AssignRole(r.Context(), tc, userID, roleID)
	if err != nil {
		httputil.WriteDomainError(w, err)
		return
	}
	httputil.WriteCreated(w, assignment)
}

func (s *Server) revokeRole(w http.ResponseWriter, r *http.Request) {
	tc, ok := principal(w, r)
	if !ok {
		return
	}
	userID, ok := httputil.PathInt64(w, r, "userID")
	if !ok {
		return
	}
	roleID, ok := httputil.PathInt64(w, r, "roleID")
	if !ok {
		return
	}

	if err := s.services.Roles.RevokeRole(r.Context(), tc, userID, roleID); err != nil {
		httputil.WriteDomainError(w, err)
		return
	}
	httputil.WriteNoContent(w)
}

func (s *Server) getEffectivePermissions(w http.ResponseWriter, r *http.Request) {
	tc, ok := principal(w, r)
	if !ok {
		return
	}
	userID, ok := httputil.PathInt64(w, r, "userID")
	if !ok {
		return
	}

	permissions, err := s.services.Roles.GetEffectivePermissions(r.Context(), tc, userID)
	if err != nil {
		httputil.WriteDomainError(w, err)
		return
	}
	httputil.WriteSuccess(w, map[string]interface{}{
		"user_id":     userID,
		"permissions": permissions,
	})
}

func (s *Server) checkPermission(w http.ResponseWriter, r *http.Request) {
	tc, ok := principal(w, r)
	if !ok {
		return
	}

	var body struct {
		UserID     int64  `json:"user_id"`
		Capability string `json:"capability"`
	}
	if !httputil.ParseJSONOrError(w, r, &body) {
		return
	}
	if body.UserID == 0 {
		body.UserID = tc.UserID
	}
	if body.Capability == "" {
		httputil.WriteBadRequest(w, "capability is required")
		return
	}

	result, err := s.services.Roles.CheckPermission(r.Context(), tc, body.UserID, body.Capability)
	if err != nil {
		httputil.WriteDomainError(w, err)
		return
	}
	httputil.WriteSuccess(w, result)
}
