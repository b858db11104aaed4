package api

import (
	"net/http"

	"github.com/platinummonkey/warden/pkg/httputil"
)

func (s *Server) getActiveSessions(w http.ResponseWriter, r *http.Request) {
	tc, ok := principal(w, r)
	if !ok {
		return
	}
	userID, ok := httputil.PathInt64(w, r, "userID")
	if !ok {
		return
	}

	result, err := s.services.Sessions.GetActiveSessions(r.Context(), tc, userID)
	if err != nil {
		httputil.WriteDomainError(w, err)
		return
	}
	httputil.WriteSuccess(w, result)
}

func (s *Server) revokeSession(w http.ResponseWriter, r *http.Request) {
	tc, ok := principal(w, r)
	if !ok {
		return
	}
	sessionID, ok := httputil.PathString(w, r, "id")
	if !ok {
		return
	}

	if err := s.services.Sessions.RevokeSession(r.Context(), tc, sessionID); err != nil {
		httputil.WriteDomainError(w, err)
		return
	}
	httputil.WriteNoContent(w)
}

func (s *Server) revokeAllSessions(w http.ResponseWriter, r *http.Request) {
	tc, ok := principal(w, r)
	if !ok {
		return
	}
	userID, ok := httputil.PathInt64(w, r, "userID")
	if !ok {
		return
	}

	var body struct {
		ExceptCurrent bool `json:"except_current"`
	}
	if r.ContentLength > 0 && !httputil.ParseJSONOrError(w, r, &body) {
		return
	}

	exceptSessionID := ""
	if body.ExceptCurrent {
		exceptSessionID = tc.SessionID
	}

	revoked, err := s.services.Sessions.RevokeAllSessions(r.Context(), tc, userID, exceptSessionID)
	if err != nil {
		httputil.WriteDomainError(w, err)
		return
	}
	httputil.WriteSuccess(w, map[string]int64{"revoked": revoked})
}
