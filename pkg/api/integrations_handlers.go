package api

import (
	"net/http"

	"github.com/platinummonkey/warden/pkg/httputil"
	"github.com/platinummonkey/warden/pkg/integrations"
)

func (s *Server) createIntegration(w http.ResponseWriter, r *http.Request) {
	tc, ok := principal(w, r)
	if !ok {
		return
	}

	var body struct {
		Provider string            `json:"provider"`
		Config   map[string]string `json:"config"`
	}
	if !httputil.ParseJSONOrError(w, r, &body) {
		return
	}

	integration, err := s.services.Integrations.Create(r.Context(), tc, body.Provider, body.Config)
	if err != nil {
		httputil.WriteDomainError(w, err)
		return
	}
	httputil.WriteCreated(w, integration)
}

func (s *Server) listIntegrations(w http.ResponseWriter, r *http.Request) {
	tc, ok := principal(w, r)
	if !ok {
		return
	}

	result, err := s.services.Integrations.List(r.Context(), tc)
	if err != nil {
		httputil.WriteDomainError(w, err)
		return
	}
	httputil.WriteSuccess(w, result)
}

func (s *Server) getIntegration(w http.ResponseWriter, r *http.Request) {
	tc, ok := principal(w, r)
	if !ok {
		return
	}
	id, ok := httputil.PathString(w, r, "id")
	if !ok {
		return
	}

	integration, err := s.services.Integrations.Get(r.Context(), tc, id)
	if err != nil {
		httputil.WriteDomainError(w, err)
		return
	}
	httputil.WriteSuccess(w, integration)
}

func (s *Server) updateIntegration(w http.ResponseWriter, r *http.Request) {
	tc, ok := principal(w, r)
	if !ok {
		return
	}
	id, ok := httputil.PathString(w, r, "id")
	if !ok {
		return
	}

	var input integrations.UpdateInput
	if !httputil.ParseJSONOrError(w, r, &input) {
		return
	}

	integration, err := s.services.Integrations.Update(r.Context(), tc, id, input)
	if err != nil {
		httputil.WriteDomainError(w, err)
		return
	}
	httputil.WriteSuccess(w, integration)
}

func (s *Server) testIntegration(w http.ResponseWriter, r *http.Request) {
	tc, ok := principal(w, r)
	if !ok {
		return
	}
	id, ok := httputil.PathString(w, r, "id")
	if !ok {
		return
	}

	result, err := s.services.Integrations.TestConnection(r.Context(), tc, id)
	if err != nil {
		httputil.WriteDomainError(w, err)
		return
	}
	httputil.WriteSuccess(w, result)
}

func (s *Server) syncIntegration(w http.ResponseWriter, r *http.Request) {
	tc, ok := principal(w, r)
	if !ok {
		return
	}
	id, ok := httputil.PathString(w, r, "id")
	if !ok {
		return
	}

	result, err := s.services.Integrations.Sync(r.Context(), tc, id)
	if err != nil {
		httputil.WriteDomainError(w, err)
		return
	}
	httputil.WriteSuccess(w, result)
}
