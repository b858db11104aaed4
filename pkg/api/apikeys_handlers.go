package api

import (
	"net/http"

	"github.com/platinummonkey/warden/pkg/apikeys"
	"github.com/platinummonkey/warden/pkg/httputil"
)

// keyWithSecret is the one response shape that carries plaintext key
// material. It is built at the boundary so the Secret type's redaction
// covers every other path.
type keyWithSecret struct {
	Key    *apikeys.APIKey `json:"key"`
	Secret string          `json:"secret"`
}

func (s *Server) createAPIKey(w http.ResponseWriter, r *http.Request) {
	tc, ok := principal(w, r)
	if !ok {
		return
	}

	var body struct {
		Name   string   `json:"name"`
		Scopes []string `json:"scopes"`
	}
	if !httputil.ParseJSONOrError(w, r, &body) {
		return
	}

	key, secret, err := s.services.APIKeys.Create(r.Context(), tc, body.Name, body.Scopes)
	if err != nil {
		httputil.WriteDomainError(w, err)
		return
	}
	httputil.WriteCreated(w, keyWithSecret{Key: key, Secret: secret.Reveal()})
}

func (s *Server) listAPIKeys(w http.ResponseWriter, r *http.Request) {
	tc, ok := principal(w, r)
	if !ok {
		return
	}

	filter := apikeys.ListFilter{Status: r.URL.Query().Get("status")}
	keys, err := s.services.APIKeys.List(r.Context(), tc, filter)
	if err != nil {
		httputil.WriteDomainError(w, err)
		return
	}
	httputil.WriteSuccess(w, keys)
}

func (s *Server) getAPIKey(w http.ResponseWriter, r *http.Request) {
	tc, ok := principal(w, r)
	if !ok {
		return
	}
	keyID, ok := httputil.PathString(w, r, "id")
	if !ok {
		return
	}

	key, err := s.services.APIKeys.Get(r.Context(), tc, keyID)
	if err != nil {
		httputil.WriteDomainError(w, err)
		return
	}
	httputil.WriteSuccess(w, key)
}

func (s *Server) revokeAPIKey(w http.ResponseWriter, r *http.Request) {
	tc, ok := principal(w, r)
	if !ok {
		return
	}
	keyID, ok := httputil.PathString(w, r, "id")
	if !ok {
		return
	}

	if err := s.services.APIKeys.Revoke(r.Context(), tc, keyID); err != nil {
		httputil.WriteDomainError(w, err)
		return
	}
	httputil.WriteNoContent(w)
}

func (s *Server) rotateAPIKey(w http.ResponseWriter, r *http.Request) {
	tc, ok := principal(w, r)
	if !ok {
		return
	}
	keyID, ok := httputil.PathString(w, r, "id")
	if !ok {
		return
	}

	key, secret, err := s.services.APIKeys.Rotate(r.Context(), tc, keyID)
	if err != nil {
		httputil.WriteDomainError(w, err)
		return
	}
	httputil.WriteSuccess(w, keyWithSecret{Key: key, Secret: secret.Reveal()})
}
