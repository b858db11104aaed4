package api

import (
	"encoding/json"
	"net/http"

	"github.com/platinummonkey/warden/pkg/httputil"
	"github.com/platinummonkey/warden/pkg/webhooks"
)

func (s *Server) createWebhook(w http.ResponseWriter, r *http.Request) {
	tc, ok := principal(w, r)
	if !ok {
		return
	}

	var input webhooks.CreateInput
	if !httputil.ParseJSONOrError(w, r, &input) {
		return
	}

	webhook, err := s.services.Webhooks.Create(r.Context(), tc, input)
	if err != nil {
		httputil.WriteDomainError(w, err)
		return
	}
	httputil.WriteCreated(w, webhook)
}

func (s *Server) listWebhooks(w http.ResponseWriter, r *http.Request) {
	tc, ok := principal(w, r)
	if !ok {
		return
	}

	result, err := s.services.Webhooks.List(r.Context(), tc)
	if err != nil {
		httputil.WriteDomainError(w, err)
		return
	}
	httputil.WriteSuccess(w, result)
}

func (s *Server) getWebhook(w http.ResponseWriter, r *http.Request) {
	tc, ok := principal(w, r)
	if !ok {
		return
	}
	id, ok := httputil.PathString(w, r, "id")
	if !ok {
		return
	}

	webhook, err := s.services.Webhooks.Get(r.Context(), tc, id)
	if err != nil {
		httputil.WriteDomainError(w, err)
		return
	}
	httputil.WriteSuccess(w, webhook)
}

func (s *Server) updateWebhook(w http.ResponseWriter, r *http.Request) {
	tc, ok := principal(w, r)
	if !ok {
		return
	}
	id, ok := httputil.PathString(w, r, "id")
	if !ok {
		return
	}

	var input webhooks.UpdateInput
	if !httputil.ParseJSONOrError(w, r, &input) {
		return
	}

	webhook, err := s.services.Webhooks.Update(r.Context(), tc, id, input)
	if err != nil {
		httputil.WriteDomainError(w, err)
		return
	}
	httputil.WriteSuccess(w, webhook)
}

func (s *Server) testWebhook(w http.ResponseWriter, r *http.Request) {
	tc, ok := principal(w, r)
	if !ok {
		return
	}
	id, ok := httputil.PathString(w, r, "id")
	if !ok {
		return
	}

	var body struct {
		Payload json.RawMessage `json:"payload"`
	}
	if r.ContentLength > 0 && !httputil.ParseJSONOrError(w, r, &body) {
		return
	}

	result, err := s.services.Webhooks.Test(r.Context(), tc, id, body.Payload)
	if err != nil {
		httputil.WriteDomainError(w, err)
		return
	}
	httputil.WriteSuccess(w, result)
}

func (s *Server) getWebhookDeliveries(w http.ResponseWriter, r *http.Request) {
	tc, ok := principal(w, r)
	if !ok {
		return
	}
	id, ok := httputil.PathString(w, r, "id")
	if !ok {
		return
	}

	deliveries, err := s.services.Webhooks.GetDeliveries(r.Context(), tc, id, httputil.QueryInt(r, "limit", 50))
	if err != nil {
		httputil.WriteDomainError(w, err)
		return
	}
	httputil.WriteSuccess(w, deliveries)
}
