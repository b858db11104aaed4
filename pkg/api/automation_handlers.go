package api

import (
	"net/http"

	"github.com/platinummonkey/warden/pkg/automation"
	"github.com/platinummonkey/warden/pkg/httputil"
)

func (s *Server) createAutomationRule(w http.ResponseWriter, r *http.Request) {
	tc, ok := principal(w, r)
	if !ok {
		return
	}

	var input automation.CreateInput
	if !httputil.ParseJSONOrError(w, r, &input) {
		return
	}

	rule, err := s.services.Automation.CreateRule(r.Context(), tc, input)
	if err != nil {
		httputil.WriteDomainError(w, err)
		return
	}
	httputil.WriteCreated(w, rule)
}

func (s *Server) listAutomationRules(w http.ResponseWriter, r *http.Request) {
	tc, ok := principal(w, r)
	if !ok {
		return
	}

	rules, err := s.services.Automation.ListRules(r.Context(), tc)
	if err != nil {
		httputil.WriteDomainError(w, err)
		return
	}
	httputil.WriteSuccess(w, rules)
}

func (s *Server) getAutomationRule(w http.ResponseWriter, r *http.Request) {
	tc, ok := principal(w, r)
	if !ok {
		return
	}
	id, ok := httputil.PathString(w, r, "id")
	if !ok {
		return
	}

	rule, err := s.services.Automation.GetRule(r.Context(), tc, id)
	if err != nil {
		httputil.WriteDomainError(w, err)
		return
	}
	httputil.WriteSuccess(w, rule)
}

func (s *Server) updateAutomationRule(w http.ResponseWriter, r *http.Request) {
	tc, ok := principal(w, r)
	if !ok {
		return
	}
	id, ok := httputil.PathString(w, r, "id")
	if !ok {
		return
	}

	var input automation.UpdateInput
	if !httputil.ParseJSONOrError(w, r, &input) {
		return
	}

	rule, err := s.services.Automation.UpdateRule(r.Context(), tc, id, input)
	if err != nil {
		httputil.WriteDomainError(w, err)
		return
	}
	httputil.WriteSuccess(w, rule)
}

func (s *Server) testAutomationRule(w http.ResponseWriter, r *http.Request) {
	tc, ok := principal(w, r)
	if !ok {
		return
	}
	id, ok := httputil.PathString(w, r, "id")
	if !ok {
		return
	}

	var body struct {
		TestData map[string]interface{} `json:"test_data"`
	}
	if r.ContentLength > 0 && !httputil.ParseJSONOrError(w, r, &body) {
		return
	}

	result, err := s.services.Automation.TestRule(r.Context(), tc, id, body.TestData)
	if err != nil {
		httputil.WriteDomainError(w, err)
		return
	}
	httputil.WriteSuccess(w, result)
}

func (s *Server) getAutomationExecutions(w http.ResponseWriter, r *http.Request) {
	tc, ok := principal(w, r)
	if !ok {
		return
	}
	id, ok := httputil.PathString(w, r, "id")
	if !ok {
		return
	}

	executions, err := s.services.Automation.GetExecutions(r.Context(), tc, id, httputil.QueryInt(r, "limit", 50))
	if err != nil {
		httputil.WriteDomainError(w, err)
		return
	}
	httputil.WriteSuccess(w, executions)
}
