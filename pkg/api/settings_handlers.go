package api

import (
	"net/http"

	"github.com/platinummonkey/warden/pkg/httputil"
	"github.com/platinummonkey/warden/pkg/settings"
)

func (s *Server) listOrgSettings(w http.ResponseWriter, r *http.Request) {
	tc, ok := principal(w, r)
	if !ok {
		return
	}

	result, err := s.services.Settings.ListOrganizationSettings(r.Context(), tc, r.URL.Query().Get("category"))
	if err != nil {
		httputil.WriteDomainError(w, err)
		return
	}
	httputil.WriteSuccess(w, result)
}

func (s *Server) getOrgSetting(w http.ResponseWriter, r *http.Request) {
	tc, ok := principal(w, r)
	if !ok {
		return
	}
	key, ok := httputil.PathString(w, r, "key")
	if !ok {
		return
	}

	setting, err := s.services.Settings.GetOrganizationSetting(r.Context(), tc, key)
	if err != nil {
		httputil.WriteDomainError(w, err)
		return
	}
	httputil.WriteSuccess(w, setting)
}

func (s *Server) upsertOrgSetting(w http.ResponseWriter, r *http.Request) {
	tc, ok := principal(w, r)
	if !ok {
		return
	}
	key, ok := httputil.PathString(w, r, "key")
	if !ok {
		return
	}

	var entry settings.SettingEntry
	if !httputil.ParseJSONOrError(w, r, &entry) {
		return
	}
	entry.Key = key

	setting, err := s.services.Settings.UpsertOrganizationSetting(r.Context(), tc, entry)
	if err != nil {
		httputil.WriteDomainError(w, err)
		return
	}
	httputil.WriteSuccess(w, setting)
}

func (s *Server) bulkUpsertOrgSettings(w http.ResponseWriter, r *http.Request) {
	tc, ok := principal(w, r)
	if !ok {
		return
	}

	var body struct {
		Settings []settings.SettingEntry `json:"settings"`
	}
	if !httputil.ParseJSONOrError(w, r, &body) {
		return
	}

	result, err := s.services.Settings.BulkUpsertOrganizationSettings(r.Context(), tc, body.Settings)
	if err != nil {
		httputil.WriteDomainError(w, err)
		return
	}
	httputil.WriteSuccess(w, result)
}

func (s *Server) listUserSettings(w http.ResponseWriter, r *http.Request) {
	tc, ok := principal(w, r)
	if !ok {
		return
	}

	result, err := s.services.Settings.ListUserSettings(r.Context(), tc)
	if err != nil {
		httputil.WriteDomainError(w, err)
		return
	}
	httputil.WriteSuccess(w, result)
}

func (s *Server) getUserSetting(w http.ResponseWriter, r *http.Request) {
	tc, ok := principal(w, r)
	if !ok {
		return
	}
	key, ok := httputil.PathString(w, r, "key")
	if !ok {
		return
	}

	setting, err := s.services.Settings.GetUserSetting(r.Context(), tc, key)
	if err != nil {
		httputil.WriteDomainError(w, err)
		return
	}
	httputil.WriteSuccess(w, setting)
}

func (s *Server) upsertUserSetting(w http.ResponseWriter, r *http.Request) {
	tc, ok := principal(w, r)
	if !ok {
		return
	}
	key, ok := httputil.PathString(w, r, "key")
	if !ok {
		return
	}

	var entry settings.SettingEntry
	if !httputil.ParseJSONOrError(w, r, &entry) {
		return
	}
	entry.Key = key

	setting, err := s.services.Settings.UpsertUserSetting(r.Context(), tc, entry)
	if err != nil {
		httputil.WriteDomainError(w, err)
		return
	}
	httputil.WriteSuccess(w, setting)
}

func (s *Server) getPreferences(w http.ResponseWriter, r *http.Request) {
	tc, ok := principal(w, r)
	if !ok {
		return
	}

	prefs, err := s.services.Settings.GetUserPreferences(r.Context(), tc, tc.OrganizationID)
	if err != nil {
		httputil.WriteDomainError(w, err)
		return
	}
	httputil.WriteSuccess(w, prefs)
}

func (s *Server) setPreference(w http.ResponseWriter, r *http.Request) {
	tc, ok := principal(w, r)
	if !ok {
		return
	}

	var input settings.PreferenceInput
	if !httputil.ParseJSONOrError(w, r, &input) {
		return
	}

	pref, err := s.services.Settings.SetPreference(r.Context(), tc, input)
	if err != nil {
		httputil.WriteDomainError(w, err)
		return
	}
	httputil.WriteSuccess(w, pref)
}

func (s *Server) bulkUpdatePreferences(w http.ResponseWriter, r *http.Request) {
	tc, ok := principal(w, r)
	if !ok {
		return
	}

	var body struct {
		Preferences []settings.PreferenceInput `json:"preferences"`
	}
	if !httputil.ParseJSONOrError(w, r, &body) {
		return
	}

	prefs, err := s.services.Settings.BulkUpdatePreferences(r.Context(), tc, body.Preferences)
	if err != nil {
		httputil.WriteDomainError(w, err)
		return
	}
	httputil.WriteSuccess(w, prefs)
}

func (s *Server) getSecurityPolicy(w http.ResponseWriter, r *http.Request) {
	tc, ok := principal(w, r)
	if !ok {
		return
	}

	policy, err := s.services.Settings.GetSecurityPolicy(r.Context(), tc)
	if err != nil {
		httputil.WriteDomainError(w, err)
		return
	}
	httputil.WriteSuccess(w, policy)
}

func (s *Server) updateSecurityPolicy(w http.ResponseWriter, r *http.Request) {
	tc, ok := principal(w, r)
	if !ok {
		return
	}

	var patch settings.SecurityPolicyPatch
	if !httputil.ParseJSONOrError(w, r, &patch) {
		return
	}

	policy, err := s.services.Settings.UpdateSecurityPolicy(r.Context(), tc, patch)
	if err != nil {
		httputil.WriteDomainError(w, err)
		return
	}
	httputil.WriteSuccess(w, policy)
}

func (s *Server) validatePassword(w http.ResponseWriter, r *http.Request) {
	tc, ok := principal(w, r)
	if !ok {
		return
	}

	var body struct {
		Password string `json:"password"`
	}
	if !httputil.ParseJSONOrError(w, r, &body) {
		return
	}

	result, err := s.services.Settings.ValidatePassword(r.Context(), tc, body.Password)
	if err != nil {
		httputil.WriteDomainError(w, err)
		return
	}
	httputil.WriteSuccess(w, result)
}
