package settings

import (
	"time"
)

// OrganizationSetting is a single keyed setting within an organization.
// (organization_id, key) is unique; writes are upserts with no history.
type OrganizationSetting struct {
	ID             int64     `json:"id"`
	OrganizationID int64     `json:"organization_id"`
	Key            string    `json:"key"`
	Value          string    `json:"value"`
	Category       string    `json:"category,omitempty"`
	CreatedBy      int64     `json:"created_by"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// UserSetting is a single keyed setting owned by a user. (user_id, key) is
// unique.
type UserSetting struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"user_id"`
	Key       string    `json:"key"`
	Value     string    `json:"value"`
	Category  string    `json:"category,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// SettingEntry is one entry of a bulk settings write
type SettingEntry struct {
	Key      string `json:"key"`
	Value    string `json:"value"`
	Category string `json:"category,omitempty"`
}

// BulkFailure records one entry of a bulk write that could not be applied
type BulkFailure struct {
	Key   string `json:"key"`
	Error string `json:"error"`
}

// BulkResult reports the per-entry outcome of a bulk settings write. The
// batch is not atomic; callers inspect Failed to see what did not apply.
type BulkResult struct {
	Succeeded []OrganizationSetting `json:"succeeded"`
	Failed    []BulkFailure         `json:"failed,omitempty"`
}

// NotificationPreference controls one (channel, category) notification
// toggle for a user within an organization. Frequency is meaningful only
// while Enabled is true and is cleared on disable.
type NotificationPreference struct {
	ID             int64     `json:"id"`
	UserID         int64     `json:"user_id"`
	OrganizationID int64     `json:"organization_id"`
	Channel        string    `json:"channel"`
	Category       string    `json:"category"`
	Enabled        bool      `json:"enabled"`
	Frequency      string    `json:"frequency,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// Notification channels and frequencies
const (
	ChannelEmail = "email"
	ChannelSlack = "slack"
	ChannelInApp = "in_app"

	FrequencyImmediate = "immediate"
	FrequencyHourly    = "hourly"
	FrequencyDaily     = "daily"
	FrequencyWeekly    = "weekly"
)

// PasswordPolicy is the password portion of an organization's security
// policy
type PasswordPolicy struct {
	MinLength        int  `json:"min_length"`
	RequireUppercase bool `json:"require_uppercase"`
	RequireLowercase bool `json:"require_lowercase"`
	RequireNumbers   bool `json:"require_numbers"`
	RequireSymbols   bool `json:"require_symbols"`
	MaxAgeDays       int  `json:"max_age_days,omitempty"`
}

// SessionPolicy is the session portion of an organization's security policy
type SessionPolicy struct {
	IdleTimeoutMinutes    int  `json:"idle_timeout_minutes"`
	AbsoluteTimeoutHours  int  `json:"absolute_timeout_hours"`
	MaxConcurrentSessions int  `json:"max_concurrent_sessions,omitempty"`
	RequireMFA            bool `json:"require_mfa"`
}

// SecurityPolicy is an organization's security configuration. At most one
// record exists per organization; the first write creates it.
type SecurityPolicy struct {
	ID             int64          `json:"id"`
	OrganizationID int64          `json:"organization_id"`
	PasswordPolicy PasswordPolicy `json:"password_policy"`
	SessionPolicy  SessionPolicy  `json:"session_policy"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
}

// DefaultSecurityPolicy returns the policy applied before an organization
// configures its own.
func DefaultSecurityPolicy() SecurityPolicy {
	return SecurityPolicy{
		PasswordPolicy: PasswordPolicy{
			MinLength:        8,
			RequireLowercase: true,
			RequireNumbers:   true,
		},
		SessionPolicy: SessionPolicy{
			IdleTimeoutMinutes:   60,
			AbsoluteTimeoutHours: 24 * 7,
		},
	}
}

// SecurityPolicyPatch carries the fields of an UpdateSecurityPolicy call.
// Nil fields leave the stored value unchanged.
type SecurityPolicyPatch struct {
	MinPasswordLength     *int    `json:"min_password_length,omitempty"`
	RequireUppercase      *bool   `json:"require_uppercase,omitempty"`
	RequireLowercase      *bool   `json:"require_lowercase,omitempty"`
	RequireNumbers        *bool   `json:"require_numbers,omitempty"`
	RequireSymbols        *bool   `json:"require_symbols,omitempty"`
	MaxPasswordAgeDays    *int    `json:"max_password_age_days,omitempty"`
	IdleTimeoutMinutes    *int    `json:"idle_timeout_minutes,omitempty"`
	AbsoluteTimeoutHours  *int    `json:"absolute_timeout_hours,omitempty"`
	MaxConcurrentSessions *int    `json:"max_concurrent_sessions,omitempty"`
	RequireMFA            *bool   `json:"require_mfa,omitempty"`
}

// PasswordValidation is the result of checking a candidate password
// against the stored policy.
type PasswordValidation struct {
	Valid  bool     `json:"valid"`
	Errors []string `json:"errors,omitempty"`
}
