package sessions

import (
	"time"
)

// UserSession is one authenticated session. A session ends by explicit
// revocation, bulk revocation or the expiry sweep; none of these can be
// undone.
type UserSession struct {
	ID             string     `json:"id"`
	UserID         int64      `json:"user_id"`
	OrganizationID int64      `json:"organization_id,omitempty"`
	DeviceInfo     string     `json:"device_info,omitempty"`
	IPAddress      string     `json:"ip_address,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	LastActiveAt   time.Time  `json:"last_active_at"`
	ExpiresAt      time.Time  `json:"expires_at"`
	RevokedAt      *time.Time `json:"revoked_at,omitempty"`
}

// Active reports whether the session is neither revoked nor expired
func (s *UserSession) Active(now time.Time) bool {
	return s.RevokedAt == nil && now.Before(s.ExpiresAt)
}
