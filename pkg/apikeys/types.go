package apikeys

import (
	"time"
)

// Key status values. Revoked is terminal.
const (
	StatusActive  = "active"
	StatusRevoked = "revoked"
)

// APIKey is an issued key. HashedSecret never leaves the package; listings
// carry only the display prefix.
type APIKey struct {
	ID             string     `json:"id"`
	OrganizationID int64      `json:"organization_id"`
	UserID         int64      `json:"user_id"`
	Name           string     `json:"name"`
	DisplayPrefix  string     `json:"display_prefix"`
	Scopes         []string   `json:"scopes,omitempty"`
	Status         string     `json:"status"`
	HashedSecret   string     `json:"-"`
	CreatedBy      int64      `json:"created_by"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
	RevokedAt      *time.Time `json:"revoked_at,omitempty"`
	LastUsedAt     *time.Time `json:"last_used_at,omitempty"`
}

// Active reports whether the key can authenticate requests
func (k *APIKey) Active() bool {
	return k.Status == StatusActive
}

// ListFilter narrows List results
type ListFilter struct {
	Status string
	UserID int64
}
