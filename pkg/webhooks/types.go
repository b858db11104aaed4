package webhooks

import (
	"time"
)

// Webhook status values
const (
	StatusActive   = "active"
	StatusDisabled = "disabled"
)

// Webhook is one outbound subscription. Secret signs delivery payloads so
// receivers can verify origin; it is returned on creation and readable by
// the owning organization only.
type Webhook struct {
	ID             string    `json:"id"`
	OrganizationID int64     `json:"organization_id"`
	URL            string    `json:"url"`
	Events         []string  `json:"events"`
	Secret         string    `json:"secret,omitempty"`
	Status         string    `json:"status"`
	CreatedBy      int64     `json:"created_by"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// SubscribedTo reports whether the webhook listens for an event name
func (w *Webhook) SubscribedTo(eventName string) bool {
	for _, e := range w.Events {
		if e == eventName || e == "*" {
			return true
		}
	}
	return false
}

// Delivery is one append-only delivery record
type Delivery struct {
	ID             string    `json:"id"`
	WebhookID      string    `json:"webhook_id"`
	RequestPayload string    `json:"request_payload"`
	ResponseStatus int       `json:"response_status"`
	ResponseBody   string    `json:"response_body,omitempty"`
	Success        bool      `json:"success"`
	Timestamp      time.Time `json:"timestamp"`
}

// TestResult is the outcome of a test delivery. Failures are data, not
// errors: a timeout comes back as {success: false, error: "timeout"}.
type TestResult struct {
	Success        bool   `json:"success"`
	ResponseStatus int    `json:"response_status,omitempty"`
	Response       string `json:"response,omitempty"`
	Error          string `json:"error,omitempty"`
}
