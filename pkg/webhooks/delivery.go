package webhooks

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/platinummonkey/warden/pkg/async"
	"github.com/platinummonkey/warden/pkg/observability"
)

// SignatureHeader carries the HMAC-SHA256 of the payload, keyed by the
// webhook secret, as "sha256=<hex>". Receivers verify it before trusting
// the payload.
const SignatureHeader = "X-Warden-Signature"

const defaultTimeout = 10 * time.Second

const maxResponseBytes = 64 * 1024

const maxParallelDeliveries = 8

// Sender performs outbound webhook deliveries
type Sender struct {
	client  *http.Client
	timeout time.Duration
	metrics *observability.Metrics
}

// NewSender creates a delivery sender. A zero timeout uses the default.
func NewSender(timeout time.Duration, metrics *observability.Metrics) *Sender {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Sender{
		client:  &http.Client{Timeout: timeout},
		timeout: timeout,
		metrics: metrics,
	}
}

// Sign computes the signature for a payload with a webhook secret
func Sign(secret string, payload []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	return "sha256=" + hex.EncodeToString(mac.Sum(nil))
}

// Send posts a signed payload to the webhook URL. Network failures and
// timeouts come back inside the result, never as an error; the result is
// safe to show to the configuring user.
func (s *Sender) Send(ctx context.Context, webhook *Webhook, payload []byte) *TestResult {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, webhook.URL, bytes.NewReader(payload))
	if err != nil {
		return &TestResult{Success: false, Error: fmt.Sprintf("invalid request: %v", err)}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "warden-webhooks/1.0")
	req.Header.Set(SignatureHeader, Sign(webhook.Secret, payload))

	start := time.Now()
	resp, err := s.client.Do(req)
	if s.metrics != nil {
		s.metrics.ObserveOutbound("webhook", time.Since(start), err == nil)
	}
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return &TestResult{Success: false, Error: "timeout"}
		}
		return &TestResult{Success: false, Error: fmt.Sprintf("delivery failed: %v", err)}
	}
	defer resp.Body.Close()

	body, readErr := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	result := &TestResult{
		Success:        resp.StatusCode >= 200 && resp.StatusCode < 300,
		ResponseStatus: resp.StatusCode,
		Response:       string(body),
	}
	if !result.Success {
		result.Error = fmt.Sprintf("endpoint returned status %d", resp.StatusCode)
	} else if readErr != nil {
		result.Success = false
		result.Error = fmt.Sprintf("failed to read response body: %v", readErr)
	}
	return result
}

// Dispatcher fans a fired event out to the organization's subscribed
// webhooks and appends a delivery record per attempt.
type Dispatcher struct {
	store  *Store
	sender *Sender
	log    *observability.Logger
}

// NewDispatcher creates a dispatcher
func NewDispatcher(store *Store, sender *Sender, log *observability.Logger) *Dispatcher {
	return &Dispatcher{store: store, sender: sender, log: log}
}

// Dispatch delivers an event payload to every active subscribed webhook.
// Per-webhook failures are recorded and do not stop the fan-out.
func (d *Dispatcher) Dispatch(ctx context.Context, organizationID int64, eventName string, data interface{}) error {
	webhooks, err := d.store.ListSubscribed(ctx, organizationID, eventName)
	if err != nil {
		return fmt.Errorf("failed to resolve subscribers: %w", err)
	}
	if len(webhooks) == 0 {
		return nil
	}

	payload, err := json.Marshal(map[string]interface{}{
		"event":     eventName,
		"timestamp": time.Now().UTC(),
		"data":      data,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	return async.Batch(ctx, webhooks, maxParallelDeliveries, func(ctx context.Context, webhook Webhook) error {
		result := d.sender.Send(ctx, &webhook, payload)

		delivery := &Delivery{
			WebhookID:      webhook.ID,
			RequestPayload: string(payload),
			ResponseStatus: result.ResponseStatus,
			ResponseBody:   result.Response,
			Success:        result.Success,
		}
		if err := d.store.RecordDelivery(ctx, delivery); err != nil {
			d.log.WithError(err).WithField("webhook_id", webhook.ID).Error("failed to record delivery")
		}
		if !result.Success {
			d.log.WithFields(map[string]interface{}{
				"webhook_id": webhook.ID,
				"event":      eventName,
				"error":      result.Error,
			}).Warn("webhook delivery failed")
		}
		return nil
	})
}
