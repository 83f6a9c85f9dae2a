// Package webhook delivers captured lead data to an external endpoint.
// Delivery is best-effort: the diagnostic flow never waits on it and never
// fails because of it.
package webhook

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/marketpulse/diagnostic/internal/model"
)

const defaultTimeout = 10 * time.Second

// Client sends identity payloads to a fixed webhook endpoint.
type Client struct {
	endpoint string
	http     *http.Client
}

// New creates a webhook client for the given endpoint. An empty endpoint
// returns nil, which disables delivery.
func New(endpoint string) (*Client, error) {
	if endpoint == "" {
		return nil, nil
	}
	if _, err := url.Parse(endpoint); err != nil {
		return nil, fmt.Errorf("parse webhook endpoint: %w", err)
	}
	return &Client{
		endpoint: endpoint,
		http:     &http.Client{Timeout: defaultTimeout},
	}, nil
}

// Deliver sends the identity as query parameters on a GET request, with a
// cache-busting timestamp. Response bodies are not inspected: success is
// assumed unless the request itself fails, matching the optimistic model
// of transports that cannot expose response status.
func (c *Client) Deliver(ctx context.Context, identity model.Identity, sessionID string) bool {
	if c == nil {
		return true
	}

	q := url.Values{}
	q.Set("name", identity.Name)
	q.Set("email", identity.Email)
	q.Set("company", identity.Company)
	q.Set("phone", identity.Phone)
	q.Set("utm_source", identity.UTMSource)
	q.Set("utm_medium", identity.UTMMedium)
	q.Set("utm_campaign", identity.UTMCampaign)
	q.Set("session", sessionID)
	q.Set("ts", strconv.FormatInt(time.Now().UnixMilli(), 10))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint+"?"+q.Encode(), nil)
	if err != nil {
		slog.Error("webhook: build request", "error", err)
		return false
	}

	resp, err := c.http.Do(req)
	if err != nil {
		slog.Warn("webhook: delivery failed", "error", err)
		return false
	}
	defer resp.Body.Close()

	slog.Info("webhook: lead delivered", "status", resp.StatusCode, "session", sessionID)
	return true
}
