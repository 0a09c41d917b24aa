// Package dashboard provides a client for the personal finance backend API
// endpoints used by price refresh orchestration.
package dashboard

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

const (
	refreshPath         = "/portfolio/market-prices/refresh"
	refreshStatusPath   = "/portfolio/market-prices/refresh-status"
	realtimePricingPath = "/settings/realtime-pricing"
	providerStatusPath  = "/settings/twelvedata-status"

	// Error bodies are truncated to keep log lines bounded.
	maxErrorBody = 1024
)

// Client talks to the backend API root, e.g. http://localhost:8000/api/v1.
type Client struct {
	baseURL    string
	httpClient *http.Client

	tokenMu sync.RWMutex
	token   string

	log zerolog.Logger
}

// NewClient creates a new backend API client.
// token is optional; when set it is sent as a bearer token.
func NewClient(baseURL, token string, timeout time.Duration, log zerolog.Logger) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		log: log.With().Str("client", "dashboard").Logger(),
	}
}

// BaseURL returns the API root the client was configured with.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// SetToken replaces the bearer token used by subsequent requests.
// An empty token sends requests unauthenticated.
func (c *Client) SetToken(token string) {
	c.tokenMu.Lock()
	c.token = token
	c.tokenMu.Unlock()
}

func (c *Client) bearer() string {
	c.tokenMu.RLock()
	defer c.tokenMu.RUnlock()
	return c.token
}

// Submit asks the server to refresh market prices. The request is always
// sent; the server decides whether to start new work or report the running job.
func (c *Client) Submit(ctx context.Context, force bool) (*SubmitResult, error) {
	var envelope statusEnvelope
	if err := c.do(ctx, http.MethodPost, refreshPath, map[string]bool{"force": force}, &envelope); err != nil {
		return nil, fmt.Errorf("failed to submit price refresh: %w", err)
	}

	batches := envelope.TotalBatches
	if envelope.Status != nil && envelope.Status.TotalBatches > 0 {
		batches = envelope.Status.TotalBatches
	}
	if batches < 1 {
		batches = DefaultTotalBatches
	}

	c.log.Info().
		Bool("force", force).
		Int("total_batches", batches).
		Msg("Price refresh submitted")

	return &SubmitResult{Status: envelope.Status, TotalBatches: batches}, nil
}

// GetStatus reads the current job status. A nil status with a nil error
// means the server reports nothing running.
func (c *Client) GetStatus(ctx context.Context) (*JobStatus, error) {
	var envelope statusEnvelope
	if err := c.do(ctx, http.MethodGet, refreshStatusPath, nil, &envelope); err != nil {
		return nil, fmt.Errorf("failed to get refresh status: %w", err)
	}
	return envelope.Status, nil
}

// GetRealtimePricing reads the persisted auto-refresh setting.
func (c *Client) GetRealtimePricing(ctx context.Context) (bool, error) {
	var resp realtimePricingResponse
	if err := c.do(ctx, http.MethodGet, realtimePricingPath, nil, &resp); err != nil {
		return false, fmt.Errorf("failed to get realtime pricing setting: %w", err)
	}
	return resp.Enabled, nil
}

// SetRealtimePricing persists the auto-refresh setting.
func (c *Client) SetRealtimePricing(ctx context.Context, enabled bool) error {
	path := realtimePricingPath + "?enabled=" + strconv.FormatBool(enabled)
	if err := c.do(ctx, http.MethodPut, path, nil, nil); err != nil {
		return fmt.Errorf("failed to set realtime pricing setting: %w", err)
	}
	return nil
}

// GetProviderStatus reports whether the upstream price provider has credentials configured.
func (c *Client) GetProviderStatus(ctx context.Context) (bool, error) {
	var resp providerStatusResponse
	if err := c.do(ctx, http.MethodGet, providerStatusPath, nil, &resp); err != nil {
		return false, fmt.Errorf("failed to get provider status: %w", err)
	}
	return resp.IsConfigured, nil
}

// do performs one JSON request. out may be nil when the body is ignored.
func (c *Client) do(ctx context.Context, method, path string, in, out interface{}) error {
	var body io.Reader
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		body = bytes.NewReader(payload)
	}

	endpoint, err := url.Parse(c.baseURL + path)
	if err != nil {
		return fmt.Errorf("invalid url: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint.String(), body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token := c.bearer(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	c.log.Debug().
		Str("method", method).
		Str("path", endpoint.Path).
		Int("status", resp.StatusCode).
		Dur("duration", time.Since(start)).
		Msg("Backend request")

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &APIError{
			Method:     method,
			Path:       endpoint.Path,
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(raw)),
		}
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
