// Package client is the typed HTTP client for the opsd API. The CLI uses it
// whenever a daemon is reachable; offline mode bypasses it entirely.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/opsbrain/internal/common"
)

const (
	// DefaultHealthTimeout bounds the daemon probe. The probe runs on every
	// CLI invocation, so it has to fail fast when no daemon listens.
	DefaultHealthTimeout = 1 * time.Second

	// DefaultDataTimeout is the HTTP timeout for everything but the probe.
	DefaultDataTimeout = 3 * time.Second
)

// Client is an opsd API client.
type Client struct {
	baseURL      string
	healthClient *http.Client
	dataClient   *http.Client
	logger       arbor.ILogger
}

// ClientOption configures the Client.
type ClientOption func(*Client)

// WithHTTPClient sets a custom HTTP client for data requests.
func WithHTTPClient(httpClient *http.Client) ClientOption {
	return func(c *Client) {
		c.dataClient = httpClient
	}
}

// WithLogger sets a logger.
func WithLogger(logger arbor.ILogger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// NewClient creates a client for the daemon at baseURL, e.g.
// "http://127.0.0.1:7777".
func NewClient(baseURL string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		healthClient: &http.Client{
			Timeout: DefaultHealthTimeout,
		},
		dataClient: &http.Client{
			Timeout: DefaultDataTimeout,
		},
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Health fetches /health on the short probe timeout.
func (c *Client) Health(ctx context.Context) (*Health, error) {
	var result Health
	if err := c.do(ctx, c.healthClient, http.MethodGet, "/health", nil, nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Available reports whether a healthy daemon answers at the base URL.
func (c *Client) Available(ctx context.Context) bool {
	health, err := c.Health(ctx)
	return err == nil && health.OK
}

// BaseURL returns the daemon address this client talks to.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// get performs a GET request against the API.
func (c *Client) get(ctx context.Context, path string, params url.Values, result any) error {
	return c.do(ctx, c.dataClient, http.MethodGet, path, params, nil, result)
}

// post performs a POST request with a JSON body against the API.
func (c *Client) post(ctx context.Context, path string, body any, result any) error {
	return c.do(ctx, c.dataClient, http.MethodPost, path, nil, body, result)
}

// del performs a DELETE request against the API.
func (c *Client) del(ctx context.Context, path string, result any) error {
	return c.do(ctx, c.dataClient, http.MethodDelete, path, nil, nil, result)
}

func (c *Client) do(ctx context.Context, httpClient *http.Client, method, path string, params url.Values, body any, result any) error {
	reqURL := c.baseURL + path
	if len(params) > 0 {
		reqURL += "?" + params.Encode()
	}

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return common.GenericError(err, "cannot encode request body")
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, reqURL, reader)
	if err != nil {
		return common.GenericError(err, "failed to create request")
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	if c.logger != nil {
		c.logger.Debug().
			Str("method", method).
			Str("url", reqURL).
			Msg("Daemon API request")
	}

	resp, err := httpClient.Do(req)
	if err != nil {
		return common.GenericError(err, "daemon unreachable at %s", c.baseURL)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return c.wireError(resp)
	}

	if result == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		return common.GenericError(err, "cannot decode daemon response")
	}
	return nil
}

// wireError turns a non-200 response into the matching error kind so CLI
// exit codes survive the HTTP round trip.
func (c *Client) wireError(resp *http.Response) error {
	raw, _ := io.ReadAll(resp.Body)
	msg := strings.TrimSpace(string(raw))

	var wire struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(raw, &wire) == nil && wire.Error != "" {
		msg = wire.Error
	}

	switch resp.StatusCode {
	case http.StatusNotFound:
		return common.NotFoundError("%s", msg)
	case http.StatusBadRequest:
		return common.ValidationError("%s", msg)
	default:
		return common.GenericError(nil, "daemon returned HTTP %d: %s", resp.StatusCode, msg)
	}
}
