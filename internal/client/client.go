// Package client is the REST client for a flowcanvas server. It implements
// the workflow and document collaborators a session talks to.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/flowcanvas/flowcanvas/internal/errdefs"
)

// DefaultTimeout is the request timeout used when none is configured.
const DefaultTimeout = 30 * time.Second

// Client is the flowcanvas API client.
type Client struct {
	baseURL    string
	httpClient *http.Client
	apiKey     string
}

// Option is a function that configures the Client.
type Option func(*Client)

// NewClient creates a new API client.
func NewClient(baseURL string, opts ...Option) *Client {
	baseURL = strings.TrimSuffix(baseURL, "/")

	c := &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: DefaultTimeout,
		},
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// WithAPIKey sets the API key for authentication.
func WithAPIKey(key string) Option {
	return func(c *Client) {
		c.apiKey = key
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		c.httpClient = client
	}
}

// WithTimeout sets the HTTP client timeout. Zero keeps the current value.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.httpClient.Timeout = timeout
		}
	}
}

// BaseURL returns the server address the client talks to.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status string `json:"status"`
}

// Health checks the server health.
func (c *Client) Health(ctx context.Context) (*HealthResponse, error) {
	var resp HealthResponse
	if err := c.doRequest(ctx, http.MethodGet, "/health", nil, &resp); err != nil {
		return nil, wrap("health", err)
	}
	return &resp, nil
}

// doRequest performs an HTTP request and decodes the JSON response.
func (c *Client) doRequest(ctx context.Context, method, path string, body, result any) error {
	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return c.do(req, result)
}

// do sends req and decodes a JSON body into result when result is non-nil.
func (c *Client) do(req *http.Request, result any) error {
	c.setHeaders(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &ConnectionError{Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return c.parseError(resp)
	}

	if result != nil && resp.StatusCode != http.StatusNoContent {
		if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}

	return nil
}

// setHeaders sets common headers on a request.
func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("X-API-Key", c.apiKey)
	}
}

// parseError parses an error response from the API. The server answers
// {"detail": ...}; {"error": ...} is accepted as well.
func (c *Client) parseError(resp *http.Response) error {
	var errResp struct {
		Detail json.RawMessage `json:"detail"`
		Error  string          `json:"error"`
	}

	body, _ := io.ReadAll(resp.Body)
	message := ""
	if err := json.Unmarshal(body, &errResp); err == nil {
		message = errResp.Error
		if len(errResp.Detail) > 0 {
			var s string
			if json.Unmarshal(errResp.Detail, &s) == nil {
				message = s
			} else {
				message = string(errResp.Detail)
			}
		}
	} else {
		message = strings.TrimSpace(string(body))
	}
	if message == "" {
		message = resp.Status
	}

	return &APIError{
		StatusCode: resp.StatusCode,
		Message:    message,
	}
}

// wrap turns a request failure into a transport error carrying the
// server's message and status.
func wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	meta := map[string]any{}
	message := ""
	switch e := err.(type) {
	case *APIError:
		meta["status"] = e.StatusCode
		message = e.Message
	case *ConnectionError:
		meta["connection"] = true
	}
	return errdefs.Transport(op, message, err, meta)
}

func pathID(prefix, id string) string {
	return prefix + "/" + url.PathEscape(id)
}
