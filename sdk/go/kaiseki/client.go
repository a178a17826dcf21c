package kaiseki

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
	"time"
)

// Config holds the settings needed to construct a Client.
type Config struct {
	// BaseURL is the root URL of the Kaiseki server (e.g. "http://localhost:8080").
	BaseURL string

	// HTTPClient is an optional custom HTTP client. If nil, a default client
	// with a 30-second timeout is used.
	HTTPClient *http.Client

	// Timeout applies to individual API requests. Defaults to 30 seconds.
	// Analysis of slow snippets runs up to the server's execution timeout,
	// so keep this above that.
	Timeout time.Duration
}

// Client is an HTTP client for the Kaiseki code-analysis API.
// All methods are safe for concurrent use.
type Client struct {
	baseURL string
	client  *http.Client
}

// NewClient creates a Client from the given configuration.
// Returns an error if BaseURL is empty.
func NewClient(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("kaiseki: BaseURL is required")
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout == 0 {
			timeout = 30 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}

	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		client:  httpClient,
	}, nil
}

// Analyze runs the full analysis pipeline on a code snippet. A snippet
// whose execution fails still returns a non-nil Analysis with Success
// false; the error return covers transport and protocol failures only.
func (c *Client) Analyze(ctx context.Context, code string) (*Analysis, error) {
	var resp Analysis
	if err := c.post(ctx, "/v1/analyze", map[string]any{"code": code}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// SaveCode saves a code snippet. An empty filename gets a timestamped
// default on the server.
func (c *Client) SaveCode(ctx context.Context, code, filename string) (*SaveResult, error) {
	body := map[string]any{"code": code}
	if filename != "" {
		body["filename"] = filename
	}
	var resp SaveResult
	if err := c.post(ctx, "/v1/snippets", body, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// SaveReport renders and saves a plain-text analysis report server-side.
func (c *Client) SaveReport(ctx context.Context, code string, analysis Analysis, filename string) (*SaveResult, error) {
	body := map[string]any{"code": code, "analysis_data": analysis}
	if filename != "" {
		body["filename"] = filename
	}
	var resp SaveResult
	if err := c.post(ctx, "/v1/reports", body, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Snippets lists saved snippets and reports, newest first.
// limit <= 0 uses the server default.
func (c *Client) Snippets(ctx context.Context, limit int) ([]Snippet, error) {
	path := "/v1/snippets"
	if limit > 0 {
		path += "?limit=" + strconv.Itoa(limit)
	}
	var resp snippetsResponse
	if err := c.get(ctx, path, &resp); err != nil {
		return nil, err
	}
	return resp.Snippets, nil
}

// Analyses lists analysis history rows, newest first.
// limit <= 0 uses the server default.
func (c *Client) Analyses(ctx context.Context, limit int) ([]AnalysisRecord, error) {
	path := "/v1/analyses"
	if limit > 0 {
		path += "?limit=" + strconv.Itoa(limit)
	}
	var resp analysesResponse
	if err := c.get(ctx, path, &resp); err != nil {
		return nil, err
	}
	return resp.Analyses, nil
}

// Snippet fetches a saved snippet's raw body by filename.
func (c *Client) Snippet(ctx context.Context, filename string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.baseURL+"/v1/snippets/"+url.PathEscape(filename), nil)
	if err != nil {
		return "", fmt.Errorf("kaiseki: create request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("kaiseki: %s %s: %w", req.Method, req.URL.Path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("kaiseki: read response body: %w", err)
	}
	if resp.StatusCode >= 400 {
		return "", parseErrorResponse(resp.StatusCode, bodyBytes)
	}
	return string(bodyBytes), nil
}

// Health reports server health. It does not return an error for an
// unhealthy server; check the Status field.
func (c *Client) Health(ctx context.Context) (*Health, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return nil, fmt.Errorf("kaiseki: create request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("kaiseki: %s %s: %w", req.Method, req.URL.Path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	var health Health
	// A 503 still carries a health body.
	if err := handleHealthResponse(resp, &health); err != nil {
		return nil, err
	}
	return &health, nil
}

// ---------------------------------------------------------------------------
// HTTP transport
// ---------------------------------------------------------------------------

// apiEnvelope is the server's standard response wrapper.
type apiEnvelope struct {
	Data json.RawMessage `json:"data"`
}

// apiErrorEnvelope is the server's standard error response wrapper.
type apiErrorEnvelope struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func (c *Client) post(ctx context.Context, path string, body any, dest any) error {
	encoded, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("kaiseki: marshal request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(encoded))
	if err != nil {
		return fmt.Errorf("kaiseki: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	return c.doRequest(req, dest)
}

func (c *Client) get(ctx context.Context, path string, dest any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("kaiseki: create request: %w", err)
	}

	return c.doRequest(req, dest)
}

func (c *Client) doRequest(req *http.Request, dest any) error {
	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("kaiseki: %s %s: %w", req.Method, req.URL.Path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	return handleResponse(resp, dest)
}

func handleResponse(resp *http.Response, dest any) error {
	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("kaiseki: read response body: %w", err)
	}

	if resp.StatusCode >= 400 {
		return parseErrorResponse(resp.StatusCode, bodyBytes)
	}

	if resp.StatusCode == http.StatusNoContent || dest == nil {
		return nil
	}

	// Unwrap the server's { "data": ... } envelope.
	var envelope apiEnvelope
	if err := json.Unmarshal(bodyBytes, &envelope); err != nil {
		return fmt.Errorf("kaiseki: decode response envelope: %w", err)
	}

	if envelope.Data == nil {
		// Fallback: some endpoints may not wrap in "data".
		return json.Unmarshal(bodyBytes, dest)
	}

	return json.Unmarshal(envelope.Data, dest)
}

// handleHealthResponse is handleResponse minus the error mapping: /health
// answers 503 with a regular envelope when storage is down.
func handleHealthResponse(resp *http.Response, dest any) error {
	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("kaiseki: read response body: %w", err)
	}

	var envelope apiEnvelope
	if err := json.Unmarshal(bodyBytes, &envelope); err != nil {
		return fmt.Errorf("kaiseki: decode response envelope: %w", err)
	}
	if envelope.Data == nil {
		return json.Unmarshal(bodyBytes, dest)
	}
	return json.Unmarshal(envelope.Data, dest)
}

func parseErrorResponse(statusCode int, body []byte) *Error {
	apiErr := &Error{StatusCode: statusCode}

	var envelope apiErrorEnvelope
	if err := json.Unmarshal(body, &envelope); err == nil && envelope.Error.Message != "" {
		apiErr.Code = envelope.Error.Code
		apiErr.Message = envelope.Error.Message
	} else {
		apiErr.Code = http.StatusText(statusCode)
		apiErr.Message = string(body)
	}

	return apiErr
}
