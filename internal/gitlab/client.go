// Package gitlab is a read-only GitLab REST v4 client covering the pipeline,
// commit and issue endpoints release-radar reconciles against.
package gitlab

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

const maxResponseBytes = 8 << 20

// Config holds configuration for creating a Client.
type Config struct {
	// BaseURL is the GitLab instance URL. "/api/v4" is appended when the URL
	// does not already point at an API root.
	BaseURL string

	// Token is sent as PRIVATE-TOKEN. Optional for public projects.
	Token string

	// Ref is the trunk branch whose successful pipelines are listed.
	Ref string

	// PerPage bounds the pipeline listing.
	PerPage int

	// Timeout bounds every request. Ignored when HTTPClient is set.
	Timeout time.Duration

	// RequestsPerSecond throttles outgoing calls. Zero disables throttling.
	RequestsPerSecond float64

	HTTPClient *http.Client
	Logger     *slog.Logger
}

// Client talks to the GitLab REST API.
type Client struct {
	baseURL    string
	token      string
	ref        string
	perPage    int
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     *slog.Logger
}

// NewClient creates a GitLab client from cfg.
func NewClient(cfg Config) (*Client, error) {
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		return nil, errors.New("gitlab: base URL is required")
	}
	if _, err := url.ParseRequestURI(baseURL); err != nil {
		return nil, fmt.Errorf("gitlab: invalid base URL: %w", err)
	}
	if !strings.Contains(baseURL, "/api/") {
		baseURL += "/api/v4"
	}

	ref := cfg.Ref
	if ref == "" {
		ref = "master"
	}
	perPage := cfg.PerPage
	if perPage <= 0 {
		perPage = 25
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 15 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	var limiter *rate.Limiter
	if cfg.RequestsPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), 1)
	}

	return &Client{
		baseURL:    baseURL,
		token:      cfg.Token,
		ref:        ref,
		perPage:    perPage,
		httpClient: httpClient,
		limiter:    limiter,
		logger:     logger.With("component", "gitlab"),
	}, nil
}

// projectPath returns the URL prefix for a project id or "namespace/name" path.
func projectPath(projectID string) string {
	return "/projects/" + url.PathEscape(projectID)
}

// get issues an authenticated GET and decodes the JSON body into out.
// Non-2xx responses are returned as *APIError.
func (c *Client) get(ctx context.Context, path string, query url.Values, out any) error {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("gitlab: rate limiter: %w", err)
		}
	}

	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("gitlab: building request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("PRIVATE-TOKEN", c.token)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("gitlab: GET %s: %w", path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return fmt.Errorf("gitlab: reading response body: %w", err)
	}

	c.logger.Debug("request", "path", path, "status", resp.StatusCode, "duration", time.Since(start))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return newAPIError(resp.StatusCode, body)
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("gitlab: decoding %s: %w", path, err)
	}
	return nil
}
