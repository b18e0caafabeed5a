// Package hostapi talks to the deployment hosts that report installed
// applications and accept update triggers.
package hostapi

import (
	"bytes"
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

	"github.com/pandeptwidyaop/release-radar/internal/models"
)

const maxResponseBytes = 4 << 20

// APIError is a non-2xx response from a deployment host.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("host api: HTTP %d", e.StatusCode)
	}
	return fmt.Sprintf("host api: HTTP %d: %s", e.StatusCode, e.Body)
}

// IsNotFound reports whether err is a 404 from a host.
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound
}

// Config configures a Client.
type Config struct {
	// Timeout bounds every call except TriggerUpdate.
	Timeout time.Duration

	// HTTPClient overrides the bounded client. The update client never has a
	// timeout regardless.
	HTTPClient *http.Client

	Logger *slog.Logger
}

// Client is a deployment host accessor. A single Client serves every host;
// each call takes the host base URL.
type Client struct {
	http   *http.Client
	update *http.Client
	logger *slog.Logger
}

// NewClient creates a host API client.
func NewClient(cfg Config) *Client {
	bounded := cfg.HTTPClient
	if bounded == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 30 * time.Second
		}
		bounded = &http.Client{Timeout: timeout}
	}

	unbounded := &http.Client{Transport: bounded.Transport}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Client{
		http:   bounded,
		update: unbounded,
		logger: logger.With("component", "hostapi"),
	}
}

// ListApps returns the applications a host reports. Hosts answer either with
// an object carrying their name or with a bare array; in the latter case the
// configured host name is used.
func (c *Client) ListApps(ctx context.Context, host models.Host) (*models.HostApps, error) {
	body, err := c.do(ctx, c.http, http.MethodGet, host.URL, "apps")
	if err != nil {
		return nil, err
	}

	result := &models.HostApps{}
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		if err := json.Unmarshal(trimmed, &result.Apps); err != nil {
			return nil, fmt.Errorf("host api: decoding apps: %w", err)
		}
	} else if err := json.Unmarshal(trimmed, result); err != nil {
		return nil, fmt.Errorf("host api: decoding apps: %w", err)
	}

	if result.HostName == "" {
		result.HostName = host.Name
	}
	return result, nil
}

// CurrentVersion returns the raw version string a host reports for an
// application.
func (c *Client) CurrentVersion(ctx context.Context, hostURL, name string) (string, error) {
	body, err := c.do(ctx, c.http, http.MethodGet, hostURL, "currentVersion/"+url.PathEscape(name))
	if err != nil {
		return "", err
	}

	var resp struct {
		Version string `json:"version"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", fmt.Errorf("host api: decoding version: %w", err)
	}
	return resp.Version, nil
}

// TriggerUpdate asks the host to update the application built from projectID.
// The call has no timeout; only ctx can cut it short.
func (c *Client) TriggerUpdate(ctx context.Context, hostURL, projectID string) error {
	start := time.Now()
	_, err := c.do(ctx, c.update, http.MethodPost, hostURL, "update/"+url.PathEscape(projectID))
	c.logger.Info("update triggered", "host", hostURL, "project", projectID, "duration", time.Since(start), "error", err)
	return err
}

// GetConfig returns the configuration text the host holds for a project.
func (c *Client) GetConfig(ctx context.Context, hostURL, projectID string) (string, error) {
	body, err := c.do(ctx, c.http, http.MethodGet, hostURL, "config/"+url.PathEscape(projectID))
	if err != nil {
		return "", err
	}

	var resp struct {
		Config string `json:"config"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", fmt.Errorf("host api: decoding config: %w", err)
	}
	return resp.Config, nil
}

func (c *Client) do(ctx context.Context, client *http.Client, method, hostURL, path string) ([]byte, error) {
	endpoint := strings.TrimRight(hostURL, "/") + "/api/" + path

	req, err := http.NewRequestWithContext(ctx, method, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("host api: building request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("host api: %s %s: %w", method, endpoint, err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("host api: reading response body: %w", err)
	}

	c.logger.Debug("request", "method", method, "url", endpoint, "status", resp.StatusCode)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg := strings.TrimSpace(string(body))
		if len(msg) > 200 {
			msg = msg[:200]
		}
		return nil, &APIError{StatusCode: resp.StatusCode, Body: msg}
	}
	return body, nil
}
