// Package config loads the release-radar YAML configuration.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/pandeptwidyaop/release-radar/internal/models"
)

// Environment variables that override file settings.
const (
	EnvGitLabURL   = "RADAR_GITLAB_URL"
	EnvGitLabToken = "RADAR_GITLAB_TOKEN"
	EnvHostURLs    = "RADAR_HOST_URLS"
)

var (
	// ErrNoHosts indicates no deployment host was configured.
	ErrNoHosts = errors.New("at least one host must be configured")
	// ErrNoGitLabURL indicates the GitLab base URL is missing.
	ErrNoGitLabURL = errors.New("gitlab.url is required")
)

type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	Auth      AuthConfig      `yaml:"auth"`
	GitLab    GitLabConfig    `yaml:"gitlab"`
	HostAPI   HostAPIConfig   `yaml:"host_api"`
	Hosts     []models.Host   `yaml:"hosts"`
	Reconcile ReconcileConfig `yaml:"reconcile"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
	Logging   LoggingConfig   `yaml:"logging"`
}

type ServerConfig struct {
	Host       string `yaml:"host"`
	Port       int    `yaml:"port"`
	PathPrefix string `yaml:"path_prefix"`
}

// DatabaseConfig points at the session store. The default in-memory database
// is discarded on exit.
type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// AuthConfig protects mutating endpoints. An empty TokenHash disables auth.
type AuthConfig struct {
	TokenHash string `yaml:"token_hash"`
}

type GitLabConfig struct {
	URL               string  `yaml:"url"`
	Token             string  `yaml:"token"`
	Ref               string  `yaml:"ref"`
	PerPage           int     `yaml:"per_page"`
	Timeout           string  `yaml:"timeout"`
	RequestsPerSecond float64 `yaml:"requests_per_second"`
}

type HostAPIConfig struct {
	Timeout string `yaml:"timeout"`
}

type ReconcileConfig struct {
	Concurrency int `yaml:"concurrency"`
}

type RateLimitConfig struct {
	Requests int    `yaml:"requests"`
	Window   string `yaml:"window"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// GetTimeout returns the GitLab request timeout.
func (c *GitLabConfig) GetTimeout() time.Duration {
	return parseDuration(c.Timeout, 15*time.Second)
}

// GetTimeout returns the host API timeout used for every call except update triggers.
func (c *HostAPIConfig) GetTimeout() time.Duration {
	return parseDuration(c.Timeout, 30*time.Second)
}

// GetWindow returns the rate limiting window.
func (c *RateLimitConfig) GetWindow() time.Duration {
	return parseDuration(c.Window, time.Minute)
}

func parseDuration(s string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}

// Load reads the config file at path. An empty path yields a config built
// from defaults and environment only.
func Load(path string) (*Config, error) {
	var cfg Config

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, err
		}
	}

	applyEnv(&cfg)
	setDefaults(&cfg)

	return &cfg, nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv(EnvGitLabURL); v != "" {
		cfg.GitLab.URL = v
	}
	if v := os.Getenv(EnvGitLabToken); v != "" {
		cfg.GitLab.Token = v
	}
	if v := os.Getenv(EnvHostURLs); v != "" {
		cfg.Hosts = nil
		for _, u := range strings.Split(v, ";") {
			u = strings.TrimSpace(u)
			if u == "" {
				continue
			}
			cfg.Hosts = append(cfg.Hosts, models.Host{URL: u})
		}
	}
}

func setDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "0.0.0.0"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.PathPrefix == "" {
		cfg.Server.PathPrefix = "/radar"
	}
	if cfg.Database.Path == "" {
		cfg.Database.Path = ":memory:"
	}
	if cfg.GitLab.Ref == "" {
		cfg.GitLab.Ref = "master"
	}
	if cfg.GitLab.PerPage == 0 {
		cfg.GitLab.PerPage = 25
	}
	if cfg.GitLab.Timeout == "" {
		cfg.GitLab.Timeout = "15s"
	}
	if cfg.GitLab.RequestsPerSecond == 0 {
		cfg.GitLab.RequestsPerSecond = 10
	}
	if cfg.HostAPI.Timeout == "" {
		cfg.HostAPI.Timeout = "30s"
	}
	if cfg.Reconcile.Concurrency == 0 {
		cfg.Reconcile.Concurrency = 4
	}
	if cfg.RateLimit.Requests == 0 {
		cfg.RateLimit.Requests = 30
	}
	if cfg.RateLimit.Window == "" {
		cfg.RateLimit.Window = "1m"
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "text"
	}
	for i := range cfg.Hosts {
		cfg.Hosts[i].URL = strings.TrimRight(cfg.Hosts[i].URL, "/")
	}
}

// Validate checks the settings required to talk to hosts and GitLab.
// Hosts without a name are allowed; discovery names them from the host's
// own listing.
func (c *Config) Validate() error {
	if len(c.Hosts) == 0 {
		return ErrNoHosts
	}
	if c.GitLab.URL == "" {
		return ErrNoGitLabURL
	}
	if _, err := url.ParseRequestURI(c.GitLab.URL); err != nil {
		return fmt.Errorf("invalid gitlab.url: %w", err)
	}

	seen := make(map[string]bool)
	for i, h := range c.Hosts {
		if h.URL == "" {
			return fmt.Errorf("hosts[%d]: url is required", i)
		}
		if _, err := url.ParseRequestURI(h.URL); err != nil {
			return fmt.Errorf("hosts[%d]: invalid url: %w", i, err)
		}
		if h.Name == "" {
			continue
		}
		if seen[h.Name] {
			return fmt.Errorf("hosts[%d]: duplicate host name %q", i, h.Name)
		}
		seen[h.Name] = true
	}
	return nil
}
