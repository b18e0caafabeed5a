package router_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/pandeptwidyaop/release-radar/internal/config"
	"github.com/pandeptwidyaop/release-radar/internal/logging"
	"github.com/pandeptwidyaop/release-radar/internal/middleware"
	"github.com/pandeptwidyaop/release-radar/internal/models"
	"github.com/pandeptwidyaop/release-radar/internal/router"
	"github.com/pandeptwidyaop/release-radar/internal/services"
)

type nopHost struct{}

func (nopHost) ListApps(context.Context, models.Host) (*models.HostApps, error) {
	return &models.HostApps{Apps: []models.HostApp{{Name: "billing", ProjectID: "team/billing"}}}, nil
}
func (nopHost) CurrentVersion(context.Context, string, string) (string, error) { return "", nil }
func (nopHost) TriggerUpdate(context.Context, string, string) error          { return nil }
func (nopHost) GetConfig(context.Context, string, string) (string, error)     { return "", nil }

func setup(t *testing.T, tokenHash string) http.Handler {
	t.Helper()

	cfg, err := config.Load("")
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	session := services.NewSession(services.SessionConfig{
		Host:   nopHost{},
		Logger: logging.Nop(),
		Hosts:  []models.Host{{Name: "prod", URL: "http://prod"}},
	})
	if _, err := session.Discovery.Discover(context.Background(), []models.Host{{Name: "prod", URL: "http://prod"}}); err != nil {
		t.Fatalf("discovery failed: %v", err)
	}

	r, limiter := router.New(cfg, session, services.NewAuthService(tokenHash), logging.Nop())
	t.Cleanup(limiter.Stop)
	return r
}

func TestRouter_PublicRoutes(t *testing.T) {
	r := setup(t, "")

	for _, path := range []string{"/radar/api/version", "/radar/api/apps", "/radar/api/apps/prod/billing", "/radar/api/updates", "/healthz"} {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
		if w.Code != http.StatusOK {
			t.Errorf("%s: expected status 200, got %d", path, w.Code)
		}
	}
}

func TestRouter_Metrics(t *testing.T) {
	r := setup(t, "")

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/radar/metrics", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "go_goroutines") {
		t.Error("expected Prometheus exposition format")
	}
}

func TestRouter_MutationsRequireToken(t *testing.T) {
	hash, err := services.NewAuthService("").HashToken("s3cret")
	if err != nil {
		t.Fatalf("failed to hash token: %v", err)
	}
	r := setup(t, hash)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/radar/api/apps/prod/billing/update", nil))
	if w.Code != http.StatusUnauthorized {
		t.Errorf("expected status 401, got %d", w.Code)
	}

	req := httptest.NewRequest(http.MethodPost, "/radar/api/apps/prod/billing/update", nil)
	req.Header.Set(middleware.TokenHeader, "s3cret")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	// billing is not installed on the host.
	if w.Code != http.StatusConflict {
		t.Errorf("expected status 409, got %d", w.Code)
	}
}

func TestRouter_RootRedirect(t *testing.T) {
	r := setup(t, "")

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	if w.Code != http.StatusFound {
		t.Errorf("expected status 302, got %d", w.Code)
	}
	if loc := w.Header().Get("Location"); loc != "/radar/api/apps" {
		t.Errorf("unexpected redirect %q", loc)
	}
}
