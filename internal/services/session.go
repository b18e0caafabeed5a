package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/pandeptwidyaop/release-radar/internal/database"
	"github.com/pandeptwidyaop/release-radar/internal/models"
)

// SessionConfig carries the collaborators of a Session.
type SessionConfig struct {
	CI          CIClient
	Host        HostClient
	DB          *database.DB
	Logger      *slog.Logger
	Hosts       []models.Host
	Concurrency int
}

// Session owns the application registry and every service acting on it for
// the lifetime of the process.
type Session struct {
	Registry     *Registry
	Events       *EventBus
	Reconciler   *Reconciler
	Orchestrator *Orchestrator
	Discovery    *Discovery
	Audit        *AuditService
	host         HostClient
	hosts        []models.Host
	logger       *slog.Logger
}

// NewSession wires a Session. DB may be nil, in which case update runs are
// not recorded.
func NewSession(cfg SessionConfig) *Session {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	events := NewEventBus()
	registry := NewRegistry(events)
	reconciler := NewReconciler(registry, cfg.CI, cfg.Host, cfg.Concurrency, logger)

	var audit *AuditService
	if cfg.DB != nil {
		audit = NewAuditService(cfg.DB)
	}

	return &Session{
		Registry:     registry,
		Events:       events,
		Reconciler:   reconciler,
		Orchestrator: NewOrchestrator(registry, reconciler.Resolver(), cfg.Host, audit, events, logger),
		Discovery:    NewDiscovery(registry, cfg.Host, logger),
		Audit:        audit,
		host:         cfg.Host,
		hosts:        cfg.Hosts,
		logger:       logger,
	}
}

// Start discovers every host's applications and reconciles them once,
// trusting the versions the hosts declared.
func (s *Session) Start(ctx context.Context) error {
	n, err := s.Discovery.Discover(ctx, s.hosts)
	if err != nil {
		return err
	}
	s.logger.Info("discovery complete", "apps", n, "hosts", len(s.hosts))

	return s.Orchestrator.Exclusive(func() error {
		return s.Reconciler.ReconcileAll(ctx, true)
	})
}

// Refresh re-resolves an application from scratch. It fails with
// ErrUpdateInProgress while an update chain runs.
func (s *Session) Refresh(ctx context.Context, key models.AppKey) error {
	return s.Orchestrator.Exclusive(func() error {
		return s.Reconciler.Refresh(ctx, key)
	})
}

// AppConfig returns the configuration text the host holds for an application.
func (s *Session) AppConfig(ctx context.Context, key models.AppKey) (string, error) {
	app, err := s.Registry.Get(key)
	if err != nil {
		return "", err
	}

	cfg, err := s.host.GetConfig(ctx, app.HostURL, app.ProjectID)
	if err != nil {
		accessorErrors.WithLabelValues(accessorHost).Inc()
		return "", fmt.Errorf("config of %s: %w", key, err)
	}
	return cfg, nil
}
