// Package cli implements the radar command line.
package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pandeptwidyaop/release-radar/internal/config"
	"github.com/pandeptwidyaop/release-radar/internal/database"
	"github.com/pandeptwidyaop/release-radar/internal/gitlab"
	"github.com/pandeptwidyaop/release-radar/internal/hostapi"
	"github.com/pandeptwidyaop/release-radar/internal/logging"
	"github.com/pandeptwidyaop/release-radar/internal/models"
	"github.com/pandeptwidyaop/release-radar/internal/service"
	"github.com/pandeptwidyaop/release-radar/internal/services"
	"github.com/pandeptwidyaop/release-radar/internal/validation"
)

// ErrInvalidKey indicates an application argument that is not host/name.
var ErrInvalidKey = errors.New("application must be given as <host>/<name>")

type globalOptions struct {
	configPath string
	logLevel   string
}

// NewRootCommand builds the radar command tree.
func NewRootCommand() *cobra.Command {
	opts := &globalOptions{}

	root := &cobra.Command{
		Use:   "radar",
		Short: "Track which CI builds each deployed application is missing",
		Long: `Radar compares the build every host has installed against the successful
trunk pipelines in GitLab, lists the issues and dependencies those missing
builds bring, and triggers dependency-ordered updates.`,
		SilenceUsage: true,
	}

	root.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "config.yaml", "path to config file")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "override logging.level (debug, info, warn, error)")

	root.AddCommand(
		newServeCommand(opts),
		newStatusCommand(opts),
		newUpdateCommand(opts),
		newConfigCommand(opts),
		newVersionCommand(),
		newHashTokenCommand(),
		newServiceCommand(opts, service.NewManager()),
	)
	return root
}

// Execute runs the command tree against os.Args.
func Execute() error {
	return NewRootCommand().Execute()
}

// radarEnv is everything a command needs to act on the hosts.
type radarEnv struct {
	cfg     *config.Config
	logger  *slog.Logger
	db      *database.DB
	session *services.Session
}

func (r *radarEnv) Close() {
	if r.db == nil {
		return
	}
	if err := r.db.Close(); err != nil {
		r.logger.Warn("closing database", "error", err)
	}
}

func bootstrap(cmd *cobra.Command, opts *globalOptions) (*radarEnv, error) {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return nil, fmt.Errorf("loading config %s: %w", opts.configPath, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	level := cfg.Logging.Level
	if opts.logLevel != "" {
		level = opts.logLevel
	}
	logger := logging.New(level, cfg.Logging.Format, cmd.ErrOrStderr())

	db, err := database.New(cfg.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	rt := &radarEnv{cfg: cfg, logger: logger, db: db}
	if err := db.Migrate(); err != nil {
		rt.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	ci, err := gitlab.NewClient(gitlab.Config{
		BaseURL:           cfg.GitLab.URL,
		Token:             cfg.GitLab.Token,
		Ref:               cfg.GitLab.Ref,
		PerPage:           cfg.GitLab.PerPage,
		Timeout:           cfg.GitLab.GetTimeout(),
		RequestsPerSecond: cfg.GitLab.RequestsPerSecond,
		Logger:            logger,
	})
	if err != nil {
		rt.Close()
		return nil, err
	}

	host := hostapi.NewClient(hostapi.Config{
		Timeout: cfg.HostAPI.GetTimeout(),
		Logger:  logger,
	})

	rt.session = services.NewSession(services.SessionConfig{
		CI:          ci,
		Host:        host,
		DB:          db,
		Logger:      logger,
		Hosts:       cfg.Hosts,
		Concurrency: cfg.Reconcile.Concurrency,
	})
	return rt, nil
}

func parseKey(arg string) (models.AppKey, error) {
	host, name, ok := strings.Cut(arg, "/")
	if !ok {
		return models.AppKey{}, fmt.Errorf("%w: %q", ErrInvalidKey, arg)
	}
	key := models.AppKey{Host: host, Name: name}
	if err := validation.ValidateKey(key); err != nil {
		return models.AppKey{}, fmt.Errorf("%w: %w", ErrInvalidKey, err)
	}
	return key, nil
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
