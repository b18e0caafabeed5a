package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/pandeptwidyaop/release-radar/internal/router"
	"github.com/pandeptwidyaop/release-radar/internal/services"
	"github.com/pandeptwidyaop/release-radar/internal/version"
)

const shutdownTimeout = 10 * time.Second

func newServeCommand(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Long: `Serve discovers every configured host, reconciles its applications in the
background and exposes them over HTTP, SSE and WebSocket.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd, opts)
		},
	}
}

func runServe(cmd *cobra.Command, opts *globalOptions) error {
	rt, err := bootstrap(cmd, opts)
	if err != nil {
		return err
	}
	defer rt.Close()

	ctx, stop := signal.NotifyContext(commandContext(cmd), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	authService := services.NewAuthService(rt.cfg.Auth.TokenHash)
	if !authService.Enabled() {
		rt.logger.Warn("auth.token_hash is empty; mutating endpoints are open")
	}

	r, limiter := router.New(rt.cfg, rt.session, authService, rt.logger)
	defer limiter.Stop()

	addr := fmt.Sprintf("%s:%d", rt.cfg.Server.Host, rt.cfg.Server.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		if err := rt.session.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
			rt.logger.Error("initial reconcile failed", "error", err)
		}
	}()

	serveErr := make(chan error, 1)
	go func() {
		rt.logger.Info("release radar starting", "version", version.Version, "addr", addr, "prefix", rt.cfg.Server.PathPrefix)
		serveErr <- srv.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	rt.logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
