package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/pandeptwidyaop/release-radar/internal/models"
)

// Reconciler brings application records in line with the host and CI state.
type Reconciler struct {
	registry    *Registry
	resolver    *VersionResolver
	miner       *DependencyMiner
	ci          CIClient
	logger      *slog.Logger
	concurrency int
}

// NewReconciler creates a Reconciler. concurrency bounds ReconcileAll; values
// below one mean sequential.
func NewReconciler(registry *Registry, ci CIClient, host HostClient, concurrency int, logger *slog.Logger) *Reconciler {
	if concurrency < 1 {
		concurrency = 1
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Reconciler{
		registry:    registry,
		resolver:    NewVersionResolver(ci, host),
		miner:       NewDependencyMiner(ci),
		ci:          ci,
		logger:      logger.With("component", "reconciler"),
		concurrency: concurrency,
	}
}

// Resolver returns the version resolver the reconciler uses.
func (r *Reconciler) Resolver() *VersionResolver {
	return r.resolver
}

// ReconcileApp resolves the installed build, analyses the pipeline gap, mines
// dependencies and folds everything into the registry record. The declared
// version is only trusted when firstPass is set. Failures are recorded on the
// record as error flags and also returned.
func (r *Reconciler) ReconcileApp(ctx context.Context, key models.AppKey, firstPass bool) error {
	app, err := r.registry.Get(key)
	if err != nil {
		return err
	}

	// Apps that are not installed have no current build but still show the
	// latest one.
	var (
		resolution Resolution
		resolveErr error
	)
	if app.Installed {
		declared := ""
		if firstPass {
			declared = app.DeclaredVersion
		}
		resolution, resolveErr = r.resolver.Resolve(ctx, app, declared)
	}

	var (
		gap    Gap
		mined  MiningResult
		gapErr error
	)
	pipelines, err := r.ci.ListSuccessfulPipelines(ctx, app.ProjectID)
	if err != nil {
		gapErr = fmt.Errorf("pipelines of %s: %w", app.ProjectID, err)
	} else {
		gap = AnalyzeGap(pipelines, resolution.Build)
		mined, err = r.miner.Mine(ctx, app.ProjectID, gap.Missing, gap.LatestBuild)
		if err != nil {
			gapErr = fmt.Errorf("mining %s: %w", app.ProjectID, err)
		}
	}
	if gapErr != nil {
		accessorErrors.WithLabelValues(accessorGitLab).Inc()
	}

	now := time.Now()
	_, err = r.registry.Update(key, func(a *models.App) {
		if resolveErr != nil {
			a.CurrentBuild = nil
			a.CurrentBuildAt = nil
			a.CurrentBuildError = true
		} else {
			a.CurrentBuild = resolution.Build
			a.CurrentBuildAt = resolution.FinishedAt
			a.CurrentBuildError = false
		}

		if gapErr != nil {
			a.LatestBuild = nil
			a.LatestBuildAt = nil
			a.LatestBuildError = true
		} else {
			a.LatestBuild = gap.LatestBuild
			a.LatestBuildAt = mined.LatestBuildAt
			a.LatestBuildError = false
			a.MissingBuilds = gap.MissingIDs()
			a.ClosedIssueIDs = mined.ClosedIssueIDs
			a.DependencyProjectIDs = mined.DependencyProjectIDs
		}

		a.UpToDate = IsUpToDate(a.CurrentBuild, a.LatestBuild)
		a.RefreshedAt = &now
	})
	if err != nil {
		return err
	}

	if resolveErr != nil || gapErr != nil {
		reconcileTotal.WithLabelValues("partial").Inc()
		return errors.Join(resolveErr, gapErr)
	}
	reconcileTotal.WithLabelValues("ok").Inc()
	return nil
}

// Refresh discards everything resolved about an application and reconciles
// it again from the host's current version endpoint.
func (r *Reconciler) Refresh(ctx context.Context, key models.AppKey) error {
	if _, err := r.registry.Update(key, func(a *models.App) { a.ResetResolved() }); err != nil {
		return err
	}
	return r.ReconcileApp(ctx, key, false)
}

// ReconcileAll reconciles every registered application with bounded
// parallelism. A failing application never stops the others; failures are
// logged and left on the records.
func (r *Reconciler) ReconcileAll(ctx context.Context, firstPass bool) error {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(r.concurrency)

	for _, key := range r.registry.Keys() {
		g.Go(func() error {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if err := r.ReconcileApp(ctx, key, firstPass); err != nil {
				r.logger.Warn("reconcile failed", "app", key.String(), "error", err)
			}
			return nil
		})
	}

	return g.Wait()
}
