package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/pandeptwidyaop/release-radar/internal/models"
)

var (
	// ErrUpdateInProgress indicates another update chain is running.
	ErrUpdateInProgress = errors.New("an update is already in progress")
	// ErrReconcileInProgress indicates a refresh or reconcile is writing to
	// the registry.
	ErrReconcileInProgress = errors.New("a refresh is already in progress")
	// ErrNotInstalled indicates the application is not installed on its host.
	ErrNotInstalled = errors.New("app is not installed")
	// ErrDependencyFailed indicates a dependency could not be updated.
	ErrDependencyFailed = errors.New("dependency update failed")
	// ErrDependencyCycle indicates the dependency graph loops back on itself.
	ErrDependencyCycle = errors.New("dependency cycle")
)

// CycleError describes a dependency loop. Path starts at the application the
// chain was visiting first and ends at the one revisited.
type CycleError struct {
	Path []models.AppKey
}

func (e *CycleError) Error() string {
	parts := make([]string, len(e.Path))
	for i, key := range e.Path {
		parts[i] = key.String()
	}
	return "dependency cycle: " + strings.Join(parts, " -> ")
}

// Is makes errors.Is(err, ErrDependencyCycle) match.
func (e *CycleError) Is(target error) bool {
	return target == ErrDependencyCycle
}

// Orchestrator drives dependency-ordered updates. Only one chain runs at a
// time per process.
type Orchestrator struct {
	registry *Registry
	resolver *VersionResolver
	host     HostClient
	audit    *AuditService
	events   *EventBus
	logger   *slog.Logger
	mu       sync.Mutex
	busy     bool
	busyMu   sync.RWMutex
}

// NewOrchestrator creates an Orchestrator. audit and events may be nil.
func NewOrchestrator(registry *Registry, resolver *VersionResolver, host HostClient, audit *AuditService, events *EventBus, logger *slog.Logger) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{
		registry: registry,
		resolver: resolver,
		host:     host,
		audit:    audit,
		events:   events,
		logger:   logger.With("component", "orchestrator"),
	}
}

// Busy reports whether an update chain is running.
func (o *Orchestrator) Busy() bool {
	o.busyMu.RLock()
	defer o.busyMu.RUnlock()
	return o.busy
}

// UpdateApplication updates key after first updating every dependency that
// is behind. It blocks until the chain finishes.
func (o *Orchestrator) UpdateApplication(ctx context.Context, key models.AppKey, requestedBy string) error {
	if err := o.acquire(key); err != nil {
		return err
	}
	defer o.release()

	return o.update(ctx, newUpdateChain(), key, requestedBy)
}

// StartUpdate validates and claims the orchestrator synchronously, then runs
// the chain in the background. The returned channel receives the chain's
// result and is closed afterwards.
func (o *Orchestrator) StartUpdate(key models.AppKey, requestedBy string) (<-chan error, error) {
	if err := o.acquire(key); err != nil {
		return nil, err
	}

	done := make(chan error, 1)
	go func() {
		defer close(done)
		defer o.release()

		err := o.update(context.Background(), newUpdateChain(), key, requestedBy)
		if err != nil {
			o.logger.Error("update failed", "app", key.String(), "error", err)
		}
		done <- err
	}()
	return done, nil
}

func (o *Orchestrator) acquire(key models.AppKey) error {
	app, err := o.registry.Get(key)
	if err != nil {
		return err
	}
	if !app.Installed {
		return ErrNotInstalled
	}
	if !o.mu.TryLock() {
		return o.heldError()
	}

	o.busyMu.Lock()
	o.busy = true
	o.busyMu.Unlock()
	return nil
}

// Exclusive runs fn while no update chain can start, so reconciliation and
// updates never write the same record concurrently.
func (o *Orchestrator) Exclusive(fn func() error) error {
	if !o.mu.TryLock() {
		return o.heldError()
	}
	defer o.mu.Unlock()
	return fn()
}

func (o *Orchestrator) heldError() error {
	if o.Busy() {
		return ErrUpdateInProgress
	}
	return ErrReconcileInProgress
}

func (o *Orchestrator) release() {
	o.busyMu.Lock()
	o.busy = false
	o.busyMu.Unlock()
	o.mu.Unlock()
}

// updateChain tracks one depth-first walk of the dependency graph.
type updateChain struct {
	visiting map[models.AppKey]bool
	done     map[models.AppKey]bool
	path     []models.AppKey
}

func newUpdateChain() *updateChain {
	return &updateChain{
		visiting: make(map[models.AppKey]bool),
		done:     make(map[models.AppKey]bool),
	}
}

func (o *Orchestrator) update(ctx context.Context, chain *updateChain, key models.AppKey, requestedBy string) (err error) {
	app, err := o.registry.Get(key)
	if err != nil {
		return err
	}

	chain.visiting[key] = true
	chain.path = append(chain.path, key)
	defer func() {
		delete(chain.visiting, key)
		chain.path = chain.path[:len(chain.path)-1]
	}()

	started, _ := o.registry.Update(key, func(a *models.App) {
		a.Updating = true
		a.UpdateError = ""
	})
	o.events.Publish(models.EventUpdateStarted, started)

	var runID string
	if o.audit != nil {
		run, auditErr := o.audit.Start(app, requestedBy)
		if auditErr != nil {
			o.logger.Warn("failed to record update run", "app", key.String(), "error", auditErr)
		} else {
			runID = run.ID
		}
	}

	defer func() {
		finished, _ := o.registry.Update(key, func(a *models.App) {
			a.Updating = false
			if err != nil {
				a.UpdateError = err.Error()
			}
		})
		o.events.Publish(models.EventUpdateFinished, finished)

		if runID != "" {
			if auditErr := o.audit.Finish(runID, err); auditErr != nil {
				o.logger.Warn("failed to close update run", "app", key.String(), "error", auditErr)
			}
		}

		if err != nil {
			updateTotal.WithLabelValues("failed").Inc()
			return
		}
		chain.done[key] = true
		updateTotal.WithLabelValues("success").Inc()
	}()

	if err := o.updateDependencies(ctx, chain, app, requestedBy); err != nil {
		return err
	}

	o.logger.Info("triggering update", "app", key.String(), "project", app.ProjectID)
	start := time.Now()
	err = o.host.TriggerUpdate(ctx, app.HostURL, app.ProjectID)
	updateDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		accessorErrors.WithLabelValues(accessorHost).Inc()
		return fmt.Errorf("trigger update of %s: %w", key, err)
	}

	resolution, resolveErr := o.resolver.Resolve(ctx, app, "")
	_, err = o.registry.Update(key, func(a *models.App) {
		if resolveErr != nil {
			a.CurrentBuild = nil
			a.CurrentBuildAt = nil
			a.CurrentBuildError = true
		} else {
			a.CurrentBuild = resolution.Build
			a.CurrentBuildAt = resolution.FinishedAt
			a.CurrentBuildError = false
		}
		a.UpToDate = IsUpToDate(a.CurrentBuild, a.LatestBuild)
	})
	if err != nil {
		return err
	}
	if resolveErr != nil {
		return fmt.Errorf("re-resolve %s after update: %w", key, resolveErr)
	}

	o.logger.Info("update finished", "app", key.String(), "build", derefBuild(resolution.Build))
	return nil
}

func (o *Orchestrator) updateDependencies(ctx context.Context, chain *updateChain, app *models.App, requestedBy string) error {
	for _, projectID := range app.DependencyProjectIDs {
		dep, ok := o.registry.FindByProjectID(projectID, app.HostName)
		if !ok {
			o.logger.Debug("dependency not deployed, skipping", "app", app.Key().String(), "dependency", projectID)
			continue
		}

		depKey := dep.Key()
		switch {
		case depKey == app.Key():
			continue
		case !dep.Installed:
			o.logger.Debug("dependency not installed, skipping", "app", app.Key().String(), "dependency", depKey.String())
			continue
		case dep.UpToDate, chain.done[depKey]:
			continue
		case chain.visiting[depKey]:
			path := make([]models.AppKey, 0, len(chain.path)+1)
			path = append(path, chain.path...)
			path = append(path, depKey)
			return &CycleError{Path: path}
		}

		if err := o.update(ctx, chain, depKey, requestedBy); err != nil {
			return fmt.Errorf("%w: %s: %w", ErrDependencyFailed, depKey, err)
		}
	}
	return nil
}

func derefBuild(build *int) any {
	if build == nil {
		return nil
	}
	return *build
}
