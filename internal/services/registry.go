// Package services holds release-radar's reconciliation and update logic.
package services

import (
	"errors"
	"sync"

	"github.com/pandeptwidyaop/release-radar/internal/models"
)

var (
	// ErrAppNotFound indicates the requested application is not in the registry.
	ErrAppNotFound = errors.New("app not found")
	// ErrAppExists indicates an application with the same key was already registered.
	ErrAppExists = errors.New("app already exists")
)

// Registry is the session's set of application records. Records are kept in
// insertion order and handed out as deep copies; all mutation goes through
// Update.
type Registry struct {
	apps   map[models.AppKey]*models.App
	order  []models.AppKey
	events *EventBus
	mu     sync.RWMutex
}

// NewRegistry creates an empty registry publishing changes to events, which
// may be nil.
func NewRegistry(events *EventBus) *Registry {
	return &Registry{
		apps:   make(map[models.AppKey]*models.App),
		events: events,
	}
}

// Add registers a new application record.
func (r *Registry) Add(app *models.App) error {
	key := app.Key()

	r.mu.Lock()
	if _, ok := r.apps[key]; ok {
		r.mu.Unlock()
		return ErrAppExists
	}
	stored := app.Clone()
	r.apps[key] = stored
	r.order = append(r.order, key)
	snapshot := stored.Clone()
	r.mu.Unlock()

	r.events.Publish(models.EventAppChanged, snapshot)
	return nil
}

// Get returns a snapshot of the application with the given key.
func (r *Registry) Get(key models.AppKey) (*models.App, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	app, ok := r.apps[key]
	if !ok {
		return nil, ErrAppNotFound
	}
	return app.Clone(), nil
}

// List returns snapshots of every application in insertion order.
func (r *Registry) List() []*models.App {
	r.mu.RLock()
	defer r.mu.RUnlock()

	apps := make([]*models.App, 0, len(r.order))
	for _, key := range r.order {
		apps = append(apps, r.apps[key].Clone())
	}
	return apps
}

// Keys returns every application key in insertion order.
func (r *Registry) Keys() []models.AppKey {
	r.mu.RLock()
	defer r.mu.RUnlock()

	keys := make([]models.AppKey, len(r.order))
	copy(keys, r.order)
	return keys
}

// Len returns the number of registered applications.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.order)
}

// Update applies fn to the stored record under the write lock and returns a
// snapshot of the result. fn must not call back into the registry.
func (r *Registry) Update(key models.AppKey, fn func(app *models.App)) (*models.App, error) {
	r.mu.Lock()
	app, ok := r.apps[key]
	if !ok {
		r.mu.Unlock()
		return nil, ErrAppNotFound
	}
	fn(app)
	snapshot := app.Clone()
	r.mu.Unlock()

	r.events.Publish(models.EventAppChanged, snapshot)
	return snapshot, nil
}

// FindByProjectID locates the application built from projectID. An
// application on preferHost wins; otherwise the first match in registry order
// is returned.
func (r *Registry) FindByProjectID(projectID, preferHost string) (*models.App, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var first *models.App
	for _, key := range r.order {
		app := r.apps[key]
		if app.ProjectID != projectID {
			continue
		}
		if app.HostName == preferHost {
			return app.Clone(), true
		}
		if first == nil {
			first = app
		}
	}
	if first == nil {
		return nil, false
	}
	return first.Clone(), true
}
