// Package handlers provides the gin handlers of the release-radar HTTP API.
package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/pandeptwidyaop/release-radar/internal/hostapi"
	"github.com/pandeptwidyaop/release-radar/internal/middleware"
	"github.com/pandeptwidyaop/release-radar/internal/models"
	"github.com/pandeptwidyaop/release-radar/internal/services"
	"github.com/pandeptwidyaop/release-radar/internal/validation"
)

// AppHandler serves application state and the refresh, update and config
// operations.
type AppHandler struct {
	session *services.Session
	logger  *slog.Logger
}

// NewAppHandler creates a new AppHandler instance.
func NewAppHandler(session *services.Session, logger *slog.Logger) *AppHandler {
	return &AppHandler{session: session, logger: logger}
}

func appKey(c *gin.Context) (models.AppKey, error) {
	key := models.AppKey{Host: c.Param("host"), Name: c.Param("name")}
	return key, validation.ValidateKey(key)
}

// List returns every application in registry order. ?installed=true|false
// narrows the list.
func (h *AppHandler) List(c *gin.Context) {
	apps := h.session.Registry.List()

	if filter := c.Query("installed"); filter != "" {
		want := filter == "true"
		filtered := make([]*models.App, 0, len(apps))
		for _, app := range apps {
			if app.Installed == want {
				filtered = append(filtered, app)
			}
		}
		apps = filtered
	}

	c.JSON(http.StatusOK, gin.H{
		"apps":     apps,
		"updating": h.session.Orchestrator.Busy(),
	})
}

// Get returns a single application.
func (h *AppHandler) Get(c *gin.Context) {
	key, err := appKey(c)
	if err != nil {
		respondError(c, err)
		return
	}

	app, err := h.session.Registry.Get(key)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, app)
}

// Refresh re-resolves an application synchronously and returns the result.
// Resolution failures are reported on the record, not as an HTTP error.
func (h *AppHandler) Refresh(c *gin.Context) {
	key, err := appKey(c)
	if err != nil {
		respondError(c, err)
		return
	}

	err = h.session.Refresh(c.Request.Context(), key)
	if errors.Is(err, services.ErrAppNotFound) || errors.Is(err, services.ErrUpdateInProgress) ||
		errors.Is(err, services.ErrReconcileInProgress) {
		respondError(c, err)
		return
	}
	if err != nil {
		h.logger.Warn("refresh incomplete", "app", key.String(), "error", err)
	}

	app, err := h.session.Registry.Get(key)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, app)
}

// Update starts an update chain in the background.
func (h *AppHandler) Update(c *gin.Context) {
	key, err := appKey(c)
	if err != nil {
		respondError(c, err)
		return
	}

	if _, err := h.session.Orchestrator.StartUpdate(key, middleware.Requester(c)); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusAccepted, gin.H{
		"message": "update started",
		"app":     key,
	})
}

// Config returns the configuration the host holds for an application.
func (h *AppHandler) Config(c *gin.Context) {
	key, err := appKey(c)
	if err != nil {
		respondError(c, err)
		return
	}

	cfg, err := h.session.AppConfig(c.Request.Context(), key)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"app": key, "config": cfg})
}

func respondError(c *gin.Context, err error) {
	switch {
	case validation.IsInvalid(err):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, services.ErrAppNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "app not found"})
	case hostapi.IsNotFound(err):
		c.JSON(http.StatusNotFound, gin.H{"error": "not found on host"})
	case errors.Is(err, services.ErrUpdateInProgress), errors.Is(err, services.ErrReconcileInProgress):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, services.ErrNotInstalled):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
	}
}
