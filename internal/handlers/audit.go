package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/pandeptwidyaop/release-radar/internal/models"
	"github.com/pandeptwidyaop/release-radar/internal/services"
)

type AuditHandler struct {
	auditService *services.AuditService
}

func NewAuditHandler(auditService *services.AuditService) *AuditHandler {
	return &AuditHandler{auditService: auditService}
}

// List returns this session's update runs, newest first
func (h *AuditHandler) List(c *gin.Context) {
	if h.auditService == nil {
		c.JSON(http.StatusOK, []models.UpdateRun{})
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
	if offset < 0 {
		offset = 0
	}

	runs, err := h.auditService.GetRuns(limit, offset)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, runs)
}

// Get returns a single update run
func (h *AuditHandler) Get(c *gin.Context) {
	if h.auditService == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "update run not found"})
		return
	}

	run, err := h.auditService.GetRun(c.Param("id"))
	if err != nil {
		if err == services.ErrRunNotFound {
			c.JSON(http.StatusNotFound, gin.H{"error": "update run not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, run)
}
