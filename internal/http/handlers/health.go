package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

type HealthHandler struct {
	started time.Time
	now     func() time.Time
}

func NewHealthHandler() *HealthHandler {
	return &HealthHandler{started: time.Now(), now: time.Now}
}

// HealthCheck also reports process uptime in seconds.
func (h *HealthHandler) HealthCheck(c *gin.Context) {
	now := h.now()
	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"timestamp": now.UTC().Format(time.RFC3339Nano),
		"uptime":    now.Sub(h.started).Seconds(),
	})
}

func (h *HealthHandler) APIHealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"timestamp": h.now().UTC().Format(time.RFC3339Nano),
	})
}
