package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/forgeci/runner-autoscaler/internal/scheduler"
)

// StatusProvider exposes the outcome of the most recent control cycle.
type StatusProvider interface {
	LastStatus() (scheduler.Status, bool)
}

type StatusHandler struct {
	provider StatusProvider
}

func NewStatusHandler(provider StatusProvider) *StatusHandler {
	return &StatusHandler{provider: provider}
}

func (h *StatusHandler) Status(c *gin.Context) {
	status, ok := h.provider.LastStatus()
	if !ok {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "no cycle completed yet"})
		return
	}

	c.JSON(http.StatusOK, status)
}
