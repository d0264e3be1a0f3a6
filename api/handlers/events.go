package handlers

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/forgeci/runner-autoscaler/pkg/database/queries"
	"github.com/forgeci/runner-autoscaler/pkg/models"
)

type EventsHandler struct {
	repo *queries.ScalingEventRepository
}

// NewEventsHandler accepts a nil repo when history persistence is disabled.
func NewEventsHandler(repo *queries.ScalingEventRepository) *EventsHandler {
	return &EventsHandler{repo: repo}
}

func (h *EventsHandler) Recent(c *gin.Context) {
	if h.repo == nil {
		c.JSON(http.StatusNotImplemented, gin.H{"error": "event history persistence is disabled"})
		return
	}

	limit := 20
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 || parsed > 500 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be between 1 and 500"})
			return
		}
		limit = parsed
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	events, err := h.repo.GetRecent(ctx, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to query scaling events"})
		return
	}

	if events == nil {
		events = []models.ScalingEvent{}
	}

	c.JSON(http.StatusOK, gin.H{
		"events": events,
		"count":  len(events),
	})
}
