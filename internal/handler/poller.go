package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"cold-outreach-go/internal/poller"
)

// PollerHandler exposes inbox poller status and a manual trigger.
type PollerHandler struct {
	poller *poller.Poller
}

func NewPollerHandler(p *poller.Poller) *PollerHandler {
	return &PollerHandler{poller: p}
}

// Trigger runs a poll cycle outside the schedule. If a cycle is already
// running the trigger is a no-op.
func (h *PollerHandler) Trigger(c *gin.Context) {
	go h.poller.Poll(context.Background())
	c.JSON(http.StatusAccepted, gin.H{"status": "polling"})
}

func (h *PollerHandler) Status(c *gin.Context) {
	c.JSON(http.StatusOK, h.poller.Status())
}
