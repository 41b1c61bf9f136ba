package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"cold-outreach-go/internal/repository"
	"cold-outreach-go/internal/scheduler"
)

// QueueHandler exposes send scheduler control.
type QueueHandler struct {
	scheduler *scheduler.Scheduler
	emails    *repository.EmailRepository
}

func NewQueueHandler(s *scheduler.Scheduler, emails *repository.EmailRepository) *QueueHandler {
	return &QueueHandler{scheduler: s, emails: emails}
}

type startQueueRequest struct {
	// CampaignID, when set, queues the campaign's approved emails before
	// starting.
	CampaignID string `json:"campaign_id"`
}

func (h *QueueHandler) Start(c *gin.Context) {
	var req startQueueRequest
	if err := c.ShouldBindJSON(&req); err != nil && err.Error() != "EOF" {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var queued int64
	if req.CampaignID != "" {
		n, err := h.emails.QueueApproved(req.CampaignID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		queued = n
	}

	if err := h.scheduler.Start(); err != nil {
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": h.scheduler.Status(), "queued": queued})
}

func (h *QueueHandler) Pause(c *gin.Context) {
	h.scheduler.Pause()
	c.JSON(http.StatusOK, gin.H{"status": h.scheduler.Status()})
}

func (h *QueueHandler) Resume(c *gin.Context) {
	h.scheduler.Resume()
	c.JSON(http.StatusOK, gin.H{"status": h.scheduler.Status()})
}

func (h *QueueHandler) Stop(c *gin.Context) {
	h.scheduler.Stop()
	c.JSON(http.StatusOK, gin.H{"status": h.scheduler.Status()})
}

func (h *QueueHandler) Status(c *gin.Context) {
	c.JSON(http.StatusOK, h.scheduler.Status())
}
