package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"cold-outreach-go/internal/model"
	"cold-outreach-go/internal/repository"
)

// ReplyHandler exposes the ingested inbox replies.
type ReplyHandler struct {
	replies *repository.ReplyRepository
}

func NewReplyHandler(replies *repository.ReplyRepository) *ReplyHandler {
	return &ReplyHandler{replies: replies}
}

func (h *ReplyHandler) List(c *gin.Context) {
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid limit"})
			return
		}
		limit = n
	}

	replies, err := h.replies.List(limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, replies)
}

func (h *ReplyHandler) MarkRead(c *gin.Context) {
	if err := h.replies.MarkRead(c.Param("id")); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "read"})
}

// Reclassify lets the operator correct the automatic classification.
func (h *ReplyHandler) Reclassify(c *gin.Context) {
	var req struct {
		Classification string  `json:"classification" binding:"required"`
		Confidence     float64 `json:"confidence"`
		Reasoning      string  `json:"reasoning"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	switch req.Classification {
	case model.ClassInterested, model.ClassNotInterested, model.ClassFollowUp,
		model.ClassOutOfOffice, model.ClassBounce, model.ClassUnsubscribe:
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown classification"})
		return
	}

	confidence := req.Confidence
	if confidence <= 0 || confidence > 1 {
		// A manual correction is authoritative.
		confidence = 1.0
	}
	reasoning := req.Reasoning
	if reasoning == "" {
		reasoning = "manually reclassified"
	}

	if err := h.replies.UpdateClassification(c.Param("id"), req.Classification, confidence, reasoning); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"classification": req.Classification})
}

func (h *ReplyHandler) UnreadCount(c *gin.Context) {
	count, err := h.replies.UnreadCount()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"unread": count})
}
