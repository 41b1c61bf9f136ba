package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"cold-outreach-go/internal/model"
	"cold-outreach-go/internal/repository"
)

// EmailHandler exposes individual draft review operations.
type EmailHandler struct {
	emails *repository.EmailRepository
}

func NewEmailHandler(emails *repository.EmailRepository) *EmailHandler {
	return &EmailHandler{emails: emails}
}

func (h *EmailHandler) Get(c *gin.Context) {
	email, err := h.emails.ByID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if email == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "email not found"})
		return
	}
	c.JSON(http.StatusOK, email)
}

// Approve marks a reviewed draft ready for queueing.
func (h *EmailHandler) Approve(c *gin.Context) {
	email, err := h.emails.ByID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if email == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "email not found"})
		return
	}
	if email.Status != model.StatusDraft {
		c.JSON(http.StatusConflict, gin.H{"error": "only drafts can be approved"})
		return
	}

	if err := h.emails.UpdateStatus(email.ID, model.StatusApproved); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": model.StatusApproved})
}
