package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"cold-outreach-go/internal/drafts"
	"cold-outreach-go/internal/model"
	"cold-outreach-go/internal/repository"
)

// CampaignHandler exposes campaign management and draft generation.
type CampaignHandler struct {
	campaigns *repository.CampaignRepository
	emails    *repository.EmailRepository
	generator *drafts.Generator
}

func NewCampaignHandler(campaigns *repository.CampaignRepository, emails *repository.EmailRepository, generator *drafts.Generator) *CampaignHandler {
	return &CampaignHandler{campaigns: campaigns, emails: emails, generator: generator}
}

type createCampaignRequest struct {
	Name       string   `json:"name" binding:"required"`
	TemplateID string   `json:"template_id"`
	Niche      string   `json:"niche"`
	LeadIDs    []string `json:"lead_ids" binding:"required"`
}

func (h *CampaignHandler) Create(c *gin.Context) {
	var req createCampaignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	campaign := &model.Campaign{
		ID:         uuid.NewString(),
		Name:       req.Name,
		TemplateID: req.TemplateID,
		Niche:      req.Niche,
		Status:     model.CampaignDraft,
	}
	if err := h.campaigns.Create(campaign, req.LeadIDs); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, campaign)
}

func (h *CampaignHandler) List(c *gin.Context) {
	campaigns, err := h.campaigns.List()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, campaigns)
}

func (h *CampaignHandler) Get(c *gin.Context) {
	campaign, err := h.campaigns.ByID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if campaign == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "campaign not found"})
		return
	}
	c.JSON(http.StatusOK, campaign)
}

type generateDraftsRequest struct {
	Workers int `json:"workers"`
}

// GenerateDrafts kicks off draft generation in the background. Progress is
// reported over the campaigns:draft-progress event stream.
func (h *CampaignHandler) GenerateDrafts(c *gin.Context) {
	campaignID := c.Param("id")

	campaign, err := h.campaigns.ByID(campaignID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if campaign == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "campaign not found"})
		return
	}

	var req generateDraftsRequest
	if err := c.ShouldBindJSON(&req); err != nil && err.Error() != "EOF" {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	go func() {
		if _, err := h.generator.Generate(context.Background(), campaignID, req.Workers); err != nil {
			logrus.Errorf("Draft generation for campaign %s failed: %v", campaignID, err)
		}
	}()

	c.JSON(http.StatusAccepted, gin.H{"status": "started"})
}

func (h *CampaignHandler) ListEmails(c *gin.Context) {
	emails, err := h.emails.ListByCampaign(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, emails)
}

// QueueApproved moves the campaign's approved drafts into the send queue.
func (h *CampaignHandler) QueueApproved(c *gin.Context) {
	queued, err := h.emails.QueueApproved(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"queued": queued})
}
