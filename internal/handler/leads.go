package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"cold-outreach-go/internal/model"
	"cold-outreach-go/internal/repository"
)

// LeadHandler exposes lead management.
type LeadHandler struct {
	leads *repository.LeadRepository
}

func NewLeadHandler(leads *repository.LeadRepository) *LeadHandler {
	return &LeadHandler{leads: leads}
}

type createLeadRequest struct {
	FirstName string `json:"first_name" binding:"required"`
	LastName  string `json:"last_name"`
	Email     string `json:"email" binding:"required,email"`
	Company   string `json:"company"`
	Website   string `json:"website"`
	Niche     string `json:"niche"`
}

func (h *LeadHandler) Create(c *gin.Context) {
	var req createLeadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	lead := &model.Lead{
		ID:        uuid.NewString(),
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Email:     req.Email,
		Company:   req.Company,
		Website:   req.Website,
		Niche:     req.Niche,
		Status:    model.LeadNew,
	}
	if err := h.leads.Create(lead); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, lead)
}

func (h *LeadHandler) List(c *gin.Context) {
	leads, err := h.leads.List()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, leads)
}
