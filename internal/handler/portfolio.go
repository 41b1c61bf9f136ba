package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"cold-outreach-go/internal/model"
	"cold-outreach-go/internal/repository"
)

// PortfolioHandler exposes portfolio example management.
type PortfolioHandler struct {
	portfolio *repository.PortfolioRepository
}

func NewPortfolioHandler(portfolio *repository.PortfolioRepository) *PortfolioHandler {
	return &PortfolioHandler{portfolio: portfolio}
}

type createPortfolioRequest struct {
	Title       string `json:"title" binding:"required"`
	URL         string `json:"url" binding:"required,url"`
	Description string `json:"description"`
	SortOrder   int    `json:"sort_order"`
}

func (h *PortfolioHandler) Create(c *gin.Context) {
	var req createPortfolioRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	example := &model.PortfolioExample{
		ID:          uuid.NewString(),
		Title:       req.Title,
		URL:         req.URL,
		Description: req.Description,
		SortOrder:   req.SortOrder,
	}
	if err := h.portfolio.Create(example); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, example)
}

func (h *PortfolioHandler) List(c *gin.Context) {
	examples, err := h.portfolio.List()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, examples)
}
