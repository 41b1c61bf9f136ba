package repository

import (
	"fmt"

	"gorm.io/gorm"

	"cold-outreach-go/internal/model"
)

// PortfolioRepository persists portfolio examples used in draft prompts.
type PortfolioRepository struct {
	db *gorm.DB
}

func NewPortfolioRepository(db *gorm.DB) *PortfolioRepository {
	return &PortfolioRepository{db: db}
}

func (r *PortfolioRepository) Create(example *model.PortfolioExample) error {
	if err := r.db.Create(example).Error; err != nil {
		return fmt.Errorf("failed to create portfolio example: %w", err)
	}
	return nil
}

func (r *PortfolioRepository) List() ([]model.PortfolioExample, error) {
	var examples []model.PortfolioExample
	if err := r.db.Order("sort_order asc").Find(&examples).Error; err != nil {
		return nil, fmt.Errorf("failed to list portfolio examples: %w", err)
	}
	return examples, nil
}
