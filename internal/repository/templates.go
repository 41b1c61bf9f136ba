package repository

import (
	"errors"
	"fmt"

	"gorm.io/gorm"

	"cold-outreach-go/internal/model"
)

// TemplateRepository persists email templates.
type TemplateRepository struct {
	db *gorm.DB
}

func NewTemplateRepository(db *gorm.DB) *TemplateRepository {
	return &TemplateRepository{db: db}
}

func (r *TemplateRepository) Create(template *model.Template) error {
	if err := r.db.Create(template).Error; err != nil {
		return fmt.Errorf("failed to create template: %w", err)
	}
	return nil
}

func (r *TemplateRepository) ByID(id string) (*model.Template, error) {
	var template model.Template
	if err := r.db.First(&template, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to fetch template: %w", err)
	}
	return &template, nil
}

func (r *TemplateRepository) List() ([]model.Template, error) {
	var templates []model.Template
	if err := r.db.Order("created_at desc").Find(&templates).Error; err != nil {
		return nil, fmt.Errorf("failed to list templates: %w", err)
	}
	return templates, nil
}
