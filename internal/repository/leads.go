package repository

import (
	"errors"
	"fmt"

	"gorm.io/gorm"

	"cold-outreach-go/internal/model"
)

// LeadRepository persists leads.
type LeadRepository struct {
	db *gorm.DB
}

func NewLeadRepository(db *gorm.DB) *LeadRepository {
	return &LeadRepository{db: db}
}

func (r *LeadRepository) Create(lead *model.Lead) error {
	if err := r.db.Create(lead).Error; err != nil {
		return fmt.Errorf("failed to create lead: %w", err)
	}
	return nil
}

func (r *LeadRepository) ByID(id string) (*model.Lead, error) {
	var lead model.Lead
	if err := r.db.First(&lead, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to fetch lead: %w", err)
	}
	return &lead, nil
}

func (r *LeadRepository) List() ([]model.Lead, error) {
	var leads []model.Lead
	if err := r.db.Order("created_at desc").Find(&leads).Error; err != nil {
		return nil, fmt.Errorf("failed to list leads: %w", err)
	}
	return leads, nil
}

// ListByIDs preserves no particular order; callers that care sort themselves.
func (r *LeadRepository) ListByIDs(ids []string) ([]model.Lead, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var leads []model.Lead
	if err := r.db.Where("id IN ?", ids).Find(&leads).Error; err != nil {
		return nil, fmt.Errorf("failed to list leads by ids: %w", err)
	}
	return leads, nil
}

func (r *LeadRepository) UpdateStatus(id, status string) error {
	if err := r.db.Model(&model.Lead{}).Where("id = ?", id).Update("status", status).Error; err != nil {
		return fmt.Errorf("failed to update lead status: %w", err)
	}
	return nil
}
