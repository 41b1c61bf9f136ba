package repository

import (
	"errors"
	"fmt"

	"gorm.io/gorm"

	"cold-outreach-go/internal/model"
)

// CampaignRepository persists campaigns and their lead membership.
type CampaignRepository struct {
	db *gorm.DB
}

func NewCampaignRepository(db *gorm.DB) *CampaignRepository {
	return &CampaignRepository{db: db}
}

func (r *CampaignRepository) Create(campaign *model.Campaign, leadIDs []string) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		campaign.TotalLeads = len(leadIDs)
		if err := tx.Create(campaign).Error; err != nil {
			return fmt.Errorf("failed to create campaign: %w", err)
		}
		for _, leadID := range leadIDs {
			link := model.CampaignLead{CampaignID: campaign.ID, LeadID: leadID}
			if err := tx.Create(&link).Error; err != nil {
				return fmt.Errorf("failed to link lead %s: %w", leadID, err)
			}
		}
		return nil
	})
}

func (r *CampaignRepository) ByID(id string) (*model.Campaign, error) {
	var campaign model.Campaign
	if err := r.db.First(&campaign, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to fetch campaign: %w", err)
	}
	return &campaign, nil
}

func (r *CampaignRepository) List() ([]model.Campaign, error) {
	var campaigns []model.Campaign
	if err := r.db.Order("created_at desc").Find(&campaigns).Error; err != nil {
		return nil, fmt.Errorf("failed to list campaigns: %w", err)
	}
	return campaigns, nil
}

func (r *CampaignRepository) UpdateStatus(id, status string) error {
	if err := r.db.Model(&model.Campaign{}).Where("id = ?", id).Update("status", status).Error; err != nil {
		return fmt.Errorf("failed to update campaign status: %w", err)
	}
	return nil
}

// LeadIDs returns the lead ids attached to the campaign.
func (r *CampaignRepository) LeadIDs(campaignID string) ([]string, error) {
	var ids []string
	err := r.db.Model(&model.CampaignLead{}).
		Where("campaign_id = ?", campaignID).
		Pluck("lead_id", &ids).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list campaign lead ids: %w", err)
	}
	return ids, nil
}

func (r *CampaignRepository) IncrementSent(campaignID string) error {
	err := r.db.Model(&model.Campaign{}).Where("id = ?", campaignID).
		Update("total_sent", gorm.Expr("total_sent + 1")).Error
	if err != nil {
		return fmt.Errorf("failed to increment campaign sent counter: %w", err)
	}
	return nil
}

// IncrementReplied bumps the reply counter, and the interested counter when
// the reply classified as interested.
func (r *CampaignRepository) IncrementReplied(campaignID string, interested bool) error {
	updates := map[string]interface{}{
		"total_replied": gorm.Expr("total_replied + 1"),
	}
	if interested {
		updates["total_interested"] = gorm.Expr("total_interested + 1")
	}
	err := r.db.Model(&model.Campaign{}).Where("id = ?", campaignID).Updates(updates).Error
	if err != nil {
		return fmt.Errorf("failed to increment campaign reply counters: %w", err)
	}
	return nil
}
