package model

import (
	"time"
)

// Campaign statuses.
const (
	CampaignDraft       = "draft"
	CampaignDraftsReady = "drafts_ready"
	CampaignActive      = "active"
	CampaignCompleted   = "completed"
)

// Campaign groups a template and a set of leads with aggregate counters.
// Counters are eventually consistent with the email/reply rows and can be
// recomputed by re-aggregation.
type Campaign struct {
	ID              string    `json:"id" gorm:"type:varchar(36);primaryKey"`
	Name            string    `json:"name" gorm:"type:varchar(255);not null"`
	TemplateID      string    `json:"template_id" gorm:"type:varchar(36)"`
	Niche           string    `json:"niche" gorm:"type:varchar(255)"`
	Status          string    `json:"status" gorm:"type:varchar(20);default:draft"`
	TotalLeads      int       `json:"total_leads" gorm:"default:0"`
	TotalSent       int       `json:"total_sent" gorm:"default:0"`
	TotalReplied    int       `json:"total_replied" gorm:"default:0"`
	TotalInterested int       `json:"total_interested" gorm:"default:0"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// TableName specifies the table name for Campaign
func (Campaign) TableName() string {
	return "campaigns"
}

// CampaignLead links a lead into a campaign.
type CampaignLead struct {
	CampaignID string `json:"campaign_id" gorm:"type:varchar(36);primaryKey"`
	LeadID     string `json:"lead_id" gorm:"type:varchar(36);primaryKey"`
}

// TableName specifies the table name for CampaignLead
func (CampaignLead) TableName() string {
	return "campaign_leads"
}
