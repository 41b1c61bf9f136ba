package model

import (
	"time"
)

// Email status lifecycle. Forward-only except StatusQueued, which a
// throttled send may revert to once.
const (
	StatusDraft    = "draft"
	StatusApproved = "approved"
	StatusQueued   = "queued"
	StatusSending  = "sending"
	StatusSent     = "sent"
	StatusFailed   = "failed"
)

// Email represents one outbound message tied to a campaign and a lead.
type Email struct {
	ID                   string     `json:"id" gorm:"type:varchar(36);primaryKey"`
	CampaignID           string     `json:"campaign_id" gorm:"type:varchar(36);not null;index"`
	LeadID               string     `json:"lead_id" gorm:"type:varchar(36);not null"`
	TemplateID           string     `json:"template_id" gorm:"type:varchar(36)"`
	Subject              string     `json:"subject" gorm:"type:text;not null"`
	Body                 string     `json:"body" gorm:"type:text;not null"`
	PersonalizationNotes string     `json:"personalization_notes" gorm:"type:text"`
	Status               string     `json:"status" gorm:"type:varchar(20);default:draft;index"`
	ProviderMessageID    string     `json:"provider_message_id" gorm:"type:varchar(255)"`
	ProviderThreadID     string     `json:"provider_thread_id" gorm:"type:varchar(255);index"`
	SentAt               *time.Time `json:"sent_at"`
	Error                string     `json:"error" gorm:"type:text"`
	CreatedAt            time.Time  `json:"created_at"`
	UpdatedAt            time.Time  `json:"updated_at"`
}

// TableName specifies the table name for Email
func (Email) TableName() string {
	return "emails"
}
