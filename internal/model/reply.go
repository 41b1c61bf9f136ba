package model

import (
	"time"
)

// Reply classification labels.
const (
	ClassInterested    = "interested"
	ClassNotInterested = "not_interested"
	ClassFollowUp      = "follow_up"
	ClassOutOfOffice   = "out_of_office"
	ClassBounce        = "bounce"
	ClassUnsubscribe   = "unsubscribe"
)

// Reply represents one inbound message matched to a previously sent Email.
// ProviderMessageID is the dedup key: at most one Reply per provider message.
type Reply struct {
	ID                       string    `json:"id" gorm:"type:varchar(36);primaryKey"`
	EmailID                  string    `json:"email_id" gorm:"type:varchar(36);not null;index"`
	LeadID                   string    `json:"lead_id" gorm:"type:varchar(36);not null"`
	ProviderMessageID        string    `json:"provider_message_id" gorm:"type:varchar(255);not null;uniqueIndex"`
	ProviderThreadID         string    `json:"provider_thread_id" gorm:"type:varchar(255);index"`
	FromEmail                string    `json:"from_email" gorm:"type:varchar(255)"`
	Subject                  string    `json:"subject" gorm:"type:text"`
	Body                     string    `json:"body" gorm:"type:text"`
	Snippet                  string    `json:"snippet" gorm:"type:text"`
	Classification           string    `json:"classification" gorm:"type:varchar(30);index"`
	ClassificationConfidence float64   `json:"classification_confidence"`
	ClassificationReasoning  string    `json:"classification_reasoning" gorm:"type:text"`
	IsRead                   bool      `json:"is_read" gorm:"default:false"`
	ReceivedAt               time.Time `json:"received_at"`
	CreatedAt                time.Time `json:"created_at"`
}

// TableName specifies the table name for Reply
func (Reply) TableName() string {
	return "replies"
}
