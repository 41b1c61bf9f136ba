package model

import (
	"time"
)

// Lead statuses mutated by the poller on classified replies.
const (
	LeadNew           = "new"
	LeadContacted     = "contacted"
	LeadInterested    = "interested"
	LeadNotInterested = "not_interested"
	LeadUnsubscribed  = "unsubscribed"
)

// Lead represents one outreach prospect.
type Lead struct {
	ID        string    `json:"id" gorm:"type:varchar(36);primaryKey"`
	FirstName string    `json:"first_name" gorm:"type:varchar(255);not null"`
	LastName  string    `json:"last_name" gorm:"type:varchar(255)"`
	Email     string    `json:"email" gorm:"type:varchar(255);not null;index"`
	Company   string    `json:"company" gorm:"type:varchar(255)"`
	Website   string    `json:"website" gorm:"type:varchar(255)"`
	Niche     string    `json:"niche" gorm:"type:varchar(255)"`
	Status    string    `json:"status" gorm:"type:varchar(20);default:new;index"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName specifies the table name for Lead
func (Lead) TableName() string {
	return "leads"
}
