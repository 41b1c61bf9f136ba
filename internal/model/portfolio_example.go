package model

import (
	"time"
)

// PortfolioExample is a piece of past work offered to the draft prompts so
// the model can pick examples relevant to a lead's niche.
type PortfolioExample struct {
	ID          string    `json:"id" gorm:"type:varchar(36);primaryKey"`
	Title       string    `json:"title" gorm:"type:varchar(255);not null"`
	URL         string    `json:"url" gorm:"type:varchar(512);not null"`
	Description string    `json:"description" gorm:"type:text"`
	SortOrder   int       `json:"sort_order" gorm:"default:0"`
	CreatedAt   time.Time `json:"created_at"`
}

// TableName specifies the table name for PortfolioExample
func (PortfolioExample) TableName() string {
	return "portfolio_examples"
}
