package model

import (
	"time"
)

// Template is an outreach email template with {{variable}} placeholders.
type Template struct {
	ID        string    `json:"id" gorm:"type:varchar(36);primaryKey"`
	Name      string    `json:"name" gorm:"type:varchar(255);not null"`
	Subject   string    `json:"subject" gorm:"type:text;not null"`
	Body      string    `json:"body" gorm:"type:text;not null"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName specifies the table name for Template
func (Template) TableName() string {
	return "templates"
}
