package model

import (
	"time"
)

// AIUsageLog is an append-only ledger of generative-AI calls. Writes are
// best-effort; a failed insert never fails the caller's primary operation.
type AIUsageLog struct {
	ID           string    `json:"id" gorm:"type:varchar(36);primaryKey"`
	CallType     string    `json:"call_type" gorm:"type:varchar(50);not null"`
	Model        string    `json:"model" gorm:"type:varchar(100)"`
	InputTokens  int       `json:"input_tokens" gorm:"default:0"`
	OutputTokens int       `json:"output_tokens" gorm:"default:0"`
	CreatedAt    time.Time `json:"created_at"`
}

// TableName specifies the table name for AIUsageLog
func (AIUsageLog) TableName() string {
	return "ai_usage_log"
}
