package repository

import (
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"cold-outreach-go/internal/model"
)

// UsageRepository appends to the AI usage ledger.
type UsageRepository struct {
	db *gorm.DB
}

func NewUsageRepository(db *gorm.DB) *UsageRepository {
	return &UsageRepository{db: db}
}

func (r *UsageRepository) Record(callType, modelName string, inputTokens, outputTokens int) error {
	entry := model.AIUsageLog{
		ID:           uuid.NewString(),
		CallType:     callType,
		Model:        modelName,
		InputTokens:  inputTokens,
		OutputTokens: outputTokens,
	}
	if err := r.db.Create(&entry).Error; err != nil {
		return fmt.Errorf("failed to record AI usage: %w", err)
	}
	return nil
}
