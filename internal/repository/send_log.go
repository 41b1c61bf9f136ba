package repository

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"cold-outreach-go/internal/model"
)

const dateLayout = "2006-01-02"

// SendLogRepository tracks the per-day send counter that enforces the daily
// limit. Dates are local calendar days.
type SendLogRepository struct {
	db *gorm.DB
}

func NewSendLogRepository(db *gorm.DB) *SendLogRepository {
	return &SendLogRepository{db: db}
}

func (r *SendLogRepository) TodayCount() (int, error) {
	var entry model.DailySendLog
	err := r.db.First(&entry, "date = ?", time.Now().Format(dateLayout)).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to read daily send log: %w", err)
	}
	return entry.Count, nil
}

// IncrementToday upserts today's row and bumps its counter by one.
func (r *SendLogRepository) IncrementToday() error {
	entry := model.DailySendLog{
		Date:  time.Now().Format(dateLayout),
		Count: 1,
	}
	err := r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "date"}},
		DoUpdates: clause.Assignments(map[string]interface{}{"count": gorm.Expr("count + 1")}),
	}).Create(&entry).Error
	if err != nil {
		return fmt.Errorf("failed to increment daily send log: %w", err)
	}
	return nil
}
