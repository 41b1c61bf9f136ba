package repository

import (
	"fmt"

	"gorm.io/gorm"

	"cold-outreach-go/internal/model"
)

// ReplyRepository persists inbound replies.
type ReplyRepository struct {
	db *gorm.DB
}

func NewReplyRepository(db *gorm.DB) *ReplyRepository {
	return &ReplyRepository{db: db}
}

func (r *ReplyRepository) Create(reply *model.Reply) error {
	if err := r.db.Create(reply).Error; err != nil {
		return fmt.Errorf("failed to create reply: %w", err)
	}
	return nil
}

// ExistsByProviderMessageID reports whether the provider message was already
// ingested. This is the poller's idempotency check.
func (r *ReplyRepository) ExistsByProviderMessageID(providerMessageID string) (bool, error) {
	var count int64
	err := r.db.Model(&model.Reply{}).
		Where("provider_message_id = ?", providerMessageID).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("failed to check reply existence: %w", err)
	}
	return count > 0, nil
}

func (r *ReplyRepository) UpdateClassification(id, classification string, confidence float64, reasoning string) error {
	err := r.db.Model(&model.Reply{}).Where("id = ?", id).Updates(map[string]interface{}{
		"classification":            classification,
		"classification_confidence": confidence,
		"classification_reasoning":  reasoning,
	}).Error
	if err != nil {
		return fmt.Errorf("failed to update reply classification: %w", err)
	}
	return nil
}

func (r *ReplyRepository) List(limit int) ([]model.Reply, error) {
	var replies []model.Reply
	q := r.db.Order("received_at desc")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&replies).Error; err != nil {
		return nil, fmt.Errorf("failed to list replies: %w", err)
	}
	return replies, nil
}

func (r *ReplyRepository) MarkRead(id string) error {
	if err := r.db.Model(&model.Reply{}).Where("id = ?", id).Update("is_read", true).Error; err != nil {
		return fmt.Errorf("failed to mark reply read: %w", err)
	}
	return nil
}

func (r *ReplyRepository) UnreadCount() (int64, error) {
	var count int64
	if err := r.db.Model(&model.Reply{}).Where("is_read = ?", false).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("failed to count unread replies: %w", err)
	}
	return count, nil
}
