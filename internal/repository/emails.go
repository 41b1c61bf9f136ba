package repository

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"cold-outreach-go/internal/model"
	"cold-outreach-go/internal/scheduler"
)

// EmailRepository persists outbound emails.
type EmailRepository struct {
	db *gorm.DB
}

func NewEmailRepository(db *gorm.DB) *EmailRepository {
	return &EmailRepository{db: db}
}

func (r *EmailRepository) Create(email *model.Email) error {
	if err := r.db.Create(email).Error; err != nil {
		return fmt.Errorf("failed to create email: %w", err)
	}
	return nil
}

func (r *EmailRepository) ByID(id string) (*model.Email, error) {
	var email model.Email
	if err := r.db.First(&email, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to fetch email: %w", err)
	}
	return &email, nil
}

func (r *EmailRepository) ListByCampaign(campaignID string) ([]model.Email, error) {
	var emails []model.Email
	if err := r.db.Where("campaign_id = ?", campaignID).Order("created_at asc").Find(&emails).Error; err != nil {
		return nil, fmt.Errorf("failed to list campaign emails: %w", err)
	}
	return emails, nil
}

// LeadIDsWithEmail returns the lead ids that already have an email row in the
// campaign, in any status. Draft generation skips these.
func (r *EmailRepository) LeadIDsWithEmail(campaignID string) ([]string, error) {
	var ids []string
	err := r.db.Model(&model.Email{}).
		Where("campaign_id = ?", campaignID).
		Pluck("lead_id", &ids).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list drafted lead ids: %w", err)
	}
	return ids, nil
}

// QueueApproved moves every approved email in the campaign to queued and
// returns how many rows moved.
func (r *EmailRepository) QueueApproved(campaignID string) (int64, error) {
	res := r.db.Model(&model.Email{}).
		Where("campaign_id = ? AND status = ?", campaignID, model.StatusApproved).
		Update("status", model.StatusQueued)
	if res.Error != nil {
		return 0, fmt.Errorf("failed to queue approved emails: %w", res.Error)
	}
	return res.RowsAffected, nil
}

func (r *EmailRepository) UpdateStatus(id, status string) error {
	if err := r.db.Model(&model.Email{}).Where("id = ?", id).Update("status", status).Error; err != nil {
		return fmt.Errorf("failed to update email status: %w", err)
	}
	return nil
}

// NextQueued returns the oldest queued email with its recipient address, or
// nil when the queue is empty.
func (r *EmailRepository) NextQueued() (*scheduler.QueuedEmail, error) {
	var email model.Email
	err := r.db.Where("status = ?", model.StatusQueued).
		Order("created_at asc").
		First(&email).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to fetch next queued email: %w", err)
	}

	var lead model.Lead
	if err := r.db.First(&lead, "id = ?", email.LeadID).Error; err != nil {
		return nil, fmt.Errorf("failed to fetch lead for email %s: %w", email.ID, err)
	}

	return &scheduler.QueuedEmail{Email: email, LeadEmail: lead.Email}, nil
}

func (r *EmailRepository) QueuedCount() (int64, error) {
	var count int64
	if err := r.db.Model(&model.Email{}).Where("status = ?", model.StatusQueued).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("failed to count queued emails: %w", err)
	}
	return count, nil
}

func (r *EmailRepository) MarkSending(id string) error {
	return r.UpdateStatus(id, model.StatusSending)
}

func (r *EmailRepository) MarkSent(id, messageID, threadID string, at time.Time) error {
	err := r.db.Model(&model.Email{}).Where("id = ?", id).Updates(map[string]interface{}{
		"status":              model.StatusSent,
		"provider_message_id": messageID,
		"provider_thread_id":  threadID,
		"sent_at":             at,
		"error":               "",
	}).Error
	if err != nil {
		return fmt.Errorf("failed to mark email sent: %w", err)
	}
	return nil
}

func (r *EmailRepository) MarkFailed(id, errMsg string) error {
	err := r.db.Model(&model.Email{}).Where("id = ?", id).Updates(map[string]interface{}{
		"status": model.StatusFailed,
		"error":  errMsg,
	}).Error
	if err != nil {
		return fmt.Errorf("failed to mark email failed: %w", err)
	}
	return nil
}

// Requeue reverts a sending email to queued after a throttled send attempt.
func (r *EmailRepository) Requeue(id string) error {
	err := r.db.Model(&model.Email{}).
		Where("id = ? AND status = ?", id, model.StatusSending).
		Update("status", model.StatusQueued).Error
	if err != nil {
		return fmt.Errorf("failed to requeue email: %w", err)
	}
	return nil
}

// BySentThreadID matches an inbound message back to the sent email it
// replies to, by provider thread id or message id.
func (r *EmailRepository) BySentThreadID(threadID string) (*model.Email, error) {
	if threadID == "" {
		return nil, nil
	}
	var email model.Email
	err := r.db.Where("status = ? AND (provider_thread_id = ? OR provider_message_id = ?)",
		model.StatusSent, threadID, threadID).
		First(&email).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to match thread: %w", err)
	}
	return &email, nil
}
