package repository

import (
	"time"

	triagedomain "mailsentry/internal/triage/domain"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// notificationRepository implements NotificationRepository using GORM
type notificationRepository struct {
	db *gorm.DB
}

// NewNotificationRepository creates a new GORM-based NotificationRepository
func NewNotificationRepository(db *gorm.DB) NotificationRepository {
	return &notificationRepository{db: db}
}

func (r *notificationRepository) InsertPlaceholder(n *triagedomain.Notification) (bool, error) {
	if n.ID == "" {
		n.ID = uuid.New().String()
	}
	if n.Status == "" {
		n.Status = triagedomain.StatusPending
	}
	now := time.Now()
	n.CreatedAt = now
	n.UpdatedAt = now

	result := r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "account_id"}, {Name: "message_id"}},
		DoNothing: true,
	}).Create(n)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *notificationRepository) FindByID(id string) (*triagedomain.Notification, error) {
	var n triagedomain.Notification
	err := r.db.Where("id = ?", id).First(&n).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &n, nil
}

func (r *notificationRepository) FindByMessage(accountID, messageID string) (*triagedomain.Notification, error) {
	var n triagedomain.Notification
	err := r.db.Where("account_id = ? AND message_id = ?", accountID, messageID).First(&n).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &n, nil
}

func (r *notificationRepository) UpdateDetails(n *triagedomain.Notification) error {
	updates := map[string]interface{}{
		"sender_email":        n.SenderEmail,
		"sender_name":         n.SenderName,
		"sender_key":          n.SenderKey,
		"subject":             n.Subject,
		"summary":             n.Summary,
		"category":            n.Category,
		"confidence":          n.Confidence,
		"telegram_chat_id":    n.TelegramChatID,
		"telegram_message_id": n.TelegramMessageID,
		"status":              n.Status,
		"updated_at":          time.Now(),
	}
	if n.Status == triagedomain.StatusNotified {
		updates["delivered_at"] = time.Now()
	}
	return r.db.Model(&triagedomain.Notification{}).Where("id = ?", n.ID).
		Updates(updates).Error
}

func (r *notificationRepository) Transition(id string, from []triagedomain.Status, to triagedomain.Status) (bool, error) {
	now := time.Now()
	updates := map[string]interface{}{
		"status":     to,
		"updated_at": now,
	}
	switch to {
	case triagedomain.StatusArchived:
		updates["archived_at"] = now
	case triagedomain.StatusTrashed:
		updates["trashed_at"] = now
	case triagedomain.StatusNotified:
		updates["delivered_at"] = now
	}

	result := r.db.Model(&triagedomain.Notification{}).
		Where("id = ? AND status IN ?", id, from).
		Updates(updates)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *notificationRepository) UpdateCategory(id string, category triagedomain.Category, confidence float64) error {
	return r.db.Model(&triagedomain.Notification{}).Where("id = ?", id).
		Updates(map[string]interface{}{
			"category":   category,
			"confidence": confidence,
			"updated_at": time.Now(),
		}).Error
}
