package repository

import (
	"time"

	accountdomain "mailsentry/internal/account/domain"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// accountRepository implements AccountRepository using GORM
type accountRepository struct {
	db *gorm.DB
}

// NewAccountRepository creates a new GORM-based AccountRepository
func NewAccountRepository(db *gorm.DB) AccountRepository {
	return &accountRepository{db: db}
}

func (r *accountRepository) Ensure(email, watchLabelIDs string) (*accountdomain.Account, error) {
	account := accountdomain.Account{
		ID:            uuid.New().String(),
		Email:         email,
		WatchLabelIDs: watchLabelIDs,
	}

	err := r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "email"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"watch_label_ids": watchLabelIDs,
			"updated_at":      time.Now(),
		}),
	}).Create(&account).Error
	if err != nil {
		return nil, err
	}

	// Re-read so callers always see the persisted row, not the candidate.
	var stored accountdomain.Account
	if err := r.db.Where("email = ?", email).First(&stored).Error; err != nil {
		return nil, err
	}
	return &stored, nil
}

func (r *accountRepository) GetState(accountID string) (*uint64, *time.Time, error) {
	var account accountdomain.Account
	err := r.db.Where("id = ?", accountID).First(&account).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil, nil
		}
		return nil, nil, err
	}
	return account.LastHistoryID, account.WatchExpiration, nil
}

func (r *accountRepository) AdvanceCursor(accountID string, historyID uint64) error {
	return r.db.Model(&accountdomain.Account{}).Where("id = ?", accountID).
		Updates(map[string]interface{}{
			"last_history_id": historyID,
			"updated_at":      time.Now(),
		}).Error
}

func (r *accountRepository) UpdateWatchInfo(accountID string, historyID uint64, expiration *time.Time) error {
	return r.db.Model(&accountdomain.Account{}).Where("id = ?", accountID).
		Updates(map[string]interface{}{
			"watch_expiration": expiration,
			"last_history_id":  gorm.Expr("COALESCE(last_history_id, ?)", historyID),
			"updated_at":       time.Now(),
		}).Error
}
