package repository

import (
	triagedomain "mailsentry/internal/triage/domain"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// appStateRepository implements AppStateRepository using GORM
type appStateRepository struct {
	db *gorm.DB
}

// NewAppStateRepository creates a new GORM-based AppStateRepository
func NewAppStateRepository(db *gorm.DB) AppStateRepository {
	return &appStateRepository{db: db}
}

func (r *appStateRepository) Get(key string) (string, error) {
	var state triagedomain.AppState
	err := r.db.Where("key = ?", key).First(&state).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return "", nil
		}
		return "", err
	}
	return state.Value, nil
}

func (r *appStateRepository) Set(key, value string) error {
	return r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&triagedomain.AppState{Key: key, Value: value}).Error
}
