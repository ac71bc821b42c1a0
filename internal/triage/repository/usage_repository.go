package repository

import (
	"time"

	triagedomain "mailsentry/internal/triage/domain"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// usageRepository implements UsageRepository using GORM
type usageRepository struct {
	db *gorm.DB
}

// NewUsageRepository creates a new GORM-based UsageRepository
func NewUsageRepository(db *gorm.DB) UsageRepository {
	return &usageRepository{db: db}
}

func (r *usageRepository) AddDaily(entry *triagedomain.UsageDaily) error {
	if entry.ID == "" {
		entry.ID = uuid.New().String()
	}
	now := time.Now()
	entry.CreatedAt = now
	entry.UpdatedAt = now

	return r.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "account_id"}, {Name: "model"}, {Name: "usage_date"},
		},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"input_tokens":          gorm.Expr("usage_daily.input_tokens + EXCLUDED.input_tokens"),
			"cached_input_tokens":   gorm.Expr("usage_daily.cached_input_tokens + EXCLUDED.cached_input_tokens"),
			"output_tokens":         gorm.Expr("usage_daily.output_tokens + EXCLUDED.output_tokens"),
			"input_cost_usd":        gorm.Expr("usage_daily.input_cost_usd + EXCLUDED.input_cost_usd"),
			"cached_input_cost_usd": gorm.Expr("usage_daily.cached_input_cost_usd + EXCLUDED.cached_input_cost_usd"),
			"output_cost_usd":       gorm.Expr("usage_daily.output_cost_usd + EXCLUDED.output_cost_usd"),
			"total_cost_usd":        gorm.Expr("usage_daily.total_cost_usd + EXCLUDED.total_cost_usd"),
			"updated_at":            now,
		}),
	}).Create(entry).Error
}

func (r *usageRepository) ListSince(usageDate string) ([]triagedomain.UsageDaily, error) {
	var entries []triagedomain.UsageDaily
	err := r.db.Where("usage_date >= ?", usageDate).
		Order("usage_date DESC, account_id ASC").Find(&entries).Error
	return entries, err
}
