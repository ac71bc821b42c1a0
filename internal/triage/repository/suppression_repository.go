package repository

import (
	triagedomain "mailsentry/internal/triage/domain"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// suppressionRepository implements SuppressionRepository using GORM
type suppressionRepository struct {
	db *gorm.DB
}

// NewSuppressionRepository creates a new GORM-based SuppressionRepository
func NewSuppressionRepository(db *gorm.DB) SuppressionRepository {
	return &suppressionRepository{db: db}
}

func (r *suppressionRepository) Insert(rule *triagedomain.Suppression) error {
	if rule.ID == "" {
		rule.ID = uuid.New().String()
	}
	return r.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "account_id"}, {Name: "scope"},
			{Name: "rule_value"}, {Name: "category_key"},
		},
		DoNothing: true,
	}).Create(rule).Error
}

func (r *suppressionRepository) ListByAccount(accountID string) ([]triagedomain.Suppression, error) {
	var rules []triagedomain.Suppression
	err := r.db.Where("account_id = ?", accountID).Find(&rules).Error
	return rules, err
}

func (r *suppressionRepository) DeleteForCandidate(accountID, senderKey, senderDomain string, category triagedomain.Category) error {
	return r.db.Where(
		"account_id = ? AND ((scope = ? AND rule_value = ? AND category_key = ?) OR (scope = ? AND rule_value = ?) OR (scope = ? AND rule_value = ?))",
		accountID,
		triagedomain.ScopeSenderCategory, senderKey, string(category),
		triagedomain.ScopeSender, senderKey,
		triagedomain.ScopeDomain, senderDomain,
	).Delete(&triagedomain.Suppression{}).Error
}
