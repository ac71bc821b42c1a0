package usecase

import (
	triagedomain "mailsentry/internal/triage/domain"
	"mailsentry/internal/triage/repository"
)

// SuppressionEngine decides whether a candidate notification is silenced by
// the account's standing rules.
type SuppressionEngine struct {
	suppressionRepo repository.SuppressionRepository
}

// NewSuppressionEngine creates a new SuppressionEngine
func NewSuppressionEngine(suppressionRepo repository.SuppressionRepository) *SuppressionEngine {
	return &SuppressionEngine{suppressionRepo: suppressionRepo}
}

// ShouldSuppress is the OR over all rules: any single match silences the
// candidate. Rules only add silence, so no precedence ordering exists.
func (e *SuppressionEngine) ShouldSuppress(accountID, senderKey string, category triagedomain.Category) (bool, error) {
	rules, err := e.suppressionRepo.ListByAccount(accountID)
	if err != nil {
		return false, err
	}

	senderDomain := SenderDomain(senderKey)
	for _, rule := range rules {
		if rule.Matches(senderKey, senderDomain, category) {
			return true, nil
		}
	}
	return false, nil
}
