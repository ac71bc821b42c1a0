package repository

import (
	triagedomain "mailsentry/internal/triage/domain"
)

// SuppressionRepository persists suppression rules. Uniqueness on
// (account, scope, rule_value, category_key) makes rule creation idempotent.
type SuppressionRepository interface {
	// Insert adds a rule; inserting an existing rule is a no-op.
	Insert(rule *triagedomain.Suppression) error

	// ListByAccount returns every rule for the account.
	ListByAccount(accountID string) ([]triagedomain.Suppression, error)

	// DeleteForCandidate removes the rules a not-interested action on the
	// given candidate could have created, for undo.
	DeleteForCandidate(accountID, senderKey, senderDomain string, category triagedomain.Category) error
}
