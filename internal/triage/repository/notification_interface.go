package repository

import (
	triagedomain "mailsentry/internal/triage/domain"
)

// NotificationRepository persists notification records. It is also the state
// machine's mutual-exclusion primitive: transitions are conditional updates
// against the current status, so racing dispatchers and redelivered events
// resolve at the row level without in-process locks.
type NotificationRepository interface {
	// InsertPlaceholder inserts a pending record keyed by (account, message).
	// Returns false when a record for that message already exists; the insert
	// is then a deliberate no-op.
	InsertPlaceholder(n *triagedomain.Notification) (created bool, err error)

	FindByID(id string) (*triagedomain.Notification, error)

	// FindByMessage looks up the record behind the dedupe key. Returns nil
	// without error when no record exists.
	FindByMessage(accountID, messageID string) (*triagedomain.Notification, error)

	// UpdateDetails fills in the classification result, delivery ids and the
	// post-classification status in one write.
	UpdateDetails(n *triagedomain.Notification) error

	// Transition moves the record from one of the allowed statuses to the
	// target status. Returns false when the record was not in an allowed
	// status; the caller decides whether that is a duplicate or a conflict.
	Transition(id string, from []triagedomain.Status, to triagedomain.Status) (bool, error)

	// UpdateCategory rewrites category and confidence in place without
	// touching status.
	UpdateCategory(id string, category triagedomain.Category, confidence float64) error
}
