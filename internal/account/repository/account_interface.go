package repository

import (
	"time"

	accountdomain "mailsentry/internal/account/domain"
)

// AccountRepository is the cursor store: it owns the per-account change cursor
// and watch metadata.
type AccountRepository interface {
	// Ensure upserts the account row for a configured mailbox and returns it.
	// Watch label ids are refreshed on every start.
	Ensure(email, watchLabelIDs string) (*accountdomain.Account, error)

	// GetState returns the stored cursor and watch expiration.
	GetState(accountID string) (lastHistoryID *uint64, watchExpiration *time.Time, err error)

	// AdvanceCursor commits a new cursor value for the account.
	AdvanceCursor(accountID string, historyID uint64) error

	// UpdateWatchInfo records a watch renewal. The cursor is only seeded when
	// none is stored yet; an established cursor is never moved backwards by a
	// renewal.
	UpdateWatchInfo(accountID string, historyID uint64, expiration *time.Time) error
}
