package domain

import "time"

// Account is one watched Gmail mailbox. LastHistoryID is the change cursor of
// the last fully processed history batch; nil means the account has never been
// synced and the first change notice establishes the baseline.
type Account struct {
	ID              string     `json:"id" gorm:"primaryKey"`
	Email           string     `json:"email" gorm:"uniqueIndex;not null"`
	WatchLabelIDs   string     `json:"watch_label_ids"` // comma-separated Gmail label ids
	LastHistoryID   *uint64    `json:"last_history_id"`
	WatchExpiration *time.Time `json:"watch_expiration"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// Runtime pairs a persisted account with the credentials that only live in
// configuration. Refresh tokens are never written to the database.
type Runtime struct {
	AccountID    string
	Email        string
	RefreshToken string
}
