package domain

import "time"

// Status is the notification lifecycle state.
type Status string

const (
	StatusPending       Status = "pending"
	StatusNotified      Status = "notified"
	StatusSuppressed    Status = "suppressed"
	StatusDigestQueued  Status = "digest_queued" // reserved, never entered automatically
	StatusArchived      Status = "archived"
	StatusTrashed       Status = "trashed"
	StatusNotInterested Status = "not_interested"
	StatusMissing       Status = "missing" // source message permanently gone
)

// Terminal reports whether no automatic transition leaves the status.
func (s Status) Terminal() bool {
	switch s {
	case StatusArchived, StatusTrashed, StatusNotInterested, StatusMissing, StatusSuppressed, StatusDigestQueued:
		return true
	}
	return false
}

// Notification is the triage record for exactly one source message.
// The unique index on (account_id, message_id) is the dedupe primitive: a
// second discovery of the same message id must insert nothing.
type Notification struct {
	ID                string    `json:"id" gorm:"primaryKey"`
	AccountID         string    `json:"account_id" gorm:"index:idx_account_message,unique;not null"`
	MessageID         string    `json:"message_id" gorm:"index:idx_account_message,unique;not null"`
	ThreadID          string    `json:"thread_id"`
	HistoryID         uint64    `json:"history_id"` // cursor value at discovery
	SenderEmail       string    `json:"sender_email"`
	SenderName        string    `json:"sender_name"`
	SenderKey         string    `json:"sender_key" gorm:"index"`
	Subject           string    `json:"subject"`
	Summary           string    `json:"summary"`
	Category          Category  `json:"category"`
	Confidence        float64   `json:"confidence"`
	Status            Status    `json:"status" gorm:"index;not null"`
	TelegramChatID    int64     `json:"telegram_chat_id"`
	TelegramMessageID int64     `json:"telegram_message_id"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
	DeliveredAt       *time.Time `json:"delivered_at"`
	ArchivedAt        *time.Time `json:"archived_at"`
	TrashedAt         *time.Time `json:"trashed_at"`
}

func (Notification) TableName() string {
	return "notifications"
}

// Action is a validated user action against a notification.
type Action string

const (
	ActionOpen          Action = "open"
	ActionArchive       Action = "archive"
	ActionTrashPrompt   Action = "trash_confirm_prompt"
	ActionTrashConfirm  Action = "trash_confirm"
	ActionTrashCancel   Action = "trash_cancel"
	ActionNotInterested Action = "not_interested"
	ActionSetCategory   Action = "set_category"
	ActionUndo          Action = "undo"
)

// Outcome is the result of dispatching an action.
type Outcome string

const (
	OutcomeApplied   Outcome = "applied"
	OutcomeDuplicate Outcome = "duplicate" // replay of an already-applied action
	OutcomeConflict  Outcome = "conflict"  // record is in a state that forbids the action
)
