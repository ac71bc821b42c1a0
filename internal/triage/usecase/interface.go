package usecase

import (
	"context"
	"errors"

	triagedomain "mailsentry/internal/triage/domain"
	"mailsentry/pkg/gmail"
	"mailsentry/pkg/telegram"
)

// ErrNotFound is returned when an action references an unknown notification.
var ErrNotFound = errors.New("notification not found")

// MailboxClient is the mailbox API surface the triage pipeline depends on.
// Implemented by pkg/gmail; faked in tests.
type MailboxClient interface {
	Profile(ctx context.Context, refreshToken string) (uint64, error)
	ListHistory(ctx context.Context, refreshToken string, startHistoryID uint64, labelID string) (*gmail.HistoryResult, error)
	GetMessage(ctx context.Context, refreshToken, messageID string) (*triagedomain.Message, error)
	Archive(ctx context.Context, refreshToken, messageID, threadID string) error
	Unarchive(ctx context.Context, refreshToken, messageID, threadID string) error
	Trash(ctx context.Context, refreshToken, messageID, threadID string) error
	Untrash(ctx context.Context, refreshToken, messageID, threadID string) error
}

// Notifier is the delivery channel surface: send once, edit in place after.
// Implemented by pkg/telegram; faked in tests.
type Notifier interface {
	SendMessage(ctx context.Context, chatID int64, text string, keyboard *telegram.InlineKeyboardMarkup) (int64, error)
	EditMessageText(ctx context.Context, chatID, messageID int64, text string, keyboard *telegram.InlineKeyboardMarkup) error
	EditMessageReplyMarkup(ctx context.Context, chatID, messageID int64, keyboard *telegram.InlineKeyboardMarkup) error
}
