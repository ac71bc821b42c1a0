package usecase

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/google/uuid"

	accountdomain "mailsentry/internal/account/domain"
	triagedomain "mailsentry/internal/triage/domain"
	"mailsentry/internal/triage/repository"
	"mailsentry/pkg/gmail"
)

// Rough byte budget per model token, used to cap classifier input without a
// tokenizer dependency.
const bytesPerToken = 4

// MessageIngestor claims a discovered message id and fetches its content. The
// placeholder insert happens before any network fetch, so every message id
// ever seen leaves a dedupe record no matter how the rest of the pass ends.
type MessageIngestor struct {
	notificationRepo repository.NotificationRepository
	mailbox          MailboxClient
	maxInputTokens   int
}

// NewMessageIngestor creates a new MessageIngestor
func NewMessageIngestor(notificationRepo repository.NotificationRepository, mailbox MailboxClient, maxInputTokens int) *MessageIngestor {
	return &MessageIngestor{
		notificationRepo: notificationRepo,
		mailbox:          mailbox,
		maxInputTokens:   maxInputTokens,
	}
}

// IngestResult is one claimed message. Duplicate means a record for the
// message already progressed past pending and nothing was done; Missing means
// the source message is permanently gone and the record was closed as missing.
type IngestResult struct {
	Notification *triagedomain.Notification
	EmailText    string
	Duplicate    bool
	Missing      bool
}

// Ingest inserts the pending record, then fetches the message content. On a
// transient fetch failure the pending record is left in place, and a later
// pass over the same message id picks it back up: the dedupe record is never
// deleted, so the insert conflict alone cannot decide that the message was
// handled. Only a record that moved past pending makes the redelivery a no-op.
func (i *MessageIngestor) Ingest(ctx context.Context, account accountdomain.Runtime, messageID string, historyID uint64) (*IngestResult, error) {
	n := &triagedomain.Notification{
		ID:        uuid.New().String(),
		AccountID: account.AccountID,
		MessageID: messageID,
		HistoryID: historyID,
		Status:    triagedomain.StatusPending,
	}

	created, err := i.notificationRepo.InsertPlaceholder(n)
	if err != nil {
		return nil, err
	}
	if !created {
		existing, err := i.notificationRepo.FindByMessage(account.AccountID, messageID)
		if err != nil {
			return nil, err
		}
		if existing == nil || existing.Status != triagedomain.StatusPending {
			return &IngestResult{Duplicate: true}, nil
		}
		log.Printf("[Ingestor] %s: resuming pending record for message %s", account.Email, messageID)
		n = existing
	}

	msg, err := i.mailbox.GetMessage(ctx, account.RefreshToken, messageID)
	if errors.Is(err, gmail.ErrMessageGone) {
		if _, terr := i.notificationRepo.Transition(n.ID, []triagedomain.Status{triagedomain.StatusPending}, triagedomain.StatusMissing); terr != nil {
			return nil, terr
		}
		log.Printf("[Ingestor] %s: message %s gone before fetch, closed as missing", account.Email, messageID)
		n.Status = triagedomain.StatusMissing
		return &IngestResult{Notification: n, Missing: true}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("fetch message %s: %v", messageID, err)
	}

	n.ThreadID = msg.ThreadID
	n.SenderEmail = msg.SenderEmail
	n.SenderName = msg.SenderName
	n.SenderKey = NormalizeSenderKey(msg.SenderEmail)
	n.Subject = msg.Subject

	return &IngestResult{Notification: n, EmailText: i.buildEmailText(msg)}, nil
}

// buildEmailText flattens the message into classifier input, preferring the
// extracted body over the snippet and truncating to the token budget.
func (i *MessageIngestor) buildEmailText(msg *triagedomain.Message) string {
	body := strings.TrimSpace(msg.BodyText)
	if body == "" {
		body = strings.TrimSpace(msg.Snippet)
	}

	sender := msg.SenderEmail
	if msg.SenderName != "" {
		sender = msg.SenderName + " <" + msg.SenderEmail + ">"
	}

	text := "From: " + sender + "\nSubject: " + msg.Subject + "\n\n" + body
	if budget := i.maxInputTokens * bytesPerToken; budget > 0 && len(text) > budget {
		text = text[:budget]
	}
	return text
}
