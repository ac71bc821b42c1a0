package usecase

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"sync"

	accountdomain "mailsentry/internal/account/domain"
	accountrepo "mailsentry/internal/account/repository"
	triagedomain "mailsentry/internal/triage/domain"
	"mailsentry/internal/triage/repository"
	"mailsentry/pkg/telegram"
)

// ChatStateKey is the app-state key holding the registered notification chat
// id. It is set by the /start command and never guessed.
const ChatStateKey = "telegram_chat_id"

// SyncService drives one change notice end to end: discover new message ids,
// ingest each, classify, check suppression, deliver, and only then advance the
// cursor. Notices for the same account are serialized in process; everything
// else relies on storage-level idempotency.
type SyncService struct {
	discovery        *ChangeDiscovery
	ingestor         *MessageIngestor
	classifier       *ClassifierAdapter
	suppression      *SuppressionEngine
	accountant       *UsageAccountant
	notifier         Notifier
	accountRepo      accountrepo.AccountRepository
	notificationRepo repository.NotificationRepository
	appStateRepo     repository.AppStateRepository
	accountsByEmail  map[string]accountdomain.Runtime
	lowConfidence    float64

	mu           sync.Mutex
	accountLocks map[string]*sync.Mutex
}

// NewSyncService creates a new SyncService. accountsByEmail is keyed by the
// mailbox address change notices carry.
func NewSyncService(
	discovery *ChangeDiscovery,
	ingestor *MessageIngestor,
	classifier *ClassifierAdapter,
	suppression *SuppressionEngine,
	accountant *UsageAccountant,
	notifier Notifier,
	accountRepo accountrepo.AccountRepository,
	notificationRepo repository.NotificationRepository,
	appStateRepo repository.AppStateRepository,
	accountsByEmail map[string]accountdomain.Runtime,
	lowConfidence float64,
) *SyncService {
	return &SyncService{
		discovery:        discovery,
		ingestor:         ingestor,
		classifier:       classifier,
		suppression:      suppression,
		accountant:       accountant,
		notifier:         notifier,
		accountRepo:      accountRepo,
		notificationRepo: notificationRepo,
		appStateRepo:     appStateRepo,
		accountsByEmail:  accountsByEmail,
		lowConfidence:    lowConfidence,
		accountLocks:     make(map[string]*sync.Mutex),
	}
}

// HandleChangeNotice processes one mailbox change notice. A nil return means
// the notice is fully absorbed and may be acknowledged; an error means the
// cursor was not advanced and the notice should be redelivered.
func (s *SyncService) HandleChangeNotice(ctx context.Context, email string, historyID uint64) error {
	account, ok := s.accountsByEmail[email]
	if !ok {
		log.Printf("[Sync] ignoring change notice for unconfigured mailbox %s", email)
		return nil
	}

	lock := s.lockFor(account.AccountID)
	lock.Lock()
	defer lock.Unlock()

	result, err := s.discovery.Discover(ctx, account, historyID)
	if err != nil {
		return fmt.Errorf("discover %s: %v", email, err)
	}
	if result.Baselined || result.GapRecovered {
		return nil
	}

	for _, messageID := range result.MessageIDs {
		if err := s.processMessage(ctx, account, messageID, result.NewCursor); err != nil {
			// Cursor stays put; redelivery re-walks the batch and the
			// placeholder records turn the finished part into no-ops.
			return fmt.Errorf("process %s: %v", messageID, err)
		}
	}

	return s.accountRepo.AdvanceCursor(account.AccountID, result.NewCursor)
}

func (s *SyncService) processMessage(ctx context.Context, account accountdomain.Runtime, messageID string, historyID uint64) error {
	ingested, err := s.ingestor.Ingest(ctx, account, messageID, historyID)
	if err != nil {
		return err
	}
	if ingested.Duplicate || ingested.Missing {
		return nil
	}
	n := ingested.Notification

	classified, err := s.classifier.Classify(ctx, ingested.EmailText)
	if err != nil {
		// Record stays pending and redelivery retries the classification.
		return err
	}
	n.Category = classified.Category
	n.Confidence = classified.Confidence
	n.Summary = classified.Summary

	if err := s.accountant.Record(n.AccountID, s.classifier.Model(), classified.Usage); err != nil {
		log.Printf("[Sync] usage accounting failed for %s: %v", account.Email, err)
	}

	suppressed, err := s.suppression.ShouldSuppress(n.AccountID, n.SenderKey, n.Category)
	if err != nil {
		return err
	}
	lowConfidence := n.Confidence < s.lowConfidence

	// A mute only holds when the classification is trustworthy. Below the
	// threshold the message is delivered anyway, flagged, with the category
	// picker attached.
	if suppressed && !lowConfidence {
		n.Status = triagedomain.StatusSuppressed
		return s.notificationRepo.UpdateDetails(n)
	}

	chatID, registered, err := s.chatID()
	if err != nil {
		return err
	}
	if !registered {
		// Classification is kept; the record stays pending until a chat is
		// registered with /start.
		log.Printf("[Sync] no chat registered, holding %s as pending", n.ID)
		n.Status = triagedomain.StatusPending
		return s.notificationRepo.UpdateDetails(n)
	}

	opts := telegram.MessageOptions{}
	if suppressed && lowConfidence {
		opts.Note = "Delivered despite mute: classification confidence is low."
	}
	text := telegram.FormatMessage(n.SenderName, n.SenderEmail, n.Summary, string(n.Category), opts)
	openURL := telegram.BuildOpenURL(n.ThreadID, account.Email)
	keyboard := telegram.BuildKeyboard(n.ID, openURL, lowConfidence, triagedomain.CategoryNames())

	telegramMessageID, err := s.notifier.SendMessage(ctx, chatID, text, keyboard)
	if err != nil {
		return fmt.Errorf("send notification: %v", err)
	}

	n.TelegramChatID = chatID
	n.TelegramMessageID = telegramMessageID
	n.Status = triagedomain.StatusNotified
	return s.notificationRepo.UpdateDetails(n)
}

// chatID reads the registered notification chat. registered is false when no
// chat has ever run /start.
func (s *SyncService) chatID() (int64, bool, error) {
	raw, err := s.appStateRepo.Get(ChatStateKey)
	if err != nil {
		return 0, false, err
	}
	if raw == "" {
		return 0, false, nil
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, false, fmt.Errorf("corrupt chat id %q: %v", raw, err)
	}
	return id, true, nil
}

func (s *SyncService) lockFor(accountID string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	lock, ok := s.accountLocks[accountID]
	if !ok {
		lock = &sync.Mutex{}
		s.accountLocks[accountID] = lock
	}
	return lock
}
