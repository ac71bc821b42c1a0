package usecase

import (
	"context"
	"fmt"
	"time"

	accountdomain "mailsentry/internal/account/domain"
	triagedomain "mailsentry/internal/triage/domain"
	"mailsentry/pkg/ai"
	"mailsentry/pkg/gmail"
	"mailsentry/pkg/telegram"
)

// fakeAccountRepo implements accountrepo.AccountRepository in memory.
type fakeAccountRepo struct {
	cursors map[string]*uint64
	commits []uint64
}

func newFakeAccountRepo() *fakeAccountRepo {
	return &fakeAccountRepo{cursors: make(map[string]*uint64)}
}

func (r *fakeAccountRepo) Ensure(email, watchLabelIDs string) (*accountdomain.Account, error) {
	return &accountdomain.Account{ID: "acct-" + email, Email: email}, nil
}

func (r *fakeAccountRepo) GetState(accountID string) (*uint64, *time.Time, error) {
	return r.cursors[accountID], nil, nil
}

func (r *fakeAccountRepo) AdvanceCursor(accountID string, historyID uint64) error {
	value := historyID
	r.cursors[accountID] = &value
	r.commits = append(r.commits, historyID)
	return nil
}

func (r *fakeAccountRepo) UpdateWatchInfo(accountID string, historyID uint64, expiration *time.Time) error {
	if r.cursors[accountID] == nil {
		value := historyID
		r.cursors[accountID] = &value
	}
	return nil
}

func (r *fakeAccountRepo) setCursor(accountID string, historyID uint64) {
	value := historyID
	r.cursors[accountID] = &value
}

// fakeNotificationRepo implements repository.NotificationRepository in memory,
// including the conditional transition semantics.
type fakeNotificationRepo struct {
	records map[string]*triagedomain.Notification
	byKey   map[string]string
}

func newFakeNotificationRepo() *fakeNotificationRepo {
	return &fakeNotificationRepo{
		records: make(map[string]*triagedomain.Notification),
		byKey:   make(map[string]string),
	}
}

func (r *fakeNotificationRepo) key(accountID, messageID string) string {
	return accountID + "/" + messageID
}

func (r *fakeNotificationRepo) InsertPlaceholder(n *triagedomain.Notification) (bool, error) {
	key := r.key(n.AccountID, n.MessageID)
	if _, exists := r.byKey[key]; exists {
		return false, nil
	}
	clone := *n
	r.records[n.ID] = &clone
	r.byKey[key] = n.ID
	return true, nil
}

func (r *fakeNotificationRepo) FindByID(id string) (*triagedomain.Notification, error) {
	record, ok := r.records[id]
	if !ok {
		return nil, nil
	}
	clone := *record
	return &clone, nil
}

func (r *fakeNotificationRepo) FindByMessage(accountID, messageID string) (*triagedomain.Notification, error) {
	record := r.byMessage(accountID, messageID)
	if record == nil {
		return nil, nil
	}
	clone := *record
	return &clone, nil
}

func (r *fakeNotificationRepo) UpdateDetails(n *triagedomain.Notification) error {
	if _, ok := r.records[n.ID]; !ok {
		return fmt.Errorf("no record %s", n.ID)
	}
	clone := *n
	r.records[n.ID] = &clone
	return nil
}

func (r *fakeNotificationRepo) Transition(id string, from []triagedomain.Status, to triagedomain.Status) (bool, error) {
	record, ok := r.records[id]
	if !ok {
		return false, nil
	}
	for _, status := range from {
		if record.Status == status {
			record.Status = to
			return true, nil
		}
	}
	return false, nil
}

func (r *fakeNotificationRepo) UpdateCategory(id string, category triagedomain.Category, confidence float64) error {
	record, ok := r.records[id]
	if !ok {
		return fmt.Errorf("no record %s", id)
	}
	record.Category = category
	record.Confidence = confidence
	return nil
}

func (r *fakeNotificationRepo) mustGet(id string) *triagedomain.Notification {
	return r.records[id]
}

func (r *fakeNotificationRepo) byMessage(accountID, messageID string) *triagedomain.Notification {
	id, ok := r.byKey[r.key(accountID, messageID)]
	if !ok {
		return nil
	}
	return r.records[id]
}

// fakeSuppressionRepo implements repository.SuppressionRepository in memory.
type fakeSuppressionRepo struct {
	rules []triagedomain.Suppression
}

func (r *fakeSuppressionRepo) Insert(rule *triagedomain.Suppression) error {
	for _, existing := range r.rules {
		if existing.AccountID == rule.AccountID && existing.Scope == rule.Scope &&
			existing.RuleValue == rule.RuleValue && existing.CategoryKey == rule.CategoryKey {
			return nil
		}
	}
	r.rules = append(r.rules, *rule)
	return nil
}

func (r *fakeSuppressionRepo) ListByAccount(accountID string) ([]triagedomain.Suppression, error) {
	var out []triagedomain.Suppression
	for _, rule := range r.rules {
		if rule.AccountID == accountID {
			out = append(out, rule)
		}
	}
	return out, nil
}

func (r *fakeSuppressionRepo) DeleteForCandidate(accountID, senderKey, senderDomain string, category triagedomain.Category) error {
	var kept []triagedomain.Suppression
	for _, rule := range r.rules {
		if rule.AccountID == accountID && rule.Matches(senderKey, senderDomain, category) {
			continue
		}
		kept = append(kept, rule)
	}
	r.rules = kept
	return nil
}

// fakeUsageRepo implements repository.UsageRepository in memory.
type fakeUsageRepo struct {
	entries []triagedomain.UsageDaily
}

func (r *fakeUsageRepo) AddDaily(entry *triagedomain.UsageDaily) error {
	r.entries = append(r.entries, *entry)
	return nil
}

func (r *fakeUsageRepo) ListSince(usageDate string) ([]triagedomain.UsageDaily, error) {
	return r.entries, nil
}

// fakeAppStateRepo implements repository.AppStateRepository in memory.
type fakeAppStateRepo struct {
	values map[string]string
}

func newFakeAppStateRepo() *fakeAppStateRepo {
	return &fakeAppStateRepo{values: make(map[string]string)}
}

func (r *fakeAppStateRepo) Get(key string) (string, error) {
	return r.values[key], nil
}

func (r *fakeAppStateRepo) Set(key, value string) error {
	r.values[key] = value
	return nil
}

// fakeMailbox implements MailboxClient with canned responses.
type fakeMailbox struct {
	profileHistoryID uint64
	history          *gmail.HistoryResult
	historyErr       error
	messages         map[string]*triagedomain.Message
	getErr           map[string]error

	archived   []string
	unarchived []string
	trashed    []string
	untrashed  []string
	mutateErr  error
}

func newFakeMailbox() *fakeMailbox {
	return &fakeMailbox{
		messages: make(map[string]*triagedomain.Message),
		getErr:   make(map[string]error),
	}
}

func (m *fakeMailbox) Profile(ctx context.Context, refreshToken string) (uint64, error) {
	return m.profileHistoryID, nil
}

func (m *fakeMailbox) ListHistory(ctx context.Context, refreshToken string, startHistoryID uint64, labelID string) (*gmail.HistoryResult, error) {
	if m.historyErr != nil {
		return nil, m.historyErr
	}
	return m.history, nil
}

func (m *fakeMailbox) GetMessage(ctx context.Context, refreshToken, messageID string) (*triagedomain.Message, error) {
	if err, ok := m.getErr[messageID]; ok {
		return nil, err
	}
	msg, ok := m.messages[messageID]
	if !ok {
		return nil, gmail.ErrMessageGone
	}
	clone := *msg
	return &clone, nil
}

func (m *fakeMailbox) Archive(ctx context.Context, refreshToken, messageID, threadID string) error {
	if m.mutateErr != nil {
		return m.mutateErr
	}
	m.archived = append(m.archived, messageID)
	return nil
}

func (m *fakeMailbox) Unarchive(ctx context.Context, refreshToken, messageID, threadID string) error {
	if m.mutateErr != nil {
		return m.mutateErr
	}
	m.unarchived = append(m.unarchived, messageID)
	return nil
}

func (m *fakeMailbox) Trash(ctx context.Context, refreshToken, messageID, threadID string) error {
	if m.mutateErr != nil {
		return m.mutateErr
	}
	m.trashed = append(m.trashed, messageID)
	return nil
}

func (m *fakeMailbox) Untrash(ctx context.Context, refreshToken, messageID, threadID string) error {
	if m.mutateErr != nil {
		return m.mutateErr
	}
	m.untrashed = append(m.untrashed, messageID)
	return nil
}

// fakeNotifier implements Notifier and records every send and edit.
type sentMessage struct {
	chatID   int64
	text     string
	keyboard *telegram.InlineKeyboardMarkup
}

type fakeNotifier struct {
	sent          []sentMessage
	edits         []sentMessage
	markupEdits   []sentMessage
	sendErr       error
	nextMessageID int64
}

func (n *fakeNotifier) SendMessage(ctx context.Context, chatID int64, text string, keyboard *telegram.InlineKeyboardMarkup) (int64, error) {
	if n.sendErr != nil {
		return 0, n.sendErr
	}
	n.nextMessageID++
	n.sent = append(n.sent, sentMessage{chatID: chatID, text: text, keyboard: keyboard})
	return n.nextMessageID, nil
}

func (n *fakeNotifier) EditMessageText(ctx context.Context, chatID, messageID int64, text string, keyboard *telegram.InlineKeyboardMarkup) error {
	n.edits = append(n.edits, sentMessage{chatID: chatID, text: text, keyboard: keyboard})
	return nil
}

func (n *fakeNotifier) EditMessageReplyMarkup(ctx context.Context, chatID, messageID int64, keyboard *telegram.InlineKeyboardMarkup) error {
	n.markupEdits = append(n.markupEdits, sentMessage{chatID: chatID, keyboard: keyboard})
	return nil
}

// fakeClassifier implements ai.Classifier. When queue is set, results are
// popped in order; otherwise result repeats.
type fakeClassifier struct {
	result *ai.Classification
	queue  []*ai.Classification
	err    error
	calls  int
}

func (c *fakeClassifier) ClassifyEmail(ctx context.Context, emailText string, categories []string) (*ai.Classification, error) {
	c.calls++
	if c.err != nil {
		return nil, c.err
	}
	if len(c.queue) > 0 {
		next := c.queue[0]
		c.queue = c.queue[1:]
		clone := *next
		return &clone, nil
	}
	clone := *c.result
	return &clone, nil
}

func (c *fakeClassifier) Model() string {
	return "test-model"
}

func testAccount() accountdomain.Runtime {
	return accountdomain.Runtime{
		AccountID:    "acct-1",
		Email:        "me@example.com",
		RefreshToken: "refresh-token",
	}
}
