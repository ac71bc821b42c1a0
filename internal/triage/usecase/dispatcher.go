package usecase

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"sync"

	"github.com/google/uuid"

	accountdomain "mailsentry/internal/account/domain"
	triagedomain "mailsentry/internal/triage/domain"
	"mailsentry/internal/triage/repository"
	"mailsentry/pkg/telegram"
)

// tokenMemoryLimit bounds the in-memory idempotency token set. The set is a
// latency shortcut for hot replays; the conditional status update is what
// actually guarantees exactly-once, so eviction is harmless.
const tokenMemoryLimit = 512

// ActionDispatcher validates and applies user actions against notification
// records. Every mailbox mutation happens before the state commit, so a crash
// in between leaves a record that still permits a retry rather than one that
// claims an action which never ran.
type ActionDispatcher struct {
	notificationRepo repository.NotificationRepository
	suppressionRepo  repository.SuppressionRepository
	mailbox          MailboxClient
	notifier         Notifier
	accounts         map[string]accountdomain.Runtime
	lowConfidence    float64

	tokenMu    sync.Mutex
	seenTokens map[string]struct{}
	tokenOrder []string

	locksMu sync.Mutex
	locks   map[string]*sync.Mutex
}

// NewActionDispatcher creates a new ActionDispatcher. accounts is keyed by
// account id.
func NewActionDispatcher(
	notificationRepo repository.NotificationRepository,
	suppressionRepo repository.SuppressionRepository,
	mailbox MailboxClient,
	notifier Notifier,
	accounts map[string]accountdomain.Runtime,
	lowConfidence float64,
) *ActionDispatcher {
	return &ActionDispatcher{
		notificationRepo: notificationRepo,
		suppressionRepo:  suppressionRepo,
		mailbox:          mailbox,
		notifier:         notifier,
		accounts:         accounts,
		lowConfidence:    lowConfidence,
		seenTokens:       make(map[string]struct{}),
		locks:            make(map[string]*sync.Mutex),
	}
}

// Apply runs one action against a notification record and reports whether it
// was applied, a replay of an already-applied action, or in conflict with the
// record's current state. arg carries the action parameter: the mute scope,
// the category index, or the undo target.
func (d *ActionDispatcher) Apply(ctx context.Context, notificationID string, action triagedomain.Action, arg, token string) (triagedomain.Outcome, error) {
	if token != "" && d.tokenSeen(token) {
		return triagedomain.OutcomeDuplicate, nil
	}

	// Presses on the same notification run one at a time, so two concurrent
	// confirms cannot both read the pre-transition status and each reach the
	// mailbox before the conditional update settles who won.
	lock := d.lockFor(notificationID)
	lock.Lock()
	defer lock.Unlock()

	n, err := d.notificationRepo.FindByID(notificationID)
	if err != nil {
		return "", err
	}
	if n == nil {
		return "", ErrNotFound
	}

	account, ok := d.accounts[n.AccountID]
	if !ok {
		return "", fmt.Errorf("no configured account for id %s", n.AccountID)
	}

	outcome, err := d.apply(ctx, n, account, action, arg)
	if err != nil {
		return outcome, err
	}
	if token != "" {
		d.rememberToken(token)
	}
	return outcome, nil
}

func (d *ActionDispatcher) apply(ctx context.Context, n *triagedomain.Notification, account accountdomain.Runtime, action triagedomain.Action, arg string) (triagedomain.Outcome, error) {
	switch action {
	case triagedomain.ActionOpen:
		return triagedomain.OutcomeApplied, nil
	case triagedomain.ActionArchive:
		return d.applyTerminal(ctx, n, account, triagedomain.StatusArchived, "Archived", "a")
	case triagedomain.ActionTrashPrompt:
		return d.applyTrashPrompt(ctx, n)
	case triagedomain.ActionTrashCancel:
		return d.applyTrashCancel(ctx, n, account)
	case triagedomain.ActionTrashConfirm:
		return d.applyTerminal(ctx, n, account, triagedomain.StatusTrashed, "Trashed", "t")
	case triagedomain.ActionNotInterested:
		return d.applyNotInterested(ctx, n, account, arg)
	case triagedomain.ActionSetCategory:
		return d.applySetCategory(ctx, n, account, arg)
	case triagedomain.ActionUndo:
		return d.applyUndo(ctx, n, account, arg)
	}
	return "", fmt.Errorf("unknown action %q", action)
}

// applyTerminal handles archive and trash-confirm: mailbox mutation first,
// then the conditional transition, then the message edit.
func (d *ActionDispatcher) applyTerminal(ctx context.Context, n *triagedomain.Notification, account accountdomain.Runtime, target triagedomain.Status, label, undoTarget string) (triagedomain.Outcome, error) {
	if n.Status == target {
		return triagedomain.OutcomeDuplicate, nil
	}
	if n.Status != triagedomain.StatusNotified {
		return triagedomain.OutcomeConflict, nil
	}

	var err error
	switch target {
	case triagedomain.StatusArchived:
		err = d.mailbox.Archive(ctx, account.RefreshToken, n.MessageID, n.ThreadID)
	case triagedomain.StatusTrashed:
		err = d.mailbox.Trash(ctx, account.RefreshToken, n.MessageID, n.ThreadID)
	}
	if err != nil {
		return "", fmt.Errorf("mailbox %s: %v", label, err)
	}

	moved, err := d.notificationRepo.Transition(n.ID, []triagedomain.Status{triagedomain.StatusNotified}, target)
	if err != nil {
		return "", err
	}
	if !moved {
		return d.classifyLostRace(n.ID, target)
	}

	d.editAfterTerminal(ctx, n, account, label, undoTarget)
	return triagedomain.OutcomeApplied, nil
}

func (d *ActionDispatcher) applyTrashPrompt(ctx context.Context, n *triagedomain.Notification) (triagedomain.Outcome, error) {
	if n.Status != triagedomain.StatusNotified {
		return triagedomain.OutcomeConflict, nil
	}
	if err := d.notifier.EditMessageReplyMarkup(ctx, n.TelegramChatID, n.TelegramMessageID, telegram.BuildTrashConfirmKeyboard(n.ID)); err != nil {
		return "", err
	}
	return triagedomain.OutcomeApplied, nil
}

func (d *ActionDispatcher) applyTrashCancel(ctx context.Context, n *triagedomain.Notification, account accountdomain.Runtime) (triagedomain.Outcome, error) {
	if n.Status != triagedomain.StatusNotified {
		return triagedomain.OutcomeConflict, nil
	}
	if err := d.notifier.EditMessageReplyMarkup(ctx, n.TelegramChatID, n.TelegramMessageID, d.primaryKeyboard(n, account)); err != nil {
		return "", err
	}
	return triagedomain.OutcomeApplied, nil
}

func (d *ActionDispatcher) applyNotInterested(ctx context.Context, n *triagedomain.Notification, account accountdomain.Runtime, scopeArg string) (triagedomain.Outcome, error) {
	if n.Status == triagedomain.StatusNotInterested {
		return triagedomain.OutcomeDuplicate, nil
	}
	if n.Status != triagedomain.StatusNotified {
		return triagedomain.OutcomeConflict, nil
	}

	rule, err := d.buildRule(n, scopeArg)
	if err != nil {
		return "", err
	}
	// Rule first: a crash after this leaves future mail silenced, which is the
	// action's intent, and the record still permits a retry of the transition.
	if err := d.suppressionRepo.Insert(rule); err != nil {
		return "", err
	}

	moved, err := d.notificationRepo.Transition(n.ID, []triagedomain.Status{triagedomain.StatusNotified}, triagedomain.StatusNotInterested)
	if err != nil {
		return "", err
	}
	if !moved {
		return d.classifyLostRace(n.ID, triagedomain.StatusNotInterested)
	}

	d.editAfterTerminal(ctx, n, account, "Not-Interested", "n")
	return triagedomain.OutcomeApplied, nil
}

func (d *ActionDispatcher) applySetCategory(ctx context.Context, n *triagedomain.Notification, account accountdomain.Runtime, arg string) (triagedomain.Outcome, error) {
	if n.Status != triagedomain.StatusNotified {
		return triagedomain.OutcomeConflict, nil
	}

	idx, err := strconv.Atoi(arg)
	if err != nil {
		return "", fmt.Errorf("bad category index %q: %v", arg, err)
	}
	category, ok := triagedomain.CategoryAt(idx)
	if !ok {
		return "", fmt.Errorf("category index %d out of range", idx)
	}
	if n.Category == category {
		return triagedomain.OutcomeDuplicate, nil
	}

	// Human-confirmed, so confidence goes to 1 and the picker disappears.
	if err := d.notificationRepo.UpdateCategory(n.ID, category, 1); err != nil {
		return "", err
	}

	n.Category = category
	n.Confidence = 1
	text := telegram.FormatMessage(n.SenderName, n.SenderEmail, n.Summary, string(category), telegram.MessageOptions{})
	if err := d.notifier.EditMessageText(ctx, n.TelegramChatID, n.TelegramMessageID, text, d.primaryKeyboard(n, account)); err != nil {
		log.Printf("[Dispatcher] edit after category change failed for %s: %v", n.ID, err)
	}
	return triagedomain.OutcomeApplied, nil
}

func (d *ActionDispatcher) applyUndo(ctx context.Context, n *triagedomain.Notification, account accountdomain.Runtime, target string) (triagedomain.Outcome, error) {
	var fromStatus triagedomain.Status
	switch target {
	case "a":
		fromStatus = triagedomain.StatusArchived
	case "t":
		fromStatus = triagedomain.StatusTrashed
	case "n":
		fromStatus = triagedomain.StatusNotInterested
	default:
		return "", fmt.Errorf("bad undo target %q", target)
	}

	if n.Status == triagedomain.StatusNotified {
		return triagedomain.OutcomeDuplicate, nil
	}
	if n.Status != fromStatus {
		return triagedomain.OutcomeConflict, nil
	}

	var err error
	switch fromStatus {
	case triagedomain.StatusArchived:
		err = d.mailbox.Unarchive(ctx, account.RefreshToken, n.MessageID, n.ThreadID)
	case triagedomain.StatusTrashed:
		err = d.mailbox.Untrash(ctx, account.RefreshToken, n.MessageID, n.ThreadID)
	case triagedomain.StatusNotInterested:
		err = d.suppressionRepo.DeleteForCandidate(n.AccountID, n.SenderKey, SenderDomain(n.SenderKey), n.Category)
	}
	if err != nil {
		return "", fmt.Errorf("undo %s: %v", target, err)
	}

	moved, err := d.notificationRepo.Transition(n.ID, []triagedomain.Status{fromStatus}, triagedomain.StatusNotified)
	if err != nil {
		return "", err
	}
	if !moved {
		return d.classifyLostRace(n.ID, triagedomain.StatusNotified)
	}

	text := telegram.FormatMessage(n.SenderName, n.SenderEmail, n.Summary, string(n.Category), telegram.MessageOptions{})
	if err := d.notifier.EditMessageText(ctx, n.TelegramChatID, n.TelegramMessageID, text, d.primaryKeyboard(n, account)); err != nil {
		log.Printf("[Dispatcher] edit after undo failed for %s: %v", n.ID, err)
	}
	return triagedomain.OutcomeApplied, nil
}

// classifyLostRace re-reads the record after a failed conditional transition:
// already at the target means a concurrent replay won (duplicate), anything
// else is a genuine conflict.
func (d *ActionDispatcher) classifyLostRace(id string, target triagedomain.Status) (triagedomain.Outcome, error) {
	current, err := d.notificationRepo.FindByID(id)
	if err != nil {
		return "", err
	}
	if current != nil && current.Status == target {
		return triagedomain.OutcomeDuplicate, nil
	}
	return triagedomain.OutcomeConflict, nil
}

func (d *ActionDispatcher) buildRule(n *triagedomain.Notification, scopeArg string) (*triagedomain.Suppression, error) {
	rule := &triagedomain.Suppression{
		ID:        uuid.New().String(),
		AccountID: n.AccountID,
	}
	switch scopeArg {
	case "", "sc":
		rule.Scope = triagedomain.ScopeSenderCategory
		rule.RuleValue = n.SenderKey
		rule.CategoryKey = string(n.Category)
	case "ss":
		rule.Scope = triagedomain.ScopeSender
		rule.RuleValue = n.SenderKey
	case "sd":
		rule.Scope = triagedomain.ScopeDomain
		rule.RuleValue = SenderDomain(n.SenderKey)
	default:
		return nil, fmt.Errorf("bad mute scope %q", scopeArg)
	}
	return rule, nil
}

// editAfterTerminal reduces the message to its post-action form. The record is
// already committed, so an edit failure is logged rather than surfaced.
func (d *ActionDispatcher) editAfterTerminal(ctx context.Context, n *triagedomain.Notification, account accountdomain.Runtime, label, undoTarget string) {
	text := telegram.FormatMessage(n.SenderName, n.SenderEmail, n.Summary, string(n.Category), telegram.MessageOptions{Status: label})
	openURL := telegram.BuildOpenURL(n.ThreadID, account.Email)
	keyboard := telegram.BuildOpenWithUndoKeyboard(openURL, telegram.UndoData(n.ID, undoTarget))
	if err := d.notifier.EditMessageText(ctx, n.TelegramChatID, n.TelegramMessageID, text, keyboard); err != nil {
		log.Printf("[Dispatcher] edit after %s failed for %s: %v", label, n.ID, err)
	}
}

func (d *ActionDispatcher) primaryKeyboard(n *triagedomain.Notification, account accountdomain.Runtime) *telegram.InlineKeyboardMarkup {
	openURL := telegram.BuildOpenURL(n.ThreadID, account.Email)
	includeCategories := n.Confidence < d.lowConfidence
	return telegram.BuildKeyboard(n.ID, openURL, includeCategories, triagedomain.CategoryNames())
}

func (d *ActionDispatcher) lockFor(notificationID string) *sync.Mutex {
	d.locksMu.Lock()
	defer d.locksMu.Unlock()
	lock, ok := d.locks[notificationID]
	if !ok {
		lock = &sync.Mutex{}
		d.locks[notificationID] = lock
	}
	return lock
}

func (d *ActionDispatcher) tokenSeen(token string) bool {
	d.tokenMu.Lock()
	defer d.tokenMu.Unlock()
	_, seen := d.seenTokens[token]
	return seen
}

func (d *ActionDispatcher) rememberToken(token string) {
	d.tokenMu.Lock()
	defer d.tokenMu.Unlock()
	if _, seen := d.seenTokens[token]; seen {
		return
	}
	d.seenTokens[token] = struct{}{}
	d.tokenOrder = append(d.tokenOrder, token)
	if len(d.tokenOrder) > tokenMemoryLimit {
		oldest := d.tokenOrder[0]
		d.tokenOrder = d.tokenOrder[1:]
		delete(d.seenTokens, oldest)
	}
}
