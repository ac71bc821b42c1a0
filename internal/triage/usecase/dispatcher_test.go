package usecase

import (
	"context"
	"fmt"
	"sync"
	"testing"

	accountdomain "mailsentry/internal/account/domain"
	triagedomain "mailsentry/internal/triage/domain"
)

type dispatcherFixture struct {
	dispatcher       *ActionDispatcher
	notificationRepo *fakeNotificationRepo
	suppressionRepo  *fakeSuppressionRepo
	mailbox          *fakeMailbox
	notifier         *fakeNotifier
}

func newDispatcherFixture() *dispatcherFixture {
	notificationRepo := newFakeNotificationRepo()
	suppressionRepo := &fakeSuppressionRepo{}
	mailbox := newFakeMailbox()
	notifier := &fakeNotifier{}
	account := testAccount()
	dispatcher := NewActionDispatcher(
		notificationRepo,
		suppressionRepo,
		mailbox,
		notifier,
		map[string]accountdomain.Runtime{account.AccountID: account},
		0.8,
	)
	return &dispatcherFixture{
		dispatcher:       dispatcher,
		notificationRepo: notificationRepo,
		suppressionRepo:  suppressionRepo,
		mailbox:          mailbox,
		notifier:         notifier,
	}
}

func (f *dispatcherFixture) seedNotified(id string) *triagedomain.Notification {
	n := &triagedomain.Notification{
		ID:                id,
		AccountID:         "acct-1",
		MessageID:         "msg-" + id,
		ThreadID:          "thread-" + id,
		SenderEmail:       "news@example.com",
		SenderKey:         "news@example.com",
		Category:          triagedomain.CategoryNewsletter,
		Confidence:        0.95,
		Status:            triagedomain.StatusNotified,
		TelegramChatID:    42,
		TelegramMessageID: 7,
	}
	f.notificationRepo.InsertPlaceholder(n)
	return n
}

func TestArchiveAppliesOnce(t *testing.T) {
	f := newDispatcherFixture()
	f.seedNotified("n1")

	outcome, err := f.dispatcher.Apply(context.Background(), "n1", triagedomain.ActionArchive, "", "cb-1")
	if err != nil {
		t.Fatalf("Apply failed: %v", err)
	}
	if outcome != triagedomain.OutcomeApplied {
		t.Fatalf("expected applied, got %s", outcome)
	}
	if len(f.mailbox.archived) != 1 || f.mailbox.archived[0] != "msg-n1" {
		t.Fatalf("expected one archive mutation, got %v", f.mailbox.archived)
	}
	if f.notificationRepo.mustGet("n1").Status != triagedomain.StatusArchived {
		t.Fatal("expected record archived")
	}
	if len(f.notifier.edits) != 1 {
		t.Fatalf("expected message edited once, got %d edits", len(f.notifier.edits))
	}
}

func TestArchiveReplayIsDuplicate(t *testing.T) {
	f := newDispatcherFixture()
	f.seedNotified("n1")

	if _, err := f.dispatcher.Apply(context.Background(), "n1", triagedomain.ActionArchive, "", "cb-1"); err != nil {
		t.Fatalf("first Apply failed: %v", err)
	}
	// Redelivered press with a fresh token still resolves at the record.
	outcome, err := f.dispatcher.Apply(context.Background(), "n1", triagedomain.ActionArchive, "", "cb-2")
	if err != nil {
		t.Fatalf("second Apply failed: %v", err)
	}
	if outcome != triagedomain.OutcomeDuplicate {
		t.Fatalf("expected duplicate, got %s", outcome)
	}
	if len(f.mailbox.archived) != 1 {
		t.Fatalf("expected exactly one mailbox mutation, got %d", len(f.mailbox.archived))
	}
}

func TestTokenReplayShortCircuits(t *testing.T) {
	f := newDispatcherFixture()
	f.seedNotified("n1")

	if _, err := f.dispatcher.Apply(context.Background(), "n1", triagedomain.ActionArchive, "", "cb-1"); err != nil {
		t.Fatalf("first Apply failed: %v", err)
	}
	outcome, err := f.dispatcher.Apply(context.Background(), "n1", triagedomain.ActionArchive, "", "cb-1")
	if err != nil {
		t.Fatalf("replay failed: %v", err)
	}
	if outcome != triagedomain.OutcomeDuplicate {
		t.Fatalf("expected duplicate on token replay, got %s", outcome)
	}
}

func TestArchiveAfterTrashIsConflict(t *testing.T) {
	f := newDispatcherFixture()
	n := f.seedNotified("n1")
	f.notificationRepo.records[n.ID].Status = triagedomain.StatusTrashed

	outcome, err := f.dispatcher.Apply(context.Background(), "n1", triagedomain.ActionArchive, "", "cb-1")
	if err != nil {
		t.Fatalf("Apply failed: %v", err)
	}
	if outcome != triagedomain.OutcomeConflict {
		t.Fatalf("expected conflict, got %s", outcome)
	}
	if len(f.mailbox.archived) != 0 {
		t.Fatal("expected no mailbox mutation on conflict")
	}
}

func TestTrashIsATwoStep(t *testing.T) {
	f := newDispatcherFixture()
	f.seedNotified("n1")

	outcome, err := f.dispatcher.Apply(context.Background(), "n1", triagedomain.ActionTrashPrompt, "", "cb-1")
	if err != nil {
		t.Fatalf("prompt failed: %v", err)
	}
	if outcome != triagedomain.OutcomeApplied {
		t.Fatalf("expected prompt applied, got %s", outcome)
	}
	if len(f.mailbox.trashed) != 0 {
		t.Fatal("prompt must not touch the mailbox")
	}
	if f.notificationRepo.mustGet("n1").Status != triagedomain.StatusNotified {
		t.Fatal("prompt must not change status")
	}
	if len(f.notifier.markupEdits) != 1 {
		t.Fatalf("expected keyboard swap, got %d markup edits", len(f.notifier.markupEdits))
	}

	outcome, err = f.dispatcher.Apply(context.Background(), "n1", triagedomain.ActionTrashConfirm, "", "cb-2")
	if err != nil {
		t.Fatalf("confirm failed: %v", err)
	}
	if outcome != triagedomain.OutcomeApplied {
		t.Fatalf("expected confirm applied, got %s", outcome)
	}
	if len(f.mailbox.trashed) != 1 {
		t.Fatalf("expected one trash mutation, got %d", len(f.mailbox.trashed))
	}
	if f.notificationRepo.mustGet("n1").Status != triagedomain.StatusTrashed {
		t.Fatal("expected record trashed")
	}

	// A replayed confirm must not trash twice.
	outcome, err = f.dispatcher.Apply(context.Background(), "n1", triagedomain.ActionTrashConfirm, "", "cb-3")
	if err != nil {
		t.Fatalf("replayed confirm failed: %v", err)
	}
	if outcome != triagedomain.OutcomeDuplicate || len(f.mailbox.trashed) != 1 {
		t.Fatalf("expected duplicate with one mutation, got %s with %d", outcome, len(f.mailbox.trashed))
	}
}

// Two confirms racing on the same record must reach the mailbox exactly once,
// not once each before the status settles.
func TestConcurrentTrashConfirmMutatesOnce(t *testing.T) {
	f := newDispatcherFixture()
	f.seedNotified("n1")

	outcomes := make([]triagedomain.Outcome, 2)
	var wg sync.WaitGroup
	for i := range outcomes {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			outcome, err := f.dispatcher.Apply(context.Background(), "n1", triagedomain.ActionTrashConfirm, "", fmt.Sprintf("cb-%d", i))
			if err != nil {
				t.Errorf("Apply failed: %v", err)
				return
			}
			outcomes[i] = outcome
		}(i)
	}
	wg.Wait()

	if len(f.mailbox.trashed) != 1 {
		t.Fatalf("expected exactly one trash mutation, got %d", len(f.mailbox.trashed))
	}
	applied, duplicates := 0, 0
	for _, outcome := range outcomes {
		switch outcome {
		case triagedomain.OutcomeApplied:
			applied++
		case triagedomain.OutcomeDuplicate:
			duplicates++
		}
	}
	if applied != 1 || duplicates != 1 {
		t.Fatalf("expected one applied and one duplicate, got %v", outcomes)
	}
}

func TestTrashCancelRestoresKeyboard(t *testing.T) {
	f := newDispatcherFixture()
	f.seedNotified("n1")

	outcome, err := f.dispatcher.Apply(context.Background(), "n1", triagedomain.ActionTrashCancel, "", "cb-1")
	if err != nil {
		t.Fatalf("cancel failed: %v", err)
	}
	if outcome != triagedomain.OutcomeApplied {
		t.Fatalf("expected applied, got %s", outcome)
	}
	if f.notificationRepo.mustGet("n1").Status != triagedomain.StatusNotified {
		t.Fatal("cancel must not change status")
	}
	if len(f.notifier.markupEdits) != 1 {
		t.Fatalf("expected keyboard restore, got %d markup edits", len(f.notifier.markupEdits))
	}
}

func TestNotInterestedCreatesRuleAndTransitions(t *testing.T) {
	f := newDispatcherFixture()
	f.seedNotified("n1")

	outcome, err := f.dispatcher.Apply(context.Background(), "n1", triagedomain.ActionNotInterested, "sc", "cb-1")
	if err != nil {
		t.Fatalf("Apply failed: %v", err)
	}
	if outcome != triagedomain.OutcomeApplied {
		t.Fatalf("expected applied, got %s", outcome)
	}
	if f.notificationRepo.mustGet("n1").Status != triagedomain.StatusNotInterested {
		t.Fatal("expected record not_interested")
	}
	if len(f.suppressionRepo.rules) != 1 {
		t.Fatalf("expected one rule, got %d", len(f.suppressionRepo.rules))
	}
	rule := f.suppressionRepo.rules[0]
	if rule.Scope != triagedomain.ScopeSenderCategory || rule.RuleValue != "news@example.com" || rule.CategoryKey != "Newsletter" {
		t.Fatalf("unexpected rule: %+v", rule)
	}
}

func TestNotInterestedDomainScope(t *testing.T) {
	f := newDispatcherFixture()
	f.seedNotified("n1")

	if _, err := f.dispatcher.Apply(context.Background(), "n1", triagedomain.ActionNotInterested, "sd", "cb-1"); err != nil {
		t.Fatalf("Apply failed: %v", err)
	}
	rule := f.suppressionRepo.rules[0]
	if rule.Scope != triagedomain.ScopeDomain || rule.RuleValue != "example.com" {
		t.Fatalf("unexpected domain rule: %+v", rule)
	}
}

func TestSetCategoryCorrectsInPlace(t *testing.T) {
	f := newDispatcherFixture()
	f.seedNotified("n1")

	// Finance sits at index 2 of the display order.
	outcome, err := f.dispatcher.Apply(context.Background(), "n1", triagedomain.ActionSetCategory, "2", "cb-1")
	if err != nil {
		t.Fatalf("Apply failed: %v", err)
	}
	if outcome != triagedomain.OutcomeApplied {
		t.Fatalf("expected applied, got %s", outcome)
	}
	stored := f.notificationRepo.mustGet("n1")
	if stored.Category != triagedomain.CategoryFinance {
		t.Fatalf("expected Finance, got %s", stored.Category)
	}
	if stored.Confidence != 1 {
		t.Fatalf("expected confidence 1 after correction, got %f", stored.Confidence)
	}
	if stored.Status != triagedomain.StatusNotified {
		t.Fatal("correction must not change status")
	}
}

func TestSetCategoryRejectsBadIndex(t *testing.T) {
	f := newDispatcherFixture()
	f.seedNotified("n1")

	if _, err := f.dispatcher.Apply(context.Background(), "n1", triagedomain.ActionSetCategory, "99", "cb-1"); err == nil {
		t.Fatal("expected out-of-range index to fail")
	}
}

func TestUndoArchiveRestoresNotified(t *testing.T) {
	f := newDispatcherFixture()
	f.seedNotified("n1")

	if _, err := f.dispatcher.Apply(context.Background(), "n1", triagedomain.ActionArchive, "", "cb-1"); err != nil {
		t.Fatalf("archive failed: %v", err)
	}
	outcome, err := f.dispatcher.Apply(context.Background(), "n1", triagedomain.ActionUndo, "a", "cb-2")
	if err != nil {
		t.Fatalf("undo failed: %v", err)
	}
	if outcome != triagedomain.OutcomeApplied {
		t.Fatalf("expected applied, got %s", outcome)
	}
	if len(f.mailbox.unarchived) != 1 {
		t.Fatalf("expected one unarchive, got %d", len(f.mailbox.unarchived))
	}
	if f.notificationRepo.mustGet("n1").Status != triagedomain.StatusNotified {
		t.Fatal("expected record back to notified")
	}
}

func TestUndoNotInterestedRemovesRule(t *testing.T) {
	f := newDispatcherFixture()
	f.seedNotified("n1")

	if _, err := f.dispatcher.Apply(context.Background(), "n1", triagedomain.ActionNotInterested, "sc", "cb-1"); err != nil {
		t.Fatalf("not-interested failed: %v", err)
	}
	if _, err := f.dispatcher.Apply(context.Background(), "n1", triagedomain.ActionUndo, "n", "cb-2"); err != nil {
		t.Fatalf("undo failed: %v", err)
	}
	if len(f.suppressionRepo.rules) != 0 {
		t.Fatalf("expected rule removed, got %d rules", len(f.suppressionRepo.rules))
	}
	if f.notificationRepo.mustGet("n1").Status != triagedomain.StatusNotified {
		t.Fatal("expected record back to notified")
	}
}

func TestUndoReplayIsDuplicate(t *testing.T) {
	f := newDispatcherFixture()
	f.seedNotified("n1")

	if _, err := f.dispatcher.Apply(context.Background(), "n1", triagedomain.ActionArchive, "", "cb-1"); err != nil {
		t.Fatalf("archive failed: %v", err)
	}
	if _, err := f.dispatcher.Apply(context.Background(), "n1", triagedomain.ActionUndo, "a", "cb-2"); err != nil {
		t.Fatalf("undo failed: %v", err)
	}
	outcome, err := f.dispatcher.Apply(context.Background(), "n1", triagedomain.ActionUndo, "a", "cb-3")
	if err != nil {
		t.Fatalf("replayed undo failed: %v", err)
	}
	if outcome != triagedomain.OutcomeDuplicate {
		t.Fatalf("expected duplicate, got %s", outcome)
	}
	if len(f.mailbox.unarchived) != 1 {
		t.Fatalf("expected one unarchive, got %d", len(f.mailbox.unarchived))
	}
}

func TestUndoWrongTargetIsConflict(t *testing.T) {
	f := newDispatcherFixture()
	f.seedNotified("n1")

	if _, err := f.dispatcher.Apply(context.Background(), "n1", triagedomain.ActionArchive, "", "cb-1"); err != nil {
		t.Fatalf("archive failed: %v", err)
	}
	outcome, err := f.dispatcher.Apply(context.Background(), "n1", triagedomain.ActionUndo, "t", "cb-2")
	if err != nil {
		t.Fatalf("undo failed: %v", err)
	}
	if outcome != triagedomain.OutcomeConflict {
		t.Fatalf("expected conflict undoing trash on an archived record, got %s", outcome)
	}
}

func TestUnknownNotificationIsNotFound(t *testing.T) {
	f := newDispatcherFixture()
	if _, err := f.dispatcher.Apply(context.Background(), "nope", triagedomain.ActionArchive, "", "cb-1"); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
