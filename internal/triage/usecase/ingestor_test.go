package usecase

import (
	"context"
	"strings"
	"testing"

	triagedomain "mailsentry/internal/triage/domain"
	"mailsentry/pkg/gmail"
)

func TestIngestClaimsAndFetches(t *testing.T) {
	notificationRepo := newFakeNotificationRepo()
	mailbox := newFakeMailbox()
	mailbox.messages["m1"] = &triagedomain.Message{
		ID:          "m1",
		ThreadID:    "t1",
		SenderEmail: "News+weekly@Example.com",
		SenderName:  "Acme News",
		Subject:     "This week",
		BodyText:    "Body text here.",
	}
	ingestor := NewMessageIngestor(notificationRepo, mailbox, 12000)

	result, err := ingestor.Ingest(context.Background(), testAccount(), "m1", 180)
	if err != nil {
		t.Fatalf("Ingest failed: %v", err)
	}
	if result.Duplicate || result.Missing {
		t.Fatal("expected a fresh ingest")
	}
	n := result.Notification
	if n.Status != triagedomain.StatusPending {
		t.Fatalf("expected pending record, got %s", n.Status)
	}
	if n.SenderKey != "news@example.com" {
		t.Fatalf("expected normalized sender key, got %q", n.SenderKey)
	}
	if n.ThreadID != "t1" || n.HistoryID != 180 {
		t.Fatalf("unexpected record fields: thread=%q history=%d", n.ThreadID, n.HistoryID)
	}
	if !strings.Contains(result.EmailText, "Subject: This week") || !strings.Contains(result.EmailText, "Body text here.") {
		t.Fatalf("unexpected classifier input: %q", result.EmailText)
	}
}

func TestIngestSecondDiscoveryIsNoOp(t *testing.T) {
	notificationRepo := newFakeNotificationRepo()
	mailbox := newFakeMailbox()
	mailbox.messages["m1"] = &triagedomain.Message{ID: "m1", SenderEmail: "a@b.c"}
	ingestor := NewMessageIngestor(notificationRepo, mailbox, 12000)

	first, err := ingestor.Ingest(context.Background(), testAccount(), "m1", 180)
	if err != nil {
		t.Fatalf("first Ingest failed: %v", err)
	}
	first.Notification.Status = triagedomain.StatusNotified
	if err := notificationRepo.UpdateDetails(first.Notification); err != nil {
		t.Fatalf("UpdateDetails failed: %v", err)
	}

	result, err := ingestor.Ingest(context.Background(), testAccount(), "m1", 200)
	if err != nil {
		t.Fatalf("second Ingest failed: %v", err)
	}
	if !result.Duplicate {
		t.Fatal("expected duplicate on second discovery of a delivered message")
	}
	if len(notificationRepo.records) != 1 {
		t.Fatalf("expected exactly one record, got %d", len(notificationRepo.records))
	}
}

func TestIngestResumesStrandedPendingRecord(t *testing.T) {
	notificationRepo := newFakeNotificationRepo()
	mailbox := newFakeMailbox()
	mailbox.getErr["m1"] = context.DeadlineExceeded
	ingestor := NewMessageIngestor(notificationRepo, mailbox, 12000)

	if _, err := ingestor.Ingest(context.Background(), testAccount(), "m1", 180); err == nil {
		t.Fatal("expected a transient fetch error")
	}
	stranded := notificationRepo.byMessage("acct-1", "m1")
	if stranded == nil || stranded.Status != triagedomain.StatusPending {
		t.Fatalf("expected a pending record after the failure, got %+v", stranded)
	}

	delete(mailbox.getErr, "m1")
	mailbox.messages["m1"] = &triagedomain.Message{
		ID:          "m1",
		ThreadID:    "t1",
		SenderEmail: "a@b.c",
		Subject:     "Hello",
		BodyText:    "Body.",
	}

	result, err := ingestor.Ingest(context.Background(), testAccount(), "m1", 180)
	if err != nil {
		t.Fatalf("retry Ingest failed: %v", err)
	}
	if result.Duplicate || result.Missing {
		t.Fatalf("expected the pending record to be resumed, got %+v", result)
	}
	if result.Notification.ID != stranded.ID {
		t.Fatalf("expected the existing record to be reused, got %s vs %s", result.Notification.ID, stranded.ID)
	}
	if result.Notification.ThreadID != "t1" || result.EmailText == "" {
		t.Fatal("expected the resumed record to carry the fetched content")
	}
	if len(notificationRepo.records) != 1 {
		t.Fatalf("expected exactly one record, got %d", len(notificationRepo.records))
	}
}

func TestIngestGoneMessageClosesAsMissing(t *testing.T) {
	notificationRepo := newFakeNotificationRepo()
	mailbox := newFakeMailbox()
	mailbox.getErr["m1"] = gmail.ErrMessageGone
	ingestor := NewMessageIngestor(notificationRepo, mailbox, 12000)

	result, err := ingestor.Ingest(context.Background(), testAccount(), "m1", 180)
	if err != nil {
		t.Fatalf("Ingest failed: %v", err)
	}
	if !result.Missing {
		t.Fatal("expected missing result")
	}
	stored := notificationRepo.byMessage("acct-1", "m1")
	if stored == nil || stored.Status != triagedomain.StatusMissing {
		t.Fatalf("expected stored record closed as missing, got %+v", stored)
	}
}

func TestIngestTransientFailureKeepsPendingRecord(t *testing.T) {
	notificationRepo := newFakeNotificationRepo()
	mailbox := newFakeMailbox()
	mailbox.getErr["m1"] = context.DeadlineExceeded
	ingestor := NewMessageIngestor(notificationRepo, mailbox, 12000)

	if _, err := ingestor.Ingest(context.Background(), testAccount(), "m1", 180); err == nil {
		t.Fatal("expected a transient fetch error")
	}
	stored := notificationRepo.byMessage("acct-1", "m1")
	if stored == nil || stored.Status != triagedomain.StatusPending {
		t.Fatalf("expected pending record to survive the failure, got %+v", stored)
	}
}

func TestIngestCapsClassifierInput(t *testing.T) {
	notificationRepo := newFakeNotificationRepo()
	mailbox := newFakeMailbox()
	mailbox.messages["m1"] = &triagedomain.Message{
		ID:          "m1",
		SenderEmail: "a@b.c",
		BodyText:    strings.Repeat("x", 10000),
	}
	ingestor := NewMessageIngestor(notificationRepo, mailbox, 100)

	result, err := ingestor.Ingest(context.Background(), testAccount(), "m1", 180)
	if err != nil {
		t.Fatalf("Ingest failed: %v", err)
	}
	if len(result.EmailText) > 100*bytesPerToken {
		t.Fatalf("expected input capped at %d bytes, got %d", 100*bytesPerToken, len(result.EmailText))
	}
}
