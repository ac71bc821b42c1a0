package usecase

import (
	"context"
	"errors"
	"log"

	accountdomain "mailsentry/internal/account/domain"
	accountrepo "mailsentry/internal/account/repository"
	"mailsentry/pkg/gmail"
)

// ChangeDiscovery turns a change notice into the ordered set of new message
// ids, recovering when the stored cursor has fallen outside the retained
// history window.
type ChangeDiscovery struct {
	accountRepo  accountrepo.AccountRepository
	mailbox      MailboxClient
	watchLabelID string
}

// NewChangeDiscovery creates a new ChangeDiscovery
func NewChangeDiscovery(accountRepo accountrepo.AccountRepository, mailbox MailboxClient, watchLabelID string) *ChangeDiscovery {
	return &ChangeDiscovery{
		accountRepo:  accountRepo,
		mailbox:      mailbox,
		watchLabelID: watchLabelID,
	}
}

// DiscoveryResult is one discovery pass. NewCursor is the cursor the caller
// commits after the batch is fully ingested; when Baselined or GapRecovered is
// set the cursor was already committed here and MessageIDs is empty.
type DiscoveryResult struct {
	MessageIDs   []string
	NewCursor    uint64
	Baselined    bool
	GapRecovered bool
}

// Discover lists the history delta since the stored cursor.
//
// First notice for an account establishes the baseline: the notified history
// id is committed and no backfill happens. A gone cursor (outside the server
// retention window) is recovered by re-baselining at the mailbox's current
// history id; the skipped interval is accepted as lost rather than guessed at.
func (d *ChangeDiscovery) Discover(ctx context.Context, account accountdomain.Runtime, notifiedHistoryID uint64) (*DiscoveryResult, error) {
	lastHistoryID, _, err := d.accountRepo.GetState(account.AccountID)
	if err != nil {
		return nil, err
	}

	if lastHistoryID == nil {
		if err := d.accountRepo.AdvanceCursor(account.AccountID, notifiedHistoryID); err != nil {
			return nil, err
		}
		log.Printf("[Discovery] %s: baseline established at %d", account.Email, notifiedHistoryID)
		return &DiscoveryResult{NewCursor: notifiedHistoryID, Baselined: true}, nil
	}

	result, err := d.mailbox.ListHistory(ctx, account.RefreshToken, *lastHistoryID, d.watchLabelID)
	if errors.Is(err, gmail.ErrHistoryGone) {
		latest, perr := d.mailbox.Profile(ctx, account.RefreshToken)
		if perr != nil {
			return nil, perr
		}
		if cerr := d.accountRepo.AdvanceCursor(account.AccountID, latest); cerr != nil {
			return nil, cerr
		}
		log.Printf("[Discovery] %s: cursor %d expired, re-baselined at %d", account.Email, *lastHistoryID, latest)
		return &DiscoveryResult{NewCursor: latest, GapRecovered: true}, nil
	}
	if err != nil {
		return nil, err
	}

	newCursor := result.HistoryID
	if newCursor == 0 {
		newCursor = *lastHistoryID
	}
	if notifiedHistoryID > newCursor {
		newCursor = notifiedHistoryID
	}
	return &DiscoveryResult{MessageIDs: result.MessageIDs, NewCursor: newCursor}, nil
}
