package watch

import (
	"context"
	"log"
	"time"

	accountdomain "mailsentry/internal/account/domain"
	accountrepo "mailsentry/internal/account/repository"
	"mailsentry/pkg/backoff"
	"mailsentry/pkg/gmail"
)

// Gmail expires a watch after seven days; renewing inside the last day keeps
// the registration continuous without re-registering on every pass.
const renewWindow = 24 * time.Hour

// Scheduler keeps the Gmail watch registration alive for every configured
// account. Accounts whose token refresh fails are held off with exponential
// backoff so a revoked token cannot hammer the token endpoint.
type Scheduler struct {
	accountRepo  accountrepo.AccountRepository
	gmailService *gmail.Service
	accounts     []accountdomain.Runtime
	topicName    string
	labelIDs     []string
	interval     time.Duration
	authBackoff  *backoff.Keyed
	stopChan     chan struct{}
}

// NewScheduler creates a new Scheduler
func NewScheduler(
	accountRepo accountrepo.AccountRepository,
	gmailService *gmail.Service,
	accounts []accountdomain.Runtime,
	topicName string,
	labelIDs []string,
) *Scheduler {
	return &Scheduler{
		accountRepo:  accountRepo,
		gmailService: gmailService,
		accounts:     accounts,
		topicName:    topicName,
		labelIDs:     labelIDs,
		interval:     15 * time.Minute,
		authBackoff:  backoff.NewKeyed(5*time.Minute, time.Hour),
		stopChan:     make(chan struct{}),
	}
}

// Start begins the renewal loop. The first pass runs immediately so a fresh
// deployment registers its watches without waiting a full interval.
func (s *Scheduler) Start() {
	log.Printf("[Watch] Starting watch renewal scheduler (interval: %s)", s.interval)

	go func() {
		s.renewAll()

		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				s.renewAll()
			case <-s.stopChan:
				log.Println("[Watch] Scheduler stopped")
				return
			}
		}
	}()
}

// Stop gracefully stops the scheduler
func (s *Scheduler) Stop() {
	close(s.stopChan)
}

func (s *Scheduler) renewAll() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	now := time.Now()
	for _, account := range s.accounts {
		if s.authBackoff.ShouldSkip(account.Email, now) {
			readyAt, _ := s.authBackoff.NextReadyAt(account.Email)
			log.Printf("[Watch] %s held off until %s after auth failure", account.Email, readyAt.Format(time.RFC3339))
			continue
		}
		s.renewAccount(ctx, account, now)
	}
}

func (s *Scheduler) renewAccount(ctx context.Context, account accountdomain.Runtime, now time.Time) {
	_, expiration, err := s.accountRepo.GetState(account.AccountID)
	if err != nil {
		log.Printf("[Watch] %s: reading watch state failed: %v", account.Email, err)
		return
	}
	if expiration != nil && expiration.Sub(now) > renewWindow {
		return
	}

	result, err := s.gmailService.Watch(ctx, account.RefreshToken, s.topicName, s.labelIDs)
	if err != nil {
		if s.gmailService.IsAuthError(err) {
			delay := s.authBackoff.RecordFailure(account.Email, now)
			log.Printf("[Watch] %s: auth failure, holding off %s: %v", account.Email, delay, err)
		} else {
			log.Printf("[Watch] %s: watch renewal failed: %v", account.Email, err)
		}
		return
	}
	s.authBackoff.Reset(account.Email)

	if err := s.accountRepo.UpdateWatchInfo(account.AccountID, result.HistoryID, &result.Expiration); err != nil {
		log.Printf("[Watch] %s: persisting watch info failed: %v", account.Email, err)
		return
	}
	log.Printf("[Watch] %s: watch renewed, expires %s", account.Email, result.Expiration.Format(time.RFC3339))
}
