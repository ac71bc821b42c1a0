package usecase

import (
	"time"

	"github.com/google/uuid"

	triagedomain "mailsentry/internal/triage/domain"
	"mailsentry/internal/triage/repository"
	"mailsentry/pkg/ai"
)

// Prices are USD per one million tokens.
type Prices struct {
	InputPer1M       float64
	CachedInputPer1M float64
	OutputPer1M      float64
}

// UsageAccountant folds per-call token usage into the daily aggregate. Counts
// are always recorded; costs stay zero when no prices are configured.
type UsageAccountant struct {
	usageRepo repository.UsageRepository
	prices    Prices
}

// NewUsageAccountant creates a new UsageAccountant
func NewUsageAccountant(usageRepo repository.UsageRepository, prices Prices) *UsageAccountant {
	return &UsageAccountant{usageRepo: usageRepo, prices: prices}
}

// Record adds one classification call's usage to today's row for the account
// and model.
func (u *UsageAccountant) Record(accountID, model string, usage ai.Usage) error {
	// Billed input excludes the cached portion.
	billedInput := usage.InputTokens - usage.CachedInputTokens
	if billedInput < 0 {
		billedInput = 0
	}

	inputCost := float64(billedInput) * u.prices.InputPer1M / 1e6
	cachedCost := float64(usage.CachedInputTokens) * u.prices.CachedInputPer1M / 1e6
	outputCost := float64(usage.OutputTokens) * u.prices.OutputPer1M / 1e6

	return u.usageRepo.AddDaily(&triagedomain.UsageDaily{
		ID:                 uuid.New().String(),
		AccountID:          accountID,
		Model:              model,
		UsageDate:          time.Now().UTC().Format("2006-01-02"),
		InputTokens:        usage.InputTokens,
		CachedInputTokens:  usage.CachedInputTokens,
		OutputTokens:       usage.OutputTokens,
		InputCostUSD:       inputCost,
		CachedInputCostUSD: cachedCost,
		OutputCostUSD:      outputCost,
		TotalCostUSD:       inputCost + cachedCost + outputCost,
	})
}
