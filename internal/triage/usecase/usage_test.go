package usecase

import (
	"math"
	"testing"

	"mailsentry/pkg/ai"
)

func TestUsageRecordComputesCosts(t *testing.T) {
	usageRepo := &fakeUsageRepo{}
	accountant := NewUsageAccountant(usageRepo, Prices{
		InputPer1M:       1.25,
		CachedInputPer1M: 0.125,
		OutputPer1M:      10,
	})

	err := accountant.Record("acct-1", "gpt-5-mini", ai.Usage{
		InputTokens:       1_000_000,
		CachedInputTokens: 200_000,
		OutputTokens:      100_000,
	})
	if err != nil {
		t.Fatalf("Record failed: %v", err)
	}
	if len(usageRepo.entries) != 1 {
		t.Fatalf("expected one entry, got %d", len(usageRepo.entries))
	}
	entry := usageRepo.entries[0]
	if entry.AccountID != "acct-1" || entry.Model != "gpt-5-mini" {
		t.Fatalf("unexpected entry keys: %+v", entry)
	}
	// 800k billed input at 1.25, 200k cached at 0.125, 100k output at 10.
	if !closeTo(entry.InputCostUSD, 1.0) || !closeTo(entry.CachedInputCostUSD, 0.025) || !closeTo(entry.OutputCostUSD, 1.0) {
		t.Fatalf("unexpected costs: %+v", entry)
	}
	if !closeTo(entry.TotalCostUSD, 2.025) {
		t.Fatalf("unexpected total: %f", entry.TotalCostUSD)
	}
}

func TestUsageRecordZeroPrices(t *testing.T) {
	usageRepo := &fakeUsageRepo{}
	accountant := NewUsageAccountant(usageRepo, Prices{})

	if err := accountant.Record("acct-1", "m", ai.Usage{InputTokens: 500, OutputTokens: 100}); err != nil {
		t.Fatalf("Record failed: %v", err)
	}
	entry := usageRepo.entries[0]
	if entry.InputTokens != 500 || entry.OutputTokens != 100 {
		t.Fatalf("expected counts kept, got %+v", entry)
	}
	if entry.TotalCostUSD != 0 {
		t.Fatalf("expected zero cost without prices, got %f", entry.TotalCostUSD)
	}
}

func closeTo(got, want float64) bool {
	return math.Abs(got-want) < 1e-9
}
