package repository

import (
	triagedomain "mailsentry/internal/triage/domain"
)

// UsageRepository aggregates classifier token usage per account, model and day.
type UsageRepository interface {
	// AddDaily increments the day's counters, creating the row if needed.
	AddDaily(entry *triagedomain.UsageDaily) error

	// ListSince returns aggregates on or after the given date (YYYY-MM-DD).
	ListSince(usageDate string) ([]triagedomain.UsageDaily, error)
}

// AppStateRepository stores small explicitly-initialized runtime values.
type AppStateRepository interface {
	Get(key string) (string, error)
	Set(key, value string) error
}
