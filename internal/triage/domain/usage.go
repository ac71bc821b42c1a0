package domain

import "time"

// UsageDaily aggregates classifier token usage and cost per account, model and
// day. Rows are append/increment only.
type UsageDaily struct {
	ID                 string    `json:"id" gorm:"primaryKey"`
	AccountID          string    `json:"account_id" gorm:"index:idx_usage_day,unique;not null"`
	Model              string    `json:"model" gorm:"index:idx_usage_day,unique;not null"`
	UsageDate          string    `json:"usage_date" gorm:"index:idx_usage_day,unique;not null"` // YYYY-MM-DD
	InputTokens        int64     `json:"input_tokens"`
	CachedInputTokens  int64     `json:"cached_input_tokens"`
	OutputTokens       int64     `json:"output_tokens"`
	InputCostUSD       float64   `json:"input_cost_usd"`
	CachedInputCostUSD float64   `json:"cached_input_cost_usd"`
	OutputCostUSD      float64   `json:"output_cost_usd"`
	TotalCostUSD       float64   `json:"total_cost_usd"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}

func (UsageDaily) TableName() string {
	return "usage_daily"
}
