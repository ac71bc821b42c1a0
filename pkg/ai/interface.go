package ai

import (
	"context"
	"errors"
)

// ErrMalformedOutput marks a provider response that came back but did not
// contain a parseable classification. Distinct from transport failures so the
// caller can degrade instead of retrying.
var ErrMalformedOutput = errors.New("malformed classifier output")

// Usage reports the token counts of one classification call.
type Usage struct {
	InputTokens       int64 `json:"input_tokens"`
	CachedInputTokens int64 `json:"cached_input_tokens"`
	OutputTokens      int64 `json:"output_tokens"`
}

// Classification is the raw provider output. Category is still an open string
// here; the triage layer coerces it onto the closed set and forces confidence
// down when it does not match.
type Classification struct {
	Category   string  `json:"category"`
	Confidence float64 `json:"confidence"`
	Summary    string  `json:"summary"`
	Usage      Usage   `json:"-"`
}

// Classifier is the interface for AI email classification.
// Implement this interface to add new AI providers (OpenAI, Gemini, etc.)
type Classifier interface {
	ClassifyEmail(ctx context.Context, emailText string, categories []string) (*Classification, error)
	Model() string
}

// ProviderType represents the AI provider type
type ProviderType string

const (
	ProviderOpenAI ProviderType = "openai"
	ProviderGemini ProviderType = "gemini"
	ProviderAuto   ProviderType = "auto"
)
