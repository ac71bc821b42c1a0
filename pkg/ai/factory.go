package ai

import (
	"fmt"
)

// Config holds AI provider configuration
type Config struct {
	Provider ProviderType // "openai", "gemini" or "auto"

	// OpenAI config
	OpenAIAPIKey string
	OpenAIModel  string

	// Gemini config
	GeminiAPIKey string
}

// NewClassifier creates a Classifier based on the config.
// This is the factory function - switch AI provider by changing cfg.Provider.
func NewClassifier(cfg Config) (Classifier, error) {
	switch cfg.Provider {
	case ProviderOpenAI:
		if cfg.OpenAIAPIKey == "" {
			return nil, fmt.Errorf("OPENAI_API_KEY is required for OpenAI provider")
		}
		return NewOpenAIService(cfg.OpenAIAPIKey, cfg.OpenAIModel), nil

	case ProviderGemini:
		if cfg.GeminiAPIKey == "" {
			return nil, fmt.Errorf("GEMINI_API_KEY is required for Gemini provider")
		}
		return NewGeminiService(cfg.GeminiAPIKey, ""), nil

	case ProviderAuto:
		if cfg.OpenAIAPIKey != "" && cfg.GeminiAPIKey != "" {
			primary := NewOpenAIService(cfg.OpenAIAPIKey, cfg.OpenAIModel)
			secondary := NewGeminiService(cfg.GeminiAPIKey, "")
			return NewFallbackClassifier(primary, secondary), nil
		}
		fallthrough

	default:
		// Default to whichever provider has an API key configured
		if cfg.OpenAIAPIKey != "" {
			return NewOpenAIService(cfg.OpenAIAPIKey, cfg.OpenAIModel), nil
		}
		if cfg.GeminiAPIKey != "" {
			return NewGeminiService(cfg.GeminiAPIKey, ""), nil
		}
		return nil, fmt.Errorf("no AI provider configured")
	}
}
