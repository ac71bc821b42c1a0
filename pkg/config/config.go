package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// AccountConfig is one watched mailbox and its OAuth refresh token. Tokens are
// configuration only and never persisted.
type AccountConfig struct {
	Email        string `json:"email"`
	RefreshToken string `json:"refresh_token"`
}

type Config struct {
	Port        string
	DatabaseURL string

	GoogleClientID     string
	GoogleClientSecret string
	GoogleProjectID    string
	GoogleCredentials  string

	PubSubSubscription string
	GmailWatchTopic    string
	GmailWatchLabelIDs []string
	Accounts           []AccountConfig

	AIProvider   string
	OpenAIAPIKey string
	OpenAIModel  string
	GeminiAPIKey string

	PriceInputPer1M       float64
	PriceCachedInputPer1M float64
	PriceOutputPer1M      float64

	LLMMaxInputTokens      int
	LowConfidenceThreshold float64

	TelegramBotToken       string
	TelegramWebhookSecret  string
	TelegramAllowedUserIDs []int64
}

// Load reads configuration from the environment (and .env if present).
// Required values missing is a startup error, not a runtime surprise.
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	cfg := &Config{
		Port:                  getEnv("APP_PORT", "8080"),
		DatabaseURL:           os.Getenv("DATABASE_URL"),
		GoogleClientID:        os.Getenv("GOOGLE_CLIENT_ID"),
		GoogleClientSecret:    os.Getenv("GOOGLE_CLIENT_SECRET"),
		GoogleProjectID:       os.Getenv("GOOGLE_PROJECT_ID"),
		GoogleCredentials:     os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"),
		PubSubSubscription:    os.Getenv("PUBSUB_SUBSCRIPTION"),
		GmailWatchTopic:       os.Getenv("GMAIL_WATCH_TOPIC"),
		AIProvider:            getEnv("AI_PROVIDER", "openai"),
		OpenAIAPIKey:          os.Getenv("OPENAI_API_KEY"),
		OpenAIModel:           getEnv("OPENAI_MODEL", "gpt-5-mini"),
		GeminiAPIKey:          os.Getenv("GEMINI_API_KEY"),
		TelegramBotToken:      os.Getenv("TELEGRAM_BOT_TOKEN"),
		TelegramWebhookSecret: strings.TrimSpace(os.Getenv("TELEGRAM_WEBHOOK_SECRET_TOKEN")),
	}

	cfg.GmailWatchLabelIDs = splitList(getEnv("GMAIL_WATCH_LABEL_IDS", "INBOX"))
	if len(cfg.GmailWatchLabelIDs) == 0 {
		return nil, fmt.Errorf("GMAIL_WATCH_LABEL_IDS cannot be empty")
	}

	accounts, err := ParseAccounts(os.Getenv("GMAIL_ACCOUNTS_JSON"))
	if err != nil {
		return nil, err
	}
	cfg.Accounts = accounts

	cfg.PriceInputPer1M = floatEnv("OPENAI_PRICE_INPUT_PER_1M", 0)
	cfg.PriceCachedInputPer1M = floatEnv("OPENAI_PRICE_CACHED_INPUT_PER_1M", 0)
	cfg.PriceOutputPer1M = floatEnv("OPENAI_PRICE_OUTPUT_PER_1M", 0)
	cfg.LLMMaxInputTokens = intEnv("LLM_MAX_INPUT_TOKENS", 12000)
	cfg.LowConfidenceThreshold = floatEnv("LLM_LOW_CONFIDENCE_THRESHOLD", 0.8)

	ids, err := parseInt64List(os.Getenv("TELEGRAM_ALLOWED_USER_IDS"))
	if err != nil {
		return nil, fmt.Errorf("TELEGRAM_ALLOWED_USER_IDS must be a comma-separated list of integers: %v", err)
	}
	cfg.TelegramAllowedUserIDs = ids

	for _, required := range []struct{ key, value string }{
		{"DATABASE_URL", cfg.DatabaseURL},
		{"GOOGLE_CLIENT_ID", cfg.GoogleClientID},
		{"GOOGLE_CLIENT_SECRET", cfg.GoogleClientSecret},
		{"GOOGLE_PROJECT_ID", cfg.GoogleProjectID},
		{"PUBSUB_SUBSCRIPTION", cfg.PubSubSubscription},
		{"GMAIL_WATCH_TOPIC", cfg.GmailWatchTopic},
		{"TELEGRAM_BOT_TOKEN", cfg.TelegramBotToken},
	} {
		if required.value == "" {
			return nil, fmt.Errorf("missing required environment variable: %s", required.key)
		}
	}

	return cfg, nil
}

// ParseAccounts decodes the GMAIL_ACCOUNTS_JSON payload.
func ParseAccounts(raw string) ([]AccountConfig, error) {
	if raw == "" {
		return nil, fmt.Errorf("missing required environment variable: GMAIL_ACCOUNTS_JSON")
	}
	var accounts []AccountConfig
	if err := json.Unmarshal([]byte(raw), &accounts); err != nil {
		return nil, fmt.Errorf("GMAIL_ACCOUNTS_JSON must be valid JSON: %v", err)
	}
	if len(accounts) == 0 {
		return nil, fmt.Errorf("GMAIL_ACCOUNTS_JSON must be a non-empty JSON array")
	}
	for _, account := range accounts {
		if account.Email == "" || account.RefreshToken == "" {
			return nil, fmt.Errorf("each account must include email and refresh_token")
		}
	}
	return accounts, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func floatEnv(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseFloat(value, 64); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func intEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func splitList(raw string) []string {
	var values []string
	for _, part := range strings.Split(raw, ",") {
		if item := strings.TrimSpace(part); item != "" {
			values = append(values, item)
		}
	}
	return values
}

func parseInt64List(raw string) ([]int64, error) {
	if raw == "" {
		return nil, nil
	}
	var values []int64
	for _, part := range strings.Split(raw, ",") {
		item := strings.TrimSpace(part)
		if item == "" {
			continue
		}
		parsed, err := strconv.ParseInt(item, 10, 64)
		if err != nil {
			return nil, err
		}
		values = append(values, parsed)
	}
	return values, nil
}
