package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const openAIResponsesURL = "https://api.openai.com/v1/responses"

// OpenAIService classifies emails through the OpenAI responses API with a
// strict JSON schema, so the output either parses or the call fails.
type OpenAIService struct {
	apiKey     string
	model      string
	httpClient *http.Client
}

func NewOpenAIService(apiKey, model string) *OpenAIService {
	return &OpenAIService{
		apiKey: apiKey,
		model:  model,
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
	}
}

func (s *OpenAIService) Model() string {
	return s.model
}

func (s *OpenAIService) ClassifyEmail(ctx context.Context, emailText string, categories []string) (*Classification, error) {
	instructions := buildInstructions(categories)

	schema := map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"category":   map[string]interface{}{"type": "string", "enum": categories},
			"confidence": map[string]interface{}{"type": "number"},
			"summary":    map[string]interface{}{"type": "string"},
		},
		"required":             []string{"category", "confidence", "summary"},
		"additionalProperties": false,
	}

	payload := map[string]interface{}{
		"model":        s.model,
		"instructions": instructions,
		"input":        emailText,
		"text": map[string]interface{}{
			"format": map[string]interface{}{
				"type":   "json_schema",
				"name":   "email_summary",
				"schema": schema,
				"strict": true,
			},
		},
	}

	body, _ := json.Marshal(payload)
	req, err := http.NewRequestWithContext(ctx, "POST", openAIResponsesURL, bytes.NewBuffer(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.apiKey)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("OpenAI API error: %s", string(respBody))
	}

	var parsed openAIResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return nil, err
	}

	outputText := parsed.outputText()
	if outputText == "" {
		return nil, fmt.Errorf("%w: no output text", ErrMalformedOutput)
	}

	var result Classification
	if err := json.Unmarshal([]byte(outputText), &result); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedOutput, err)
	}
	result.Usage = Usage{
		InputTokens:       parsed.Usage.InputTokens,
		CachedInputTokens: parsed.Usage.InputTokensDetails.CachedTokens,
		OutputTokens:      parsed.Usage.OutputTokens,
	}
	return &result, nil
}

type openAIResponse struct {
	Output []struct {
		Type    string `json:"type"`
		Content []struct {
			Type string `json:"type"`
			Text string `json:"text"`
		} `json:"content"`
	} `json:"output"`
	Usage struct {
		InputTokens        int64 `json:"input_tokens"`
		InputTokensDetails struct {
			CachedTokens int64 `json:"cached_tokens"`
		} `json:"input_tokens_details"`
		OutputTokens int64 `json:"output_tokens"`
	} `json:"usage"`
}

func (r *openAIResponse) outputText() string {
	for _, item := range r.Output {
		if item.Type != "message" {
			continue
		}
		for _, content := range item.Content {
			if content.Type == "output_text" && content.Text != "" {
				return content.Text
			}
		}
	}
	return ""
}

func buildInstructions(categories []string) string {
	var b strings.Builder
	b.WriteString("You are a concise personal email assistant. Summarize the email and classify it.\n")
	b.WriteString("Tone: calm, confident, minimal, and helpful. No greetings, no fluff, no emojis.\n")
	b.WriteString("Focus only on the core, user-relevant information. Strip boilerplate like unsubscribe, ")
	b.WriteString("marketing footers, social links, legal disclaimers, and tracking text.\n")
	b.WriteString("Prefer 1 sentence; 2 sentences max. Use short, direct sentences.\n")
	b.WriteString("For statements/bills: include statement type, amount due, minimum payment, and due date when present.\n")
	b.WriteString("For alerts: state what happened and what you should do (if anything).\n")
	b.WriteString("If the email is purely marketing with no actionable info, say so briefly.\n")
	b.WriteString("Return strict JSON that matches the provided schema.\n")
	b.WriteString("Use one of the provided categories and set confidence between 0 and 1.\n")
	b.WriteString("Categories:\n")
	for _, category := range categories {
		b.WriteString("- " + category + "\n")
	}
	return b.String()
}
