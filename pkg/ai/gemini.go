package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// GeminiService classifies emails through the Gemini generateContent API with
// a JSON response schema.
type GeminiService struct {
	apiKey     string
	model      string
	httpClient *http.Client
}

func NewGeminiService(apiKey, model string) *GeminiService {
	if model == "" {
		model = "gemini-2.5-flash"
	}
	return &GeminiService{
		apiKey: apiKey,
		model:  model,
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
	}
}

func (g *GeminiService) Model() string {
	return g.model
}

func (g *GeminiService) ClassifyEmail(ctx context.Context, emailText string, categories []string) (*Classification, error) {
	url := fmt.Sprintf(
		"https://generativelanguage.googleapis.com/v1beta/models/%s:generateContent?key=%s",
		g.model, g.apiKey,
	)

	prompt := buildInstructions(categories) + "\nEMAIL:\n" + emailText

	payload := map[string]interface{}{
		"contents": []map[string]interface{}{
			{"parts": []map[string]string{{"text": prompt}}},
		},
		"generationConfig": map[string]interface{}{
			"responseMimeType": "application/json",
			"responseSchema": map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"category":   map[string]interface{}{"type": "string", "enum": categories},
					"confidence": map[string]interface{}{"type": "number"},
					"summary":    map[string]interface{}{"type": "string"},
				},
				"required": []string{"category", "confidence", "summary"},
			},
		},
	}

	body, _ := json.Marshal(payload)
	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewBuffer(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("Gemini API error: %s", string(respBody))
	}

	var parsed struct {
		Candidates []struct {
			Content struct {
				Parts []struct {
					Text string `json:"text"`
				} `json:"parts"`
			} `json:"content"`
		} `json:"candidates"`
		UsageMetadata struct {
			PromptTokenCount     int64 `json:"promptTokenCount"`
			CachedContentTokens  int64 `json:"cachedContentTokenCount"`
			CandidatesTokenCount int64 `json:"candidatesTokenCount"`
		} `json:"usageMetadata"`
	}
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return nil, err
	}

	if len(parsed.Candidates) == 0 || len(parsed.Candidates[0].Content.Parts) == 0 {
		return nil, fmt.Errorf("%w: no candidates", ErrMalformedOutput)
	}

	var result Classification
	if err := json.Unmarshal([]byte(parsed.Candidates[0].Content.Parts[0].Text), &result); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedOutput, err)
	}
	result.Usage = Usage{
		InputTokens:       parsed.UsageMetadata.PromptTokenCount,
		CachedInputTokens: parsed.UsageMetadata.CachedContentTokens,
		OutputTokens:      parsed.UsageMetadata.CandidatesTokenCount,
	}
	return &result, nil
}
