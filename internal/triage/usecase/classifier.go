package usecase

import (
	"context"
	"errors"
	"log"

	triagedomain "mailsentry/internal/triage/domain"
	"mailsentry/pkg/ai"
)

// ClassificationResult is a provider classification coerced onto the closed
// category set.
type ClassificationResult struct {
	Category   triagedomain.Category
	Confidence float64
	Summary    string
	Usage      ai.Usage
}

// ClassifierAdapter wraps a provider client and guarantees its output lands on
// the closed category set: unknown categories and unparseable output both
// degrade to CategoryOther with zero confidence, which routes the message
// through the low-confidence delivery path instead of dropping it.
type ClassifierAdapter struct {
	classifier ai.Classifier
}

// NewClassifierAdapter creates a new ClassifierAdapter
func NewClassifierAdapter(classifier ai.Classifier) *ClassifierAdapter {
	return &ClassifierAdapter{classifier: classifier}
}

// Model returns the provider model name for usage accounting.
func (a *ClassifierAdapter) Model() string {
	return a.classifier.Model()
}

// Classify runs the provider call. Only transport-level failures surface as
// errors; a malformed response is degraded, not retried.
func (a *ClassifierAdapter) Classify(ctx context.Context, emailText string) (*ClassificationResult, error) {
	raw, err := a.classifier.ClassifyEmail(ctx, emailText, triagedomain.CategoryNames())
	if errors.Is(err, ai.ErrMalformedOutput) {
		log.Printf("[Classifier] degraded to %s: %v", triagedomain.CategoryOther, err)
		return &ClassificationResult{
			Category:   triagedomain.CategoryOther,
			Confidence: 0,
			Summary:    "Summary unavailable.",
		}, nil
	}
	if err != nil {
		return nil, err
	}

	result := &ClassificationResult{
		Summary: raw.Summary,
		Usage:   raw.Usage,
	}

	category, known := triagedomain.ParseCategory(raw.Category)
	result.Category = category
	if !known {
		log.Printf("[Classifier] unknown category %q coerced to %s", raw.Category, category)
		result.Confidence = 0
		return result, nil
	}

	result.Confidence = raw.Confidence
	if result.Confidence < 0 {
		result.Confidence = 0
	}
	if result.Confidence > 1 {
		result.Confidence = 1
	}
	return result, nil
}
