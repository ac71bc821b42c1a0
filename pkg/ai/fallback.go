package ai

import (
	"context"
	"fmt"
	"log"
	"net"
	"strings"
)

// FallbackClassifier routes classification to a primary provider and falls
// back to a secondary on connection or quota errors.
type FallbackClassifier struct {
	primary   Classifier
	secondary Classifier
}

// NewFallbackClassifier creates a classifier that tries primary first.
func NewFallbackClassifier(primary, secondary Classifier) *FallbackClassifier {
	return &FallbackClassifier{
		primary:   primary,
		secondary: secondary,
	}
}

func (f *FallbackClassifier) Model() string {
	return f.primary.Model()
}

func (f *FallbackClassifier) ClassifyEmail(ctx context.Context, emailText string, categories []string) (*Classification, error) {
	result, err := f.primary.ClassifyEmail(ctx, emailText, categories)
	if err == nil {
		return result, nil
	}

	if isConnectionError(err) {
		log.Printf("[AI] Primary provider unreachable: %v, falling back to %s", err, f.secondary.Model())
	} else if isQuotaError(err) {
		log.Printf("[AI] Primary provider quota exhausted: %v, falling back to %s", err, f.secondary.Model())
	} else {
		log.Printf("[AI] Primary provider error: %v, falling back to %s", err, f.secondary.Model())
	}

	result, err = f.secondary.ClassifyEmail(ctx, emailText, categories)
	if err != nil {
		return nil, fmt.Errorf("fallback classification failed: %w", err)
	}
	return result, nil
}

// isConnectionError checks if the error is a network/connection error
func isConnectionError(err error) bool {
	if err == nil {
		return false
	}

	if _, ok := err.(net.Error); ok {
		return true
	}

	errStr := strings.ToLower(err.Error())
	connectionIndicators := []string{
		"connection refused",
		"no such host",
		"network is unreachable",
		"connection reset",
		"timeout",
		"dial tcp",
		"eof",
	}
	for _, indicator := range connectionIndicators {
		if strings.Contains(errStr, indicator) {
			return true
		}
	}
	return false
}

// isQuotaError checks if the error indicates API quota exhaustion (429)
func isQuotaError(err error) bool {
	if err == nil {
		return false
	}

	errStr := strings.ToLower(err.Error())
	quotaIndicators := []string{
		"429",
		"quota",
		"rate limit",
		"too many requests",
		"resource exhausted",
	}
	for _, indicator := range quotaIndicators {
		if strings.Contains(errStr, indicator) {
			return true
		}
	}
	return false
}
