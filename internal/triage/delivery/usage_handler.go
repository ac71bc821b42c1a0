package delivery

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"mailsentry/internal/triage/repository"
)

// UsageHandler exposes the classifier spend aggregates.
type UsageHandler struct {
	usageRepo repository.UsageRepository
}

// NewUsageHandler creates a new UsageHandler
func NewUsageHandler(usageRepo repository.UsageRepository) *UsageHandler {
	return &UsageHandler{usageRepo: usageRepo}
}

// GetUsage returns the per-day aggregates for the last N days (default 30).
func (h *UsageHandler) GetUsage(c *gin.Context) {
	days := 30
	if raw := c.Query("days"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "days must be a positive integer"})
			return
		}
		days = parsed
	}

	since := time.Now().UTC().AddDate(0, 0, -(days - 1)).Format("2006-01-02")
	entries, err := h.usageRepo.ListSince(since)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load usage"})
		return
	}

	var totalCost float64
	for _, entry := range entries {
		totalCost += entry.TotalCostUSD
	}

	c.JSON(http.StatusOK, gin.H{
		"since":          since,
		"days":           days,
		"total_cost_usd": totalCost,
		"entries":        entries,
	})
}
