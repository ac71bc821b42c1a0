package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"mailsentry/internal/triage/delivery"
)

func SetupRoutes(r *gin.Engine, telegramHandler *delivery.TelegramHandler, usageHandler *delivery.UsageHandler) {
	// Webhook path is registered with the bot API; authentication happens via
	// the secret token header inside the handler.
	r.POST("/telegram/webhook", telegramHandler.HandleWebhook)

	api := r.Group("/api")
	{
		api.GET("/health", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"status": "ok"})
		})

		api.GET("/usage", usageHandler.GetUsage)
	}
}
