package api

import (
	"github.com/gin-gonic/gin"

	"mailsentry/internal/triage/delivery"
)

type Handler struct {
	telegramHandler *delivery.TelegramHandler
	usageHandler    *delivery.UsageHandler
}

func NewHandler(telegramHandler *delivery.TelegramHandler, usageHandler *delivery.UsageHandler) *Handler {
	return &Handler{
		telegramHandler: telegramHandler,
		usageHandler:    usageHandler,
	}
}

func (h *Handler) Start(addr string) error {
	gin.SetMode(gin.ReleaseMode)
	r := gin.Default()

	SetupRoutes(r, h.telegramHandler, h.usageHandler)

	return r.Run(addr)
}
