package delivery

import (
	"log"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	triagedomain "mailsentry/internal/triage/domain"
	"mailsentry/internal/triage/repository"
	"mailsentry/internal/triage/usecase"
	"mailsentry/pkg/telegram"
)

const secretTokenHeader = "X-Telegram-Bot-Api-Secret-Token"

// TelegramHandler receives bot webhook updates: the /start registration
// command and button presses, which it translates into dispatcher actions.
type TelegramHandler struct {
	dispatcher     *usecase.ActionDispatcher
	client         *telegram.Client
	appStateRepo   repository.AppStateRepository
	webhookSecret  string
	allowedUserIDs map[int64]struct{}
}

// NewTelegramHandler creates a new TelegramHandler
func NewTelegramHandler(
	dispatcher *usecase.ActionDispatcher,
	client *telegram.Client,
	appStateRepo repository.AppStateRepository,
	webhookSecret string,
	allowedUserIDs []int64,
) *TelegramHandler {
	allowed := make(map[int64]struct{}, len(allowedUserIDs))
	for _, id := range allowedUserIDs {
		allowed[id] = struct{}{}
	}
	if len(allowed) == 0 {
		log.Println("[Webhook] no user allowlist configured, accepting updates from any user")
	}
	return &TelegramHandler{
		dispatcher:     dispatcher,
		client:         client,
		appStateRepo:   appStateRepo,
		webhookSecret:  webhookSecret,
		allowedUserIDs: allowed,
	}
}

// HandleWebhook is the single bot webhook endpoint. It always answers 200 for
// authenticated requests: Telegram retries non-200 responses, and the callback
// query id already makes a retried action a duplicate.
func (h *TelegramHandler) HandleWebhook(c *gin.Context) {
	if h.webhookSecret != "" && c.GetHeader(secretTokenHeader) != h.webhookSecret {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "bad secret token"})
		return
	}

	var update telegram.Update
	if err := c.ShouldBindJSON(&update); err != nil {
		c.JSON(http.StatusOK, gin.H{"ok": true})
		return
	}

	switch {
	case update.CallbackQuery != nil:
		h.handleCallback(c, update.CallbackQuery)
	case update.Message != nil:
		h.handleMessage(c, update.Message)
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func (h *TelegramHandler) handleMessage(c *gin.Context, msg *telegram.Message) {
	if msg.From == nil || !h.userAllowed(msg.From.ID) {
		return
	}

	if strings.HasPrefix(strings.TrimSpace(msg.Text), "/start") {
		chatID := strconv.FormatInt(msg.Chat.ID, 10)
		if err := h.appStateRepo.Set(usecase.ChatStateKey, chatID); err != nil {
			log.Printf("[Webhook] registering chat %s failed: %v", chatID, err)
			return
		}
		log.Printf("[Webhook] notification chat registered: %s", chatID)
		if err := h.client.SendChatMessage(c.Request.Context(), msg.Chat.ID, "Registered. New mail notifications will arrive here."); err != nil {
			log.Printf("[Webhook] registration reply failed: %v", err)
		}
	}
}

func (h *TelegramHandler) handleCallback(c *gin.Context, cb *telegram.CallbackQuery) {
	ctx := c.Request.Context()

	// Stop the client spinner regardless of what the press amounts to.
	defer func() {
		if err := h.client.AnswerCallbackQuery(ctx, cb.ID); err != nil {
			log.Printf("[Webhook] answering callback failed: %v", err)
		}
	}()

	if !h.userAllowed(cb.From.ID) {
		return
	}

	op, notificationID, arg, ok := parseCallbackData(cb.Data)
	if !ok {
		log.Printf("[Webhook] unparseable callback data %q", cb.Data)
		return
	}

	// The mute-scope picker is a pure keyboard swap, no record state changes
	// until a scope is chosen.
	if op == "n" {
		if cb.Message == nil {
			return
		}
		if err := h.client.EditMessageReplyMarkup(ctx, cb.Message.Chat.ID, cb.Message.MessageID, telegram.BuildNotInterestedPicker(notificationID)); err != nil {
			log.Printf("[Webhook] showing mute picker failed: %v", err)
		}
		return
	}

	action, ok := actionFor(op)
	if !ok {
		log.Printf("[Webhook] unknown callback op %q", op)
		return
	}

	outcome, err := h.dispatcher.Apply(ctx, notificationID, action, arg, cb.ID)
	if err != nil {
		log.Printf("[Webhook] %s on %s failed: %v", action, notificationID, err)
		return
	}
	if outcome != triagedomain.OutcomeApplied {
		log.Printf("[Webhook] %s on %s: %s", action, notificationID, outcome)
	}
}

// userAllowed checks the configured allowlist. An empty allowlist means the
// optional TELEGRAM_ALLOWED_USER_IDS setting was omitted and every user is
// accepted; the webhook secret remains the only gate in that case.
func (h *TelegramHandler) userAllowed(userID int64) bool {
	if len(h.allowedUserIDs) == 0 {
		return true
	}
	_, ok := h.allowedUserIDs[userID]
	return ok
}

// parseCallbackData splits "<op>:<notification-id>[:<arg>]".
func parseCallbackData(data string) (op, notificationID, arg string, ok bool) {
	parts := strings.SplitN(data, ":", 3)
	if len(parts) < 2 || parts[0] == "" || parts[1] == "" {
		return "", "", "", false
	}
	op = parts[0]
	notificationID = parts[1]
	if len(parts) == 3 {
		arg = parts[2]
	}
	return op, notificationID, arg, true
}

func actionFor(op string) (triagedomain.Action, bool) {
	switch op {
	case "a":
		return triagedomain.ActionArchive, true
	case "t":
		return triagedomain.ActionTrashPrompt, true
	case "tc":
		return triagedomain.ActionTrashConfirm, true
	case "tcan", "ncan":
		// Both cancel a prompt by restoring the primary keyboard.
		return triagedomain.ActionTrashCancel, true
	case "ns":
		return triagedomain.ActionNotInterested, true
	case "c":
		return triagedomain.ActionSetCategory, true
	case "u":
		return triagedomain.ActionUndo, true
	}
	return "", false
}
