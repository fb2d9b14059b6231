package handlers

import (
	"fmt"
	"net/http"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/gin-gonic/gin"

	"intihelp/internal/logging"
	"intihelp/internal/services"
)

type IntegrationsHandler struct {
	TG    *services.TelegramService
	Users services.UserService
}

func NewIntegrationsHandler(tg *services.TelegramService, users services.UserService) *IntegrationsHandler {
	return &IntegrationsHandler{TG: tg, Users: users}
}

// POST /me/telegram
// Returns a one-time code the user sends to the bot as "/start <code>".
func (h *IntegrationsHandler) RequestTelegramLink(c *gin.Context) {
	sess, ok := session(c)
	if !ok {
		return
	}
	link, err := h.Users.CreateTelegramLink(c.Request.Context(), sess.UserID)
	if err != nil {
		respondError(c, "[tg][link]", err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"code":       link.Code,
		"expires_at": link.ExpiresAt,
		"command":    "/start " + link.Code,
	})
}

// linkCode extracts the code from "/start CODE" or a bare code.
func linkCode(text string) (string, bool) {
	fields := strings.Fields(text)
	switch {
	case len(fields) == 2 && strings.HasPrefix(fields[0], "/start"):
		return strings.ToUpper(fields[1]), true
	case len(fields) == 1 && !strings.HasPrefix(fields[0], "/"):
		return strings.ToUpper(fields[0]), true
	}
	return "", false
}

// POST /telegram/webhook
// Telegram retries on non-2xx, so every outcome answers 200.
func (h *IntegrationsHandler) Webhook(c *gin.Context) {
	var upd tgbotapi.Update
	if err := c.ShouldBindJSON(&upd); err != nil {
		logging.Warn("[tg][webhook][bind][err]", "error", err)
		c.Status(http.StatusOK)
		return
	}
	msg := upd.Message
	if msg == nil || msg.Chat == nil {
		c.Status(http.StatusOK)
		return
	}
	chatID := msg.Chat.ID

	code, ok := linkCode(msg.Text)
	if !ok {
		_ = h.TG.SendMessage(chatID, "Envía <code>/start CÓDIGO</code> con el código que obtuviste en tu perfil de IntiHelp.")
		c.Status(http.StatusOK)
		return
	}
	user, err := h.Users.LinkTelegram(c.Request.Context(), code, chatID)
	if err != nil {
		logging.Info("[tg][webhook][link][fail]", "chat_id", chatID, "error", err)
		_ = h.TG.SendMessage(chatID, "El código no es válido o expiró. Genera uno nuevo desde tu perfil.")
		c.Status(http.StatusOK)
		return
	}
	logging.Info("[tg][webhook][link][ok]", "chat_id", chatID, "user_id", user.ID)
	_ = h.TG.SendMessage(chatID, fmt.Sprintf("¡Listo, %s! Recibirás aquí las novedades de tus tareas.", user.FullName))
	c.Status(http.StatusOK)
}
