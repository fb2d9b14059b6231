package services

import (
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"intihelp/internal/logging"
)

// TelegramService wraps the bot client. A zero or nil service silently skips
// every call, so callers never need to check whether the bot is configured.
type TelegramService struct {
	bot *tgbotapi.BotAPI
}

func NewTelegramService(botToken string) (*TelegramService, error) {
	if botToken == "" {
		return &TelegramService{}, nil
	}
	bot, err := tgbotapi.NewBotAPI(botToken)
	if err != nil {
		return &TelegramService{}, fmt.Errorf("telegram bot: %w", err)
	}
	logging.Info("[tg] bot authorized", "username", bot.Self.UserName)
	return &TelegramService{bot: bot}, nil
}

func (t *TelegramService) Enabled() bool {
	return t != nil && t.bot != nil
}

func (t *TelegramService) SendMessage(chatID int64, text string) error {
	if !t.Enabled() || chatID == 0 {
		logging.Debug("[tg][skip] bot disabled or chat not linked", "chat_id", chatID)
		return nil
	}
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	msg.DisableWebPagePreview = true
	if _, err := t.bot.Send(msg); err != nil {
		logging.Warn("[tg][send][err]", "chat_id", chatID, "error", err)
		return err
	}
	return nil
}

func (t *TelegramService) SetWebhook(url string) error {
	if !t.Enabled() || url == "" {
		return nil
	}
	wh, err := tgbotapi.NewWebhook(url)
	if err != nil {
		return err
	}
	if _, err := t.bot.Request(wh); err != nil {
		return fmt.Errorf("set webhook: %w", err)
	}
	logging.Info("[tg][setWebhook] ok", "url", url)
	return nil
}
