package notificator

import (
	"context"
	"fmt"

	"github.com/go-telegram/bot"
	tgModels "github.com/go-telegram/bot/models"

	"github.com/vrsc-tipbot/tipbot/pkg/logger"
)

// TelegramAlerter posts operational warnings into an operators' Telegram chat.
type TelegramAlerter struct {
	logger *logger.Logger
	bot    *bot.Bot
	chatID string
}

func NewTelegramAlerter(logger *logger.Logger, token, chatID string) (*TelegramAlerter, error) {
	alerter := &TelegramAlerter{
		logger: logger,
		chatID: chatID,
	}
	opts := []bot.Option{
		bot.WithDefaultHandler(alerter.handler),
	}

	b, err := bot.New(token, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create telegram bot: %w", err)
	}
	alerter.bot = b

	return alerter, nil
}

// Start polls for updates until ctx is done.
func (t *TelegramAlerter) Start(ctx context.Context) {
	t.bot.Start(ctx)
}

func (t *TelegramAlerter) Alert(ctx context.Context, message string) {
	if t.chatID == "" {
		return
	}
	params := &bot.SendMessageParams{
		ChatID: t.chatID,
		Text:   "[tipbot] " + message,
	}
	if _, err := t.bot.SendMessage(ctx, params); err != nil {
		t.logger.Error("Failed to send alert", "error", err)
	}
}

// handler answers /start with the chat id, which is what TELEGRAM_OPS_CHAT_ID needs.
func (t *TelegramAlerter) handler(ctx context.Context, b *bot.Bot, update *tgModels.Update) {
	if update.Message == nil || update.Message.From == nil {
		return
	}
	t.logger.Debug("Telegram update", "username", update.Message.From.Username, "text", update.Message.Text)
	if update.Message.Text != "/start" {
		return
	}
	_, err := b.SendMessage(ctx, &bot.SendMessageParams{
		ChatID: update.Message.Chat.ID,
		Text:   fmt.Sprintf("Alerts for this chat are configured with TELEGRAM_OPS_CHAT_ID=%d", update.Message.Chat.ID),
	})
	if err != nil {
		t.logger.Error("Failed to answer /start", "error", err)
	}
}

// NopAlerter drops all alerts.
type NopAlerter struct{}

func (NopAlerter) Alert(context.Context, string) {}

// LogAlerter writes alerts to the log only.
type LogAlerter struct {
	Logger *logger.Logger
}

func (l LogAlerter) Alert(_ context.Context, message string) {
	l.Logger.Warn("Alert", "message", message)
}
