package notify

import (
	"context"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	apperrors "github.com/dosewise/dosewise/internal/errors"
)

// TelegramSink delivers reminders to a Telegram chat, typically a relative
// or caregiver who wants to know about missed doses.
type TelegramSink struct {
	api    *tgbotapi.BotAPI
	chatID int64
	logger *zap.Logger
}

// NewTelegramSink connects the bot and targets chatID.
func NewTelegramSink(botToken string, chatID int64, logger *zap.Logger) (*TelegramSink, error) {
	api, err := tgbotapi.NewBotAPI(botToken)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrNotifyUnavailable.Code, "failed to connect telegram bot")
	}

	logger.Info("Telegram sink connected", zap.String("bot", api.Self.UserName))

	return &TelegramSink{api: api, chatID: chatID, logger: logger}, nil
}

// Name implements Sink.
func (s *TelegramSink) Name() string { return "telegram" }

// ScheduleReminder implements Sink.
func (s *TelegramSink) ScheduleReminder(ctx context.Context, medicineName, slotTime string) error {
	text := fmt.Sprintf("⏰ Reminder set: %s at %s, daily", medicineName, slotTime)
	return s.send(text)
}

// SendImmediate implements Sink.
func (s *TelegramSink) SendImmediate(ctx context.Context, title, body string) error {
	return s.send(fmt.Sprintf("*%s*\n%s", title, body))
}

func (s *TelegramSink) send(text string) error {
	msg := tgbotapi.NewMessage(s.chatID, text)
	msg.ParseMode = tgbotapi.ModeMarkdown
	if _, err := s.api.Send(msg); err != nil {
		return apperrors.Wrap(err, apperrors.ErrNotifyUnavailable.Code, "telegram send failed")
	}
	return nil
}
