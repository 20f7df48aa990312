package notify

import (
	"context"
	"fmt"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"

	apperrors "github.com/dosewise/dosewise/internal/errors"
)

// DiscordSink delivers reminders to a Discord channel.
type DiscordSink struct {
	session   *discordgo.Session
	channelID string
	logger    *zap.Logger
}

// NewDiscordSink opens a Discord session targeting channelID.
func NewDiscordSink(token, channelID string, logger *zap.Logger) (*DiscordSink, error) {
	session, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrNotifyUnavailable.Code, "failed to create discord session")
	}
	if err := session.Open(); err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrNotifyUnavailable.Code, "failed to open discord session")
	}

	logger.Info("Discord sink connected", zap.String("channel_id", channelID))

	return &DiscordSink{session: session, channelID: channelID, logger: logger}, nil
}

// Close shuts down the Discord session.
func (s *DiscordSink) Close() error {
	return s.session.Close()
}

// Name implements Sink.
func (s *DiscordSink) Name() string { return "discord" }

// ScheduleReminder implements Sink.
func (s *DiscordSink) ScheduleReminder(ctx context.Context, medicineName, slotTime string) error {
	return s.send(fmt.Sprintf("⏰ Reminder set: %s at %s, daily", medicineName, slotTime))
}

// SendImmediate implements Sink.
func (s *DiscordSink) SendImmediate(ctx context.Context, title, body string) error {
	return s.send(fmt.Sprintf("**%s**\n%s", title, body))
}

func (s *DiscordSink) send(content string) error {
	if _, err := s.session.ChannelMessageSend(s.channelID, content); err != nil {
		return apperrors.Wrap(err, apperrors.ErrNotifyUnavailable.Code, "discord send failed")
	}
	return nil
}
