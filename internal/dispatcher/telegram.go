package dispatcher

import (
	"context"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"

	"github.com/gpwsignals/engine/internal/domain"
	"github.com/gpwsignals/engine/internal/errkind"
)

// TelegramChannel sends plain-text signal alerts over a bot token
// configured out-of-band (spec.md §4.9 "A bot token configured
// out-of-band"). A delivery is successful iff the API acknowledges with
// a message id, per spec.md §4.9.
type TelegramChannel struct {
	bot *tgbotapi.BotAPI
	log zerolog.Logger
}

func NewTelegramChannel(token string, log zerolog.Logger) (*TelegramChannel, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("telegram: init bot: %w", err)
	}
	return &TelegramChannel{bot: bot, log: log.With().Str("channel", "telegram").Logger()}, nil
}

func (c *TelegramChannel) Name() domain.NotificationChannel { return domain.ChannelTelegram }

func (c *TelegramChannel) Send(ctx context.Context, prefs domain.UserPreferences, sig domain.TradingSignal) error {
	if prefs.TelegramChatID == 0 {
		return errkind.AsInvariantViolation(fmt.Errorf("telegram: user %d has no chat id configured", prefs.UserID))
	}

	text, err := renderTelegram(sig)
	if err != nil {
		return fmt.Errorf("telegram: render message: %w", err)
	}

	msg := tgbotapi.NewMessage(prefs.TelegramChatID, text)
	sent, err := c.bot.Send(msg)
	if err != nil {
		return errkind.AsTransient(fmt.Errorf("telegram: send: %w", err))
	}
	if sent.MessageID == 0 {
		return errkind.AsTransient(fmt.Errorf("telegram: send acknowledged without a message id"))
	}
	return nil
}
