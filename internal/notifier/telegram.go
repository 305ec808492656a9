package notifier

import (
	"context"
	"fmt"
	"time"

	"github.com/go-telegram/bot"
	"golang.org/x/time/rate"

	"alert-escalation-service/internal/logging"
	"alert-escalation-service/internal/models"
	"alert-escalation-service/internal/utils"
)

// telegramSender delivers notifications through a shared bot, rate-limited
// across all users.
type telegramSender struct {
	bot     *bot.Bot
	limiter *rate.Limiter
	logger  *logging.Logger
}

func newTelegramSender(token string, ratePerSecond int, logger *logging.Logger) (*telegramSender, error) {
	b, err := bot.New(token)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Telegram bot: %w", err)
	}
	return &telegramSender{
		bot:     b,
		limiter: rate.NewLimiter(rate.Limit(float64(ratePerSecond)), ratePerSecond),
		logger:  logger,
	}, nil
}

func (t *telegramSender) send(ctx context.Context, n models.Notification, chatID int64) error {
	if err := t.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("telegram rate limit exceeded: %w", err)
	}

	text := fmt.Sprintf("*%s*\n%s", n.Title, n.Message)
	if n.Clear {
		text = fmt.Sprintf("✅ %s", n.Message)
	} else if n.SeverityLevel == models.SeverityUrgent {
		text = fmt.Sprintf("🚨 %s", text)
	}

	return utils.Retry(ctx, t.logger, 3, time.Second, func() error {
		params := &bot.SendMessageParams{
			ChatID:    chatID,
			Text:      text,
			ParseMode: "Markdown",
		}
		if _, err := t.bot.SendMessage(ctx, params); err != nil {
			return fmt.Errorf("failed to send Telegram message to chat_id %d: %w", chatID, err)
		}
		return nil
	})
}
