package notifier

import (
	"context"
	"errors"

	"alert-escalation-service/internal/config"
	"alert-escalation-service/internal/db"
	"alert-escalation-service/internal/logging"
	"alert-escalation-service/internal/models"
)

// ChatLookup resolves a user's registered Telegram chat.
type ChatLookup interface {
	GetTelegramChatID(ctx context.Context, userID int) (int64, error)
}

// Dispatcher fans a notification out to every channel registered for the
// user: live WebSocket push plus Telegram when a chat is on file. It owns
// its transport failures; callers only learn which channels delivered.
type Dispatcher struct {
	ws       *WebSocketManager
	telegram *telegramSender
	chats    ChatLookup
	logger   *logging.Logger
}

func NewDispatcher(ws *WebSocketManager, chats ChatLookup, logger *logging.Logger, cfg config.Config) *Dispatcher {
	d := &Dispatcher{ws: ws, chats: chats, logger: logger}
	if cfg.Notification.TelegramBotToken != "" {
		sender, err := newTelegramSender(cfg.Notification.TelegramBotToken, cfg.Notification.TelegramRateLimit, logger)
		if err != nil {
			logger.Errorf("Telegram channel disabled: %v", err)
		} else {
			d.telegram = sender
		}
	}
	return d
}

// Dispatch delivers the notification and returns the channels that carried
// it. An error is returned only when every attempted channel failed.
func (d *Dispatcher) Dispatch(ctx context.Context, n models.Notification, userID int) ([]string, error) {
	var channels []string
	var errs []error

	if sent := d.ws.SendToUser(userID, n); sent > 0 {
		channels = append(channels, "push")
	}

	if d.telegram != nil {
		chatID, err := d.chats.GetTelegramChatID(ctx, userID)
		switch {
		case errors.Is(err, db.ErrNotFound):
			// no chat registered, nothing to deliver
		case err != nil:
			errs = append(errs, err)
		default:
			if err := d.telegram.send(ctx, n, chatID); err != nil {
				errs = append(errs, err)
			} else {
				channels = append(channels, "telegram")
			}
		}
	}

	if len(channels) == 0 && len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	if len(errs) > 0 {
		d.logger.Warnf("Partial dispatch for user %d via %v: %v", userID, channels, errors.Join(errs...))
	}
	return channels, nil
}
