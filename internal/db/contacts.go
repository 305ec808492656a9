package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// GetTelegramChatID returns the Telegram chat registered for a user, or
// ErrNotFound when none is on file.
func (d *DB) GetTelegramChatID(ctx context.Context, userID int) (int64, error) {
	var chatID int64
	err := d.Pool.QueryRow(ctx, `
    SELECT telegram_chat_id
    FROM user_contacts
    WHERE user_id = $1 AND telegram_chat_id IS NOT NULL`, userID).Scan(&chatID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, ErrNotFound
		}
		return 0, fmt.Errorf("failed to get telegram chat for user %d: %w", userID, err)
	}
	return chatID, nil
}

// SetTelegramChatID registers or replaces a user's Telegram chat.
func (d *DB) SetTelegramChatID(ctx context.Context, userID int, chatID int64) error {
	_, err := d.Pool.Exec(ctx, `
    INSERT INTO user_contacts (user_id, telegram_chat_id)
    VALUES ($1, $2)
    ON CONFLICT (user_id) DO UPDATE SET telegram_chat_id = EXCLUDED.telegram_chat_id`, userID, chatID)
	if err != nil {
		return fmt.Errorf("failed to set telegram chat for user %d: %w", userID, err)
	}
	return nil
}
