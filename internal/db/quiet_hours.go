package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
)

// IsInQuietHours reports whether the instant falls inside the user's
// configured quiet window. A user without a row has no quiet hours.
// Windows may cross midnight (start_minute > end_minute).
func (d *DB) IsInQuietHours(ctx context.Context, userID int, at time.Time) (bool, error) {
	var enabled bool
	var startMinute, endMinute int
	err := d.Pool.QueryRow(ctx, `
    SELECT enabled, start_minute, end_minute
    FROM user_quiet_hours
    WHERE user_id = $1`, userID).Scan(&enabled, &startMinute, &endMinute)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("failed to get quiet hours for user %d: %w", userID, err)
	}
	if !enabled {
		return false, nil
	}
	return inQuietWindow(at.Hour()*60+at.Minute(), startMinute, endMinute), nil
}

func inQuietWindow(minute, start, end int) bool {
	if start <= end {
		return minute >= start && minute < end
	}
	return minute >= start || minute < end
}
