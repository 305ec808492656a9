package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"alert-escalation-service/internal/models"
)

// GetAlertRule looks up the escalation overrides for a rule id.
func (d *DB) GetAlertRule(ctx context.Context, id uuid.UUID) (models.AlertRule, error) {
	var r models.AlertRule
	err := d.Pool.QueryRow(ctx, `
    SELECT id, COALESCE(escalation_delay_minutes, 0), COALESCE(max_escalations, 0)
    FROM alert_rules
    WHERE id = $1`, id).Scan(&r.ID, &r.EscalationDelayMinutes, &r.MaxEscalations)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.AlertRule{}, ErrNotFound
		}
		return models.AlertRule{}, fmt.Errorf("failed to get alert rule %s: %w", id, err)
	}
	return r, nil
}
