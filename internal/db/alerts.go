package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"alert-escalation-service/internal/models"
)

const alertColumns = `
    id, user_id, alert_type, glucose_value, threshold, status, trigger_time,
    escalation_level, schedule_state, next_escalation_time, escalation_reason,
    acknowledged_at, resolved_at, snooze_until, alert_rule_id, version`

// CreateAlert inserts a new alert record.
func (d *DB) CreateAlert(ctx context.Context, a models.AlertRecord) error {
	query := `
    INSERT INTO alerts (
        id, user_id, alert_type, glucose_value, threshold, status, trigger_time,
        escalation_level, schedule_state, next_escalation_time, escalation_reason,
        acknowledged_at, resolved_at, snooze_until, alert_rule_id, version
    ) VALUES (
        $1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16
    )`

	_, err := d.Pool.Exec(ctx, query,
		a.ID,
		a.UserID,
		string(a.Type),
		a.GlucoseValue,
		a.Threshold,
		string(a.Status),
		a.TriggerTime,
		a.EscalationLevel,
		string(a.Schedule.State),
		scheduleTime(a.Schedule),
		a.EscalationReason,
		a.AcknowledgedAt,
		a.ResolvedAt,
		a.SnoozeUntil,
		a.RuleID,
		a.Version,
	)
	if err != nil {
		return fmt.Errorf("failed to insert alert: %w", err)
	}
	return nil
}

// GetAlert fetches one alert with its escalation attempts rehydrated.
func (d *DB) GetAlert(ctx context.Context, id uuid.UUID) (models.AlertRecord, error) {
	query := `SELECT ` + alertColumns + ` FROM alerts WHERE id = $1`
	row := d.Pool.QueryRow(ctx, query, id)
	a, err := scanAlert(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.AlertRecord{}, ErrNotFound
		}
		return models.AlertRecord{}, fmt.Errorf("failed to get alert %s: %w", id, err)
	}
	a.Attempts, err = d.listAttempts(ctx, id)
	if err != nil {
		return models.AlertRecord{}, err
	}
	return a, nil
}

const updateAlertSQL = `
    UPDATE alerts SET
        status = $2, escalation_level = $3, schedule_state = $4,
        next_escalation_time = $5, escalation_reason = $6, acknowledged_at = $7,
        resolved_at = $8, snooze_until = $9, version = version + 1
    WHERE id = $1 AND version = $10`

func updateAlertArgs(a models.AlertRecord) []any {
	return []any{
		a.ID,
		string(a.Status),
		a.EscalationLevel,
		string(a.Schedule.State),
		scheduleTime(a.Schedule),
		a.EscalationReason,
		a.AcknowledgedAt,
		a.ResolvedAt,
		a.SnoozeUntil,
		a.Version,
	}
}

// UpdateAlert persists a mutated record, guarded by the version read into it.
// The stored version is bumped; a stale caller gets ErrVersionConflict.
func (d *DB) UpdateAlert(ctx context.Context, a models.AlertRecord) error {
	tag, err := d.Pool.Exec(ctx, updateAlertSQL, updateAlertArgs(a)...)
	if err != nil {
		return fmt.Errorf("failed to update alert %s: %w", a.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("alert %s: %w", a.ID, ErrVersionConflict)
	}
	return nil
}

// ApplyEscalation persists an advanced escalation state together with its
// attempt row in one transaction. A version conflict or any failure rolls
// both back, so the attempt history only ever records escalations whose
// state transition committed.
func (d *DB) ApplyEscalation(ctx context.Context, a models.AlertRecord, at models.EscalationAttempt) error {
	tx, err := d.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin escalation for alert %s: %w", a.ID, err)
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx, updateAlertSQL, updateAlertArgs(a)...)
	if err != nil {
		return fmt.Errorf("failed to update alert %s: %w", a.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("alert %s: %w", a.ID, ErrVersionConflict)
	}

	_, err = tx.Exec(ctx, `
    INSERT INTO alert_escalation_attempts (alert_id, level, attempt_time, channels, success)
    VALUES ($1, $2, $3, $4, $5)`, a.ID, at.Level, at.AttemptTime, at.Channels, at.Success)
	if err != nil {
		return fmt.Errorf("failed to append escalation attempt for alert %s: %w", a.ID, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit escalation for alert %s: %w", a.ID, err)
	}
	return nil
}

// ListEscalationCandidates returns active alerts ordered by trigger time,
// capped at limit. Rows whose stored alert_type no longer parses are skipped
// for this sweep; the skipped count is reported so the caller can log it.
func (d *DB) ListEscalationCandidates(ctx context.Context, limit int) ([]models.AlertRecord, int, error) {
	query := `SELECT ` + alertColumns + `
    FROM alerts
    WHERE status = 'active'
    ORDER BY trigger_time ASC
    LIMIT $1`

	rows, err := d.Pool.Query(ctx, query, limit)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list escalation candidates: %w", err)
	}
	defer rows.Close()

	var list []models.AlertRecord
	skipped := 0
	for rows.Next() {
		a, err := scanAlert(rows)
		if err != nil {
			var badTag *decodeError
			if errors.As(err, &badTag) {
				skipped++
				continue
			}
			return nil, 0, fmt.Errorf("failed to scan alert: %w", err)
		}
		list = append(list, a)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("failed to list escalation candidates: %w", err)
	}

	for i := range list {
		attempts, err := d.listAttempts(ctx, list[i].ID)
		if err != nil {
			return nil, 0, err
		}
		list[i].Attempts = attempts
	}
	return list, skipped, nil
}

// ResolveAlertsByUserAndTypes resolves every non-terminal alert of the given
// types for a user and returns the number touched.
func (d *DB) ResolveAlertsByUserAndTypes(ctx context.Context, userID int, types []models.AlertType, now time.Time) (int, error) {
	tags := make([]string, len(types))
	for i, t := range types {
		tags[i] = string(t)
	}

	query := `
    UPDATE alerts SET
        status = 'resolved', resolved_at = $3, schedule_state = 'not_scheduled',
        next_escalation_time = NULL, version = version + 1
    WHERE user_id = $1 AND alert_type = ANY($2) AND status <> 'resolved'`

	tag, err := d.Pool.Exec(ctx, query, userID, tags, now)
	if err != nil {
		return 0, fmt.Errorf("failed to resolve alerts for user %d: %w", userID, err)
	}
	return int(tag.RowsAffected()), nil
}

// DeleteResolvedOlderThan hard-deletes resolved alerts (and their attempt
// history) triggered before the cutoff. Returns the number removed.
func (d *DB) DeleteResolvedOlderThan(ctx context.Context, cutoff time.Time) (int, error) {
	if _, err := d.Pool.Exec(ctx, `
    DELETE FROM alert_escalation_attempts
    WHERE alert_id IN (SELECT id FROM alerts WHERE status = 'resolved' AND trigger_time < $1)`, cutoff); err != nil {
		return 0, fmt.Errorf("failed to delete old escalation attempts: %w", err)
	}

	tag, err := d.Pool.Exec(ctx,
		`DELETE FROM alerts WHERE status = 'resolved' AND trigger_time < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to delete old alerts: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

// CountActiveOlderThan counts non-terminal alerts past the retention window.
// They are never deleted, only surfaced for observability.
func (d *DB) CountActiveOlderThan(ctx context.Context, cutoff time.Time) (int, error) {
	var n int
	err := d.Pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM alerts WHERE status <> 'resolved' AND trigger_time < $1`, cutoff).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count stale active alerts: %w", err)
	}
	return n, nil
}

// GetAlertsByUserID fetches alerts for a user with pagination, newest first.
// Rows that no longer decode are dropped from the page; their count is
// reported so the caller can log that the page is short of the total.
func (d *DB) GetAlertsByUserID(ctx context.Context, userID, limit, offset int) ([]models.AlertRecord, int, int, error) {
	var total int
	if err := d.Pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM alerts WHERE user_id = $1`, userID).Scan(&total); err != nil {
		return nil, 0, 0, fmt.Errorf("failed to count alerts: %w", err)
	}

	query := `SELECT ` + alertColumns + `
    FROM alerts
    WHERE user_id = $1
    ORDER BY trigger_time DESC
    LIMIT $2 OFFSET $3`

	rows, err := d.Pool.Query(ctx, query, userID, limit, offset)
	if err != nil {
		return nil, 0, 0, fmt.Errorf("failed to get alerts: %w", err)
	}
	defer rows.Close()

	var list []models.AlertRecord
	skipped := 0
	for rows.Next() {
		a, err := scanAlert(rows)
		if err != nil {
			var badTag *decodeError
			if errors.As(err, &badTag) {
				skipped++
				continue
			}
			return nil, 0, 0, fmt.Errorf("failed to scan alert: %w", err)
		}
		list = append(list, a)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, 0, fmt.Errorf("failed to get alerts: %w", err)
	}
	return list, total, skipped, nil
}

// decodeError marks a row that cannot be reconstructed into a valid record.
type decodeError struct{ err error }

func (e *decodeError) Error() string { return e.err.Error() }
func (e *decodeError) Unwrap() error { return e.err }

func scanAlert(row pgx.Row) (models.AlertRecord, error) {
	var a models.AlertRecord
	var typeTag, statusTag, stateTag string
	var nextAt *time.Time

	err := row.Scan(
		&a.ID,
		&a.UserID,
		&typeTag,
		&a.GlucoseValue,
		&a.Threshold,
		&statusTag,
		&a.TriggerTime,
		&a.EscalationLevel,
		&stateTag,
		&nextAt,
		&a.EscalationReason,
		&a.AcknowledgedAt,
		&a.ResolvedAt,
		&a.SnoozeUntil,
		&a.RuleID,
		&a.Version,
	)
	if err != nil {
		return models.AlertRecord{}, err
	}

	a.Type, err = models.ParseAlertType(typeTag)
	if err != nil {
		return models.AlertRecord{}, &decodeError{err: err}
	}
	a.Status = models.AlertStatus(statusTag)

	switch models.ScheduleState(stateTag) {
	case models.ScheduleScheduled:
		if nextAt == nil {
			return models.AlertRecord{}, &decodeError{err: fmt.Errorf("alert %s scheduled without a time", a.ID)}
		}
		a.Schedule = models.ScheduledAt(*nextAt)
	case models.ScheduleExhausted:
		a.Schedule = models.Exhausted()
	default:
		a.Schedule = models.NotScheduled()
	}
	return a, nil
}

func (d *DB) listAttempts(ctx context.Context, alertID uuid.UUID) ([]models.EscalationAttempt, error) {
	rows, err := d.Pool.Query(ctx, `
    SELECT level, attempt_time, channels, success
    FROM alert_escalation_attempts
    WHERE alert_id = $1
    ORDER BY level ASC`, alertID)
	if err != nil {
		return nil, fmt.Errorf("failed to list escalation attempts for alert %s: %w", alertID, err)
	}
	defer rows.Close()

	var attempts []models.EscalationAttempt
	for rows.Next() {
		var at models.EscalationAttempt
		if err := rows.Scan(&at.Level, &at.AttemptTime, &at.Channels, &at.Success); err != nil {
			return nil, fmt.Errorf("failed to scan escalation attempt: %w", err)
		}
		attempts = append(attempts, at)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list escalation attempts for alert %s: %w", alertID, err)
	}
	return attempts, nil
}

func scheduleTime(s models.EscalationSchedule) *time.Time {
	if s.State == models.ScheduleScheduled {
		t := s.At
		return &t
	}
	return nil
}
