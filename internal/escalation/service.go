package escalation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"alert-escalation-service/internal/config"
	"alert-escalation-service/internal/db"
	"alert-escalation-service/internal/logging"
	"alert-escalation-service/internal/models"
)

// AlertStore is the persistence contract for alert records.
type AlertStore interface {
	CreateAlert(ctx context.Context, a models.AlertRecord) error
	GetAlert(ctx context.Context, id uuid.UUID) (models.AlertRecord, error)
	UpdateAlert(ctx context.Context, a models.AlertRecord) error
	ApplyEscalation(ctx context.Context, a models.AlertRecord, at models.EscalationAttempt) error
	ListEscalationCandidates(ctx context.Context, limit int) ([]models.AlertRecord, int, error)
	ResolveAlertsByUserAndTypes(ctx context.Context, userID int, types []models.AlertType, now time.Time) (int, error)
	DeleteResolvedOlderThan(ctx context.Context, cutoff time.Time) (int, error)
	CountActiveOlderThan(ctx context.Context, cutoff time.Time) (int, error)
}

// RuleStore looks up per-alert escalation overrides.
type RuleStore interface {
	GetAlertRule(ctx context.Context, id uuid.UUID) (models.AlertRule, error)
}

// QuietHoursOracle answers whether a user is inside a quiet window.
type QuietHoursOracle interface {
	IsInQuietHours(ctx context.Context, userID int, at time.Time) (bool, error)
}

// Notifier delivers a notification to a user and reports the channels that
// carried it. Implementations own their transport failure handling.
type Notifier interface {
	Dispatch(ctx context.Context, n models.Notification, userID int) ([]string, error)
}

// Service is the alert escalation engine: it ingests threshold-breach
// events, advances escalation state on sweep ticks, applies user
// acknowledge/resolve transitions, and prunes old history.
type Service struct {
	store    AlertStore
	rules    RuleStore
	quiet    QuietHoursOracle
	notifier Notifier
	logger   *logging.Logger

	cooldown        time.Duration
	batchSize       int
	maxEscalations  int
	retentionDays   int
	dispatchTimeout time.Duration

	now func() time.Time
}

// New constructs the escalation engine from the loaded config.
func New(store AlertStore, rules RuleStore, quiet QuietHoursOracle, notifier Notifier, logger *logging.Logger, cfg config.Config) *Service {
	return &Service{
		store:           store,
		rules:           rules,
		quiet:           quiet,
		notifier:        notifier,
		logger:          logger,
		cooldown:        time.Duration(cfg.Escalation.CooldownMinutes) * time.Minute,
		batchSize:       cfg.Escalation.BatchSize,
		maxEscalations:  cfg.Escalation.MaxEscalations,
		retentionDays:   cfg.Escalation.RetentionDays,
		dispatchTimeout: time.Duration(cfg.Notification.DispatchTimeout) * time.Second,
		now:             time.Now,
	}
}

// IngestAlertEvent turns a raw event into a durable alert record, fires the
// first notification, and retires opposite-direction alerts for the user.
// Only the persistence step can fail the operation; notification and
// conflict-resolution failures are logged and swallowed.
func (s *Service) IngestAlertEvent(ctx context.Context, ev models.AlertEvent) (models.AlertRecord, error) {
	if _, err := models.ParseAlertType(string(ev.Type)); err != nil {
		return models.AlertRecord{}, fmt.Errorf("invalid alert event: %w", err)
	}
	if ev.TriggerTime.IsZero() {
		ev.TriggerTime = s.now()
	}

	rec := models.AlertRecord{
		ID:              uuid.New(),
		UserID:          ev.UserID,
		Type:            ev.Type,
		GlucoseValue:    ev.GlucoseValue,
		Threshold:       ev.Threshold,
		Status:          models.StatusActive,
		TriggerTime:     ev.TriggerTime,
		EscalationLevel: 0,
		Schedule:        models.NotScheduled(),
		RuleID:          ev.RuleID,
	}

	if err := s.store.CreateAlert(ctx, rec); err != nil {
		s.logger.Errorf("Failed to persist alert for user %d: %v", ev.UserID, err)
		return models.AlertRecord{}, err
	}
	s.logger.Infof("Created alert %s type=%s user=%d", rec.ID, rec.Type, rec.UserID)

	if _, err := s.dispatch(ctx, BuildNotification(ev, false), ev.UserID); err != nil {
		s.logger.Warnf("Initial notification for alert %s failed: %v", rec.ID, err)
	}

	if n := s.resolveConflicting(ctx, rec); n > 0 {
		s.logger.Infof("Auto-resolved %d opposite alerts for user %d after %s alert", n, rec.UserID, rec.Type)
	}
	return rec, nil
}

// resolveConflicting retires non-terminal alerts of the opposite glucose
// direction. Best-effort: failures are logged, never propagated.
func (s *Service) resolveConflicting(ctx context.Context, rec models.AlertRecord) int {
	opposite := rec.Type.OppositeTypes()
	if len(opposite) == 0 {
		return 0
	}
	n, err := s.store.ResolveAlertsByUserAndTypes(ctx, rec.UserID, opposite, s.now())
	if err != nil {
		s.logger.Warnf("Conflict resolution for user %d failed: %v", rec.UserID, err)
		return 0
	}
	return n
}

// AcknowledgeAlert marks an alert acknowledged, or snoozed when
// snoozeMinutes > 0. Unknown or already-terminal ids are a logged no-op.
func (s *Service) AcknowledgeAlert(ctx context.Context, id uuid.UUID, snoozeMinutes int) error {
	rec, err := s.store.GetAlert(ctx, id)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			s.logger.Warnf("Acknowledge for unknown alert %s ignored", id)
			return nil
		}
		return err
	}
	if rec.Status == models.StatusResolved {
		s.logger.Warnf("Acknowledge for resolved alert %s ignored", id)
		return nil
	}

	now := s.now()
	if snoozeMinutes > 0 {
		until := now.Add(time.Duration(snoozeMinutes) * time.Minute)
		rec.Status = models.StatusSnoozed
		rec.SnoozeUntil = &until
	} else {
		rec.Status = models.StatusAcknowledged
		rec.AcknowledgedAt = &now
	}
	rec.Schedule = models.NotScheduled()

	if err := s.store.UpdateAlert(ctx, rec); err != nil {
		s.logger.Errorf("Failed to acknowledge alert %s: %v", id, err)
		return err
	}
	s.logger.Infof("Alert %s %s", id, rec.Status)
	return nil
}

// ResolveAlert marks an alert resolved and dispatches a clear notification
// so the channel retracts any persistent alarm. Unknown or already-terminal
// ids are a logged no-op.
func (s *Service) ResolveAlert(ctx context.Context, id uuid.UUID) error {
	rec, err := s.store.GetAlert(ctx, id)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			s.logger.Warnf("Resolve for unknown alert %s ignored", id)
			return nil
		}
		return err
	}
	if rec.Status == models.StatusResolved {
		s.logger.Warnf("Resolve for already-resolved alert %s ignored", id)
		return nil
	}

	now := s.now()
	rec.Status = models.StatusResolved
	rec.ResolvedAt = &now
	rec.Schedule = models.NotScheduled()

	if err := s.store.UpdateAlert(ctx, rec); err != nil {
		s.logger.Errorf("Failed to resolve alert %s: %v", id, err)
		return err
	}
	s.logger.Infof("Alert %s resolved", id)

	if _, err := s.dispatch(ctx, BuildClearNotification(rec), rec.UserID); err != nil {
		s.logger.Warnf("Clear notification for alert %s failed: %v", id, err)
	}
	return nil
}

// ResolveAlertsForUser resolves every non-terminal alert of the given type
// for a user and returns the count touched.
func (s *Service) ResolveAlertsForUser(ctx context.Context, userID int, alertType models.AlertType) (int, error) {
	if _, err := models.ParseAlertType(string(alertType)); err != nil {
		return 0, err
	}
	n, err := s.store.ResolveAlertsByUserAndTypes(ctx, userID, []models.AlertType{alertType}, s.now())
	if err != nil {
		s.logger.Errorf("Failed to resolve %s alerts for user %d: %v", alertType, userID, err)
		return 0, err
	}
	s.logger.Infof("Resolved %d %s alerts for user %d", n, alertType, userID)
	return n, nil
}

// CleanupOldAlerts hard-deletes resolved alerts triggered before the
// retention window and returns the count removed. Active alerts past the
// window are only counted and logged, never deleted.
func (s *Service) CleanupOldAlerts(ctx context.Context, daysToKeep int) (int, error) {
	if daysToKeep <= 0 {
		daysToKeep = s.retentionDays
	}
	cutoff := s.now().AddDate(0, 0, -daysToKeep)

	removed, err := s.store.DeleteResolvedOlderThan(ctx, cutoff)
	if err != nil {
		s.logger.Errorf("Retention sweep failed: %v", err)
		return 0, err
	}
	if removed > 0 {
		s.logger.Infof("Retention sweep removed %d resolved alerts older than %d days", removed, daysToKeep)
	}

	if stale, err := s.store.CountActiveOlderThan(ctx, cutoff); err != nil {
		s.logger.Warnf("Failed to count stale active alerts: %v", err)
	} else if stale > 0 {
		s.logger.Warnf("%d non-resolved alerts exceed the %d-day retention window", stale, daysToKeep)
	}
	return removed, nil
}

// dispatch sends a notification under its own timeout so one slow channel
// cannot stall the caller.
func (s *Service) dispatch(ctx context.Context, n models.Notification, userID int) ([]string, error) {
	dctx, cancel := context.WithTimeout(ctx, s.dispatchTimeout)
	defer cancel()
	return s.notifier.Dispatch(dctx, n, userID)
}
