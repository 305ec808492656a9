package escalation

import (
	"context"
	"fmt"
	"time"

	"alert-escalation-service/internal/models"
)

// Escalation reason audit notes.
const (
	reasonInitialScheduled = "Initial escalation scheduled"
	reasonMaxReached       = "Reached maximum escalations"
	reasonQuietDeferred    = "Escalation deferred due to quiet hours"
)

// SweepReport aggregates the outcome of one sweep tick.
type SweepReport struct {
	Processed int
	Scheduled int
	Escalated int
	Deferred  int
	Exhausted int
	Skipped   int
	Failed    int
	Errors    []error
}

type sweepOutcome int

const (
	outcomeNone sweepOutcome = iota
	outcomeScheduled
	outcomeEscalated
	outcomeDeferred
	outcomeExhausted
	outcomeSkipped
)

// RunEscalationSweep processes one bounded batch of active alerts, applying
// at most one schedule/defer/escalate/exhaust transition per alert. A
// failing item is recorded and the batch continues; cancellation is checked
// between items and halts the sweep with already-applied transitions kept.
// The caller must not run two sweeps concurrently.
func (s *Service) RunEscalationSweep(ctx context.Context) (SweepReport, error) {
	var report SweepReport

	candidates, undecodable, err := s.store.ListEscalationCandidates(ctx, s.batchSize)
	if err != nil {
		s.logger.Errorf("Escalation sweep aborted, candidate query failed: %v", err)
		return report, err
	}
	if undecodable > 0 {
		report.Skipped += undecodable
		s.logger.Warnf("Escalation sweep skipped %d undecodable alert records", undecodable)
	}

	for _, alert := range candidates {
		if err := ctx.Err(); err != nil {
			s.logger.Warnf("Escalation sweep cancelled after %d alerts", report.Processed)
			return report, err
		}

		outcome, err := s.processCandidate(ctx, alert)
		report.Processed++
		if err != nil {
			report.Failed++
			report.Errors = append(report.Errors, fmt.Errorf("alert %s: %w", alert.ID, err))
			s.logger.Errorf("Escalation processing for alert %s failed: %v", alert.ID, err)
			continue
		}
		switch outcome {
		case outcomeScheduled:
			report.Scheduled++
		case outcomeEscalated:
			report.Escalated++
		case outcomeDeferred:
			report.Deferred++
		case outcomeExhausted:
			report.Exhausted++
		case outcomeSkipped:
			report.Skipped++
		}
	}

	s.logger.Debugf("Escalation sweep done: processed=%d scheduled=%d escalated=%d deferred=%d exhausted=%d skipped=%d failed=%d",
		report.Processed, report.Scheduled, report.Escalated, report.Deferred, report.Exhausted, report.Skipped, report.Failed)
	return report, nil
}

// processCandidate applies at most one state transition to one alert.
func (s *Service) processCandidate(ctx context.Context, alert models.AlertRecord) (sweepOutcome, error) {
	if alert.Status != models.StatusActive {
		return outcomeSkipped, nil
	}

	delay, maxEscalations := s.effectiveRule(ctx, alert)
	now := s.now()

	switch {
	case alert.Schedule.State == models.ScheduleNotScheduled:
		// First sweep after creation only schedules; escalation waits for
		// the next due tick.
		alert.Schedule = models.ScheduledAt(alert.TriggerTime.Add(delay))
		alert.EscalationReason = reasonInitialScheduled
		if err := s.store.UpdateAlert(ctx, alert); err != nil {
			return outcomeNone, err
		}
		return outcomeScheduled, nil

	case alert.Schedule.State == models.ScheduleExhausted:
		return outcomeNone, nil

	case !alert.Schedule.Due(now):
		return outcomeNone, nil

	case alert.EscalationLevel >= maxEscalations:
		alert.Schedule = models.Exhausted()
		alert.EscalationReason = reasonMaxReached
		if err := s.store.UpdateAlert(ctx, alert); err != nil {
			return outcomeNone, err
		}
		return outcomeExhausted, nil
	}

	inQuiet, err := s.quiet.IsInQuietHours(ctx, alert.UserID, now)
	if err != nil {
		// An unreachable oracle never silences an alarm; escalate anyway.
		s.logger.Warnf("Quiet hours check for user %d failed, escalating: %v", alert.UserID, err)
		inQuiet = false
	}
	if inQuiet && !alert.Type.IsUrgent() {
		alert.Schedule = models.ScheduledAt(now.Add(delay))
		alert.EscalationReason = reasonQuietDeferred
		if err := s.store.UpdateAlert(ctx, alert); err != nil {
			return outcomeNone, err
		}
		return outcomeDeferred, nil
	}

	return s.escalate(ctx, alert, now, delay)
}

// escalate re-notifies at the next level and persists the advanced state.
// Dispatch failure is isolated; the escalation still counts.
func (s *Service) escalate(ctx context.Context, alert models.AlertRecord, now time.Time, delay time.Duration) (sweepOutcome, error) {
	newLevel := alert.EscalationLevel + 1

	channels, err := s.dispatch(ctx, BuildNotification(escalationEvent(alert, newLevel), false), alert.UserID)
	if err != nil {
		s.logger.Warnf("Escalation notification for alert %s level %d failed: %v", alert.ID, newLevel, err)
	}

	attempt := models.EscalationAttempt{
		Level:       newLevel,
		AttemptTime: now,
		Channels:    channels,
		Success:     true,
	}
	alert.EscalationLevel = newLevel
	alert.Schedule = models.ScheduledAt(now.Add(delay))
	alert.EscalationReason = fmt.Sprintf("Escalation level %d triggered", newLevel)

	// Attempt row and state advance commit or fail together, so a lost
	// update cannot leave a stray attempt behind for the next tick to
	// duplicate.
	if err := s.store.ApplyEscalation(ctx, alert, attempt); err != nil {
		return outcomeNone, err
	}
	s.logger.Infof("Alert %s escalated to level %d for user %d", alert.ID, newLevel, alert.UserID)
	return outcomeEscalated, nil
}

// effectiveRule resolves delay and cap from the alert's rule, falling back
// to process-wide defaults for missing rules or unset fields.
func (s *Service) effectiveRule(ctx context.Context, alert models.AlertRecord) (time.Duration, int) {
	delay := s.cooldown
	maxEscalations := s.maxEscalations
	if alert.RuleID == nil {
		return delay, maxEscalations
	}

	rule, err := s.rules.GetAlertRule(ctx, *alert.RuleID)
	if err != nil {
		s.logger.Debugf("Rule %s for alert %s unavailable, using defaults: %v", alert.RuleID, alert.ID, err)
		return delay, maxEscalations
	}
	if rule.EscalationDelayMinutes > 0 {
		delay = time.Duration(rule.EscalationDelayMinutes) * time.Minute
	}
	if rule.MaxEscalations > 0 {
		maxEscalations = rule.MaxEscalations
	}
	return delay, maxEscalations
}

// escalationEvent rebuilds a synthetic event from the stored record for the
// re-notification.
func escalationEvent(alert models.AlertRecord, level int) models.AlertEvent {
	return models.AlertEvent{
		UserID:       alert.UserID,
		Type:         alert.Type,
		GlucoseValue: alert.GlucoseValue,
		Threshold:    alert.Threshold,
		TriggerTime:  alert.TriggerTime,
		RuleID:       alert.RuleID,
		Context: map[string]any{
			models.ContextIsEscalation:    true,
			models.ContextEscalationLevel: level,
		},
	}
}
