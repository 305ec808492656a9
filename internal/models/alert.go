package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// AlertType is the closed set of alert conditions. It is persisted as text
// and parsed back on reconstruction; an unknown tag is a decode failure,
// never a silent zero value.
type AlertType string

const (
	AlertTypeLow           AlertType = "low"
	AlertTypeHigh          AlertType = "high"
	AlertTypeUrgentLow     AlertType = "urgent_low"
	AlertTypeUrgentHigh    AlertType = "urgent_high"
	AlertTypeDeviceWarning AlertType = "device_warning"
)

// ParseAlertType converts a stored tag back into an AlertType.
func ParseAlertType(s string) (AlertType, error) {
	switch AlertType(s) {
	case AlertTypeLow, AlertTypeHigh, AlertTypeUrgentLow, AlertTypeUrgentHigh, AlertTypeDeviceWarning:
		return AlertType(s), nil
	default:
		return "", fmt.Errorf("unknown alert type %q", s)
	}
}

// IsUrgent reports whether the type escalates through quiet hours.
func (t AlertType) IsUrgent() bool {
	return t == AlertTypeUrgentLow || t == AlertTypeUrgentHigh
}

// OppositeTypes returns the glucose-direction types that a new alert of
// this type auto-resolves, or nil for directionless types.
func (t AlertType) OppositeTypes() []AlertType {
	switch t {
	case AlertTypeHigh, AlertTypeUrgentHigh:
		return []AlertType{AlertTypeLow, AlertTypeUrgentLow}
	case AlertTypeLow, AlertTypeUrgentLow:
		return []AlertType{AlertTypeHigh, AlertTypeUrgentHigh}
	default:
		return nil
	}
}

// AlertStatus is the lifecycle state of an AlertRecord. Resolved is terminal.
type AlertStatus string

const (
	StatusActive       AlertStatus = "active"
	StatusAcknowledged AlertStatus = "acknowledged"
	StatusSnoozed      AlertStatus = "snoozed"
	StatusResolved     AlertStatus = "resolved"
)

// ScheduleState distinguishes "never scheduled" from "will never escalate
// again" instead of overloading one nullable timestamp.
type ScheduleState string

const (
	ScheduleNotScheduled ScheduleState = "not_scheduled"
	ScheduleScheduled    ScheduleState = "scheduled"
	ScheduleExhausted    ScheduleState = "exhausted"
)

// EscalationSchedule is the three-state next-escalation slot of an alert.
// At is meaningful only when State == ScheduleScheduled.
type EscalationSchedule struct {
	State ScheduleState `json:"state"`
	At    time.Time     `json:"at,omitempty"`
}

func NotScheduled() EscalationSchedule {
	return EscalationSchedule{State: ScheduleNotScheduled}
}

func ScheduledAt(t time.Time) EscalationSchedule {
	return EscalationSchedule{State: ScheduleScheduled, At: t}
}

func Exhausted() EscalationSchedule {
	return EscalationSchedule{State: ScheduleExhausted}
}

// Due reports whether the schedule is set and not in the future.
func (s EscalationSchedule) Due(now time.Time) bool {
	return s.State == ScheduleScheduled && !s.At.After(now)
}

// EscalationAttempt records one escalation actually performed.
type EscalationAttempt struct {
	Level       int       `json:"level"`
	AttemptTime time.Time `json:"attempt_time"`
	Channels    []string  `json:"channels"`
	Success     bool      `json:"success"`
}

// AlertRecord is one triggered condition with its escalation state.
// Attempts is rehydrated wholesale from the child table, ordered by level.
type AlertRecord struct {
	ID               uuid.UUID           `json:"id"`
	UserID           int                 `json:"user_id"`
	Type             AlertType           `json:"alert_type"`
	GlucoseValue     *float64            `json:"glucose_value,omitempty"`
	Threshold        *float64            `json:"threshold,omitempty"`
	Status           AlertStatus         `json:"status"`
	TriggerTime      time.Time           `json:"trigger_time"`
	EscalationLevel  int                 `json:"escalation_level"`
	Schedule         EscalationSchedule  `json:"escalation_schedule"`
	EscalationReason string              `json:"escalation_reason,omitempty"`
	Attempts         []EscalationAttempt `json:"escalation_attempts,omitempty"`
	AcknowledgedAt   *time.Time          `json:"acknowledged_at,omitempty"`
	ResolvedAt       *time.Time          `json:"resolved_at,omitempty"`
	SnoozeUntil      *time.Time          `json:"snooze_until,omitempty"`
	RuleID           *uuid.UUID          `json:"alert_rule_id,omitempty"`
	Version          int                 `json:"version"`
}

// AlertRule holds per-alert escalation overrides. Zero fields fall back to
// the process-wide defaults.
type AlertRule struct {
	ID                     uuid.UUID `json:"id"`
	EscalationDelayMinutes int       `json:"escalation_delay_minutes,omitempty"`
	MaxEscalations         int       `json:"max_escalations,omitempty"`
}
