package models

import (
	"time"

	"github.com/google/uuid"
)

// AlertEvent is a raw threshold-breach event handed to the ingestor, either
// from the Kafka feed or rebuilt from a stored record for an escalation
// re-notification.
type AlertEvent struct {
	UserID       int            `json:"user_id"`
	Type         AlertType      `json:"alert_type"`
	GlucoseValue *float64       `json:"glucose_value,omitempty"`
	Threshold    *float64       `json:"threshold,omitempty"`
	TriggerTime  time.Time      `json:"trigger_time"`
	RuleID       *uuid.UUID     `json:"alert_rule_id,omitempty"`
	Context      map[string]any `json:"context,omitempty"`
}

// Context keys recognized by the notification formatter.
const (
	ContextDirection       = "direction"
	ContextDelta           = "delta"
	ContextIsEscalation    = "is_escalation"
	ContextEscalationLevel = "escalation_level"
)
