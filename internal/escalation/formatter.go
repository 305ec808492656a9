package escalation

import (
	"fmt"
	"strings"

	"alert-escalation-service/internal/models"
)

const sourceTag = "alert-escalation-service"

// BuildNotification composes the outbound payload for an alert event.
// Escalation re-notifications carry an attempt prefix; direction and delta
// context are appended when the event has them.
func BuildNotification(ev models.AlertEvent, clear bool) models.Notification {
	severity := models.SeverityForType(ev.Type)

	var b strings.Builder
	if level, ok := escalationLevel(ev.Context); ok {
		fmt.Fprintf(&b, "Escalation #%d: ", level)
	}
	b.WriteString(bodyForEvent(ev))

	if dir, ok := ev.Context[models.ContextDirection].(string); ok && dir != "" {
		fmt.Fprintf(&b, " Trend: %s.", dir)
	}
	if delta, ok := ev.Context[models.ContextDelta].(float64); ok {
		fmt.Fprintf(&b, " Change: %+.1f mg/dL.", delta)
	}

	occurrence := 1
	if level, ok := escalationLevel(ev.Context); ok {
		occurrence = level + 1
	}

	return models.Notification{
		SeverityLevel:      severity,
		Title:              titleForType(ev.Type),
		Message:            b.String(),
		Group:              groupForType(ev.Type),
		TimestampMillis:    ev.TriggerTime.UnixMilli(),
		Persistent:         severity == models.SeverityUrgent && !clear,
		Clear:              clear,
		SourceTag:          sourceTag,
		OccurrenceCount:    occurrence,
		LastRecordedMillis: ev.TriggerTime.UnixMilli(),
	}
}

// BuildClearNotification tells the channel to retract the persistent alarm
// for a resolved alert.
func BuildClearNotification(alert models.AlertRecord) models.Notification {
	n := BuildNotification(models.AlertEvent{
		UserID:       alert.UserID,
		Type:         alert.Type,
		GlucoseValue: alert.GlucoseValue,
		Threshold:    alert.Threshold,
		TriggerTime:  alert.TriggerTime,
	}, true)
	n.Message = fmt.Sprintf("%s resolved.", titleForType(alert.Type))
	return n
}

func titleForType(t models.AlertType) string {
	switch t {
	case models.AlertTypeLow:
		return "Low Glucose Alert"
	case models.AlertTypeHigh:
		return "High Glucose Alert"
	case models.AlertTypeUrgentLow:
		return "URGENT: Low Glucose"
	case models.AlertTypeUrgentHigh:
		return "URGENT: High Glucose"
	case models.AlertTypeDeviceWarning:
		return "Device Warning"
	default:
		return "Alert"
	}
}

func groupForType(t models.AlertType) string {
	if t == models.AlertTypeDeviceWarning {
		return "device_alerts"
	}
	return "glucose_alerts"
}

func bodyForEvent(ev models.AlertEvent) string {
	if ev.Type == models.AlertTypeDeviceWarning {
		return "Sensor or transmitter needs attention."
	}
	if ev.GlucoseValue == nil {
		return titleForType(ev.Type) + " triggered."
	}
	if ev.Threshold == nil {
		return fmt.Sprintf("Glucose is %.0f mg/dL.", *ev.GlucoseValue)
	}
	direction := "below"
	if ev.Type == models.AlertTypeHigh || ev.Type == models.AlertTypeUrgentHigh {
		direction = "above"
	}
	return fmt.Sprintf("Glucose %.0f mg/dL is %s threshold %.0f mg/dL.", *ev.GlucoseValue, direction, *ev.Threshold)
}

func escalationLevel(ctx map[string]any) (int, bool) {
	if ctx == nil {
		return 0, false
	}
	if isEsc, ok := ctx[models.ContextIsEscalation].(bool); !ok || !isEsc {
		return 0, false
	}
	switch v := ctx[models.ContextEscalationLevel].(type) {
	case int:
		return v, true
	case float64:
		return int(v), true
	default:
		return 0, false
	}
}
