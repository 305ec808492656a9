package models

// Severity is the outbound notification level.
type Severity int

const (
	SeverityInfo   Severity = 0
	SeverityWarn   Severity = 1
	SeverityUrgent Severity = 2
)

// SeverityForType maps an alert type onto a notification severity.
// Urgent conditions ring through; threshold and device alerts warn.
func SeverityForType(t AlertType) Severity {
	switch t {
	case AlertTypeUrgentLow, AlertTypeUrgentHigh:
		return SeverityUrgent
	case AlertTypeLow, AlertTypeHigh, AlertTypeDeviceWarning:
		return SeverityWarn
	default:
		return SeverityInfo
	}
}

// Notification is the outbound payload handed to the dispatcher. Clear
// instructs the channel to retract a persistent alarm instead of raising one.
type Notification struct {
	SeverityLevel      Severity `json:"severity_level"`
	Title              string   `json:"title"`
	Message            string   `json:"message"`
	Group              string   `json:"group"`
	TimestampMillis    int64    `json:"timestamp_millis"`
	Persistent         bool     `json:"persistent"`
	Clear              bool     `json:"clear"`
	SourceTag          string   `json:"source_tag"`
	OccurrenceCount    int      `json:"occurrence_count,omitempty"`
	LastRecordedMillis int64    `json:"last_recorded_millis,omitempty"`
}
