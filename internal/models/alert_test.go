package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAlertType(t *testing.T) {
	for _, tag := range []string{"low", "high", "urgent_low", "urgent_high", "device_warning"} {
		parsed, err := ParseAlertType(tag)
		require.NoError(t, err)
		assert.Equal(t, AlertType(tag), parsed)
	}

	_, err := ParseAlertType("critical")
	assert.Error(t, err)
	_, err = ParseAlertType("")
	assert.Error(t, err)
}

func TestOppositeTypes(t *testing.T) {
	assert.ElementsMatch(t, []AlertType{AlertTypeLow, AlertTypeUrgentLow}, AlertTypeHigh.OppositeTypes())
	assert.ElementsMatch(t, []AlertType{AlertTypeLow, AlertTypeUrgentLow}, AlertTypeUrgentHigh.OppositeTypes())
	assert.ElementsMatch(t, []AlertType{AlertTypeHigh, AlertTypeUrgentHigh}, AlertTypeLow.OppositeTypes())
	assert.ElementsMatch(t, []AlertType{AlertTypeHigh, AlertTypeUrgentHigh}, AlertTypeUrgentLow.OppositeTypes())
	assert.Nil(t, AlertTypeDeviceWarning.OppositeTypes())
}

func TestIsUrgent(t *testing.T) {
	assert.True(t, AlertTypeUrgentLow.IsUrgent())
	assert.True(t, AlertTypeUrgentHigh.IsUrgent())
	assert.False(t, AlertTypeLow.IsUrgent())
	assert.False(t, AlertTypeHigh.IsUrgent())
	assert.False(t, AlertTypeDeviceWarning.IsUrgent())
}

func TestScheduleDue(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	assert.False(t, NotScheduled().Due(now))
	assert.False(t, Exhausted().Due(now))
	assert.False(t, ScheduledAt(now.Add(time.Minute)).Due(now))
	assert.True(t, ScheduledAt(now).Due(now))
	assert.True(t, ScheduledAt(now.Add(-time.Minute)).Due(now))
}

func TestSeverityForType(t *testing.T) {
	assert.Equal(t, SeverityUrgent, SeverityForType(AlertTypeUrgentLow))
	assert.Equal(t, SeverityUrgent, SeverityForType(AlertTypeUrgentHigh))
	assert.Equal(t, SeverityWarn, SeverityForType(AlertTypeLow))
	assert.Equal(t, SeverityWarn, SeverityForType(AlertTypeHigh))
	assert.Equal(t, SeverityWarn, SeverityForType(AlertTypeDeviceWarning))
	assert.Equal(t, SeverityInfo, SeverityForType(AlertType("other")))
}
