package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadAppliesDefaults(t *testing.T) {
	t.Setenv("DB_DSN", "postgres://localhost/alerts")
	t.Setenv("KAFKA_BROKER", "localhost:9092")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "alert_events", cfg.Kafka.Topic)
	assert.Equal(t, ":8080", cfg.API.Port)
	assert.Equal(t, "/api/v0", cfg.API.BasePath)
	assert.Equal(t, 30, cfg.Escalation.CooldownMinutes)
	assert.Equal(t, 50, cfg.Escalation.BatchSize)
	assert.Equal(t, 3, cfg.Escalation.MaxEscalations)
	assert.Equal(t, 60, cfg.Escalation.SweepInterval)
	assert.Equal(t, 30, cfg.Escalation.RetentionDays)
	assert.Equal(t, 10, cfg.Notification.DispatchTimeout)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("DB_DSN", "postgres://localhost/alerts")
	t.Setenv("KAFKA_BROKER", "localhost:9092")
	t.Setenv("ALERT_COOLDOWN_MINUTES", "15")
	t.Setenv("ALERT_PROCESSING_BATCH_SIZE", "10")
	t.Setenv("MAX_ESCALATIONS", "5")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 15, cfg.Escalation.CooldownMinutes)
	assert.Equal(t, 10, cfg.Escalation.BatchSize)
	assert.Equal(t, 5, cfg.Escalation.MaxEscalations)
}

func TestLoadRejectsNonPositiveNumbers(t *testing.T) {
	t.Setenv("DB_DSN", "postgres://localhost/alerts")
	t.Setenv("KAFKA_BROKER", "localhost:9092")

	t.Setenv("MAX_ESCALATIONS", "0")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "MAX_ESCALATIONS")

	t.Setenv("MAX_ESCALATIONS", "3")
	t.Setenv("ALERT_COOLDOWN_MINUTES", "soon")
	_, err = Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ALERT_COOLDOWN_MINUTES")
}

func TestLoadFailsOnMissingRequired(t *testing.T) {
	t.Setenv("DB_DSN", "")
	t.Setenv("KAFKA_BROKER", "")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DB_DSN")
	assert.Contains(t, err.Error(), "KAFKA_BROKER")
}
