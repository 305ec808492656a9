package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds application configuration loaded from environment.
type Config struct {
	Kafka struct {
		Broker  string
		Topic   string
		GroupID string
	}
	DB struct {
		DSN string
	}
	API struct {
		Port     string
		BasePath string
	}
	Escalation struct {
		CooldownMinutes int // fallback escalation delay
		BatchSize       int // max alerts per sweep
		MaxEscalations  int
		SweepInterval   int // seconds between sweep ticks
		RetentionDays   int
	}
	Notification struct {
		DispatchTimeout   int // seconds per dispatch
		TelegramRateLimit int // messages per second
		TelegramBotToken  string
	}
	Logging struct {
		Dir   string
		Level string
	}
}

// Load reads environment variables, applies defaults, and returns a Config.
func Load() (Config, error) {
	// Load .env if present
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return Config{}, fmt.Errorf("failed to load .env file: %w", err)
	}

	var cfg Config

	// Kafka settings
	cfg.Kafka.Broker = os.Getenv("KAFKA_BROKER")
	cfg.Kafka.Topic = os.Getenv("KAFKA_TOPIC")
	cfg.Kafka.GroupID = os.Getenv("KAFKA_GROUP_ID")

	// Database DSN
	cfg.DB.DSN = os.Getenv("DB_DSN")

	// API settings
	cfg.API.Port = os.Getenv("API_PORT")
	cfg.API.BasePath = os.Getenv("API_BASE_PATH")

	// Numeric settings; all of them must be positive when set, so an
	// explicit bad value fails loudly instead of silently re-defaulting.
	for _, v := range []struct {
		key string
		dst *int
	}{
		{"ALERT_COOLDOWN_MINUTES", &cfg.Escalation.CooldownMinutes},
		{"ALERT_PROCESSING_BATCH_SIZE", &cfg.Escalation.BatchSize},
		{"MAX_ESCALATIONS", &cfg.Escalation.MaxEscalations},
		{"SWEEP_INTERVAL_SECONDS", &cfg.Escalation.SweepInterval},
		{"RETENTION_DAYS", &cfg.Escalation.RetentionDays},
		{"DISPATCH_TIMEOUT_SECONDS", &cfg.Notification.DispatchTimeout},
		{"TELEGRAM_RATE_LIMIT", &cfg.Notification.TelegramRateLimit},
	} {
		n, err := positiveIntEnv(v.key)
		if err != nil {
			return Config{}, err
		}
		*v.dst = n
	}
	cfg.Notification.TelegramBotToken = os.Getenv("TELEGRAM_BOT_TOKEN")

	// Logging settings
	cfg.Logging.Dir = os.Getenv("LOG_DIR")
	cfg.Logging.Level = os.Getenv("LOG_LEVEL")

	// Validate required settings
	missing := []string{}
	if cfg.DB.DSN == "" {
		missing = append(missing, "DB_DSN")
	}
	if cfg.Kafka.Broker == "" {
		missing = append(missing, "KAFKA_BROKER")
	}
	if len(missing) > 0 {
		return Config{}, fmt.Errorf("missing required configurations: %v", missing)
	}

	// Apply defaults
	if cfg.Kafka.Topic == "" {
		cfg.Kafka.Topic = "alert_events"
	}
	if cfg.Kafka.GroupID == "" {
		cfg.Kafka.GroupID = "alert-escalation-service"
	}
	if cfg.API.Port == "" {
		cfg.API.Port = ":8080"
	}
	if cfg.API.BasePath == "" {
		cfg.API.BasePath = "/api/v0"
	}
	if cfg.Escalation.CooldownMinutes == 0 {
		cfg.Escalation.CooldownMinutes = 30
	}
	if cfg.Escalation.BatchSize == 0 {
		cfg.Escalation.BatchSize = 50
	}
	if cfg.Escalation.MaxEscalations == 0 {
		cfg.Escalation.MaxEscalations = 3
	}
	if cfg.Escalation.SweepInterval == 0 {
		cfg.Escalation.SweepInterval = 60
	}
	if cfg.Escalation.RetentionDays == 0 {
		cfg.Escalation.RetentionDays = 30
	}
	if cfg.Notification.DispatchTimeout == 0 {
		cfg.Notification.DispatchTimeout = 10
	}
	if cfg.Notification.TelegramRateLimit == 0 {
		cfg.Notification.TelegramRateLimit = 30
	}

	return cfg, nil
}

// positiveIntEnv parses an optional numeric variable. Unset means 0 (the
// caller applies its default); anything set must parse to a positive
// integer.
func positiveIntEnv(key string) (int, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("%s must be a positive integer, got %q", key, raw)
	}
	return n, nil
}
