package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"

	"alert-escalation-service/internal/escalation"
	"alert-escalation-service/internal/logging"
	"alert-escalation-service/internal/models"
)

// alertMessage is the inbound event payload on the alert topic.
type alertMessage struct {
	UserID       int            `json:"user_id"`
	AlertType    string         `json:"alert_type"`
	GlucoseValue *float64       `json:"glucose_value"`
	Threshold    *float64       `json:"threshold"`
	TriggerTime  time.Time      `json:"trigger_time"`
	AlertRuleID  string         `json:"alert_rule_id"`
	Context      map[string]any `json:"context"`
}

// Consumer reads threshold-breach events and feeds them to the engine.
type Consumer struct {
	reader *kafka.Reader
	engine *escalation.Service
	logger *logging.Logger
}

func NewConsumer(brokers []string, topic, groupID string, engine *escalation.Service, logger *logging.Logger) *Consumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  brokers,
		Topic:    topic,
		GroupID:  groupID,
		MinBytes: 1,
		MaxBytes: 10e6,
	})
	return &Consumer{reader: reader, engine: engine, logger: logger}
}

// Start consumes until the context is cancelled. Malformed messages are
// logged and skipped; ingestion failures do not stop the loop.
func (c *Consumer) Start(ctx context.Context) {
	c.logger.Infof("Kafka consumer started on topic %s", c.reader.Config().Topic)
	for {
		msg, err := c.reader.ReadMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				c.logger.Infof("Kafka consumer stopped")
				return
			}
			c.logger.Errorf("Read message failed: %v", err)
			continue
		}

		var m alertMessage
		if err := json.Unmarshal(msg.Value, &m); err != nil {
			c.logger.Errorf("Unmarshal message failed: %v", err)
			continue
		}

		alertType, err := models.ParseAlertType(m.AlertType)
		if err != nil {
			c.logger.Errorf("Invalid message: %v", err)
			continue
		}
		if m.UserID < 1 {
			c.logger.Errorf("Invalid message: missing user_id")
			continue
		}

		ev := models.AlertEvent{
			UserID:       m.UserID,
			Type:         alertType,
			GlucoseValue: m.GlucoseValue,
			Threshold:    m.Threshold,
			TriggerTime:  m.TriggerTime,
			Context:      m.Context,
		}
		if m.AlertRuleID != "" {
			if ruleID, err := uuid.Parse(m.AlertRuleID); err == nil {
				ev.RuleID = &ruleID
			} else {
				c.logger.Warnf("Ignoring malformed alert_rule_id %q: %v", m.AlertRuleID, err)
			}
		}

		if rec, err := c.engine.IngestAlertEvent(ctx, ev); err != nil {
			c.logger.Errorf("Ingest from Kafka failed for user %d: %v", m.UserID, err)
		} else {
			c.logger.Infof("Ingested alert %s from Kafka for user %d", rec.ID, m.UserID)
		}
	}
}

func (c *Consumer) Close() {
	if err := c.reader.Close(); err != nil {
		c.logger.Errorf("Kafka reader close failed: %v", err)
	}
}
