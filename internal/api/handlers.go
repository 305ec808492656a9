package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"alert-escalation-service/internal/db"
	"alert-escalation-service/internal/escalation"
	"alert-escalation-service/internal/logging"
	"alert-escalation-service/internal/models"
	"alert-escalation-service/internal/scheduler"
)

type Handler struct {
	db        *db.DB
	engine    *escalation.Service
	scheduler *scheduler.Scheduler
	logger    *logging.Logger
}

func NewHandler(db *db.DB, engine *escalation.Service, sched *scheduler.Scheduler, logger *logging.Logger) *Handler {
	return &Handler{db: db, engine: engine, scheduler: sched, logger: logger}
}

type ingestRequest struct {
	UserID       int            `json:"user_id" binding:"required"`
	AlertType    string         `json:"alert_type" binding:"required"`
	GlucoseValue *float64       `json:"glucose_value"`
	Threshold    *float64       `json:"threshold"`
	TriggerTime  time.Time      `json:"trigger_time"`
	AlertRuleID  string         `json:"alert_rule_id"`
	Context      map[string]any `json:"context"`
}

func (h *Handler) IngestAlert(c *gin.Context) {
	var req ingestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Errorf("Invalid request body for alert ingest: %v", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	alertType, err := models.ParseAlertType(req.AlertType)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ev := models.AlertEvent{
		UserID:       req.UserID,
		Type:         alertType,
		GlucoseValue: req.GlucoseValue,
		Threshold:    req.Threshold,
		TriggerTime:  req.TriggerTime,
		Context:      req.Context,
	}
	if req.AlertRuleID != "" {
		ruleID, err := uuid.Parse(req.AlertRuleID)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid alert_rule_id"})
			return
		}
		ev.RuleID = &ruleID
	}

	rec, err := h.engine.IngestAlertEvent(c.Request.Context(), ev)
	if err != nil {
		h.logger.Errorf("Failed to ingest alert for user %d: %v", req.UserID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to ingest alert"})
		return
	}
	c.JSON(http.StatusCreated, rec)
}

type acknowledgeRequest struct {
	SnoozeMinutes int `json:"snooze_minutes"`
}

func (h *Handler) AcknowledgeAlert(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid alert id"})
		return
	}

	var req acknowledgeRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
			return
		}
	}

	if err := h.engine.AcknowledgeAlert(c.Request.Context(), id, req.SnoozeMinutes); err != nil {
		h.logger.Errorf("Failed to acknowledge alert %s: %v", id, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to acknowledge alert"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *Handler) ResolveAlert(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid alert id"})
		return
	}

	if err := h.engine.ResolveAlert(c.Request.Context(), id); err != nil {
		h.logger.Errorf("Failed to resolve alert %s: %v", id, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to resolve alert"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

type resolveForUserRequest struct {
	AlertType string `json:"alert_type" binding:"required"`
}

func (h *Handler) ResolveAlertsForUser(c *gin.Context) {
	userID, err := strconv.Atoi(c.Param("user_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid user_id"})
		return
	}

	var req resolveForUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}
	alertType, err := models.ParseAlertType(req.AlertType)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	n, err := h.engine.ResolveAlertsForUser(c.Request.Context(), userID, alertType)
	if err != nil {
		h.logger.Errorf("Failed to resolve %s alerts for user %d: %v", alertType, userID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to resolve alerts"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"resolved": n})
}

func (h *Handler) GetAlertsByUserID(c *gin.Context) {
	userID, err := strconv.Atoi(c.Param("user_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid user_id"})
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	alerts, total, skipped, err := h.db.GetAlertsByUserID(c.Request.Context(), userID, limit, offset)
	if err != nil {
		h.logger.Errorf("Failed to get alerts for user %d: %v", userID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get alerts"})
		return
	}
	if skipped > 0 {
		h.logger.Warnf("Dropped %d undecodable alert records from user %d listing", skipped, userID)
	}
	c.JSON(http.StatusOK, gin.H{"alerts": alerts, "total": total})
}

func (h *Handler) RunEscalationSweep(c *gin.Context) {
	report, err := h.scheduler.Sweep(c.Request.Context())
	if err != nil {
		h.logger.Errorf("Manual escalation sweep failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Sweep failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"processed": report.Processed,
		"scheduled": report.Scheduled,
		"escalated": report.Escalated,
		"deferred":  report.Deferred,
		"exhausted": report.Exhausted,
		"skipped":   report.Skipped,
		"failed":    report.Failed,
	})
}

type cleanupRequest struct {
	DaysToKeep int `json:"days_to_keep"`
}

func (h *Handler) CleanupOldAlerts(c *gin.Context) {
	var req cleanupRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
			return
		}
	}

	removed, err := h.engine.CleanupOldAlerts(c.Request.Context(), req.DaysToKeep)
	if err != nil {
		h.logger.Errorf("Failed to clean up old alerts: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Cleanup failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"removed": removed})
}

type telegramContactRequest struct {
	ChatID int64 `json:"chat_id" binding:"required"`
}

func (h *Handler) SetTelegramContact(c *gin.Context) {
	userID, err := strconv.Atoi(c.Param("user_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid user_id"})
		return
	}

	var req telegramContactRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	if err := h.db.SetTelegramChatID(c.Request.Context(), userID, req.ChatID); err != nil {
		h.logger.Errorf("Failed to set telegram contact for user %d: %v", userID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to set contact"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
