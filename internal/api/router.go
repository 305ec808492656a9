package api

import (
	"github.com/gin-gonic/gin"

	"alert-escalation-service/internal/config"
	"alert-escalation-service/internal/logging"
	"alert-escalation-service/internal/notifier"
)

func NewRouter(h *Handler, ws *notifier.WebSocketManager, logger *logging.Logger, cfg config.Config) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(RequestLoggingMiddleware(logger))

	api := r.Group(cfg.API.BasePath)
	{
		// Alerts
		api.POST("/alerts", h.IngestAlert)
		api.POST("/alerts/:id/acknowledge", h.AcknowledgeAlert)
		api.POST("/alerts/:id/resolve", h.ResolveAlert)
		api.POST("/alerts/users/:user_id/resolve", h.ResolveAlertsForUser)
		api.GET("/alerts/users/:user_id", h.GetAlertsByUserID)

		// Maintenance
		api.POST("/alerts/sweep", h.RunEscalationSweep)
		api.POST("/alerts/cleanup", h.CleanupOldAlerts)

		// Contacts
		api.PUT("/users/:user_id/telegram", h.SetTelegramContact)
	}

	r.GET("/ws/:user_id", WebSocketHandler(ws, logger))
	return r
}
