package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"alert-escalation-service/internal/logging"
	"alert-escalation-service/internal/notifier"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// WebSocketHandler upgrades the connection and registers it as a push
// channel for the user until the client disconnects.
func WebSocketHandler(ws *notifier.WebSocketManager, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, err := strconv.Atoi(c.Param("user_id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid user_id"})
			return
		}

		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			logger.Errorf("WebSocket upgrade failed for user %d: %v", userID, err)
			return
		}

		if !ws.AddConnection(userID, conn) {
			msg := websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "connection limit reached")
			if err := conn.WriteMessage(websocket.CloseMessage, msg); err != nil {
				logger.Debugf("Close frame for user %d failed: %v", userID, err)
			}
			conn.Close()
			return
		}
		defer func() {
			ws.RemoveConnection(userID, conn)
			conn.Close()
		}()

		// Drain client frames until the connection drops.
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}
}
