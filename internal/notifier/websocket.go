package notifier

import (
	"encoding/json"
	"sync"

	"github.com/gorilla/websocket"

	"alert-escalation-service/internal/logging"
	"alert-escalation-service/internal/models"
)

const maxConnsPerUser = 10

// WebSocketManager tracks live push connections per user.
type WebSocketManager struct {
	connections map[int]map[*websocket.Conn]bool // userID -> set of connections
	mutex       sync.Mutex
	logger      *logging.Logger
}

func NewWebSocketManager(logger *logging.Logger) *WebSocketManager {
	return &WebSocketManager{
		connections: make(map[int]map[*websocket.Conn]bool),
		logger:      logger,
	}
}

// AddConnection registers a connection for a user, capped per user. It
// reports false when the user is at the cap so the caller can refuse the
// connection instead of leaving the client subscribed to nothing.
func (m *WebSocketManager) AddConnection(userID int, conn *websocket.Conn) bool {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	if _, exists := m.connections[userID]; !exists {
		m.connections[userID] = make(map[*websocket.Conn]bool)
	}
	if len(m.connections[userID]) >= maxConnsPerUser {
		m.logger.Warnf("Max connections reached for user %d, refusing new connection", userID)
		return false
	}
	m.connections[userID][conn] = true
	m.logger.Infof("Added WebSocket connection for user %d (total: %d)", userID, len(m.connections[userID]))
	return true
}

// RemoveConnection drops a connection for a user.
func (m *WebSocketManager) RemoveConnection(userID int, conn *websocket.Conn) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	if conns, exists := m.connections[userID]; exists {
		delete(conns, conn)
		if len(conns) == 0 {
			delete(m.connections, userID)
		}
		m.logger.Infof("Removed WebSocket connection for user %d (remaining: %d)", userID, len(conns))
	}
}

// SendToUser pushes a notification to every live connection of a user and
// returns how many connections received it. Broken connections are dropped.
func (m *WebSocketManager) SendToUser(userID int, n models.Notification) int {
	payload, err := json.Marshal(n)
	if err != nil {
		m.logger.Errorf("Failed to marshal notification for user %d: %v", userID, err)
		return 0
	}

	m.mutex.Lock()
	defer m.mutex.Unlock()
	sent := 0
	if conns, exists := m.connections[userID]; exists {
		for conn := range conns {
			if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				m.logger.Errorf("Failed to send WebSocket message to user %d: %v", userID, err)
				delete(conns, conn)
				continue
			}
			sent++
		}
		if len(conns) == 0 {
			delete(m.connections, userID)
		}
	}
	return sent
}
