package services

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

// Event types pushed over the websocket
const (
	EventReviewLiked    = "review_liked"
	EventCommentAdded   = "comment_added"
	EventFollowed       = "followed"
	EventHangoutCreated = "hangout_created"
	EventHangoutUpdated = "hangout_updated"
)

// Event represents a websocket notification
type Event struct {
	Type      string      `json:"type"`
	Timestamp int64       `json:"timestamp"`
	ActorID   string      `json:"actor_id,omitempty"`
	SubjectID string      `json:"subject_id,omitempty"`
	Data      interface{} `json:"data,omitempty"`
}

// Conn is the part of a websocket connection the hub writes to
type Conn interface {
	WriteMessage(messageType int, data []byte) error
	Close() error
}

// hubConn serializes writes, which gorilla connections do not allow concurrently
type hubConn struct {
	mu   sync.Mutex
	conn Conn
}

func (c *hubConn) write(data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteMessage(websocket.TextMessage, data)
}

// NotificationHub manages websocket connections, several per user
type NotificationHub struct {
	mu          sync.RWMutex
	connections map[string]map[Conn]*hubConn
}

// NewNotificationHub creates a new notification hub
func NewNotificationHub() *NotificationHub {
	return &NotificationHub{
		connections: make(map[string]map[Conn]*hubConn),
	}
}

// Register adds a connection for a user
func (h *NotificationHub) Register(userID string, conn Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.connections[userID] == nil {
		h.connections[userID] = make(map[Conn]*hubConn)
	}
	h.connections[userID][conn] = &hubConn{conn: conn}

	log.Info().Str("user_id", userID).Int("connections", len(h.connections[userID])).Msg("WebSocket connection registered")
}

// Unregister closes and removes one connection of a user
func (h *NotificationHub) Unregister(userID string, conn Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	conns, exists := h.connections[userID]
	if !exists {
		return
	}
	if _, ok := conns[conn]; !ok {
		return
	}
	conn.Close()
	delete(conns, conn)
	if len(conns) == 0 {
		delete(h.connections, userID)
	}
	log.Info().Str("user_id", userID).Msg("WebSocket connection unregistered")
}

// Notify pushes event to every connection of userID. Offline users are skipped.
func (h *NotificationHub) Notify(userID string, event Event) int {
	if userID == "" {
		return 0
	}
	if event.Timestamp == 0 {
		event.Timestamp = time.Now().UnixMilli()
	}

	h.mu.RLock()
	targets := make([]*hubConn, 0, len(h.connections[userID]))
	for _, c := range h.connections[userID] {
		targets = append(targets, c)
	}
	h.mu.RUnlock()

	if len(targets) == 0 {
		return 0
	}

	data, err := json.Marshal(event)
	if err != nil {
		log.Error().Err(err).Str("type", event.Type).Msg("Failed to marshal event")
		return 0
	}

	delivered := 0
	for _, c := range targets {
		if err := c.write(data); err != nil {
			log.Warn().Err(err).Str("user_id", userID).Str("type", event.Type).Msg("Failed to push event")
			h.Unregister(userID, c.conn)
			continue
		}
		delivered++
	}
	return delivered
}

// IsOnline checks if a user has at least one connection
func (h *NotificationHub) IsOnline(userID string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.connections[userID]) > 0
}
