package handlers

import (
	"net/http"
	"strings"
	"time"

	"foodhub-gateway/internal/middleware"
	"foodhub-gateway/internal/services"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

const (
	pongWait   = 60 * time.Second
	pingPeriod = 50 * time.Second
)

// WebSocketHandler streams notifications to connected users
type WebSocketHandler struct {
	hub      *services.NotificationHub
	auth     *middleware.Authenticator
	upgrader websocket.Upgrader
}

// NewWebSocketHandler creates a new WebSocket handler; allowedOrigins is a comma separated list or "*"
func NewWebSocketHandler(hub *services.NotificationHub, auth *middleware.Authenticator, allowedOrigins string) *WebSocketHandler {
	return &WebSocketHandler{
		hub:  hub,
		auth: auth,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return originAllowed(allowedOrigins, r.Header.Get("Origin"))
			},
		},
	}
}

// HandleWebSocket handles GET /ws?token=
func (h *WebSocketHandler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	s, err := h.auth.WebSocketSession(r.URL.Query().Get("token"))
	if err != nil {
		respondError(w, "invalid token", http.StatusUnauthorized)
		return
	}
	userID := s.UserID

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Error().Err(err).Msg("Failed to upgrade WebSocket connection")
		return
	}

	h.hub.Register(userID, conn)
	defer h.hub.Unregister(userID, conn)

	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	done := make(chan struct{})
	defer close(done)
	go h.ping(conn, userID, done)

	log.Info().Str("user_id", userID).Msg("WebSocket connection established")

	// notifications only flow outward; reads keep the deadline and close handling alive
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Warn().Err(err).Str("user_id", userID).Msg("WebSocket error")
			}
			return
		}
	}
}

func (h *WebSocketHandler) ping(conn *websocket.Conn, userID string, done <-chan struct{}) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(10*time.Second)); err != nil {
				log.Debug().Err(err).Str("user_id", userID).Msg("WebSocket ping failed")
				return
			}
		}
	}
}

func originAllowed(allowed, origin string) bool {
	if allowed == "" || allowed == "*" || origin == "" {
		return true
	}
	for _, o := range strings.Split(allowed, ",") {
		if strings.TrimSpace(o) == origin {
			return true
		}
	}
	return false
}
