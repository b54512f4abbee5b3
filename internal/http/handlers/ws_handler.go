package handlers

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/estate-crm/backend/internal/auth"
	"github.com/estate-crm/backend/internal/config"
	"github.com/estate-crm/backend/internal/events"
	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// WSHub pushes automation events to connected dashboards. Anonymous
// connections are grouped under uuid.Nil.
type WSHub struct {
	cfg         *config.Config
	subscriber  events.Subscriber
	log         *zap.Logger
	mu          sync.RWMutex
	connections map[uuid.UUID][]*websocket.Conn
}

func NewWSHub(cfg *config.Config, subscriber events.Subscriber, log *zap.Logger) *WSHub {
	return &WSHub{
		cfg:         cfg,
		subscriber:  subscriber,
		log:         log,
		connections: make(map[uuid.UUID][]*websocket.Conn),
	}
}

func (h *WSHub) Start(ctx context.Context) error {
	return h.subscriber.Subscribe(ctx, events.StreamAutomation, h.broadcast)
}

func (h *WSHub) broadcast(event events.Event) {
	data, err := json.Marshal(event)
	if err != nil {
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, conns := range h.connections {
		for _, conn := range conns {
			if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
				h.log.Debug("ws write failed", zap.Error(err))
			}
		}
	}
}

// WSUpgradeMiddleware checks for websocket upgrade
func WSUpgradeMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	}
}

// authenticate resolves the operator from the token query parameter.
// ok is false when the connection must be refused.
func (h *WSHub) authenticate(token string) (operatorID uuid.UUID, ok bool, reason string) {
	if token == "" {
		if h.cfg.AuthRequired {
			return uuid.Nil, false, "missing token"
		}
		return uuid.Nil, true, ""
	}
	claims, err := auth.ParseJWT(h.cfg.JWTSecret, token)
	if err != nil {
		return uuid.Nil, false, "invalid token"
	}
	return claims.OperatorID, true, ""
}

func (h *WSHub) HandleWS(conn *websocket.Conn) {
	operatorID, ok, reason := h.authenticate(conn.Query("token"))
	if !ok {
		msg, _ := json.Marshal(map[string]string{"error": reason})
		_ = conn.WriteMessage(websocket.TextMessage, msg)
		conn.Close()
		return
	}

	h.mu.Lock()
	h.connections[operatorID] = append(h.connections[operatorID], conn)
	h.mu.Unlock()

	defer func() {
		h.mu.Lock()
		conns := h.connections[operatorID]
		for i, c := range conns {
			if c == conn {
				h.connections[operatorID] = append(conns[:i], conns[i+1:]...)
				break
			}
		}
		if len(h.connections[operatorID]) == 0 {
			delete(h.connections, operatorID)
		}
		h.mu.Unlock()
		conn.Close()
	}()

	// Read loop (keep alive / pings)
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
}
