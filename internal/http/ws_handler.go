package httpapi

import (
	"errors"
	"net/http"

	"babycare-backend/internal/repository"
	"babycare-backend/internal/service"
	"babycare-backend/internal/ws"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// WSHandler upgrades authenticated push sessions and seeds them with the
// connection greeting.
type WSHandler struct {
	registry *ws.Registry
	auth     service.AuthService
	health   service.HealthService
	upgrader websocket.Upgrader
	logger   *zap.Logger
}

// NewWSHandler creates the websocket handler.
func NewWSHandler(registry *ws.Registry, auth service.AuthService, health service.HealthService, logger *zap.Logger) *WSHandler {
	return &WSHandler{
		registry: registry,
		auth:     auth,
		health:   health,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// The dashboard and mobile app run on their own origins.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		logger: logger,
	}
}

// ServeWS handles GET /ws/{user_id}?token=...
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request, userIDStr string) {
	userID, ok := parseInt64(userIDStr)
	if !ok {
		writeJSON(w, http.StatusNotFound, Fail("user not found"))
		return
	}

	tokenString := extractToken(r)
	if tokenString == "" {
		writeJSON(w, http.StatusUnauthorized, Fail("missing token"))
		return
	}

	claims, err := h.auth.VerifyToken(tokenString)
	if err != nil {
		writeJSON(w, http.StatusUnauthorized, Fail("invalid token"))
		return
	}

	// A session may only subscribe to its own alert stream.
	if claims.UserID != userID {
		writeJSON(w, http.StatusForbidden, Fail("token does not match user"))
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("WebSocket upgrade failed",
			zap.Int64("user_id", userID),
			zap.Error(err),
		)
		return
	}

	client := ws.NewClient(h.registry, conn, userID, h.logger)
	h.registry.Register(client)

	h.registry.Send(client, ws.Event{
		Event:   "CONNECTED",
		Message: "Connected to Baby Health Monitoring",
		UserID:  userID,
	})

	// Seed the session with the current state so the dashboard renders
	// before the next reading arrives.
	if latest, err := h.health.Latest(r.Context(), userID); err == nil {
		h.registry.Send(client, ws.Event{Event: "LATEST_READING", Data: latest})
	} else if !errors.Is(err, repository.ErrNotFound) {
		h.logger.Warn("Failed to load latest reading for new session",
			zap.Int64("user_id", userID),
			zap.Error(err),
		)
	}

	go client.WritePump()
	go client.ReadPump()
}
