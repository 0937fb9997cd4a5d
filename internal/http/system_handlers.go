package httpapi

import (
	"database/sql"
	"net/http"

	"babycare-backend/internal/ws"

	"go.uber.org/zap"
)

// SystemHandler serves the unauthenticated service endpoints. Monitoring
// probes read these, so they bypass the Result envelope.
type SystemHandler struct {
	db       *sql.DB
	registry *ws.Registry
	logger   *zap.Logger
}

// NewSystemHandler creates the system handler.
func NewSystemHandler(db *sql.DB, registry *ws.Registry, logger *zap.Logger) *SystemHandler {
	return &SystemHandler{
		db:       db,
		registry: registry,
		logger:   logger,
	}
}

// Root handles GET / with service information.
func (h *SystemHandler) Root(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		writeJSON(w, http.StatusNotFound, Fail("not found"))
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"app":     "Baby Health Monitoring",
		"version": "1.0.0",
		"status":  "running",
		"endpoints": map[string]string{
			"auth":      "/api/auth",
			"health":    "/api/health",
			"websocket": "/ws/{user_id}",
		},
	})
}

// HealthCheck handles GET /health-check for liveness probes.
func (h *SystemHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	status := "healthy"
	database := "connected"
	if err := h.db.PingContext(r.Context()); err != nil {
		status = "degraded"
		database = "disconnected"
		h.logger.Warn("Health check database ping failed", zap.Error(err))
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"status":                status,
		"database":              database,
		"websocket_connections": h.registry.TotalConnections(),
		"connected_users":       len(h.registry.ConnectedUsers()),
	})
}
