package http

import (
	"log/slog"
	"net/http"

	gws "github.com/gorilla/websocket"

	"silverpulse/internal/config"
	"silverpulse/internal/infrastructure"
	ws "silverpulse/internal/websocket"
)

// WebSocketHandler upgrades /ws requests and attaches them to the hub
type WebSocketHandler struct {
	hub      *ws.Hub
	upgrader *gws.Upgrader
	cfg      config.WebSocketConfig
	logger   *slog.Logger
}

// NewWebSocketHandler creates a WebSocket handler
func NewWebSocketHandler(hub *ws.Hub, cfg config.WebSocketConfig, logger *slog.Logger) *WebSocketHandler {
	logger = logger.With(slog.String("handler", "websocket"))
	return &WebSocketHandler{
		hub:      hub,
		upgrader: ws.NewUpgrader(cfg, logger),
		cfg:      cfg,
		logger:   logger,
	}
}

// ServeHTTP handles GET /ws
func (h *WebSocketHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := infrastructure.EnsureTraceID(r.Context())
	r = r.WithContext(ctx)

	h.logger.InfoContext(ctx, "WebSocket upgrade request",
		slog.String("remote_addr", r.RemoteAddr),
		slog.String("origin", r.Header.Get("Origin")),
		slog.String("user_agent", r.UserAgent()))

	// the upgrader has already written the error response
	if err := ws.ServeWS(h.hub, h.upgrader, h.cfg, w, r, h.logger); err != nil {
		h.logger.WarnContext(ctx, "WebSocket upgrade failed", slog.String("error", err.Error()))
		return
	}
	h.logger.InfoContext(ctx, "WebSocket client connected", slog.String("remote_addr", r.RemoteAddr))
}
