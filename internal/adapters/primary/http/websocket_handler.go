package http

import (
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/gorilla/websocket"
	"github.com/lorrc/support-signals/internal/adapters/primary/validation"
	wsAdapter "github.com/lorrc/support-signals/internal/adapters/primary/websocket"
	"github.com/lorrc/support-signals/internal/config"
	"github.com/lorrc/support-signals/internal/core/domain"
)

// pushChannels are the channels a subscriber may name. All of them are
// joined when a connection names none.
var pushChannels = []string{domain.ChannelDashboard, domain.ChannelAlerts}

// WebSocketHandler upgrades subscribers onto the push hub.
type WebSocketHandler struct {
	hub          *wsAdapter.Hub
	upgrader     websocket.Upgrader
	clientOpts   wsAdapter.ClientOptions
	errorHandler *ErrorHandler
	logger       *slog.Logger
}

// NewWebSocketHandler creates a new WebSocket handler
func NewWebSocketHandler(
	hub *wsAdapter.Hub,
	cfg *config.Config,
	errorHandler *ErrorHandler,
	logger *slog.Logger,
) *WebSocketHandler {
	h := &WebSocketHandler{
		hub: hub,
		clientOpts: wsAdapter.ClientOptions{
			PongWait:     cfg.WebSocket.PongWait,
			PingInterval: cfg.WebSocket.PingInterval,
		},
		errorHandler: errorHandler,
		logger:       logger.With("handler", "websocket"),
	}

	allowAll := cfg.IsDevelopment()
	allowed := cfg.WebSocket.AllowedOrigins
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  cfg.WebSocket.ReadBufferSize,
		WriteBufferSize: cfg.WebSocket.WriteBufferSize,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if allowAll || originAllowed(origin, allowed) {
				return true
			}
			h.logger.WarnContext(r.Context(), "websocket origin rejected",
				"origin", origin,
				"remote_addr", r.RemoteAddr,
			)
			return false
		},
	}

	return h
}

// originAllowed matches the Origin host against exact hosts and "*.domain"
// patterns. Requests without an Origin come from non-browser clients and
// are allowed.
func originAllowed(origin string, allowed []string) bool {
	if origin == "" {
		return true
	}
	u, err := url.Parse(origin)
	if err != nil || u.Host == "" {
		return false
	}
	host := u.Host

	for _, pattern := range allowed {
		if domainSuffix, ok := strings.CutPrefix(pattern, "*."); ok {
			if host == domainSuffix || strings.HasSuffix(host, "."+domainSuffix) {
				return true
			}
			continue
		}
		if host == pattern {
			return true
		}
	}
	return false
}

// ServeHTTP validates ?channels=, upgrades, and hands the connection to the hub.
func (h *WebSocketHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	channels := validation.ParseStringListQueryParam(r, "channels")
	if len(channels) == 0 {
		channels = pushChannels
	}

	v := validation.NewValidator()
	for _, channel := range channels {
		v.OneOf("channels", channel, pushChannels)
	}
	if v.HasErrors() {
		h.errorHandler.Handle(w, r, v.Errors())
		return
	}

	// Upgrade writes its own error response.
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.WarnContext(ctx, "websocket upgrade failed", "error", err)
		return
	}

	client := wsAdapter.NewClient(h.hub, conn, channels, h.clientOpts, h.logger)
	if !h.hub.Join(client) {
		h.logger.WarnContext(ctx, "websocket hub stopped, closing connection")
		_ = conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"))
		_ = conn.Close()
		return
	}

	h.logger.InfoContext(ctx, "websocket subscriber joined",
		"client_id", client.ID,
		"channels", channels,
		"remote_addr", r.RemoteAddr,
	)

	go client.WritePump()
	go client.ReadPump()
}
