package websocket

import (
	"context"
	"log/slog"
	"sync"

	"github.com/lorrc/support-signals/internal/core/domain"
	"github.com/lorrc/support-signals/internal/core/ports"
	"github.com/lorrc/support-signals/internal/infrastructure/metrics"
)

// Hub maintains the set of active clients and broadcasts events to the
// clients subscribed to each channel.
type Hub struct {
	// clients is every registered connection
	clients map[*Client]bool

	// rooms maps channel names to subscribed clients
	rooms map[string]map[*Client]bool

	// latest holds the last event per channel, replayed to new subscribers
	latest map[string]domain.Event

	broadcast  chan domain.Event
	Register   chan *Client
	Unregister chan *Client

	// done is closed when Run returns
	done chan struct{}

	// mu protects clients, rooms and latest
	mu sync.RWMutex

	logger *slog.Logger
}

var _ ports.Broadcaster = (*Hub)(nil)

// NewHub creates a new WebSocket hub
func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		rooms:      make(map[string]map[*Client]bool),
		latest:     make(map[string]domain.Event),
		broadcast:  make(chan domain.Event, 256),
		Register:   make(chan *Client),
		Unregister: make(chan *Client),
		done:       make(chan struct{}),
		logger:     logger.With("component", "websocket_hub"),
	}
}

// IsKnownChannel reports whether clients may subscribe to the channel.
func IsKnownChannel(channel string) bool {
	return channel == domain.ChannelDashboard || channel == domain.ChannelAlerts
}

// Broadcast queues an event for delivery. It never blocks; when the queue is
// full the event is dropped.
func (h *Hub) Broadcast(event domain.Event) {
	select {
	case h.broadcast <- event:
	default:
		h.logger.Warn("broadcast channel full, dropping event",
			"event_type", event.Type,
			"channel", event.Channel,
		)
	}
}

// Run starts the hub's event loop until ctx is done. Run it as a goroutine.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			return

		case client := <-h.Register:
			h.registerClient(client)

		case client := <-h.Unregister:
			h.unregisterClient(client)

		case event := <-h.broadcast:
			h.broadcastEvent(event)
		}
	}
}

// registerClient adds a client to the hub and to its initial channels, then
// replays the latest event of each channel
func (h *Hub) registerClient(client *Client) {
	h.mu.Lock()
	h.clients[client] = true
	for _, channel := range client.subscriptions() {
		h.joinLocked(client, channel)
		if latest, ok := h.latest[channel]; ok {
			h.deliverLocked(client, latest)
		}
	}
	total := len(h.clients)
	h.mu.Unlock()

	metrics.WebSocketClients.Set(float64(total))
	h.logger.Info("client registered",
		"client_id", client.ID,
		"total_connections", total,
	)
}

// unregisterClient removes a client from the hub and all rooms
func (h *Hub) unregisterClient(client *Client) {
	h.mu.Lock()
	if _, ok := h.clients[client]; !ok {
		h.mu.Unlock()
		return
	}
	delete(h.clients, client)
	for _, channel := range client.subscriptions() {
		h.leaveLocked(client, channel)
	}
	total := len(h.clients)
	client.closeSend()
	h.mu.Unlock()

	metrics.WebSocketClients.Set(float64(total))
	h.logger.Info("client unregistered", "client_id", client.ID)
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	clients := make([]*Client, 0, len(h.clients))
	for client := range h.clients {
		clients = append(clients, client)
	}
	h.clients = make(map[*Client]bool)
	h.rooms = make(map[string]map[*Client]bool)
	for _, client := range clients {
		client.closeSend()
	}
	h.mu.Unlock()

	metrics.WebSocketClients.Set(0)
}

// broadcastEvent sends an event to all clients subscribed to its channel
func (h *Hub) broadcastEvent(event domain.Event) {
	h.mu.Lock()
	h.latest[event.Channel] = event
	room := h.rooms[event.Channel]

	// Copy the client list to avoid holding the lock while sending
	clients := make([]*Client, 0, len(room))
	for client := range room {
		clients = append(clients, client)
	}
	h.mu.Unlock()

	h.logger.Debug("broadcasting event",
		"event_type", event.Type,
		"channel", event.Channel,
		"client_count", len(clients),
	)

	for _, client := range clients {
		select {
		case client.send <- event:
		default:
			h.logger.Warn("client send buffer full, unregistering", "client_id", client.ID)
			h.unregisterClient(client)
		}
	}
}

// subscribe adds a client to a channel and replays the channel's latest event
func (h *Hub) subscribe(client *Client, channel string) {
	h.mu.Lock()
	if !h.clients[client] {
		h.mu.Unlock()
		return
	}
	h.joinLocked(client, channel)
	if latest, ok := h.latest[channel]; ok {
		h.deliverLocked(client, latest)
	}
	h.mu.Unlock()

	h.logger.Debug("client subscribed", "client_id", client.ID, "channel", channel)
}

// unsubscribe removes a client from a channel
func (h *Hub) unsubscribe(client *Client, channel string) {
	h.mu.Lock()
	h.leaveLocked(client, channel)
	h.mu.Unlock()

	h.logger.Debug("client unsubscribed", "client_id", client.ID, "channel", channel)
}

func (h *Hub) joinLocked(client *Client, channel string) {
	if h.rooms[channel] == nil {
		h.rooms[channel] = make(map[*Client]bool)
	}
	h.rooms[channel][client] = true
	client.setSubscribed(channel, true)
}

func (h *Hub) leaveLocked(client *Client, channel string) {
	if room, ok := h.rooms[channel]; ok {
		delete(room, client)
		if len(room) == 0 {
			delete(h.rooms, channel)
		}
	}
	client.setSubscribed(channel, false)
}

// reply sends an event to one registered client without blocking.
func (h *Hub) reply(client *Client, event domain.Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.clients[client] {
		h.deliverLocked(client, event)
	}
}

// deliverLocked queues an event for a client whose send channel is still
// open. send is only closed with mu held, so callers must hold mu.
func (h *Hub) deliverLocked(client *Client, event domain.Event) {
	select {
	case client.send <- event:
	default:
	}
}

// Join registers a client. It returns false when the hub has stopped.
func (h *Hub) Join(client *Client) bool {
	select {
	case h.Register <- client:
		return true
	case <-h.done:
		return false
	}
}

// leave unregisters a client unless the hub has already stopped.
func (h *Hub) leave(client *Client) {
	select {
	case h.Unregister <- client:
	case <-h.done:
	}
}

// GetClientCount returns the total number of connected clients
func (h *Hub) GetClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// GetClientsInChannel returns the number of clients subscribed to a channel
func (h *Hub) GetClientsInChannel(channel string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[channel])
}
