package websocket

import (
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/lorrc/support-signals/internal/core/domain"
)

const (
	writeWait = 10 * time.Second

	// Subscribers only send small control frames.
	maxMessageSize = 1024

	sendBufferSize = 64
)

// Control message types a subscriber may send.
const (
	msgSubscribe   = "SUBSCRIBE"
	msgUnsubscribe = "UNSUBSCRIBE"
	msgPing        = "PING"

	eventPong domain.EventType = "PONG"
)

// ClientOptions tunes the keep-alive of a connection.
type ClientOptions struct {
	PongWait     time.Duration
	PingInterval time.Duration // must be less than PongWait
}

// DefaultClientOptions returns the keep-alive used when none is configured.
func DefaultClientOptions() ClientOptions {
	return ClientOptions{PongWait: 60 * time.Second, PingInterval: 54 * time.Second}
}

// Client is one push subscriber. The hub owns the send channel: only the
// hub closes it, and only while holding its lock.
type Client struct {
	ID string

	hub  *Hub
	conn *websocket.Conn
	send chan domain.Event
	opts ClientOptions

	mu   sync.RWMutex
	subs map[string]struct{}

	closeOnce sync.Once
	logger    *slog.Logger
}

// NewClient creates a client that starts out subscribed to channels.
func NewClient(hub *Hub, conn *websocket.Conn, channels []string, opts ClientOptions, logger *slog.Logger) *Client {
	id := uuid.NewString()
	subs := make(map[string]struct{}, len(channels))
	for _, ch := range channels {
		subs[ch] = struct{}{}
	}
	return &Client{
		ID:     id,
		hub:    hub,
		conn:   conn,
		send:   make(chan domain.Event, sendBufferSize),
		opts:   opts,
		subs:   subs,
		logger: logger.With("client_id", id),
	}
}

func (c *Client) closeSend() {
	c.closeOnce.Do(func() { close(c.send) })
}

func (c *Client) setSubscribed(channel string, on bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if on {
		c.subs[channel] = struct{}{}
	} else {
		delete(c.subs, channel)
	}
}

// HasSubscription reports whether the client receives events for channel.
func (c *Client) HasSubscription(channel string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.subs[channel]
	return ok
}

func (c *Client) subscriptions() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]string, 0, len(c.subs))
	for ch := range c.subs {
		out = append(out, ch)
	}
	return out
}

// ReadPump reads control messages until the connection fails, then leaves
// the hub. Run it in its own goroutine.
func (c *Client) ReadPump() {
	defer func() {
		c.hub.leave(c)
		_ = c.conn.Close()
	}()

	extend := func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(c.opts.PongWait))
	}

	c.conn.SetReadLimit(maxMessageSize)
	if err := extend(""); err != nil {
		c.logger.Error("failed to set read deadline", "error", err)
		return
	}
	c.conn.SetPongHandler(extend)

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure, websocket.CloseNormalClosure) {
				c.logger.Warn("websocket read error", "error", err)
			}
			return
		}
		c.handleIncomingMessage(message)
	}
}

// WritePump writes queued events and keep-alive pings until the hub closes
// the send channel or a write fails. Run it in its own goroutine.
func (c *Client) WritePump() {
	ticker := time.NewTicker(c.opts.PingInterval)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case event, ok := <-c.send:
			if !ok {
				_ = c.write(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.writeEvent(event); err != nil {
				c.logger.Warn("failed to write event", "event_type", event.Type, "error", err)
				return
			}

		case <-ticker.C:
			if err := c.write(websocket.PingMessage, nil); err != nil {
				c.logger.Debug("failed to send ping", "error", err)
				return
			}
		}
	}
}

func (c *Client) write(messageType int, data []byte) error {
	if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return c.conn.WriteMessage(messageType, data)
}

func (c *Client) writeEvent(event domain.Event) error {
	if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return c.conn.WriteJSON(event)
}

// ClientMessage is a control frame sent by a subscriber, e.g.
// {"type":"SUBSCRIBE","payload":{"channel":"alerts"}}.
type ClientMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// SubscribePayload names the channel of a SUBSCRIBE or UNSUBSCRIBE frame.
type SubscribePayload struct {
	Channel string `json:"channel"`
}

func (c *Client) handleIncomingMessage(message []byte) {
	var msg ClientMessage
	if err := json.Unmarshal(message, &msg); err != nil {
		c.logger.Warn("failed to unmarshal client message", "error", err)
		return
	}

	switch msg.Type {
	case msgSubscribe, msgUnsubscribe:
		var p SubscribePayload
		if err := json.Unmarshal(msg.Payload, &p); err != nil || !IsKnownChannel(p.Channel) {
			c.logger.Warn("rejected subscription request", "type", msg.Type, "channel", p.Channel)
			return
		}
		if msg.Type == msgSubscribe {
			c.hub.subscribe(c, p.Channel)
		} else {
			c.hub.unsubscribe(c, p.Channel)
		}

	case msgPing:
		c.hub.reply(c, domain.Event{Type: eventPong})

	default:
		c.logger.Debug("received unknown message type", "type", msg.Type)
	}
}
