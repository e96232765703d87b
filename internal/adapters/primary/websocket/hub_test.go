package websocket

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/lorrc/support-signals/internal/core/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func startHub(t *testing.T) *Hub {
	t.Helper()
	hub := NewHub(testLogger())
	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)
	t.Cleanup(cancel)
	return hub
}

func joinClient(t *testing.T, hub *Hub, channels ...string) *Client {
	t.Helper()
	client := NewClient(hub, nil, channels, DefaultClientOptions(), testLogger())
	require.True(t, hub.Join(client))
	require.Eventually(t, func() bool {
		hub.mu.RLock()
		defer hub.mu.RUnlock()
		return hub.clients[client]
	}, time.Second, 5*time.Millisecond)
	return client
}

func receive(t *testing.T, c *Client) domain.Event {
	t.Helper()
	select {
	case event := <-c.send:
		return event
	case <-time.After(time.Second):
		t.Fatal("no event received")
		return domain.Event{}
	}
}

func assertNothingReceived(t *testing.T, c *Client) {
	t.Helper()
	select {
	case event := <-c.send:
		t.Fatalf("unexpected event %s", event.Type)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestHub_RoutesByChannel(t *testing.T) {
	hub := startHub(t)
	dashboardOnly := joinClient(t, hub, domain.ChannelDashboard)
	alertsOnly := joinClient(t, hub, domain.ChannelAlerts)

	assert.Equal(t, 2, hub.GetClientCount())
	assert.Equal(t, 1, hub.GetClientsInChannel(domain.ChannelAlerts))

	hub.Broadcast(domain.Event{Type: domain.EventAlertRaised, Channel: domain.ChannelAlerts})

	assert.Equal(t, domain.EventAlertRaised, receive(t, alertsOnly).Type)
	assertNothingReceived(t, dashboardOnly)
}

func TestHub_ReplaysLatestEventToNewSubscribers(t *testing.T) {
	hub := startHub(t)
	first := joinClient(t, hub, domain.ChannelDashboard)

	hub.Broadcast(domain.Event{Type: domain.EventDashboardUpdated, Channel: domain.ChannelDashboard, Payload: "v1"})
	receive(t, first)

	late := joinClient(t, hub, domain.ChannelDashboard)
	event := receive(t, late)
	assert.Equal(t, "v1", event.Payload)

	other := joinClient(t, hub)
	hub.subscribe(other, domain.ChannelDashboard)
	assert.Equal(t, "v1", receive(t, other).Payload)
}

func TestHub_UnsubscribeAndUnregister(t *testing.T) {
	hub := startHub(t)
	client := joinClient(t, hub, domain.ChannelDashboard, domain.ChannelAlerts)

	hub.unsubscribe(client, domain.ChannelAlerts)
	assert.False(t, client.HasSubscription(domain.ChannelAlerts))

	hub.Broadcast(domain.Event{Type: domain.EventAlertRaised, Channel: domain.ChannelAlerts})
	assertNothingReceived(t, client)

	hub.leave(client)
	require.Eventually(t, func() bool { return hub.GetClientCount() == 0 }, time.Second, 5*time.Millisecond)

	_, open := <-client.send
	assert.False(t, open, "send channel should be closed")
	assert.Zero(t, hub.GetClientsInChannel(domain.ChannelDashboard))
}

func TestHub_StopClosesClients(t *testing.T) {
	hub := NewHub(testLogger())
	ctx, cancel := context.WithCancel(context.Background())
	stopped := make(chan struct{})
	go func() {
		hub.Run(ctx)
		close(stopped)
	}()

	client := NewClient(hub, nil, []string{domain.ChannelAlerts}, DefaultClientOptions(), testLogger())
	require.True(t, hub.Join(client))

	cancel()
	<-stopped

	_, open := <-client.send
	assert.False(t, open)
	assert.False(t, hub.Join(NewClient(hub, nil, nil, DefaultClientOptions(), testLogger())))
}

func TestClient_HandleIncomingMessage(t *testing.T) {
	hub := startHub(t)
	client := joinClient(t, hub)

	client.handleIncomingMessage([]byte(`{"type":"SUBSCRIBE","payload":{"channel":"alerts"}}`))
	assert.True(t, client.HasSubscription(domain.ChannelAlerts))

	client.handleIncomingMessage([]byte(`{"type":"SUBSCRIBE","payload":{"channel":"tickets"}}`))
	assert.False(t, client.HasSubscription("tickets"))

	client.handleIncomingMessage([]byte(`{"type":"PING"}`))
	assert.Equal(t, domain.EventType("PONG"), receive(t, client).Type)

	client.handleIncomingMessage([]byte(`{"type":"UNSUBSCRIBE","payload":{"channel":"alerts"}}`))
	assert.False(t, client.HasSubscription(domain.ChannelAlerts))

	client.handleIncomingMessage([]byte(`not json`))
}
