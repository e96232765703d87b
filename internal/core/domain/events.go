package domain

import "time"

// EventType defines the type of real-time event.
type EventType string

const (
	EventDashboardUpdated EventType = "DASHBOARD_UPDATED"
	EventAlertRaised      EventType = "ALERT_RAISED"
	EventAlertCleared     EventType = "ALERT_CLEARED"
)

// Channels that websocket clients can subscribe to.
const (
	ChannelDashboard = "dashboard"
	ChannelAlerts    = "alerts"
)

// Event is the payload sent over WebSocket.
type Event struct {
	Type    EventType   `json:"type"`
	Payload interface{} `json:"payload"`
	Channel string      `json:"channel"` // Used for routing to subscribers
}

// AlertEvent is a persisted record of an alert becoming active.
type AlertEvent struct {
	ID       int64
	AlertID  string
	Type     AlertType
	Severity Severity
	Count    int
	Value    *float64
	Title    string
	RaisedAt time.Time
}
