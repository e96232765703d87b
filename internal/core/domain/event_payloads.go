package domain

import "time"

// DashboardSnapshot is the websocket payload for a refreshed dashboard.
type DashboardSnapshot struct {
	AsOf           string      `json:"asOf"`
	ThreadCount    int         `json:"threadCount"`
	SkippedRecords int         `json:"skippedRecords"`
	QueueHealth    QueueHealth `json:"queueHealth"`
	Heatmap        Heatmap     `json:"heatmap"`
	RiskRadar      []RiskPoint `json:"riskRadar"`
	AlertCount     int         `json:"alertCount"`
}

// AlertSnapshot is the websocket and broker payload for an alert transition.
type AlertSnapshot struct {
	Alert
	AsOf string `json:"asOf"`
}

// NewDashboardSnapshot builds the push payload from a computed dashboard.
func NewDashboardSnapshot(d *Dashboard) DashboardSnapshot {
	return DashboardSnapshot{
		AsOf:           d.AsOf.UTC().Format(time.RFC3339),
		ThreadCount:    d.ThreadCount,
		SkippedRecords: d.SkippedRecords,
		QueueHealth:    d.QueueHealth,
		Heatmap:        d.Heatmap,
		RiskRadar:      d.RiskRadar,
		AlertCount:     len(d.Alerts),
	}
}

// NewAlertSnapshot pairs an alert with the time it was evaluated.
func NewAlertSnapshot(alert Alert, asOf time.Time) AlertSnapshot {
	return AlertSnapshot{
		Alert: alert,
		AsOf:  asOf.UTC().Format(time.RFC3339),
	}
}
