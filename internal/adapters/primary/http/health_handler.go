package http

import (
	"context"
	"net/http"
	"runtime"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/lorrc/support-signals/internal/core/ports"
)

const (
	statusHealthy   = "healthy"
	statusDegraded  = "degraded"
	statusUnhealthy = "unhealthy"

	// A refresh loop is stale after missing this many intervals.
	staleRefreshIntervals = 3
)

// HealthChecker defines the interface for health check dependencies
type HealthChecker interface {
	Ping(ctx context.Context) error
}

// RefreshReporter exposes the background refresh loop's last outcome.
type RefreshReporter interface {
	Status() ports.RefreshStatus
}

// ClientCounter reports live push connections.
type ClientCounter interface {
	GetClientCount() int
}

// HealthHandler handles health check requests
type HealthHandler struct {
	db        HealthChecker
	refresher RefreshReporter
	clients   ClientCounter
	startTime time.Time
	version   string
	now       func() time.Time
}

// NewHealthHandler creates a new health handler. refresher and clients may be nil.
func NewHealthHandler(db HealthChecker, refresher RefreshReporter, clients ClientCounter, version string) *HealthHandler {
	return &HealthHandler{
		db:        db,
		refresher: refresher,
		clients:   clients,
		startTime: time.Now(),
		version:   version,
		now:       time.Now,
	}
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status    string           `json:"status"`
	Timestamp string           `json:"timestamp"`
	Version   string           `json:"version,omitempty"`
	Uptime    string           `json:"uptime,omitempty"`
	Checks    map[string]Check `json:"checks,omitempty"`
}

// Check represents an individual health check result
type Check struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
	Latency string `json:"latency,omitempty"`
}

// DetailedHealthResponse adds runtime figures to the health report.
type DetailedHealthResponse struct {
	HealthResponse
	WebSocketClients int    `json:"websocketClients"`
	Goroutines       int    `json:"goroutines"`
	HeapAllocBytes   uint64 `json:"heapAllocBytes"`
	NumGC            uint32 `json:"numGc"`
}

// RegisterRoutes registers health check routes
func (h *HealthHandler) RegisterRoutes(r chi.Router) {
	r.Get("/health", h.HandleHealth)
	r.Get("/health/live", h.HandleLiveness)
	r.Get("/health/ready", h.HandleReadiness)
}

// HandleLiveness reports that the process is serving requests.
func (h *HealthHandler) HandleLiveness(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, HealthResponse{
		Status:    statusHealthy,
		Timestamp: h.timestamp(),
	})
}

// HandleReadiness reports whether the service can answer signal queries:
// the thread store must be reachable. A stale refresh loop only degrades.
func (h *HealthHandler) HandleReadiness(w http.ResponseWriter, r *http.Request) {
	response := h.evaluate(r.Context())

	statusCode := http.StatusOK
	if response.Status == statusUnhealthy {
		statusCode = http.StatusServiceUnavailable
	}
	WriteJSON(w, statusCode, response)
}

// HandleHealth returns the readiness checks plus runtime figures.
func (h *HealthHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	response := DetailedHealthResponse{
		HealthResponse: h.evaluate(r.Context()),
		Goroutines:     runtime.NumGoroutine(),
		HeapAllocBytes: memStats.HeapAlloc,
		NumGC:          memStats.NumGC,
	}
	if h.clients != nil {
		response.WebSocketClients = h.clients.GetClientCount()
	}

	statusCode := http.StatusOK
	if response.Status != statusHealthy {
		statusCode = http.StatusServiceUnavailable
	}
	WriteJSON(w, statusCode, response)
}

func (h *HealthHandler) evaluate(ctx context.Context) HealthResponse {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	checks := map[string]Check{"database": h.checkDatabase(ctx)}
	if h.refresher != nil {
		checks["refresher"] = h.checkRefresher()
	}

	overall := statusHealthy
	for name, check := range checks {
		switch {
		case check.Status == statusHealthy:
		case name == "database":
			overall = statusUnhealthy
		case overall == statusHealthy:
			overall = statusDegraded
		}
	}

	return HealthResponse{
		Status:    overall,
		Timestamp: h.timestamp(),
		Version:   h.version,
		Uptime:    time.Since(h.startTime).Round(time.Second).String(),
		Checks:    checks,
	}
}

func (h *HealthHandler) checkDatabase(ctx context.Context) Check {
	if h.db == nil {
		return Check{Status: statusUnhealthy, Message: "Database not configured"}
	}

	start := time.Now()
	err := h.db.Ping(ctx)
	latency := time.Since(start).String()
	if err != nil {
		return Check{Status: statusUnhealthy, Message: err.Error(), Latency: latency}
	}
	return Check{Status: statusHealthy, Latency: latency}
}

func (h *HealthHandler) checkRefresher() Check {
	status := h.refresher.Status()

	if status.LastSuccess.IsZero() {
		if status.LastError != nil {
			return Check{Status: statusDegraded, Message: status.LastError.Error()}
		}
		return Check{Status: statusDegraded, Message: "No refresh completed yet"}
	}

	age := h.now().Sub(status.LastSuccess)
	if status.Interval > 0 && age > staleRefreshIntervals*status.Interval {
		msg := "Last refresh " + age.Round(time.Second).String() + " ago"
		if status.LastError != nil {
			msg += ": " + status.LastError.Error()
		}
		return Check{Status: statusDegraded, Message: msg}
	}
	return Check{Status: statusHealthy, Message: "Last refresh " + age.Round(time.Second).String() + " ago"}
}

func (h *HealthHandler) timestamp() string {
	return h.now().UTC().Format(time.RFC3339)
}
