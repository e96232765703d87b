package http

import (
	"context"
	"encoding/json"
	"errors"
	stdhttp "net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lorrc/support-signals/internal/core/ports"
)

type stubPinger struct{ err error }

func (s stubPinger) Ping(context.Context) error { return s.err }

type stubRefresher struct{ status ports.RefreshStatus }

func (s stubRefresher) Status() ports.RefreshStatus { return s.status }

type stubClients int

func (s stubClients) GetClientCount() int { return int(s) }

func newHealthRouter(db HealthChecker, refresher RefreshReporter, now time.Time) stdhttp.Handler {
	h := NewHealthHandler(db, refresher, stubClients(3), "v1.2.3")
	h.now = func() time.Time { return now }

	r := chi.NewRouter()
	h.RegisterRoutes(r)
	return r
}

func TestHealthHandler_Readiness(t *testing.T) {
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	fresh := ports.RefreshStatus{Interval: 30 * time.Second, LastSuccess: now.Add(-10 * time.Second)}
	stale := ports.RefreshStatus{Interval: 30 * time.Second, LastSuccess: now.Add(-5 * time.Minute), LastError: errors.New("db down")}

	tests := []struct {
		name      string
		db        HealthChecker
		refresher RefreshReporter
		code      int
		status    string
	}{
		{"all healthy", stubPinger{}, stubRefresher{fresh}, stdhttp.StatusOK, statusHealthy},
		{"stale refresh degrades", stubPinger{}, stubRefresher{stale}, stdhttp.StatusOK, statusDegraded},
		{"no refresh yet degrades", stubPinger{}, stubRefresher{ports.RefreshStatus{Interval: time.Second}}, stdhttp.StatusOK, statusDegraded},
		{"database down", stubPinger{err: errors.New("connection refused")}, stubRefresher{fresh}, stdhttp.StatusServiceUnavailable, statusUnhealthy},
		{"database missing", nil, nil, stdhttp.StatusServiceUnavailable, statusUnhealthy},
		{"no refresher configured", stubPinger{}, nil, stdhttp.StatusOK, statusHealthy},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := newHealthRouter(tt.db, tt.refresher, now)
			recorder := httptest.NewRecorder()
			router.ServeHTTP(recorder, httptest.NewRequest(stdhttp.MethodGet, "/health/ready", nil))

			require.Equal(t, tt.code, recorder.Code)

			var response HealthResponse
			require.NoError(t, json.NewDecoder(recorder.Body).Decode(&response))
			assert.Equal(t, tt.status, response.Status)
			assert.Equal(t, "v1.2.3", response.Version)
		})
	}
}

func TestHealthHandler_Detailed(t *testing.T) {
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	refresher := stubRefresher{ports.RefreshStatus{Interval: time.Minute, LastSuccess: now.Add(-time.Hour)}}
	router := newHealthRouter(stubPinger{}, refresher, now)

	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, httptest.NewRequest(stdhttp.MethodGet, "/health", nil))

	require.Equal(t, stdhttp.StatusServiceUnavailable, recorder.Code)

	var response DetailedHealthResponse
	require.NoError(t, json.NewDecoder(recorder.Body).Decode(&response))
	assert.Equal(t, statusDegraded, response.Status)
	assert.Equal(t, 3, response.WebSocketClients)
	assert.Equal(t, statusHealthy, response.Checks["database"].Status)
	assert.Contains(t, response.Checks["refresher"].Message, "1h0m0s")
}

func TestHealthHandler_Liveness(t *testing.T) {
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	router := newHealthRouter(nil, nil, now)

	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, httptest.NewRequest(stdhttp.MethodGet, "/health/live", nil))

	require.Equal(t, stdhttp.StatusOK, recorder.Code)

	var response HealthResponse
	require.NoError(t, json.NewDecoder(recorder.Body).Decode(&response))
	assert.Equal(t, "2024-03-01T12:00:00Z", response.Timestamp)
}
