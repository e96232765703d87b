package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/lorrc/support-signals/internal/adapters/primary/validation"
	"github.com/lorrc/support-signals/internal/core/domain"
	"github.com/lorrc/support-signals/internal/core/ports"
)

const (
	maxSnapshotThreads  = 50000
	maxFilterLength     = 200
	maxThreadIDLength   = 200
	defaultHistoryLimit = 50
	maxHistoryLimit     = 500
)

// SignalHandler handles HTTP requests for computed signals
type SignalHandler struct {
	signalService       ports.SignalService
	alertHistoryService ports.AlertHistoryService
	errorHandler        *ErrorHandler
	maxRequestBytes     int64
	writeMiddleware     []func(http.Handler) http.Handler
	logger              *slog.Logger
}

// NewSignalHandler creates a new signal handler
func NewSignalHandler(
	signalService ports.SignalService,
	alertHistoryService ports.AlertHistoryService,
	errorHandler *ErrorHandler,
	maxRequestBytes int64,
	logger *slog.Logger,
) *SignalHandler {
	return &SignalHandler{
		signalService:       signalService,
		alertHistoryService: alertHistoryService,
		errorHandler:        errorHandler,
		maxRequestBytes:     maxRequestBytes,
		logger:              logger.With("handler", "signals"),
	}
}

// UseForSnapshots adds middleware applied only to the routes that accept a
// full snapshot body (evaluate and import).
func (h *SignalHandler) UseForSnapshots(middlewares ...func(http.Handler) http.Handler) {
	h.writeMiddleware = append(h.writeMiddleware, middlewares...)
}

// Router sets up a new chi Router for all signal routes.
func (h *SignalHandler) Router() http.Handler {
	r := chi.NewRouter()
	h.RegisterRoutes(r)
	return r
}

// RegisterRoutes sets up the routing for all signal endpoints.
func (h *SignalHandler) RegisterRoutes(r chi.Router) {
	r.Route("/signals", func(r chi.Router) {
		r.Get("/", h.HandleDashboard)
		r.Get("/stages", h.HandleStageDistribution)
		r.Get("/heatmap", h.HandleHeatmap)
		r.Get("/queue-health", h.HandleQueueHealth)
		r.Get("/risk-radar", h.HandleRiskRadar)
		r.Get("/alerts", h.HandleAlerts)
		r.With(h.writeMiddleware...).Post("/evaluate", h.HandleEvaluate)
	})

	r.Route("/threads", func(r chi.Router) {
		r.With(h.writeMiddleware...).Put("/", h.HandleImport)
		r.Get("/{threadID}/stage", h.HandleThreadStage)
	})

	r.Get("/alerts/history", h.HandleAlertHistory)
}

// --- Request/Response DTOs ---

// SnapshotRequest is the body of evaluate and import requests.
type SnapshotRequest struct {
	domain.SnapshotDocument
}

// Validate validates the snapshot request
func (r *SnapshotRequest) Validate() error {
	v := validation.NewValidator()

	v.Max("threads", len(r.Threads), maxSnapshotThreads)

	if r.KPI != nil {
		v.Custom("kpi.totalThreads", r.KPI.TotalThreads >= 0, "Must not be negative")
		v.Custom("kpi.escalationCount", r.KPI.EscalationCount >= 0, "Must not be negative")
		v.Custom("kpi.internalPendingCount", r.KPI.InternalPendingCount >= 0, "Must not be negative")
		v.Custom("kpi.urgentThreadsCount", r.KPI.UrgentThreadsCount >= 0, "Must not be negative")
	}

	if v.HasErrors() {
		return v.Errors()
	}
	return nil
}

// ImportResponse reports what an import stored.
type ImportResponse struct {
	Imported int  `json:"imported"`
	Skipped  int  `json:"skipped"`
	KPISaved bool `json:"kpiSaved"`
}

// AlertEventDTO defines the JSON response for an alert history entry.
type AlertEventDTO struct {
	ID       int64    `json:"id"`
	AlertID  string   `json:"alertId"`
	Type     string   `json:"type"`
	Severity string   `json:"severity"`
	Count    int      `json:"count"`
	Value    *float64 `json:"value,omitempty"`
	Title    string   `json:"title"`
	RaisedAt string   `json:"raisedAt"`
}

func toAlertEventDTOs(events []*domain.AlertEvent) []AlertEventDTO {
	response := make([]AlertEventDTO, 0, len(events))
	for _, e := range events {
		response = append(response, AlertEventDTO{
			ID:       e.ID,
			AlertID:  e.AlertID,
			Type:     string(e.Type),
			Severity: string(e.Severity),
			Count:    e.Count,
			Value:    e.Value,
			Title:    e.Title,
			RaisedAt: e.RaisedAt.UTC().Format(time.RFC3339),
		})
	}
	return response
}

// --- Handlers ---

// HandleDashboard handles GET /signals
func (h *SignalHandler) HandleDashboard(w http.ResponseWriter, r *http.Request) {
	dashboard, ok := h.computeDashboard(w, r)
	if !ok {
		return
	}
	WriteJSON(w, http.StatusOK, dashboard)
}

// HandleStageDistribution handles GET /signals/stages
func (h *SignalHandler) HandleStageDistribution(w http.ResponseWriter, r *http.Request) {
	dashboard, ok := h.computeDashboard(w, r)
	if !ok {
		return
	}
	WriteList(w, dashboard.StageDistribution)
}

// HandleHeatmap handles GET /signals/heatmap
func (h *SignalHandler) HandleHeatmap(w http.ResponseWriter, r *http.Request) {
	dashboard, ok := h.computeDashboard(w, r)
	if !ok {
		return
	}
	WriteJSON(w, http.StatusOK, dashboard.Heatmap)
}

// HandleQueueHealth handles GET /signals/queue-health
func (h *SignalHandler) HandleQueueHealth(w http.ResponseWriter, r *http.Request) {
	dashboard, ok := h.computeDashboard(w, r)
	if !ok {
		return
	}
	WriteJSON(w, http.StatusOK, dashboard.QueueHealth)
}

// HandleRiskRadar handles GET /signals/risk-radar
func (h *SignalHandler) HandleRiskRadar(w http.ResponseWriter, r *http.Request) {
	dashboard, ok := h.computeDashboard(w, r)
	if !ok {
		return
	}
	WriteList(w, dashboard.RiskRadar)
}

// HandleAlerts handles GET /signals/alerts
func (h *SignalHandler) HandleAlerts(w http.ResponseWriter, r *http.Request) {
	dashboard, ok := h.computeDashboard(w, r)
	if !ok {
		return
	}
	WriteList(w, dashboard.Alerts)
}

// HandleEvaluate handles POST /signals/evaluate
func (h *SignalHandler) HandleEvaluate(w http.ResponseWriter, r *http.Request) {
	req, err := validation.DecodeAndValidate[SnapshotRequest](w, r, h.maxRequestBytes)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	// A query asOf overrides the one in the body
	asOf := req.AsOf
	queryAsOf, err := validation.ParseTimeQueryParam(r, "asOf")
	if err != nil {
		v := validation.NewValidator()
		v.Custom("asOf", false, "Must be a valid date or timestamp")
		h.errorHandler.Handle(w, r, v.Errors())
		return
	}
	if queryAsOf != nil {
		asOf = asOfFromParam(queryAsOf)
	}

	dashboard, err := h.signalService.Evaluate(r.Context(), ports.EvaluateParams{
		Threads: domain.ThreadsFromDocuments(req.Threads),
		KPI:     req.KPI,
		AsOf:    asOf,
	})
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	WriteJSON(w, http.StatusOK, dashboard)
}

// HandleImport handles PUT /threads
func (h *SignalHandler) HandleImport(w http.ResponseWriter, r *http.Request) {
	req, err := validation.DecodeAndValidate[SnapshotRequest](w, r, h.maxRequestBytes)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	result, err := h.signalService.ImportSnapshot(r.Context(), ports.ImportParams{
		Threads: domain.ThreadsFromDocuments(req.Threads),
		KPI:     req.KPI,
	})
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	h.logger.InfoContext(r.Context(), "snapshot import accepted",
		"imported", result.Imported,
		"skipped", result.Skipped,
	)

	WriteJSON(w, http.StatusOK, ImportResponse{
		Imported: result.Imported,
		Skipped:  result.Skipped,
		KPISaved: result.KPISaved,
	})
}

// HandleThreadStage handles GET /threads/{threadID}/stage
func (h *SignalHandler) HandleThreadStage(w http.ResponseWriter, r *http.Request) {
	threadID := chi.URLParam(r, "threadID")

	v := validation.NewValidator()
	v.Required("threadId", threadID).
		MaxLength("threadId", threadID, maxThreadIDLength)
	if v.HasErrors() {
		h.errorHandler.Handle(w, r, v.Errors())
		return
	}

	stage, err := h.signalService.ClassifyThread(r.Context(), threadID)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	WriteJSON(w, http.StatusOK, stage)
}

// HandleAlertHistory handles GET /alerts/history
func (h *SignalHandler) HandleAlertHistory(w http.ResponseWriter, r *http.Request) {
	afterID := validation.ParseInt64QueryParam(r, "afterId", 0)
	limit := validation.ParseIntQueryParam(r, "limit", defaultHistoryLimit)

	v := validation.NewValidator()
	v.Range("limit", limit, 1, maxHistoryLimit)
	if v.HasErrors() {
		h.errorHandler.Handle(w, r, v.Errors())
		return
	}

	events, err := h.alertHistoryService.ListAlertEvents(r.Context(), ports.ListAlertEventsParams{
		AfterID: afterID,
		Limit:   limit,
	})
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	WriteList(w, toAlertEventDTOs(events))
}

// --- Helper Methods ---

// computeDashboard parses the shared filter parameters and computes the
// dashboard. It writes the error response itself and reports false on failure.
func (h *SignalHandler) computeDashboard(w http.ResponseWriter, r *http.Request) (*domain.Dashboard, bool) {
	params, err := parseDashboardParams(r)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return nil, false
	}

	dashboard, err := h.signalService.ComputeDashboard(r.Context(), params)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return nil, false
	}
	return dashboard, true
}

func parseDashboardParams(r *http.Request) (ports.DashboardParams, error) {
	v := validation.NewValidator()

	owner := validation.ParseStringQueryParam(r, "owner")
	if owner != nil {
		v.MaxLength("owner", *owner, maxFilterLength)
	}

	topic := validation.ParseStringQueryParam(r, "topic")
	if topic != nil {
		v.MaxLength("topic", *topic, maxFilterLength)
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		limit = validation.ParseIntQueryParam(r, "limit", -1)
		v.Range("limit", limit, 1, maxSnapshotThreads)
	}

	since, err := validation.ParseTimeQueryParam(r, "since")
	if err != nil {
		v.Custom("since", false, "Must be a valid date or timestamp")
	}

	asOfParam, err := validation.ParseTimeQueryParam(r, "asOf")
	if err != nil {
		v.Custom("asOf", false, "Must be a valid date or timestamp")
	}

	var sinceTime *time.Time
	if since != nil {
		sinceTime = &since.Time
	}

	asOf := asOfFromParam(asOfParam)
	if sinceTime != nil && asOf != nil && sinceTime.After(*asOf) {
		v.Custom("since", false, "Must be before asOf")
	}

	if v.HasErrors() {
		return ports.DashboardParams{}, v.Errors()
	}

	return ports.DashboardParams{
		AsOf: asOf,
		Filter: ports.ThreadFilter{
			Owner: owner,
			Topic: topic,
			Since: sinceTime,
			Limit: limit,
		},
	}, nil
}

// asOfFromParam treats a bare date as the end of that day.
func asOfFromParam(p *validation.TimeParam) *time.Time {
	if p == nil {
		return nil
	}
	t := p.Time
	if p.DateOnly {
		t = t.Add(24 * time.Hour)
	}
	return &t
}
