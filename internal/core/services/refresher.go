package services

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/lorrc/support-signals/internal/core/domain"
	"github.com/lorrc/support-signals/internal/core/ports"
	"github.com/lorrc/support-signals/internal/infrastructure/logging"
	"github.com/lorrc/support-signals/internal/infrastructure/metrics"
)

// RefresherConfig controls the background refresh loop.
type RefresherConfig struct {
	Interval        time.Duration
	AlertRecipients []string
}

// RefreshResult describes one refresh cycle.
type RefreshResult struct {
	Dashboard *domain.Dashboard
	Raised    []domain.Alert
	Cleared   []domain.Alert
}

// Refresher periodically recomputes the dashboard, pushes it to websocket
// subscribers and fans out alerts that were not active in the previous cycle.
type Refresher struct {
	signalSvc   ports.SignalService
	alertEvents ports.AlertEventRepository
	broadcaster ports.Broadcaster
	publisher   ports.AlertPublisher
	notifier    ports.Notifier
	cfg         RefresherConfig
	logger      *slog.Logger

	mu     sync.Mutex
	active map[string]domain.Alert
	wg     sync.WaitGroup

	// status of the most recent cycle, guarded by statusMu
	statusMu    sync.RWMutex
	lastSuccess time.Time
	lastErr     error
}

// NewRefresher creates a new refresher. publisher may be nil when no broker
// is configured.
func NewRefresher(
	signalSvc ports.SignalService,
	alertEvents ports.AlertEventRepository,
	broadcaster ports.Broadcaster,
	publisher ports.AlertPublisher,
	notifier ports.Notifier,
	cfg RefresherConfig,
	logger *slog.Logger,
) *Refresher {
	return &Refresher{
		signalSvc:   signalSvc,
		alertEvents: alertEvents,
		broadcaster: broadcaster,
		publisher:   publisher,
		notifier:    notifier,
		cfg:         cfg,
		logger:      logger.With("component", "refresher"),
		active:      make(map[string]domain.Alert),
	}
}

// Run refreshes once immediately and then on every interval until ctx is done.
func (r *Refresher) Run(ctx context.Context) {
	ctx = logging.WithComponent(ctx, "refresher")
	r.logger.InfoContext(ctx, "refresher started", "interval", r.cfg.Interval.String())

	if _, err := r.Refresh(ctx); err != nil {
		r.logger.ErrorContext(ctx, "refresh failed", "error", err)
	}

	ticker := time.NewTicker(r.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.logger.Info("refresher stopped")
			return
		case <-ticker.C:
			if _, err := r.Refresh(ctx); err != nil {
				r.logger.ErrorContext(ctx, "refresh failed", "error", err)
			}
		}
	}
}

// Refresh runs a single cycle. Fan-out failures are logged and counted but do
// not fail the cycle.
func (r *Refresher) Refresh(ctx context.Context) (*RefreshResult, error) {
	// 1. Recompute
	dashboard, err := r.signalSvc.ComputeDashboard(ctx, ports.DashboardParams{})
	if err != nil {
		err = fmt.Errorf("compute dashboard: %w", err)
		r.setStatus(time.Time{}, err)
		return nil, err
	}
	r.setStatus(time.Now(), nil)

	// 2. Push the dashboard
	r.broadcaster.Broadcast(domain.Event{
		Type:    domain.EventDashboardUpdated,
		Payload: domain.NewDashboardSnapshot(dashboard),
		Channel: domain.ChannelDashboard,
	})

	// 3. Diff against the previous cycle
	raised, cleared := r.transition(dashboard.Alerts)
	result := &RefreshResult{Dashboard: dashboard, Raised: raised, Cleared: cleared}

	// 4. Fan out
	for _, alert := range raised {
		metrics.RecordAlertRaised(string(alert.Type), string(alert.Severity))
		r.recordEvent(ctx, alert, dashboard.AsOf)
		r.broadcaster.Broadcast(domain.Event{
			Type:    domain.EventAlertRaised,
			Payload: domain.NewAlertSnapshot(alert, dashboard.AsOf),
			Channel: domain.ChannelAlerts,
		})
		if alert.Severity == domain.SeverityCritical {
			r.notifyCritical(alert)
		}
	}
	for _, alert := range cleared {
		r.broadcaster.Broadcast(domain.Event{
			Type:    domain.EventAlertCleared,
			Payload: domain.NewAlertSnapshot(alert, dashboard.AsOf),
			Channel: domain.ChannelAlerts,
		})
	}
	if r.publisher != nil && len(raised) > 0 {
		if err := r.publisher.PublishAlerts(ctx, raised, dashboard.AsOf); err != nil {
			metrics.PublishFailures.WithLabelValues("broker").Inc()
			r.logger.ErrorContext(ctx, "failed to publish alerts", "error", err, "count", len(raised))
		}
	}

	metrics.AlertsActive.Set(float64(len(dashboard.Alerts)))
	if len(raised) > 0 || len(cleared) > 0 {
		r.logger.InfoContext(ctx, "alerts changed", "raised", len(raised), "cleared", len(cleared))
	}
	return result, nil
}

// transition swaps in the current alert set and returns what changed. An
// alert that was active at a lower severity counts as raised again, so an
// escalation to critical is recorded and notified. The stored set always
// holds the latest version of each alert.
func (r *Refresher) transition(current []domain.Alert) (raised, cleared []domain.Alert) {
	r.mu.Lock()
	defer r.mu.Unlock()

	next := make(map[string]domain.Alert, len(current))
	for _, alert := range current {
		next[alert.ID] = alert
		prev, ok := r.active[alert.ID]
		if !ok || alert.Severity.Rank() < prev.Severity.Rank() {
			raised = append(raised, alert)
		}
	}
	for id, alert := range r.active {
		if _, ok := next[id]; !ok {
			cleared = append(cleared, alert)
		}
	}
	sort.Slice(cleared, func(i, j int) bool { return cleared[i].ID < cleared[j].ID })
	r.active = next
	return raised, cleared
}

func (r *Refresher) recordEvent(ctx context.Context, alert domain.Alert, asOf time.Time) {
	_, err := r.alertEvents.Create(ctx, &domain.AlertEvent{
		AlertID:  alert.ID,
		Type:     alert.Type,
		Severity: alert.Severity,
		Count:    alert.Count,
		Value:    alert.Value,
		Title:    alert.Title,
		RaisedAt: asOf,
	})
	if err != nil {
		metrics.PublishFailures.WithLabelValues("history").Inc()
		r.logger.ErrorContext(ctx, "failed to record alert event", "error", err, "alert_id", alert.ID)
	}
}

// notifyCritical emails every configured recipient in the background.
func (r *Refresher) notifyCritical(alert domain.Alert) {
	for _, recipient := range r.cfg.AlertRecipients {
		r.wg.Add(1)
		go func(recipient string) {
			defer r.wg.Done()
			// Use background context since the refresh cycle may be done
			r.notifier.Notify(context.Background(), ports.NotificationParams{
				Recipient: recipient,
				Subject:   fmt.Sprintf("[critical] %s", alert.Title),
				Message:   alert.Description,
				AlertID:   alert.ID,
			})
		}(recipient)
	}
}

// Status returns the outcome of the most recent cycle.
func (r *Refresher) Status() ports.RefreshStatus {
	r.statusMu.RLock()
	defer r.statusMu.RUnlock()
	return ports.RefreshStatus{Interval: r.cfg.Interval, LastSuccess: r.lastSuccess, LastError: r.lastErr}
}

// setStatus records a cycle outcome. A zero success time keeps the previous one.
func (r *Refresher) setStatus(success time.Time, err error) {
	r.statusMu.Lock()
	defer r.statusMu.Unlock()
	if !success.IsZero() {
		r.lastSuccess = success
	}
	r.lastErr = err
}

// Shutdown waits for in-flight notifications.
func (r *Refresher) Shutdown() {
	r.wg.Wait()
}
