package ports

import (
	"context"
	"time"

	"github.com/lorrc/support-signals/internal/core/domain"
)

// DashboardParams defines the input for computing signals from the thread store.
type DashboardParams struct {
	AsOf   *time.Time // defaults to the service clock
	Filter ThreadFilter
}

// EvaluateParams defines the input for computing signals from a caller-supplied snapshot.
type EvaluateParams struct {
	Threads []domain.Thread
	KPI     *domain.KPISnapshot // derived from the threads when nil
	AsOf    *time.Time
}

// ImportParams defines the input for loading a snapshot into the thread store.
type ImportParams struct {
	Threads []domain.Thread
	KPI     *domain.KPISnapshot
}

// ImportResult reports what an import stored.
type ImportResult struct {
	Imported int
	Skipped  int
	KPISaved bool
}

// ListAlertEventsParams defines the input for listing alert history.
type ListAlertEventsParams struct {
	AfterID int64
	Limit   int
}

// NotificationParams defines the input for sending a notification.
type NotificationParams struct {
	Recipient string
	Subject   string
	Message   string
	AlertID   string
}

// SignalService defines the core operations of the signal engine host.
type SignalService interface {
	ComputeDashboard(ctx context.Context, params DashboardParams) (*domain.Dashboard, error)
	Evaluate(ctx context.Context, params EvaluateParams) (*domain.Dashboard, error)
	ClassifyThread(ctx context.Context, threadID string) (*domain.ThreadStage, error)
	ImportSnapshot(ctx context.Context, params ImportParams) (*ImportResult, error)
}

// RefreshStatus reports the outcome of the most recent background refresh.
type RefreshStatus struct {
	Interval    time.Duration
	LastSuccess time.Time // zero until the first successful cycle
	LastError   error
}

// AlertHistoryService defines the port for alert history queries.
type AlertHistoryService interface {
	ListAlertEvents(ctx context.Context, params ListAlertEventsParams) ([]*domain.AlertEvent, error)
}

// Broadcaster pushes real-time events to connected clients.
type Broadcaster interface {
	Broadcast(event domain.Event)
}

// AlertPublisher forwards newly raised alerts to downstream consumers.
type AlertPublisher interface {
	PublishAlerts(ctx context.Context, alerts []domain.Alert, asOf time.Time) error
	Close() error
}

// Notifier defines the port for sending asynchronous notifications.
type Notifier interface {
	Notify(ctx context.Context, params NotificationParams)
}

// TransactionManager defines the port for running atomic operations.
type TransactionManager interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}
