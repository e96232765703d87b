package services_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/lorrc/support-signals/internal/core/domain"
	"github.com/lorrc/support-signals/internal/core/mocks"
	"github.com/lorrc/support-signals/internal/core/ports"
	"github.com/lorrc/support-signals/internal/core/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type refresherFixture struct {
	signalSvc   *mocks.MockSignalService
	alertEvents *mocks.MockAlertEventRepository
	broadcaster *mocks.MockBroadcaster
	publisher   *mocks.MockAlertPublisher
	notifier    *mocks.MockNotifier
	refresher   *services.Refresher
}

func newRefresherFixture(recipients ...string) *refresherFixture {
	f := &refresherFixture{
		signalSvc:   mocks.NewMockSignalService(),
		alertEvents: mocks.NewMockAlertEventRepository(),
		broadcaster: mocks.NewMockBroadcaster(),
		publisher:   mocks.NewMockAlertPublisher(),
		notifier:    mocks.NewMockNotifier(),
	}
	f.refresher = services.NewRefresher(
		f.signalSvc, f.alertEvents, f.broadcaster, f.publisher, f.notifier,
		services.RefresherConfig{Interval: time.Minute, AlertRecipients: recipients},
		testLogger(),
	)
	return f
}

func dashboardWith(alerts ...domain.Alert) *domain.Dashboard {
	return &domain.Dashboard{AsOf: fixedNow, Alerts: alerts}
}

var (
	spikeAlert = domain.Alert{ID: "alert-intent-spike", Type: domain.AlertIntentSpike, Severity: domain.SeverityWarning, Title: "Urgent intent spike", Count: 60}
	slaAlert   = domain.Alert{ID: "alert-sla-breach-risk", Type: domain.AlertSLABreachRisk, Severity: domain.SeverityCritical, Title: "SLA breach risk", Count: 12}
)

func broadcastsOf(b *mocks.MockBroadcaster, eventType domain.EventType) []domain.Event {
	var out []domain.Event
	for _, call := range b.Calls {
		event := call.Arguments.Get(0).(domain.Event)
		if event.Type == eventType {
			out = append(out, event)
		}
	}
	return out
}

func TestRefresher_Refresh(t *testing.T) {
	ctx := context.Background()

	t.Run("fans out only newly raised alerts", func(t *testing.T) {
		f := newRefresherFixture("oncall@example.com", "lead@example.com")

		f.signalSvc.On("ComputeDashboard", ctx, ports.DashboardParams{}).Return(dashboardWith(slaAlert, spikeAlert), nil).Twice()
		f.broadcaster.On("Broadcast", mock.Anything).Return()
		f.alertEvents.On("Create", ctx, mock.AnythingOfType("*domain.AlertEvent")).Return(&domain.AlertEvent{ID: 1}, nil)
		f.publisher.On("PublishAlerts", ctx, []domain.Alert{slaAlert, spikeAlert}, fixedNow).Return(nil).Once()
		f.notifier.On("Notify", mock.Anything, mock.MatchedBy(func(p ports.NotificationParams) bool {
			return p.AlertID == slaAlert.ID
		})).Return()

		first, err := f.refresher.Refresh(ctx)
		require.NoError(t, err)
		assert.Equal(t, []domain.Alert{slaAlert, spikeAlert}, first.Raised)
		assert.Empty(t, first.Cleared)

		second, err := f.refresher.Refresh(ctx)
		require.NoError(t, err)
		assert.Empty(t, second.Raised)
		assert.Empty(t, second.Cleared)

		f.refresher.Shutdown()

		assert.Len(t, broadcastsOf(f.broadcaster, domain.EventDashboardUpdated), 2)
		raised := broadcastsOf(f.broadcaster, domain.EventAlertRaised)
		require.Len(t, raised, 2)
		assert.Equal(t, domain.ChannelAlerts, raised[0].Channel)

		f.alertEvents.AssertNumberOfCalls(t, "Create", 2)
		f.publisher.AssertExpectations(t)
		f.notifier.AssertNumberOfCalls(t, "Notify", 2)
	})

	t.Run("reports cleared alerts", func(t *testing.T) {
		f := newRefresherFixture()

		f.signalSvc.On("ComputeDashboard", ctx, ports.DashboardParams{}).Return(dashboardWith(spikeAlert), nil).Once()
		f.signalSvc.On("ComputeDashboard", ctx, ports.DashboardParams{}).Return(dashboardWith(), nil).Once()
		f.broadcaster.On("Broadcast", mock.Anything).Return()
		f.alertEvents.On("Create", ctx, mock.Anything).Return(&domain.AlertEvent{ID: 1}, nil)
		f.publisher.On("PublishAlerts", ctx, mock.Anything, fixedNow).Return(nil)

		_, err := f.refresher.Refresh(ctx)
		require.NoError(t, err)

		result, err := f.refresher.Refresh(ctx)
		require.NoError(t, err)
		assert.Empty(t, result.Raised)
		assert.Equal(t, []domain.Alert{spikeAlert}, result.Cleared)

		cleared := broadcastsOf(f.broadcaster, domain.EventAlertCleared)
		require.Len(t, cleared, 1)
		payload := cleared[0].Payload.(domain.AlertSnapshot)
		assert.Equal(t, spikeAlert.ID, payload.ID)
		f.notifier.AssertNotCalled(t, "Notify", mock.Anything, mock.Anything)
	})

	t.Run("fan-out failures do not fail the cycle", func(t *testing.T) {
		f := newRefresherFixture()

		f.signalSvc.On("ComputeDashboard", ctx, ports.DashboardParams{}).Return(dashboardWith(spikeAlert), nil)
		f.broadcaster.On("Broadcast", mock.Anything).Return()
		f.alertEvents.On("Create", ctx, mock.Anything).Return(nil, errors.New("db down"))
		f.publisher.On("PublishAlerts", ctx, mock.Anything, fixedNow).Return(errors.New("broker down"))

		result, err := f.refresher.Refresh(ctx)

		require.NoError(t, err)
		assert.Len(t, result.Raised, 1)
	})

	t.Run("escalation to critical is raised again", func(t *testing.T) {
		f := newRefresherFixture("oncall@example.com")

		criticalSpike := spikeAlert
		criticalSpike.Severity = domain.SeverityCritical

		f.signalSvc.On("ComputeDashboard", ctx, ports.DashboardParams{}).Return(dashboardWith(spikeAlert), nil).Once()
		f.signalSvc.On("ComputeDashboard", ctx, ports.DashboardParams{}).Return(dashboardWith(criticalSpike), nil).Once()
		f.signalSvc.On("ComputeDashboard", ctx, ports.DashboardParams{}).Return(dashboardWith(spikeAlert), nil).Once()
		f.signalSvc.On("ComputeDashboard", ctx, ports.DashboardParams{}).Return(dashboardWith(), nil).Once()
		f.broadcaster.On("Broadcast", mock.Anything).Return()
		f.alertEvents.On("Create", ctx, mock.Anything).Return(&domain.AlertEvent{ID: 1}, nil)
		f.publisher.On("PublishAlerts", ctx, mock.Anything, fixedNow).Return(nil)
		f.notifier.On("Notify", mock.Anything, mock.Anything).Return()

		_, err := f.refresher.Refresh(ctx)
		require.NoError(t, err)

		escalated, err := f.refresher.Refresh(ctx)
		require.NoError(t, err)
		assert.Equal(t, []domain.Alert{criticalSpike}, escalated.Raised)

		deescalated, err := f.refresher.Refresh(ctx)
		require.NoError(t, err)
		assert.Empty(t, deescalated.Raised, "a drop back to warning is not a new alert")

		cleared, err := f.refresher.Refresh(ctx)
		require.NoError(t, err)
		require.Len(t, cleared.Cleared, 1)
		assert.Equal(t, domain.SeverityWarning, cleared.Cleared[0].Severity, "cleared reports the latest severity")

		f.refresher.Shutdown()

		f.alertEvents.AssertNumberOfCalls(t, "Create", 2)
		f.publisher.AssertNumberOfCalls(t, "PublishAlerts", 2)
		f.notifier.AssertNumberOfCalls(t, "Notify", 1)
		assert.Len(t, broadcastsOf(f.broadcaster, domain.EventAlertRaised), 2)
	})

	t.Run("compute failure keeps the previous alert set", func(t *testing.T) {
		f := newRefresherFixture()

		f.signalSvc.On("ComputeDashboard", ctx, ports.DashboardParams{}).Return(dashboardWith(spikeAlert), nil).Once()
		f.signalSvc.On("ComputeDashboard", ctx, ports.DashboardParams{}).Return(nil, errors.New("db down")).Once()
		f.signalSvc.On("ComputeDashboard", ctx, ports.DashboardParams{}).Return(dashboardWith(spikeAlert), nil).Once()
		f.broadcaster.On("Broadcast", mock.Anything).Return()
		f.alertEvents.On("Create", ctx, mock.Anything).Return(&domain.AlertEvent{ID: 1}, nil)
		f.publisher.On("PublishAlerts", ctx, mock.Anything, fixedNow).Return(nil)

		assert.True(t, f.refresher.Status().LastSuccess.IsZero())

		_, err := f.refresher.Refresh(ctx)
		require.NoError(t, err)
		firstSuccess := f.refresher.Status().LastSuccess
		assert.False(t, firstSuccess.IsZero())

		_, err = f.refresher.Refresh(ctx)
		require.Error(t, err)
		status := f.refresher.Status()
		assert.Error(t, status.LastError)
		assert.Equal(t, firstSuccess, status.LastSuccess)
		assert.Equal(t, time.Minute, status.Interval)

		result, err := f.refresher.Refresh(ctx)
		require.NoError(t, err)
		assert.Empty(t, result.Raised)
		assert.NoError(t, f.refresher.Status().LastError)
	})
}

func TestRefresher_RunStopsOnCancel(t *testing.T) {
	f := newRefresherFixture()
	ctx, cancel := context.WithCancel(context.Background())

	f.signalSvc.On("ComputeDashboard", mock.Anything, ports.DashboardParams{}).Return(dashboardWith(), nil)
	refreshed := make(chan struct{}, 1)
	f.broadcaster.On("Broadcast", mock.Anything).Run(func(mock.Arguments) {
		select {
		case refreshed <- struct{}{}:
		default:
		}
	}).Return()

	done := make(chan struct{})
	go func() {
		f.refresher.Run(ctx)
		close(done)
	}()

	select {
	case <-refreshed:
	case <-time.After(time.Second):
		t.Fatal("refresher did not run the initial cycle")
	}

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("refresher did not stop")
	}
}
