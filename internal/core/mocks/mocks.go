package mocks

import (
	"context"
	"time"

	"github.com/lorrc/support-signals/internal/core/domain"
	"github.com/lorrc/support-signals/internal/core/ports"
	"github.com/stretchr/testify/mock"
)

// MockThreadRepository is a mock implementation of ports.ThreadRepository
type MockThreadRepository struct {
	mock.Mock
}

func NewMockThreadRepository() *MockThreadRepository {
	return &MockThreadRepository{}
}

func (m *MockThreadRepository) ListThreads(ctx context.Context, filter ports.ThreadFilter) ([]domain.Thread, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Thread), args.Error(1)
}

func (m *MockThreadRepository) GetThread(ctx context.Context, threadID string) (*domain.Thread, error) {
	args := m.Called(ctx, threadID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Thread), args.Error(1)
}

func (m *MockThreadRepository) UpsertThreads(ctx context.Context, threads []domain.Thread) (int, error) {
	args := m.Called(ctx, threads)
	return args.Int(0), args.Error(1)
}

// MockKPIRepository is a mock implementation of ports.KPIRepository
type MockKPIRepository struct {
	mock.Mock
}

func NewMockKPIRepository() *MockKPIRepository {
	return &MockKPIRepository{}
}

func (m *MockKPIRepository) GetLatest(ctx context.Context) (*domain.KPISnapshot, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.KPISnapshot), args.Error(1)
}

func (m *MockKPIRepository) Save(ctx context.Context, snapshot domain.KPISnapshot, capturedAt time.Time) error {
	args := m.Called(ctx, snapshot, capturedAt)
	return args.Error(0)
}

// MockAlertEventRepository is a mock implementation of ports.AlertEventRepository
type MockAlertEventRepository struct {
	mock.Mock
}

func NewMockAlertEventRepository() *MockAlertEventRepository {
	return &MockAlertEventRepository{}
}

func (m *MockAlertEventRepository) Create(ctx context.Context, event *domain.AlertEvent) (*domain.AlertEvent, error) {
	args := m.Called(ctx, event)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.AlertEvent), args.Error(1)
}

func (m *MockAlertEventRepository) List(ctx context.Context, afterID int64, limit int) ([]*domain.AlertEvent, error) {
	args := m.Called(ctx, afterID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.AlertEvent), args.Error(1)
}

// MockSignalService is a mock implementation of ports.SignalService
type MockSignalService struct {
	mock.Mock
}

func NewMockSignalService() *MockSignalService {
	return &MockSignalService{}
}

func (m *MockSignalService) ComputeDashboard(ctx context.Context, params ports.DashboardParams) (*domain.Dashboard, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Dashboard), args.Error(1)
}

func (m *MockSignalService) Evaluate(ctx context.Context, params ports.EvaluateParams) (*domain.Dashboard, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Dashboard), args.Error(1)
}

func (m *MockSignalService) ClassifyThread(ctx context.Context, threadID string) (*domain.ThreadStage, error) {
	args := m.Called(ctx, threadID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ThreadStage), args.Error(1)
}

func (m *MockSignalService) ImportSnapshot(ctx context.Context, params ports.ImportParams) (*ports.ImportResult, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ports.ImportResult), args.Error(1)
}

// MockAlertHistoryService is a mock implementation of ports.AlertHistoryService
type MockAlertHistoryService struct {
	mock.Mock
}

func NewMockAlertHistoryService() *MockAlertHistoryService {
	return &MockAlertHistoryService{}
}

func (m *MockAlertHistoryService) ListAlertEvents(ctx context.Context, params ports.ListAlertEventsParams) ([]*domain.AlertEvent, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.AlertEvent), args.Error(1)
}

// MockAlertPublisher is a mock implementation of ports.AlertPublisher
type MockAlertPublisher struct {
	mock.Mock
}

func NewMockAlertPublisher() *MockAlertPublisher {
	return &MockAlertPublisher{}
}

func (m *MockAlertPublisher) PublishAlerts(ctx context.Context, alerts []domain.Alert, asOf time.Time) error {
	args := m.Called(ctx, alerts, asOf)
	return args.Error(0)
}

func (m *MockAlertPublisher) Close() error {
	args := m.Called()
	return args.Error(0)
}

// MockNotifier is a mock implementation of ports.Notifier
type MockNotifier struct {
	mock.Mock
}

func NewMockNotifier() *MockNotifier {
	return &MockNotifier{}
}

func (m *MockNotifier) Notify(ctx context.Context, params ports.NotificationParams) {
	m.Called(ctx, params)
}

// MockBroadcaster is a mock implementation of ports.Broadcaster
type MockBroadcaster struct {
	mock.Mock
}

func NewMockBroadcaster() *MockBroadcaster {
	return &MockBroadcaster{}
}

func (m *MockBroadcaster) Broadcast(event domain.Event) {
	m.Called(event)
}

// MockTransactionManager runs the callback inline without a real transaction.
type MockTransactionManager struct {
	mock.Mock
}

func NewMockTransactionManager() *MockTransactionManager {
	return &MockTransactionManager{}
}

func (m *MockTransactionManager) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	args := m.Called(ctx)
	if err := args.Error(0); err != nil {
		return err
	}
	return fn(ctx)
}
