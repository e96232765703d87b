package ports

import (
	"context"
	"time"

	"github.com/lorrc/support-signals/internal/core/domain"
)

// ThreadFilter narrows the thread snapshot. Nil fields are not applied.
type ThreadFilter struct {
	Owner *string
	Topic *string
	Since *time.Time // lower bound on lastMessageAt
	Limit int
}

// ThreadRepository reads and stores thread records.
type ThreadRepository interface {
	ListThreads(ctx context.Context, filter ThreadFilter) ([]domain.Thread, error)
	GetThread(ctx context.Context, threadID string) (*domain.Thread, error)
	UpsertThreads(ctx context.Context, threads []domain.Thread) (int, error)
}

// KPIRepository stores aggregate KPI snapshots.
type KPIRepository interface {
	GetLatest(ctx context.Context) (*domain.KPISnapshot, error)
	Save(ctx context.Context, snapshot domain.KPISnapshot, capturedAt time.Time) error
}

// AlertEventRepository persists alert transitions.
type AlertEventRepository interface {
	Create(ctx context.Context, event *domain.AlertEvent) (*domain.AlertEvent, error)
	List(ctx context.Context, afterID int64, limit int) ([]*domain.AlertEvent, error)
}
