package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lorrc/support-signals/internal/core/domain"
	apperrors "github.com/lorrc/support-signals/internal/core/errors"
	"github.com/lorrc/support-signals/internal/core/ports"
	"github.com/lorrc/support-signals/internal/core/utils"
)

// KPIRepository stores queue-level KPI snapshots.
type KPIRepository struct {
	pool *pgxpool.Pool
}

var _ ports.KPIRepository = (*KPIRepository)(nil)

func NewKPIRepository(pool *pgxpool.Pool) ports.KPIRepository {
	return &KPIRepository{pool: pool}
}

// GetLatest returns the most recently captured snapshot.
func (r *KPIRepository) GetLatest(ctx context.Context) (*domain.KPISnapshot, error) {
	const query = `
SELECT total_threads, sla_breach_risk_percentage, escalation_rate, escalation_count,
       internal_pending_count, avg_resolution_time_days, urgent_threads_count,
       business_impact_score, customer_sentiment_index
FROM kpi_snapshots
ORDER BY captured_at DESC, id DESC
LIMIT 1
`

	var (
		k                                   domain.KPISnapshot
		total, escalations, pending, urgent int32
	)
	err := conn(ctx, r.pool).QueryRow(ctx, query).Scan(
		&total, &k.SLABreachRiskPercentage, &k.EscalationRate, &escalations,
		&pending, &k.AvgResolutionTimeDays, &urgent,
		&k.BusinessImpactScore, &k.CustomerSentimentIndex,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrKPISnapshotNotFound
		}
		return nil, err
	}

	k.TotalThreads = int(total)
	k.EscalationCount = int(escalations)
	k.InternalPendingCount = int(pending)
	k.UrgentThreadsCount = int(urgent)
	return &k, nil
}

// Save appends a snapshot captured at the given time.
func (r *KPIRepository) Save(ctx context.Context, snapshot domain.KPISnapshot, capturedAt time.Time) error {
	const query = `
INSERT INTO kpi_snapshots (
    total_threads, sla_breach_risk_percentage, escalation_rate, escalation_count,
    internal_pending_count, avg_resolution_time_days, urgent_threads_count,
    business_impact_score, customer_sentiment_index, captured_at
)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
`

	_, err := conn(ctx, r.pool).Exec(ctx, query,
		int32(snapshot.TotalThreads), snapshot.SLABreachRiskPercentage, snapshot.EscalationRate, int32(snapshot.EscalationCount),
		int32(snapshot.InternalPendingCount), snapshot.AvgResolutionTimeDays, int32(snapshot.UrgentThreadsCount),
		snapshot.BusinessImpactScore, snapshot.CustomerSentimentIndex, utils.ToTimestamptz(capturedAt),
	)
	return err
}
