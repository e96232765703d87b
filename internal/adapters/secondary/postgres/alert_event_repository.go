package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lorrc/support-signals/internal/core/domain"
	"github.com/lorrc/support-signals/internal/core/ports"
	"github.com/lorrc/support-signals/internal/core/utils"
)

// AlertEventRepository handles persistence for alert events.
type AlertEventRepository struct {
	pool *pgxpool.Pool
}

var _ ports.AlertEventRepository = (*AlertEventRepository)(nil)

// NewAlertEventRepository creates a new alert event repository.
func NewAlertEventRepository(pool *pgxpool.Pool) ports.AlertEventRepository {
	return &AlertEventRepository{pool: pool}
}

const alertEventColumns = `id, alert_id, type, severity, count, value, title, raised_at`

func scanAlertEvent(row pgx.Row) (*domain.AlertEvent, error) {
	var (
		e        domain.AlertEvent
		typ      string
		severity string
		count    int32
		value    pgtype.Float8
		raisedAt pgtype.Timestamptz
	)
	if err := row.Scan(&e.ID, &e.AlertID, &typ, &severity, &count, &value, &e.Title, &raisedAt); err != nil {
		return nil, err
	}

	e.Type = domain.AlertType(typ)
	e.Severity = domain.Severity(severity)
	e.Count = int(count)
	e.Value = utils.FromNullFloat(value)
	e.RaisedAt = utils.FromTimestamptz(raisedAt)
	return &e, nil
}

// Create persists a new alert event.
func (r *AlertEventRepository) Create(ctx context.Context, event *domain.AlertEvent) (*domain.AlertEvent, error) {
	const query = `
INSERT INTO alert_events (alert_id, type, severity, count, value, title, raised_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)
RETURNING ` + alertEventColumns

	return scanAlertEvent(conn(ctx, r.pool).QueryRow(ctx, query,
		event.AlertID,
		string(event.Type),
		string(event.Severity),
		int32(event.Count),
		utils.ToNullFloat(event.Value),
		event.Title,
		utils.ToTimestamptz(event.RaisedAt),
	))
}

// List retrieves events after a cursor, oldest first.
func (r *AlertEventRepository) List(ctx context.Context, afterID int64, limit int) ([]*domain.AlertEvent, error) {
	const query = `
SELECT ` + alertEventColumns + `
FROM alert_events
WHERE id > $1
ORDER BY id
LIMIT $2
`

	rows, err := conn(ctx, r.pool).Query(ctx, query, afterID, int32(limit))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	events := make([]*domain.AlertEvent, 0, limit)
	for rows.Next() {
		e, err := scanAlertEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return events, nil
}
