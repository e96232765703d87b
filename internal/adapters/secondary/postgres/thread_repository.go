package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lorrc/support-signals/internal/core/domain"
	apperrors "github.com/lorrc/support-signals/internal/core/errors"
	"github.com/lorrc/support-signals/internal/core/ports"
	"github.com/lorrc/support-signals/internal/core/utils"
)

// Grouping-key expressions shared by filters and indexes.
const (
	ownerKeyExpr = `COALESCE(NULLIF(owner, ''), NULLIF(assigned_to, ''), 'Unassigned')`
	topicKeyExpr = `COALESCE(NULLIF(dominant_cluster_name, ''), 'Unknown')`
)

const threadColumns = `
thread_id, owner, assigned_to, resolution_status, action_pending_status,
action_pending_from, escalation_count, follow_up_required, next_action_suggestion,
first_message_at, last_message_at, priority, business_impact_score,
dominant_cluster_name, overall_sentiment, carried_kpis`

// ThreadRepository stores thread records in Postgres.
type ThreadRepository struct {
	pool *pgxpool.Pool
}

var _ ports.ThreadRepository = (*ThreadRepository)(nil)

// NewThreadRepository creates a new thread repository.
func NewThreadRepository(pool *pgxpool.Pool) ports.ThreadRepository {
	return &ThreadRepository{pool: pool}
}

// carriedKPIsRow is the JSONB shape of domain.CarriedKPIs.
type carriedKPIsRow struct {
	SLABreachRiskPercentage *float64 `json:"slaBreachRiskPercentage,omitempty"`
	EscalationRate          *float64 `json:"escalationRate,omitempty"`
	TotalThreads            *int     `json:"totalThreads,omitempty"`
	InternalPendingCount    *int     `json:"internalPendingCount,omitempty"`
	UrgentThreadsCount      *int     `json:"urgentThreadsCount,omitempty"`
	AvgResolutionTimeDays   *float64 `json:"avgResolutionTimeDays,omitempty"`
}

func encodeCarriedKPIs(k *domain.CarriedKPIs) ([]byte, error) {
	if k == nil {
		return nil, nil
	}
	return json.Marshal(carriedKPIsRow(*k))
}

func decodeCarriedKPIs(raw []byte) (*domain.CarriedKPIs, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var row carriedKPIsRow
	if err := json.Unmarshal(raw, &row); err != nil {
		return nil, err
	}
	k := domain.CarriedKPIs(row)
	return &k, nil
}

func scanThread(row pgx.Row) (*domain.Thread, error) {
	var (
		t               domain.Thread
		status          string
		pendingStatus   string
		pendingFrom     string
		priority        string
		escalationCount int32
		nextAction      pgtype.Text
		firstMessageAt  pgtype.Timestamptz
		lastMessageAt   pgtype.Timestamptz
		impact          pgtype.Float8
		sentiment       pgtype.Int4
		carried         []byte
	)

	err := row.Scan(
		&t.ThreadID, &t.Owner, &t.AssignedTo, &status, &pendingStatus,
		&pendingFrom, &escalationCount, &t.FollowUpRequired, &nextAction,
		&firstMessageAt, &lastMessageAt, &priority, &impact,
		&t.DominantClusterName, &sentiment, &carried,
	)
	if err != nil {
		return nil, err
	}

	t.ResolutionStatus = domain.ResolutionStatus(status)
	t.ActionPendingStatus = domain.ActionPendingStatus(pendingStatus)
	t.ActionPendingFrom = domain.ActionParty(pendingFrom)
	t.Priority = domain.Priority(priority)
	t.EscalationCount = int(escalationCount)
	t.NextActionSuggestion = utils.FromNullString(nextAction)
	t.FirstMessageAt = utils.FromTimestamptz(firstMessageAt)
	t.LastMessageAt = utils.FromTimestamptz(lastMessageAt)
	t.BusinessImpactScore = utils.FromNullFloat(impact)
	t.OverallSentiment = utils.FromNullInt(sentiment)

	if t.KPIs, err = decodeCarriedKPIs(carried); err != nil {
		return nil, fmt.Errorf("decode carried kpis for %s: %w", t.ThreadID, err)
	}
	return &t, nil
}

// ListThreads returns the thread snapshot in insertion order.
func (r *ThreadRepository) ListThreads(ctx context.Context, filter ports.ThreadFilter) ([]domain.Thread, error) {
	var (
		conds []string
		args  []interface{}
	)
	if filter.Owner != nil {
		args = append(args, *filter.Owner)
		conds = append(conds, fmt.Sprintf("%s = $%d", ownerKeyExpr, len(args)))
	}
	if filter.Topic != nil {
		args = append(args, *filter.Topic)
		conds = append(conds, fmt.Sprintf("%s = $%d", topicKeyExpr, len(args)))
	}
	if filter.Since != nil {
		args = append(args, utils.ToTimestamptz(*filter.Since))
		conds = append(conds, fmt.Sprintf("last_message_at >= $%d", len(args)))
	}

	var sb strings.Builder
	sb.WriteString("SELECT ")
	sb.WriteString(threadColumns)
	sb.WriteString("\nFROM threads")
	if len(conds) > 0 {
		sb.WriteString("\nWHERE ")
		sb.WriteString(strings.Join(conds, " AND "))
	}
	sb.WriteString("\nORDER BY seq")
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		fmt.Fprintf(&sb, "\nLIMIT $%d", len(args))
	}

	rows, err := conn(ctx, r.pool).Query(ctx, sb.String(), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	threads := make([]domain.Thread, 0)
	for rows.Next() {
		t, err := scanThread(rows)
		if err != nil {
			return nil, err
		}
		threads = append(threads, *t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return threads, nil
}

// GetThread returns a single thread by ID.
func (r *ThreadRepository) GetThread(ctx context.Context, threadID string) (*domain.Thread, error) {
	query := "SELECT " + threadColumns + "\nFROM threads\nWHERE thread_id = $1"

	t, err := scanThread(conn(ctx, r.pool).QueryRow(ctx, query, threadID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrThreadNotFound
		}
		return nil, err
	}
	return t, nil
}

const upsertThreadQuery = `
INSERT INTO threads (` + threadColumns + `)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
ON CONFLICT (thread_id) DO UPDATE SET
    owner = EXCLUDED.owner,
    assigned_to = EXCLUDED.assigned_to,
    resolution_status = EXCLUDED.resolution_status,
    action_pending_status = EXCLUDED.action_pending_status,
    action_pending_from = EXCLUDED.action_pending_from,
    escalation_count = EXCLUDED.escalation_count,
    follow_up_required = EXCLUDED.follow_up_required,
    next_action_suggestion = EXCLUDED.next_action_suggestion,
    first_message_at = EXCLUDED.first_message_at,
    last_message_at = EXCLUDED.last_message_at,
    priority = EXCLUDED.priority,
    business_impact_score = EXCLUDED.business_impact_score,
    dominant_cluster_name = EXCLUDED.dominant_cluster_name,
    overall_sentiment = EXCLUDED.overall_sentiment,
    carried_kpis = EXCLUDED.carried_kpis,
    updated_at = NOW()
`

// UpsertThreads inserts or replaces threads in one batch and returns the
// number of rows written.
func (r *ThreadRepository) UpsertThreads(ctx context.Context, threads []domain.Thread) (int, error) {
	if len(threads) == 0 {
		return 0, nil
	}

	batch := &pgx.Batch{}
	for i := range threads {
		t := &threads[i]
		carried, err := encodeCarriedKPIs(t.KPIs)
		if err != nil {
			return 0, fmt.Errorf("encode carried kpis for %s: %w", t.ThreadID, err)
		}
		batch.Queue(upsertThreadQuery,
			t.ThreadID, t.Owner, t.AssignedTo, string(t.ResolutionStatus), string(t.ActionPendingStatus),
			string(t.ActionPendingFrom), int32(t.EscalationCount), t.FollowUpRequired, utils.ToNullString(t.NextActionSuggestion),
			utils.ToTimestamptz(t.FirstMessageAt), utils.ToTimestamptz(t.LastMessageAt), string(t.Priority), utils.ToNullFloat(t.BusinessImpactScore),
			t.DominantClusterName, utils.ToNullInt(t.OverallSentiment), carried,
		)
	}

	results := conn(ctx, r.pool).SendBatch(ctx, batch)
	written := 0
	for i := range threads {
		tag, err := results.Exec()
		if err != nil {
			_ = results.Close()
			return written, fmt.Errorf("upsert thread %s: %w", threads[i].ThreadID, err)
		}
		written += int(tag.RowsAffected())
	}
	if err := results.Close(); err != nil {
		return written, err
	}

	return written, nil
}
