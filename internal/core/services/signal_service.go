package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/lorrc/support-signals/internal/core/domain"
	apperrors "github.com/lorrc/support-signals/internal/core/errors"
	"github.com/lorrc/support-signals/internal/core/ports"
	"github.com/lorrc/support-signals/internal/core/signals"
	"github.com/lorrc/support-signals/internal/infrastructure/logging"
	"github.com/lorrc/support-signals/internal/infrastructure/metrics"
	"golang.org/x/sync/errgroup"
)

// SignalConfig bounds the snapshot fetched from the thread store.
type SignalConfig struct {
	SnapshotLimit  int
	LookbackWindow time.Duration // 0 disables the lookback filter
}

// SignalService runs the signal engine over thread snapshots.
type SignalService struct {
	threadRepo ports.ThreadRepository
	kpiRepo    ports.KPIRepository
	txManager  ports.TransactionManager
	cfg        SignalConfig
	logger     *slog.Logger
	now        func() time.Time
}

var _ ports.SignalService = (*SignalService)(nil)

// SignalServiceOption customizes a SignalService.
type SignalServiceOption func(*SignalService)

// WithClock replaces the wall clock used when no asOf is supplied.
func WithClock(now func() time.Time) SignalServiceOption {
	return func(s *SignalService) {
		s.now = now
	}
}

// NewSignalService creates a new signal service
func NewSignalService(
	threadRepo ports.ThreadRepository,
	kpiRepo ports.KPIRepository,
	txManager ports.TransactionManager,
	cfg SignalConfig,
	logger *slog.Logger,
	opts ...SignalServiceOption,
) ports.SignalService {
	s := &SignalService{
		threadRepo: threadRepo,
		kpiRepo:    kpiRepo,
		txManager:  txManager,
		cfg:        cfg,
		logger:     logger.With("component", "signal_service"),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ComputeDashboard fetches the current thread snapshot and computes every signal.
func (s *SignalService) ComputeDashboard(ctx context.Context, params ports.DashboardParams) (*domain.Dashboard, error) {
	asOf := s.asOf(params.AsOf)

	// 1. Apply configured bounds to the filter
	filter := params.Filter
	if filter.Limit <= 0 {
		filter.Limit = s.cfg.SnapshotLimit
	}
	if filter.Since == nil && s.cfg.LookbackWindow > 0 {
		since := asOf.Add(-s.cfg.LookbackWindow)
		filter.Since = &since
	}

	// 2. Fetch the snapshot
	threads, err := s.threadRepo.ListThreads(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list threads: %w", err)
	}

	// 3. The stored KPI snapshot describes the whole queue; a filtered view
	// derives its own.
	var kpi *domain.KPISnapshot
	if filter.Owner == nil && filter.Topic == nil {
		kpi, err = s.kpiRepo.GetLatest(ctx)
		if err != nil && !errors.Is(err, apperrors.ErrKPISnapshotNotFound) {
			return nil, fmt.Errorf("load kpi snapshot: %w", err)
		}
	}

	return s.compute(ctx, "store", threads, kpi, asOf)
}

// Evaluate computes every signal from a caller-supplied snapshot.
func (s *SignalService) Evaluate(ctx context.Context, params ports.EvaluateParams) (*domain.Dashboard, error) {
	return s.compute(ctx, "request", params.Threads, params.KPI, s.asOf(params.AsOf))
}

// ClassifyThread returns the stage of a single stored thread.
func (s *SignalService) ClassifyThread(ctx context.Context, threadID string) (*domain.ThreadStage, error) {
	thread, err := s.threadRepo.GetThread(ctx, threadID)
	if err != nil {
		return nil, err
	}
	if err := thread.Validate(); err != nil {
		return nil, err
	}

	return &domain.ThreadStage{
		ThreadID: thread.ThreadID,
		Owner:    thread.OwnerKey().String(),
		Topic:    thread.TopicKey().String(),
		Stage:    signals.Classify(thread),
	}, nil
}

// ImportSnapshot stores valid threads and the optional KPI snapshot atomically.
// Malformed records are skipped and reported, never stored.
func (s *SignalService) ImportSnapshot(ctx context.Context, params ports.ImportParams) (*ports.ImportResult, error) {
	valid, rejected := domain.PartitionThreads(params.Threads)
	s.logRejected(ctx, params.Threads, rejected)

	result := &ports.ImportResult{Skipped: len(rejected)}
	err := s.txManager.WithTransaction(ctx, func(ctx context.Context) error {
		if len(valid) > 0 {
			n, err := s.threadRepo.UpsertThreads(ctx, valid)
			if err != nil {
				return fmt.Errorf("upsert threads: %w", err)
			}
			result.Imported = n
		}
		if params.KPI != nil {
			if err := s.kpiRepo.Save(ctx, *params.KPI, s.now().UTC()); err != nil {
				return fmt.Errorf("save kpi snapshot: %w", err)
			}
			result.KPISaved = true
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "snapshot imported",
		"imported", result.Imported,
		"skipped", result.Skipped,
		"kpi_saved", result.KPISaved,
	)
	return result, nil
}

func (s *SignalService) asOf(requested *time.Time) time.Time {
	if requested != nil && !requested.IsZero() {
		return requested.UTC()
	}
	return s.now().UTC()
}

// compute runs the five engine components concurrently over one immutable
// snapshot. Each goroutine writes a distinct field of the dashboard.
func (s *SignalService) compute(
	ctx context.Context,
	source string,
	threads []domain.Thread,
	kpi *domain.KPISnapshot,
	asOf time.Time,
) (*domain.Dashboard, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	start := time.Now()
	ctx = logging.WithSnapshotID(ctx, uuid.NewString())

	valid, rejected := domain.PartitionThreads(threads)
	s.logRejected(ctx, threads, rejected)

	snapshot := domain.DeriveKPISnapshot(valid)
	if kpi != nil {
		snapshot = *kpi
	}

	dashboard := &domain.Dashboard{
		AsOf:           asOf,
		ThreadCount:    len(valid),
		SkippedRecords: len(rejected),
		KPI:            snapshot,
	}

	var g errgroup.Group
	g.Go(func() error {
		dashboard.StageDistribution = signals.StageDistribution(valid)
		return nil
	})
	g.Go(func() error {
		dashboard.Heatmap = signals.BuildHeatmap(valid, asOf)
		return nil
	})
	g.Go(func() error {
		dashboard.QueueHealth = signals.ScoreQueue(valid)
		return nil
	})
	g.Go(func() error {
		dashboard.RiskRadar = signals.ComputeRiskRadar(valid)
		return nil
	})
	g.Go(func() error {
		dashboard.Alerts = signals.DetectAnomalies(snapshot, valid, asOf)
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	elapsed := time.Since(start)
	metrics.RecordComputation(source, elapsed.Seconds(), len(valid), dashboard.QueueHealth.QueueHealth)

	s.logger.DebugContext(ctx, "signals computed",
		"source", source,
		"threads", len(valid),
		"skipped", len(rejected),
		"queue_health", dashboard.QueueHealth.QueueHealth,
		"alerts", len(dashboard.Alerts),
		"duration_ms", elapsed.Milliseconds(),
	)
	return dashboard, nil
}

func (s *SignalService) logRejected(ctx context.Context, threads []domain.Thread, rejected []domain.Rejected) {
	for _, r := range rejected {
		field := "unknown"
		var malformed *apperrors.MalformedRecordError
		if errors.As(r.Err, &malformed) {
			field = malformed.Field
		}
		metrics.RecordMalformed(field)
		s.logger.WarnContext(ctx, "malformed record skipped",
			"thread_id", threads[r.Index].ThreadID,
			"index", r.Index,
			"field", field,
			"reason", r.Err.Error(),
		)
	}
}
