package gamequeue

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	gameservice "github.com/Black-And-White-Club/snakebench/app/modules/game/application"
	"github.com/Black-And-White-Club/snakebench/app/shared/observability"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/riverqueue/river"
	"github.com/riverqueue/river/riverdriver/riverpgxv5"
	"github.com/uptrace/bun"
)

// QueueName is the dedicated River queue for replay retries.
const QueueName = "ingest"

// Service schedules replay re-ingestion using River.
type Service struct {
	client      *river.Client[pgx.Tx]
	pool        *pgxpool.Pool
	logger      *slog.Logger
	db          *bun.DB
	metrics     observability.IngestMetrics
	maxAttempts int
}

var _ gameservice.RetryQueue = (*Service)(nil)

// NewService creates the River client. River needs pgx, so it gets its own pool on dsn.
func NewService(
	ctx context.Context,
	bunDB *bun.DB,
	logger *slog.Logger,
	dsn string,
	metrics observability.IngestMetrics,
	ingester ReplayIngester,
	maxAttempts int,
) (*Service, error) {
	ctxLogger := logger.With(slog.String("component", "river_queue"))
	metrics.RecordOperationAttempt(ctx, "queue_initialize")

	config, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		metrics.RecordOperationFailure(ctx, "queue_initialize")
		return nil, fmt.Errorf("failed to parse DSN: %w", err)
	}
	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		metrics.RecordOperationFailure(ctx, "queue_initialize")
		return nil, fmt.Errorf("failed to create pgx pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		metrics.RecordOperationFailure(ctx, "queue_initialize")
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	workers := river.NewWorkers()
	river.AddWorker(workers, NewIngestReplayWorker(ingester, ctxLogger))

	client, err := river.NewClient(riverpgxv5.New(pool), &river.Config{
		Queues: map[string]river.QueueConfig{
			QueueName: {MaxWorkers: 4},
		},
		Workers: workers,
		Logger:  ctxLogger,
	})
	if err != nil {
		pool.Close()
		metrics.RecordOperationFailure(ctx, "queue_initialize")
		return nil, fmt.Errorf("failed to create River client: %w", err)
	}

	if maxAttempts <= 0 {
		maxAttempts = river.MaxAttemptsDefault
	}
	metrics.RecordOperationSuccess(ctx, "queue_initialize")
	ctxLogger.InfoContext(ctx, "Ingest queue service initialized")
	return &Service{
		client:      client,
		pool:        pool,
		logger:      ctxLogger,
		db:          bunDB,
		metrics:     metrics,
		maxAttempts: maxAttempts,
	}, nil
}

// Start starts working the queue.
func (s *Service) Start(ctx context.Context) error {
	if err := s.client.Start(ctx); err != nil {
		s.logger.ErrorContext(ctx, "Failed to start River client", slog.Any("error", err))
		return fmt.Errorf("failed to start River client: %w", err)
	}
	s.logger.InfoContext(ctx, "Ingest queue service started")
	return nil
}

// Stop waits for running jobs and releases the pool.
func (s *Service) Stop(ctx context.Context) error {
	defer s.pool.Close()
	if err := s.client.Stop(ctx); err != nil {
		s.logger.ErrorContext(ctx, "Failed to stop River client", slog.Any("error", err))
		return fmt.Errorf("failed to stop River client: %w", err)
	}
	s.logger.InfoContext(ctx, "Ingest queue service stopped")
	return nil
}

// EnqueueReplayIngest schedules a retry. Inserting the same path twice while a job is pending is a no-op.
func (s *Service) EnqueueReplayIngest(ctx context.Context, path string) error {
	start := time.Now()
	s.metrics.RecordOperationAttempt(ctx, "enqueue_replay_ingest")
	defer func() { s.metrics.RecordOperationDuration(ctx, "enqueue_replay_ingest", time.Since(start)) }()

	res, err := s.client.Insert(ctx, IngestReplayJob{Path: path}, &river.InsertOpts{
		Queue:       QueueName,
		MaxAttempts: s.maxAttempts,
		UniqueOpts: river.UniqueOpts{
			ByArgs: true,
		},
	})
	if err != nil {
		s.metrics.RecordOperationFailure(ctx, "enqueue_replay_ingest")
		return fmt.Errorf("failed to enqueue replay ingest: %w", err)
	}

	s.metrics.RecordOperationSuccess(ctx, "enqueue_replay_ingest")
	s.logger.InfoContext(ctx, "Replay ingest retry scheduled",
		observability.ExtractCorrelationID(ctx),
		slog.String("path", path),
		slog.Int64("job_id", res.Job.ID),
		slog.Bool("duplicate", res.UniqueSkippedAsDuplicate),
	)
	return nil
}

// PendingJobs lists replay retries that have not completed, oldest first.
func (s *Service) PendingJobs(ctx context.Context) ([]JobInfo, error) {
	type riverJobRow struct {
		ID          int64     `bun:"id"`
		Path        string    `bun:"path"`
		State       string    `bun:"state"`
		ScheduledAt time.Time `bun:"scheduled_at"`
		Attempt     int16     `bun:"attempt"`
		MaxAttempts int16     `bun:"max_attempts"`
		LastError   string    `bun:"last_error"`
	}

	var rows []riverJobRow
	err := s.db.NewSelect().
		Table("river_job").
		Column("id", "state", "scheduled_at", "attempt", "max_attempts").
		ColumnExpr("COALESCE(args->>'path', '') AS path").
		// errors is jsonb[] with the newest attempt last.
		ColumnExpr("COALESCE(errors[array_upper(errors, 1)]->>'error', '') AS last_error").
		Where("kind = ?", IngestReplayJob{}.Kind()).
		Where("state NOT IN (?, ?, ?)", "completed", "cancelled", "discarded").
		Order("scheduled_at ASC").
		Scan(ctx, &rows)
	if err != nil {
		return nil, fmt.Errorf("failed to query pending jobs: %w", err)
	}

	out := make([]JobInfo, len(rows))
	for i, r := range rows {
		out[i] = JobInfo{
			ID:          r.ID,
			Path:        r.Path,
			State:       r.State,
			ScheduledAt: r.ScheduledAt,
			Attempt:     int(r.Attempt),
			MaxAttempts: int(r.MaxAttempts),
			LastError:   r.LastError,
		}
	}
	return out, nil
}

// HealthCheck verifies the queue tables are reachable.
func (s *Service) HealthCheck(ctx context.Context) error {
	if s.client == nil {
		return fmt.Errorf("river client is nil")
	}
	var count int
	if err := s.db.NewSelect().Table("river_job").ColumnExpr("COUNT(*)").Scan(ctx, &count); err != nil {
		return fmt.Errorf("queue service health check failed: %w", err)
	}
	return nil
}
