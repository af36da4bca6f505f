package gameservice

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/Black-And-White-Club/snakebench/app/modules/game/application/parsers"
	"github.com/Black-And-White-Club/snakebench/app/modules/game/domain/rating"
	gamedb "github.com/Black-And-White-Club/snakebench/app/modules/game/infrastructure/repositories"
	"github.com/Black-And-White-Club/snakebench/app/shared/observability"
	"github.com/uptrace/bun"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// txFunc runs fn inside one transaction.
type txFunc func(ctx context.Context, fn func(ctx context.Context, db bun.IDB) error) error

// GameService implements the Service interface.
type GameService struct {
	repo    gamedb.Repository
	parser  *parsers.ReplayParser
	engine  *rating.Engine
	logger  *slog.Logger
	metrics observability.IngestMetrics
	tracer  trace.Tracer
	db      *bun.DB

	inTx  txFunc
	cache LeaderboardCache
	retry RetryQueue
	now   func() time.Time
}

// Option configures optional collaborators.
type Option func(*GameService)

// WithLeaderboardCache invalidates the cache after each committed change.
func WithLeaderboardCache(c LeaderboardCache) Option { return func(s *GameService) { s.cache = c } }

// WithRetryQueue enables retry scheduling for failed live ingestions.
func WithRetryQueue(q RetryQueue) Option { return func(s *GameService) { s.retry = q } }

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option { return func(s *GameService) { s.now = now } }

// NewGameService creates a new GameService.
func NewGameService(
	repo gamedb.Repository,
	engine *rating.Engine,
	logger *slog.Logger,
	metrics observability.IngestMetrics,
	tracer trace.Tracer,
	db *bun.DB,
	opts ...Option,
) *GameService {
	if logger == nil {
		logger = slog.Default()
	}
	if metrics == nil {
		metrics = observability.NewNoop()
	}
	if engine == nil {
		engine = rating.NewEngine(rating.NewTrueSkill())
	}
	s := &GameService{
		repo:    repo,
		parser:  parsers.NewReplayParser(),
		engine:  engine,
		logger:  logger,
		metrics: metrics,
		tracer:  tracer,
		db:      db,
		now:     func() time.Time { return time.Now().UTC() },
	}
	s.inTx = s.runBunTx
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *GameService) runBunTx(ctx context.Context, fn func(ctx context.Context, db bun.IDB) error) error {
	if s.db == nil {
		return fn(ctx, nil)
	}
	return s.db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		return fn(ctx, tx)
	})
}

// -----------------------------------------------------------------------------
// Generic Helpers (Defined as functions because methods cannot have type params)
// -----------------------------------------------------------------------------

// operationFunc is the generic signature for service operation functions.
type operationFunc[T any] func(ctx context.Context) (T, error)

// withTelemetry wraps a service operation with tracing, metrics, and panic recovery.
func withTelemetry[T any](
	s *GameService,
	ctx context.Context,
	operationName string,
	identifier string,
	op operationFunc[T],
) (result T, err error) {
	var span trace.Span
	if s.tracer != nil {
		ctx, span = s.tracer.Start(ctx, operationName, trace.WithAttributes(
			attribute.String("operation", operationName),
			attribute.String("identifier", identifier),
		))
	} else {
		span = trace.SpanFromContext(ctx)
	}
	defer span.End()

	s.metrics.RecordOperationAttempt(ctx, operationName)

	startTime := time.Now()
	defer func() {
		s.metrics.RecordOperationDuration(ctx, operationName, time.Since(startTime))
	}()

	s.logger.InfoContext(ctx, "Operation triggered",
		observability.ExtractCorrelationID(ctx),
		slog.String("operation", operationName),
		slog.String("identifier", identifier),
	)

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic in %s: %v", operationName, r)
			s.logger.ErrorContext(ctx, "Critical panic recovered",
				observability.ExtractCorrelationID(ctx),
				slog.String("identifier", identifier),
				slog.Any("error", err),
			)
			s.metrics.RecordOperationFailure(ctx, operationName)
			span.RecordError(err)
			var zero T
			result = zero
		}
	}()

	result, err = op(ctx)
	if err != nil {
		wrappedErr := fmt.Errorf("%s: %w", operationName, err)
		s.logger.ErrorContext(ctx, "Operation failed with error",
			observability.ExtractCorrelationID(ctx),
			slog.String("operation", operationName),
			slog.String("identifier", identifier),
			slog.Any("error", wrappedErr),
		)
		s.metrics.RecordOperationFailure(ctx, operationName)
		span.RecordError(wrappedErr)
		return result, wrappedErr
	}

	s.logger.InfoContext(ctx, "Operation completed successfully",
		observability.ExtractCorrelationID(ctx),
		slog.String("operation", operationName),
		slog.String("identifier", identifier),
	)
	s.metrics.RecordOperationSuccess(ctx, operationName)
	return result, nil
}

// runInTx ensures the operation runs within a transaction.
func runInTx[T any](
	s *GameService,
	ctx context.Context,
	fn func(ctx context.Context, db bun.IDB) (T, error),
) (T, error) {
	var result T
	err := s.inTx(ctx, func(ctx context.Context, db bun.IDB) error {
		var txErr error
		result, txErr = fn(ctx, db)
		return txErr
	})
	return result, err
}

// invalidateLeaderboard runs after commit; a cache failure never fails the ingest.
func (s *GameService) invalidateLeaderboard(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx); err != nil {
		s.logger.WarnContext(ctx, "Leaderboard cache invalidation failed",
			observability.ExtractCorrelationID(ctx),
			slog.Any("error", err),
		)
	}
}
