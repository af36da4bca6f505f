package game

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	gameservice "github.com/Black-And-White-Club/snakebench/app/modules/game/application"
	"github.com/Black-And-White-Club/snakebench/app/modules/game/domain/rating"
	gamehandlers "github.com/Black-And-White-Club/snakebench/app/modules/game/infrastructure/handlers"
	gamequeue "github.com/Black-And-White-Club/snakebench/app/modules/game/infrastructure/queue"
	gamedb "github.com/Black-And-White-Club/snakebench/app/modules/game/infrastructure/repositories"
	gamerouter "github.com/Black-And-White-Club/snakebench/app/modules/game/infrastructure/router"
	"github.com/Black-And-White-Club/snakebench/app/shared/observability"
	"github.com/Black-And-White-Club/snakebench/config"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/uptrace/bun"
	"go.opentelemetry.io/otel/trace"
)

// Deps are the shared collaborators the game module is built from.
type Deps struct {
	Config   *config.Config
	Logger   *slog.Logger
	Tracer   trace.Tracer
	Metrics  observability.IngestMetrics
	Registry prometheus.Registerer
	DB       *bun.DB
	Repo     gamedb.Repository
	Cache    gameservice.LeaderboardCache
}

// Module represents the game module.
type Module struct {
	GameService gameservice.Service
	Queue       *gamequeue.Service
	GameRouter  *gamerouter.GameRouter
	logger      *slog.Logger
	tracer      trace.Tracer
	registry    prometheus.Registerer

	mu         sync.Mutex
	cancelFunc context.CancelFunc
	closed     bool
}

// NewGameModule builds the ingestion service. withQueue starts the River retry client,
// which needs a pgx pool of its own.
func NewGameModule(ctx context.Context, deps Deps, withQueue bool) (*Module, error) {
	logger := deps.Logger
	logger.InfoContext(ctx, "game.NewGameModule initializing")

	// 1. Rating engine
	engine, err := rating.NewEngineFor(deps.Config.Ingest.RatingAlgorithm)
	if err != nil {
		return nil, fmt.Errorf("failed to build rating engine: %w", err)
	}

	// 2. Retry queue, bound to the service once it exists
	var opts []gameservice.Option
	if deps.Cache != nil {
		opts = append(opts, gameservice.WithLeaderboardCache(deps.Cache))
	}
	late := &lateIngester{}
	var queue *gamequeue.Service
	if withQueue {
		queue, err = gamequeue.NewService(ctx, deps.DB, logger, deps.Config.Postgres.DSN, deps.Metrics, late, deps.Config.Ingest.RetryMaxAttempts)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize ingest queue: %w", err)
		}
		if deps.Config.Ingest.RetryFailedLive {
			opts = append(opts, gameservice.WithRetryQueue(queue))
		}
	}

	// 3. Service
	service := gameservice.NewGameService(deps.Repo, engine, logger, deps.Metrics, deps.Tracer, deps.DB, opts...)
	late.svc = service

	return &Module{
		GameService: service,
		Queue:       queue,
		logger:      logger,
		tracer:      deps.Tracer,
		registry:    deps.Registry,
	}, nil
}

// ConfigureRouter subscribes the module to live match results.
func (m *Module) ConfigureRouter(ctx context.Context, router *message.Router, subscriber message.Subscriber) error {
	handlers := gamehandlers.NewGameHandlers(m.GameService, m.logger, m.tracer)
	m.GameRouter = gamerouter.NewGameRouter(m.logger, router, subscriber, m.registry)
	if err := m.GameRouter.Configure(ctx, handlers); err != nil {
		return fmt.Errorf("failed to configure game router: %w", err)
	}
	return nil
}

// Run starts the retry queue and blocks until ctx is cancelled.
func (m *Module) Run(ctx context.Context, wg *sync.WaitGroup) {
	if wg != nil {
		defer wg.Done()
	}

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	ctx, cancel := context.WithCancel(ctx)
	m.cancelFunc = cancel
	m.mu.Unlock()
	defer cancel()

	m.logger.InfoContext(ctx, "Starting game module")

	if m.Queue != nil {
		if err := m.Queue.Start(ctx); err != nil {
			m.logger.ErrorContext(ctx, "Ingest queue failed to start", slog.Any("error", err))
		}
	}

	<-ctx.Done()
	m.logger.Info("Game module goroutine stopped")
}

// Close shuts down the game module.
func (m *Module) Close(ctx context.Context) error {
	m.logger.Info("Stopping game module")

	m.mu.Lock()
	m.closed = true
	if m.cancelFunc != nil {
		m.cancelFunc()
	}
	m.mu.Unlock()

	var errs []error
	if m.GameRouter != nil {
		if err := m.GameRouter.Close(); err != nil {
			m.logger.Error("Error closing GameRouter from module", slog.Any("error", err))
			errs = append(errs, fmt.Errorf("error closing GameRouter: %w", err))
		}
	}
	if m.Queue != nil {
		if err := m.Queue.Stop(ctx); err != nil {
			errs = append(errs, err)
		}
	}

	m.logger.Info("Game module stopped")
	return errors.Join(errs...)
}

// lateIngester lets the retry worker reach the service that is constructed after the queue.
type lateIngester struct {
	svc gameservice.Service
}

func (l *lateIngester) IngestReplayFile(ctx context.Context, path string, opts gameservice.IngestOptions) (*gameservice.IngestResult, error) {
	if l.svc == nil {
		return nil, fmt.Errorf("game service not ready")
	}
	return l.svc.IngestReplayFile(ctx, path, opts)
}
