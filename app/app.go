package app

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/Black-And-White-Club/snakebench/app/eventbus"
	"github.com/Black-And-White-Club/snakebench/app/modules/game"
	gameservice "github.com/Black-And-White-Club/snakebench/app/modules/game/application"
	gamerouter "github.com/Black-And-White-Club/snakebench/app/modules/game/infrastructure/router"
	leaderboardservice "github.com/Black-And-White-Club/snakebench/app/modules/leaderboard/application"
	leaderboardcache "github.com/Black-And-White-Club/snakebench/app/modules/leaderboard/infrastructure/cache"
	"github.com/Black-And-White-Club/snakebench/app/shared/observability"
	"github.com/Black-And-White-Club/snakebench/config"
	"github.com/Black-And-White-Club/snakebench/db/bundb"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
)

// Mode selects how much of the stack NewApp brings up.
type Mode int

const (
	// ModeCLI connects storage only; used by one-shot commands.
	ModeCLI Mode = iota
	// ModeServe also starts the retry queue and, when enabled, the NATS subscription.
	ModeServe
)

// App holds the application components.
type App struct {
	Config             *config.Config
	Logger             *slog.Logger
	Registry           *prometheus.Registry
	GameModule         *game.Module
	LeaderboardService leaderboardservice.Service

	db       *bundb.DBService
	redis    *redis.Client
	eventBus eventbus.EventBus
	router   *message.Router
	wg       sync.WaitGroup
}

// NewApp initializes the application with the necessary services and configuration.
func NewApp(ctx context.Context, cfg *config.Config, mode Mode) (*App, error) {
	logger := observability.NewLogger(cfg.Observability.Environment, cfg.Observability.LogLevel)
	tracer := otel.Tracer("snakebench")

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := observability.NewPrometheusIngestMetrics(registry)

	app := &App{Config: cfg, Logger: logger, Registry: registry}

	dbService, err := bundb.NewBunDBService(ctx, cfg.Postgres, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database service: %w", err)
	}
	app.db = dbService

	var cache *leaderboardcache.RedisCache
	if cfg.Redis.URL != "" {
		opts, err := redis.ParseURL(cfg.Redis.URL)
		if err != nil {
			app.closeStorage()
			return nil, fmt.Errorf("failed to parse redis url: %w", err)
		}
		app.redis = redis.NewClient(opts)
		cache = leaderboardcache.NewRedisCache(app.redis, cfg.Redis.LeaderboardTTL)
		logger.InfoContext(ctx, "Leaderboard cache enabled", slog.Duration("ttl", cfg.Redis.LeaderboardTTL))
	}

	deps := game.Deps{
		Config:   cfg,
		Logger:   logger,
		Tracer:   tracer,
		Metrics:  metrics,
		Registry: registry,
		DB:       dbService.GetDB(),
		Repo:     dbService.GameDB,
	}
	var lbCache leaderboardservice.Cache
	if cache != nil {
		deps.Cache = cache
		lbCache = cache
	}

	gameModule, err := game.NewGameModule(ctx, deps, mode == ModeServe)
	if err != nil {
		app.closeStorage()
		return nil, fmt.Errorf("failed to initialize game module: %w", err)
	}
	app.GameModule = gameModule
	app.LeaderboardService = leaderboardservice.NewLeaderboardService(dbService.GameDB, lbCache, logger, tracer, dbService.GetDB())

	if mode == ModeServe && cfg.NATS.Enabled {
		if err := app.initializeEventBus(ctx); err != nil {
			_ = app.Close(ctx)
			return nil, err
		}
	}

	logger.InfoContext(ctx, "Application initialized",
		slog.String("rating_algorithm", cfg.Ingest.RatingAlgorithm),
		slog.Bool("nats", app.eventBus != nil),
		slog.Bool("retry_queue", gameModule.Queue != nil),
	)
	return app, nil
}

func (app *App) initializeEventBus(ctx context.Context) error {
	bus, err := eventbus.NewEventBus(ctx, app.Config.NATS.URL, app.Config.NATS.QueueGroup, app.Logger)
	if err != nil {
		return fmt.Errorf("failed to create event bus: %w", err)
	}
	app.eventBus = bus

	if err := eventbus.InitializeStreams(ctx, bus); err != nil {
		return fmt.Errorf("failed to initialize streams: %w", err)
	}

	router, err := gamerouter.NewMessageRouter(app.Logger)
	if err != nil {
		return fmt.Errorf("failed to create message router: %w", err)
	}
	app.router = router

	return app.GameModule.ConfigureRouter(ctx, router, bus)
}

// DB returns the database service.
func (app *App) DB() *bundb.DBService {
	return app.db
}

// GameService returns the ingestion service.
func (app *App) GameService() gameservice.Service {
	return app.GameModule.GameService
}
