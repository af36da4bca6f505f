package gamerouter

import (
	"context"
	"log/slog"
	"time"

	gamedomain "github.com/Black-And-White-Club/snakebench/app/modules/game/domain"
	gamehandlers "github.com/Black-And-White-Club/snakebench/app/modules/game/infrastructure/handlers"
	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/components/metrics"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/message/router/middleware"
	"github.com/prometheus/client_golang/prometheus"
)

const handlerPrefix = "game."

// GameRouter wires match topics to the game handlers.
type GameRouter struct {
	logger         *slog.Logger
	Router         *message.Router
	subscriber     message.Subscriber
	metricsBuilder *metrics.PrometheusMetricsBuilder
	maxRetries     int
}

// NewGameRouter creates a new GameRouter. Router metrics are registered only when a registry is given.
func NewGameRouter(
	logger *slog.Logger,
	router *message.Router,
	subscriber message.Subscriber,
	prometheusRegistry prometheus.Registerer,
) *GameRouter {
	var metricsBuilder *metrics.PrometheusMetricsBuilder
	if prometheusRegistry != nil {
		builder := metrics.NewPrometheusMetricsBuilder(prometheusRegistry, "snakebench", "router")
		metricsBuilder = &builder
	} else {
		logger.Info("Skipping Prometheus router metrics - no registry configured")
	}

	return &GameRouter{
		logger:         logger,
		Router:         router,
		subscriber:     subscriber,
		metricsBuilder: metricsBuilder,
		maxRetries:     3,
	}
}

// NewMessageRouter builds the watermill router every module registers on.
func NewMessageRouter(logger *slog.Logger) (*message.Router, error) {
	return message.NewRouter(message.RouterConfig{CloseTimeout: 30 * time.Second}, watermill.NewSlogLogger(logger))
}

// Configure adds middleware and registers the handlers.
func (r *GameRouter) Configure(_ context.Context, handlers gamehandlers.Handlers) error {
	if r.metricsBuilder != nil {
		r.metricsBuilder.AddPrometheusRouterMetrics(r.Router)
	}

	r.Router.AddMiddleware(
		middleware.CorrelationID,
		middleware.Recoverer,
		middleware.Retry{
			MaxRetries:      r.maxRetries,
			InitialInterval: 100 * time.Millisecond,
			Logger:          watermill.NewSlogLogger(r.logger),
		}.Middleware,
	)

	r.registerHandlers(handlers)
	return nil
}

func (r *GameRouter) registerHandlers(handlers gamehandlers.Handlers) {
	eventsToHandlers := map[string]message.NoPublishHandlerFunc{
		gamedomain.MatchCompletedV1: handlers.HandleMatchCompleted,
	}

	for topic, handlerFunc := range eventsToHandlers {
		r.Router.AddNoPublisherHandler(handlerPrefix+topic, topic, r.subscriber, handlerFunc)
		r.logger.Info("Registered game handler", slog.String("topic", topic))
	}
}

// Close stops the router.
func (r *GameRouter) Close() error {
	return r.Router.Close()
}
