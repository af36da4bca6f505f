package gamehandlers

import (
	"context"
	"encoding/json"
	"log/slog"

	gamedomain "github.com/Black-And-White-Club/snakebench/app/modules/game/domain"
	"github.com/Black-And-White-Club/snakebench/app/shared/observability"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/message/router/middleware"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// LiveRecorder is the slice of the game service the handlers need.
type LiveRecorder interface {
	RecordLiveResult(ctx context.Context, result gamedomain.LiveResult)
}

// GameHandlers implements the Handlers interface.
type GameHandlers struct {
	service LiveRecorder
	logger  *slog.Logger
	tracer  trace.Tracer
}

// NewGameHandlers creates a new GameHandlers instance.
func NewGameHandlers(service LiveRecorder, logger *slog.Logger, tracer trace.Tracer) Handlers {
	return &GameHandlers{
		service: service,
		logger:  logger,
		tracer:  tracer,
	}
}

// HandleMatchCompleted records a finished live match. A payload that is not a LiveResult is
// acknowledged and dropped; redelivering it cannot succeed.
func (h *GameHandlers) HandleMatchCompleted(msg *message.Message) error {
	correlationID := msg.Metadata.Get(middleware.CorrelationIDMetadataKey)
	ctx := observability.WithCorrelationID(msg.Context(), correlationID)
	ctx, span := h.tracer.Start(ctx, "GameHandlers.HandleMatchCompleted", trace.WithAttributes(
		attribute.String("message_id", msg.UUID),
	))
	defer span.End()

	var result gamedomain.LiveResult
	if err := json.Unmarshal(msg.Payload, &result); err != nil {
		h.logger.ErrorContext(ctx, "Dropping malformed match completed message",
			observability.ExtractCorrelationID(ctx),
			slog.String("message_id", msg.UUID),
			slog.Any("error", err),
		)
		span.RecordError(err)
		return nil
	}
	span.SetAttributes(attribute.String("match_id", result.MatchID))

	h.logger.InfoContext(ctx, "Received match completed event",
		observability.ExtractCorrelationID(ctx),
		slog.String("match_id", result.MatchID),
		slog.Bool("has_replay", result.ReplayPath != ""),
	)

	h.service.RecordLiveResult(ctx, result)
	return nil
}
