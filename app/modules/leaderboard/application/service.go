package leaderboardservice

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"time"

	gamedomain "github.com/Black-And-White-Club/snakebench/app/modules/game/domain"
	gamedb "github.com/Black-And-White-Club/snakebench/app/modules/game/infrastructure/repositories"
	leaderboarddomain "github.com/Black-And-White-Club/snakebench/app/modules/leaderboard/domain"
	"github.com/Black-And-White-Club/snakebench/app/shared/observability"
	"github.com/samber/lo"
	"github.com/uptrace/bun"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// LeaderboardService implements Service.
type LeaderboardService struct {
	repo    ModelReader
	cache   Cache
	logger  *slog.Logger
	tracer  trace.Tracer
	db      bun.IDB
	palette ChartPalette
}

// NewLeaderboardService creates the read service. cache may be nil.
func NewLeaderboardService(repo ModelReader, cache Cache, logger *slog.Logger, tracer trace.Tracer, db bun.IDB) *LeaderboardService {
	if logger == nil {
		logger = slog.Default()
	}
	return &LeaderboardService{
		repo:    repo,
		cache:   cache,
		logger:  logger,
		tracer:  tracer,
		db:      db,
		palette: DefaultPalette,
	}
}

// GetLeaderboard serves from cache when possible. A cache failure degrades to a database read.
func (s *LeaderboardService) GetLeaderboard(ctx context.Context) ([]leaderboarddomain.Entry, error) {
	ctx, span := s.tracer.Start(ctx, "LeaderboardService.GetLeaderboard")
	defer span.End()

	cacheable := false
	var gen int64
	if s.cache != nil {
		entries, g, ok, err := s.cache.Get(ctx)
		switch {
		case err != nil:
			s.logger.WarnContext(ctx, "Leaderboard cache read failed",
				observability.ExtractCorrelationID(ctx),
				slog.Any("error", err),
			)
		case ok:
			span.SetAttributes(attribute.Bool("cache_hit", true))
			return entries, nil
		default:
			cacheable, gen = true, g
		}
	}

	models, err := s.repo.ListModels(ctx, s.db)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("list models: %w", err)
	}
	entries := leaderboarddomain.Build(models)

	if cacheable {
		if err := s.cache.Set(ctx, gen, entries); err != nil {
			s.logger.WarnContext(ctx, "Leaderboard cache write failed",
				observability.ExtractCorrelationID(ctx),
				slog.Any("error", err),
			)
		}
	}
	return entries, nil
}

// RatingPoint is one sample of a model's exposed rating.
type RatingPoint struct {
	At      time.Time
	Exposed float64
}

// RatingSeries returns every rating change of the models that normalize to slug, oldest first.
func (s *LeaderboardService) RatingSeries(ctx context.Context, slug string) ([]RatingPoint, error) {
	models, err := s.repo.ListModels(ctx, s.db)
	if err != nil {
		return nil, fmt.Errorf("list models: %w", err)
	}
	want := gamedomain.NormalizeSlug(slug)
	ids := lo.FilterMap(models, func(m gamedb.Model, _ int) (int64, bool) {
		return m.ID, gamedomain.NormalizeSlug(m.Slug) == want
	})
	if len(ids) == 0 {
		return nil, fmt.Errorf("%s: %w", slug, ErrModelNotFound)
	}

	history, err := s.repo.GetRatingHistory(ctx, s.db, ids)
	if err != nil {
		return nil, fmt.Errorf("get rating history: %w", err)
	}
	slices.SortStableFunc(history, func(a, b gamedb.RatingHistory) int {
		return a.PlayedAt.Compare(b.PlayedAt)
	})
	return lo.Map(history, func(h gamedb.RatingHistory, _ int) RatingPoint {
		return RatingPoint{At: h.PlayedAt, Exposed: h.Exposed}
	}), nil
}

// RatingChart renders the exposed-rating history of slug as a PNG.
func (s *LeaderboardService) RatingChart(ctx context.Context, slug string) ([]byte, error) {
	ctx, span := s.tracer.Start(ctx, "LeaderboardService.RatingChart", trace.WithAttributes(
		attribute.String("slug", slug),
	))
	defer span.End()

	points, err := s.RatingSeries(ctx, slug)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	return GenerateRatingChart(gamedomain.NormalizeSlug(slug), points, s.palette)
}
