package gameservice

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/Black-And-White-Club/snakebench/app/modules/game/application/parsers"
	gamedomain "github.com/Black-And-White-Club/snakebench/app/modules/game/domain"
	"github.com/Black-And-White-Club/snakebench/app/shared/observability"
	"github.com/uptrace/bun"
)

// RecordLiveResult never returns an error and never panics: a storage outage must not stop live play.
func (s *GameService) RecordLiveResult(ctx context.Context, result gamedomain.LiveResult) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.WarnContext(ctx, "Recovered panic while recording live result",
				observability.ExtractCorrelationID(ctx),
				slog.String("match_id", result.MatchID),
				slog.Any("panic", r),
			)
		}
	}()

	if result.ReplayPath != "" {
		s.recordFromReplay(ctx, result)
		return
	}

	if _, err := withTelemetry(s, ctx, "RecordLiveResult", result.MatchID, func(ctx context.Context) (bool, error) {
		return s.insertMinimal(ctx, result)
	}); err != nil {
		s.logger.WarnContext(ctx, "Live result not recorded",
			observability.ExtractCorrelationID(ctx),
			slog.String("match_id", result.MatchID),
			slog.Any("error", err),
		)
	}
}

func (s *GameService) recordFromReplay(ctx context.Context, result gamedomain.LiveResult) {
	_, err := s.IngestReplayFile(ctx, result.ReplayPath, IngestOptions{})
	if err == nil {
		return
	}
	s.logger.WarnContext(ctx, "Live replay ingestion failed",
		observability.ExtractCorrelationID(ctx),
		slog.String("match_id", result.MatchID),
		slog.String("path", result.ReplayPath),
		slog.Any("error", err),
	)

	// A replay that does not parse will not parse on retry either.
	if s.retry == nil || errors.Is(err, gamedomain.ErrParse) {
		return
	}
	if qerr := s.retry.EnqueueReplayIngest(ctx, result.ReplayPath); qerr != nil {
		s.logger.WarnContext(ctx, "Failed to schedule replay ingestion retry",
			observability.ExtractCorrelationID(ctx),
			slog.String("path", result.ReplayPath),
			slog.Any("error", qerr),
		)
	}
}

// insertMinimal stores scores and outcomes only. It never touches aggregates or ratings and never
// overwrites a game or seat that already exists.
func (s *GameService) insertMinimal(ctx context.Context, result gamedomain.LiveResult) (bool, error) {
	game, err := parsers.ParseLiveResult(result)
	if err != nil {
		return false, err
	}

	return runInTx(s, ctx, func(ctx context.Context, db bun.IDB) (bool, error) {
		if err := s.repo.AcquireGameLock(ctx, db, game.ID); err != nil {
			return false, &gamedomain.PersistenceError{Op: "acquire_game_lock", Err: err}
		}
		modelIDs, err := s.resolveModels(ctx, db, game.Participants)
		if err != nil {
			return false, err
		}
		row := toGameRow(game, gamedomain.ComputeContentHash(game))
		inserted, err := s.repo.InsertGameIfAbsent(ctx, db, row)
		if err != nil {
			return false, &gamedomain.PersistenceError{Op: "insert_game", Err: err}
		}
		if !inserted {
			return false, nil
		}
		for i, p := range game.Participants {
			if err := s.repo.InsertParticipantIfAbsent(ctx, db, toParticipantRow(game.ID, p, modelIDs[i])); err != nil {
				return false, &gamedomain.PersistenceError{Op: "insert_participant", Err: fmt.Errorf("seat %d: %w", p.Seat, err)}
			}
		}
		return true, nil
	})
}

