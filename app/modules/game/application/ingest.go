package gameservice

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	gamedomain "github.com/Black-And-White-Club/snakebench/app/modules/game/domain"
	"github.com/Black-And-White-Club/snakebench/app/modules/game/domain/rating"
	gamedb "github.com/Black-And-White-Club/snakebench/app/modules/game/infrastructure/repositories"
	"github.com/Black-And-White-Club/snakebench/app/shared/observability"
	"github.com/samber/lo"
	"github.com/uptrace/bun"
)

// IngestReplayFile parses a replay and applies it in one transaction.
func (s *GameService) IngestReplayFile(ctx context.Context, path string, opts IngestOptions) (*IngestResult, error) {
	return withTelemetry(s, ctx, "IngestReplayFile", path, func(ctx context.Context) (*IngestResult, error) {
		return s.ingestReplay(ctx, path, opts)
	})
}

// ingestReplay is IngestReplayFile without the telemetry wrapper, for callers that log on their own.
func (s *GameService) ingestReplay(ctx context.Context, path string, opts IngestOptions) (*IngestResult, error) {
	game, err := s.parser.ParseFile(path)
	if err != nil {
		return nil, err
	}

	res, err := runInTx(s, ctx, func(ctx context.Context, db bun.IDB) (*IngestResult, error) {
		return s.ingestGameTx(ctx, db, game, opts.ForceRecompute)
	})
	if err != nil {
		return nil, err
	}

	if res.Applied {
		s.invalidateLeaderboard(ctx)
	} else {
		s.metrics.RecordSkipped(ctx)
	}
	return res, nil
}

// ingestGameTx runs everything after parsing. Any error rolls the whole game back.
func (s *GameService) ingestGameTx(ctx context.Context, db bun.IDB, game *gamedomain.NormalizedGame, force bool) (*IngestResult, error) {
	res := &IngestResult{GameID: game.ID}

	// Serializes concurrent ingests of the same game between the existence check and the writes.
	if err := s.repo.AcquireGameLock(ctx, db, game.ID); err != nil {
		return nil, &gamedomain.PersistenceError{Op: "acquire_game_lock", Err: err}
	}

	var prior *gamedb.GameState
	switch st, err := s.repo.GetGameState(ctx, db, game.ID); {
	case err == nil:
		prior = st
	case errors.Is(err, gamedb.ErrNotFound):
	default:
		return nil, &gamedomain.PersistenceError{Op: "get_game_state", Err: err}
	}

	modelIDs, err := s.resolveModels(ctx, db, game.Participants)
	if err != nil {
		return nil, err
	}

	hash := gamedomain.ComputeContentHash(game)
	existedBefore, err := s.repo.UpsertGame(ctx, db, toGameRow(game, hash))
	if err != nil {
		return nil, &gamedomain.PersistenceError{Op: "upsert_game", Err: err}
	}
	res.ExistedBefore = existedBefore

	for i, p := range game.Participants {
		if err := s.repo.UpsertParticipant(ctx, db, toParticipantRow(game.ID, p, modelIDs[i])); err != nil {
			return nil, &gamedomain.PersistenceError{Op: "upsert_participant", Err: err}
		}
	}

	alreadyApplied := prior != nil && prior.AggregatesApplied
	if existedBefore && alreadyApplied && prior.ContentHash != "" && prior.ContentHash != hash {
		res.ContentChanged = true
		if !force {
			s.logger.WarnContext(ctx, "Replay content changed since the game was counted; use force recompute to re-apply",
				observability.ExtractCorrelationID(ctx),
				slog.String("game_id", game.ID),
			)
		}
	}

	if !gamedomain.ShouldApplyAggregates(existedBefore, alreadyApplied, force) {
		s.logger.InfoContext(ctx, "Game already counted, skipping aggregates and ratings",
			observability.ExtractCorrelationID(ctx),
			slog.String("game_id", game.ID),
		)
		return res, nil
	}

	now := s.now()
	if err := s.repo.ApplyAggregates(ctx, db, game.ID, now); err != nil {
		return nil, &gamedomain.PersistenceError{Op: "apply_aggregates", Err: err}
	}

	update, err := s.applyRatings(ctx, db, game, modelIDs)
	if err != nil {
		return nil, err
	}

	if err := s.repo.MarkAggregatesApplied(ctx, db, game.ID, now); err != nil {
		return nil, &gamedomain.PersistenceError{Op: "mark_aggregates_applied", Err: err}
	}

	res.Applied = true
	res.Algorithm = update.Algorithm
	res.FellBack = update.FellBack()
	return res, nil
}

// resolveModels upserts each seat's model and returns ids in seat order.
func (s *GameService) resolveModels(ctx context.Context, db bun.IDB, participants []gamedomain.NormalizedParticipant) ([]int64, error) {
	ids := make([]int64, len(participants))
	for i, p := range participants {
		id, err := s.repo.UpsertModel(ctx, db, p.ModelSlug, p.DisplayName, p.Provider)
		if err != nil {
			return nil, &gamedomain.PersistenceError{Op: "upsert_model", Err: err}
		}
		ids[i] = id
	}
	return ids, nil
}

// applyRatings reads the priors under row locks, runs the engine and writes posteriors plus history.
func (s *GameService) applyRatings(ctx context.Context, db bun.IDB, game *gamedomain.NormalizedGame, modelIDs []int64) (rating.Update, error) {
	models, err := s.repo.GetModelsForUpdate(ctx, db, lo.Uniq(modelIDs))
	if err != nil {
		return rating.Update{}, &gamedomain.PersistenceError{Op: "get_models", Err: err}
	}
	byID := lo.KeyBy(models, func(m gamedb.Model) int64 { return m.ID })

	inputs := make([]rating.Participant, len(game.Participants))
	for i, p := range game.Participants {
		m, ok := byID[modelIDs[i]]
		if !ok {
			return rating.Update{}, &gamedomain.PersistenceError{Op: "get_models", Err: fmt.Errorf("model %d: %w", modelIDs[i], gamedb.ErrNotFound)}
		}
		inputs[i] = rating.Participant{ModelID: m.ID, Mu: m.Mu, Sigma: m.Sigma, Elo: m.Elo, Rank: p.Outcome.Rank()}
	}

	update, err := s.engine.UpdateRatings(inputs)
	if err != nil {
		return rating.Update{}, err
	}
	if update.FellBack() {
		s.metrics.RecordRatingFallback(ctx, s.engine.Primary())
		s.logger.WarnContext(ctx, "Primary rating algorithm failed, used Elo fallback",
			observability.ExtractCorrelationID(ctx),
			slog.String("game_id", game.ID),
			slog.String("primary", s.engine.Primary()),
			slog.Any("error", update.PrimaryErr),
		)
	}

	ratings := lo.Map(update.Results, func(r rating.Result, _ int) gamedb.ModelRating {
		return gamedb.ModelRating{ModelID: r.ModelID, Mu: r.Mu, Sigma: r.Sigma, Elo: r.Elo}
	})
	if err := s.repo.UpdateRatings(ctx, db, ratings); err != nil {
		return rating.Update{}, &gamedomain.PersistenceError{Op: "update_ratings", Err: err}
	}

	playedAt := s.now()
	if game.StartedAt != nil {
		playedAt = *game.StartedAt
	}
	history := make([]*gamedb.RatingHistory, len(update.Results))
	for i, r := range update.Results {
		history[i] = &gamedb.RatingHistory{
			GameID:     game.ID,
			ModelID:    r.ModelID,
			Algorithm:  update.Algorithm,
			PriorMu:    inputs[i].Mu,
			PriorSigma: inputs[i].Sigma,
			PriorElo:   inputs[i].Elo,
			Mu:         r.Mu,
			Sigma:      r.Sigma,
			Elo:        r.Elo,
			Exposed:    r.Exposed(),
			PlayedAt:   playedAt,
		}
	}
	if err := s.repo.InsertRatingHistory(ctx, db, history); err != nil {
		return rating.Update{}, &gamedomain.PersistenceError{Op: "insert_rating_history", Err: err}
	}
	return update, nil
}

func toGameRow(game *gamedomain.NormalizedGame, hash string) *gamedb.Game {
	return &gamedb.Game{
		ID:           game.ID,
		Status:       gamedomain.StatusCompleted,
		StartedAt:    game.StartedAt,
		EndedAt:      game.EndedAt,
		RoundsPlayed: game.RoundsPlayed,
		BoardWidth:   game.BoardWidth,
		BoardHeight:  game.BoardHeight,
		NumApples:    game.FoodCount,
		TotalScore:   game.TotalScore(),
		TotalCost:    game.TotalCost,
		GameType:     game.GameType,
		ReplayPath:   game.ReplayPath,
		ContentHash:  hash,
	}
}

func toParticipantRow(gameID string, p gamedomain.NormalizedParticipant, modelID int64) *gamedb.GameParticipant {
	row := &gamedb.GameParticipant{
		GameID:     gameID,
		PlayerSlot: p.Seat,
		ModelID:    modelID,
		Score:      p.Score,
		Result:     string(p.Outcome),
		DeathRound: p.DeathRound,
		Cost:       p.Cost,
	}
	if p.DeathReason != nil {
		reason := string(*p.DeathReason)
		row.DeathReason = &reason
	}
	return row
}
