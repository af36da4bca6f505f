package gamedb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/Black-And-White-Club/snakebench/app/modules/game/domain/rating"
	"github.com/uptrace/bun"
)

// Impl implements Repository using Bun ORM.
type Impl struct {
	db bun.IDB
}

// NewRepository creates a new game repository.
func NewRepository(db bun.IDB) Repository {
	return &Impl{db: db}
}

// resolveDB returns the provided db handle, falling back to the repository's
// default connection if db is nil.
func (r *Impl) resolveDB(db bun.IDB) bun.IDB {
	if db == nil {
		return r.db
	}
	return db
}

func (r *Impl) AcquireGameLock(ctx context.Context, db bun.IDB, gameID string) error {
	db = r.resolveDB(db)
	// hashtext() gives a stable int4 key for the string id.
	if _, err := db.NewRaw("SELECT pg_advisory_xact_lock(hashtext(?))", gameID).Exec(ctx); err != nil {
		return fmt.Errorf("gamedb.AcquireGameLock: %w", err)
	}
	return nil
}

func (r *Impl) UpsertModel(ctx context.Context, db bun.IDB, slug, displayName, provider string) (int64, error) {
	db = r.resolveDB(db)
	m := &Model{
		Slug:        slug,
		DisplayName: displayName,
		Provider:    provider,
		Mu:          rating.InitialMu,
		Sigma:       rating.InitialSigma,
		Exposed:     rating.Exposed(rating.InitialMu, rating.InitialSigma),
		Display:     rating.Display(rating.InitialMu, rating.InitialSigma),
		Elo:         rating.InitialElo,
		IsActive:    true,
	}
	_, err := db.NewInsert().
		Model(m).
		On("CONFLICT (slug) DO UPDATE").
		// Live results only know the slug; keep a name a replay supplied.
		Set("display_name = CASE WHEN EXCLUDED.display_name <> EXCLUDED.slug THEN EXCLUDED.display_name ELSE m.display_name END").
		Set("provider = COALESCE(NULLIF(EXCLUDED.provider, ''), m.provider)").
		Set("updated_at = current_timestamp").
		Returning("id").
		Exec(ctx)
	if err != nil {
		return 0, fmt.Errorf("gamedb.UpsertModel: %w", err)
	}
	return m.ID, nil
}

func (r *Impl) GetGameState(ctx context.Context, db bun.IDB, gameID string) (*GameState, error) {
	db = r.resolveDB(db)
	g := new(Game)
	err := db.NewSelect().
		Model(g).
		Column("id", "content_hash", "aggregates_applied_at").
		Where("id = ?", gameID).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("gamedb.GetGameState: %w", err)
	}
	return &GameState{AggregatesApplied: g.AggregatesAppliedAt != nil, ContentHash: g.ContentHash}, nil
}

func (r *Impl) UpsertGame(ctx context.Context, db bun.IDB, game *Game) (bool, error) {
	db = r.resolveDB(db)
	game.UpdatedAt = time.Now().UTC()
	var inserted bool
	// xmax is zero only for a freshly inserted tuple.
	err := db.NewInsert().
		Model(game).
		ExcludeColumn("aggregates_applied_at", "created_at").
		On("CONFLICT (id) DO UPDATE").
		Set("status = EXCLUDED.status").
		Set("started_at = COALESCE(EXCLUDED.started_at, g.started_at)").
		Set("ended_at = EXCLUDED.ended_at").
		Set("rounds_played = EXCLUDED.rounds_played").
		Set("board_width = EXCLUDED.board_width").
		Set("board_height = EXCLUDED.board_height").
		Set("num_apples = EXCLUDED.num_apples").
		Set("total_score = EXCLUDED.total_score").
		Set("total_cost = EXCLUDED.total_cost").
		Set("game_type = EXCLUDED.game_type").
		Set("replay_path = EXCLUDED.replay_path").
		Set("content_hash = EXCLUDED.content_hash").
		Set("updated_at = EXCLUDED.updated_at").
		Returning("(xmax = 0) AS inserted").
		Scan(ctx, &inserted)
	if err != nil {
		return false, fmt.Errorf("gamedb.UpsertGame: %w", err)
	}
	return !inserted, nil
}

func (r *Impl) InsertGameIfAbsent(ctx context.Context, db bun.IDB, game *Game) (bool, error) {
	db = r.resolveDB(db)
	res, err := db.NewInsert().
		Model(game).
		ExcludeColumn("aggregates_applied_at").
		On("CONFLICT (id) DO NOTHING").
		Exec(ctx)
	if err != nil {
		return false, fmt.Errorf("gamedb.InsertGameIfAbsent: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("gamedb.InsertGameIfAbsent: %w", err)
	}
	return n > 0, nil
}

func (r *Impl) UpsertParticipant(ctx context.Context, db bun.IDB, p *GameParticipant) error {
	db = r.resolveDB(db)
	_, err := db.NewInsert().
		Model(p).
		On("CONFLICT (game_id, player_slot) DO UPDATE").
		Set("model_id = EXCLUDED.model_id").
		Set("score = EXCLUDED.score").
		Set("result = EXCLUDED.result").
		Set("death_round = EXCLUDED.death_round").
		Set("death_reason = EXCLUDED.death_reason").
		Set("cost = EXCLUDED.cost").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("gamedb.UpsertParticipant: %w", err)
	}
	return nil
}

func (r *Impl) InsertParticipantIfAbsent(ctx context.Context, db bun.IDB, p *GameParticipant) error {
	db = r.resolveDB(db)
	if _, err := db.NewInsert().Model(p).On("CONFLICT (game_id, player_slot) DO NOTHING").Exec(ctx); err != nil {
		return fmt.Errorf("gamedb.InsertParticipantIfAbsent: %w", err)
	}
	return nil
}

func (r *Impl) GetParticipants(ctx context.Context, db bun.IDB, gameID string) ([]GameParticipant, error) {
	db = r.resolveDB(db)
	var participants []GameParticipant
	err := db.NewSelect().
		Model(&participants).
		Where("game_id = ?", gameID).
		Order("player_slot ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("gamedb.GetParticipants: %w", err)
	}
	return participants, nil
}

func (r *Impl) ApplyAggregates(ctx context.Context, db bun.IDB, gameID string, playedAt time.Time) error {
	db = r.resolveDB(db)
	participants, err := r.GetParticipants(ctx, db, gameID)
	if err != nil {
		return fmt.Errorf("gamedb.ApplyAggregates: %w", err)
	}
	if len(participants) == 0 {
		return fmt.Errorf("gamedb.ApplyAggregates: game %s: %w", gameID, ErrNotFound)
	}

	// One statement per seat so a model occupying two seats is counted twice.
	for _, p := range participants {
		var win, loss, tie int
		switch p.Result {
		case "won":
			win = 1
		case "lost":
			loss = 1
		default:
			tie = 1
		}
		res, err := db.NewUpdate().
			Model((*Model)(nil)).
			Set("wins = wins + ?", win).
			Set("losses = losses + ?", loss).
			Set("ties = ties + ?", tie).
			Set("apples = apples + ?", p.Score).
			Set("games_played = games_played + 1").
			Set("last_played_at = ?", playedAt).
			Set("updated_at = current_timestamp").
			Where("id = ?", p.ModelID).
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("gamedb.ApplyAggregates: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return fmt.Errorf("gamedb.ApplyAggregates: model %d: %w", p.ModelID, ErrNoRowsAffected)
		}
	}
	return nil
}

func (r *Impl) GetModelsForUpdate(ctx context.Context, db bun.IDB, modelIDs []int64) ([]Model, error) {
	db = r.resolveDB(db)
	var models []Model
	err := db.NewSelect().
		Model(&models).
		Where("id IN (?)", bun.In(modelIDs)).
		Order("id ASC").
		For("UPDATE").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("gamedb.GetModelsForUpdate: %w", err)
	}
	return models, nil
}

func (r *Impl) UpdateRatings(ctx context.Context, db bun.IDB, ratings []ModelRating) error {
	db = r.resolveDB(db)
	for _, mr := range ratings {
		res, err := db.NewUpdate().
			Model((*Model)(nil)).
			Set("mu = ?", mr.Mu).
			Set("sigma = ?", mr.Sigma).
			Set("exposed = ?", rating.Exposed(mr.Mu, mr.Sigma)).
			Set("display = ?", rating.Display(mr.Mu, mr.Sigma)).
			Set("elo = ?", mr.Elo).
			Set("updated_at = current_timestamp").
			Where("id = ?", mr.ModelID).
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("gamedb.UpdateRatings: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return fmt.Errorf("gamedb.UpdateRatings: model %d: %w", mr.ModelID, ErrNoRowsAffected)
		}
	}
	return nil
}

func (r *Impl) InsertRatingHistory(ctx context.Context, db bun.IDB, rows []*RatingHistory) error {
	if len(rows) == 0 {
		return nil
	}
	db = r.resolveDB(db)
	if _, err := db.NewInsert().Model(&rows).Exec(ctx); err != nil {
		return fmt.Errorf("gamedb.InsertRatingHistory: %w", err)
	}
	return nil
}

func (r *Impl) MarkAggregatesApplied(ctx context.Context, db bun.IDB, gameID string, at time.Time) error {
	db = r.resolveDB(db)
	res, err := db.NewUpdate().
		Model((*Game)(nil)).
		Set("aggregates_applied_at = ?", at).
		Where("id = ?", gameID).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("gamedb.MarkAggregatesApplied: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("gamedb.MarkAggregatesApplied: %w", ErrNoRowsAffected)
	}
	return nil
}

func (r *Impl) ResetRatings(ctx context.Context, db bun.IDB) error {
	db = r.resolveDB(db)
	_, err := db.NewUpdate().
		Model((*Model)(nil)).
		Set("mu = ?", rating.InitialMu).
		Set("sigma = ?", rating.InitialSigma).
		Set("exposed = ?", rating.Exposed(rating.InitialMu, rating.InitialSigma)).
		Set("display = ?", rating.Display(rating.InitialMu, rating.InitialSigma)).
		Set("elo = ?", rating.InitialElo).
		Set("wins = 0, losses = 0, ties = 0, games_played = 0, apples = 0").
		Set("last_played_at = NULL").
		Set("updated_at = current_timestamp").
		Where("TRUE").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("gamedb.ResetRatings: models: %w", err)
	}
	_, err = db.NewUpdate().
		Model((*Game)(nil)).
		Set("aggregates_applied_at = NULL").
		Where("aggregates_applied_at IS NOT NULL").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("gamedb.ResetRatings: games: %w", err)
	}
	if _, err := db.NewDelete().Model((*RatingHistory)(nil)).Where("TRUE").Exec(ctx); err != nil {
		return fmt.Errorf("gamedb.ResetRatings: rating_history: %w", err)
	}
	return nil
}

func (r *Impl) ListModels(ctx context.Context, db bun.IDB) ([]Model, error) {
	db = r.resolveDB(db)
	var models []Model
	if err := db.NewSelect().Model(&models).Order("id ASC").Scan(ctx); err != nil {
		return nil, fmt.Errorf("gamedb.ListModels: %w", err)
	}
	return models, nil
}

func (r *Impl) GetRatingHistory(ctx context.Context, db bun.IDB, modelIDs []int64) ([]RatingHistory, error) {
	if len(modelIDs) == 0 {
		return nil, nil
	}
	db = r.resolveDB(db)
	var rows []RatingHistory
	err := db.NewSelect().
		Model(&rows).
		Where("model_id IN (?)", bun.In(modelIDs)).
		Order("played_at ASC", "id ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("gamedb.GetRatingHistory: %w", err)
	}
	return rows, nil
}
