package gamedb

import (
	"context"
	"time"

	"github.com/uptrace/bun"
)

// Repository is the persistence store for models, games and participants.
// Every method runs on the supplied db handle (usually a bun.Tx) and never commits on its own.
// A nil db falls back to the repository's connection.
//
// Error semantics:
//   - ErrNotFound: Record does not exist
//   - ErrNoRowsAffected: UPDATE matched no rows
//   - Other errors: Infrastructure failures (DB connection, query errors)
type Repository interface {
	// AcquireGameLock takes a transaction-scoped advisory lock on the game id.
	AcquireGameLock(ctx context.Context, db bun.IDB, gameID string) error

	// UpsertModel creates a model with baseline rating if the slug is unseen.
	// On conflict only cosmetic fields change. Returns the model id.
	UpsertModel(ctx context.Context, db bun.IDB, slug, displayName, provider string) (int64, error)

	// GetGameState returns ErrNotFound if the game row does not exist.
	GetGameState(ctx context.Context, db bun.IDB, gameID string) (*GameState, error)

	// UpsertGame inserts or overwrites the game row, keeping the stored start time when the
	// new one is null. Returns whether the row existed before the call.
	UpsertGame(ctx context.Context, db bun.IDB, game *Game) (existedBefore bool, err error)

	// InsertGameIfAbsent inserts the game row only if no row with that id exists.
	InsertGameIfAbsent(ctx context.Context, db bun.IDB, game *Game) (inserted bool, err error)

	// UpsertParticipant inserts or fully overwrites the (game, seat) row.
	UpsertParticipant(ctx context.Context, db bun.IDB, p *GameParticipant) error

	// InsertParticipantIfAbsent inserts the (game, seat) row only if it is missing.
	InsertParticipantIfAbsent(ctx context.Context, db bun.IDB, p *GameParticipant) error

	// GetParticipants returns a game's seats ordered by slot.
	GetParticipants(ctx context.Context, db bun.IDB, gameID string) ([]GameParticipant, error)

	// ApplyAggregates increments each seat's model counters once. Not idempotent.
	ApplyAggregates(ctx context.Context, db bun.IDB, gameID string, playedAt time.Time) error

	// GetModelsForUpdate row-locks and returns the models, ordered by id.
	GetModelsForUpdate(ctx context.Context, db bun.IDB, modelIDs []int64) ([]Model, error)

	// UpdateRatings writes posterior ratings and their derived exposed/display scores.
	UpdateRatings(ctx context.Context, db bun.IDB, ratings []ModelRating) error

	// InsertRatingHistory appends rating audit rows.
	InsertRatingHistory(ctx context.Context, db bun.IDB, rows []*RatingHistory) error

	// MarkAggregatesApplied stamps the game as counted.
	MarkAggregatesApplied(ctx context.Context, db bun.IDB, gameID string, at time.Time) error

	// ResetRatings returns every model to the baseline, clears applied markers and rating history.
	ResetRatings(ctx context.Context, db bun.IDB) error

	// --- Read side ---

	// ListModels returns every model.
	ListModels(ctx context.Context, db bun.IDB) ([]Model, error)

	// GetRatingHistory returns history rows for the models, oldest first.
	GetRatingHistory(ctx context.Context, db bun.IDB, modelIDs []int64) ([]RatingHistory, error)
}
