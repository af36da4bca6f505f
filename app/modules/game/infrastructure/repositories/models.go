package gamedb

import (
	"time"

	"github.com/uptrace/bun"
)

// Model is one rated competitor, keyed by its raw slug.
type Model struct {
	bun.BaseModel `bun:"table:models,alias:m"`

	ID          int64   `bun:"id,pk,autoincrement"`
	Slug        string  `bun:"slug,notnull,unique"`
	DisplayName string  `bun:"display_name,notnull"`
	Provider    string  `bun:"provider,notnull,default:''"`
	Mu          float64 `bun:"mu,notnull"`
	Sigma       float64 `bun:"sigma,notnull"`
	Exposed     float64 `bun:"exposed,notnull"`
	Display     float64 `bun:"display,notnull"`
	Elo         float64 `bun:"elo,notnull"`

	Wins        int `bun:"wins,notnull,default:0"`
	Losses      int `bun:"losses,notnull,default:0"`
	Ties        int `bun:"ties,notnull,default:0"`
	GamesPlayed int `bun:"games_played,notnull,default:0"`
	Apples      int `bun:"apples,notnull,default:0"`

	LastPlayedAt *time.Time `bun:"last_played_at,nullzero"`
	IsActive     bool       `bun:"is_active,notnull,default:true"`
	CreatedAt    time.Time  `bun:"created_at,nullzero,notnull,default:current_timestamp"`
	UpdatedAt    time.Time  `bun:"updated_at,nullzero,notnull,default:current_timestamp"`
}

// Game is one completed match.
type Game struct {
	bun.BaseModel `bun:"table:games,alias:g"`

	ID           string     `bun:"id,pk"`
	Status       string     `bun:"status,notnull"`
	StartedAt    *time.Time `bun:"started_at,nullzero"`
	EndedAt      *time.Time `bun:"ended_at,nullzero"`
	RoundsPlayed int        `bun:"rounds_played,notnull,default:0"`
	BoardWidth   int        `bun:"board_width,notnull,default:0"`
	BoardHeight  int        `bun:"board_height,notnull,default:0"`
	NumApples    int        `bun:"num_apples,notnull,default:0"`
	TotalScore   int        `bun:"total_score,notnull,default:0"`
	TotalCost    float64    `bun:"total_cost,notnull,default:0"`
	GameType     string     `bun:"game_type,notnull"`
	ReplayPath   string     `bun:"replay_path,notnull,default:''"`
	ContentHash  string     `bun:"content_hash,notnull,default:''"`

	// AggregatesAppliedAt is set once this game has been counted in model aggregates and ratings.
	AggregatesAppliedAt *time.Time `bun:"aggregates_applied_at,nullzero"`

	CreatedAt time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp"`
	UpdatedAt time.Time `bun:"updated_at,nullzero,notnull,default:current_timestamp"`
}

// GameParticipant is one seat of a game. Identity is (game, seat), not the model.
type GameParticipant struct {
	bun.BaseModel `bun:"table:game_participants,alias:gp"`

	GameID      string  `bun:"game_id,pk"`
	PlayerSlot  int     `bun:"player_slot,pk"`
	ModelID     int64   `bun:"model_id,notnull"`
	Score       int     `bun:"score,notnull,default:0"`
	Result      string  `bun:"result,notnull"`
	DeathRound  *int    `bun:"death_round"`
	DeathReason *string `bun:"death_reason"`
	Cost        float64 `bun:"cost,notnull,default:0"`
}

// RatingHistory records one model's rating change caused by one game.
type RatingHistory struct {
	bun.BaseModel `bun:"table:rating_history,alias:rh"`

	ID         int64     `bun:"id,pk,autoincrement"`
	GameID     string    `bun:"game_id,notnull"`
	ModelID    int64     `bun:"model_id,notnull"`
	Algorithm  string    `bun:"algorithm,notnull"`
	PriorMu    float64   `bun:"prior_mu,notnull"`
	PriorSigma float64   `bun:"prior_sigma,notnull"`
	PriorElo   float64   `bun:"prior_elo,notnull"`
	Mu         float64   `bun:"mu,notnull"`
	Sigma      float64   `bun:"sigma,notnull"`
	Elo        float64   `bun:"elo,notnull"`
	Exposed    float64   `bun:"exposed,notnull"`
	PlayedAt   time.Time `bun:"played_at,notnull"`
	CreatedAt  time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp"`
}

// GameState is what the store knew about a game before the current ingest touched it.
type GameState struct {
	AggregatesApplied bool
	ContentHash       string
}

// ModelRating is the rating triple written back after a rating pass.
type ModelRating struct {
	ModelID int64
	Mu      float64
	Sigma   float64
	Elo     float64
}
