package leaderboardservice

import (
	"context"
	"io"

	gamedb "github.com/Black-And-White-Club/snakebench/app/modules/game/infrastructure/repositories"
	leaderboarddomain "github.com/Black-And-White-Club/snakebench/app/modules/leaderboard/domain"
	"github.com/uptrace/bun"
)

// Service is the read side of the pipeline.
type Service interface {
	GetLeaderboard(ctx context.Context) ([]leaderboarddomain.Entry, error)
	ExportXLSX(ctx context.Context, w io.Writer) error
	RatingChart(ctx context.Context, slug string) ([]byte, error)
}

// ModelReader is the slice of the game store the leaderboard reads.
type ModelReader interface {
	ListModels(ctx context.Context, db bun.IDB) ([]gamedb.Model, error)
	GetRatingHistory(ctx context.Context, db bun.IDB, modelIDs []int64) ([]gamedb.RatingHistory, error)
}

// Cache holds a built leaderboard between ingestions. Get reports a generation that
// Set must be given back; Set drops the write if an Invalidate happened in between.
type Cache interface {
	Get(ctx context.Context) (entries []leaderboarddomain.Entry, gen int64, ok bool, err error)
	Set(ctx context.Context, gen int64, entries []leaderboarddomain.Entry) error
	Invalidate(ctx context.Context) error
}
