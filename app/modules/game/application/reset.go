package gameservice

import (
	"context"

	gamedomain "github.com/Black-And-White-Club/snakebench/app/modules/game/domain"
	"github.com/uptrace/bun"
)

// ResetRatings zeroes aggregates, restores baseline ratings and clears applied markers.
// Game and participant rows are kept so a following backfill can rebuild on top of them.
func (s *GameService) ResetRatings(ctx context.Context) error {
	_, err := withTelemetry(s, ctx, "ResetRatings", "all", func(ctx context.Context) (struct{}, error) {
		return runInTx(s, ctx, func(ctx context.Context, db bun.IDB) (struct{}, error) {
			if err := s.repo.ResetRatings(ctx, db); err != nil {
				return struct{}{}, &gamedomain.PersistenceError{Op: "reset_ratings", Err: err}
			}
			return struct{}{}, nil
		})
	})
	if err != nil {
		return err
	}
	s.invalidateLeaderboard(ctx)
	return nil
}
