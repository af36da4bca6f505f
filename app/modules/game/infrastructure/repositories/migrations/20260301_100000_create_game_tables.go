package gamemigrations

import (
	"context"
	"fmt"

	gamedb "github.com/Black-And-White-Club/snakebench/app/modules/game/infrastructure/repositories"
	"github.com/uptrace/bun"
)

func init() {
	Migrations.MustRegister(func(ctx context.Context, db *bun.DB) error {
		fmt.Println("Creating models, games and game_participants tables...")

		return db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
			if _, err := tx.NewCreateTable().Model((*gamedb.Model)(nil)).IfNotExists().Exec(ctx); err != nil {
				return fmt.Errorf("failed to create models table: %w", err)
			}
			if _, err := tx.NewCreateTable().Model((*gamedb.Game)(nil)).IfNotExists().Exec(ctx); err != nil {
				return fmt.Errorf("failed to create games table: %w", err)
			}
			if _, err := tx.NewCreateTable().
				Model((*gamedb.GameParticipant)(nil)).
				IfNotExists().
				ForeignKey(`("game_id") REFERENCES "games" ("id") ON DELETE CASCADE`).
				ForeignKey(`("model_id") REFERENCES "models" ("id")`).
				Exec(ctx); err != nil {
				return fmt.Errorf("failed to create game_participants table: %w", err)
			}

			stmts := []string{
				`ALTER TABLE game_participants DROP CONSTRAINT IF EXISTS chk_game_participants_result`,
				`ALTER TABLE game_participants ADD CONSTRAINT chk_game_participants_result CHECK (result IN ('won', 'lost', 'tied'))`,
				`CREATE INDEX IF NOT EXISTS idx_game_participants_model_id ON game_participants (model_id)`,
				`CREATE INDEX IF NOT EXISTS idx_games_started_at ON games (started_at)`,
				`CREATE INDEX IF NOT EXISTS idx_models_exposed ON models (exposed DESC)`,
			}
			for _, stmt := range stmts {
				if _, err := tx.ExecContext(ctx, stmt); err != nil {
					return fmt.Errorf("failed to run %q: %w", stmt, err)
				}
			}
			fmt.Println("Game tables created successfully!")
			return nil
		})
	}, func(ctx context.Context, db *bun.DB) error {
		fmt.Println("Dropping game_participants, games and models tables...")

		return db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
			for _, model := range []interface{}{(*gamedb.GameParticipant)(nil), (*gamedb.Game)(nil), (*gamedb.Model)(nil)} {
				if _, err := tx.NewDropTable().Model(model).IfExists().Cascade().Exec(ctx); err != nil {
					return err
				}
			}
			fmt.Println("Game tables dropped successfully!")
			return nil
		})
	})
}
