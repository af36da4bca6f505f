package gamemigrations

import (
	"context"
	"fmt"

	gamedb "github.com/Black-And-White-Club/snakebench/app/modules/game/infrastructure/repositories"
	"github.com/uptrace/bun"
)

func init() {
	Migrations.MustRegister(func(ctx context.Context, db *bun.DB) error {
		fmt.Println("Creating rating_history table...")

		if _, err := db.NewCreateTable().
			Model((*gamedb.RatingHistory)(nil)).
			IfNotExists().
			ForeignKey(`("model_id") REFERENCES "models" ("id")`).
			Exec(ctx); err != nil {
			return fmt.Errorf("failed to create rating_history table: %w", err)
		}
		_, err := db.ExecContext(ctx, `CREATE INDEX IF NOT EXISTS idx_rating_history_model_played ON rating_history (model_id, played_at)`)
		if err != nil {
			return err
		}
		_, err = db.ExecContext(ctx, `CREATE INDEX IF NOT EXISTS idx_rating_history_game_id ON rating_history (game_id)`)
		if err != nil {
			return err
		}

		fmt.Println("rating_history table created successfully!")
		return nil
	}, func(ctx context.Context, db *bun.DB) error {
		fmt.Println("Dropping rating_history table...")
		_, err := db.NewDropTable().Model((*gamedb.RatingHistory)(nil)).IfExists().Exec(ctx)
		return err
	})
}
