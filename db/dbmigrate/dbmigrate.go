// Package dbmigrate runs the module schema migrations and the River queue schema.
package dbmigrate

import (
	"context"
	"fmt"
	"log/slog"

	gamemigrations "github.com/Black-And-White-Club/snakebench/app/modules/game/infrastructure/repositories/migrations"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/riverqueue/river/riverdriver/riverpgxv5"
	"github.com/riverqueue/river/rivermigrate"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/migrate"
)

// Migrators returns one bun migrator per module, keyed by module name.
func Migrators(db *bun.DB) map[string]*migrate.Migrator {
	return map[string]*migrate.Migrator{
		"game": migrate.NewMigrator(db, gamemigrations.Migrations),
	}
}

// Up initializes and applies every module migration, then the River schema.
func Up(ctx context.Context, db *bun.DB, dsn string, logger *slog.Logger) error {
	for name, migrator := range Migrators(db) {
		if err := migrator.Init(ctx); err != nil {
			return fmt.Errorf("failed to init migrations for module %s: %w", name, err)
		}
		group, err := migrator.Migrate(ctx)
		if err != nil {
			return fmt.Errorf("failed to migrate module %s: %w", name, err)
		}
		if group.IsZero() {
			logger.InfoContext(ctx, "No new migrations", slog.String("module", name))
		} else {
			logger.InfoContext(ctx, "Migrated module", slog.String("module", name), slog.String("group", group.String()))
		}
	}
	return RiverUp(ctx, dsn, logger)
}

// RiverUp applies the River queue migrations over a short-lived pgx pool.
func RiverUp(ctx context.Context, dsn string, logger *slog.Logger) error {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return fmt.Errorf("failed to create pgx pool: %w", err)
	}
	defer pool.Close()

	migrator, err := rivermigrate.New(riverpgxv5.New(pool), nil)
	if err != nil {
		return fmt.Errorf("failed to create River migrator: %w", err)
	}
	res, err := migrator.Migrate(ctx, rivermigrate.DirectionUp, &rivermigrate.MigrateOpts{})
	if err != nil {
		return fmt.Errorf("failed to run River migrations: %w", err)
	}
	logger.InfoContext(ctx, "River queue migrations completed", slog.Int("applied", len(res.Versions)))
	return nil
}
