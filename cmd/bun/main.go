package main

import (
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/Black-And-White-Club/snakebench/app/shared/observability"
	"github.com/Black-And-White-Club/snakebench/config"
	"github.com/Black-And-White-Club/snakebench/db/bundb"
	"github.com/Black-And-White-Club/snakebench/db/dbmigrate"
	"github.com/uptrace/bun/migrate"
	"github.com/urfave/cli/v2"
)

func main() {
	cliApp := &cli.App{
		Name:     "bun",
		Usage:    "snakebench schema migrations",
		Metadata: map[string]interface{}{},
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Value: "config.yaml", Usage: "Path to the configuration file"},
		},
		Before: func(c *cli.Context) error {
			cfg, err := config.LoadConfig(c.String("config"))
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			c.App.Metadata["config"] = cfg
			return nil
		},
		Commands: []*cli.Command{
			newMultiModuleDBCommand(),
		},
	}

	if err := cliApp.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

// withMigrators opens the database, builds the module migrators and closes the pool after fn.
func withMigrators(c *cli.Context, fn func(map[string]*migrate.Migrator) error) error {
	cfg := c.App.Metadata["config"].(*config.Config)
	db, err := bundb.Open(c.Context, cfg.Postgres.DSN)
	if err != nil {
		return err
	}
	defer db.Close()
	return fn(dbmigrate.Migrators(db))
}

func newMultiModuleDBCommand() *cli.Command {
	return &cli.Command{
		Name:  "migrate",
		Usage: "database migrations",
		Subcommands: []*cli.Command{
			{
				Name:  "up",
				Usage: "init and migrate every module, then the River queue schema",
				Action: func(c *cli.Context) error {
					cfg := c.App.Metadata["config"].(*config.Config)
					db, err := bundb.Open(c.Context, cfg.Postgres.DSN)
					if err != nil {
						return err
					}
					defer db.Close()
					logger := observability.NewLogger(cfg.Observability.Environment, cfg.Observability.LogLevel)
					return dbmigrate.Up(c.Context, db, cfg.Postgres.DSN, logger)
				},
			},
			{
				Name:  "init",
				Usage: "create migration tables",
				Action: func(c *cli.Context) error {
					return withMigrators(c, func(migrators map[string]*migrate.Migrator) error {
						for moduleName, migrator := range migrators {
							fmt.Printf("Initializing migrations for module: %s\n", moduleName)
							if err := migrator.Init(c.Context); err != nil {
								fmt.Printf("Error initializing migrations for module %s: %v\n", moduleName, err)
								return err
							}
						}
						return nil
					})
				},
			},
			{
				Name:  "migrate",
				Usage: "migrate database",
				Action: func(c *cli.Context) error {
					return withMigrators(c, func(migrators map[string]*migrate.Migrator) error {
						for moduleName, migrator := range migrators {
							fmt.Printf("Running migrations for module: %s\n", moduleName)
							group, err := migrator.Migrate(c.Context)
							if err != nil {
								return err
							}
							if group.IsZero() {
								fmt.Printf("No new migrations to run for module: %s\n", moduleName)
							} else {
								fmt.Printf("Migrated module: %s to %s\n", moduleName, group)
							}
						}
						return nil
					})
				},
			},
			{
				Name:  "rollback",
				Usage: "rollback the last migration group",
				Action: func(c *cli.Context) error {
					return withMigrators(c, func(migrators map[string]*migrate.Migrator) error {
						for moduleName, migrator := range migrators {
							fmt.Printf("Rolling back migrations for module: %s\n", moduleName)
							group, err := migrator.Rollback(c.Context)
							if err != nil {
								return err
							}
							if group.IsZero() {
								fmt.Printf("No groups to roll back for module: %s\n", moduleName)
							} else {
								fmt.Printf("Rolled back module: %s to %s\n", moduleName, group)
							}
						}
						return nil
					})
				},
			},
			{
				Name:  "create_go",
				Usage: "create Go migration",
				Action: func(c *cli.Context) error {
					return withMigrators(c, func(migrators map[string]*migrate.Migrator) error {
						moduleName := c.Args().First() // Get module name from args
						migrator, ok := migrators[moduleName]
						if !ok {
							return fmt.Errorf("invalid module name: %s", moduleName)
						}

						name := strings.Join(c.Args().Tail(), "_")
						mf, err := migrator.CreateGoMigration(c.Context, name)
						if err != nil {
							return err
						}
						fmt.Printf("Created migration for module %s: %s (%s)\n", moduleName, mf.Name, mf.Path)
						return nil
					})
				},
			},
			{
				Name:  "create_sql",
				Usage: "create up and down SQL migrations",
				Action: func(c *cli.Context) error {
					return withMigrators(c, func(migrators map[string]*migrate.Migrator) error {
						moduleName := c.Args().First() // Get module name from args
						migrator, ok := migrators[moduleName]
						if !ok {
							return fmt.Errorf("invalid module name: %s", moduleName)
						}

						name := strings.Join(c.Args().Tail(), "_")
						files, err := migrator.CreateSQLMigrations(c.Context, name)
						if err != nil {
							return err
						}

						for _, mf := range files {
							fmt.Printf("Created migration for module %s: %s (%s)\n", moduleName, mf.Name, mf.Path)
						}

						return nil
					})
				},
			},
			{
				Name:  "status",
				Usage: "print migrations status",
				Action: func(c *cli.Context) error {
					return withMigrators(c, func(migrators map[string]*migrate.Migrator) error {
						for moduleName, migrator := range migrators {
							ms, err := migrator.MigrationsWithStatus(c.Context)
							if err != nil {
								return err
							}
							fmt.Printf("Migrations for module: %s\n", moduleName)
							fmt.Printf("  %s\n", ms)
							fmt.Printf("  Applied: %s\n", ms.Applied())
							fmt.Printf("  Unapplied: %s\n", ms.Unapplied())
						}
						return nil
					})
				},
			},
		},
	}
}
