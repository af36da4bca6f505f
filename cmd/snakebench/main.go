package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Black-And-White-Club/snakebench/app"
	gameservice "github.com/Black-And-White-Club/snakebench/app/modules/game/application"
	"github.com/Black-And-White-Club/snakebench/config"
	"github.com/urfave/cli/v2"
	"golang.org/x/time/rate"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cliApp := &cli.App{
		Name:  "snakebench",
		Usage: "ingest snake game replays and maintain model skill ratings",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Value: "config.yaml", Usage: "Path to the configuration file", EnvVars: []string{"SNAKEBENCH_CONFIG"}},
		},
		Commands: []*cli.Command{
			ingestCommand(),
			backfillCommand(),
			resetCommand(),
			leaderboardCommand(),
			serveCommand(),
		},
	}

	if err := cliApp.RunContext(ctx, os.Args); err != nil {
		log.Fatal(err)
	}
}

// withApp loads config, builds the application in the given mode and closes it after fn.
func withApp(c *cli.Context, mode app.Mode, fn func(*app.App) error) error {
	cfg, err := config.LoadConfig(c.String("config"))
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	application, err := app.NewApp(c.Context, cfg, mode)
	if err != nil {
		return err
	}
	if mode == app.ModeServe {
		return fn(application)
	}

	runErr := fn(application)
	closeCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := application.Close(closeCtx); err != nil && runErr == nil {
		return err
	}
	return runErr
}

func ingestCommand() *cli.Command {
	return &cli.Command{
		Name:      "ingest",
		Usage:     "ingest one replay file",
		ArgsUsage: "<replay.json>",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "force", Usage: "reapply aggregates and ratings even if already counted"},
		},
		Action: func(c *cli.Context) error {
			path := c.Args().First()
			if path == "" {
				return cli.Exit("a replay path is required", 2)
			}
			return withApp(c, app.ModeCLI, func(a *app.App) error {
				res, err := a.GameService().IngestReplayFile(c.Context, path, gameservice.IngestOptions{ForceRecompute: c.Bool("force")})
				if err != nil {
					return err
				}
				fmt.Printf("game %s: applied=%t existed=%t algorithm=%s fallback=%t changed=%t\n",
					res.GameID, res.Applied, res.ExistedBefore, res.Algorithm, res.FellBack, res.ContentChanged)
				return nil
			})
		},
	}
}

func backfillCommand() *cli.Command {
	return &cli.Command{
		Name:      "backfill",
		Usage:     "ingest a directory of replays in chronological order",
		ArgsUsage: "[dir]",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "since", Usage: `skip replays before this time ("2025-01-02", RFC3339, "3 days ago")`},
			&cli.BoolFlag{Name: "reset", Usage: "reset every rating to the baseline first"},
		},
		Action: func(c *cli.Context) error {
			since, err := gameservice.ParseSince(c.String("since"), time.Now())
			if err != nil {
				return cli.Exit(err.Error(), 2)
			}
			return withApp(c, app.ModeCLI, func(a *app.App) error {
				dir := c.Args().First()
				if dir == "" {
					dir = a.Config.Ingest.ReplayDir
				}
				if c.Bool("reset") {
					if err := a.GameService().ResetRatings(c.Context); err != nil {
						return err
					}
				}

				opts := gameservice.BackfillOptions{Since: since}
				if fps := a.Config.Backfill.FilesPerSecond; fps > 0 {
					opts.Limiter = rate.NewLimiter(rate.Limit(fps), 1)
				}
				report, err := a.GameService().Backfill(c.Context, dir, opts)
				if report != nil {
					fmt.Printf("backfill %s: total=%d ingested=%d skipped=%d failed=%d\n",
						dir, report.Total, report.Ingested, report.Skipped, len(report.Failed))
				}
				return err
			})
		},
	}
}

func resetCommand() *cli.Command {
	return &cli.Command{
		Name:  "reset-ratings",
		Usage: "return every model to the baseline rating and clear counters",
		Action: func(c *cli.Context) error {
			return withApp(c, app.ModeCLI, func(a *app.App) error {
				return a.GameService().ResetRatings(c.Context)
			})
		},
	}
}

func leaderboardCommand() *cli.Command {
	return &cli.Command{
		Name:  "leaderboard",
		Usage: "leaderboard exports",
		Subcommands: []*cli.Command{
			{
				Name:      "export",
				Usage:     "write the leaderboard as an Excel workbook",
				ArgsUsage: "<out.xlsx>",
				Action: func(c *cli.Context) error {
					out := c.Args().First()
					if out == "" {
						return cli.Exit("an output path is required", 2)
					}
					return withApp(c, app.ModeCLI, func(a *app.App) error {
						f, err := os.Create(out)
						if err != nil {
							return err
						}
						if err := a.LeaderboardService.ExportXLSX(c.Context, f); err != nil {
							_ = f.Close()
							return err
						}
						return f.Close()
					})
				},
			},
			{
				Name:      "chart",
				Usage:     "render one model's rating history as PNG",
				ArgsUsage: "<model-slug> <out.png>",
				Action: func(c *cli.Context) error {
					slug, out := c.Args().Get(0), c.Args().Get(1)
					if slug == "" || out == "" {
						return cli.Exit("a model slug and an output path are required", 2)
					}
					return withApp(c, app.ModeCLI, func(a *app.App) error {
						png, err := a.LeaderboardService.RatingChart(c.Context, slug)
						if err != nil {
							return err
						}
						return os.WriteFile(out, png, 0o644)
					})
				},
			},
		},
	}
}

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "consume live match results, work the retry queue and serve metrics",
		Action: func(c *cli.Context) error {
			return withApp(c, app.ModeServe, func(a *app.App) error {
				return a.Start(c.Context)
			})
		},
	}
}
