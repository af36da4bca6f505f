package ingest_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/Black-And-White-Club/snakebench/app"
	gameservice "github.com/Black-And-White-Club/snakebench/app/modules/game/application"
	gamedomain "github.com/Black-And-White-Club/snakebench/app/modules/game/domain"
	gamedb "github.com/Black-And-White-Club/snakebench/app/modules/game/infrastructure/repositories"
	"github.com/Black-And-White-Club/snakebench/integration_tests/testutils"
	"github.com/stretchr/testify/require"
)

func setup(t *testing.T) (*testutils.TestEnvironment, *app.App) {
	t.Helper()
	env := testutils.NewTestEnvironment(t)
	a, err := app.NewApp(env.Ctx, env.Config, app.ModeCLI)
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close(context.Background()) })
	return env, a
}

func modelsBySlug(t *testing.T, env *testutils.TestEnvironment) map[string]gamedb.Model {
	t.Helper()
	models, err := gamedb.NewRepository(env.DB).ListModels(env.Ctx, nil)
	require.NoError(t, err)
	out := make(map[string]gamedb.Model, len(models))
	for _, m := range models {
		out[m.Slug] = m
	}
	return out
}

func TestReplayIsCountedOnce(t *testing.T) {
	env, a := setup(t)
	gen := testutils.NewTestDataGenerator(7)
	slugs := gen.ModelSlugs(2)
	replay := gen.Game(slugs[0], slugs[1], time.Now().Add(-time.Hour))
	path, err := testutils.WriteReplay(env.Config.Ingest.ReplayDir, replay)
	require.NoError(t, err)

	first, err := a.GameService().IngestReplayFile(env.Ctx, path, gameservice.IngestOptions{})
	require.NoError(t, err)
	require.True(t, first.Applied)
	before := modelsBySlug(t, env)

	second, err := a.GameService().IngestReplayFile(env.Ctx, path, gameservice.IngestOptions{})
	require.NoError(t, err)
	require.False(t, second.Applied)
	require.True(t, second.ExistedBefore)

	after := modelsBySlug(t, env)
	for _, slug := range slugs {
		require.Equal(t, 1, after[slug].GamesPlayed)
		require.Equal(t, before[slug].Mu, after[slug].Mu)
		require.Equal(t, before[slug].Sigma, after[slug].Sigma)
	}
}

func TestConcurrentIngestOfSameReplayCountsOnce(t *testing.T) {
	env, a := setup(t)
	gen := testutils.NewTestDataGenerator(11)
	slugs := gen.ModelSlugs(2)
	path, err := testutils.WriteReplay(env.Config.Ingest.ReplayDir, gen.Game(slugs[0], slugs[1], time.Now()))
	require.NoError(t, err)

	const workers = 6
	var wg sync.WaitGroup
	errs := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := a.GameService().IngestReplayFile(env.Ctx, path, gameservice.IngestOptions{})
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	models := modelsBySlug(t, env)
	for _, slug := range slugs {
		require.Equal(t, 1, models[slug].GamesPlayed, slug)
	}
}

func TestBackfillMatchesSequentialIngest(t *testing.T) {
	env, a := setup(t)
	gen := testutils.NewTestDataGenerator(23)
	slugs := gen.ModelSlugs(4)
	start := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	var paths []string
	for i := 0; i < 12; i++ {
		x, y := slugs[i%4], slugs[(i+1+i/4)%4]
		if x == y {
			y = slugs[(i+2)%4]
		}
		p, err := testutils.WriteReplay(env.Config.Ingest.ReplayDir, gen.Game(x, y, start.Add(time.Duration(i)*time.Minute)))
		require.NoError(t, err)
		paths = append(paths, p)
	}

	for _, p := range paths {
		_, err := a.GameService().IngestReplayFile(env.Ctx, p, gameservice.IngestOptions{})
		require.NoError(t, err)
	}
	sequential := modelsBySlug(t, env)

	require.NoError(t, a.GameService().ResetRatings(env.Ctx))
	report, err := a.GameService().Backfill(env.Ctx, env.Config.Ingest.ReplayDir, gameservice.BackfillOptions{})
	require.NoError(t, err)
	require.Equal(t, len(paths), report.Ingested)
	require.Empty(t, report.Failed)

	backfilled := modelsBySlug(t, env)
	var games, wins, losses, ties int
	for slug, m := range backfilled {
		require.InDelta(t, sequential[slug].Mu, m.Mu, 1e-9, slug)
		require.InDelta(t, sequential[slug].Sigma, m.Sigma, 1e-9, slug)
		require.Equal(t, sequential[slug].GamesPlayed, m.GamesPlayed, slug)
		games += m.GamesPlayed
		wins += m.Wins
		losses += m.Losses
		ties += m.Ties
	}
	require.Equal(t, 2*len(paths), games)
	require.Equal(t, wins, losses)
	require.Equal(t, games, wins+losses+ties)
}

func TestLiveInsertThenReplayCountsOnce(t *testing.T) {
	env, a := setup(t)
	gen := testutils.NewTestDataGenerator(31)
	slugs := gen.ModelSlugs(2)
	replay := gen.Game(slugs[0], slugs[1], time.Now())

	a.GameService().RecordLiveResult(env.Ctx, gamedomain.LiveResult{
		MatchID:        replay.ID,
		SideAName:      slugs[0],
		SideBName:      slugs[1],
		ScoresBySide:   map[string]int{gamedomain.SideA: replay.Seats[0].Score, gamedomain.SideB: replay.Seats[1].Score},
		OutcomesBySide: map[string]string{gamedomain.SideA: replay.Seats[0].Result, gamedomain.SideB: replay.Seats[1].Result},
	})
	require.Equal(t, 0, modelsBySlug(t, env)[slugs[0]].GamesPlayed)

	path, err := testutils.WriteReplay(env.Config.Ingest.ReplayDir, replay)
	require.NoError(t, err)
	res, err := a.GameService().IngestReplayFile(env.Ctx, path, gameservice.IngestOptions{})
	require.NoError(t, err)
	require.True(t, res.ExistedBefore)
	require.True(t, res.Applied)

	for _, slug := range slugs {
		require.Equal(t, 1, modelsBySlug(t, env)[slug].GamesPlayed)
	}

	var history []gamedb.RatingHistory
	require.NoError(t, env.DB.NewSelect().Model(&history).Where("game_id = ?", replay.ID).Scan(env.Ctx))
	require.Len(t, history, 2)
}

func TestLeaderboardReadsIngestedModels(t *testing.T) {
	env, a := setup(t)
	gen := testutils.NewTestDataGenerator(41)
	slugs := gen.ModelSlugs(3)
	for i := 0; i < 3; i++ {
		p, err := testutils.WriteReplay(env.Config.Ingest.ReplayDir, gen.Game(slugs[i], slugs[(i+1)%3], time.Now().Add(time.Duration(i)*time.Minute)))
		require.NoError(t, err)
		_, err = a.GameService().IngestReplayFile(env.Ctx, p, gameservice.IngestOptions{})
		require.NoError(t, err)
	}

	entries, err := a.LeaderboardService.GetLeaderboard(env.Ctx)
	require.NoError(t, err)
	require.Len(t, entries, 3)
	for i := 1; i < len(entries); i++ {
		require.GreaterOrEqual(t, entries[i-1].Exposed, entries[i].Exposed)
	}

	png, err := a.LeaderboardService.RatingChart(env.Ctx, slugs[0])
	require.NoError(t, err)
	require.NotEmpty(t, png)
}
