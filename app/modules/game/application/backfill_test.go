package gameservice

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	gamedb "github.com/Black-And-White-Club/snakebench/app/modules/game/infrastructure/repositories"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"
)

var t0 = time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)

// writeSeasonOutOfOrder writes three games whose file names sort opposite to their start times.
func writeSeasonOutOfOrder(t *testing.T, dir string) []string {
	t.Helper()
	return []string{
		writeReplay(t, dir, "snake_game_c.json", "g1", t0, win("alpha", 5), lose("beta", 2)),
		writeReplay(t, dir, "snake_game_b.json", "g2", t0.Add(time.Hour), win("beta", 4), lose("gamma", 1)),
		writeReplay(t, dir, "snake_game_a.json", "g3", t0.Add(2*time.Hour), win("gamma", 7), lose("alpha", 3)),
	}
}

func ratingsBySlug(repo *FakeGameRepo) map[string]gamedb.Model {
	out := map[string]gamedb.Model{}
	for _, m := range repo.models {
		m := *m
		m.LastPlayedAt = nil
		out[m.Slug] = m
	}
	return out
}

func TestBackfill_ChronologicalAndDeterministic(t *testing.T) {
	dir := t.TempDir()
	paths := writeSeasonOutOfOrder(t, dir)
	ctx := context.Background()

	backfilled := NewFakeGameRepo()
	report, err := newTestService(backfilled, nil).Backfill(ctx, dir, BackfillOptions{})
	require.NoError(t, err)
	require.Equal(t, 3, report.Total)
	require.Equal(t, 3, report.Ingested)
	require.Empty(t, report.Failed)

	manual := NewFakeGameRepo()
	svc := newTestService(manual, nil)
	for _, p := range paths {
		_, err := svc.IngestReplayFile(ctx, p, IngestOptions{})
		require.NoError(t, err)
	}

	require.Equal(t, ratingsBySlug(manual), ratingsBySlug(backfilled))

	var order []string
	for _, h := range backfilled.history {
		if len(order) == 0 || order[len(order)-1] != h.GameID {
			order = append(order, h.GameID)
		}
	}
	require.Equal(t, []string{"g1", "g2", "g3"}, order)

	again := NewFakeGameRepo()
	_, err = newTestService(again, nil).Backfill(ctx, dir, BackfillOptions{})
	require.NoError(t, err)
	require.Equal(t, ratingsBySlug(backfilled), ratingsBySlug(again))
}

func TestBackfill_FallsBackToModificationTime(t *testing.T) {
	dir := t.TempDir()
	older := writeReplay(t, dir, "z.json", "old", time.Time{}, win("alpha", 1), lose("beta", 0))
	newer := writeReplay(t, dir, "a.json", "new", time.Time{}, win("beta", 1), lose("alpha", 0))
	require.NoError(t, os.Chtimes(older, t0, t0))
	require.NoError(t, os.Chtimes(newer, t0.Add(time.Minute), t0.Add(time.Minute)))

	svc := newTestService(NewFakeGameRepo(), nil)
	files, err := svc.listReplays(dir)
	require.NoError(t, err)
	require.Len(t, files, 2)
	require.Equal(t, older, files[0].path)
	require.False(t, files[0].embedded)
}

func TestBackfill_CorruptFileIsLoggedOnceAndSkipped(t *testing.T) {
	dir := t.TempDir()
	writeSeasonOutOfOrder(t, dir)
	corrupt := filepath.Join(dir, "snake_game_broken.json")
	require.NoError(t, os.WriteFile(corrupt, []byte(`{"game": {"id": `), 0o644))
	// Non-JSON files are ignored.
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("hi"), 0o644))

	var buf bytes.Buffer
	repo := NewFakeGameRepo()
	svc := newTestService(repo, nil)
	svc.logger = slog.New(slog.NewJSONHandler(&buf, nil))

	report, err := svc.Backfill(context.Background(), dir, BackfillOptions{})
	require.NoError(t, err)
	require.Equal(t, 4, report.Total)
	require.Equal(t, 3, report.Ingested)
	require.Len(t, report.Failed, 1)
	require.Equal(t, corrupt, report.Failed[0].Path)
	require.Len(t, repo.games, 3)

	var errorLines []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		var rec map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &rec))
		if rec["level"] == "ERROR" {
			errorLines = append(errorLines, rec)
		}
	}
	require.Len(t, errorLines, 1)
	require.Equal(t, "backfill file failed", errorLines[0]["msg"])
	require.Equal(t, corrupt, errorLines[0]["file"])
	require.NotEmpty(t, errorLines[0]["error"])
}

func TestBackfill_SinceSkipsOlderFiles(t *testing.T) {
	dir := t.TempDir()
	writeSeasonOutOfOrder(t, dir)
	repo := NewFakeGameRepo()

	report, err := newTestService(repo, nil).Backfill(context.Background(), dir, BackfillOptions{
		Since:   t0.Add(30 * time.Minute),
		Limiter: rate.NewLimiter(rate.Inf, 1),
	})
	require.NoError(t, err)
	require.Equal(t, 1, report.Skipped)
	require.Equal(t, 2, report.Ingested)
	require.NotContains(t, repo.games, "g1")
}

func TestBackfill_StopsWhenCancelled(t *testing.T) {
	dir := t.TempDir()
	writeSeasonOutOfOrder(t, dir)
	repo := NewFakeGameRepo()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	report, err := newTestService(repo, nil).Backfill(ctx, dir, BackfillOptions{})
	require.ErrorIs(t, err, context.Canceled)
	require.NotNil(t, report)
	require.Zero(t, report.Ingested)
	require.Empty(t, repo.games)
}

func TestBackfill_MissingDirectory(t *testing.T) {
	_, err := newTestService(NewFakeGameRepo(), nil).Backfill(context.Background(), filepath.Join(t.TempDir(), "nope"), BackfillOptions{})
	require.Error(t, err)
}

func TestParseSince(t *testing.T) {
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	tests := []struct {
		expr    string
		want    time.Time
		wantErr bool
	}{
		{expr: "", want: time.Time{}},
		{expr: "2025-01-31", want: time.Date(2025, 1, 31, 0, 0, 0, 0, time.UTC)},
		{expr: "2025-01-31T08:30:00Z", want: time.Date(2025, 1, 31, 8, 30, 0, 0, time.UTC)},
		{expr: "3 days ago", want: now.AddDate(0, 0, -3)},
		{expr: "qwerty", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			got, err := ParseSince(tt.expr, now)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.True(t, tt.want.Equal(got), "got %v want %v", got, tt.want)
		})
	}
}
