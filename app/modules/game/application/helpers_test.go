package gameservice

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/Black-And-White-Club/snakebench/app/modules/game/domain/rating"
	"github.com/Black-And-White-Club/snakebench/app/shared/observability"
	"go.opentelemetry.io/otel/trace/noop"
)

var fixedNow = time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

func newTestService(repo *FakeGameRepo, engine *rating.Engine, opts ...Option) *GameService {
	opts = append([]Option{WithClock(func() time.Time { return fixedNow })}, opts...)
	s := NewGameService(
		repo,
		engine,
		observability.NoOpLogger,
		observability.NewNoop(),
		noop.NewTracerProvider().Tracer("test"),
		nil,
		opts...,
	)
	s.inTx = repo.txRunner
	return s
}

type seat struct {
	slug   string
	score  int
	result string
}

// writeReplay writes a replay JSON file and returns its path. A zero startedAt omits the field.
func writeReplay(t *testing.T, dir, name, id string, startedAt time.Time, a, b seat) string {
	t.Helper()
	game := map[string]any{
		"rounds_played": 15,
		"board":         map[string]any{"width": 10, "height": 10, "num_apples": 5},
	}
	if id != "" {
		game["id"] = id
	}
	if !startedAt.IsZero() {
		game["started_at"] = startedAt.Format(time.RFC3339)
	}
	doc := map[string]any{
		"game": game,
		"players": map[string]any{
			"0": map[string]any{"name": a.slug, "model_id": a.slug, "final_score": a.score, "result": a.result},
			"1": map[string]any{"name": b.slug, "model_id": b.slug, "final_score": b.score, "result": b.result},
		},
	}
	data, err := json.Marshal(doc)
	if err != nil {
		t.Fatalf("marshal replay: %v", err)
	}
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write replay: %v", err)
	}
	return path
}

func win(slug string, score int) seat  { return seat{slug: slug, score: score, result: "won"} }
func lose(slug string, score int) seat { return seat{slug: slug, score: score, result: "lost"} }
func tie(slug string, score int) seat  { return seat{slug: slug, score: score, result: "tied"} }
