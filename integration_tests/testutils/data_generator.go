package testutils

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/google/uuid"
)

// Seat is one side of a generated replay.
type Seat struct {
	Slug   string
	Score  int
	Result string
	Death  string
}

// Replay is a generated two-seat game.
type Replay struct {
	ID        string
	StartedAt time.Time
	Seats     [2]Seat
}

// TestDataGenerator builds replay fixtures from a seeded faker.
type TestDataGenerator struct {
	faker *gofakeit.Faker
	seed  int64
}

// NewTestDataGenerator creates a new test data generator with optional seed.
func NewTestDataGenerator(seed ...int64) *TestDataGenerator {
	s := time.Now().UnixNano()
	if len(seed) > 0 {
		s = seed[0]
	}
	return &TestDataGenerator{faker: gofakeit.New(uint64(s)), seed: s}
}

// ModelSlugs returns n distinct provider/model slugs.
func (g *TestDataGenerator) ModelSlugs(n int) []string {
	seen := make(map[string]bool, n)
	out := make([]string, 0, n)
	for len(out) < n {
		slug := fmt.Sprintf("%s/%s-%d", g.faker.Company(), g.faker.Adjective(), g.faker.Number(1, 99))
		if seen[slug] {
			continue
		}
		seen[slug] = true
		out = append(out, slug)
	}
	return out
}

// Game returns a decisive or tied game between a and b starting at startedAt.
func (g *TestDataGenerator) Game(a, b string, startedAt time.Time) Replay {
	sa, sb := g.faker.Number(0, 20), g.faker.Number(0, 20)
	r := Replay{ID: uuid.NewString(), StartedAt: startedAt.UTC().Truncate(time.Second)}
	deaths := []string{"wall", "self_collision", "body_collision", "head_collision", "starvation"}
	switch {
	case sa > sb:
		r.Seats = [2]Seat{{a, sa, "won", ""}, {b, sb, "lost", g.faker.RandomString(deaths)}}
	case sb > sa:
		r.Seats = [2]Seat{{a, sa, "lost", g.faker.RandomString(deaths)}, {b, sb, "won", ""}}
	default:
		r.Seats = [2]Seat{{a, sa, "tied", ""}, {b, sb, "tied", ""}}
	}
	return r
}

// WriteReplay writes r under dir in the match runner's file naming and returns the path.
func WriteReplay(dir string, r Replay) (string, error) {
	players := make(map[string]any, 2)
	for i, s := range r.Seats {
		p := map[string]any{"name": s.Slug, "model_id": s.Slug, "final_score": s.Score, "result": s.Result}
		if s.Death != "" {
			p["death"] = map[string]any{"round": 10, "reason": s.Death}
		}
		players[fmt.Sprint(i)] = p
	}
	doc := map[string]any{
		"game": map[string]any{
			"id":            r.ID,
			"started_at":    r.StartedAt.Format(time.RFC3339),
			"rounds_played": 10,
			"board":         map[string]any{"width": 10, "height": 10, "num_apples": 5},
		},
		"players": players,
	}
	data, err := json.Marshal(doc)
	if err != nil {
		return "", err
	}
	path := filepath.Join(dir, "snake_game_"+r.ID+".json")
	return path, os.WriteFile(path, data, 0o644)
}
