package leaderboardservice

import (
	"context"

	gamedb "github.com/Black-And-White-Club/snakebench/app/modules/game/infrastructure/repositories"
	leaderboarddomain "github.com/Black-And-White-Club/snakebench/app/modules/leaderboard/domain"
	"github.com/uptrace/bun"
)

type FakeModelReader struct {
	models  []gamedb.Model
	history []gamedb.RatingHistory
	err     error
	lists   int
}

func (f *FakeModelReader) ListModels(context.Context, bun.IDB) ([]gamedb.Model, error) {
	f.lists++
	return f.models, f.err
}

func (f *FakeModelReader) GetRatingHistory(_ context.Context, _ bun.IDB, ids []int64) ([]gamedb.RatingHistory, error) {
	want := map[int64]bool{}
	for _, id := range ids {
		want[id] = true
	}
	var out []gamedb.RatingHistory
	for _, h := range f.history {
		if want[h.ModelID] {
			out = append(out, h)
		}
	}
	return out, f.err
}

type FakeCache struct {
	entries []leaderboarddomain.Entry
	gen     int64
	ok      bool
	getErr  error
	sets    int
}

func (c *FakeCache) Get(context.Context) ([]leaderboarddomain.Entry, int64, bool, error) {
	return c.entries, c.gen, c.ok, c.getErr
}

func (c *FakeCache) Set(_ context.Context, gen int64, entries []leaderboarddomain.Entry) error {
	c.sets++
	if gen == c.gen {
		c.entries, c.ok = entries, true
	}
	return nil
}

func (c *FakeCache) Invalidate(context.Context) error {
	c.gen++
	c.entries, c.ok = nil, false
	return nil
}
