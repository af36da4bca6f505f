package gameservice

import (
	"context"
	"sort"
	"time"

	gamedomain "github.com/Black-And-White-Club/snakebench/app/modules/game/domain"
	"github.com/Black-And-White-Club/snakebench/app/modules/game/domain/rating"
	gamedb "github.com/Black-And-White-Club/snakebench/app/modules/game/infrastructure/repositories"
	"github.com/uptrace/bun"
)

// ------------------------
// Fake Game Repo
// ------------------------

// FakeGameRepo is an in-memory gamedb.Repository. Any XxxFunc that is set replaces the default.
type FakeGameRepo struct {
	trace []string

	models       map[int64]*gamedb.Model
	slugs        map[string]int64
	nextModelID  int64
	games        map[string]*gamedb.Game
	participants map[string]map[int]*gamedb.GameParticipant
	history      []*gamedb.RatingHistory

	UpsertModelFunc      func(ctx context.Context, db bun.IDB, slug, displayName, provider string) (int64, error)
	UpsertGameFunc       func(ctx context.Context, db bun.IDB, game *gamedb.Game) (bool, error)
	ApplyAggregatesFunc  func(ctx context.Context, db bun.IDB, gameID string, playedAt time.Time) error
	UpdateRatingsFunc    func(ctx context.Context, db bun.IDB, ratings []gamedb.ModelRating) error
	AcquireGameLockFunc  func(ctx context.Context, db bun.IDB, gameID string) error
	InsertGameIfAbsentFn func(ctx context.Context, db bun.IDB, game *gamedb.Game) (bool, error)
}

var _ gamedb.Repository = (*FakeGameRepo)(nil)

func NewFakeGameRepo() *FakeGameRepo {
	return &FakeGameRepo{
		trace:        []string{},
		models:       map[int64]*gamedb.Model{},
		slugs:        map[string]int64{},
		games:        map[string]*gamedb.Game{},
		participants: map[string]map[int]*gamedb.GameParticipant{},
	}
}

func (f *FakeGameRepo) record(step string) {
	f.trace = append(f.trace, step)
}

// Trace returns the sequence of method calls made to the fake.
func (f *FakeGameRepo) Trace() []string {
	out := make([]string, len(f.trace))
	copy(out, f.trace)
	return out
}

// snapshot deep-copies the store so a fake transaction can roll back.
func (f *FakeGameRepo) snapshot() func() {
	models := map[int64]gamedb.Model{}
	for id, m := range f.models {
		models[id] = *m
	}
	slugs := map[string]int64{}
	for k, v := range f.slugs {
		slugs[k] = v
	}
	games := map[string]gamedb.Game{}
	for id, g := range f.games {
		games[id] = *g
	}
	parts := map[string]map[int]gamedb.GameParticipant{}
	for id, seats := range f.participants {
		parts[id] = map[int]gamedb.GameParticipant{}
		for seat, p := range seats {
			parts[id][seat] = *p
		}
	}
	history := append([]*gamedb.RatingHistory(nil), f.history...)
	nextID := f.nextModelID

	return func() {
		f.models = map[int64]*gamedb.Model{}
		for id, m := range models {
			m := m
			f.models[id] = &m
		}
		f.slugs = slugs
		f.games = map[string]*gamedb.Game{}
		for id, g := range games {
			g := g
			f.games[id] = &g
		}
		f.participants = map[string]map[int]*gamedb.GameParticipant{}
		for id, seats := range parts {
			f.participants[id] = map[int]*gamedb.GameParticipant{}
			for seat, p := range seats {
				p := p
				f.participants[id][seat] = &p
			}
		}
		f.history = history
		f.nextModelID = nextID
	}
}

// txRunner rolls the fake back when fn fails, like a real transaction.
func (f *FakeGameRepo) txRunner(ctx context.Context, fn func(ctx context.Context, db bun.IDB) error) error {
	restore := f.snapshot()
	if err := fn(ctx, nil); err != nil {
		f.record("Rollback")
		restore()
		return err
	}
	f.record("Commit")
	return nil
}

// model returns a copy of the model with that slug, or nil.
func (f *FakeGameRepo) model(slug string) *gamedb.Model {
	id, ok := f.slugs[slug]
	if !ok {
		return nil
	}
	m := *f.models[id]
	return &m
}

// --- Repository Interface Implementation ---

func (f *FakeGameRepo) AcquireGameLock(ctx context.Context, db bun.IDB, gameID string) error {
	f.record("AcquireGameLock")
	if f.AcquireGameLockFunc != nil {
		return f.AcquireGameLockFunc(ctx, db, gameID)
	}
	return nil
}

func (f *FakeGameRepo) UpsertModel(ctx context.Context, db bun.IDB, slug, displayName, provider string) (int64, error) {
	f.record("UpsertModel")
	if f.UpsertModelFunc != nil {
		return f.UpsertModelFunc(ctx, db, slug, displayName, provider)
	}
	if id, ok := f.slugs[slug]; ok {
		f.models[id].DisplayName = displayName
		if provider != "" {
			f.models[id].Provider = provider
		}
		return id, nil
	}
	f.nextModelID++
	id := f.nextModelID
	f.slugs[slug] = id
	f.models[id] = &gamedb.Model{
		ID: id, Slug: slug, DisplayName: displayName, Provider: provider,
		Mu: rating.InitialMu, Sigma: rating.InitialSigma, Elo: rating.InitialElo,
		Exposed: rating.Exposed(rating.InitialMu, rating.InitialSigma), IsActive: true,
	}
	return id, nil
}

func (f *FakeGameRepo) GetGameState(ctx context.Context, db bun.IDB, gameID string) (*gamedb.GameState, error) {
	f.record("GetGameState")
	g, ok := f.games[gameID]
	if !ok {
		return nil, gamedb.ErrNotFound
	}
	return &gamedb.GameState{AggregatesApplied: g.AggregatesAppliedAt != nil, ContentHash: g.ContentHash}, nil
}

func (f *FakeGameRepo) UpsertGame(ctx context.Context, db bun.IDB, game *gamedb.Game) (bool, error) {
	f.record("UpsertGame")
	if f.UpsertGameFunc != nil {
		return f.UpsertGameFunc(ctx, db, game)
	}
	existing, ok := f.games[game.ID]
	row := *game
	if ok {
		row.AggregatesAppliedAt = existing.AggregatesAppliedAt
		if row.StartedAt == nil {
			row.StartedAt = existing.StartedAt
		}
	}
	f.games[game.ID] = &row
	return ok, nil
}

func (f *FakeGameRepo) InsertGameIfAbsent(ctx context.Context, db bun.IDB, game *gamedb.Game) (bool, error) {
	f.record("InsertGameIfAbsent")
	if f.InsertGameIfAbsentFn != nil {
		return f.InsertGameIfAbsentFn(ctx, db, game)
	}
	if _, ok := f.games[game.ID]; ok {
		return false, nil
	}
	row := *game
	f.games[game.ID] = &row
	return true, nil
}

func (f *FakeGameRepo) UpsertParticipant(ctx context.Context, db bun.IDB, p *gamedb.GameParticipant) error {
	f.record("UpsertParticipant")
	if f.participants[p.GameID] == nil {
		f.participants[p.GameID] = map[int]*gamedb.GameParticipant{}
	}
	row := *p
	f.participants[p.GameID][p.PlayerSlot] = &row
	return nil
}

func (f *FakeGameRepo) InsertParticipantIfAbsent(ctx context.Context, db bun.IDB, p *gamedb.GameParticipant) error {
	f.record("InsertParticipantIfAbsent")
	if f.participants[p.GameID] == nil {
		f.participants[p.GameID] = map[int]*gamedb.GameParticipant{}
	}
	if _, ok := f.participants[p.GameID][p.PlayerSlot]; !ok {
		row := *p
		f.participants[p.GameID][p.PlayerSlot] = &row
	}
	return nil
}

func (f *FakeGameRepo) GetParticipants(ctx context.Context, db bun.IDB, gameID string) ([]gamedb.GameParticipant, error) {
	f.record("GetParticipants")
	var out []gamedb.GameParticipant
	for _, p := range f.participants[gameID] {
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PlayerSlot < out[j].PlayerSlot })
	return out, nil
}

func (f *FakeGameRepo) ApplyAggregates(ctx context.Context, db bun.IDB, gameID string, playedAt time.Time) error {
	f.record("ApplyAggregates")
	if f.ApplyAggregatesFunc != nil {
		return f.ApplyAggregatesFunc(ctx, db, gameID, playedAt)
	}
	for _, p := range f.participants[gameID] {
		m := f.models[p.ModelID]
		switch p.Result {
		case "won":
			m.Wins++
		case "lost":
			m.Losses++
		default:
			m.Ties++
		}
		m.Apples += p.Score
		m.GamesPlayed++
		at := playedAt
		m.LastPlayedAt = &at
	}
	return nil
}

func (f *FakeGameRepo) GetModelsForUpdate(ctx context.Context, db bun.IDB, modelIDs []int64) ([]gamedb.Model, error) {
	f.record("GetModelsForUpdate")
	var out []gamedb.Model
	for _, id := range modelIDs {
		if m, ok := f.models[id]; ok {
			out = append(out, *m)
		}
	}
	return out, nil
}

func (f *FakeGameRepo) UpdateRatings(ctx context.Context, db bun.IDB, ratings []gamedb.ModelRating) error {
	f.record("UpdateRatings")
	if f.UpdateRatingsFunc != nil {
		return f.UpdateRatingsFunc(ctx, db, ratings)
	}
	for _, r := range ratings {
		m := f.models[r.ModelID]
		m.Mu, m.Sigma, m.Elo = r.Mu, r.Sigma, r.Elo
		m.Exposed = rating.Exposed(r.Mu, r.Sigma)
		m.Display = rating.Display(r.Mu, r.Sigma)
	}
	return nil
}

func (f *FakeGameRepo) InsertRatingHistory(ctx context.Context, db bun.IDB, rows []*gamedb.RatingHistory) error {
	f.record("InsertRatingHistory")
	f.history = append(f.history, rows...)
	return nil
}

func (f *FakeGameRepo) MarkAggregatesApplied(ctx context.Context, db bun.IDB, gameID string, at time.Time) error {
	f.record("MarkAggregatesApplied")
	t := at
	f.games[gameID].AggregatesAppliedAt = &t
	return nil
}

func (f *FakeGameRepo) ResetRatings(ctx context.Context, db bun.IDB) error {
	f.record("ResetRatings")
	for _, m := range f.models {
		m.Mu, m.Sigma, m.Elo = rating.InitialMu, rating.InitialSigma, rating.InitialElo
		m.Exposed = rating.Exposed(m.Mu, m.Sigma)
		m.Wins, m.Losses, m.Ties, m.GamesPlayed, m.Apples = 0, 0, 0, 0, 0
		m.LastPlayedAt = nil
	}
	for _, g := range f.games {
		g.AggregatesAppliedAt = nil
	}
	f.history = nil
	return nil
}

func (f *FakeGameRepo) ListModels(ctx context.Context, db bun.IDB) ([]gamedb.Model, error) {
	f.record("ListModels")
	var out []gamedb.Model
	for _, m := range f.models {
		out = append(out, *m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *FakeGameRepo) GetRatingHistory(ctx context.Context, db bun.IDB, modelIDs []int64) ([]gamedb.RatingHistory, error) {
	f.record("GetRatingHistory")
	want := map[int64]bool{}
	for _, id := range modelIDs {
		want[id] = true
	}
	var out []gamedb.RatingHistory
	for _, h := range f.history {
		if want[h.ModelID] {
			out = append(out, *h)
		}
	}
	return out, nil
}

// ------------------------
// Other fakes
// ------------------------

type FakeCache struct{ invalidations int }

func (c *FakeCache) Invalidate(context.Context) error {
	c.invalidations++
	return nil
}

type FakeRetryQueue struct {
	paths []string
	err   error
}

func (q *FakeRetryQueue) EnqueueReplayIngest(_ context.Context, path string) error {
	q.paths = append(q.paths, path)
	return q.err
}

// failingAlgorithm always errors, standing in for a numerically broken primary.
type failingAlgorithm struct{ err error }

func (a failingAlgorithm) Name() string { return "broken" }

func (a failingAlgorithm) Rate([]rating.Participant) ([]rating.Result, error) {
	return nil, &gamedomain.RatingComputationError{Algorithm: a.Name(), Err: a.err}
}
