// Package leaderboarddomain builds the public leaderboard from stored model rows.
package leaderboarddomain

import (
	"cmp"
	"slices"
	"time"

	gamedomain "github.com/Black-And-White-Club/snakebench/app/modules/game/domain"
	gamedb "github.com/Black-And-White-Club/snakebench/app/modules/game/infrastructure/repositories"
	"github.com/samber/lo"
)

// Entry is one leaderboard row. Variants of the same model (e.g. ":free") share a row.
type Entry struct {
	Rank         int        `json:"rank"`
	Slug         string     `json:"slug"`
	DisplayName  string     `json:"display_name"`
	Provider     string     `json:"provider"`
	GamesPlayed  int        `json:"games_played"`
	Wins         int        `json:"wins"`
	Losses       int        `json:"losses"`
	Ties         int        `json:"ties"`
	Apples       int        `json:"apples"`
	Mu           float64    `json:"mu"`
	Sigma        float64    `json:"sigma"`
	Exposed      float64    `json:"exposed"`
	Display      float64    `json:"display"`
	Elo          float64    `json:"elo"`
	LastPlayedAt *time.Time `json:"last_played_at,omitempty"`
	ModelIDs     []int64    `json:"model_ids"`
}

// WinRate is wins over games played, zero for an unplayed model.
func (e Entry) WinRate() float64 {
	if e.GamesPlayed == 0 {
		return 0
	}
	return float64(e.Wins) / float64(e.GamesPlayed)
}

// Build groups active, played models by normalized slug. Counters are summed; skill columns come
// from the variant with the most games. Rows are ordered by exposed rating, best first.
func Build(models []gamedb.Model) []Entry {
	played := lo.Filter(models, func(m gamedb.Model, _ int) bool {
		return m.IsActive && m.GamesPlayed > 0
	})
	groups := lo.GroupBy(played, func(m gamedb.Model) string {
		return gamedomain.NormalizeSlug(m.Slug)
	})

	entries := make([]Entry, 0, len(groups))
	for slug, variants := range groups {
		entries = append(entries, merge(slug, variants))
	}

	slices.SortFunc(entries, func(a, b Entry) int {
		if c := cmp.Compare(b.Exposed, a.Exposed); c != 0 {
			return c
		}
		if c := cmp.Compare(b.GamesPlayed, a.GamesPlayed); c != 0 {
			return c
		}
		return cmp.Compare(a.Slug, b.Slug)
	})
	for i := range entries {
		entries[i].Rank = i + 1
	}
	return entries
}

func merge(slug string, variants []gamedb.Model) Entry {
	primary := lo.MaxBy(variants, func(a, b gamedb.Model) bool {
		if a.GamesPlayed != b.GamesPlayed {
			return a.GamesPlayed > b.GamesPlayed
		}
		return a.ID < b.ID
	})

	e := Entry{
		Slug:        slug,
		DisplayName: primary.DisplayName,
		Provider:    primary.Provider,
		Mu:          primary.Mu,
		Sigma:       primary.Sigma,
		Exposed:     primary.Exposed,
		Display:     primary.Display,
		Elo:         primary.Elo,
	}
	for _, m := range variants {
		e.GamesPlayed += m.GamesPlayed
		e.Wins += m.Wins
		e.Losses += m.Losses
		e.Ties += m.Ties
		e.Apples += m.Apples
		e.ModelIDs = append(e.ModelIDs, m.ID)
		if m.LastPlayedAt != nil && (e.LastPlayedAt == nil || m.LastPlayedAt.After(*e.LastPlayedAt)) {
			t := *m.LastPlayedAt
			e.LastPlayedAt = &t
		}
	}
	slices.Sort(e.ModelIDs)
	return e
}
