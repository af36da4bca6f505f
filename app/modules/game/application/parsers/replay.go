package parsers

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strconv"
	"strings"
	"time"

	gamedomain "github.com/Black-And-White-Club/snakebench/app/modules/game/domain"
	"github.com/samber/lo"
)

// unknownModel stands in for a seat that names no model at all.
const unknownModel = "unknown"

// replayFilePattern is how the match runner names archived replays.
var replayFilePattern = regexp.MustCompile(`^snake_game_(.+)\.json$`)

// replayDocument mirrors the archived replay JSON. Every field is optional.
type replayDocument struct {
	Game struct {
		ID           string      `json:"id"`
		StartedAt    string      `json:"started_at"`
		EndedAt      string      `json:"ended_at"`
		RoundsPlayed flexInt     `json:"rounds_played"`
		GameType     string      `json:"game_type"`
		Board        replayBoard `json:"board"`
	} `json:"game"`
	Metadata struct {
		GameID   string `json:"game_id"`
		GameType string `json:"game_type"`
	} `json:"metadata"`
	Players map[string]replayPlayer `json:"players"`
	Totals  struct {
		Cost flexFloat `json:"cost"`
	} `json:"totals"`
}

type replayBoard struct {
	Width     flexInt `json:"width"`
	Height    flexInt `json:"height"`
	NumApples flexInt `json:"num_apples"`
}

type replayPlayer struct {
	Name       string    `json:"name"`
	ModelID    string    `json:"model_id"`
	Provider   string    `json:"provider"`
	FinalScore flexInt   `json:"final_score"`
	Result     string    `json:"result"`
	Death      *struct {
		Round  *flexInt `json:"round"`
		Reason string   `json:"reason"`
	} `json:"death"`
	Totals struct {
		Cost flexFloat `json:"cost"`
	} `json:"totals"`
}

// ReplayParser turns archived replay files into normalized games.
type ReplayParser struct{}

// NewReplayParser creates a new replay parser
func NewReplayParser() *ReplayParser {
	return &ReplayParser{}
}

// ParseFile reads and parses one replay file.
func (p *ReplayParser) ParseFile(path string) (*gamedomain.NormalizedGame, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &gamedomain.ParseError{Kind: gamedomain.Unreadable, Source: path, Err: err}
	}
	game, err := p.Parse(data, path)
	if err != nil {
		return nil, err
	}
	game.ReplayPath = path
	return game, nil
}

// Parse parses replay bytes. source is only used to derive a fallback match id and for errors.
func (p *ReplayParser) Parse(data []byte, source string) (*gamedomain.NormalizedGame, error) {
	var doc replayDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, &gamedomain.ParseError{Kind: gamedomain.Unreadable, Source: source, Err: err}
	}

	id := matchID(doc, source)
	if id == "" {
		return nil, &gamedomain.ParseError{Kind: gamedomain.MissingIdentity, Source: source}
	}

	game := &gamedomain.NormalizedGame{
		ID:           id,
		StartedAt:    parseTimestamp(doc.Game.StartedAt),
		EndedAt:      parseTimestamp(doc.Game.EndedAt),
		RoundsPlayed: int(doc.Game.RoundsPlayed),
		BoardWidth:   int(doc.Game.Board.Width),
		BoardHeight:  int(doc.Game.Board.Height),
		FoodCount:    int(doc.Game.Board.NumApples),
		GameType:     firstNonEmpty(doc.Game.GameType, doc.Metadata.GameType, gamedomain.DefaultGameType),
		TotalCost:    float64(doc.Totals.Cost),
		Participants: participantsFrom(doc.Players),
	}
	if game.TotalCost == 0 {
		game.TotalCost = lo.SumBy(game.Participants, func(p gamedomain.NormalizedParticipant) float64 { return p.Cost })
	}
	gamedomain.ReconcileOutcomes(game.Participants)
	return game, nil
}

// StartTime returns only the embedded start time of a replay, or nil if it has none.
// Used to order backfill input without building full games.
func (p *ReplayParser) StartTime(data []byte) *time.Time {
	var doc struct {
		Game struct {
			StartedAt string `json:"started_at"`
		} `json:"game"`
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil
	}
	return parseTimestamp(doc.Game.StartedAt)
}

func matchID(doc replayDocument, source string) string {
	if id := strings.TrimSpace(doc.Game.ID); id != "" {
		return id
	}
	if id := strings.TrimSpace(doc.Metadata.GameID); id != "" {
		return id
	}
	if source == "" {
		return ""
	}
	if m := replayFilePattern.FindStringSubmatch(filepath.Base(source)); m != nil {
		return m[1]
	}
	return ""
}

// participantsFrom orders players by numeric seat key. Non-numeric keys fall back to
// their sorted position so a malformed map still yields stable seats.
func participantsFrom(players map[string]replayPlayer) []gamedomain.NormalizedParticipant {
	keys := lo.Keys(players)
	numeric := lo.EveryBy(keys, func(k string) bool {
		_, err := strconv.Atoi(strings.TrimSpace(k))
		return err == nil
	})
	slices.SortFunc(keys, func(a, b string) int {
		if numeric {
			x, _ := strconv.Atoi(strings.TrimSpace(a))
			y, _ := strconv.Atoi(strings.TrimSpace(b))
			return x - y
		}
		return strings.Compare(a, b)
	})

	out := make([]gamedomain.NormalizedParticipant, 0, len(keys))
	for i, key := range keys {
		pl := players[key]
		seat := i
		if numeric {
			seat, _ = strconv.Atoi(strings.TrimSpace(key))
		}
		slug := strings.TrimSpace(firstNonEmpty(pl.ModelID, pl.Name, unknownModel))
		np := gamedomain.NormalizedParticipant{
			Seat:        seat,
			ModelSlug:   slug,
			DisplayName: firstNonEmpty(strings.TrimSpace(pl.Name), slug),
			Provider:    firstNonEmpty(pl.Provider, gamedomain.ProviderFromSlug(slug)),
			Score:       int(pl.FinalScore),
			Cost:        float64(pl.Totals.Cost),
		}
		np.Outcome, np.OutcomeExplicit = gamedomain.ParseExplicitOutcome(pl.Result)
		if pl.Death != nil {
			if pl.Death.Round != nil {
				r := int(*pl.Death.Round)
				np.DeathRound = &r
			}
			np.DeathReason = gamedomain.ParseDeathReason(pl.Death.Reason)
		}
		out = append(out, np)
	}
	return out
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

// flexInt accepts a JSON number, a numeric string, or null.
type flexInt int

func (f *flexInt) UnmarshalJSON(b []byte) error {
	v, err := flexNumber(b)
	if err != nil {
		return fmt.Errorf("int field: %w", err)
	}
	*f = flexInt(int(v))
	return nil
}

// flexFloat accepts a JSON number, a numeric string, or null.
type flexFloat float64

func (f *flexFloat) UnmarshalJSON(b []byte) error {
	v, err := flexNumber(b)
	if err != nil {
		return fmt.Errorf("float field: %w", err)
	}
	*f = flexFloat(v)
	return nil
}

func flexNumber(b []byte) (float64, error) {
	s := strings.TrimSpace(string(b))
	if s == "null" || s == `""` {
		return 0, nil
	}
	if strings.HasPrefix(s, `"`) {
		// Quoted junk degrades to zero like a missing field.
		v, err := strconv.ParseFloat(strings.Trim(s, `"`), 64)
		if err != nil {
			return 0, nil
		}
		return v, nil
	}
	return strconv.ParseFloat(s, 64)
}
