package parsers

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	gamedomain "github.com/Black-And-White-Club/snakebench/app/modules/game/domain"
	"github.com/stretchr/testify/require"
)

const fullReplay = `{
  "game": {
    "id": "g-123",
    "started_at": "2025-03-01T10:00:00Z",
    "ended_at": "2025-03-01T10:02:30.500000",
    "rounds_played": 15,
    "game_type": "arena",
    "board": {"width": 10, "height": 10, "num_apples": 5}
  },
  "players": {
    "1": {"name": "Beta", "model_id": "beta", "final_score": 3, "result": "lost",
          "death": {"round": 14, "reason": "wall"}, "totals": {"cost": 0.25}},
    "0": {"name": "Alpha", "model_id": "openai/alpha:free", "final_score": 10, "result": "won",
          "totals": {"cost": "0.5"}}
  },
  "totals": {"cost": 0.75}
}`

func TestReplayParser_Parse(t *testing.T) {
	game, err := NewReplayParser().Parse([]byte(fullReplay), "whatever.json")
	require.NoError(t, err)

	require.Equal(t, "g-123", game.ID)
	require.Equal(t, 15, game.RoundsPlayed)
	require.Equal(t, 10, game.BoardWidth)
	require.Equal(t, 10, game.BoardHeight)
	require.Equal(t, 5, game.FoodCount)
	require.Equal(t, "arena", game.GameType)
	require.InDelta(t, 0.75, game.TotalCost, 1e-9)
	require.True(t, time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC).Equal(*game.StartedAt))
	require.True(t, time.Date(2025, 3, 1, 10, 2, 30, 500000000, time.UTC).Equal(*game.EndedAt))
	require.Equal(t, 13, game.TotalScore())

	require.Len(t, game.Participants, 2)
	alpha, beta := game.Participants[0], game.Participants[1]
	require.Equal(t, 0, alpha.Seat)
	require.Equal(t, "openai/alpha:free", alpha.ModelSlug)
	require.Equal(t, "Alpha", alpha.DisplayName)
	require.Equal(t, "openai", alpha.Provider)
	require.Equal(t, gamedomain.OutcomeWon, alpha.Outcome)
	require.InDelta(t, 0.5, alpha.Cost, 1e-9)
	require.Nil(t, alpha.DeathRound)
	require.Nil(t, alpha.DeathReason)

	require.Equal(t, 1, beta.Seat)
	require.Equal(t, gamedomain.OutcomeLost, beta.Outcome)
	require.Equal(t, 14, *beta.DeathRound)
	require.Equal(t, gamedomain.DeathWall, *beta.DeathReason)
}

func TestReplayParser_MatchIDFallbacks(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		source  string
		wantID  string
		wantErr gamedomain.ParseErrorKind
	}{
		{name: "game id", body: `{"game":{"id":"a"},"metadata":{"game_id":"b"}}`, source: "snake_game_c.json", wantID: "a"},
		{name: "metadata id", body: `{"metadata":{"game_id":"b"}}`, source: "snake_game_c.json", wantID: "b"},
		{name: "filename", body: `{"players":{}}`, source: "/replays/snake_game_c-42.json", wantID: "c-42"},
		{name: "nothing", body: `{"players":{}}`, source: "/replays/match.json", wantErr: gamedomain.MissingIdentity},
		{name: "not json", body: `[1,2`, source: "snake_game_x.json", wantErr: gamedomain.Unreadable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			game, err := NewReplayParser().Parse([]byte(tt.body), tt.source)
			if tt.wantErr != "" {
				var perr *gamedomain.ParseError
				require.True(t, errors.As(err, &perr), "expected ParseError, got %v", err)
				require.Equal(t, tt.wantErr, perr.Kind)
				require.ErrorIs(t, err, gamedomain.ErrParse)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.wantID, game.ID)
		})
	}
}

func TestReplayParser_Defaults(t *testing.T) {
	body := `{"game":{"id":"sparse","started_at":"not a time"},
	          "players":{"0":{"name":"alpha"},"1":{"name":"beta","result":"tied","final_score":null}}}`
	game, err := NewReplayParser().Parse([]byte(body), "")
	require.NoError(t, err)

	require.Nil(t, game.StartedAt)
	require.Nil(t, game.EndedAt)
	require.Equal(t, gamedomain.DefaultGameType, game.GameType)
	require.Zero(t, game.TotalCost)
	require.Zero(t, game.RoundsPlayed)
	for _, p := range game.Participants {
		require.Equal(t, gamedomain.OutcomeTied, p.Outcome)
		require.Zero(t, p.Cost)
	}
}

func TestReplayParser_ReconcilesInconsistentOutcomes(t *testing.T) {
	body := `{"game":{"id":"x"},"players":{
	  "0":{"model_id":"alpha","final_score":2,"result":"won"},
	  "1":{"model_id":"beta","final_score":6,"result":"won"}}}`
	game, err := NewReplayParser().Parse([]byte(body), "")
	require.NoError(t, err)
	require.Equal(t, gamedomain.OutcomeLost, game.Participants[0].Outcome)
	require.Equal(t, gamedomain.OutcomeWon, game.Participants[1].Outcome)
}

func TestReplayParser_KeepsSingleRecordedResult(t *testing.T) {
	body := `{"game":{"id":"x"},"players":{
	  "0":{"model_id":"alpha","final_score":2,"result":"won"},
	  "1":{"model_id":"beta","final_score":5}}}`
	game, err := NewReplayParser().Parse([]byte(body), "")
	require.NoError(t, err)
	require.Equal(t, gamedomain.OutcomeWon, game.Participants[0].Outcome)
	require.Equal(t, gamedomain.OutcomeLost, game.Participants[1].Outcome)
}

func TestReplayParser_ParseFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "snake_game_from-file.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"players":{"0":{"name":"a"},"1":{"name":"b"}}}`), 0o644))

	game, err := NewReplayParser().ParseFile(path)
	require.NoError(t, err)
	require.Equal(t, "from-file", game.ID)
	require.Equal(t, path, game.ReplayPath)

	_, err = NewReplayParser().ParseFile(filepath.Join(dir, "missing.json"))
	var perr *gamedomain.ParseError
	require.True(t, errors.As(err, &perr))
	require.Equal(t, gamedomain.Unreadable, perr.Kind)
}

func TestReplayParser_StartTime(t *testing.T) {
	p := NewReplayParser()
	got := p.StartTime([]byte(`{"game":{"started_at":"2024-12-31 23:59:59"}}`))
	require.NotNil(t, got)
	require.True(t, time.Date(2024, 12, 31, 23, 59, 59, 0, time.UTC).Equal(*got))

	require.Nil(t, p.StartTime([]byte(`{"game":{}}`)))
	require.Nil(t, p.StartTime([]byte(`garbage`)))
}

func TestParseLiveResult(t *testing.T) {
	game, err := ParseLiveResult(gamedomain.LiveResult{
		MatchID:        "live-1",
		SideAName:      "alpha",
		SideBName:      "beta",
		ScoresBySide:   map[string]int{"a": 4, "b": 4},
		OutcomesBySide: map[string]string{"a": "tied", "b": "tied"},
		CostBySide:     map[string]float64{"a": 0.1, "b": 0.2},
	})
	require.NoError(t, err)
	require.Equal(t, "live-1", game.ID)
	require.Empty(t, game.ReplayPath)
	require.InDelta(t, 0.3, game.TotalCost, 1e-9)
	require.Equal(t, "alpha", game.Participants[0].ModelSlug)
	require.Equal(t, 1, game.Participants[1].Seat)
	require.Equal(t, gamedomain.OutcomeTied, game.Participants[1].Outcome)

	_, err = ParseLiveResult(gamedomain.LiveResult{SideAName: "alpha"})
	require.ErrorIs(t, err, gamedomain.ErrParse)
}
