package gamedomain

import (
	"strings"
	"time"
)

// Outcome is the three-valued result of one seat in a game.
type Outcome string

const (
	OutcomeWon  Outcome = "won"
	OutcomeLost Outcome = "lost"
	OutcomeTied Outcome = "tied"
)

// ParseOutcome maps the loose result strings found in replays and live results
// onto an Outcome. Anything unrecognized degrades to OutcomeTied.
func ParseOutcome(raw string) Outcome {
	o, _ := parseOutcome(raw)
	return o
}

// ParseExplicitOutcome is ParseOutcome that also reports whether raw named a result.
func ParseExplicitOutcome(raw string) (Outcome, bool) {
	return parseOutcome(raw)
}

func parseOutcome(raw string) (Outcome, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "won", "win", "winner":
		return OutcomeWon, true
	case "lost", "loss", "lose", "loser":
		return OutcomeLost, true
	case "tied", "tie", "draw":
		return OutcomeTied, true
	default:
		return OutcomeTied, false
	}
}

// Complement is the outcome the other seat of a two-seat game must have.
func (o Outcome) Complement() Outcome {
	switch o {
	case OutcomeWon:
		return OutcomeLost
	case OutcomeLost:
		return OutcomeWon
	default:
		return OutcomeTied
	}
}

// Rank encodes the outcome for the rating engine: lower is better, ties share a rank.
func (o Outcome) Rank() int {
	switch o {
	case OutcomeWon:
		return 0
	case OutcomeLost:
		return 2
	default:
		return 1
	}
}

// DeathReason is the closed set of ways a snake can be eliminated.
type DeathReason string

const (
	DeathWall          DeathReason = "wall"
	DeathSelfCollision DeathReason = "self_collision"
	DeathBodyCollision DeathReason = "body_collision"
	DeathHeadCollision DeathReason = "head_collision"
	DeathStarvation    DeathReason = "starvation"
	DeathOther         DeathReason = "other"
)

// ParseDeathReason returns nil for an empty reason (no death occurred).
func ParseDeathReason(raw string) *DeathReason {
	r := strings.ToLower(strings.TrimSpace(raw))
	if r == "" {
		return nil
	}
	var reason DeathReason
	switch r {
	case "wall", "wall_collision", "out_of_bounds":
		reason = DeathWall
	case "self", "self_collision":
		reason = DeathSelfCollision
	case "body", "body_collision", "collision", "snake_collision":
		reason = DeathBodyCollision
	case "head", "head_collision", "head_on":
		reason = DeathHeadCollision
	case "starvation", "starved":
		reason = DeathStarvation
	default:
		reason = DeathOther
	}
	return &reason
}

const (
	// StatusCompleted is the only lifecycle status this pipeline persists.
	StatusCompleted = "completed"

	// DefaultGameType tags games that carry no explicit game_type.
	DefaultGameType = "ladder"

	// PlayersPerGame is the seat count this pipeline assumes.
	PlayersPerGame = 2
)

// NormalizedParticipant is one seat of a parsed game.
type NormalizedParticipant struct {
	Seat        int
	ModelSlug   string
	DisplayName string
	Provider    string
	Score       int
	Outcome     Outcome
	// OutcomeExplicit is false when the source named no result and Outcome is the tied default.
	OutcomeExplicit bool
	DeathRound      *int
	DeathReason     *DeathReason
	Cost            float64
}

// NormalizedGame is the parser's output: everything persistence needs for one match.
type NormalizedGame struct {
	ID           string
	StartedAt    *time.Time
	EndedAt      *time.Time
	RoundsPlayed int
	BoardWidth   int
	BoardHeight  int
	FoodCount    int
	GameType     string
	ReplayPath   string
	TotalCost    float64
	Participants []NormalizedParticipant
}

// TotalScore is the combined score across all seats.
func (g *NormalizedGame) TotalScore() int {
	total := 0
	for _, p := range g.Participants {
		total += p.Score
	}
	return total
}

// LiveResult is what an active match runner hands to Record-live-result.
type LiveResult struct {
	MatchID        string             `json:"match_id"`
	SideAName      string             `json:"side_a_name"`
	SideBName      string             `json:"side_b_name"`
	ScoresBySide   map[string]int     `json:"scores_by_side"`
	OutcomesBySide map[string]string  `json:"outcomes_by_side"`
	ReplayPath     string             `json:"replay_path,omitempty"`
	CostBySide     map[string]float64 `json:"cost_by_side,omitempty"`
}

// Side keys used by LiveResult maps. Seat 0 is side A, seat 1 is side B.
const (
	SideA = "a"
	SideB = "b"
)
