package gamedomain

import (
	"errors"
	"testing"
)

func TestParseOutcome(t *testing.T) {
	cases := map[string]Outcome{
		"won":   OutcomeWon,
		"WIN":   OutcomeWon,
		"lost":  OutcomeLost,
		" loss": OutcomeLost,
		"tied":  OutcomeTied,
		"":      OutcomeTied,
		"draw?": OutcomeTied,
	}
	for in, want := range cases {
		if got := ParseOutcome(in); got != want {
			t.Errorf("ParseOutcome(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestParseExplicitOutcome(t *testing.T) {
	if o, ok := ParseExplicitOutcome("draw"); o != OutcomeTied || !ok {
		t.Errorf("draw = %q/%v, want tied/true", o, ok)
	}
	if o, ok := ParseExplicitOutcome(""); o != OutcomeTied || ok {
		t.Errorf("empty = %q/%v, want tied/false", o, ok)
	}
	if o, ok := ParseExplicitOutcome("Winner"); o != OutcomeWon || !ok {
		t.Errorf("Winner = %q/%v, want won/true", o, ok)
	}
}

func TestOutcomeRankOrdersWinBeforeTieBeforeLoss(t *testing.T) {
	if !(OutcomeWon.Rank() < OutcomeTied.Rank() && OutcomeTied.Rank() < OutcomeLost.Rank()) {
		t.Fatalf("unexpected rank order: won=%d tied=%d lost=%d", OutcomeWon.Rank(), OutcomeTied.Rank(), OutcomeLost.Rank())
	}
}

func TestParseDeathReason(t *testing.T) {
	if ParseDeathReason("  ") != nil {
		t.Fatalf("expected nil for empty reason")
	}
	if got := *ParseDeathReason("WALL"); got != DeathWall {
		t.Errorf("got %q, want wall", got)
	}
	if got := *ParseDeathReason("snake_collision"); got != DeathBodyCollision {
		t.Errorf("got %q, want body_collision", got)
	}
	if got := *ParseDeathReason("meteor"); got != DeathOther {
		t.Errorf("got %q, want other", got)
	}
}

func TestNormalizeSlug(t *testing.T) {
	cases := map[string]string{
		"openai/GPT-4o:free":  "openai/gpt-4o",
		"Claude-3-Haiku":      "claude-3-haiku",
		" llama-3.1-8b:beta ": "llama-3.1-8b",
		":weird":              ":weird",
	}
	for in, want := range cases {
		if got := NormalizeSlug(in); got != want {
			t.Errorf("NormalizeSlug(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestParseErrorMatchesSentinel(t *testing.T) {
	err := &ParseError{Kind: MissingIdentity, Source: "x.json"}
	if !errors.Is(err, ErrParse) {
		t.Fatalf("expected ParseError to match ErrParse")
	}

	rerr := &RatingComputationError{Algorithm: "elo", Err: ErrInsufficientParticipants}
	if !errors.Is(rerr, ErrRatingComputation) || !errors.Is(rerr, ErrInsufficientParticipants) {
		t.Fatalf("expected RatingComputationError to match both sentinels")
	}
}

func TestReconcileOutcomes(t *testing.T) {
	tests := []struct {
		name        string
		in          [2]Outcome
		explicit    [2]bool
		scores      [2]int
		want        [2]Outcome
		wantChanged bool
	}{
		{"consistent win", [2]Outcome{OutcomeWon, OutcomeLost}, [2]bool{true, true}, [2]int{1, 9}, [2]Outcome{OutcomeWon, OutcomeLost}, false},
		{"consistent tie", [2]Outcome{OutcomeTied, OutcomeTied}, [2]bool{true, true}, [2]int{4, 2}, [2]Outcome{OutcomeTied, OutcomeTied}, false},
		{"double win uses scores", [2]Outcome{OutcomeWon, OutcomeWon}, [2]bool{true, true}, [2]int{3, 7}, [2]Outcome{OutcomeLost, OutcomeWon}, true},
		{"win against missing", [2]Outcome{OutcomeWon, OutcomeTied}, [2]bool{true, false}, [2]int{5, 2}, [2]Outcome{OutcomeWon, OutcomeLost}, true},
		{"win with fewer apples against missing", [2]Outcome{OutcomeWon, OutcomeTied}, [2]bool{true, false}, [2]int{2, 5}, [2]Outcome{OutcomeWon, OutcomeLost}, true},
		{"missing against loss", [2]Outcome{OutcomeTied, OutcomeLost}, [2]bool{false, true}, [2]int{1, 8}, [2]Outcome{OutcomeWon, OutcomeLost}, true},
		{"win against explicit tie uses scores", [2]Outcome{OutcomeWon, OutcomeTied}, [2]bool{true, true}, [2]int{2, 5}, [2]Outcome{OutcomeLost, OutcomeWon}, true},
		{"double loss equal scores", [2]Outcome{OutcomeLost, OutcomeLost}, [2]bool{true, true}, [2]int{4, 4}, [2]Outcome{OutcomeTied, OutcomeTied}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ps := []NormalizedParticipant{
				{Seat: 0, Outcome: tt.in[0], OutcomeExplicit: tt.explicit[0], Score: tt.scores[0]},
				{Seat: 1, Outcome: tt.in[1], OutcomeExplicit: tt.explicit[1], Score: tt.scores[1]},
			}
			if changed := ReconcileOutcomes(ps); changed != tt.wantChanged {
				t.Errorf("changed = %v, want %v", changed, tt.wantChanged)
			}
			if ps[0].Outcome != tt.want[0] || ps[1].Outcome != tt.want[1] {
				t.Errorf("got %s/%s, want %s/%s", ps[0].Outcome, ps[1].Outcome, tt.want[0], tt.want[1])
			}
		})
	}
}
