package rating

import (
	"fmt"
	"math"

	gamedomain "github.com/Black-And-White-Club/snakebench/app/modules/game/domain"
)

const eloName = "elo"

// Elo is the deterministic pairwise fallback. It only moves the Elo column;
// mu and sigma are returned as given.
type Elo struct {
	k float64
}

// NewElo returns an Elo updater with K=32.
func NewElo() *Elo { return &Elo{k: EloK} }

func (e *Elo) Name() string { return eloName }

// ExpectedScore is the logistic expectation of a against b.
// ExpectedScore(a, b) + ExpectedScore(b, a) == 1 for any finite a, b.
func ExpectedScore(a, b float64) float64 {
	return 1 / (1 + math.Pow(10, (b-a)/400))
}

// actualScore is a's result against b from their ranks: 1 for a win, 0.5 for a tie, 0 for a loss.
func actualScore(rankA, rankB int) float64 {
	switch {
	case rankA < rankB:
		return 1
	case rankA == rankB:
		return 0.5
	default:
		return 0
	}
}

func (e *Elo) Rate(participants []Participant) ([]Result, error) {
	n := len(participants)
	if n < 2 {
		return nil, ratingErr(eloName, gamedomain.ErrInsufficientParticipants)
	}
	for _, p := range participants {
		if !finite(p.Elo) {
			return nil, ratingErr(eloName, fmt.Errorf("model %d elo=%v: %w", p.ModelID, p.Elo, gamedomain.ErrNumerical))
		}
	}

	actual := make([]float64, n)
	expected := make([]float64, n)
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			a, b := participants[i], participants[j]
			eA := ExpectedScore(a.Elo, b.Elo)
			expected[i] += eA
			expected[j] += 1 - eA
			sA := actualScore(a.Rank, b.Rank)
			actual[i] += sA
			actual[j] += 1 - sA
		}
	}

	step := e.k / float64(n-1)
	results := make([]Result, n)
	for i, p := range participants {
		results[i] = Result{
			ModelID: p.ModelID,
			Mu:      p.Mu,
			Sigma:   p.Sigma,
			Elo:     p.Elo + step*(actual[i]-expected[i]),
		}
	}
	return results, nil
}
