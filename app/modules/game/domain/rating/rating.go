// Package rating turns one game's outcome ranking plus the participants' prior
// skill beliefs into posterior beliefs. Every algorithm here is a pure function
// of its inputs; callers own persistence.
package rating

import (
	"math"

	gamedomain "github.com/Black-And-White-Club/snakebench/app/modules/game/domain"
)

// Environment defaults shared by every algorithm and by model baselines.
const (
	InitialMu       = 25.0
	InitialSigma    = InitialMu / 3
	Beta            = InitialMu / 6
	Tau             = 0.5
	DrawProbability = 0.1

	InitialElo = 1500.0
	EloK       = 32.0

	// DisplayScale turns an exposed rating into the UI-friendly display score.
	DisplayScale = 50.0
)

// Participant is one seat's prior state and its outcome rank (lower is better, ties share).
type Participant struct {
	ModelID int64
	Mu      float64
	Sigma   float64
	Elo     float64
	Rank    int
}

// Result is one seat's posterior state, in input order.
type Result struct {
	ModelID int64
	Mu      float64
	Sigma   float64
	Elo     float64
}

// Exposed is the conservative skill estimate mu - 3*sigma.
func (r Result) Exposed() float64 { return Exposed(r.Mu, r.Sigma) }

// Display is the exposed rating scaled for presentation.
func (r Result) Display() float64 { return Display(r.Mu, r.Sigma) }

// Exposed is the conservative skill estimate mu - 3*sigma.
func Exposed(mu, sigma float64) float64 { return mu - 3*sigma }

// Display is Exposed scaled by DisplayScale.
func Display(mu, sigma float64) float64 { return Exposed(mu, sigma) * DisplayScale }

// Algorithm is any compliant rating update.
type Algorithm interface {
	Name() string
	Rate(participants []Participant) ([]Result, error)
}

func ratingErr(algorithm string, err error) error {
	return &gamedomain.RatingComputationError{Algorithm: algorithm, Err: err}
}

func finite(vals ...float64) bool {
	for _, v := range vals {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}
