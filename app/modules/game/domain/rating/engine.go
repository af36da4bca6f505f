package rating

import (
	"errors"
	"fmt"
	"strings"
)

// Update is what one rating pass produced.
type Update struct {
	Results []Result
	// Algorithm is the name of the algorithm whose results were used.
	Algorithm string
	// PrimaryErr is set when the primary failed and Elo was used instead.
	PrimaryErr error
}

// FellBack reports whether the fallback produced the results.
func (u Update) FellBack() bool { return u.PrimaryErr != nil }

// Engine runs the primary algorithm and falls back to pairwise Elo when it fails.
type Engine struct {
	primary  Algorithm
	fallback Algorithm
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithFallback replaces the Elo fallback. Used in tests.
func WithFallback(a Algorithm) EngineOption { return func(e *Engine) { e.fallback = a } }

// NewEngine builds an engine around an explicit primary algorithm.
func NewEngine(primary Algorithm, opts ...EngineOption) *Engine {
	e := &Engine{primary: primary, fallback: NewElo()}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// NewEngineFor selects the primary by configured name: "trueskill" (default) or "openskill".
func NewEngineFor(name string, opts ...EngineOption) (*Engine, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", trueSkillName:
		return NewEngine(NewTrueSkill(), opts...), nil
	case openSkillName:
		return NewEngine(NewOpenSkill(), opts...), nil
	default:
		return nil, fmt.Errorf("unknown rating algorithm %q", name)
	}
}

// Primary is the configured primary algorithm's name.
func (e *Engine) Primary() string { return e.primary.Name() }

// UpdateRatings rates one game. An error is returned only when both algorithms failed.
func (e *Engine) UpdateRatings(participants []Participant) (Update, error) {
	results, primaryErr := safeRate(e.primary, participants)
	if primaryErr == nil {
		return Update{Results: results, Algorithm: e.primary.Name()}, nil
	}
	results, fallbackErr := safeRate(e.fallback, participants)
	if fallbackErr != nil {
		return Update{}, errors.Join(primaryErr, fallbackErr)
	}
	return Update{Results: results, Algorithm: e.fallback.Name(), PrimaryErr: primaryErr}, nil
}

func safeRate(a Algorithm, participants []Participant) (results []Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			results = nil
			err = ratingErr(a.Name(), fmt.Errorf("panic: %v", r))
		}
	}()
	results, err = a.Rate(participants)
	if err == nil && len(results) != len(participants) {
		return nil, ratingErr(a.Name(), fmt.Errorf("returned %d results for %d participants", len(results), len(participants)))
	}
	return results, err
}
