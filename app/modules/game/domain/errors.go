package gamedomain

import (
	"errors"
	"fmt"
)

// Sentinels for errors.Is matching across the pipeline.
var (
	ErrParse             = errors.New("parse error")
	ErrPersistence       = errors.New("persistence error")
	ErrRatingComputation = errors.New("rating computation error")

	// ErrInsufficientParticipants is returned by rating algorithms given fewer than two seats.
	ErrInsufficientParticipants = errors.New("at least two participants are required")

	// ErrNumerical marks a degenerate result (NaN, Inf, non-positive variance).
	ErrNumerical = errors.New("numerical degeneracy")
)

// ParseErrorKind classifies why a replay could not be parsed.
type ParseErrorKind string

const (
	// MissingIdentity: no match id from payload, metadata, or filename. Aborts ingestion.
	MissingIdentity ParseErrorKind = "MissingIdentity"
	// Unreadable: the source could not be read or is not a JSON object.
	Unreadable ParseErrorKind = "Unreadable"
)

// ParseError is returned by the replay parser. A ParseError never touches the store.
type ParseError struct {
	Kind   ParseErrorKind
	Source string
	Err    error
}

func (e *ParseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("parse %s (%s): %v", e.Source, e.Kind, e.Err)
	}
	return fmt.Sprintf("parse %s (%s)", e.Source, e.Kind)
}

func (e *ParseError) Unwrap() []error {
	if e.Err != nil {
		return []error{ErrParse, e.Err}
	}
	return []error{ErrParse}
}

// PersistenceError wraps a store failure during one named step.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persistence %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() []error { return []error{ErrPersistence, e.Err} }

// RatingComputationError is raised by a rating algorithm.
type RatingComputationError struct {
	Algorithm string
	Err       error
}

func (e *RatingComputationError) Error() string {
	return fmt.Sprintf("rating %s: %v", e.Algorithm, e.Err)
}

func (e *RatingComputationError) Unwrap() []error { return []error{ErrRatingComputation, e.Err} }
