package leaderboardservice

import "errors"

// ErrModelNotFound is returned when no stored model normalizes to the requested slug.
var ErrModelNotFound = errors.New("model not found")
