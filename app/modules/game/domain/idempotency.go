package gamedomain

import (
	"cmp"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"slices"
	"strings"
)

// ComputeContentHash generates a deterministic hash over the rating-relevant content of a game.
// It is stored with the game row so a later non-forced re-ingest can detect that the replay
// changed since it was first counted.
func ComputeContentHash(g *NormalizedGame) string {
	sorted := make([]NormalizedParticipant, len(g.Participants))
	copy(sorted, g.Participants)
	slices.SortFunc(sorted, func(a, b NormalizedParticipant) int {
		return cmp.Compare(a.Seat, b.Seat)
	})

	var sb strings.Builder
	for _, p := range sorted {
		fmt.Fprintf(&sb, "%d:%s:%s:%d;", p.Seat, p.ModelSlug, p.Outcome, p.Score)
	}

	hash := sha256.Sum256([]byte(sb.String()))
	return hex.EncodeToString(hash[:])
}

// ShouldApplyAggregates decides whether an ingest applies aggregate deltas and a rating update.
// A game counts as already applied only if its row existed before this call and
// its aggregates were committed at some point.
func ShouldApplyAggregates(existedBefore, alreadyApplied, forceRecompute bool) bool {
	if forceRecompute {
		return true
	}
	return !(existedBefore && alreadyApplied)
}
