package parsers

import (
	"strings"

	gamedomain "github.com/Black-And-White-Club/snakebench/app/modules/game/domain"
	"github.com/samber/lo"
)

// ParseLiveResult normalizes an in-memory match result. Only scores, outcomes and
// costs are known, so rounds, board and timestamps stay zero.
func ParseLiveResult(r gamedomain.LiveResult) (*gamedomain.NormalizedGame, error) {
	id := strings.TrimSpace(r.MatchID)
	if id == "" {
		return nil, &gamedomain.ParseError{Kind: gamedomain.MissingIdentity, Source: "live result"}
	}

	sides := []struct {
		key  string
		name string
	}{
		{gamedomain.SideA, r.SideAName},
		{gamedomain.SideB, r.SideBName},
	}
	participants := make([]gamedomain.NormalizedParticipant, 0, len(sides))
	for seat, side := range sides {
		slug := strings.TrimSpace(firstNonEmpty(side.name, unknownModel))
		outcome, explicit := gamedomain.ParseExplicitOutcome(r.OutcomesBySide[side.key])
		participants = append(participants, gamedomain.NormalizedParticipant{
			Seat:            seat,
			ModelSlug:       slug,
			DisplayName:     slug,
			Provider:        gamedomain.ProviderFromSlug(slug),
			Score:           r.ScoresBySide[side.key],
			Outcome:         outcome,
			OutcomeExplicit: explicit,
			Cost:            r.CostBySide[side.key],
		})
	}
	gamedomain.ReconcileOutcomes(participants)

	return &gamedomain.NormalizedGame{
		ID:           id,
		GameType:     gamedomain.DefaultGameType,
		ReplayPath:   strings.TrimSpace(r.ReplayPath),
		TotalCost:    lo.Sum(lo.Values(r.CostBySide)),
		Participants: participants,
	}, nil
}
