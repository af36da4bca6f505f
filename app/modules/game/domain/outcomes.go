package gamedomain

// OutcomesConsistent reports whether a two-seat game has one of {won,lost}, {lost,won} or {tied,tied}.
// Games with any other seat count are not checked.
func OutcomesConsistent(ps []NormalizedParticipant) bool {
	if len(ps) != PlayersPerGame {
		return true
	}
	a, b := ps[0].Outcome, ps[1].Outcome
	switch {
	case a == OutcomeWon && b == OutcomeLost, a == OutcomeLost && b == OutcomeWon:
		return true
	case a == OutcomeTied && b == OutcomeTied:
		return true
	}
	return false
}

// ReconcileOutcomes repairs an inconsistent two-seat result. When exactly one seat
// recorded a result, the other seat gets its complement. Otherwise the final scores
// decide: the higher score wins, equal scores tie. It returns true if anything changed.
func ReconcileOutcomes(ps []NormalizedParticipant) bool {
	if OutcomesConsistent(ps) {
		return false
	}
	a, b := &ps[0], &ps[1]
	switch {
	case a.OutcomeExplicit && !b.OutcomeExplicit:
		b.Outcome = a.Outcome.Complement()
		return true
	case b.OutcomeExplicit && !a.OutcomeExplicit:
		a.Outcome = b.Outcome.Complement()
		return true
	}
	switch {
	case a.Score > b.Score:
		a.Outcome, b.Outcome = OutcomeWon, OutcomeLost
	case a.Score < b.Score:
		a.Outcome, b.Outcome = OutcomeLost, OutcomeWon
	default:
		a.Outcome, b.Outcome = OutcomeTied, OutcomeTied
	}
	return true
}
