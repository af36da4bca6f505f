package rating

import (
	"fmt"

	gamedomain "github.com/Black-And-White-Club/snakebench/app/modules/game/domain"
	"github.com/eullerpereira94/openskill"
)

const openSkillName = "openskill"

// OpenSkill rates a game with the Weng-Lin Plackett-Luce model. Each seat is a
// one-member team; a higher score means a better placement, so ranks are inverted.
type OpenSkill struct{}

func NewOpenSkill() *OpenSkill { return &OpenSkill{} }

func (o *OpenSkill) Name() string { return openSkillName }

func (o *OpenSkill) Rate(participants []Participant) (results []Result, err error) {
	if len(participants) < 2 {
		return nil, ratingErr(openSkillName, gamedomain.ErrInsufficientParticipants)
	}

	worst := 0
	for _, p := range participants {
		if !finite(p.Mu, p.Sigma) || p.Sigma <= 0 {
			return nil, ratingErr(openSkillName, fmt.Errorf("model %d prior mu=%v sigma=%v: %w", p.ModelID, p.Mu, p.Sigma, gamedomain.ErrNumerical))
		}
		worst = max(worst, p.Rank)
	}

	teams := make([]openskill.Team, len(participants))
	scores := make([]int64, len(participants))
	for i, p := range participants {
		teams[i] = openskill.NewTeam(openskill.NewRating(&openskill.NewRatingParams{
			AveragePlayerSkill:     p.Mu,
			SkillUncertaintyDegree: p.Sigma,
		}, nil))
		scores[i] = int64(worst - p.Rank)
	}

	defer func() {
		if r := recover(); r != nil {
			results = nil
			err = ratingErr(openSkillName, fmt.Errorf("panic: %v", r))
		}
	}()
	rated := openskill.Rate(teams, openskill.Options{Scores: scores})
	if len(rated) != len(participants) {
		return nil, ratingErr(openSkillName, fmt.Errorf("got %d teams back for %d participants: %w", len(rated), len(participants), gamedomain.ErrNumerical))
	}

	results = make([]Result, len(participants))
	for i, p := range participants {
		if len(rated[i]) != 1 {
			return nil, ratingErr(openSkillName, fmt.Errorf("team %d has %d members: %w", i, len(rated[i]), gamedomain.ErrNumerical))
		}
		mu, sigma := rated[i][0].AveragePlayerSkill, rated[i][0].SkillUncertaintyDegree
		if !finite(mu, sigma) || sigma <= 0 {
			return nil, ratingErr(openSkillName, fmt.Errorf("model %d posterior mu=%v sigma=%v: %w", p.ModelID, mu, sigma, gamedomain.ErrNumerical))
		}
		results[i] = Result{ModelID: p.ModelID, Mu: mu, Sigma: sigma, Elo: p.Elo}
	}
	return results, nil
}
