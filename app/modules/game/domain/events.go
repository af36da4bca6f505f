package gamedomain

const (
	// MatchCompletedV1 carries a LiveResult as JSON when a match runner finishes a game.
	MatchCompletedV1 = "snakebench.match.completed.v1"

	// MatchSubjects matches every match lifecycle subject.
	MatchSubjects = "snakebench.match.>"
)
