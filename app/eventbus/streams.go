package eventbus

import (
	"context"
	"fmt"

	gamedomain "github.com/Black-And-White-Club/snakebench/app/modules/game/domain"
)

// MatchesStream holds every match lifecycle subject.
const MatchesStream = "SNAKEBENCH_MATCHES"

// InitializeStreams creates the JetStream streams the service consumes.
func InitializeStreams(ctx context.Context, bus EventBus) error {
	if err := bus.CreateStream(ctx, MatchesStream, gamedomain.MatchSubjects); err != nil {
		return fmt.Errorf("initialize %s stream: %w", MatchesStream, err)
	}
	return nil
}
