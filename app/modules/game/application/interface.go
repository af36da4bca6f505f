package gameservice

import (
	"context"

	gamedomain "github.com/Black-And-White-Club/snakebench/app/modules/game/domain"
)

// Service is the ingestion pipeline's public surface.
type Service interface {
	// IngestReplayFile is the authoritative path: parse, persist, count once, rate, all in one transaction.
	IngestReplayFile(ctx context.Context, path string, opts IngestOptions) (*IngestResult, error)

	// RecordLiveResult is the best-effort path used by the match runner. It never fails.
	RecordLiveResult(ctx context.Context, result gamedomain.LiveResult)

	// ResetRatings returns every model to the baseline before a from-scratch backfill.
	ResetRatings(ctx context.Context) error

	// Backfill ingests a directory of replays in chronological order with forced recompute.
	Backfill(ctx context.Context, dir string, opts BackfillOptions) (*BackfillReport, error)
}

// LeaderboardCache is invalidated after every commit that changed ratings or aggregates.
type LeaderboardCache interface {
	Invalidate(ctx context.Context) error
}

// RetryQueue schedules a later replay ingest when the live path failed.
type RetryQueue interface {
	EnqueueReplayIngest(ctx context.Context, path string) error
}
