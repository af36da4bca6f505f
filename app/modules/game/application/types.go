package gameservice

import (
	"time"

	"golang.org/x/time/rate"
)

// IngestOptions controls Ingest-replay-file.
type IngestOptions struct {
	// ForceRecompute reapplies aggregates and ratings even if the game was already counted.
	// The caller is responsible for having reset aggregates first.
	ForceRecompute bool
}

// IngestResult describes what one ingest did.
type IngestResult struct {
	GameID        string
	ExistedBefore bool
	// Applied is false for a no-op replay.
	Applied bool
	// Algorithm names the rating algorithm whose output was stored.
	Algorithm string
	FellBack  bool
	// ContentChanged is set when a non-forced replay differs from what was first counted.
	ContentChanged bool
}

// BackfillOptions controls Backfill.
type BackfillOptions struct {
	// Since skips files whose sort time is earlier. Zero means no lower bound.
	Since time.Time
	// Limiter throttles file ingestion. Nil means unthrottled.
	Limiter *rate.Limiter
}

// FileFailure is one backfill file that could not be ingested.
type FileFailure struct {
	Path string
	Err  error
}

// BackfillReport summarizes a backfill run.
type BackfillReport struct {
	Total    int
	Ingested int
	Skipped  int
	Failed   []FileFailure
}
