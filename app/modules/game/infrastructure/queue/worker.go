package gamequeue

import (
	"context"
	"errors"
	"log/slog"

	gameservice "github.com/Black-And-White-Club/snakebench/app/modules/game/application"
	gamedomain "github.com/Black-And-White-Club/snakebench/app/modules/game/domain"
	"github.com/riverqueue/river"
)

// ReplayIngester is the slice of the game service the worker needs.
type ReplayIngester interface {
	IngestReplayFile(ctx context.Context, path string, opts gameservice.IngestOptions) (*gameservice.IngestResult, error)
}

// IngestReplayWorker runs Ingest-replay-file without forced recompute.
type IngestReplayWorker struct {
	river.WorkerDefaults[IngestReplayJob]
	ingester ReplayIngester
	logger   *slog.Logger
}

func NewIngestReplayWorker(ingester ReplayIngester, logger *slog.Logger) *IngestReplayWorker {
	return &IngestReplayWorker{ingester: ingester, logger: logger}
}

// Work returns the ingest error so River retries with backoff. A replay that does not parse
// is cancelled instead.
func (w *IngestReplayWorker) Work(ctx context.Context, job *river.Job[IngestReplayJob]) error {
	logger := w.logger.With(
		slog.Int64("job_id", job.ID),
		slog.Int("attempt", job.Attempt),
		slog.String("path", job.Args.Path),
	)

	res, err := w.ingester.IngestReplayFile(ctx, job.Args.Path, gameservice.IngestOptions{})
	if err != nil {
		if errors.Is(err, gamedomain.ErrParse) {
			logger.WarnContext(ctx, "Replay cannot be parsed, cancelling retry", slog.Any("error", err))
			return river.JobCancel(err)
		}
		logger.WarnContext(ctx, "Replay ingestion retry failed", slog.Any("error", err))
		return err
	}

	logger.InfoContext(ctx, "Replay ingested from retry queue",
		slog.String("game_id", res.GameID),
		slog.Bool("applied", res.Applied),
	)
	return nil
}
