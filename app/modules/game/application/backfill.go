package gameservice

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/Black-And-White-Club/snakebench/app/shared/observability"
	"github.com/olebedev/when"
	"github.com/olebedev/when/rules/common"
	"github.com/olebedev/when/rules/en"
)

// replayFile is one backfill input with its sort key.
type replayFile struct {
	path string
	name string
	at   time.Time
	// embedded is false when at came from the file's modification time.
	embedded bool
}

// Backfill ingests every replay in dir, oldest first, one at a time, with forced recompute.
// It does not reset state; callers that want a from-scratch leaderboard call ResetRatings first.
// A failed file is logged once and skipped. Cancelling ctx stops after the current file.
func (s *GameService) Backfill(ctx context.Context, dir string, opts BackfillOptions) (*BackfillReport, error) {
	return withTelemetry(s, ctx, "Backfill", dir, func(ctx context.Context) (*BackfillReport, error) {
		files, err := s.listReplays(dir)
		if err != nil {
			return nil, err
		}

		report := &BackfillReport{Total: len(files)}
		for _, f := range files {
			if !opts.Since.IsZero() && f.at.Before(opts.Since) {
				report.Skipped++
				s.metrics.RecordBackfillFile(ctx, "skipped")
				continue
			}
			if err := ctx.Err(); err != nil {
				return report, err
			}
			if opts.Limiter != nil {
				if err := opts.Limiter.Wait(ctx); err != nil {
					return report, err
				}
			}

			if _, err := s.ingestReplay(ctx, f.path, IngestOptions{ForceRecompute: true}); err != nil {
				s.logger.ErrorContext(ctx, "backfill file failed",
					observability.ExtractCorrelationID(ctx),
					slog.String("file", f.path),
					slog.Any("error", err),
				)
				s.metrics.RecordBackfillFile(ctx, "failed")
				report.Failed = append(report.Failed, FileFailure{Path: f.path, Err: err})
				continue
			}
			s.metrics.RecordBackfillFile(ctx, "ingested")
			report.Ingested++
		}

		s.logger.InfoContext(ctx, "Backfill finished",
			observability.ExtractCorrelationID(ctx),
			slog.Int("total", report.Total),
			slog.Int("ingested", report.Ingested),
			slog.Int("skipped", report.Skipped),
			slog.Int("failed", len(report.Failed)),
		)
		return report, nil
	})
}

// listReplays returns the directory's JSON files sorted by embedded start time, falling back to
// modification time, then to file name.
func (s *GameService) listReplays(dir string) ([]replayFile, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read backfill directory: %w", err)
	}

	var files []replayFile
	for _, e := range entries {
		if e.IsDir() || !strings.EqualFold(filepath.Ext(e.Name()), ".json") {
			continue
		}
		path := filepath.Join(dir, e.Name())
		f := replayFile{path: path, name: e.Name()}

		if data, err := os.ReadFile(path); err == nil {
			if t := s.parser.StartTime(data); t != nil {
				f.at, f.embedded = *t, true
			}
		}
		if !f.embedded {
			if info, err := e.Info(); err == nil {
				f.at = info.ModTime().UTC()
			}
		}
		files = append(files, f)
	}

	sort.SliceStable(files, func(i, j int) bool {
		if !files[i].at.Equal(files[j].at) {
			return files[i].at.Before(files[j].at)
		}
		return files[i].name < files[j].name
	})
	return files, nil
}

// ParseSince turns operator input such as "2025-01-31", "last week" or "3 days ago" into a lower bound.
func ParseSince(expr string, now time.Time) (time.Time, error) {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return time.Time{}, nil
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, expr); err == nil {
			return t.UTC(), nil
		}
	}

	w := when.New(nil)
	w.Add(en.All...)
	w.Add(common.All...)
	r, err := w.Parse(strings.ToLower(expr), now)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse since %q: %w", expr, err)
	}
	if r == nil {
		return time.Time{}, fmt.Errorf("could not recognize time expression: %s", expr)
	}
	return r.Time.UTC(), nil
}
