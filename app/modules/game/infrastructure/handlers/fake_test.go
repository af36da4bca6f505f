package gamehandlers

import (
	"context"

	gamedomain "github.com/Black-And-White-Club/snakebench/app/modules/game/domain"
)

// FakeLiveRecorder records every live result it is handed.
type FakeLiveRecorder struct {
	results []gamedomain.LiveResult
	ctxs    []context.Context
}

func (f *FakeLiveRecorder) RecordLiveResult(ctx context.Context, result gamedomain.LiveResult) {
	f.ctxs = append(f.ctxs, ctx)
	f.results = append(f.results, result)
}
