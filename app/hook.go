package app

import (
	"context"
	"errors"
	"log/slog"
)

// Close stops the modules and releases connections in reverse start order.
func (app *App) Close(ctx context.Context) error {
	app.Logger.InfoContext(ctx, "Shutting down application")

	var errs []error
	if app.GameModule != nil {
		if err := app.GameModule.Close(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	app.wg.Wait()

	if app.eventBus != nil {
		if err := app.eventBus.Close(); err != nil {
			app.Logger.ErrorContext(ctx, "Failed to close event bus", slog.Any("error", err))
			errs = append(errs, err)
		}
	}
	errs = append(errs, app.closeStorage())

	app.Logger.InfoContext(ctx, "Application shut down")
	return errors.Join(errs...)
}

func (app *App) closeStorage() error {
	var errs []error
	if app.redis != nil {
		errs = append(errs, app.redis.Close())
	}
	if app.db != nil {
		errs = append(errs, app.db.Close())
	}
	return errors.Join(errs...)
}
