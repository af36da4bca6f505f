package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"
)

// Start runs the game module, the message router and the HTTP server until ctx is cancelled.
func (app *App) Start(ctx context.Context) error {
	app.wg.Add(1)
	go app.GameModule.Run(ctx, &app.wg)

	routerErr := make(chan error, 1)
	if app.router != nil {
		go func() {
			if err := app.router.Run(ctx); err != nil {
				routerErr <- fmt.Errorf("message router stopped: %w", err)
			}
		}()
	}

	srv := &http.Server{
		Addr:              app.Config.Observability.MetricsAddress,
		Handler:           app.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	serverErr := make(chan error, 1)
	go func() {
		app.Logger.InfoContext(ctx, "Starting HTTP server", slog.String("address", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	var runErr error
	select {
	case <-ctx.Done():
	case runErr = <-routerErr:
	case runErr = <-serverErr:
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		app.Logger.ErrorContext(shutdownCtx, "HTTP server shutdown failed", slog.Any("error", err))
	}
	return errors.Join(runErr, app.Close(shutdownCtx))
}
