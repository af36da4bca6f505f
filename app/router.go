package app

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	leaderboardhandlers "github.com/Black-And-White-Club/snakebench/app/modules/leaderboard/infrastructure/handlers"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Router builds the HTTP surface: health, metrics and the leaderboard read API.
func (app *App) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.Recoverer, middleware.Timeout(30*time.Second))

	r.Get("/healthz", app.healthz)
	r.Handle("/metrics", promhttp.HandlerFor(app.Registry, promhttp.HandlerOpts{Registry: app.Registry}))
	r.Route("/api", func(r chi.Router) {
		leaderboardhandlers.NewHandlers(app.LeaderboardService, app.Logger).Routes(r)
		r.Get("/queue/pending", app.pendingJobs)
	})
	return r
}

// pendingJobs lists replay retries still waiting in the River queue.
func (app *App) pendingJobs(w http.ResponseWriter, r *http.Request) {
	q := app.GameModule.Queue
	if q == nil {
		http.Error(w, "retry queue is not running", http.StatusServiceUnavailable)
		return
	}
	jobs, err := q.PendingJobs(r.Context())
	if err != nil {
		app.Logger.ErrorContext(r.Context(), "Failed to list pending jobs", slog.Any("error", err))
		http.Error(w, "failed to list pending jobs", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(jobs); err != nil {
		app.Logger.ErrorContext(r.Context(), "Failed to encode pending jobs", slog.Any("error", err))
	}
}

func (app *App) healthz(w http.ResponseWriter, r *http.Request) {
	if err := app.db.Ping(r.Context()); err != nil {
		http.Error(w, "database unavailable", http.StatusServiceUnavailable)
		return
	}
	if q := app.GameModule.Queue; q != nil {
		if err := q.HealthCheck(r.Context()); err != nil {
			http.Error(w, "queue unavailable", http.StatusServiceUnavailable)
			return
		}
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}
