package leaderboardhandlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	leaderboardservice "github.com/Black-And-White-Club/snakebench/app/modules/leaderboard/application"
	"github.com/go-chi/chi/v5"
)

// Handlers serves the leaderboard read side over HTTP.
type Handlers struct {
	service leaderboardservice.Service
	logger  *slog.Logger
}

func NewHandlers(service leaderboardservice.Service, logger *slog.Logger) *Handlers {
	return &Handlers{service: service, logger: logger}
}

// Routes mounts the leaderboard endpoints. Chart slugs may contain slashes.
func (h *Handlers) Routes(r chi.Router) {
	r.Get("/leaderboard", h.GetLeaderboard)
	r.Get("/leaderboard.xlsx", h.ExportLeaderboard)
	r.Get("/models/chart/*", h.GetRatingChart)
}

// GetLeaderboard returns the ranked leaderboard as JSON.
func (h *Handlers) GetLeaderboard(w http.ResponseWriter, r *http.Request) {
	entries, err := h.service.GetLeaderboard(r.Context())
	if err != nil {
		h.fail(w, r, "Failed to fetch leaderboard", err, http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(entries); err != nil {
		h.logger.ErrorContext(r.Context(), "Failed to encode leaderboard", slog.Any("error", err))
	}
}

// ExportLeaderboard streams the leaderboard workbook.
func (h *Handlers) ExportLeaderboard(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="leaderboard.xlsx"`)
	if err := h.service.ExportXLSX(r.Context(), w); err != nil {
		h.fail(w, r, "Failed to export leaderboard", err, http.StatusInternalServerError)
	}
}

// GetRatingChart renders one model's rating history as PNG.
func (h *Handlers) GetRatingChart(w http.ResponseWriter, r *http.Request) {
	slug := strings.Trim(chi.URLParam(r, "*"), "/")
	if slug == "" {
		http.Error(w, "model slug is required", http.StatusBadRequest)
		return
	}

	png, err := h.service.RatingChart(r.Context(), slug)
	switch {
	case errors.Is(err, leaderboardservice.ErrModelNotFound):
		http.Error(w, fmt.Sprintf("model %q not found", slug), http.StatusNotFound)
		return
	case err != nil:
		h.fail(w, r, "Failed to render rating chart", err, http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	_, _ = w.Write(png)
}

func (h *Handlers) fail(w http.ResponseWriter, r *http.Request, msg string, err error, status int) {
	h.logger.ErrorContext(r.Context(), msg, slog.Any("error", err))
	http.Error(w, fmt.Sprintf("%s: %v", msg, err), status)
}
