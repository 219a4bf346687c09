package handler

import (
	"net/http"

	"github.com/sahwira-ai/sahwira/internal/middleware"
	"github.com/sahwira-ai/sahwira/internal/service"
	"github.com/sahwira-ai/sahwira/pkg/logger"
)

// StatsHandler handles leaderboard and reporting endpoints.
type StatsHandler struct {
	service *service.StatsService
	logger  *logger.Logger
}

// NewStatsHandler creates a new stats handler.
func NewStatsHandler(svc *service.StatsService, log *logger.Logger) *StatsHandler {
	return &StatsHandler{
		service: svc,
		logger:  log,
	}
}

// Leaderboard handles GET /api/v1/leaderboard
func (h *StatsHandler) Leaderboard(w http.ResponseWriter, r *http.Request) {
	entries, err := h.service.Leaderboard(r.Context())
	if err != nil {
		writeServiceError(w, r, h.logger, err, "not found")
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

// UserStats handles GET /api/v1/users/me/stats
func (h *StatsHandler) UserStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.service.UserStats(r.Context(), middleware.GetEmail(r.Context()))
	if err != nil {
		writeServiceError(w, r, h.logger, err, "not found")
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// AdminStats handles GET /api/v1/admin/stats
func (h *StatsHandler) AdminStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.service.AdminStats(r.Context(), middleware.GetEmail(r.Context()))
	if err != nil {
		writeServiceError(w, r, h.logger, err, "not found")
		return
	}
	writeJSON(w, http.StatusOK, stats)
}
