package stats

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/opentempo/play-analytics/internal/trending"
)

// artistIDHeader carries the authenticated artist identity, set by the
// upstream auth layer.
const artistIDHeader = "X-Artist-ID"

type TrendingProvider interface {
	Trending(ctx context.Context, limit int) ([]trending.RankedTrack, error)
}

type Handler struct {
	service  *Service
	trending TrendingProvider
	logger   *zap.Logger
}

func NewHandler(service *Service, trendingProvider TrendingProvider, logger *zap.Logger) *Handler {
	return &Handler{
		service:  service,
		trending: trendingProvider,
		logger:   logger,
	}
}

func (h *Handler) Register(r chi.Router) {
	r.Get("/stats/artist", h.ArtistStats)
	r.Get("/stats/admin", h.AdminStats)
	r.Get("/stats/listener/{userID}", h.ListenerStats)
	r.Get("/trending", h.Trending)
}

func (h *Handler) ArtistStats(w http.ResponseWriter, r *http.Request) {
	artistID, err := uuid.Parse(r.Header.Get(artistIDHeader))
	if err != nil {
		writeError(w, http.StatusUnauthorized, "missing artist identity")
		return
	}

	stats, err := h.service.ArtistStats(r.Context(), artistID)
	if err != nil {
		h.logger.Error("artist stats failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to compute artist stats")
		return
	}

	writeJSON(w, http.StatusOK, stats)
}

func (h *Handler) AdminStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.service.AdminStats(r.Context())
	if err != nil {
		h.logger.Error("admin stats failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to compute admin stats")
		return
	}

	writeJSON(w, http.StatusOK, stats)
}

func (h *Handler) ListenerStats(w http.ResponseWriter, r *http.Request) {
	userID, err := uuid.Parse(chi.URLParam(r, "userID"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid user id")
		return
	}

	stats, err := h.service.ListenerStats(r.Context(), userID)
	if err != nil {
		h.logger.Error("listener stats failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to compute listener stats")
		return
	}

	writeJSON(w, http.StatusOK, stats)
}

func (h *Handler) Trending(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = parsed
	}

	tracks, err := h.trending.Trending(r.Context(), limit)
	if err != nil {
		h.logger.Error("trending failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to rank tracks")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"tracks": tracks})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
