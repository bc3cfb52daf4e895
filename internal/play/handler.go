package play

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type Handler struct {
	service *Service
	logger  *zap.Logger
}

func NewHandler(service *Service, logger *zap.Logger) *Handler {
	return &Handler{
		service: service,
		logger:  logger,
	}
}

func (h *Handler) Register(r chi.Router) {
	r.Post("/tracks/{trackID}/play", h.RecordPlay)
}

type playRequest struct {
	ListenerID *uuid.UUID `json:"listenerId"`
}

type playResponse struct {
	Plays   int64 `json:"plays"`
	Counted bool  `json:"counted"`
}

func (h *Handler) RecordPlay(w http.ResponseWriter, r *http.Request) {
	trackID, err := uuid.Parse(chi.URLParam(r, "trackID"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid track id")
		return
	}

	// Body is optional: anonymous players send nothing at all.
	var req playRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	receipt, err := h.service.RecordPlay(r.Context(), trackID, req.ListenerID)
	if err != nil {
		if errors.Is(err, ErrTrackNotFound) {
			writeError(w, http.StatusNotFound, "track not found")
			return
		}
		h.logger.Error("record play failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to record play")
		return
	}

	writeJSON(w, http.StatusOK, playResponse{
		Plays:   receipt.Plays,
		Counted: receipt.Counted,
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
