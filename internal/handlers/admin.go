package handlers

import (
	"context"
	"net/http"
	"strconv"

	"chatrelay/internal/logging"
	"chatrelay/internal/middleware"
	"chatrelay/internal/models"
)

type reprober interface {
	Reprobe(ctx context.Context) models.StatusResponse
}

// ProbeLister reads recent probe results.
type ProbeLister interface {
	ListRecent(ctx context.Context, limit int) ([]*models.ProbeResult, error)
}

// AdminHandler serves operator routes. probes may be nil when no
// database is configured.
type AdminHandler struct {
	chat   reprober
	probes ProbeLister
}

func NewAdminHandler(chat reprober, probes ProbeLister) *AdminHandler {
	return &AdminHandler{chat: chat, probes: probes}
}

func (h *AdminHandler) Reprobe(w http.ResponseWriter, r *http.Request) {
	logging.Info("operator requested reprobe", "subject", middleware.GetSubject(r.Context()))
	writeJSON(w, http.StatusOK, h.chat.Reprobe(r.Context()))
}

func (h *AdminHandler) ListProbes(w http.ResponseWriter, r *http.Request) {
	if h.probes == nil {
		writeJSON(w, http.StatusNotFound, errorResp("NOT_FOUND", "Probe history is not enabled", r))
		return
	}

	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > 500 {
			writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "limit must be between 1 and 500", r))
			return
		}
		limit = n
	}

	results, err := h.probes.ListRecent(r.Context(), limit)
	if err != nil {
		logging.Error("failed to list probe results", "err", err)
		handleServiceError(w, r, err)
		return
	}
	if results == nil {
		results = []*models.ProbeResult{}
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"probes": results})
}
