package api

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/ashureev/datadesk/internal/domain"
)

const healthCheckTimeout = 5 * time.Second

type intentStat struct {
	domain.IntentCount
	Label string `json:"label"`
}

// ListInteractions returns the recorded interactions of a session, newest first.
func (h *Handler) ListInteractions(w http.ResponseWriter, r *http.Request) {
	if h.repo == nil {
		Error(w, http.StatusServiceUnavailable, "interaction store disabled")
		return
	}

	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			Error(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = n
	}

	items, err := h.repo.ListInteractions(r.Context(), chi.URLParam(r, "id"), limit)
	if err != nil {
		h.logger.Error("Failed to list interactions", "session_id", chi.URLParam(r, "id"), "error", err)
		Error(w, http.StatusInternalServerError, "failed to list interactions")
		return
	}
	if items == nil {
		items = []*domain.Interaction{}
	}
	JSON(w, http.StatusOK, map[string]interface{}{"interactions": items})
}

// IntentStats returns how often each intent answered a question.
func (h *Handler) IntentStats(w http.ResponseWriter, r *http.Request) {
	if h.repo == nil {
		Error(w, http.StatusServiceUnavailable, "interaction store disabled")
		return
	}

	counts, err := h.repo.IntentStats(r.Context())
	if err != nil {
		h.logger.Error("Failed to load intent stats", "error", err)
		Error(w, http.StatusInternalServerError, "failed to load intent stats")
		return
	}

	stats := make([]intentStat, 0, len(counts))
	for _, c := range counts {
		stats = append(stats, intentStat{IntentCount: c, Label: c.Label()})
	}
	JSON(w, http.StatusOK, map[string]interface{}{"stats": stats})
}

// Health returns the health status of the API and its dependencies.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
	defer cancel()

	checks := map[string]string{"api": "ok", "database": "disabled"}
	status := map[string]interface{}{
		"status":   "healthy",
		"checks":   checks,
		"sessions": h.sessions.Len(),
		"intents":  h.kb.Len(),
	}
	statusCode := http.StatusOK

	if h.repo != nil {
		if err := h.repo.Ping(ctx); err != nil {
			h.logger.Error("Health check failed", "error", err)
			status["status"] = "degraded"
			checks["database"] = "unreachable"
			statusCode = http.StatusServiceUnavailable
		} else {
			checks["database"] = "ok"
		}
	}

	JSON(w, statusCode, status)
}
