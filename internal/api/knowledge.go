package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ashureev/datadesk/internal/conversation"
	"github.com/ashureev/datadesk/internal/knowledge"
	"github.com/ashureev/datadesk/internal/render"
)

type entryResponse struct {
	knowledge.Entry
	HTML string `json:"html,omitempty"`
}

type matchRequest struct {
	Message string `json:"message"`
}

// QuickActions lists the shortcut labels offered next to the input box.
func (h *Handler) QuickActions(w http.ResponseWriter, _ *http.Request) {
	JSON(w, http.StatusOK, map[string]interface{}{
		"quick_actions": conversation.QuickActions(),
	})
}

// ListKnowledge returns every knowledge base entry in declaration order.
func (h *Handler) ListKnowledge(w http.ResponseWriter, _ *http.Request) {
	JSON(w, http.StatusOK, map[string]interface{}{
		"intents": h.kb.Entries(),
	})
}

// GetKnowledge returns one entry with its reply rendered as HTML.
func (h *Handler) GetKnowledge(w http.ResponseWriter, r *http.Request) {
	entry, ok := h.kb.Lookup(chi.URLParam(r, "intent"))
	if !ok {
		Error(w, http.StatusNotFound, "intent not found")
		return
	}

	html, err := render.HTML(entry.Response)
	if err != nil {
		h.logger.Warn("Failed to render reply", "intent", entry.Intent, "error", err)
	}
	JSON(w, http.StatusOK, entryResponse{Entry: entry, HTML: html})
}

// Match classifies one question without creating a session.
func (h *Handler) Match(w http.ResponseWriter, r *http.Request) {
	var req matchRequest
	if err := decode(w, r, &req); err != nil {
		Error(w, http.StatusBadRequest, err.Error())
		return
	}

	res := h.engine.Classify(req.Message)
	h.logger.Debug("Match", "intent", res.Intent, "score", res.Score, "fallback", res.Fallback)
	JSON(w, http.StatusOK, res)
}
