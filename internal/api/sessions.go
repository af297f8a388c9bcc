package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/ashureev/datadesk/internal/conversation"
	"github.com/ashureev/datadesk/internal/session"
)

type sessionResponse struct {
	SessionID    string             `json:"session_id"`
	State        conversation.State `json:"state"`
	QuickActions []string           `json:"quick_actions"`
}

type submitResponse struct {
	Accepted bool               `json:"accepted"`
	State    conversation.State `json:"state"`
}

type contentRequest struct {
	Content string `json:"content"`
}

type quickActionRequest struct {
	Label string `json:"label"`
}

func newSessionResponse(s *session.Session) sessionResponse {
	return sessionResponse{
		SessionID:    s.ID,
		State:        s.Controller.State(),
		QuickActions: s.Controller.QuickActions(),
	}
}

// lookup resolves the {id} URL parameter, writing a 404 when it is unknown.
func (h *Handler) lookup(w http.ResponseWriter, r *http.Request) (*session.Session, bool) {
	s, err := h.sessions.Get(chi.URLParam(r, "id"))
	if errors.Is(err, session.ErrNotFound) {
		Error(w, http.StatusNotFound, "session not found")
		return nil, false
	}
	if err != nil {
		Error(w, http.StatusInternalServerError, "failed to load session")
		return nil, false
	}
	return s, true
}

// CreateSession starts a conversation seeded with the greeting.
func (h *Handler) CreateSession(w http.ResponseWriter, _ *http.Request) {
	s, err := h.sessions.Create()
	if err != nil {
		h.logger.Error("Failed to create session", "error", err)
		Error(w, http.StatusInternalServerError, "failed to create session")
		return
	}
	JSON(w, http.StatusCreated, newSessionResponse(s))
}

// GetSession returns the current state of a conversation.
func (h *Handler) GetSession(w http.ResponseWriter, r *http.Request) {
	s, ok := h.lookup(w, r)
	if !ok {
		return
	}
	JSON(w, http.StatusOK, newSessionResponse(s))
}

// DeleteSession ends a conversation. Outstanding replies are drained first.
func (h *Handler) DeleteSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.sessions.Delete(id); err != nil {
		if errors.Is(err, session.ErrNotFound) {
			Error(w, http.StatusNotFound, "session not found")
			return
		}
		Error(w, http.StatusInternalServerError, "failed to delete session")
		return
	}
	if h.limiter != nil {
		h.limiter.Forget(id)
	}
	w.WriteHeader(http.StatusNoContent)
}

// SubmitMessage appends a user message and schedules the reply.
// Blank content is ignored and reported as not accepted.
func (h *Handler) SubmitMessage(w http.ResponseWriter, r *http.Request) {
	s, ok := h.lookup(w, r)
	if !ok {
		return
	}

	var req contentRequest
	if err := decode(w, r, &req); err != nil {
		Error(w, http.StatusBadRequest, err.Error())
		return
	}

	if strings.TrimSpace(req.Content) == "" {
		JSON(w, http.StatusOK, submitResponse{Accepted: false, State: s.Controller.State()})
		return
	}

	if h.limiter != nil && !h.limiter.Allow(s.ID) {
		h.logger.Warn("Rate limit exceeded", "session_id", s.ID)
		Error(w, http.StatusTooManyRequests, "rate limit exceeded")
		return
	}

	if !s.Controller.Submit(req.Content) {
		Error(w, http.StatusGone, "session closed")
		return
	}
	JSON(w, http.StatusAccepted, submitResponse{Accepted: true, State: s.Controller.State()})
}

// SetInput replaces the staged input text.
func (h *Handler) SetInput(w http.ResponseWriter, r *http.Request) {
	s, ok := h.lookup(w, r)
	if !ok {
		return
	}

	var req contentRequest
	if err := decode(w, r, &req); err != nil {
		Error(w, http.StatusBadRequest, err.Error())
		return
	}

	s.Controller.SetPendingInput(req.Content)
	JSON(w, http.StatusOK, newSessionResponse(s))
}

// SelectQuickAction stages one of the shortcut labels as the pending input.
func (h *Handler) SelectQuickAction(w http.ResponseWriter, r *http.Request) {
	s, ok := h.lookup(w, r)
	if !ok {
		return
	}

	var req quickActionRequest
	if err := decode(w, r, &req); err != nil {
		Error(w, http.StatusBadRequest, err.Error())
		return
	}
	if !conversation.IsQuickAction(req.Label) {
		Error(w, http.StatusBadRequest, "unknown quick action")
		return
	}

	s.Controller.SelectQuickAction(req.Label)
	JSON(w, http.StatusOK, newSessionResponse(s))
}
