// Package stream pushes conversation state to browsers over WebSocket.
package stream

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"slices"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/go-chi/chi/v5"

	"github.com/ashureev/datadesk/internal/conversation"
	"github.com/ashureev/datadesk/internal/session"
)

const (
	writeTimeout = 10 * time.Second
	readLimit    = 64 << 10
)

// Frame types.
const (
	TypeState       = "state"
	TypeSubmit      = "submit"
	TypeInput       = "input"
	TypeQuickAction = "quick_action"
	TypePing        = "ping"
	TypePong        = "pong"
	TypeAck         = "ack"
	TypeError       = "error"
)

// Limiter throttles submits per session.
type Limiter interface {
	Allow(key string) bool
}

// inbound is a frame sent by the client.
type inbound struct {
	Type    string `json:"type"`
	Content string `json:"content,omitempty"`
}

// outbound is a frame sent to the client.
type outbound struct {
	Type     string              `json:"type"`
	State    *conversation.State `json:"state,omitempty"`
	Accepted *bool               `json:"accepted,omitempty"`
	Error    string              `json:"error,omitempty"`
}

// Handler serves GET /ws/sessions/{id}.
type Handler struct {
	sessions       *session.Registry
	allowedOrigins []string
	limiter        Limiter
	logger         *slog.Logger
}

// NewHandler creates a stream handler. A "*" entry in allowedOrigins accepts
// any origin. limiter may be nil.
func NewHandler(sessions *session.Registry, allowedOrigins []string, limiter Limiter, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		sessions:       sessions,
		allowedOrigins: allowedOrigins,
		limiter:        limiter,
		logger:         logger,
	}
}

// ServeHTTP implements http.Handler for WebSocket upgrade.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "id")
	h.logger.Info("WebSocket connection request", "session_id", sessionID, "ip", r.RemoteAddr)

	s, err := h.sessions.Get(sessionID)
	if err != nil {
		writeHTTPError(w, http.StatusNotFound, "session not found")
		return
	}
	if !h.checkOrigin(r) {
		writeHTTPError(w, http.StatusForbidden, "origin not allowed")
		return
	}

	// Origin was checked above.
	ws, err := websocket.Accept(w, r, &websocket.AcceptOptions{InsecureSkipVerify: true})
	if err != nil {
		h.logger.Error("Failed to accept WebSocket", "error", err, "session_id", sessionID)
		return
	}
	ws.SetReadLimit(readLimit)
	defer func() {
		if closeErr := ws.Close(websocket.StatusNormalClosure, "session ended"); closeErr != nil {
			h.logger.Debug("Failed to close websocket", "error", closeErr, "session_id", sessionID)
		}
	}()

	updates, unsubscribe := s.Controller.Subscribe()
	defer unsubscribe()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	var wg sync.WaitGroup
	wg.Add(2)

	// Input loop: client frames -> conversation.
	go func() {
		defer wg.Done()
		defer cancel()
		h.inputLoop(ctx, ws, s)
	}()

	// Output loop: state changes -> client.
	go func() {
		defer wg.Done()
		defer cancel()
		h.outputLoop(ctx, ws, updates, sessionID)
	}()

	wg.Wait()
	h.logger.Info("Stream ended", "session_id", sessionID)
}

func (h *Handler) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" || len(h.allowedOrigins) == 0 || slices.Contains(h.allowedOrigins, "*") {
		return true
	}
	if slices.Contains(h.allowedOrigins, origin) {
		return true
	}
	h.logger.Warn("WebSocket origin rejected", "origin", origin, "allowed", h.allowedOrigins)
	return false
}

func (h *Handler) inputLoop(ctx context.Context, ws *websocket.Conn, s *session.Session) {
	for {
		_, data, err := ws.Read(ctx)
		if err != nil {
			if websocket.CloseStatus(err) != -1 || errors.Is(err, context.Canceled) {
				h.logger.Debug("WebSocket closed", "session_id", s.ID)
			} else {
				h.logger.Warn("WebSocket read error", "error", err, "session_id", s.ID)
			}
			return
		}

		var msg inbound
		if err := json.Unmarshal(data, &msg); err != nil {
			if err := h.write(ctx, ws, outbound{Type: TypeError, Error: "invalid frame"}); err != nil {
				return
			}
			continue
		}

		// Any frame keeps the session alive.
		if _, err := h.sessions.Get(s.ID); err != nil {
			return
		}

		if err := h.dispatch(ctx, ws, s, msg); err != nil {
			h.logger.Debug("Failed to answer frame", "error", err, "session_id", s.ID)
			return
		}
	}
}

func (h *Handler) dispatch(ctx context.Context, ws *websocket.Conn, s *session.Session, msg inbound) error {
	switch msg.Type {
	case TypeSubmit:
		if strings.TrimSpace(msg.Content) == "" {
			accepted := false
			return h.write(ctx, ws, outbound{Type: TypeAck, Accepted: &accepted})
		}
		if h.limiter != nil && !h.limiter.Allow(s.ID) {
			return h.write(ctx, ws, outbound{Type: TypeError, Error: "rate limit exceeded"})
		}
		accepted := s.Controller.Submit(msg.Content)
		return h.write(ctx, ws, outbound{Type: TypeAck, Accepted: &accepted})
	case TypeInput:
		s.Controller.SetPendingInput(msg.Content)
	case TypeQuickAction:
		if !conversation.IsQuickAction(msg.Content) {
			return h.write(ctx, ws, outbound{Type: TypeError, Error: "unknown quick action"})
		}
		s.Controller.SelectQuickAction(msg.Content)
	case TypePing:
		return h.write(ctx, ws, outbound{Type: TypePong})
	default:
		return h.write(ctx, ws, outbound{Type: TypeError, Error: "unknown message type"})
	}
	return nil
}

func (h *Handler) outputLoop(ctx context.Context, ws *websocket.Conn, updates <-chan conversation.State, sessionID string) {
	for {
		select {
		case <-ctx.Done():
			return
		case state, ok := <-updates:
			if !ok {
				h.logger.Debug("Conversation closed, ending stream", "session_id", sessionID)
				if err := ws.Close(websocket.StatusNormalClosure, "session closed"); err != nil {
					h.logger.Debug("Failed to close websocket", "error", err, "session_id", sessionID)
				}
				return
			}
			if err := h.write(ctx, ws, outbound{Type: TypeState, State: &state}); err != nil {
				if ctx.Err() == nil {
					h.logger.Debug("WebSocket write error", "error", err, "session_id", sessionID)
				}
				return
			}
		}
	}
}

func (h *Handler) write(ctx context.Context, ws *websocket.Conn, v outbound) error {
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	return wsjson.Write(ctx, ws, v)
}

func writeHTTPError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message})
}
