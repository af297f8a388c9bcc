// Package api provides HTTP handlers for the datadesk API.
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/ashureev/datadesk/internal/engine"
	"github.com/ashureev/datadesk/internal/knowledge"
	"github.com/ashureev/datadesk/internal/session"
	"github.com/ashureev/datadesk/internal/store"
)

// maxBodyBytes caps request bodies; questions are short.
const maxBodyBytes = 64 << 10

// Handler serves the knowledge, matching and session endpoints.
type Handler struct {
	kb       *knowledge.Base
	engine   *engine.Engine
	sessions *session.Registry
	repo     store.Repository
	limiter  *RateLimiter
	logger   *slog.Logger
}

// Deps are the dependencies of a Handler. Repo and Limiter are optional.
type Deps struct {
	Knowledge *knowledge.Base
	Sessions  *session.Registry
	Repo      store.Repository
	Limiter   *RateLimiter
	Logger    *slog.Logger
}

// NewHandler creates a Handler. A nil knowledge base uses the compiled-in table.
func NewHandler(d Deps) *Handler {
	kb := d.Knowledge
	if kb == nil {
		kb = knowledge.Default()
	}
	logger := d.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		kb:       kb,
		engine:   engine.New(kb),
		sessions: d.Sessions,
		repo:     d.Repo,
		limiter:  d.Limiter,
		logger:   logger,
	}
}

// JSON writes a JSON response with the given status code.
func JSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, `{"error": "failed to encode response"}`, http.StatusInternalServerError)
	}
}

// Error writes a JSON error response.
func Error(w http.ResponseWriter, status int, message string) {
	JSON(w, status, map[string]string{"error": message})
}

// decode reads a JSON body into v.
func decode(w http.ResponseWriter, r *http.Request, v interface{}) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return fmt.Errorf("empty request body")
		}
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}
