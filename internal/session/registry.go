// Package session keeps the live conversations of the server, keyed by session ID.
package session

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ashureev/datadesk/internal/conversation"
)

// ErrNotFound is returned when a session ID is unknown or has expired.
var ErrNotFound = errors.New("session not found")

// Factory builds the controller for a new session.
type Factory func(sessionID string) (*conversation.Controller, error)

// Session is one live conversation.
type Session struct {
	ID         string
	Controller *conversation.Controller
	CreatedAt  time.Time

	mu       sync.Mutex
	lastSeen time.Time
}

// LastSeen returns when the session was last looked up.
func (s *Session) LastSeen() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSeen
}

func (s *Session) touch(now time.Time) {
	s.mu.Lock()
	s.lastSeen = now
	s.mu.Unlock()
}

// Option configures a Registry.
type Option func(*Registry)

// WithClock overrides the time source used for last-seen tracking.
func WithClock(now func() time.Time) Option {
	return func(r *Registry) {
		if now != nil {
			r.now = now
		}
	}
}

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(r *Registry) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// Registry manages live sessions.
type Registry struct {
	factory Factory
	now     func() time.Time
	logger  *slog.Logger

	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewRegistry creates an empty registry that builds controllers with factory.
func NewRegistry(factory Factory, opts ...Option) *Registry {
	r := &Registry{
		factory:  factory,
		now:      time.Now,
		logger:   slog.Default(),
		sessions: make(map[string]*Session),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Create starts a new session under a fresh ID.
func (r *Registry) Create() (*Session, error) {
	id := uuid.NewString()
	ctrl, err := r.factory(id)
	if err != nil {
		return nil, fmt.Errorf("create conversation: %w", err)
	}

	now := r.now()
	s := &Session{ID: id, Controller: ctrl, CreatedAt: now, lastSeen: now}

	r.mu.Lock()
	r.sessions[id] = s
	r.mu.Unlock()

	r.logger.Info("Session created", "session_id", id)
	return s, nil
}

// Get returns a session and marks it as seen.
func (r *Registry) Get(id string) (*Session, error) {
	r.mu.RLock()
	s, ok := r.sessions[id]
	r.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}
	s.touch(r.now())
	return s, nil
}

// Delete removes a session and closes its conversation.
func (r *Registry) Delete(id string) error {
	r.mu.Lock()
	s, ok := r.sessions[id]
	if ok {
		delete(r.sessions, id)
	}
	r.mu.Unlock()

	if !ok {
		return ErrNotFound
	}
	s.Controller.Close()
	r.logger.Info("Session deleted", "session_id", id)
	return nil
}

// Len returns the number of live sessions.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// Sweep closes sessions not seen for longer than ttl. Sessions still waiting
// on a reply are kept. It returns the number of sessions removed.
func (r *Registry) Sweep(ttl time.Duration) int {
	threshold := r.now().Add(-ttl)

	r.mu.Lock()
	var expired []*Session
	for id, s := range r.sessions {
		if s.LastSeen().After(threshold) || s.Controller.State().Composing {
			continue
		}
		expired = append(expired, s)
		delete(r.sessions, id)
	}
	r.mu.Unlock()

	// Close drains replies, so it runs outside the registry lock.
	for _, s := range expired {
		s.Controller.Close()
		r.logger.Info("Session expired", "session_id", s.ID, "last_seen", s.LastSeen())
	}
	return len(expired)
}

// CloseAll closes and removes every session.
func (r *Registry) CloseAll() {
	r.mu.Lock()
	all := make([]*Session, 0, len(r.sessions))
	for id, s := range r.sessions {
		all = append(all, s)
		delete(r.sessions, id)
	}
	r.mu.Unlock()

	for _, s := range all {
		s.Controller.Close()
	}
	if len(all) > 0 {
		r.logger.Info("Sessions closed", "count", len(all))
	}
}
