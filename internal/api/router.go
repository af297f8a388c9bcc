package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/ashureev/datadesk/internal/middleware"
)

// RouterConfig holds the optional parts of the HTTP surface.
type RouterConfig struct {
	AllowedOrigins []string
	// Stream serves GET /ws/sessions/{id}.
	Stream http.Handler
	// Static serves everything not matched by the API (the embedded web page).
	Static http.Handler
}

// RegisterRoutes registers the API routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/api", func(r chi.Router) {
		r.Get("/health", h.Health)
		r.Get("/quick-actions", h.QuickActions)
		r.Get("/knowledge", h.ListKnowledge)
		r.Get("/knowledge/{intent}", h.GetKnowledge)
		r.Post("/match", h.Match)
		r.Get("/stats/intents", h.IntentStats)

		r.Route("/sessions", func(r chi.Router) {
			r.Post("/", h.CreateSession)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", h.GetSession)
				r.Delete("/", h.DeleteSession)
				r.Post("/messages", h.SubmitMessage)
				r.Put("/input", h.SetInput)
				r.Post("/quick-actions", h.SelectQuickAction)
				r.Get("/interactions", h.ListInteractions)
			})
		})
	})
}

// NewRouter builds the full HTTP handler: global middleware, API routes,
// the live stream and the static catch-all.
func NewRouter(h *Handler, cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Heartbeat("/health"))
	r.Use(middleware.CORS(cfg.AllowedOrigins))

	h.RegisterRoutes(r)

	if cfg.Stream != nil {
		r.Get("/ws/sessions/{id}", cfg.Stream.ServeHTTP)
	}
	if cfg.Static != nil {
		r.Handle("/*", cfg.Static)
	}
	return r
}
