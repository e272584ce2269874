package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"gemini-relay/internal/handlers"
	"gemini-relay/internal/metrics"
	"gemini-relay/internal/middleware"
)

func New(
	chatHandler *handlers.ChatHandler,
	healthHandler *handlers.HealthHandler,
	m *metrics.Metrics,
	staticDir string,
	logger zerolog.Logger,
) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.RequestLogger(logger))
	r.Use(middleware.Recover(logger))

	r.Route("/api", func(r chi.Router) {
		r.Post("/chat", chatHandler.Chat)
		r.Get("/health", healthHandler.Check)
	})

	r.Method(http.MethodGet, "/metrics", m.Handler())

	// Anything else comes from the static directory (index.html at /).
	r.NotFound(http.FileServer(http.Dir(staticDir)).ServeHTTP)

	return r
}
