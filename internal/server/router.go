package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/loomworks/memoir/internal/api/handlers"
	"github.com/loomworks/memoir/internal/api/middleware"
)

type RouterConfig struct {
	APIKey        string
	IngestHandler *handlers.IngestHandler
	SearchHandler *handlers.SearchHandler
	MemoryHandler *handlers.MemoryHandler
	HealthHandler *handlers.HealthHandler
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	// Media uploads set the ceiling; JSON bodies are far smaller.
	const maxBodyBytes int64 = 32 * 1024 * 1024

	r.Use(middleware.RequestID)
	r.Use(middleware.SentryMiddleware)
	r.Use(middleware.AccessLog)
	r.Use(middleware.MaxBodyBytes(maxBodyBytes))

	r.Get("/health", cfg.HealthHandler.Live)
	r.Get("/health/detailed", cfg.HealthHandler.Detailed)

	r.Group(func(r chi.Router) {
		r.Use(middleware.StaticBearerAuth(cfg.APIKey))

		r.Route("/ingest", func(r chi.Router) {
			r.Post("/text", cfg.IngestHandler.Text)
			r.Post("/file", cfg.IngestHandler.File)
			r.Post("/email", cfg.IngestHandler.Email)
			r.Post("/chat", cfg.IngestHandler.Chat)
			r.Post("/audio", cfg.IngestHandler.Audio)
			r.Post("/image", cfg.IngestHandler.Image)
		})

		r.Post("/search", cfg.SearchHandler.Search)
		r.Get("/timeline", cfg.SearchHandler.Timeline)
		r.Delete("/memory/{id}", cfg.MemoryHandler.Delete)
	})

	return r
}
