package router

import (
	"torn-bazaar-api/internal/handler"
	"torn-bazaar-api/internal/middleware"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
)

// Config holds the configuration for creating a router.
type Config struct {
	Handler         *handler.Handler
	ListingsHandler *handler.ListingsHandler
	AdminHandler    *handler.AdminHandler
}

// New creates and configures the HTTP router.
func New(cfg Config) *chi.Mux {
	r := chi.NewRouter()

	// Global middleware stack (applies to ALL routes)
	r.Use(middleware.Recovery)
	r.Use(middleware.RequestID)
	r.Use(middleware.Logging)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-ID"},
		ExposedHeaders: []string{"X-Request-ID"},
		MaxAge:         300,
	}))

	if cfg.Handler != nil {
		r.Get("/api/status", cfg.Handler.Status)
	}

	r.Route("/api/v1", func(r chi.Router) {
		if cfg.Handler != nil {
			r.Get("/health", cfg.Handler.Health)
		}

		if cfg.ListingsHandler != nil {
			r.Get("/listings/{itemID}", cfg.ListingsHandler.GetListings)
			r.Get("/live-search/{itemID}", cfg.ListingsHandler.LiveSearch)
			r.Get("/find/{itemID}", cfg.ListingsHandler.FindCached)
			r.Get("/stats", cfg.ListingsHandler.GetStats)
		}

		if cfg.AdminHandler != nil {
			r.Route("/admin", func(r chi.Router) {
				r.Post("/cache/clear", cfg.AdminHandler.ClearCache)
				r.Post("/scan", cfg.AdminHandler.TriggerScan)
			})
		}
	})

	return r
}
