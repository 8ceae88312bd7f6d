package router

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"noisedash/internal/api/handlers"
)

// NewRouter creates and configures the main Chi router
func NewRouter(h *handlers.ReadingsHandler) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(wrapHandlerFuncMiddleware(handlers.RateLimitMiddleware))
		r.Use(wrapHandlerFuncMiddleware(handlers.CORSMiddleware))

		// Liveness endpoints stay open
		r.Get("/health", h.Health)
		r.Get("/status", h.Status)

		// Reading endpoints, token-checked when CHECK_TOKEN is enabled
		r.Group(func(r chi.Router) {
			r.Use(wrapHandlerFuncMiddleware(handlers.AuthMiddleware))

			r.Get("/readings", h.Recent)
			r.Post("/readings", h.Ingest)
			r.Get("/readings/latest", h.Latest)
			r.Get("/readings/historical", h.Historical)
			r.Get("/devices", h.Devices)
		})
	})

	return r
}

// wrapHandlerFuncMiddleware adapts http.HandlerFunc middleware to work with Chi's http.Handler middleware
func wrapHandlerFuncMiddleware(middleware func(http.HandlerFunc) http.HandlerFunc) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return middleware(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, r)
		})
	}
}
