package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/upwatch/upwatch/internal/api/auth"
	"github.com/upwatch/upwatch/internal/api/handlers"
	apimw "github.com/upwatch/upwatch/internal/api/middleware"
	"github.com/upwatch/upwatch/internal/config"
	"github.com/upwatch/upwatch/internal/store"
)

// NewRouter wires the Admin API's middleware stack and routes.
func NewRouter(cfg *config.Config, authService *auth.Service, logger *slog.Logger, st *store.Store) http.Handler {
	r := chi.NewRouter()

	r.Use(apimw.RequestID)
	r.Use(apimw.Recovery(logger))
	r.Use(apimw.Logger(logger))

	if cfg.CORS.Enabled {
		r.Use(apimw.CORS(cfg.CORS.AllowedOrigins, cfg.CORS.AllowedMethods, cfg.CORS.AllowedHeaders, cfg.CORS.MaxAgeSeconds))
	}

	authHandler := handlers.NewAuthHandler(authService)
	monitorHandler := handlers.NewMonitorHandler(st)
	observationHandler := handlers.NewObservationHandler(st)
	incidentHandler := handlers.NewIncidentHandler(st)

	r.Get("/health", handlers.Health)

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/auth/login", authHandler.Login)

		r.Group(func(r chi.Router) {
			r.Use(apimw.JWTAuth(authService))

			r.Route("/monitors", func(r chi.Router) {
				r.Get("/", monitorHandler.List)
				r.Post("/", monitorHandler.Create)
				r.Get("/{id}", monitorHandler.Get)
				r.Put("/{id}", monitorHandler.Update)
				r.Delete("/{id}", monitorHandler.Delete)
				r.Get("/{id}/observations", observationHandler.List)
				r.Get("/{id}/incidents", incidentHandler.List)
				r.Get("/{id}/uptime", observationHandler.Uptime)
			})
		})
	})

	return r
}
