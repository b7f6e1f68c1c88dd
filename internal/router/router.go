package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"pazzo-admin/internal/handler"
	"pazzo-admin/internal/middleware"
)

// Config holds the configuration for creating a router.
type Config struct {
	Handler        *handler.Handler
	RecordHandler  *handler.RecordHandler
	AuthHandler    *handler.AuthHandler
	AdminHandler   *handler.AdminHandler
	AuthMiddleware func(http.Handler) http.Handler
	Logger         *zap.Logger
}

// New creates and configures the twin HTTP router.
func New(cfg Config) *chi.Mux {
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}

	r := chi.NewRouter()

	// Global middleware stack (applies to ALL routes)
	r.Use(middleware.RequestID)
	r.Use(middleware.NewRecovery(log))
	r.Use(middleware.NewLogging(log))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	// PUBLIC routes
	if cfg.Handler != nil {
		r.Get("/api/status", cfg.Handler.Status)
		r.Get("/api/v1/health", cfg.Handler.Health)
	}
	if cfg.AuthHandler != nil {
		r.Post("/api/auth/login", cfg.AuthHandler.Login)
	}

	// Routes behind the bearer-token middleware
	r.Group(func(r chi.Router) {
		if cfg.AuthMiddleware != nil {
			r.Use(cfg.AuthMiddleware)
		}

		if cfg.RecordHandler != nil {
			cfg.RecordHandler.Routes(r)
		}

		if cfg.AuthHandler != nil {
			r.Post("/api/auth/logout", cfg.AuthHandler.Logout)
		}

		if cfg.AdminHandler != nil {
			r.Post("/api/admin/reset-password", cfg.AdminHandler.ResetPassword)
			r.Route("/api/v1/admin", func(r chi.Router) {
				r.Get("/stats", cfg.AdminHandler.GetStats)
				r.Post("/reset", cfg.AdminHandler.Reset)
			})
		}
	})

	return r
}
