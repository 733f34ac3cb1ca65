package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"marketplates/internal/config"
	"marketplates/internal/handler"
	"marketplates/internal/middleware"
)

type Handlers struct {
	Auth   *handler.AuthHandler
	CSRF   *handler.CSRFHandler
	User   *handler.UserHandler
	Health *handler.HealthHandler
}

func New(
	cfg *config.Config,
	authMiddleware *middleware.AuthMiddleware,
	csrfMiddleware *middleware.CSRFMiddleware,
	h Handlers,
) http.Handler {
	r := chi.NewRouter()
	rateLimitMiddleware := middleware.NewRateLimitMiddleware(cfg.RateLimitRPM, cfg.AuthRateLimitRPM)

	r.Use(middleware.RealIP(cfg.TrustedProxies))
	r.Use(middleware.Recovery)
	r.Use(middleware.Logging)
	r.Use(middleware.Metrics)
	r.Use(middleware.CORS(cfg.CORSOrigins))
	r.Use(middleware.SecurityHeaders)

	r.Get("/health", h.Health.Health)
	r.Handle("/metrics", promhttp.Handler())

	r.Group(func(api chi.Router) {
		api.Use(rateLimitMiddleware.Handler)
		api.Use(middleware.Timeout(cfg.RequestTimeout))

		api.Route("/auth", func(auth chi.Router) {
			auth.Post("/login", h.Auth.Login)
			auth.Post("/logout", h.Auth.Logout)
			auth.Get("/checkSession", h.Auth.CheckSession)
			auth.Post("/accessToken", h.Auth.AccessToken)
		})

		api.Get("/csrfGeneration", h.CSRF.Generate)

		api.Route("/users", func(users chi.Router) {
			users.Post("/", h.User.Register)

			users.Group(func(protected chi.Router) {
				protected.Use(authMiddleware.RequireAuth)
				protected.Use(csrfMiddleware.Protect)

				protected.Get("/{id}", h.User.Get)
				protected.Put("/{id}", h.User.Update)
				protected.Delete("/{id}", h.User.Delete)
			})
		})
	})

	return r
}
