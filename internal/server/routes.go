package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/MrEthical07/goSession/metrics/export/prometheus"
	"github.com/MrEthical07/goSession/middleware"
)

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RealIP)
	r.Use(requestContext)
	r.Use(requestLogger)
	r.Use(chimiddleware.Recoverer)
	if s.cfg.RequestTimeout > 0 {
		r.Use(chimiddleware.Timeout(s.cfg.RequestTimeout))
	}

	if len(s.cfg.AllowedOrigins) > 0 {
		allowed := []string{
			"Content-Type",
			middleware.HeaderAuthorization,
			middleware.HeaderRefreshToken,
			middleware.HeaderAntiCSRF,
		}
		if header := s.engine.AntiCSRFHeader(); header != "" {
			allowed = append(allowed, header)
		}
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   s.cfg.AllowedOrigins,
			AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
			AllowedHeaders:   allowed,
			ExposedHeaders:   middleware.ExposedHeaders(),
			AllowCredentials: true,
			MaxAge:           300,
		}))
	}

	r.Get("/healthz", s.handleHealth)
	r.Method(http.MethodGet, "/metrics", prometheus.NewPrometheusExporter(s.engine).Handler())

	r.Route("/auth", func(r chi.Router) {
		r.Method(http.MethodPost, "/session/refresh", middleware.RefreshHandler(s.engine))
		r.Method(http.MethodPost, "/signout", middleware.SignOutHandler(s.engine))

		r.With(middleware.VerifySession(s.engine, middleware.Options{})).
			Get("/session", s.handleSessionInfo)

		if s.cfg.AllowDemoCreate {
			r.Post("/session", s.handleCreateSession)
		}
	})

	return r
}
