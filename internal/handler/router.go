package handler

import (
	"net/http"

	"github.com/portalcadastro/cadastro-api/internal/infra/observability"
	"github.com/portalcadastro/cadastro-api/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
)

var tracer = otel.Tracer("handler")

// Options carries the router knobs that are not service dependencies.
type Options struct {
	// AdminJWTSecret validates the Bearer token of the admin performing a
	// client registration. Empty disables token validation entirely.
	AdminJWTSecret string
	// RequireAdminToken rejects client registrations without a token.
	RequireAdminToken bool
	// RateLimit, when non-nil, wraps the registration endpoints.
	RateLimit func(http.Handler) http.Handler
}

// NewRouter creates the HTTP router with all routes and middleware.
func NewRouter(svc *service.RegistrationService, metrics *observability.Metrics, logger *zap.Logger, opts Options) http.Handler {
	r := chi.NewRouter()

	// --- Middleware ---
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(observability.ZapLoggerMiddleware(logger))
	r.Use(observability.TracingMiddleware)
	r.Use(jsonRecoverer(logger))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Authorization", "X-Client-Info", "apikey", "Content-Type"},
	}))
	r.Use(middleware.Heartbeat("/ping"))

	// --- Operational endpoints ---
	r.Get("/healthz", healthzHandler())
	r.Get("/readyz", readyzHandler())
	r.Handle("/metrics", promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}))

	// --- API v1 ---
	r.Route("/v1", func(r chi.Router) {
		r.Get("/metrics/registrations", registrationMetricsHandler(svc))

		r.Route("/registrations", func(r chi.Router) {
			if opts.RateLimit != nil {
				r.Use(opts.RateLimit)
			}

			// Client registrations are performed by a logged-in admin,
			// so the endpoint can demand that admin's token.
			r.Group(func(r chi.Router) {
				if opts.AdminJWTSecret != "" {
					r.Use(AdminTokenMiddleware(opts.AdminJWTSecret, opts.RequireAdminToken, logger))
				}
				r.Post("/clients", registerClientHandler(svc, logger))
			})

			// Admin self-registration is unauthenticated.
			r.Post("/admins", registerAdminHandler(svc, logger))
		})
	})

	return r
}
