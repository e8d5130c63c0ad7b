package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/crispydelights/storefront/internal/service"
	"github.com/crispydelights/storefront/pkg/health"
	"github.com/crispydelights/storefront/pkg/middleware"
)

// RouterConfig carries the cross-cutting HTTP settings.
type RouterConfig struct {
	CORS       middleware.CORSConfig
	PprofCIDRs []string

	// Token buckets per client address and per session on the cart routes;
	// zero disables them.
	RateLimitRPS   float64
	RateLimitBurst int
}

// NewRouter creates a chi router with all storefront routes registered.
func NewRouter(
	svc *service.Storefront,
	healthHandler *health.Handler,
	logger *slog.Logger,
	cfg RouterConfig,
) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.CORS(cfg.CORS))
	r.Use(chimw.Compress(5))
	r.Use(chimw.Timeout(30 * time.Second))
	r.Use(middleware.RequestLogging(logger))
	r.Use(middleware.PrometheusMetrics("storefront"))
	r.Use(middleware.Tracing("storefront"))

	// Health check endpoints
	r.Get("/health/live", healthHandler.LivenessHandler())
	r.Get("/health/ready", healthHandler.ReadinessHandler())
	r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
		promhttp.Handler().ServeHTTP(w, r)
	})

	// Pprof debug endpoints with IP allowlist.
	middleware.RegisterPprof(r, cfg.PprofCIDRs, logger)

	h := NewStorefrontHandler(svc, logger)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(ContentTypeJSON)

		r.With(middleware.CacheControl(300), middleware.RequestLogger(logger)).Get("/menu", h.ListMenu)

		r.Route("/cart", func(r chi.Router) {
			r.Use(middleware.Session)
			r.Use(middleware.RateLimit(cfg.RateLimitRPS, cfg.RateLimitBurst, logger))
			r.Use(middleware.RequestLogger(logger))
			r.Use(middleware.NoStore)

			r.Get("/", h.GetCart)
			r.Delete("/", h.ClearCart)

			r.Post("/items", h.AddItem)
			r.Put("/items/{id}", h.UpdateItemQuantity)
			r.Delete("/items/{id}", h.RemoveItem)

			r.Put("/open", h.SetOpen)
			r.Put("/step", h.SetStep)
			r.Post("/checkout", h.Checkout)
			r.Get("/notifications", h.ListNotifications)
		})
	})

	return r
}
