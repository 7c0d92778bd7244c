package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/MiSArch/wishlist/internal/handler/graph"
	"github.com/MiSArch/wishlist/pkg/health"
	"github.com/MiSArch/wishlist/pkg/middleware"
)

// NewRouter creates a chi router with the wishlist service routes registered.
func NewRouter(
	graphHandler *graph.Handler,
	healthHandler *health.Handler,
	pprofCIDRs []string,
	logger *slog.Logger,
) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.Recovery(logger))
	r.Use(chimw.Compress(5))
	r.Use(chimw.Timeout(30 * time.Second))
	r.Use(middleware.RequestLogging(logger))
	r.Use(middleware.PrometheusMetrics("wishlist"))
	r.Use(middleware.Tracing("wishlist"))
	r.Use(middleware.Identity())
	r.Use(middleware.RequestLogger(logger))

	// Health check endpoints
	r.Get("/health/live", healthHandler.LivenessHandler())
	r.Get("/health/ready", healthHandler.ReadinessHandler())
	r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
		promhttp.Handler().ServeHTTP(w, r)
	})

	middleware.RegisterPprof(r, pprofCIDRs, logger)

	// The whole API surface is the query/mutation graph.
	r.Post("/graphql", graphHandler.ServeHTTP)

	return r
}
