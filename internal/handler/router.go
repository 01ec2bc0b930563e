package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/guloona/storefront-bff-go/internal/app"
	"github.com/guloona/storefront-bff-go/internal/domain"
	"github.com/guloona/storefront-bff-go/internal/infra/observability"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
)

var tracer = otel.Tracer("handler")

// Probe is a named dependency check reported by /healthz.
type Probe struct {
	Name  string
	Check func(ctx context.Context) error
}

// NewRouter creates the HTTP router with all routes and middleware.
func NewRouter(reg *app.Registry, probes []Probe, metrics *observability.Metrics, logger *zap.Logger) http.Handler {
	r := chi.NewRouter()

	// --- Middleware ---
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(observability.ZapLoggerMiddleware(logger))
	r.Use(observability.TracingMiddleware)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Heartbeat("/ping"))

	// --- Operational endpoints ---
	r.Get("/healthz", healthzHandler(probes, logger))
	r.Get("/readyz", readyzHandler())
	r.Handle("/metrics", promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}))

	// --- API v1 ---
	r.Route("/v1", func(r chi.Router) {
		r.Get("/metrics/sync", syncMetricsHandler(metrics))

		r.Group(func(r chi.Router) {
			r.Use(SessionMiddleware(reg, logger))

			// Session
			r.Get("/session", sessionGetHandler())
			r.Post("/session", sessionCreateHandler(logger))
			r.Post("/session/refresh", sessionRefreshHandler(logger))
			r.Delete("/session", sessionDeleteHandler(reg))

			// Cart
			r.Get("/cart", cartGetHandler())
			r.Delete("/cart", cartClearHandler())
			r.Post("/cart/items", cartAddHandler(logger))
			r.Put("/cart/items/{productId}/{size}", cartUpdateQuantityHandler(logger))
			r.Delete("/cart/items/{productId}/{size}", cartRemoveHandler(logger))
			r.Post("/cart/open", cartVisibilityHandler(func(s *app.Services) bool { return s.Cart.Open() }))
			r.Post("/cart/close", cartVisibilityHandler(func(s *app.Services) bool { return s.Cart.Close() }))
			r.Post("/cart/toggle", cartVisibilityHandler(func(s *app.Services) bool { return s.Cart.Toggle() }))

			// Profile
			r.Get("/profile", profileGetHandler())
			r.Patch("/profile", profileUpdateHandler(logger))
			r.Post("/profile/refresh", profileRefreshHandler())
			r.Post("/profile/custom-order", profileCustomOrderHandler(logger))
		})
	})

	return r
}

func healthzHandler(probes []Probe, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
		defer cancel()
		now := time.Now().Format(time.RFC3339)

		services := []domain.ServiceHealth{
			{Name: "storefront-bff", Status: "healthy", LastChecked: now},
		}

		overallStatus := "healthy"
		for _, p := range probes {
			start := time.Now()
			err := p.Check(ctx)
			status := "healthy"
			if err != nil {
				status = "degraded"
				overallStatus = "degraded"
				logger.Warn("health probe failed", zap.String("dependency", p.Name), zap.Error(err))
			}
			services = append(services, domain.ServiceHealth{
				Name:        p.Name,
				Status:      status,
				LatencyMs:   time.Since(start).Milliseconds(),
				LastChecked: now,
			})
		}

		writeJSON(w, http.StatusOK, domain.HealthStatus{
			Status:   overallStatus,
			Services: services,
		})
	}
}

func readyzHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	}
}

func syncMetricsHandler(metrics *observability.Metrics) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, metrics.GetSyncSnapshot())
	}
}
