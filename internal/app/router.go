package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"github.com/tracechain/tracechain/internal/config"
	"github.com/tracechain/tracechain/internal/handler"
	"github.com/tracechain/tracechain/internal/metrics"
	"github.com/tracechain/tracechain/internal/middleware"
)

// routes groups the handlers a tier mounts. Forward is nil on the data
// tier and Data is nil on forwarding tiers.
type routes struct {
	Base     *handler.Handler
	Health   *handler.HealthHandler
	Metrics  http.Handler
	Workload *handler.WorkloadHandler
	Forward  *handler.ForwardHandler
	Data     *handler.DataHandler
}

// newRouter configures the chi router with all routes and middleware.
func newRouter(
	cfg *config.Config,
	rt routes,
	tracer trace.Tracer,
	propagator propagation.TextMapPropagator,
	recorder metrics.Recorder,
	logger *slog.Logger,
) *chi.Mux {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.Tracing(tracer, propagator))
	r.Use(middleware.Logger(logger))
	r.Use(middleware.Metrics(recorder))
	r.Use(middleware.Recoverer(cfg.ServiceName, logger))
	r.Use(middleware.SecurityHeaders(cfg.IsProduction()))
	if len(cfg.CORSAllowedOrigins) > 0 {
		cors := middleware.DefaultCORSConfig()
		cors.AllowedOrigins = cfg.CORSAllowedOrigins
		r.Use(middleware.CORS(cors))
	}

	// Operational endpoints
	r.Get("/healthz", rt.Health.Healthz)
	r.Get("/readyz", rt.Health.Readyz)
	r.Method(http.MethodGet, "/metrics", rt.Metrics)

	r.Route("/api", func(r chi.Router) {
		r.Get("/hello", rt.Workload.Hello)
		r.Get("/health", rt.Base.Health)

		// Workload generators, identical on every tier
		r.Get("/compute/primes/{limit}", rt.Workload.Primes)
		r.Get("/compute/hash/{iterations}", rt.Workload.Hash)
		r.Get("/memory/allocate/{sizeMb}", rt.Workload.Allocate)
		r.Get("/memory/process/{itemCount}", rt.Workload.Process)
		r.Get("/slow/database/{delayMs}", rt.Workload.SlowQuery)
		r.Get("/simulate/error", rt.Workload.SimulateError)

		switch cfg.Tier {
		case config.TierFront:
			r.Get("/users/{id}", rt.Forward.User)
			r.Get("/orders/{id}", rt.Forward.Order)
			r.Get("/user/{id}", rt.Forward.User)
			r.Get("/order/{id}", rt.Forward.Order)
		case config.TierMiddle:
			r.Get("/user/{id}", rt.Forward.User)
			r.Get("/order/{id}", rt.Forward.Order)
		case config.TierData:
			r.Route("/data", func(r chi.Router) {
				r.Get("/health", rt.Base.Health)
				r.Get("/users", rt.Data.ListUsers)
				r.Get("/orders", rt.Data.ListOrders)
				r.Get("/user/{id}", rt.Data.GetUser)
				r.Get("/user/{id}/orders", rt.Data.ListUserOrders)
				r.Get("/order/{id}", rt.Data.GetOrder)

				r.Group(func(r chi.Router) {
					r.Use(middleware.MaxBodySize(cfg.MaxRequestBodySize))
					r.Post("/user", rt.Data.CreateUser)
					r.Post("/order", rt.Data.CreateOrder)
				})
			})
		}
	})

	// 404 and 405 handlers
	r.NotFound(rt.Base.NotFound)
	r.MethodNotAllowed(rt.Base.MethodNotAllowed)

	return r
}
