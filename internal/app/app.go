// Package app wires a tier from its configuration: storage, event bus,
// tracing, metrics, services, handlers and the HTTP server.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"github.com/tracechain/tracechain/internal/config"
	"github.com/tracechain/tracechain/internal/downstream"
	"github.com/tracechain/tracechain/internal/events"
	"github.com/tracechain/tracechain/internal/handler"
	"github.com/tracechain/tracechain/internal/metrics"
	"github.com/tracechain/tracechain/internal/repository"
	"github.com/tracechain/tracechain/internal/server"
	"github.com/tracechain/tracechain/internal/service"
	"github.com/tracechain/tracechain/internal/telemetry"
	"github.com/tracechain/tracechain/internal/workload"
)

type component struct {
	name string
	fn   server.ShutdownFunc
}

// App is one fully wired tier.
type App struct {
	cfg        *config.Config
	logger     *slog.Logger
	registry   *prometheus.Registry
	recorder   metrics.Recorder
	tracer     trace.Tracer
	propagator propagation.TextMapPropagator
	router     http.Handler

	// closers run LIFO on shutdown; workers run until shutdown begins.
	closers []component
	workers []*events.Worker
}

// Main loads configuration for tier, runs it until a shutdown signal and
// exits the process on failure.
func Main(tier config.Tier) {
	ctx := context.Background()

	cfg, err := config.Load(tier)
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := NewLogger(cfg, os.Stdout)
	slog.SetDefault(logger)

	a, err := New(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to start", "error", err)
		os.Exit(1)
	}

	if err := a.Run(ctx); err != nil {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}
}

// New builds every dependency of the tier described by cfg.
// On error, anything already opened is closed.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (_ *App, err error) {
	a := &App{
		cfg:      cfg,
		logger:   logger,
		registry: prometheus.NewRegistry(),
	}
	defer func() {
		if err != nil {
			a.closeAll(context.Background())
		}
	}()

	shutdownTracing, err := telemetry.Setup(ctx, telemetry.Options{
		ServiceName: cfg.ServiceName,
		Tier:        string(cfg.Tier),
		Environment: cfg.AppEnv,
		Exporter:    telemetry.Exporter(cfg.TracesExporter),
		Endpoint:    cfg.OTLPEndpoint,
		Insecure:    cfg.OTLPInsecure,
	})
	if err != nil {
		return nil, fmt.Errorf("setup tracing: %w", err)
	}
	a.onClose("tracer", server.ShutdownFunc(shutdownTracing))
	a.tracer = telemetry.Tracer()
	a.propagator = otel.GetTextMapPropagator()

	a.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	prom, err := metrics.NewPrometheus(a.registry, cfg.ServiceName)
	if err != nil {
		return nil, fmt.Errorf("register metrics: %w", err)
	}
	a.recorder = prom

	var bus *events.Bus
	if cfg.RedisURL != "" {
		bus, err = events.Connect(ctx, cfg.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("connect to Redis at %s: %s", redactURL(cfg.RedisURL), sanitizeError(err, cfg.RedisURL))
		}
		a.onClose("redis", func(context.Context) error { return bus.Close() })
		logger.Info("connected to Redis")
	}

	rt := routes{
		Base:    handler.New(cfg.ServiceName),
		Metrics: handler.NewMetricsHandler(a.registry),
		Workload: handler.NewWorkloadHandler(
			service.NewWorkloadService(workloadConfig(cfg), workload.NewRand(cfg.RandomSeed), a.tracer, a.recorder, logger),
			cfg.ServiceName, logger),
	}

	var db, cache, next handler.HealthChecker
	if bus != nil {
		cache = bus
	}

	if cfg.Tier.Forwards() {
		httpClient := downstream.NewHTTPClient(cfg.DownstreamTimeout)
		client := downstream.New(httpClient, downstreamName(cfg.Tier),
			a.tracer, a.propagator, a.recorder, logger)
		fwd := service.NewForwardService(forwardProfile(cfg), client, a.recorder, logger)
		rt.Forward = handler.NewForwardHandler(fwd, cfg.ServiceName, logger)
		next = downstream.NewProbe(httpClient, cfg.DownstreamURL)
	}

	if cfg.Tier == config.TierData {
		store, checker, err := a.openStore(ctx)
		if err != nil {
			return nil, err
		}
		db = checker

		var publisher service.EventPublisher
		if bus != nil {
			publisher = events.NewPublisher(bus.Client(), cfg.EventStream, logger, a.recorder)
		}
		data := service.NewDataService(cfg.ServiceName, store, publisher, a.recorder, logger)
		rt.Data = handler.NewDataHandler(data, cfg.ServiceName, logger)
	}

	if cfg.ConsumesEvents() && bus != nil {
		worker := events.NewWorker(bus.Client(), cfg.EventStream, cfg.EventGroup, events.NewConsumerID(cfg.ServiceName),
			events.LogHandler(logger.With("component", "events.handler"), cfg.ProcessingDelay()), logger, a.recorder)
		a.workers = append(a.workers, worker)
	}

	rt.Health = handler.NewHealthHandler(db, cache, next)
	a.router = newRouter(cfg, rt, a.tracer, a.propagator, a.recorder, logger)

	return a, nil
}

// Handler returns the tier's HTTP handler.
func (a *App) Handler() http.Handler {
	return a.router
}

// Run serves HTTP and the event consumer until ctx ends or a signal arrives.
func (a *App) Run(ctx context.Context) error {
	srv := server.New(a.router, server.Options{
		Port:            a.cfg.AppPort,
		ReadTimeout:     a.cfg.ReadTimeout,
		WriteTimeout:    a.cfg.WriteTimeout,
		ShutdownTimeout: a.cfg.ShutdownTimeout,
	}, a.logger)

	// Registered first so they stop last.
	for _, c := range a.closers {
		srv.OnShutdown(c.name, c.fn)
	}
	for _, w := range a.workers {
		srv.Go("events.worker", w.Run)
		srv.OnShutdown("events.worker", w.Shutdown)
	}

	a.logger.Info("starting server",
		"port", a.cfg.AppPort,
		"env", a.cfg.AppEnv,
		"downstream", a.cfg.DownstreamURL,
		"traces_exporter", a.cfg.TracesExporter,
	)
	return srv.Run(ctx)
}

// Close releases everything New opened. Run does this itself on shutdown.
func (a *App) Close(ctx context.Context) {
	a.closeAll(ctx)
}

// openStore connects to PostgreSQL when configured, applying migrations
// first, and falls back to the in-memory store otherwise.
func (a *App) openStore(ctx context.Context) (service.RecordStore, handler.HealthChecker, error) {
	cfg := a.cfg
	if cfg.DatabaseURL == "" {
		a.logger.Warn("DATABASE_URL not set, using in-memory record store")
		return repository.NewMemory(), nil, nil
	}

	if cfg.RunMigrations {
		db, err := repository.OpenMigrationDB(cfg.DatabaseURL)
		if err != nil {
			return nil, nil, fmt.Errorf("open migration connection: %s", sanitizeError(err, cfg.DatabaseURL))
		}
		err = repository.Migrate(ctx, db, a.logger)
		_ = db.Close()
		if err != nil {
			return nil, nil, fmt.Errorf("migrate: %s", sanitizeError(err, cfg.DatabaseURL))
		}
	}

	repo, err := repository.New(ctx, cfg.DatabaseURL, cfg.DatabaseMaxConns)
	if err != nil {
		return nil, nil, fmt.Errorf("connect to database at %s: %s", redactURL(cfg.DatabaseURL), sanitizeError(err, cfg.DatabaseURL))
	}
	a.onClose("postgres", func(context.Context) error {
		repo.Close()
		return nil
	})
	a.logger.Info("connected to database")
	return repo, repo, nil
}

func (a *App) onClose(name string, fn server.ShutdownFunc) {
	a.closers = append(a.closers, component{name: name, fn: fn})
}

func (a *App) closeAll(ctx context.Context) {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i].fn(ctx); err != nil {
			a.logger.Warn("close failed", "name", a.closers[i].name, "error", err)
		}
	}
	a.closers = nil
}
