package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/okian/sportsmeet/internal/adapters/http/api"
	"github.com/okian/sportsmeet/internal/adapters/http/swagger"
	"github.com/okian/sportsmeet/internal/adapters/repository"
	app "github.com/okian/sportsmeet/internal/app"
	"github.com/okian/sportsmeet/internal/config"
	"github.com/okian/sportsmeet/internal/domain/dedupe"
	"github.com/okian/sportsmeet/internal/domain/model"
	"github.com/okian/sportsmeet/pkg/logger"
	"github.com/okian/sportsmeet/pkg/metrics"
)

// HTTP server timeout constants.
const (
	readTimeout               = 10 * time.Second
	writeTimeout              = 15 * time.Second
	idleTimeout               = 60 * time.Second
	readHeaderTimeout         = 5 * time.Second
	shutdownTimeout           = 30 * time.Second
	systemMetricsInterval     = 10 * time.Second
	nanosecondsPerMillisecond = 1e6
)

func main() {
	// Disable default Go metrics collection to avoid duplicate metrics
	// We collect our own custom system metrics instead
	prometheus.Unregister(collectors.NewGoCollector())
	prometheus.Unregister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	if err := config.LoadDotEnv(); err != nil {
		os.Stderr.WriteString("failed to load .env: " + err.Error() + "\n")
		return
	}

	// Root context with cancel on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Load configuration (defaults -> optional file -> env)
	cfg, err := config.Load(ctx)
	if err != nil {
		// Use fmt for initialization errors since logger isn't available yet
		os.Stderr.WriteString("failed to load config: " + err.Error() + "\n")
		return
	}

	if err := logger.Init(logger.WithFormat(cfg.LogFormat)); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		return
	}
	defer func() { _ = logger.Sync() }()

	loggerInstance := logger.Get()

	// Apply configured log level (fallback to info on invalid input)
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		loggerInstance.Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}

	store, err := repository.Open(ctx, storeSettings(cfg))
	if err != nil {
		loggerInstance.Error(ctx, "failed to open store", logger.String("driver", cfg.StoreDriver), logger.Error(err))
		return
	}

	svc := app.New(serviceOptions(cfg, store, loggerInstance)...)
	if err := svc.Start(ctx); err != nil {
		loggerInstance.Error(ctx, "failed to start service", logger.Error(err))
		_ = store.Close()
		return
	}
	defer svc.Stop()

	// Start system metrics updater
	go startSystemMetricsUpdater(ctx)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           newRouter(ctx, cfg, svc),
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	// Start the HTTP server
	go func() {
		loggerInstance.Info(ctx, "starting HTTP server",
			logger.String("addr", cfg.Addr), logger.String("driver", store.Driver()))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			loggerInstance.Error(ctx, "HTTP server failed", logger.Error(err))
			stop()
		}
	}()

	// Wait for shutdown signal
	<-ctx.Done()
	loggerInstance.Info(ctx, "shutting down server...")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		loggerInstance.Error(ctx, "server shutdown failed", logger.Error(err))
	}

	loggerInstance.Info(ctx, "server stopped")
}

func storeSettings(cfg *config.Config) repository.Settings {
	return repository.Settings{
		Driver:                cfg.StoreDriver,
		RedisAddr:             cfg.RedisAddr,
		RedisPassword:         cfg.RedisPassword,
		RedisDB:               cfg.RedisDB,
		RedisPrefix:           cfg.RedisPrefix,
		DynamoRegion:          cfg.DynamoDBRegion,
		DynamoEndpoint:        cfg.DynamoDBEndpoint,
		DynamoConsistentReads: cfg.DynamoDBConsistentReads,
	}
}

// serviceOptions translates the configuration into service options.
func serviceOptions(cfg *config.Config, store repository.Store, log logger.Logger) []app.Option {
	events := make([]model.CatalogEvent, 0, len(cfg.Events))
	for _, e := range cfg.Events {
		events = append(events, model.CatalogEvent{ID: e.ID, Name: e.Name, Category: e.Category})
	}
	return []app.Option{
		app.WithStore(store),
		app.WithTables(repository.NewTables(cfg.TableScores, cfg.TableParticipants, cfg.TableRegistrations, cfg.TableSchools)),
		app.WithLogger(log),
		app.WithMaxBatchItems(cfg.MaxBatchItems),
		app.WithScoreboardLimits(cfg.TopSchools, cfg.RecentWinners),
		app.WithAttendanceFanOut(cfg.AttendanceFanOut),
		app.WithTieBreak(cfg.TieBreak),
		app.WithPositionPoints(cfg.PositionPoints),
		app.WithEvents(events),
	}
}

// newRouter mounts the business API and the API reference.
func newRouter(ctx context.Context, cfg *config.Config, svc *app.Service) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(api.RequestContext)

	opts := []api.ServerOption{api.WithRateLimit(cfg.RateLimitRPS, cfg.RateLimitBurst)}
	if cfg.IdempotencyTTL > 0 {
		opts = append(opts, api.WithIdempotency(dedupe.NewGuard(dedupe.WithTTL(cfg.IdempotencyTTL))))
	}

	swagger.Register(ctx, r)
	api.NewServer(svc, svc, opts...).Register(ctx, r)
	return r
}

// startSystemMetricsUpdater starts a background goroutine that updates system metrics.
func startSystemMetricsUpdater(ctx context.Context) {
	ticker := time.NewTicker(systemMetricsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			updateSystemMetrics()
		}
	}
}

// updateSystemMetrics updates system-level metrics.
func updateSystemMetrics() {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	var lastPauseMs float64
	if m.NumGC > 0 {
		lastPauseMs = float64(m.PauseNs[(m.NumGC+255)%256]) / nanosecondsPerMillisecond
	}
	metrics.UpdateSystem(m.HeapAlloc, runtime.NumGoroutine(), lastPauseMs)
}
