package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"silverpulse/internal/config"
	apierrors "silverpulse/internal/errors"
	"silverpulse/internal/history"
	"silverpulse/internal/infrastructure"
	customMiddleware "silverpulse/internal/middleware"
	"silverpulse/internal/operations"
	"silverpulse/internal/scheduler"
	"silverpulse/internal/services"
	"silverpulse/internal/sources"
	handlers "silverpulse/internal/transport/http"
	ws "silverpulse/internal/websocket"
)

// Application represents the main application container
type Application struct {
	Config        *config.Config
	Paths         *config.Paths
	Logger        *slog.Logger
	OTelProviders *infrastructure.OTelProviders
	Metrics       *infrastructure.FetchMetrics

	Executor         *operations.Executor
	History          *history.Store
	DashboardService *services.DashboardService
	HealthService    *services.HealthService
	WebSocketHub     *ws.Hub
	Scheduler        *scheduler.Scheduler

	Router *chi.Mux
	Server *http.Server
}

// NewApplication loads the configuration and builds the application
func NewApplication() (*Application, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	return New(cfg)
}

// New wires every component from cfg. Nothing is started.
func New(cfg *config.Config) (*Application, error) {
	paths, err := cfg.GetPaths()
	if err != nil {
		return nil, fmt.Errorf("failed to get paths: %w", err)
	}
	if err := paths.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("failed to ensure directories: %w", err)
	}

	logger, err := infrastructure.InitializeLogger(cfg.Logging, paths.LogFile)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	logger.Info("Application starting",
		slog.String("name", config.AppName),
		slog.String("version", config.AppVersion))
	paths.LogPathResolution(logger)

	otelProviders, err := infrastructure.InitializeOTel(infrastructure.OTelConfigFrom(cfg.Telemetry), logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize OpenTelemetry: %w", err)
	}

	metrics, err := infrastructure.CreateFetchMetrics(otelProviders.Meter)
	if err != nil {
		return nil, fmt.Errorf("failed to create fetch metrics: %w", err)
	}

	app := &Application{
		Config:        cfg,
		Paths:         paths,
		Logger:        logger,
		OTelProviders: otelProviders,
		Metrics:       metrics,
	}

	if err := app.initializeServices(sources.BuildAdapters(cfg, paths.ReportCacheFile, logger)); err != nil {
		return nil, fmt.Errorf("failed to initialize services: %w", err)
	}

	app.setupRouter()
	app.createServer()

	return app, nil
}

// initializeServices builds the refresh pipeline around adapters
func (a *Application) initializeServices(adapters []sources.Adapter) error {
	store, err := history.Open(a.Paths.HistoryFile, a.Logger)
	if err != nil {
		return fmt.Errorf("failed to open history: %w", err)
	}
	a.History = store

	a.Executor = operations.NewExecutor(adapters, a.Config.Sources, a.Metrics, a.Logger)

	deps := services.DashboardDeps{
		Fetcher: a.Executor,
		Store:   store,
		Metrics: a.Metrics,
	}
	for _, ad := range adapters {
		if wh, ok := ad.(*sources.WarehouseAdapter); ok {
			deps.Reports = wh
		}
	}
	if a.Config.History.BackfillEnabled {
		deps.Backfiller = history.NewBackfiller(store, a.Config.History, a.Config.Sources, a.Logger)
	}

	hub := ws.NewHub(a.Logger)
	deps.Hub = hub
	a.WebSocketHub = hub

	a.DashboardService = services.NewDashboardService(deps, a.Logger)
	hub.SetSnapshotFunc(func() (interface{}, bool) {
		state, err := a.DashboardService.State()
		if err != nil {
			return nil, false
		}
		return state, true
	})

	a.HealthService = services.NewHealthService(
		config.AppVersion,
		config.PathsConfig{BaseDir: a.Paths.BaseDir, DataDir: a.Paths.DataDir, LogsDir: a.Paths.LogsDir},
		a.DashboardService,
		hub,
		a.Logger,
	)

	a.Scheduler = scheduler.New(a.DashboardService, a.Config.Server.RefreshTimeout, a.Logger)
	return nil
}

// setupRouter configures the HTTP router with all routes
func (a *Application) setupRouter() {
	r := chi.NewRouter()
	errorHandler := apierrors.NewErrorHandler(a.Logger, false)

	// these do not wrap the ResponseWriter and are safe for the WebSocket upgrade
	r.Use(customMiddleware.RequestID)
	r.Use(customMiddleware.RealIP)
	r.NotFound(errorHandler.NotFound)
	r.MethodNotAllowed(errorHandler.MethodNotAllowed)

	r.Handle("/ws", handlers.NewWebSocketHandler(a.WebSocketHub, a.Config.WebSocket, a.Logger))
	r.Handle("/metrics", handlers.NewMetricsHandler(a.OTelProviders.PrometheusHTTP))

	r.Group(func(r chi.Router) {
		// RequestID → RealIP → OTel → Logger → Recoverer → Timeout
		if otelMiddleware, err := customMiddleware.NewOTelMiddleware(a.OTelProviders); err != nil {
			a.Logger.Error("Failed to create OpenTelemetry middleware", slog.String("error", err.Error()))
		} else {
			r.Use(otelMiddleware.Handler)
		}
		r.Use(customMiddleware.StructuredLogger(a.Logger))
		r.Use(customMiddleware.Recoverer(errorHandler))
		r.Use(customMiddleware.SecurityHeaders)
		r.Use(customMiddleware.Compress(5))

		if rl := a.Config.Security.RateLimit; rl.Enabled {
			r.Use(customMiddleware.NewRateLimiter(rl.RPS, rl.Burst, a.Logger, errorHandler).Handler)
		}

		a.setupAPIRoutes(r, errorHandler)
	})

	a.Router = r
}

// setupAPIRoutes configures API endpoints
func (a *Application) setupAPIRoutes(r chi.Router, errorHandler *apierrors.ErrorHandler) {
	dashboardHandler := handlers.NewDashboardHandler(a.DashboardService, a.Logger, errorHandler)
	healthHandler := handlers.NewHealthHandler(a.HealthService, a.Logger)

	r.Route("/api", func(r chi.Router) {
		r.Use(render.SetContentType(render.ContentTypeJSON))

		r.Group(func(r chi.Router) {
			r.Use(customMiddleware.Timeout(a.Config.Server.ReadTimeout))

			r.Get("/health", healthHandler.HealthCheck)
			r.Get("/health/ready", healthHandler.ReadinessCheck)
			r.Get("/health/live", healthHandler.LivenessCheck)
			r.Get("/version", healthHandler.Version)

			r.Mount("/history", dashboardHandler.HistoryRoutes())
			r.Get("/sources", dashboardHandler.GetSources)
		})

		// refresh cycles run under the refresh timeout
		r.With(customMiddleware.Timeout(a.Config.Server.RefreshTimeout)).
			Mount("/dashboard", dashboardHandler.Routes())
	})
}

// createServer creates the HTTP server
func (a *Application) createServer() {
	a.Server = &http.Server{
		Addr:         fmt.Sprintf(":%d", a.Config.Server.Port),
		Handler:      a.Router,
		ReadTimeout:  a.Config.Server.ReadTimeout,
		WriteTimeout: a.Config.Server.WriteTimeout,
		IdleTimeout:  a.Config.Server.IdleTimeout,
	}
}

// Start starts the hub, the HTTP server and the scheduler. Server failures
// call cancel.
func (a *Application) Start(ctx context.Context, cancel context.CancelFunc) error {
	a.Logger.InfoContext(ctx, "Starting application",
		slog.String("name", config.AppName),
		slog.String("version", config.AppVersion),
		slog.Int("port", a.Config.Server.Port),
		slog.String("level", a.Config.Logging.Level))

	a.WebSocketHub.Start()

	go func() {
		if err := a.Server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.Logger.ErrorContext(ctx, "Server error", slog.String("error", err.Error()))
			cancel()
		}
	}()

	if err := a.performStartupHealthCheck(ctx); err != nil {
		a.Logger.WarnContext(ctx, "Startup health check warnings", slog.String("warnings", err.Error()))
	}

	if a.Config.Scheduler.Enabled {
		if err := a.Scheduler.Start(a.Config.Scheduler.Schedule, a.Config.Scheduler.RunOnStart); err != nil {
			return fmt.Errorf("failed to start scheduler: %w", err)
		}
	} else if a.Config.Scheduler.RunOnStart {
		go a.refreshOnce(services.TriggerStartup)
	}

	a.Logger.InfoContext(ctx, "Application started successfully",
		slog.String("address", fmt.Sprintf("http://localhost:%d", a.Config.Server.Port)))
	return nil
}

func (a *Application) refreshOnce(trigger string) {
	ctx, cancel := context.WithTimeout(context.Background(), a.Config.Server.RefreshTimeout)
	defer cancel()
	if _, err := a.DashboardService.Refresh(ctx, false, trigger); err != nil {
		a.Logger.Error("Startup refresh failed", slog.String("error", err.Error()))
	}
}

// Stop gracefully stops the application
func (a *Application) Stop(ctx context.Context) error {
	a.Logger.InfoContext(ctx, "Shutting down application")

	shutdownCtx, cancel := context.WithTimeout(ctx, a.Config.Server.ShutdownTimeout)
	defer cancel()

	var errs []error
	if err := a.Server.Shutdown(shutdownCtx); err != nil {
		errs = append(errs, fmt.Errorf("server shutdown error: %w", err))
	}

	a.Scheduler.Stop()
	a.WebSocketHub.Stop()

	if err := a.Close(shutdownCtx); err != nil {
		errs = append(errs, err)
	}

	a.Logger.InfoContext(ctx, "Application shutdown complete")
	return errors.Join(errs...)
}

// Close flushes telemetry and closes the log file. CLI binaries that never
// call Start use it instead of Stop.
func (a *Application) Close(ctx context.Context) error {
	var errs []error
	if a.OTelProviders != nil {
		if err := a.OTelProviders.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("opentelemetry shutdown: %w", err))
		}
	}
	if err := infrastructure.CloseLogFile(); err != nil {
		errs = append(errs, fmt.Errorf("close log file: %w", err))
	}
	return errors.Join(errs...)
}

// Run runs the application until interrupted
func (a *Application) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	if err := a.Start(ctx, cancel); err != nil {
		return err
	}

	select {
	case sig := <-sigChan:
		a.Logger.InfoContext(ctx, "Received interrupt signal", slog.String("signal", sig.String()))
	case <-ctx.Done():
		a.Logger.WarnContext(ctx, "Server stopped unexpectedly")
	}

	return a.Stop(context.Background())
}

// performStartupHealthCheck checks the data directory and history file
func (a *Application) performStartupHealthCheck(ctx context.Context) error {
	var problems []error

	if !config.FileExists(a.Paths.DataDir) {
		problems = append(problems, fmt.Errorf("data directory missing: %s", a.Paths.DataDir))
	}
	if !config.FileExists(a.Paths.HistoryFile) {
		a.Logger.InfoContext(ctx, "History file not found, it will be created on the first refresh",
			slog.String("path", a.Paths.HistoryFile))
	}
	if !config.FileExists(a.Paths.ReportCacheFile) {
		a.Logger.InfoContext(ctx, "No cached warehouse report yet",
			slog.String("path", a.Paths.ReportCacheFile))
	}

	a.Logger.InfoContext(ctx, "Startup health check complete",
		slog.Int("history_entries", a.History.Len()),
		slog.Int("sources", len(a.Executor.Sources())))

	return errors.Join(problems...)
}
