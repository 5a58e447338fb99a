package bootstrap

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/wolfman30/clinic-booking-assistant/internal/api/router"
	"github.com/wolfman30/clinic-booking-assistant/internal/availability"
	"github.com/wolfman30/clinic-booking-assistant/internal/calendar"
	appconfig "github.com/wolfman30/clinic-booking-assistant/internal/config"
	"github.com/wolfman30/clinic-booking-assistant/internal/http/handlers"
	"github.com/wolfman30/clinic-booking-assistant/internal/observability/metrics"
	"github.com/wolfman30/clinic-booking-assistant/internal/patients"
	"github.com/wolfman30/clinic-booking-assistant/internal/scheduling"
	"github.com/wolfman30/clinic-booking-assistant/internal/tools"
	"github.com/wolfman30/clinic-booking-assistant/pkg/logging"
)

// App is the wired assistant backend.
type App struct {
	Scheduler  *scheduling.Service
	Directory  *patients.Directory
	Dispatcher *tools.Dispatcher
	Handler    http.Handler

	pool    *pgxpool.Pool
	auditDB *sql.DB
	redis   *redis.Client
	logger  *logging.Logger
}

// Options override pieces of the wiring, mostly for tests and the CLI.
type Options struct {
	Calendar calendar.Backend
	Registry *prometheus.Registry
}

// Build wires every component named in cfg.
func Build(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger, opts Options) (*App, error) {
	if cfg == nil {
		return nil, fmt.Errorf("bootstrap: config is required")
	}
	if logger == nil {
		logger = logging.Default()
	}

	loc, err := time.LoadLocation(cfg.ClinicTimezone)
	if err != nil {
		return nil, fmt.Errorf("bootstrap: clinic timezone %q: %w", cfg.ClinicTimezone, err)
	}

	backend := opts.Calendar
	if backend == nil {
		if backend, err = BuildCalendarBackend(ctx, cfg, logger); err != nil {
			return nil, err
		}
	}

	app := &App{logger: logger}

	if cfg.BookingLockEnabled {
		app.redis = BuildRedisClient(ctx, cfg, logger, true)
	}
	app.Scheduler = scheduling.NewService(backend, scheduling.Options{
		Location:          loc,
		DefaultCalendarID: cfg.DefaultCalendarID,
		MatchMode:         availability.ParseMatchMode(cfg.SlotMatchMode),
		Locker:            BuildLocker(cfg, app.redis, logger),
	}, logger)

	app.pool = ConnectPostgresPool(ctx, cfg.DatabaseURL, logger)
	app.Directory = patients.NewDirectory(BuildPatientRepository(app.pool, logger), logger)

	auditStore, auditDB, err := OpenAuditStore(cfg, logger)
	if err != nil {
		app.Close()
		return nil, err
	}
	app.auditDB = auditDB

	reg := opts.Registry
	if reg == nil {
		reg = prometheus.NewRegistry()
		reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	}
	toolMetrics := metrics.NewToolMetrics(reg)

	// Typed nils must not leak into the interfaces below.
	var recorder tools.AuditRecorder
	var lister handlers.AuditLister
	if auditStore != nil {
		recorder = auditStore
		lister = auditStore
	}
	app.Dispatcher = tools.NewDispatcher(app.Scheduler, app.Directory, toolMetrics, recorder, logger)

	app.Handler = router.New(&router.Config{
		Logger: logger,
		Tools: handlers.NewToolsHandler(handlers.ToolsHandlerConfig{
			Dispatcher:     app.Dispatcher,
			AllowedOrigins: cfg.CORSAllowedOrigins,
			Logger:         logger,
		}),
		Admin:              handlers.NewAdminHandler(app.Scheduler, app.Directory, lister, logger),
		AdminSecret:        cfg.AdminJWTSecret,
		MetricsHandler:     promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
		RateLimitPerSecond: cfg.ToolsRateLimit,
		RateLimitBurst:     cfg.ToolsRateBurst,
	})

	logger.Info("clinic assistant wired",
		"calendar_backend", cfg.CalendarBackend,
		"timezone", loc.String(),
		"match_mode", availability.ParseMatchMode(cfg.SlotMatchMode).String(),
		"postgres", app.pool != nil,
		"audit", auditStore != nil,
		"admin", cfg.AdminJWTSecret != "",
	)
	return app, nil
}

// Close releases database and Redis connections.
func (a *App) Close() {
	if a.pool != nil {
		a.pool.Close()
	}
	if a.auditDB != nil {
		if err := a.auditDB.Close(); err != nil {
			a.logger.Warn("close audit db", "error", err)
		}
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.logger.Warn("close redis", "error", err)
		}
	}
}
