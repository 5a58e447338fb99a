package router

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/wolfman30/clinic-booking-assistant/internal/http/handlers"
	httpmiddleware "github.com/wolfman30/clinic-booking-assistant/internal/http/middleware"
	"github.com/wolfman30/clinic-booking-assistant/pkg/logging"
)

// Config holds router configuration
type Config struct {
	Logger         *logging.Logger
	Tools          *handlers.ToolsHandler
	Admin          *handlers.AdminHandler
	AdminSecret    string
	MetricsHandler http.Handler

	CORSAllowedOrigins []string

	// Per client IP, applied to the /tools endpoints. Zero disables limiting.
	RateLimitPerSecond float64
	RateLimitBurst     int
}

// New creates a new Chi router with all routes configured
func New(cfg *Config) http.Handler {
	if cfg.Tools == nil {
		panic("router: tools handler required")
	}
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	if cfg.Logger != nil {
		r.Use(httpmiddleware.RequestLogger(cfg.Logger))
	}
	r.Use(middleware.Recoverer)
	if len(cfg.CORSAllowedOrigins) > 0 {
		r.Use(httpmiddleware.CORS(cfg.CORSAllowedOrigins))
	}

	r.Get("/health", health)
	if cfg.MetricsHandler != nil {
		r.Handle("/metrics", cfg.MetricsHandler)
	}

	r.Route("/tools", func(t chi.Router) {
		if cfg.RateLimitPerSecond > 0 {
			t.Use(httpmiddleware.RateLimit(cfg.RateLimitPerSecond, cfg.RateLimitBurst))
		}
		t.Get("/schemas", cfg.Tools.Schemas)
		t.Post("/invoke", cfg.Tools.Invoke)
		t.Get("/stream", cfg.Tools.Stream)
	})

	// Admin routes are only mounted when a signing secret is configured.
	if cfg.Admin != nil && cfg.AdminSecret != "" {
		r.Route("/admin", func(admin chi.Router) {
			admin.Use(httpmiddleware.AdminJWT(cfg.AdminSecret))
			admin.Get("/calendars", cfg.Admin.ListCalendars)
			admin.Get("/patients", cfg.Admin.ListPatients)
			admin.Delete("/patients/{id}", cfg.Admin.DeletePatient)
			admin.Get("/tool-calls", cfg.Admin.ToolCalls)
		})
	}

	return r
}

func health(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}
