package bootstrap

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/api/option"

	"github.com/wolfman30/clinic-booking-assistant/internal/calendar"
	appconfig "github.com/wolfman30/clinic-booking-assistant/internal/config"
	"github.com/wolfman30/clinic-booking-assistant/pkg/logging"
)

const (
	BackendGoogle = "google"
	BackendMemory = "memory"
)

// BuildCalendarBackend picks the calendar store named by CALENDAR_BACKEND.
func BuildCalendarBackend(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger) (calendar.Backend, error) {
	if cfg == nil {
		return nil, fmt.Errorf("bootstrap: config is required")
	}
	if logger == nil {
		logger = logging.Default()
	}

	switch cfg.CalendarBackend {
	case BackendMemory:
		logger.Warn("using in-memory calendar; appointments are lost on restart")
		return calendar.NewMemoryBackend(), nil
	case BackendGoogle, "":
		var opts []option.ClientOption
		if path := strings.TrimSpace(cfg.GoogleCredentialsFile); path != "" {
			opts = append(opts, option.WithCredentialsFile(path))
		}
		if endpoint := strings.TrimSpace(cfg.GoogleCalendarEndpoint); endpoint != "" {
			opts = append(opts, option.WithEndpoint(endpoint))
		}
		backend, err := calendar.NewGoogleBackend(ctx, logger, opts...)
		if err != nil {
			return nil, fmt.Errorf("bootstrap: google calendar: %w", err)
		}
		return backend, nil
	default:
		return nil, fmt.Errorf("bootstrap: unknown calendar backend %q", cfg.CalendarBackend)
	}
}
