// Package calendar talks to the clinic's calendar backend. Google Calendar is
// the production backend; MemoryBackend serves local development and tests.
package calendar

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrCalendarNotFound is returned when the calendar id is unknown.
	ErrCalendarNotFound = errors.New("calendar: calendar not found")
	// ErrEventNotFound is returned when deleting an unknown or already deleted event.
	ErrEventNotFound = errors.New("calendar: event not found")
)

// Resource is a bookable calendar, one per clinician or specialty.
type Resource struct {
	ID              string `json:"id"`
	Name            string `json:"summary"`
	Description     string `json:"description"`
	AccessRole      string `json:"access_role"`
	TimeZone        string `json:"time_zone"`
	BackgroundColor string `json:"background_color,omitempty"`
	Primary         bool   `json:"is_primary"`
}

// Event is an existing entry on a calendar. All-day events carry AllDay and
// midnight bounds.
type Event struct {
	ID          string
	Title       string
	Description string
	Start       time.Time
	End         time.Time
	AllDay      bool
}

// NewEvent is the payload for creating an appointment.
type NewEvent struct {
	Title       string
	Description string
	Start       time.Time
	End         time.Time
	TimeZone    string
}

// Backend is the request/response surface the scheduler needs. Calls block
// until the backend answers; no retries happen at this layer.
type Backend interface {
	ListCalendars(ctx context.Context) ([]Resource, error)
	GetCalendar(ctx context.Context, calendarID string) (*Resource, error)
	// ListEvents returns events intersecting [timeMin, timeMax) ordered by start.
	ListEvents(ctx context.Context, calendarID string, timeMin, timeMax time.Time) ([]Event, error)
	InsertEvent(ctx context.Context, calendarID string, ev NewEvent) (*Event, error)
	DeleteEvent(ctx context.Context, calendarID, eventID string) error
}
