package calendar

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	gcal "google.golang.org/api/calendar/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"github.com/wolfman30/clinic-booking-assistant/pkg/logging"
)

// GoogleBackend implements Backend on the Google Calendar v3 API.
type GoogleBackend struct {
	svc    *gcal.Service
	logger *logging.Logger
}

// NewGoogleBackend builds the Calendar service. Credentials and endpoint
// overrides are passed as client options.
func NewGoogleBackend(ctx context.Context, logger *logging.Logger, opts ...option.ClientOption) (*GoogleBackend, error) {
	if logger == nil {
		logger = logging.Default()
	}
	svc, err := gcal.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("calendar: create google service: %w", err)
	}
	return &GoogleBackend{svc: svc, logger: logger}, nil
}

// ListCalendars walks the caller's calendar list, following pagination.
func (b *GoogleBackend) ListCalendars(ctx context.Context) ([]Resource, error) {
	var out []Resource
	call := b.svc.CalendarList.List().Context(ctx)
	err := call.Pages(ctx, func(page *gcal.CalendarList) error {
		for _, item := range page.Items {
			out = append(out, Resource{
				ID:              item.Id,
				Name:            item.Summary,
				Description:     item.Description,
				AccessRole:      item.AccessRole,
				TimeZone:        item.TimeZone,
				BackgroundColor: item.BackgroundColor,
				Primary:         item.Primary,
			})
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("calendar: list calendars: %w", mapError(err, ErrCalendarNotFound))
	}
	return out, nil
}

// GetCalendar fetches one calendar's name and time zone.
func (b *GoogleBackend) GetCalendar(ctx context.Context, calendarID string) (*Resource, error) {
	cal, err := b.svc.Calendars.Get(calendarID).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("calendar: get %s: %w", calendarID, mapError(err, ErrCalendarNotFound))
	}
	return &Resource{
		ID:          cal.Id,
		Name:        cal.Summary,
		Description: cal.Description,
		TimeZone:    cal.TimeZone,
		Primary:     calendarID == "primary",
	}, nil
}

// ListEvents expands recurring events into single instances ordered by start.
func (b *GoogleBackend) ListEvents(ctx context.Context, calendarID string, timeMin, timeMax time.Time) ([]Event, error) {
	var out []Event
	call := b.svc.Events.List(calendarID).
		TimeMin(timeMin.Format(time.RFC3339)).
		TimeMax(timeMax.Format(time.RFC3339)).
		SingleEvents(true).
		OrderBy("startTime").
		Context(ctx)
	err := call.Pages(ctx, func(page *gcal.Events) error {
		for _, item := range page.Items {
			ev, err := fromGoogleEvent(item)
			if err != nil {
				b.logger.Warn("calendar: skipping unparseable event", "calendar_id", calendarID, "event_id", item.Id, "error", err)
				continue
			}
			out = append(out, ev)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("calendar: list events on %s: %w", calendarID, mapError(err, ErrCalendarNotFound))
	}
	return out, nil
}

// InsertEvent creates the appointment; Google assigns the event id.
func (b *GoogleBackend) InsertEvent(ctx context.Context, calendarID string, ev NewEvent) (*Event, error) {
	body := &gcal.Event{
		Summary:     ev.Title,
		Description: ev.Description,
		Start:       &gcal.EventDateTime{DateTime: ev.Start.Format(time.RFC3339), TimeZone: ev.TimeZone},
		End:         &gcal.EventDateTime{DateTime: ev.End.Format(time.RFC3339), TimeZone: ev.TimeZone},
	}
	created, err := b.svc.Events.Insert(calendarID, body).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("calendar: insert event on %s: %w", calendarID, mapError(err, ErrCalendarNotFound))
	}
	out, err := fromGoogleEvent(created)
	if err != nil {
		// The write succeeded; fall back to the requested times.
		out = Event{ID: created.Id, Title: created.Summary, Description: created.Description, Start: ev.Start, End: ev.End}
	}
	return &out, nil
}

// DeleteEvent removes an event. Unknown and already-cancelled events map to ErrEventNotFound.
func (b *GoogleBackend) DeleteEvent(ctx context.Context, calendarID, eventID string) error {
	if err := b.svc.Events.Delete(calendarID, eventID).Context(ctx).Do(); err != nil {
		return fmt.Errorf("calendar: delete %s on %s: %w", eventID, calendarID, mapError(err, ErrEventNotFound))
	}
	return nil
}

func fromGoogleEvent(item *gcal.Event) (Event, error) {
	ev := Event{ID: item.Id, Title: item.Summary, Description: item.Description}
	if item.Start == nil || item.End == nil {
		return ev, errors.New("event without bounds")
	}
	var err error
	if item.Start.DateTime == "" {
		ev.AllDay = true
		if ev.Start, err = time.Parse("2006-01-02", item.Start.Date); err != nil {
			return ev, err
		}
		if ev.End, err = time.Parse("2006-01-02", item.End.Date); err != nil {
			return ev, err
		}
		return ev, nil
	}
	if ev.Start, err = time.Parse(time.RFC3339, item.Start.DateTime); err != nil {
		return ev, err
	}
	if ev.End, err = time.Parse(time.RFC3339, item.End.DateTime); err != nil {
		return ev, err
	}
	return ev, nil
}

func mapError(err error, notFound error) error {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) && (apiErr.Code == http.StatusNotFound || apiErr.Code == http.StatusGone) {
		return notFound
	}
	return err
}
