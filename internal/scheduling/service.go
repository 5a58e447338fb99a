package scheduling

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/wolfman30/clinic-booking-assistant/internal/availability"
	"github.com/wolfman30/clinic-booking-assistant/internal/calendar"
	"github.com/wolfman30/clinic-booking-assistant/internal/dates"
	"github.com/wolfman30/clinic-booking-assistant/internal/locks"
	"github.com/wolfman30/clinic-booking-assistant/pkg/logging"
)

var schedulingTracer = otel.Tracer("clinic.internal.scheduling")

// Options configures a Service. Zero values fall back to Europe/Paris, the
// primary calendar, start matching and no booking lock.
type Options struct {
	Location          *time.Location
	DefaultCalendarID string
	MatchMode         availability.MatchMode
	Locker            locks.Locker
	Now               func() time.Time
}

// Service runs the calendar operations against one backend.
type Service struct {
	backend    calendar.Backend
	loc        *time.Location
	defaultCal string
	mode       availability.MatchMode
	locker     locks.Locker
	now        func() time.Time
	logger     *logging.Logger
}

// NewService wires the scheduler to a calendar backend.
func NewService(backend calendar.Backend, opts Options, logger *logging.Logger) *Service {
	if backend == nil {
		panic("scheduling: calendar backend required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	loc := opts.Location
	if loc == nil {
		var err error
		if loc, err = time.LoadLocation("Europe/Paris"); err != nil {
			loc = time.UTC
		}
	}
	defaultCal := strings.TrimSpace(opts.DefaultCalendarID)
	if defaultCal == "" {
		defaultCal = "primary"
	}
	locker := opts.Locker
	if locker == nil {
		locker = locks.Noop{}
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Service{
		backend:    backend,
		loc:        loc,
		defaultCal: defaultCal,
		mode:       opts.MatchMode,
		locker:     locker,
		now:        now,
		logger:     logger,
	}
}

// Location is the clinic time zone.
func (s *Service) Location() *time.Location { return s.loc }

// Now returns the current instant in the clinic zone.
func (s *Service) Now() time.Time { return s.now().In(s.loc) }

// CurrentDate reports today's date and time in the clinic zone.
func (s *Service) CurrentDate() Today {
	now := s.Now()
	return Today{
		CurrentDate:   dates.FormatNumeric(now),
		FormattedDate: dates.FormatLong(now),
		CurrentDay:    dates.FormatWeekday(now),
		CurrentTime:   now.Format("15:04"),
		Timezone:      s.loc.String(),
		IsWeekday:     !dates.IsWeekend(now),
	}
}

// ListCalendars returns every calendar the account can see plus the id of
// the primary one (empty when none is flagged).
func (s *Service) ListCalendars(ctx context.Context) ([]calendar.Resource, string, error) {
	ctx, span := schedulingTracer.Start(ctx, "scheduling.list_calendars")
	defer span.End()

	cals, err := s.backend.ListCalendars(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "list calendars failed")
		return nil, "", err
	}
	var primary string
	for _, c := range cals {
		if c.Primary {
			primary = c.ID
			break
		}
	}
	span.SetAttributes(attribute.Int("clinic.calendar_count", len(cals)))
	return cals, primary, nil
}

// CheckAvailability resolves dateExpr and lists the free grid for that day.
// A weekend date comes back closed with the next business day as a hint;
// the lookup is not moved to that day.
func (s *Service) CheckAvailability(ctx context.Context, calendarID, dateExpr string) (*Availability, error) {
	if strings.TrimSpace(dateExpr) == "" {
		return nil, ErrMissingFields
	}
	calendarID = s.calendarID(calendarID)
	ctx, span := schedulingTracer.Start(ctx, "scheduling.check_availability")
	defer span.End()

	today := dates.StartOfDay(s.Now())
	res := s.resolveDate(dateExpr, "check_availability")
	span.SetAttributes(
		attribute.String("clinic.calendar_id", calendarID),
		attribute.String("clinic.date", res.Date.Format("2006-01-02")),
		attribute.String("clinic.date_kind", res.Kind.String()),
	)

	out := &Availability{
		Date:         res.Date,
		CalendarID:   calendarID,
		IsToday:      res.Date.Equal(today),
		DateFallback: res.IsFallback(),
	}
	if availability.IsClosed(res.Date) {
		next := availability.NextBusinessDay(res.Date)
		out.NextBusinessDay = &next
		out.Slots = availability.DaySlots{Date: res.Date, Closed: true}
		return out, nil
	}

	out.CalendarName = s.calendarName(ctx, calendarID)
	slots, err := s.daySlots(ctx, calendarID, res.Date)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "list events failed")
		return nil, err
	}
	out.Slots = slots
	span.SetAttributes(attribute.Int("clinic.free_slots", len(slots.Free)))
	return out, nil
}

// Book validates the requested slot (weekend, hours, grid alignment, in that
// order), acknowledges, re-reads the day and creates the event. Without a
// Locker another caller can still take the slot between the re-read and the
// insert.
func (s *Service) Book(ctx context.Context, req BookRequest, ack Acknowledger) (*BookingOutcome, error) {
	if strings.TrimSpace(req.Date) == "" || strings.TrimSpace(req.Time) == "" || strings.TrimSpace(req.PatientName) == "" {
		return nil, ErrMissingFields
	}
	calendarID := s.calendarID(req.CalendarID)
	patient := strings.TrimSpace(req.PatientName)
	reason := strings.TrimSpace(req.Reason)
	if reason == "" {
		reason = defaultReason
	}

	ctx, span := schedulingTracer.Start(ctx, "scheduling.book")
	defer span.End()

	res := s.resolveDate(req.Date, "schedule_appointment")
	out := &BookingOutcome{Date: res.Date, CalendarID: calendarID, DateFallback: res.IsFallback()}
	span.SetAttributes(
		attribute.String("clinic.calendar_id", calendarID),
		attribute.String("clinic.date", res.Date.Format("2006-01-02")),
	)

	reject := func(reason RejectReason, msg string) (*BookingOutcome, error) {
		out.Rejected = reason
		out.Message = msg
		span.SetAttributes(attribute.String("clinic.rejected", string(reason)))
		return out, nil
	}

	if dates.IsWeekend(res.Date) {
		return reject(RejectWeekend, fmt.Sprintf(
			"Impossible de prendre rendez-vous le week-end. La date %s tombe un week-end.", dates.FormatLong(res.Date)))
	}
	hour, minute, err := dates.ResolveTime(req.Time)
	if err != nil {
		return reject(RejectInvalidTime, "Je n'ai pas compris l'heure demandée. Pouvez-vous la répéter, par exemple 14h30 ?")
	}
	out.Hour, out.Minute = hour, minute
	switch err := availability.CheckBookable(hour, minute); {
	case errors.Is(err, availability.ErrOutsideHours):
		return reject(RejectOutOfHours, "Impossible de prendre rendez-vous en dehors des heures d'ouverture (9h à 17h).")
	case errors.Is(err, availability.ErrMisaligned):
		return reject(RejectMisaligned, "Les rendez-vous commencent à l'heure pile ou à la demie, par exemple 10h ou 10h30.")
	}

	acknowledge(ctx, ack, "Je réserve votre rendez-vous, veuillez patienter un instant s'il vous plaît...")

	slot := availability.Slot{Hour: hour, Minute: minute}
	start := slot.On(res.Date, s.loc)
	release, err := s.locker.Acquire(ctx, locks.BookingKey(calendarID, start))
	if errors.Is(err, locks.ErrLockHeld) {
		return reject(RejectLocked, "Ce créneau est en cours de réservation par un autre patient. Souhaitez-vous un autre horaire ?")
	}
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	defer func() {
		if err := release(context.WithoutCancel(ctx)); err != nil {
			s.logger.Warn("booking lock release failed", "calendar_id", calendarID, "error", err)
		}
	}()

	day, err := s.daySlots(ctx, calendarID, res.Date)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "list events failed")
		return nil, err
	}
	for _, b := range day.Booked {
		if b == slot {
			return reject(RejectSlotTaken, fmt.Sprintf("Le créneau de %s le %s est déjà réservé.",
				dates.FormatClock(hour, minute), dates.FormatLong(res.Date)))
		}
	}

	created, err := s.backend.InsertEvent(ctx, calendarID, calendar.NewEvent{
		Title:       titlePrefix + patient,
		Description: reason,
		Start:       start,
		End:         start.Add(availability.AppointmentDuration),
		TimeZone:    s.loc.String(),
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "insert event failed")
		return nil, err
	}

	out.CalendarName = s.calendarName(ctx, calendarID)
	out.Appointment = &Appointment{
		ID:          created.ID,
		CalendarID:  calendarID,
		PatientName: patient,
		Reason:      reason,
		Start:       start,
		End:         start.Add(availability.AppointmentDuration),
	}
	out.Message = fmt.Sprintf("Rendez-vous programmé pour %s le %s à %s avec %s",
		patient, dates.FormatLong(res.Date), dates.FormatClock(hour, minute), out.CalendarName)
	span.SetAttributes(attribute.String("clinic.appointment_id", created.ID))
	s.logger.Info("appointment booked", "calendar_id", calendarID, "appointment_id", created.ID, "start", start.Format(time.RFC3339))
	return out, nil
}

// Cancel deletes an appointment by id, or else the first event on the given
// day whose title contains the patient name (case-sensitive).
func (s *Service) Cancel(ctx context.Context, req CancelRequest) (*CancelOutcome, error) {
	calendarID := s.calendarID(req.CalendarID)
	ctx, span := schedulingTracer.Start(ctx, "scheduling.cancel")
	defer span.End()
	span.SetAttributes(attribute.String("clinic.calendar_id", calendarID))

	if id := strings.TrimSpace(req.AppointmentID); id != "" {
		err := s.backend.DeleteEvent(ctx, calendarID, id)
		if errors.Is(err, calendar.ErrEventNotFound) {
			s.logger.Info("appointment to cancel not found", "calendar_id", calendarID, "appointment_id", id)
			return &CancelOutcome{AppointmentID: id, Message: "Je ne trouve pas ce rendez-vous."}, nil
		}
		if err != nil {
			span.RecordError(err)
			return nil, err
		}
		return &CancelOutcome{
			Cancelled:     true,
			AppointmentID: id,
			Message:       "Le rendez-vous a été annulé.",
		}, nil
	}

	name := strings.TrimSpace(req.PatientName)
	if name == "" || strings.TrimSpace(req.Date) == "" {
		return nil, ErrMissingFields
	}
	res := s.resolveDate(req.Date, "cancel_appointment")
	out := &CancelOutcome{PatientName: name, Date: res.Date, DateFallback: res.IsFallback()}
	notFound := fmt.Sprintf("Aucun rendez-vous trouvé pour %s le %s", name, dates.FormatLong(res.Date))

	events, err := s.backend.ListEvents(ctx, calendarID, res.Date, res.Date.AddDate(0, 0, 1))
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	for _, ev := range events {
		if !strings.Contains(ev.Title, name) {
			continue
		}
		err := s.backend.DeleteEvent(ctx, calendarID, ev.ID)
		if errors.Is(err, calendar.ErrEventNotFound) {
			out.Message = notFound
			return out, nil
		}
		if err != nil {
			span.RecordError(err)
			return nil, err
		}
		out.Cancelled = true
		out.AppointmentID = ev.ID
		out.Message = fmt.Sprintf("Le rendez-vous pour %s le %s a été annulé", name, dates.FormatLong(res.Date))
		s.logger.Info("appointment cancelled", "calendar_id", calendarID, "appointment_id", ev.ID)
		return out, nil
	}
	out.Message = notFound
	return out, nil
}

func (s *Service) calendarID(id string) string {
	if id = strings.TrimSpace(id); id != "" {
		return id
	}
	return s.defaultCal
}

// calendarName is best effort; lookup failures fall back to a generic name.
func (s *Service) calendarName(ctx context.Context, calendarID string) string {
	cal, err := s.backend.GetCalendar(ctx, calendarID)
	if err != nil || cal == nil || strings.TrimSpace(cal.Name) == "" {
		if err != nil {
			s.logger.Debug("calendar name lookup failed", "calendar_id", calendarID, "error", err)
		}
		return defaultCalendarName
	}
	return cal.Name
}

func (s *Service) daySlots(ctx context.Context, calendarID string, day time.Time) (availability.DaySlots, error) {
	events, err := s.backend.ListEvents(ctx, calendarID, day, day.AddDate(0, 0, 1))
	if err != nil {
		return availability.DaySlots{}, err
	}
	busy := make([]availability.BusyInterval, 0, len(events))
	for _, ev := range events {
		busy = append(busy, availability.BusyInterval{ResourceID: calendarID, Start: ev.Start, End: ev.End})
	}
	return availability.ComputeFreeSlots(day, busy, s.loc, s.mode), nil
}

func (s *Service) resolveDate(expr, operation string) dates.Resolution {
	res := dates.ResolveDate(expr, s.Now())
	if res.IsFallback() {
		s.logger.Warn("date expression not understood, using today", "operation", operation, "expression", expr)
	}
	return res
}
