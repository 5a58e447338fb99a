package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/wolfman30/clinic-booking-assistant/internal/audit"
	"github.com/wolfman30/clinic-booking-assistant/internal/calendar"
	"github.com/wolfman30/clinic-booking-assistant/internal/dates"
	"github.com/wolfman30/clinic-booking-assistant/internal/observability/metrics"
	"github.com/wolfman30/clinic-booking-assistant/internal/patients"
	"github.com/wolfman30/clinic-booking-assistant/internal/scheduling"
	"github.com/wolfman30/clinic-booking-assistant/pkg/logging"
)

var toolsTracer = otel.Tracer("clinic.internal.tools")

// Outcome classifies a Result for metrics and audit.
type Outcome string

const (
	OutcomeOK       Outcome = "ok"
	OutcomeRejected Outcome = "rejected"
	OutcomeNotFound Outcome = "not_found"
	OutcomeInvalid  Outcome = "invalid_arguments"
	OutcomeError    Outcome = "error"
)

const (
	calendarUnavailable = "Désolé, je n'arrive pas à accéder au calendrier pour le moment. Pouvez-vous réessayer dans un instant ?"
	patientsUnavailable = "Désolé, je n'arrive pas à accéder au dossier des patients pour le moment. Pouvez-vous réessayer dans un instant ?"
)

// Record is the JSON object handed back to the orchestrator.
type Record map[string]any

// Result is what a tool call produced. Every failure is expressed as a
// Record; Execute never returns a Go error.
type Result struct {
	Outcome Outcome
	Record  Record
}

func (r Result) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.Record)
}

// Call is a raw tool invocation.
type Call struct {
	ID        string
	Name      string
	Arguments map[string]string
}

// AuditRecorder persists tool-call audit entries.
type AuditRecorder interface {
	Record(ctx context.Context, e audit.Entry) error
}

// Dispatcher executes parsed requests against the scheduler and the
// patient directory.
type Dispatcher struct {
	scheduler *scheduling.Service
	directory *patients.Directory
	metrics   *metrics.ToolMetrics
	audit     AuditRecorder
	logger    *logging.Logger
}

// NewDispatcher wires the boundary. metrics and recorder may be nil.
func NewDispatcher(scheduler *scheduling.Service, directory *patients.Directory, m *metrics.ToolMetrics, recorder AuditRecorder, logger *logging.Logger) *Dispatcher {
	if scheduler == nil || directory == nil {
		panic("tools: scheduler and directory required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Dispatcher{scheduler: scheduler, directory: directory, metrics: m, audit: recorder, logger: logger}
}

// Invoke parses and executes a raw call, then writes its audit entry.
func (d *Dispatcher) Invoke(ctx context.Context, call Call, ack scheduling.Acknowledger) Result {
	started := time.Now()
	op := CanonicalName(call.Name)

	var result Result
	req, err := Parse(call.Name, call.Arguments)
	if err != nil {
		result = d.invalid(op, err)
		d.metrics.ObserveCall(op, string(result.Outcome), time.Since(started).Seconds())
	} else {
		result = d.Execute(ctx, req, ack)
	}

	if d.audit != nil {
		entry := audit.Entry{
			ToolCallID:    call.ID,
			Operation:     op,
			Outcome:       string(result.Outcome),
			CalendarID:    call.Arguments["calendar_id"],
			ArgumentNames: audit.ArgumentNames(call.Arguments),
			Duration:      time.Since(started),
		}
		if err := d.audit.Record(context.WithoutCancel(ctx), entry); err != nil {
			d.logger.Warn("tool call audit failed", "operation", op, "tool_call_id", call.ID, "error", err)
		}
	}
	return result
}

// Execute runs one request. Missing arguments, rule violations, not-found
// and backend failures all come back as records.
func (d *Dispatcher) Execute(ctx context.Context, req Request, ack scheduling.Acknowledger) Result {
	op := req.Operation()
	ctx, span := toolsTracer.Start(ctx, "tools."+op,
		trace.WithSpanKind(trace.SpanKindServer),
		trace.WithAttributes(attribute.String("clinic.tool.operation", op)),
	)
	defer span.End()
	started := time.Now()

	result := d.execute(ctx, req, ack)

	span.SetAttributes(attribute.String("clinic.tool.outcome", string(result.Outcome)))
	if result.Outcome == OutcomeError {
		span.SetStatus(codes.Error, "backend failure")
	}
	d.metrics.ObserveCall(op, string(result.Outcome), time.Since(started).Seconds())
	return result
}

func (d *Dispatcher) execute(ctx context.Context, req Request, ack scheduling.Acknowledger) Result {
	switch r := req.(type) {
	case CurrentDate:
		today := d.scheduler.CurrentDate()
		return ok(Record{
			"current_date":   today.CurrentDate,
			"formatted_date": today.FormattedDate,
			"current_day":    today.CurrentDay,
			"current_time":   today.CurrentTime,
			"timezone":       today.Timezone,
			"is_weekday":     today.IsWeekday,
		})
	case ListCalendars:
		return d.listCalendars(ctx)
	case CheckAvailability:
		return d.checkAvailability(ctx, r)
	case ScheduleAppointment:
		return d.schedule(ctx, r, ack)
	case CancelAppointment:
		return d.cancel(ctx, r)
	case AddPatient:
		return d.addPatient(ctx, r, ack)
	case VerifyPatient:
		return d.verifyPatient(ctx, r)
	case UpdatePatient:
		return d.updatePatient(ctx, r, ack)
	case FindPatientByEmail:
		return d.findPatient(ctx, r.Operation(), func() (*patients.Patient, error) {
			return d.directory.FindByEmail(ctx, r.Email)
		}, fmt.Sprintf("Aucun patient trouvé avec l'email %s.", r.Email))
	case FindPatientByPhone:
		return d.findPatient(ctx, r.Operation(), func() (*patients.Patient, error) {
			return d.directory.FindByPhone(ctx, r.Phone)
		}, fmt.Sprintf("Aucun patient trouvé avec le numéro %s.", r.Phone))
	case ListPatients:
		return d.listPatients(ctx)
	}
	return d.invalid(req.Operation(), fmt.Errorf("%w: %T", ErrUnknownTool, req))
}

func (d *Dispatcher) listCalendars(ctx context.Context) Result {
	cals, primary, err := d.scheduler.ListCalendars(ctx)
	if err != nil {
		return d.backendError(OpListCalendars, err, calendarUnavailable)
	}
	var primaryID any
	if primary != "" {
		primaryID = primary
	}
	return ok(Record{
		"calendars":           cals,
		"primary_calendar_id": primaryID,
		"total_calendars":     len(cals),
	})
}

func (d *Dispatcher) checkAvailability(ctx context.Context, r CheckAvailability) Result {
	avail, err := d.scheduler.CheckAvailability(ctx, r.CalendarID, r.Date)
	if err != nil {
		return d.backendError(OpCheckAvailability, err, calendarUnavailable)
	}

	rec := Record{
		"date":              dates.FormatNumeric(avail.Date),
		"formatted_date":    dates.FormatLong(avail.Date),
		"calendar_id":       avail.CalendarID,
		"available_slots":   slotLabels(avail.Slots.Free),
		"booked_slots":      slotLabels(avail.Slots.Booked),
		"free_ranges":       rangeLabels(avail),
		"is_today":          avail.IsToday,
		"is_weekday":        !avail.Closed(),
		"closed":            avail.Closed(),
		"next_business_day": nil,
		"date_fallback":     avail.DateFallback,
	}
	if avail.CalendarName != "" {
		rec["calendar_name"] = avail.CalendarName
	}
	if avail.Closed() && avail.NextBusinessDay != nil {
		rec["next_business_day"] = dates.FormatLong(*avail.NextBusinessDay)
		rec["message"] = fmt.Sprintf("Cette date tombe un week-end. La clinique est fermée. Le prochain jour ouvré est le %s.",
			dates.FormatLong(*avail.NextBusinessDay))
	}
	return ok(rec)
}

func (d *Dispatcher) schedule(ctx context.Context, r ScheduleAppointment, ack scheduling.Acknowledger) Result {
	out, err := d.scheduler.Book(ctx, scheduling.BookRequest{
		CalendarID:  r.CalendarID,
		Date:        r.Date,
		Time:        r.Time,
		PatientName: r.PatientName,
		Reason:      r.Reason,
	}, ack)
	if err != nil {
		if errors.Is(err, calendar.ErrCalendarNotFound) {
			d.metrics.ObserveBooking("calendar_not_found")
		} else {
			d.metrics.ObserveBooking("backend_error")
		}
		return d.backendError(OpScheduleAppointment, err, calendarUnavailable)
	}
	if !out.Committed() {
		d.metrics.ObserveBooking(string(out.Rejected))
		return Result{Outcome: OutcomeRejected, Record: Record{
			"success":       false,
			"rejected":      string(out.Rejected),
			"error":         out.Message,
			"date_fallback": out.DateFallback,
		}}
	}
	d.metrics.ObserveBooking("committed")
	appt := out.Appointment
	return ok(Record{
		"success":        true,
		"appointment_id": appt.ID,
		"patient_name":   appt.PatientName,
		"date":           dates.FormatNumeric(out.Date),
		"formatted_date": dates.FormatLong(out.Date),
		"time":           dates.FormatClock(out.Hour, out.Minute),
		"reason":         appt.Reason,
		"calendar_id":    appt.CalendarID,
		"calendar_name":  out.CalendarName,
		"message":        out.Message,
		"date_fallback":  out.DateFallback,
	})
}

func (d *Dispatcher) cancel(ctx context.Context, r CancelAppointment) Result {
	out, err := d.scheduler.Cancel(ctx, scheduling.CancelRequest{
		CalendarID:    r.CalendarID,
		AppointmentID: r.AppointmentID,
		PatientName:   r.PatientName,
		Date:          r.Date,
	})
	if err != nil {
		return d.backendError(OpCancelAppointment, err, calendarUnavailable)
	}
	if !out.Cancelled {
		return notFound(Record{"success": false, "not_found": true, "message": out.Message, "date_fallback": out.DateFallback})
	}
	return ok(Record{
		"success":        true,
		"appointment_id": out.AppointmentID,
		"message":        out.Message,
		"date_fallback":  out.DateFallback,
	})
}

func (d *Dispatcher) addPatient(ctx context.Context, r AddPatient, ack scheduling.Acknowledger) Result {
	if ack != nil {
		ack.Acknowledge(ctx, "Je vous ajoute à notre fichier patients, veuillez patienter un instant s'il vous plaît...")
	}
	res, err := d.directory.Add(ctx, patients.NewPatient{FirstName: r.FirstName, LastName: r.LastName, Email: r.Email, Phone: r.Phone})
	if err != nil {
		return d.backendError(OpAddPatient, err, patientsUnavailable)
	}
	msg := fmt.Sprintf("Patient %s ajouté avec succès.", res.Patient.FullName())
	if !res.Created {
		msg = fmt.Sprintf("Un patient avec l'email %s existe déjà : %s.", res.Patient.Email, res.Patient.FullName())
	}
	return ok(Record{"success": true, "created": res.Created, "message": msg, "patient": res.Patient})
}

func (d *Dispatcher) verifyPatient(ctx context.Context, r VerifyPatient) Result {
	var (
		p       *patients.Patient
		err     error
		missing string
	)
	if r.Email != "" {
		p, err = d.directory.FindByEmail(ctx, r.Email)
		missing = fmt.Sprintf("Aucun patient trouvé avec l'email %s.", r.Email)
	} else {
		p, err = d.directory.FindByPhone(ctx, r.Phone)
		missing = fmt.Sprintf("Aucun patient trouvé avec le numéro %s.", r.Phone)
	}
	switch {
	case errors.Is(err, patients.ErrPatientNotFound):
		return notFound(Record{"exists": false, "found": false, "message": missing})
	case err != nil:
		return d.backendError(OpVerifyPatient, err, patientsUnavailable)
	}
	return ok(Record{
		"exists":  true,
		"found":   true,
		"patient": p,
		"message": fmt.Sprintf("Patient trouvé : %s", p.FullName()),
	})
}

func (d *Dispatcher) updatePatient(ctx context.Context, r UpdatePatient, ack scheduling.Acknowledger) Result {
	changes := patients.Changes{
		FirstName: optional(r.FirstName),
		LastName:  optional(r.LastName),
		Email:     optional(r.NewEmail),
		Phone:     optional(r.Phone),
	}
	if ack != nil {
		ack.Acknowledge(ctx, "Je mets à jour les informations du patient...")
	}
	p, err := d.directory.Update(ctx, r.PatientID, r.Email, changes)
	switch {
	case errors.Is(err, patients.ErrPatientNotFound):
		d.logger.Info("patient to update not found", "patient_id", r.PatientID)
		return notFound(Record{"success": false, "not_found": true, "message": "Je ne trouve pas ce patient."})
	case errors.Is(err, patients.ErrEmailTaken):
		return Result{Outcome: OutcomeRejected, Record: Record{
			"success":  false,
			"rejected": "email_taken",
			"error":    fmt.Sprintf("L'email %s est déjà utilisé par un autre patient.", r.NewEmail),
		}}
	case err != nil:
		return d.backendError(OpUpdatePatient, err, patientsUnavailable)
	}
	return ok(Record{"success": true, "message": "Informations patient mises à jour avec succès.", "patient": p})
}

func (d *Dispatcher) findPatient(ctx context.Context, op string, find func() (*patients.Patient, error), missing string) Result {
	p, err := find()
	switch {
	case errors.Is(err, patients.ErrPatientNotFound):
		return notFound(Record{"found": false, "message": missing})
	case err != nil:
		return d.backendError(op, err, patientsUnavailable)
	}
	return ok(Record{"found": true, "patient": p})
}

func (d *Dispatcher) listPatients(ctx context.Context) Result {
	all, err := d.directory.ListAll(ctx)
	if err != nil {
		return d.backendError(OpListPatients, err, patientsUnavailable)
	}
	if len(all) == 0 {
		return ok(Record{"count": 0, "patients": []*patients.Patient{}, "message": "Aucun patient trouvé dans la base de données."})
	}
	return ok(Record{
		"count":    len(all),
		"patients": all,
		"message":  fmt.Sprintf("%d patients trouvés dans la base de données.", len(all)),
	})
}

func (d *Dispatcher) invalid(op string, err error) Result {
	var argErr *ArgumentError
	if errors.As(err, &argErr) {
		return Result{Outcome: OutcomeInvalid, Record: Record{"error": argErr.Message}}
	}
	d.logger.Warn("unknown tool requested", "operation", op, "error", err)
	return Result{Outcome: OutcomeInvalid, Record: Record{"error": "Cette fonction n'est pas disponible."}}
}

// backendError logs the detail and returns a fixed sentence safe to speak.
func (d *Dispatcher) backendError(op string, err error, message string) Result {
	switch {
	case errors.Is(err, scheduling.ErrMissingFields),
		errors.Is(err, patients.ErrMissingContact),
		errors.Is(err, patients.ErrInvalidName),
		errors.Is(err, patients.ErrNoChanges):
		return Result{Outcome: OutcomeInvalid, Record: Record{"error": "Informations manquantes."}}
	case errors.Is(err, calendar.ErrCalendarNotFound):
		d.logger.Warn("unknown calendar requested", "operation", op, "error", err)
		return notFound(Record{"success": false, "not_found": true, "message": "Je ne trouve pas ce calendrier."})
	}
	d.logger.Error("tool backend call failed", "operation", op, "error", err)
	return Result{Outcome: OutcomeError, Record: Record{"error": message}}
}

func ok(rec Record) Result { return Result{Outcome: OutcomeOK, Record: rec} }
func notFound(rec Record) Result { return Result{Outcome: OutcomeNotFound, Record: rec} }

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
