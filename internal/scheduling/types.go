// Package scheduling holds the booking assistant's calendar operations:
// availability lookups, booking, cancellation and the clinic clock.
package scheduling

import (
	"context"
	"errors"
	"time"

	"github.com/wolfman30/clinic-booking-assistant/internal/availability"
)

// ErrMissingFields is returned when a request lacks the fields an operation
// needs. The tools boundary reports it before any backend call.
var ErrMissingFields = errors.New("scheduling: missing required fields")

const (
	defaultReason       = "Consultation médicale"
	defaultCalendarName = "Calendrier principal"
	titlePrefix         = "Rendez-vous: "
)

// Acknowledger speaks a short holding message while a slow backend call runs.
type Acknowledger interface {
	Acknowledge(ctx context.Context, text string)
}

// AckFunc adapts a function to Acknowledger.
type AckFunc func(ctx context.Context, text string)

func (f AckFunc) Acknowledge(ctx context.Context, text string) { f(ctx, text) }

func acknowledge(ctx context.Context, ack Acknowledger, text string) {
	if ack != nil {
		ack.Acknowledge(ctx, text)
	}
}

// RejectReason names the rule a booking broke.
type RejectReason string

const (
	RejectWeekend     RejectReason = "weekend"
	RejectOutOfHours  RejectReason = "out_of_hours"
	RejectMisaligned  RejectReason = "misaligned"
	RejectInvalidTime RejectReason = "invalid_time"
	RejectSlotTaken   RejectReason = "slot_taken"
	RejectLocked      RejectReason = "locked"
)

// Availability is the answer to CheckAvailability.
type Availability struct {
	Date            time.Time
	CalendarID      string
	CalendarName    string
	Slots           availability.DaySlots
	IsToday         bool
	NextBusinessDay *time.Time
	DateFallback    bool
}

// Closed reports a weekend date.
func (a *Availability) Closed() bool { return a.Slots.Closed }

// BookRequest carries the raw expressions the caller spoke.
type BookRequest struct {
	CalendarID  string
	Date        string
	Time        string
	PatientName string
	Reason      string
}

// Appointment is a committed booking. The backend owns it; nothing is kept locally.
type Appointment struct {
	ID          string    `json:"appointment_id"`
	CalendarID  string    `json:"calendar_id"`
	PatientName string    `json:"patient_name"`
	Reason      string    `json:"reason"`
	Start       time.Time `json:"start"`
	End         time.Time `json:"end"`
}

// BookingOutcome is either committed (Appointment set) or rejected.
type BookingOutcome struct {
	Appointment  *Appointment
	Rejected     RejectReason
	Message      string
	Date         time.Time
	Hour, Minute int
	CalendarID   string
	CalendarName string
	DateFallback bool
}

// Committed reports whether the appointment was created.
func (o *BookingOutcome) Committed() bool { return o.Appointment != nil }

// CancelRequest identifies an appointment either by id or by patient name and date.
type CancelRequest struct {
	CalendarID    string
	AppointmentID string
	PatientName   string
	Date          string
}

// CancelOutcome is Cancelled or NotFound.
type CancelOutcome struct {
	Cancelled     bool
	AppointmentID string
	PatientName   string
	Date          time.Time
	Message       string
	DateFallback  bool
}

// Today is the clinic clock as reported to callers.
type Today struct {
	CurrentDate   string `json:"current_date"`
	FormattedDate string `json:"formatted_date"`
	CurrentDay    string `json:"current_day"`
	CurrentTime   string `json:"current_time"`
	Timezone      string `json:"timezone"`
	IsWeekday     bool   `json:"is_weekday"`
}
