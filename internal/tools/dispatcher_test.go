package tools

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/clinic-booking-assistant/internal/audit"
	"github.com/wolfman30/clinic-booking-assistant/internal/calendar"
	"github.com/wolfman30/clinic-booking-assistant/internal/observability/metrics"
	"github.com/wolfman30/clinic-booking-assistant/internal/patients"
	"github.com/wolfman30/clinic-booking-assistant/internal/scheduling"
)

type memoryAudit struct {
	mu      sync.Mutex
	entries []audit.Entry
}

func (m *memoryAudit) Record(_ context.Context, e audit.Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, e)
	return nil
}

type brokenCalendar struct{}

var errQuota = errors.New("googleapi: Error 403: rateLimitExceeded")

func (brokenCalendar) ListCalendars(context.Context) ([]calendar.Resource, error) { return nil, errQuota }
func (brokenCalendar) GetCalendar(context.Context, string) (*calendar.Resource, error) {
	return nil, errQuota
}
func (brokenCalendar) ListEvents(context.Context, string, time.Time, time.Time) ([]calendar.Event, error) {
	return nil, errQuota
}
func (brokenCalendar) InsertEvent(context.Context, string, calendar.NewEvent) (*calendar.Event, error) {
	return nil, errQuota
}
func (brokenCalendar) DeleteEvent(context.Context, string, string) error { return errQuota }

type ackLog struct{ texts []string }

func (a *ackLog) Acknowledge(_ context.Context, text string) { a.texts = append(a.texts, text) }

type harness struct {
	d     *Dispatcher
	mem   *calendar.MemoryBackend
	audit *memoryAudit
	loc   *time.Location
}

func newHarness(t *testing.T, backend calendar.Backend) harness {
	t.Helper()
	loc, err := time.LoadLocation("Europe/Paris")
	require.NoError(t, err)
	mem := calendar.NewMemoryBackend()
	if backend == nil {
		backend = mem
	}
	sched := scheduling.NewService(backend, scheduling.Options{
		Location: loc,
		Now:      func() time.Time { return time.Date(2025, 10, 15, 15, 42, 0, 0, loc) },
	}, nil)
	dir := patients.NewDirectory(patients.NewInMemoryRepository(), nil)
	rec := &memoryAudit{}
	d := NewDispatcher(sched, dir, metrics.NewToolMetrics(prometheus.NewRegistry()), rec, nil)
	return harness{d: d, mem: mem, audit: rec, loc: loc}
}

func (h harness) invoke(t *testing.T, name string, args map[string]string, ack scheduling.Acknowledger) Result {
	t.Helper()
	return h.d.Invoke(context.Background(), Call{ID: "call-" + name, Name: name, Arguments: args}, ack)
}

func TestInvokeMissingArgumentsNeverReachesBackend(t *testing.T) {
	h := newHarness(t, brokenCalendar{})
	res := h.invoke(t, OpScheduleAppointment, map[string]string{"date": "demain"}, nil)
	assert.Equal(t, OutcomeInvalid, res.Outcome)
	assert.Equal(t, Record{"error": "Informations manquantes pour le rendez-vous"}, res.Record)
}

func TestInvokeCurrentDate(t *testing.T) {
	h := newHarness(t, nil)
	res := h.invoke(t, OpCurrentDate, nil, nil)
	require.Equal(t, OutcomeOK, res.Outcome)
	assert.Equal(t, "15/10/2025", res.Record["current_date"])
	assert.Equal(t, "Mercredi", res.Record["current_day"])
	assert.Equal(t, true, res.Record["is_weekday"])
}

func TestInvokeCheckAvailability(t *testing.T) {
	h := newHarness(t, nil)
	start := time.Date(2025, 10, 16, 10, 0, 0, 0, h.loc)
	h.mem.Seed("primary", calendar.Event{Title: "x", Start: start, End: start.Add(30 * time.Minute)})
	h.mem.Seed("primary", calendar.Event{Title: "y", Start: start.Add(30 * time.Minute), End: start.Add(time.Hour)})

	res := h.invoke(t, OpCheckAvailability, map[string]string{"date": "demain"}, nil)
	require.Equal(t, OutcomeOK, res.Outcome)
	assert.Equal(t, "16/10/2025", res.Record["date"])
	assert.Equal(t, "Jeudi 16 octobre 2025", res.Record["formatted_date"])
	assert.Equal(t, []string{"09h à 10h", "11h à 17h"}, res.Record["free_ranges"])
	assert.Equal(t, []string{"10h", "10h30"}, res.Record["booked_slots"])
	assert.Len(t, res.Record["available_slots"], 14)
	assert.Equal(t, false, res.Record["date_fallback"])
}

func TestInvokeCheckAvailabilityWeekend(t *testing.T) {
	h := newHarness(t, nil)
	res := h.invoke(t, OpCheckAvailability, map[string]string{"date": "samedi"}, nil)
	require.Equal(t, OutcomeOK, res.Outcome)
	assert.Equal(t, true, res.Record["closed"])
	assert.Equal(t, false, res.Record["is_weekday"])
	assert.Equal(t, "Lundi 20 octobre 2025", res.Record["next_business_day"])
	assert.Equal(t, "18/10/2025", res.Record["date"])
}

func TestInvokeScheduleRejectionAndCommit(t *testing.T) {
	h := newHarness(t, nil)
	ack := &ackLog{}

	res := h.invoke(t, OpScheduleAppointment, map[string]string{"patient_name": "Jean Pascal", "date": "demain", "time": "18h"}, ack)
	assert.Equal(t, OutcomeRejected, res.Outcome)
	assert.Equal(t, "out_of_hours", res.Record["rejected"])
	assert.Equal(t, false, res.Record["success"])
	assert.Empty(t, ack.texts)

	res = h.invoke(t, OpScheduleAppointment, map[string]string{"patient_name": "Jean Pascal", "date": "demain", "time": "14h30", "reason": "Suivi"}, ack)
	require.Equal(t, OutcomeOK, res.Outcome)
	assert.Equal(t, true, res.Record["success"])
	assert.Equal(t, "14h30", res.Record["time"])
	assert.Equal(t, "Suivi", res.Record["reason"])
	assert.NotEmpty(t, res.Record["appointment_id"])
	assert.Len(t, ack.texts, 1)

	res = h.invoke(t, OpScheduleAppointment, map[string]string{"patient_name": "Marie Curie", "date": "16/10/2025", "time": "14:30"}, nil)
	assert.Equal(t, OutcomeRejected, res.Outcome)
	assert.Equal(t, "slot_taken", res.Record["rejected"])
}

func TestInvokeBackendFailureIsGenericAndSpeakable(t *testing.T) {
	h := newHarness(t, brokenCalendar{})
	res := h.invoke(t, OpCheckAvailability, map[string]string{"date": "demain"}, nil)
	assert.Equal(t, OutcomeError, res.Outcome)
	assert.Equal(t, Record{"error": calendarUnavailable}, res.Record)
	assert.NotContains(t, res.Record["error"], "googleapi")
}

func TestInvokeCancel(t *testing.T) {
	h := newHarness(t, nil)
	start := time.Date(2025, 10, 16, 9, 0, 0, 0, h.loc)
	ev := h.mem.Seed("primary", calendar.Event{Title: "Rendez-vous: Jean Pascal", Start: start, End: start.Add(30 * time.Minute)})

	res := h.invoke(t, OpCancelAppointment, map[string]string{"patient_name": "Marie Curie", "date": "demain"}, nil)
	assert.Equal(t, OutcomeNotFound, res.Outcome)
	assert.Equal(t, true, res.Record["not_found"])

	res = h.invoke(t, OpCancelAppointment, map[string]string{"appointment_id": ev.ID}, nil)
	assert.Equal(t, OutcomeOK, res.Outcome)
	assert.Equal(t, ev.ID, res.Record["appointment_id"])
	assert.Equal(t, "Le rendez-vous a été annulé.", res.Record["message"])

	res = h.invoke(t, OpCancelAppointment, map[string]string{"appointment_id": ev.ID}, nil)
	assert.Equal(t, OutcomeNotFound, res.Outcome)
	assert.Equal(t, "Je ne trouve pas ce rendez-vous.", res.Record["message"])
	assert.NotContains(t, res.Record["message"], ev.ID)
}

func TestInvokeUnknownCalendarIsNotFound(t *testing.T) {
	cases := []struct {
		name string
		op   string
		args map[string]string
	}{
		{"check availability", OpCheckAvailability, map[string]string{"date": "demain", "calendar_id": "cardio"}},
		{"schedule", OpScheduleAppointment, map[string]string{"date": "demain", "time": "10h", "patient_name": "Jean Pascal", "calendar_id": "cardio"}},
		{"cancel by id", OpCancelAppointment, map[string]string{"appointment_id": "evt-1", "calendar_id": "cardio"}},
		{"cancel by name and date", OpCancelAppointment, map[string]string{"patient_name": "Jean Pascal", "date": "demain", "calendar_id": "cardio"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h := newHarness(t, nil)
			res := h.invoke(t, tc.op, tc.args, nil)
			assert.Equal(t, OutcomeNotFound, res.Outcome)
			assert.Equal(t, Record{"success": false, "not_found": true, "message": "Je ne trouve pas ce calendrier."}, res.Record)
		})
	}
}

func TestInvokePatientFlow(t *testing.T) {
	h := newHarness(t, nil)
	ack := &ackLog{}

	res := h.invoke(t, OpAddPatient, map[string]string{
		"first_name": "Jean", "last_name": "Pascal", "email": "Jean.Pascal@Example.com", "phone": "0612345678",
	}, ack)
	require.Equal(t, OutcomeOK, res.Outcome)
	assert.Equal(t, true, res.Record["created"])
	assert.Len(t, ack.texts, 1)
	added := res.Record["patient"].(*patients.Patient)

	res = h.invoke(t, OpAddPatient, map[string]string{"first_name": "Jean", "last_name": "Pascal", "email": "jean.pascal@example.com"}, nil)
	require.Equal(t, OutcomeOK, res.Outcome)
	assert.Equal(t, false, res.Record["created"])
	assert.Equal(t, added.ID, res.Record["patient"].(*patients.Patient).ID)

	res = h.invoke(t, OpFindPatientByEmail, map[string]string{"email": "JEAN.PASCAL@example.com"}, nil)
	require.Equal(t, OutcomeOK, res.Outcome)
	assert.Equal(t, added.ID, res.Record["patient"].(*patients.Patient).ID)

	res = h.invoke(t, OpVerifyPatient, map[string]string{"phone": "0000"}, nil)
	assert.Equal(t, OutcomeNotFound, res.Outcome)
	assert.Equal(t, false, res.Record["exists"])

	res = h.invoke(t, OpUpdatePatient, map[string]string{"email": "ghost@example.com", "phone": "07"}, nil)
	assert.Equal(t, OutcomeNotFound, res.Outcome)

	res = h.invoke(t, OpUpdatePatient, map[string]string{"patient_id": "pat-missing-42", "phone": "07"}, nil)
	assert.Equal(t, OutcomeNotFound, res.Outcome)
	assert.Equal(t, "Je ne trouve pas ce patient.", res.Record["message"])
	assert.NotContains(t, res.Record["message"], "pat-missing-42")

	res = h.invoke(t, OpUpdatePatient, map[string]string{"patient_id": added.ID, "phone": "0700000000"}, ack)
	require.Equal(t, OutcomeOK, res.Outcome)
	assert.Equal(t, "0700000000", res.Record["patient"].(*patients.Patient).Phone)

	res = h.invoke(t, OpListPatients, nil, nil)
	require.Equal(t, OutcomeOK, res.Outcome)
	assert.Equal(t, 1, res.Record["count"])
}

func TestInvokeAuditsArgumentNamesOnly(t *testing.T) {
	h := newHarness(t, nil)
	h.invoke(t, OpFindPatientByPhone, map[string]string{"phone": "0612345678"}, nil)

	require.Len(t, h.audit.entries, 1)
	entry := h.audit.entries[0]
	assert.Equal(t, OpFindPatientByPhone, entry.Operation)
	assert.Equal(t, string(OutcomeNotFound), entry.Outcome)
	assert.Equal(t, []string{"phone"}, entry.ArgumentNames)
	assert.Equal(t, "call-find_patient_by_phone", entry.ToolCallID)

	raw, err := json.Marshal(entry)
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "0612345678")
}

func TestInvokeUnknownTool(t *testing.T) {
	h := newHarness(t, nil)
	res := h.invoke(t, "drop_tables", nil, nil)
	assert.Equal(t, OutcomeInvalid, res.Outcome)
	assert.Contains(t, res.Record, "error")
}

func TestResultMarshalsRecord(t *testing.T) {
	raw, err := json.Marshal(Result{Outcome: OutcomeNotFound, Record: Record{"found": false}})
	require.NoError(t, err)
	assert.JSONEq(t, `{"found": false}`, string(raw))
}
