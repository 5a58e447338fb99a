// Package tools is the function-call boundary between the voice orchestrator
// and the clinic core. Calls arrive as a tool name plus string arguments,
// are parsed into typed requests and executed by a Dispatcher.
package tools

import (
	"errors"
	"fmt"
	"strings"
)

// Tool names as registered with the orchestrator.
const (
	OpCurrentDate         = "get_current_date"
	OpListCalendars       = "list_calendars"
	OpCheckAvailability   = "check_availability"
	OpScheduleAppointment = "schedule_appointment"
	OpCancelAppointment   = "cancel_appointment"
	OpAddPatient          = "add_patient"
	OpVerifyPatient       = "verify_patient"
	OpUpdatePatient       = "update_patient"
	OpFindPatientByEmail  = "find_patient_by_email"
	OpFindPatientByPhone  = "find_patient_by_phone"
	OpListPatients        = "list_patients"
)

// Older prompt configurations still use these names.
var aliases = map[string]string{
	"check_availability_for_calendar": OpCheckAvailability,
	"add_client":                      OpAddPatient,
	"verify_client":                   OpVerifyPatient,
	"update_client":                   OpUpdatePatient,
	"find_client_by_email":            OpFindPatientByEmail,
	"find_client_by_phone":            OpFindPatientByPhone,
	"list_all_clients":                OpListPatients,
}

// ErrUnknownTool is returned by Parse for names outside the registry.
var ErrUnknownTool = errors.New("tools: unknown tool")

// ArgumentError reports missing or unusable arguments. Message is the
// sentence returned to the caller.
type ArgumentError struct {
	Tool    string
	Missing []string
	Message string
}

func (e *ArgumentError) Error() string {
	return fmt.Sprintf("tools: %s: missing arguments %s", e.Tool, strings.Join(e.Missing, ", "))
}

// Request is one parsed tool call. The set of implementations is closed.
type Request interface {
	Operation() string
	isRequest()
}

type CurrentDate struct{}

type ListCalendars struct{}

type CheckAvailability struct {
	CalendarID string
	Date       string
}

type ScheduleAppointment struct {
	CalendarID  string
	PatientName string
	Date        string
	Time        string
	Reason      string
}

// CancelAppointment needs either AppointmentID or both PatientName and Date.
type CancelAppointment struct {
	CalendarID    string
	AppointmentID string
	PatientName   string
	Date          string
}

type AddPatient struct {
	FirstName string
	LastName  string
	Email     string
	Phone     string
}

// VerifyPatient looks up by email first, then phone.
type VerifyPatient struct {
	Email string
	Phone string
}

// UpdatePatient targets PatientID, or Email when no id is given. NewEmail
// replaces the stored address.
type UpdatePatient struct {
	PatientID string
	Email     string
	FirstName string
	LastName  string
	NewEmail  string
	Phone     string
}

type FindPatientByEmail struct {
	Email string
}

type FindPatientByPhone struct {
	Phone string
}

type ListPatients struct{}

func (CurrentDate) Operation() string { return OpCurrentDate }
func (ListCalendars) Operation() string { return OpListCalendars }
func (CheckAvailability) Operation() string { return OpCheckAvailability }
func (ScheduleAppointment) Operation() string { return OpScheduleAppointment }
func (CancelAppointment) Operation() string { return OpCancelAppointment }
func (AddPatient) Operation() string { return OpAddPatient }
func (VerifyPatient) Operation() string { return OpVerifyPatient }
func (UpdatePatient) Operation() string { return OpUpdatePatient }
func (FindPatientByEmail) Operation() string { return OpFindPatientByEmail }
func (FindPatientByPhone) Operation() string { return OpFindPatientByPhone }
func (ListPatients) Operation() string { return OpListPatients }

func (CurrentDate) isRequest() {}
func (ListCalendars) isRequest() {}
func (CheckAvailability) isRequest() {}
func (ScheduleAppointment) isRequest() {}
func (CancelAppointment) isRequest() {}
func (AddPatient) isRequest() {}
func (VerifyPatient) isRequest() {}
func (UpdatePatient) isRequest() {}
func (FindPatientByEmail) isRequest() {}
func (FindPatientByPhone) isRequest() {}
func (ListPatients) isRequest() {}

// CanonicalName maps legacy aliases to the current tool name.
func CanonicalName(name string) string {
	name = strings.TrimSpace(name)
	if canonical, ok := aliases[name]; ok {
		return canonical
	}
	return name
}

// Parse validates the arguments for tool name and builds its Request.
// Blank values count as absent. Unknown argument keys are ignored.
func Parse(name string, args map[string]string) (Request, error) {
	get := func(key string) string { return strings.TrimSpace(args[key]) }
	op := CanonicalName(name)

	switch op {
	case OpCurrentDate:
		return CurrentDate{}, nil
	case OpListCalendars:
		return ListCalendars{}, nil
	case OpListPatients:
		return ListPatients{}, nil

	case OpCheckAvailability:
		req := CheckAvailability{CalendarID: get("calendar_id"), Date: get("date")}
		if req.Date == "" {
			return nil, &ArgumentError{Tool: op, Missing: []string{"date"}, Message: "Aucune date fournie"}
		}
		return req, nil

	case OpScheduleAppointment:
		req := ScheduleAppointment{
			CalendarID:  get("calendar_id"),
			PatientName: get("patient_name"),
			Date:        get("date"),
			Time:        get("time"),
			Reason:      get("reason"),
		}
		if missing := missingOf(map[string]string{"patient_name": req.PatientName, "date": req.Date, "time": req.Time}); len(missing) > 0 {
			return nil, &ArgumentError{Tool: op, Missing: missing, Message: "Informations manquantes pour le rendez-vous"}
		}
		return req, nil

	case OpCancelAppointment:
		req := CancelAppointment{
			CalendarID:    get("calendar_id"),
			AppointmentID: get("appointment_id"),
			PatientName:   get("patient_name"),
			Date:          get("date"),
		}
		if req.AppointmentID == "" {
			if missing := missingOf(map[string]string{"patient_name": req.PatientName, "date": req.Date}); len(missing) > 0 {
				return nil, &ArgumentError{Tool: op, Missing: missing,
					Message: "Informations manquantes. Veuillez fournir soit l'identifiant du rendez-vous, soit le nom du patient et la date"}
			}
		}
		return req, nil

	case OpAddPatient:
		req := AddPatient{FirstName: get("first_name"), LastName: get("last_name"), Email: get("email"), Phone: get("phone")}
		missing := missingOf(map[string]string{"first_name": req.FirstName, "last_name": req.LastName})
		if req.Email == "" && req.Phone == "" {
			missing = append(missing, "email|phone")
		}
		if len(missing) > 0 {
			return nil, &ArgumentError{Tool: op, Missing: missing,
				Message: "Information patient incomplète. Veuillez fournir prénom, nom et un email ou un numéro de téléphone."}
		}
		return req, nil

	case OpVerifyPatient:
		req := VerifyPatient{Email: get("email"), Phone: get("phone")}
		if req.Email == "" && req.Phone == "" {
			return nil, &ArgumentError{Tool: op, Missing: []string{"email|phone"},
				Message: "Veuillez fournir un email ou un numéro de téléphone pour vérifier le patient."}
		}
		return req, nil

	case OpUpdatePatient:
		req := UpdatePatient{
			PatientID: firstNonEmpty(get("patient_id"), get("client_id")),
			Email:     get("email"),
			FirstName: get("first_name"),
			LastName:  get("last_name"),
			NewEmail:  get("new_email"),
			Phone:     get("phone"),
		}
		if req.PatientID == "" && req.Email == "" {
			return nil, &ArgumentError{Tool: op, Missing: []string{"patient_id|email"},
				Message: "Veuillez fournir l'identifiant du patient ou l'email pour mettre à jour les informations."}
		}
		if req.FirstName == "" && req.LastName == "" && req.NewEmail == "" && req.Phone == "" {
			return nil, &ArgumentError{Tool: op, Missing: []string{"first_name|last_name|new_email|phone"},
				Message: "Aucune information fournie pour la mise à jour. Veuillez spécifier au moins un champ à mettre à jour."}
		}
		return req, nil

	case OpFindPatientByEmail:
		req := FindPatientByEmail{Email: get("email")}
		if req.Email == "" {
			return nil, &ArgumentError{Tool: op, Missing: []string{"email"},
				Message: "Veuillez fournir une adresse email pour rechercher un patient."}
		}
		return req, nil

	case OpFindPatientByPhone:
		req := FindPatientByPhone{Phone: get("phone")}
		if req.Phone == "" {
			return nil, &ArgumentError{Tool: op, Missing: []string{"phone"},
				Message: "Veuillez fournir un numéro de téléphone pour rechercher un patient."}
		}
		return req, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownTool, name)
}

// missingOf lists blank keys in a stable order.
func missingOf(fields map[string]string) []string {
	var missing []string
	for _, key := range []string{"first_name", "last_name", "patient_name", "date", "time"} {
		if v, ok := fields[key]; ok && v == "" {
			missing = append(missing, key)
		}
	}
	return missing
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
