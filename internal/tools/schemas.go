package tools

// Property describes one string argument.
type Property struct {
	Type        string `json:"type"`
	Description string `json:"description"`
}

// Parameters is the JSON-schema object for a tool's arguments.
type Parameters struct {
	Type       string              `json:"type"`
	Properties map[string]Property `json:"properties"`
	Required   []string            `json:"required"`
}

// Schema is a function declaration for the orchestrator's LLM.
type Schema struct {
	Name        string     `json:"name"`
	Description string     `json:"description"`
	Parameters  Parameters `json:"parameters"`
}

const (
	dateHelp  = "La date (format JJ/MM/AAAA, ou relative comme 'aujourd'hui', 'demain', 'lundi prochain', etc.)"
	timeHelp  = "L'heure du rendez-vous (format HHhMM ou HH:MM, par exemple '14h30' ou '14:30')"
	calHelp   = "L'identifiant du calendrier (par défaut: 'primary')"
	emailHelp = "L'adresse email du patient"
	phoneHelp = "Le numéro de téléphone du patient"
)

func str(desc string) Property { return Property{Type: "string", Description: desc} }

func schema(name, desc string, props map[string]Property, required ...string) Schema {
	if props == nil {
		props = map[string]Property{}
	}
	if required == nil {
		required = []string{}
	}
	return Schema{Name: name, Description: desc, Parameters: Parameters{Type: "object", Properties: props, Required: required}}
}

// Schemas lists every tool the dispatcher accepts, in registration order.
func Schemas() []Schema {
	return []Schema{
		schema(OpCurrentDate, "Obtenir la date et l'heure actuelles dans le fuseau horaire de la clinique", nil),
		schema(OpListCalendars, "Récupérer la liste de tous les calendriers et sous-calendriers disponibles", nil),
		schema(OpCheckAvailability,
			"Vérifier les créneaux libres d'un calendrier à une date donnée (comprend les dates relatives comme 'aujourd'hui', 'demain', etc.)",
			map[string]Property{"date": str(dateHelp), "calendar_id": str(calHelp)},
			"date"),
		schema(OpScheduleAppointment, "Programmer un nouveau rendez-vous de 30 minutes pour un patient",
			map[string]Property{
				"patient_name": str("Le nom complet du patient"),
				"date":         str(dateHelp),
				"time":         str(timeHelp),
				"reason":       str("La raison du rendez-vous"),
				"calendar_id":  str(calHelp),
			},
			"patient_name", "date", "time"),
		schema(OpCancelAppointment,
			"Annuler un rendez-vous existant, par son identifiant ou par le nom du patient et la date",
			map[string]Property{
				"appointment_id": str("L'identifiant du rendez-vous à annuler"),
				"patient_name":   str("Le nom complet du patient dont le rendez-vous doit être annulé"),
				"date":           str(dateHelp),
				"calendar_id":    str(calHelp),
			}),
		schema(OpAddPatient, "Ajouter un nouveau patient au fichier (prénom, nom et au moins un email ou un téléphone)",
			map[string]Property{
				"first_name": str("Le prénom du patient"),
				"last_name":  str("Le nom de famille du patient"),
				"email":      str(emailHelp),
				"phone":      str(phoneHelp),
			},
			"first_name", "last_name"),
		schema(OpVerifyPatient, "Vérifier si un patient existe, par email ou par téléphone",
			map[string]Property{"email": str(emailHelp), "phone": str(phoneHelp)}),
		schema(OpUpdatePatient, "Mettre à jour les informations d'un patient identifié par son identifiant ou son email",
			map[string]Property{
				"patient_id": str("L'identifiant du patient"),
				"email":      str("L'email actuel du patient, si l'identifiant n'est pas connu"),
				"first_name": str("Nouveau prénom"),
				"last_name":  str("Nouveau nom de famille"),
				"new_email":  str("Nouvelle adresse email"),
				"phone":      str("Nouveau numéro de téléphone"),
			}),
		schema(OpFindPatientByEmail, "Rechercher un patient par son adresse email",
			map[string]Property{"email": str(emailHelp)}, "email"),
		schema(OpFindPatientByPhone, "Rechercher un patient par son numéro de téléphone",
			map[string]Property{"phone": str(phoneHelp)}, "phone"),
		schema(OpListPatients, "Lister tous les patients enregistrés", nil),
	}
}
