package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/wolfman30/clinic-booking-assistant/internal/audit"
	"github.com/wolfman30/clinic-booking-assistant/internal/http/middleware"
	"github.com/wolfman30/clinic-booking-assistant/internal/patients"
	"github.com/wolfman30/clinic-booking-assistant/internal/scheduling"
	"github.com/wolfman30/clinic-booking-assistant/pkg/logging"
)

// AuditLister reads back recent tool-call audit entries.
type AuditLister interface {
	Recent(ctx context.Context, limit int) ([]audit.Entry, error)
}

// AdminHandler serves the staff-only endpoints under /admin.
type AdminHandler struct {
	scheduler *scheduling.Service
	directory *patients.Directory
	audit     AuditLister
	logger    *logging.Logger
}

// NewAdminHandler creates a new AdminHandler. auditStore may be nil when
// auditing is disabled.
func NewAdminHandler(scheduler *scheduling.Service, directory *patients.Directory, auditStore AuditLister, logger *logging.Logger) *AdminHandler {
	if logger == nil {
		logger = logging.Default()
	}
	return &AdminHandler{scheduler: scheduler, directory: directory, audit: auditStore, logger: logger}
}

// ListCalendars handles GET /admin/calendars.
func (h *AdminHandler) ListCalendars(w http.ResponseWriter, r *http.Request) {
	cals, primary, err := h.scheduler.ListCalendars(r.Context())
	if err != nil {
		h.logger.Error("admin: list calendars failed", "error", err)
		writeJSON(w, http.StatusBadGateway, map[string]string{"error": "calendar backend unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"calendars":           cals,
		"primary_calendar_id": primary,
		"total_calendars":     len(cals),
	})
}

// ListPatients handles GET /admin/patients.
func (h *AdminHandler) ListPatients(w http.ResponseWriter, r *http.Request) {
	all, err := h.directory.ListAll(r.Context())
	if err != nil {
		h.logger.Error("admin: list patients failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to list patients"})
		return
	}
	if all == nil {
		all = []*patients.Patient{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"patients": all, "count": len(all)})
}

// DeletePatient handles DELETE /admin/patients/{id}.
func (h *AdminHandler) DeletePatient(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "patient id required"})
		return
	}
	err := h.directory.Delete(r.Context(), id)
	switch {
	case errors.Is(err, patients.ErrPatientNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "patient not found"})
		return
	case err != nil:
		h.logger.Error("admin: delete patient failed", "patient_id", id, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to delete patient"})
		return
	}
	actor := ""
	if claims, ok := middleware.AdminClaimsFromContext(r.Context()); ok {
		actor = claims.Subject
	}
	h.logger.Info("admin: patient deleted", "patient_id", id, "actor", actor)
	w.WriteHeader(http.StatusNoContent)
}

// ToolCalls handles GET /admin/tool-calls?limit=N.
func (h *AdminHandler) ToolCalls(w http.ResponseWriter, r *http.Request) {
	if h.audit == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "audit trail disabled"})
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	entries, err := h.audit.Recent(r.Context(), limit)
	if err != nil {
		h.logger.Error("admin: list tool calls failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to list tool calls"})
		return
	}
	if entries == nil {
		entries = []audit.Entry{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"tool_calls": entries, "count": len(entries)})
}
