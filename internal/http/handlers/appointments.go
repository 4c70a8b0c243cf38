package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/medicare-wellness/clinic-scheduler/internal/forms"
	"github.com/medicare-wellness/clinic-scheduler/internal/reminders"
	"github.com/medicare-wellness/clinic-scheduler/internal/scheduling"
	"github.com/medicare-wellness/clinic-scheduler/pkg/logging"
)

// AppointmentsHandler serves booking, cancellation, and appointment lookups.
type AppointmentsHandler struct {
	booker    *scheduling.Booker
	store     *scheduling.Store
	forms     *forms.Service
	reminders *reminders.Store
	logger    *logging.Logger
}

// NewAppointmentsHandler creates an appointments handler. forms may be nil
// to disable automatic intake form distribution.
func NewAppointmentsHandler(booker *scheduling.Booker, store *scheduling.Store, formsSvc *forms.Service, remStore *reminders.Store, logger *logging.Logger) *AppointmentsHandler {
	if logger == nil {
		logger = logging.Default()
	}
	return &AppointmentsHandler{
		booker:    booker,
		store:     store,
		forms:     formsSvc,
		reminders: remStore,
		logger:    logger,
	}
}

// CreateAppointmentRequest is the booking request body.
type CreateAppointmentRequest struct {
	PatientID       uuid.UUID `json:"patient_id"`
	DoctorID        string    `json:"doctor_id"`
	StartsAt        time.Time `json:"starts_at"`
	DurationMinutes int       `json:"duration_minutes,omitempty"`
}

// Create books an appointment. Overlaps return 409 with the colliding
// appointment's ID.
func (h *AppointmentsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateAppointmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.PatientID == uuid.Nil || req.DoctorID == "" || req.StartsAt.IsZero() {
		writeError(w, http.StatusBadRequest, "patient_id, doctor_id, and starts_at are required")
		return
	}

	appt, err := h.booker.Book(r.Context(), scheduling.BookingRequest{
		PatientID:       req.PatientID,
		DoctorID:        req.DoctorID,
		StartsAt:        req.StartsAt,
		DurationMinutes: req.DurationMinutes,
	})
	var conflict *scheduling.ConflictError
	switch {
	case errors.As(err, &conflict):
		writeJSON(w, http.StatusConflict, map[string]any{
			"error":          "requested time conflicts with an existing appointment",
			"conflicting_id": conflict.ConflictingID,
		})
		return
	case errors.Is(err, scheduling.ErrDoctorNotFound):
		writeError(w, http.StatusNotFound, "doctor not found")
		return
	case errors.Is(err, scheduling.ErrPatientNotFound):
		writeError(w, http.StatusNotFound, "patient not found")
		return
	case err != nil:
		h.logger.Error("booking failed", "error", err, "doctor_id", req.DoctorID)
		writeError(w, http.StatusInternalServerError, "failed to book appointment")
		return
	}

	// Intake forms go out right after booking; a distribution failure never
	// unwinds the committed appointment.
	if h.forms != nil {
		if _, err := h.forms.SendForAppointment(r.Context(), appt.ID); err != nil {
			h.logger.Error("intake form distribution failed", "error", err, "appointment_id", appt.ID)
		}
	}

	writeJSON(w, http.StatusCreated, appt)
}

// Get returns one appointment.
func (h *AppointmentsHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := parseAppointmentID(w, r)
	if !ok {
		return
	}
	appt, err := h.store.GetAppointment(r.Context(), id)
	if errors.Is(err, scheduling.ErrAppointmentNotFound) {
		writeError(w, http.StatusNotFound, "appointment not found")
		return
	}
	if err != nil {
		h.logger.Error("get appointment failed", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load appointment")
		return
	}
	writeJSON(w, http.StatusOK, appt)
}

// Cancel cancels an appointment and its pending reminders.
func (h *AppointmentsHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	id, ok := parseAppointmentID(w, r)
	if !ok {
		return
	}
	err := h.booker.Cancel(r.Context(), id)
	if errors.Is(err, scheduling.ErrAppointmentNotFound) {
		writeError(w, http.StatusNotFound, "appointment not found")
		return
	}
	if err != nil {
		h.logger.Error("cancel failed", "error", err, "appointment_id", id)
		writeError(w, http.StatusInternalServerError, "failed to cancel appointment")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Complete marks an appointment completed.
func (h *AppointmentsHandler) Complete(w http.ResponseWriter, r *http.Request) {
	id, ok := parseAppointmentID(w, r)
	if !ok {
		return
	}
	err := h.booker.Complete(r.Context(), id)
	if errors.Is(err, scheduling.ErrAppointmentNotFound) {
		writeError(w, http.StatusNotFound, "appointment not found")
		return
	}
	if err != nil {
		h.logger.Error("complete failed", "error", err, "appointment_id", id)
		writeError(w, http.StatusInternalServerError, "failed to complete appointment")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListReminders returns the reminders scheduled for an appointment.
func (h *AppointmentsHandler) ListReminders(w http.ResponseWriter, r *http.Request) {
	id, ok := parseAppointmentID(w, r)
	if !ok {
		return
	}
	rems, err := h.reminders.ListByAppointment(r.Context(), id)
	if err != nil {
		h.logger.Error("list reminders failed", "error", err, "appointment_id", id)
		writeError(w, http.StatusInternalServerError, "failed to list reminders")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"reminders": rems})
}

func parseAppointmentID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "appointmentID"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid appointment id")
		return uuid.Nil, false
	}
	return id, true
}
