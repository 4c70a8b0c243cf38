package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/medicare-wellness/clinic-scheduler/internal/forms"
	"github.com/medicare-wellness/clinic-scheduler/internal/patients"
	"github.com/medicare-wellness/clinic-scheduler/internal/scheduling"
	"github.com/medicare-wellness/clinic-scheduler/pkg/logging"
)

// FormsHandler serves intake form distribution and completion callbacks.
type FormsHandler struct {
	service *forms.Service
	logger  *logging.Logger
}

// NewFormsHandler creates a forms handler.
func NewFormsHandler(service *forms.Service, logger *logging.Logger) *FormsHandler {
	if logger == nil {
		logger = logging.Default()
	}
	return &FormsHandler{service: service, logger: logger}
}

// CompleteFormRequest is the form submission callback body. PatientID is the
// opaque form token from the emailed link, not the internal patient ID.
type CompleteFormRequest struct {
	PatientID string          `json:"patient_id"`
	FormData  json.RawMessage `json:"form_data"`
}

// Complete records a form submission.
func (h *FormsHandler) Complete(w http.ResponseWriter, r *http.Request) {
	var req CompleteFormRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.PatientID == "" {
		writeError(w, http.StatusBadRequest, "patient_id is required")
		return
	}

	form, err := h.service.Complete(r.Context(), req.PatientID, req.FormData)
	switch {
	case errors.Is(err, patients.ErrPatientNotFound):
		writeError(w, http.StatusNotFound, "unknown form token")
		return
	case errors.Is(err, forms.ErrNoOutstandingForm):
		writeError(w, http.StatusConflict, "no outstanding form for this patient")
		return
	case err != nil:
		h.logger.Error("form completion failed", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to record form submission")
		return
	}

	writeJSON(w, http.StatusOK, form)
}

// Send distributes intake forms for an appointment.
func (h *FormsHandler) Send(w http.ResponseWriter, r *http.Request) {
	id, ok := parseAppointmentID(w, r)
	if !ok {
		return
	}

	form, err := h.service.SendForAppointment(r.Context(), id)
	switch {
	case errors.Is(err, scheduling.ErrAppointmentNotFound):
		writeError(w, http.StatusNotFound, "appointment not found")
		return
	case errors.Is(err, patients.ErrPatientNotFound):
		writeError(w, http.StatusNotFound, "patient not found")
		return
	case err != nil:
		h.logger.Error("form distribution failed", "error", err, "appointment_id", id)
		writeError(w, http.StatusInternalServerError, "failed to send forms")
		return
	}
	if form == nil {
		// Already sent earlier.
		w.WriteHeader(http.StatusNoContent)
		return
	}
	writeJSON(w, http.StatusCreated, form)
}
