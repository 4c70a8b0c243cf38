package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/medicare-wellness/clinic-scheduler/internal/patients"
	"github.com/medicare-wellness/clinic-scheduler/pkg/logging"
)

// PatientsHandler serves patient registration and lookups.
type PatientsHandler struct {
	store  *patients.Store
	logger *logging.Logger
}

// NewPatientsHandler creates a patients handler.
func NewPatientsHandler(store *patients.Store, logger *logging.Logger) *PatientsHandler {
	if logger == nil {
		logger = logging.Default()
	}
	return &PatientsHandler{store: store, logger: logger}
}

// RegisterPatientRequest is the registration body.
type RegisterPatientRequest struct {
	FirstName   string `json:"first_name"`
	LastName    string `json:"last_name"`
	Email       string `json:"email"`
	Phone       string `json:"phone,omitempty"`
	DateOfBirth string `json:"date_of_birth,omitempty"` // YYYY-MM-DD
}

// Register creates a patient record.
func (h *PatientsHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterPatientRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	var dob *time.Time
	if req.DateOfBirth != "" {
		parsed, err := time.Parse(time.DateOnly, req.DateOfBirth)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid date_of_birth")
			return
		}
		dob = &parsed
	}

	patient, err := patients.NewPatient(req.FirstName, req.LastName, req.Email, req.Phone, dob)
	if errors.Is(err, patients.ErrInvalidPatient) {
		writeError(w, http.StatusBadRequest, "first_name, last_name, and a valid email are required")
		return
	}
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.store.Create(r.Context(), patient); err != nil {
		h.logger.Error("patient registration failed", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to register patient")
		return
	}

	h.logger.Info("patient registered", "patient_id", patient.ID)
	writeJSON(w, http.StatusCreated, patient)
}

// Get returns one patient.
func (h *PatientsHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "patientID"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid patient id")
		return
	}
	patient, err := h.store.GetByID(r.Context(), id)
	if errors.Is(err, patients.ErrPatientNotFound) {
		writeError(w, http.StatusNotFound, "patient not found")
		return
	}
	if err != nil {
		h.logger.Error("get patient failed", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load patient")
		return
	}
	writeJSON(w, http.StatusOK, patient)
}
