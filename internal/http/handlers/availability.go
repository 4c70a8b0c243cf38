package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/medicare-wellness/clinic-scheduler/internal/scheduling"
	"github.com/medicare-wellness/clinic-scheduler/pkg/logging"
)

// AvailabilityHandler serves the doctor roster and free-slot queries.
type AvailabilityHandler struct {
	calc     *scheduling.Calculator
	store    *scheduling.Store
	location *time.Location
	logger   *logging.Logger
}

// NewAvailabilityHandler creates an availability handler.
func NewAvailabilityHandler(calc *scheduling.Calculator, store *scheduling.Store, location *time.Location, logger *logging.Logger) *AvailabilityHandler {
	if location == nil {
		location = time.UTC
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &AvailabilityHandler{calc: calc, store: store, location: location, logger: logger}
}

// ListDoctors returns the doctor roster.
func (h *AvailabilityHandler) ListDoctors(w http.ResponseWriter, r *http.Request) {
	doctors, err := h.store.ListDoctors(r.Context())
	if err != nil {
		h.logger.Error("list doctors failed", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list doctors")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"doctors": doctors})
}

// GetSlots returns free slots for a doctor over a date range.
// Query params: from, to (YYYY-MM-DD, default today..today+13), duration
// (minutes, optional).
func (h *AvailabilityHandler) GetSlots(w http.ResponseWriter, r *http.Request) {
	doctorID := chi.URLParam(r, "doctorID")

	now := time.Now().In(h.location)
	from := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, h.location)
	to := from.AddDate(0, 0, 13)

	var err error
	if raw := r.URL.Query().Get("from"); raw != "" {
		if from, err = time.ParseInLocation(time.DateOnly, raw, h.location); err != nil {
			writeError(w, http.StatusBadRequest, "invalid from date")
			return
		}
		to = from.AddDate(0, 0, 13)
	}
	if raw := r.URL.Query().Get("to"); raw != "" {
		if to, err = time.ParseInLocation(time.DateOnly, raw, h.location); err != nil {
			writeError(w, http.StatusBadRequest, "invalid to date")
			return
		}
	}

	duration := 0
	if raw := r.URL.Query().Get("duration"); raw != "" {
		if duration, err = strconv.Atoi(raw); err != nil || duration < 0 {
			writeError(w, http.StatusBadRequest, "invalid duration")
			return
		}
	}

	slots, err := h.calc.Slots(r.Context(), doctorID, from, to, duration)
	switch {
	case errors.Is(err, scheduling.ErrDoctorNotFound):
		writeError(w, http.StatusNotFound, "doctor not found")
		return
	case errors.Is(err, scheduling.ErrInvalidRange):
		writeError(w, http.StatusBadRequest, "to must not be before from")
		return
	case err != nil:
		h.logger.Error("slot query failed", "error", err, "doctor_id", doctorID)
		writeError(w, http.StatusInternalServerError, "failed to compute availability")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"doctor_id": doctorID,
		"slots":     slots,
	})
}
