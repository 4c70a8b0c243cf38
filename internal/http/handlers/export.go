package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/medicare-wellness/clinic-scheduler/internal/export"
	"github.com/medicare-wellness/clinic-scheduler/internal/scheduling"
	"github.com/medicare-wellness/clinic-scheduler/pkg/logging"
)

// ExportHandler serves appointment and availability report exports.
type ExportHandler struct {
	exporter *export.Exporter
	calc     *scheduling.Calculator
	location *time.Location
	logger   *logging.Logger
}

// NewExportHandler creates an export handler. calc may be nil to disable the
// availability export.
func NewExportHandler(exporter *export.Exporter, calc *scheduling.Calculator, location *time.Location, logger *logging.Logger) *ExportHandler {
	if location == nil {
		location = time.UTC
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &ExportHandler{exporter: exporter, calc: calc, location: location, logger: logger}
}

// Appointments returns the appointment report for [from, to). format=csv
// streams a CSV attachment; anything else returns JSON rows.
func (h *ExportHandler) Appointments(w http.ResponseWriter, r *http.Request) {
	now := time.Now().In(h.location)
	from := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, h.location)
	to := from.AddDate(0, 1, 0)

	var err error
	if raw := r.URL.Query().Get("from"); raw != "" {
		if from, err = time.ParseInLocation(time.DateOnly, raw, h.location); err != nil {
			writeError(w, http.StatusBadRequest, "invalid from date")
			return
		}
	}
	if raw := r.URL.Query().Get("to"); raw != "" {
		if to, err = time.ParseInLocation(time.DateOnly, raw, h.location); err != nil {
			writeError(w, http.StatusBadRequest, "invalid to date")
			return
		}
	}
	if to.Before(from) {
		writeError(w, http.StatusBadRequest, "to must not be before from")
		return
	}

	rows, err := h.exporter.AppointmentReport(r.Context(), from, to)
	if err != nil {
		h.logger.Error("appointment report failed", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to build report")
		return
	}

	if r.URL.Query().Get("format") == "csv" {
		filename := fmt.Sprintf("appointments_%s_%s.csv", from.Format(time.DateOnly), to.Format(time.DateOnly))
		w.Header().Set("Content-Type", "text/csv")
		w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
		if err := h.exporter.WriteAppointmentCSV(w, rows); err != nil {
			h.logger.Error("csv export failed", "error", err)
		}
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"appointments": rows})
}

// Availability returns a doctor's free slots for [from, to] as report rows.
// Query params: doctor_id (required), from, to (YYYY-MM-DD), format=csv.
func (h *ExportHandler) Availability(w http.ResponseWriter, r *http.Request) {
	if h.calc == nil {
		writeError(w, http.StatusNotFound, "availability export not enabled")
		return
	}
	doctorID := r.URL.Query().Get("doctor_id")
	if doctorID == "" {
		writeError(w, http.StatusBadRequest, "doctor_id is required")
		return
	}

	now := time.Now().In(h.location)
	from := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, h.location)
	to := from.AddDate(0, 0, 13)

	var err error
	if raw := r.URL.Query().Get("from"); raw != "" {
		if from, err = time.ParseInLocation(time.DateOnly, raw, h.location); err != nil {
			writeError(w, http.StatusBadRequest, "invalid from date")
			return
		}
	}
	if raw := r.URL.Query().Get("to"); raw != "" {
		if to, err = time.ParseInLocation(time.DateOnly, raw, h.location); err != nil {
			writeError(w, http.StatusBadRequest, "invalid to date")
			return
		}
	}

	slots, err := h.calc.Slots(r.Context(), doctorID, from, to, 0)
	switch {
	case errors.Is(err, scheduling.ErrDoctorNotFound):
		writeError(w, http.StatusNotFound, "doctor not found")
		return
	case errors.Is(err, scheduling.ErrInvalidRange):
		writeError(w, http.StatusBadRequest, "to must not be before from")
		return
	case err != nil:
		h.logger.Error("availability export failed", "error", err, "doctor_id", doctorID)
		writeError(w, http.StatusInternalServerError, "failed to compute availability")
		return
	}

	if r.URL.Query().Get("format") == "csv" {
		filename := fmt.Sprintf("availability_%s_%s.csv", doctorID, from.Format(time.DateOnly))
		w.Header().Set("Content-Type", "text/csv")
		w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
		if err := h.exporter.WriteSlotCSV(w, slots); err != nil {
			h.logger.Error("csv export failed", "error", err)
		}
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"doctor_id": doctorID, "slots": slots})
}
