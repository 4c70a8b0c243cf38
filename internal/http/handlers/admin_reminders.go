package handlers

import (
	"net/http"
	"strconv"

	"github.com/medicare-wellness/clinic-scheduler/internal/reminders"
	"github.com/medicare-wellness/clinic-scheduler/pkg/logging"
)

// AdminRemindersHandler serves the staff-facing reminder views and the
// manual dispatch trigger.
type AdminRemindersHandler struct {
	store      *reminders.Store
	dispatcher *reminders.Dispatcher
	logger     *logging.Logger
}

// NewAdminRemindersHandler creates an admin reminders handler.
func NewAdminRemindersHandler(store *reminders.Store, dispatcher *reminders.Dispatcher, logger *logging.Logger) *AdminRemindersHandler {
	if logger == nil {
		logger = logging.Default()
	}
	return &AdminRemindersHandler{store: store, dispatcher: dispatcher, logger: logger}
}

// List returns reminders filtered by status (default pending).
func (h *AdminRemindersHandler) List(w http.ResponseWriter, r *http.Request) {
	status := reminders.Status(r.URL.Query().Get("status"))
	if status == "" {
		status = reminders.StatusPending
	}
	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = parsed
	}

	rems, err := h.store.ListByStatus(r.Context(), status, limit)
	if err != nil {
		h.logger.Error("list reminders failed", "error", err, "status", string(status))
		writeError(w, http.StatusInternalServerError, "failed to list reminders")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"reminders": rems})
}

// Dispatch runs one dispatch pass immediately instead of waiting for the
// worker's next tick.
func (h *AdminRemindersHandler) Dispatch(w http.ResponseWriter, r *http.Request) {
	if h.dispatcher == nil {
		writeError(w, http.StatusServiceUnavailable, "dispatcher not configured")
		return
	}
	sent, err := h.dispatcher.ProcessDue(r.Context())
	if err != nil {
		h.logger.Error("manual dispatch failed", "error", err)
		writeError(w, http.StatusInternalServerError, "dispatch pass failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"sent": sent})
}
