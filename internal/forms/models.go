package forms

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrFormNotFound is returned for unknown form identifiers.
var ErrFormNotFound = errors.New("forms: form not found")

// ErrNoOutstandingForm is returned when a completion arrives for a patient
// with no sent, uncompleted form.
var ErrNoOutstandingForm = errors.New("forms: no outstanding form")

// Status tracks the intake form lifecycle.
type Status string

const (
	StatusSent      Status = "sent"
	StatusCompleted Status = "completed"
)

// IntakeForm is one distributed intake packet tied to an appointment.
type IntakeForm struct {
	ID            uuid.UUID       `json:"id"`
	PatientID     uuid.UUID       `json:"patient_id"`
	AppointmentID uuid.UUID       `json:"appointment_id"`
	FormType      string          `json:"form_type"`
	Status        Status          `json:"status"`
	SentAt        *time.Time      `json:"sent_at,omitempty"`
	CompletedAt   *time.Time      `json:"completed_at,omitempty"`
	FormData      json.RawMessage `json:"form_data,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
}
