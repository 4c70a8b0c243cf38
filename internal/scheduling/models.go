package scheduling

import (
	"time"

	"github.com/google/uuid"
)

// AppointmentStatus tracks the lifecycle of an appointment.
type AppointmentStatus string

const (
	StatusScheduled AppointmentStatus = "scheduled"
	StatusCompleted AppointmentStatus = "completed"
	StatusCancelled AppointmentStatus = "cancelled"
)

// Doctor is reference data seeded administratively.
type Doctor struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Specialty string    `json:"specialty"`
	CreatedAt time.Time `json:"created_at"`
}

// ScheduleWindow is one weekday of a doctor's working-hours template.
// Times are minutes since midnight in clinic local time.
type ScheduleWindow struct {
	Weekday    time.Weekday `json:"weekday"`
	StartOfDay int          `json:"start_minutes"`
	EndOfDay   int          `json:"end_minutes"`
}

// Appointment is a booked visit. Rows are never deleted; cancellation is a
// status transition.
type Appointment struct {
	ID              uuid.UUID         `json:"id"`
	PatientID       uuid.UUID         `json:"patient_id"`
	DoctorID        string            `json:"doctor_id"`
	StartsAt        time.Time         `json:"starts_at"`
	DurationMinutes int               `json:"duration_minutes"`
	Status          AppointmentStatus `json:"status"`
	FormsSent       bool              `json:"forms_sent"`
	FormsCompleted  bool              `json:"forms_completed"`
	CreatedAt       time.Time         `json:"created_at"`
	UpdatedAt       time.Time         `json:"updated_at"`
}

// EndsAt returns the exclusive end of the appointment interval.
func (a Appointment) EndsAt() time.Time {
	return a.StartsAt.Add(time.Duration(a.DurationMinutes) * time.Minute)
}

// Slot is a derived, unbooked interval for a doctor. Slots are computed on
// demand and never persisted.
type Slot struct {
	DoctorID string    `json:"doctor_id"`
	Start    time.Time `json:"start"`
	End      time.Time `json:"end"`
}
