package scheduling

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

var (
	// ErrDoctorNotFound is returned when the referenced doctor does not exist.
	ErrDoctorNotFound = errors.New("scheduling: doctor not found")

	// ErrPatientNotFound is returned when the referenced patient does not exist.
	ErrPatientNotFound = errors.New("scheduling: patient not found")

	// ErrAppointmentNotFound is returned for unknown appointment identifiers.
	ErrAppointmentNotFound = errors.New("scheduling: appointment not found")

	// ErrInvalidRange is returned when a query range ends before it starts.
	ErrInvalidRange = errors.New("scheduling: end date precedes start date")
)

// ConflictError reports a booking whose interval, with buffer applied,
// overlaps an existing appointment for the same doctor.
type ConflictError struct {
	DoctorID      string
	ConflictingID uuid.UUID
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("scheduling: requested interval conflicts with appointment %s for doctor %s",
		e.ConflictingID, e.DoctorID)
}

// IsConflict reports whether err is a booking conflict.
func IsConflict(err error) bool {
	var ce *ConflictError
	return errors.As(err, &ce)
}
