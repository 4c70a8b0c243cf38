package patients

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ErrPatientNotFound is returned for unknown patient identifiers and tokens.
var ErrPatientNotFound = errors.New("patients: patient not found")

// ErrInvalidPatient is returned when required registration fields are missing.
var ErrInvalidPatient = errors.New("patients: missing required fields")

// Patient is a registered clinic patient.
type Patient struct {
	ID          uuid.UUID  `json:"id"`
	FirstName   string     `json:"first_name"`
	LastName    string     `json:"last_name"`
	DateOfBirth *time.Time `json:"date_of_birth,omitempty"`
	Email       string     `json:"email"`
	Phone       string     `json:"phone,omitempty"`
	// FormToken is the short opaque token embedded in intake form links so
	// form submissions can be tied back to the patient without exposing the
	// patient ID.
	FormToken string    `json:"-"`
	CreatedAt time.Time `json:"created_at"`
}

// Name returns the patient's display name.
func (p *Patient) Name() string {
	return p.FirstName + " " + p.LastName
}

// NewPatient validates registration input and assigns identifiers. The form
// token is the first segment of a fresh UUID: short enough for a link, random
// enough to not be guessable in practice.
func NewPatient(firstName, lastName, email, phone string, dob *time.Time) (*Patient, error) {
	firstName = strings.TrimSpace(firstName)
	lastName = strings.TrimSpace(lastName)
	email = strings.TrimSpace(email)
	if firstName == "" || lastName == "" || email == "" || !strings.Contains(email, "@") {
		return nil, ErrInvalidPatient
	}
	return &Patient{
		ID:          uuid.New(),
		FirstName:   firstName,
		LastName:    lastName,
		DateOfBirth: dob,
		Email:       email,
		Phone:       strings.TrimSpace(phone),
		FormToken:   uuid.NewString()[:8],
		CreatedAt:   time.Now().UTC(),
	}, nil
}
