package reminders

import (
	"time"

	"github.com/google/uuid"
)

// Tier identifies one of the three scheduled notification points relative
// to the appointment time.
type Tier string

const (
	TierThreeDay Tier = "three_day"
	TierOneDay   Tier = "one_day"
	TierTwoHour  Tier = "two_hour"
)

// Status tracks the reminder lifecycle. Terminal states never mutate.
type Status string

const (
	StatusPending   Status = "pending"
	StatusSending   Status = "sending"
	StatusSent      Status = "sent"
	StatusFailed    Status = "failed"
	StatusCancelled Status = "cancelled"
)

// Channel specifies how the reminder is delivered.
type Channel string

const (
	ChannelEmail Channel = "email"
	ChannelSMS   Channel = "sms"
)

// Reminder is one scheduled notification for an appointment.
type Reminder struct {
	ID            uuid.UUID  `json:"id"`
	AppointmentID uuid.UUID  `json:"appointment_id"`
	Tier          Tier       `json:"tier"`
	Channel       Channel    `json:"channel"`
	FireAt        time.Time  `json:"fire_at"`
	// ActionQuestions marks reminders whose message must ask whether intake
	// forms are complete and whether the visit is still confirmed.
	ActionQuestions bool      `json:"action_questions"`
	Status          Status    `json:"status"`
	SentAt          *time.Time `json:"sent_at,omitempty"`
	LastError       string    `json:"last_error,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
}

// DispatchInfo is the joined appointment/patient/doctor context needed to
// render and address a reminder message.
type DispatchInfo struct {
	PatientFirstName string
	PatientLastName  string
	PatientEmail     string
	PatientPhone     string
	FormToken        string
	DoctorName       string
	Specialty        string
	StartsAt         time.Time
	FormsCompleted   bool
}

// PatientName returns the patient's display name.
func (d DispatchInfo) PatientName() string {
	return d.PatientFirstName + " " + d.PatientLastName
}
