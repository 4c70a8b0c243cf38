package forms

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/medicare-wellness/clinic-scheduler/internal/patients"
	"github.com/medicare-wellness/clinic-scheduler/internal/scheduling"
	"github.com/medicare-wellness/clinic-scheduler/pkg/logging"
)

// Mailer sends form distribution emails.
type Mailer interface {
	Send(ctx context.Context, to, subject, htmlBody string) error
}

// ServiceConfig carries clinic branding and the public form URL.
type ServiceConfig struct {
	ClinicName  string
	FormBaseURL string
	Location    *time.Location
}

func (c ServiceConfig) withDefaults() ServiceConfig {
	if c.ClinicName == "" {
		c.ClinicName = "MediCare Allergy & Wellness Center"
	}
	if c.Location == nil {
		c.Location = time.Local
	}
	return c
}

// Service distributes intake forms for appointments and records completions.
type Service struct {
	forms      *Store
	scheduling *scheduling.Store
	patients   *patients.Store
	mailer     Mailer
	cfg        ServiceConfig
	logger     *logging.Logger
}

// NewService creates a form distribution service.
func NewService(forms *Store, sched *scheduling.Store, pats *patients.Store, mailer Mailer, cfg ServiceConfig, logger *logging.Logger) *Service {
	if logger == nil {
		logger = logging.Default()
	}
	return &Service{
		forms:      forms,
		scheduling: sched,
		patients:   pats,
		mailer:     mailer,
		cfg:        cfg.withDefaults(),
		logger:     logger,
	}
}

// SendForAppointment emails the patient their intake form link and records
// the distribution. Sending twice for one appointment is a no-op.
func (s *Service) SendForAppointment(ctx context.Context, appointmentID uuid.UUID) (*IntakeForm, error) {
	appt, err := s.scheduling.GetAppointment(ctx, appointmentID)
	if err != nil {
		return nil, err
	}
	if appt.FormsSent {
		return nil, nil
	}

	patient, err := s.patients.GetByID(ctx, appt.PatientID)
	if err != nil {
		return nil, err
	}

	form := &IntakeForm{
		PatientID:     patient.ID,
		AppointmentID: appt.ID,
	}
	if err := s.forms.Insert(ctx, form); err != nil {
		return nil, err
	}

	subject := fmt.Sprintf("Please complete your intake forms - %s", s.cfg.ClinicName)
	body := s.renderEmail(patient, appt)
	if err := s.mailer.Send(ctx, patient.Email, subject, body); err != nil {
		return nil, fmt.Errorf("forms: send distribution email: %w", err)
	}

	if err := s.scheduling.SetFormFlags(ctx, nil, appt.ID, true, appt.FormsCompleted); err != nil {
		return nil, err
	}

	s.logger.Info("intake forms sent",
		"appointment_id", appt.ID, "patient_id", patient.ID, "form_id", form.ID)
	return form, nil
}

// Complete records a form submission identified by the patient's form token
// and flips the appointment's completion flag.
func (s *Service) Complete(ctx context.Context, formToken string, data json.RawMessage) (*IntakeForm, error) {
	patient, err := s.patients.GetByFormToken(ctx, formToken)
	if err != nil {
		return nil, err
	}

	form, err := s.forms.LatestOutstanding(ctx, patient.ID)
	if err != nil {
		return nil, err
	}
	if err := s.forms.Complete(ctx, form.ID, data); err != nil {
		return nil, err
	}
	if err := s.scheduling.SetFormFlags(ctx, nil, form.AppointmentID, true, true); err != nil {
		return nil, err
	}

	s.logger.Info("intake forms completed",
		"appointment_id", form.AppointmentID, "patient_id", patient.ID, "form_id", form.ID)
	form.Status = StatusCompleted
	form.FormData = data
	return form, nil
}

// FormLink builds the tokenized intake form URL for a patient.
func (s *Service) FormLink(formToken string) string {
	if s.cfg.FormBaseURL == "" || formToken == "" {
		return ""
	}
	sep := "?"
	if strings.Contains(s.cfg.FormBaseURL, "?") {
		sep = "&"
	}
	return s.cfg.FormBaseURL + sep + "patient_id=" + formToken
}

func (s *Service) renderEmail(patient *patients.Patient, appt *scheduling.Appointment) string {
	when := appt.StartsAt.In(s.cfg.Location)
	var b strings.Builder
	fmt.Fprintf(&b, "<p>Hi %s,</p>", patient.FirstName)
	fmt.Fprintf(&b, "<p>Your appointment is scheduled for <strong>%s</strong> at <strong>%s</strong>.</p>",
		when.Format("Monday, January 2, 2006"), when.Format("3:04 PM"))
	if link := s.FormLink(patient.FormToken); link != "" {
		fmt.Fprintf(&b, `<p>Please complete your intake forms before your visit: <a href="%s">%s</a></p>`, link, link)
	}
	fmt.Fprintf(&b, "<p>Thank you,<br>%s</p>", s.cfg.ClinicName)
	return b.String()
}
