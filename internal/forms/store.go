package forms

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Querier abstracts the pgx query interface for pools, transactions, and mocks.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Store provides persistence for intake forms.
type Store struct {
	db Querier
}

// NewStore creates a form store.
func NewStore(db Querier) *Store {
	return &Store{db: db}
}

// Insert persists a newly distributed form.
func (s *Store) Insert(ctx context.Context, f *IntakeForm) error {
	if f.ID == uuid.Nil {
		f.ID = uuid.New()
	}
	f.CreatedAt = time.Now().UTC()
	if f.Status == "" {
		f.Status = StatusSent
	}
	if f.FormType == "" {
		f.FormType = "intake"
	}
	if f.SentAt == nil {
		now := f.CreatedAt
		f.SentAt = &now
	}
	_, err := s.db.Exec(ctx, `
		INSERT INTO patient_intake_forms (id, patient_id, appointment_id, form_type, status, sent_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		f.ID, f.PatientID, f.AppointmentID, f.FormType, string(f.Status), f.SentAt, f.CreatedAt)
	if err != nil {
		return fmt.Errorf("forms: insert: %w", err)
	}
	return nil
}

// LatestOutstanding returns the patient's most recently sent, uncompleted
// form.
func (s *Store) LatestOutstanding(ctx context.Context, patientID uuid.UUID) (*IntakeForm, error) {
	var f IntakeForm
	var status string
	err := s.db.QueryRow(ctx, `
		SELECT id, patient_id, appointment_id, form_type, status, sent_at, completed_at, form_data, created_at
		FROM patient_intake_forms
		WHERE patient_id = $1 AND status = 'sent'
		ORDER BY created_at DESC
		LIMIT 1`, patientID).
		Scan(&f.ID, &f.PatientID, &f.AppointmentID, &f.FormType, &status,
			&f.SentAt, &f.CompletedAt, &f.FormData, &f.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNoOutstandingForm
	}
	if err != nil {
		return nil, fmt.Errorf("forms: latest outstanding: %w", err)
	}
	f.Status = Status(status)
	return &f, nil
}

// ListByAppointment returns the forms distributed for an appointment.
func (s *Store) ListByAppointment(ctx context.Context, appointmentID uuid.UUID) ([]IntakeForm, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, patient_id, appointment_id, form_type, status, sent_at, completed_at, form_data, created_at
		FROM patient_intake_forms
		WHERE appointment_id = $1
		ORDER BY created_at`, appointmentID)
	if err != nil {
		return nil, fmt.Errorf("forms: list by appointment: %w", err)
	}
	defer rows.Close()

	var result []IntakeForm
	for rows.Next() {
		var f IntakeForm
		var status string
		err := rows.Scan(&f.ID, &f.PatientID, &f.AppointmentID, &f.FormType, &status,
			&f.SentAt, &f.CompletedAt, &f.FormData, &f.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("forms: scan form: %w", err)
		}
		f.Status = Status(status)
		result = append(result, f)
	}
	return result, rows.Err()
}

// Complete marks a form completed and stores the submitted answers.
func (s *Store) Complete(ctx context.Context, id uuid.UUID, data json.RawMessage) error {
	tag, err := s.db.Exec(ctx, `
		UPDATE patient_intake_forms
		SET status = 'completed', completed_at = $1, form_data = $2
		WHERE id = $3 AND status = 'sent'`, time.Now().UTC(), data, id)
	if err != nil {
		return fmt.Errorf("forms: complete: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrFormNotFound
	}
	return nil
}
