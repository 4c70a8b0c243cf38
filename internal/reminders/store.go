package reminders

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// ErrReminderNotFound is returned for unknown reminder identifiers.
var ErrReminderNotFound = errors.New("reminders: reminder not found")

// Querier abstracts the pgx query interface for pools, transactions, and mocks.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Store provides persistence for reminders.
type Store struct {
	db Querier
}

// NewStore creates a reminder store.
func NewStore(db Querier) *Store {
	return &Store{db: db}
}

// Insert persists a reminder. Inserting an existing (appointment, tier)
// pair is a no-op, which makes scheduling idempotent per tier.
func (s *Store) Insert(ctx context.Context, q Querier, r *Reminder) error {
	if q == nil {
		q = s.db
	}
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	r.CreatedAt = time.Now().UTC()
	if r.Status == "" {
		r.Status = StatusPending
	}
	if r.Channel == "" {
		r.Channel = ChannelEmail
	}
	_, err := q.Exec(ctx, `
		INSERT INTO reminders (id, appointment_id, tier, channel, fire_at, action_questions, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (appointment_id, tier) DO NOTHING`,
		r.ID, r.AppointmentID, string(r.Tier), string(r.Channel), r.FireAt,
		r.ActionQuestions, string(r.Status), r.CreatedAt)
	if err != nil {
		return fmt.Errorf("reminders: insert: %w", err)
	}
	return nil
}

// ListByAppointment returns all reminders for an appointment ordered by
// fire time.
func (s *Store) ListByAppointment(ctx context.Context, appointmentID uuid.UUID) ([]Reminder, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, appointment_id, tier, channel, fire_at, action_questions, status, sent_at, last_error, created_at
		FROM reminders
		WHERE appointment_id = $1
		ORDER BY fire_at`, appointmentID)
	if err != nil {
		return nil, fmt.Errorf("reminders: list by appointment: %w", err)
	}
	defer rows.Close()
	return scanReminders(rows)
}

// ListByStatus returns reminders in the given status, oldest fire time first.
func (s *Store) ListByStatus(ctx context.Context, status Status, limit int) ([]Reminder, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.Query(ctx, `
		SELECT id, appointment_id, tier, channel, fire_at, action_questions, status, sent_at, last_error, created_at
		FROM reminders
		WHERE status = $1
		ORDER BY fire_at
		LIMIT $2`, string(status), limit)
	if err != nil {
		return nil, fmt.Errorf("reminders: list by status: %w", err)
	}
	defer rows.Close()
	return scanReminders(rows)
}

// ClaimDue atomically transitions up to limit due reminders from
// pending → sending and returns them. A reminder claimed here is invisible
// to any overlapping dispatch pass, so each is sent at most once.
func (s *Store) ClaimDue(ctx context.Context, asOf time.Time, limit int) ([]Reminder, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.Query(ctx, `
		UPDATE reminders SET status = 'sending'
		WHERE id IN (
			SELECT id FROM reminders
			WHERE status = 'pending' AND fire_at <= $1
			ORDER BY fire_at
			LIMIT $2
			FOR UPDATE SKIP LOCKED
		)
		RETURNING id, appointment_id, tier, channel, fire_at, action_questions, status, sent_at, last_error, created_at`,
		asOf, limit)
	if err != nil {
		return nil, fmt.Errorf("reminders: claim due: %w", err)
	}
	defer rows.Close()
	return scanReminders(rows)
}

// MarkSent transitions a claimed reminder to its terminal sent state.
func (s *Store) MarkSent(ctx context.Context, id uuid.UUID) error {
	tag, err := s.db.Exec(ctx, `
		UPDATE reminders SET status = 'sent', sent_at = $1
		WHERE id = $2 AND status = 'sending'`, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("reminders: mark sent: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrReminderNotFound
	}
	return nil
}

// MarkFailed records a send failure. Failed reminders are not retried here;
// the failure text is the durable record of what happened.
func (s *Store) MarkFailed(ctx context.Context, id uuid.UUID, sendErr string) error {
	tag, err := s.db.Exec(ctx, `
		UPDATE reminders SET status = 'failed', sent_at = $1, last_error = $2
		WHERE id = $3 AND status = 'sending'`, time.Now().UTC(), sendErr, id)
	if err != nil {
		return fmt.Errorf("reminders: mark failed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrReminderNotFound
	}
	return nil
}

// CancelPending cancels all still-pending reminders for an appointment.
// Terminal reminders are left untouched.
func (s *Store) CancelPending(ctx context.Context, q Querier, appointmentID uuid.UUID) error {
	if q == nil {
		q = s.db
	}
	_, err := q.Exec(ctx, `
		UPDATE reminders SET status = 'cancelled'
		WHERE appointment_id = $1 AND status = 'pending'`, appointmentID)
	if err != nil {
		return fmt.Errorf("reminders: cancel pending: %w", err)
	}
	return nil
}

// DispatchInfoFor loads the joined patient/doctor/appointment context for a
// reminder's appointment.
func (s *Store) DispatchInfoFor(ctx context.Context, appointmentID uuid.UUID) (*DispatchInfo, error) {
	var info DispatchInfo
	err := s.db.QueryRow(ctx, `
		SELECT p.first_name, p.last_name, p.email, COALESCE(p.phone, ''), p.form_token,
		       d.name, d.specialty, a.starts_at, a.forms_completed
		FROM appointments a
		JOIN patients p ON p.id = a.patient_id
		JOIN doctors d ON d.id = a.doctor_id
		WHERE a.id = $1`, appointmentID).
		Scan(&info.PatientFirstName, &info.PatientLastName, &info.PatientEmail,
			&info.PatientPhone, &info.FormToken, &info.DoctorName, &info.Specialty,
			&info.StartsAt, &info.FormsCompleted)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrReminderNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("reminders: dispatch info: %w", err)
	}
	return &info, nil
}

func scanReminders(rows pgx.Rows) ([]Reminder, error) {
	var result []Reminder
	for rows.Next() {
		var r Reminder
		var tier, channel, status string
		err := rows.Scan(&r.ID, &r.AppointmentID, &tier, &channel, &r.FireAt,
			&r.ActionQuestions, &status, &r.SentAt, &r.LastError, &r.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("reminders: scan reminder: %w", err)
		}
		r.Tier = Tier(tier)
		r.Channel = Channel(channel)
		r.Status = Status(status)
		result = append(result, r)
	}
	return result, rows.Err()
}
