package scheduling

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Querier abstracts the pgx query interface so stores work against a pool,
// a transaction, or a mock.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Pool is a Querier that can also open transactions.
type Pool interface {
	Querier
	Begin(ctx context.Context) (pgx.Tx, error)
}

// Store provides persistence for doctors, schedules, and appointments.
type Store struct {
	db Pool
}

// NewStore creates a scheduling store backed by a pgx pool.
func NewStore(db Pool) *Store {
	return &Store{db: db}
}

// Begin opens a transaction on the underlying pool.
func (s *Store) Begin(ctx context.Context) (pgx.Tx, error) {
	return s.db.Begin(ctx)
}

// GetDoctor loads a doctor by ID.
func (s *Store) GetDoctor(ctx context.Context, id string) (*Doctor, error) {
	var d Doctor
	err := s.db.QueryRow(ctx, `
		SELECT id, name, specialty, created_at
		FROM doctors WHERE id = $1`, id).
		Scan(&d.ID, &d.Name, &d.Specialty, &d.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrDoctorNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scheduling: get doctor: %w", err)
	}
	return &d, nil
}

// ListDoctors returns all doctors ordered by name.
func (s *Store) ListDoctors(ctx context.Context) ([]Doctor, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, name, specialty, created_at
		FROM doctors ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("scheduling: list doctors: %w", err)
	}
	defer rows.Close()

	var result []Doctor
	for rows.Next() {
		var d Doctor
		if err := rows.Scan(&d.ID, &d.Name, &d.Specialty, &d.CreatedAt); err != nil {
			return nil, fmt.Errorf("scheduling: scan doctor: %w", err)
		}
		result = append(result, d)
	}
	return result, rows.Err()
}

// ScheduleTemplate returns the doctor's working-hours template, one window
// per working weekday.
func (s *Store) ScheduleTemplate(ctx context.Context, doctorID string) ([]ScheduleWindow, error) {
	rows, err := s.db.Query(ctx, `
		SELECT weekday,
		       (EXTRACT(EPOCH FROM start_time) / 60)::int,
		       (EXTRACT(EPOCH FROM end_time) / 60)::int
		FROM doctor_schedules
		WHERE doctor_id = $1
		ORDER BY weekday`, doctorID)
	if err != nil {
		return nil, fmt.Errorf("scheduling: schedule template: %w", err)
	}
	defer rows.Close()

	var result []ScheduleWindow
	for rows.Next() {
		var w ScheduleWindow
		var weekday int16
		if err := rows.Scan(&weekday, &w.StartOfDay, &w.EndOfDay); err != nil {
			return nil, fmt.Errorf("scheduling: scan schedule window: %w", err)
		}
		w.Weekday = time.Weekday(weekday)
		result = append(result, w)
	}
	return result, rows.Err()
}

// ListAppointments returns non-cancelled appointments for a doctor with
// starts_at in [from, to), chronologically ordered.
func (s *Store) ListAppointments(ctx context.Context, doctorID string, from, to time.Time) ([]Appointment, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, patient_id, doctor_id, starts_at, duration_minutes, status,
		       forms_sent, forms_completed, created_at, updated_at
		FROM appointments
		WHERE doctor_id = $1 AND status <> 'cancelled'
		  AND starts_at >= $2 AND starts_at < $3
		ORDER BY starts_at`, doctorID, from, to)
	if err != nil {
		return nil, fmt.Errorf("scheduling: list appointments: %w", err)
	}
	defer rows.Close()
	return scanAppointments(rows)
}

// GetAppointment loads one appointment by ID.
func (s *Store) GetAppointment(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	var a Appointment
	var status string
	err := s.db.QueryRow(ctx, `
		SELECT id, patient_id, doctor_id, starts_at, duration_minutes, status,
		       forms_sent, forms_completed, created_at, updated_at
		FROM appointments WHERE id = $1`, id).
		Scan(&a.ID, &a.PatientID, &a.DoctorID, &a.StartsAt, &a.DurationMinutes,
			&status, &a.FormsSent, &a.FormsCompleted, &a.CreatedAt, &a.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrAppointmentNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scheduling: get appointment: %w", err)
	}
	a.Status = AppointmentStatus(status)
	return &a, nil
}

// HasCompletedAppointment reports whether the patient has at least one
// completed appointment on record. Drives the new-patient duration policy.
func (s *Store) HasCompletedAppointment(ctx context.Context, patientID uuid.UUID) (bool, error) {
	var exists bool
	err := s.db.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM appointments
			WHERE patient_id = $1 AND status = 'completed'
		)`, patientID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("scheduling: has completed appointment: %w", err)
	}
	return exists, nil
}

// LockDoctor serializes concurrent bookings for one doctor within the
// transaction. The lock is released at commit or rollback.
func (s *Store) LockDoctor(ctx context.Context, q Querier, doctorID string) error {
	if _, err := q.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtext('appointments:' || $1))`, doctorID); err != nil {
		return fmt.Errorf("scheduling: lock doctor: %w", err)
	}
	return nil
}

// FindOverlap returns the ID of an appointment whose interval, extended by
// the buffer, overlaps [start, end) for the doctor. The second return value
// reports whether a conflict was found.
func (s *Store) FindOverlap(ctx context.Context, q Querier, doctorID string, start, end time.Time, bufferMinutes int) (uuid.UUID, bool, error) {
	if q == nil {
		q = s.db
	}
	var id uuid.UUID
	err := q.QueryRow(ctx, `
		SELECT id FROM appointments
		WHERE doctor_id = $1 AND status <> 'cancelled'
		  AND starts_at < $2
		  AND starts_at + (duration_minutes + $4) * interval '1 minute' > $3
		ORDER BY starts_at
		LIMIT 1`, doctorID, end, start, bufferMinutes).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return uuid.Nil, false, nil
	}
	if err != nil {
		return uuid.Nil, false, fmt.Errorf("scheduling: find overlap: %w", err)
	}
	return id, true, nil
}

// InsertAppointment persists a new appointment row.
func (s *Store) InsertAppointment(ctx context.Context, q Querier, a *Appointment) error {
	if q == nil {
		q = s.db
	}
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	now := time.Now().UTC()
	a.CreatedAt = now
	a.UpdatedAt = now
	if a.Status == "" {
		a.Status = StatusScheduled
	}
	_, err := q.Exec(ctx, `
		INSERT INTO appointments (id, patient_id, doctor_id, starts_at, duration_minutes, status,
		                          forms_sent, forms_completed, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		a.ID, a.PatientID, a.DoctorID, a.StartsAt, a.DurationMinutes, string(a.Status),
		a.FormsSent, a.FormsCompleted, a.CreatedAt, a.UpdatedAt)
	if err != nil {
		return fmt.Errorf("scheduling: insert appointment: %w", err)
	}
	return nil
}

// UpdateStatus transitions an appointment to the given status.
func (s *Store) UpdateStatus(ctx context.Context, q Querier, id uuid.UUID, status AppointmentStatus) error {
	if q == nil {
		q = s.db
	}
	tag, err := q.Exec(ctx, `
		UPDATE appointments SET status = $1, updated_at = now()
		WHERE id = $2`, string(status), id)
	if err != nil {
		return fmt.Errorf("scheduling: update status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrAppointmentNotFound
	}
	return nil
}

// SetFormFlags updates the intake-form flags on an appointment.
func (s *Store) SetFormFlags(ctx context.Context, q Querier, id uuid.UUID, sent, completed bool) error {
	if q == nil {
		q = s.db
	}
	tag, err := q.Exec(ctx, `
		UPDATE appointments SET forms_sent = $1, forms_completed = $2, updated_at = now()
		WHERE id = $3`, sent, completed, id)
	if err != nil {
		return fmt.Errorf("scheduling: set form flags: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrAppointmentNotFound
	}
	return nil
}

func scanAppointments(rows pgx.Rows) ([]Appointment, error) {
	var result []Appointment
	for rows.Next() {
		var a Appointment
		var status string
		err := rows.Scan(&a.ID, &a.PatientID, &a.DoctorID, &a.StartsAt, &a.DurationMinutes,
			&status, &a.FormsSent, &a.FormsCompleted, &a.CreatedAt, &a.UpdatedAt)
		if err != nil {
			return nil, fmt.Errorf("scheduling: scan appointment: %w", err)
		}
		a.Status = AppointmentStatus(status)
		result = append(result, a)
	}
	return result, rows.Err()
}
