package scheduling

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubDirectory struct {
	exists bool
	err    error
}

func (s *stubDirectory) Exists(context.Context, uuid.UUID) (bool, error) {
	return s.exists, s.err
}

type stubPlanner struct {
	scheduled []uuid.UUID
	cancelled []uuid.UUID
	err       error
}

func (s *stubPlanner) ScheduleInTx(_ context.Context, _ pgx.Tx, id uuid.UUID, _ time.Time) error {
	if s.err != nil {
		return s.err
	}
	s.scheduled = append(s.scheduled, id)
	return nil
}

func (s *stubPlanner) CancelPendingInTx(_ context.Context, _ pgx.Tx, id uuid.UUID) error {
	s.cancelled = append(s.cancelled, id)
	return nil
}

type stubInvalidator struct {
	doctors []string
}

func (s *stubInvalidator) Invalidate(_ context.Context, doctorID string) {
	s.doctors = append(s.doctors, doctorID)
}

func newTestBooker(t *testing.T, planner *stubPlanner, inval *stubInvalidator) (*Booker, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("failed to create pgx mock: %v", err)
	}
	t.Cleanup(mock.Close)

	b := NewBooker(NewStore(mock), &stubDirectory{exists: true}, planner, inval, nil, BookerConfig{
		BufferMinutes:     15,
		NewPatientMinutes: 60,
		ReturningMinutes:  30,
	}, nil)
	return b, mock
}

func expectHasCompleted(mock pgxmock.PgxPoolIface, patientID uuid.UUID, completed bool) {
	mock.ExpectQuery("SELECT EXISTS").
		WithArgs(patientID).
		WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(completed))
}

func TestBookNewPatientGetsLongSlot(t *testing.T) {
	planner := &stubPlanner{}
	inval := &stubInvalidator{}
	b, mock := newTestBooker(t, planner, inval)

	patientID := uuid.New()
	startsAt := testDay.Add(10 * time.Hour)

	expectDoctor(mock, "DOC001")
	expectHasCompleted(mock, patientID, false)
	mock.ExpectBegin()
	mock.ExpectExec("SELECT pg_advisory_xact_lock").
		WithArgs("DOC001").
		WillReturnResult(pgxmock.NewResult("SELECT", 1))
	mock.ExpectQuery("SELECT id FROM appointments").
		WithArgs("DOC001", startsAt.Add(60*time.Minute), startsAt, 15).
		WillReturnError(pgx.ErrNoRows)
	mock.ExpectExec("INSERT INTO appointments").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()

	appt, err := b.Book(context.Background(), BookingRequest{
		PatientID: patientID,
		DoctorID:  "DOC001",
		StartsAt:  startsAt,
	})
	require.NoError(t, err)
	assert.Equal(t, 60, appt.DurationMinutes)
	assert.Equal(t, StatusScheduled, appt.Status)
	assert.Equal(t, []uuid.UUID{appt.ID}, planner.scheduled)
	assert.Equal(t, []string{"DOC001"}, inval.doctors)

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestBookReturningPatientGetsShortSlot(t *testing.T) {
	planner := &stubPlanner{}
	b, mock := newTestBooker(t, planner, &stubInvalidator{})

	patientID := uuid.New()
	startsAt := testDay.Add(10 * time.Hour)

	expectDoctor(mock, "DOC001")
	expectHasCompleted(mock, patientID, true)
	mock.ExpectBegin()
	mock.ExpectExec("SELECT pg_advisory_xact_lock").
		WillReturnResult(pgxmock.NewResult("SELECT", 1))
	mock.ExpectQuery("SELECT id FROM appointments").
		WithArgs("DOC001", startsAt.Add(30*time.Minute), startsAt, 15).
		WillReturnError(pgx.ErrNoRows)
	mock.ExpectExec("INSERT INTO appointments").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()

	appt, err := b.Book(context.Background(), BookingRequest{
		PatientID: patientID,
		DoctorID:  "DOC001",
		StartsAt:  startsAt,
	})
	require.NoError(t, err)
	assert.Equal(t, 30, appt.DurationMinutes)
}

func TestBookConflictWritesNothing(t *testing.T) {
	planner := &stubPlanner{}
	inval := &stubInvalidator{}
	b, mock := newTestBooker(t, planner, inval)

	patientID := uuid.New()
	existingID := uuid.New()
	startsAt := testDay.Add(10 * time.Hour)

	expectDoctor(mock, "DOC001")
	expectHasCompleted(mock, patientID, true)
	mock.ExpectBegin()
	mock.ExpectExec("SELECT pg_advisory_xact_lock").
		WillReturnResult(pgxmock.NewResult("SELECT", 1))
	mock.ExpectQuery("SELECT id FROM appointments").
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(existingID))
	mock.ExpectRollback()

	_, err := b.Book(context.Background(), BookingRequest{
		PatientID: patientID,
		DoctorID:  "DOC001",
		StartsAt:  startsAt,
	})
	require.Error(t, err)
	assert.True(t, IsConflict(err))

	var conflict *ConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, existingID, conflict.ConflictingID)
	assert.Empty(t, planner.scheduled)
	assert.Empty(t, inval.doctors)

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestBookUnknownPatient(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("failed to create pgx mock: %v", err)
	}
	defer mock.Close()

	b := NewBooker(NewStore(mock), &stubDirectory{exists: false}, &stubPlanner{}, nil, nil, BookerConfig{}, nil)

	expectDoctor(mock, "DOC001")

	_, err = b.Book(context.Background(), BookingRequest{
		PatientID: uuid.New(),
		DoctorID:  "DOC001",
		StartsAt:  testDay.Add(10 * time.Hour),
	})
	assert.ErrorIs(t, err, ErrPatientNotFound)
}

func TestBookExplicitDurationSkipsPolicy(t *testing.T) {
	planner := &stubPlanner{}
	b, mock := newTestBooker(t, planner, &stubInvalidator{})

	patientID := uuid.New()
	startsAt := testDay.Add(10 * time.Hour)

	expectDoctor(mock, "DOC001")
	mock.ExpectBegin()
	mock.ExpectExec("SELECT pg_advisory_xact_lock").
		WillReturnResult(pgxmock.NewResult("SELECT", 1))
	mock.ExpectQuery("SELECT id FROM appointments").
		WithArgs("DOC001", startsAt.Add(45*time.Minute), startsAt, 15).
		WillReturnError(pgx.ErrNoRows)
	mock.ExpectExec("INSERT INTO appointments").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()

	appt, err := b.Book(context.Background(), BookingRequest{
		PatientID:       patientID,
		DoctorID:        "DOC001",
		StartsAt:        startsAt,
		DurationMinutes: 45,
	})
	require.NoError(t, err)
	assert.Equal(t, 45, appt.DurationMinutes)
}

func TestCancelCancelsPendingReminders(t *testing.T) {
	planner := &stubPlanner{}
	inval := &stubInvalidator{}
	b, mock := newTestBooker(t, planner, inval)

	apptID := uuid.New()
	mock.ExpectQuery("SELECT id, patient_id").
		WithArgs(apptID).
		WillReturnRows(pgxmock.NewRows([]string{
			"id", "patient_id", "doctor_id", "starts_at", "duration_minutes", "status",
			"forms_sent", "forms_completed", "created_at", "updated_at",
		}).AddRow(apptID, uuid.New(), "DOC001", testDay.Add(10*time.Hour), 30,
			string(StatusScheduled), false, false, testDay, testDay))
	mock.ExpectBegin()
	mock.ExpectExec("UPDATE appointments SET status").
		WithArgs(string(StatusCancelled), apptID).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectCommit()

	require.NoError(t, b.Cancel(context.Background(), apptID))
	assert.Equal(t, []uuid.UUID{apptID}, planner.cancelled)
	assert.Equal(t, []string{"DOC001"}, inval.doctors)

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestCancelAlreadyCancelledIsNoop(t *testing.T) {
	planner := &stubPlanner{}
	b, mock := newTestBooker(t, planner, &stubInvalidator{})

	apptID := uuid.New()
	mock.ExpectQuery("SELECT id, patient_id").
		WithArgs(apptID).
		WillReturnRows(pgxmock.NewRows([]string{
			"id", "patient_id", "doctor_id", "starts_at", "duration_minutes", "status",
			"forms_sent", "forms_completed", "created_at", "updated_at",
		}).AddRow(apptID, uuid.New(), "DOC001", testDay.Add(10*time.Hour), 30,
			string(StatusCancelled), false, false, testDay, testDay))

	require.NoError(t, b.Cancel(context.Background(), apptID))
	assert.Empty(t, planner.cancelled)
}
