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

// Tuesday.
var testDay = time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)

func newTestCalculator(t *testing.T) (*Calculator, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("failed to create pgx mock: %v", err)
	}
	t.Cleanup(mock.Close)

	calc := NewCalculator(NewStore(mock), nil, CalculatorConfig{
		IntervalMinutes: 15,
		BufferMinutes:   15,
		WindowDays:      14,
		Location:        time.UTC,
	}, nil)
	calc.now = func() time.Time { return testDay.Add(-12 * time.Hour) }
	return calc, mock
}

func expectDoctor(mock pgxmock.PgxPoolIface, doctorID string) {
	mock.ExpectQuery("SELECT id, name, specialty").
		WithArgs(doctorID).
		WillReturnRows(pgxmock.NewRows([]string{"id", "name", "specialty", "created_at"}).
			AddRow(doctorID, "Dr. Smith", "Allergy & Immunology", time.Now()))
}

func expectTemplate(mock pgxmock.PgxPoolIface, doctorID string, startMin, endMin int) {
	rows := pgxmock.NewRows([]string{"weekday", "start", "end"})
	for wd := 1; wd <= 5; wd++ {
		rows.AddRow(int16(wd), startMin, endMin)
	}
	mock.ExpectQuery("SELECT weekday").
		WithArgs(doctorID).
		WillReturnRows(rows)
}

func expectAppointments(mock pgxmock.PgxPoolIface, doctorID string, appts []Appointment) {
	rows := pgxmock.NewRows([]string{
		"id", "patient_id", "doctor_id", "starts_at", "duration_minutes", "status",
		"forms_sent", "forms_completed", "created_at", "updated_at",
	})
	for _, a := range appts {
		rows.AddRow(a.ID, a.PatientID, a.DoctorID, a.StartsAt, a.DurationMinutes,
			string(StatusScheduled), false, false, a.StartsAt, a.StartsAt)
	}
	mock.ExpectQuery("SELECT id, patient_id").
		WithArgs(doctorID, pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnRows(rows)
}

func slotStarts(slots []Slot) []time.Time {
	starts := make([]time.Time, len(slots))
	for i, s := range slots {
		starts[i] = s.Start
	}
	return starts
}

func TestSlotsExcludesBookedAndBuffered(t *testing.T) {
	calc, mock := newTestCalculator(t)

	// 08:00-18:00 workday with one 30-minute appointment at 10:00. With a
	// 15-minute buffer, starts from 10:00 through 10:30 are gone; 09:45 and
	// 10:45 survive.
	expectDoctor(mock, "DOC001")
	expectTemplate(mock, "DOC001", 8*60, 18*60)
	expectAppointments(mock, "DOC001", []Appointment{{
		ID:              uuid.New(),
		PatientID:       uuid.New(),
		DoctorID:        "DOC001",
		StartsAt:        testDay.Add(10 * time.Hour),
		DurationMinutes: 30,
	}})

	slots, err := calc.Slots(context.Background(), "DOC001", testDay, testDay, 0)
	require.NoError(t, err)

	starts := slotStarts(slots)
	assert.Contains(t, starts, testDay.Add(9*time.Hour+45*time.Minute))
	assert.Contains(t, starts, testDay.Add(10*time.Hour+45*time.Minute))
	assert.NotContains(t, starts, testDay.Add(10*time.Hour))
	assert.NotContains(t, starts, testDay.Add(10*time.Hour+15*time.Minute))
	assert.NotContains(t, starts, testDay.Add(10*time.Hour+30*time.Minute))

	// 40 grid positions minus the 3 blocked ones.
	assert.Len(t, slots, 37)

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestSlotsChronologicalAndAligned(t *testing.T) {
	calc, mock := newTestCalculator(t)

	expectDoctor(mock, "DOC001")
	expectTemplate(mock, "DOC001", 9*60, 12*60)
	expectAppointments(mock, "DOC001", nil)

	slots, err := calc.Slots(context.Background(), "DOC001", testDay, testDay, 0)
	require.NoError(t, err)
	require.NotEmpty(t, slots)

	assert.Equal(t, testDay.Add(9*time.Hour), slots[0].Start)
	for i := 1; i < len(slots); i++ {
		assert.True(t, slots[i].Start.After(slots[i-1].Start))
		assert.Zero(t, slots[i].Start.Minute()%15)
	}
	last := slots[len(slots)-1]
	assert.False(t, last.End.After(testDay.Add(12*time.Hour)))
}

func TestSlotsLongerDurationNeedsLargerGap(t *testing.T) {
	calc, mock := newTestCalculator(t)

	// 09:00-11:00 day with a 30-minute appointment at 10:00. A 60-minute
	// candidate only fits at 09:00, ending exactly when the appointment
	// starts; every later start either runs into it or past closing.
	expectDoctor(mock, "DOC001")
	expectTemplate(mock, "DOC001", 9*60, 11*60)
	expectAppointments(mock, "DOC001", []Appointment{{
		ID:              uuid.New(),
		PatientID:       uuid.New(),
		DoctorID:        "DOC001",
		StartsAt:        testDay.Add(10 * time.Hour),
		DurationMinutes: 30,
	}})

	slots, err := calc.Slots(context.Background(), "DOC001", testDay, testDay, 60)
	require.NoError(t, err)
	require.Len(t, slots, 1)
	assert.Equal(t, testDay.Add(9*time.Hour), slots[0].Start)
	assert.Equal(t, testDay.Add(10*time.Hour), slots[0].End)
}

func TestSlotsSkipsNonWorkingDays(t *testing.T) {
	calc, mock := newTestCalculator(t)

	sunday := time.Date(2026, 3, 8, 0, 0, 0, 0, time.UTC)
	expectDoctor(mock, "DOC001")
	expectTemplate(mock, "DOC001", 8*60, 18*60) // weekdays only
	expectAppointments(mock, "DOC001", nil)

	slots, err := calc.Slots(context.Background(), "DOC001", sunday, sunday, 0)
	require.NoError(t, err)
	assert.Empty(t, slots)
}

func TestSlotsSkipsPastTimes(t *testing.T) {
	calc, mock := newTestCalculator(t)
	calc.now = func() time.Time { return testDay.Add(12 * time.Hour) } // noon

	expectDoctor(mock, "DOC001")
	expectTemplate(mock, "DOC001", 8*60, 18*60)
	expectAppointments(mock, "DOC001", nil)

	slots, err := calc.Slots(context.Background(), "DOC001", testDay, testDay, 0)
	require.NoError(t, err)
	require.NotEmpty(t, slots)
	assert.Equal(t, testDay.Add(12*time.Hour), slots[0].Start)
}

func TestSlotsInvalidRange(t *testing.T) {
	calc, _ := newTestCalculator(t)

	_, err := calc.Slots(context.Background(), "DOC001", testDay, testDay.AddDate(0, 0, -1), 0)
	assert.ErrorIs(t, err, ErrInvalidRange)
}

func TestSlotsUnknownDoctor(t *testing.T) {
	calc, mock := newTestCalculator(t)

	mock.ExpectQuery("SELECT id, name, specialty").
		WithArgs("NOPE").
		WillReturnError(pgx.ErrNoRows)

	_, err := calc.Slots(context.Background(), "NOPE", testDay, testDay, 0)
	assert.ErrorIs(t, err, ErrDoctorNotFound)
}

func TestSlotsClampsToBookingWindow(t *testing.T) {
	calc, mock := newTestCalculator(t)

	// Asking for 60 days only computes the 14-day window: the appointments
	// query upper bound is from+14d.
	expectDoctor(mock, "DOC001")
	expectTemplate(mock, "DOC001", 8*60, 9*60)
	mock.ExpectQuery("SELECT id, patient_id").
		WithArgs("DOC001", testDay, testDay.AddDate(0, 0, 14)).
		WillReturnRows(pgxmock.NewRows([]string{
			"id", "patient_id", "doctor_id", "starts_at", "duration_minutes", "status",
			"forms_sent", "forms_completed", "created_at", "updated_at",
		}))

	slots, err := calc.Slots(context.Background(), "DOC001", testDay, testDay.AddDate(0, 0, 60), 0)
	require.NoError(t, err)
	for _, s := range slots {
		assert.True(t, s.Start.Before(testDay.AddDate(0, 0, 14)))
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}
