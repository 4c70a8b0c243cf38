package export

import (
	"bytes"
	"context"
	"encoding/csv"
	"testing"
	"time"

	"github.com/google/uuid"
	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medicare-wellness/clinic-scheduler/internal/scheduling"
)

func TestAppointmentReport(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("failed to create pgx mock: %v", err)
	}
	defer mock.Close()

	exp := NewExporter(mock, time.UTC)
	from := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 1, 0)
	starts := time.Date(2026, 3, 10, 14, 0, 0, 0, time.UTC)
	apptID := uuid.New().String()

	mock.ExpectQuery("SELECT a.id").
		WithArgs(from, to).
		WillReturnRows(pgxmock.NewRows([]string{
			"id", "patient_name", "email", "doctor_id", "name",
			"starts_at", "duration_minutes", "status", "forms_sent", "forms_completed",
		}).AddRow(apptID, "Jane Doe", "jane@example.com", "DOC001", "Dr. Smith",
			starts, 60, "scheduled", true, false))

	rows, err := exp.AppointmentReport(context.Background(), from, to)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "Jane Doe", rows[0].PatientName)
	assert.Equal(t, "DOC001", rows[0].DoctorID)
	assert.True(t, rows[0].FormsSent)

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestWriteAppointmentCSV(t *testing.T) {
	exp := NewExporter(nil, time.UTC)
	starts := time.Date(2026, 3, 10, 14, 0, 0, 0, time.UTC)

	var buf bytes.Buffer
	err := exp.WriteAppointmentCSV(&buf, []AppointmentRow{{
		AppointmentID:   "a-1",
		PatientName:     "Jane Doe",
		PatientEmail:    "jane@example.com",
		DoctorID:        "DOC001",
		DoctorName:      "Dr. Smith",
		StartsAt:        starts,
		DurationMinutes: 60,
		Status:          "scheduled",
		FormsSent:       true,
	}})
	require.NoError(t, err)

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "appointment_id", records[0][0])
	assert.Equal(t, "Jane Doe", records[1][1])
	assert.Equal(t, "2026-03-10T14:00:00Z", records[1][5])
	assert.Equal(t, "60", records[1][6])
	assert.Equal(t, "true", records[1][8])
}

func TestWriteSlotCSV(t *testing.T) {
	exp := NewExporter(nil, time.UTC)
	start := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

	var buf bytes.Buffer
	err := exp.WriteSlotCSV(&buf, []scheduling.Slot{{
		DoctorID: "DOC001",
		Start:    start,
		End:      start.Add(15 * time.Minute),
	}})
	require.NoError(t, err)

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, []string{"doctor_id", "start", "end"}, records[0])
	assert.Equal(t, "DOC001", records[1][0])
	assert.Equal(t, "2026-03-10T09:00:00Z", records[1][1])
}
