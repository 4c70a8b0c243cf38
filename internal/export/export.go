package export

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/medicare-wellness/clinic-scheduler/internal/scheduling"
)

// Querier abstracts the pgx query interface for pools, transactions, and mocks.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// AppointmentRow is one line of the appointment report: the appointment
// joined with its patient and doctor.
type AppointmentRow struct {
	AppointmentID   string    `json:"appointment_id"`
	PatientName     string    `json:"patient_name"`
	PatientEmail    string    `json:"patient_email"`
	DoctorID        string    `json:"doctor_id"`
	DoctorName      string    `json:"doctor_name"`
	StartsAt        time.Time `json:"starts_at"`
	DurationMinutes int       `json:"duration_minutes"`
	Status          string    `json:"status"`
	FormsSent       bool      `json:"forms_sent"`
	FormsCompleted  bool      `json:"forms_completed"`
}

// Exporter produces appointment and availability reports.
type Exporter struct {
	db       Querier
	location *time.Location
}

// NewExporter creates an exporter. The location formats report timestamps.
func NewExporter(db Querier, location *time.Location) *Exporter {
	if location == nil {
		location = time.UTC
	}
	return &Exporter{db: db, location: location}
}

// AppointmentReport returns report rows for appointments starting in
// [from, to), every status included, chronologically ordered.
func (e *Exporter) AppointmentReport(ctx context.Context, from, to time.Time) ([]AppointmentRow, error) {
	rows, err := e.db.Query(ctx, `
		SELECT a.id, p.first_name || ' ' || p.last_name, p.email,
		       d.id, d.name, a.starts_at, a.duration_minutes, a.status,
		       a.forms_sent, a.forms_completed
		FROM appointments a
		JOIN patients p ON p.id = a.patient_id
		JOIN doctors d ON d.id = a.doctor_id
		WHERE a.starts_at >= $1 AND a.starts_at < $2
		ORDER BY a.starts_at`, from, to)
	if err != nil {
		return nil, fmt.Errorf("export: appointment report: %w", err)
	}
	defer rows.Close()

	var result []AppointmentRow
	for rows.Next() {
		var r AppointmentRow
		err := rows.Scan(&r.AppointmentID, &r.PatientName, &r.PatientEmail,
			&r.DoctorID, &r.DoctorName, &r.StartsAt, &r.DurationMinutes, &r.Status,
			&r.FormsSent, &r.FormsCompleted)
		if err != nil {
			return nil, fmt.Errorf("export: scan report row: %w", err)
		}
		result = append(result, r)
	}
	return result, rows.Err()
}

// WriteAppointmentCSV streams report rows as CSV with a header line.
func (e *Exporter) WriteAppointmentCSV(w io.Writer, rows []AppointmentRow) error {
	cw := csv.NewWriter(w)
	header := []string{
		"appointment_id", "patient_name", "patient_email", "doctor_id", "doctor_name",
		"starts_at", "duration_minutes", "status", "forms_sent", "forms_completed",
	}
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("export: write csv header: %w", err)
	}
	for _, r := range rows {
		record := []string{
			r.AppointmentID,
			r.PatientName,
			r.PatientEmail,
			r.DoctorID,
			r.DoctorName,
			r.StartsAt.In(e.location).Format(time.RFC3339),
			strconv.Itoa(r.DurationMinutes),
			r.Status,
			strconv.FormatBool(r.FormsSent),
			strconv.FormatBool(r.FormsCompleted),
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("export: write csv row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteSlotCSV streams availability slots as CSV with a header line.
func (e *Exporter) WriteSlotCSV(w io.Writer, slots []scheduling.Slot) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"doctor_id", "start", "end"}); err != nil {
		return fmt.Errorf("export: write csv header: %w", err)
	}
	for _, s := range slots {
		record := []string{
			s.DoctorID,
			s.Start.In(e.location).Format(time.RFC3339),
			s.End.In(e.location).Format(time.RFC3339),
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("export: write csv row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}
