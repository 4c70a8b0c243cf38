package scheduling

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.opentelemetry.io/otel/attribute"

	"github.com/medicare-wellness/clinic-scheduler/internal/observability/metrics"
	"github.com/medicare-wellness/clinic-scheduler/pkg/logging"
)

// ReminderPlanner schedules and cancels reminders inside the booking
// transaction so the appointment and its reminders commit atomically.
type ReminderPlanner interface {
	ScheduleInTx(ctx context.Context, tx pgx.Tx, appointmentID uuid.UUID, startsAt time.Time) error
	CancelPendingInTx(ctx context.Context, tx pgx.Tx, appointmentID uuid.UUID) error
}

// PatientDirectory checks patient existence.
type PatientDirectory interface {
	Exists(ctx context.Context, id uuid.UUID) (bool, error)
}

// CacheInvalidator drops cached availability after a write.
type CacheInvalidator interface {
	Invalidate(ctx context.Context, doctorID string)
}

// BookerConfig carries the booking policy.
type BookerConfig struct {
	BufferMinutes     int
	NewPatientMinutes int
	ReturningMinutes  int
}

func (c BookerConfig) withDefaults() BookerConfig {
	if c.BufferMinutes < 0 {
		c.BufferMinutes = 0
	}
	if c.NewPatientMinutes <= 0 {
		c.NewPatientMinutes = 60
	}
	if c.ReturningMinutes <= 0 {
		c.ReturningMinutes = 30
	}
	return c
}

// BookingRequest is a proposed appointment.
type BookingRequest struct {
	PatientID uuid.UUID
	DoctorID  string
	StartsAt  time.Time
	// DurationMinutes overrides the new/returning patient policy when > 0.
	DurationMinutes int
}

// Booker commits bookings. The overlap check and the insert run in a single
// transaction under a per-doctor lock, so of two concurrent bookers for an
// overlapping interval exactly one succeeds.
type Booker struct {
	store     *Store
	patients  PatientDirectory
	reminders ReminderPlanner
	cache     CacheInvalidator
	metrics   *metrics.SchedulerMetrics
	cfg       BookerConfig
	logger    *logging.Logger
}

// NewBooker creates a booking service.
func NewBooker(store *Store, patients PatientDirectory, reminders ReminderPlanner, cache CacheInvalidator, m *metrics.SchedulerMetrics, cfg BookerConfig, logger *logging.Logger) *Booker {
	if logger == nil {
		logger = logging.Default()
	}
	return &Booker{
		store:     store,
		patients:  patients,
		reminders: reminders,
		cache:     cache,
		metrics:   m,
		cfg:       cfg.withDefaults(),
		logger:    logger,
	}
}

// Book validates and commits the requested appointment, scheduling its
// three reminders in the same transaction. On overlap it returns a
// *ConflictError naming the colliding appointment; nothing is written.
func (b *Booker) Book(ctx context.Context, req BookingRequest) (*Appointment, error) {
	ctx, span := schedulingTracer.Start(ctx, "booking.book")
	defer span.End()
	span.SetAttributes(
		attribute.String("clinic.doctor_id", req.DoctorID),
		attribute.String("clinic.patient_id", req.PatientID.String()),
	)

	if _, err := b.store.GetDoctor(ctx, req.DoctorID); err != nil {
		return nil, err
	}
	ok, err := b.patients.Exists(ctx, req.PatientID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrPatientNotFound
	}

	duration := req.DurationMinutes
	if duration <= 0 {
		duration, err = b.durationFor(ctx, req.PatientID)
		if err != nil {
			return nil, err
		}
	}

	appt := &Appointment{
		PatientID:       req.PatientID,
		DoctorID:        req.DoctorID,
		StartsAt:        req.StartsAt.UTC(),
		DurationMinutes: duration,
		Status:          StatusScheduled,
	}

	tx, err := b.store.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("scheduling: begin booking tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := b.store.LockDoctor(ctx, tx, req.DoctorID); err != nil {
		return nil, err
	}

	conflictID, found, err := b.store.FindOverlap(ctx, tx, req.DoctorID, appt.StartsAt, appt.EndsAt(), b.cfg.BufferMinutes)
	if err != nil {
		return nil, err
	}
	if found {
		b.metrics.ObserveBooking("conflict")
		return nil, &ConflictError{DoctorID: req.DoctorID, ConflictingID: conflictID}
	}

	if err := b.store.InsertAppointment(ctx, tx, appt); err != nil {
		return nil, err
	}
	if err := b.reminders.ScheduleInTx(ctx, tx, appt.ID, appt.StartsAt); err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("scheduling: commit booking: %w", err)
	}

	if b.cache != nil {
		b.cache.Invalidate(ctx, req.DoctorID)
	}
	b.metrics.ObserveBooking("booked")
	b.logger.Info("appointment booked",
		"appointment_id", appt.ID,
		"doctor_id", appt.DoctorID,
		"starts_at", appt.StartsAt.Format(time.RFC3339),
		"duration_minutes", appt.DurationMinutes,
	)
	return appt, nil
}

// Cancel soft-cancels an appointment and cancels its pending reminders in
// the same transaction. Cancelling an already cancelled appointment is a
// no-op.
func (b *Booker) Cancel(ctx context.Context, id uuid.UUID) error {
	ctx, span := schedulingTracer.Start(ctx, "booking.cancel")
	defer span.End()

	appt, err := b.store.GetAppointment(ctx, id)
	if err != nil {
		return err
	}
	if appt.Status == StatusCancelled {
		return nil
	}

	tx, err := b.store.Begin(ctx)
	if err != nil {
		return fmt.Errorf("scheduling: begin cancel tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := b.store.UpdateStatus(ctx, tx, id, StatusCancelled); err != nil {
		return err
	}
	if err := b.reminders.CancelPendingInTx(ctx, tx, id); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("scheduling: commit cancel: %w", err)
	}

	if b.cache != nil {
		b.cache.Invalidate(ctx, appt.DoctorID)
	}
	b.metrics.ObserveBooking("cancelled")
	b.logger.Info("appointment cancelled", "appointment_id", id, "doctor_id", appt.DoctorID)
	return nil
}

// Complete marks an appointment completed.
func (b *Booker) Complete(ctx context.Context, id uuid.UUID) error {
	return b.store.UpdateStatus(ctx, nil, id, StatusCompleted)
}

// durationFor applies the patient-novelty policy: first-ever visits get the
// long consultation, returning patients the short one.
func (b *Booker) durationFor(ctx context.Context, patientID uuid.UUID) (int, error) {
	returning, err := b.store.HasCompletedAppointment(ctx, patientID)
	if err != nil {
		return 0, err
	}
	if returning {
		return b.cfg.ReturningMinutes, nil
	}
	return b.cfg.NewPatientMinutes, nil
}
