package reminders

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/medicare-wellness/clinic-scheduler/pkg/logging"
)

// Offsets is the named reminder policy: how long before the appointment
// each tier fires.
type Offsets struct {
	First  time.Duration // plain reminder
	Second time.Duration // carries action questions
	Third  time.Duration // carries action questions, also sent by SMS
}

// DefaultOffsets is the 3-day / 1-day / 2-hour schedule.
func DefaultOffsets() Offsets {
	return Offsets{
		First:  72 * time.Hour,
		Second: 24 * time.Hour,
		Third:  2 * time.Hour,
	}
}

func (o Offsets) withDefaults() Offsets {
	def := DefaultOffsets()
	if o.First <= 0 {
		o.First = def.First
	}
	if o.Second <= 0 {
		o.Second = def.Second
	}
	if o.Third <= 0 {
		o.Third = def.Third
	}
	return o
}

// Scheduler creates the three reminder tiers for booked appointments.
type Scheduler struct {
	store   *Store
	offsets Offsets
	logger  *logging.Logger
}

// NewScheduler creates a reminder scheduler.
func NewScheduler(store *Store, offsets Offsets, logger *logging.Logger) *Scheduler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Scheduler{store: store, offsets: offsets.withDefaults(), logger: logger}
}

// Plan returns the three reminders for an appointment starting at startsAt.
// A fire time already in the past is kept as-is: it is due immediately on
// the next dispatch pass, never silently dropped.
func (s *Scheduler) Plan(appointmentID uuid.UUID, startsAt time.Time) []Reminder {
	return []Reminder{
		{
			AppointmentID: appointmentID,
			Tier:          TierThreeDay,
			Channel:       ChannelEmail,
			FireAt:        startsAt.Add(-s.offsets.First),
		},
		{
			AppointmentID:   appointmentID,
			Tier:            TierOneDay,
			Channel:         ChannelEmail,
			FireAt:          startsAt.Add(-s.offsets.Second),
			ActionQuestions: true,
		},
		{
			AppointmentID:   appointmentID,
			Tier:            TierTwoHour,
			Channel:         ChannelEmail,
			FireAt:          startsAt.Add(-s.offsets.Third),
			ActionQuestions: true,
		},
	}
}

// ScheduleInTx inserts the three tiers inside the booking transaction.
// Re-scheduling an appointment that already has reminders is a no-op per
// tier, so the count never exceeds three.
func (s *Scheduler) ScheduleInTx(ctx context.Context, tx pgx.Tx, appointmentID uuid.UUID, startsAt time.Time) error {
	for _, r := range s.Plan(appointmentID, startsAt) {
		r := r
		if err := s.store.Insert(ctx, tx, &r); err != nil {
			return fmt.Errorf("reminders: schedule %s: %w", r.Tier, err)
		}
	}
	s.logger.Debug("reminders scheduled", "appointment_id", appointmentID)
	return nil
}

// CancelPendingInTx cancels the appointment's pending reminders inside the
// cancellation transaction.
func (s *Scheduler) CancelPendingInTx(ctx context.Context, tx pgx.Tx, appointmentID uuid.UUID) error {
	return s.store.CancelPending(ctx, tx, appointmentID)
}

// Schedule inserts the three tiers outside a booking transaction, for
// administrative re-scheduling.
func (s *Scheduler) Schedule(ctx context.Context, appointmentID uuid.UUID, startsAt time.Time) ([]Reminder, error) {
	planned := s.Plan(appointmentID, startsAt)
	for i := range planned {
		if err := s.store.Insert(ctx, nil, &planned[i]); err != nil {
			return nil, err
		}
	}
	return planned, nil
}
