package reminders

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"

	"github.com/medicare-wellness/clinic-scheduler/internal/observability/metrics"
	"github.com/medicare-wellness/clinic-scheduler/pkg/logging"
)

var remindersTracer = otel.Tracer("clinic-scheduler/reminders")

// EmailSender delivers a rendered reminder by email.
type EmailSender interface {
	Send(ctx context.Context, to, subject, htmlBody string) error
}

// SMSSender delivers a rendered reminder by text message.
type SMSSender interface {
	Send(ctx context.Context, to, body string) error
}

// DispatcherConfig controls the dispatch loop.
type DispatcherConfig struct {
	Interval  time.Duration
	BatchSize int
}

func (c DispatcherConfig) withDefaults() DispatcherConfig {
	if c.Interval <= 0 {
		c.Interval = time.Hour
	}
	if c.BatchSize <= 0 {
		c.BatchSize = 100
	}
	return c
}

// Dispatcher claims due reminders and delivers them. Claims use row locks,
// so overlapping passes (or multiple worker replicas) never double-send.
type Dispatcher struct {
	store    *Store
	renderer *Renderer
	email    EmailSender
	sms      SMSSender
	metrics  *metrics.SchedulerMetrics
	cfg      DispatcherConfig
	logger   *logging.Logger
	now      func() time.Time
}

// NewDispatcher creates a reminder dispatcher. sms may be nil when no SMS
// provider is configured.
func NewDispatcher(store *Store, renderer *Renderer, email EmailSender, sms SMSSender, m *metrics.SchedulerMetrics, cfg DispatcherConfig, logger *logging.Logger) *Dispatcher {
	if logger == nil {
		logger = logging.Default()
	}
	return &Dispatcher{
		store:    store,
		renderer: renderer,
		email:    email,
		sms:      sms,
		metrics:  m,
		cfg:      cfg.withDefaults(),
		logger:   logger,
		now:      time.Now,
	}
}

// Run executes dispatch passes on the configured interval until the context
// is cancelled. An immediate first pass picks up anything already due.
func (d *Dispatcher) Run(ctx context.Context) {
	d.logger.Info("reminder dispatcher started",
		"interval", d.cfg.Interval.String(), "batch_size", d.cfg.BatchSize)

	if _, err := d.ProcessDue(ctx); err != nil {
		d.logger.Error("reminder dispatch pass failed", "error", err)
	}

	ticker := time.NewTicker(d.cfg.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			d.logger.Info("reminder dispatcher stopped")
			return
		case <-ticker.C:
			if _, err := d.ProcessDue(ctx); err != nil {
				d.logger.Error("reminder dispatch pass failed", "error", err)
			}
		}
	}
}

// ProcessDue claims one batch of due reminders and delivers each. It returns
// the number of reminders that were sent successfully. Failures are recorded
// on the reminder row and not retried.
func (d *Dispatcher) ProcessDue(ctx context.Context) (int, error) {
	ctx, span := remindersTracer.Start(ctx, "reminders.ProcessDue")
	defer span.End()
	started := d.now()

	claimed, err := d.store.ClaimDue(ctx, d.now().UTC(), d.cfg.BatchSize)
	if err != nil {
		return 0, fmt.Errorf("reminders: process due: %w", err)
	}
	if len(claimed) == 0 {
		return 0, nil
	}

	sent := 0
	for _, rem := range claimed {
		if err := d.dispatch(ctx, rem); err != nil {
			d.logger.Error("reminder send failed",
				"reminder_id", rem.ID, "appointment_id", rem.AppointmentID,
				"tier", string(rem.Tier), "error", err)
			if markErr := d.store.MarkFailed(ctx, rem.ID, err.Error()); markErr != nil {
				d.logger.Error("mark failed errored", "reminder_id", rem.ID, "error", markErr)
			}
			d.metrics.ObserveReminder(string(ChannelEmail), "failed")
			continue
		}
		if err := d.store.MarkSent(ctx, rem.ID); err != nil {
			d.logger.Error("mark sent errored", "reminder_id", rem.ID, "error", err)
			continue
		}
		sent++
		d.logger.Info("reminder sent",
			"reminder_id", rem.ID, "appointment_id", rem.AppointmentID, "tier", string(rem.Tier))
	}

	d.metrics.ObserveDispatchPass(d.now().Sub(started).Seconds())
	return sent, nil
}

func (d *Dispatcher) dispatch(ctx context.Context, rem Reminder) error {
	info, err := d.store.DispatchInfoFor(ctx, rem.AppointmentID)
	if err != nil {
		return err
	}
	msg := d.renderer.Render(rem, *info)

	if err := d.email.Send(ctx, info.PatientEmail, msg.Subject, msg.HTML); err != nil {
		return fmt.Errorf("email: %w", err)
	}
	d.metrics.ObserveReminder(string(ChannelEmail), "sent")

	// Final-tier reminders also go out by SMS when the patient has a phone
	// number on file. An SMS failure does not fail the reminder: the email
	// already landed.
	if rem.Tier == TierTwoHour && d.sms != nil && info.PatientPhone != "" && msg.SMS != "" {
		if err := d.sms.Send(ctx, info.PatientPhone, msg.SMS); err != nil {
			d.logger.Warn("reminder sms failed",
				"reminder_id", rem.ID, "appointment_id", rem.AppointmentID, "error", err)
			d.metrics.ObserveReminder(string(ChannelSMS), "failed")
		} else {
			d.metrics.ObserveReminder(string(ChannelSMS), "sent")
		}
	}
	return nil
}
