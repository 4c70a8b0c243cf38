package scheduling

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/medicare-wellness/clinic-scheduler/pkg/logging"
)

var schedulingTracer = otel.Tracer("clinic-scheduler/scheduling")

// CalculatorConfig carries the slot-generation policy.
type CalculatorConfig struct {
	// IntervalMinutes is the grid granularity for candidate start times.
	IntervalMinutes int
	// BufferMinutes is the minimum idle time enforced after every booked
	// appointment before the next slot may start.
	BufferMinutes int
	// WindowDays bounds how far ahead availability may be queried.
	WindowDays int
	// Location is the clinic's local timezone for day boundaries.
	Location *time.Location
}

func (c CalculatorConfig) withDefaults() CalculatorConfig {
	if c.IntervalMinutes <= 0 {
		c.IntervalMinutes = 15
	}
	if c.BufferMinutes < 0 {
		c.BufferMinutes = 0
	}
	if c.WindowDays <= 0 {
		c.WindowDays = 14
	}
	if c.Location == nil {
		c.Location = time.UTC
	}
	return c
}

// SlotCache caches computed slot lists. Implementations must be safe for
// concurrent use; a nil cache disables caching.
type SlotCache interface {
	Get(ctx context.Context, doctorID, key string) ([]Slot, bool)
	Set(ctx context.Context, doctorID, key string, slots []Slot)
}

// Calculator computes free slots for a doctor by subtracting booked
// intervals (plus buffer) from the working-hours template.
type Calculator struct {
	store  *Store
	cache  SlotCache
	cfg    CalculatorConfig
	logger *logging.Logger
	now    func() time.Time
}

// NewCalculator creates an availability calculator.
func NewCalculator(store *Store, cache SlotCache, cfg CalculatorConfig, logger *logging.Logger) *Calculator {
	if logger == nil {
		logger = logging.Default()
	}
	return &Calculator{
		store:  store,
		cache:  cache,
		cfg:    cfg.withDefaults(),
		logger: logger,
		now:    time.Now,
	}
}

// Slots returns the chronologically ordered free slots for the doctor
// between from and to (inclusive of both days). durationMinutes is the
// prospective appointment length; zero means one grid interval. A fully
// booked doctor yields an empty result, not an error.
func (c *Calculator) Slots(ctx context.Context, doctorID string, from, to time.Time, durationMinutes int) ([]Slot, error) {
	ctx, span := schedulingTracer.Start(ctx, "availability.slots")
	defer span.End()
	span.SetAttributes(
		attribute.String("clinic.doctor_id", doctorID),
		attribute.Int("clinic.duration_minutes", durationMinutes),
	)

	if durationMinutes <= 0 {
		durationMinutes = c.cfg.IntervalMinutes
	}

	from = dayStart(from, c.cfg.Location)
	to = dayStart(to, c.cfg.Location)
	if to.Before(from) {
		return nil, ErrInvalidRange
	}

	// Clamp to the rolling booking window.
	limit := from.AddDate(0, 0, c.cfg.WindowDays-1)
	if to.After(limit) {
		to = limit
	}

	cacheKey := fmt.Sprintf("%s:%s:%d", from.Format(time.DateOnly), to.Format(time.DateOnly), durationMinutes)
	if c.cache != nil {
		if slots, ok := c.cache.Get(ctx, doctorID, cacheKey); ok {
			return slots, nil
		}
	}

	if _, err := c.store.GetDoctor(ctx, doctorID); err != nil {
		return nil, err
	}

	template, err := c.store.ScheduleTemplate(ctx, doctorID)
	if err != nil {
		return nil, err
	}
	windows := make(map[time.Weekday]ScheduleWindow, len(template))
	for _, w := range template {
		windows[w.Weekday] = w
	}

	booked, err := c.store.ListAppointments(ctx, doctorID, from, to.AddDate(0, 0, 1))
	if err != nil {
		return nil, err
	}

	now := c.now()
	duration := time.Duration(durationMinutes) * time.Minute
	interval := time.Duration(c.cfg.IntervalMinutes) * time.Minute

	slots := []Slot{}
	for day := from; !day.After(to); day = day.AddDate(0, 0, 1) {
		window, ok := windows[day.Weekday()]
		if !ok {
			continue // not a working day
		}
		dayEnd := day.Add(time.Duration(window.EndOfDay) * time.Minute)
		for start := day.Add(time.Duration(window.StartOfDay) * time.Minute); !start.Add(duration).After(dayEnd); start = start.Add(interval) {
			if start.Before(now) {
				continue
			}
			if c.conflicts(start, start.Add(duration), booked) {
				continue
			}
			slots = append(slots, Slot{DoctorID: doctorID, Start: start, End: start.Add(duration)})
		}
	}

	if c.cache != nil {
		c.cache.Set(ctx, doctorID, cacheKey, slots)
	}

	c.logger.Debug("availability computed",
		"doctor_id", doctorID,
		"from", from.Format(time.DateOnly),
		"to", to.Format(time.DateOnly),
		"slots", len(slots),
	)
	return slots, nil
}

// conflicts reports whether [start, end) overlaps any booked appointment's
// interval extended by the buffer.
func (c *Calculator) conflicts(start, end time.Time, booked []Appointment) bool {
	buffer := time.Duration(c.cfg.BufferMinutes) * time.Minute
	for _, a := range booked {
		if start.Before(a.EndsAt().Add(buffer)) && end.After(a.StartsAt) {
			return true
		}
	}
	return false
}

func dayStart(t time.Time, loc *time.Location) time.Time {
	t = t.In(loc)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
}
