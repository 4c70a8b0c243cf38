package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestObserveBookingCounts(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewSchedulerMetrics(reg)

	m.ObserveBooking("booked")
	m.ObserveBooking("booked")
	m.ObserveBooking("conflict")

	assert.Equal(t, float64(2), testutil.ToFloat64(m.bookingsTotal.WithLabelValues("booked")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.bookingsTotal.WithLabelValues("conflict")))
}

func TestObserveReminderCounts(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewSchedulerMetrics(reg)

	m.ObserveReminder("email", "sent")
	m.ObserveReminder("sms", "failed")

	assert.Equal(t, float64(1), testutil.ToFloat64(m.remindersTotal.WithLabelValues("email", "sent")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.remindersTotal.WithLabelValues("sms", "failed")))
}

func TestNilReceiverIsSafe(t *testing.T) {
	var m *SchedulerMetrics
	assert.NotPanics(t, func() {
		m.ObserveBooking("booked")
		m.ObserveReminder("email", "sent")
		m.ObserveSlotQuery(0.1)
		m.ObserveDispatchPass(0.1)
	})
}
