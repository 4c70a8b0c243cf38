package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5"
	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medicare-wellness/clinic-scheduler/internal/scheduling"
)

func newAvailabilityServer(t *testing.T) (*chi.Mux, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("failed to create pgx mock: %v", err)
	}
	t.Cleanup(mock.Close)

	store := scheduling.NewStore(mock)
	calc := scheduling.NewCalculator(store, nil, scheduling.CalculatorConfig{
		IntervalMinutes: 15,
		BufferMinutes:   15,
		WindowDays:      14,
		Location:        time.UTC,
	}, nil)
	h := NewAvailabilityHandler(calc, store, time.UTC, nil)

	r := chi.NewRouter()
	r.Get("/api/doctors", h.ListDoctors)
	r.Get("/api/doctors/{doctorID}/availability", h.GetSlots)
	return r, mock
}

func TestListDoctors(t *testing.T) {
	r, mock := newAvailabilityServer(t)

	mock.ExpectQuery("SELECT id, name, specialty").
		WillReturnRows(pgxmock.NewRows([]string{"id", "name", "specialty", "created_at"}).
			AddRow("DOC001", "Dr. Smith", "Allergy & Immunology", time.Now()))

	req := httptest.NewRequest(http.MethodGet, "/api/doctors", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var out struct {
		Doctors []scheduling.Doctor `json:"doctors"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	require.Len(t, out.Doctors, 1)
	assert.Equal(t, "DOC001", out.Doctors[0].ID)
}

func TestGetSlotsUnknownDoctor(t *testing.T) {
	r, mock := newAvailabilityServer(t)

	mock.ExpectQuery("SELECT id, name, specialty").
		WithArgs("NOPE").
		WillReturnError(pgx.ErrNoRows)

	req := httptest.NewRequest(http.MethodGet, "/api/doctors/NOPE/availability?from=2099-03-10&to=2099-03-10", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestGetSlotsBadDates(t *testing.T) {
	r, _ := newAvailabilityServer(t)

	req := httptest.NewRequest(http.MethodGet, "/api/doctors/DOC001/availability?from=tomorrow", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	req = httptest.NewRequest(http.MethodGet, "/api/doctors/DOC001/availability?from=2099-03-10&to=2099-03-01", nil)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetSlotsReturnsSlots(t *testing.T) {
	r, mock := newAvailabilityServer(t)

	day := "2099-03-10" // a Tuesday, far enough out to not be in the past
	mock.ExpectQuery("SELECT id, name, specialty").
		WithArgs("DOC001").
		WillReturnRows(pgxmock.NewRows([]string{"id", "name", "specialty", "created_at"}).
			AddRow("DOC001", "Dr. Smith", "Allergy & Immunology", time.Now()))
	mock.ExpectQuery("SELECT weekday").
		WithArgs("DOC001").
		WillReturnRows(pgxmock.NewRows([]string{"weekday", "start", "end"}).
			AddRow(int16(2), 9*60, 10*60))
	mock.ExpectQuery("SELECT id, patient_id").
		WithArgs("DOC001", pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnRows(pgxmock.NewRows([]string{
			"id", "patient_id", "doctor_id", "starts_at", "duration_minutes", "status",
			"forms_sent", "forms_completed", "created_at", "updated_at",
		}))

	req := httptest.NewRequest(http.MethodGet, "/api/doctors/DOC001/availability?from="+day+"&to="+day, nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var out struct {
		DoctorID string            `json:"doctor_id"`
		Slots    []scheduling.Slot `json:"slots"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	assert.Equal(t, "DOC001", out.DoctorID)
	assert.Len(t, out.Slots, 4) // 09:00-10:00 on a 15-minute grid
}
