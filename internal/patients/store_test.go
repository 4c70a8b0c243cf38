package patients

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

func TestNewPatientValidation(t *testing.T) {
	_, err := NewPatient("", "Doe", "jane@example.com", "", nil)
	assert.ErrorIs(t, err, ErrInvalidPatient)

	_, err = NewPatient("Jane", "Doe", "not-an-email", "", nil)
	assert.ErrorIs(t, err, ErrInvalidPatient)

	p, err := NewPatient("  Jane ", "Doe", "jane@example.com", " +15551234567 ", nil)
	require.NoError(t, err)
	assert.Equal(t, "Jane", p.FirstName)
	assert.Equal(t, "+15551234567", p.Phone)
	assert.Equal(t, "Jane Doe", p.Name())
	assert.Len(t, p.FormToken, 8)
	assert.NotEqual(t, uuid.Nil, p.ID)
}

func TestFormTokensAreUniquePerPatient(t *testing.T) {
	a, err := NewPatient("Jane", "Doe", "jane@example.com", "", nil)
	require.NoError(t, err)
	b, err := NewPatient("John", "Doe", "john@example.com", "", nil)
	require.NoError(t, err)
	assert.NotEqual(t, a.FormToken, b.FormToken)
}

func TestGetByFormToken(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("failed to create pgx mock: %v", err)
	}
	defer mock.Close()

	store := NewStore(mock)
	id := uuid.New()
	now := time.Now().UTC()

	mock.ExpectQuery("SELECT id, first_name").
		WithArgs("a1b2c3d4").
		WillReturnRows(pgxmock.NewRows([]string{
			"id", "first_name", "last_name", "date_of_birth", "email", "phone", "form_token", "created_at",
		}).AddRow(id, "Jane", "Doe", (*time.Time)(nil), "jane@example.com", "", "a1b2c3d4", now))

	p, err := store.GetByFormToken(context.Background(), "a1b2c3d4")
	require.NoError(t, err)
	assert.Equal(t, id, p.ID)
	assert.Equal(t, "a1b2c3d4", p.FormToken)

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestGetByIDNotFound(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("failed to create pgx mock: %v", err)
	}
	defer mock.Close()

	store := NewStore(mock)
	mock.ExpectQuery("SELECT id, first_name").
		WithArgs(pgxmock.AnyArg()).
		WillReturnError(pgx.ErrNoRows)

	_, err = store.GetByID(context.Background(), uuid.New())
	assert.ErrorIs(t, err, ErrPatientNotFound)
}

func TestExists(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("failed to create pgx mock: %v", err)
	}
	defer mock.Close()

	store := NewStore(mock)
	id := uuid.New()

	mock.ExpectQuery("SELECT EXISTS").
		WithArgs(id).
		WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(true))

	ok, err := store.Exists(context.Background(), id)
	require.NoError(t, err)
	assert.True(t, ok)
}
