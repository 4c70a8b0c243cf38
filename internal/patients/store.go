package patients

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Querier abstracts the pgx query interface for pools, transactions, and mocks.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Store provides persistence for patients.
type Store struct {
	db Querier
}

// NewStore creates a patient store.
func NewStore(db Querier) *Store {
	return &Store{db: db}
}

// Create persists a new patient.
func (s *Store) Create(ctx context.Context, p *Patient) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO patients (id, first_name, last_name, date_of_birth, email, phone, form_token, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		p.ID, p.FirstName, p.LastName, p.DateOfBirth, p.Email, p.Phone, p.FormToken, p.CreatedAt)
	if err != nil {
		return fmt.Errorf("patients: create: %w", err)
	}
	return nil
}

// GetByID returns a patient by identifier.
func (s *Store) GetByID(ctx context.Context, id uuid.UUID) (*Patient, error) {
	return s.get(ctx, `WHERE id = $1`, id)
}

// GetByFormToken resolves the token carried in intake form links.
func (s *Store) GetByFormToken(ctx context.Context, token string) (*Patient, error) {
	return s.get(ctx, `WHERE form_token = $1`, token)
}

// GetByEmail returns the most recently registered patient with the address.
func (s *Store) GetByEmail(ctx context.Context, email string) (*Patient, error) {
	return s.get(ctx, `WHERE email = $1 ORDER BY created_at DESC LIMIT 1`, email)
}

func (s *Store) get(ctx context.Context, where string, arg any) (*Patient, error) {
	var p Patient
	err := s.db.QueryRow(ctx, `
		SELECT id, first_name, last_name, date_of_birth, email, COALESCE(phone, ''), form_token, created_at
		FROM patients `+where, arg).
		Scan(&p.ID, &p.FirstName, &p.LastName, &p.DateOfBirth, &p.Email, &p.Phone, &p.FormToken, &p.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrPatientNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("patients: get: %w", err)
	}
	return &p, nil
}

// Exists reports whether the patient is registered.
func (s *Store) Exists(ctx context.Context, id uuid.UUID) (bool, error) {
	var exists bool
	err := s.db.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM patients WHERE id = $1)`, id).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("patients: exists: %w", err)
	}
	return exists, nil
}
