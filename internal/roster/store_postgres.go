package roster

import (
	"context"
	"database/sql"
	"fmt"
)

// PostgresStore persists roster records in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Get(ctx context.Context, medicaidID string) (*Person, error) {
	query := `
		SELECT medicaid_id, first_name, last_name, ssn_last_4, date_of_birth,
		       street, city, state, zip, email, phone, active, is_synthetic,
		       created_at, updated_at
		FROM persons
		WHERE medicaid_id = $1
	`
	var p Person
	err := s.db.QueryRowContext(ctx, query, medicaidID).Scan(
		&p.MedicaidID, &p.FirstName, &p.LastName, &p.SSNLast4, &p.DateOfBirth,
		&p.Address.Street, &p.Address.City, &p.Address.State, &p.Address.Zip,
		&p.Email, &p.Phone, &p.Active, &p.IsSynthetic,
		&p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("get person: %w", err)
	}
	return &p, nil
}

func (s *PostgresStore) Put(ctx context.Context, person Person) error {
	query := `
		INSERT INTO persons (medicaid_id, first_name, last_name, ssn_last_4, date_of_birth,
		                     street, city, state, zip, email, phone, active, is_synthetic,
		                     created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		ON CONFLICT (medicaid_id) DO NOTHING
	`
	_, err := s.db.ExecContext(ctx, query,
		person.MedicaidID, person.FirstName, person.LastName, person.SSNLast4, person.DateOfBirth,
		person.Address.Street, person.Address.City, person.Address.State, person.Address.Zip,
		person.Email, person.Phone, person.Active, person.IsSynthetic,
		person.CreatedAt, person.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("put person: %w", err)
	}
	return nil
}
