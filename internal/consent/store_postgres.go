package consent

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"
)

// PostgresStore persists consent records in PostgreSQL. The
// (user_id, provider_id) pair carries a unique constraint, so a racing
// duplicate Create surfaces as an error rather than a second record.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const consentColumns = `id, user_id, provider_id, consented, data_types, expires_at, created_at, updated_at`

func (s *PostgresStore) GetByUserAndProvider(ctx context.Context, userID, providerID string) (*Record, error) {
	query := `SELECT ` + consentColumns + ` FROM consents WHERE user_id = $1 AND provider_id = $2`
	record, err := scanConsent(s.db.QueryRowContext(ctx, query, userID, providerID))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("get consent: %w", err)
	}
	return record, nil
}

func (s *PostgresStore) ListByUser(ctx context.Context, userID string) ([]Record, error) {
	query := `SELECT ` + consentColumns + ` FROM consents WHERE user_id = $1 ORDER BY provider_id`
	rows, err := s.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("list consents: %w", err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		record, err := scanConsent(rows)
		if err != nil {
			return nil, fmt.Errorf("scan consent: %w", err)
		}
		out = append(out, *record)
	}
	return out, rows.Err()
}

func (s *PostgresStore) Create(ctx context.Context, record Record) error {
	query := `
		INSERT INTO consents (` + consentColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err := s.db.ExecContext(ctx, query,
		record.ID,
		record.UserID,
		record.ProviderID,
		record.Consented,
		pq.Array(dataTypeStrings(record.DataTypes)),
		record.ExpiresAt,
		record.CreatedAt,
		record.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("create consent: %w", err)
	}
	return nil
}

func (s *PostgresStore) Update(ctx context.Context, record Record) error {
	query := `
		UPDATE consents
		SET consented = $2, data_types = $3, expires_at = $4, updated_at = $5
		WHERE id = $1
	`
	result, err := s.db.ExecContext(ctx, query,
		record.ID,
		record.Consented,
		pq.Array(dataTypeStrings(record.DataTypes)),
		record.ExpiresAt,
		record.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update consent: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update consent: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("consent record %s not found", record.ID)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanConsent(row rowScanner) (*Record, error) {
	var record Record
	var dataTypes pq.StringArray
	if err := row.Scan(
		&record.ID,
		&record.UserID,
		&record.ProviderID,
		&record.Consented,
		&dataTypes,
		&record.ExpiresAt,
		&record.CreatedAt,
		&record.UpdatedAt,
	); err != nil {
		return nil, err
	}
	for _, dt := range dataTypes {
		record.DataTypes = append(record.DataTypes, DataType(dt))
	}
	return &record, nil
}

func dataTypeStrings(types []DataType) []string {
	out := make([]string, len(types))
	for i, dt := range types {
		out[i] = string(dt)
	}
	return out
}
