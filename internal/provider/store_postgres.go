package provider

import (
	"context"
	"database/sql"
	"fmt"
)

// PostgresStore persists provider records in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Get(ctx context.Context, id string) (*Provider, error) {
	query := `
		SELECT id, name, COALESCE(address, ''), type, active, created_at, updated_at
		FROM providers
		WHERE id = $1
	`
	p, err := scanProvider(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("get provider: %w", err)
	}
	return p, nil
}

func (s *PostgresStore) ListActive(ctx context.Context) ([]Provider, error) {
	query := `
		SELECT id, name, COALESCE(address, ''), type, active, created_at, updated_at
		FROM providers
		WHERE active = TRUE
		ORDER BY name
	`
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list providers: %w", err)
	}
	defer rows.Close()

	var providers []Provider
	for rows.Next() {
		p, err := scanProvider(rows)
		if err != nil {
			return nil, fmt.Errorf("scan provider: %w", err)
		}
		providers = append(providers, *p)
	}
	return providers, rows.Err()
}

func (s *PostgresStore) Put(ctx context.Context, provider Provider) error {
	query := `
		INSERT INTO providers (id, name, address, type, active, created_at, updated_at)
		VALUES ($1, $2, NULLIF($3, ''), $4, $5, $6, $7)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			address = EXCLUDED.address,
			type = EXCLUDED.type,
			active = EXCLUDED.active,
			updated_at = EXCLUDED.updated_at
	`
	_, err := s.db.ExecContext(ctx, query,
		provider.ID, provider.Name, provider.Address, string(provider.Type),
		provider.Active, provider.CreatedAt, provider.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("put provider: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProvider(row rowScanner) (*Provider, error) {
	var p Provider
	var providerType string
	if err := row.Scan(&p.ID, &p.Name, &p.Address, &providerType, &p.Active, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, err
	}
	p.Type = Type(providerType)
	return &p, nil
}
