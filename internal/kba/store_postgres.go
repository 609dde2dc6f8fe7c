package kba

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// PostgresStore persists attempt records in PostgreSQL. RecordFailure
// uses a single atomic upsert so concurrent failures for one identifier
// cannot lose increments.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Get(ctx context.Context, identifier string) (*Attempt, error) {
	query := `
		SELECT identifier, attempt_count, locked_until, last_attempt_at, last_success_at, COALESCE(last_origin, '')
		FROM kba_attempts
		WHERE identifier = $1
	`
	record, err := scanAttempt(s.db.QueryRowContext(ctx, query, identifier))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("get kba attempt: %w", err)
	}
	return record, nil
}

func (s *PostgresStore) RecordFailure(ctx context.Context, identifier, origin string, now time.Time) (*Attempt, error) {
	query := `
		INSERT INTO kba_attempts (identifier, attempt_count, locked_until, last_attempt_at, last_success_at, last_origin)
		VALUES ($1, 1, NULL, $2, NULL, NULLIF($3, ''))
		ON CONFLICT (identifier) DO UPDATE SET
			attempt_count = kba_attempts.attempt_count + 1,
			last_attempt_at = $2,
			last_origin = NULLIF($3, '')
		RETURNING identifier, attempt_count, locked_until, last_attempt_at, last_success_at, COALESCE(last_origin, '')
	`
	record, err := scanAttempt(s.db.QueryRowContext(ctx, query, identifier, now, origin))
	if err != nil {
		return nil, fmt.Errorf("record kba failure: %w", err)
	}
	return record, nil
}

func (s *PostgresStore) Update(ctx context.Context, record *Attempt) error {
	if record == nil {
		return fmt.Errorf("attempt record is required")
	}
	query := `
		INSERT INTO kba_attempts (identifier, attempt_count, locked_until, last_attempt_at, last_success_at, last_origin)
		VALUES ($1, $2, $3, $4, $5, NULLIF($6, ''))
		ON CONFLICT (identifier) DO UPDATE SET
			attempt_count = EXCLUDED.attempt_count,
			locked_until = EXCLUDED.locked_until,
			last_attempt_at = EXCLUDED.last_attempt_at,
			last_success_at = EXCLUDED.last_success_at,
			last_origin = EXCLUDED.last_origin
	`
	_, err := s.db.ExecContext(ctx, query,
		record.Identifier,
		record.Count,
		record.LockedUntil,
		record.LastAttemptAt,
		record.LastSuccessAt,
		record.LastOrigin,
	)
	if err != nil {
		return fmt.Errorf("update kba attempt: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAttempt(row rowScanner) (*Attempt, error) {
	var record Attempt
	if err := row.Scan(
		&record.Identifier,
		&record.Count,
		&record.LockedUntil,
		&record.LastAttemptAt,
		&record.LastSuccessAt,
		&record.LastOrigin,
	); err != nil {
		return nil, err
	}
	return &record, nil
}
