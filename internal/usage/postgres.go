package usage

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"
)

// PostgresStore keeps key allowances in Postgres.
type PostgresStore struct {
	db *sqlx.DB
}

// NewPostgresStore ensures the backing table exists and returns the store.
func NewPostgresStore(db *sqlx.DB) (*PostgresStore, error) {
	_, err := db.Exec(`
        CREATE TABLE IF NOT EXISTS api_keys (
            api_key VARCHAR(255) PRIMARY KEY,
            calls_remaining INTEGER NOT NULL DEFAULT 0,
            created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
        )
    `)
	if err != nil {
		return nil, err
	}
	return &PostgresStore{db: db}, nil
}

func (s *PostgresStore) Remaining(ctx context.Context, apiKey string) (int, error) {
	query := `
        SELECT calls_remaining
        FROM api_keys
        WHERE api_key = $1`

	var remaining int
	err := s.db.GetContext(ctx, &remaining, query, apiKey)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, ErrUnknownKey
	}
	return remaining, err
}

func (s *PostgresStore) Consume(ctx context.Context, apiKey string) error {
	query := `
        UPDATE api_keys
        SET calls_remaining = GREATEST(calls_remaining - 1, 0)
        WHERE api_key = $1`

	res, err := s.db.ExecContext(ctx, query, apiKey)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrUnknownKey
	}
	return nil
}

// Grant provisions a key or resets its allowance.
func (s *PostgresStore) Grant(ctx context.Context, apiKey string, calls int) error {
	query := `
        INSERT INTO api_keys (api_key, calls_remaining)
        VALUES ($1, $2)
        ON CONFLICT (api_key) DO UPDATE SET calls_remaining = $2`

	_, err := s.db.ExecContext(ctx, query, apiKey, calls)
	return err
}
