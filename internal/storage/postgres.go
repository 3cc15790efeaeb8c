package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/lib/pq"
)

const createBlobTable = `
CREATE TABLE IF NOT EXISTS sentinel_blobs (
	name       TEXT PRIMARY KEY,
	data       BYTEA NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
)`

// PostgresBackend keeps the blob in one row of sentinel_blobs
type PostgresBackend struct {
	db   *sql.DB
	name string
}

func NewPostgresBackend(ctx context.Context, dsn, name string) (*PostgresBackend, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres: %w", err)
	}

	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(time.Hour)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}

	b, err := NewPostgresBackendWithDB(ctx, db, name)
	if err != nil {
		db.Close()
		return nil, err
	}
	return b, nil
}

// NewPostgresBackendWithDB uses an existing pool and makes sure the table exists
func NewPostgresBackendWithDB(ctx context.Context, db *sql.DB, name string) (*PostgresBackend, error) {
	if _, err := db.ExecContext(ctx, createBlobTable); err != nil {
		return nil, fmt.Errorf("failed to create blob table: %w", err)
	}
	return &PostgresBackend{db: db, name: name}, nil
}

func (p *PostgresBackend) Read(ctx context.Context) ([]byte, error) {
	var data []byte
	err := p.db.QueryRowContext(ctx, `SELECT data FROM sentinel_blobs WHERE name = $1`, p.name).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read blob %s: %w", p.name, err)
	}
	return data, nil
}

func (p *PostgresBackend) Write(ctx context.Context, data []byte) error {
	_, err := p.db.ExecContext(ctx, `
		INSERT INTO sentinel_blobs (name, data, updated_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (name) DO UPDATE SET data = EXCLUDED.data, updated_at = EXCLUDED.updated_at
	`, p.name, data, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to write blob %s: %w", p.name, err)
	}
	return nil
}

func (p *PostgresBackend) Close() error {
	return p.db.Close()
}
