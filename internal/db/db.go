// Package db opens the optional Postgres database and stores the language
// preference in it.
package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
)

func Open(dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	// One logical session per process; a handful of connections is plenty.
	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(30 * time.Minute)
	return db, nil
}

func Ping(ctx context.Context, db *sql.DB) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return db.PingContext(ctx)
}

const preferencesDDL = `
CREATE TABLE IF NOT EXISTS busmate_preferences (
	key        TEXT PRIMARY KEY,
	value      TEXT NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`

// PreferenceStore keeps key/value preferences in a single table.
type PreferenceStore struct {
	db *sql.DB
}

// NewPreferenceStore creates the preferences table when it is missing.
func NewPreferenceStore(ctx context.Context, db *sql.DB) (*PreferenceStore, error) {
	if _, err := db.ExecContext(ctx, preferencesDDL); err != nil {
		return nil, fmt.Errorf("create preferences table: %w", err)
	}
	return &PreferenceStore{db: db}, nil
}

func (s *PreferenceStore) Get(ctx context.Context, key string) (string, bool, error) {
	var v string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM busmate_preferences WHERE key = $1`, key).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("query preference %q: %w", key, err)
	}
	return v, true, nil
}

func (s *PreferenceStore) Set(ctx context.Context, key, value string) error {
	q := `
INSERT INTO busmate_preferences (key, value, updated_at)
VALUES ($1, $2, now())
ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = EXCLUDED.updated_at`
	if _, err := s.db.ExecContext(ctx, q, key, value); err != nil {
		return fmt.Errorf("upsert preference %q: %w", key, err)
	}
	return nil
}

// Delete removes key; deleting a missing key is not an error.
func (s *PreferenceStore) Delete(ctx context.Context, key string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM busmate_preferences WHERE key = $1`, key); err != nil {
		return fmt.Errorf("delete preference %q: %w", key, err)
	}
	return nil
}
