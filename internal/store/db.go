// Package store is the persistence layer: a single sqlite database
// (modernc.org/sqlite, pure-Go driver) holding stocks, price bars, news,
// signals, outcomes, deliveries, and schedule executions. Grounded on the
// teacher's internal/database.DB wrapper and
// internal/database/repositories.BaseRepository, collapsed from the
// teacher's multi-database split to one schema (see DESIGN.md).
package store

import (
	"context"
	_ "embed"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
	_ "modernc.org/sqlite"
)

//go:embed schema.sql
var schemaSQL string

// DB wraps the sqlite connection and the embedded schema bootstrap.
type DB struct {
	conn *sql.DB
	log  zerolog.Logger
}

// Open opens (creating if necessary) the sqlite database at path in WAL
// mode with foreign keys enabled, matching the teacher's connection
// string shape.
func Open(path string, log zerolog.Logger) (*DB, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating database directory: %w", err)
		}
	}

	conn, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if err := conn.Ping(); err != nil {
		return nil, fmt.Errorf("pinging database: %w", err)
	}
	conn.SetMaxOpenConns(25)
	conn.SetMaxIdleConns(5)

	return &DB{conn: conn, log: log.With().Str("service", "store").Logger()}, nil
}

// Migrate applies the embedded schema. It is idempotent (every statement
// is CREATE ... IF NOT EXISTS) so it is safe to call on every startup.
func (db *DB) Migrate(ctx context.Context) error {
	if _, err := db.conn.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("applying schema: %w", err)
	}
	db.log.Info().Msg("schema migrated")
	return nil
}

// Close closes the underlying connection.
func (db *DB) Close() error { return db.conn.Close() }

// Conn exposes the raw *sql.DB for repositories.
func (db *DB) Conn() *sql.DB { return db.conn }

// BeginTx starts a transaction, used by the signal store's supersede/
// resolve paths that must read-then-write atomically.
func (db *DB) BeginTx(ctx context.Context) (*sql.Tx, error) {
	return db.conn.BeginTx(ctx, nil)
}
