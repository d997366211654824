// Package sqlite stores the reference tree and crawl history in SQLite.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/fwojciec/refdex"
	"github.com/ncruces/go-sqlite3"
	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"
)

// MemoryPath opens a private in-memory database.
const MemoryPath = ":memory:"

// migrations brings a database from user_version i to i+1. Append only.
var migrations = []string{
	`CREATE TABLE nodes (
		id           INTEGER PRIMARY KEY AUTOINCREMENT,
		url          TEXT NOT NULL UNIQUE,
		description  TEXT,
		checksum     TEXT NOT NULL DEFAULT '',
		keywords     TEXT,
		type         TEXT,
		depth        INTEGER,
		parent_id    INTEGER,
		children_ids TEXT,
		updated_at   TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);
	CREATE INDEX idx_nodes_depth ON nodes(depth);
	CREATE INDEX idx_nodes_parent_id ON nodes(parent_id);`,

	`CREATE TABLE crawl_runs (
		id             TEXT PRIMARY KEY,
		index_url      TEXT NOT NULL,
		started_at     TEXT NOT NULL,
		finished_at    TEXT NOT NULL DEFAULT '',
		visited        INTEGER NOT NULL DEFAULT 0,
		derived        INTEGER NOT NULL DEFAULT 0,
		skipped        INTEGER NOT NULL DEFAULT 0,
		unresolved     INTEGER NOT NULL DEFAULT 0,
		model_failures INTEGER NOT NULL DEFAULT 0,
		writes         INTEGER NOT NULL DEFAULT 0,
		tokens         INTEGER NOT NULL DEFAULT 0
	);`,
}

// DB is the SQLite handle shared by the node and run services.
type DB struct {
	db   *sql.DB
	path string
}

// NewDB returns a DB for the file at path, or MemoryPath.
func NewDB(path string) *DB {
	return &DB{path: path}
}

// Open connects and migrates the schema to the latest version.
func (db *DB) Open() error {
	conn, err := sql.Open("sqlite3", db.path)
	if err != nil {
		return fmt.Errorf("open %s: %w", db.path, err)
	}
	// One connection serializes writers, which the insert-if-absent in
	// FindOrCreateNode relies on.
	conn.SetMaxOpenConns(1)

	if err := db.setup(conn); err != nil {
		conn.Close()
		return fmt.Errorf("open %s: %w", db.path, err)
	}
	db.db = conn
	return nil
}

func (db *DB) setup(conn *sql.DB) error {
	pragmas := []string{"PRAGMA busy_timeout = 5000"}
	if db.path != MemoryPath {
		// Lets the resolver read while a crawl writes.
		pragmas = append(pragmas, "PRAGMA journal_mode = WAL")
	}
	for _, p := range pragmas {
		if _, err := conn.Exec(p); err != nil {
			return fmt.Errorf("%s: %w", p, err)
		}
	}
	return migrate(conn)
}

func migrate(conn *sql.DB) error {
	var version int
	if err := conn.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	if version > len(migrations) {
		return refdex.Errorf(refdex.EINVALID, "database schema version %d is newer than this build (%d)", version, len(migrations))
	}

	for i := version; i < len(migrations); i++ {
		tx, err := conn.Begin()
		if err != nil {
			return err
		}
		if _, err := tx.Exec(migrations[i]); err != nil {
			tx.Rollback()
			return fmt.Errorf("migration %d: %w", i+1, err)
		}
		// PRAGMA does not take bound parameters.
		if _, err := tx.Exec(fmt.Sprintf("PRAGMA user_version = %d", i+1)); err != nil {
			tx.Rollback()
			return fmt.Errorf("migration %d: %w", i+1, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("migration %d: %w", i+1, err)
		}
	}
	return nil
}

// Close closes the connection. It is safe on a DB that was never opened.
func (db *DB) Close() error {
	if db.db == nil {
		return nil
	}
	return db.db.Close()
}

// SchemaVersion reports the migration level of the open database.
func (db *DB) SchemaVersion(ctx context.Context) (int, error) {
	var v int
	err := db.db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&v)
	return v, err
}

func (db *DB) QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row {
	return db.db.QueryRowContext(ctx, query, args...)
}

func (db *DB) QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return db.db.QueryContext(ctx, query, args...)
}

func (db *DB) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return db.db.ExecContext(ctx, query, args...)
}

// storeError reports lock contention as ECONFLICT.
func storeError(err error) error {
	if errors.Is(err, sqlite3.BUSY) || errors.Is(err, sqlite3.LOCKED) {
		return refdex.Errorf(refdex.ECONFLICT, "database is busy: %v", err)
	}
	return err
}
