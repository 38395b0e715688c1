// Package sqlite implements the repository interfaces using SQLite as the storage backend.
//
// WHY modernc.org/sqlite?
// It is a pure Go translation of SQLite: no CGo, no C compiler, cross
// compilation just works. It registers itself with database/sql as "sqlite".
//
// DATABASE/SQL OVERVIEW:
//   - sql.DB:   a connection pool (NOT a single connection!)
//   - sql.Tx:   a transaction, pinned to one connection
//   - sql.Rows: multiple result rows (must be closed!)
//
// CONNECTION SETTINGS:
// PRAGMAs such as foreign_keys apply per connection, so they are passed in
// the DSN (_pragma=...) and every connection the pool opens gets them.
// Timestamps are written in SQLite's own text format (_time_format=sqlite)
// and always in UTC, which makes them sort correctly as text.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	// Side-effect import: registers the "sqlite" driver with database/sql.
	_ "modernc.org/sqlite"
)

// DB wraps a sql.DB connection pool and implements the repository interfaces.
type DB struct {
	conn *sql.DB
}

// querier is satisfied by both *sql.DB and *sql.Tx, so helpers can run
// inside or outside a transaction.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// New opens (or creates) the database at dbPath and runs migrations.
//
// dbPath examples:
//   - "data/pastie.db" → file-based database (persistent)
//   - ":memory:"       → in-memory database (tests)
//
// An in-memory database exists per connection, so the pool is limited to a
// single connection for it; otherwise two queries could see two different
// empty databases.
func New(dbPath string) (*DB, error) {
	memory := dbPath == ":memory:" || strings.Contains(dbPath, "mode=memory")

	conn, err := sql.Open("sqlite", dsn(dbPath, memory))
	if err != nil {
		return nil, fmt.Errorf("sqlite: opening database: %w", err)
	}
	if memory {
		conn.SetMaxOpenConns(1)
	}

	// sql.Open does not connect; Ping makes a bad path fail here rather than
	// on the first request.
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: pinging database: %w", err)
	}

	db := &DB{conn: conn}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: running migrations: %w", err)
	}

	return db, nil
}

func dsn(dbPath string, memory bool) string {
	params := []string{
		"_pragma=foreign_keys(1)",
		"_pragma=busy_timeout(5000)",
		"_time_format=sqlite",
	}
	// WAL lets readers proceed while a write is in progress. It only
	// applies to file databases.
	if !memory {
		params = append(params, "_pragma=journal_mode(WAL)")
	}

	sep := "?"
	if strings.Contains(dbPath, "?") {
		sep = "&"
	}
	return dbPath + sep + strings.Join(params, "&")
}

// Close closes the database connection pool.
func (db *DB) Close() error {
	return db.conn.Close()
}

// Ping reports whether the database is reachable.
func (db *DB) Ping(ctx context.Context) error {
	return db.conn.PingContext(ctx)
}

// migrate creates the schema. CREATE ... IF NOT EXISTS makes it safe to run
// on every start.
//
// paste_tags carries the referential rules of the data model: deleting a
// paste removes its tag associations, while a tag cannot be deleted as long
// as a paste still references it.
func (db *DB) migrate() error {
	_, err := db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS pastes (
			id        INTEGER PRIMARY KEY,
			author    TEXT NOT NULL DEFAULT 'anonymous',
			title     TEXT NOT NULL DEFAULT '',
			date      DATETIME NOT NULL,
			language  TEXT NOT NULL,
			code      TEXT NOT NULL,
			parent_id INTEGER REFERENCES pastes(id) ON DELETE CASCADE
		);
		CREATE INDEX IF NOT EXISTS idx_pastes_date ON pastes(date);
		CREATE INDEX IF NOT EXISTS idx_pastes_parent_id ON pastes(parent_id);
	`)
	if err != nil {
		return fmt.Errorf("creating pastes table: %w", err)
	}

	// NOCASE makes the UNIQUE constraint (and every comparison on name)
	// ignore ASCII case, which is the tag identity rule.
	_, err = db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS tags (
			id   INTEGER PRIMARY KEY,
			name TEXT NOT NULL UNIQUE COLLATE NOCASE
		);
	`)
	if err != nil {
		return fmt.Errorf("creating tags table: %w", err)
	}

	_, err = db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS paste_tags (
			tag_id   INTEGER NOT NULL REFERENCES tags(id) ON DELETE RESTRICT,
			paste_id INTEGER NOT NULL REFERENCES pastes(id) ON DELETE CASCADE,
			PRIMARY KEY (tag_id, paste_id)
		);
		CREATE INDEX IF NOT EXISTS idx_paste_tags_paste_id ON paste_tags(paste_id);
	`)
	if err != nil {
		return fmt.Errorf("creating paste_tags table: %w", err)
	}

	return nil
}
