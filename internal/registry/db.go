// Package registry records agent connection sessions in SQLite.
// Uses pure-Go SQLite (modernc.org/sqlite), no cgo required.
//
// Only connection metadata is stored: who connected, when, for how long
// and how many frames moved. Message content is never written.
package registry

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

// DB wraps an SQLite database for overlay registry storage.
type DB struct {
	db *sql.DB
}

// Open opens (or creates) the SQLite database at the given path.
func Open(dbPath string) (*DB, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0700); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// Recorder callbacks arrive from several session goroutines.
	db.SetMaxOpenConns(1)

	// Enable WAL mode for better concurrent read performance
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	rdb := &DB{db: db}
	if err := rdb.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return rdb, nil
}

// Close closes the database.
func (d *DB) Close() error {
	return d.db.Close()
}

func (d *DB) migrate() error {
	_, err := d.db.Exec(`
		CREATE TABLE IF NOT EXISTS sessions (
			id          TEXT PRIMARY KEY,
			remote_addr TEXT NOT NULL DEFAULT '',
			user_agent  TEXT NOT NULL DEFAULT '',
			started_at  TEXT NOT NULL,
			ended_at    TEXT NOT NULL DEFAULT '',
			end_reason  TEXT NOT NULL DEFAULT '',
			received    INTEGER NOT NULL DEFAULT 0,
			rejected    INTEGER NOT NULL DEFAULT 0,
			sent        INTEGER NOT NULL DEFAULT 0
		);
		CREATE INDEX IF NOT EXISTS sessions_started_at ON sessions (started_at);
	`)
	return err
}
