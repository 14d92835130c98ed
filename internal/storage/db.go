package storage

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

// Open opens or creates the sqlite database backing call history and the
// user directory.
func Open(path string) (*sql.DB, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create db dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// A single connection keeps the pragmas in force and sidesteps
	// SQLITE_BUSY under concurrent writers.
	db.SetMaxOpenConns(1)

	// WAL keeps readers off the writer's back.
	if _, err := db.Exec(`
		PRAGMA foreign_keys = ON;
		PRAGMA journal_mode = WAL;
		PRAGMA busy_timeout = 5000;
	`); err != nil {
		db.Close()
		return nil, fmt.Errorf("configure database: %w", err)
	}

	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS users (
			id    TEXT PRIMARY KEY,
			name  TEXT NOT NULL,
			token TEXT UNIQUE
		);
	`); err != nil {
		db.Close()
		return nil, fmt.Errorf("create users table: %w", err)
	}

	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS calls (
			room_id    TEXT PRIMARY KEY,
			caller_id  TEXT NOT NULL REFERENCES users(id),
			callee_id  TEXT NOT NULL REFERENCES users(id),
			start_time DATETIME NOT NULL,
			end_time   DATETIME,
			status     TEXT NOT NULL DEFAULT 'initiated'
		);
		CREATE INDEX IF NOT EXISTS idx_calls_start ON calls(start_time);
	`); err != nil {
		db.Close()
		return nil, fmt.Errorf("create calls table: %w", err)
	}

	return db, nil
}
