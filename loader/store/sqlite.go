package store

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

// Open returns a Source reading a GTFS feed from a SQLite database
// file at path, in the table layout storage/sqlite.go writes (agency,
// stops, routes, trips, stop_times, calendar, calendar_dates, and
// optionally transfers).
func Open(path string) (*Source, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("store: opening sqlite3 %s: %w", path, err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: connecting to sqlite3 %s: %w", path, err)
	}
	return &Source{db: db}, nil
}

// Close releases the underlying database connection.
func (s *Source) Close() error { return s.db.Close() }
