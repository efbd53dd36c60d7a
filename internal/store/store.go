// Package store keeps labelled landmark recordings and calibrated settings in
// a single SQLite file.
package store

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

// pragmas run on every new database handle, in order.
var pragmas = []string{
	"PRAGMA foreign_keys = ON",
	"PRAGMA journal_mode = WAL",
	"PRAGMA busy_timeout = 5000",
}

// Store owns the database handle. Fixture and settings access goes through
// the repositories returned by Fixtures and Settings.
type Store struct {
	db   *sql.DB
	path string
}

// New opens (or creates) the database at dbPath and brings its schema up to
// date. The pool is capped at one connection because the pragmas above are
// per connection.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", dbPath, err)
	}
	db.SetMaxOpenConns(1)

	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("%s: %w", p, err)
		}
	}

	s := &Store{db: db, path: dbPath}
	if err := s.runMigrations(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate %s: %w", dbPath, err)
	}
	return s, nil
}

// Close releases the database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path is the file the store was opened from.
func (s *Store) Path() string {
	return s.path
}

// DB exposes the handle for callers that need raw SQL, such as tests.
func (s *Store) DB() *sql.DB {
	return s.db
}
