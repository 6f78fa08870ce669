package store

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

// ErrNoAuth is returned when an athlete has no provider credentials stored.
var ErrNoAuth = errors.New("no provider credentials stored for athlete")

// ErrActivityNotFound is returned when an activity doesn't exist.
var ErrActivityNotFound = errors.New("activity not found")

// ErrAthleteNotFound is returned when an athlete row doesn't exist.
var ErrAthleteNotFound = errors.New("athlete not found")

// ErrPersonalRecordNotFound is returned when a personal record doesn't exist.
var ErrPersonalRecordNotFound = errors.New("personal record not found")

// ErrRecommendationNotFound is returned when no recommendation exists for a target date.
var ErrRecommendationNotFound = errors.New("recommendation not found")

// ErrAutopsyNotFound is returned when no autopsy exists for a date.
var ErrAutopsyNotFound = errors.New("autopsy not found")

// Store wraps a *sql.DB and provides the application's typed data-access layer.
// Every method that touches athlete-scoped data takes an explicit athleteID —
// there is no package-level single-user helper anywhere in this package.
type Store struct {
	*sql.DB
}

// Open opens the SQLite database at path, creating it and its parent
// directory if necessary, and runs schema initialization + migration.
func Open(path string) (*Store, error) {
	if path == "" {
		var err error
		path, err = defaultDBPath()
		if err != nil {
			return nil, fmt.Errorf("getting db path: %w", err)
		}
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("creating data directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}

	if err := migrate(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return &Store{DB: db}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.DB.Close()
}

func defaultDBPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("getting home directory: %w", err)
	}
	return filepath.Join(home, ".training-load-engine", "data.db"), nil
}
