package store

import "database/sql"

// WrapForTesting wraps an already-open *sql.DB (typically an in-memory
// SQLite connection) as a Store, running the same migration path Open uses.
// Exported so other packages' tests can spin up a throwaway schema without
// duplicating the migration call.
func WrapForTesting(db *sql.DB) (*Store, error) {
	if err := migrate(db); err != nil {
		return nil, err
	}
	return &Store{DB: db}, nil
}
