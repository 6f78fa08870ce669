package store

import (
	"context"
	"database/sql"
	"errors"
)

// GetSyncState retrieves a per-athlete sync cursor value by key, returning
// "" if the key has never been set (e.g. first sync for a new athlete).
func (s *Store) GetSyncState(ctx context.Context, athleteID int64, key string) (string, error) {
	var value string
	err := s.QueryRowContext(ctx, `
		SELECT value FROM sync_state WHERE athlete_id = ? AND key = ?
	`, athleteID, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	return value, err
}

// SetSyncState sets a per-athlete sync cursor value, e.g. the Unix timestamp
// of the last successful provider fetch for incremental "after" queries.
func (s *Store) SetSyncState(ctx context.Context, athleteID int64, key, value string) error {
	_, err := s.ExecContext(ctx, `
		INSERT INTO sync_state (athlete_id, key, value, updated_at)
		VALUES (?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(athlete_id, key) DO UPDATE SET
			value = excluded.value,
			updated_at = CURRENT_TIMESTAMP
	`, athleteID, key, value)
	return err
}
