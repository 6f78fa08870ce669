package store

import (
	"context"
	"database/sql"
	"errors"
)

// UpsertJournalEntry records the athlete's subjective daily observation,
// keyed by (athleteID, date). A later entry for the same date replaces the
// prior one entirely.
func (s *Store) UpsertJournalEntry(ctx context.Context, j *JournalEntry) error {
	_, err := s.ExecContext(ctx, `
		INSERT INTO journal_entries (athlete_id, date, energy_level, rpe_score, pain_percentage, notes)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(athlete_id, date) DO UPDATE SET
			energy_level = excluded.energy_level,
			rpe_score = excluded.rpe_score,
			pain_percentage = excluded.pain_percentage,
			notes = excluded.notes,
			updated_at = CURRENT_TIMESTAMP
	`, j.AthleteID, j.Date, j.EnergyLevel, j.RPEScore, j.PainPercentage, j.Notes)
	return err
}

// GetJournalEntry retrieves the journal entry for one (athleteID, date), or
// nil if the athlete didn't journal that day.
func (s *Store) GetJournalEntry(ctx context.Context, athleteID int64, date string) (*JournalEntry, error) {
	var j JournalEntry
	err := s.QueryRowContext(ctx, `
		SELECT athlete_id, date, energy_level, rpe_score, pain_percentage, notes, updated_at
		FROM journal_entries
		WHERE athlete_id = ? AND date = ?
	`, athleteID, date).Scan(
		&j.AthleteID, &j.Date, &j.EnergyLevel, &j.RPEScore, &j.PainPercentage, &j.Notes, &j.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &j, nil
}

// JournalEntriesBetween returns journal entries within [from, to], ordered by
// date ascending.
func (s *Store) JournalEntriesBetween(ctx context.Context, athleteID int64, from, to string) ([]JournalEntry, error) {
	rows, err := s.QueryContext(ctx, `
		SELECT athlete_id, date, energy_level, rpe_score, pain_percentage, notes, updated_at
		FROM journal_entries
		WHERE athlete_id = ? AND date >= ? AND date <= ?
		ORDER BY date ASC
	`, athleteID, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []JournalEntry
	for rows.Next() {
		var j JournalEntry
		if err := rows.Scan(&j.AthleteID, &j.Date, &j.EnergyLevel, &j.RPEScore, &j.PainPercentage, &j.Notes, &j.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, j)
	}
	return out, rows.Err()
}
