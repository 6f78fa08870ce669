package store

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

// UpsertAutopsy records the comparison of a prescribed recommendation against
// what the athlete actually did, keyed by (athleteID, date).
func (s *Store) UpsertAutopsy(ctx context.Context, a *Autopsy) error {
	_, err := s.ExecContext(ctx, `
		INSERT INTO ai_autopsies (
			athlete_id, date, prescribed_action, actual_activities,
			autopsy_analysis, alignment_score, generated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(athlete_id, date) DO UPDATE SET
			prescribed_action = excluded.prescribed_action,
			actual_activities = excluded.actual_activities,
			autopsy_analysis = excluded.autopsy_analysis,
			alignment_score = excluded.alignment_score,
			generated_at = excluded.generated_at
	`,
		a.AthleteID, a.Date, a.PrescribedAction, a.ActualActivities,
		a.AutopsyAnalysis, a.AlignmentScore, a.GeneratedAt.Format(time.RFC3339),
	)
	return err
}

// GetAutopsy retrieves the autopsy for one (athleteID, date).
func (s *Store) GetAutopsy(ctx context.Context, athleteID int64, date string) (*Autopsy, error) {
	row := s.QueryRowContext(ctx, `
		SELECT athlete_id, date, prescribed_action, actual_activities,
			autopsy_analysis, alignment_score, generated_at
		FROM ai_autopsies
		WHERE athlete_id = ? AND date = ?
	`, athleteID, date)

	a, err := scanAutopsyRow(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrAutopsyNotFound
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// RecentAutopsies returns the last n autopsies for an athlete, newest first —
// used to compute the rolling average alignment score fed back into prompts.
func (s *Store) RecentAutopsies(ctx context.Context, athleteID int64, n int) ([]Autopsy, error) {
	rows, err := s.QueryContext(ctx, `
		SELECT athlete_id, date, prescribed_action, actual_activities,
			autopsy_analysis, alignment_score, generated_at
		FROM ai_autopsies
		WHERE athlete_id = ?
		ORDER BY date DESC
		LIMIT ?
	`, athleteID, n)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Autopsy
	for rows.Next() {
		a, err := scanAutopsyRow(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func scanAutopsyRow(r rowScanner) (Autopsy, error) {
	var a Autopsy
	var generatedAt string

	err := r.Scan(
		&a.AthleteID, &a.Date, &a.PrescribedAction, &a.ActualActivities,
		&a.AutopsyAnalysis, &a.AlignmentScore, &generatedAt,
	)
	if err != nil {
		return Autopsy{}, err
	}

	t, err := time.Parse(time.RFC3339, generatedAt)
	if err != nil {
		return Autopsy{}, err
	}
	a.GeneratedAt = t
	return a, nil
}
