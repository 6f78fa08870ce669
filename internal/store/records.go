package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// CompareMode determines which direction counts as an improvement when
// upserting a personal record.
type CompareMode int

const (
	CompareDuration CompareMode = iota // lower duration wins
	CompareDistance                    // higher distance wins
	ComparePace                        // lower pace wins
)

// UpsertPersonalRecordWithMode inserts pr if no record exists yet for
// (athleteID, category), or replaces the existing one if pr is an
// improvement under mode. Returns whether the row was written.
func (s *Store) UpsertPersonalRecordWithMode(ctx context.Context, athleteID int64, pr *PersonalRecord, mode CompareMode) (bool, error) {
	existing, err := s.GetPersonalRecordByCategory(ctx, athleteID, pr.Category)
	if err != nil && !errors.Is(err, ErrPersonalRecordNotFound) {
		return false, err
	}

	if existing != nil {
		switch mode {
		case CompareDuration:
			if existing.DurationSeconds <= pr.DurationSeconds {
				return false, nil
			}
		case CompareDistance:
			if existing.DistanceMiles >= pr.DistanceMiles {
				return false, nil
			}
		case ComparePace:
			if existing.PacePerMile != nil && pr.PacePerMile != nil && *existing.PacePerMile <= *pr.PacePerMile {
				return false, nil
			}
		}
	}

	_, err = s.ExecContext(ctx, `
		INSERT INTO personal_records (
			athlete_id, category, activity_id, distance_miles, duration_seconds,
			pace_per_mile, avg_heart_rate, achieved_at, start_offset, end_offset
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(athlete_id, category) DO UPDATE SET
			activity_id = excluded.activity_id,
			distance_miles = excluded.distance_miles,
			duration_seconds = excluded.duration_seconds,
			pace_per_mile = excluded.pace_per_mile,
			avg_heart_rate = excluded.avg_heart_rate,
			achieved_at = excluded.achieved_at,
			start_offset = excluded.start_offset,
			end_offset = excluded.end_offset
	`,
		athleteID, pr.Category, pr.ActivityID, pr.DistanceMiles, pr.DurationSeconds,
		pr.PacePerMile, pr.AvgHeartRate, pr.AchievedAt.Format(time.RFC3339),
		pr.StartOffset, pr.EndOffset,
	)
	if err != nil {
		return false, err
	}
	return true, nil
}

// GetPersonalRecordByCategory returns the one row for (athleteID, category).
func (s *Store) GetPersonalRecordByCategory(ctx context.Context, athleteID int64, category string) (*PersonalRecord, error) {
	row := s.QueryRowContext(ctx, `
		SELECT id, athlete_id, category, activity_id, distance_miles, duration_seconds,
			pace_per_mile, avg_heart_rate, achieved_at, start_offset, end_offset
		FROM personal_records
		WHERE athlete_id = ? AND category = ?
	`, athleteID, category)
	return scanPersonalRecord(row)
}

// AllPersonalRecords returns every record category held by athleteID, ordered
// by category name.
func (s *Store) AllPersonalRecords(ctx context.Context, athleteID int64) ([]PersonalRecord, error) {
	rows, err := s.QueryContext(ctx, `
		SELECT id, athlete_id, category, activity_id, distance_miles, duration_seconds,
			pace_per_mile, avg_heart_rate, achieved_at, start_offset, end_offset
		FROM personal_records
		WHERE athlete_id = ?
		ORDER BY category
	`, athleteID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanPersonalRecords(rows)
}

func scanPersonalRecord(row *sql.Row) (*PersonalRecord, error) {
	var pr PersonalRecord
	var achievedAt string
	err := row.Scan(
		&pr.ID, &pr.AthleteID, &pr.Category, &pr.ActivityID, &pr.DistanceMiles, &pr.DurationSeconds,
		&pr.PacePerMile, &pr.AvgHeartRate, &achievedAt, &pr.StartOffset, &pr.EndOffset,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrPersonalRecordNotFound
	}
	if err != nil {
		return nil, err
	}
	pr.AchievedAt, err = time.Parse(time.RFC3339, achievedAt)
	if err != nil {
		return nil, fmt.Errorf("parsing achieved_at %q: %w", achievedAt, err)
	}
	return &pr, nil
}

func scanPersonalRecords(rows *sql.Rows) ([]PersonalRecord, error) {
	var records []PersonalRecord
	for rows.Next() {
		var pr PersonalRecord
		var achievedAt string
		if err := rows.Scan(
			&pr.ID, &pr.AthleteID, &pr.Category, &pr.ActivityID, &pr.DistanceMiles, &pr.DurationSeconds,
			&pr.PacePerMile, &pr.AvgHeartRate, &achievedAt, &pr.StartOffset, &pr.EndOffset,
		); err != nil {
			return nil, err
		}
		var err error
		pr.AchievedAt, err = time.Parse(time.RFC3339, achievedAt)
		if err != nil {
			return nil, fmt.Errorf("parsing achieved_at %q: %w", achievedAt, err)
		}
		records = append(records, pr)
	}
	return records, rows.Err()
}
