package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
)

// UpsertHRStream stores the heart-rate sample sequence for a real activity.
// Streams are fetched lazily and cached once, so a second call for the same
// activity simply replaces the row.
func (s *Store) UpsertHRStream(ctx context.Context, hr *HRStream) error {
	data, err := json.Marshal(hr.HRData)
	if err != nil {
		return err
	}
	_, err = s.ExecContext(ctx, `
		INSERT INTO hr_streams (athlete_id, activity_id, hr_data, sample_rate)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(athlete_id, activity_id) DO UPDATE SET
			hr_data = excluded.hr_data,
			sample_rate = excluded.sample_rate,
			updated_at = CURRENT_TIMESTAMP
	`, hr.AthleteID, hr.ActivityID, string(data), hr.SampleRate)
	return err
}

// GetHRStream returns the stored HR stream for an activity.
func (s *Store) GetHRStream(ctx context.Context, athleteID, activityID int64) (*HRStream, error) {
	var hr HRStream
	var data string
	err := s.QueryRowContext(ctx, `
		SELECT id, athlete_id, activity_id, hr_data, sample_rate, created_at, updated_at
		FROM hr_streams WHERE athlete_id = ? AND activity_id = ?
	`, athleteID, activityID).Scan(
		&hr.ID, &hr.AthleteID, &hr.ActivityID, &data, &hr.SampleRate, &hr.CreatedAt, &hr.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(data), &hr.HRData); err != nil {
		return nil, err
	}
	return &hr, nil
}

// HasHRStream reports whether a stream has already been fetched for the activity.
func (s *Store) HasHRStream(ctx context.Context, athleteID, activityID int64) (bool, error) {
	var one int
	err := s.QueryRowContext(ctx, `
		SELECT 1 FROM hr_streams WHERE athlete_id = ? AND activity_id = ?
	`, athleteID, activityID).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	return err == nil, err
}

// DeleteHRStream removes the stream row for an activity.
func (s *Store) DeleteHRStream(ctx context.Context, athleteID, activityID int64) error {
	_, err := s.ExecContext(ctx, `
		DELETE FROM hr_streams WHERE athlete_id = ? AND activity_id = ?
	`, athleteID, activityID)
	return err
}
