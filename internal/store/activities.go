package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

const activityColumns = `
	athlete_id, activity_id, date, name, sport_type, distance_miles, elevation_gain_feet,
	elevation_load_miles, total_load_miles, avg_heart_rate, max_heart_rate, duration_minutes,
	trimp, time_in_zone1, time_in_zone2, time_in_zone3, time_in_zone4, time_in_zone5,
	trimp_calculation_method, hr_stream_sample_count, trimp_processed_at,
	seven_day_avg_load, twentyeight_day_avg_load, seven_day_avg_trimp, twentyeight_day_avg_trimp,
	acute_chronic_ratio, trimp_acute_chronic_ratio, normalized_divergence,
	cycling_equivalent_miles, swimming_equivalent_miles, strength_equivalent_miles,
	cycling_elevation_factor, average_speed_mph, notes
`

// InsertActivity inserts a new activity row. It does not upsert: callers are
// expected to check existence first (idempotent ingest, spec §4.3 step 4) —
// a unique-constraint violation here is an IntegrityError to be swallowed by
// the caller, not retried as an update.
func (s *Store) InsertActivity(ctx context.Context, a *Activity) error {
	var processedAt interface{}
	if !a.TRIMPProcessedAt.IsZero() {
		processedAt = a.TRIMPProcessedAt.Format(time.RFC3339)
	}

	_, err := s.ExecContext(ctx, `
		INSERT INTO activities (`+activityColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		a.AthleteID, a.ActivityID, a.Date, a.Name, string(a.Sport),
		a.DistanceMiles, a.ElevationGainFeet, a.ElevationLoadMiles, a.TotalLoadMiles,
		a.AvgHeartRate, a.MaxHeartRate, a.DurationMinutes, a.TRIMP,
		a.TimeInZone[0], a.TimeInZone[1], a.TimeInZone[2], a.TimeInZone[3], a.TimeInZone[4],
		string(a.TRIMPMethod), a.HRStreamSamples, processedAt,
		a.SevenDayAvgLoad, a.TwentyEightDayAvgLoad, a.SevenDayAvgTRIMP, a.TwentyEightDayAvgTRIMP,
		a.AcuteChronicRatio, a.TRIMPAcuteChronicRatio, a.NormalizedDivergence,
		a.CyclingEquivalentMiles, a.SwimmingEquivalentMiles, a.StrengthEquivalentMiles,
		a.CyclingElevationFactor, a.AverageSpeedMPH, a.Notes,
	)
	return err
}

// ReplaceRestDay overwrites a synthetic rest-day row with a real activity.
// Real activities are otherwise immutable once persisted; this is the one
// sanctioned update path, used when a real activity later appears for a date
// that was previously backfilled with a placeholder.
func (s *Store) ReplaceRestDay(ctx context.Context, athleteID, oldActivityID int64, a *Activity) error {
	tx, err := s.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var processedAt interface{}
	if !a.TRIMPProcessedAt.IsZero() {
		processedAt = a.TRIMPProcessedAt.Format(time.RFC3339)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM activities WHERE athlete_id = ? AND activity_id = ?`, athleteID, oldActivityID); err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO activities (`+activityColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		a.AthleteID, a.ActivityID, a.Date, a.Name, string(a.Sport),
		a.DistanceMiles, a.ElevationGainFeet, a.ElevationLoadMiles, a.TotalLoadMiles,
		a.AvgHeartRate, a.MaxHeartRate, a.DurationMinutes, a.TRIMP,
		a.TimeInZone[0], a.TimeInZone[1], a.TimeInZone[2], a.TimeInZone[3], a.TimeInZone[4],
		string(a.TRIMPMethod), a.HRStreamSamples, processedAt,
		a.SevenDayAvgLoad, a.TwentyEightDayAvgLoad, a.SevenDayAvgTRIMP, a.TwentyEightDayAvgTRIMP,
		a.AcuteChronicRatio, a.TRIMPAcuteChronicRatio, a.NormalizedDivergence,
		a.CyclingEquivalentMiles, a.SwimmingEquivalentMiles, a.StrengthEquivalentMiles,
		a.CyclingElevationFactor, a.AverageSpeedMPH, a.Notes,
	); err != nil {
		return err
	}

	return tx.Commit()
}

// ActivityExists checks idempotency before insert (spec §4.3 step 4).
func (s *Store) ActivityExists(ctx context.Context, athleteID, activityID int64) (bool, error) {
	var one int
	err := s.QueryRowContext(ctx, `
		SELECT 1 FROM activities WHERE athlete_id = ? AND activity_id = ?
	`, athleteID, activityID).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	return err == nil, err
}

// HasRowForDate reports whether any row (real or rest day) exists for the date.
func (s *Store) HasRowForDate(ctx context.Context, athleteID int64, date string) (bool, error) {
	var one int
	err := s.QueryRowContext(ctx, `
		SELECT 1 FROM activities WHERE athlete_id = ? AND date = ? LIMIT 1
	`, athleteID, date).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	return err == nil, err
}

// GetRestDayForDate returns the synthetic rest-day row for a date, if one was
// backfilled, so a caller can replace it once a real activity appears.
// Returns ErrActivityNotFound if the date has no rest-day row (either
// uncovered, or already holding a real activity).
func (s *Store) GetRestDayForDate(ctx context.Context, athleteID int64, date string) (*Activity, error) {
	row := s.QueryRowContext(ctx, `
		SELECT `+activityColumns+` FROM activities
		WHERE athlete_id = ? AND date = ? AND sport_type = ?
	`, athleteID, date, string(SportRest))
	a, err := scanActivityRow(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrActivityNotFound
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// ActivitiesOnDate returns every row for one (athlete, date) pair — normally
// one, but multiple when an athlete logs more than one activity in a day.
func (s *Store) ActivitiesOnDate(ctx context.Context, athleteID int64, date string) ([]Activity, error) {
	rows, err := s.QueryContext(ctx, `
		SELECT `+activityColumns+` FROM activities WHERE athlete_id = ? AND date = ?
	`, athleteID, date)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanActivities(rows)
}

// ActivitiesBetween returns every row for an athlete within [from, to] inclusive,
// ordered by date ascending.
func (s *Store) ActivitiesBetween(ctx context.Context, athleteID int64, from, to string) ([]Activity, error) {
	rows, err := s.QueryContext(ctx, `
		SELECT `+activityColumns+` FROM activities
		WHERE athlete_id = ? AND date >= ? AND date <= ?
		ORDER BY date ASC
	`, athleteID, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanActivities(rows)
}

// RecentActivities returns up to 4*days of the athlete's most recent activity
// rows, newest first. The cap counts rows, not calendar days.
func (s *Store) RecentActivities(ctx context.Context, athleteID int64, days int) ([]Activity, error) {
	rows, err := s.QueryContext(ctx, `
		SELECT `+activityColumns+` FROM activities
		WHERE athlete_id = ?
		ORDER BY date DESC
		LIMIT ?
	`, athleteID, days*4) // generous cap: several activities/day is rare but possible
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanActivities(rows)
}

// WriteAggregates writes the rolling fields computed by the aggregate engine
// (component D/E) to every row for (athleteID, date). Per spec §4.4 step 6,
// all rows sharing a date carry identical aggregate values.
func (s *Store) WriteAggregates(ctx context.Context, athleteID int64, date string, agg Aggregates) error {
	_, err := s.ExecContext(ctx, `
		UPDATE activities
		SET seven_day_avg_load = ?, twentyeight_day_avg_load = ?,
			seven_day_avg_trimp = ?, twentyeight_day_avg_trimp = ?,
			acute_chronic_ratio = ?, trimp_acute_chronic_ratio = ?, normalized_divergence = ?,
			updated_at = CURRENT_TIMESTAMP
		WHERE athlete_id = ? AND date = ?
	`,
		agg.SevenDayAvgLoad, agg.TwentyEightDayAvgLoad,
		agg.SevenDayAvgTRIMP, agg.TwentyEightDayAvgTRIMP,
		agg.AcuteChronicRatio, agg.TRIMPAcuteChronicRatio, agg.NormalizedDivergence,
		athleteID, date,
	)
	return err
}

// Aggregates is the set of rolling fields component D/E computes for one date.
type Aggregates struct {
	SevenDayAvgLoad        float64
	TwentyEightDayAvgLoad  float64
	SevenDayAvgTRIMP       float64
	TwentyEightDayAvgTRIMP float64
	AcuteChronicRatio      float64
	TRIMPAcuteChronicRatio float64
	NormalizedDivergence   float64
}

func scanActivities(rows *sql.Rows) ([]Activity, error) {
	var out []Activity
	for rows.Next() {
		a, err := scanActivityRow(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanActivityRow(r rowScanner) (Activity, error) {
	var a Activity
	var sport, method string
	var processedAt sql.NullString

	err := r.Scan(
		&a.AthleteID, &a.ActivityID, &a.Date, &a.Name, &sport,
		&a.DistanceMiles, &a.ElevationGainFeet, &a.ElevationLoadMiles, &a.TotalLoadMiles,
		&a.AvgHeartRate, &a.MaxHeartRate, &a.DurationMinutes, &a.TRIMP,
		&a.TimeInZone[0], &a.TimeInZone[1], &a.TimeInZone[2], &a.TimeInZone[3], &a.TimeInZone[4],
		&method, &a.HRStreamSamples, &processedAt,
		&a.SevenDayAvgLoad, &a.TwentyEightDayAvgLoad, &a.SevenDayAvgTRIMP, &a.TwentyEightDayAvgTRIMP,
		&a.AcuteChronicRatio, &a.TRIMPAcuteChronicRatio, &a.NormalizedDivergence,
		&a.CyclingEquivalentMiles, &a.SwimmingEquivalentMiles, &a.StrengthEquivalentMiles,
		&a.CyclingElevationFactor, &a.AverageSpeedMPH, &a.Notes,
	)
	if err != nil {
		return Activity{}, err
	}
	a.Sport = Sport(sport)
	a.TRIMPMethod = TRIMPMethod(method)
	if processedAt.Valid {
		t, perr := time.Parse(time.RFC3339, processedAt.String)
		if perr != nil {
			return Activity{}, fmt.Errorf("parsing trimp_processed_at %q: %w", processedAt.String, perr)
		}
		a.TRIMPProcessedAt = t
	}
	return a, nil
}
