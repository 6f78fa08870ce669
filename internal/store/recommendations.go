package store

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

// UpsertRecommendation writes the daily/weekly recommendation for one
// (athleteID, targetDate) pair, replacing any prior recommendation generated
// for the same target date.
func (s *Store) UpsertRecommendation(ctx context.Context, r *Recommendation) error {
	_, err := s.ExecContext(ctx, `
		INSERT INTO llm_recommendations (
			athlete_id, generation_date, target_date, daily_recommendation,
			weekly_recommendation, pattern_insights, raw_response,
			is_autopsy_informed, autopsy_count, avg_alignment_score, metrics_snapshot
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(athlete_id, target_date) DO UPDATE SET
			generation_date = excluded.generation_date,
			daily_recommendation = excluded.daily_recommendation,
			weekly_recommendation = excluded.weekly_recommendation,
			pattern_insights = excluded.pattern_insights,
			raw_response = excluded.raw_response,
			is_autopsy_informed = excluded.is_autopsy_informed,
			autopsy_count = excluded.autopsy_count,
			avg_alignment_score = excluded.avg_alignment_score,
			metrics_snapshot = excluded.metrics_snapshot
	`,
		r.AthleteID, r.GenerationDate.Format(time.RFC3339), r.TargetDate,
		r.DailyRecommendation, r.WeeklyRecommendation, r.PatternInsights, r.RawResponse,
		boolToInt(r.IsAutopsyInformed), r.AutopsyCount, r.AvgAlignmentScore, string(r.MetricsSnapshot),
	)
	return err
}

// GetRecommendation retrieves the recommendation for one (athleteID, targetDate).
func (s *Store) GetRecommendation(ctx context.Context, athleteID int64, targetDate string) (*Recommendation, error) {
	row := s.QueryRowContext(ctx, `
		SELECT id, athlete_id, generation_date, target_date, daily_recommendation,
			weekly_recommendation, pattern_insights, raw_response,
			is_autopsy_informed, autopsy_count, avg_alignment_score, metrics_snapshot
		FROM llm_recommendations
		WHERE athlete_id = ? AND target_date = ?
	`, athleteID, targetDate)

	return scanRecommendation(row)
}

// RecentRecommendations returns the most recent n recommendations for an
// athlete, newest target date first — used to build autopsy history context.
func (s *Store) RecentRecommendations(ctx context.Context, athleteID int64, n int) ([]Recommendation, error) {
	rows, err := s.QueryContext(ctx, `
		SELECT id, athlete_id, generation_date, target_date, daily_recommendation,
			weekly_recommendation, pattern_insights, raw_response,
			is_autopsy_informed, autopsy_count, avg_alignment_score, metrics_snapshot
		FROM llm_recommendations
		WHERE athlete_id = ?
		ORDER BY target_date DESC
		LIMIT ?
	`, athleteID, n)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Recommendation
	for rows.Next() {
		r, err := scanRecommendationRow(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func scanRecommendation(row *sql.Row) (*Recommendation, error) {
	r, err := scanRecommendationRow(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrRecommendationNotFound
	}
	if err != nil {
		return nil, err
	}
	return &r, nil
}

func scanRecommendationRow(r rowScanner) (Recommendation, error) {
	var rec Recommendation
	var genDate string
	var snapshot string
	var informed int

	err := r.Scan(
		&rec.ID, &rec.AthleteID, &genDate, &rec.TargetDate, &rec.DailyRecommendation,
		&rec.WeeklyRecommendation, &rec.PatternInsights, &rec.RawResponse,
		&informed, &rec.AutopsyCount, &rec.AvgAlignmentScore, &snapshot,
	)
	if err != nil {
		return Recommendation{}, err
	}

	t, err := time.Parse(time.RFC3339, genDate)
	if err != nil {
		return Recommendation{}, err
	}
	rec.GenerationDate = t
	rec.IsAutopsyInformed = informed != 0
	rec.MetricsSnapshot = []byte(snapshot)
	return rec, nil
}
