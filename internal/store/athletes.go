package store

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

// GetAthlete retrieves one athlete's settings row.
func (s *Store) GetAthlete(ctx context.Context, athleteID int64) (*Athlete, error) {
	row := s.QueryRowContext(ctx, `
		SELECT id, email, password_hash, resting_hr, max_hr, gender,
			coaching_style_spectrum, risk_tolerance, timezone,
			provider_access_token, provider_refresh_token, provider_token_expires_at,
			provider_athlete_id, enhanced_enabled, enhanced_chronic_window_days,
			enhanced_decay_rate
		FROM user_settings
		WHERE id = ?
	`, athleteID)

	return scanAthlete(row)
}

// GetAthleteByEmail retrieves an athlete by their login email.
func (s *Store) GetAthleteByEmail(ctx context.Context, email string) (*Athlete, error) {
	row := s.QueryRowContext(ctx, `
		SELECT id, email, password_hash, resting_hr, max_hr, gender,
			coaching_style_spectrum, risk_tolerance, timezone,
			provider_access_token, provider_refresh_token, provider_token_expires_at,
			provider_athlete_id, enhanced_enabled, enhanced_chronic_window_days,
			enhanced_decay_rate
		FROM user_settings
		WHERE email = ?
	`, email)

	return scanAthlete(row)
}

// ListAthletesWithProviderCredentials returns every athlete id that has a
// refresh token stored — the fan-out population for the scheduled sync.
func (s *Store) ListAthletesWithProviderCredentials(ctx context.Context) ([]int64, error) {
	rows, err := s.QueryContext(ctx, `
		SELECT id FROM user_settings WHERE provider_refresh_token != ''
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// CreateAthlete inserts a new athlete row and returns its assigned id.
func (s *Store) CreateAthlete(ctx context.Context, a *Athlete) (int64, error) {
	res, err := s.ExecContext(ctx, `
		INSERT INTO user_settings (
			email, password_hash, resting_hr, max_hr, gender,
			coaching_style_spectrum, risk_tolerance, timezone,
			enhanced_enabled, enhanced_chronic_window_days, enhanced_decay_rate
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		a.Email, a.PasswordHash, a.RestingHR, a.MaxHR, a.Gender,
		a.CoachingToneSpectrum, string(a.RiskTolerance), a.Timezone,
		boolToInt(a.EnhancedEnabled), a.EnhancedChronicWindow, a.EnhancedDecayRate,
	)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// UpdateProviderTokens atomically persists a refreshed OAuth triple. Called by
// the token manager once a refresh succeeds; tokens are authoritative here,
// never just in an in-memory cache.
func (s *Store) UpdateProviderTokens(ctx context.Context, athleteID int64, accessToken, refreshToken string, expiresAt time.Time) error {
	res, err := s.ExecContext(ctx, `
		UPDATE user_settings
		SET provider_access_token = ?, provider_refresh_token = ?, provider_token_expires_at = ?,
			updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`, accessToken, refreshToken, expiresAt.Unix(), athleteID)
	if err != nil {
		return err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrAthleteNotFound
	}
	return nil
}

// SetProviderAthleteID stores the provider's own athlete id after first
// successful authorization.
func (s *Store) SetProviderAthleteID(ctx context.Context, athleteID, providerAthleteID int64) error {
	_, err := s.ExecContext(ctx, `
		UPDATE user_settings SET provider_athlete_id = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?
	`, providerAthleteID, athleteID)
	return err
}

func scanAthlete(row *sql.Row) (*Athlete, error) {
	var a Athlete
	var risk string
	var expiresAt int64
	var enhancedEnabled int

	err := row.Scan(
		&a.ID, &a.Email, &a.PasswordHash, &a.RestingHR, &a.MaxHR, &a.Gender,
		&a.CoachingToneSpectrum, &risk, &a.Timezone,
		&a.ProviderAccessToken, &a.ProviderRefreshToken, &expiresAt,
		&a.ProviderAthleteID, &enhancedEnabled, &a.EnhancedChronicWindow,
		&a.EnhancedDecayRate,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrAthleteNotFound
	}
	if err != nil {
		return nil, err
	}

	a.RiskTolerance = RiskTolerance(risk)
	a.ProviderTokenExpiresAt = time.Unix(expiresAt, 0)
	a.EnhancedEnabled = enhancedEnabled != 0
	return &a, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
