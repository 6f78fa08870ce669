package store

import (
	"database/sql"
	"fmt"
)

// migrate runs schema initialization followed by additive column migration.
// Initialization is idempotent (CREATE TABLE/INDEX IF NOT EXISTS); migrateColumns
// never drops a column and never fails when a column already exists.
func migrate(db *sql.DB) error {
	if err := createTables(db); err != nil {
		return err
	}
	return migrateColumns(db)
}

func createTables(db *sql.DB) error {
	statements := []string{
		// user_settings: one row per athlete. Auth material, HR parameters,
		// coaching preferences, provider credentials, enhanced-engine config.
		`CREATE TABLE IF NOT EXISTS user_settings (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			email TEXT NOT NULL UNIQUE,
			password_hash TEXT NOT NULL,
			resting_hr REAL NOT NULL DEFAULT 50,
			max_hr REAL NOT NULL DEFAULT 185,
			gender TEXT NOT NULL DEFAULT 'male',
			coaching_style_spectrum INTEGER NOT NULL DEFAULT 50,
			risk_tolerance TEXT NOT NULL DEFAULT 'balanced',
			timezone TEXT NOT NULL DEFAULT 'UTC',
			provider_access_token TEXT NOT NULL DEFAULT '',
			provider_refresh_token TEXT NOT NULL DEFAULT '',
			provider_token_expires_at INTEGER NOT NULL DEFAULT 0,
			provider_athlete_id INTEGER NOT NULL DEFAULT 0,
			enhanced_enabled INTEGER NOT NULL DEFAULT 0,
			enhanced_chronic_window_days INTEGER NOT NULL DEFAULT 28,
			enhanced_decay_rate REAL NOT NULL DEFAULT 0.05,
			created_at TEXT DEFAULT CURRENT_TIMESTAMP,
			updated_at TEXT DEFAULT CURRENT_TIMESTAMP
		)`,

		// activities: real provider activities (activity_id > 0) and synthetic
		// rest days (activity_id < 0), one row per (athlete_id, activity_id).
		`CREATE TABLE IF NOT EXISTS activities (
			athlete_id INTEGER NOT NULL,
			activity_id INTEGER NOT NULL,
			date TEXT NOT NULL,
			name TEXT NOT NULL,
			sport_type TEXT NOT NULL,
			distance_miles REAL NOT NULL DEFAULT 0,
			elevation_gain_feet REAL NOT NULL DEFAULT 0,
			elevation_load_miles REAL NOT NULL DEFAULT 0,
			total_load_miles REAL NOT NULL DEFAULT 0,
			avg_heart_rate REAL,
			max_heart_rate REAL,
			duration_minutes REAL NOT NULL DEFAULT 0,
			trimp REAL NOT NULL DEFAULT 0,
			time_in_zone1 INTEGER NOT NULL DEFAULT 0,
			time_in_zone2 INTEGER NOT NULL DEFAULT 0,
			time_in_zone3 INTEGER NOT NULL DEFAULT 0,
			time_in_zone4 INTEGER NOT NULL DEFAULT 0,
			time_in_zone5 INTEGER NOT NULL DEFAULT 0,
			trimp_calculation_method TEXT NOT NULL DEFAULT 'average',
			hr_stream_sample_count INTEGER NOT NULL DEFAULT 0,
			trimp_processed_at TEXT,
			seven_day_avg_load REAL NOT NULL DEFAULT 0,
			twentyeight_day_avg_load REAL NOT NULL DEFAULT 0,
			seven_day_avg_trimp REAL NOT NULL DEFAULT 0,
			twentyeight_day_avg_trimp REAL NOT NULL DEFAULT 0,
			acute_chronic_ratio REAL NOT NULL DEFAULT 0,
			trimp_acute_chronic_ratio REAL NOT NULL DEFAULT 0,
			normalized_divergence REAL NOT NULL DEFAULT 0,
			cycling_equivalent_miles REAL NOT NULL DEFAULT 0,
			swimming_equivalent_miles REAL NOT NULL DEFAULT 0,
			strength_equivalent_miles REAL NOT NULL DEFAULT 0,
			cycling_elevation_factor REAL NOT NULL DEFAULT 0,
			average_speed_mph REAL NOT NULL DEFAULT 0,
			notes TEXT NOT NULL DEFAULT '',
			created_at TEXT DEFAULT CURRENT_TIMESTAMP,
			updated_at TEXT DEFAULT CURRENT_TIMESTAMP,
			PRIMARY KEY (athlete_id, activity_id)
		)`,

		`CREATE INDEX IF NOT EXISTS idx_activities_athlete_date ON activities(athlete_id, date)`,
		`CREATE INDEX IF NOT EXISTS idx_activities_sport ON activities(sport_type)`,

		// hr_streams: ordered HR samples for a real activity, FK'd so they're
		// deleted when their parent activity row is.
		`CREATE TABLE IF NOT EXISTS hr_streams (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			athlete_id INTEGER NOT NULL,
			activity_id INTEGER NOT NULL,
			hr_data TEXT NOT NULL,
			sample_rate REAL NOT NULL DEFAULT 1,
			created_at TEXT DEFAULT CURRENT_TIMESTAMP,
			updated_at TEXT DEFAULT CURRENT_TIMESTAMP,
			UNIQUE(athlete_id, activity_id),
			FOREIGN KEY (athlete_id, activity_id) REFERENCES activities(athlete_id, activity_id) ON DELETE CASCADE
		)`,

		// llm_recommendations: one row per (athlete_id, target_date).
		`CREATE TABLE IF NOT EXISTS llm_recommendations (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			athlete_id INTEGER NOT NULL,
			generation_date TEXT NOT NULL,
			target_date TEXT NOT NULL,
			daily_recommendation TEXT NOT NULL DEFAULT '',
			weekly_recommendation TEXT NOT NULL DEFAULT '',
			pattern_insights TEXT NOT NULL DEFAULT '',
			raw_response TEXT NOT NULL DEFAULT '',
			is_autopsy_informed INTEGER NOT NULL DEFAULT 0,
			autopsy_count INTEGER NOT NULL DEFAULT 0,
			avg_alignment_score REAL NOT NULL DEFAULT 0,
			metrics_snapshot TEXT NOT NULL DEFAULT '{}',
			UNIQUE(athlete_id, target_date)
		)`,

		// ai_autopsies: one row per (athlete_id, date).
		`CREATE TABLE IF NOT EXISTS ai_autopsies (
			athlete_id INTEGER NOT NULL,
			date TEXT NOT NULL,
			prescribed_action TEXT NOT NULL DEFAULT '',
			actual_activities TEXT NOT NULL DEFAULT '',
			autopsy_analysis TEXT NOT NULL DEFAULT '',
			alignment_score INTEGER NOT NULL DEFAULT 5,
			generated_at TEXT NOT NULL,
			PRIMARY KEY (athlete_id, date)
		)`,

		// journal_entries: subjective daily observations, one per (athlete_id, date).
		`CREATE TABLE IF NOT EXISTS journal_entries (
			athlete_id INTEGER NOT NULL,
			date TEXT NOT NULL,
			energy_level INTEGER NOT NULL,
			rpe_score INTEGER NOT NULL,
			pain_percentage INTEGER NOT NULL DEFAULT 0,
			notes TEXT NOT NULL DEFAULT '',
			updated_at TEXT DEFAULT CURRENT_TIMESTAMP,
			PRIMARY KEY (athlete_id, date)
		)`,

		// sync_state: per-athlete key/value cursor storage (e.g. last sync time).
		`CREATE TABLE IF NOT EXISTS sync_state (
			athlete_id INTEGER NOT NULL,
			key TEXT NOT NULL,
			value TEXT NOT NULL,
			updated_at TEXT DEFAULT CURRENT_TIMESTAMP,
			PRIMARY KEY (athlete_id, key)
		)`,

		// personal_records: supplemented feature (§2), scoped per athlete.
		`CREATE TABLE IF NOT EXISTS personal_records (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			athlete_id INTEGER NOT NULL,
			category TEXT NOT NULL,
			activity_id INTEGER NOT NULL,
			distance_miles REAL NOT NULL,
			duration_seconds INTEGER NOT NULL,
			pace_per_mile REAL,
			avg_heart_rate REAL,
			achieved_at TEXT NOT NULL,
			start_offset INTEGER,
			end_offset INTEGER,
			UNIQUE(athlete_id, category)
		)`,

		`CREATE INDEX IF NOT EXISTS idx_personal_records_athlete ON personal_records(athlete_id)`,
	}

	for _, stmt := range statements {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("creating schema: %w", err)
		}
	}
	return nil
}

// columnMigration is one additive column to guarantee exists on a table.
type columnMigration struct {
	table      string
	column     string
	definition string
}

// migrateColumns adds columns that later schema revisions introduced, without
// ever dropping data. SQLite has no "ADD COLUMN IF NOT EXISTS", so each
// candidate is checked against PRAGMA table_info before altering.
func migrateColumns(db *sql.DB) error {
	additions := []columnMigration{
		// Placeholder list for future additive revisions; kept non-empty so the
		// guarded-ALTER path is exercised and tested even when there's nothing
		// pending today.
		{"activities", "notes", "TEXT NOT NULL DEFAULT ''"},
	}

	for _, m := range additions {
		exists, err := columnExists(db, m.table, m.column)
		if err != nil {
			return fmt.Errorf("checking column %s.%s: %w", m.table, m.column, err)
		}
		if exists {
			continue
		}
		stmt := fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s %s", m.table, m.column, m.definition)
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("adding column %s.%s: %w", m.table, m.column, err)
		}
	}
	return nil
}

func columnExists(db *sql.DB, table, column string) (bool, error) {
	rows, err := db.Query(fmt.Sprintf("PRAGMA table_info(%s)", table))
	if err != nil {
		return false, err
	}
	defer rows.Close()

	for rows.Next() {
		var cid int
		var name, ctype string
		var notNull int
		var dfltValue sql.NullString
		var pk int
		if err := rows.Scan(&cid, &name, &ctype, &notNull, &dfltValue, &pk); err != nil {
			return false, err
		}
		if name == column {
			return true, nil
		}
	}
	return false, rows.Err()
}
