package store

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	_ "modernc.org/sqlite"
)

func setupTestDB(t *testing.T) *Store {
	t.Helper()
	sqlDB, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("opening test database: %v", err)
	}
	if _, err := sqlDB.Exec("PRAGMA foreign_keys = ON"); err != nil {
		t.Fatalf("enabling foreign keys: %v", err)
	}
	if err := migrate(sqlDB); err != nil {
		t.Fatalf("running migrations: %v", err)
	}
	st := &Store{DB: sqlDB}
	t.Cleanup(func() { st.Close() })
	return st
}

func TestCreateAndGetAthlete(t *testing.T) {
	st := setupTestDB(t)
	ctx := context.Background()

	id, err := st.CreateAthlete(ctx, &Athlete{
		Email:                "test@example.com",
		PasswordHash:         "hash",
		RestingHR:            48,
		MaxHR:                190,
		Gender:               "female",
		CoachingToneSpectrum: 60,
		RiskTolerance:        RiskBalanced,
		Timezone:             "America/Denver",
	})
	if err != nil {
		t.Fatalf("CreateAthlete failed: %v", err)
	}

	got, err := st.GetAthlete(ctx, id)
	if err != nil {
		t.Fatalf("GetAthlete failed: %v", err)
	}
	if got.Email != "test@example.com" {
		t.Errorf("Email = %q, want test@example.com", got.Email)
	}
	if got.RiskTolerance != RiskBalanced {
		t.Errorf("RiskTolerance = %v, want balanced", got.RiskTolerance)
	}
}

func TestGetAthlete_NotFound(t *testing.T) {
	st := setupTestDB(t)
	_, err := st.GetAthlete(context.Background(), 999)
	if !errors.Is(err, ErrAthleteNotFound) {
		t.Errorf("expected ErrAthleteNotFound, got %v", err)
	}
}

func TestUpdateProviderTokens(t *testing.T) {
	st := setupTestDB(t)
	ctx := context.Background()

	id, _ := st.CreateAthlete(ctx, &Athlete{Email: "a@b.com", PasswordHash: "h"})
	expiry := time.Now().Add(time.Hour).Truncate(time.Second)

	if err := st.UpdateProviderTokens(ctx, id, "access", "refresh", expiry); err != nil {
		t.Fatalf("UpdateProviderTokens failed: %v", err)
	}

	got, err := st.GetAthlete(ctx, id)
	if err != nil {
		t.Fatalf("GetAthlete failed: %v", err)
	}
	if got.ProviderAccessToken != "access" || got.ProviderRefreshToken != "refresh" {
		t.Errorf("tokens not persisted correctly: %+v", got)
	}
	if !got.ProviderTokenExpiresAt.Equal(expiry) {
		t.Errorf("expiry = %v, want %v", got.ProviderTokenExpiresAt, expiry)
	}
}

func TestUpdateProviderTokens_UnknownAthlete(t *testing.T) {
	st := setupTestDB(t)
	err := st.UpdateProviderTokens(context.Background(), 404, "a", "r", time.Now())
	if !errors.Is(err, ErrAthleteNotFound) {
		t.Errorf("expected ErrAthleteNotFound, got %v", err)
	}
}

func TestInsertActivity_IdempotentViaExistsCheck(t *testing.T) {
	st := setupTestDB(t)
	ctx := context.Background()

	a := &Activity{AthleteID: 1, ActivityID: 555, Date: "2026-01-10", Name: "Run", Sport: SportRunning}
	if err := st.InsertActivity(ctx, a); err != nil {
		t.Fatalf("first insert failed: %v", err)
	}

	exists, err := st.ActivityExists(ctx, 1, 555)
	if err != nil {
		t.Fatalf("ActivityExists failed: %v", err)
	}
	if !exists {
		t.Fatal("expected activity to exist after insert")
	}
}

func TestReplaceRestDay(t *testing.T) {
	st := setupTestDB(t)
	ctx := context.Background()

	restDay := &Activity{AthleteID: 1, ActivityID: -12345, Date: "2026-01-10", Name: "Rest Day", Sport: SportRest, TRIMPMethod: TRIMPMethodRestDay}
	if err := st.InsertActivity(ctx, restDay); err != nil {
		t.Fatalf("inserting rest day failed: %v", err)
	}

	real := &Activity{AthleteID: 1, ActivityID: 999, Date: "2026-01-10", Name: "Surprise Run", Sport: SportRunning, TotalLoadMiles: 5}
	if err := st.ReplaceRestDay(ctx, 1, -12345, real); err != nil {
		t.Fatalf("ReplaceRestDay failed: %v", err)
	}

	rows, err := st.ActivitiesOnDate(ctx, 1, "2026-01-10")
	if err != nil {
		t.Fatalf("ActivitiesOnDate failed: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("expected 1 row after replace, got %d", len(rows))
	}
	if rows[0].IsRestDay() {
		t.Error("expected replaced row to be a real activity")
	}
}

func TestHasRowForDate(t *testing.T) {
	st := setupTestDB(t)
	ctx := context.Background()

	has, err := st.HasRowForDate(ctx, 1, "2026-01-10")
	if err != nil {
		t.Fatalf("HasRowForDate failed: %v", err)
	}
	if has {
		t.Error("expected no row before insert")
	}

	if err := st.InsertActivity(ctx, &Activity{AthleteID: 1, ActivityID: 1, Date: "2026-01-10", Name: "Run", Sport: SportRunning}); err != nil {
		t.Fatalf("insert failed: %v", err)
	}

	has, err = st.HasRowForDate(ctx, 1, "2026-01-10")
	if err != nil {
		t.Fatalf("HasRowForDate failed: %v", err)
	}
	if !has {
		t.Error("expected row after insert")
	}
}

func TestSyncState_RoundTrip(t *testing.T) {
	st := setupTestDB(t)
	ctx := context.Background()

	v, err := st.GetSyncState(ctx, 1, "last_sync")
	if err != nil {
		t.Fatalf("GetSyncState failed: %v", err)
	}
	if v != "" {
		t.Errorf("expected empty string for unset key, got %q", v)
	}

	if err := st.SetSyncState(ctx, 1, "last_sync", "1700000000"); err != nil {
		t.Fatalf("SetSyncState failed: %v", err)
	}

	v, err = st.GetSyncState(ctx, 1, "last_sync")
	if err != nil {
		t.Fatalf("GetSyncState failed: %v", err)
	}
	if v != "1700000000" {
		t.Errorf("got %q, want 1700000000", v)
	}
}

func TestListAthletesWithProviderCredentials(t *testing.T) {
	st := setupTestDB(t)
	ctx := context.Background()

	id1, _ := st.CreateAthlete(ctx, &Athlete{Email: "one@x.com", PasswordHash: "h"})
	id2, _ := st.CreateAthlete(ctx, &Athlete{Email: "two@x.com", PasswordHash: "h"})

	if err := st.UpdateProviderTokens(ctx, id1, "a", "r", time.Now().Add(time.Hour)); err != nil {
		t.Fatalf("UpdateProviderTokens failed: %v", err)
	}

	ids, err := st.ListAthletesWithProviderCredentials(ctx)
	if err != nil {
		t.Fatalf("ListAthletesWithProviderCredentials failed: %v", err)
	}
	if len(ids) != 1 || ids[0] != id1 {
		t.Errorf("got %v, want [%d]", ids, id1)
	}
	_ = id2
}
