package ingest

import (
	"context"
	"testing"
	"time"

	"training-load-engine/internal/provider"
	"training-load-engine/internal/store"
)

func seedIngestAthlete(t *testing.T, st *store.Store) *store.Athlete {
	t.Helper()
	id, err := st.CreateAthlete(context.Background(), &store.Athlete{
		Email: "athlete@example.com", PasswordHash: "hash", RestingHR: 50, MaxHR: 190,
		Gender: "male", CoachingToneSpectrum: 50, RiskTolerance: store.RiskBalanced, Timezone: "UTC",
	})
	if err != nil {
		t.Fatalf("seeding athlete: %v", err)
	}
	athlete, err := st.GetAthlete(context.Background(), id)
	if err != nil {
		t.Fatalf("GetAthlete: %v", err)
	}
	return athlete
}

// TestProcessActivity_ReplacesExistingRestDay covers spec.md's Data Model
// invariant that a synthetic rest day is replaced, not duplicated, once a
// real activity later appears for the same date.
func TestProcessActivity_ReplacesExistingRestDay(t *testing.T) {
	st := setupTestStore(t)
	ctx := context.Background()
	athlete := seedIngestAthlete(t, st)
	p := &Pipeline{Store: st}

	dateStr := "2026-03-03"
	if _, err := p.BackfillRestDays(ctx, athlete.ID, mustParseDate(t, dateStr), mustParseDate(t, dateStr), time.UTC); err != nil {
		t.Fatalf("BackfillRestDays: %v", err)
	}

	before, err := st.ActivitiesOnDate(ctx, athlete.ID, dateStr)
	if err != nil {
		t.Fatalf("ActivitiesOnDate before: %v", err)
	}
	if len(before) != 1 || !before[0].IsRestDay() {
		t.Fatalf("expected exactly one rest day before the sync pass, got %+v", before)
	}

	raw := provider.Activity{
		ID: 555, Name: "Morning Run", Type: "Run", SportType: "Run",
		StartDateLocal: mustParseDate(t, dateStr), Distance: 8000, MovingTime: 2400,
	}
	if err := p.processActivity(ctx, nil, athlete, raw, dateStr); err != nil {
		t.Fatalf("processActivity: %v", err)
	}

	after, err := st.ActivitiesOnDate(ctx, athlete.ID, dateStr)
	if err != nil {
		t.Fatalf("ActivitiesOnDate after: %v", err)
	}
	if len(after) != 1 {
		t.Fatalf("expected exactly one row after the real activity replaces the rest day, got %d: %+v", len(after), after)
	}
	if after[0].IsRestDay() {
		t.Error("expected the remaining row to be the real activity, not the rest day")
	}
	if after[0].ActivityID != 555 {
		t.Errorf("ActivityID = %d, want 555", after[0].ActivityID)
	}
}

func TestProcessActivity_NoExistingRowInsertsNormally(t *testing.T) {
	st := setupTestStore(t)
	ctx := context.Background()
	athlete := seedIngestAthlete(t, st)
	p := &Pipeline{Store: st}

	dateStr := "2026-03-04"
	raw := provider.Activity{
		ID: 777, Name: "Evening Run", Type: "Run", SportType: "Run",
		StartDateLocal: mustParseDate(t, dateStr), Distance: 5000, MovingTime: 1500,
	}
	if err := p.processActivity(ctx, nil, athlete, raw, dateStr); err != nil {
		t.Fatalf("processActivity: %v", err)
	}

	rows, err := st.ActivitiesOnDate(ctx, athlete.ID, dateStr)
	if err != nil {
		t.Fatalf("ActivitiesOnDate: %v", err)
	}
	if len(rows) != 1 || rows[0].ActivityID != 777 {
		t.Fatalf("expected exactly one row for the new activity, got %+v", rows)
	}
}

func mustParseDate(t *testing.T, s string) time.Time {
	t.Helper()
	d, err := time.Parse("2006-01-02", s)
	if err != nil {
		t.Fatalf("parsing date %q: %v", s, err)
	}
	return d
}
