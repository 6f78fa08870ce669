package ingest

import (
	"context"
	"database/sql"
	"testing"
	"time"

	_ "modernc.org/sqlite"

	"training-load-engine/internal/store"
)

func setupTestStore(t *testing.T) *store.Store {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("opening test database: %v", err)
	}
	st, err := store.WrapForTesting(db)
	if err != nil {
		t.Fatalf("wrapping test database: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	return st
}

func TestRestDayActivityID_Deterministic(t *testing.T) {
	a := restDayActivityID(1, "2026-03-15")
	b := restDayActivityID(1, "2026-03-15")
	if a != b {
		t.Errorf("expected deterministic id, got %d and %d", a, b)
	}
	if a >= 0 {
		t.Errorf("expected strictly negative id, got %d", a)
	}
}

func TestRestDayActivityID_NoCollisionAcrossAthletes(t *testing.T) {
	a := restDayActivityID(1, "2026-03-15")
	b := restDayActivityID(2, "2026-03-15")
	if a == b {
		t.Error("expected different athletes to get different rest-day ids for the same date")
	}
}

func TestRestDayActivityID_NoCollisionAcrossDates(t *testing.T) {
	a := restDayActivityID(1, "2026-03-15")
	b := restDayActivityID(1, "2026-03-16")
	if a == b {
		t.Error("expected different dates to get different rest-day ids for the same athlete")
	}
}

func TestBackfillRestDays_FillsUncoveredPastDates(t *testing.T) {
	st := setupTestStore(t)
	ctx := context.Background()
	p := &Pipeline{Store: st}

	from := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2026, 3, 5, 0, 0, 0, 0, time.UTC)

	// Day 3 already has a real activity; it should not get a rest day.
	if err := st.InsertActivity(ctx, &store.Activity{
		AthleteID: 1, ActivityID: 100, Date: "2026-03-03", Name: "Run", Sport: store.SportRunning,
	}); err != nil {
		t.Fatalf("seeding activity failed: %v", err)
	}

	filled, err := p.BackfillRestDays(ctx, 1, from, to, time.UTC)
	if err != nil {
		t.Fatalf("BackfillRestDays failed: %v", err)
	}
	if filled != 4 {
		t.Errorf("filled = %d, want 4 (5-day window minus the 1 real activity)", filled)
	}

	for _, d := range []string{"2026-03-01", "2026-03-02", "2026-03-04", "2026-03-05"} {
		rows, err := st.ActivitiesOnDate(ctx, 1, d)
		if err != nil {
			t.Fatalf("ActivitiesOnDate(%s) failed: %v", d, err)
		}
		if len(rows) != 1 || !rows[0].IsRestDay() {
			t.Errorf("expected exactly one rest day on %s, got %+v", d, rows)
		}
	}

	real, err := st.ActivitiesOnDate(ctx, 1, "2026-03-03")
	if err != nil {
		t.Fatalf("ActivitiesOnDate failed: %v", err)
	}
	if len(real) != 1 || real[0].IsRestDay() {
		t.Error("expected the real activity's date to be left untouched")
	}
}

func TestBackfillRestDays_Idempotent(t *testing.T) {
	st := setupTestStore(t)
	ctx := context.Background()
	p := &Pipeline{Store: st}

	from := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)

	first, err := p.BackfillRestDays(ctx, 1, from, to, time.UTC)
	if err != nil {
		t.Fatalf("first BackfillRestDays failed: %v", err)
	}
	if first != 2 {
		t.Fatalf("first run filled = %d, want 2", first)
	}

	second, err := p.BackfillRestDays(ctx, 1, from, to, time.UTC)
	if err != nil {
		t.Fatalf("second BackfillRestDays failed: %v", err)
	}
	if second != 0 {
		t.Errorf("second run filled = %d, want 0 (already covered)", second)
	}
}

func TestBackfillRestDays_ExcludesToday(t *testing.T) {
	st := setupTestStore(t)
	ctx := context.Background()
	p := &Pipeline{Store: st}

	today := time.Now().In(time.UTC)
	yesterday := today.AddDate(0, 0, -1)

	filled, err := p.BackfillRestDays(ctx, 1, yesterday, today, time.UTC)
	if err != nil {
		t.Fatalf("BackfillRestDays failed: %v", err)
	}
	if filled != 1 {
		t.Errorf("filled = %d, want 1 (today excluded, still in progress)", filled)
	}

	has, err := st.HasRowForDate(ctx, 1, today.Format("2006-01-02"))
	if err != nil {
		t.Fatalf("HasRowForDate failed: %v", err)
	}
	if has {
		t.Error("expected today to be left uncovered")
	}
}
