package aggregate

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"training-load-engine/internal/store"
)

func TestEnhanced_NoDataEdgeCase(t *testing.T) {
	st := setupTestStore(t)
	ctx := context.Background()
	ref := time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC)

	enh := &Enhanced{Store: st, Log: zerolog.Nop()}
	result, err := enh.Update(ctx, 1, ref, store.EnhancedConfig{ChronicDays: 28, DecayRate: 0.05})
	if err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	if result.EdgeCase != EdgeNoData {
		t.Errorf("EdgeCase = %v, want no_data", result.EdgeCase)
	}
}

func TestEnhanced_FutureDatesEdgeCase(t *testing.T) {
	st := setupTestStore(t)
	ctx := context.Background()
	ref := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	insertActivity(t, st, 1, 1, "2026-03-10", 5, 50) // after reference date

	enh := &Enhanced{Store: st, Log: zerolog.Nop()}
	result, err := enh.Update(ctx, 1, ref, store.EnhancedConfig{ChronicDays: 28, DecayRate: 0.05})
	if err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	if result.EdgeCase != EdgeFutureDates {
		t.Errorf("EdgeCase = %v, want future_dates", result.EdgeCase)
	}
}

func TestEnhanced_InsufficientChronicData(t *testing.T) {
	st := setupTestStore(t)
	ctx := context.Background()
	ref := time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC)

	// Only 2 distinct days of data in the chronic window (< 7 required).
	insertActivity(t, st, 1, 1, "2026-03-14", 5, 50)
	insertActivity(t, st, 1, 2, "2026-03-15", 5, 50)

	enh := &Enhanced{Store: st, Log: zerolog.Nop()}
	result, err := enh.Update(ctx, 1, ref, store.EnhancedConfig{ChronicDays: 28, DecayRate: 0.05})
	if err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	if result.EdgeCase != EdgeInsufficientChronicData {
		t.Errorf("EdgeCase = %v, want insufficient_chronic_data", result.EdgeCase)
	}
}

func TestEnhanced_WeightsRecentDaysMore(t *testing.T) {
	st := setupTestStore(t)
	ctx := context.Background()
	ref := time.Date(2026, 3, 28, 0, 0, 0, 0, time.UTC)

	// 28 consecutive days of data so no edge case fires; recent days carry
	// the same load, but a decayed engine with high load on a stale day vs.
	// a recent day should value the recent day more.
	for i := 0; i < 28; i++ {
		d := ref.AddDate(0, 0, -i)
		load := 1.0
		if i == 27 { // oldest day in window gets a huge spike
			load = 100.0
		}
		insertActivity(t, st, 1, int64(1000+i), d.Format("2006-01-02"), load, load*10)
	}

	enh := &Enhanced{Store: st, Log: zerolog.Nop()}
	result, err := enh.Update(ctx, 1, ref, store.EnhancedConfig{ChronicDays: 28, DecayRate: 0.1})
	if err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	if result.EdgeCase != EdgeNone {
		t.Fatalf("unexpected edge case: %v", result.EdgeCase)
	}

	// A 0.1/day decay rate heavily discounts a spike 27 days old; the
	// weighted chronic average should be much smaller than a naive mean
	// that would be dominated by the spike.
	naiveMean := (100.0 + 27.0) / 28.0
	if result.Aggregates.TwentyEightDayAvgLoad >= naiveMean {
		t.Errorf("expected decayed chronic average (%v) below naive mean (%v)", result.Aggregates.TwentyEightDayAvgLoad, naiveMean)
	}
}

func TestEnhanced_FallsBackToStandardOnComputeError(t *testing.T) {
	// A closed store forces the chronic-window query to fail, exercising the
	// fallback-to-standard path (which itself then also fails against the
	// closed store, surfacing a combined error rather than panicking).
	st := setupTestStore(t)
	ctx := context.Background()
	ref := time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC)
	st.Close()

	enh := &Enhanced{Store: st, Log: zerolog.Nop()}
	_, err := enh.Update(ctx, 1, ref, store.EnhancedConfig{ChronicDays: 28, DecayRate: 0.05})
	if err == nil {
		t.Fatal("expected error when store is closed")
	}
}
