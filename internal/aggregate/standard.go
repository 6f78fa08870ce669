// Package aggregate computes the rolling acute/chronic load averages and
// ACWR-style ratios written back onto activity rows: the standard 7/28-day
// mean engine and the enhanced exponentially-decayed variant.
package aggregate

import (
	"context"
	"fmt"
	"math"
	"time"

	"training-load-engine/internal/store"
)

const (
	acuteWindowDays   = 7
	chronicWindowDays = 28
)

// Standard implements the 7-day acute / 28-day chronic rolling mean engine.
type Standard struct {
	Store *store.Store
}

// Update recomputes and persists the rolling aggregates for one (athlete,
// date). Missing days count as zero load, which is why ingest backfills
// rest days before this runs.
func (s *Standard) Update(ctx context.Context, athleteID int64, date time.Time) error {
	acuteFrom := date.AddDate(0, 0, -(acuteWindowDays - 1))
	chronicFrom := date.AddDate(0, 0, -(chronicWindowDays - 1))

	chronicRows, err := s.Store.ActivitiesBetween(ctx, athleteID, fmtDate(chronicFrom), fmtDate(date))
	if err != nil {
		return fmt.Errorf("loading chronic window: %w", err)
	}

	acuteDateStr := fmtDate(acuteFrom)
	var acuteLoad, chronicLoad, acuteTRIMP, chronicTRIMP float64
	for _, a := range chronicRows {
		chronicLoad += a.TotalLoadMiles
		chronicTRIMP += a.TRIMP
		if a.Date >= acuteDateStr {
			acuteLoad += a.TotalLoadMiles
			acuteTRIMP += a.TRIMP
		}
	}

	acuteLoadAvg := acuteLoad / acuteWindowDays
	chronicLoadAvg := chronicLoad / chronicWindowDays
	acuteTRIMPAvg := acuteTRIMP / acuteWindowDays
	chronicTRIMPAvg := chronicTRIMP / chronicWindowDays

	agg := computeRatios(acuteLoadAvg, chronicLoadAvg, acuteTRIMPAvg, chronicTRIMPAvg)

	return s.Store.WriteAggregates(ctx, athleteID, fmtDate(date), agg)
}

// UpdateRange recomputes aggregates for every date in [from, to] inclusive,
// in ascending order — required because a date's aggregate write depends on
// prior rest-day inserts already being present for earlier dates.
func (s *Standard) UpdateRange(ctx context.Context, athleteID int64, from, to time.Time) error {
	for d := from; !d.After(to); d = d.AddDate(0, 0, 1) {
		if err := s.Update(ctx, athleteID, d); err != nil {
			return fmt.Errorf("updating %s: %w", fmtDate(d), err)
		}
	}
	return nil
}

func computeRatios(acuteLoadAvg, chronicLoadAvg, acuteTRIMPAvg, chronicTRIMPAvg float64) store.Aggregates {
	acr := ratio(acuteLoadAvg, chronicLoadAvg)
	tacr := ratio(acuteTRIMPAvg, chronicTRIMPAvg)

	return store.Aggregates{
		SevenDayAvgLoad:        round2(acuteLoadAvg),
		TwentyEightDayAvgLoad:  round2(chronicLoadAvg),
		SevenDayAvgTRIMP:       round2(acuteTRIMPAvg),
		TwentyEightDayAvgTRIMP: round2(chronicTRIMPAvg),
		AcuteChronicRatio:      round2(acr),
		TRIMPAcuteChronicRatio: round2(tacr),
		NormalizedDivergence:   round2(normalizedDivergence(acr, tacr)),
	}
}

func ratio(acute, chronic float64) float64 {
	if chronic == 0 {
		return 0
	}
	return acute / chronic
}

func normalizedDivergence(externalRatio, internalRatio float64) float64 {
	sum := externalRatio + internalRatio
	if sum == 0 {
		return 0
	}
	return (externalRatio - internalRatio) / (sum / 2)
}

func fmtDate(t time.Time) string {
	return t.Format("2006-01-02")
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
