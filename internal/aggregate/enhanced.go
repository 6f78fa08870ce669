package aggregate

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/rs/zerolog"

	"training-load-engine/internal/store"
)

// EdgeCase names a degenerate input the enhanced engine detected instead of
// producing a regular weighted result.
type EdgeCase string

const (
	EdgeNone        EdgeCase = ""
	EdgeNoData      EdgeCase = "no_data"
	EdgeNoAcuteData EdgeCase = "no_acute_data"
	// EdgeNoChronicData names the case in the original engine's vocabulary
	// where the acute window has activities but the chronic window doesn't.
	// It can't occur here: the acute window is always a sub-range of the
	// chronic window, so chronicRows is a superset of acuteRows by
	// construction and is never empty once acuteRows isn't. Kept so callers
	// switching on EdgeCase can still name it.
	EdgeNoChronicData           EdgeCase = "no_chronic_data"
	EdgeInsufficientChronicData EdgeCase = "insufficient_chronic_data"
	EdgeSignificantDataGaps     EdgeCase = "significant_data_gaps"
	EdgeFutureDates             EdgeCase = "future_dates"
)

// Result is the enhanced engine's output: either a normal computation or a
// tagged edge case with zeroed fields.
type Result struct {
	Aggregates store.Aggregates
	EdgeCase   EdgeCase
}

// performance tiers per spec.md §4.5: up to directTierMax activities, compute
// weights directly; up to precomputedTierMax, use a memoized days-ago ->
// weight table; above that, weights are again computed directly per row.
// All rows are loaded and weighted in one pass; no tier processes them in
// batches.
const (
	directTierMax        = 1000
	precomputedTierMax   = 10000
	chronicInsufficientDays = 7
)

// Enhanced implements the exponentially-decayed acute/chronic engine: simple
// 7-day mean on the acute side, recency-weighted mean on the chronic side.
type Enhanced struct {
	Store *store.Store
	Log   zerolog.Logger
}

// Update computes the enhanced aggregates for (athlete, date, cfg), falling
// back to the Standard engine and logging the downgrade on any error.
func (e *Enhanced) Update(ctx context.Context, athleteID int64, date time.Time, cfg store.EnhancedConfig) (Result, error) {
	result, err := e.compute(ctx, athleteID, date, cfg)
	if err != nil {
		e.Log.Warn().Err(err).Int64("athlete_id", athleteID).Str("date", fmtDate(date)).Msg("enhanced aggregate failed, falling back to standard")
		std := &Standard{Store: e.Store}
		if stdErr := std.Update(ctx, athleteID, date); stdErr != nil {
			return Result{}, fmt.Errorf("enhanced failed (%w) and standard fallback failed: %v", err, stdErr)
		}
		return Result{EdgeCase: EdgeNone}, nil
	}

	if werr := e.Store.WriteAggregates(ctx, athleteID, fmtDate(date), result.Aggregates); werr != nil {
		return Result{}, fmt.Errorf("writing aggregates: %w", werr)
	}
	return result, nil
}

func (e *Enhanced) compute(ctx context.Context, athleteID int64, date time.Time, cfg store.EnhancedConfig) (Result, error) {
	chronicDays := cfg.ChronicDays
	if chronicDays < 28 {
		chronicDays = 28
	}
	if chronicDays > 90 {
		chronicDays = 90
	}

	chronicFrom := date.AddDate(0, 0, -(chronicDays - 1))
	acuteFrom := date.AddDate(0, 0, -(acuteWindowDays - 1))

	rows, err := e.Store.ActivitiesBetween(ctx, athleteID, fmtDate(chronicFrom), fmtDate(date))
	if err != nil {
		return Result{}, fmt.Errorf("loading chronic window: %w", err)
	}

	if len(rows) == 0 {
		return Result{EdgeCase: EdgeNoData}, nil
	}

	for _, r := range rows {
		if r.Date > fmtDate(date) {
			return Result{EdgeCase: EdgeFutureDates}, nil
		}
	}

	acuteDateStr := fmtDate(acuteFrom)
	var acuteRows, chronicRows []store.Activity
	for _, r := range rows {
		chronicRows = append(chronicRows, r)
		if r.Date >= acuteDateStr {
			acuteRows = append(acuteRows, r)
		}
	}

	if len(acuteRows) == 0 {
		return Result{EdgeCase: EdgeNoAcuteData}, nil
	}

	distinctChronicDates := countDistinctDates(chronicRows)
	if distinctChronicDates < chronicInsufficientDays {
		return Result{EdgeCase: EdgeInsufficientChronicData}, nil
	}

	gapDays := chronicDays - distinctChronicDates
	if float64(gapDays) > float64(chronicDays)*0.5 {
		return Result{EdgeCase: EdgeSignificantDataGaps}, nil
	}

	var acuteLoad, acuteTRIMP float64
	for _, r := range acuteRows {
		acuteLoad += r.TotalLoadMiles
		acuteTRIMP += r.TRIMP
	}
	acuteLoadAvg := acuteLoad / acuteWindowDays
	acuteTRIMPAvg := acuteTRIMP / acuteWindowDays

	weightFn := weightFunc(len(chronicRows), cfg.DecayRate, date)

	var weightedLoad, weightedTRIMP, weightSum float64
	for _, r := range chronicRows {
		w := weightFn(r.Date)
		weightedLoad += r.TotalLoadMiles * w
		weightedTRIMP += r.TRIMP * w
		weightSum += w
	}

	var chronicLoadAvg, chronicTRIMPAvg float64
	if weightSum > 0 {
		chronicLoadAvg = weightedLoad / weightSum
		chronicTRIMPAvg = weightedTRIMP / weightSum
	}

	agg := computeRatios(acuteLoadAvg, chronicLoadAvg, acuteTRIMPAvg, chronicTRIMPAvg)
	return Result{Aggregates: agg, EdgeCase: EdgeNone}, nil
}

// weightFunc returns a function mapping a row's date string to its
// exponential-decay weight relative to the reference date, selecting among
// the three performance tiers by activity count.
func weightFunc(activityCount int, decayRate float64, reference time.Time) func(dateStr string) float64 {
	switch {
	case activityCount <= directTierMax:
		return func(dateStr string) float64 {
			d := daysAgo(dateStr, reference)
			return math.Exp(-decayRate * float64(d))
		}
	case activityCount <= precomputedTierMax:
		table := make(map[int]float64, 91)
		return func(dateStr string) float64 {
			d := daysAgo(dateStr, reference)
			if w, ok := table[d]; ok {
				return w
			}
			w := math.Exp(-decayRate * float64(d))
			table[d] = w
			return w
		}
	default:
		// Above precomputedTierMax: the same direct per-row weighting as the
		// first tier. The ActivitiesBetween scan is not chunked.
		return func(dateStr string) float64 {
			d := daysAgo(dateStr, reference)
			return math.Exp(-decayRate * float64(d))
		}
	}
}

func daysAgo(dateStr string, reference time.Time) int {
	d, err := time.Parse("2006-01-02", dateStr)
	if err != nil {
		return 0
	}
	return int(reference.Sub(d).Hours() / 24)
}

func countDistinctDates(rows []store.Activity) int {
	seen := make(map[string]struct{}, len(rows))
	for _, r := range rows {
		seen[r.Date] = struct{}{}
	}
	return len(seen)
}
