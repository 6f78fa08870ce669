package recommend

import (
	"context"
	"time"

	"training-load-engine/internal/store"
)

// Flags are the pattern signals surfaced from a 14-day scan of an athlete's
// activity history, fed into the recommendation prompt.
type Flags struct {
	HighRiskACWRStreak          bool // >=5 of the last 7 days above the high-risk ACWR threshold
	SustainedNegativeDivergence bool // >=6 consecutive days with normalized_divergence < -0.05
	WarningNegativeDivergence   bool // exactly a 5-day negative-divergence streak
	PositiveDivergenceStreak    bool // >=3 consecutive days with divergence > +0.05
}

const (
	patternScanDays         = 14
	highRiskACWRWindow      = 7
	highRiskACWRCount       = 5
	sustainedNegativeStreak = 6
	warningNegativeStreak   = 5
	positiveStreak          = 3
	negativeDivergenceFloor = -0.05
	positiveDivergenceFloor = 0.05
)

// ScanPatternFlags inspects the last 14 days of activity rows ending at asOf
// (athlete-local calendar date) and returns the derived pattern flags.
func ScanPatternFlags(ctx context.Context, st *store.Store, athleteID int64, asOf time.Time, acwrHigh float64) (Flags, error) {
	from := asOf.AddDate(0, 0, -(patternScanDays - 1)).Format("2006-01-02")
	to := asOf.Format("2006-01-02")

	rows, err := st.ActivitiesBetween(ctx, athleteID, from, to)
	if err != nil {
		return Flags{}, err
	}

	byDate := latestPerDate(rows)
	dates := sortedDates(byDate)

	var flags Flags

	if len(dates) >= highRiskACWRWindow {
		recent := dates[len(dates)-highRiskACWRWindow:]
		above := 0
		for _, d := range recent {
			a := byDate[d]
			if a.AcuteChronicRatio > acwrHigh || a.TRIMPAcuteChronicRatio > acwrHigh {
				above++
			}
		}
		flags.HighRiskACWRStreak = above >= highRiskACWRCount
	}

	negStreak := trailingStreak(dates, byDate, func(a store.Activity) bool {
		return a.NormalizedDivergence < negativeDivergenceFloor
	})
	flags.SustainedNegativeDivergence = negStreak >= sustainedNegativeStreak
	flags.WarningNegativeDivergence = negStreak == warningNegativeStreak

	posStreak := trailingStreak(dates, byDate, func(a store.Activity) bool {
		return a.NormalizedDivergence > positiveDivergenceFloor
	})
	flags.PositiveDivergenceStreak = posStreak >= positiveStreak

	return flags, nil
}

// latestPerDate collapses multiple same-day rows (e.g. two sessions) down to
// one by keeping the last row seen per date; aggregate fields are identical
// across same-date rows by construction (store.WriteAggregates writes them
// to every row for a date), so any row for the date carries the same values.
func latestPerDate(rows []store.Activity) map[string]store.Activity {
	byDate := make(map[string]store.Activity, len(rows))
	for _, a := range rows {
		byDate[a.Date] = a
	}
	return byDate
}

func sortedDates(byDate map[string]store.Activity) []string {
	dates := make([]string, 0, len(byDate))
	for d := range byDate {
		dates = append(dates, d)
	}
	// Dates are YYYY-MM-DD strings; lexical sort is chronological sort.
	for i := 1; i < len(dates); i++ {
		for j := i; j > 0 && dates[j-1] > dates[j]; j-- {
			dates[j-1], dates[j] = dates[j], dates[j-1]
		}
	}
	return dates
}

// trailingStreak counts how many of the most recent dates (walking backward
// from the end of the slice) satisfy pred, stopping at the first miss.
func trailingStreak(dates []string, byDate map[string]store.Activity, pred func(store.Activity) bool) int {
	streak := 0
	for i := len(dates) - 1; i >= 0; i-- {
		if !pred(byDate[dates[i]]) {
			break
		}
		streak++
	}
	return streak
}
