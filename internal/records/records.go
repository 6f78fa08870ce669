// Package records tracks per-athlete personal bests: longest run, highest
// elevation gain, fastest pace, and standard race-distance times. It is a
// secondary enrichment layered on top of already-ingested activities — not
// part of the training-load engine's core invariants.
package records

import (
	"context"
	"time"

	"training-load-engine/internal/apperr"
	"training-load-engine/internal/store"
)

// Standard race distances in miles, with a tolerance for matching a whole
// activity's recorded distance against them.
const (
	Distance1Mile     = 1.0
	Distance5K        = 3.10686
	Distance10K       = 6.21371
	DistanceHalfMara  = 13.1094
	DistanceMarathon  = 26.2188
	DistanceTolerance = 0.05 // +/-5%
)

const (
	CategoryLongestRun   = "longest_run"
	CategoryHighestElev  = "highest_elevation"
	CategoryFastestPace  = "fastest_pace"
	CategoryRace1Mile    = "distance_1mi"
	CategoryRace5K       = "distance_5k"
	CategoryRace10K      = "distance_10k"
	CategoryRaceHalfMara = "distance_half"
	CategoryRaceMarathon = "distance_full"
)

// raceDistances maps a race category to its target distance in miles.
var raceDistances = map[string]float64{
	CategoryRace1Mile:    Distance1Mile,
	CategoryRace5K:       Distance5K,
	CategoryRace10K:      Distance10K,
	CategoryRaceHalfMara: DistanceHalfMara,
	CategoryRaceMarathon: DistanceMarathon,
}

// matchesRaceDistance reports whether activityMiles falls within tolerance
// of raceMiles.
func matchesRaceDistance(activityMiles, raceMiles float64) bool {
	lower := raceMiles * (1 - DistanceTolerance)
	upper := raceMiles * (1 + DistanceTolerance)
	return activityMiles >= lower && activityMiles <= upper
}

// Engine evaluates newly-ingested activities against an athlete's personal
// records and upserts any improvements.
type Engine struct {
	Store *store.Store
}

// Evaluate checks one real activity (ignored if it's a synthetic rest day)
// against every category it's eligible for and upserts improvements. It
// never fails the caller's sync: persistence errors are returned so the
// caller can log them, but a missed PR update is not a sync failure.
func (e *Engine) Evaluate(ctx context.Context, athlete *store.Athlete, a *store.Activity) error {
	if a.IsRestDay() || a.DistanceMiles <= 0 {
		return nil
	}

	achievedAt, err := time.ParseInLocation("2006-01-02", a.Date, athlete.Location())
	if err != nil {
		return apperr.New(apperr.KindValidation, "records.Evaluate", err)
	}

	durationSeconds := int(a.DurationMinutes * 60)

	if a.Sport == store.SportRunning {
		if err := e.upsertDistance(ctx, athlete.ID, CategoryLongestRun, a, achievedAt, durationSeconds); err != nil {
			return err
		}
		if pace := pacePerMile(a.DistanceMiles, durationSeconds); pace > 0 {
			if err := e.upsertPace(ctx, athlete.ID, CategoryFastestPace, a, achievedAt, durationSeconds, pace); err != nil {
				return err
			}
		}
		for category, target := range raceDistances {
			if matchesRaceDistance(a.DistanceMiles, target) {
				if err := e.upsertDuration(ctx, athlete.ID, category, a, achievedAt, durationSeconds); err != nil {
					return err
				}
			}
		}
	}

	if a.ElevationGainFeet > 0 {
		if err := e.upsertElevation(ctx, athlete.ID, CategoryHighestElev, a, achievedAt, durationSeconds); err != nil {
			return err
		}
	}

	return nil
}

func pacePerMile(distanceMiles float64, durationSeconds int) float64 {
	if distanceMiles <= 0 || durationSeconds <= 0 {
		return 0
	}
	return float64(durationSeconds) / distanceMiles
}

func (e *Engine) upsertDuration(ctx context.Context, athleteID int64, category string, a *store.Activity, achievedAt time.Time, durationSeconds int) error {
	_, err := e.Store.UpsertPersonalRecordWithMode(ctx, athleteID, &store.PersonalRecord{
		Category:        category,
		ActivityID:      a.ActivityID,
		DistanceMiles:   a.DistanceMiles,
		DurationSeconds: durationSeconds,
		AvgHeartRate:    a.AvgHeartRate,
		AchievedAt:      achievedAt,
	}, store.CompareDuration)
	if err != nil {
		return apperr.New(apperr.KindDatabase, "records.upsertDuration", err)
	}
	return nil
}

func (e *Engine) upsertDistance(ctx context.Context, athleteID int64, category string, a *store.Activity, achievedAt time.Time, durationSeconds int) error {
	_, err := e.Store.UpsertPersonalRecordWithMode(ctx, athleteID, &store.PersonalRecord{
		Category:        category,
		ActivityID:      a.ActivityID,
		DistanceMiles:   a.DistanceMiles,
		DurationSeconds: durationSeconds,
		AvgHeartRate:    a.AvgHeartRate,
		AchievedAt:      achievedAt,
	}, store.CompareDistance)
	if err != nil {
		return apperr.New(apperr.KindDatabase, "records.upsertDistance", err)
	}
	return nil
}

func (e *Engine) upsertElevation(ctx context.Context, athleteID int64, category string, a *store.Activity, achievedAt time.Time, durationSeconds int) error {
	_, err := e.Store.UpsertPersonalRecordWithMode(ctx, athleteID, &store.PersonalRecord{
		Category:        category,
		ActivityID:      a.ActivityID,
		DistanceMiles:   a.ElevationGainFeet, // reuses the distance column as the compared magnitude
		DurationSeconds: durationSeconds,
		AvgHeartRate:    a.AvgHeartRate,
		AchievedAt:      achievedAt,
	}, store.CompareDistance)
	if err != nil {
		return apperr.New(apperr.KindDatabase, "records.upsertElevation", err)
	}
	return nil
}

func (e *Engine) upsertPace(ctx context.Context, athleteID int64, category string, a *store.Activity, achievedAt time.Time, durationSeconds int, pace float64) error {
	_, err := e.Store.UpsertPersonalRecordWithMode(ctx, athleteID, &store.PersonalRecord{
		Category:        category,
		ActivityID:      a.ActivityID,
		DistanceMiles:   a.DistanceMiles,
		DurationSeconds: durationSeconds,
		PacePerMile:     &pace,
		AvgHeartRate:    a.AvgHeartRate,
		AchievedAt:      achievedAt,
	}, store.ComparePace)
	if err != nil {
		return apperr.New(apperr.KindDatabase, "records.upsertPace", err)
	}
	return nil
}
