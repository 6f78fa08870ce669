// Package ingest is the imperative shell that pulls activities from the
// provider, normalizes them through internal/loadmodel, persists them, and
// backfills rest days for uncovered past dates.
package ingest

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"training-load-engine/internal/apperr"
	"training-load-engine/internal/loadmodel"
	"training-load-engine/internal/provider"
	"training-load-engine/internal/store"
)

// Summary reports what one SyncWindow call did, for the orchestrator's
// per-athlete response and for logging.
type Summary struct {
	Fetched        int
	Inserted       int
	Skipped        int
	RestDaysFilled int
	Errors         []error
}

// Pipeline ties together a provider client, the store, and the athlete's
// physiological parameters to ingest one window of activity.
type Pipeline struct {
	Store *store.Store
	Log   zerolog.Logger
}

// SyncWindow fetches, normalizes, and persists activities for athleteID in
// [from, to] (athlete-local calendar dates), then backfills rest days for
// any past date left uncovered.
func (p *Pipeline) SyncWindow(ctx context.Context, client *provider.Client, athleteID int64, from, to time.Time) (Summary, error) {
	athlete, err := p.Store.GetAthlete(ctx, athleteID)
	if err != nil {
		return Summary{}, apperr.New(apperr.KindDatabase, "ingest.SyncWindow", err)
	}
	loc := athlete.Location()

	// Start the provider fetch one day before the local window to absorb
	// time-zone edge cases. The listing has no upper bound (it returns every
	// activity after the cursor), so the day after the window is fetched too;
	// results are filtered back to the local window below.
	expandedFrom := from.AddDate(0, 0, -1)

	activities, err := client.ListAllActivities(ctx, expandedFrom, nil)
	if err != nil {
		if apperr.Is(err, apperr.KindAuth) {
			return Summary{}, err
		}
		return Summary{}, apperr.New(apperr.KindTransientProvider, "ingest.SyncWindow", err)
	}

	summary := Summary{Fetched: len(activities)}

	fromDate := from.Format("2006-01-02")
	toDate := to.Format("2006-01-02")

	for _, raw := range activities {
		if err := ctx.Err(); err != nil {
			return summary, err
		}
		localDate := raw.StartDateLocal
		if localDate.IsZero() {
			localDate = raw.StartDate.In(loc)
		}
		dateStr := localDate.Format("2006-01-02")
		if dateStr < fromDate || dateStr > toDate {
			continue
		}

		if err := p.processActivity(ctx, client, athlete, raw, dateStr); err != nil {
			var appErr *apperr.Error
			if errors.As(err, &appErr) && appErr.Kind == apperr.KindIntegrity {
				// Idempotent double-insert race; treat as already processed.
				summary.Skipped++
				continue
			}
			summary.Errors = append(summary.Errors, err)
			p.Log.Error().Err(err).Int64("activity_id", raw.ID).Int64("athlete_id", athleteID).Msg("failed to process activity")
			continue
		}
		summary.Inserted++
	}

	filled, err := p.BackfillRestDays(ctx, athleteID, from, to, loc)
	if err != nil {
		return summary, err
	}
	summary.RestDaysFilled = filled

	return summary, nil
}

func (p *Pipeline) processActivity(ctx context.Context, client *provider.Client, athlete *store.Athlete, raw provider.Activity, dateStr string) error {
	if !loadmodel.IsSupported(raw.SportType) && !loadmodel.IsSupported(raw.Type) {
		p.Log.Info().Str("label", raw.SportType).Msg("skipping unsupported activity label")
		return nil
	}

	exists, err := p.Store.ActivityExists(ctx, athlete.ID, raw.ID)
	if err != nil {
		return apperr.New(apperr.KindDatabase, "ingest.processActivity", err)
	}
	if exists {
		return nil
	}

	label := raw.SportType
	if label == "" {
		label = raw.Type
	}
	sport := loadmodel.ClassifySport(label)
	displayName := raw.Name
	if displayName == "" {
		displayName = loadmodel.DisplayLabel(label, sport, false)
	}

	distanceMiles := raw.Distance / 1609.344
	elevationFeet := raw.TotalElevationGain * 3.28084
	durationMinutes := float64(raw.MovingTime) / 60
	avgSpeedMPH := 0.0
	if raw.MovingTime > 0 {
		avgSpeedMPH = (raw.Distance / 1609.344) / (float64(raw.MovingTime) / 3600)
	}

	loadMiles := loadmodel.ExternalLoadMiles(sport, distanceMiles, elevationFeet, avgSpeedMPH, durationMinutes, 0, false)

	var avgHR, maxHR *float64
	if raw.AverageHeartrate > 0 {
		v := raw.AverageHeartrate
		avgHR = &v
	}
	if raw.MaxHeartrate > 0 {
		v := raw.MaxHeartrate
		maxHR = &v
	}

	trimp, method, zones, hrSamples, sampleRate, usedStream := p.computeTRIMPAndZones(ctx, client, athlete, raw, sport, durationMinutes, avgHR)

	activity := &store.Activity{
		AthleteID:         athlete.ID,
		ActivityID:        raw.ID,
		Date:              dateStr,
		Name:              displayName,
		Sport:             sport,
		DistanceMiles:     loadmodel.Round2(distanceMiles),
		ElevationGainFeet: loadmodel.Round2(elevationFeet),
		TotalLoadMiles:    loadMiles,
		AvgHeartRate:      avgHR,
		MaxHeartRate:      maxHR,
		DurationMinutes:   loadmodel.Round2(durationMinutes),
		TRIMP:             trimp,
		TimeInZone:        zones,
		TRIMPMethod:       method,
		HRStreamSamples:   len(hrSamples),
		TRIMPProcessedAt:  time.Now(),
		AverageSpeedMPH:   loadmodel.Round2(avgSpeedMPH),
	}

	restDay, err := p.Store.GetRestDayForDate(ctx, athlete.ID, dateStr)
	switch {
	case errors.Is(err, store.ErrActivityNotFound):
		if err := p.Store.InsertActivity(ctx, activity); err != nil {
			return classifyInsertErr(err)
		}
	case err != nil:
		return apperr.New(apperr.KindDatabase, "ingest.processActivity", err)
	default:
		// spec.md's Data Model invariant: a real activity replaces a
		// previously backfilled rest day on the same date.
		if err := p.Store.ReplaceRestDay(ctx, athlete.ID, restDay.ActivityID, activity); err != nil {
			return classifyInsertErr(err)
		}
	}

	if usedStream {
		hr := &store.HRStream{
			AthleteID:  athlete.ID,
			ActivityID: raw.ID,
			HRData:     hrSamples,
			SampleRate: sampleRate,
		}
		if err := p.Store.UpsertHRStream(ctx, hr); err != nil {
			return apperr.New(apperr.KindDatabase, "ingest.processActivity.stream", err)
		}
	}

	return nil
}

// computeTRIMPAndZones decides between stream-based and average-based TRIMP,
// falling back to the average form when streams are unavailable, disabled,
// or more than half the samples are invalid.
func (p *Pipeline) computeTRIMPAndZones(ctx context.Context, client *provider.Client, athlete *store.Athlete, raw provider.Activity, sport loadmodel.Sport, durationMinutes float64, avgHR *float64) (trimp float64, method store.TRIMPMethod, zones [5]int, hrSamples []int, sampleRate float64, usedStream bool) {
	if sport == store.SportRest {
		return 0, store.TRIMPMethodRestDay, zones, nil, 0, false
	}

	if athlete.EnhancedEnabled && raw.HasHeartrate {
		streams, err := client.GetStreams(ctx, raw.ID)
		if err == nil && streams.HasHeartrate() {
			samples := streams.Heartrate.Data
			result := loadmodel.TRIMPStream(samples, durationMinutes, athlete.RestingHR, athlete.MaxHR, athlete.Gender)
			if !result.Fallback {
				sampleRate = 1.0
				if streams.Time != nil && len(streams.Time.Data) > 1 {
					totalSeconds := float64(streams.Time.Data[len(streams.Time.Data)-1])
					if totalSeconds > 0 {
						sampleRate = float64(len(samples)) / totalSeconds
					}
				}
				z := loadmodel.ZoneSecondsFromStream(samples, sampleRate, athlete.RestingHR, athlete.MaxHR)
				return result.TRIMP, store.TRIMPMethodStream, z, samples, sampleRate, true
			}
			p.Log.Info().Int64("activity_id", raw.ID).Msg("stream TRIMP fell back to average: too many invalid samples")
		} else if err != nil {
			p.Log.Warn().Err(err).Int64("activity_id", raw.ID).Msg("fetching HR stream failed, using average TRIMP")
		}
	}

	if avgHR == nil {
		return 0, store.TRIMPMethodAverage, zones, nil, 0, false
	}

	t := loadmodel.TRIMPAverage(durationMinutes, *avgHR, athlete.RestingHR, athlete.MaxHR, athlete.Gender)
	z := loadmodel.ZoneSecondsFromAverage(*avgHR, athlete.RestingHR, athlete.MaxHR, durationMinutes)
	return t, store.TRIMPMethodAverage, z, nil, 0, false
}

// classifyInsertErr treats any failure from an insert that already passed
// the existence check as an integrity error: the only realistic cause is a
// concurrent writer beating this one to the same (athlete_id, activity_id).
func classifyInsertErr(err error) error {
	return apperr.New(apperr.KindIntegrity, "ingest.InsertActivity", err)
}
