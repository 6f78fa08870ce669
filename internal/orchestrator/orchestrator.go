// Package orchestrator bridges external triggers (an HTTP scheduler hit or a
// user-initiated request) to the per-athlete ingest/aggregate pipeline,
// fanning out across athletes with a bounded worker pool.
package orchestrator

import (
	"context"
	"runtime"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"training-load-engine/internal/aggregate"
	"training-load-engine/internal/apperr"
	"training-load-engine/internal/ingest"
	"training-load-engine/internal/records"
	"training-load-engine/internal/store"
	"training-load-engine/internal/tokenmgr"
)

const defaultWindowDays = 7

// Orchestrator drives Sync{One,All} over the ingestion pipeline. Workers
// defaults to runtime.GOMAXPROCS(0) when zero.
type Orchestrator struct {
	Store   *store.Store
	Tokens  *tokenmgr.Manager
	Ingest  *ingest.Pipeline
	Log     zerolog.Logger
	Workers int
}

// UserResult is one athlete's outcome within a sync run.
type UserResult struct {
	AthleteID         int64         `json:"athlete_id"`
	ActivitiesFetched int           `json:"activities_fetched"`
	ActivitiesStored  int           `json:"activities_stored"`
	RestDaysFilled    int           `json:"rest_days_filled"`
	Duration          time.Duration `json:"-"`
	Error             string        `json:"error,omitempty"`
}

// Summary is the orchestrator's per-run report, returned to the scheduler
// trigger and to user-initiated callers alike.
type Summary struct {
	UsersProcessed  int          `json:"users_processed"`
	TotalActivities int          `json:"total_activities"`
	PerUserResults  []UserResult `json:"per_user_results"`
}

func (o *Orchestrator) workers() int {
	if o.Workers > 0 {
		return o.Workers
	}
	return runtime.GOMAXPROCS(0)
}

// SyncOne runs the ingest+aggregate pipeline for a single athlete over the
// trailing windowDays (default 7 when <= 0), honoring ctx cancellation
// between activities during ingest and between days during the aggregate
// recompute (spec.md §5's best-effort cancellation).
func (o *Orchestrator) SyncOne(ctx context.Context, athleteID int64, windowDays int, now time.Time) UserResult {
	start := now
	result := UserResult{AthleteID: athleteID}

	if windowDays <= 0 {
		windowDays = defaultWindowDays
	}

	client, _, err := o.Tokens.ClientFor(ctx, athleteID)
	if err != nil {
		result.Error = err.Error()
		return result
	}

	athlete, err := o.Store.GetAthlete(ctx, athleteID)
	if err != nil {
		result.Error = apperr.New(apperr.KindDatabase, "orchestrator.SyncOne", err).Error()
		return result
	}
	loc := athlete.Location()
	localNow := now.In(loc)
	to := localNow
	from := localNow.AddDate(0, 0, -(windowDays - 1))

	summary, err := o.Ingest.SyncWindow(ctx, client, athleteID, from, to)
	result.ActivitiesFetched = summary.Fetched
	result.ActivitiesStored = summary.Inserted
	result.RestDaysFilled = summary.RestDaysFilled
	if err != nil {
		result.Error = err.Error()
		return result
	}

	if err := o.recomputeWindow(ctx, athlete, from, to); err != nil {
		result.Error = err.Error()
		return result
	}

	result.Duration = time.Since(start)
	return result
}

// recomputeWindow runs the acute/chronic aggregate engine day by day,
// ascending, over [from, to] — spec.md §4.7 step 3 and §5's ordering
// guarantee that aggregates for date d are written before d+1. It also
// re-scans each day's real activities against the athlete's personal
// records; a PR miss is logged, not propagated, since it never affects the
// load engine's invariants.
func (o *Orchestrator) recomputeWindow(ctx context.Context, athlete *store.Athlete, from, to time.Time) error {
	cfg := athlete.EnhancedConfig()
	recordsEngine := &records.Engine{Store: o.Store}
	for d := from; !d.After(to); d = d.AddDate(0, 0, 1) {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		if cfg.Enabled {
			enh := &aggregate.Enhanced{Store: o.Store, Log: o.Log}
			if _, err := enh.Update(ctx, athlete.ID, d, cfg); err != nil {
				return apperr.New(apperr.KindDatabase, "orchestrator.recomputeWindow", err)
			}
		} else {
			std := &aggregate.Standard{Store: o.Store}
			if err := std.Update(ctx, athlete.ID, d); err != nil {
				return apperr.New(apperr.KindDatabase, "orchestrator.recomputeWindow", err)
			}
		}
		o.evaluateRecordsForDay(ctx, recordsEngine, athlete, d)
	}
	return nil
}

func (o *Orchestrator) evaluateRecordsForDay(ctx context.Context, recordsEngine *records.Engine, athlete *store.Athlete, d time.Time) {
	dayActivities, err := o.Store.ActivitiesOnDate(ctx, athlete.ID, d.Format("2006-01-02"))
	if err != nil {
		o.Log.Warn().Err(err).Int64("athlete_id", athlete.ID).Str("date", d.Format("2006-01-02")).Msg("loading activities for record scan")
		return
	}
	for i := range dayActivities {
		if err := recordsEngine.Evaluate(ctx, athlete, &dayActivities[i]); err != nil {
			o.Log.Warn().Err(err).Int64("athlete_id", athlete.ID).Int64("activity_id", dayActivities[i].ActivityID).Msg("evaluating personal records")
		}
	}
}

// SyncAll enumerates every athlete with stored provider credentials and
// syncs each over the standard window, fanning out across a worker pool
// sized by Workers (default runtime.GOMAXPROCS). Per-athlete failures are
// isolated into that athlete's UserResult; they never abort the run.
func (o *Orchestrator) SyncAll(ctx context.Context, now time.Time) (Summary, error) {
	athleteIDs, err := o.Store.ListAthletesWithProviderCredentials(ctx)
	if err != nil {
		return Summary{}, apperr.New(apperr.KindDatabase, "orchestrator.SyncAll", err)
	}

	results := make([]UserResult, len(athleteIDs))
	sem := make(chan struct{}, o.workers())
	var wg sync.WaitGroup

	for i, athleteID := range athleteIDs {
		wg.Add(1)
		sem <- struct{}{}
		go func(i int, athleteID int64) {
			defer wg.Done()
			defer func() { <-sem }()
			results[i] = o.SyncOne(ctx, athleteID, defaultWindowDays, now)
			if results[i].Error != "" {
				o.Log.Warn().Int64("athlete_id", athleteID).Str("error", results[i].Error).Msg("sync failed for athlete")
			}
		}(i, athleteID)
	}
	wg.Wait()

	summary := Summary{UsersProcessed: len(results), PerUserResults: results}
	for _, r := range results {
		summary.TotalActivities += r.ActivitiesStored
	}
	return summary, nil
}
