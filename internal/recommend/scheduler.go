package recommend

import (
	"context"
	"time"

	"training-load-engine/internal/store"
)

// Scheduler drives the daily recommendation cadence in-process: spec.md §2
// describes it as running "independently" of the sync orchestrator on a
// daily cadence per athlete, with no HTTP trigger of its own (the scheduler-
// trigger route in internal/httpapi is sync-only). A ticker checks in well
// more often than once a day; GenerateRecommendation's own no-op rule makes
// repeated calls within the same target date harmless.
type Scheduler struct {
	Pipeline *Pipeline
	Store    *store.Store
	Interval time.Duration // defaults to one hour when zero

	cancel context.CancelFunc
	done   chan struct{}
}

const defaultSchedulerInterval = time.Hour

// Start begins the background polling loop. Call Stop to shut it down.
func (s *Scheduler) Start() {
	if s.Interval <= 0 {
		s.Interval = defaultSchedulerInterval
	}
	s.done = make(chan struct{})

	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel

	s.Pipeline.Log.Info().Dur("interval", s.Interval).Msg("starting recommendation scheduler")
	go s.loop(ctx)
}

// Stop cancels the loop and waits for the in-flight tick to finish.
func (s *Scheduler) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
	if s.done != nil {
		<-s.done
	}
}

func (s *Scheduler) loop(ctx context.Context) {
	defer close(s.done)

	s.tick(ctx)

	ticker := time.NewTicker(s.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

// tick runs one recommendation pass over every athlete with stored provider
// credentials (a proxy for "has ingested data worth recommending against").
// Per-athlete failures are logged, never fatal to the loop.
func (s *Scheduler) tick(ctx context.Context) {
	athleteIDs, err := s.Store.ListAthletesWithProviderCredentials(ctx)
	if err != nil {
		s.Pipeline.Log.Warn().Err(err).Msg("listing athletes for recommendation scheduler")
		return
	}

	now := time.Now()
	for _, athleteID := range athleteIDs {
		select {
		case <-ctx.Done():
			return
		default:
		}
		if _, err := s.Pipeline.GenerateRecommendation(ctx, athleteID, now, false); err != nil {
			s.Pipeline.Log.Warn().Err(err).Int64("athlete_id", athleteID).Msg("generating scheduled recommendation")
		}
	}
}
