package recommend

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"training-load-engine/internal/aggregate"
	"training-load-engine/internal/apperr"
	"training-load-engine/internal/llmclient"
	"training-load-engine/internal/store"
)

const (
	activityWindowDays  = 28
	autopsyHistoryCount = 3
	recentDaysRecompute = 3
)

// Pipeline orchestrates recommendation and autopsy generation: loading
// context from the store, composing a prompt, calling the LLM, parsing the
// response, and persisting the result.
type Pipeline struct {
	Store *store.Store
	LLM   *llmclient.Client
	Log   zerolog.Logger
}

// GenerateRecommendation implements the daily-recommendation workflow
// (spec.md §4.6 steps 1-8). forceTomorrow targets tomorrow explicitly,
// matching an athlete-initiated rest-day request.
func (p *Pipeline) GenerateRecommendation(ctx context.Context, athleteID int64, now time.Time, forceTomorrow bool) (*store.Recommendation, error) {
	athlete, err := p.Store.GetAthlete(ctx, athleteID)
	if err != nil {
		return nil, apperr.New(apperr.KindDatabase, "recommend.GenerateRecommendation", err)
	}
	loc := athlete.Location()
	localNow := now.In(loc)
	today := localNow.Format("2006-01-02")

	target := today
	if forceTomorrow {
		target = localNow.AddDate(0, 0, 1).Format("2006-01-02")
	} else if hasCompletedActivityToday, err := p.hasRealActivity(ctx, athleteID, today); err != nil {
		return nil, err
	} else if hasCompletedActivityToday {
		target = localNow.AddDate(0, 0, 1).Format("2006-01-02")
	}

	if skip, err := p.shouldSkip(ctx, athleteID, target, localNow); err != nil {
		return nil, err
	} else if skip {
		return p.Store.GetRecommendation(ctx, athleteID, target)
	}

	if err := p.recomputeRecentAggregates(ctx, athlete, localNow); err != nil {
		return nil, err
	}

	in, err := p.loadPromptInputs(ctx, athlete, target, localNow)
	if err != nil {
		return nil, err
	}

	prompt := ComposePrompt(in)
	raw, err := p.LLM.Complete(ctx, "", prompt)
	if err != nil {
		return nil, err
	}

	sections := ParseSections(raw)
	return p.persistRecommendation(ctx, athlete.ID, localNow, target, sections, raw, in.Metrics, false, 0, 0)
}

// GenerateAutopsy implements the autopsy workflow (spec.md §4.6 steps 1-5),
// triggered when an athlete saves a daily journal entry.
func (p *Pipeline) GenerateAutopsy(ctx context.Context, athleteID int64, date string, now time.Time) (*store.Autopsy, error) {
	athlete, err := p.Store.GetAthlete(ctx, athleteID)
	if err != nil {
		return nil, apperr.New(apperr.KindDatabase, "recommend.GenerateAutopsy", err)
	}
	loc := athlete.Location()
	today := now.In(loc).Format("2006-01-02")
	if date > today {
		return nil, nil
	}

	rec, err := p.Store.GetRecommendation(ctx, athleteID, date)
	if errors.Is(err, store.ErrRecommendationNotFound) {
		// No prescribed action for that date: nothing to grade.
		return nil, nil
	}
	if err != nil {
		return nil, apperr.New(apperr.KindDatabase, "recommend.GenerateAutopsy", err)
	}

	activities, err := p.Store.ActivitiesOnDate(ctx, athleteID, date)
	if err != nil {
		return nil, apperr.New(apperr.KindDatabase, "recommend.GenerateAutopsy", err)
	}
	hasReal := false
	for _, a := range activities {
		if !a.IsRestDay() {
			hasReal = true
			break
		}
	}
	if !hasReal {
		return nil, nil
	}

	journal, err := p.Store.GetJournalEntry(ctx, athleteID, date)
	if err != nil {
		return nil, apperr.New(apperr.KindDatabase, "recommend.GenerateAutopsy", err)
	}
	if journal == nil {
		return nil, nil
	}

	metrics := metricsFromActivities(activities)
	promptIn := AutopsyPromptInputs{
		Date:             date,
		PrescribedAction: rec.DailyRecommendation,
		ActualActivities: activities,
		Observations:     *journal,
		Metrics:          metrics,
	}

	raw, err := p.LLM.Complete(ctx, "", ComposeAutopsyPrompt(promptIn))
	if err != nil {
		return nil, err
	}
	parsed := ParseAutopsySections(raw)

	autopsy := &store.Autopsy{
		AthleteID:        athleteID,
		Date:             date,
		PrescribedAction: rec.DailyRecommendation,
		ActualActivities: summarizeActivities(activities),
		AutopsyAnalysis:  parsed.Assessment + "\n\n" + parsed.PhysiologicalResponse + "\n\n" + parsed.LearningInsights,
		AlignmentScore:   parsed.AlignmentScore,
		GeneratedAt:      now,
	}
	if err := p.Store.UpsertAutopsy(ctx, autopsy); err != nil {
		return nil, apperr.New(apperr.KindDatabase, "recommend.GenerateAutopsy", err)
	}

	if err := p.runFeedbackLoop(ctx, athlete, autopsy.GeneratedAt, now); err != nil {
		p.Log.Warn().Err(err).Int64("athlete_id", athleteID).Msg("feedback loop regeneration failed")
	}

	return autopsy, nil
}

// runFeedbackLoop regenerates today's recommendation if it predates the
// autopsy just persisted (generated at autopsyAt), folding in the
// recent-autopsy learning context; otherwise it generates tomorrow's
// recommendation (spec.md §4.6 feedback loop).
func (p *Pipeline) runFeedbackLoop(ctx context.Context, athlete *store.Athlete, autopsyAt, now time.Time) error {
	loc := athlete.Location()
	localNow := now.In(loc)
	today := localNow.Format("2006-01-02")

	todaysRec, err := p.Store.GetRecommendation(ctx, athlete.ID, today)
	if errors.Is(err, store.ErrRecommendationNotFound) {
		_, genErr := p.GenerateRecommendation(ctx, athlete.ID, now, false)
		return genErr
	}
	if err != nil {
		return apperr.New(apperr.KindDatabase, "recommend.runFeedbackLoop", err)
	}

	if !todaysRec.GenerationDate.Before(autopsyAt) {
		_, genErr := p.GenerateRecommendation(ctx, athlete.ID, now, true)
		return genErr
	}

	recent, err := p.Store.RecentAutopsies(ctx, athlete.ID, autopsyHistoryCount)
	if err != nil {
		return apperr.New(apperr.KindDatabase, "recommend.runFeedbackLoop", err)
	}

	in, err := p.loadPromptInputs(ctx, athlete, today, localNow)
	if err != nil {
		return err
	}
	fb := feedbackContextFrom(recent)
	prompt := ComposeFeedbackPrompt(in, fb)

	raw, err := p.LLM.Complete(ctx, "", prompt)
	if err != nil {
		return err
	}
	sections := ParseSections(raw)

	avg := fb.AvgAlignmentScore
	_, err = p.persistRecommendation(ctx, athlete.ID, localNow, today, sections, raw, in.Metrics, true, len(recent), avg)
	return err
}

func (p *Pipeline) hasRealActivity(ctx context.Context, athleteID int64, date string) (bool, error) {
	rows, err := p.Store.ActivitiesOnDate(ctx, athleteID, date)
	if err != nil {
		return false, apperr.New(apperr.KindDatabase, "recommend.hasRealActivity", err)
	}
	for _, a := range rows {
		if !a.IsRestDay() {
			return true, nil
		}
	}
	return false, nil
}

// shouldSkip implements the no-op rule: a recommendation already exists for
// target and was generated after the most recent autopsy for yesterday.
func (p *Pipeline) shouldSkip(ctx context.Context, athleteID int64, target string, localNow time.Time) (bool, error) {
	existing, err := p.Store.GetRecommendation(ctx, athleteID, target)
	if errors.Is(err, store.ErrRecommendationNotFound) {
		return false, nil
	}
	if err != nil {
		return false, apperr.New(apperr.KindDatabase, "recommend.shouldSkip", err)
	}

	yesterday := localNow.AddDate(0, 0, -1).Format("2006-01-02")
	autopsy, err := p.Store.GetAutopsy(ctx, athleteID, yesterday)
	if errors.Is(err, store.ErrAutopsyNotFound) {
		// No autopsy to have invalidated the existing recommendation.
		return true, nil
	}
	if err != nil {
		return false, apperr.New(apperr.KindDatabase, "recommend.shouldSkip", err)
	}
	return existing.GenerationDate.After(autopsy.GeneratedAt), nil
}

func (p *Pipeline) recomputeRecentAggregates(ctx context.Context, athlete *store.Athlete, localNow time.Time) error {
	cfg := athlete.EnhancedConfig()
	for i := recentDaysRecompute - 1; i >= 0; i-- {
		d := localNow.AddDate(0, 0, -i)
		if cfg.Enabled {
			enh := &aggregate.Enhanced{Store: p.Store, Log: p.Log}
			if _, err := enh.Update(ctx, athlete.ID, d, cfg); err != nil {
				return apperr.New(apperr.KindDatabase, "recommend.recomputeRecentAggregates", err)
			}
			continue
		}
		std := &aggregate.Standard{Store: p.Store}
		if err := std.Update(ctx, athlete.ID, d); err != nil {
			return apperr.New(apperr.KindDatabase, "recommend.recomputeRecentAggregates", err)
		}
	}
	return nil
}

func (p *Pipeline) loadPromptInputs(ctx context.Context, athlete *store.Athlete, target string, localNow time.Time) (PromptInputs, error) {
	from := localNow.AddDate(0, 0, -(activityWindowDays - 1)).Format("2006-01-02")
	to := localNow.Format("2006-01-02")

	activities, err := p.Store.ActivitiesBetween(ctx, athlete.ID, from, to)
	if err != nil {
		return PromptInputs{}, apperr.New(apperr.KindDatabase, "recommend.loadPromptInputs", err)
	}

	thresholds := ThresholdsFor(athlete.RiskTolerance)
	metrics := metricsFromActivities(activities)

	flags, err := ScanPatternFlags(ctx, p.Store, athlete.ID, localNow, thresholds.ACWRHigh)
	if err != nil {
		return PromptInputs{}, apperr.New(apperr.KindDatabase, "recommend.loadPromptInputs", err)
	}

	autopsies, err := p.Store.RecentAutopsies(ctx, athlete.ID, autopsyHistoryCount)
	if err != nil {
		return PromptInputs{}, apperr.New(apperr.KindDatabase, "recommend.loadPromptInputs", err)
	}

	return PromptInputs{
		TargetDate:       target,
		Thresholds:       thresholds,
		Assessment:       ClassifyAssessment(metrics, thresholds),
		Tone:             ToneInstructions(athlete.CoachingToneSpectrum),
		Metrics:          metrics,
		RecentActivities: activities,
		Flags:            flags,
		RecentAutopsies:  autopsies,
	}, nil
}

func (p *Pipeline) persistRecommendation(ctx context.Context, athleteID int64, now time.Time, target string, sections Sections, raw string, metrics Metrics, autopsyInformed bool, autopsyCount int, avgAlignment float64) (*store.Recommendation, error) {
	snapshot, err := json.Marshal(metrics)
	if err != nil {
		return nil, apperr.New(apperr.KindValidation, "recommend.persistRecommendation", err)
	}

	rec := &store.Recommendation{
		AthleteID:            athleteID,
		GenerationDate:       now,
		TargetDate:           target,
		DailyRecommendation:  sections.Daily,
		WeeklyRecommendation: sections.Weekly,
		PatternInsights:      sections.PatternInsights,
		RawResponse:          raw,
		IsAutopsyInformed:    autopsyInformed,
		AutopsyCount:         autopsyCount,
		AvgAlignmentScore:    avgAlignment,
		MetricsSnapshot:      snapshot,
	}
	if err := p.Store.UpsertRecommendation(ctx, rec); err != nil {
		return nil, apperr.New(apperr.KindDatabase, "recommend.persistRecommendation", err)
	}
	return rec, nil
}

func metricsFromActivities(activities []store.Activity) Metrics {
	if len(activities) == 0 {
		return Metrics{}
	}
	latest := activities[len(activities)-1]
	return Metrics{
		ACWR:                 latest.AcuteChronicRatio,
		TRIMPACWR:            latest.TRIMPAcuteChronicRatio,
		NormalizedDivergence: latest.NormalizedDivergence,
		DaysSinceRest:        daysSinceRest(activities),
		SevenDayAvgLoad:      latest.SevenDayAvgLoad,
	}
}

// daysSinceRest counts consecutive trailing days (from the end of the
// ascending-ordered slice) that were not rest days.
func daysSinceRest(activities []store.Activity) int {
	byDate := make(map[string]bool) // true if every row for the date is a rest day
	order := make([]string, 0, len(activities))
	for _, a := range activities {
		if _, seen := byDate[a.Date]; !seen {
			order = append(order, a.Date)
			byDate[a.Date] = true
		}
		if !a.IsRestDay() {
			byDate[a.Date] = false
		}
	}

	streak := 0
	for i := len(order) - 1; i >= 0; i-- {
		if byDate[order[i]] {
			break
		}
		streak++
	}
	return streak
}

func summarizeActivities(activities []store.Activity) string {
	s := ""
	for _, a := range activities {
		if a.IsRestDay() {
			continue
		}
		s += fmt.Sprintf("%s (%s): load=%.2f trimp=%.2f; ", a.Name, a.Sport, a.TotalLoadMiles, a.TRIMP)
	}
	if s == "" {
		return "rest day"
	}
	return s
}

func feedbackContextFrom(recent []store.Autopsy) FeedbackContext {
	if len(recent) == 0 {
		return FeedbackContext{AlignmentTrend: "stable"}
	}
	var sum int
	for _, a := range recent {
		sum += a.AlignmentScore
	}
	avg := float64(sum) / float64(len(recent))

	trend := "stable"
	if len(recent) >= 2 {
		// recent[0] is most recent (DESC order); recent[len-1] is oldest.
		if recent[0].AlignmentScore > recent[len(recent)-1].AlignmentScore {
			trend = "improving"
		} else if recent[0].AlignmentScore < recent[len(recent)-1].AlignmentScore {
			trend = "declining"
		}
	}

	return FeedbackContext{
		AutopsyCount:      len(recent),
		AvgAlignmentScore: avg,
		AlignmentTrend:    trend,
		LatestInsight:     recent[0].AutopsyAnalysis,
	}
}
