package recommend

import (
	"fmt"
	"strings"

	"training-load-engine/internal/store"
)

// PromptInputs is everything ComposePrompt needs to build a recommendation
// request. All fields are pre-loaded by the caller (internal/recommend.Pipeline)
// so this function stays a pure string builder.
type PromptInputs struct {
	TargetDate       string
	Thresholds       Thresholds
	Assessment       AssessmentCategory
	Tone             string
	Metrics          Metrics
	RecentActivities []store.Activity // up to 28 days, ascending
	Flags            Flags
	RecentAutopsies  []store.Autopsy // most recent first, up to 3
}

// ComposePrompt builds the single user message sent to the LLM for a daily
// recommendation, per the three-section response contract.
func ComposePrompt(in PromptInputs) string {
	var b strings.Builder

	fmt.Fprintf(&b, "You are an endurance training coach. Today's target date is %s.\n\n", in.TargetDate)

	fmt.Fprintf(&b, "PERSONALIZED THRESHOLDS\n")
	fmt.Fprintf(&b, "- ACWR high-risk threshold: %.2f\n", in.Thresholds.ACWRHigh)
	fmt.Fprintf(&b, "- Maximum days without rest: %d\n", in.Thresholds.MaxRestDays)
	fmt.Fprintf(&b, "- Divergence overtraining threshold: %.2f\n\n", in.Thresholds.DivergenceThreshold)

	fmt.Fprintf(&b, "ASSESSMENT CATEGORY: %s\n\n", in.Assessment)

	fmt.Fprintf(&b, "COACHING TONE\n%s\n\n", in.Tone)

	fmt.Fprintf(&b, "CURRENT METRICS\n")
	fmt.Fprintf(&b, "- ACWR (load): %.2f\n", in.Metrics.ACWR)
	fmt.Fprintf(&b, "- ACWR (TRIMP): %.2f\n", in.Metrics.TRIMPACWR)
	fmt.Fprintf(&b, "- Normalized divergence: %.2f\n", in.Metrics.NormalizedDivergence)
	fmt.Fprintf(&b, "- Days since rest: %d\n\n", in.Metrics.DaysSinceRest)

	writePatternFlags(&b, in.Flags)
	writeRecentActivities(&b, in.RecentActivities)
	writeRecentAutopsies(&b, in.RecentAutopsies)

	b.WriteString("Respond in exactly three labelled sections: " +
		"**DAILY RECOMMENDATION:**, **WEEKLY PLANNING:**, **PATTERN INSIGHTS:**.\n")

	return b.String()
}

// FeedbackContext is the additional autopsy-learning context appended to a
// same-day regeneration prompt per the feedback-loop rule.
type FeedbackContext struct {
	AutopsyCount      int
	AvgAlignmentScore float64
	AlignmentTrend    string // "improving", "declining", "stable"
	LatestInsight     string
}

// ComposeFeedbackPrompt wraps ComposePrompt with the autopsy-learning and
// adaptive-coaching-logic sections used when regenerating today's
// recommendation after a new autopsy lands.
func ComposeFeedbackPrompt(in PromptInputs, fb FeedbackContext) string {
	base := ComposePrompt(in)

	var b strings.Builder
	b.WriteString(base)
	b.WriteString("\nRECENT AUTOPSY LEARNING\n")
	fmt.Fprintf(&b, "- Autopsy count: %d\n", fb.AutopsyCount)
	fmt.Fprintf(&b, "- Average alignment score: %.1f/10\n", fb.AvgAlignmentScore)
	fmt.Fprintf(&b, "- Alignment trend: %s\n", fb.AlignmentTrend)
	fmt.Fprintf(&b, "- Latest insight: %s\n\n", fb.LatestInsight)

	b.WriteString("ADAPTIVE COACHING LOGIC\n")
	switch {
	case fb.AvgAlignmentScore > 7:
		b.WriteString("Alignment is strong. Reinforce the current plan and build on it.\n")
	case fb.AvgAlignmentScore >= 4:
		b.WriteString("Alignment is mixed. Simplify the plan to something more achievable.\n")
	default:
		b.WriteString("Alignment is poor. Restart with a conservative, low-risk plan.\n")
	}

	return b.String()
}

// AutopsyPromptInputs is everything ComposeAutopsyPrompt needs.
type AutopsyPromptInputs struct {
	Date             string
	PrescribedAction string
	ActualActivities []store.Activity
	Observations     store.JournalEntry
	Metrics          Metrics
}

// ComposeAutopsyPrompt builds the user message for grading a past
// recommendation against what the athlete actually did.
func ComposeAutopsyPrompt(in AutopsyPromptInputs) string {
	var b strings.Builder

	fmt.Fprintf(&b, "You are grading how well an athlete's training on %s matched their prescribed plan.\n\n", in.Date)
	fmt.Fprintf(&b, "PRESCRIBED ACTION\n%s\n\n", in.PrescribedAction)

	writeRecentActivities(&b, in.ActualActivities)

	fmt.Fprintf(&b, "ATHLETE OBSERVATIONS\n")
	fmt.Fprintf(&b, "- Energy level (1-5): %d\n", in.Observations.EnergyLevel)
	fmt.Fprintf(&b, "- RPE (1-10): %d\n", in.Observations.RPEScore)
	fmt.Fprintf(&b, "- Pain percentage: %d%%\n", in.Observations.PainPercentage)
	fmt.Fprintf(&b, "- Notes: %s\n\n", in.Observations.Notes)

	fmt.Fprintf(&b, "CURRENT METRICS\n")
	fmt.Fprintf(&b, "- ACWR (load): %.2f\n", in.Metrics.ACWR)
	fmt.Fprintf(&b, "- Normalized divergence: %.2f\n\n", in.Metrics.NormalizedDivergence)

	b.WriteString("Respond beginning with `ALIGNMENT_SCORE: X/10` followed by exactly three labelled " +
		"sections: **ALIGNMENT ASSESSMENT:**, **PHYSIOLOGICAL RESPONSE ANALYSIS:**, " +
		"**LEARNING INSIGHTS & TOMORROW'S IMPLICATIONS:**.\n")

	return b.String()
}

func writePatternFlags(b *strings.Builder, f Flags) {
	b.WriteString("PATTERN FLAGS\n")
	if f.HighRiskACWRStreak {
		b.WriteString("- RED: 5+ of the last 7 days carried high-risk ACWR.\n")
	}
	if f.SustainedNegativeDivergence {
		b.WriteString("- RED: 6+ consecutive days of sustained negative divergence.\n")
	}
	if f.WarningNegativeDivergence {
		b.WriteString("- WARNING: 5 consecutive days of negative divergence.\n")
	}
	if f.PositiveDivergenceStreak {
		b.WriteString("- POSITIVE: 3+ consecutive days of positive divergence.\n")
	}
	if !f.HighRiskACWRStreak && !f.SustainedNegativeDivergence && !f.WarningNegativeDivergence && !f.PositiveDivergenceStreak {
		b.WriteString("- none\n")
	}
	b.WriteString("\n")
}

func writeRecentActivities(b *strings.Builder, activities []store.Activity) {
	b.WriteString("RECENT ACTIVITIES\n")
	if len(activities) == 0 {
		b.WriteString("- none\n\n")
		return
	}
	for _, a := range activities {
		fmt.Fprintf(b, "- %s: %s (%s), load=%.2f, trimp=%.2f\n", a.Date, a.Name, a.Sport, a.TotalLoadMiles, a.TRIMP)
	}
	b.WriteString("\n")
}

func writeRecentAutopsies(b *strings.Builder, autopsies []store.Autopsy) {
	if len(autopsies) == 0 {
		return
	}
	b.WriteString("RECENT AUTOPSY INSIGHTS\n")
	for _, a := range autopsies {
		fmt.Fprintf(b, "- %s (alignment %d/10): %s\n", a.Date, a.AlignmentScore, a.AutopsyAnalysis)
	}
	b.WriteString("\n")
}
