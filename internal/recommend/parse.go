package recommend

import (
	"regexp"
	"strconv"
	"strings"
)

// Sections is the structured result of parsing a recommendation response.
type Sections struct {
	Daily           string
	Weekly          string
	PatternInsights string
	HadAnyLabels    bool
}

var recommendationLabels = []labelSpec{
	{key: "daily", names: []string{"DAILY RECOMMENDATION"}},
	{key: "weekly", names: []string{"WEEKLY PLANNING"}},
	{key: "pattern", names: []string{"PATTERN INSIGHTS"}},
}

const (
	placeholderWeekly  = "No weekly plan was generated this time; continue the current training pattern and check back tomorrow."
	placeholderPattern = "No pattern insights were generated this time."
	placeholderDaily   = "No specific guidance was generated; use your judgment and keep today's effort moderate."
)

// ParseSections extracts the three labelled recommendation sections from raw,
// tolerating both "**LABEL:**" and "## LABEL" heading forms. If only the
// daily section is recoverable, the other two get safe placeholders. If no
// labels are found at all, the entire response becomes the daily section.
func ParseSections(raw string) Sections {
	found := splitLabeled(raw, recommendationLabels)

	sections := Sections{
		Daily:           strings.TrimSpace(found["daily"]),
		Weekly:          strings.TrimSpace(found["weekly"]),
		PatternInsights: strings.TrimSpace(found["pattern"]),
	}
	sections.HadAnyLabels = len(found) > 0

	if !sections.HadAnyLabels {
		sections.Daily = strings.TrimSpace(raw)
		sections.Weekly = placeholderWeekly
		sections.PatternInsights = placeholderPattern
		return sections
	}

	if sections.Daily == "" {
		sections.Daily = placeholderDaily
	}
	if sections.Weekly == "" {
		sections.Weekly = placeholderWeekly
	}
	if sections.PatternInsights == "" {
		sections.PatternInsights = placeholderPattern
	}

	return sections
}

// AutopsySections is the structured result of parsing an autopsy response.
type AutopsySections struct {
	AlignmentScore        int // clamped to [1,10]
	Assessment            string
	PhysiologicalResponse string
	LearningInsights      string
}

var autopsyLabels = []labelSpec{
	{key: "assessment", names: []string{"ALIGNMENT ASSESSMENT"}},
	{key: "physio", names: []string{"PHYSIOLOGICAL RESPONSE ANALYSIS"}},
	{key: "learning", names: []string{"LEARNING INSIGHTS & TOMORROW'S IMPLICATIONS", "LEARNING INSIGHTS"}},
}

var alignmentScoreRe = regexp.MustCompile(`(?i)ALIGNMENT_SCORE:\s*(\d+)`)

// ParseAutopsySections extracts the alignment score and three labelled
// sections from an autopsy response, clamping the score into [1,10] and
// defaulting to 5 if no score line is found.
func ParseAutopsySections(raw string) AutopsySections {
	score := 5
	if m := alignmentScoreRe.FindStringSubmatch(raw); m != nil {
		if v, err := strconv.Atoi(m[1]); err == nil {
			score = clampScore(v)
		}
	}

	found := splitLabeled(raw, autopsyLabels)
	out := AutopsySections{
		AlignmentScore:        score,
		Assessment:            strings.TrimSpace(found["assessment"]),
		PhysiologicalResponse: strings.TrimSpace(found["physio"]),
		LearningInsights:      strings.TrimSpace(found["learning"]),
	}
	if len(found) == 0 {
		out.Assessment = strings.TrimSpace(raw)
	}
	return out
}

func clampScore(v int) int {
	if v < 1 {
		return 1
	}
	if v > 10 {
		return 10
	}
	return v
}

type labelSpec struct {
	key   string
	names []string // alternate spellings for the same section
}

// headingPattern builds a regex matching "**NAME:**" or "## NAME" (and bare
// "NAME:" at line start) for any of the given names, case-insensitively.
func headingPattern(names []string) *regexp.Regexp {
	alts := make([]string, len(names))
	for i, n := range names {
		alts[i] = regexp.QuoteMeta(n)
	}
	joined := strings.Join(alts, "|")
	return regexp.MustCompile(`(?im)^\s*(?:\*\*\s*(?:` + joined + `)\s*:?\s*\*\*|#{1,6}\s*(?:` + joined + `)\s*:?|(?:` + joined + `)\s*:)\s*$`)
}

// splitLabeled finds every label's heading line in raw and returns the text
// between each heading and the next recognized heading (or end of string),
// keyed by the label's spec key. Labels not found are simply absent from
// the result.
func splitLabeled(raw string, labels []labelSpec) map[string]string {
	type match struct {
		key   string
		start int
		end   int
	}

	var matches []match
	for _, spec := range labels {
		re := headingPattern(spec.names)
		loc := re.FindStringIndex(raw)
		if loc == nil {
			continue
		}
		matches = append(matches, match{key: spec.key, start: loc[0], end: loc[1]})
	}
	if len(matches) == 0 {
		return map[string]string{}
	}

	// Sort matches by position so each section runs to the next heading.
	for i := 1; i < len(matches); i++ {
		for j := i; j > 0 && matches[j-1].start > matches[j].start; j-- {
			matches[j-1], matches[j] = matches[j], matches[j-1]
		}
	}

	out := make(map[string]string, len(matches))
	for i, m := range matches {
		contentEnd := len(raw)
		if i+1 < len(matches) {
			contentEnd = matches[i+1].start
		}
		out[m.key] = raw[m.end:contentEnd]
	}
	return out
}
