package recommend

import "testing"

func TestClassifyAssessment_PriorityOrdering(t *testing.T) {
	thr := Thresholds{ACWRHigh: 1.30, MaxRestDays: 7, DivergenceThreshold: -0.15}

	cases := []struct {
		name string
		m    Metrics
		want AssessmentCategory
	}{
		{
			name: "safety overrides everything",
			m: Metrics{
				ACWR:                 2.0,
				NormalizedDivergence: -0.5,
				DaysSinceRest:        10,
			},
			want: AssessmentSafety,
		},
		{
			name: "safety via trimp acwr alone",
			m:    Metrics{TRIMPACWR: 1.30 * 1.3},
			want: AssessmentSafety,
		},
		{
			name: "overtraining beats acwr and recovery",
			m: Metrics{
				ACWR:                 1.35,
				NormalizedDivergence: -0.20,
				DaysSinceRest:        9,
			},
			want: AssessmentOvertraining,
		},
		{
			name: "acwr beats recovery",
			m: Metrics{
				ACWR:                 1.35,
				NormalizedDivergence: 0.0,
				DaysSinceRest:        9,
			},
			want: AssessmentACWR,
		},
		{
			name: "recovery when nothing else trips",
			m: Metrics{
				ACWR:                 1.0,
				NormalizedDivergence: 0.0,
				DaysSinceRest:        7,
			},
			want: AssessmentRecovery,
		},
		{
			name: "progression when all clear",
			m: Metrics{
				ACWR:                 1.0,
				NormalizedDivergence: 0.0,
				DaysSinceRest:        2,
			},
			want: AssessmentProgression,
		},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			got := ClassifyAssessment(c.m, thr)
			if got != c.want {
				t.Errorf("ClassifyAssessment(%+v) = %s, want %s", c.m, got, c.want)
			}
		})
	}
}
