// Package recommend composes LLM prompts from an athlete's current training
// state and parses the structured guidance that comes back. The threshold,
// assessment, tone, prompt and parse functions are pure transforms over typed
// inputs, so the prompt/parse contract is testable without a live LLM; the
// Pipeline and Scheduler types drive the store and the LLM client.
package recommend

import "training-load-engine/internal/store"

// Thresholds are the personalized limits derived from an athlete's risk
// tolerance: the ACWR value above which load is flagged high-risk, the
// maximum consecutive days without rest before a warning, and the
// normalized-divergence floor below which internal load is overtraining.
type Thresholds struct {
	ACWRHigh            float64
	MaxRestDays         int
	DivergenceThreshold float64
}

// thresholdTable is the Jack-Daniels-style lookup: one row per risk
// tolerance, in the order spec'd: conservative, balanced, adaptive, aggressive.
var thresholdTable = map[store.RiskTolerance]Thresholds{
	store.RiskConservative: {ACWRHigh: 1.20, MaxRestDays: 6, DivergenceThreshold: -0.10},
	store.RiskBalanced:     {ACWRHigh: 1.30, MaxRestDays: 7, DivergenceThreshold: -0.15},
	store.RiskAdaptive:     {ACWRHigh: 1.35, MaxRestDays: 7, DivergenceThreshold: -0.15},
	store.RiskAggressive:   {ACWRHigh: 1.50, MaxRestDays: 8, DivergenceThreshold: -0.20},
}

// ThresholdsFor returns the personalized thresholds for a risk tolerance,
// defaulting to the balanced row for an unrecognized value.
func ThresholdsFor(risk store.RiskTolerance) Thresholds {
	if t, ok := thresholdTable[risk]; ok {
		return t
	}
	return thresholdTable[store.RiskBalanced]
}
