// Package loadmodel holds the pure, I/O-free training-load math: sport
// classification, external load normalization, TRIMP, and HR zone bucketing.
// Every function here is deterministic and side-effect free so the ingestion
// shell (internal/ingest) can be tested by swapping in fixed inputs.
package loadmodel

import (
	"strings"

	"training-load-engine/internal/store"
)

// Sport re-exports store.Sport so callers needn't import both packages for
// the same classification type.
type Sport = store.Sport

const (
	SportRunning  = store.SportRunning
	SportCycling  = store.SportCycling
	SportSwimming = store.SportSwimming
	SportStrength = store.SportStrength
	SportWalking  = store.SportWalking
	SportHiking   = store.SportHiking
	SportRest     = store.SportRest
	SportOther    = store.SportOther
)

// strengthKeywords is checked before runningKeywords so "Weight Training"
// never matches "Train".
var strengthKeywords = []string{"weight", "strength", "crossfit", "wod", "yoga", "pilates"}
var cyclingKeywords = []string{"ride", "bike", "cycling", "spin", "velomobile"}
var swimmingKeywords = []string{"swim"}
var hikingKeywords = []string{"hike", "hiking"}
var walkingKeywords = []string{"walk"}
var runningKeywords = []string{"run"}

// ClassifySport maps a provider sport-type label to our Sport classification
// by ordered keyword match. Strength keywords are tested first so labels
// like "Weight Training" aren't mistaken for a run. Ambiguous labels default
// to running.
func ClassifySport(label string) Sport {
	lower := strings.ToLower(label)

	if containsAny(lower, strengthKeywords) {
		return SportStrength
	}
	if containsAny(lower, cyclingKeywords) {
		return SportCycling
	}
	if containsAny(lower, swimmingKeywords) {
		return SportSwimming
	}
	if containsAny(lower, hikingKeywords) {
		return SportHiking
	}
	if containsAny(lower, walkingKeywords) {
		return SportWalking
	}
	if containsAny(lower, runningKeywords) {
		return SportRunning
	}
	return SportRunning
}

// IsSupported reports whether a raw provider activity label matches any of
// the sport keyword sets the ingestion pipeline processes. Unsupported
// activity labels are skipped, not errored.
func IsSupported(label string) bool {
	lower := strings.ToLower(label)
	all := append(append(append(append(append([]string{}, strengthKeywords...), cyclingKeywords...), swimmingKeywords...), hikingKeywords...), append(walkingKeywords, runningKeywords...)...)
	return containsAny(lower, all)
}

// DisplayLabel upgrades a run label to "Treadmill Run" (and a ride label to
// "Indoor Ride") when indoorOrTrainer is set; otherwise it returns rawType
// unchanged.
func DisplayLabel(rawType string, sport Sport, indoorOrTrainer bool) string {
	if sport == SportRunning && indoorOrTrainer {
		return "Treadmill Run"
	}
	if sport == SportCycling && indoorOrTrainer {
		return "Indoor Ride"
	}
	return rawType
}

func containsAny(s string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(s, kw) {
			return true
		}
	}
	return false
}
