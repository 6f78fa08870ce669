package loadmodel

// zoneBounds are HR-reserve percentage boundaries for zones 1-5:
// 50-60, 60-70, 70-80, 80-90, 90-100.
var zoneBounds = [5][2]float64{
	{0.50, 0.60},
	{0.60, 0.70},
	{0.70, 0.80},
	{0.80, 0.90},
	{0.90, 1.00},
}

// zoneForReserve returns the zone index (0-4) a given HR-reserve fraction
// falls into. Values below zone 1's floor are clamped into zone 1; values at
// or above 100% reserve land in zone 5.
func zoneForReserve(reserve float64) int {
	for i, b := range zoneBounds {
		if reserve < b[1] || i == len(zoneBounds)-1 {
			return i
		}
	}
	return len(zoneBounds) - 1
}

// ZoneSecondsFromStream walks an HR stream sampled at sampleRate Hz and
// buckets seconds-in-zone by HR-reserve percentage. Invalid (<=0) samples
// contribute no time to any zone.
func ZoneSecondsFromStream(hrSamples []int, sampleRate, restingHR, maxHR float64) [5]int {
	var zones [5]int
	if sampleRate <= 0 {
		sampleRate = 1
	}
	secondsPerSample := 1.0 / sampleRate

	for _, bpm := range hrSamples {
		if bpm <= 0 {
			continue
		}
		reserve := clamp01((float64(bpm) - restingHR) / (maxHR - restingHR))
		zones[zoneForReserve(reserve)] += int(secondsPerSample)
	}
	return zones
}

// ZoneSecondsFromAverage estimates the zone-time distribution from a single
// average HR when no stream is available: 60% of the duration is placed in
// the zone containing the average, 20% in each adjacent zone (clamped at the
// edges so no time is lost off the ends of the zone range).
func ZoneSecondsFromAverage(avgHR, restingHR, maxHR, durationMinutes float64) [5]int {
	var zones [5]int
	durationSeconds := durationMinutes * 60
	if durationSeconds <= 0 {
		return zones
	}

	reserve := clamp01((avgHR - restingHR) / (maxHR - restingHR))
	primary := zoneForReserve(reserve)

	primaryShare := 0.60
	adjacentShare := 0.20

	zones[primary] += int(durationSeconds * primaryShare)

	lower, upper := primary-1, primary+1
	switch {
	case lower < 0 && upper > len(zones)-1:
		zones[primary] += int(durationSeconds * adjacentShare * 2)
	case lower < 0:
		zones[upper] += int(durationSeconds * adjacentShare)
		zones[primary] += int(durationSeconds * adjacentShare)
	case upper > len(zones)-1:
		zones[lower] += int(durationSeconds * adjacentShare)
		zones[primary] += int(durationSeconds * adjacentShare)
	default:
		zones[lower] += int(durationSeconds * adjacentShare)
		zones[upper] += int(durationSeconds * adjacentShare)
	}

	return zones
}
