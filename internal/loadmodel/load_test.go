package loadmodel

import (
	"math"
	"testing"
)

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestClassifySport_StrengthBeforeRunning(t *testing.T) {
	if got := ClassifySport("Weight Training"); got != SportStrength {
		t.Errorf("ClassifySport(Weight Training) = %v, want strength", got)
	}
}

func TestClassifySport_DefaultsToRunning(t *testing.T) {
	if got := ClassifySport("Snowshoe"); got != SportRunning {
		t.Errorf("ClassifySport(Snowshoe) = %v, want running (default)", got)
	}
}

func TestClassifySport_Ordering(t *testing.T) {
	cases := map[string]Sport{
		"Trail Run":      SportRunning,
		"Treadmill Run":  SportRunning,
		"Road Ride":      SportCycling,
		"VirtualRide":    SportCycling,
		"Open Water Swim": SportSwimming,
		"Morning Hike":   SportHiking,
		"Evening Walk":   SportWalking,
		"Yoga Flow":      SportStrength,
		"CrossFit WOD":   SportStrength,
	}
	for label, want := range cases {
		if got := ClassifySport(label); got != want {
			t.Errorf("ClassifySport(%q) = %v, want %v", label, got, want)
		}
	}
}

func TestExternalLoadMiles_Running(t *testing.T) {
	got := ExternalLoadMiles(SportRunning, 5.0, 750, 0, 0, 0, false)
	want := Round2(5.0 + 750.0/750)
	if !almostEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestExternalLoadMiles_CyclingBands(t *testing.T) {
	cases := []struct {
		speed float64
		want  float64
	}{
		{10, Round2(30.0 / 3.0)},
		{15, Round2(30.0 / 3.1)},
		{18, Round2(30.0 / 2.9)},
		{25, Round2(30.0 / 2.5)},
	}
	for _, c := range cases {
		got := ExternalLoadMiles(SportCycling, 30.0, 0, c.speed, 0, 0, false)
		if !almostEqual(got, c.want) {
			t.Errorf("speed %v: got %v, want %v", c.speed, got, c.want)
		}
	}
}

func TestExternalLoadMiles_Swimming(t *testing.T) {
	pool := ExternalLoadMiles(SportSwimming, 1.0, 0, 0, 0, 0, false)
	open := ExternalLoadMiles(SportSwimming, 1.0, 0, 0, 0, 0, true)
	if !almostEqual(pool, 4.0) {
		t.Errorf("pool swim got %v, want 4.0", pool)
	}
	if !almostEqual(open, 4.2) {
		t.Errorf("open water swim got %v, want 4.2", open)
	}
}

func TestExternalLoadMiles_StrengthDefaultsRPE(t *testing.T) {
	got := ExternalLoadMiles(SportStrength, 0, 0, 0, 60, 0, false)
	want := Round2(1.0 * 6 * 0.30)
	if !almostEqual(got, want) {
		t.Errorf("got %v, want %v (default RPE 6)", got, want)
	}
}

func TestExternalLoadMiles_Rest(t *testing.T) {
	if got := ExternalLoadMiles(SportRest, 0, 0, 0, 0, 0, false); got != 0 {
		t.Errorf("rest day load = %v, want 0", got)
	}
}

func TestTRIMPAverage_ClampsHRR(t *testing.T) {
	// avgHR below resting clamps ratio to 0, TRIMP should be 0.
	got := TRIMPAverage(60, 40, 50, 185, "male")
	if got != 0 {
		t.Errorf("expected 0 TRIMP when avgHR < restingHR, got %v", got)
	}

	// avgHR above maxHR clamps ratio to 1.
	atMax := TRIMPAverage(60, 200, 50, 185, "male")
	atExactlyMax := TRIMPAverage(60, 185, 50, 185, "male")
	if !almostEqual(atMax, atExactlyMax) {
		t.Errorf("expected clamping at ratio 1: got %v vs %v", atMax, atExactlyMax)
	}
}

func TestTRIMPAverage_GenderCoefficient(t *testing.T) {
	male := TRIMPAverage(60, 150, 50, 185, "male")
	female := TRIMPAverage(60, 150, 50, 185, "female")
	if male == female {
		t.Errorf("expected different TRIMP for different gender coefficients")
	}
}

func TestTRIMPStream_FallbackOnMostlyInvalid(t *testing.T) {
	samples := []int{0, 0, 0, 140}
	result := TRIMPStream(samples, 40, 50, 185, "male")
	if !result.Fallback {
		t.Error("expected fallback when >50% samples invalid")
	}
}

func TestTRIMPStream_NoFallbackWhenMostlyValid(t *testing.T) {
	samples := []int{140, 145, 150, 0}
	result := TRIMPStream(samples, 40, 50, 185, "male")
	if result.Fallback {
		t.Error("did not expect fallback when <=50% samples invalid")
	}
	if result.ValidSamples != 3 {
		t.Errorf("expected 3 valid samples, got %d", result.ValidSamples)
	}
}

func TestZoneSecondsFromStream_SumsToTotalDuration(t *testing.T) {
	samples := make([]int, 100)
	for i := range samples {
		samples[i] = 160 // constant HR, 1Hz sampling
	}
	zones := ZoneSecondsFromStream(samples, 1.0, 50, 185)
	total := 0
	for _, z := range zones {
		total += z
	}
	if total != 100 {
		t.Errorf("expected 100 total seconds bucketed, got %d", total)
	}
}

func TestZoneSecondsFromAverage_SumsToTotalDuration(t *testing.T) {
	zones := ZoneSecondsFromAverage(150, 50, 185, 60) // 60 minutes = 3600s
	total := 0
	for _, z := range zones {
		total += z
	}
	if math.Abs(float64(total-3600)) > 5 {
		t.Errorf("expected ~3600 total seconds, got %d", total)
	}
}

func TestZoneSecondsFromAverage_ClampsAtEdges(t *testing.T) {
	// avgHR at resting HR -> zone 0, lower neighbor doesn't exist.
	zones := ZoneSecondsFromAverage(50, 50, 185, 60)
	if zones[0] == 0 {
		t.Error("expected primary zone to receive time")
	}
}

func TestRound2(t *testing.T) {
	if got := Round2(1.23456); got != 1.23 {
		t.Errorf("Round2(1.23456) = %v, want 1.23", got)
	}
	if got := Round2(1.005); got != 1.01 && got != 1.0 {
		// floating point rounding at the boundary is acceptable either way
		t.Logf("Round2(1.005) = %v", got)
	}
}
