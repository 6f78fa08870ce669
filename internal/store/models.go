package store

import "time"

// Sport is a tagged variant of supported activity classifications.
// Never branch on raw provider strings outside loadmodel.ClassifySport.
type Sport string

const (
	SportRunning  Sport = "running"
	SportCycling  Sport = "cycling"
	SportSwimming Sport = "swimming"
	SportStrength Sport = "strength"
	SportWalking  Sport = "walking"
	SportHiking   Sport = "hiking"
	SportRest     Sport = "rest"
	SportOther    Sport = "other"
)

// RiskTolerance drives the thresholds used by the recommendation pipeline.
type RiskTolerance string

const (
	RiskConservative RiskTolerance = "conservative"
	RiskBalanced     RiskTolerance = "balanced"
	RiskAdaptive     RiskTolerance = "adaptive"
	RiskAggressive   RiskTolerance = "aggressive"
)

// TRIMPMethod records which formulation produced an activity's TRIMP value.
type TRIMPMethod string

const (
	TRIMPMethodAverage TRIMPMethod = "average"
	TRIMPMethodStream  TRIMPMethod = "stream"
	TRIMPMethodRestDay TRIMPMethod = "rest_day"
)

// Athlete is the persisted row backing user_settings: auth material, HR
// parameters, coaching preferences, provider credentials, and enhanced-engine
// configuration for one registered athlete.
type Athlete struct {
	ID                     int64
	Email                  string
	PasswordHash           string
	RestingHR              float64
	MaxHR                  float64
	Gender                 string // "male" or "female" — drives the TRIMP exponential coefficient
	CoachingToneSpectrum   int    // 0-100
	RiskTolerance          RiskTolerance
	Timezone               string // IANA zone name, e.g. "America/Denver"
	ProviderAccessToken    string
	ProviderRefreshToken   string
	ProviderTokenExpiresAt time.Time
	ProviderAthleteID      int64
	EnhancedEnabled        bool
	EnhancedChronicWindow  int     // days, in [28,90]
	EnhancedDecayRate      float64 // lambda, in (0,1]
	CreatedAt              time.Time
	UpdatedAt              time.Time
}

// Location resolves the athlete's IANA timezone, falling back to UTC if the
// stored zone name doesn't load. Callers must thread this through explicitly
// rather than reading system local time.
func (a *Athlete) Location() *time.Location {
	if a.Timezone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(a.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// EnhancedConfig is the subset of Athlete consumed by the enhanced engine.
type EnhancedConfig struct {
	Enabled     bool
	ChronicDays int
	DecayRate   float64
}

func (a *Athlete) EnhancedConfig() EnhancedConfig {
	return EnhancedConfig{
		Enabled:     a.EnhancedEnabled,
		ChronicDays: a.EnhancedChronicWindow,
		DecayRate:   a.EnhancedDecayRate,
	}
}

// Activity is one row of the activities table: a real provider activity or a
// synthetic rest day (ActivityID < 0) for (AthleteID, Date).
type Activity struct {
	AthleteID          int64
	ActivityID         int64
	Date               string // YYYY-MM-DD, athlete-local calendar date
	Name               string
	Sport              Sport
	DistanceMiles      float64
	ElevationGainFeet  float64
	ElevationLoadMiles float64
	TotalLoadMiles     float64
	AvgHeartRate       *float64
	MaxHeartRate       *float64
	DurationMinutes    float64
	TRIMP              float64
	TimeInZone         [5]int // seconds, zones 1-5
	TRIMPMethod        TRIMPMethod
	HRStreamSamples    int
	TRIMPProcessedAt   time.Time

	SevenDayAvgLoad        float64
	TwentyEightDayAvgLoad  float64
	SevenDayAvgTRIMP       float64
	TwentyEightDayAvgTRIMP float64
	AcuteChronicRatio      float64
	TRIMPAcuteChronicRatio float64
	NormalizedDivergence   float64

	CyclingEquivalentMiles  float64
	SwimmingEquivalentMiles float64
	StrengthEquivalentMiles float64
	CyclingElevationFactor  float64
	AverageSpeedMPH         float64
	Notes                   string
}

// IsRestDay reports whether this row is a synthetic rest-day placeholder.
func (a *Activity) IsRestDay() bool {
	return a.ActivityID < 0
}

// HRStream is the ordered heart-rate sample sequence for one real activity.
type HRStream struct {
	ID         int64
	ActivityID int64
	AthleteID  int64
	HRData     []int // bpm per sample
	SampleRate float64
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Recommendation is keyed by (AthleteID, TargetDate); unique per that pair.
type Recommendation struct {
	ID                   int64
	AthleteID            int64
	GenerationDate       time.Time
	TargetDate           string // YYYY-MM-DD
	DailyRecommendation  string
	WeeklyRecommendation string
	PatternInsights      string
	RawResponse          string
	IsAutopsyInformed    bool
	AutopsyCount         int
	AvgAlignmentScore    float64
	MetricsSnapshot      []byte // JSON
}

// Autopsy is keyed by (AthleteID, Date); unique per that pair.
type Autopsy struct {
	AthleteID        int64
	Date             string // YYYY-MM-DD
	PrescribedAction string
	ActualActivities string
	AutopsyAnalysis  string
	AlignmentScore   int // 1-10
	GeneratedAt      time.Time
}

// JournalEntry is the athlete's subjective daily observation, keyed by
// (AthleteID, Date); unique per that pair.
type JournalEntry struct {
	AthleteID      int64
	Date           string // YYYY-MM-DD
	EnergyLevel    int    // 1-5
	RPEScore       int    // 1-10
	PainPercentage int    // one of 0,20,40,60,80,100
	Notes          string
	UpdatedAt      time.Time
}

// PersonalRecord represents a personal best for a specific category, scoped
// to one athlete.
type PersonalRecord struct {
	ID              int64
	AthleteID       int64
	Category        string // e.g. "distance_5k", "longest_run", "fastest_pace"
	ActivityID      int64
	DistanceMiles   float64
	DurationSeconds int
	PacePerMile     *float64
	AvgHeartRate    *float64
	AchievedAt      time.Time
	StartOffset     *int
	EndOffset       *int
}
