// Package config loads process configuration: secrets from the environment
// (via a .env file in development) and athlete-provisioning defaults from a
// small JSON file, the way the teacher's config package split them — only
// the split boundary moved, since secrets no longer belong in a checked-in
// file at all.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
)

// Config is the fully resolved process configuration.
type Config struct {
	Provider ProviderConfig
	LLM      LLMConfig
	Database DatabaseConfig
	Server   ServerConfig
	Defaults AthleteDefaults
}

// ProviderConfig holds the registered OAuth application's credentials for
// the activity-tracking provider.
type ProviderConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
}

// LLMConfig holds the coaching-recommendation LLM's credentials. Model is
// left blank unless overridden; internal/llmclient falls back to its own
// default.
type LLMConfig struct {
	APIKey string
	Model  string
}

// DatabaseConfig holds the SQLite file location. Path is left blank unless
// overridden; internal/store.Open falls back to its own default.
type DatabaseConfig struct {
	Path string
}

// ServerConfig holds the scheduler-trigger HTTP listener settings.
type ServerConfig struct {
	Port string
	Env  string // "development" or "production"
}

// AthleteDefaults seeds sensible starting values when provisioning a new
// athlete, persisted to and loaded from a JSON file.
type AthleteDefaults struct {
	RestingHR            float64 `json:"resting_hr"`
	MaxHR                float64 `json:"max_hr"`
	CoachingToneSpectrum int     `json:"coaching_tone_spectrum"`
	RiskTolerance        string  `json:"risk_tolerance"`
	Timezone             string  `json:"timezone"`
}

// ErrNoConfig is returned when the athlete-defaults file doesn't exist.
var ErrNoConfig = errors.New("config file not found")

// DefaultAthleteDefaults returns the baked-in fallback defaults.
func DefaultAthleteDefaults() AthleteDefaults {
	return AthleteDefaults{
		RestingHR:            50,
		MaxHR:                185,
		CoachingToneSpectrum: 50,
		RiskTolerance:        "balanced",
		Timezone:             "UTC",
	}
}

// Load reads a .env file if one is present (a missing file is not an error —
// production deployments set real environment variables instead), pulls
// secrets from the environment, and loads the athlete-defaults JSON file,
// falling back to DefaultAthleteDefaults for anything unset.
func Load() (*Config, error) {
	_ = godotenv.Load()

	defaults, err := loadAthleteDefaults()
	if err != nil && !errors.Is(err, ErrNoConfig) {
		return nil, err
	}

	return &Config{
		Provider: ProviderConfig{
			ClientID:     os.Getenv("STRAVA_CLIENT_ID"),
			ClientSecret: os.Getenv("STRAVA_CLIENT_SECRET"),
			RedirectURL:  os.Getenv("STRAVA_REDIRECT_URL"),
		},
		LLM: LLMConfig{
			APIKey: os.Getenv("ANTHROPIC_API_KEY"),
			Model:  os.Getenv("ANTHROPIC_MODEL"),
		},
		Database: DatabaseConfig{
			Path: os.Getenv("DATABASE_PATH"),
		},
		Server: ServerConfig{
			Port: envOr("PORT", "8080"),
			Env:  envOr("APP_ENV", "development"),
		},
		Defaults: defaults,
	}, nil
}

// Validate checks that the secrets a production run needs are present.
// Athlete defaults always have a usable fallback and are never required.
func (c *Config) Validate() error {
	if c.Provider.ClientID == "" {
		return errors.New("STRAVA_CLIENT_ID is required")
	}
	if c.Provider.ClientSecret == "" {
		return errors.New("STRAVA_CLIENT_SECRET is required")
	}
	if c.LLM.APIKey == "" {
		return errors.New("ANTHROPIC_API_KEY is required")
	}
	if c.Defaults.RiskTolerance != "" {
		switch c.Defaults.RiskTolerance {
		case "conservative", "balanced", "adaptive", "aggressive":
		default:
			return fmt.Errorf("athlete_defaults.risk_tolerance must be one of conservative/balanced/adaptive/aggressive, got %q", c.Defaults.RiskTolerance)
		}
	}
	return nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func loadAthleteDefaults() (AthleteDefaults, error) {
	path, err := defaultsPath()
	if err != nil {
		return AthleteDefaults{}, err
	}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return DefaultAthleteDefaults(), ErrNoConfig
	}
	if err != nil {
		return AthleteDefaults{}, fmt.Errorf("reading athlete defaults file: %w", err)
	}

	defaults := DefaultAthleteDefaults()
	if err := json.Unmarshal(data, &defaults); err != nil {
		return AthleteDefaults{}, fmt.Errorf("parsing athlete defaults file: %w", err)
	}
	return defaults, nil
}

// SaveAthleteDefaults writes defaults to the JSON file, creating its parent
// directory if necessary.
func SaveAthleteDefaults(defaults AthleteDefaults) error {
	path, err := defaultsPath()
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	data, err := json.MarshalIndent(defaults, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding athlete defaults: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("writing athlete defaults file: %w", err)
	}
	return nil
}

func defaultsPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("getting home directory: %w", err)
	}
	return filepath.Join(home, ".training-load-engine", "athlete_defaults.json"), nil
}
