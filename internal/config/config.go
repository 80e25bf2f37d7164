package config

import (
	"os"
	"runtime"
	"strconv"
	"strings"
	"time"

	"gobogey/adapters/stats/adjust"
	"gobogey/adapters/stats/runs"
	"gobogey/domain/match"
	"gobogey/internal/errors"
)

// DateLayout is the format of START_DATE / END_DATE and of match dates.
const DateLayout = "2006-01-02"

// Config represents the complete application configuration
type Config struct {
	Detection DetectionConfig
	Data      DataConfig
	Output    OutputConfig
	Database  DatabaseConfig
	Server    ServerConfig
}

// DetectionConfig holds the statistical settings of a batch.
type DetectionConfig struct {
	Alpha        float64
	ZType        runs.ZType
	Step2Mode    string // "two" or "three"
	AdjustMethod adjust.Method
	UpsetBasis   match.UpsetBasis
	Workers      int
}

// DataConfig selects the match table and the subset of it to evaluate.
type DataConfig struct {
	MatchFile  string
	Tournament string // "all" or a tournament name
	GrandSlam  int    // 0 = exclude, 1 = only, 2 = both
	StartDate  *time.Time
	EndDate    *time.Time
	Player1    string // "all" or a player name
	Player2    string
}

// OutputConfig holds where results are written.
type OutputConfig struct {
	ResultFile string
}

// DatabaseConfig holds database connection settings. Persistence is optional.
type DatabaseConfig struct {
	URL string
}

// Enabled reports whether a database was configured.
func (d DatabaseConfig) Enabled() bool { return d.URL != "" }

// ServerConfig holds results API settings
type ServerConfig struct {
	Port    string
	GinMode string
}

// Load reads configuration from environment variables and validates it
func Load() (*Config, error) {
	detection, err := loadDetectionConfig()
	if err != nil {
		return nil, errors.Wrap(err, "failed to load detection configuration")
	}

	data, err := loadDataConfig()
	if err != nil {
		return nil, errors.Wrap(err, "failed to load data configuration")
	}

	config := &Config{
		Detection: *detection,
		Data:      *data,
		Output: OutputConfig{
			ResultFile: getEnvOrDefault("RESULT_FILE", "bogey_results.csv"),
		},
		Database: DatabaseConfig{
			URL: os.Getenv("DATABASE_URL"),
		},
		Server: ServerConfig{
			Port:    getEnvOrDefault("PORT", "8080"),
			GinMode: getEnvOrDefault("GIN_MODE", "release"),
		},
	}

	if err := config.Validate(); err != nil {
		return nil, errors.Wrap(err, "configuration validation failed")
	}
	return config, nil
}

func loadDetectionConfig() (*DetectionConfig, error) {
	zType, err := runs.ParseZType(getEnvOrDefault("Z_TYPE", "cc"))
	if err != nil {
		return nil, errors.ConfigInvalid(err.Error())
	}
	method, err := adjust.ParseMethod(getEnvOrDefault("P_ADJUST_METHOD", "BH"))
	if err != nil {
		return nil, errors.ConfigInvalid(err.Error())
	}
	basis, err := match.ParseUpsetBasis(getEnvOrDefault("UPSET_BASIS", "odds"))
	if err != nil {
		return nil, errors.ConfigInvalid(err.Error())
	}

	return &DetectionConfig{
		Alpha:        getEnvFloatOrDefault("ALPHA", 0.05),
		ZType:        zType,
		Step2Mode:    strings.ToLower(getEnvOrDefault("STEP2_MODE", "two")),
		AdjustMethod: method,
		UpsetBasis:   basis,
		Workers:      getEnvIntOrDefault("WORKERS", runtime.NumCPU()),
	}, nil
}

func loadDataConfig() (*DataConfig, error) {
	start, err := ParseDateBound(os.Getenv("START_DATE"))
	if err != nil {
		return nil, errors.ConfigInvalid("START_DATE: " + err.Error())
	}
	end, err := ParseDateBound(os.Getenv("END_DATE"))
	if err != nil {
		return nil, errors.ConfigInvalid("END_DATE: " + err.Error())
	}

	return &DataConfig{
		MatchFile:  os.Getenv("MATCH_FILE"),
		Tournament: getEnvOrDefault("TOURNAMENT", "all"),
		GrandSlam:  getEnvIntOrDefault("GRAND_SLAM", 2),
		StartDate:  start,
		EndDate:    end,
		Player1:    getEnvOrDefault("PLAYER_1", "all"),
		Player2:    getEnvOrDefault("PLAYER_2", "all"),
	}, nil
}

// Validate checks cross-field constraints. It is also called after CLI flags
// have overridden environment values.
func (c *Config) Validate() error {
	if c.Detection.Alpha <= 0 || c.Detection.Alpha >= 1 {
		return errors.ConfigInvalid("ALPHA must be in (0, 1)")
	}
	if c.Detection.Step2Mode != "two" && c.Detection.Step2Mode != "three" {
		return errors.ConfigInvalid("STEP2_MODE must be two or three")
	}
	if c.Detection.Workers < 1 {
		return errors.ConfigInvalid("WORKERS must be at least 1")
	}
	if c.Data.GrandSlam < 0 || c.Data.GrandSlam > 2 {
		return errors.ConfigInvalid("GRAND_SLAM must be 0, 1 or 2")
	}
	if c.Data.StartDate != nil && c.Data.EndDate != nil && c.Data.EndDate.Before(*c.Data.StartDate) {
		return errors.ConfigInvalid("END_DATE is before START_DATE")
	}
	return nil
}

// ParseDateBound parses a YYYY-MM-DD bound; "", "min" and "max" mean unbounded.
func ParseDateBound(s string) (*time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" || s == "min" || s == "max" {
		return nil, nil
	}
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// Helper functions for environment variable parsing
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvFloatOrDefault(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}
