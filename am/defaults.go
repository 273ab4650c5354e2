package am

import (
	"fmt"

	"github.com/spf13/viper"
)

// Default values, shared by SetDefaults and the zero-value getters
const (
	DefaultSourcePath     = "data/yellow_tripdata_2023-03.parquet"
	DefaultMinDuration    = 1.0
	DefaultMaxDuration    = 60.0
	DefaultSampleCap      = 100000
	DefaultSeed           = 42
	DefaultDatabasePath   = "tripline.db"
	DefaultExperimentName = "taxi-duration-prediction"
	DefaultModelName      = "taxi-duration-model"
	DefaultDebounceMS     = 500
	DefaultLogTheme       = "everforest"
)

// SetDefaults configures default values for all configuration options
func SetDefaults(v *viper.Viper) {
	// Source defaults
	v.SetDefault("source.path", DefaultSourcePath)
	v.SetDefault("source.fallback_paths", []string{})

	// Cleaner defaults: keep trips between 1 and 60 minutes
	v.SetDefault("clean.min_duration_minutes", DefaultMinDuration)
	v.SetDefault("clean.max_duration_minutes", DefaultMaxDuration)

	// Trainer defaults
	v.SetDefault("train.sample_cap", DefaultSampleCap)
	v.SetDefault("train.seed", DefaultSeed)

	// Tracking defaults
	v.SetDefault("tracking.database_path", DefaultDatabasePath)
	v.SetDefault("tracking.experiment_name", DefaultExperimentName)
	v.SetDefault("tracking.model_name", DefaultModelName)

	v.SetDefault("watch.debounce_ms", DefaultDebounceMS)

	v.SetDefault("log.json", false)
	v.SetDefault("log.theme", DefaultLogTheme)
}

// BindEnvVars explicitly binds the settings most often overridden in CI
func BindEnvVars(v *viper.Viper) {
	v.BindEnv("source.path", "TRIPLINE_SOURCE")
	v.BindEnv("tracking.database_path", "TRIPLINE_DATABASE_PATH")
	v.BindEnv("log.theme", "TRIPLINE_LOG_THEME")
}

// GetDatabasePath returns the configured tracking database path
func (c *Config) GetDatabasePath() string {
	if c.Tracking.DatabasePath == "" {
		return DefaultDatabasePath
	}
	return c.Tracking.DatabasePath
}

// SourcePaths returns the primary source path followed by the fallbacks
func (c *Config) SourcePaths() []string {
	paths := make([]string, 0, 1+len(c.Source.FallbackPaths))
	if c.Source.Path != "" {
		paths = append(paths, c.Source.Path)
	}
	return append(paths, c.Source.FallbackPaths...)
}

// GetLogTheme returns the log theme (default: everforest)
func (c *Config) GetLogTheme() string {
	if c.Log.Theme == "" {
		return DefaultLogTheme
	}
	return c.Log.Theme
}

// String returns a string representation of the config
func (c *Config) String() string {
	return fmt.Sprintf("Config{Source: %s, Tracking: %s, Experiment: %s, Model: %s}",
		c.Source.Path, c.Tracking.DatabasePath, c.Tracking.ExperimentName, c.Tracking.ModelName)
}
