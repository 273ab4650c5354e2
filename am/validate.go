package am

import (
	"path/filepath"
	"strings"

	"github.com/teranos/tripline/errors"
)

// Validate checks that the configuration is valid
func (c *Config) Validate() error {
	if len(c.SourcePaths()) == 0 {
		return errors.WithHint(
			errors.New("source.path cannot be empty"),
			"set source.path in tripline.toml or TRIPLINE_SOURCE",
		)
	}
	for _, p := range c.SourcePaths() {
		switch strings.ToLower(filepath.Ext(p)) {
		case ".parquet", ".csv":
		default:
			return errors.Newf("source %q: unsupported extension (want .parquet or .csv)", p)
		}
	}

	// Duration bounds: zero minimum is allowed, negative or inverted ranges are not
	if c.Clean.MinDurationMinutes < 0 {
		return errors.Newf("clean.min_duration_minutes must be >= 0, got %g", c.Clean.MinDurationMinutes)
	}
	if c.Clean.MaxDurationMinutes < c.Clean.MinDurationMinutes {
		return errors.Newf("clean.max_duration_minutes (%g) must be >= clean.min_duration_minutes (%g)",
			c.Clean.MaxDurationMinutes, c.Clean.MinDurationMinutes)
	}

	// Sample cap: 0 = use every row, negative = invalid
	if c.Train.SampleCap < 0 {
		return errors.Newf("train.sample_cap must be >= 0, got %d", c.Train.SampleCap)
	}

	if c.Tracking.ExperimentName == "" {
		return errors.New("tracking.experiment_name cannot be empty")
	}
	if c.Tracking.ModelName == "" {
		return errors.New("tracking.model_name cannot be empty")
	}

	if c.Watch.DebounceMS < 0 {
		return errors.Newf("watch.debounce_ms must be >= 0, got %d", c.Watch.DebounceMS)
	}

	switch c.Log.Theme {
	case "", "everforest", "gruvbox":
	default:
		return errors.Newf("log.theme must be everforest or gruvbox, got %q", c.Log.Theme)
	}

	return nil
}
